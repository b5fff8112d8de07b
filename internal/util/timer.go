package util

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Lap is one named stage measured by a Timer.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Timer measures the total elapsed time of an operation and the duration of
// each of its stages.
type Timer struct {
	start time.Time
	last  time.Time
	laps  []Lap
}

// StartTimer creates a new timer starting at current time.
func StartTimer() *Timer {
	now := time.Now()
	return &Timer{start: now, last: now}
}

// ElapsedMs returns the elapsed milliseconds since start.
func (t *Timer) ElapsedMs() int64 {
	if t == nil || t.start.IsZero() {
		return 0
	}
	return time.Since(t.start).Milliseconds()
}

// Lap closes the current stage under name and returns its duration.
func (t *Timer) Lap(name string) time.Duration {
	if t == nil {
		return 0
	}
	now := time.Now()
	d := now.Sub(t.last)
	t.last = now
	t.laps = append(t.laps, Lap{Name: name, Duration: d})
	return d
}

// Laps returns the recorded stages in order.
func (t *Timer) Laps() []Lap {
	if t == nil {
		return nil
	}
	out := make([]Lap, len(t.laps))
	copy(out, t.laps)
	return out
}

// Fields renders the laps and the total as log fields (<stage>_ms, total_ms).
func (t *Timer) Fields() logrus.Fields {
	fields := logrus.Fields{"total_ms": t.ElapsedMs()}
	if t == nil {
		return fields
	}
	for _, lap := range t.laps {
		fields[lap.Name+"_ms"] = lap.Duration.Milliseconds()
	}
	return fields
}
