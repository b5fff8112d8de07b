package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aconic-ni/customsclass-r/internal/hscode"
)

// HistoryRecord is one persisted classification for a user.
type HistoryRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"size:128;not null;index"`
	Brand       string    `gorm:"size:256"`
	Description string    `gorm:"type:text"`
	ResultJSON  string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
}

// SetResult persists the classification result as JSON.
func (r *HistoryRecord) SetResult(result hscode.ResultData) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	r.ResultJSON = string(payload)
	return nil
}

// Result returns the decoded classification result.
func (r *HistoryRecord) Result() (hscode.ResultData, error) {
	var out hscode.ResultData
	if strings.TrimSpace(r.ResultJSON) == "" {
		return out, fmt.Errorf("history record %s has no result", r.ID)
	}
	if err := json.Unmarshal([]byte(r.ResultJSON), &out); err != nil {
		return out, fmt.Errorf("decode result of %s: %w", r.ID, err)
	}
	return out, nil
}
