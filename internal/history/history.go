// Package history keeps the per-user record of classification runs.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aconic-ni/customsclass-r/internal/hscode"
	"github.com/aconic-ni/customsclass-r/internal/store"
)

// Item is one stored classification request and its result.
type Item struct {
	ID          string            `json:"id"`
	Brand       string            `json:"brand"`
	Description string            `json:"description"`
	Result      hscode.ResultData `json:"result"`
	UserID      string            `json:"userId"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Store is the history contract used by the classifier and the API.
type Store interface {
	Save(ctx context.Context, userID, brand, description string, result hscode.ResultData) (Item, error)
	List(ctx context.Context, userID string) ([]Item, error)
	Clear(ctx context.Context, userID string) (int64, error)
}

// ErrNoUser is returned when an operation is attempted without a user id.
var ErrNoUser = errors.New("history requires a user id")

// Repository implements Store on top of the SQL database.
type Repository struct {
	db        *store.Database
	batchSize int
	listLimit int
}

// Options tunes a Repository.
type Options struct {
	ClearBatchSize int
	ListLimit      int
}

// NewRepository wraps db.
func NewRepository(db *store.Database, opts Options) *Repository {
	return &Repository{db: db, batchSize: opts.ClearBatchSize, listLimit: opts.ListLimit}
}

// Save appends a record for userID and returns it as stored.
func (r *Repository) Save(ctx context.Context, userID, brand, description string, result hscode.ResultData) (Item, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Item{}, ErrNoUser
	}
	rec := &store.HistoryRecord{
		UserID:      userID,
		Brand:       brand,
		Description: description,
	}
	if err := rec.SetResult(result); err != nil {
		return Item{}, err
	}
	if err := r.db.CreateHistory(ctx, rec); err != nil {
		return Item{}, fmt.Errorf("save history: %w", err)
	}
	return Item{
		ID:          rec.ID,
		Brand:       rec.Brand,
		Description: rec.Description,
		Result:      result,
		UserID:      rec.UserID,
		Timestamp:   rec.CreatedAt,
	}, nil
}

// List returns the user's items newest first. Rows whose stored result cannot
// be decoded are skipped and logged.
func (r *Repository) List(ctx context.Context, userID string) ([]Item, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNoUser
	}
	rows, err := r.db.ListHistory(ctx, userID, r.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := FromRecord(row)
		if err != nil {
			logrus.WithError(err).WithField("history_id", row.ID).Warn("skip unreadable history record")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Clear removes every item of the user and reports how many were deleted.
func (r *Repository) Clear(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrNoUser
	}
	deleted, err := r.db.ClearHistory(ctx, userID, r.batchSize)
	if err != nil {
		return deleted, fmt.Errorf("clear history: %w", err)
	}
	return deleted, nil
}

// FromRecord converts a database row into an Item.
func FromRecord(rec store.HistoryRecord) (Item, error) {
	result, err := rec.Result()
	if err != nil {
		return Item{}, err
	}
	return Item{
		ID:          rec.ID,
		Brand:       rec.Brand,
		Description: rec.Description,
		Result:      result,
		UserID:      rec.UserID,
		Timestamp:   rec.CreatedAt,
	}, nil
}
