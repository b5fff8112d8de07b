package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultClearBatchSize bounds the number of ids per DELETE statement.
const DefaultClearBatchSize = 500

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&HistoryRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	if d == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateHistory inserts a history record, assigning its id and timestamp when unset.
func (d *Database) CreateHistory(ctx context.Context, rec *HistoryRecord) error {
	if rec == nil {
		return errors.New("history record is nil")
	}
	rec.UserID = strings.TrimSpace(rec.UserID)
	if rec.UserID == "" {
		return errors.New("history record has no user")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.WithContext(ctx).Create(rec).Error
}

// ListHistory returns the user's records newest first. Records created within
// the same clock tick keep their insertion order. A limit <= 0 returns all rows.
func (d *Database) ListHistory(ctx context.Context, userID string, limit int) ([]HistoryRecord, error) {
	query := d.gorm.WithContext(ctx).
		Model(&HistoryRecord{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at DESC, rowid DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []HistoryRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountHistory returns the number of records the user owns.
func (d *Database) CountHistory(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := d.gorm.WithContext(ctx).Model(&HistoryRecord{}).Where("user_id = ?", strings.TrimSpace(userID)).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ClearHistory deletes every record of the user. Ids are selected first and
// removed in batches, so records inserted concurrently may survive the call.
func (d *Database) ClearHistory(ctx context.Context, userID string, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultClearBatchSize
	}
	userID = strings.TrimSpace(userID)

	var ids []string
	if err := d.gorm.WithContext(ctx).Model(&HistoryRecord{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("select history ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var deleted int64
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		res := d.gorm.WithContext(ctx).
			Where("user_id = ? AND id IN ?", userID, ids[start:end]).
			Delete(&HistoryRecord{})
		if res.Error != nil {
			return deleted, fmt.Errorf("delete history batch: %w", res.Error)
		}
		deleted += res.RowsAffected
	}
	return deleted, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_history_records_user_created ON history_records(user_id, created_at DESC)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
