package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/swapstay/swapsync/internal/models"
	apperrors "github.com/swapstay/swapsync/pkg/errors"
)

// DatabaseStore implements KV on the agent's local sqlite database.
type DatabaseStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if necessary) the local snapshot database and
// migrates its schema.
func OpenSQLite(path string) (*DatabaseStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persist: create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	if err := db.AutoMigrate(&models.SnapshotEntry{}); err != nil {
		return nil, apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	return &DatabaseStore{db: db}, nil
}

// NewDatabaseStore wraps an existing gorm handle.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, apperrors.ErrStorageUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var entry models.SnapshotEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.ErrStorageUnavailable.WithInternal(err)
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set upserts the value for a given key with an optional expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return apperrors.ErrStorageUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	expiry := time.Time{}
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}

	entry := models.SnapshotEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiry,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
	if err != nil {
		return apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	return nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return apperrors.ErrStorageUnavailable
	}
	if len(keys) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	err := s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&models.SnapshotEntry{}).Error
	if err != nil {
		return apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	return nil
}

// Ping verifies the database responds.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	if s == nil {
		return apperrors.ErrStorageUnavailable
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	if err := sqlDB.PingContext(ensureContext(ctx)); err != nil {
		return apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	return nil
}

// SweepExpired deletes rows whose expiry has passed and returns how many were
// removed. Used by the maintenance sweeper.
func (s *DatabaseStore) SweepExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, apperrors.ErrStorageUnavailable
	}

	result := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, time.Now()).
		Delete(&models.SnapshotEntry{})
	if result.Error != nil {
		return 0, apperrors.ErrStorageUnavailable.WithInternal(result.Error)
	}
	return result.RowsAffected, nil
}

// Close releases the underlying database handle.
func (s *DatabaseStore) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.ErrStorageUnavailable.WithInternal(err)
	}
	return sqlDB.Close()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
