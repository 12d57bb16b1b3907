package models

import (
	"time"
)

// SnapshotEntry is one persisted snapshot envelope in the local store, keyed
// per domain (proposal state, completion state). Writers are the debounced
// persistence layer only; last writer wins. Value is opaque to the store, so
// the column stays a blob rather than a JSON type.
type SnapshotEntry struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
