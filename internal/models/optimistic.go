package models

import "time"

// OptimisticKind names the user intent applied ahead of server confirmation.
type OptimisticKind string

const (
	OptimisticAccepted  OptimisticKind = "accepted"
	OptimisticRejected  OptimisticKind = "rejected"
	OptimisticCancelled OptimisticKind = "cancelled"
	OptimisticCompleted OptimisticKind = "completed"
)

// OptimisticUpdateRecord marks a locally-applied mutation awaiting an
// authoritative event for the same entity. Records are superseded by the
// matching event or expire after a bounded TTL with a rollback.
type OptimisticUpdateRecord struct {
	EntityID  string         `json:"entity_id" validate:"required"`
	Kind      OptimisticKind `json:"kind" validate:"required"`
	AppliedAt time.Time      `json:"applied_at" validate:"required"`
}

// ExpiredBy reports whether the record has outlived the TTL at the given time.
func (r OptimisticUpdateRecord) ExpiredBy(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.AppliedAt) > ttl
}
