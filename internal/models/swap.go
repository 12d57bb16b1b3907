package models

import "time"

// ProposalStatus enumerates the lifecycle states of a swap proposal.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalCancelled ProposalStatus = "cancelled"
	ProposalExpired   ProposalStatus = "expired"
)

// ProposalState is the local view of a swap proposal, either authoritative
// (as last fetched from the marketplace) or optimistically mutated.
type ProposalState struct {
	ID         string         `json:"id" validate:"required"`
	SwapID     string         `json:"swap_id" validate:"required"`
	Status     ProposalStatus `json:"status" validate:"required,oneof=pending accepted rejected cancelled expired"`
	Reason     string         `json:"reason,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at" validate:"required"`
	Optimistic bool           `json:"optimistic,omitempty"`
}

// CompletionState enumerates swap completion outcomes.
type CompletionState string

const (
	CompletionInProgress CompletionState = "in_progress"
	CompletionCompleted  CompletionState = "completed"
	CompletionFailed     CompletionState = "failed"
)

// CompletionStatus is the local view of a swap's completion, covering the
// payment settlement that finalises a booking exchange.
type CompletionStatus struct {
	SwapID        string          `json:"swap_id" validate:"required"`
	Status        CompletionState `json:"status" validate:"required,oneof=in_progress completed failed"`
	TransactionID string          `json:"transaction_id,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at" validate:"required"`
	Optimistic    bool            `json:"optimistic,omitempty"`
}

// AuditRecord captures one reconciliation decision for diagnostics. The
// retained set is bounded; oldest records are dropped first.
type AuditRecord struct {
	ID         string    `json:"id" validate:"required"`
	EntityID   string    `json:"entity_id" validate:"required"`
	Action     string    `json:"action" validate:"required"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at" validate:"required"`
}
