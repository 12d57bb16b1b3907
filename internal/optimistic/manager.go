package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/internal/persist"
	"github.com/swapstay/swapsync/pkg/logger"
)

// Fetcher retrieves authoritative entity state from the marketplace backend.
type Fetcher interface {
	FetchProposal(ctx context.Context, id string) (*models.ProposalState, error)
	FetchCompletion(ctx context.Context, swapID string) (*models.CompletionStatus, error)
}

// Scope identifies which entity view a refresh targets.
type Scope string

const (
	ScopeProposal   Scope = "proposal"
	ScopeCompletion Scope = "completion"
)

// Options configure the optimistic update layer.
type Options struct {
	// Store persists snapshots. When nil the layer runs memory-only.
	Store   persist.KV
	Fetcher Fetcher

	// TTL bounds how long an optimistic record may wait for confirmation.
	TTL      time.Duration
	Debounce time.Duration

	ProposalMaxAge   time.Duration
	CompletionMaxAge time.Duration
	MaxProposals     int
	MaxCompletions   int
	MaxAudit         int

	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Minute
	}
	if o.Debounce <= 0 {
		o.Debounce = 250 * time.Millisecond
	}
	if o.ProposalMaxAge <= 0 {
		o.ProposalMaxAge = time.Hour
	}
	if o.CompletionMaxAge <= 0 {
		o.CompletionMaxAge = 24 * time.Hour
	}
	if o.MaxProposals <= 0 {
		o.MaxProposals = 100
	}
	if o.MaxCompletions <= 0 {
		o.MaxCompletions = 200
	}
	if o.MaxAudit <= 0 {
		o.MaxAudit = 50
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Manager lets the local view reflect user intent before server confirmation.
// Authoritative data always wins on conflict; optimistic guesses expire after
// a bounded TTL with a rollback and a forced refresh.
type Manager struct {
	opts  Options
	log   *zap.Logger
	saver *persist.Saver

	mu                sync.Mutex
	proposals         map[string]models.ProposalState
	completions       map[string]models.CompletionStatus
	serverProposals   map[string]models.ProposalState
	serverCompletions map[string]models.CompletionStatus
	records           map[string]models.OptimisticUpdateRecord
	audit             []models.AuditRecord
	version           int
}

// NewManager constructs the optimistic layer. Call Load before first use to
// restore persisted snapshots.
func NewManager(opts Options) *Manager {
	opts.applyDefaults()

	m := &Manager{
		opts:              opts,
		log:               logger.WithModule("optimistic"),
		proposals:         map[string]models.ProposalState{},
		completions:       map[string]models.CompletionStatus{},
		serverProposals:   map[string]models.ProposalState{},
		serverCompletions: map[string]models.CompletionStatus{},
		records:           map[string]models.OptimisticUpdateRecord{},
	}
	if opts.Store != nil {
		m.saver = persist.NewSaver(m.flush, opts.Debounce)
	} else {
		m.log.Warn("durable storage unavailable, running memory-only")
	}
	return m
}

// ApplyProposalDecision records user intent for a proposal ahead of server
// confirmation and applies it to the local view.
func (m *Manager) ApplyProposalDecision(proposalID, swapID string, kind models.OptimisticKind, reason string) {
	if m == nil || proposalID == "" {
		return
	}
	now := m.opts.Now()

	m.mu.Lock()
	m.records[proposalID] = models.OptimisticUpdateRecord{
		EntityID:  proposalID,
		Kind:      kind,
		AppliedAt: now,
	}

	state, ok := m.proposals[proposalID]
	if !ok {
		state = models.ProposalState{ID: proposalID, SwapID: swapID}
	}
	state.Status = models.ProposalStatus(kind)
	state.Reason = reason
	state.UpdatedAt = now
	state.Optimistic = true
	m.proposals[proposalID] = state

	m.appendAuditLocked(proposalID, "optimistic_apply", string(kind), now)
	m.mu.Unlock()

	monitoring.RecordOptimisticApplied(string(kind))
	m.requestPersist()
}

// ApplyCompletion records user intent to complete a swap ahead of settlement.
func (m *Manager) ApplyCompletion(swapID, transactionID string) {
	if m == nil || swapID == "" {
		return
	}
	now := m.opts.Now()

	m.mu.Lock()
	m.records[swapID] = models.OptimisticUpdateRecord{
		EntityID:  swapID,
		Kind:      models.OptimisticCompleted,
		AppliedAt: now,
	}
	m.completions[swapID] = models.CompletionStatus{
		SwapID:        swapID,
		Status:        models.CompletionCompleted,
		TransactionID: transactionID,
		UpdatedAt:     now,
		Optimistic:    true,
	}
	m.appendAuditLocked(swapID, "optimistic_apply", string(models.OptimisticCompleted), now)
	m.mu.Unlock()

	monitoring.RecordOptimisticApplied(string(models.OptimisticCompleted))
	m.requestPersist()
}

// ReconcileProposal replaces the local proposal view with the authoritative
// payload and retires any optimistic record for the same entity.
func (m *Manager) ReconcileProposal(authoritative models.ProposalState) {
	if m == nil || authoritative.ID == "" {
		return
	}
	now := m.opts.Now()
	authoritative.Optimistic = false

	m.mu.Lock()
	record, had := m.records[authoritative.ID]
	delete(m.records, authoritative.ID)
	m.proposals[authoritative.ID] = authoritative
	m.serverProposals[authoritative.ID] = authoritative
	m.appendAuditLocked(authoritative.ID, "reconcile", string(authoritative.Status), now)
	m.mu.Unlock()

	if had {
		outcome := "overturned"
		if string(record.Kind) == string(authoritative.Status) {
			outcome = "confirmed"
		}
		monitoring.RecordOptimisticReconciled(outcome)
	}
	m.requestPersist()
}

// ReconcileCompletion replaces the local completion view with the
// authoritative payload and retires any optimistic record for the swap.
func (m *Manager) ReconcileCompletion(authoritative models.CompletionStatus) {
	if m == nil || authoritative.SwapID == "" {
		return
	}
	now := m.opts.Now()
	authoritative.Optimistic = false

	m.mu.Lock()
	record, had := m.records[authoritative.SwapID]
	delete(m.records, authoritative.SwapID)
	m.completions[authoritative.SwapID] = authoritative
	m.serverCompletions[authoritative.SwapID] = authoritative
	m.appendAuditLocked(authoritative.SwapID, "reconcile", string(authoritative.Status), now)
	m.mu.Unlock()

	if had {
		outcome := "overturned"
		if record.Kind == models.OptimisticCompleted && authoritative.Status == models.CompletionCompleted {
			outcome = "confirmed"
		}
		monitoring.RecordOptimisticReconciled(outcome)
	}
	m.requestPersist()
}

// Refresh fetches the authoritative state for an entity and reconciles it.
func (m *Manager) Refresh(ctx context.Context, scope Scope, entityID string) error {
	if m == nil || m.opts.Fetcher == nil || entityID == "" {
		return nil
	}

	switch scope {
	case ScopeCompletion:
		completion, err := m.opts.Fetcher.FetchCompletion(ctx, entityID)
		if err != nil {
			m.log.Warn("completion refresh failed", zap.String("swap_id", entityID), zap.Error(err))
			return err
		}
		m.ReconcileCompletion(*completion)
	default:
		proposal, err := m.opts.Fetcher.FetchProposal(ctx, entityID)
		if err != nil {
			m.log.Warn("proposal refresh failed", zap.String("proposal_id", entityID), zap.Error(err))
			return err
		}
		m.ReconcileProposal(*proposal)
	}
	return nil
}

// SweepExpired retires optimistic records past their TTL, rolls the local
// view back to last-known-server state, and forces one refresh per entity.
// Returns the number of expired records.
func (m *Manager) SweepExpired(ctx context.Context) int {
	if m == nil {
		return 0
	}
	now := m.opts.Now()

	type expired struct {
		entityID string
		scope    Scope
	}
	var toRefresh []expired

	m.mu.Lock()
	for entityID, record := range m.records {
		if !record.ExpiredBy(now, m.opts.TTL) {
			continue
		}
		delete(m.records, entityID)

		scope := ScopeProposal
		if record.Kind == models.OptimisticCompleted {
			scope = ScopeCompletion
			if server, ok := m.serverCompletions[entityID]; ok {
				m.completions[entityID] = server
			} else {
				delete(m.completions, entityID)
			}
		} else {
			if server, ok := m.serverProposals[entityID]; ok {
				m.proposals[entityID] = server
			} else {
				delete(m.proposals, entityID)
			}
		}
		m.appendAuditLocked(entityID, "ttl_expired", string(record.Kind), now)
		toRefresh = append(toRefresh, expired{entityID: entityID, scope: scope})
	}
	m.mu.Unlock()

	for _, entry := range toRefresh {
		monitoring.RecordOptimisticExpired()
		if err := m.Refresh(ctx, entry.scope, entry.entityID); err != nil {
			m.log.Warn("forced refresh after ttl expiry failed",
				zap.String("entity_id", entry.entityID), zap.Error(err))
		}
	}
	if len(toRefresh) > 0 {
		m.requestPersist()
	}
	return len(toRefresh)
}

// Proposal returns the local view of one proposal.
func (m *Manager) Proposal(id string) (models.ProposalState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.proposals[id]
	return state, ok
}

// Completion returns the local view of one swap completion.
func (m *Manager) Completion(swapID string) (models.CompletionStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.completions[swapID]
	return state, ok
}

// PendingCount returns how many optimistic records await confirmation.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Records returns the outstanding optimistic records.
func (m *Manager) Records() []models.OptimisticUpdateRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.OptimisticUpdateRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record)
	}
	return out
}

// AuditTrail returns the bounded reconciliation audit, oldest first.
func (m *Manager) AuditTrail() []models.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditRecord, len(m.audit))
	copy(out, m.audit)
	return out
}

// Flush forces an immediate snapshot write.
func (m *Manager) Flush(ctx context.Context) error {
	if m == nil || m.saver == nil {
		return nil
	}
	return m.saver.Flush(ctx)
}

// Close flushes outstanding state and stops the debounced writer.
func (m *Manager) Close() error {
	if m == nil || m.saver == nil {
		return nil
	}
	return m.saver.Close()
}

func (m *Manager) requestPersist() {
	if m.saver != nil {
		m.saver.Request()
	}
}

// appendAuditLocked records a decision, keeping only the newest MaxAudit
// entries. Callers hold m.mu.
func (m *Manager) appendAuditLocked(entityID, action, detail string, now time.Time) {
	m.audit = append(m.audit, models.AuditRecord{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
		RecordedAt: now,
	})
	if excess := len(m.audit) - m.opts.MaxAudit; excess > 0 {
		m.audit = append([]models.AuditRecord(nil), m.audit[excess:]...)
	}
}
