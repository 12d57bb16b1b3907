package optimistic

import (
	"context"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/internal/persist"
	"github.com/swapstay/swapsync/pkg/validator"
)

// Load restores persisted snapshots into memory. Each record is structurally
// validated; malformed entries are dropped while the rest of the snapshot is
// kept. Missing or untrustworthy snapshots leave the in-memory state empty.
func (m *Manager) Load(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if m.opts.Store == nil {
		return nil
	}

	var proposals []models.ProposalState
	version, found, err := persist.Load(ctx, m.opts.Store, persist.KeyProposals, m.opts.ProposalMaxAge, &proposals)
	if err != nil {
		m.log.Warn("proposal snapshot unavailable", zap.Error(err))
	} else if found {
		kept := repairProposals(proposals)
		m.mu.Lock()
		if version > m.version {
			m.version = version
		}
		for _, proposal := range kept {
			m.proposals[proposal.ID] = proposal
			if !proposal.Optimistic {
				m.serverProposals[proposal.ID] = proposal
			}
		}
		m.mu.Unlock()
	}

	var completions []models.CompletionStatus
	version, found, err = persist.Load(ctx, m.opts.Store, persist.KeyCompletions, m.opts.CompletionMaxAge, &completions)
	if err != nil {
		m.log.Warn("completion snapshot unavailable", zap.Error(err))
	} else if found {
		kept := repairCompletions(completions)
		m.mu.Lock()
		if version > m.version {
			m.version = version
		}
		for _, completion := range kept {
			m.completions[completion.SwapID] = completion
			if !completion.Optimistic {
				m.serverCompletions[completion.SwapID] = completion
			}
		}
		m.mu.Unlock()
	}

	var audit []models.AuditRecord
	_, found, err = persist.Load(ctx, m.opts.Store, persist.KeyAudit, m.opts.CompletionMaxAge, &audit)
	if err != nil {
		m.log.Warn("audit snapshot unavailable", zap.Error(err))
	} else if found {
		kept := repairAudit(audit)
		m.mu.Lock()
		m.audit = kept
		if excess := len(m.audit) - m.opts.MaxAudit; excess > 0 {
			m.audit = append([]models.AuditRecord(nil), m.audit[excess:]...)
		}
		m.mu.Unlock()
	}

	return nil
}

// flush writes all three snapshot domains, bounding each collection to its
// configured maximum and retaining the most-recently-updated entries.
func (m *Manager) flush(ctx context.Context) error {
	if m.opts.Store == nil {
		return nil
	}

	m.mu.Lock()
	m.version++
	version := m.version

	proposals := make([]models.ProposalState, 0, len(m.proposals))
	for _, proposal := range m.proposals {
		proposals = append(proposals, proposal)
	}
	completions := make([]models.CompletionStatus, 0, len(m.completions))
	for _, completion := range m.completions {
		completions = append(completions, completion)
	}
	audit := make([]models.AuditRecord, len(m.audit))
	copy(audit, m.audit)
	m.mu.Unlock()

	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].UpdatedAt.After(proposals[j].UpdatedAt)
	})
	if len(proposals) > m.opts.MaxProposals {
		proposals = proposals[:m.opts.MaxProposals]
	}

	sort.Slice(completions, func(i, j int) bool {
		return completions[i].UpdatedAt.After(completions[j].UpdatedAt)
	})
	if len(completions) > m.opts.MaxCompletions {
		completions = completions[:m.opts.MaxCompletions]
	}

	var err error
	err = multierr.Append(err, persist.Save(ctx, m.opts.Store, persist.KeyProposals, version, proposals))
	err = multierr.Append(err, persist.Save(ctx, m.opts.Store, persist.KeyCompletions, version, completions))
	err = multierr.Append(err, persist.Save(ctx, m.opts.Store, persist.KeyAudit, version, audit))
	return err
}

func repairProposals(in []models.ProposalState) []models.ProposalState {
	kept := in[:0]
	for _, proposal := range in {
		if err := validator.ValidateStruct(proposal); err != nil {
			monitoring.RecordSnapshotRepair("proposals")
			continue
		}
		kept = append(kept, proposal)
	}
	return kept
}

func repairCompletions(in []models.CompletionStatus) []models.CompletionStatus {
	kept := in[:0]
	for _, completion := range in {
		if err := validator.ValidateStruct(completion); err != nil {
			monitoring.RecordSnapshotRepair("completions")
			continue
		}
		kept = append(kept, completion)
	}
	return kept
}

func repairAudit(in []models.AuditRecord) []models.AuditRecord {
	kept := in[:0]
	for _, record := range in {
		if err := validator.ValidateStruct(record); err != nil {
			monitoring.RecordSnapshotRepair("audit")
			continue
		}
		kept = append(kept, record)
	}
	return kept
}
