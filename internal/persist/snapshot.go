package persist

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/monitoring"
	apperrors "github.com/swapstay/swapsync/pkg/errors"
	"github.com/swapstay/swapsync/pkg/logger"
)

// SchemaVersion is the snapshot envelope schema the running code expects.
// Snapshots written by a different schema are discarded on load, never
// partially trusted.
const SchemaVersion = 1

// Snapshot keys, one per persisted domain.
const (
	KeyProposals   = "snapshot:proposals"
	KeyCompletions = "snapshot:completions"
	KeyAudit       = "snapshot:audit"
)

// Envelope wraps a persisted payload with the metadata needed to decide
// whether it can still be trusted.
type Envelope struct {
	SchemaVersion  int             `json:"schema_version"`
	Version        int             `json:"version"`
	LastUpdateTime time.Time       `json:"last_update_time"`
	Payload        json.RawMessage `json:"payload"`
}

// Save writes payload under key wrapped in a versioned envelope.
func Save(ctx context.Context, store KV, key string, version int, payload any) error {
	if store == nil {
		return apperrors.ErrStorageUnavailable
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		monitoring.RecordPersistWrite("failure")
		return apperrors.ErrSnapshotInvalid.WithInternal(err)
	}
	envelope := Envelope{
		SchemaVersion:  SchemaVersion,
		Version:        version,
		LastUpdateTime: time.Now(),
		Payload:        raw,
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		monitoring.RecordPersistWrite("failure")
		return apperrors.ErrSnapshotInvalid.WithInternal(err)
	}

	if err := store.Set(ctx, key, encoded, 0); err != nil {
		monitoring.RecordPersistWrite("failure")
		return err
	}
	monitoring.RecordPersistWrite("success")
	return nil
}

// Load reads the envelope under key and decodes its payload into out. A
// snapshot with a mismatched schema version, one older than maxAge, or one
// that fails to decode is cleared from storage and reported as absent. Returns
// the envelope version and whether a payload was loaded.
func Load(ctx context.Context, store KV, key string, maxAge time.Duration, out any) (int, bool, error) {
	if store == nil {
		return 0, false, apperrors.ErrStorageUnavailable
	}
	log := logger.WithModule("persist")

	raw, found, err := store.Get(ctx, key)
	if err != nil {
		monitoring.RecordSnapshotLoad("error")
		return 0, false, err
	}
	if !found {
		monitoring.RecordSnapshotLoad("absent")
		return 0, false, nil
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Warn("clearing undecodable snapshot", zap.String("key", key), zap.Error(err))
		_ = store.Delete(ctx, key)
		monitoring.RecordSnapshotLoad("discarded")
		return 0, false, nil
	}

	if envelope.SchemaVersion != SchemaVersion {
		log.Warn("clearing snapshot with mismatched schema",
			zap.String("key", key),
			zap.Int("found", envelope.SchemaVersion),
			zap.Int("expected", SchemaVersion))
		_ = store.Delete(ctx, key)
		monitoring.RecordSnapshotLoad("discarded")
		return 0, false, nil
	}

	if maxAge > 0 && time.Since(envelope.LastUpdateTime) > maxAge {
		log.Info("clearing stale snapshot",
			zap.String("key", key),
			zap.Time("last_update", envelope.LastUpdateTime))
		_ = store.Delete(ctx, key)
		monitoring.RecordSnapshotLoad("stale")
		return 0, false, nil
	}

	if err := json.Unmarshal(envelope.Payload, out); err != nil {
		log.Warn("clearing snapshot with undecodable payload", zap.String("key", key), zap.Error(err))
		_ = store.Delete(ctx, key)
		monitoring.RecordSnapshotLoad("discarded")
		return 0, false, nil
	}

	monitoring.RecordSnapshotLoad("success")
	return envelope.Version, true, nil
}

// Clear removes the snapshot under key.
func Clear(ctx context.Context, store KV, key string) error {
	if store == nil {
		return apperrors.ErrStorageUnavailable
	}
	return store.Delete(ctx, key)
}
