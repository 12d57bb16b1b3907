package checks

import (
	"context"
	"time"

	"github.com/swapstay/swapsync/internal/monitoring"
)

// StoragePinger exposes a liveness probe for the durable snapshot store.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// Storage verifies the durable snapshot store responds. An unavailable store is
// degraded rather than down: the agent keeps operating from memory.
func Storage(pinger StoragePinger, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if pinger == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "snapshot store not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := pinger.Ping(probeCtx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}
