package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/swapstay/swapsync/internal/monitoring"
)

// ConnectionObserver exposes the minimal state required to evaluate channel health.
type ConnectionObserver interface {
	Status() string
	RecentErrorCount() int
}

// Connection evaluates realtime channel health. A live channel is up, fallback
// polling is degraded, and a terminal error state is down.
func Connection(observer ConnectionObserver) monitoring.Check {
	return monitoring.NewCheck("connection", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if observer == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "connection manager unavailable",
				Duration: time.Since(start),
			}
		}

		status := monitoring.StatusUp
		var details []string

		switch observer.Status() {
		case "connected":
		case "error":
			status = monitoring.StatusDown
			details = append(details, "channel in terminal error state")
		case "fallback":
			status = monitoring.StatusDegraded
			details = append(details, "operating on fallback polling")
		default:
			status = monitoring.StatusDegraded
			details = append(details, "channel not established: "+observer.Status())
		}

		if count := observer.RecentErrorCount(); count > 0 {
			details = append(details, fmt.Sprintf("%d recent errors", count))
		}

		return monitoring.ProbeResult{
			Status:   status,
			Details:  strings.Join(details, "; "),
			Duration: time.Since(start),
		}
	})
}
