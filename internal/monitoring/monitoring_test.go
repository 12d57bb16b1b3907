package monitoring_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/internal/monitoring/checks"
)

func setupModule(t *testing.T) *monitoring.Module {
	t.Helper()

	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	monitoring.SetModule(mod)
	return mod
}

func TestSummaryAggregatesMetrics(t *testing.T) {
	setupModule(t)

	monitoring.RecordConnectionTransition("idle", "connecting")
	monitoring.RecordConnectionTransition("connecting", "connected")
	monitoring.RecordReconnectAttempt()
	monitoring.RecordHeartbeat("pong")
	monitoring.RecordHeartbeat("timeout")
	monitoring.RecordFallbackPoll("success")
	monitoring.RecordEventDispatched("swap_accepted")
	monitoring.RecordEventDispatched("swap_accepted")
	monitoring.RecordRefreshRequest("proposal")
	monitoring.RecordNotificationStored("stored")
	monitoring.RecordNotificationStored("duplicate")
	monitoring.SetUnreadCount(4)
	monitoring.RecordToastShown("swap_proposal")
	monitoring.AdjustActiveToasts(1)
	monitoring.RecordOptimisticApplied("accepted")
	monitoring.RecordOptimisticReconciled("confirmed")
	monitoring.RecordPersistWrite("success")
	monitoring.RecordMaintenanceRun("snapshot_sweep", "success", "", time.Second)

	summary := monitoring.Snapshot()
	require.True(t, summary.Connection.Connected)
	require.Equal(t, uint64(2), summary.Connection.Transitions)
	require.Equal(t, uint64(1), summary.Connection.Reconnects)
	require.Equal(t, uint64(1), summary.Connection.HeartbeatsOK)
	require.Equal(t, uint64(1), summary.Connection.HeartbeatsMissed)
	require.Equal(t, uint64(2), summary.Events.Dispatched)
	require.Equal(t, uint64(2), summary.Events.ByType["swap_accepted"])
	require.Equal(t, uint64(1), summary.Notifications.Stored)
	require.Equal(t, uint64(1), summary.Notifications.Duplicates)
	require.Equal(t, int64(4), summary.Notifications.Unread)
	require.Equal(t, int64(1), summary.Toasts.Active)
	require.Equal(t, uint64(1), summary.Optimistic.Confirmed)
	require.Equal(t, uint64(1), summary.Persistence.Writes)
	require.NotEmpty(t, summary.Maintenance.Jobs)
	require.NotNil(t, summary.Connection.LastTransition)
	require.Equal(t, "connected", summary.Connection.LastTransition.To)
}

func TestActiveToastGaugeNeverNegative(t *testing.T) {
	setupModule(t)

	monitoring.AdjustActiveToasts(-5)
	summary := monitoring.Snapshot()
	require.Equal(t, int64(0), summary.Toasts.Active)
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("connection", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "dial refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
}

func TestHealthManagerRanksDegradedBelowDown(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "memory-only"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)

	manager.RegisterReadiness(monitoring.NewCheck("connection", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown}
	}))

	report = manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthManagerRecoversPanickingProbe(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("flaky", func(ctx context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
	require.Equal(t, "flaky", report.Checks[0].Component)
}

func TestHealthManagerEmptyAndUnnamedChecks(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.Check{})

	report := manager.EvaluateReadiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Empty(t, report.Checks)
}

func TestHealthManagerConcurrentRegistration(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			manager.RegisterReadiness(monitoring.NewCheck("probe", func(ctx context.Context) monitoring.ProbeResult {
				return monitoring.ProbeResult{Status: monitoring.StatusUp}
			}))
		}
	}()
	for i := 0; i < 50; i++ {
		manager.EvaluateReadiness(context.Background())
	}
	<-done

	report := manager.EvaluateReadiness(context.Background())
	require.True(t, report.Success)
	require.Len(t, report.Checks, 50)
}

func TestMaintenanceCheck(t *testing.T) {
	setupModule(t)

	monitoring.RecordMaintenanceRun("snapshot_sweep", "success", "", time.Second)
	monitoring.RecordMaintenanceRun("optimistic_sweep", "failure", "timeout", time.Second)

	check := checks.Maintenance(0)
	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.NotEmpty(t, result.Details)
}

type stubObserver struct {
	status string
	errors int
}

func (s stubObserver) Status() string        { return s.status }
func (s stubObserver) RecentErrorCount() int { return s.errors }

func TestConnectionCheck(t *testing.T) {
	t.Parallel()

	result := checks.Connection(stubObserver{status: "connected"}).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = checks.Connection(stubObserver{status: "fallback", errors: 2}).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Contains(t, result.Details, "fallback")

	result = checks.Connection(stubObserver{status: "error"}).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}
