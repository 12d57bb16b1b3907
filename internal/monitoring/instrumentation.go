package monitoring

import (
	"strings"
	"time"
)

// RecordConnectionTransition records a connection state machine transition.
func RecordConnectionTransition(from, to string) {
	module := ensureModule()
	if module == nil {
		return
	}
	fromLabel := normalizeLabel(from)
	toLabel := normalizeLabel(to)
	module.metrics.connectionTransitions.WithLabelValues(fromLabel, toLabel).Inc()
	if toLabel == "connected" {
		module.metrics.connectionUp.Set(1)
	} else {
		module.metrics.connectionUp.Set(0)
	}
	module.stats.recordTransition(fromLabel, toLabel)
}

// RecordReconnectAttempt increments the reconnection attempt counter.
func RecordReconnectAttempt() {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.reconnectAttempts.Inc()
	module.stats.reconnects.Add(1)
}

// RecordHeartbeat records a heartbeat outcome ("pong" or "timeout").
func RecordHeartbeat(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(result)
	module.metrics.heartbeats.WithLabelValues(label).Inc()
	module.stats.recordHeartbeat(label)
}

// RecordFallbackPoll records one fallback polling cycle by outcome.
func RecordFallbackPoll(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(result)
	module.metrics.fallbackPolls.WithLabelValues(label).Inc()
	module.stats.recordFallbackPoll(label)
}

// ObserveProbeLatency captures a round-trip probe measurement.
func ObserveProbeLatency(d time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observeDuration(module.metrics.probeLatency, d)
	module.stats.lastProbeLatency.Store(int64(d))
}

// RecordEventDispatched increments dispatch counters per classified type.
func RecordEventDispatched(eventType string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(eventType)
	module.metrics.eventsDispatched.WithLabelValues(label).Inc()
	module.stats.recordEvent(label)
}

// RecordRefreshRequest tracks a data refresh request by scope.
func RecordRefreshRequest(scope string) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.refreshRequests.WithLabelValues(normalizeLabel(scope)).Inc()
	module.stats.refreshRequests.Add(1)
}

// RecordNotificationStored records a store admission outcome ("stored" or "duplicate").
func RecordNotificationStored(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(result)
	module.metrics.notificationsStored.WithLabelValues(label).Inc()
	if label == "duplicate" {
		module.stats.notificationsDupes.Add(1)
		return
	}
	module.stats.notificationsStored.Add(1)
}

// SetUnreadCount publishes the current unread notification count.
func SetUnreadCount(count int) {
	module := ensureModule()
	if module == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	module.metrics.unreadNotifications.Set(float64(count))
	module.stats.setUnread(int64(count))
}

// RecordToastShown tracks a toast admission per notification type.
func RecordToastShown(notificationType string) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.toastsShown.WithLabelValues(normalizeLabel(notificationType)).Inc()
	module.stats.toastsShown.Add(1)
}

// RecordToastEvicted tracks an eviction made to honor the concurrency bound.
func RecordToastEvicted() {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.toastsEvicted.Inc()
	module.stats.toastsEvicted.Add(1)
}

// AdjustActiveToasts modifies the live toast gauge by delta.
func AdjustActiveToasts(delta int64) {
	module := ensureModule()
	if module == nil {
		return
	}
	if delta == 0 {
		return
	}
	module.metrics.activeToasts.Add(float64(delta))
	module.stats.adjustActiveToasts(delta)
	if module.stats.activeToasts.Load() < 0 {
		module.stats.activeToasts.Store(0)
		module.metrics.activeToasts.Set(0)
	}
}

// RecordOptimisticApplied increments the applied counter per update kind.
func RecordOptimisticApplied(kind string) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.optimisticApplied.WithLabelValues(normalizeLabel(kind)).Inc()
	module.stats.optimisticApplied.Add(1)
}

// RecordOptimisticReconciled records a reconciliation outcome ("confirmed" or "overturned").
func RecordOptimisticReconciled(outcome string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(outcome)
	module.metrics.optimisticReconciled.WithLabelValues(label).Inc()
	module.stats.recordReconciliation(label)
}

// RecordOptimisticExpired counts updates discarded after the confirmation window.
func RecordOptimisticExpired() {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.optimisticExpired.Inc()
	module.stats.optimisticExpired.Add(1)
}

// RecordPersistWrite records a snapshot write outcome.
func RecordPersistWrite(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	label := normalizeLabel(result)
	module.metrics.persistWrites.WithLabelValues(label).Inc()
	module.stats.recordPersistWrite(label)
}

// RecordSnapshotLoad records a restore attempt outcome.
func RecordSnapshotLoad(result string) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.snapshotLoads.WithLabelValues(normalizeLabel(result)).Inc()
}

// RecordSnapshotRepair counts records dropped or repaired during validation.
func RecordSnapshotRepair(section string) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.snapshotRepairs.WithLabelValues(normalizeLabel(section)).Inc()
	module.stats.snapshotRepairs.Add(1)
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
