package monitoring

import "time"

// Summary surfaces aggregated monitoring data for the diagnostics API.
type Summary struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Connection    ConnectionSummary   `json:"connection"`
	Events        EventSummary        `json:"events"`
	Notifications NotificationSummary `json:"notifications"`
	Toasts        ToastSummary        `json:"toasts"`
	Optimistic    OptimisticSummary   `json:"optimistic"`
	Persistence   PersistenceSummary  `json:"persistence"`
	Maintenance   MaintenanceSummary  `json:"maintenance"`
}

// TransitionRecord captures the most recent connection state change.
type TransitionRecord struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Occurred time.Time `json:"occurred_at"`
}

type ConnectionSummary struct {
	Connected         bool              `json:"connected"`
	Transitions       uint64            `json:"transitions"`
	Reconnects        uint64            `json:"reconnects"`
	HeartbeatsOK      uint64            `json:"heartbeats_ok"`
	HeartbeatsMissed  uint64            `json:"heartbeats_missed"`
	FallbackPollsOK   uint64            `json:"fallback_polls_ok"`
	FallbackPollsFail uint64            `json:"fallback_polls_fail"`
	LastTransition    *TransitionRecord `json:"last_transition,omitempty"`
	LastProbeLatency  time.Duration     `json:"last_probe_latency"`
}

type EventSummary struct {
	Dispatched      uint64            `json:"dispatched"`
	RefreshRequests uint64            `json:"refresh_requests"`
	ByType          map[string]uint64 `json:"by_type"`
}

type NotificationSummary struct {
	Stored     uint64 `json:"stored"`
	Duplicates uint64 `json:"duplicates"`
	Unread     int64  `json:"unread"`
}

type ToastSummary struct {
	Shown   uint64 `json:"shown"`
	Evicted uint64 `json:"evicted"`
	Active  int64  `json:"active"`
}

type OptimisticSummary struct {
	Applied    uint64 `json:"applied"`
	Confirmed  uint64 `json:"confirmed"`
	Overturned uint64 `json:"overturned"`
	Expired    uint64 `json:"expired"`
}

type PersistenceSummary struct {
	Writes      uint64    `json:"writes"`
	Failures    uint64    `json:"failures"`
	Repairs     uint64    `json:"repairs"`
	LastWriteAt time.Time `json:"last_write_at"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := ensureModule(); module != nil && module.stats != nil {
		return module.stats.summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
