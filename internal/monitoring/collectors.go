package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	connectionTransitions *prometheus.CounterVec
	reconnectAttempts     prometheus.Counter
	heartbeats            *prometheus.CounterVec
	fallbackPolls         *prometheus.CounterVec
	probeLatency          prometheus.Histogram
	connectionUp          prometheus.Gauge

	eventsDispatched *prometheus.CounterVec
	refreshRequests  *prometheus.CounterVec

	notificationsStored *prometheus.CounterVec
	unreadNotifications prometheus.Gauge
	toastsShown         *prometheus.CounterVec
	toastsEvicted       prometheus.Counter
	activeToasts        prometheus.Gauge

	optimisticApplied    *prometheus.CounterVec
	optimisticReconciled *prometheus.CounterVec
	optimisticExpired    prometheus.Counter

	persistWrites       *prometheus.CounterVec
	snapshotLoads       *prometheus.CounterVec
	snapshotRepairs     *prometheus.CounterVec
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
}

func newCollectors(namespace string) *collectors {
	buckets := prometheus.DefBuckets
	probeBuckets := []float64{
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
	}

	return &collectors{
		connectionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_transitions_total",
				Help:      "Connection state machine transitions",
			},
			[]string{"from", "to"},
		),
		reconnectAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconnect_attempts_total",
				Help:      "Reconnection attempts against the realtime channel",
			},
		),
		heartbeats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeats_total",
				Help:      "Heartbeat probes grouped by outcome",
			},
			[]string{"result"},
		),
		fallbackPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_polls_total",
				Help:      "Fallback polling cycles grouped by outcome",
			},
			[]string{"result"},
		),
		probeLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_latency_seconds",
				Help:      "Round-trip latency of connection probes",
				Buckets:   probeBuckets,
			},
		),
		connectionUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_up",
				Help:      "Whether the realtime channel is currently connected",
			},
		),
		eventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dispatched_total",
				Help:      "Stream events dispatched grouped by classified type",
			},
			[]string{"type"},
		),
		refreshRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_requests_total",
				Help:      "Data refresh requests issued grouped by scope",
			},
			[]string{"scope"},
		),
		notificationsStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_stored_total",
				Help:      "Notifications accepted into the store grouped by outcome",
			},
			[]string{"result"},
		),
		unreadNotifications: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unread_notifications",
				Help:      "Current unread notification count",
			},
		),
		toastsShown: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "toasts_shown_total",
				Help:      "Toasts admitted for display grouped by notification type",
			},
			[]string{"type"},
		),
		toastsEvicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "toasts_evicted_total",
				Help:      "Toasts evicted to honor the concurrency bound",
			},
		),
		activeToasts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_toasts",
				Help:      "Toasts currently displayed",
			},
		),
		optimisticApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimistic_applied_total",
				Help:      "Optimistic updates applied grouped by kind",
			},
			[]string{"kind"},
		),
		optimisticReconciled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimistic_reconciled_total",
				Help:      "Optimistic reconciliations grouped by outcome",
			},
			[]string{"outcome"},
		),
		optimisticExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimistic_expired_total",
				Help:      "Optimistic updates discarded after their confirmation window",
			},
		),
		persistWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_writes_total",
				Help:      "Snapshot persistence writes grouped by outcome",
			},
			[]string{"result"},
		),
		snapshotLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_loads_total",
				Help:      "Snapshot restore attempts grouped by outcome",
			},
			[]string{"result"},
		),
		snapshotRepairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_repairs_total",
				Help:      "Snapshot records dropped or repaired during validation",
			},
			[]string{"section"},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions",
			},
			[]string{"job", "result"},
		),
		maintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Maintenance job duration",
				Buckets:   buckets,
			},
			[]string{"job"},
		),
		maintenanceLastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Timestamp of the last successful maintenance run (seconds since epoch)",
			},
			[]string{"job"},
		),
	}
}

func (c *collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.connectionTransitions,
		c.reconnectAttempts,
		c.heartbeats,
		c.fallbackPolls,
		c.probeLatency,
		c.connectionUp,
		c.eventsDispatched,
		c.refreshRequests,
		c.notificationsStored,
		c.unreadNotifications,
		c.toastsShown,
		c.toastsEvicted,
		c.activeToasts,
		c.optimisticApplied,
		c.optimisticReconciled,
		c.optimisticExpired,
		c.persistWrites,
		c.snapshotLoads,
		c.snapshotRepairs,
		c.maintenanceRuns,
		c.maintenanceDuration,
		c.maintenanceLastRun,
	}
}

// observeDuration records a duration in seconds on the supplied histogram observer.
func observeDuration(observer prometheus.Observer, d time.Duration) {
	if observer == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observer.Observe(d.Seconds())
}
