package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	transitions       atomic.Uint64
	reconnects        atomic.Uint64
	heartbeatsOK      atomic.Uint64
	heartbeatsMissed  atomic.Uint64
	fallbackPollsOK   atomic.Uint64
	fallbackPollsFail atomic.Uint64
	connected         atomic.Bool
	lastTransition    atomic.Value // *TransitionRecord
	lastProbeLatency  atomic.Int64 // nanoseconds

	eventsDispatched atomic.Uint64
	refreshRequests  atomic.Uint64
	eventTypes       sync.Map // string -> *atomic.Uint64

	notificationsStored atomic.Uint64
	notificationsDupes  atomic.Uint64
	unread              atomic.Int64
	toastsShown         atomic.Uint64
	toastsEvicted       atomic.Uint64
	activeToasts        atomic.Int64

	optimisticApplied    atomic.Uint64
	optimisticConfirmed  atomic.Uint64
	optimisticOverturned atomic.Uint64
	optimisticExpired    atomic.Uint64

	persistWrites   atomic.Uint64
	persistFailures atomic.Uint64
	snapshotRepairs atomic.Uint64
	lastPersistAt   atomic.Int64

	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	store := &statStore{}
	store.lastTransition.Store((*TransitionRecord)(nil))
	return store
}

func (s *statStore) summary() Summary {
	lastTransition, _ := s.lastTransition.Load().(*TransitionRecord)

	return Summary{
		GeneratedAt: time.Now(),
		Connection: ConnectionSummary{
			Connected:         s.connected.Load(),
			Transitions:       s.transitions.Load(),
			Reconnects:        s.reconnects.Load(),
			HeartbeatsOK:      s.heartbeatsOK.Load(),
			HeartbeatsMissed:  s.heartbeatsMissed.Load(),
			FallbackPollsOK:   s.fallbackPollsOK.Load(),
			FallbackPollsFail: s.fallbackPollsFail.Load(),
			LastTransition:    lastTransition,
			LastProbeLatency:  time.Duration(s.lastProbeLatency.Load()),
		},
		Events: EventSummary{
			Dispatched:      s.eventsDispatched.Load(),
			RefreshRequests: s.refreshRequests.Load(),
			ByType:          s.cloneEventTypes(),
		},
		Notifications: NotificationSummary{
			Stored:     s.notificationsStored.Load(),
			Duplicates: s.notificationsDupes.Load(),
			Unread:     s.unread.Load(),
		},
		Toasts: ToastSummary{
			Shown:   s.toastsShown.Load(),
			Evicted: s.toastsEvicted.Load(),
			Active:  s.activeToasts.Load(),
		},
		Optimistic: OptimisticSummary{
			Applied:    s.optimisticApplied.Load(),
			Confirmed:  s.optimisticConfirmed.Load(),
			Overturned: s.optimisticOverturned.Load(),
			Expired:    s.optimisticExpired.Load(),
		},
		Persistence: PersistenceSummary{
			Writes:      s.persistWrites.Load(),
			Failures:    s.persistFailures.Load(),
			Repairs:     s.snapshotRepairs.Load(),
			LastWriteAt: time.Unix(0, s.lastPersistAt.Load()),
		},
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) cloneEventTypes() map[string]uint64 {
	out := map[string]uint64{}
	s.eventTypes.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return out
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	return summaries
}

func (s *statStore) recordTransition(from, to string) {
	s.transitions.Add(1)
	s.connected.Store(to == "connected")
	s.lastTransition.Store(&TransitionRecord{
		From:     from,
		To:       to,
		Occurred: time.Now(),
	})
}

func (s *statStore) recordHeartbeat(result string) {
	if result == "pong" {
		s.heartbeatsOK.Add(1)
		return
	}
	s.heartbeatsMissed.Add(1)
}

func (s *statStore) recordFallbackPoll(result string) {
	if result == "success" {
		s.fallbackPollsOK.Add(1)
		return
	}
	s.fallbackPollsFail.Add(1)
}

func (s *statStore) recordEvent(eventType string) {
	s.eventsDispatched.Add(1)
	counter := s.eventTypeEntry(eventType)
	counter.Add(1)
}

func (s *statStore) eventTypeEntry(eventType string) *atomic.Uint64 {
	value, ok := s.eventTypes.Load(eventType)
	if ok {
		return value.(*atomic.Uint64)
	}
	counter := &atomic.Uint64{}
	actual, _ := s.eventTypes.LoadOrStore(eventType, counter)
	return actual.(*atomic.Uint64)
}

func (s *statStore) setUnread(count int64) {
	if count < 0 {
		count = 0
	}
	s.unread.Store(count)
}

func (s *statStore) adjustActiveToasts(delta int64) {
	newValue := s.activeToasts.Add(delta)
	if newValue < 0 {
		s.activeToasts.Store(0)
	}
}

func (s *statStore) recordReconciliation(outcome string) {
	if outcome == "confirmed" {
		s.optimisticConfirmed.Add(1)
		return
	}
	s.optimisticOverturned.Add(1)
}

func (s *statStore) recordPersistWrite(result string) {
	if result == "success" {
		s.persistWrites.Add(1)
		s.lastPersistAt.Store(time.Now().UnixNano())
		return
	}
	s.persistFailures.Add(1)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)
	lastRun := time.Unix(0, m.lastRun.Load())
	lastSuccess := time.Unix(0, m.lastSuccessfulRun.Load())

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           lastRun,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       lastSuccess,
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}
