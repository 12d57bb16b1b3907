package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/pkg/logger"
)

// dismissDurations maps notification types to their auto-dismiss window.
// payment_processing deliberately never auto-dismisses: hiding an in-flight
// payment notice would hide required follow-up.
var dismissDurations = map[models.NotificationType]time.Duration{
	models.NotificationSwapProposal:             8000 * time.Millisecond,
	models.NotificationSwapAccepted:             6000 * time.Millisecond,
	models.NotificationSwapRejected:             5000 * time.Millisecond,
	models.NotificationSwapCancelled:            4000 * time.Millisecond,
	models.NotificationSwapExpired:              7000 * time.Millisecond,
	models.NotificationBookingVerified:          5000 * time.Millisecond,
	models.NotificationBookingExpired:           8000 * time.Millisecond,
	models.NotificationProposalAccepted:         6000 * time.Millisecond,
	models.NotificationProposalRejected:         5000 * time.Millisecond,
	models.NotificationProposalPaymentCompleted: 7000 * time.Millisecond,
	models.NotificationProposalPaymentFailed:    10000 * time.Millisecond,
	models.NotificationPaymentProcessing:        0,
	models.NotificationPaymentCompleted:         6000 * time.Millisecond,
	models.NotificationPaymentFailed:            8000 * time.Millisecond,
}

const defaultDismissDuration = 5000 * time.Millisecond

// DurationFor returns the auto-dismiss duration for a notification type.
func DurationFor(notificationType models.NotificationType) time.Duration {
	if duration, ok := dismissDurations[notificationType]; ok {
		return duration
	}
	return defaultDismissDuration
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// Scheduler creates dismiss timers. Tests substitute a manual implementation.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ToastOptions configure the toast lifecycle.
type ToastOptions struct {
	// MaxConcurrent bounds visible toasts; admitting past the bound evicts the
	// oldest. Defaults to 3.
	MaxConcurrent int
	// Window is the maximum notification age for toast admission. Defaults to 30s.
	Window    time.Duration
	Scheduler Scheduler
	Now       func() time.Time
	// OnDismiss runs after a toast leaves the screen, outside the manager lock.
	OnDismiss func(models.ToastEntry)
}

type activeToast struct {
	entry models.ToastEntry
	timer Timer
}

// ToastManager owns the transient toast projection of the notification store.
// It never mutates notification identity or read state.
type ToastManager struct {
	opts ToastOptions
	log  *zap.Logger

	mu     sync.Mutex
	active []*activeToast
	closed bool
}

// NewToastManager constructs a toast manager.
func NewToastManager(opts ToastOptions) *ToastManager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.Window <= 0 {
		opts.Window = 30 * time.Second
	}
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ToastManager{
		opts: opts,
		log:  logger.WithModule("toast"),
	}
}

// Admit offers a notification for display. Returns true when a toast was
// created. Stale notifications, duplicates, and ineligible types are refused.
func (m *ToastManager) Admit(notification models.Notification) bool {
	if m == nil {
		return false
	}

	if !toastEligible(notification.Type) {
		return false
	}
	now := m.opts.Now()
	if now.Sub(notification.CreatedAt) >= m.opts.Window {
		return false
	}

	// a terminal payment outcome replaces the lingering processing toast
	if isTerminalPayment(notification.Type) {
		m.dismissProcessing()
	}

	var (
		evicted   *activeToast
		dismissed []models.ToastEntry
	)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	for _, toast := range m.active {
		if toast.entry.NotificationID == notification.ID {
			m.mu.Unlock()
			return false
		}
	}

	if len(m.active) >= m.opts.MaxConcurrent {
		evicted = m.active[0]
		m.active = m.active[1:]
		if evicted.timer != nil {
			evicted.timer.Stop()
		}
		dismissed = append(dismissed, evicted.entry)
	}

	entry := models.ToastEntry{
		NotificationID: notification.ID,
		Type:           notification.Type,
		Title:          notification.Title,
		Message:        notification.Message,
		Severity:       notification.Severity,
		Data:           notification.Data,
		ShownAt:        now,
		Duration:       DurationFor(notification.Type),
	}
	toast := &activeToast{entry: entry}
	if entry.Duration > 0 {
		id := notification.ID
		toast.timer = m.opts.Scheduler.AfterFunc(entry.Duration, func() {
			m.Dismiss(id)
		})
	}
	m.active = append(m.active, toast)
	m.mu.Unlock()

	monitoring.RecordToastShown(string(notification.Type))
	monitoring.AdjustActiveToasts(1)
	if evicted != nil {
		monitoring.RecordToastEvicted()
		monitoring.AdjustActiveToasts(-1)
	}
	m.fireDismissed(dismissed)
	return true
}

// Dismiss removes a toast by notification id. Idempotent.
func (m *ToastManager) Dismiss(notificationID string) bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	var removed *activeToast
	for i, toast := range m.active {
		if toast.entry.NotificationID == notificationID {
			removed = toast
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if removed == nil {
		return false
	}
	if removed.timer != nil {
		removed.timer.Stop()
	}
	monitoring.AdjustActiveToasts(-1)
	m.fireDismissed([]models.ToastEntry{removed.entry})
	return true
}

// Active returns the currently visible toasts, oldest first.
func (m *ToastManager) Active() []models.ToastEntry {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ToastEntry, 0, len(m.active))
	for _, toast := range m.active {
		out = append(out, toast.entry)
	}
	return out
}

// Close cancels every dismiss timer and drops all active toasts. The manager
// refuses admissions afterwards.
func (m *ToastManager) Close() {
	if m == nil {
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	active := m.active
	m.active = nil
	m.mu.Unlock()

	for _, toast := range active {
		if toast.timer != nil {
			toast.timer.Stop()
		}
		monitoring.AdjustActiveToasts(-1)
	}
	if len(active) > 0 {
		m.log.Debug("toast lifecycle closed", zap.Int("cancelled", len(active)))
	}
}

func (m *ToastManager) dismissProcessing() {
	m.mu.Lock()
	var ids []string
	for _, toast := range m.active {
		if toast.entry.Type == models.NotificationPaymentProcessing {
			ids = append(ids, toast.entry.NotificationID)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Dismiss(id)
	}
}

func (m *ToastManager) fireDismissed(entries []models.ToastEntry) {
	if m.opts.OnDismiss == nil {
		return
	}
	for _, entry := range entries {
		m.opts.OnDismiss(entry)
	}
}

func toastEligible(notificationType models.NotificationType) bool {
	_, ok := dismissDurations[notificationType]
	return ok
}

func isTerminalPayment(notificationType models.NotificationType) bool {
	switch notificationType {
	case models.NotificationPaymentCompleted,
		models.NotificationPaymentFailed,
		models.NotificationProposalPaymentCompleted,
		models.NotificationProposalPaymentFailed:
		return true
	default:
		return false
	}
}
