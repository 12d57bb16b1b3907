package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/models"
)

type manualTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTimer) fire() {
	t.mu.Lock()
	stopped := t.stopped
	fn := t.fn
	t.mu.Unlock()
	if !stopped && fn != nil {
		fn()
	}
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{fn: fn}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *manualScheduler) last() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

func toastNotification(id string, notificationType models.NotificationType, createdAt time.Time) models.Notification {
	return models.Notification{
		ID:        id,
		Type:      notificationType,
		Title:     "title",
		Status:    models.NotificationDelivered,
		CreatedAt: createdAt,
	}
}

func newTestManager(scheduler Scheduler, now func() time.Time) *ToastManager {
	return NewToastManager(ToastOptions{
		MaxConcurrent: 3,
		Window:        30 * time.Second,
		Scheduler:     scheduler,
		Now:           now,
	})
}

func TestAdmitCreatesToastWithTypeDuration(t *testing.T) {
	now := time.Now()
	scheduler := &manualScheduler{}
	manager := newTestManager(scheduler, func() time.Time { return now })
	defer manager.Close()

	require.True(t, manager.Admit(toastNotification("n-1", models.NotificationSwapAccepted, now)))

	active := manager.Active()
	require.Len(t, active, 1)
	require.Equal(t, 6000*time.Millisecond, active[0].Duration)
}

func TestAdmitRefusesStaleAndDuplicate(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&manualScheduler{}, func() time.Time { return now })
	defer manager.Close()

	// older than the display window
	stale := toastNotification("n-old", models.NotificationSwapAccepted, now.Add(-31*time.Second))
	require.False(t, manager.Admit(stale))

	fresh := toastNotification("n-1", models.NotificationSwapAccepted, now)
	require.True(t, manager.Admit(fresh))
	require.False(t, manager.Admit(fresh))

	// ineligible type
	require.False(t, manager.Admit(toastNotification("n-2", models.NotificationUpdate, now)))

	require.Len(t, manager.Active(), 1)
}

func TestPaymentProcessingNeverAutoDismisses(t *testing.T) {
	now := time.Now()
	scheduler := &manualScheduler{}
	manager := newTestManager(scheduler, func() time.Time { return now })
	defer manager.Close()

	require.True(t, manager.Admit(toastNotification("n-pay", models.NotificationPaymentProcessing, now)))

	active := manager.Active()
	require.Len(t, active, 1)
	require.Equal(t, time.Duration(0), active[0].Duration)
	// no timer scheduled for a zero-duration toast
	require.Nil(t, scheduler.last())
}

func TestTerminalPaymentDismissesProcessingToast(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&manualScheduler{}, func() time.Time { return now })
	defer manager.Close()

	require.True(t, manager.Admit(toastNotification("n-pay", models.NotificationPaymentProcessing, now)))
	require.True(t, manager.Admit(toastNotification("n-done", models.NotificationPaymentCompleted, now)))

	active := manager.Active()
	require.Len(t, active, 1)
	require.Equal(t, "n-done", active[0].NotificationID)
}

func TestEvictionIsOldestFirst(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&manualScheduler{}, func() time.Time { return now })
	defer manager.Close()

	manager.Admit(toastNotification("n-1", models.NotificationSwapAccepted, now))
	manager.Admit(toastNotification("n-2", models.NotificationSwapAccepted, now))
	manager.Admit(toastNotification("n-3", models.NotificationSwapAccepted, now))
	manager.Admit(toastNotification("n-4", models.NotificationSwapAccepted, now))

	active := manager.Active()
	require.Len(t, active, 3)
	require.Equal(t, "n-2", active[0].NotificationID)
	require.Equal(t, "n-4", active[2].NotificationID)
}

func TestAutoDismissTimerRemovesToast(t *testing.T) {
	now := time.Now()
	scheduler := &manualScheduler{}
	manager := newTestManager(scheduler, func() time.Time { return now })
	defer manager.Close()

	manager.Admit(toastNotification("n-1", models.NotificationSwapAccepted, now))
	timer := scheduler.last()
	require.NotNil(t, timer)

	timer.fire()
	require.Empty(t, manager.Active())

	// firing again is harmless
	timer.fire()
	require.Empty(t, manager.Active())
}

func TestCloseCancelsTimersAndRefusesAdmission(t *testing.T) {
	now := time.Now()
	scheduler := &manualScheduler{}
	manager := newTestManager(scheduler, func() time.Time { return now })

	manager.Admit(toastNotification("n-1", models.NotificationSwapAccepted, now))
	manager.Close()

	require.Empty(t, manager.Active())
	require.True(t, scheduler.last().stopped)
	require.False(t, manager.Admit(toastNotification("n-2", models.NotificationSwapAccepted, now)))
}

func TestDismissIsIdempotent(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&manualScheduler{}, func() time.Time { return now })
	defer manager.Close()

	manager.Admit(toastNotification("n-1", models.NotificationSwapAccepted, now))
	require.True(t, manager.Dismiss("n-1"))
	require.False(t, manager.Dismiss("n-1"))
}
