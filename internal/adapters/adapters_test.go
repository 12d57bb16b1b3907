package adapters

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Notify(title, body string, meta map[string]any) {
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

type panickingAudio struct{}

func (panickingAudio) Play(models.NotificationType) {
	panic("sound device unavailable")
}

func TestPresentReachesNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	presenter := NewPresenter(notifier, nil)

	presenter.Present(models.Notification{Title: "Swap Accepted", Type: models.NotificationSwapAccepted})

	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, time.Second, 2*time.Millisecond)
}

func TestAdapterPanicIsIsolated(t *testing.T) {
	notifier := &recordingNotifier{}
	presenter := NewPresenter(notifier, panickingAudio{})

	presenter.Present(models.Notification{Title: "Payment Failed", Type: models.NotificationPaymentFailed})

	// the audio panic never reaches the caller or starves the notifier
	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, time.Second, 2*time.Millisecond)
}

func TestNilAdaptersDefaultToNoops(t *testing.T) {
	presenter := NewPresenter(nil, nil)
	require.NotPanics(t, func() {
		presenter.Present(models.Notification{Title: "Account Update"})
	})
}
