// Package adapters defines the presentation surfaces the sync core pushes
// notifications through. Implementations are supplied by the embedding
// application; everything here degrades to a no-op when absent.
package adapters

import (
	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/pkg/logger"
)

// Notifier surfaces a notification outside the in-app list, typically as an
// operating system notification.
type Notifier interface {
	Notify(title, body string, meta map[string]any)
}

// AudioCue plays a short sound for a notification type.
type AudioCue interface {
	Play(kind models.NotificationType)
}

// NopNotifier ignores every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, map[string]any) {}

// NopAudioCue ignores every cue.
type NopAudioCue struct{}

func (NopAudioCue) Play(models.NotificationType) {}

// Presenter fans a notification out to the configured adapters. Adapter
// failures never propagate into the dispatch path: each call runs on its own
// goroutine with panic recovery.
type Presenter struct {
	notifier Notifier
	audio    AudioCue
	log      *zap.Logger
}

// NewPresenter wires the adapters, substituting no-ops for nil.
func NewPresenter(notifier Notifier, audio AudioCue) *Presenter {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if audio == nil {
		audio = NopAudioCue{}
	}
	return &Presenter{
		notifier: notifier,
		audio:    audio,
		log:      logger.WithModule("adapters"),
	}
}

// Present pushes the notification to both adapters without blocking the
// caller.
func (p *Presenter) Present(notification models.Notification) {
	if p == nil {
		return
	}

	go p.guard("notifier", func() {
		p.notifier.Notify(notification.Title, notification.Message, notification.Data)
	})
	go p.guard("audio", func() {
		p.audio.Play(notification.Type)
	})
}

func (p *Presenter) guard(adapter string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("presentation adapter panicked",
				zap.String("adapter", adapter),
				zap.Any("panic", r))
		}
	}()
	fn()
}
