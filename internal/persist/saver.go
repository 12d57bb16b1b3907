package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swapstay/swapsync/pkg/logger"
)

// Saver coalesces snapshot writes. Request marks the state dirty; the flush
// function runs at most once per debounce window so bursts of mutations
// produce a single write.
type Saver struct {
	flush    func(ctx context.Context) error
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewSaver constructs a debounced saver around flush. A non-positive debounce
// defaults to 250ms.
func NewSaver(flush func(ctx context.Context) error, debounce time.Duration) *Saver {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Saver{
		flush:    flush,
		debounce: debounce,
		log:      logger.WithModule("persist"),
	}
}

// Request schedules a flush within the debounce window. Repeated requests
// inside the window collapse into one write.
func (s *Saver) Request() {
	if s == nil || s.flush == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *Saver) fire() {
	s.mu.Lock()
	s.timer = nil
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	if err := s.flush(context.Background()); err != nil {
		s.log.Warn("debounced snapshot write failed", zap.Error(err))
	}
}

// Flush cancels any pending timer and writes immediately.
func (s *Saver) Flush(ctx context.Context) error {
	if s == nil || s.flush == nil {
		return nil
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}

	return s.flush(ensureContext(ctx))
}

// Close flushes outstanding state and stops the saver.
func (s *Saver) Close() error {
	if s == nil {
		return nil
	}

	err := s.Flush(context.Background())

	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return err
}
