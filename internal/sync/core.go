// Package sync assembles the realtime channel, the event dispatcher, the
// notification surfaces, and the optimistic update layer into one core the
// embedding application drives.
package sync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/adapters"
	"github.com/swapstay/swapsync/internal/backend"
	"github.com/swapstay/swapsync/internal/conn"
	"github.com/swapstay/swapsync/internal/dispatch"
	"github.com/swapstay/swapsync/internal/models"
	"github.com/swapstay/swapsync/internal/notify"
	"github.com/swapstay/swapsync/internal/optimistic"
	"github.com/swapstay/swapsync/pkg/logger"
)

// Options configure the sync core.
type Options struct {
	UserID string

	Connection *conn.Manager
	Backend    backend.Client
	Optimistic *optimistic.Manager
	Presenter  *adapters.Presenter

	PageSize    int
	MaxToasts   int
	ToastWindow time.Duration
	// RefreshTimeout bounds each background entity refresh. Defaults to 10s.
	RefreshTimeout time.Duration
}

// Core owns the dispatch pipeline: stream events become notifications, toasts,
// presentation calls, and refresh requests against the optimistic layer.
type Core struct {
	opts       Options
	log        *zap.Logger
	dispatcher *dispatch.Dispatcher
	store      *notify.Store
	toasts     *notify.ToastManager

	unsubscribe func()
	started     atomic.Bool
	disposed    atomic.Bool
}

// NewCore wires the pipeline. Call Init to restore snapshots and open the
// channel, Dispose to tear everything down.
func NewCore(opts Options) *Core {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 10 * time.Second
	}

	core := &Core{
		opts: opts,
		log:  logger.WithModule("sync"),
	}
	core.toasts = notify.NewToastManager(notify.ToastOptions{
		MaxConcurrent: opts.MaxToasts,
		Window:        opts.ToastWindow,
	})
	core.store = notify.NewStore(notify.StoreOptions{
		Pager:    opts.Backend,
		PageSize: opts.PageSize,
		OnAdd:    core.onNotification,
	})
	core.dispatcher = dispatch.NewDispatcher(opts.UserID, core.store, &refreshAdapter{core: core})
	return core
}

// Init restores persisted snapshots, primes the notification history, and
// opens the realtime channel. Safe to call once; later calls are no-ops.
func (c *Core) Init(ctx context.Context) error {
	if c == nil || !c.started.CompareAndSwap(false, true) {
		return nil
	}

	if c.opts.Optimistic != nil {
		if err := c.opts.Optimistic.Load(ctx); err != nil {
			c.log.Warn("snapshot restore failed, starting empty", zap.Error(err))
		}
	}

	if c.opts.Backend != nil {
		if err := c.store.LoadMore(ctx); err != nil {
			c.log.Warn("notification history unavailable", zap.Error(err))
		}
	}

	if c.opts.Connection != nil {
		c.unsubscribe = c.opts.Connection.Subscribe(c.handleEvent)
		if err := c.opts.Connection.Connect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Dispose closes the channel and flushes pending state. Idempotent.
func (c *Core) Dispose() {
	if c == nil || !c.disposed.CompareAndSwap(false, true) {
		return
	}

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	if c.opts.Connection != nil {
		c.opts.Connection.Disconnect()
	}
	c.toasts.Close()
	if c.opts.Optimistic != nil {
		if err := c.opts.Optimistic.Close(); err != nil {
			c.log.Warn("final snapshot flush failed", zap.Error(err))
		}
	}
}

// Notifications exposes the notification store.
func (c *Core) Notifications() *notify.Store {
	return c.store
}

// Toasts exposes the toast lifecycle.
func (c *Core) Toasts() *notify.ToastManager {
	return c.toasts
}

// Connection exposes the channel manager for diagnostics.
func (c *Core) Connection() *conn.Manager {
	return c.opts.Connection
}

// Optimistic exposes the optimistic update layer.
func (c *Core) Optimistic() *optimistic.Manager {
	return c.opts.Optimistic
}

func (c *Core) handleEvent(event models.StreamEvent) {
	c.dispatcher.Handle(event)
}

// onNotification runs after the store accepts a notification; it feeds the
// transient surfaces.
func (c *Core) onNotification(notification models.Notification) {
	c.toasts.Admit(notification)
	if c.opts.Presenter != nil {
		c.opts.Presenter.Present(notification)
	}
}

// refreshAdapter bridges dispatcher refresh requests to the optimistic layer.
// Refreshes run off the dispatch goroutine so a slow backend never delays
// event ordering.
type refreshAdapter struct {
	core *Core
}

func (a *refreshAdapter) RequestRefresh(scope dispatch.RefreshScope, entityID string) {
	manager := a.core.opts.Optimistic
	if manager == nil || entityID == "" {
		return
	}

	target := optimistic.ScopeProposal
	if scope == dispatch.RefreshCompletion {
		target = optimistic.ScopeCompletion
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.core.opts.RefreshTimeout)
		defer cancel()
		if err := manager.Refresh(ctx, target, entityID); err != nil {
			a.core.log.Warn("entity refresh failed",
				zap.String("scope", string(target)),
				zap.String("entity_id", entityID),
				zap.Error(err))
		}
	}()
}
