package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/adapters"
	"github.com/swapstay/swapsync/internal/api"
	"github.com/swapstay/swapsync/internal/app"
	"github.com/swapstay/swapsync/internal/backend"
	"github.com/swapstay/swapsync/internal/conn"
	"github.com/swapstay/swapsync/internal/maintenance"
	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/internal/monitoring/checks"
	"github.com/swapstay/swapsync/internal/optimistic"
	"github.com/swapstay/swapsync/internal/persist"
	synccore "github.com/swapstay/swapsync/internal/sync"
)

// runtimeStack bundles the long-lived components of the sync agent.
type runtimeStack struct {
	Monitoring *monitoring.Module
	DB         *persist.DatabaseStore
	Backend    *backend.HTTPClient
	Optimistic *optimistic.Manager
	Connection *conn.Manager
	Core       *synccore.Core
	Sweeper    *maintenance.Sweeper
	Router     *gin.Engine
}

// bootstrapRuntime initialises storage, the backend client, the sync core, and
// the diagnostics router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)

	// durable storage is best effort: without it the agent runs memory-only
	var store persist.KV
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite":
		stack.DB, err = persist.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			log.Warn("snapshot database unavailable; continuing without persistence", zap.Error(err))
		} else {
			store = stack.DB
			log.Info("snapshot database opened", zap.String("path", cfg.Storage.Path))
		}
	case "memory":
		store = persist.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	stack.Backend = backend.NewHTTPClient(cfg.Marketplace.BaseURL, cfg.Marketplace.Token, cfg.Marketplace.Timeout)

	stack.Optimistic = optimistic.NewManager(optimistic.Options{
		Store:            store,
		Fetcher:          stack.Backend,
		TTL:              cfg.Optimistic.TTL,
		Debounce:         cfg.Optimistic.Debounce,
		ProposalMaxAge:   cfg.Storage.ProposalMaxAge,
		CompletionMaxAge: cfg.Storage.CompletionMaxAge,
		MaxProposals:     cfg.Storage.MaxProposals,
		MaxCompletions:   cfg.Storage.MaxCompletions,
		MaxAudit:         cfg.Storage.MaxAuditRecords,
	})

	stack.Connection = conn.NewManager(conn.Options{
		StreamURL:         cfg.Marketplace.StreamURL,
		Token:             cfg.Marketplace.Token,
		Poller:            stack.Backend,
		HeartbeatInterval: cfg.Connection.HeartbeatInterval,
		BackoffMin:        cfg.Connection.BackoffMin,
		BackoffMax:        cfg.Connection.BackoffMax,
		FallbackAfter:     cfg.Connection.FallbackAfter,
		PollInterval:      cfg.Connection.PollInterval,
		ErrorRingSize:     cfg.Connection.ErrorRingSize,
	})

	stack.Core = synccore.NewCore(synccore.Options{
		UserID:      cfg.Marketplace.UserID,
		Connection:  stack.Connection,
		Backend:     stack.Backend,
		Optimistic:  stack.Optimistic,
		Presenter:   adapters.NewPresenter(nil, nil),
		PageSize:    cfg.Notifications.PageSize,
		MaxToasts:   cfg.Notifications.MaxToasts,
		ToastWindow: cfg.Notifications.ToastWindow,
	})

	registerHealthChecks(stack, store)

	stack.Sweeper = maintenance.NewSweeper(stack.Optimistic, stack.DB)
	if err := stack.Sweeper.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if err := stack.Core.Init(ctx); err != nil {
		return nil, fmt.Errorf("initialise sync core: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.Core, stack.Monitoring, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, store persist.KV) {
	health := stack.Monitoring.Health()

	health.RegisterLiveness(monitoring.NewCheck("process", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))

	health.RegisterReadiness(checks.Connection(stack.Connection))
	if store != nil {
		health.RegisterReadiness(checks.Storage(store, 0))
	}
	health.RegisterReadiness(checks.Maintenance(0))
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		stopCtx := s.Sweeper.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(10 * time.Second):
			log.Warn("maintenance jobs did not stop in time")
		}
		if err := s.Sweeper.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}

	if s.Core != nil {
		s.Core.Dispose()
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn("failed to close snapshot database", zap.Error(err))
		}
	}
}
