package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/swapstay/swapsync/internal/monitoring"
	"github.com/swapstay/swapsync/pkg/logger"
)

const (
	defaultOptimisticSpec = "@every 1m"
	defaultSnapshotSpec   = "@hourly"
)

// OptimisticSweeper retires optimistic records past their confirmation TTL.
type OptimisticSweeper interface {
	SweepExpired(ctx context.Context) int
}

// SnapshotSweeper removes expired rows from the durable snapshot store.
type SnapshotSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper coordinates background maintenance: the optimistic TTL sweep and
// the durable snapshot expiry sweep.
type Sweeper struct {
	optimistic OptimisticSweeper
	snapshots  SnapshotSweeper
	cron       *cron.Cron
	now        func() time.Time
	log        *zap.Logger
	enabled    bool

	optimisticSchedule string
	snapshotSchedule   string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(sweeper *Sweeper) {
		if c != nil {
			sweeper.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling comparisons.
func WithNow(now func() time.Time) Option {
	return func(sweeper *Sweeper) {
		if now != nil {
			sweeper.now = now
		}
	}
}

// WithOptimisticSchedule overrides the cron specification for the TTL sweep.
func WithOptimisticSchedule(spec string) Option {
	return func(sweeper *Sweeper) {
		if spec != "" {
			sweeper.optimisticSchedule = spec
		}
	}
}

// WithSnapshotSchedule overrides the cron specification for the snapshot sweep.
func WithSnapshotSchedule(spec string) Option {
	return func(sweeper *Sweeper) {
		if spec != "" {
			sweeper.snapshotSchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewSweeper(optimistic OptimisticSweeper, snapshots SnapshotSweeper, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		optimistic:         optimistic,
		snapshots:          snapshots,
		now:                time.Now,
		optimisticSchedule: defaultOptimisticSpec,
		snapshotSchedule:   defaultSnapshotSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	sweeper.enabled = sweeper.optimistic != nil || sweeper.snapshots != nil
	return sweeper
}

// Start registers the sweep jobs with the cron scheduler and launches it when
// at least one job is enabled.
func (s *Sweeper) Start() error {
	if !s.enabled {
		return nil
	}

	if s.optimistic != nil {
		if _, err := s.cron.AddFunc(s.optimisticSchedule, func() {
			s.runOptimisticSweep(context.Background())
		}); err != nil {
			return err
		}
	}

	if s.snapshots != nil {
		if _, err := s.cron.AddFunc(s.snapshotSchedule, func() {
			s.runSnapshotSweep(context.Background())
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes all configured sweeps sequentially. Used in tests and
// during graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.optimistic != nil {
		s.runOptimisticSweep(ctx)
	}
	if s.snapshots != nil {
		if err := s.runSnapshotSweep(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (s *Sweeper) runOptimisticSweep(ctx context.Context) {
	start := s.now()
	expired := s.optimistic.SweepExpired(ctx)
	duration := s.now().Sub(start)

	monitoring.RecordMaintenanceRun("optimistic_sweep", "success", "", duration)
	if expired > 0 {
		s.log.Info("optimistic ttl sweep retired records", zap.Int("expired", expired))
	}
}

func (s *Sweeper) runSnapshotSweep(ctx context.Context) error {
	start := s.now()
	removed, err := s.snapshots.SweepExpired(ctx)
	duration := s.now().Sub(start)

	if err != nil {
		monitoring.RecordMaintenanceRun("snapshot_sweep", "failure", err.Error(), duration)
		s.log.Warn("snapshot sweep failed", zap.Error(err))
		return err
	}

	monitoring.RecordMaintenanceRun("snapshot_sweep", "success", "", duration)
	if removed > 0 {
		s.log.Info("snapshot sweep removed expired rows", zap.Int64("removed", removed))
	}
	return nil
}
