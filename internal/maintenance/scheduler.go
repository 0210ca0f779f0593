package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/internal/metrics"
)

// DefaultSchedule runs the purge nightly at 03:00.
const DefaultSchedule = "0 3 * * *"

// Purger hard-deletes remote tombstones.
type Purger interface {
	PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error)
}

// Scheduler periodically purges soft-deleted remote projects once they are
// older than the retention window.
type Scheduler struct {
	cron      *cron.Cron
	purger    Purger
	schedule  string
	retention time.Duration
	logger    *zap.Logger
	metrics   *metrics.SyncMetrics
	now       func() time.Time
}

func NewScheduler(purger Purger, schedule string, retention time.Duration, logger *zap.Logger, m *metrics.SyncMetrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	logger = logger.Named("maintenance")
	cronLog := cron.PrintfLogger(zap.NewStdLog(logger))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		purger:    purger,
		schedule:  schedule,
		retention: retention,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Start registers the purge job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("tombstone purge failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule tombstone purge %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("maintenance scheduler started",
		zap.String("schedule", s.schedule),
		zap.Duration("retention", s.retention))
	return nil
}

// Stop stops the cron loop and waits for a running purge to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce purges tombstones older than the retention window.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.purger.PurgeDeleted(ctx, cutoff)
	s.metrics.RemoteOp("purge", err)
	if err != nil {
		return 0, err
	}
	s.metrics.Purged(n)
	s.logger.Info("purged remote tombstones", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	return n, nil
}
