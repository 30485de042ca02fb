package scheduler

import (
	"context"
	"log/slog"
	"time"

	"newsletter_ingest/internal/domain"
)

// Syncer runs one ingestion pass over the source.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

type Scheduler struct {
	syncer     Syncer
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(syncer Syncer, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:     syncer,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs a sync immediately and then on every tick until ctx is done.
// Runs never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sync bounded by the run timeout.
func (s *Scheduler) RunOnce(ctx context.Context) *domain.SyncStats {
	syncCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.runTimeout > 0 {
		syncCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
	}
	defer cancel()

	stats, err := s.syncer.Sync(syncCtx)
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		return nil
	}
	return stats
}
