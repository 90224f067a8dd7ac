package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/adamonsea/narrative-forge/internal/functions"
)

// SweepStore is the maintenance slice of the store.
type SweepStore interface {
	SweepStuckProcessing(ctx context.Context, olderThan time.Duration) (requeued, failed int64, err error)
	ExpireOldEvents(ctx context.Context) (int64, error)
}

// StuckResetter asks the backend to requeue jobs its own worker abandoned.
type StuckResetter interface {
	ResetStuckProcessing(ctx context.Context) (*functions.Result, error)
}

// Sweeper is the periodic janitor: it returns queue items stuck in
// processing to pending (or fails them once attempts run out), expires past
// events, and nudges the remote reset function.
type Sweeper struct {
	store      SweepStore
	resetter   StuckResetter
	interval   time.Duration
	stuckAfter time.Duration
	logger     *slog.Logger
}

func NewSweeper(st SweepStore, resetter StuckResetter, interval, stuckAfter time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if stuckAfter <= 0 {
		stuckAfter = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:      st,
		resetter:   resetter,
		interval:   interval,
		stuckAfter: stuckAfter,
		logger:     logger,
	}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single maintenance pass. Each step is independent; one
// failing step does not stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	requeued, failed, err := s.store.SweepStuckProcessing(ctx, s.stuckAfter)
	if err != nil {
		s.logger.Error("stuck queue sweep failed", "error", err)
	} else if requeued+failed > 0 {
		s.logger.Info("stuck queue swept", "requeued", requeued, "failed", failed)
	}

	expired, err := s.store.ExpireOldEvents(ctx)
	if err != nil {
		s.logger.Error("event expiry failed", "error", err)
	} else if expired > 0 {
		s.logger.Info("events expired", "count", expired)
	}

	if s.resetter != nil {
		if _, err := s.resetter.ResetStuckProcessing(ctx); err != nil {
			s.logger.Warn("remote stuck reset failed", "error", err)
		}
	}
}
