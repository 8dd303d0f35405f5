package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/google/uuid"
)

// Scheduler is the Scheduler (C4): a ticker-driven loop that only runs its
// Sweeper while holding the distributed lease, so a multi-replica deployment
// still has exactly one instance sweeping at a time.
type Scheduler struct {
	Sweeper    *Sweeper
	DB         *sql.DB
	Clock      clock.Clock
	Logger     logging.Logger
	HolderID   string
	LeaseTTL   time.Duration
	SweepEvery time.Duration
}

// NewScheduler builds a Scheduler with a fresh random holder ID and the
// spec's default lease TTL / sweep cadence.
func NewScheduler(db *sql.DB, c clock.Clock, logger logging.Logger) *Scheduler {
	return &Scheduler{
		Sweeper:    &Sweeper{DB: db, Clock: c, Logger: logger},
		DB:         db,
		Clock:      c,
		Logger:     logger,
		HolderID:   uuid.NewString(),
		LeaseTTL:   30 * time.Second,
		SweepEvery: 60 * time.Second,
	}
}

// Run loops until ctx is cancelled, attempting to acquire/renew the lease
// and sweeping once per tick whenever it holds it. A peer that loses the
// race simply keeps polling the lease; no separate leader-election protocol
// is needed because the lease row itself is the single source of truth.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.SweepEvery)
	defer ticker.Stop()
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseLease(releaseCtx, s.DB, s.HolderID); err != nil {
			s.Logger.Warn(releaseCtx, "scheduler: failed to release lease on shutdown", "error", err.Error())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.Clock.Now()
	held, err := acquireLease(ctx, s.DB, s.HolderID, now, s.LeaseTTL)
	if err != nil {
		s.Logger.Error(ctx, "scheduler: lease acquisition failed", "error", err.Error())
		return
	}
	if !held {
		return
	}
	if err := s.Sweeper.Sweep(ctx); err != nil {
		s.Logger.Error(ctx, "scheduler: sweep failed", "error", err.Error())
	}
}
