package service

import (
	"context"
	"errors"
	intentserrors "stayd/internal/intents/errors"
	"stayd/internal/intents/events"
	"stayd/internal/intents/repository"
	"stayd/pkg/config"
	"stayd/pkg/model"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper reclaims lapsed intents in the background. It uses the same CAS
// primitive as every other transition, so a sweep racing a late confirm or
// cancel resolves cleanly: whichever CAS wins, the loser is a no-op.
// Correctness never depends on the sweeper running; reads already treat
// lapsed leases as expired. The sweeper keeps storage tidy and frees lock
// buckets eagerly.
type Sweeper struct {
	repo      repository.IntentRepository
	lockRepo  repository.LockRepository
	publisher events.Publisher
	cfg       *config.Config
	cron      *cron.Cron
	now       func() time.Time
}

func NewSweeper(
	repo repository.IntentRepository,
	lockRepo repository.LockRepository,
	publisher events.Publisher,
	cfg *config.Config,
) *Sweeper {
	return &Sweeper{
		repo:      repo,
		lockRepo:  lockRepo,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start schedules periodic sweeps. Panics inside a sweep are recovered by
// the cron chain so one bad cycle cannot kill the schedule.
func (s *Sweeper) Start() error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(s.cfg.SweepSchedule, s.runScheduled); err != nil {
		return err
	}

	c.Start()
	s.cron = c
	s.cfg.Log.Info("Expiry sweeper started", "schedule", s.cfg.SweepSchedule)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cfg.Log.Info("Expiry sweeper stopped")
}

func (s *Sweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	if _, err := s.Run(ctx); err != nil {
		s.cfg.Log.Error("Sweep cycle failed", "error", err)
	}
}

// Run performs one sweep: flip lapsed ACTIVE intents to EXPIRED, release
// their lock buckets, and garbage-collect terminal intents past the
// retention window. Per-intent failures are logged and skipped; the next
// cycle picks them up. Returns the number of intents reclaimed.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	now := s.now().UTC()

	expired, err := s.repo.FindExpired(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, intent := range expired {
		if s.reclaim(ctx, intent) {
			released++
		}
	}

	if released > 0 {
		s.cfg.Log.Info("Sweep reclaimed expired intents", "count", released)
	}

	s.collectGarbage(ctx, now)
	return released, nil
}

func (s *Sweeper) reclaim(ctx context.Context, intent *model.BookingIntent) bool {
	updated, err := s.repo.CompareAndSwapState(ctx, intent.ID, model.IntentActive, model.IntentExpired, repository.StateMutations{})
	if err != nil {
		// A lost CAS means a late cancel or confirm got there first.
		if errors.Is(err, intentserrors.ErrStaleState) || errors.Is(err, intentserrors.ErrNotFound) {
			return false
		}
		s.cfg.Log.Warn("Failed to expire intent, will retry next cycle", "intent_id", intent.ID, "error", err)
		return false
	}

	if _, err := s.lockRepo.ReleaseByIntent(ctx, intent.ID); err != nil {
		s.cfg.Log.Warn("Failed to release locks for expired intent", "intent_id", intent.ID, "error", err)
	}

	s.publisher.IntentExpired(ctx, updated)
	return true
}

// collectGarbage drops cancelled and expired intents past the retention
// window. Best effort; failures wait for the next cycle.
func (s *Sweeper) collectGarbage(ctx context.Context, now time.Time) {
	if s.cfg.RetentionWindow <= 0 {
		return
	}

	cutoff := now.Add(-s.cfg.RetentionWindow)
	deleted, err := s.repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		s.cfg.Log.Warn("Failed to garbage-collect terminal intents", "error", err)
		return
	}
	if deleted > 0 {
		s.cfg.Log.Info("Garbage-collected terminal intents", "count", deleted, "cutoff", cutoff)
	}
}
