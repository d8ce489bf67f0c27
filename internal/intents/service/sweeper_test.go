package service

import (
	"context"
	"testing"
	"time"

	intentserrors "stayd/internal/intents/errors"
	"stayd/internal/intents/repository"
	"stayd/pkg/model"
)

func newTestSweeper(repo *mockIntentRepo, lockRepo *mockLockRepo, pub *capturingPublisher) *Sweeper {
	return &Sweeper{
		repo:      repo,
		lockRepo:  lockRepo,
		publisher: pub,
		cfg:       testConfig(),
		now:       func() time.Time { return testNow },
	}
}

func lapsedIntent(id string) *model.BookingIntent {
	intent := activeIntent(id)
	intent.ExpiresAt = testNow.Add(-time.Minute)
	return intent
}

func TestSweeperRun_ReclaimsLapsedIntents(t *testing.T) {
	batch := []*model.BookingIntent{lapsedIntent("a"), lapsedIntent("b"), lapsedIntent("c")}

	repo := &mockIntentRepo{
		findExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*model.BookingIntent, error) {
			if limit != 100 {
				t.Errorf("sweep batch limit = %d, want 100", limit)
			}
			return batch, nil
		},
		casFunc: func(ctx context.Context, id string, expected, next model.IntentState, muts repository.StateMutations) (*model.BookingIntent, error) {
			if expected != model.IntentActive || next != model.IntentExpired {
				t.Errorf("unexpected transition %s -> %s", expected, next)
			}
			updated := *lapsedIntent(id)
			updated.State = model.IntentExpired
			return &updated, nil
		},
	}
	lockRepo := &mockLockRepo{}
	pub := &capturingPublisher{}
	sweeper := newTestSweeper(repo, lockRepo, pub)

	released, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 3 {
		t.Errorf("released = %d, want 3", released)
	}
	for _, id := range []string{"a", "b", "c"} {
		if !lockRepo.releasedFor(id) {
			t.Errorf("locks for %s not released", id)
		}
	}
	if !pub.has("expired") {
		t.Error("expired events not published")
	}
}

// A sweep racing late cancels or confirms loses some CAS attempts; those
// intents are simply not counted, and the cycle still completes.
func TestSweeperRun_SkipsIntentsThatMovedUnderIt(t *testing.T) {
	batch := []*model.BookingIntent{lapsedIntent("won"), lapsedIntent("lost"), lapsedIntent("gone")}

	repo := &mockIntentRepo{
		findExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*model.BookingIntent, error) {
			return batch, nil
		},
		casFunc: func(ctx context.Context, id string, expected, next model.IntentState, muts repository.StateMutations) (*model.BookingIntent, error) {
			switch id {
			case "lost":
				return nil, intentserrors.ErrStaleState
			case "gone":
				return nil, intentserrors.ErrNotFound
			}
			updated := *lapsedIntent(id)
			updated.State = model.IntentExpired
			return &updated, nil
		},
	}
	lockRepo := &mockLockRepo{}
	sweeper := newTestSweeper(repo, lockRepo, &capturingPublisher{})

	released, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}
	if lockRepo.releasedFor("lost") || lockRepo.releasedFor("gone") {
		t.Error("locks must not be released for intents the sweep did not win")
	}
}

func TestSweeperRun_GarbageCollectsTerminalIntents(t *testing.T) {
	var gcCutoff time.Time
	repo := &mockIntentRepo{
		deleteTermFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gcCutoff = cutoff
			return 7, nil
		},
	}
	sweeper := newTestSweeper(repo, &mockLockRepo{}, &capturingPublisher{})

	if _, err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testNow.Add(-720 * time.Hour)
	if !gcCutoff.Equal(want) {
		t.Errorf("gc cutoff = %v, want %v", gcCutoff, want)
	}
}

// An empty sweep is a no-op, not an error.
func TestSweeperRun_NothingToDo(t *testing.T) {
	sweeper := newTestSweeper(&mockIntentRepo{}, &mockLockRepo{}, &capturingPublisher{})

	released, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released != 0 {
		t.Errorf("released = %d, want 0", released)
	}
}
