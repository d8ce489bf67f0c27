package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	intentserrors "stayd/internal/intents/errors"
	"stayd/internal/intents/repository"
	apperrors "stayd/pkg/errors"
	"stayd/pkg/model"
)

// memoryLockStore mirrors the storage layer's acquisition semantics: one
// bucket per (listing, night) with a unique key, claims serialized, lapsed
// buckets treated as free on every attempt.
type memoryLockStore struct {
	mu      sync.Mutex
	buckets map[string]*model.IntentLock
	intents map[string]*model.BookingIntent

	// clock is the store's own time, consulted by the live-lease condition
	// on compareAndSwap the way the database consults its server clock.
	clock func() time.Time
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{
		buckets: make(map[string]*model.IntentLock),
		intents: make(map[string]*model.BookingIntent),
		clock:   time.Now,
	}
}

func (s *memoryLockStore) tryAcquire(_ context.Context, intent *model.BookingIntent, now time.Time) (*model.BookingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent replay: a customer holds at most one live claim per
	// listing and re-requesting hands it back, whatever range they ask for.
	for _, existing := range s.intents {
		if existing.CustomerID == intent.CustomerID &&
			existing.ListingID == intent.ListingID &&
			existing.HoldsLockAt(now) {
			return existing, nil
		}
	}

	nights := intent.Range().Nights()
	for _, night := range nights {
		id := model.LockBucketID(intent.ListingID, night)
		if held, ok := s.buckets[id]; ok && held.ExpiresAt.After(now) {
			return nil, &intentserrors.ConflictError{
				Reason:      intentserrors.ReasonLockedByOther,
				LockedUntil: held.ExpiresAt,
			}
		}
	}
	for _, night := range nights {
		id := model.LockBucketID(intent.ListingID, night)
		s.buckets[id] = &model.IntentLock{
			ID:        id,
			IntentID:  intent.ID,
			ExpiresAt: intent.ExpiresAt,
		}
	}

	stored := *intent
	s.intents[intent.ID] = &stored
	return &stored, nil
}

func (s *memoryLockStore) findByID(_ context.Context, id string) (*model.BookingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, intentserrors.ErrNotFound
	}
	snapshot := *intent
	return &snapshot, nil
}

// compareAndSwap mirrors the storage layer's transition semantics: the
// expected state, the extension count, and the live-lease condition are all
// part of the match, judged at the moment of the write.
func (s *memoryLockStore) compareAndSwap(_ context.Context, id string, expected, next model.IntentState, muts repository.StateMutations) (*model.BookingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, intentserrors.ErrNotFound
	}
	if intent.State != expected {
		return nil, intentserrors.ErrStaleState
	}
	if muts.ExpectedExtensionCount != nil && intent.ExtensionCount != *muts.ExpectedExtensionCount {
		return nil, intentserrors.ErrStaleState
	}
	if muts.RequireUnexpired && !intent.ExpiresAt.After(s.clock()) {
		return nil, intentserrors.ErrExpired
	}

	intent.State = next
	if muts.ExpiresAt != nil {
		intent.ExpiresAt = *muts.ExpiresAt
	}
	if muts.TransactionID != nil {
		intent.TransactionID = *muts.TransactionID
	}
	if muts.IncrementExtensions {
		intent.ExtensionCount++
	}

	snapshot := *intent
	return &snapshot, nil
}

func newContentionService(store *memoryLockStore, clock func() time.Time) *intentService {
	svc := newTestService(&mockIntentRepo{tryAcquireFunc: store.tryAcquire}, &mockLockRepo{}, &mockBookingRepo{}, &capturingPublisher{})
	svc.now = clock
	return svc
}

func contendingIntent(customer string) *model.BookingIntent {
	intent := activeIntent("")
	intent.ID = ""
	intent.CustomerID = customer
	return intent
}

// N customers race for the same range: exactly one wins, every loser gets a
// retryable lock conflict.
func TestCreate_MutualExclusionUnderContention(t *testing.T) {
	store := newMemoryLockStore()
	svc := newContentionService(store, func() time.Time { return testNow })

	const customers = 8
	var wg sync.WaitGroup
	results := make([]error, customers)

	wg.Add(customers)
	for i := 0; i < customers; i++ {
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Create(context.Background(), contendingIntent(fmt.Sprintf("customer-%d", i)))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			continue
		}
		appErr := apperrors.AsAppError(err)
		if appErr == nil || appErr.Code != apperrors.CodeConflictLocked {
			t.Errorf("customer %d: want lock conflict, got %v", i, err)
			continue
		}
		if appErr.HTTPStatus != http.StatusConflict {
			t.Errorf("customer %d: status = %d, want 409", i, appErr.HTTPStatus)
		}
		if _, ok := appErr.Details["retry_after_seconds"]; !ok {
			t.Errorf("customer %d: conflict carries no retry hint", i)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

// Customer A's short lease lapses; customer B claims the same range before
// any sweep has run.
func TestCreate_LapsedLockYieldsToNewCustomer(t *testing.T) {
	store := newMemoryLockStore()

	clock := testNow
	var clockMu sync.Mutex
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	svc := newContentionService(store, now)
	svc.cfg.LockDuration = 2 * time.Second

	if _, err := svc.Create(context.Background(), contendingIntent("customer-a")); err != nil {
		t.Fatalf("customer A failed to acquire: %v", err)
	}

	// Before the lease lapses, B is locked out.
	if _, err := svc.Create(context.Background(), contendingIntent("customer-b")); err == nil {
		t.Fatal("customer B acquired a held range")
	}

	clockMu.Lock()
	clock = clock.Add(2500 * time.Millisecond)
	clockMu.Unlock()

	if _, err := svc.Create(context.Background(), contendingIntent("customer-b")); err != nil {
		t.Fatalf("customer B failed after A's lease lapsed: %v", err)
	}
}

// Back-to-back stays share a checkout day but no nights.
func TestCreate_AdjacentRangesDoNotConflict(t *testing.T) {
	store := newMemoryLockStore()
	svc := newContentionService(store, func() time.Time { return testNow })

	first := contendingIntent("customer-a")
	if _, err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("first stay failed: %v", err)
	}

	second := contendingIntent("customer-b")
	second.StartDate = first.EndDate
	second.EndDate = first.EndDate.AddDate(0, 0, 3)

	if _, err := svc.Create(context.Background(), second); err != nil {
		t.Fatalf("adjacent stay conflicted: %v", err)
	}
}

func TestCreate_SameCustomerReplayReturnsExistingIntent(t *testing.T) {
	store := newMemoryLockStore()
	svc := newContentionService(store, func() time.Time { return testNow })

	first, err := svc.Create(context.Background(), contendingIntent("customer-a"))
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	replay, err := svc.Create(context.Background(), contendingIntent("customer-a"))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replay.ID != first.ID {
		t.Errorf("replay minted a new intent %s, want %s", replay.ID, first.ID)
	}
}

// Concurrent confirm and sweep over a lapsed intent: at most one transition
// commits.
func TestConfirmVersusSweep_CASResolvesTheRace(t *testing.T) {
	intent := activeIntent("intent-1")
	intent.ExpiresAt = testNow.Add(time.Second)

	var mu sync.Mutex
	state := model.IntentActive
	repo := &mockIntentRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.BookingIntent, error) {
			mu.Lock()
			defer mu.Unlock()
			snapshot := *intent
			snapshot.State = state
			return &snapshot, nil
		},
		findExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*model.BookingIntent, error) {
			return []*model.BookingIntent{intent}, nil
		},
		casFunc: func(ctx context.Context, id string, expected, next model.IntentState, muts repository.StateMutations) (*model.BookingIntent, error) {
			mu.Lock()
			defer mu.Unlock()
			if state != expected {
				return nil, intentserrors.ErrStaleState
			}
			state = next
			updated := *intent
			updated.State = next
			return &updated, nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, &mockBookingRepo{}, &capturingPublisher{})
	sweeper := newTestSweeper(repo, &mockLockRepo{}, &capturingPublisher{})

	var wg sync.WaitGroup
	var confirmErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, confirmErr = svc.Confirm(context.Background(), "intent-1", "customer-1", "txn-1")
	}()
	go func() {
		defer wg.Done()
		_, _ = sweeper.Run(context.Background())
	}()
	wg.Wait()

	mu.Lock()
	final := state
	mu.Unlock()

	if final != model.IntentConfirmed && final != model.IntentExpired {
		t.Fatalf("final state = %s, want confirmed or expired", final)
	}
	if final == model.IntentExpired && confirmErr == nil {
		t.Error("sweep won but confirm also reported success")
	}
}

// Customer A's lazy expiry check passes just before the lease lapses, then
// customer B reacquires the range. A's confirm reaches the store after the
// lapse and must be rejected by the live-lease condition; committing it
// would leave a confirmed booking under B's fresh claim.
func TestConfirm_CannotCommitAfterRangeReacquired(t *testing.T) {
	store := newMemoryLockStore()

	var clockMu sync.Mutex
	clock := testNow
	store.clock = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	repo := &mockIntentRepo{
		tryAcquireFunc: store.tryAcquire,
		findByIDFunc:   store.findByID,
		casFunc:        store.compareAndSwap,
	}
	bookingRepo := &mockBookingRepo{}

	// A's request clock is frozen just before the lapse, so its own expiry
	// check still passes.
	svcA := newTestService(repo, &mockLockRepo{}, bookingRepo, &capturingPublisher{})
	svcA.cfg.LockDuration = 2 * time.Second

	claimed, err := svcA.Create(context.Background(), contendingIntent("customer-a"))
	if err != nil {
		t.Fatalf("customer A failed to acquire: %v", err)
	}

	// The lease lapses and B reclaims the same range.
	clockMu.Lock()
	clock = clock.Add(3 * time.Second)
	clockMu.Unlock()

	svcB := newTestService(repo, &mockLockRepo{}, bookingRepo, &capturingPublisher{})
	svcB.now = store.clock

	reclaimed, err := svcB.Create(context.Background(), contendingIntent("customer-b"))
	if err != nil {
		t.Fatalf("customer B failed after A's lease lapsed: %v", err)
	}

	_, booking, err := svcA.Confirm(context.Background(), claimed.ID, "customer-a", "txn-1")
	requireAppError(t, err, apperrors.CodeExpired, http.StatusGone)
	if booking != nil || len(bookingRepo.created) != 0 {
		t.Fatalf("confirmed a booking for %s while customer B holds the range", claimed.Range())
	}

	fresh, err := store.findByID(context.Background(), reclaimed.ID)
	if err != nil {
		t.Fatalf("customer B's intent vanished: %v", err)
	}
	if fresh.State != model.IntentActive {
		t.Errorf("customer B's claim = %s, want active", fresh.State)
	}
}
