package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	apperrors "stayd/pkg/errors"
	"stayd/pkg/model"
)

func newTestAvailability(repo *mockIntentRepo, bookingRepo *mockBookingRepo) *availabilityService {
	return &availabilityService{
		intents:  repo,
		bookings: bookingRepo,
		cfg:      testConfig(),
		now:      func() time.Time { return testNow },
	}
}

func queryRange() model.DateRange {
	start := testNow.AddDate(0, 1, 0).Truncate(24 * time.Hour)
	return model.DateRange{Start: start, End: start.AddDate(0, 0, 4)}
}

func TestCheckAvailability_Free(t *testing.T) {
	svc := newTestAvailability(&mockIntentRepo{}, &mockBookingRepo{})

	got, err := svc.Check(context.Background(), "listing-1", "customer-q", queryRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Available {
		t.Errorf("available = false, want true (reason %s)", got.Reason)
	}
	if got.RetryAfterSeconds != 0 {
		t.Errorf("retry_after_seconds = %d, want 0", got.RetryAfterSeconds)
	}
}

func TestCheckAvailability_ExistingBooking(t *testing.T) {
	bookingRepo := &mockBookingRepo{
		findOverlapFunc: func(ctx context.Context, listingID string, dates model.DateRange) ([]*model.Booking, error) {
			return []*model.Booking{{ID: "booking-1", ListingID: listingID}}, nil
		},
	}
	svc := newTestAvailability(&mockIntentRepo{}, bookingRepo)

	got, err := svc.Check(context.Background(), "listing-1", "customer-q", queryRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Available {
		t.Error("booked range reported available")
	}
	if got.Reason != model.ReasonExistingBooking {
		t.Errorf("reason = %s, want existing_booking", got.Reason)
	}
	// A confirmed booking is permanent; there is nothing to retry.
	if got.RetryAfterSeconds != 0 {
		t.Errorf("retry_after_seconds = %d, want 0", got.RetryAfterSeconds)
	}
}

func TestCheckAvailability_LockedByOther(t *testing.T) {
	holder := activeIntent("intent-holder")
	holder.ExpiresAt = testNow.Add(150 * time.Second)

	repo := &mockIntentRepo{
		findOverlapFunc: func(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.BookingIntent, error) {
			return []*model.BookingIntent{holder}, nil
		},
	}
	svc := newTestAvailability(repo, &mockBookingRepo{})

	got, err := svc.Check(context.Background(), "listing-1", "customer-q", queryRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Available {
		t.Error("locked range reported available")
	}
	if got.Reason != model.ReasonLockedByOther {
		t.Errorf("reason = %s, want locked_by_other", got.Reason)
	}
	if got.RetryAfterSeconds != 150 {
		t.Errorf("retry_after_seconds = %d, want 150", got.RetryAfterSeconds)
	}
}

func TestCheckAvailability_OwnClaimDoesNotBlock(t *testing.T) {
	holder := activeIntent("intent-holder")

	repo := &mockIntentRepo{
		findOverlapFunc: func(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.BookingIntent, error) {
			return []*model.BookingIntent{holder}, nil
		},
	}
	svc := newTestAvailability(repo, &mockBookingRepo{})

	got, err := svc.Check(context.Background(), "listing-1", holder.CustomerID, queryRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Available {
		t.Error("a customer's own claim must not block them")
	}
}

// The repository filters on expires_at, so a lapsed holder never reaches the
// checker; a range whose only claim has lapsed is available before any sweep.
func TestCheckAvailability_LapsedLockIsFree(t *testing.T) {
	repo := &mockIntentRepo{
		findOverlapFunc: func(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.BookingIntent, error) {
			if !now.Equal(testNow) {
				t.Errorf("checker must pass its own clock, got %v", now)
			}
			return nil, nil
		},
	}
	svc := newTestAvailability(repo, &mockBookingRepo{})

	got, err := svc.Check(context.Background(), "listing-1", "customer-q", queryRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Available {
		t.Error("range with only lapsed locks must be available")
	}
}

func TestCheckAvailability_RejectsBadInput(t *testing.T) {
	svc := newTestAvailability(&mockIntentRepo{}, &mockBookingRepo{})

	if _, err := svc.Check(context.Background(), "", "customer-q", queryRange()); err == nil {
		t.Error("empty listing ID must be rejected")
	}

	inverted := queryRange()
	inverted.Start, inverted.End = inverted.End, inverted.Start
	_, err := svc.Check(context.Background(), "listing-1", "customer-q", inverted)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("inverted range must be a bad request, got %v", err)
	}
}
