package service

import (
	"context"
	"errors"
	"fmt"
	intentserrors "stayd/internal/intents/errors"
	"stayd/internal/intents/events"
	"stayd/internal/intents/repository"
	"stayd/internal/intents/validator"
	"stayd/pkg/config"
	apperrors "stayd/pkg/errors"
	"stayd/pkg/model"
	"stayd/pkg/sanitizer"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type IntentService interface {
	Create(ctx context.Context, intent *model.BookingIntent) (*model.BookingIntent, error)
	GetByID(ctx context.Context, id string) (*model.BookingIntent, error)
	GetActive(ctx context.Context, customerID string, listingID string) ([]*model.BookingIntent, error)
	Cancel(ctx context.Context, id string, customerID string, reason string) (*model.BookingIntent, error)
	Extend(ctx context.Context, id string, customerID string, additionalMinutes int) (*model.BookingIntent, error)
	Confirm(ctx context.Context, id string, customerID string, transactionID string) (*model.BookingIntent, *model.Booking, error)
}

type intentService struct {
	repo         repository.IntentRepository
	lockRepo     repository.LockRepository
	bookingRepo  repository.BookingRepository
	validator    *validator.IntentValidator
	materializer *Materializer
	publisher    events.Publisher
	cfg          *config.Config
	now          func() time.Time
}

func NewIntentService(
	repo repository.IntentRepository,
	lockRepo repository.LockRepository,
	bookingRepo repository.BookingRepository,
	validator *validator.IntentValidator,
	publisher events.Publisher,
	cfg *config.Config,
) IntentService {
	return &intentService{
		repo:         repo,
		lockRepo:     lockRepo,
		bookingRepo:  bookingRepo,
		validator:    validator,
		materializer: NewMaterializer(bookingRepo),
		publisher:    publisher,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Create claims the listing's date range for the customer. First writer
// wins; the loser receives a conflict carrying a retry hint, never the
// winner's identity. Re-requesting an identical live claim returns the
// existing intent unchanged.
func (s *intentService) Create(ctx context.Context, intent *model.BookingIntent) (*model.BookingIntent, error) {
	now := s.now().UTC()
	s.applyDefaults(intent, now)

	if err := s.validator.Validate(intent, now); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	acquired, err := s.repo.TryAcquire(ctx, intent, now)
	if err != nil {
		if conflict, ok := intentserrors.AsConflict(err); ok {
			s.cfg.Log.Info("Intent acquisition lost to a conflict",
				"listing_id", intent.ListingID,
				"reason", conflict.Reason,
			)
			return nil, s.conflictError(conflict, now)
		}
		s.cfg.Log.Error("Failed to acquire intent", "listing_id", intent.ListingID, "error", err)
		return nil, apperrors.Internal("Failed to create booking intent", err)
	}

	if acquired.ID != intent.ID {
		// Idempotent replay of the customer's own live claim.
		return acquired, nil
	}

	s.publisher.IntentCreated(ctx, acquired)
	s.cfg.Log.Info("Booking intent created",
		"id", acquired.ID,
		"listing_id", acquired.ListingID,
		"nights", acquired.Range().NightCount(),
		"expires_at", acquired.ExpiresAt,
	)
	return acquired, nil
}

func (s *intentService) GetByID(ctx context.Context, id string) (*model.BookingIntent, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Intent ID cannot be empty")
	}

	intent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, intentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking intent", id)
		}
		return nil, apperrors.Internal("Failed to retrieve intent", err)
	}

	now := s.now().UTC()
	if intent.State == model.IntentActive && intent.ExpiredAt(now) {
		intent = s.finalizeExpired(ctx, intent)
	}

	return intent, nil
}

func (s *intentService) GetActive(ctx context.Context, customerID string, listingID string) ([]*model.BookingIntent, error) {
	if customerID == "" {
		return nil, apperrors.InvalidInput("Customer ID cannot be empty")
	}

	intents, err := s.repo.FindActiveByCustomerAndListing(ctx, customerID, listingID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve active intents", err)
	}

	// Lapsed leases are expired from the caller's point of view even before
	// the sweeper has flipped them.
	now := s.now().UTC()
	live := make([]*model.BookingIntent, 0, len(intents))
	for _, intent := range intents {
		if intent.HoldsLockAt(now) {
			live = append(live, intent)
		}
	}

	return live, nil
}

func (s *intentService) Cancel(ctx context.Context, id string, customerID string, reason string) (*model.BookingIntent, error) {
	intent, err := s.getOwned(ctx, id, customerID)
	if err != nil {
		return nil, err
	}

	if intent.State == model.IntentCancelled {
		return intent, nil
	}
	if intent.State.Terminal() {
		return nil, apperrors.AlreadyTerminal(fmt.Sprintf("Intent is already %s", intent.State))
	}

	now := s.now().UTC()
	if intent.ExpiredAt(now) {
		s.finalizeExpired(ctx, intent)
		return nil, apperrors.Expired("Intent lease has already expired")
	}

	reason = sanitizer.NormalizeFreeText(reason)
	updated, err := s.repo.CompareAndSwapState(ctx, id, model.IntentActive, model.IntentCancelled, repository.StateMutations{
		CancelReason: &reason,
	})
	if err != nil {
		return nil, s.transitionError(ctx, id, err, model.IntentCancelled)
	}

	if _, err := s.lockRepo.ReleaseByIntent(ctx, id); err != nil {
		s.cfg.Log.Warn("Failed to release locks for cancelled intent", "intent_id", id, "error", err)
	}

	s.publisher.IntentCancelled(ctx, updated)
	s.cfg.Log.Info("Booking intent cancelled", "id", id, "reason", reason)
	return updated, nil
}

// Extend pushes the lease out by additionalMinutes, only inside the final
// extend window and only while extensions remain. Extending early is
// rejected so a holder cannot park a listing indefinitely.
func (s *intentService) Extend(ctx context.Context, id string, customerID string, additionalMinutes int) (*model.BookingIntent, error) {
	intent, err := s.getOwned(ctx, id, customerID)
	if err != nil {
		return nil, err
	}

	if intent.State.Terminal() {
		return nil, apperrors.AlreadyTerminal(fmt.Sprintf("Intent is already %s", intent.State))
	}

	now := s.now().UTC()
	if intent.ExpiredAt(now) {
		s.finalizeExpired(ctx, intent)
		return nil, apperrors.Expired("Intent lease has already expired")
	}

	if intent.ExpiresAt.Sub(now) > s.cfg.ExtendWindow {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Extension is allowed only within the final %s of the lease", s.cfg.ExtendWindow))
	}
	if intent.ExtensionCount >= s.cfg.MaxExtensions {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Extension limit of %d reached", s.cfg.MaxExtensions))
	}

	if additionalMinutes < 0 {
		return nil, apperrors.InvalidInput("Additional minutes cannot be negative")
	}
	// Zero means "as much as allowed"; oversized requests are capped.
	if additionalMinutes == 0 || additionalMinutes > s.cfg.MaxExtensionMinutes {
		additionalMinutes = s.cfg.MaxExtensionMinutes
	}
	newExpiry := intent.ExpiresAt.Add(time.Duration(additionalMinutes) * time.Minute)
	expectedCount := intent.ExtensionCount

	var updated *model.BookingIntent
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		updated, err = s.repo.CompareAndSwapState(sessCtx, id, model.IntentActive, model.IntentActive, repository.StateMutations{
			ExpiresAt:              &newExpiry,
			ExpectedExtensionCount: &expectedCount,
			IncrementExtensions:    true,
			RequireUnexpired:       true,
		})
		if err != nil {
			return err
		}

		if _, err := s.lockRepo.ExtendByIntent(sessCtx, id, newExpiry); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.transitionError(ctx, id, err, model.IntentActive)
	}

	s.publisher.IntentExtended(ctx, updated)
	s.cfg.Log.Info("Booking intent extended",
		"id", id,
		"extension_count", updated.ExtensionCount,
		"expires_at", updated.ExpiresAt,
	)
	return updated, nil
}

// Confirm flips the intent to its terminal confirmed state and materializes
// the durable booking in the same transaction. Either both records land or
// neither does. Confirming an already-confirmed intent returns the existing
// booking.
func (s *intentService) Confirm(ctx context.Context, id string, customerID string, transactionID string) (*model.BookingIntent, *model.Booking, error) {
	intent, err := s.getOwned(ctx, id, customerID)
	if err != nil {
		return nil, nil, err
	}

	if intent.State == model.IntentConfirmed {
		booking, err := s.bookingRepo.FindByIntentID(ctx, id)
		if err != nil {
			return nil, nil, apperrors.Materialization("Confirmed intent has no booking record", err)
		}
		return intent, booking, nil
	}
	if intent.State.Terminal() {
		return nil, nil, apperrors.AlreadyTerminal(fmt.Sprintf("Intent is already %s", intent.State))
	}

	now := s.now().UTC()
	if intent.ExpiredAt(now) {
		s.finalizeExpired(ctx, intent)
		return nil, nil, apperrors.Expired("Intent lease has already expired")
	}

	var (
		updated *model.BookingIntent
		booking *model.Booking
	)
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		updated, err = s.repo.CompareAndSwapState(sessCtx, id, model.IntentActive, model.IntentConfirmed, repository.StateMutations{
			TransactionID:    &transactionID,
			RequireUnexpired: true,
		})
		if err != nil {
			return err
		}

		booking, err = s.materializer.Materialize(sessCtx, updated, transactionID)
		if err != nil {
			return err
		}

		if _, err := s.lockRepo.ReleaseByIntent(sessCtx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		// A duplicate confirm that lost the race to the first one still
		// gets the booking back instead of a retry demand.
		if errors.Is(err, intentserrors.ErrStaleState) {
			if fresh, findErr := s.repo.FindByID(ctx, id); findErr == nil && fresh.State == model.IntentConfirmed {
				booking, bookingErr := s.bookingRepo.FindByIntentID(ctx, id)
				if bookingErr != nil {
					return nil, nil, apperrors.Materialization("Confirmed intent has no booking record", bookingErr)
				}
				return fresh, booking, nil
			}
		}
		return nil, nil, s.transitionError(ctx, id, err, model.IntentConfirmed)
	}

	s.publisher.IntentConfirmed(ctx, updated, booking)
	s.cfg.Log.Info("Booking intent confirmed",
		"id", id,
		"booking_id", booking.ID,
		"transaction_id", transactionID,
	)
	return updated, booking, nil
}

func (s *intentService) applyDefaults(intent *model.BookingIntent, now time.Time) {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	intent.CustomerID = sanitizer.NormalizeID(intent.CustomerID)
	intent.HostID = sanitizer.NormalizeID(intent.HostID)
	intent.ListingID = sanitizer.NormalizeID(intent.ListingID)
	intent.State = model.IntentActive
	intent.ExtensionCount = 0
	intent.StartDate = intent.StartDate.UTC().Truncate(24 * time.Hour)
	intent.EndDate = intent.EndDate.UTC().Truncate(24 * time.Hour)
	intent.CreatedAt = now.Truncate(time.Millisecond)
	intent.UpdatedAt = intent.CreatedAt
	intent.ExpiresAt = now.Add(s.cfg.LockDuration).Truncate(time.Millisecond)
}

func (s *intentService) getOwned(ctx context.Context, id string, customerID string) (*model.BookingIntent, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Intent ID cannot be empty")
	}

	intent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, intentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking intent", id)
		}
		return nil, apperrors.Internal("Failed to retrieve intent", err)
	}

	if customerID != "" && intent.CustomerID != sanitizer.NormalizeID(customerID) {
		return nil, apperrors.Forbidden("Intent belongs to a different customer")
	}

	return intent, nil
}

// finalizeExpired opportunistically flips a lapsed intent to expired and
// frees its locks. Best effort: a lost CAS means someone else finalized it
// first, which is just as good.
func (s *intentService) finalizeExpired(ctx context.Context, intent *model.BookingIntent) *model.BookingIntent {
	updated, err := s.repo.CompareAndSwapState(ctx, intent.ID, model.IntentActive, model.IntentExpired, repository.StateMutations{})
	if err != nil {
		if fresh, findErr := s.repo.FindByID(ctx, intent.ID); findErr == nil {
			return fresh
		}
		return intent
	}

	if _, err := s.lockRepo.ReleaseByIntent(ctx, intent.ID); err != nil {
		s.cfg.Log.Warn("Failed to release locks for expired intent", "intent_id", intent.ID, "error", err)
	}

	s.publisher.IntentExpired(ctx, updated)
	return updated
}

// transitionError maps a failed state transition to its API error. A stale
// CAS is reported with the state the intent actually reached, so callers
// can distinguish "cancelled under you" from "confirmed under you".
func (s *intentService) transitionError(ctx context.Context, id string, err error, attempted model.IntentState) error {
	if errors.Is(err, intentserrors.ErrExpired) {
		return apperrors.Expired("Intent lease has already expired")
	}
	if errors.Is(err, intentserrors.ErrStaleState) {
		fresh, findErr := s.repo.FindByID(ctx, id)
		if findErr == nil {
			return apperrors.StaleState(fmt.Sprintf(
				"Intent changed concurrently: now %s, could not transition to %s", fresh.State, attempted))
		}
		return apperrors.StaleState("Intent changed concurrently")
	}
	if errors.Is(err, intentserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking intent", id)
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Failed to transition intent", err)
}

func (s *intentService) conflictError(conflict *intentserrors.ConflictError, now time.Time) error {
	if conflict.Reason == intentserrors.ReasonExistingBooking {
		return apperrors.ConflictBooked()
	}
	return apperrors.ConflictLocked(conflict.RetryAfterSeconds(now))
}
