package service

import (
	"context"
	"stayd/internal/intents/repository"
	"stayd/pkg/client"
	"stayd/pkg/config"
	apperrors "stayd/pkg/errors"
	"stayd/pkg/model"
	"stayd/pkg/sanitizer"
	"time"
)

type AvailabilityService interface {
	Check(ctx context.Context, listingID string, customerID string, dates model.DateRange) (*model.Availability, error)
}

// availabilityService answers "can these dates be claimed right now". Pure
// read path: it never mutates intents or locks, and a lapsed lock counts as
// free even before the sweeper has reclaimed it.
type availabilityService struct {
	intents  repository.IntentRepository
	bookings repository.BookingRepository
	listings *client.ListingClient
	cfg      *config.Config
	now      func() time.Time
}

func NewAvailabilityService(
	intents repository.IntentRepository,
	bookings repository.BookingRepository,
	listings *client.ListingClient,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		intents:  intents,
		bookings: bookings,
		listings: listings,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *availabilityService) Check(ctx context.Context, listingID string, customerID string, dates model.DateRange) (*model.Availability, error) {
	if listingID == "" {
		return nil, apperrors.InvalidInput("Listing ID cannot be empty")
	}
	if !dates.Valid() {
		return nil, apperrors.InvalidInput("Invalid date range")
	}

	booked, err := s.bookings.FindOverlapping(ctx, listingID, dates)
	if err != nil {
		return nil, apperrors.Internal("Failed to check bookings", err)
	}
	if len(booked) > 0 {
		return &model.Availability{
			Available: false,
			Reason:    model.ReasonExistingBooking,
		}, nil
	}

	now := s.now().UTC()
	held, err := s.intents.FindActiveOverlapping(ctx, listingID, dates, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to check active intents", err)
	}
	// The caller's own live claim does not block them; they already hold
	// the range and should re-request the intent instead.
	retryAfter := 0
	foreign := false
	for _, intent := range held {
		if customerID != "" && intent.CustomerID == sanitizer.NormalizeID(customerID) {
			continue
		}
		foreign = true
		if remaining := intent.RemainingSeconds(now); remaining > retryAfter {
			retryAfter = remaining
		}
	}
	if foreign {
		return &model.Availability{
			Available:         false,
			Reason:            model.ReasonLockedByOther,
			RetryAfterSeconds: retryAfter,
		}, nil
	}

	availability := &model.Availability{Available: true}
	s.quotePricing(ctx, listingID, dates, availability)
	return availability, nil
}

// quotePricing enriches an available answer with a price quote. Best
// effort: availability is still a correct answer when the listing service
// is down.
func (s *availabilityService) quotePricing(ctx context.Context, listingID string, dates model.DateRange, availability *model.Availability) {
	if s.listings == nil {
		return
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		s.cfg.Log.Warn("Failed to fetch listing for price quote", "listing_id", listingID, "error", err)
		return
	}

	availability.NightlyPrice = listing.Price
	availability.TotalPrice = listing.Price * float64(dates.NightCount())
}
