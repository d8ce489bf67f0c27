package service

import (
	"context"
	"fmt"
	"stayd/internal/intents/repository"
	"stayd/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// Materializer converts a confirmed intent into the durable booking record.
// The booking carries the intent's ID, and the unique index on intent_id
// makes a replayed materialization converge on the original booking instead
// of minting a second one.
type Materializer struct {
	bookings repository.BookingRepository
}

func NewMaterializer(bookings repository.BookingRepository) *Materializer {
	return &Materializer{bookings: bookings}
}

func (m *Materializer) Materialize(ctx context.Context, intent *model.BookingIntent, transactionID string) (*model.Booking, error) {
	booking := &model.Booking{
		ID:            uuid.NewString(),
		IntentID:      intent.ID,
		CustomerID:    intent.CustomerID,
		HostID:        intent.HostID,
		ListingID:     intent.ListingID,
		BookingType:   intent.BookingType,
		StartDate:     intent.StartDate,
		EndDate:       intent.EndDate,
		Pricing:       intent.Pricing,
		TransactionID: transactionID,
	}

	err := m.bookings.Create(ctx, booking)
	if err == nil {
		return booking, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		existing, findErr := m.bookings.FindByIntentID(ctx, intent.ID)
		if findErr != nil {
			return nil, fmt.Errorf("booking exists for intent %s but could not be read: %w", intent.ID, findErr)
		}
		return existing, nil
	}

	return nil, err
}
