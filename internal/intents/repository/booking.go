package repository

import (
	"context"
	"errors"
	"fmt"
	intentserrors "stayd/internal/intents/errors"
	"stayd/pkg/config"
	"stayd/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	BookingCollectionName = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByIntentID(ctx context.Context, intentID string) (*model.Booking, error)
	FindOverlapping(ctx context.Context, listingID string, dates model.DateRange) ([]*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(BookingCollectionName),
	}
}

// Create inserts the materialized booking. The unique index on intent_id
// means a retried materialization hits a duplicate key error; the caller
// treats that as already-done and re-reads.
func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, intentserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByIntentID(ctx context.Context, intentID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"intent_id": intentID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, intentserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking by intent: %w", err)
	}

	return &booking, nil
}

// FindOverlapping returns confirmed bookings whose half-open night range
// intersects the given one.
func (r *mongoBookingRepository) FindOverlapping(ctx context.Context, listingID string, dates model.DateRange) ([]*model.Booking, error) {
	filter := bson.M{
		"listing_id": listingID,
		"start_date": bson.M{"$lt": dates.End},
		"end_date":   bson.M{"$gt": dates.Start},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}
