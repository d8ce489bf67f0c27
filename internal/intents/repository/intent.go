package repository

import (
	"context"
	"errors"
	"fmt"
	intentserrors "stayd/internal/intents/errors"
	"stayd/pkg/config"
	mongotx "stayd/pkg/db/mongo"
	"stayd/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	IntentCollectionName = "Booking_intents"
)

// StateMutations carries the optional field updates that ride along with a
// state transition. Nil pointers mean "leave unchanged".
type StateMutations struct {
	ExpiresAt     *time.Time
	CancelReason  *string
	TransactionID *string

	// ExpectedExtensionCount, when set, is added to the CAS filter so two
	// concurrent extensions cannot both count as one.
	ExpectedExtensionCount *int
	IncrementExtensions    bool

	// RequireUnexpired adds a live-lease condition to the CAS filter,
	// evaluated against the server clock at the moment of the write. Confirm
	// and extend set it: a lease that lapsed after the caller's read must not
	// commit, because another customer may already have reacquired the range.
	RequireUnexpired bool
}

type IntentRepository interface {
	TryAcquire(ctx context.Context, intent *model.BookingIntent, now time.Time) (*model.BookingIntent, error)
	CompareAndSwapState(ctx context.Context, id string, expected model.IntentState, next model.IntentState, muts StateMutations) (*model.BookingIntent, error)
	FindByID(ctx context.Context, id string) (*model.BookingIntent, error)
	FindActiveByCustomerAndListing(ctx context.Context, customerID string, listingID string) ([]*model.BookingIntent, error)
	FindActiveOverlapping(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.BookingIntent, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.BookingIntent, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoIntentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	locks      LockRepository
	bookings   BookingRepository
	txManager  mongotx.TransactionManager
}

func NewMongoIntentRepository(cfg *config.Config, locks LockRepository, bookings BookingRepository) IntentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoIntentRepository{
		cfg:        cfg,
		collection: db.Collection(IntentCollectionName),
		locks:      locks,
		bookings:   bookings,
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction. A SessionContext cannot be wrapped without breaking
// transaction semantics, so it is returned unchanged with a no-op cancel.
func (r *mongoIntentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// TryAcquire claims every night in the intent's range and persists the
// intent, all inside one transaction. Order matters: the booking overlap
// check rejects permanently-taken dates first, then live locks are checked,
// lapsed buckets are purged, and finally the insert of fresh buckets is
// what actually serializes racing customers. A duplicate key error here
// means another transaction inserted a bucket between our check and our
// insert; it is reported as a lock conflict, never as an internal error.
func (r *mongoIntentRepository) TryAcquire(ctx context.Context, intent *model.BookingIntent, now time.Time) (*model.BookingIntent, error) {
	var acquired *model.BookingIntent

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		dates := intent.Range()

		existing, err := r.findActiveForCustomer(sessCtx, intent, now)
		if err != nil {
			return err
		}
		if existing != nil {
			acquired = existing
			return nil
		}

		booked, err := r.bookings.FindOverlapping(sessCtx, intent.ListingID, dates)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return &intentserrors.ConflictError{Reason: intentserrors.ReasonExistingBooking}
		}

		held, err := r.locks.FindActiveOverlapping(sessCtx, intent.ListingID, dates, now)
		if err != nil {
			return err
		}
		if len(held) > 0 {
			return &intentserrors.ConflictError{
				Reason:      intentserrors.ReasonLockedByOther,
				LockedUntil: latestExpiry(held),
			}
		}

		if _, err = r.locks.PurgeExpired(sessCtx, intent.ListingID, dates, now); err != nil {
			return err
		}

		if err = r.locks.InsertBuckets(sessCtx, lockBuckets(intent)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return &intentserrors.ConflictError{
					Reason:      intentserrors.ReasonLockedByOther,
					LockedUntil: intent.ExpiresAt,
				}
			}
			return fmt.Errorf("failed to insert lock buckets: %w", err)
		}

		if _, err = r.collection.InsertOne(sessCtx, intent); err != nil {
			return fmt.Errorf("failed to insert intent: %w", err)
		}

		acquired = intent
		return nil
	})
	if err != nil {
		return nil, err
	}

	return acquired, nil
}

// findActiveForCustomer returns the caller's own live intent on the listing,
// if one exists, regardless of the requested range. A customer holds at most
// one live claim per listing; re-requesting hands that claim back instead of
// self-conflicting.
func (r *mongoIntentRepository) findActiveForCustomer(ctx context.Context, intent *model.BookingIntent, now time.Time) (*model.BookingIntent, error) {
	filter := bson.M{
		"customer_id": intent.CustomerID,
		"listing_id":  intent.ListingID,
		"state":       model.IntentActive,
		"expires_at":  bson.M{"$gt": now},
	}

	var existing model.BookingIntent
	err := r.collection.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check for existing intent: %w", err)
	}

	return &existing, nil
}

// CompareAndSwapState transitions the intent only if it is still in the
// expected state. The expected state rides in the update filter, so a lost
// race surfaces as zero matched documents rather than a silent overwrite.
func (r *mongoIntentRepository) CompareAndSwapState(ctx context.Context, id string, expected model.IntentState, next model.IntentState, muts StateMutations) (*model.BookingIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "state": expected}
	if muts.ExpectedExtensionCount != nil {
		filter["extension_count"] = *muts.ExpectedExtensionCount
	}
	if muts.RequireUnexpired {
		// $$NOW is the server's clock when the update executes, so the
		// guard holds even if the lease lapses between our read and this
		// write.
		filter["$expr"] = bson.M{"$gt": bson.A{"$expires_at", "$$NOW"}}
	}

	set := bson.M{
		"state":      next,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if muts.ExpiresAt != nil {
		set["expires_at"] = *muts.ExpiresAt
	}
	if muts.CancelReason != nil {
		set["cancel_reason"] = *muts.CancelReason
	}
	if muts.TransactionID != nil {
		set["transaction_id"] = *muts.TransactionID
	}

	update := bson.M{"$set": set}
	if muts.IncrementExtensions {
		update["$inc"] = bson.M{"extension_count": 1}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.BookingIntent
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition intent: %w", err)
	}

	// Filter missed. Distinguish "gone" from "lease lapsed" from "state
	// moved under us".
	fresh, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	if fresh.State == expected {
		if muts.ExpectedExtensionCount != nil && fresh.ExtensionCount != *muts.ExpectedExtensionCount {
			return nil, intentserrors.ErrStaleState
		}
		if muts.RequireUnexpired {
			return nil, intentserrors.ErrExpired
		}
	}
	return nil, intentserrors.ErrStaleState
}

func (r *mongoIntentRepository) FindByID(ctx context.Context, id string) (*model.BookingIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var intent model.BookingIntent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, intentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find intent: %w", err)
	}

	return &intent, nil
}

func (r *mongoIntentRepository) FindActiveByCustomerAndListing(ctx context.Context, customerID string, listingID string) ([]*model.BookingIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"customer_id": customerID,
		"state":       model.IntentActive,
	}
	if listingID != "" {
		filter["listing_id"] = listingID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active intents: %w", err)
	}
	defer cursor.Close(ctx)

	var intents []*model.BookingIntent
	if err = cursor.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}

	return intents, nil
}

func (r *mongoIntentRepository) FindActiveOverlapping(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.BookingIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"listing_id": listingID,
		"state":      model.IntentActive,
		"expires_at": bson.M{"$gt": now},
		"start_date": bson.M{"$lt": dates.End},
		"end_date":   bson.M{"$gt": dates.Start},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping intents: %w", err)
	}
	defer cursor.Close(ctx)

	var intents []*model.BookingIntent
	if err = cursor.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}

	return intents, nil
}

// FindExpired returns active intents whose lease has lapsed, oldest first,
// capped so a single sweep never holds a cursor over the whole collection.
func (r *mongoIntentRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.BookingIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"state":      model.IntentActive,
		"expires_at": bson.M{"$lte": now},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired intents: %w", err)
	}
	defer cursor.Close(ctx)

	var intents []*model.BookingIntent
	if err = cursor.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}

	return intents, nil
}

// DeleteTerminalBefore removes terminal intents last touched before the
// cutoff. Confirmed intents are kept; the booking record carries the
// intent_id back-reference, but the intent itself is the audit trail for
// the confirmation.
func (r *mongoIntentRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"state":      bson.M{"$in": []model.IntentState{model.IntentCancelled, model.IntentExpired}},
		"updated_at": bson.M{"$lt": cutoff},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal intents: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *mongoIntentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func lockBuckets(intent *model.BookingIntent) []*model.IntentLock {
	nights := intent.Range().Nights()
	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	locks := make([]*model.IntentLock, len(nights))
	for i, night := range nights {
		locks[i] = &model.IntentLock{
			ID:         model.LockBucketID(intent.ListingID, night),
			IntentID:   intent.ID,
			ListingID:  intent.ListingID,
			CustomerID: intent.CustomerID,
			ExpiresAt:  intent.ExpiresAt,
			CreatedAt:  createdAt,
		}
	}
	return locks
}

func latestExpiry(locks []*model.IntentLock) time.Time {
	var latest time.Time
	for _, lock := range locks {
		if lock.ExpiresAt.After(latest) {
			latest = lock.ExpiresAt
		}
	}
	return latest
}
