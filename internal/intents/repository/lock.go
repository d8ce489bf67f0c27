package repository

import (
	"context"
	"fmt"
	"stayd/pkg/config"
	"stayd/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LockCollectionName = "Intent_locks"
)

// LockRepository manages the per-night advisory lock buckets. One document
// per (listing, night); the unique _id is what makes acquisition atomic.
type LockRepository interface {
	InsertBuckets(ctx context.Context, locks []*model.IntentLock) error
	FindActiveOverlapping(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.IntentLock, error)
	PurgeExpired(ctx context.Context, listingID string, dates model.DateRange, now time.Time) (int64, error)
	ExtendByIntent(ctx context.Context, intentID string, expiresAt time.Time) (int64, error)
	ReleaseByIntent(ctx context.Context, intentID string) (int64, error)
}

type mongoLockRepository struct {
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// InsertBuckets inserts one lock document per night, ordered. The unique _id
// constraint turns a concurrent double-acquire into a duplicate key error,
// which the caller translates into a conflict.
func (r *mongoLockRepository) InsertBuckets(ctx context.Context, locks []*model.IntentLock) error {
	docs := make([]interface{}, len(locks))
	for i, lock := range locks {
		docs[i] = lock
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

func (r *mongoLockRepository) FindActiveOverlapping(ctx context.Context, listingID string, dates model.DateRange, now time.Time) ([]*model.IntentLock, error) {
	filter := bson.M{
		"_id":        bson.M{"$in": bucketIDs(listingID, dates)},
		"expires_at": bson.M{"$gt": now},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find lock buckets: %w", err)
	}
	defer cursor.Close(ctx)

	var locks []*model.IntentLock
	if err = cursor.All(ctx, &locks); err != nil {
		return nil, fmt.Errorf("failed to decode lock buckets: %w", err)
	}

	return locks, nil
}

// PurgeExpired removes lapsed buckets in the range so a fresh acquisition
// can re-insert them. Lapsed buckets are dead weight either way; the TTL
// index cleans them eventually, this cleans them on demand.
func (r *mongoLockRepository) PurgeExpired(ctx context.Context, listingID string, dates model.DateRange, now time.Time) (int64, error) {
	filter := bson.M{
		"_id":        bson.M{"$in": bucketIDs(listingID, dates)},
		"expires_at": bson.M{"$lte": now},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired lock buckets: %w", err)
	}

	return result.DeletedCount, nil
}

// ExtendByIntent pushes the expiry of every bucket the intent holds. Must
// track the intent's own expires_at or the TTL index reclaims the buckets
// while the lease is still live.
func (r *mongoLockRepository) ExtendByIntent(ctx context.Context, intentID string, expiresAt time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"intent_id": intentID},
		bson.M{"$set": bson.M{"expires_at": expiresAt}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to extend locks for intent %s: %w", intentID, err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoLockRepository) ReleaseByIntent(ctx context.Context, intentID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"intent_id": intentID})
	if err != nil {
		return 0, fmt.Errorf("failed to release locks for intent %s: %w", intentID, err)
	}

	return result.DeletedCount, nil
}

func bucketIDs(listingID string, dates model.DateRange) []string {
	nights := dates.Nights()
	ids := make([]string, len(nights))
	for i, night := range nights {
		ids[i] = model.LockBucketID(listingID, night)
	}
	return ids
}
