package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "parkslot/internal/bookings/errors"
	"parkslot/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const SlotLockCollectionName = "Slot_locks"

// SlotLockRepository provides advisory per-slot commit locks backed by a unique _id.
type SlotLockRepository interface {
	// Acquire retries with linear backoff and returns ErrSlotLocked once the budget is spent.
	// The returned release deletes the lock only while this caller still owns it.
	Acquire(ctx context.Context, slotID string) (release func(context.Context) error, err error)
}

type mongoSlotLockRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
	retries    int
	backoff    time.Duration
	now        func() time.Time
}

func NewSlotLockRepository(db *mongo.Database, ttl time.Duration, retries int, backoff time.Duration) SlotLockRepository {
	return &mongoSlotLockRepository{
		collection: db.Collection(SlotLockCollectionName),
		ttl:        ttl,
		retries:    retries,
		backoff:    backoff,
		now:        time.Now,
	}
}

func (r *mongoSlotLockRepository) Acquire(ctx context.Context, slotID string) (func(context.Context) error, error) {
	lockID := model.SlotLockID(slotID)
	owner := uuid.NewString()

	for attempt := 0; ; attempt++ {
		now := r.now().UTC()
		lock := &model.SlotLock{
			ID:        lockID,
			SlotID:    slotID,
			Owner:     owner,
			ExpiresAt: now.Add(r.ttl),
			CreatedAt: now,
		}

		_, err := r.collection.InsertOne(ctx, lock)
		if err == nil {
			return func(ctx context.Context) error {
				_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner})
				return err
			}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to acquire slot lock: %w", err)
		}

		// the TTL monitor only runs once a minute, so reclaim abandoned locks here
		if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lte": now}}); err != nil {
			return nil, fmt.Errorf("failed to reclaim expired slot lock: %w", err)
		}

		if attempt >= r.retries {
			return nil, bookingserrors.ErrSlotLocked
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, bookingserrors.ErrSlotLocked
			}
			return nil, ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt+1)):
		}
	}
}
