package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "parkslot/internal/bookings/errors"
	slotserrors "parkslot/internal/slots/errors"
	"parkslot/pkg/config"
	mongodb "parkslot/pkg/db/mongo"
	"parkslot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Slots"

	// ledgerCollectionName is the bookings collection, read here only to count references.
	ledgerCollectionName = "Bookings"
)

// SlotLocker is the per-slot lock booking commits hold while they check and insert.
type SlotLocker interface {
	Acquire(ctx context.Context, slotID string) (release func(context.Context) error, err error)
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	ledger     *mongo.Collection
	locks      SlotLocker
}

func NewMongoSlotRepository(cfg *config.Config, locks SlotLocker) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		ledger:     db.Collection(ledgerCollectionName),
		locks:      locks,
	}
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return slotserrors.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByType(ctx context.Context, vehicleType model.VehicleType) ([]*model.Slot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	return r.find(ctx, typeFilter(vehicleType), opts)
}

func (r *mongoSlotRepository) FindAll(ctx context.Context, vehicleType model.VehicleType, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "type", Value: 1}, {Key: "number", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, typeFilter(vehicleType), opts)
}

func (r *mongoSlotRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Slot, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.Slot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) Count(ctx context.Context, vehicleType model.VehicleType) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, typeFilter(vehicleType))
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

// Update and Delete hold the slot's commit lock, so they cannot interleave with a booking
// commit on the same slot.
func (r *mongoSlotRepository) Update(ctx context.Context, id string, slot *model.Slot) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	return r.withSlotLock(ctx, id, func(ctx context.Context) error {
		var existing model.Slot
		if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&existing); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return slotserrors.ErrNotFound
			}
			return fmt.Errorf("failed to read slot: %w", err)
		}
		if slot.Type != existing.Type {
			if err := r.ensureUnreferenced(ctx, id); err != nil {
				return err
			}
		}

		update := bson.M{
			"$set": bson.M{
				"type":   slot.Type,
				"number": slot.Number,
			},
		}
		result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return slotserrors.ErrDuplicateNumber
			}
			return fmt.Errorf("failed to update slot: %w", err)
		}
		if result.MatchedCount == 0 {
			return slotserrors.ErrNotFound
		}
		return nil
	})
}

func (r *mongoSlotRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	return r.withSlotLock(ctx, id, func(ctx context.Context) error {
		if err := r.ensureUnreferenced(ctx, id); err != nil {
			return err
		}

		result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
		if err != nil {
			return fmt.Errorf("failed to delete slot: %w", err)
		}
		if result.DeletedCount == 0 {
			return slotserrors.ErrNotFound
		}
		return nil
	})
}

func (r *mongoSlotRepository) withSlotLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	release, err := r.locks.Acquire(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrSlotLocked) {
			return slotserrors.ErrBusy
		}
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
		defer cancel()
		if releaseErr := release(releaseCtx); releaseErr != nil {
			r.cfg.Log.Warn("Failed to release slot lock", "slot_id", id, "error", releaseErr)
		}
	}()

	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	return fn(ctx)
}

func (r *mongoSlotRepository) ensureUnreferenced(ctx context.Context, id string) error {
	n, err := r.ledger.CountDocuments(ctx, bson.M{"slot_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to count slot bookings: %w", err)
	}
	if n > 0 {
		return slotserrors.ErrReferenced
	}
	return nil
}

func typeFilter(vehicleType model.VehicleType) bson.M {
	if vehicleType == "" {
		return bson.M{}
	}
	return bson.M{"type": vehicleType}
}
