package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "parkslot/internal/bookings/errors"
	slotsrepository "parkslot/internal/slots/repository"
	"parkslot/pkg/config"
	mongodb "parkslot/pkg/db/mongo"
	"parkslot/pkg/metrics"
	"parkslot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	slots      *mongo.Collection
	txManager  mongodb.TransactionManager
	locks      SlotLockRepository
	metrics    *metrics.Metrics
}

func NewMongoBookingRepository(cfg *config.Config, locks SlotLockRepository, m *metrics.Metrics) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		slots:      db.Collection(slotsrepository.CollectionName),
		txManager:  mongodb.NewTransactionManager(cfg.Client.Mongo),
		locks:      locks,
		metrics:    m,
	}
}

func (r *mongoBookingRepository) InsertIfNoConflict(ctx context.Context, booking *model.Booking) error {
	slotOID, err := primitive.ObjectIDFromHex(booking.SlotID)
	if err != nil {
		return bookingserrors.ErrSlotNotFound
	}

	waitStart := time.Now()
	release, err := r.locks.Acquire(ctx, booking.SlotID)
	r.metrics.SlotLockWait(time.Since(waitStart))
	if err != nil {
		return err
	}
	defer func() {
		// release on a fresh context so a cancelled request still frees the slot
		releaseCtx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
		defer cancel()
		if releaseErr := release(releaseCtx); releaseErr != nil {
			r.cfg.Log.Warn("Failed to release slot lock", "slot_id", booking.SlotID, "error", releaseErr)
		}
	}()

	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var slot model.Slot
		if err := r.slots.FindOne(sessCtx, bson.M{"_id": slotOID}).Decode(&slot); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return bookingserrors.ErrSlotNotFound
			}
			return fmt.Errorf("failed to read slot: %w", err)
		}
		if slot.Type != booking.VehicleType {
			return bookingserrors.ErrSlotTypeChanged
		}

		existing, err := r.ListOverlapping(sessCtx, booking.SlotID, booking.Interval())
		if err != nil {
			return err
		}
		if firstConflict(booking.Interval(), existing) != nil {
			return bookingserrors.ErrSlotUnavailable
		}

		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
		result, err := r.collection.InsertOne(sessCtx, booking)
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
			booking.ID = oid.Hex()
		}
		return nil
	})
}

func (r *mongoBookingRepository) ListOverlapping(ctx context.Context, slotID string, interval model.Interval) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"start_time": bson.M{"$lt": interval.End},
		"end_time":   bson.M{"$gt": interval.Start},
	}
	if slotID != "" {
		filter["slot_id"] = slotID
	}

	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, buildSearchFilter(filter), opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildSearchFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	return r.Count(ctx, Filter{SlotID: slotID})
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func buildSearchFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.SlotID != "" {
		filter["slot_id"] = f.SlotID
	}
	if f.From != nil {
		filter["end_time"] = bson.M{"$gt": *f.From}
	}
	if f.To != nil {
		filter["start_time"] = bson.M{"$lt": *f.To}
	}
	return filter
}
