package repository

import (
	"context"
	"slices"
	"time"

	bookingserrors "parkslot/internal/bookings/errors"
	"parkslot/pkg/db/memory"
	"parkslot/pkg/model"
)

type memoryBookingRepository struct {
	arena *memory.Arena
}

func NewMemoryBookingRepository(arena *memory.Arena) BookingRepository {
	return &memoryBookingRepository{arena: arena}
}

func (r *memoryBookingRepository) InsertIfNoConflict(ctx context.Context, booking *model.Booking) error {
	unlock := r.arena.LockSlot(booking.SlotID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	slot, ok := r.arena.Slots.Get(booking.SlotID)
	if !ok {
		return bookingserrors.ErrSlotNotFound
	}
	if slot.Type != booking.VehicleType {
		return bookingserrors.ErrSlotTypeChanged
	}

	existing, err := r.ListOverlapping(ctx, booking.SlotID, booking.Interval())
	if err != nil {
		return err
	}
	if firstConflict(booking.Interval(), existing) != nil {
		return bookingserrors.ErrSlotUnavailable
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	booking.ID = r.arena.Bookings.Insert(func(id string) model.Booking {
		row := *booking
		row.ID = id
		return row
	})
	return nil
}

func (r *memoryBookingRepository) ListOverlapping(_ context.Context, slotID string, interval model.Interval) ([]*model.Booking, error) {
	rows := r.arena.Bookings.Select(func(b model.Booking) bool {
		return (slotID == "" || b.SlotID == slotID) && b.Interval().Overlaps(interval)
	})
	return toPointers(rows), nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	row, ok := r.arena.Bookings.Get(id)
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &row, nil
}

func (r *memoryBookingRepository) FindAll(_ context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error) {
	rows := r.arena.Bookings.Select(func(b model.Booking) bool { return filter.matches(&b) })
	slices.SortStableFunc(rows, func(a, b model.Booking) int {
		return b.StartTime.Compare(a.StartTime)
	})
	return toPointers(memory.Paginate(rows, limit, offset)), nil
}

func (r *memoryBookingRepository) Count(_ context.Context, filter Filter) (int64, error) {
	rows := r.arena.Bookings.Select(func(b model.Booking) bool { return filter.matches(&b) })
	return int64(len(rows)), nil
}

func (r *memoryBookingRepository) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	return r.Count(ctx, Filter{SlotID: slotID})
}

func (r *memoryBookingRepository) Delete(_ context.Context, id string) error {
	if !r.arena.Bookings.Delete(id) {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func toPointers(rows []model.Booking) []*model.Booking {
	out := make([]*model.Booking, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
