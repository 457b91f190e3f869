package repository

import (
	"context"
	"time"

	"parkslot/pkg/model"
)

// Filter narrows ledger listings. Zero fields do not filter.
type Filter struct {
	UserID string
	SlotID string
	From   *time.Time
	To     *time.Time
}

// BookingRepository is the booking ledger.
//
// InsertIfNoConflict re-runs the overlap rule and appends the booking in one atomic
// unit per slot; it returns ErrSlotUnavailable when an existing booking conflicts.
// ListOverlapping returns every booking whose interval intersects the given one, on
// slotID or on any slot when slotID is empty. Callers apply the exact conflict rule.
type BookingRepository interface {
	InsertIfNoConflict(ctx context.Context, booking *model.Booking) error
	ListOverlapping(ctx context.Context, slotID string, interval model.Interval) ([]*model.Booking, error)
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	CountBySlot(ctx context.Context, slotID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

func firstConflict(candidate model.Interval, existing []*model.Booking) *model.Booking {
	for _, b := range existing {
		if candidate.ConflictsWith(b.Interval()) {
			return b
		}
	}
	return nil
}

func (f Filter) matches(b *model.Booking) bool {
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.SlotID != "" && b.SlotID != f.SlotID {
		return false
	}
	if f.From != nil && !b.EndTime.After(*f.From) {
		return false
	}
	if f.To != nil && !b.StartTime.Before(*f.To) {
		return false
	}
	return true
}
