// Package availability decides which slots of a vehicle type are free for an interval.
package availability

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"time"

	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/model"
)

type SlotReader interface {
	FindByType(ctx context.Context, vehicleType model.VehicleType) ([]*model.Slot, error)
}

type BookingReader interface {
	ListOverlapping(ctx context.Context, slotID string, interval model.Interval) ([]*model.Booking, error)
}

type Availability struct {
	Available          []*model.Slot `json:"available"`
	UnavailableSlotIDs []string      `json:"unavailable_slot_ids"`
}

// AvailableIDs returns the ids of Available in display order.
func (a *Availability) AvailableIDs() []string {
	ids := make([]string, len(a.Available))
	for i, s := range a.Available {
		ids[i] = s.ID
	}
	return ids
}

type Engine struct {
	slots    SlotReader
	bookings BookingReader
}

func NewEngine(slots SlotReader, bookings BookingReader) *Engine {
	return &Engine{slots: slots, bookings: bookings}
}

// FindAvailableSlots reads the catalog and the overlapping part of the ledger and
// partitions the slots of vehicleType. It has no side effects.
func (e *Engine) FindAvailableSlots(ctx context.Context, vehicleType model.VehicleType, start, end time.Time) (*Availability, error) {
	if !vehicleType.Valid() {
		return nil, apperrors.InvalidRequest("Unknown vehicle type")
	}
	candidate := model.Interval{Start: start, End: end}
	if !candidate.Valid() {
		return nil, apperrors.InvalidRequest("Invalid date time chosen")
	}

	slots, err := e.slots.FindByType(ctx, vehicleType)
	if err != nil {
		return nil, apperrors.Internal("Failed to read slot catalog", err)
	}
	if len(slots) == 0 {
		return &Availability{Available: []*model.Slot{}, UnavailableSlotIDs: []string{}}, nil
	}

	bookings, err := e.bookings.ListOverlapping(ctx, "", candidate)
	if err != nil {
		return nil, apperrors.Internal("Failed to read booking ledger", err)
	}

	return Partition(slots, bookings, candidate), nil
}

// Partition splits slots into free and taken for candidate. A slot is taken when any
// booking on it conflicts with candidate under Interval.ConflictsWith. Bookings on
// slots outside the list are ignored.
func Partition(slots []*model.Slot, bookings []*model.Booking, candidate model.Interval) *Availability {
	taken := make(map[string]bool)
	for _, b := range bookings {
		if !taken[b.SlotID] && candidate.ConflictsWith(b.Interval()) {
			taken[b.SlotID] = true
		}
	}

	ordered := slices.Clone(slots)
	slices.SortStableFunc(ordered, func(a, b *model.Slot) int {
		return CompareNumbers(a.Number, b.Number)
	})

	result := &Availability{Available: []*model.Slot{}, UnavailableSlotIDs: []string{}}
	for _, s := range ordered {
		if taken[s.ID] {
			result.UnavailableSlotIDs = append(result.UnavailableSlotIDs, s.ID)
			continue
		}
		result.Available = append(result.Available, s)
	}
	return result
}

// CompareNumbers orders numeric labels numerically ("2" < "10") and everything else lexically.
func CompareNumbers(a, b string) int {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(ai, bi)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
