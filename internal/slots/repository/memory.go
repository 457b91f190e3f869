package repository

import (
	"context"
	"strings"
	"time"

	slotserrors "parkslot/internal/slots/errors"
	"parkslot/pkg/db/memory"
	"parkslot/pkg/model"
)

type memorySlotRepository struct {
	arena *memory.Arena
}

func NewMemorySlotRepository(arena *memory.Arena) SlotRepository {
	return &memorySlotRepository{arena: arena}
}

func (r *memorySlotRepository) Create(_ context.Context, slot *model.Slot) error {
	unlock := r.arena.LockCatalog()
	defer unlock()

	if r.numberTaken(slot.Type, slot.Number, "") {
		return slotserrors.ErrDuplicateNumber
	}

	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	slot.ID = r.arena.Slots.Insert(func(id string) model.Slot {
		row := *slot
		row.ID = id
		return row
	})
	return nil
}

func (r *memorySlotRepository) FindByID(_ context.Context, id string) (*model.Slot, error) {
	row, ok := r.arena.Slots.Get(id)
	if !ok {
		return nil, slotserrors.ErrNotFound
	}
	return &row, nil
}

func (r *memorySlotRepository) FindByType(_ context.Context, vehicleType model.VehicleType) ([]*model.Slot, error) {
	return toPointers(r.arena.Slots.Select(byType(vehicleType))), nil
}

func (r *memorySlotRepository) FindAll(_ context.Context, vehicleType model.VehicleType, limit int, offset int64) ([]*model.Slot, error) {
	rows := r.arena.Slots.Select(byType(vehicleType))
	return toPointers(memory.Paginate(rows, limit, offset)), nil
}

func (r *memorySlotRepository) Count(_ context.Context, vehicleType model.VehicleType) (int64, error) {
	return int64(len(r.arena.Slots.Select(byType(vehicleType)))), nil
}

// Update holds the slot's commit lock, so a type change cannot interleave with a booking commit.
func (r *memorySlotRepository) Update(_ context.Context, id string, slot *model.Slot) error {
	unlockSlot := r.arena.LockSlot(id)
	defer unlockSlot()
	unlockCatalog := r.arena.LockCatalog()
	defer unlockCatalog()

	existing, ok := r.arena.Slots.Get(id)
	if !ok {
		return slotserrors.ErrNotFound
	}
	if slot.Type != existing.Type && r.referenced(id) {
		return slotserrors.ErrReferenced
	}
	if r.numberTaken(slot.Type, slot.Number, id) {
		return slotserrors.ErrDuplicateNumber
	}

	existing.Type = slot.Type
	existing.Number = slot.Number
	if !r.arena.Slots.Replace(id, existing) {
		return slotserrors.ErrNotFound
	}
	return nil
}

func (r *memorySlotRepository) Delete(_ context.Context, id string) error {
	unlock := r.arena.LockSlot(id)
	defer unlock()

	if _, ok := r.arena.Slots.Get(id); !ok {
		return slotserrors.ErrNotFound
	}
	if r.referenced(id) {
		return slotserrors.ErrReferenced
	}
	if !r.arena.Slots.Delete(id) {
		return slotserrors.ErrNotFound
	}
	return nil
}

func (r *memorySlotRepository) referenced(id string) bool {
	rows := r.arena.Bookings.Select(func(b model.Booking) bool { return b.SlotID == id })
	return len(rows) > 0
}

func (r *memorySlotRepository) numberTaken(vehicleType model.VehicleType, number, exceptID string) bool {
	matches := r.arena.Slots.Select(func(s model.Slot) bool {
		return s.ID != exceptID && s.Type == vehicleType && strings.EqualFold(s.Number, number)
	})
	return len(matches) > 0
}

func byType(vehicleType model.VehicleType) func(model.Slot) bool {
	if vehicleType == "" {
		return nil
	}
	return func(s model.Slot) bool { return s.Type == vehicleType }
}

func toPointers(rows []model.Slot) []*model.Slot {
	out := make([]*model.Slot, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
