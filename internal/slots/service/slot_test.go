package service

import (
	"context"
	"errors"
	"testing"
	"time"

	slotserrors "parkslot/internal/slots/errors"
	"parkslot/internal/slots/repository"
	"parkslot/internal/slots/validator"
	"parkslot/pkg/config"
	"parkslot/pkg/db/memory"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/logger"
	"parkslot/pkg/model"
)

type testEnv struct {
	svc   SlotService
	arena *memory.Arena
}

func newTestEnv() *testEnv {
	log := logger.Discard()
	arena := memory.NewArena()
	return &testEnv{
		svc:   NewSlotService(repository.NewMemorySlotRepository(arena), validator.NewSlotValidator(log), &config.Config{Log: log}),
		arena: arena,
	}
}

func (e *testEnv) book(slot *model.Slot) string {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return e.arena.Bookings.Insert(func(id string) model.Booking {
		return model.Booking{ID: id, SlotID: slot.ID, UserID: "u-1", VehicleType: slot.Type, StartTime: start, EndTime: start.Add(time.Hour)}
	})
}

// failingRepo fails every write with err.
type failingRepo struct {
	repository.SlotRepository
	err error
}

func (r *failingRepo) Update(ctx context.Context, id string, slot *model.Slot) error { return r.err }
func (r *failingRepo) Delete(ctx context.Context, id string) error                   { return r.err }

func TestSlotService_Create(t *testing.T) {
	ctx := context.Background()
	svc := newTestEnv().svc

	slot := &model.Slot{ID: "client-chosen", Type: model.FourWheeler, Number: " a 12 "}
	if err := svc.Create(ctx, slot); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if slot.ID == "" || slot.ID == "client-chosen" {
		t.Errorf("id = %q, want a store-assigned id", slot.ID)
	}
	if slot.Number != "A12" {
		t.Errorf("number = %q, want A12", slot.Number)
	}

	err := svc.Create(ctx, &model.Slot{Type: model.FourWheeler, Number: "a12"})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("duplicate number: %v", err)
	}

	if err := svc.Create(ctx, &model.Slot{Type: model.TwoWheeler, Number: "A12"}); err != nil {
		t.Errorf("same number, other type: %v", err)
	}

	err = svc.Create(ctx, &model.Slot{Type: "Bus", Number: "9"})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("unknown type: %v", err)
	}
}

func TestSlotService_DeleteAndRetype(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := env.svc

	slot := &model.Slot{Type: model.FourWheeler, Number: "7"}
	if err := svc.Create(ctx, slot); err != nil {
		t.Fatalf("Create: %v", err)
	}
	bookingID := env.book(slot)

	twoWheeler := model.TwoWheeler
	if _, err := svc.Update(ctx, slot.ID, &model.SlotUpdate{Type: &twoWheeler}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("retype with bookings: %v", err)
	}
	updated, err := svc.Update(ctx, slot.ID, &model.SlotUpdate{Number: "7b"})
	if err != nil {
		t.Fatalf("renumber with bookings: %v", err)
	}
	if updated.Number != "7B" || updated.Type != model.FourWheeler {
		t.Errorf("updated = %+v", updated)
	}

	if err := svc.Delete(ctx, slot.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("delete with bookings: %v", err)
	}

	env.arena.Bookings.Delete(bookingID)
	if err := svc.Delete(ctx, slot.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, slot.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("GetByID after delete: %v", err)
	}
}

func TestSlotService_WriteErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	slot := &model.Slot{Type: model.TwoWheeler, Number: "1"}
	if err := env.svc.Create(ctx, slot); err != nil {
		t.Fatalf("Create: %v", err)
	}
	boom := errors.New("ledger offline")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"locked by a booking", slotserrors.ErrBusy, apperrors.CodeConflict},
		{"referenced", slotserrors.ErrReferenced, apperrors.CodeConflict},
		{"vanished", slotserrors.ErrNotFound, apperrors.CodeNotFound},
		{"store failure", boom, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.Discard()
			repo := &failingRepo{SlotRepository: repository.NewMemorySlotRepository(env.arena), err: tt.err}
			svc := NewSlotService(repo, validator.NewSlotValidator(log), &config.Config{Log: log})

			if err := svc.Delete(ctx, slot.ID); !apperrors.HasCode(err, tt.want) {
				t.Errorf("Delete: %v, want %s", err, tt.want)
			}
			twoWheeler := model.TwoWheeler
			if _, err := svc.Update(ctx, slot.ID, &model.SlotUpdate{Type: &twoWheeler, Number: "2"}); !apperrors.HasCode(err, tt.want) {
				t.Errorf("Update: %v, want %s", err, tt.want)
			}
		})
	}
}

func TestSlotService_GetAll(t *testing.T) {
	ctx := context.Background()
	svc := newTestEnv().svc
	for _, s := range []model.Slot{
		{Type: model.TwoWheeler, Number: "1"},
		{Type: model.TwoWheeler, Number: "2"},
		{Type: model.FourWheeler, Number: "1"},
	} {
		s := s
		if err := svc.Create(ctx, &s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	slots, total, err := svc.GetAll(ctx, model.TwoWheeler, 1, 0)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if total != 2 || len(slots) != 1 {
		t.Errorf("total = %d, page = %d, want 2 and 1", total, len(slots))
	}

	_, total, _ = svc.GetAll(ctx, "", 10, 0)
	if total != 3 {
		t.Errorf("unfiltered total = %d, want 3", total)
	}
}
