package availability

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"testing"
	"time"

	bookingsrepository "parkslot/internal/bookings/repository"
	slotsrepository "parkslot/internal/slots/repository"
	"parkslot/pkg/db/memory"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/model"
)

func today(hour, minute int) time.Time {
	return time.Date(2025, 6, 1, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	arena  *memory.Arena
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	arena := memory.NewArena()
	return &fixture{
		arena: arena,
		engine: NewEngine(
			slotsrepository.NewMemorySlotRepository(arena),
			bookingsrepository.NewMemoryBookingRepository(arena),
		),
	}
}

func (f *fixture) addSlot(t *testing.T, vt model.VehicleType, number string) string {
	t.Helper()
	return f.arena.Slots.Insert(func(id string) model.Slot {
		return model.Slot{ID: id, Type: vt, Number: number}
	})
}

func (f *fixture) addBooking(slotID string, vt model.VehicleType, start, end time.Time) {
	f.arena.Bookings.Insert(func(id string) model.Booking {
		return model.Booking{ID: id, SlotID: slotID, UserID: "u", VehicleType: vt, StartTime: start, EndTime: end}
	})
}

func TestFindAvailableSlots_NestedStartExcluded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot1 := f.addSlot(t, model.FourWheeler, "1")

	got, err := f.engine.FindAvailableSlots(ctx, model.FourWheeler, today(10, 0), today(11, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Available) != 1 || got.Available[0].ID != slot1 {
		t.Fatalf("expected slot %s free, got %+v", slot1, got)
	}

	f.addBooking(slot1, model.FourWheeler, today(10, 0), today(11, 0))

	got, err = f.engine.FindAvailableSlots(ctx, model.FourWheeler, today(10, 0), today(10, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Available) != 0 {
		t.Errorf("expected no free slot, got %+v", got.Available)
	}
	if !slices.Equal(got.UnavailableSlotIDs, []string{slot1}) {
		t.Errorf("expected %s reported unavailable, got %v", slot1, got.UnavailableSlotIDs)
	}
}

func TestFindAvailableSlots_FiltersByType(t *testing.T) {
	f := newFixture(t)
	two := f.addSlot(t, model.TwoWheeler, "1")
	four := f.addSlot(t, model.FourWheeler, "1")
	// a booking on the two-wheeler slot must not affect four-wheeler availability
	f.addBooking(two, model.TwoWheeler, today(10, 0), today(11, 0))

	got, err := f.engine.FindAvailableSlots(context.Background(), model.FourWheeler, today(10, 0), today(11, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Available) != 1 || got.Available[0].ID != four {
		t.Errorf("expected only %s, got %+v", four, got.Available)
	}
	if len(got.UnavailableSlotIDs) != 0 {
		t.Errorf("expected no unavailable four-wheeler slots, got %v", got.UnavailableSlotIDs)
	}
}

func TestFindAvailableSlots_InvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		vt    model.VehicleType
		start time.Time
		end   time.Time
	}{
		{"end before start", model.FourWheeler, today(11, 0), today(10, 0)},
		{"empty interval", model.FourWheeler, today(10, 0), today(10, 0)},
		{"unknown type", "Truck", today(10, 0), today(11, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.FindAvailableSlots(context.Background(), tt.vt, tt.start, tt.end)
			if !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
				t.Errorf("expected INVALID_REQUEST, got %v", err)
			}
		})
	}
}

type failingBookings struct{}

func (failingBookings) ListOverlapping(context.Context, string, model.Interval) ([]*model.Booking, error) {
	return nil, errors.New("connection reset")
}

func TestFindAvailableSlots_LedgerFailure(t *testing.T) {
	arena := memory.NewArena()
	arena.Slots.Insert(func(id string) model.Slot { return model.Slot{ID: id, Type: model.TwoWheeler, Number: "1"} })
	engine := NewEngine(slotsrepository.NewMemorySlotRepository(arena), failingBookings{})

	_, err := engine.FindAvailableSlots(context.Background(), model.TwoWheeler, today(10, 0), today(11, 0))
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected INTERNAL_ERROR, got %v", err)
	}
}

func TestPartition_NeverReturnsConflictingSlot(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		var slots []*model.Slot
		for i := 1; i <= 5; i++ {
			slots = append(slots, &model.Slot{ID: string(rune('0' + i)), Type: model.FourWheeler, Number: string(rune('0' + i))})
		}

		var bookings []*model.Booking
		for i := 0; i < 8; i++ {
			start := today(8, 0).Add(time.Duration(rng.Intn(16)) * 15 * time.Minute)
			bookings = append(bookings, &model.Booking{
				SlotID:    slots[rng.Intn(len(slots))].ID,
				StartTime: start,
				EndTime:   start.Add(time.Duration(1+rng.Intn(8)) * 15 * time.Minute),
			})
		}

		start := today(8, 0).Add(time.Duration(rng.Intn(16)) * 15 * time.Minute)
		candidate := model.Interval{Start: start, End: start.Add(time.Duration(1+rng.Intn(8)) * 15 * time.Minute)}

		got := Partition(slots, bookings, candidate)
		if len(got.Available)+len(got.UnavailableSlotIDs) != len(slots) {
			t.Fatalf("round %d: partition lost slots", round)
		}
		for _, s := range got.Available {
			for _, b := range bookings {
				if b.SlotID == s.ID && candidate.ConflictsWith(b.Interval()) {
					t.Fatalf("round %d: slot %s returned despite conflict with %v", round, s.ID, b.Interval())
				}
			}
		}

		again := Partition(slots, bookings, candidate)
		if !slices.Equal(got.AvailableIDs(), again.AvailableIDs()) {
			t.Fatalf("round %d: repeated partition differs", round)
		}
	}
}

func TestPartition_OrdersByNumber(t *testing.T) {
	slots := []*model.Slot{
		{ID: "a", Number: "10"},
		{ID: "b", Number: "2"},
		{ID: "c", Number: "B1"},
		{ID: "d", Number: "1"},
		{ID: "e", Number: "A1"},
	}
	got := Partition(slots, nil, model.Interval{Start: today(10, 0), End: today(11, 0)})

	want := []string{"d", "b", "a", "e", "c"}
	if ids := got.AvailableIDs(); !slices.Equal(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestPartition_AsymmetricRuleKept(t *testing.T) {
	slots := []*model.Slot{{ID: "1", Number: "1"}}
	existing := []*model.Booking{{SlotID: "1", StartTime: today(10, 0), EndTime: today(11, 0)}}

	// starts before the existing booking and ends inside it: not a conflict
	got := Partition(slots, existing, model.Interval{Start: today(9, 30), End: today(10, 30)})
	if len(got.Available) != 1 {
		t.Errorf("expected slot to stay available, got %+v", got)
	}
}
