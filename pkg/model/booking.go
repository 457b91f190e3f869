package model

import (
	"math"
	"time"
)

// BillRatePerMinute is the fixed parking rate applied to the booked duration.
const BillRatePerMinute = 0.167

type Booking struct {
	ID          string      `json:"id,omitempty" bson:"_id,omitempty"`
	SlotID      string      `json:"slot_id" bson:"slot_id" validate:"required"`
	SlotNumber  string      `json:"slot_number,omitempty" bson:"slot_number,omitempty"`
	UserID      string      `json:"user_id" bson:"user_id" validate:"required"`
	VehicleType VehicleType `json:"vehicle_type" bson:"vehicle_type" validate:"required,vehicle_type"`
	StartTime   time.Time   `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     time.Time   `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	BillAmount  int64       `json:"bill_amount" bson:"bill_amount"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// ComputeBill truncates the per-minute charge of [start, end) to a whole amount.
func ComputeBill(start, end time.Time) int64 {
	minutes := end.Sub(start).Minutes()
	if minutes <= 0 {
		return 0
	}
	return int64(math.Trunc(minutes * BillRatePerMinute))
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// ConflictsWith applies the booking conflict rule of candidate i against an existing
// booking interval. The rule is deliberately not symmetric: a candidate that starts
// before existing and ends inside it does not conflict.
func (i Interval) ConflictsWith(existing Interval) bool {
	s1, e1 := i.Start, i.End
	s2, e2 := existing.Start, existing.End

	switch {
	case s1.Equal(s2):
		return true
	case e1.Equal(e2):
		return true
	case s1.After(s2) && !e1.After(e2):
		return true
	case !s1.Before(s2) && s1.Before(e2):
		return true
	}
	return false
}

// Overlaps is the plain intersection test. Every pair that ConflictsWith also Overlaps,
// so storage layers use it to narrow candidates before applying the exact rule.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}
