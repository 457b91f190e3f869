package model

import (
	"slices"
	"time"
)

type WorkflowState string

const (
	StateRequested    WorkflowState = "requested"
	StateSlotsOffered WorkflowState = "slots_offered"
	StateCommitted    WorkflowState = "committed"
	StateInvalid      WorkflowState = "invalid"
)

// BookingRequest is the validated request carried from the availability step to confirmation.
// The requester identity fields come from the authenticated principal, never from the body.
type BookingRequest struct {
	VehicleType VehicleType `json:"vehicle_type" validate:"required,vehicle_type"`
	StartTime   time.Time   `json:"start_time" validate:"required"`
	EndTime     time.Time   `json:"end_time" validate:"required"`
	UserID      string      `json:"user_id" validate:"required"`
	UserName    string      `json:"user_name"`
	UserEmail   string      `json:"user_email" validate:"omitempty,email"`
}

func (r *BookingRequest) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

// Offer is the single-use record of one SlotsOffered step.
type Offer struct {
	Token              string         `json:"token"`
	State              WorkflowState  `json:"state"`
	Request            BookingRequest `json:"request"`
	OfferedSlotIDs     []string       `json:"offered_slot_ids"`
	UnavailableSlotIDs []string       `json:"unavailable_slot_ids"`
	CreatedAt          time.Time      `json:"created_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
}

func (o *Offer) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

func (o *Offer) Offers(slotID string) bool {
	return slices.Contains(o.OfferedSlotIDs, slotID)
}
