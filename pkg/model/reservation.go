package model

import "time"

// AvailabilityRequest is the requester's input to the Requested step.
type AvailabilityRequest struct {
	VehicleType VehicleType `json:"vehicle_type" validate:"required,vehicle_type"`
	StartTime   time.Time   `json:"start_time" validate:"required"`
	EndTime     time.Time   `json:"end_time" validate:"required"`
}

// ConfirmRequest is everything the requester may say at confirmation: which offer
// and which of its slots. The rest comes from the stored offer.
type ConfirmRequest struct {
	Token  string `json:"token" validate:"required,uuid"`
	SlotID string `json:"slot_id" validate:"required,max=64"`
}

type OfferResponse struct {
	State              WorkflowState `json:"state"`
	Token              string        `json:"token,omitempty"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty"`
	VehicleType        VehicleType   `json:"vehicle_type"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Available          []*Slot       `json:"available"`
	UnavailableSlotIDs []string      `json:"unavailable_slot_ids"`
}

type ConfirmResponse struct {
	State   WorkflowState `json:"state"`
	Booking *Booking      `json:"booking"`
}
