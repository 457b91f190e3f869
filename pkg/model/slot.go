package model

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type VehicleType string

const (
	TwoWheeler  VehicleType = "Two Wheeler"
	FourWheeler VehicleType = "Four Wheeler"
)

// TagVehicleType is the validator tag checking a VehicleType field.
const TagVehicleType = "vehicle_type"

var VehicleTypes = []VehicleType{TwoWheeler, FourWheeler}

func (v VehicleType) Valid() bool {
	return v == TwoWheeler || v == FourWheeler
}

// ParseVehicleType accepts the display form ("Two Wheeler") as well as
// snake or kebab case ("two_wheeler", "four-wheeler"), case-insensitively.
func ParseVehicleType(s string) (VehicleType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	for _, vt := range VehicleTypes {
		if strings.ToLower(string(vt)) == normalized {
			return vt, true
		}
	}
	return "", false
}

// ValidateVehicleTypeField is registered under TagVehicleType by the validators.
func ValidateVehicleTypeField(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case VehicleType:
		return v.Valid()
	case string:
		return VehicleType(v).Valid()
	default:
		return false
	}
}

type Slot struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	Type      VehicleType `json:"type" bson:"type" validate:"required,vehicle_type"`
	Number    string      `json:"number" bson:"number" validate:"required,min=1,max=20"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}

type SlotUpdate struct {
	Type   *VehicleType `json:"type,omitempty" validate:"omitempty,vehicle_type"`
	Number string       `json:"number,omitempty" validate:"omitempty,min=1,max=20"`
}
