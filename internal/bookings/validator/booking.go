package validator

import (
	"errors"
	"fmt"
	"strings"

	"parkslot/pkg/logger"
	"parkslot/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// Field names of the interval errors, shared with the freshness check in the service.
const (
	FieldStartTime = "StartTime"
	FieldEndTime   = "EndTime"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation(model.TagVehicleType, model.ValidateVehicleTypeField); err != nil {
		log.Fatal("Failed to register 'vehicle_type' validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// ValidateRequest checks shape and interval order. Freshness needs a clock and is
// checked by the service.
func (v *BookingValidator) ValidateRequest(req *model.AvailabilityRequest) error {
	if err := v.check(req); err != nil {
		return err
	}
	if !req.EndTime.After(req.StartTime) {
		return ValidationErrors{{Field: FieldEndTime, Message: "end_time must be after start_time"}}
	}
	return nil
}

func (v *BookingValidator) ValidateConfirm(req *model.ConfirmRequest) error {
	return v.check(req)
}

// Validate checks a booking about to be appended to the ledger.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.check(booking); err != nil {
		return err
	}
	if want := model.ComputeBill(booking.StartTime, booking.EndTime); booking.BillAmount != want {
		return ValidationErrors{{
			Field:   "BillAmount",
			Message: fmt.Sprintf("bill_amount must be %d for this interval, got %d", want, booking.BillAmount),
		}}
	}
	return nil
}

func (v *BookingValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "uuid":
			message = fmt.Sprintf("%s must be a valid token", err.Field())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case model.TagVehicleType:
			message = fmt.Sprintf("%s must be one of: %s, %s", err.Field(), model.TwoWheeler, model.FourWheeler)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
