package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("ledger unreachable")

	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Slot"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Booking", "42"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad slot", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad limit"), CodeInvalidInput, http.StatusBadRequest},
		{"invalid request", InvalidRequest("Invalid date time chosen"), CodeInvalidRequest, http.StatusBadRequest},
		{"slot no longer available", SlotNoLongerAvailable("7"), CodeSlotNoLongerAvailable, http.StatusConflict},
		{"unauthorized", Unauthorized("missing token"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("admins only"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("slot has bookings"), CodeConflict, http.StatusConflict},
		{"too many requests", TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests},
		{"internal", Internal("failed", cause), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("took too long"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Offer store"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "slot not found"},
			expected: "NOT_FOUND: slot not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("connection refused"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	original := errors.New("tx aborted")
	wrapped := Wrap(original, CodeInternal, "commit failed", http.StatusInternalServerError)

	if !errors.Is(wrapped, original) {
		t.Errorf("errors.Is should find the original error")
	}
	if errors.Unwrap(wrapped) != original {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestWorkflowErrorsCarryRestartHint(t *testing.T) {
	for _, err := range []*AppError{InvalidRequest("stale"), SlotNoLongerAvailable("3")} {
		if err.Details[DetailRestartFrom] != "requested" {
			t.Errorf("%s: expected restart_from=requested, got %v", err.Code, err.Details[DetailRestartFrom])
		}
	}
	if SlotNoLongerAvailable("3").Details["slot_id"] != "3" {
		t.Errorf("expected slot id in details")
	}
}

func TestWithDetail(t *testing.T) {
	err := NotFoundWithID("Slot", "9").WithDetail("type", "Two Wheeler")
	if err.Details["id"] != "9" || err.Details["type"] != "Two Wheeler" {
		t.Errorf("unexpected details: %v", err.Details)
	}

	err = New(CodeConflict, "busy", http.StatusConflict).WithDetail("slot_id", "1")
	if err.Details["slot_id"] != "1" {
		t.Errorf("expected detail on empty map, got %v", err.Details)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	wrapped := fmt.Errorf("service layer: %w", appErr)
	if AsAppError(wrapped) != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}
	if !IsAppError(wrapped) {
		t.Errorf("IsAppError() should see through wrapping")
	}

	regular := errors.New("plain")
	result := AsAppError(regular)
	if result.Code != CodeInternal || result.Err != regular {
		t.Errorf("AsAppError() should wrap regular error as internal error, got %+v", result)
	}
	if IsAppError(regular) {
		t.Errorf("IsAppError() should return false for regular error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("confirm: %w", SlotNoLongerAvailable("1"))
	if !HasCode(err, CodeSlotNoLongerAvailable) {
		t.Errorf("expected HasCode to match")
	}
	if HasCode(err, CodeInvalidRequest) {
		t.Errorf("expected HasCode to reject other codes")
	}
	if HasCode(errors.New("x"), CodeInternal) {
		t.Errorf("plain errors have no code")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	body := string(NotFoundWithID("Slot", "12345").ToJSON())

	for _, want := range []string{"NOT_FOUND", "not found", "12345"} {
		if !strings.Contains(body, want) {
			t.Errorf("ToJSON() = %s, missing %q", body, want)
		}
	}
}
