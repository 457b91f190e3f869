package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"parkslot/internal/bookings/repository"
	"parkslot/internal/bookings/service"
	"parkslot/pkg/auth"
	apperrors "parkslot/pkg/errors"
	httputil "parkslot/pkg/http"
	"parkslot/pkg/logger"
	"parkslot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Layouts accepted for start_time and end_time besides RFC3339. Zone-less values are
// read in the server's location, like an HTML datetime-local input.
var localTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

type BookingHandler struct {
	service  service.BookingService
	location *time.Location
	log      *logger.Logger
}

func NewBookingHandler(service service.BookingService, location *time.Location, log *logger.Logger) *BookingHandler {
	if location == nil {
		location = time.Local
	}
	return &BookingHandler{
		service:  service,
		location: location,
		log:      log,
	}
}

type availabilityBody struct {
	VehicleType string `json:"vehicle_type"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

func (h *BookingHandler) RequestSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "RequestSlots")
	if !ok {
		return
	}

	var body availabilityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "RequestSlots", apperrors.InvalidInput("Invalid request body"))
		return
	}

	req := model.AvailabilityRequest{VehicleType: model.VehicleType(body.VehicleType)}
	if vt, ok := model.ParseVehicleType(body.VehicleType); ok {
		req.VehicleType = vt
	}
	var err error
	if req.StartTime, err = h.parseTime(body.StartTime); err != nil {
		h.writeError(w, "RequestSlots", apperrors.InvalidRequest("Invalid date time chosen").WithDetail("field", "start_time"))
		return
	}
	if req.EndTime, err = h.parseTime(body.EndTime); err != nil {
		h.writeError(w, "RequestSlots", apperrors.InvalidRequest("Invalid date time chosen").WithDetail("field", "end_time"))
		return
	}

	resp, err := h.service.RequestSlots(r.Context(), principal, &req)
	if err != nil {
		h.writeError(w, "RequestSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "RequestSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "Confirm")
	if !ok {
		return
	}

	var req model.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Confirm", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.Confirm(r.Context(), principal, &req)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	resp := model.ConfirmResponse{State: model.StateCommitted, Booking: booking}
	if err := httputil.WriteCreated(w, resp); err != nil {
		h.log.Error("failed to write created response", "handler", "Confirm", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Abandon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "Abandon")
	if !ok {
		return
	}

	if err := h.service.Abandon(r.Context(), principal, ps.ByName("token")); err != nil {
		h.writeError(w, "Abandon", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "ListMine")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListMine(r.Context(), principal, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.service.GetByID(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// ListAll is the admin ledger view, filterable by user_id, slot_id, from and to.
func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	query := r.URL.Query()
	filter := repository.Filter{
		UserID: query.Get("user_id"),
		SlotID: query.Get("slot_id"),
	}
	if filter.From, err = httputil.ParseTimeParam(r, "from"); err != nil {
		h.writeError(w, "ListAll", err)
		return
	}
	if filter.To, err = httputil.ParseTimeParam(r, "to"); err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	bookings, total, err := h.service.ListAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) principal(w http.ResponseWriter, r *http.Request, handler string) (*auth.Principal, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("A valid bearer token is required"))
		return nil, false
	}
	return principal, true
}

func (h *BookingHandler) parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range localTimeLayouts {
		t, err := time.ParseInLocation(layout, raw, h.location)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations/availability", h.RequestSlots)
	router.POST("/api/v1/reservations/confirm", h.Confirm)
	router.DELETE("/api/v1/reservations/offers/:token", h.Abandon)
	router.GET("/api/v1/bookings/mine", h.ListMine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.GET("/api/v1/admin/bookings", auth.RequireAdmin(h.ListAll))
	router.DELETE("/api/v1/admin/bookings/id/:id", auth.RequireAdmin(h.Delete))
}
