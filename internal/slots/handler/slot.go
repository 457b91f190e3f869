package handler

import (
	"encoding/json"
	"net/http"

	"parkslot/internal/slots/service"
	"parkslot/pkg/auth"
	apperrors "parkslot/pkg/errors"
	httputil "parkslot/pkg/http"
	"parkslot/pkg/logger"
	"parkslot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

// List is the public catalog view, optionally narrowed with ?type=.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var vehicleType model.VehicleType
	if raw := r.URL.Query().Get("type"); raw != "" {
		vt, ok := model.ParseVehicleType(raw)
		if !ok {
			h.writeError(w, "List", apperrors.InvalidInput("invalid type parameter: "+raw))
			return
		}
		vehicleType = vt
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	slots, total, err := h.service.GetAll(r.Context(), vehicleType, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, slots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var slot model.Slot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if vt, ok := model.ParseVehicleType(string(slot.Type)); ok {
		slot.Type = vt
	}

	if err := h.service.Create(r.Context(), &slot); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, slot); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.SlotUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if updates.Type != nil {
		if vt, ok := model.ParseVehicleType(string(*updates.Type)); ok {
			updates.Type = &vt
		}
	}

	slot, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/slots", h.List)
	router.POST("/api/v1/admin/slots", auth.RequireAdmin(h.Create))
	router.GET("/api/v1/admin/slots", auth.RequireAdmin(h.List))
	router.GET("/api/v1/admin/slots/id/:id", auth.RequireAdmin(h.GetByID))
	router.PATCH("/api/v1/admin/slots/id/:id", auth.RequireAdmin(h.Update))
	router.DELETE("/api/v1/admin/slots/id/:id", auth.RequireAdmin(h.Delete))
}
