package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "parkslot/internal/bookings/errors"
	"parkslot/internal/bookings/validator"
	"parkslot/internal/notification"
	"parkslot/internal/offers"
	slotserrors "parkslot/internal/slots/errors"
	"parkslot/pkg/auth"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/metrics"
	"parkslot/pkg/model"

	"github.com/google/uuid"
)

const (
	msgInvalidDateTime = "Invalid date time chosen"
	msgUnknownType     = "Unknown vehicle type"
	msgOfferExpired    = "booking request expired, start again"
)

// RequestSlots runs Requested -> SlotsOffered. Any validation failure ends in Invalid
// without touching the ledger or the offer store.
func (s *bookingService) RequestSlots(ctx context.Context, principal *auth.Principal, req *model.AvailabilityRequest) (*model.OfferResponse, error) {
	log := s.cfg.Log.For(ctx)

	if !principal.CanBook {
		return nil, apperrors.Forbidden("User is not permitted to book")
	}

	req.StartTime = req.StartTime.Truncate(time.Minute)
	req.EndTime = req.EndTime.Truncate(time.Minute)

	if err := s.validator.ValidateRequest(req); err != nil {
		s.metrics.Offer(metrics.OutcomeInvalid)
		log.Warn("Booking request rejected", "user_id", principal.UserID, "error", err)
		return nil, requestError(err)
	}

	now := s.clock.Now()
	if !sameMinute(req.StartTime, now, s.cfg.Location) {
		s.metrics.Offer(metrics.OutcomeInvalid)
		log.Warn("Booking request rejected: stale start time",
			"user_id", principal.UserID,
			"start_time", req.StartTime,
			"now", now,
		)
		return nil, apperrors.InvalidRequest(msgInvalidDateTime).
			WithDetail("fields", map[string]any{validator.FieldStartTime: "start_time must be the current minute"})
	}

	found, err := s.engine.FindAvailableSlots(ctx, req.VehicleType, req.StartTime, req.EndTime)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
			s.metrics.Offer(metrics.OutcomeInvalid)
		} else {
			s.metrics.Offer(metrics.OutcomeError)
			log.Error("Availability lookup failed", "error", err)
		}
		return nil, err
	}

	resp := &model.OfferResponse{
		State:              model.StateSlotsOffered,
		VehicleType:        req.VehicleType,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Available:          found.Available,
		UnavailableSlotIDs: found.UnavailableSlotIDs,
	}
	if len(found.Available) == 0 {
		s.metrics.Offer(metrics.OutcomeEmpty)
		log.Info("No slots available", "user_id", principal.UserID, "vehicle_type", req.VehicleType)
		return resp, nil
	}

	offer := &model.Offer{
		Token: uuid.NewString(),
		State: model.StateSlotsOffered,
		Request: model.BookingRequest{
			VehicleType: req.VehicleType,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			UserID:      principal.UserID,
			UserName:    principal.Name,
			UserEmail:   principal.Email,
		},
		OfferedSlotIDs:     found.AvailableIDs(),
		UnavailableSlotIDs: found.UnavailableSlotIDs,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.cfg.OfferTTL),
	}
	if err := s.offers.Put(ctx, principal.UserID, offer); err != nil {
		s.metrics.Offer(metrics.OutcomeError)
		log.Error("Failed to store offer", "user_id", principal.UserID, "error", err)
		return nil, apperrors.Internal("Failed to store booking request", err)
	}

	s.metrics.Offer(metrics.OutcomeOffered)
	log.Info("Slots offered",
		"user_id", principal.UserID,
		"vehicle_type", req.VehicleType,
		"available", len(found.Available),
		"unavailable", len(found.UnavailableSlotIDs),
	)

	resp.Token = offer.Token
	resp.ExpiresAt = &offer.ExpiresAt
	return resp, nil
}

// Confirm runs SlotsOffered -> Committed. Only the token and the slot choice come from
// the requester; the interval, type and identity come from the stored offer, which is
// consumed whatever the outcome.
func (s *bookingService) Confirm(ctx context.Context, principal *auth.Principal, req *model.ConfirmRequest) (*model.Booking, error) {
	log := s.cfg.Log.For(ctx)

	if err := s.validator.ValidateConfirm(req); err != nil {
		s.metrics.Commit(metrics.OutcomeInvalid)
		return nil, apperrors.InvalidRequest(msgOfferExpired).WithDetail("fields", detailsOf(err))
	}

	offer, err := s.offers.Take(ctx, principal.UserID, req.Token)
	if err != nil {
		if errors.Is(err, offers.ErrNotFound) {
			s.metrics.Commit(metrics.OutcomeInvalid)
			return nil, apperrors.InvalidRequest(msgOfferExpired)
		}
		s.metrics.Commit(metrics.OutcomeError)
		log.Error("Failed to read offer", "user_id", principal.UserID, "error", err)
		return nil, apperrors.Internal("Failed to read booking request", err)
	}

	if offer.State != model.StateSlotsOffered || offer.Request.UserID != principal.UserID {
		s.metrics.Commit(metrics.OutcomeInvalid)
		return nil, apperrors.InvalidRequest(msgOfferExpired)
	}
	if !offer.Offers(req.SlotID) {
		s.metrics.Commit(metrics.OutcomeInvalid)
		return nil, apperrors.InvalidRequest("Selected slot was not offered, start again").
			WithDetail("slot_id", req.SlotID)
	}

	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) || errors.Is(err, slotserrors.ErrInvalidID) {
			s.metrics.Commit(metrics.OutcomeInvalid)
			return nil, apperrors.InvalidRequest("Selected slot no longer exists, start again").
				WithDetail("slot_id", req.SlotID)
		}
		s.metrics.Commit(metrics.OutcomeError)
		log.Error("Failed to read slot", "slot_id", req.SlotID, "error", err)
		return nil, apperrors.Internal("Failed to read slot", err)
	}
	if slot.Type != offer.Request.VehicleType {
		s.metrics.Commit(metrics.OutcomeInvalid)
		return nil, apperrors.InvalidRequest("Selected slot does not match the requested vehicle type, start again").
			WithDetail("slot_id", req.SlotID)
	}

	booking := &model.Booking{
		SlotID:      slot.ID,
		SlotNumber:  slot.Number,
		UserID:      offer.Request.UserID,
		VehicleType: offer.Request.VehicleType,
		StartTime:   offer.Request.StartTime,
		EndTime:     offer.Request.EndTime,
		BillAmount:  model.ComputeBill(offer.Request.StartTime, offer.Request.EndTime),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.validator.Validate(booking); err != nil {
		s.metrics.Commit(metrics.OutcomeInvalid)
		log.Warn("Booking failed validation", "error", err)
		return nil, requestError(err)
	}

	if err := s.repo.InsertIfNoConflict(ctx, booking); err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrSlotUnavailable),
			errors.Is(err, bookingserrors.ErrSlotLocked),
			errors.Is(err, bookingserrors.ErrSlotNotFound),
			errors.Is(err, bookingserrors.ErrSlotTypeChanged):
			s.metrics.Commit(metrics.OutcomeLostRace)
			log.Info("Commit lost the race for slot", "slot_id", slot.ID, "user_id", booking.UserID, "reason", err)
			return nil, apperrors.SlotNoLongerAvailable(slot.ID)
		default:
			s.metrics.Commit(metrics.OutcomeError)
			log.Error("Failed to commit booking", "slot_id", slot.ID, "error", err)
			return nil, apperrors.Internal("Failed to create booking", err)
		}
	}

	s.metrics.Commit(metrics.OutcomeCommitted)
	log.Info("Booking committed",
		"id", booking.ID,
		"slot_id", booking.SlotID,
		"user_id", booking.UserID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
		"bill_amount", booking.BillAmount,
	)

	s.notify(ctx, &offer.Request, booking)
	return booking, nil
}

// Abandon discards an offer. Unknown or expired tokens are not an error.
func (s *bookingService) Abandon(ctx context.Context, principal *auth.Principal, token string) error {
	if token == "" {
		return apperrors.InvalidInput("Token cannot be empty")
	}
	if err := s.offers.Delete(ctx, principal.UserID, token); err != nil && !errors.Is(err, offers.ErrNotFound) {
		s.cfg.Log.For(ctx).Error("Failed to discard offer", "user_id", principal.UserID, "error", err)
		return apperrors.Internal("Failed to discard booking request", err)
	}
	return nil
}

// notify never fails the commit: errors are logged and counted per channel.
func (s *bookingService) notify(ctx context.Context, req *model.BookingRequest, booking *model.Booking) {
	log := s.cfg.Log.For(ctx)

	if req.UserEmail == "" {
		log.Warn("Skipping booking confirmation: user has no e-mail address", "booking_id", booking.ID)
		s.metrics.NotificationFailed("none")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	subject, body := notification.FormatConfirmation(notification.ConfirmationFor(req.UserName, booking))
	if err := s.gateway.SendEmail(ctx, []string{req.UserEmail}, subject, body); err != nil {
		for _, channel := range notification.FailedChannels(err) {
			s.metrics.NotificationFailed(channel)
		}
		log.Warn("Booking confirmation could not be delivered",
			"booking_id", booking.ID,
			"user_id", booking.UserID,
			"error", err,
		)
	}
}

func sameMinute(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	a, b = a.In(loc), b.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

func requestError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, v := range verrs {
			if v.Field == "VehicleType" {
				return apperrors.InvalidRequest(msgUnknownType).WithDetail("fields", verrs.Details())
			}
		}
		return apperrors.InvalidRequest(msgInvalidDateTime).WithDetail("fields", verrs.Details())
	}
	return apperrors.InvalidRequest(msgInvalidDateTime)
}

func detailsOf(err error) map[string]any {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Details()
	}
	return map[string]any{"error": err.Error()}
}
