package service

import (
	"context"
	"errors"
	"sync"

	slotserrors "parkslot/internal/slots/errors"
	"parkslot/internal/slots/repository"
	"parkslot/internal/slots/validator"
	"parkslot/pkg/config"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/model"
	"parkslot/pkg/sanitizer"
)

type SlotService interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	GetAll(ctx context.Context, vehicleType model.VehicleType, limit int, offset int64) ([]*model.Slot, int64, error)
	Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error)
	Delete(ctx context.Context, id string) error
}

type slotService struct {
	repo      repository.SlotRepository
	validator *validator.SlotValidator
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *slotService) Create(ctx context.Context, slot *model.Slot) error {
	slot.ID = ""
	slot.Number = sanitizer.SanitizeSlotNumber(slot.Number)
	if err := s.validate(slot); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		if errors.Is(err, slotserrors.ErrDuplicateNumber) {
			return apperrors.Conflict("Slot number already exists for this vehicle type")
		}
		s.cfg.Log.Error("Failed to create slot", "error", err)
		return apperrors.Internal("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created successfully", "id", slot.ID, "type", slot.Type, "number", slot.Number)
	return nil
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve slot")
	}
	return slot, nil
}

func (s *slotService) GetAll(ctx context.Context, vehicleType model.VehicleType, limit int, offset int64) ([]*model.Slot, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var slots []*model.Slot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, vehicleType)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count slots", "error", errCount)
			errCount = apperrors.Internal("Failed to count slots", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.repo.FindAll(ctx, vehicleType, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list slots", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve slots", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return slots, count, nil
}

func (s *slotService) Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}
	updates.Number = sanitizer.SanitizeSlotNumber(updates.Number)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Slot update validation failed", "id", id, "error", err)
		return nil, validationError("Invalid update input", err)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to check slot existence")
	}

	merged := *existing
	if updates.Number != "" {
		merged.Number = updates.Number
	}
	if updates.Type != nil {
		merged.Type = *updates.Type
	}

	if err := s.validate(&merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, &merged); err != nil {
		switch {
		case errors.Is(err, slotserrors.ErrDuplicateNumber):
			return nil, apperrors.Conflict("Slot number already exists for this vehicle type")
		case errors.Is(err, slotserrors.ErrReferenced):
			return nil, apperrors.Conflict("Cannot change the type of a slot that has bookings")
		}
		return nil, mapRepoError(err, id, "Failed to update slot")
	}

	s.cfg.Log.Info("Slot updated successfully", "id", id)
	return &merged, nil
}

func (s *slotService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, slotserrors.ErrReferenced) {
			return apperrors.Conflict("Cannot delete a slot that has bookings")
		}
		return mapRepoError(err, id, "Failed to delete slot")
	}

	s.cfg.Log.Info("Slot deleted successfully", "id", id)
	return nil
}

func (s *slotService) validate(slot *model.Slot) error {
	if err := s.validator.Validate(slot); err != nil {
		s.cfg.Log.Warn("Slot validation failed", "error", err)
		return validationError("Slot validation failed", err)
	}
	return nil
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Slot", id)
	case errors.Is(err, slotserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid slot ID format")
	case errors.Is(err, slotserrors.ErrBusy):
		return apperrors.Conflict("Slot is being booked right now, try again")
	default:
		return apperrors.Internal(message, err)
	}
}
