package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"parkslot/internal/availability"
	bookingserrors "parkslot/internal/bookings/errors"
	"parkslot/internal/bookings/repository"
	"parkslot/internal/bookings/validator"
	"parkslot/internal/notification"
	"parkslot/internal/offers"
	"parkslot/pkg/auth"
	"parkslot/pkg/config"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/metrics"
	"parkslot/pkg/model"
)

type BookingService interface {
	RequestSlots(ctx context.Context, principal *auth.Principal, req *model.AvailabilityRequest) (*model.OfferResponse, error)
	Confirm(ctx context.Context, principal *auth.Principal, req *model.ConfirmRequest) (*model.Booking, error)
	Abandon(ctx context.Context, principal *auth.Principal, token string) error

	GetByID(ctx context.Context, principal *auth.Principal, id string) (*model.Booking, error)
	ListMine(ctx context.Context, principal *auth.Principal, limit int, offset int64) ([]*model.Booking, int64, error)
	ListAll(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error)
	Delete(ctx context.Context, id string) error
}

type AvailabilityFinder interface {
	FindAvailableSlots(ctx context.Context, vehicleType model.VehicleType, start, end time.Time) (*availability.Availability, error)
}

type SlotFinder interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
}

// TimeProvider is the workflow's notion of "now".
type TimeProvider interface {
	Now() time.Time
}

type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// notifyTimeout bounds the confirmation e-mail after a commit. The send is detached
// from the request context so a client disconnect does not drop it.
const notifyTimeout = 10 * time.Second

type bookingService struct {
	repo      repository.BookingRepository
	slots     SlotFinder
	engine    AvailabilityFinder
	offers    offers.Store
	gateway   notification.Gateway
	validator *validator.BookingValidator
	metrics   *metrics.Metrics
	clock     TimeProvider
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	slots SlotFinder,
	engine AvailabilityFinder,
	offerStore offers.Store,
	gateway notification.Gateway,
	validator *validator.BookingValidator,
	m *metrics.Metrics,
	clock TimeProvider,
	cfg *config.Config,
) BookingService {
	if clock == nil {
		clock = RealTimeProvider{}
	}
	return &bookingService{
		repo:      repo,
		slots:     slots,
		engine:    engine,
		offers:    offerStore,
		gateway:   gateway,
		validator: validator,
		metrics:   m,
		clock:     clock,
		cfg:       cfg,
	}
}

func (s *bookingService) GetByID(ctx context.Context, principal *auth.Principal, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve booking")
	}
	// other users' bookings are reported as missing, not forbidden
	if !principal.IsAdmin() && booking.UserID != principal.UserID {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, principal *auth.Principal, limit int, offset int64) ([]*model.Booking, int64, error) {
	return s.list(ctx, repository.Filter{UserID: principal.UserID}, limit, offset)
}

func (s *bookingService) ListAll(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, 0, apperrors.InvalidInput("'to' must be after 'from'")
	}
	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) list(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Delete removes a booking from the ledger, which frees its interval for new commits.
func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id, "Failed to delete booking")
	}

	s.cfg.Log.For(ctx).Info("Booking deleted successfully", "id", id)
	return nil
}

func mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(message, err)
	}
}
