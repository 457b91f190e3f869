package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkslot/internal/availability"
	bookingshandler "parkslot/internal/bookings/handler"
	bookingsrepository "parkslot/internal/bookings/repository"
	bookingsservice "parkslot/internal/bookings/service"
	bookingsvalidator "parkslot/internal/bookings/validator"
	"parkslot/internal/notification"
	"parkslot/internal/offers"
	slotshandler "parkslot/internal/slots/handler"
	slotsrepository "parkslot/internal/slots/repository"
	slotsservice "parkslot/internal/slots/service"
	slotsvalidator "parkslot/internal/slots/validator"
	"parkslot/pkg/app"
	"parkslot/pkg/auth"
	"parkslot/pkg/client"
	"parkslot/pkg/config"
	"parkslot/pkg/db/memory"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/logger"
	"parkslot/pkg/metrics"
	"parkslot/pkg/model"
)

const testSecret = "integration-secret-0123456789"

var testNow = time.Date(2026, 3, 14, 10, 0, 30, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Port:           "0",
		Location:       time.UTC,
		OfferTTL:       5 * time.Minute,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
		IdempotencyTTL: time.Minute,
		MaxRequestSize: 1 << 20,
		Log:            logger.Discard(),
	}
	m := metrics.New()

	arena := memory.NewArena()
	slotRepo := slotsrepository.NewMemorySlotRepository(arena)
	bookingRepo := bookingsrepository.NewMemoryBookingRepository(arena)

	slotService := slotsservice.NewSlotService(slotRepo, slotsvalidator.NewSlotValidator(cfg.Log), cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		slotRepo,
		availability.NewEngine(slotRepo, bookingRepo),
		offers.NewInMemoryStore(fixedClock{}.Now),
		notification.NewLogGateway(cfg.Log),
		bookingsvalidator.NewBookingValidator(cfg.Log),
		m,
		fixedClock{},
		cfg,
	)

	application := app.NewApplication(cfg, m)
	application.SetApp(
		auth.NewTokenVerifier(testSecret),
		slotshandler.NewSlotHandler(slotService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Location, cfg.Log),
	)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)
	return server
}

func token(t *testing.T, p auth.Principal) string {
	t.Helper()
	signed, err := auth.IssueToken(testSecret, p, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return signed
}

func apiCode(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func TestReservationFlow(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()

	admin := client.NewSlotClient(server.URL, token(t, auth.Principal{UserID: "admin", Role: auth.RoleAdmin}))
	var fourWheelers []*model.Slot
	for _, number := range []string{"1", "2"} {
		slot, err := admin.Create(ctx, model.FourWheeler, number)
		if err != nil {
			t.Fatalf("create slot %s: %v", number, err)
		}
		fourWheelers = append(fourWheelers, slot)
	}
	if _, err := admin.Create(ctx, model.TwoWheeler, "3"); err != nil {
		t.Fatalf("create two wheeler: %v", err)
	}

	alice := client.NewReservationClient(server.URL, token(t, auth.Principal{
		UserID: "alice", Name: "Alice", Email: "alice@example.com", Role: auth.RoleCustomer, CanBook: true,
	}))
	bob := client.NewReservationClient(server.URL, token(t, auth.Principal{
		UserID: "bob", Name: "Bob", Email: "bob@example.com", Role: auth.RoleCustomer, CanBook: true,
	}))

	start := testNow.Truncate(time.Minute)
	end := start.Add(90 * time.Minute)

	offer, err := alice.RequestSlots(ctx, model.FourWheeler, start, end)
	if err != nil {
		t.Fatalf("alice RequestSlots: %v", err)
	}
	if offer.Token == "" || len(offer.Available) != 2 {
		t.Fatalf("unexpected offer: token=%q available=%d", offer.Token, len(offer.Available))
	}

	booking, err := alice.Confirm(ctx, offer.Token, fourWheelers[0].ID, "confirm-1")
	if err != nil {
		t.Fatalf("alice Confirm: %v", err)
	}
	if booking.BillAmount != 15 || booking.SlotID != fourWheelers[0].ID {
		t.Errorf("unexpected booking %+v", booking)
	}

	replayed, err := alice.Confirm(ctx, offer.Token, fourWheelers[0].ID, "confirm-1")
	if err != nil {
		t.Fatalf("idempotent replay: %v", err)
	}
	if replayed.ID != booking.ID {
		t.Errorf("replay returned booking %s, want %s", replayed.ID, booking.ID)
	}

	if _, err := alice.Confirm(ctx, offer.Token, fourWheelers[0].ID, ""); apiCode(err) != apperrors.CodeInvalidRequest {
		t.Errorf("reused token: %v", err)
	}

	bobOffer, err := bob.RequestSlots(ctx, model.FourWheeler, start, end)
	if err != nil {
		t.Fatalf("bob RequestSlots: %v", err)
	}
	if len(bobOffer.Available) != 1 || bobOffer.Available[0].ID != fourWheelers[1].ID {
		t.Errorf("bob offered %+v", bobOffer.Available)
	}
	if len(bobOffer.UnavailableSlotIDs) != 1 || bobOffer.UnavailableSlotIDs[0] != fourWheelers[0].ID {
		t.Errorf("bob unavailable = %v", bobOffer.UnavailableSlotIDs)
	}
	if err := bob.Abandon(ctx, bobOffer.Token); err != nil {
		t.Errorf("bob Abandon: %v", err)
	}

	mine, err := alice.ListMine(ctx, 10, 0)
	if err != nil || len(mine) != 1 {
		t.Fatalf("alice ListMine = %d bookings, err %v", len(mine), err)
	}
	if _, err := bob.GetBooking(ctx, booking.ID); apiCode(err) != apperrors.CodeNotFound {
		t.Errorf("bob reading alice's booking: %v", err)
	}

	if err := admin.Delete(ctx, fourWheelers[0].ID); apiCode(err) != apperrors.CodeConflict {
		t.Errorf("deleting a booked slot: %v", err)
	}
}

func TestStaleRequestIsRejected(t *testing.T) {
	server := newServer(t)
	alice := client.NewReservationClient(server.URL, token(t, auth.Principal{UserID: "alice", Role: auth.RoleCustomer, CanBook: true}))

	start := testNow.Add(-time.Hour).Truncate(time.Minute)
	_, err := alice.RequestSlots(context.Background(), model.TwoWheeler, start, start.Add(time.Hour))

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if apiErr.Details["restart_from"] != string(model.StateRequested) {
		t.Errorf("details = %v", apiErr.Details)
	}
}

func TestUnauthenticatedAndOperationalRoutes(t *testing.T) {
	server := newServer(t)

	resp, err := http.Get(server.URL + "/api/v1/bookings/mine")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing request id")
	}

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(buf.String(), "parkslot_http_requests_total") {
		t.Error("HTTP metrics not exposed")
	}
}
