package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkslot/internal/bookings/repository"
	"parkslot/pkg/auth"
	apperrors "parkslot/pkg/errors"
	"parkslot/pkg/logger"
	"parkslot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	requestSlotsFunc func(ctx context.Context, p *auth.Principal, req *model.AvailabilityRequest) (*model.OfferResponse, error)
	confirmFunc      func(ctx context.Context, p *auth.Principal, req *model.ConfirmRequest) (*model.Booking, error)
	abandonFunc      func(ctx context.Context, p *auth.Principal, token string) error
	getByIDFunc      func(ctx context.Context, p *auth.Principal, id string) (*model.Booking, error)
	listAllFunc      func(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error)
}

func (m *mockBookingService) RequestSlots(ctx context.Context, p *auth.Principal, req *model.AvailabilityRequest) (*model.OfferResponse, error) {
	return m.requestSlotsFunc(ctx, p, req)
}

func (m *mockBookingService) Confirm(ctx context.Context, p *auth.Principal, req *model.ConfirmRequest) (*model.Booking, error) {
	return m.confirmFunc(ctx, p, req)
}

func (m *mockBookingService) Abandon(ctx context.Context, p *auth.Principal, token string) error {
	if m.abandonFunc != nil {
		return m.abandonFunc(ctx, p, token)
	}
	return nil
}

func (m *mockBookingService) GetByID(ctx context.Context, p *auth.Principal, id string) (*model.Booking, error) {
	return m.getByIDFunc(ctx, p, id)
}

func (m *mockBookingService) ListMine(ctx context.Context, p *auth.Principal, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) ListAll(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Delete(ctx context.Context, id string) error {
	return nil
}

var customer = &auth.Principal{UserID: "u-1", Name: "Dana", Email: "dana@example.com", Role: auth.RoleCustomer, CanBook: true}

func newRouter(svc *mockBookingService, loc *time.Location) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, loc, logger.Discard()).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, path, body string, p *auth.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestSlots_ParsesLocalTimes(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	var got *model.AvailabilityRequest
	svc := &mockBookingService{
		requestSlotsFunc: func(ctx context.Context, p *auth.Principal, req *model.AvailabilityRequest) (*model.OfferResponse, error) {
			got = req
			return &model.OfferResponse{State: model.StateSlotsOffered, Token: "tok"}, nil
		},
	}

	w := do(newRouter(svc, loc), http.MethodPost, "/api/v1/reservations/availability",
		`{"vehicle_type":"four wheeler","start_time":"2026-03-14T10:00","end_time":"2026-03-14T11:30"}`, customer)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got.VehicleType != model.FourWheeler {
		t.Errorf("vehicle type = %q", got.VehicleType)
	}
	want := time.Date(2026, 3, 14, 10, 0, 0, 0, loc)
	if !got.StartTime.Equal(want) {
		t.Errorf("start = %v, want %v", got.StartTime, want)
	}
	if got.EndTime.Sub(got.StartTime) != 90*time.Minute {
		t.Errorf("interval = %v", got.EndTime.Sub(got.StartTime))
	}
}

func TestRequestSlots_Rejections(t *testing.T) {
	svc := &mockBookingService{
		requestSlotsFunc: func(ctx context.Context, p *auth.Principal, req *model.AvailabilityRequest) (*model.OfferResponse, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	router := newRouter(svc, time.UTC)

	tests := []struct {
		name      string
		body      string
		principal *auth.Principal
		wantCode  int
		wantError string
	}{
		{"no principal", `{}`, nil, http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"malformed body", `{`, customer, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"bad start", `{"vehicle_type":"Two Wheeler","start_time":"soon","end_time":"2026-03-14T11:00"}`, customer, http.StatusBadRequest, apperrors.CodeInvalidRequest},
		{"bad end", `{"vehicle_type":"Two Wheeler","start_time":"2026-03-14T10:00","end_time":""}`, customer, http.StatusBadRequest, apperrors.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/v1/reservations/availability", tt.body, tt.principal)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var resp struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantError {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantError)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"committed", nil, http.StatusCreated},
		{"lost race", apperrors.SlotNoLongerAvailable("s-1"), http.StatusConflict},
		{"expired offer", apperrors.InvalidRequest("booking request expired, start again"), http.StatusBadRequest},
		{"unexpected failure", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				confirmFunc: func(ctx context.Context, p *auth.Principal, req *model.ConfirmRequest) (*model.Booking, error) {
					if req.SlotID != "s-1" || p.UserID != customer.UserID {
						t.Errorf("unexpected call %+v by %s", req, p.UserID)
					}
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Booking{ID: "b-1", SlotID: "s-1", BillAmount: 10}, nil
				},
			}

			w := do(newRouter(svc, time.UTC), http.MethodPost, "/api/v1/reservations/confirm",
				`{"token":"0b7a4c58-4a8e-4d4f-9a55-5c0f3f1f3b10","slot_id":"s-1"}`, customer)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.err == nil {
				var resp struct {
					Data model.ConfirmResponse `json:"data"`
				}
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Data.State != model.StateCommitted || resp.Data.Booking.ID != "b-1" {
					t.Errorf("unexpected response %+v", resp.Data)
				}
			}
		})
	}
}

func TestAbandon_PassesToken(t *testing.T) {
	var got string
	svc := &mockBookingService{abandonFunc: func(ctx context.Context, p *auth.Principal, token string) error {
		got = token
		return nil
	}}

	w := do(newRouter(svc, time.UTC), http.MethodDelete, "/api/v1/reservations/offers/abc", "", customer)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got != "abc" {
		t.Errorf("token = %q", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := &mockBookingService{getByIDFunc: func(ctx context.Context, p *auth.Principal, id string) (*model.Booking, error) {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}}

	w := do(newRouter(svc, time.UTC), http.MethodGet, "/api/v1/bookings/id/b-9", "", customer)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	called := false
	svc := &mockBookingService{listAllFunc: func(ctx context.Context, f repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
		called = true
		return []*model.Booking{}, 0, nil
	}}
	router := newRouter(svc, time.UTC)

	if w := do(router, http.MethodGet, "/api/v1/admin/bookings", "", customer); w.Code != http.StatusForbidden {
		t.Errorf("customer status = %d, want 403", w.Code)
	}
	if called {
		t.Error("service reached by a customer")
	}

	admin := &auth.Principal{UserID: "root", Role: auth.RoleAdmin}
	if w := do(router, http.MethodGet, "/api/v1/admin/bookings", "", admin); w.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", w.Code)
	}
}

func TestListAll_Filters(t *testing.T) {
	var got repository.Filter
	svc := &mockBookingService{listAllFunc: func(ctx context.Context, f repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
		got = f
		return []*model.Booking{}, 0, nil
	}}
	admin := &auth.Principal{UserID: "root", Role: auth.RoleAdmin}

	w := do(newRouter(svc, time.UTC), http.MethodGet,
		"/api/v1/admin/bookings?user_id=u-1&slot_id=s-1&from=2026-03-14T00:00:00Z&to=2026-03-15T00:00:00Z", "", admin)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got.UserID != "u-1" || got.SlotID != "s-1" {
		t.Errorf("filter = %+v", got)
	}
	if got.From == nil || got.To == nil || got.To.Sub(*got.From) != 24*time.Hour {
		t.Errorf("range = %v..%v", got.From, got.To)
	}

	w = do(newRouter(svc, time.UTC), http.MethodGet, "/api/v1/admin/bookings?from=yesterday", "", admin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d, want 400", w.Code)
	}
}
