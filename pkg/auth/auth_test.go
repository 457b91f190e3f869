package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkslot/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func mustIssue(t *testing.T, p Principal, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(testSecret, p, ttl)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestTokenVerifier_Verify(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	customer := Principal{UserID: "u-1", Name: "Jane", Email: "jane@example.com", Role: RoleCustomer, CanBook: true}

	otherKey, err := IssueToken("another-secret-of-enough-length", customer, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"valid", "Bearer " + mustIssue(t, customer, time.Hour), nil},
		{"missing header", "", ErrMissingToken},
		{"wrong scheme", "Basic abc", ErrMissingToken},
		{"expired", "Bearer " + mustIssue(t, customer, -time.Hour), ErrInvalidToken},
		{"wrong secret", "Bearer " + otherKey, ErrInvalidToken},
		{"alg none", "Bearer " + noneToken, ErrInvalidToken},
		{"no subject", "Bearer " + mustIssue(t, Principal{Role: RoleCustomer}, time.Hour), ErrInvalidToken},
		{"unknown role", "Bearer " + mustIssue(t, Principal{UserID: "u-2", Role: "root"}, time.Hour), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := verifier.Verify(tt.header)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.UserID != "u-1" || !p.CanBook || p.Email != "jane@example.com" {
					t.Errorf("unexpected principal: %+v", p)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTokenVerifier_DefaultRole(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	p, err := verifier.Verify("Bearer " + mustIssue(t, Principal{UserID: "u-3"}, time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != RoleCustomer {
		t.Errorf("expected customer role, got %q", p.Role)
	}
}

func TestAuthentication_Middleware(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authentication(verifier, logger.Discard())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil)
	req.Header.Set("Authorization", "Bearer "+mustIssue(t, Principal{UserID: "u-9", Role: RoleAdmin}, time.Hour))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen == nil || seen.UserID != "u-9" || !seen.IsAdmin() {
		t.Errorf("principal not propagated: %+v", seen)
	}
}

func TestRequireAdmin(t *testing.T) {
	called := false
	handle := RequireAdmin(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	tests := []struct {
		name      string
		principal *Principal
		wantCode  int
		wantCall  bool
	}{
		{"anonymous", nil, http.StatusUnauthorized, false},
		{"customer", &Principal{UserID: "u-1", Role: RoleCustomer}, http.StatusForbidden, false},
		{"admin", &Principal{UserID: "a-1", Role: RoleAdmin}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			w := httptest.NewRecorder()
			handle(w, req, nil)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if called != tt.wantCall {
				t.Errorf("handler called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}
