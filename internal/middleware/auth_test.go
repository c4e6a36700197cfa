package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/perchd/perch/internal/auth"
)

func authedHandler(t *testing.T, gotUser *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthValidBearer(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	signed, err := tokens.Issue("user-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotUser string
	handler := RequireAuth(tokens)(authedHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "user-1" {
		t.Errorf("user id = %q, want user-1", gotUser)
	}
}

func TestRequireAuthQueryToken(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	signed, err := tokens.Issue("user-2", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotUser string
	handler := RequireAuth(tokens)(authedHandler(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/ws/user-2?token="+signed, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "user-2" {
		t.Errorf("user id = %q, want user-2", gotUser)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
