package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T, now *time.Time) *BasicAuth {
	t.Helper()
	hash, err := HashPasswordWithCost("geheim", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBasicAuth(hash, zaptest.NewLogger(t),
		WithLockout(3, time.Minute),
		WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatalf("NewBasicAuth() error = %v", err)
	}
	return b
}

func doRequest(h http.Handler, password string, withAuth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	if withAuth {
		req.SetBasicAuth("any", password)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBasicAuth_Middleware(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	b := newTestAuth(t, &now)
	h := b.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name     string
		password string
		withAuth bool
		want     int
	}{
		{name: "no credentials", withAuth: false, want: http.StatusUnauthorized},
		{name: "wrong password", password: "falsch", withAuth: true, want: http.StatusUnauthorized},
		{name: "right password", password: "geheim", withAuth: true, want: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, tt.password, tt.withAuth)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestBasicAuth_Lockout(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	b := newTestAuth(t, &now)
	h := b.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		if rec := doRequest(h, "falsch", true); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
	}
	if got := b.Failures("10.0.0.7"); got != 3 {
		t.Errorf("Failures() = %d, want 3", got)
	}

	rec := doRequest(h, "geheim", true)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("locked status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}

	now = now.Add(time.Minute)
	if rec := doRequest(h, "geheim", true); rec.Code != http.StatusOK {
		t.Errorf("status after window = %d, want 200", rec.Code)
	}
	if got := b.Failures("10.0.0.7"); got != 0 {
		t.Errorf("Failures() after success = %d, want 0", got)
	}
}

func TestBasicAuth_Cleanup(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	b := newTestAuth(t, &now)
	h := b.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	doRequest(h, "falsch", true)
	if n := b.Cleanup(); n != 0 {
		t.Errorf("Cleanup() before expiry = %d", n)
	}
	now = now.Add(2 * time.Minute)
	if n := b.Cleanup(); n != 1 {
		t.Errorf("Cleanup() after expiry = %d, want 1", n)
	}
}

func TestNewBasicAuth_InvalidHash(t *testing.T) {
	if _, err := NewBasicAuth("plain", nil); err != ErrInvalidHash {
		t.Errorf("NewBasicAuth() error = %v, want ErrInvalidHash", err)
	}
}
