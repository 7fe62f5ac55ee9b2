package auth

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"outlook_backend/core"

	"go.uber.org/zap"
)

// Lockout defaults for failed password attempts.
const (
	DefaultMaxFailures   = 5
	DefaultFailureWindow = 15 * time.Minute
)

// BasicAuth guards handlers with HTTP basic authentication against one
// shared password. The user name is ignored. After MaxFailures wrong
// passwords from one IP inside the window, that IP gets 429 until the
// window closes.
type BasicAuth struct {
	hash   string
	realm  string
	logger *zap.Logger

	maxFailures int
	window      time.Duration
	now         func() time.Time

	mu       sync.Mutex
	failures map[string]core.AttemptRecord
}

// Option configures a BasicAuth.
type Option func(*BasicAuth)

// WithLockout overrides the failure limit and window.
func WithLockout(maxFailures int, window time.Duration) Option {
	return func(b *BasicAuth) {
		b.maxFailures = maxFailures
		b.window = window
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *BasicAuth) { b.now = now }
}

// WithRealm sets the realm shown by browsers.
func WithRealm(realm string) Option {
	return func(b *BasicAuth) { b.realm = realm }
}

// NewBasicAuth builds the middleware from a bcrypt hash (see PrepareHash).
func NewBasicAuth(hash string, logger *zap.Logger, opts ...Option) (*BasicAuth, error) {
	if !IsValidHash(hash) {
		return nil, ErrInvalidHash
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BasicAuth{
		hash:        hash,
		realm:       "Prognose",
		logger:      logger,
		maxFailures: DefaultMaxFailures,
		window:      DefaultFailureWindow,
		now:         time.Now,
		failures:    make(map[string]core.AttemptRecord),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Middleware wraps next with the password check.
func (b *BasicAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)

		if wait, blocked := b.blocked(ip); blocked {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds()+0.5)))
			http.Error(w, "Zu viele Fehlversuche. Bitte später erneut versuchen.", http.StatusTooManyRequests)
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok {
			b.challenge(w)
			return
		}
		if err := VerifyPassword(password, b.hash); err != nil {
			count := b.recordFailure(ip)
			b.logger.Warn("web UI authentication failed",
				zap.String("ip", ip),
				zap.Int("failures", count))
			b.challenge(w)
			return
		}

		b.reset(ip)
		next.ServeHTTP(w, r)
	})
}

// Failures returns the failed attempts counted for ip in the current window.
func (b *BasicAuth) Failures(ip string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.failures[ip]
	if !ok || rec.Expired(b.now()) {
		return 0
	}
	return rec.Count
}

// Cleanup drops expired failure records and returns how many it removed.
func (b *BasicAuth) Cleanup() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	removed := 0
	for ip, rec := range b.failures {
		if rec.Expired(now) {
			delete(b.failures, ip)
			removed++
		}
	}
	return removed
}

func (b *BasicAuth) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", b.realm))
	http.Error(w, "Anmeldung erforderlich", http.StatusUnauthorized)
}

func (b *BasicAuth) blocked(ip string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.failures[ip]
	now := b.now()
	if !ok || rec.Expired(now) || !rec.IsBlocked(b.maxFailures) {
		return 0, false
	}
	return rec.RetryAfter(now), true
}

func (b *BasicAuth) recordFailure(ip string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.failures[ip].Increment(b.now(), b.window)
	b.failures[ip] = rec
	return rec.Count
}

func (b *BasicAuth) reset(ip string) {
	b.mu.Lock()
	delete(b.failures, ip)
	b.mu.Unlock()
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
