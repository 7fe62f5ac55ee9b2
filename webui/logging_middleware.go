package webui

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every request with method, path, status and
// duration. Safe for concurrent requests.
type LoggingMiddleware struct {
	logger    RequestLogger
	skipPaths map[string]bool
}

// RequestLogger receives one entry per finished request.
type RequestLogger interface {
	LogRequest(entry RequestLogEntry)
}

// RequestLogEntry describes one finished request.
type RequestLogEntry struct {
	Timestamp     time.Time
	Method        string
	Path          string
	StatusCode    int
	Duration      time.Duration
	RemoteAddr    string
	UserAgent     string
	ContentLength int64
}

// ZapRequestLogger writes entries through zap. Server errors log at
// error level, client errors at warn, the rest at info.
type ZapRequestLogger struct {
	Logger *zap.Logger
}

// LogRequest implements RequestLogger.
func (z *ZapRequestLogger) LogRequest(entry RequestLogEntry) {
	fields := []zap.Field{
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.Int("status", entry.StatusCode),
		zap.Duration("duration", entry.Duration),
		zap.String("remote_addr", entry.RemoteAddr),
		zap.Int64("bytes", entry.ContentLength),
	}
	if entry.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", entry.UserAgent))
	}

	switch {
	case entry.StatusCode >= 500:
		z.Logger.Error("http request", fields...)
	case entry.StatusCode >= 400:
		z.Logger.Warn("http request", fields...)
	default:
		z.Logger.Info("http request", fields...)
	}
}

// NoopLogger discards all entries.
type NoopLogger struct{}

// LogRequest does nothing.
func (NoopLogger) LogRequest(RequestLogEntry) {}

// LoggingMiddlewareConfig configures NewLoggingMiddleware.
type LoggingMiddlewareConfig struct {
	Logger RequestLogger

	// SkipPaths are not logged, e.g. health checks.
	SkipPaths []string
}

// NewLoggingMiddleware creates the middleware. A nil Logger discards.
func NewLoggingMiddleware(config LoggingMiddlewareConfig) *LoggingMiddleware {
	if config.Logger == nil {
		config.Logger = NoopLogger{}
	}
	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipPaths[p] = true
	}
	return &LoggingMiddleware{logger: config.Logger, skipPaths: skipPaths}
}

// Handler wraps next with request logging.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		m.logger.LogRequest(RequestLogEntry{
			Timestamp:     start,
			Method:        r.Method,
			Path:          r.URL.Path,
			StatusCode:    wrapped.statusCode,
			Duration:      time.Since(start),
			RemoteAddr:    getClientIP(r),
			UserAgent:     r.UserAgent(),
			ContentLength: wrapped.bytesWritten,
		})
	})
}

// responseWriterWrapper captures the status code and response size.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

func (w *responseWriterWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// getClientIP prefers X-Forwarded-For and X-Real-IP for proxied requests,
// then the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if i := strings.LastIndexByte(r.RemoteAddr, ':'); i > 0 {
		return strings.Trim(r.RemoteAddr[:i], "[]")
	}
	return r.RemoteAddr
}
