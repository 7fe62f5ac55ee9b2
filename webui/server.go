// Package webui serves the forecast page: upload documents, run one
// generation and download the result as a Word document.
package webui

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"outlook_backend/db"
	"outlook_backend/metrics"
	"outlook_backend/pipeline"
	"outlook_backend/webui/static"

	"go.uber.org/zap"
)

// Generator runs one generation; implemented by *pipeline.Generator.
type Generator interface {
	Generate(ctx context.Context, in pipeline.Input) (*pipeline.Output, error)
	Budget() int
}

// OperationRunner tracks long-running work so shutdown can wait for it;
// implemented by *shutdown.Manager.
type OperationRunner interface {
	WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error
}

// HistoryStore is the read side of the generation history; implemented
// by *db.Repository.
type HistoryStore interface {
	RecentGenerations(ctx context.Context, limit int) ([]db.GenerationRecord, error)
	Ping(ctx context.Context) error
}

// StatsSource reports generation statistics; implemented by
// *metrics.Store.
type StatsSource interface {
	Summary() metrics.Summary
	Recent(limit int) []metrics.Sample
}

// AuthProvider wraps handlers with authentication; implemented by
// *auth.BasicAuth.
type AuthProvider interface {
	Middleware(next http.Handler) http.Handler
}

// Server is the HTTP front end.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	logger     *zap.Logger
	templates  *template.Template

	generator Generator
	runner    OperationRunner
	history   HistoryStore
	stats     StatsSource
	auth      AuthProvider

	downloads *DownloadStore
	limiter   *RateLimiter
	loggingMw *LoggingMiddleware
	assets    *StaticAssetHandler
}

// ServerConfig configures the Server.
type ServerConfig struct {
	Host string
	Port int

	ReadTimeout time.Duration

	// WriteTimeout must exceed the model timeout, the result page is
	// written only after the completion returns.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxFiles    int
	MaxFileSize int64

	Title       string
	Description string
	Version     string

	DownloadTTL        time.Duration
	RateLimitPerMinute int

	// HistoryLimit caps /api/history (default 100)
	HistoryLimit int

	LogSkipPaths []string
	StaticConfig StaticAssetConfig
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:               8501,
		ReadTimeout:        60 * time.Second,
		WriteTimeout:       180 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		MaxFiles:           10,
		MaxFileSize:        25 << 20,
		DownloadTTL:        time.Hour,
		RateLimitPerMinute: 6,
		HistoryLimit:       100,
		LogSkipPaths:       []string{"/health"},
		StaticConfig:       DefaultStaticAssetConfig(),
	}
}

// ServerOption configures optional collaborators.
type ServerOption func(*Server)

// WithAuth protects every route except /health.
func WithAuth(a AuthProvider) ServerOption {
	return func(s *Server) { s.auth = a }
}

// WithHistory enables /api/history and the database check in /health.
func WithHistory(h HistoryStore) ServerOption {
	return func(s *Server) { s.history = h }
}

// WithStats enables /api/stats and adds a summary to /health.
func WithStats(st StatsSource) ServerOption {
	return func(s *Server) { s.stats = st }
}

// WithOperationRunner makes generations visible to graceful shutdown.
func WithOperationRunner(r OperationRunner) ServerOption {
	return func(s *Server) { s.runner = r }
}

// NewServer wires routes and middleware.
func NewServer(config ServerConfig, gen Generator, logger *zap.Logger, opts ...ServerOption) (*Server, error) {
	if gen == nil {
		return nil, errors.New("webui: generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFiles <= 0 {
		return nil, fmt.Errorf("webui: MaxFiles must be positive, got %d", config.MaxFiles)
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 100
	}
	if config.DownloadTTL <= 0 {
		config.DownloadTTL = time.Hour
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	tmpl, err := template.ParseFS(static.GetFS(), "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("webui: failed to parse templates: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		logger:    logger,
		templates: tmpl,
		generator: gen,
		runner:    directRunner{},
		downloads: NewDownloadStore(config.DownloadTTL),
		limiter:   NewRateLimiter(config.RateLimitPerMinute, time.Minute),
		loggingMw: NewLoggingMiddleware(LoggingMiddlewareConfig{
			Logger:    &ZapRequestLogger{Logger: logger},
			SkipPaths: config.LogSkipPaths,
		}),
		assets: NewStaticAssetHandler(config.StaticConfig),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.rootHandler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger.Info("WebUI server created",
		zap.String("addr", addr),
		zap.Bool("auth_enabled", s.auth != nil),
		zap.Bool("history_enabled", s.history != nil),
		zap.Bool("stats_enabled", s.stats != nil),
	)
	return s, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.assets.RegisterRoutes(s.mux)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /generate", s.handleGenerate)
	s.mux.HandleFunc("GET /download/{id}", s.handleDownload)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
}

// rootHandler applies auth (except for /health) and request logging.
func (s *Server) rootHandler() http.Handler {
	var handler http.Handler = s.mux
	if s.auth != nil {
		protected := s.auth.Middleware(s.mux)
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				s.mux.ServeHTTP(w, r)
				return
			}
			protected.ServeHTTP(w, r)
		})
	}
	return s.loggingMw.Handler(handler)
}

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the background cleanups and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.downloads.StartCleanupTicker(ctx, 5*time.Minute)
	s.limiter.StartCleanupTicker(ctx, 5*time.Minute)

	s.logger.Info("WebUI server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for running requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down WebUI server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	s.logger.Info("WebUI server stopped")
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Downloads exposes the download store, for tests and diagnostics.
func (s *Server) Downloads() *DownloadStore {
	return s.downloads
}

// directRunner runs operations untracked when no runner is configured.
type directRunner struct{}

func (directRunner) WrapOperation(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}
