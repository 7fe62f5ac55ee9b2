package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"outlook_backend/core"

	"go.uber.org/zap"
)

// Manager combines the operation tracker, the cleanup registry and signal
// handling.
//
// Usage:
//
//	m := shutdown.NewManager(logger)
//	m.Register("http", shutdown.PriorityServer, shutdown.ShutdownServer(srv))
//	m.Start()
//	<-m.Context().Done()
//	err := m.Shutdown()
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  *SignalCounter
	sigChan  chan os.Signal
	exit     func(code int)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the overall shutdown deadline. Default is 60 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// withExit replaces os.Exit for the forced shutdown path.
func withExit(exit func(code int)) ManagerOption {
	return func(m *Manager) {
		m.exit = exit
	}
}

// NewManager creates a Manager. A second signal exits immediately with
// the signal's exit code.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger,
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewShutdownRegistry(),
		sigChan:  make(chan os.Signal, 2),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("Received second signal, forcing immediate shutdown",
			zap.Int("in_flight", m.tracker.ActiveCount()))
		m.exit(core.ExitCodeSIGINT)
	})
	return m
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function. Lower priorities run first.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start listens for SIGINT and SIGTERM. Calling it again is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			if m.signals.Increment() == 1 {
				m.logger.Info("Received shutdown signal, initiating graceful shutdown",
					zap.String("signal", sig.String()),
				)
				m.cancel()
			}
		}
	}()
}

// Trigger begins shutdown without a signal, e.g. when the service manager
// asks the process to stop or the server fails.
func (m *Manager) Trigger(reason string) {
	m.logger.Info("Shutdown requested", zap.String("reason", reason))
	m.cancel()
}

// Wait blocks until shutdown begins.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Shutdown rejects new operations, waits for running ones and then runs
// the cleanup functions, all within the configured timeout. Later calls
// return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.tracker.Close()
	if ops := m.tracker.InFlight(); len(ops) > 0 {
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = op.Name
		}
		m.logger.Info("Waiting for in-flight operations", zap.Strings("operations", names))
	}

	var waitErr error
	if err := m.tracker.Wait(ctx); err != nil {
		waitErr = fmt.Errorf("in-flight operations did not finish: %w", err)
		m.logger.Warn("Timeout waiting for in-flight operations",
			zap.Duration("waited", time.Since(start)),
			zap.Int("remaining_ops", m.tracker.ActiveCount()),
		)
		// Cleanup still gets a moment even when the wait used everything.
		cancel()
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	m.logger.Info("Executing cleanup functions", zap.Strings("handlers", m.registry.Names()))
	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup function failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
	}

	if waitErr != nil {
		errs = append([]error{waitErr}, errs...)
	}
	if len(errs) > 0 {
		m.logger.Error("Shutdown completed with errors",
			zap.Duration("duration", time.Since(start)),
			zap.Int("error_count", len(errs)),
		)
		return errors.Join(errs...)
	}

	m.logger.Info("Graceful shutdown completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// WrapOperation runs fn as a tracked operation. Once shutdown has begun
// it returns ErrTrackerClosed without calling fn.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	id, ok := m.tracker.Start(name)
	if !ok {
		m.logger.Debug("Operation rejected, system shutting down", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done(id)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// ActiveOperations returns the count of currently in-flight operations.
func (m *Manager) ActiveOperations() int {
	return m.tracker.ActiveCount()
}

// IsShuttingDown returns true if shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// RegisteredHandlers returns handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
