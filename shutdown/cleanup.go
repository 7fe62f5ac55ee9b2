package shutdown

import (
	"context"
	"errors"
	"io"
	"syscall"

	"outlook_backend/core"

	"go.uber.org/zap"
)

// ContextCloser is anything with a context-aware shutdown, such as
// *http.Server or the web UI server.
type ContextCloser interface {
	Shutdown(ctx context.Context) error
}

// ShutdownServer adapts a ContextCloser.
func ShutdownServer(s ContextCloser) core.ShutdownFunc {
	return s.Shutdown
}

// CloseResource adapts an io.Closer; the context is not consulted.
func CloseResource(c io.Closer) core.ShutdownFunc {
	return func(context.Context) error {
		return c.Close()
	}
}

// SyncLogger flushes logger. Sync on a terminal or pipe fails with EINVAL
// or ENOTTY on some platforms; those errors are ignored.
func SyncLogger(logger *zap.Logger) core.ShutdownFunc {
	return func(context.Context) error {
		err := logger.Sync()
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
			return nil
		}
		return err
	}
}
