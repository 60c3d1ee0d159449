// internal/app/shutdown.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// CloseFunc allows using a function as an io.Closer.
type CloseFunc func() error

func (f CloseFunc) Close() error {
	return f()
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// ShutdownHandler closes registered components in reverse registration order,
// so consumers stop before the things they depend on.
type ShutdownHandler struct {
	logger  *zap.Logger
	mu      sync.Mutex
	closers []namedCloser
}

func NewShutdownHandler(logger *zap.Logger) *ShutdownHandler {
	return &ShutdownHandler{logger: logger.Named("shutdown")}
}

func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.closers = append(sh.closers, namedCloser{name: name, closer: closer})
	sh.logger.Debug("Registered component for shutdown", zap.String("component", name))
}

func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// Shutdown closes everything, giving up on a component once ctx expires. The
// remaining components are still closed.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	closers := sh.closers
	sh.closers = nil
	sh.mu.Unlock()

	sh.logger.Info("Starting graceful shutdown", zap.Int("components", len(closers)))

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		done := make(chan error, 1)
		go func() { done <- c.closer.Close() }()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to close component", zap.String("component", c.name), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
			sh.logger.Debug("Component closed", zap.String("component", c.name))
		case <-ctx.Done():
			sh.logger.Error("Shutdown timeout for component", zap.String("component", c.name))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, ctx.Err()))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sh.logger.Info("Graceful shutdown completed")
	return nil
}
