package serverapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opencrud-gen/internal/logging"
)

type releaseFunc func(context.Context) error

type resource struct {
	name    string
	release releaseFunc
}

// cleanupStack releases resources in reverse order of acquisition.
type cleanupStack struct {
	resources []resource
}

func (s *cleanupStack) push(name string, release releaseFunc) {
	s.resources = append(s.resources, resource{name: name, release: release})
}

// run releases every resource, even after failures, and returns the
// failures joined.
func (s *cleanupStack) run(ctx context.Context, logger *logging.Logger) error {
	var errs []error
	for i := len(s.resources) - 1; i >= 0; i-- {
		r := s.resources[i]
		if logger != nil {
			logger.Debug("releasing " + r.name)
		}
		if err := r.release(ctx); err != nil {
			if logger != nil {
				logger.Warn("cleanup error",
					slog.String("resource", r.name),
					slog.String("error", err.Error()),
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops the server and releases every acquired resource. Only the
// first call does any work; later calls return its result.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		cleanup := a.cleanup
		a.cleanup = cleanupStack{}
		a.started = false
		a.stateMu.Unlock()

		a.shutdownErr = cleanup.run(ctx, a.logger)
	})

	return a.shutdownErr
}
