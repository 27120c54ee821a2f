// Package serverapp runs the schema preview server: it wires configuration,
// telemetry, the datamodel source and the HTTP endpoints into one lifecycle.
package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"opencrud-gen/internal/config"
	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/observability"
	"opencrud-gen/internal/schemarefresh"
)

// App owns runtime resources for the preview server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	telemetry      telemetry
	tracerProvider *observability.TracerProvider

	db     *sql.DB
	source schemarefresh.Source

	manager      *schemarefresh.Manager
	schemaCancel context.CancelFunc

	handler http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.UsesDatabase() && cfg.Database.DSN == "" {
		return nil, fmt.Errorf("serve needs datamodel.path or database.dsn")
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the wrapped HTTP handler once Init has completed.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}

// Manager returns the schema refresh manager once Init has completed.
func (a *App) Manager() *schemarefresh.Manager {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.manager
}
