// Command opencrud generates OpenCRUD GraphQL schemas from datamodels and
// database catalogs.
//
// Usage:
//
//	opencrud generate   --datamodel.path datamodel.graphql [--datamodel.output schema.graphql]
//	opencrud introspect --database.driver postgres --database.dsn postgres://... [--database.schema public]
//	opencrud serve      [--datamodel.path F | --database.dsn DSN]
//	opencrud version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"opencrud-gen/internal/config"
	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/inferrer"
	"opencrud-gen/internal/introspection"
	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/naming"
	"opencrud-gen/internal/schemagen"
	"opencrud-gen/internal/sdl"
	"opencrud-gen/internal/serverapp"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

const usage = `Usage: opencrud <command> [flags]

Commands:
  generate    Generate the OpenCRUD schema SDL for a datamodel file
  introspect  Infer a datamodel from a database catalog
  serve       Serve the generated schema for GraphQL tooling
  version     Print the version

Run "opencrud <command> --help" for the flags of a command.
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errUsage) {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	name, rest := args[0], args[1:]
	var command config.Command
	switch name {
	case "version", "--version":
		fmt.Fprintf(stdout, "opencrud-gen %s (%s)\n", Version, Commit)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	case "generate":
		command = config.CommandGenerate
	case "introspect":
		command = config.CommandIntrospect
	case "serve":
		command = config.CommandServe
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return errUsage
	}

	fs := config.NewFlagSet("opencrud " + name)
	fs.SetOutput(stderr)
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	cfg, err := config.LoadFlags(fs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: stderr,
	})
	if err := validate(cfg, command, logger); err != nil {
		return err
	}

	switch command {
	case config.CommandGenerate:
		return generate(ctx, cfg, logger, stdout)
	case config.CommandIntrospect:
		return introspect(ctx, cfg, logger, stdout)
	default:
		return serve(ctx, cfg)
	}
}

func validate(cfg *config.Config, command config.Command, logger *logging.Logger) error {
	result := cfg.Validate(command)
	for _, warn := range result.Warnings {
		logger.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if !result.HasErrors() {
		return nil
	}
	for _, err := range result.Errors {
		logger.Error("configuration error",
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.String("hint", err.Hint),
		)
	}
	return fmt.Errorf("configuration validation failed: %w", result)
}

func generate(ctx context.Context, cfg *config.Config, logger *logging.Logger, stdout io.Writer) error {
	path := cfg.Datamodel.Path
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read datamodel: %w", err)
	}
	model, err := datamodel.Parse(path, string(src))
	if err != nil {
		return err
	}

	start := time.Now()
	schema, err := schemagen.Generate(ctx, model,
		schemagen.WithNamer(naming.New(cfg.Naming, logger.Component("naming"))),
		schemagen.WithLogger(logger.Component("schemagen")),
	)
	if err != nil {
		return err
	}
	out, err := sdl.Print(schema)
	if err != nil {
		return err
	}
	if err := sdl.Validate(out); err != nil {
		return fmt.Errorf("generated schema does not validate: %w", err)
	}

	logger.Info("schema generated",
		slog.String("datamodel", path),
		slog.Int("types", len(model.Types)),
		slog.Duration("duration", time.Since(start)),
	)
	return writeOutput(cfg.Datamodel.Output, out, stdout)
}

func introspect(ctx context.Context, cfg *config.Config, logger *logging.Logger, stdout io.Writer) error {
	database, err := serverapp.OpenDatabase(ctx, cfg.Database, config.ObservabilityConfig{}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	introspector, err := introspection.New(database.Dialect, database.DB, logger.Logger)
	if err != nil {
		return err
	}
	catalog, err := introspector.Introspect(ctx, cfg.Database.DatabaseName())
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}
	model, err := inferrer.Infer(catalog, naming.New(cfg.Naming, logger.Component("naming")),
		inferrer.WithLogger(logger.Component("inferrer")))
	if err != nil {
		return err
	}
	out, err := datamodel.Render(model)
	if err != nil {
		return err
	}

	logger.Info("datamodel inferred",
		slog.String("schema", catalog.Name),
		slog.Int("tables", len(catalog.Tables)),
		slog.Int("types", len(model.Types)),
	)
	return writeOutput(cfg.Datamodel.Output, out, stdout)
}

func writeOutput(path, content string, stdout io.Writer) error {
	if path == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, loggerProvider, err := serverapp.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	app, err := serverapp.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return err
	}
	app.AttachLoggerProvider(loggerProvider)

	if err := app.Init(ctx); err != nil {
		return err
	}

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	}

	serverErrors, err := app.Start()
	if err != nil {
		_ = shutdown()
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	_, waitErr := app.WaitForStop(stop, serverErrors)

	logger.Info("shutting down server gracefully")
	shutdownErr := shutdown()

	if waitErr != nil {
		return waitErr
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	logger.Info("server stopped gracefully")
	return nil
}
