package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"

	"opencrud-gen/internal/config"
	"opencrud-gen/internal/introspection"
	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/schemarefresh"
	"opencrud-gen/internal/sqltype"
)

const pingTimeout = 10 * time.Second

// Database is an open handle plus the dialect it speaks.
type Database struct {
	DB      *sql.DB
	Dialect sqltype.Dialect

	statsReg interface{ Unregister() error }
}

// Close unregisters pool metrics and closes the handle.
func (d *Database) Close() error {
	if d.statsReg != nil {
		_ = d.statsReg.Unregister()
	}
	return d.DB.Close()
}

// OpenDatabase opens and pings the configured database. The handle is
// instrumented with otelsql when metrics or tracing are enabled.
func OpenDatabase(ctx context.Context, dbCfg config.DatabaseConfig, obs config.ObservabilityConfig, logger *logging.Logger) (*Database, error) {
	dialect, err := dbCfg.Dialect()
	if err != nil {
		return nil, err
	}
	dsn, err := dbCfg.DataSource()
	if err != nil {
		return nil, err
	}

	logger.Info("connecting to database",
		slog.String("driver", string(dialect)),
		slog.String("dsn", dbCfg.RedactedDSN()),
		slog.String("schema", dbCfg.DatabaseName()),
	)

	d := &Database{Dialect: dialect}
	if obs.MetricsEnabled || obs.TracingEnabled {
		system := dbSystem(dialect)
		opts := []otelsql.Option{otelsql.WithAttributes(system)}
		if obs.TracingEnabled {
			opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}))
		}
		if d.DB, err = otelsql.Open(dialect.DriverName(), dsn, opts...); err != nil {
			return nil, err
		}
		if obs.MetricsEnabled {
			reg, err := otelsql.RegisterDBStatsMetrics(d.DB, otelsql.WithAttributes(system))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
			} else {
				d.statsReg = reg
			}
		}
		logger.Debug("database instrumentation enabled",
			slog.Bool("metrics", obs.MetricsEnabled),
			slog.Bool("tracing", obs.TracingEnabled),
		)
	} else if d.DB, err = sql.Open(dialect.DriverName(), dsn); err != nil {
		return nil, err
	}

	pool := dbCfg.Pool
	if dialect == sqltype.SQLite {
		// In-memory SQLite databases exist per connection.
		pool.MaxOpen = 1
	}
	if pool.MaxOpen > 0 {
		d.DB.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		d.DB.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.MaxLifetime > 0 {
		d.DB.SetConnMaxLifetime(pool.MaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := d.DB.PingContext(pingCtx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return d, nil
}

func dbSystem(d sqltype.Dialect) attribute.KeyValue {
	switch d {
	case sqltype.Postgres:
		return semconv.DBSystemPostgreSQL
	case sqltype.SQLite:
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemMySQL
	}
}

// openSource picks the datamodel file when one is configured and the
// database otherwise.
func (a *App) openSource(ctx context.Context, cleanup *cleanupStack) (schemarefresh.Source, *sql.DB, error) {
	if !a.cfg.UsesDatabase() {
		if a.cfg.Database.DSN != "" {
			a.logger.Warn("datamodel.path and database.dsn are both set, serving the datamodel file")
		}
		return &schemarefresh.FileSource{Path: a.cfg.Datamodel.Path}, nil, nil
	}

	database, err := OpenDatabase(ctx, a.cfg.Database, a.cfg.Observability, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(context.Context) error {
		return database.Close()
	})

	introspector, err := introspection.New(database.Dialect, database.DB, a.logger.Logger)
	if err != nil {
		return nil, nil, err
	}
	source := schemarefresh.NewDatabaseSource(introspector, a.cfg.Database.DatabaseName(), a.cfg.Naming, a.logger.Logger)
	return source, database.DB, nil
}

func startSchemaManager(ctx context.Context, cfg *config.Config, logger *logging.Logger, source schemarefresh.Source, tel telemetry) (*schemarefresh.Manager, context.CancelFunc, error) {
	manager, err := schemarefresh.NewManager(ctx, schemarefresh.Config{
		Source:      source,
		Naming:      cfg.Naming,
		Logger:      logger,
		Generation:  tel.generation,
		Metrics:     tel.refresh,
		MinInterval: cfg.Server.SchemaRefreshMinInterval,
		MaxInterval: cfg.Server.SchemaRefreshMaxInterval,
		GraphiQL:    cfg.Server.GraphiQLEnabled,
	})
	if err != nil {
		return nil, nil, err
	}

	schemaCtx, schemaCancel := context.WithCancel(context.Background())
	manager.Start(schemaCtx)

	return manager, schemaCancel, nil
}
