package serverapp

import (
	"log/slog"

	"opencrud-gen/internal/config"
	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/observability"
)

// telemetry bundles the meter provider with the instruments built on it.
// Every field is nil when metrics are disabled; the instruments treat a nil
// receiver as a no-op.
type telemetry struct {
	provider   *observability.MeterProvider
	generation *observability.GenerationMetrics
	refresh    *observability.RefreshMetrics
	http       *observability.HTTPMetrics
}

// InitLogger builds the process logger from configuration and installs it
// as the slog default. When log exports are enabled the returned provider
// must be shut down by the caller.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	otlp := cfg.Observability.OTLP
	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", otlp.Endpoint),
		slog.String("otlp_protocol", otlp.Protocol),
		slog.Bool("insecure", otlp.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(observabilityConfig(cfg))
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)
	logger.Info("OpenTelemetry logging initialized")

	return logger, loggerProvider, nil
}

func observabilityConfig(cfg *config.Config) observability.Config {
	o := cfg.Observability
	return observability.Config{
		ServiceName:      o.ServiceName,
		ServiceVersion:   o.ServiceVersion,
		Environment:      o.Environment,
		TraceSampleRatio: o.TraceSampleRatio,
		OTLPConfig: observability.OTLPExporterConfig{
			Endpoint:          o.OTLP.Endpoint,
			Protocol:          o.OTLP.Protocol,
			Insecure:          o.OTLP.Insecure,
			TLSCertFile:       o.OTLP.TLSCertFile,
			TLSClientCertFile: o.OTLP.TLSClientCertFile,
			TLSClientKeyFile:  o.OTLP.TLSClientKeyFile,
			Headers:           o.OTLP.Headers,
			Timeout:           o.OTLP.Timeout,
			Compression:       o.OTLP.Compression,
			RetryEnabled:      o.OTLP.RetryEnabled,
			RetryMaxAttempts:  o.OTLP.RetryMaxAttempts,
		},
	}
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (telemetry, error) {
	if !cfg.Observability.MetricsEnabled {
		return telemetry{}, nil
	}

	logger.Info("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
	)

	provider, err := observability.InitMeterProvider(observabilityConfig(cfg))
	if err != nil {
		return telemetry{}, err
	}
	tel := telemetry{provider: provider}

	meter := observability.DefaultMeter()
	if tel.generation, err = observability.NewGenerationMetrics(meter); err != nil {
		return telemetry{}, err
	}
	if tel.refresh, err = observability.NewRefreshMetrics(meter); err != nil {
		return telemetry{}, err
	}
	if tel.http, err = observability.NewHTTPMetrics(meter); err != nil {
		return telemetry{}, err
	}

	logger.Info("OpenTelemetry metrics initialized")
	return tel, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	otlp := cfg.Observability.OTLP
	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", otlp.Endpoint),
		slog.String("otlp_protocol", otlp.Protocol),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)

	tracerProvider, err := observability.InitTracerProvider(observabilityConfig(cfg))
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized")
	return tracerProvider, nil
}
