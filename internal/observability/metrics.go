package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for all opencrud-gen metrics.
const MeterName = "opencrud-gen"

// DefaultMeter returns the meter from the global provider.
func DefaultMeter() metric.Meter {
	return otel.Meter(MeterName)
}

func statusAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// GenerationMetrics records schema generation runs.
type GenerationMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	types    metric.Int64Histogram
}

// NewGenerationMetrics registers the generation instruments on meter.
func NewGenerationMetrics(meter metric.Meter) (*GenerationMetrics, error) {
	duration, err := meter.Float64Histogram(
		"opencrud.generation.duration",
		metric.WithDescription("Duration of OpenCRUD schema generation in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}
	total, err := meter.Int64Counter(
		"opencrud.generation.total",
		metric.WithDescription("Total number of schema generations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation counter: %w", err)
	}
	types, err := meter.Int64Histogram(
		"opencrud.generation.types",
		metric.WithDescription("Number of types in each generated schema"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation types histogram: %w", err)
	}
	return &GenerationMetrics{duration: duration, total: total, types: types}, nil
}

// RecordGeneration records one generation run.
func (m *GenerationMetrics) RecordGeneration(ctx context.Context, duration time.Duration, types int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(statusAttr(err))
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.total.Add(ctx, 1, attrs)
	if err == nil {
		m.types.Record(ctx, int64(types))
	}
}

// RefreshMetrics tracks the preview server's schema refresh loop.
type RefreshMetrics struct {
	attempts    metric.Int64Counter
	duration    metric.Float64Histogram
	swaps       metric.Int64Counter
	lastSuccess atomic.Int64
}

// NewRefreshMetrics registers the refresh instruments on meter, including an
// observable gauge holding the unix time of the last successful refresh.
func NewRefreshMetrics(meter metric.Meter) (*RefreshMetrics, error) {
	m := &RefreshMetrics{}
	var err error

	m.attempts, err = meter.Int64Counter(
		"opencrud.schema_refresh.attempts",
		metric.WithDescription("Schema refresh attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh attempts counter: %w", err)
	}
	m.duration, err = meter.Float64Histogram(
		"opencrud.schema_refresh.duration",
		metric.WithDescription("Duration of schema refresh attempts in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh duration histogram: %w", err)
	}
	m.swaps, err = meter.Int64Counter(
		"opencrud.schema_refresh.swaps",
		metric.WithDescription("Schema snapshots replaced after a detected change"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh swap counter: %w", err)
	}
	lastSuccess, err := meter.Int64ObservableGauge(
		"opencrud.schema_refresh.last_success",
		metric.WithDescription("Unix time of the last successful schema refresh"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh last success gauge: %w", err)
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if ts := m.lastSuccess.Load(); ts > 0 {
			o.ObserveInt64(lastSuccess, ts)
		}
		return nil
	}, lastSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to register refresh callback: %w", err)
	}
	return m, nil
}

// RecordRefresh records one refresh attempt. changed reports whether a new
// snapshot replaced the current one.
func (m *RefreshMetrics) RecordRefresh(ctx context.Context, duration time.Duration, changed bool, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(statusAttr(err))
	m.attempts.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		return
	}
	m.lastSuccess.Store(time.Now().Unix())
	if changed {
		m.swaps.Add(ctx, 1)
	}
}

// HTTPMetrics records preview server requests by route.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the HTTP instruments on meter.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	duration, err := meter.Float64Histogram(
		"opencrud.http.request.duration",
		metric.WithDescription("Duration of preview server requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	total, err := meter.Int64Counter(
		"opencrud.http.requests.total",
		metric.WithDescription("Total number of preview server requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	active, err := meter.Int64UpDownCounter(
		"opencrud.http.requests.active",
		metric.WithDescription("Number of in-flight preview server requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}
	return &HTTPMetrics{duration: duration, total: total, active: active}, nil
}

// Start marks a request as in flight and returns a func that records its
// completion with the response status code.
func (m *HTTPMetrics) Start(ctx context.Context, route string) func(status int) {
	if m == nil {
		return func(int) {}
	}
	start := time.Now()
	routeAttr := attribute.String("route", route)
	m.active.Add(ctx, 1, metric.WithAttributes(routeAttr))
	return func(status int) {
		m.active.Add(ctx, -1, metric.WithAttributes(routeAttr))
		attrs := metric.WithAttributes(routeAttr, attribute.Int("status_code", status))
		m.total.Add(ctx, 1, attrs)
		m.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	}
}
