package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func counterByStatus(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("status"))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestGenerationMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewGenerationMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordGeneration(ctx, 3*time.Millisecond, 12, nil)
	m.RecordGeneration(ctx, time.Millisecond, 0, errors.New("boom"))
	m.RecordGeneration(ctx, 2*time.Millisecond, 8, nil)

	metrics := collect(t, reader)
	assert.Equal(t, map[string]int64{"success": 2, "failure": 1},
		counterByStatus(t, metrics["opencrud.generation.total"]))

	types, ok := metrics["opencrud.generation.types"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, types.DataPoints, 1)
	assert.Equal(t, uint64(2), types.DataPoints[0].Count)
	assert.Equal(t, int64(20), types.DataPoints[0].Sum)
}

func TestGenerationMetrics_NilIsNoop(t *testing.T) {
	var m *GenerationMetrics
	assert.NotPanics(t, func() {
		m.RecordGeneration(context.Background(), time.Second, 1, nil)
	})
}

func TestRefreshMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewRefreshMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	metrics := collect(t, reader)
	if lm, ok := metrics["opencrud.schema_refresh.last_success"]; ok {
		gauge, _ := lm.Data.(metricdata.Gauge[int64])
		assert.Empty(t, gauge.DataPoints, "gauge should be empty before the first success")
	}

	ctx := context.Background()
	m.RecordRefresh(ctx, time.Millisecond, true, nil)
	m.RecordRefresh(ctx, time.Millisecond, false, nil)
	m.RecordRefresh(ctx, time.Millisecond, false, errors.New("db down"))

	metrics = collect(t, reader)
	assert.Equal(t, map[string]int64{"success": 2, "failure": 1},
		counterByStatus(t, metrics["opencrud.schema_refresh.attempts"]))

	swaps, ok := metrics["opencrud.schema_refresh.swaps"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, swaps.DataPoints, 1)
	assert.Equal(t, int64(1), swaps.DataPoints[0].Value)

	gauge, ok := metrics["opencrud.schema_refresh.last_success"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, time.Now().Unix(), gauge.DataPoints[0].Value, 5)
}

func TestHTTPMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewHTTPMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	done := m.Start(context.Background(), "/graphql")
	metrics := collect(t, reader)
	active, ok := metrics["opencrud.http.requests.active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.Equal(t, int64(1), active.DataPoints[0].Value)

	done(200)
	metrics = collect(t, reader)
	active = metrics["opencrud.http.requests.active"].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(0), active.DataPoints[0].Value)

	total, ok := metrics["opencrud.http.requests.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1)
	code, _ := total.DataPoints[0].Attributes.Value("status_code")
	assert.Equal(t, int64(200), code.AsInt64())
}
