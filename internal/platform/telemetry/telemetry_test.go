package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	assert.Nil(t, p.Registry())
	assert.NotNil(t, p.TracerProvider())
	assert.NotNil(t, p.MeterProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_UnknownExporter(t *testing.T) {
	_, err := New(context.Background(), &Config{Enabled: true, Exporter: "zipkin", ServiceName: "go-given"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}

func TestNew_PrometheusExporter(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, &Config{
		Enabled:     true,
		Exporter:    ExporterPrometheus,
		ServiceName: "go-given",
		Version:     "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })
	require.NotNil(t, p.Registry())

	m, err := NewMetrics(p.MeterProvider())
	require.NoError(t, err)

	m.RecordRun(ctx, "passed")
	m.RecordStep(ctx, "database is ready", 10*time.Millisecond, false)

	families, err := p.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "given_run")
	assert.Contains(t, joined, "given_step_duration")
}

func TestMetrics_Record(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	m.RecordStep(ctx, "number is set", time.Millisecond, false)
	m.RecordPhase(ctx, "when", time.Millisecond, false)
	m.RecordTeardown(ctx, "database is ready", true)
	m.RecordRun(ctx, "failed")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]bool{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		got[md.Name] = true
	}
	assert.True(t, got["given.step.duration"])
	assert.True(t, got["given.phase.duration"])
	assert.True(t, got["given.teardown.total"])
	assert.True(t, got["given.run.total"])
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStep(context.Background(), "x", time.Second, false)
		m.RecordPhase(context.Background(), "then", time.Second, true)
		m.RecordTeardown(context.Background(), "x", false)
		m.RecordRun(context.Background(), "passed")
	})
}
