package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName identifies spans and instruments emitted by the orchestrator.
const InstrumentationName = "github.com/jsamuelsen/go-given"

// Metrics holds the orchestration instruments. A nil *Metrics records nothing.
type Metrics struct {
	stepDuration  metric.Float64Histogram
	phaseDuration metric.Float64Histogram
	teardownTotal metric.Int64Counter
	runTotal      metric.Int64Counter
}

// NewMetrics creates orchestration metrics on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(InstrumentationName)

	stepDuration, err := meter.Float64Histogram(
		"given.step.duration",
		metric.WithDescription("Setup step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	phaseDuration, err := meter.Float64Histogram(
		"given.phase.duration",
		metric.WithDescription("Descriptive phase block duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	teardownTotal, err := meter.Int64Counter(
		"given.teardown.total",
		metric.WithDescription("Number of resource teardowns"),
	)
	if err != nil {
		return nil, err
	}

	runTotal, err := meter.Int64Counter(
		"given.run.total",
		metric.WithDescription("Number of orchestration runs"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		stepDuration:  stepDuration,
		phaseDuration: phaseDuration,
		teardownTotal: teardownTotal,
		runTotal:      runTotal,
	}, nil
}

// RecordStep records one setup step.
func (m *Metrics) RecordStep(ctx context.Context, step string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.stepDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("failed", failed),
	))
}

// RecordPhase records one when/then/result block.
func (m *Metrics) RecordPhase(ctx context.Context, kind string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.phaseDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("phase", kind),
		attribute.Bool("failed", failed),
	))
}

// RecordTeardown counts one resource release.
func (m *Metrics) RecordTeardown(ctx context.Context, step string, failed bool) {
	if m == nil {
		return
	}
	m.teardownTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("failed", failed),
	))
}

// RecordRun counts one finished orchestration run.
func (m *Metrics) RecordRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.runTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
