package given

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures one run.
type Option func(*settings)

type settings struct {
	trace          *bool
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	scenario       string
}

// WithTrace turns trace output on or off for this run only. Without it the
// configured default (GIVEN_TRACE_ENABLED) applies; nested runs never
// inherit the setting of the run they are started from.
func WithTrace(enabled bool) Option {
	return func(s *settings) {
		s.trace = &enabled
	}
}

// WithLogger sets the logger trace lines are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithTracerProvider sets where run, step and phase spans go.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) {
		s.tracerProvider = tp
	}
}

// WithMeterProvider sets where orchestration metrics go.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *settings) {
		s.meterProvider = mp
	}
}

// WithScenario names the scenario the run belongs to. The name is added to
// every log line of the run.
func WithScenario(name string) Option {
	return func(s *settings) {
		s.scenario = name
	}
}
