package given

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/go-given/internal/platform/telemetry"
)

// Tag prefixes every trace line so the output can be grepped.
const Tag = "[given]"

const (
	kindRun      = "run"
	kindStep     = "step"
	kindTeardown = "teardown"
)

// Tracer logs and spans the steps, phases and teardowns of one run.
// Metrics are recorded even when trace output is off.
type Tracer struct {
	enabled bool
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// Enabled reports whether trace output is on.
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// traceSpan is one started step, phase, teardown or run.
type traceSpan struct {
	t     *Tracer
	ctx   context.Context
	kind  string
	name  string
	start time.Time
	span  trace.Span
}

func (t *Tracer) start(ctx context.Context, kind, name string) *traceSpan {
	s := &traceSpan{t: t, ctx: ctx, kind: kind, name: name, start: time.Now()}
	if !t.Enabled() {
		return s
	}

	s.ctx, s.span = t.tracer.Start(ctx, kind+" "+name, trace.WithAttributes(
		attribute.String("given.kind", kind),
		attribute.String("given.name", name),
	))
	t.logger.LogAttrs(s.ctx, slog.LevelInfo, fmt.Sprintf("%s %s started", Tag, kind),
		slog.String("name", name),
	)

	return s
}

func (s *traceSpan) end(failed bool) {
	if s.t == nil {
		return
	}

	elapsed := time.Since(s.start)
	switch s.kind {
	case kindStep:
		s.t.metrics.RecordStep(s.ctx, s.name, elapsed, failed)
	case kindTeardown:
		s.t.metrics.RecordTeardown(s.ctx, s.name, failed)
	case kindRun:
	default:
		s.t.metrics.RecordPhase(s.ctx, s.kind, elapsed, failed)
	}

	if !s.t.Enabled() {
		return
	}

	if failed {
		s.span.SetStatus(codes.Error, s.kind+" failed")
	}
	s.span.End()

	s.t.logger.LogAttrs(s.ctx, slog.LevelInfo, fmt.Sprintf("%s %s finished", Tag, s.kind),
		slog.String("name", s.name),
		slog.String("elapsed", fmt.Sprintf("%.4fs", elapsed.Seconds())),
		slog.Bool("failed", failed),
	)
}
