package given

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/jsamuelsen/go-given/internal/platform/logging"
	"github.com/jsamuelsen/go-given/internal/platform/telemetry"
)

// startedStep is one entry of the started-steps list. scoped is nil for
// steps that returned nothing to tear down.
type startedStep struct {
	name   string
	scoped Scoped
}

// Scope is an open orchestration: every step has run and the Context is
// ready for the body. Close releases the started resources in reverse.
type Scope struct {
	c       *Context
	started []startedStep
	run     *traceSpan
	metrics *telemetry.Metrics
	closed  bool
}

// Run executes steps in order, calls body with the shared Context and then
// tears down every started resource in reverse order.
//
// A step error aborts the remaining steps and is returned as a *StepError.
// A body error is returned unchanged. Releases that fail are collected into
// a *TeardownError joined after the original failure. A panic or
// runtime.Goexit in a step or the body still tears down, then continues
// unchanged; release errors in that case are logged.
func Run(ctx context.Context, steps []Step, body func(c *Context) error, opts ...Option) error {
	s, err := Open(ctx, steps, opts...)
	if err != nil {
		return err
	}
	return s.runBody(body)
}

// Open runs steps in order and returns the open scope. On a step failure the
// already started resources are released before Open returns the error.
func Open(ctx context.Context, steps []Step, opts ...Option) (*Scope, error) {
	s := newScope(ctx, opts)
	if err := s.enter(steps); err != nil {
		return nil, err
	}
	return s, nil
}

func newScope(ctx context.Context, opts []Option) *Scope {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.resolve()

	runID := uuid.NewString()
	ctx = logging.WithRunID(logging.WithContext(ctx, cfg.logger), runID)
	if cfg.scenario != "" {
		ctx = logging.WithScenario(ctx, cfg.scenario)
	}
	logger := logging.FromContext(ctx)

	metrics, err := telemetry.NewMetrics(cfg.meterProvider)
	if err != nil {
		logger.Warn(Tag+" metrics disabled", slog.Any("error", err))
	}

	tracer := &Tracer{
		enabled: *cfg.trace,
		logger:  logger,
		tracer:  cfg.tracerProvider.Tracer(telemetry.InstrumentationName),
		metrics: metrics,
	}

	run := tracer.start(ctx, kindRun, runID)

	return &Scope{
		c:       newContext(run.ctx, runID, tracer),
		run:     run,
		metrics: metrics,
	}
}

// Context returns the shared Context. It stays readable after Close.
func (s *Scope) Context() *Context {
	return s.c
}

// Started returns the names of the started steps in start order.
func (s *Scope) Started() []string {
	names := make([]string, 0, len(s.started))
	for _, st := range s.started {
		names = append(names, st.name)
	}
	return names
}

// Close releases every started resource in reverse start order, passing
// outcome to each. All releases run even if some fail; their errors come
// back as a *TeardownError.
func (s *Scope) Close(outcome Outcome) error {
	if s.closed {
		return ErrScopeClosed
	}
	s.closed = true

	var errs []error
	for i := len(s.started) - 1; i >= 0; i-- {
		st := s.started[i]
		if st.scoped == nil {
			continue
		}
		if err := s.release(st, outcome); err != nil {
			errs = append(errs, fmt.Errorf("release %q: %w", st.name, err))
		}
	}

	s.run.end(outcome.Failed() || len(errs) > 0)
	s.metrics.RecordRun(s.c.ctx, outcome.label())

	if len(errs) > 0 {
		return &TeardownError{Errs: errs}
	}
	return nil
}

func (s *Scope) enter(steps []Step) error {
	completed := false
	defer func() {
		if !completed {
			s.unwind(recover())
		}
	}()

	for i, step := range steps {
		if err := s.startStep(i, step); err != nil {
			completed = true
			stepErr := &StepError{Index: i, Name: step.label(i), Err: err}
			return joinFailure(stepErr, s.Close(Outcome{Err: stepErr}))
		}
	}

	completed = true
	return nil
}

// startStep calls the step and enters its result. A step whose Enter fails
// is not added to the started list, so it is never exited.
func (s *Scope) startStep(index int, step Step) error {
	name := step.label(index)
	span := s.c.tracer.start(s.c.ctx, kindStep, name)

	failed := true
	defer func() { span.end(failed) }()

	var scoped Scoped
	if step.Fn != nil {
		var err error
		scoped, err = step.Fn(s.c)
		if err != nil {
			return err
		}
	}

	if scoped != nil {
		if err := scoped.Enter(); err != nil {
			return fmt.Errorf("entering resource: %w", err)
		}
	}

	s.started = append(s.started, startedStep{name: name, scoped: scoped})
	failed = false
	return nil
}

func (s *Scope) runBody(body func(c *Context) error) error {
	completed := false
	defer func() {
		if !completed {
			s.unwind(recover())
		}
	}()

	err := body(s.c)
	completed = true

	return joinFailure(err, s.Close(Outcome{Err: err}))
}

// unwind tears down after a panic (r != nil) or runtime.Goexit (r == nil)
// and then lets it continue.
func (s *Scope) unwind(r any) {
	outcome := Outcome{Aborted: true}
	if r != nil {
		outcome = Outcome{Panic: r, Stack: debug.Stack()}
	}

	if err := s.Close(outcome); err != nil {
		s.c.Logger().Error(Tag+" teardown failed while unwinding",
			slog.String("outcome", outcome.String()),
			slog.Any("error", err),
		)
	}

	if r != nil {
		panic(r)
	}
}

// release exits one resource, turning a panic in Exit into an error so the
// remaining releases still run.
func (s *Scope) release(st startedStep, outcome Outcome) (err error) {
	span := s.c.tracer.start(s.c.ctx, kindTeardown, st.name)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release panicked: %v", r)
		}
		span.end(err != nil)
	}()

	return st.scoped.Exit(outcome)
}
