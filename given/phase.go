package given

import "runtime/debug"

// PhaseKind names a descriptive block of a scenario.
type PhaseKind string

// Phase kinds. They only change how the block is labelled in trace output.
const (
	PhaseGiven  PhaseKind = "given"
	PhaseWhen   PhaseKind = "when"
	PhaseThen   PhaseKind = "then"
	PhaseResult PhaseKind = "result"
)

// Phase is a descriptive block. Entering and exiting it only traces; it
// carries no resource.
type Phase struct {
	kind   PhaseKind
	label  string
	c      *Context
	span   *traceSpan
	exited bool
}

// Phase creates a descriptive block for manual Enter/Exit use.
func (c *Context) Phase(kind PhaseKind, label string) *Phase {
	return &Phase{kind: kind, label: label, c: c}
}

// Enter starts the phase timer and logs the start when tracing. A phase
// is entered once; a second Enter returns ErrAlreadyEntered.
func (p *Phase) Enter() error {
	if p.span != nil {
		return ErrAlreadyEntered
	}
	p.span = p.c.tracer.start(p.c.ctx, string(p.kind), p.label)
	return nil
}

// Exit logs the finish with the elapsed time when tracing.
func (p *Phase) Exit(outcome Outcome) error {
	if p.span == nil || p.exited {
		return nil
	}
	p.exited = true
	p.span.end(outcome.Failed())
	return nil
}

// Mock returns the placeholder yielded by the phase.
func (p *Phase) Mock() *Mock {
	return NewMock()
}

// Given describes additional setup inside the body.
func (c *Context) Given(label string, fn func(m *Mock)) {
	c.runPhase(PhaseGiven, label, fn)
}

// When describes the action under test.
func (c *Context) When(label string, fn func(m *Mock)) {
	c.runPhase(PhaseWhen, label, fn)
}

// Then describes an expectation.
func (c *Context) Then(label string, fn func(m *Mock)) {
	c.runPhase(PhaseThen, label, fn)
}

// Result describes the value produced by the action.
func (c *Context) Result(label string, fn func(m *Mock)) {
	c.runPhase(PhaseResult, label, fn)
}

// runPhase wraps fn in a Phase. Panics and runtime.Goexit pass through
// after the finish line has been logged.
func (c *Context) runPhase(kind PhaseKind, label string, fn func(m *Mock)) {
	p := c.Phase(kind, label)
	_ = p.Enter()

	outcome := Outcome{Aborted: true}
	defer func() {
		if r := recover(); r != nil {
			_ = p.Exit(Outcome{Panic: r, Stack: debug.Stack()})
			panic(r)
		}
		_ = p.Exit(outcome)
	}()

	fn(p.Mock())
	outcome = Outcome{}
}
