package given

import "fmt"

// Scoped is implemented by step results that need guaranteed teardown.
// Enter is called right after the step returns; Exit is called once when
// the enclosing scope ends, with the outcome of the body.
type Scoped interface {
	Enter() error
	Exit(outcome Outcome) error
}

// Outcome describes how a scope ended. The zero value means success.
type Outcome struct {
	// Err is the error returned by the body or by a failing step.
	Err error
	// Panic is the recovered panic value, if the body panicked.
	Panic any
	// Stack is the goroutine stack captured with Panic.
	Stack []byte
	// Aborted is set when the body left via runtime.Goexit, e.g. t.FailNow.
	Aborted bool
}

// Failed reports whether the scope ended with any kind of failure.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Panic != nil || o.Aborted
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch {
	case o.Panic != nil:
		return fmt.Sprintf("panicked: %v", o.Panic)
	case o.Aborted:
		return "aborted"
	case o.Err != nil:
		return fmt.Sprintf("failed: %v", o.Err)
	default:
		return "passed"
	}
}

// label is the low-cardinality form used in metrics.
func (o Outcome) label() string {
	switch {
	case o.Panic != nil:
		return "panicked"
	case o.Aborted:
		return "aborted"
	case o.Err != nil:
		return "failed"
	default:
		return "passed"
	}
}

// Resource pairs an acquire and a release action into one Scoped unit.
type Resource struct {
	acquire func() error
	release func(Outcome) error
	entered bool
	exited  bool
}

// NewResource creates a Resource from two plain actions. Either may be nil.
func NewResource(acquire, release func() error) *Resource {
	r := &Resource{acquire: acquire}
	if release != nil {
		r.release = func(Outcome) error { return release() }
	}
	return r
}

// NewOutcomeResource creates a Resource whose release sees how the scope ended.
func NewOutcomeResource(acquire func() error, release func(Outcome) error) *Resource {
	return &Resource{acquire: acquire, release: release}
}

// Enter runs acquire. A failed acquire leaves the resource not entered,
// so Exit will not run release for it.
func (r *Resource) Enter() error {
	if r == nil {
		return nil
	}
	if r.entered {
		return ErrAlreadyEntered
	}
	if r.acquire != nil {
		if err := r.acquire(); err != nil {
			return err
		}
	}
	r.entered = true
	return nil
}

// Exit runs release exactly once after a successful Enter. The returned
// error is release's own; the outcome is never altered.
func (r *Resource) Exit(outcome Outcome) error {
	if r == nil || !r.entered || r.exited {
		return nil
	}
	r.exited = true
	if r.release == nil {
		return nil
	}
	return r.release(outcome)
}
