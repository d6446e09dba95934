package given

import "fmt"

// StepFunc prepares part of a scenario. It returns a Scoped value when the
// preparation needs teardown, or nil when it only sets Context values.
type StepFunc func(c *Context) (Scoped, error)

// Step is a named StepFunc. The name is only used for trace output.
type Step struct {
	Name string
	Fn   StepFunc
}

// NewStep creates a named step.
func NewStep(name string, fn StepFunc) Step {
	return Step{Name: name, Fn: fn}
}

// Do creates a step that only has side effects on the Context.
func Do(name string, fn func(c *Context) error) Step {
	return NewStep(name, func(c *Context) (Scoped, error) {
		return nil, fn(c)
	})
}

// Acquire creates a step whose acquire runs on entry and whose release runs
// at scope exit. Either action may be nil.
func Acquire(name string, acquire, release func(c *Context) error) Step {
	return NewStep(name, func(c *Context) (Scoped, error) {
		r := &Resource{}
		if acquire != nil {
			r.acquire = func() error { return acquire(c) }
		}
		if release != nil {
			r.release = func(Outcome) error { return release(c) }
		}
		return r, nil
	})
}

// label returns the display name, falling back to the position.
func (s Step) label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step[%d]", index)
}
