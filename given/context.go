package given

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Context is the record shared between steps and the body of one run.
// Steps attach values by name; it is owned by a single goroutine.
type Context struct {
	ctx    context.Context
	runID  string
	tracer *Tracer
	values map[string]any
}

func newContext(ctx context.Context, runID string, tracer *Tracer) *Context {
	return &Context{
		ctx:    ctx,
		runID:  runID,
		tracer: tracer,
		values: make(map[string]any),
	}
}

// Set stores v under name, replacing any previous value.
func (c *Context) Set(name string, v any) {
	c.values[name] = v
}

// Get returns the value stored under name.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// MustGet returns the value stored under name and panics if there is none.
func (c *Context) MustGet(name string) any {
	v, ok := c.values[name]
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrNoSuchValue, name))
	}
	return v
}

// Has reports whether a value is stored under name.
func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Delete removes the value stored under name.
func (c *Context) Delete(name string) {
	delete(c.values, name)
}

// Keys returns the stored names in sorted order.
func (c *Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Context returns the run's context.Context. It carries the run logger and
// the run span, so nested runs started from it show up as children.
func (c *Context) Context() context.Context {
	return c.ctx
}

// RunID identifies the run in trace output.
func (c *Context) RunID() string {
	return c.runID
}

// Tracing reports whether trace output is enabled for this run.
func (c *Context) Tracing() bool {
	return c.tracer.Enabled()
}

// Logger returns the run logger.
func (c *Context) Logger() *slog.Logger {
	if c.tracer == nil {
		return slog.Default()
	}
	return c.tracer.logger
}

// Value returns the value stored under name as a T.
func Value[T any](c *Context, name string) (T, bool) {
	v, ok := c.values[name].(T)
	return v, ok
}

// MustValue returns the value stored under name as a T and panics if it is
// missing or of another type.
func MustValue[T any](c *Context, name string) T {
	v, ok := Value[T](c, name)
	if !ok {
		panic(fmt.Errorf("%w: %q as %T", ErrNoSuchValue, name, v))
	}
	return v
}
