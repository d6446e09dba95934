package given

import (
	"bytes"
	"io"
	"log/slog"
)

// quiet keeps tests independent of GIVEN_* configuration.
func quiet() []Option {
	return []Option{WithTrace(false), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
}

// traced returns options writing JSON trace lines to buf.
func traced(buf *bytes.Buffer) []Option {
	return []Option{WithTrace(true), WithLogger(slog.New(slog.NewJSONHandler(buf, nil)))}
}

// recorder logs enters and exits of fake resources in order.
type recorder struct {
	events   []string
	outcomes map[string]Outcome
}

func newRecorder() *recorder {
	return &recorder{outcomes: make(map[string]Outcome)}
}

func (r *recorder) add(event string) {
	r.events = append(r.events, event)
}

// resource is a step returning a resource that records its enter and exit.
func (r *recorder) resource(name string) Step {
	return NewStep(name, func(c *Context) (Scoped, error) {
		r.add("step " + name)
		return NewOutcomeResource(
			func() error {
				r.add("enter " + name)
				return nil
			},
			func(o Outcome) error {
				r.add("exit " + name)
				r.outcomes[name] = o
				return nil
			},
		), nil
	})
}

// plain is a step that returns no resource.
func (r *recorder) plain(name string) Step {
	return Do(name, func(c *Context) error {
		r.add("step " + name)
		c.Set(name, true)
		return nil
	})
}
