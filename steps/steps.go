// Package steps provides ready-made given steps for common test fixtures.
//
// Every factory stores what it prepares on the Context under the step name,
// so the body reads it back with given.MustValue.
package steps

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jsamuelsen/go-given/given"
	"github.com/jsamuelsen/go-given/internal/platform/logging"
)

// Value stores v under name.
func Value[T any](name string, v T) given.Step {
	return given.Do(name, func(c *given.Context) error {
		c.Set(name, v)
		return nil
	})
}

// TempDir creates a temporary directory, stores its path under name and
// removes it with everything inside at teardown.
func TempDir(name string) given.Step {
	return given.NewStep(name, func(c *given.Context) (given.Scoped, error) {
		var dir string
		return given.NewResource(
			func() error {
				var err error
				dir, err = os.MkdirTemp("", "given-*")
				if err != nil {
					return fmt.Errorf("creating temp dir: %w", err)
				}
				c.Set(name, dir)
				return nil
			},
			func() error {
				return os.RemoveAll(dir)
			},
		), nil
	})
}

// Setenv sets an environment variable and restores the previous value, or
// unsets it, at teardown. The environment is process wide, so scenarios
// using it must not run in parallel.
func Setenv(key, value string) given.Step {
	name := "env " + key
	return given.NewStep(name, func(c *given.Context) (given.Scoped, error) {
		prev, had := os.LookupEnv(key)
		return given.NewResource(
			func() error {
				return os.Setenv(key, value)
			},
			func() error {
				if had {
					return os.Setenv(key, prev)
				}
				return os.Unsetenv(key)
			},
		), nil
	})
}

// Logs collects JSON log records written through its Logger. It is safe
// for use from several goroutines.
type Logs struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	logger *slog.Logger
}

// Logger returns the capturing logger. Secrets are redacted the same way
// as in regular output.
func (l *Logs) Logger() *slog.Logger {
	return l.logger
}

// Write implements io.Writer.
func (l *Logs) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

// String returns everything logged so far.
func (l *Logs) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// Lines returns the captured records, one JSON object per entry.
func (l *Logs) Lines() []string {
	out := strings.TrimSpace(l.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Contains reports whether any captured record contains s.
func (l *Logs) Contains(s string) bool {
	return strings.Contains(l.String(), s)
}

// NewLogs creates an empty capture that accepts every level.
func NewLogs() *Logs {
	l := &Logs{}
	l.logger = logging.NewWithWriter(&logging.Config{Level: "trace", Format: "json"}, l)
	return l
}

// CaptureLogs stores a new *Logs under name for every run. Nothing needs
// releasing.
func CaptureLogs(name string) given.Step {
	return given.Do(name, func(c *given.Context) error {
		c.Set(name, NewLogs())
		return nil
	})
}
