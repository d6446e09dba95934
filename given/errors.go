package given

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrStepFailed marks a failure raised while running a setup step.
	ErrStepFailed = errors.New("step failed")

	// ErrTeardownFailed marks a failure raised while releasing resources.
	ErrTeardownFailed = errors.New("teardown failed")

	// ErrAlreadyEntered is returned when a Resource or Phase is entered twice.
	ErrAlreadyEntered = errors.New("resource already entered")

	// ErrScopeClosed is returned when a Scope is closed twice.
	ErrScopeClosed = errors.New("scope already closed")

	// ErrNoSuchValue is returned when a Context value is missing or has another type.
	ErrNoSuchValue = errors.New("no such context value")

	// ErrTestFailed is the outcome error passed to releases when a testing.TB failed.
	ErrTestFailed = errors.New("test failed")
)

// StepError records which step failed during setup.
type StepError struct {
	Index int
	Name  string
	Err   error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %q failed: %v", e.Index, e.Name, e.Err)
}

// Unwrap exposes both ErrStepFailed and the step's own error.
func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}

// TeardownError collects every release failure of one scope exit.
// Releases keep running after a failure, so there can be several.
type TeardownError struct {
	Errs []error
}

// Error implements the error interface.
func (e *TeardownError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "teardown failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes ErrTeardownFailed and every release error.
func (e *TeardownError) Unwrap() []error {
	return append([]error{ErrTeardownFailed}, e.Errs...)
}

// IsStepError checks if an error came from a failing setup step.
func IsStepError(err error) bool {
	return errors.Is(err, ErrStepFailed)
}

// IsTeardownError checks if an error includes release failures.
func IsTeardownError(err error) bool {
	return errors.Is(err, ErrTeardownFailed)
}

// joinFailure keeps the original failure first so errors.Is still finds it
// when teardown failed as well.
func joinFailure(original, teardown error) error {
	switch {
	case teardown == nil:
		return original
	case original == nil:
		return teardown
	default:
		return errors.Join(original, teardown)
	}
}
