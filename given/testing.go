package given

import (
	"context"
	"testing"
)

// Given opens a scope for a test and releases it from tb.Cleanup. Releases
// receive ErrTestFailed as the outcome error when the test failed.
func Given(tb testing.TB, steps ...Step) *Context {
	tb.Helper()
	return GivenWith(tb, nil, steps...)
}

// GivenWith is Given with run options.
func GivenWith(tb testing.TB, opts []Option, steps ...Step) *Context {
	tb.Helper()

	// tb.Context is canceled before cleanups run, and releases need a live context.
	s, err := Open(context.Background(), steps, opts...)
	if err != nil {
		tb.Fatalf("given: %v", err)
	}

	tb.Cleanup(func() {
		var outcome Outcome
		if tb.Failed() {
			outcome.Err = ErrTestFailed
		}
		if err := s.Close(outcome); err != nil {
			tb.Errorf("given: %v", err)
		}
	})

	return s.Context()
}
