package given

import (
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
	"slices"
)

// LoopAction prepares one item of a LoopStep. Like a StepFunc it may return
// a Scoped value that needs teardown.
type LoopAction[T any] func(c *Context, item T) (Scoped, error)

// LoopStep builds one step that runs every action for every item of seq.
// Resources returned by the actions are entered immediately and released in
// reverse when the scope ends. If an item fails, the resources entered so
// far are released before the step reports the error.
func LoopStep[T any](name string, seq iter.Seq[T], actions ...LoopAction[T]) Step {
	return NewStep(name, func(c *Context) (Scoped, error) {
		l := &loop[T]{c: c, seq: seq, actions: actions}
		return NewOutcomeResource(l.acquire, l.release), nil
	})
}

// Each adapts a list of items for LoopStep.
func Each[T any](items ...T) iter.Seq[T] {
	return slices.Values(items)
}

type loop[T any] struct {
	c       *Context
	seq     iter.Seq[T]
	actions []LoopAction[T]
	entered []Scoped
}

func (l *loop[T]) acquire() error {
	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		outcome := Outcome{Aborted: true}
		if r != nil {
			outcome = Outcome{Panic: r, Stack: debug.Stack()}
		}
		if err := l.release(outcome); err != nil {
			l.c.Logger().Error(Tag+" loop teardown failed while unwinding", "error", err)
		}
		if r != nil {
			panic(r)
		}
	}()

	index := 0
	for item := range l.seq {
		if err := l.prepare(item); err != nil {
			completed = true
			err = fmt.Errorf("item %d: %w", index, err)
			return joinFailure(err, l.release(Outcome{Err: err}))
		}
		index++
	}

	completed = true
	return nil
}

func (l *loop[T]) prepare(item T) error {
	for _, action := range l.actions {
		scoped, err := action(l.c, item)
		if err != nil {
			return err
		}
		if scoped == nil {
			continue
		}
		if err := scoped.Enter(); err != nil {
			return fmt.Errorf("entering resource: %w", err)
		}
		l.entered = append(l.entered, scoped)
	}
	return nil
}

// release exits the inner resources in reverse entry order.
func (l *loop[T]) release(outcome Outcome) error {
	var errs []error
	for i := len(l.entered) - 1; i >= 0; i-- {
		if err := l.entered[i].Exit(outcome); err != nil {
			errs = append(errs, err)
		}
	}
	l.entered = nil
	return errors.Join(errs...)
}
