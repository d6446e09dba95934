package given

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TeardownInReverseOrder(t *testing.T) {
	rec := newRecorder()

	err := Run(context.Background(), []Step{
		rec.resource("a"),
		rec.resource("b"),
		rec.resource("c"),
	}, func(c *Context) error {
		rec.add("body")
		return nil
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"step a", "enter a",
		"step b", "enter b",
		"step c", "enter c",
		"body",
		"exit c", "exit b", "exit a",
	}, rec.events)
	for _, name := range []string{"a", "b", "c"} {
		assert.False(t, rec.outcomes[name].Failed(), name)
	}
}

func TestRun_NonResourcesAreSkipped(t *testing.T) {
	rec := newRecorder()

	err := Run(context.Background(), []Step{
		rec.resource("a"),
		rec.plain("x"),
		NewStep("nil step", nil),
		rec.resource("b"),
	}, func(c *Context) error {
		assert.True(t, c.Has("x"))
		return nil
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"step a", "enter a",
		"step x",
		"step b", "enter b",
		"exit b", "exit a",
	}, rec.events)
}

func TestRun_BodyErrorIsPropagatedAfterTeardown(t *testing.T) {
	rec := newRecorder()
	bodyErr := errors.New("expected 7, got 8")

	err := Run(context.Background(), []Step{
		rec.resource("a"),
		rec.resource("b"),
	}, func(c *Context) error {
		return bodyErr
	}, quiet()...)

	assert.Same(t, bodyErr, err)
	assert.Equal(t, []string{"step a", "enter a", "step b", "enter b", "exit b", "exit a"}, rec.events)
	assert.Same(t, bodyErr, rec.outcomes["a"].Err)
	assert.Same(t, bodyErr, rec.outcomes["b"].Err)
}

func TestRun_BodyPanicIsRepanickedAfterTeardown(t *testing.T) {
	rec := newRecorder()
	type boom struct{ code int }

	func() {
		defer func() {
			r := recover()
			assert.Equal(t, boom{code: 42}, r)
		}()

		_ = Run(context.Background(), []Step{rec.resource("a"), rec.resource("b")}, func(c *Context) error {
			panic(boom{code: 42})
		}, quiet()...)
		t.Fatal("Run should not return")
	}()

	assert.Equal(t, []string{"step a", "enter a", "step b", "enter b", "exit b", "exit a"}, rec.events)
	assert.Equal(t, boom{code: 42}, rec.outcomes["a"].Panic)
	assert.NotEmpty(t, rec.outcomes["a"].Stack)
}

func TestRun_GoexitStillTearsDown(t *testing.T) {
	rec := newRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = Run(context.Background(), []Step{rec.resource("a")}, func(c *Context) error {
			runtime.Goexit()
			return nil
		}, quiet()...)
		rec.add("unreachable")
	}()
	wg.Wait()

	assert.Equal(t, []string{"step a", "enter a", "exit a"}, rec.events)
	assert.True(t, rec.outcomes["a"].Aborted)
}

func TestRun_StepErrorAbortsRemainingSteps(t *testing.T) {
	rec := newRecorder()
	stepErr := errors.New("no database")
	bodyCalled := false

	err := Run(context.Background(), []Step{
		rec.resource("a"),
		rec.resource("b"),
		NewStep("broken", func(c *Context) (Scoped, error) { return nil, stepErr }),
		rec.resource("never"),
	}, func(c *Context) error {
		bodyCalled = true
		return nil
	}, quiet()...)

	require.Error(t, err)
	assert.False(t, bodyCalled)
	assert.ErrorIs(t, err, stepErr)
	assert.True(t, IsStepError(err))

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Index)
	assert.Equal(t, "broken", se.Name)

	assert.Equal(t, []string{"step a", "enter a", "step b", "enter b", "exit b", "exit a"}, rec.events)
	assert.ErrorIs(t, rec.outcomes["a"].Err, stepErr)
}

// A resource whose acquire fails does not count as started: the previous
// resources are released, the failing one is not.
func TestRun_FailingAcquireReleasesEarlierSteps(t *testing.T) {
	rec := newRecorder()
	acquireErr := errors.New("connection refused")
	dReleased := false

	err := Run(context.Background(), []Step{
		rec.resource("c"),
		NewStep("d", func(c *Context) (Scoped, error) {
			return NewResource(
				func() error { return acquireErr },
				func() error { dReleased = true; return nil },
			), nil
		}),
	}, func(c *Context) error { return nil }, quiet()...)

	assert.ErrorIs(t, err, acquireErr)
	assert.Equal(t, []string{"step c", "enter c", "exit c"}, rec.events)
	assert.False(t, dReleased)
}

func TestRun_StepPanicTearsDownAndRepanics(t *testing.T) {
	rec := newRecorder()

	assert.PanicsWithValue(t, "bad fixture", func() {
		_ = Run(context.Background(), []Step{
			rec.resource("a"),
			NewStep("panics", func(c *Context) (Scoped, error) { panic("bad fixture") }),
		}, func(c *Context) error { return nil }, quiet()...)
	})

	assert.Equal(t, []string{"step a", "enter a", "exit a"}, rec.events)
	assert.Equal(t, "bad fixture", rec.outcomes["a"].Panic)
}

func TestRun_TeardownErrorsAreChained(t *testing.T) {
	rec := newRecorder()
	bodyErr := errors.New("body failed")
	releaseB := errors.New("b release failed")
	releaseC := errors.New("c release failed")

	failing := func(name string, releaseErr error) Step {
		return NewStep(name, func(c *Context) (Scoped, error) {
			return NewResource(nil, func() error {
				rec.add("exit " + name)
				return releaseErr
			}), nil
		})
	}

	err := Run(context.Background(), []Step{
		rec.resource("a"),
		failing("b", releaseB),
		failing("c", releaseC),
	}, func(c *Context) error { return bodyErr }, quiet()...)

	require.Error(t, err)
	assert.ErrorIs(t, err, bodyErr)
	assert.ErrorIs(t, err, releaseB)
	assert.ErrorIs(t, err, releaseC)
	assert.True(t, IsTeardownError(err))

	var te *TeardownError
	require.ErrorAs(t, err, &te)
	assert.Len(t, te.Errs, 2)

	assert.Equal(t, []string{"step a", "enter a", "exit c", "exit b", "exit a"}, rec.events)
}

func TestRun_PanickingReleaseDoesNotStopTeardown(t *testing.T) {
	rec := newRecorder()

	err := Run(context.Background(), []Step{
		rec.resource("a"),
		NewStep("b", func(c *Context) (Scoped, error) {
			return NewResource(nil, func() error { panic("release exploded") }), nil
		}),
	}, func(c *Context) error { return nil }, quiet()...)

	require.Error(t, err)
	assert.True(t, IsTeardownError(err))
	assert.Contains(t, err.Error(), "release exploded")
	assert.Equal(t, []string{"step a", "enter a", "exit a"}, rec.events)
}

func TestRun_ContextValuePersistsThroughBody(t *testing.T) {
	thereIsExternalNumber := func(number int) Step {
		return Do("there is external number", func(c *Context) error {
			c.Set("external_number", number)
			return nil
		})
	}

	var scope *Context
	err := Run(context.Background(), []Step{thereIsExternalNumber(5)}, func(c *Context) error {
		scope = c
		assert.Equal(t, 5, MustValue[int](c, "external_number"))
		return nil
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, 5, MustValue[int](scope, "external_number"))
}

type database struct{ connected bool }

func TestRun_DatabaseIsClosedOnExit(t *testing.T) {
	databaseIsReady := Acquire("database is ready",
		func(c *Context) error {
			c.Set("db", &database{connected: true})
			return nil
		},
		func(c *Context) error {
			MustValue[*database](c, "db").connected = false
			return nil
		},
	)

	var scope *Context
	err := Run(context.Background(), []Step{databaseIsReady}, func(c *Context) error {
		scope = c
		assert.True(t, MustValue[*database](c, "db").connected)
		return nil
	}, quiet()...)

	require.NoError(t, err)
	assert.False(t, MustValue[*database](scope, "db").connected)
}

func TestRun_NoSteps(t *testing.T) {
	called := false
	err := Run(context.Background(), nil, func(c *Context) error {
		called = true
		assert.Empty(t, c.Keys())
		return nil
	}, quiet()...)

	require.NoError(t, err)
	assert.True(t, called)
}

func TestRun_FreshContextPerRun(t *testing.T) {
	var first, second *Context
	steps := []Step{Do("set", func(c *Context) error { c.Set("n", 1); return nil })}

	require.NoError(t, Run(context.Background(), steps, func(c *Context) error { first = c; return nil }, quiet()...))
	require.NoError(t, Run(context.Background(), steps, func(c *Context) error { second = c; return nil }, quiet()...))

	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.RunID(), second.RunID())
}

func TestOpen_CloseTwice(t *testing.T) {
	rec := newRecorder()

	s, err := Open(context.Background(), []Step{rec.plain("x"), rec.resource("a")}, quiet()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "a"}, s.Started())
	assert.True(t, s.Context().Has("x"))

	require.NoError(t, s.Close(Outcome{}))
	assert.ErrorIs(t, s.Close(Outcome{}), ErrScopeClosed)
	assert.Equal(t, []string{"step x", "step a", "enter a", "exit a"}, rec.events)
}

func TestOpen_StepErrorReturnsNoScope(t *testing.T) {
	s, err := Open(context.Background(), []Step{
		Do("", func(c *Context) error { return errors.New("nope") }),
	}, quiet()...)

	assert.Nil(t, s)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "step[0]", se.Name)
}

func TestStep_Label(t *testing.T) {
	assert.Equal(t, "named", NewStep("named", nil).label(3))
	assert.Equal(t, "step[3]", NewStep("", nil).label(3))
}
