// Package bdd runs given steps as the setup of godog scenarios.
//
// Bind opens a scope before each scenario and closes it after, so the
// fixtures of a feature get the same last-in first-out teardown as a plain
// given.Run. Step definitions reach the shared Context through the
// context.Context godog passes them:
//
//	func InitializeScenario(sc *godog.ScenarioContext) {
//	    bdd.Bind(sc, databaseIsReady())
//
//	    sc.Step(`^the database should be connected$`, func(ctx context.Context) error {
//	        db := given.MustValue[*Database](bdd.FromContext(ctx), "db")
//	        ...
//	    })
//	}
package bdd

import (
	"context"

	"github.com/cucumber/godog"

	"github.com/jsamuelsen/go-given/given"
)

type ctxKey struct{}

// Binding ties one godog scenario to a given scope.
type Binding struct {
	steps []given.Step
	opts  []given.Option
	scope *given.Scope
}

// Bind registers Before and After hooks that open and close a scope for
// the scenario.
func Bind(sc *godog.ScenarioContext, steps ...given.Step) *Binding {
	return BindWith(sc, nil, steps...)
}

// BindWith is Bind with run options.
func BindWith(sc *godog.ScenarioContext, opts []given.Option, steps ...given.Step) *Binding {
	b := &Binding{steps: steps, opts: opts}
	sc.Before(b.before)
	sc.After(b.after)
	return b
}

// Context returns the shared Context of the running scenario, or nil
// outside of one.
func (b *Binding) Context() *given.Context {
	if b.scope == nil {
		return nil
	}
	return b.scope.Context()
}

// FromContext returns the shared Context stored by Bind. It returns nil
// when ctx does not come from a bound scenario.
func FromContext(ctx context.Context) *given.Context {
	c, _ := ctx.Value(ctxKey{}).(*given.Context)
	return c
}

func (b *Binding) before(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	opts := append([]given.Option{given.WithScenario(sc.Name)}, b.opts...)

	scope, err := given.Open(ctx, b.steps, opts...)
	if err != nil {
		return ctx, err
	}
	b.scope = scope

	return context.WithValue(scope.Context().Context(), ctxKey{}, scope.Context()), nil
}

// after closes the scope with the scenario error as the outcome. A failed
// release fails the scenario.
func (b *Binding) after(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
	if b.scope == nil {
		return ctx, nil
	}

	scope := b.scope
	b.scope = nil

	return ctx, scope.Close(given.Outcome{Err: err})
}
