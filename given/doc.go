// Package given runs given/when/then test scenarios with guaranteed,
// last-in first-out teardown.
//
// A scenario declares its setup as an ordered list of steps. Each step gets
// the shared Context, may store values on it, and may return a Scoped value
// that must be released when the scenario ends:
//
//	func databaseIsReady() given.Step {
//	    return given.Acquire("database is ready",
//	        func(c *given.Context) error {
//	            db := &Database{}
//	            db.Connect()
//	            c.Set("db", db)
//	            return nil
//	        },
//	        func(c *given.Context) error {
//	            given.MustValue[*Database](c, "db").Disconnect()
//	            return nil
//	        },
//	    )
//	}
//
//	err := given.Run(ctx, []given.Step{databaseIsReady()}, func(c *given.Context) error {
//	    c.Then("it should connect to the database", func(*given.Mock) {
//	        require.True(t, given.MustValue[*Database](c, "db").Connected)
//	    })
//	    return nil
//	}, given.WithTrace(true))
//
// Steps run once, in order. Teardown always runs in reverse start order, and
// the body's failure (error, panic or t.FailNow) reaches the caller unchanged
// after every release has run.
//
// Inside a plain test, Given opens the scope and releases it from t.Cleanup:
//
//	c := given.Given(t, databaseIsReady())
//
// Trace output goes to stderr, one line per start and finish of every run,
// step, phase and teardown, each tagged with Tag. It is enabled per run with
// WithTrace, or for every run through GIVEN_TRACE_ENABLED=true.
package given
