/*
Package resilience provides a circuit breaker for work that can wedge.

The headless preview target runs user scripts in an embedded JavaScript VM.
A script that loops forever is interrupted by the execution timeout, but
re-running it on every keystroke would pin a CPU for the whole timeout each
time. The breaker opens after repeated timeouts and the target reports
itself dead until the breaker lets a probe through again.

# Usage

	breaker := resilience.New("headless", resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 3 },
		IsFailure:   func(err error) bool { return errors.Is(err, sandbox.ErrExecutionTimeout) },
	})

	err := breaker.Do(func() error {
		return runtime.Render(ctx, doc)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
