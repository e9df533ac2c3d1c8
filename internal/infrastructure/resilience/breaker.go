package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests uint32
	// Interval is the cyclic period of the closed state to clear internal counts
	Interval time.Duration
	// Timeout is the period of the open state until transitioning to half-open
	Timeout time.Duration
	// ReadyToTrip is called with counts when a request fails in closed state
	ReadyToTrip func(counts Counts) bool
	// IsFailure decides which errors count against the breaker.
	// Defaults to any non-nil error.
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval == 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   time.Now().Add(settings.Interval),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(time.Now())
	return state
}

// Allow reports whether a request would be admitted right now, without
// counting one.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(time.Now())
	switch state {
	case StateOpen:
		return false
	case StateHalfOpen:
		return b.counts.Requests < b.settings.MaxRequests
	default:
		return true
	}
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Do runs fn if the breaker admits it and records the outcome.
// Errors that IsFailure rejects are returned but count as successes.
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.afterRequest(generation, false)
			panic(e)
		}
	}()

	err = fn()
	b.afterRequest(generation, !b.settings.IsFailure(err))
	return err
}

// Reset forces the breaker closed and clears its counts
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.setState(StateClosed, now)
	b.resetCounts()
	b.expiry = now.Add(b.settings.Interval)
}

func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, generation := b.currentState(time.Now())

	if state == StateOpen {
		return generation, ErrCircuitOpen
	}
	if state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests {
		return generation, ErrTooManyRequests
	}

	b.counts.Requests++
	return generation, nil
}

func (b *Breaker) afterRequest(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)
	if generation != before {
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	b.counts.TotalSuccesses++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
		b.setState(StateClosed, now)
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.settings.ReadyToTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

// currentState advances time-based transitions and returns the state with
// its generation. Requests started in an older generation are not counted.
func (b *Breaker) currentState(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.newGeneration(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}

	return b.state, b.generation
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.newGeneration(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.resetCounts()

	switch b.state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}
}

func (b *Breaker) resetCounts() {
	b.counts = Counts{}
}
