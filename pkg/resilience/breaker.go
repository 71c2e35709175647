// Package resilience guards calls to a dependency that may go away, such as the database.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown has passed.
	StateOpen
	// StateHalfOpen lets a single trial through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitBreakerOpen is returned without calling the guarded function while the breaker is open.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// Breaker counts consecutive failures of a dependency. After Threshold failures it opens and
// rejects calls for Cooldown, then lets one trial through. A successful trial closes it again.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	isFailure func(error) bool
	onChange  func(name string, from, to State)
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithFailureFilter decides which errors count towards the threshold.
// By default every error except context.Canceled counts.
func WithFailureFilter(fn func(error) bool) Option {
	return func(b *Breaker) {
		if fn != nil {
			b.isFailure = fn
		}
	}
}

// WithStateChange registers a callback run on every transition, outside the lock.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBreaker creates a closed breaker. A threshold below 1 is treated as 1.
func NewBreaker(name string, threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	b := &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		isFailure: defaultFailure,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func defaultFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	trial, err := b.acquire()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(trial, err)
	return err
}

// Name identifies the guarded dependency.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state. An open breaker whose cooldown has passed reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooledDown() {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.failures = 0
	b.probing = false
	b.mu.Unlock()
	b.notify(from, StateClosed)
}

func (b *Breaker) acquire() (bool, error) {
	b.mu.Lock()
	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return false, nil
	case StateOpen:
		if !b.cooledDown() {
			b.mu.Unlock()
			return false, ErrCircuitBreakerOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		b.mu.Unlock()
		b.notify(StateOpen, StateHalfOpen)
		return true, nil
	default:
		if b.probing {
			b.mu.Unlock()
			return false, ErrCircuitBreakerOpen
		}
		b.probing = true
		b.mu.Unlock()
		return true, nil
	}
}

func (b *Breaker) record(trial bool, err error) {
	failed := b.isFailure(err)

	b.mu.Lock()
	from := b.state
	if trial {
		b.probing = false
	}
	switch {
	case !failed && err != nil:
		// Neither a success nor a failure; a trial that ends this way is retried by the next caller.
	case !failed:
		b.failures = 0
		b.state = StateClosed
	case b.state == StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
	default:
		b.failures++
		if b.state == StateClosed && b.failures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

func (b *Breaker) cooledDown() bool {
	return b.now().Sub(b.openedAt) >= b.cooldown
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
