package errors

import (
	"errors"
	"sync"
	"time"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

var (
	// ErrCircuitOpen is returned without calling the guarded function while the breaker is open.
	ErrCircuitOpen             = errors.New("circuit breaker is open")
	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// BreakerSettings tunes a CircuitBreaker. Zero fields take the defaults.
type BreakerSettings struct {
	ErrorThreshold      float64
	MinRequests         int
	OpenTimeout         time.Duration
	HalfOpenMaxRequests int
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.ErrorThreshold <= 0 {
		s.ErrorThreshold = 0.5
	}
	if s.MinRequests <= 0 {
		s.MinRequests = 10
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenMaxRequests <= 0 {
		s.HalfOpenMaxRequests = 3
	}
	return s
}

// CircuitBreaker stops calling a failing dependency until it had time to recover.
type CircuitBreaker struct {
	mu              sync.Mutex
	settings        BreakerSettings
	state           BreakerState
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
	now             func() time.Time
	onStateChange   func(from, to BreakerState)
}

func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		settings: settings.withDefaults(),
		state:    BreakerClosed,
		now:      time.Now,
	}
}

// OnStateChange registers an observer invoked under the breaker lock.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to BreakerState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == BreakerOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.settings.OpenTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.setStateLocked(BreakerHalfOpen)
	}

	if cb.state == BreakerHalfOpen && cb.requests >= cb.settings.HalfOpenMaxRequests {
		cb.mu.Unlock()
		return errHalfOpenTooManyRequests
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	if callErr != nil {
		cb.failures++
		if cb.state == BreakerHalfOpen {
			cb.setStateLocked(BreakerOpen)
		} else if cb.requests >= cb.settings.MinRequests &&
			float64(cb.failures)/float64(cb.requests) >= cb.settings.ErrorThreshold {
			cb.setStateLocked(BreakerOpen)
		}
		return callErr
	}

	cb.successes++
	if cb.state == BreakerHalfOpen && cb.successes >= cb.settings.HalfOpenMaxRequests {
		cb.setStateLocked(BreakerClosed)
	}

	return nil
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(next BreakerState) {
	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
	if next == BreakerOpen {
		cb.lastFailureTime = cb.now()
	}
	if cb.onStateChange != nil && prev != next {
		cb.onStateChange(prev, next)
	}
}
