package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreaker provides fast-fail behavior when a remote store fails
// repeatedly. Both the blob store and the reference store clients wrap their
// calls in one.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	lastFailure      time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	logger           *slog.Logger
	name             string
}

// New creates a circuit breaker. After failureThreshold consecutive failures
// the breaker opens; after cooldown it half-opens, and successThreshold
// successes close it again.
func New(name string, failureThreshold, successThreshold int, cooldown time.Duration, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		logger:           logger,
		name:             name,
	}
}

// Do runs fn if the breaker allows it and records the outcome. When the
// breaker is open, fn is not called and ErrOpen is returned.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}
	err := fn()
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		if time.Since(cb.lastFailure) > cb.cooldown {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFailure = time.Now()
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.failureCount = 0
	cb.successCount = 0
	cb.logger.Warn("circuit breaker state changed",
		slog.String("breaker", cb.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}
