// Package circuit provides the circuit breaker and connection backoff shared by the storage adapters.
package circuit

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker is fast-failing requests
var ErrOpen = errors.New("circuit breaker is open")

// State represents the state of the circuit breaker
type State int

const (
	// Closed means operations are allowed to proceed
	Closed State = iota
	// Open means operations will fail fast
	Open
	// HalfOpen means a single trial operation is allowed through
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return "half-open"
	}
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	mu               sync.Mutex
	failureThreshold uint
	failureCount     uint
	resetTimeout     time.Duration
	lastFailureTime  time.Time
	state            State
	trialInFlight    bool
	now              func() time.Time
}

// NewBreaker creates a new circuit breaker
func NewBreaker(failureThreshold uint, resetTimeout time.Duration) *Breaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            Closed,
		now:              time.Now,
	}
}

// State returns the current state
func (cb *Breaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// AllowRequest checks if a request should be allowed based on the circuit state
func (cb *Breaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		return true
	case Open:
		if cb.now().Sub(cb.lastFailureTime) <= cb.resetTimeout {
			return false
		}
		// Waited long enough, let one trial request through
		cb.state = HalfOpen
		cb.trialInFlight = true
		return true
	default:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	}
}

// RecordSuccess records a successful operation
func (cb *Breaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.state = Closed
	cb.trialInFlight = false
}

// RecordFailure records a failed operation
func (cb *Breaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()
	cb.trialInFlight = false

	if cb.state == HalfOpen {
		cb.state = Open
		return
	}

	cb.failureCount++
	if cb.failureCount >= cb.failureThreshold {
		cb.state = Open
	}
}

// Execute runs operation with circuit breaker protection
func (cb *Breaker) Execute(operation func() error) error {
	if !cb.AllowRequest() {
		return ErrOpen
	}

	if err := operation(); err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// Backoff returns the exponential delay with ±20% jitter before retry attempt n (0-based)
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 0.8 + 0.4*float64(time.Now().UnixNano()%1000)/1000.0
	return time.Duration(backoff * jitter)
}
