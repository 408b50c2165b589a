// Package breaker implements a per-dependency circuit breaker.
//
// One Breaker guards one unreliable collaborator (store, bus, external
// API). State lives for the process lifetime only; a restart resets every
// circuit, which is acceptable for a liveness heuristic.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vuxmai/budgetwatch/internal/metrics"
	"github.com/vuxmai/budgetwatch/internal/reliability/classify"
)

// ErrCircuitOpen is returned when a call is rejected without being
// attempted. It classifies as permanent so the retry executor never
// waits out a backoff schedule against an open circuit.
var ErrCircuitOpen = classify.Permanent(errors.New("circuit breaker is open"))

// State of a breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes a breaker's transitions.
type Config struct {
	FailureThreshold  int           // consecutive failures before opening
	RecoveryTimeout   time.Duration // open duration before a half-open probe
	HalfOpenSuccesses int           // consecutive successes required to close
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	FailureThreshold:  5,
	RecoveryTimeout:   30 * time.Second,
	HalfOpenSuccesses: 2,
}

// Breaker is a mutex-guarded circuit breaker for a single dependency.
type Breaker struct {
	name string
	cfg  Config

	mu              sync.Mutex
	state           State
	failures        int
	halfOpenSuccess int
	lastFailure     time.Time
	now             func() time.Time // injectable clock
}

// New creates a closed breaker for the named dependency.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultConfig.RecoveryTimeout
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = DefaultConfig.HalfOpenSuccesses
	}
	b := &Breaker{
		name: name,
		cfg:  cfg,
		now:  time.Now,
	}
	// Publish the initial state so the gauge exists before any transition.
	b.setState(StateClosed)
	return b
}

// Name returns the guarded dependency's name.
func (b *Breaker) Name() string { return b.name }

// Execute runs op through the breaker. While the circuit is open and the
// recovery timeout has not elapsed, it fails fast with ErrCircuitOpen.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}

	err := op(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// allow checks whether a call may proceed, moving open -> half_open when
// the recovery timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) < b.cfg.RecoveryTimeout {
			return ErrCircuitOpen
		}
		b.setState(StateHalfOpen)
		b.halfOpenSuccess = 0
	}
	return nil
}

// setState transitions the breaker and publishes the state gauge.
// Callers hold b.mu.
func (b *Breaker) setState(s State) {
	b.state = s

	var v float64
	switch s {
	case StateHalfOpen:
		v = 1
	case StateOpen:
		v = 2
	}
	metrics.BreakerState.WithLabelValues(b.name).Set(v)
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.cfg.HalfOpenSuccesses {
			b.setState(StateClosed)
			b.failures = 0
			b.halfOpenSuccess = 0
		}
	default:
		b.failures = 0
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.setState(StateOpen)
		b.halfOpenSuccess = 0
	}
}

// Snapshot is a point-in-time view of a breaker, for health reporting.
type Snapshot struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Failures    int       `json:"consecutive_failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// Snapshot returns the breaker's current state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:        b.name,
		State:       b.state,
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}
