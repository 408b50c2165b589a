// Package backoff computes retry delays with exponential growth and
// optional jitter.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Config defines the backoff schedule.
type Config struct {
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap applied after exponential growth
	Multiplier   float64       // growth factor (typically 2.0)
	Jitter       bool          // apply symmetric +/-25% randomness
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	InitialDelay: 1 * time.Second,
	MaxDelay:     60 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// Policy computes delays from a Config. The random source is injectable
// so tests can fix the jitter.
type Policy struct {
	cfg Config
	rnd *rand.Rand
}

// New creates a Policy with its own seeded random source.
func New(cfg Config) *Policy {
	return NewWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a Policy using the given random source.
func NewWithRand(cfg Config, rnd *rand.Rand) *Policy {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultConfig.Multiplier
	}
	return &Policy{cfg: cfg, rnd: rnd}
}

// Delay returns the wait before retry number attempt (1-based, not
// counting the initial try). Never negative.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.cfg.InitialDelay) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if delay > float64(p.cfg.MaxDelay) {
		delay = float64(p.cfg.MaxDelay)
	}

	if p.cfg.Jitter {
		// Symmetric jitter: delay * [0.75, 1.25)
		delay *= 0.75 + p.rnd.Float64()*0.5
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}
