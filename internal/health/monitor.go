package health

import (
	"context"
	"sync"
	"time"

	"github.com/vuxmai/budgetwatch/internal/infra/storage"
	"github.com/vuxmai/budgetwatch/internal/reliability/breaker"
)

// Checker pings an external dependency, e.g. the database or redis.
type Checker interface {
	Health(ctx context.Context) error
}

// deadLetterCritical is the queue depth at which the whole system is
// reported critical rather than merely degraded.
const deadLetterCritical = 50

// Monitor aggregates health status from breakers, the dead-letter queue
// and registered dependency checkers.
type Monitor struct {
	breakers    *breaker.Registry
	deadLetters storage.DeadLetterRepository
	checkers    map[string]Checker
	lastCheck   time.Time
	lastReport  Report
	mu          sync.Mutex
}

// NewMonitor creates a new health monitor. deadLetters may be nil when
// no dead-letter store is configured.
func NewMonitor(breakers *breaker.Registry, deadLetters storage.DeadLetterRepository) *Monitor {
	return &Monitor{
		breakers:    breakers,
		deadLetters: deadLetters,
		checkers:    make(map[string]Checker),
	}
}

// RegisterChecker adds a named dependency checker.
func (m *Monitor) RegisterChecker(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
}

// CheckHealth builds the current report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid hammering dependencies
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.SystemStatus != "" {
		return m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Checks:       make(map[string]string),
	}

	if m.breakers != nil {
		report.Breakers = m.breakers.Snapshots()
		for _, snap := range report.Breakers {
			switch snap.State {
			case breaker.StateOpen:
				report.SystemStatus = StatusCritical
			case breaker.StateHalfOpen:
				if report.SystemStatus == StatusHealthy {
					report.SystemStatus = StatusDegraded
				}
			}
		}
	}

	if m.deadLetters != nil {
		count, err := m.deadLetters.Count(ctx)
		if err == nil {
			report.DeadLetters = count
			if count >= deadLetterCritical {
				report.SystemStatus = StatusCritical
			} else if count > 0 && report.SystemStatus == StatusHealthy {
				report.SystemStatus = StatusDegraded
			}
		}
	}

	for name, c := range m.checkers {
		if err := c.Health(ctx); err != nil {
			report.Checks[name] = err.Error()
			if report.SystemStatus == StatusHealthy {
				report.SystemStatus = StatusDegraded
			}
		} else {
			report.Checks[name] = "ok"
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
