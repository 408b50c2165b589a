// Package health provides system health monitoring and status reporting.
package health

import "github.com/vuxmai/budgetwatch/internal/reliability/breaker"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus       `json:"system_status"`
	Breakers     []breaker.Snapshot `json:"breakers"`
	DeadLetters  int                `json:"dead_letters"`
	Checks       map[string]string  `json:"checks,omitempty"`
}
