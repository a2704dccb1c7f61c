package models

import "time"

// HealthStatus describes the overall condition of a monitored component.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
	StatusUnknown  HealthStatus = "unknown"
)

// ComponentHealth is a point-in-time snapshot of one monitored component.
// Snapshots are produced fresh each health cycle and never mutated; a new
// probe run replaces the previous snapshot.
type ComponentHealth struct {
	Component      string             `json:"component"`
	Status         HealthStatus       `json:"status"`
	LastCheck      time.Time          `json:"last_check"`
	ResponseTimeMs uint64             `json:"response_time_ms"`
	ErrorCount     uint64             `json:"error_count"`
	UptimePercent  float64            `json:"uptime_percent"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// NewComponentHealth creates a snapshot for the given component with an
// empty metrics map and status unknown until the probe fills it in.
func NewComponentHealth(component string) *ComponentHealth {
	return &ComponentHealth{
		Component: component,
		Status:    StatusUnknown,
		LastCheck: time.Now(),
		Metrics:   make(map[string]float64),
	}
}

// Metric returns a named metric value and whether it was reported.
func (h *ComponentHealth) Metric(name string) (float64, bool) {
	if h.Metrics == nil {
		return 0, false
	}
	v, ok := h.Metrics[name]
	return v, ok
}
