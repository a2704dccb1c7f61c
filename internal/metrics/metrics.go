// Package metrics exposes the engine's Prometheus instrumentation. All
// collectors are registered on the default registry and served by the
// health server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsFired counts alerts produced by the rule engine or manual
	// triggers, before suppression.
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_monitor_alerts_fired_total",
			Help: "Total number of alerts fired",
		},
		[]string{"component", "severity"},
	)

	// AlertsSuppressed counts alerts dropped before any channel dispatch.
	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_monitor_alerts_suppressed_total",
			Help: "Total number of alerts suppressed before dispatch",
		},
		[]string{"reason"},
	)

	// Deliveries counts per-channel delivery outcomes.
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_monitor_deliveries_total",
			Help: "Total number of channel delivery attempts by outcome",
		},
		[]string{"channel", "status"},
	)

	// CyclesRun counts completed monitoring cycles by kind.
	CyclesRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_monitor_cycles_run_total",
			Help: "Total number of monitoring cycles executed",
		},
		[]string{"cycle"},
	)

	// ProbeDuration observes health probe latency per component.
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_monitor_probe_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component"},
	)

	// ComponentStatus reports the last observed status per component
	// (0=healthy, 1=warning, 2=critical, 3=unknown).
	ComponentStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_monitor_component_status",
			Help: "Last observed component health status",
		},
		[]string{"component"},
	)

	// RiskScore reports the last computed risk score per subject.
	RiskScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_monitor_risk_score",
			Help: "Last computed risk score per subject",
		},
		[]string{"subject"},
	)
)

// Suppression reasons used with AlertsSuppressed.
const (
	ReasonCooldown       = "cooldown"
	ReasonRateLimit      = "rate_limit"
	ReasonSeverityFilter = "severity_filter"
)
