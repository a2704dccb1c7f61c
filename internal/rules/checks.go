package rules

import (
	"fmt"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// HealthCheck is one domain threshold check run against every health
// snapshot. A check returns nil when the snapshot is not its component or
// the threshold is not breached.
type HealthCheck interface {
	Name() string
	Component() string
	Check(h *models.ComponentHealth) *models.AlertEvent
}

// newCheckAlert builds an alert for a fired check, tagging it with the
// check name so the alert manager can fingerprint duplicates.
func newCheckAlert(check HealthCheck, severity models.AlertSeverity, message string) *models.AlertEvent {
	alert := models.NewAlertEvent(check.Component(), severity, message)
	alert.Metadata["rule"] = check.Name()
	return alert
}

// OracleLatencyCheck fires when the oracle price feed responds slower than
// the configured ceiling. Slow feeds mean stale prices for every consumer
// downstream.
type OracleLatencyCheck struct {
	maxResponseMs float64
}

func NewOracleLatencyCheck() *OracleLatencyCheck {
	return &OracleLatencyCheck{
		maxResponseMs: 5000.0,
	}
}

func (c *OracleLatencyCheck) Name() string      { return "oracle_response_time" }
func (c *OracleLatencyCheck) Component() string { return "oracle" }

func (c *OracleLatencyCheck) SetThreshold(maxMs float64) {
	c.maxResponseMs = maxMs
}

func (c *OracleLatencyCheck) Check(h *models.ComponentHealth) *models.AlertEvent {
	if h.Component != c.Component() {
		return nil
	}
	if float64(h.ResponseTimeMs) <= c.maxResponseMs {
		return nil
	}

	alert := newCheckAlert(c, models.SeverityMedium, fmt.Sprintf(
		"oracle feed response time %dms exceeds %.0fms ceiling", h.ResponseTimeMs, c.maxResponseMs))
	alert.Metadata["response_time_ms"] = fmt.Sprintf("%d", h.ResponseTimeMs)
	alert.Metadata["threshold_ms"] = fmt.Sprintf("%.0f", c.maxResponseMs)
	return alert
}

// StakingSlashingCheck fires on any observed slashing event against the
// staking pool. A single slashing event is capital loss and always
// critical.
type StakingSlashingCheck struct{}

func NewStakingSlashingCheck() *StakingSlashingCheck {
	return &StakingSlashingCheck{}
}

func (c *StakingSlashingCheck) Name() string      { return "staking_slashing_events" }
func (c *StakingSlashingCheck) Component() string { return "staking" }

func (c *StakingSlashingCheck) Check(h *models.ComponentHealth) *models.AlertEvent {
	if h.Component != c.Component() {
		return nil
	}
	slashed, ok := h.Metric("slashing_events")
	if !ok || slashed <= 0 {
		return nil
	}

	alert := newCheckAlert(c, models.SeverityCritical, fmt.Sprintf(
		"staking pool reported %.0f slashing event(s)", slashed))
	alert.Metadata["slashing_events"] = fmt.Sprintf("%.0f", slashed)
	return alert
}

// TreasuryBalanceCheck fires when treasury assets fall below the minimum
// operating balance.
type TreasuryBalanceCheck struct {
	minBalanceUSD float64
}

func NewTreasuryBalanceCheck() *TreasuryBalanceCheck {
	return &TreasuryBalanceCheck{
		minBalanceUSD: 10000.0,
	}
}

func (c *TreasuryBalanceCheck) Name() string      { return "treasury_minimum_balance" }
func (c *TreasuryBalanceCheck) Component() string { return "treasury" }

func (c *TreasuryBalanceCheck) SetThreshold(minUSD float64) {
	c.minBalanceUSD = minUSD
}

func (c *TreasuryBalanceCheck) Check(h *models.ComponentHealth) *models.AlertEvent {
	if h.Component != c.Component() {
		return nil
	}
	assets, ok := h.Metric("total_assets_usd")
	if !ok || assets >= c.minBalanceUSD {
		return nil
	}

	alert := newCheckAlert(c, models.SeverityCritical, fmt.Sprintf(
		"treasury balance $%.2f is below the $%.2f minimum", assets, c.minBalanceUSD))
	alert.Metadata["total_assets_usd"] = fmt.Sprintf("%.2f", assets)
	alert.Metadata["minimum_usd"] = fmt.Sprintf("%.2f", c.minBalanceUSD)
	return alert
}

// AuthFailureCheck fires when the hourly failed-authentication count
// crosses its threshold.
type AuthFailureCheck struct {
	maxFailuresPerHour float64
}

func NewAuthFailureCheck() *AuthFailureCheck {
	return &AuthFailureCheck{
		maxFailuresPerHour: 50.0,
	}
}

func (c *AuthFailureCheck) Name() string      { return "auth_failed_attempts" }
func (c *AuthFailureCheck) Component() string { return "auth" }

func (c *AuthFailureCheck) SetThreshold(maxPerHour float64) {
	c.maxFailuresPerHour = maxPerHour
}

func (c *AuthFailureCheck) Check(h *models.ComponentHealth) *models.AlertEvent {
	if h.Component != c.Component() {
		return nil
	}
	failures, ok := h.Metric("failed_auth_count")
	if !ok || failures <= c.maxFailuresPerHour {
		return nil
	}

	alert := newCheckAlert(c, models.SeverityHigh, fmt.Sprintf(
		"%.0f failed authentication attempts in the last hour (threshold %.0f)",
		failures, c.maxFailuresPerHour))
	alert.Metadata["failed_auth_count"] = fmt.Sprintf("%.0f", failures)
	return alert
}

// BackendLatencyCheck fires when a backend service's response time exceeds
// its ceiling.
type BackendLatencyCheck struct {
	component     string
	maxResponseMs float64
}

func NewBackendLatencyCheck(component string) *BackendLatencyCheck {
	return &BackendLatencyCheck{
		component:     component,
		maxResponseMs: 2000.0,
	}
}

func (c *BackendLatencyCheck) Name() string      { return c.component + "_response_time" }
func (c *BackendLatencyCheck) Component() string { return c.component }

func (c *BackendLatencyCheck) SetThreshold(maxMs float64) {
	c.maxResponseMs = maxMs
}

func (c *BackendLatencyCheck) Check(h *models.ComponentHealth) *models.AlertEvent {
	if h.Component != c.Component() {
		return nil
	}
	if float64(h.ResponseTimeMs) <= c.maxResponseMs {
		return nil
	}

	alert := newCheckAlert(c, models.SeverityMedium, fmt.Sprintf(
		"%s response time %dms exceeds %.0fms ceiling",
		c.component, h.ResponseTimeMs, c.maxResponseMs))
	alert.Metadata["response_time_ms"] = fmt.Sprintf("%d", h.ResponseTimeMs)
	return alert
}

// UptimeCheck fires when a component's uptime percentage drops below the
// configured floor. It applies to any component and is registered once per
// monitored domain that carries an SLO.
type UptimeCheck struct {
	component  string
	minPercent float64
}

func NewUptimeCheck(component string) *UptimeCheck {
	return &UptimeCheck{
		component:  component,
		minPercent: 99.0,
	}
}

func (c *UptimeCheck) Name() string      { return c.component + "_uptime" }
func (c *UptimeCheck) Component() string { return c.component }

func (c *UptimeCheck) SetThreshold(minPercent float64) {
	c.minPercent = minPercent
}

func (c *UptimeCheck) Check(h *models.ComponentHealth) *models.AlertEvent {
	if h.Component != c.Component() {
		return nil
	}
	// Uptime 0 with no checks recorded means the probe has no data yet.
	if h.UptimePercent <= 0 || h.UptimePercent >= c.minPercent {
		return nil
	}

	alert := newCheckAlert(c, models.SeverityHigh, fmt.Sprintf(
		"%s uptime %.2f%% is below the %.2f%% floor", c.component, h.UptimePercent, c.minPercent))
	alert.Metadata["uptime_percent"] = fmt.Sprintf("%.2f", h.UptimePercent)
	return alert
}
