package rules

import (
	"fmt"
	"log"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Engine evaluates health snapshots against registered domain checks and
// domain events against configured anomaly rules. Checks and rules are
// registered at startup and read-only afterwards, so evaluation needs no
// locking.
type Engine struct {
	checks []HealthCheck
	rules  []models.AnomalyRule
}

// NewEngine creates an empty rule engine.
func NewEngine() *Engine {
	return &Engine{
		checks: make([]HealthCheck, 0),
		rules:  make([]models.AnomalyRule, 0),
	}
}

// RegisterCheck adds a domain health check to the engine.
func (e *Engine) RegisterCheck(c HealthCheck) {
	e.checks = append(e.checks, c)
	log.Printf("Registered health check: %s (component: %s)", c.Name(), c.Component())
}

// RegisterRule adds an anomaly rule to the engine.
func (e *Engine) RegisterRule(r models.AnomalyRule) {
	e.rules = append(e.rules, r)
	log.Printf("Registered anomaly rule: %s (threshold: %.0f over %dm)", r.Name, r.ThresholdValue, r.WindowMinutes)
}

// RegisteredChecks returns the names of all registered health checks.
func (e *Engine) RegisteredChecks() []string {
	names := make([]string, len(e.checks))
	for i, c := range e.checks {
		names[i] = c.Name()
	}
	return names
}

// EvaluateHealth runs every registered check against the snapshot and
// returns the alerts that fired. Checks are independent; one snapshot can
// produce several alerts.
func (e *Engine) EvaluateHealth(h *models.ComponentHealth) []*models.AlertEvent {
	var alerts []*models.AlertEvent

	for _, check := range e.checks {
		if alert := check.Check(h); alert != nil {
			log.Printf("Check fired [%s] %s - %s", alert.Severity, check.Name(), alert.Message)
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

// EvaluateEvent evaluates one domain event against every enabled anomaly
// rule whose event types include the event's type. For each firing rule the
// trailing window count is taken from the provided history ending at now;
// the boundary is computed once from now so evaluation is replayable. The
// boolean result reports whether any firing rule demands an auto-block of
// the event's subject.
func (e *Engine) EvaluateEvent(ev *models.DomainEvent, window *EventWindow, now time.Time) ([]*models.AlertEvent, bool) {
	var alerts []*models.AlertEvent
	autoBlock := false

	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Enabled || !rule.Matches(ev.Type) {
			continue
		}

		from := now.Add(-time.Duration(rule.WindowMinutes) * time.Minute)
		count := window.CountMatching(rule, ev.Subject, from, now)
		if float64(count) < rule.ThresholdValue {
			continue
		}

		severity := rule.Severity
		if !models.ValidSeverity(severity) {
			severity = models.DefaultSeverity(ev.Type)
		}

		alert := models.NewAlertEvent("security", severity, fmt.Sprintf(
			"rule %q fired for subject %s: %d %s event(s) in %dm (threshold %.0f)",
			rule.Name, ev.Subject, count, ev.Type, rule.WindowMinutes, rule.ThresholdValue))
		alert.Timestamp = now
		alert.Metadata["rule"] = rule.ID
		alert.Metadata["subject"] = ev.Subject
		alert.Metadata["event_type"] = string(ev.Type)
		alert.Metadata["count"] = fmt.Sprintf("%d", count)

		log.Printf("Anomaly rule fired [%s] %s - subject=%s count=%d", severity, rule.Name, ev.Subject, count)
		alerts = append(alerts, alert)

		if rule.AutoBlock {
			autoBlock = true
		}
	}

	return alerts, autoBlock
}
