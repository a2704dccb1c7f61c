package models

import "time"

// EventType classifies domain events observed across the platform.
type EventType string

const (
	EventLoginFailure      EventType = "login_failure"
	EventTwoFactorFailure  EventType = "two_factor_failure"
	EventLargeTransaction  EventType = "large_transaction"
	EventSecurityViolation EventType = "security_violation"
	EventWithdrawal        EventType = "withdrawal"
	EventDeposit           EventType = "deposit"
	EventPriceDeviation    EventType = "price_deviation"
	EventComplianceFlag    EventType = "compliance_flag"
)

// DefaultSeverity maps an event type to its fallback severity, used only
// when no anomaly rule supplies an explicit one.
func DefaultSeverity(t EventType) AlertSeverity {
	switch t {
	case EventSecurityViolation:
		return SeverityCritical
	case EventTwoFactorFailure, EventLargeTransaction, EventComplianceFlag:
		return SeverityHigh
	case EventLoginFailure, EventPriceDeviation:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DomainEvent is a behavioural event attributed to a subject (account,
// session, or feed) that anomaly rules are evaluated against.
type DomainEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Subject   string            `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Amount    float64           `json:"amount,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AnomalyRule describes one configured detection: a threshold count over a
// trailing time window for a set of event types. Rules are immutable after
// configuration load.
type AnomalyRule struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	EventTypes           []EventType     `json:"event_types"`
	Enabled              bool            `json:"enabled"`
	ThresholdValue       float64         `json:"threshold_value"`
	WindowMinutes        uint            `json:"window_minutes"`
	Severity             AlertSeverity   `json:"severity"`
	AutoBlock            bool            `json:"auto_block"`
	NotificationRequired bool            `json:"notification_required"`
}

// Matches reports whether the rule applies to the given event type.
func (r *AnomalyRule) Matches(t EventType) bool {
	for _, et := range r.EventTypes {
		if et == t {
			return true
		}
	}
	return false
}
