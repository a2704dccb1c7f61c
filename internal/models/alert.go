package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity indicates urgency of an alert.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s AlertSeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertEvent is a single alert produced by the rule engine or injected
// manually. Events are immutable and consumed exactly once by the alert
// manager.
type AlertEvent struct {
	AlertID   string            `json:"alert_id"`
	Component string            `json:"component"`
	Severity  AlertSeverity     `json:"severity"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewAlertEvent creates an alert with a unique ID and the current time.
func NewAlertEvent(component string, severity AlertSeverity, message string) *AlertEvent {
	return &AlertEvent{
		AlertID:   uuid.NewString(),
		Component: component,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// Fingerprint identifies "the same" alert for cooldown purposes: the
// component plus the rule or check that produced it. Two alerts with equal
// fingerprints fired within the cooldown window are duplicates.
func (a *AlertEvent) Fingerprint() string {
	rule := a.Metadata["rule"]
	if rule == "" {
		rule = a.Message
	}
	fp := a.Component + ":" + rule
	if subject := a.Metadata["subject"]; subject != "" {
		fp += ":" + subject
	}
	return fp
}

// DeliveryState tracks where one (alert, channel) delivery is in its
// lifecycle.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryFailed    DeliveryState = "failed"
	// DeliveryExhausted is terminal: the retry budget was consumed without a
	// successful delivery.
	DeliveryExhausted DeliveryState = "exhausted"
)

// DeliveryStatus records the outcome of delivering one alert to one channel.
// RetryCount only ever grows and is capped by the configured retry limit.
type DeliveryStatus struct {
	AlertID      string        `json:"alert_id"`
	Channel      string        `json:"channel"`
	Status       DeliveryState `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	RetryCount   uint          `json:"retry_count"`
	ErrorMessage string        `json:"error_message,omitempty"`
}
