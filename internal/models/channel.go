package models

// ChannelType identifies the transport behind a notification channel. The
// transport itself is opaque to the engine; senders are bound per type by
// the orchestrator.
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSlack   ChannelType = "slack"
	ChannelSMS     ChannelType = "sms"
	ChannelWebhook ChannelType = "webhook"
)

// AlertChannel is one configured notification target. Channels are
// configuration-owned and read-only during a monitoring cycle.
type AlertChannel struct {
	Name             string          `json:"name"`
	Type             ChannelType     `json:"type"`
	Endpoint         string          `json:"endpoint"`
	Enabled          bool            `json:"enabled"`
	SeverityFilter   []AlertSeverity `json:"severity_filter,omitempty"`
	RateLimitPerHour uint            `json:"rate_limit_per_hour"`
}

// AcceptsSeverity reports whether the channel's severity filter admits the
// given severity. An empty filter accepts all severities.
func (c *AlertChannel) AcceptsSeverity(s AlertSeverity) bool {
	if len(c.SeverityFilter) == 0 {
		return true
	}
	for _, f := range c.SeverityFilter {
		if f == s {
			return true
		}
	}
	return false
}
