package models

import "time"

// RiskLevel buckets a risk score into operator-facing tiers.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// AccountProfile carries the slow-moving account attributes risk scoring
// uses to temper behavioural counters.
type AccountProfile struct {
	KYCTier        uint `json:"kyc_tier"`
	AccountAgeDays uint `json:"account_age_days"`
}

// RiskFactors are the behavioural counters a subject's risk score is
// computed from. The struct is a transient input record; the scorer holds
// no state.
type RiskFactors struct {
	FailedLogins         uint      `json:"failed_logins"`
	SuspiciousActivities uint      `json:"suspicious_activities"`
	ComplianceAlerts     uint      `json:"compliance_alerts"`
	LastSuspicious       time.Time `json:"last_suspicious,omitempty"`
	KYCTier              uint      `json:"kyc_tier"`
	AccountAgeDays       uint      `json:"account_age_days"`
}
