package risk

import (
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Per-factor weights and caps. Each behavioural counter contributes at most
// its cap so no single factor can saturate the score on its own.
const (
	weightFailedLogin   = 10
	capFailedLogins     = 40
	weightSuspicious    = 15
	capSuspicious       = 30
	weightCompliance    = 20
	capCompliance       = 40
	recentBonusFull     = 15 // suspicious activity within 7 days
	recentBonusHalf     = 8  // suspicious activity within 30 days
	weightKYCTier       = -5 // each verified tier reduces the score
	ageBonus            = -10
	matureAccountDays   = 180
)

// Level thresholds over the clamped [0,100] score.
const (
	levelMedium   = 30
	levelHigh     = 70
	levelCritical = 90
)

// Score computes a subject's risk score from its behavioural counters.
// The result is always clamped to [0,100]; increasing any adverse counter
// never decreases it, and increasing KYC tier or account age never
// increases it.
func Score(f models.RiskFactors, now time.Time) int {
	score := min(int(f.FailedLogins)*weightFailedLogin, capFailedLogins)
	score += min(int(f.SuspiciousActivities)*weightSuspicious, capSuspicious)
	score += min(int(f.ComplianceAlerts)*weightCompliance, capCompliance)
	score += recencyBonus(f.LastSuspicious, now)
	score += int(f.KYCTier) * weightKYCTier
	if f.AccountAgeDays > matureAccountDays {
		score += ageBonus
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// recencyBonus adds weight when the last suspicious activity is fresh:
// full bonus inside 7 days, half inside 30, nothing beyond that. Only the
// single most recent timestamp is considered; multiple recent events do not
// compound.
func recencyBonus(last time.Time, now time.Time) int {
	if last.IsZero() || last.After(now) {
		return 0
	}
	age := now.Sub(last)
	switch {
	case age < 7*24*time.Hour:
		return recentBonusFull
	case age < 30*24*time.Hour:
		return recentBonusHalf
	default:
		return 0
	}
}

// Level maps a score to its risk tier.
func Level(score int) models.RiskLevel {
	switch {
	case score < levelMedium:
		return models.RiskLow
	case score < levelHigh:
		return models.RiskMedium
	case score < levelCritical:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// highRiskBlockTypes are event types eligible for auto-block once a
// subject's score reaches the high tier.
var highRiskBlockTypes = map[models.EventType]bool{
	models.EventLoginFailure:     true,
	models.EventTwoFactorFailure: true,
	models.EventLargeTransaction: true,
}

// ShouldAutoBlock decides whether a subject should be blocked immediately.
// Security violations always block regardless of score; other high-risk
// event types block only once the score reaches the high threshold.
func ShouldAutoBlock(t models.EventType, score int) bool {
	if t == models.EventSecurityViolation {
		return true
	}
	return score >= levelHigh && highRiskBlockTypes[t]
}
