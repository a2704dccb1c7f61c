package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/rules"
)

func TestOracleLatencyCheck_FiresAboveThreshold(t *testing.T) {
	check := rules.NewOracleLatencyCheck()
	check.SetThreshold(5000.0)

	health := models.NewComponentHealth("oracle")
	health.ResponseTimeMs = 6000

	alert := check.Check(health)

	assert.NotNil(t, alert, "check should fire at 6000ms against a 5000ms ceiling")
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, "oracle", alert.Component)
	assert.Contains(t, alert.Message, "oracle")
}

func TestOracleLatencyCheck_SilentBelowThreshold(t *testing.T) {
	check := rules.NewOracleLatencyCheck()
	check.SetThreshold(5000.0)

	health := models.NewComponentHealth("oracle")
	health.ResponseTimeMs = 4000

	assert.Nil(t, check.Check(health))
}

func TestOracleLatencyCheck_IgnoresOtherComponents(t *testing.T) {
	check := rules.NewOracleLatencyCheck()

	health := models.NewComponentHealth("treasury")
	health.ResponseTimeMs = 60000

	assert.Nil(t, check.Check(health))
}

func TestStakingSlashingCheck_CriticalOnAnySlashing(t *testing.T) {
	check := rules.NewStakingSlashingCheck()

	health := models.NewComponentHealth("staking")
	health.Metrics["slashing_events"] = 1

	alert := check.Check(health)

	assert.NotNil(t, alert)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
}

func TestStakingSlashingCheck_SilentWithoutSlashing(t *testing.T) {
	check := rules.NewStakingSlashingCheck()

	health := models.NewComponentHealth("staking")
	health.Metrics["slashing_events"] = 0

	assert.Nil(t, check.Check(health))
}

func TestTreasuryBalanceCheck_CriticalBelowMinimum(t *testing.T) {
	check := rules.NewTreasuryBalanceCheck()
	check.SetThreshold(10000.0)

	health := models.NewComponentHealth("treasury")
	health.Metrics["total_assets_usd"] = 5000

	alert := check.Check(health)

	assert.NotNil(t, alert, "balance 5000 against minimum 10000 must fire")
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Message, "treasury")
}

func TestTreasuryBalanceCheck_SilentAtOrAboveMinimum(t *testing.T) {
	check := rules.NewTreasuryBalanceCheck()
	check.SetThreshold(10000.0)

	health := models.NewComponentHealth("treasury")
	health.Metrics["total_assets_usd"] = 10000

	assert.Nil(t, check.Check(health))
}

func TestAuthFailureCheck_HighAboveHourlyThreshold(t *testing.T) {
	check := rules.NewAuthFailureCheck()
	check.SetThreshold(50.0)

	health := models.NewComponentHealth("auth")
	health.Metrics["failed_auth_count"] = 75

	alert := check.Check(health)

	assert.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
}

func TestUptimeCheck_FiresBelowFloor(t *testing.T) {
	check := rules.NewUptimeCheck("frontend")
	check.SetThreshold(99.0)

	health := models.NewComponentHealth("frontend")
	health.UptimePercent = 97.5

	alert := check.Check(health)

	assert.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
}

func TestUptimeCheck_SilentWithoutData(t *testing.T) {
	check := rules.NewUptimeCheck("frontend")

	health := models.NewComponentHealth("frontend")
	health.UptimePercent = 0

	assert.Nil(t, check.Check(health))
}

func TestEvaluateHealth_IndependentChecksCanBothFire(t *testing.T) {
	engine := rules.NewEngine()
	engine.RegisterCheck(rules.NewBackendLatencyCheck("backend"))
	engine.RegisterCheck(rules.NewUptimeCheck("backend"))

	health := models.NewComponentHealth("backend")
	health.ResponseTimeMs = 5000
	health.UptimePercent = 90

	alerts := engine.EvaluateHealth(health)

	assert.Len(t, alerts, 2, "latency and uptime violations are independent alerts")
}

func TestEvaluateHealth_CleanSnapshotProducesNothing(t *testing.T) {
	engine := rules.NewEngine()
	engine.RegisterCheck(rules.NewOracleLatencyCheck())
	engine.RegisterCheck(rules.NewTreasuryBalanceCheck())

	health := models.NewComponentHealth("oracle")
	health.ResponseTimeMs = 100

	assert.Empty(t, engine.EvaluateHealth(health))
}
