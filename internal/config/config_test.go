package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/config"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

func validConfig() *config.Config {
	return &config.Config{
		HealthPort:               "8081",
		HealthCheckInterval:      30 * time.Second,
		PerformanceCheckInterval: 60 * time.Second,
		Thresholds: config.CheckThresholds{
			FrontendMinUptimePercent: 99.0,
		},
		Rules:    config.DefaultRules(),
		Channels: config.DefaultChannels(),
	}
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := config.Load()

	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Rules)
	assert.NotEmpty(t, cfg.Channels)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckInterval)
	assert.Equal(t, 15*time.Minute, cfg.CooldownWindow)
	assert.Equal(t, uint(3), cfg.MaxRetries)
}

func TestLoad_ProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	payload := `{"acct-1":{"kyc_tier":2,"account_age_days":365}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	t.Setenv("PROFILES_FILE", path)

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Contains(t, cfg.Profiles, "acct-1")
	assert.Equal(t, uint(2), cfg.Profiles["acct-1"].KYCTier)
	assert.Equal(t, uint(365), cfg.Profiles["acct-1"].AccountAgeDays)
}

func TestLoad_ProfilesOptional(t *testing.T) {
	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Empty(t, cfg.Profiles)
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsRuleWithoutEventTypes(t *testing.T) {
	cfg := validConfig()
	cfg.Rules = append(cfg.Rules, models.AnomalyRule{
		ID:             "broken",
		Name:           "Broken rule",
		ThresholdValue: 1,
		WindowMinutes:  5,
	})

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "event types")
}

func TestValidate_RejectsZeroWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Rules = append(cfg.Rules, models.AnomalyRule{
		ID:             "zero-window",
		Name:           "Zero window",
		EventTypes:     []models.EventType{models.EventLoginFailure},
		ThresholdValue: 1,
		WindowMinutes:  0,
	})

	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownSeverity(t *testing.T) {
	cfg := validConfig()
	cfg.Rules = append(cfg.Rules, models.AnomalyRule{
		ID:             "bad-severity",
		Name:           "Bad severity",
		EventTypes:     []models.EventType{models.EventLoginFailure},
		ThresholdValue: 1,
		WindowMinutes:  5,
		Severity:       "urgent",
	})

	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsDuplicateRuleIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Rules = append(cfg.Rules, cfg.Rules[0])

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidate_RejectsUnknownChannelType(t *testing.T) {
	cfg := validConfig()
	cfg.Channels = append(cfg.Channels, models.AlertChannel{
		Name: "pager",
		Type: "carrier-pigeon",
	})

	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEnabledWebhookWithoutEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Channels = append(cfg.Channels, models.AlertChannel{
		Name:    "hook",
		Type:    models.ChannelWebhook,
		Enabled: true,
	})

	assert.Error(t, cfg.Validate())
}

func TestDefaultChannels_EmptyFilterAcceptsAll(t *testing.T) {
	for _, ch := range config.DefaultChannels() {
		if len(ch.SeverityFilter) == 0 {
			assert.True(t, ch.AcceptsSeverity(models.SeverityLow))
			assert.True(t, ch.AcceptsSeverity(models.SeverityCritical))
		}
	}
}
