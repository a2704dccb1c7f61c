package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Config holds all configuration for the monitor service. Rules and
// channels are loaded once at startup and treated as immutable afterwards.
type Config struct {
	// Service addresses
	HealthPort  string
	NatsURL     string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	PostgresURL string

	// Probed endpoints
	FrontendURL string
	BackendURL  string

	// Cycle pacing
	MonitoringEnabled        bool
	HealthCheckInterval      time.Duration
	PerformanceCheckInterval time.Duration

	// Delivery behaviour
	ProbeTimeout    time.Duration
	DeliveryTimeout time.Duration
	CooldownWindow  time.Duration
	MaxRetries      uint
	RetentionDays   uint

	// Health check thresholds (configurable per domain)
	Thresholds CheckThresholds

	// Anomaly rules and notification channels
	Rules    []models.AnomalyRule
	Channels []models.AlertChannel

	// Account profiles for risk scoring, keyed by subject. Optional.
	Profiles map[string]models.AccountProfile
}

// CheckThresholds contains the per-domain thresholds applied by the health
// checks. These can be adjusted per environment (dev/staging/prod).
type CheckThresholds struct {
	OracleMaxResponseMs      float64
	TreasuryMinBalanceUSD    float64
	AuthMaxFailuresPerHour   float64
	BackendMaxResponseMs     float64
	FrontendMinUptimePercent float64
}

// Load reads configuration from environment variables and .env file.
// Rule or channel files referenced by RULES_FILE / CHANNELS_FILE replace
// the built-in defaults. Invalid rule configuration is fatal: the service
// refuses to start rather than run with ambiguous rules.
func Load() (*Config, error) {
	// Try multiple .env locations
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		HealthPort:  getEnvOrDefault("HEALTH_PORT", "8081"),
		NatsURL:     getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		RedisAddr:   getEnvOrDefault("REDIS_ADDR", ""),
		RedisPass:   getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:     parseIntOrDefault("REDIS_DB", 0),
		PostgresURL: getEnvOrDefault("POSTGRES_URL", ""),

		FrontendURL: getEnvOrDefault("FRONTEND_HEALTH_URL", ""),
		BackendURL:  getEnvOrDefault("BACKEND_HEALTH_URL", ""),

		MonitoringEnabled:        getEnvOrDefault("MONITORING_ENABLED", "true") == "true",
		HealthCheckInterval:      parseDurationOrDefault("HEALTH_CHECK_INTERVAL", 30*time.Second),
		PerformanceCheckInterval: parseDurationOrDefault("PERFORMANCE_CHECK_INTERVAL", 60*time.Second),

		ProbeTimeout:    parseDurationOrDefault("PROBE_TIMEOUT", 5*time.Second),
		DeliveryTimeout: parseDurationOrDefault("DELIVERY_TIMEOUT", 10*time.Second),
		CooldownWindow:  parseDurationOrDefault("ALERT_COOLDOWN", 15*time.Minute),
		MaxRetries:      uint(parseIntOrDefault("DELIVERY_MAX_RETRIES", 3)),
		RetentionDays:   uint(parseIntOrDefault("ALERT_RETENTION_DAYS", 30)),

		Thresholds: CheckThresholds{
			OracleMaxResponseMs:      parseFloatOrDefault("THRESHOLD_ORACLE_RESPONSE_MS", 5000.0),
			TreasuryMinBalanceUSD:    parseFloatOrDefault("THRESHOLD_TREASURY_MIN_USD", 10000.0),
			AuthMaxFailuresPerHour:   parseFloatOrDefault("THRESHOLD_AUTH_FAILURES_HOURLY", 50.0),
			BackendMaxResponseMs:     parseFloatOrDefault("THRESHOLD_BACKEND_RESPONSE_MS", 2000.0),
			FrontendMinUptimePercent: parseFloatOrDefault("THRESHOLD_FRONTEND_UPTIME", 99.0),
		},
	}

	var err error
	config.Rules, err = loadRules(os.Getenv("RULES_FILE"))
	if err != nil {
		return nil, err
	}

	config.Channels, err = loadChannels(os.Getenv("CHANNELS_FILE"))
	if err != nil {
		return nil, err
	}

	config.Profiles, err = loadProfiles(os.Getenv("PROFILES_FILE"))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadRules returns the rules from the given JSON file, or the built-in
// defaults when no file is configured.
func loadRules(path string) ([]models.AnomalyRule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules []models.AnomalyRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	log.Printf("Loaded %d anomaly rules from %s", len(rules), path)
	return rules, nil
}

// loadChannels returns the channels from the given JSON file, or the
// built-in defaults when no file is configured.
func loadChannels(path string) ([]models.AlertChannel, error) {
	if path == "" {
		return DefaultChannels(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels file: %w", err)
	}

	var channels []models.AlertChannel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("failed to parse channels file: %w", err)
	}

	log.Printf("Loaded %d alert channels from %s", len(channels), path)
	return channels, nil
}

// loadProfiles returns the account profile table from the given JSON file,
// or nil when none is configured. Without profiles, risk scoring sees every
// subject as a new unverified account.
func loadProfiles(path string) (map[string]models.AccountProfile, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var profiles map[string]models.AccountProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	log.Printf("Loaded %d account profiles from %s", len(profiles), path)
	return profiles, nil
}

// DefaultRules is the built-in anomaly rule set.
func DefaultRules() []models.AnomalyRule {
	return []models.AnomalyRule{
		{
			ID:                   "login-velocity",
			Name:                 "Repeated login failures",
			EventTypes:           []models.EventType{models.EventLoginFailure},
			Enabled:              true,
			ThresholdValue:       5,
			WindowMinutes:        15,
			Severity:             models.SeverityHigh,
			AutoBlock:            true,
			NotificationRequired: true,
		},
		{
			ID:                   "2fa-velocity",
			Name:                 "Repeated two-factor failures",
			EventTypes:           []models.EventType{models.EventTwoFactorFailure},
			Enabled:              true,
			ThresholdValue:       3,
			WindowMinutes:        10,
			Severity:             models.SeverityHigh,
			AutoBlock:            true,
			NotificationRequired: true,
		},
		{
			ID:                   "large-tx-burst",
			Name:                 "Burst of large transactions",
			EventTypes:           []models.EventType{models.EventLargeTransaction},
			Enabled:              true,
			ThresholdValue:       3,
			WindowMinutes:        60,
			Severity:             models.SeverityMedium,
			AutoBlock:            false,
			NotificationRequired: true,
		},
		{
			ID:                   "security-violation",
			Name:                 "Security violation",
			EventTypes:           []models.EventType{models.EventSecurityViolation},
			Enabled:              true,
			ThresholdValue:       1,
			WindowMinutes:        5,
			Severity:             models.SeverityCritical,
			AutoBlock:            true,
			NotificationRequired: true,
		},
		{
			ID:                   "compliance-flags",
			Name:                 "Accumulating compliance flags",
			EventTypes:           []models.EventType{models.EventComplianceFlag},
			Enabled:              true,
			ThresholdValue:       2,
			WindowMinutes:        240,
			Severity:             models.SeverityHigh,
			AutoBlock:            false,
			NotificationRequired: true,
		},
	}
}

// DefaultChannels is the built-in channel list. The webhook endpoint comes
// from ALERT_WEBHOOK_URL; the channel stays disabled without one.
func DefaultChannels() []models.AlertChannel {
	webhookURL := os.Getenv("ALERT_WEBHOOK_URL")

	return []models.AlertChannel{
		{
			Name:             "ops-email",
			Type:             models.ChannelEmail,
			Endpoint:         getEnvOrDefault("ALERT_EMAIL", "ops@vault.local"),
			Enabled:          true,
			SeverityFilter:   []models.AlertSeverity{models.SeverityHigh, models.SeverityCritical},
			RateLimitPerHour: 20,
		},
		{
			Name:             "ops-slack",
			Type:             models.ChannelSlack,
			Endpoint:         getEnvOrDefault("ALERT_SLACK_CHANNEL", "#vault-alerts"),
			Enabled:          true,
			SeverityFilter:   nil, // all severities
			RateLimitPerHour: 100,
		},
		{
			Name:             "oncall-sms",
			Type:             models.ChannelSMS,
			Endpoint:         getEnvOrDefault("ALERT_SMS_NUMBER", ""),
			Enabled:          getEnvOrDefault("ALERT_SMS_NUMBER", "") != "",
			SeverityFilter:   []models.AlertSeverity{models.SeverityCritical},
			RateLimitPerHour: 10,
		},
		{
			Name:             "audit-webhook",
			Type:             models.ChannelWebhook,
			Endpoint:         webhookURL,
			Enabled:          webhookURL != "",
			SeverityFilter:   nil,
			RateLimitPerHour: 0, // unlimited
		},
	}
}

// Validate checks that required configuration is present and that every
// rule and channel is well formed. Any violation rejects startup.
func (c *Config) Validate() error {
	if c.HealthPort == "" {
		return fmt.Errorf("HEALTH_PORT is required")
	}

	if c.HealthCheckInterval <= 0 || c.PerformanceCheckInterval <= 0 {
		return fmt.Errorf("check intervals must be positive")
	}

	if c.Thresholds.FrontendMinUptimePercent < 0 || c.Thresholds.FrontendMinUptimePercent > 100 {
		return fmt.Errorf("THRESHOLD_FRONTEND_UPTIME must be between 0 and 100")
	}

	seen := make(map[string]bool, len(c.Rules))
	for i := range c.Rules {
		if err := validateRule(&c.Rules[i]); err != nil {
			return err
		}
		if seen[c.Rules[i].ID] {
			return fmt.Errorf("invalid rule configuration: duplicate rule id %q", c.Rules[i].ID)
		}
		seen[c.Rules[i].ID] = true
	}

	for i := range c.Channels {
		if err := validateChannel(&c.Channels[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateRule(r *models.AnomalyRule) error {
	if r.ID == "" || r.Name == "" {
		return fmt.Errorf("invalid rule configuration: rule id and name are required")
	}
	if len(r.EventTypes) == 0 {
		return fmt.Errorf("invalid rule configuration: rule %q has no event types", r.ID)
	}
	if r.ThresholdValue <= 0 {
		return fmt.Errorf("invalid rule configuration: rule %q threshold must be positive", r.ID)
	}
	if r.WindowMinutes == 0 {
		return fmt.Errorf("invalid rule configuration: rule %q window must be positive", r.ID)
	}
	if r.Severity != "" && !models.ValidSeverity(r.Severity) {
		return fmt.Errorf("invalid rule configuration: rule %q has unknown severity %q", r.ID, r.Severity)
	}
	return nil
}

func validateChannel(ch *models.AlertChannel) error {
	if ch.Name == "" {
		return fmt.Errorf("invalid channel configuration: channel name is required")
	}
	switch ch.Type {
	case models.ChannelEmail, models.ChannelSlack, models.ChannelSMS, models.ChannelWebhook:
	default:
		return fmt.Errorf("invalid channel configuration: channel %q has unknown type %q", ch.Name, ch.Type)
	}
	if ch.Type == models.ChannelWebhook && ch.Enabled && ch.Endpoint == "" {
		return fmt.Errorf("invalid channel configuration: webhook channel %q needs an endpoint", ch.Name)
	}
	for _, s := range ch.SeverityFilter {
		if !models.ValidSeverity(s) {
			return fmt.Errorf("invalid channel configuration: channel %q has unknown severity %q", ch.Name, s)
		}
	}
	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
