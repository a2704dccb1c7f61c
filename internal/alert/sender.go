package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Sender delivers one alert to one channel. Transport details (SMTP, Slack
// API, SMS gateway) live behind this interface; the engine only sees
// success or failure.
type Sender interface {
	Deliver(ctx context.Context, channel *models.AlertChannel, alert *models.AlertEvent) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, channel *models.AlertChannel, alert *models.AlertEvent) error

func (f SenderFunc) Deliver(ctx context.Context, channel *models.AlertChannel, alert *models.AlertEvent) error {
	return f(ctx, channel, alert)
}

// WebhookSender POSTs the alert as JSON to the channel endpoint.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a webhook sender with the given request timeout.
func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSender) Deliver(ctx context.Context, channel *models.AlertChannel, alert *models.AlertEvent) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook delivery failed: endpoint returned %d", resp.StatusCode)
	}

	return nil
}
