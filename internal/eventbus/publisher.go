package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// NATS subjects used by the monitor.
const (
	SubjectAlerts = "alerts.fired"
	SubjectBlocks = "accounts.block"
	notifyPrefix  = "notify."
)

// Publisher publishes fired alerts, notification fan-out messages, and
// auto-block decisions to NATS.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with retry and returns a Publisher.
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Monitor (Pub) connected to NATS at %s", natsURL)

	return &Publisher{
		conn: conn,
	}, nil
}

// PublishAlert publishes a fired alert to the alerts subject for dashboard
// and audit consumers.
func (p *Publisher) PublishAlert(alert *models.AlertEvent) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(SubjectAlerts, data); err != nil {
		return err
	}

	log.Printf("Published alert to event bus: [%s] %s", alert.Severity, alert.Message)

	return nil
}

// PublishBlock publishes an auto-block decision for a subject.
func (p *Publisher) PublishBlock(subject, reason string) error {
	payload := struct {
		Subject   string `json:"subject"`
		Reason    string `json:"reason"`
		Timestamp int64  `json:"timestamp"`
	}{
		Subject:   subject,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.conn.Publish(SubjectBlocks, data)
}

// notifyPayload is what the out-of-process notification relays consume.
type notifyPayload struct {
	Channel *models.AlertChannel `json:"channel"`
	Alert   *models.AlertEvent   `json:"alert"`
}

// Deliver implements the alert sender contract by handing the alert to the
// notification relay for the channel's type (email, slack, sms workers
// subscribe to their own subject). Flush bounds the call so a wedged
// connection cannot stall a delivery goroutine.
func (p *Publisher) Deliver(ctx context.Context, channel *models.AlertChannel, alert *models.AlertEvent) error {
	data, err := json.Marshal(notifyPayload{Channel: channel, Alert: alert})
	if err != nil {
		return err
	}

	if err := p.conn.Publish(notifyPrefix+string(channel.Type), data); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	return p.conn.FlushTimeout(time.Until(deadline))
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Println("Monitor (Pub) disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
