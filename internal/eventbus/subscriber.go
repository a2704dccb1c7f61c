package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Subjects the monitor consumes domain events from.
const (
	SubjectSecurityEvents  = "events.security"
	SubjectManualAlerts    = "alerts.manual"
	SubjectComponentHealth = "health.components"
)

// EventProcessor receives domain events pulled off the bus.
type EventProcessor interface {
	RecordEvent(ev *models.DomainEvent)
}

// AlertProcessor receives manually triggered alerts for direct injection,
// bypassing rule evaluation.
type AlertProcessor interface {
	InjectAlert(alert *models.AlertEvent)
}

// HealthProcessor receives component health snapshots pushed by the
// monitored services themselves.
type HealthProcessor interface {
	UpdateComponent(h *models.ComponentHealth) error
}

// Subscriber consumes domain events, operator-triggered alerts, and pushed
// component health from NATS and feeds them into the monitoring engine.
type Subscriber struct {
	conn            *nats.Conn
	eventSub        *nats.Subscription
	manualSub       *nats.Subscription
	healthSub       *nats.Subscription
	processor       EventProcessor
	alertProcessor  AlertProcessor
	healthProcessor HealthProcessor
}

// NewSubscriber connects to NATS with retry. alertProcessor and
// healthProcessor may be nil, in which case their subjects are not
// subscribed.
func NewSubscriber(natsURL string, processor EventProcessor, alertProcessor AlertProcessor, healthProcessor HealthProcessor) (*Subscriber, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Monitor (Sub) connected to NATS at %s", natsURL)

	return &Subscriber{
		conn:            conn,
		processor:       processor,
		alertProcessor:  alertProcessor,
		healthProcessor: healthProcessor,
	}, nil
}

// Start subscribes to the event subjects.
func (s *Subscriber) Start() error {
	var err error

	log.Printf("Subscribing to %q", SubjectSecurityEvents)
	s.eventSub, err = s.conn.Subscribe(SubjectSecurityEvents, func(msg *nats.Msg) {
		s.handleEventMessage(msg)
	})
	if err != nil {
		return err
	}
	log.Printf("Subscribed to %q", SubjectSecurityEvents)

	if s.alertProcessor != nil {
		log.Printf("Subscribing to %q", SubjectManualAlerts)
		s.manualSub, err = s.conn.Subscribe(SubjectManualAlerts, func(msg *nats.Msg) {
			s.handleManualAlertMessage(msg)
		})
		if err != nil {
			return err
		}
		log.Printf("Subscribed to %q", SubjectManualAlerts)
	}

	if s.healthProcessor != nil {
		log.Printf("Subscribing to %q", SubjectComponentHealth)
		s.healthSub, err = s.conn.Subscribe(SubjectComponentHealth, func(msg *nats.Msg) {
			s.handleComponentHealthMessage(msg)
		})
		if err != nil {
			return err
		}
		log.Printf("Subscribed to %q", SubjectComponentHealth)
	}

	return nil
}

func (s *Subscriber) handleEventMessage(msg *nats.Msg) {
	var ev models.DomainEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Printf("Failed to unmarshal domain event: %v", err)
		return
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.processor.RecordEvent(&ev)
}

func (s *Subscriber) handleManualAlertMessage(msg *nats.Msg) {
	var alert models.AlertEvent
	if err := json.Unmarshal(msg.Data, &alert); err != nil {
		log.Printf("Failed to unmarshal manual alert: %v", err)
		return
	}

	log.Printf("Received manual alert trigger: [%s] %s", alert.Severity, alert.Message)
	s.alertProcessor.InjectAlert(&alert)
}

func (s *Subscriber) handleComponentHealthMessage(msg *nats.Msg) {
	var h models.ComponentHealth
	if err := json.Unmarshal(msg.Data, &h); err != nil {
		log.Printf("Failed to unmarshal component health: %v", err)
		return
	}

	if h.LastCheck.IsZero() {
		h.LastCheck = time.Now()
	}

	if err := s.healthProcessor.UpdateComponent(&h); err != nil {
		log.Printf("Failed to update component state: %v", err)
	}
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.eventSub != nil {
		s.eventSub.Unsubscribe()
	}
	if s.manualSub != nil {
		s.manualSub.Unsubscribe()
	}
	if s.healthSub != nil {
		s.healthSub.Unsubscribe()
	}

	if s.conn != nil {
		s.conn.Close()
		log.Printf("Monitor (Sub) disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS.
func (s *Subscriber) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}
