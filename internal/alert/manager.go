package alert

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/cooldown"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/metrics"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

const defaultMaxHistory = 1000

// Options configures an alert Manager.
type Options struct {
	// CooldownWindow is the minimum time between two deliveries of alerts
	// with the same fingerprint.
	CooldownWindow time.Duration

	// MaxRetries caps DeliveryStatus.RetryCount; a failed delivery that
	// reaches it transitions to exhausted and is never retried again.
	MaxRetries uint

	// DeliveryTimeout bounds each channel delivery attempt.
	DeliveryTimeout time.Duration

	// MaxHistory bounds the in-memory alert history.
	MaxHistory int
}

// AuditPublisher mirrors every alert that survives suppression onto the
// event bus for dashboard and audit consumers.
type AuditPublisher interface {
	PublishAlert(alert *models.AlertEvent) error
}

// Manager accepts alert events, applies cooldown suppression and
// per-channel filtering, delivers concurrently to all eligible channels,
// and tracks delivery outcomes with bounded retry.
//
// Manager is safe for concurrent use: a scheduled cycle and a manual
// trigger may race on the same fingerprint and exactly one wins the
// cooldown reservation.
type Manager struct {
	channels []models.AlertChannel
	senders  map[models.ChannelType]Sender
	store    cooldown.Store
	opts     Options

	mu       sync.Mutex
	audit    AuditPublisher
	history  []*models.AlertEvent
	statuses []*models.DeliveryStatus
	alerts   map[string]*models.AlertEvent // alert ID -> event, for retries
	byName   map[string]*models.AlertChannel
}

// NewManager creates a Manager delivering to the given channels through
// per-type senders, using store for cooldown and rate-limit state.
func NewManager(channels []models.AlertChannel, senders map[models.ChannelType]Sender, store cooldown.Store, opts Options) *Manager {
	if opts.CooldownWindow <= 0 {
		opts.CooldownWindow = 15 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}

	byName := make(map[string]*models.AlertChannel, len(channels))
	for i := range channels {
		byName[channels[i].Name] = &channels[i]
	}

	return &Manager{
		channels: channels,
		senders:  senders,
		store:    store,
		opts:     opts,
		alerts:   make(map[string]*models.AlertEvent),
		byName:   byName,
	}
}

// SetAuditPublisher wires the bus mirror for accepted alerts.
func (m *Manager) SetAuditPublisher(p AuditPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = p
}

// SendAlert delivers the alert to every eligible channel concurrently and
// returns one DeliveryStatus per attempted channel. The alert's fingerprint
// is reserved atomically in the cooldown store before anything else: of any
// concurrent duplicates exactly one proceeds, the rest return nil without
// contacting a channel. Rate-limited channels are skipped, not failed.
func (m *Manager) SendAlert(ctx context.Context, alert *models.AlertEvent) []*models.DeliveryStatus {
	metrics.AlertsFired.WithLabelValues(alert.Component, string(alert.Severity)).Inc()

	now := time.Now()
	fingerprint := alert.Fingerprint()

	// The reservation consumes the cooldown window even when no channel
	// turns out to be eligible; the alert still lands in history and on the
	// audit subject. Store errors fail open: a lost suppression beats a
	// lost page.
	won, err := m.store.MarkIfNotWithin(ctx, fingerprint, now, m.opts.CooldownWindow)
	if err != nil {
		log.Printf("Warning: cooldown reservation failed for %s: %v", fingerprint, err)
		won = true
	}
	if !won {
		log.Printf("Alert suppressed (cooldown): %s", fingerprint)
		metrics.AlertsSuppressed.WithLabelValues(metrics.ReasonCooldown).Inc()
		return nil
	}

	m.appendHistory(alert)
	m.publishAudit(alert)

	eligible := m.eligibleChannels(ctx, alert, now)
	if len(eligible) == 0 {
		log.Printf("No eligible channels for alert [%s] %s", alert.Severity, alert.Message)
		return nil
	}

	statuses := make([]*models.DeliveryStatus, len(eligible))
	var wg sync.WaitGroup

	for i, ch := range eligible {
		status := &models.DeliveryStatus{
			AlertID:   alert.AlertID,
			Channel:   ch.Name,
			Status:    models.DeliveryPending,
			Timestamp: now,
		}
		statuses[i] = status

		wg.Add(1)
		go func(ch *models.AlertChannel, status *models.DeliveryStatus) {
			defer wg.Done()
			m.deliver(ctx, ch, alert, status)
		}(ch, status)
	}

	wg.Wait()

	m.mu.Lock()
	m.statuses = append(m.statuses, statuses...)
	m.mu.Unlock()

	return statuses
}

// publishAudit mirrors an accepted alert onto the bus when a publisher is
// wired. Publish failures never block delivery.
func (m *Manager) publishAudit(alert *models.AlertEvent) {
	m.mu.Lock()
	audit := m.audit
	m.mu.Unlock()

	if audit == nil {
		return
	}
	if err := audit.PublishAlert(alert); err != nil {
		log.Printf("Warning: failed to publish alert %s to event bus: %v", alert.AlertID, err)
	}
}

// eligibleChannels filters the configured channels down to those that are
// enabled, accept the alert's severity, and have rate-limit budget left.
func (m *Manager) eligibleChannels(ctx context.Context, alert *models.AlertEvent, now time.Time) []*models.AlertChannel {
	var eligible []*models.AlertChannel

	for i := range m.channels {
		ch := &m.channels[i]
		if !ch.Enabled {
			continue
		}
		if !ch.AcceptsSeverity(alert.Severity) {
			metrics.AlertsSuppressed.WithLabelValues(metrics.ReasonSeverityFilter).Inc()
			continue
		}

		allowed, err := m.store.AllowChannel(ctx, ch.Name, ch.RateLimitPerHour, now)
		if err != nil {
			log.Printf("Warning: rate limit check failed for channel %s: %v", ch.Name, err)
			continue
		}
		if !allowed {
			// Skipped, not failed: the channel is over budget for this hour
			// and the alert is not queued for it.
			log.Printf("Channel %s rate limited, skipping alert %s", ch.Name, alert.AlertID)
			metrics.AlertsSuppressed.WithLabelValues(metrics.ReasonRateLimit).Inc()
			continue
		}

		eligible = append(eligible, ch)
	}

	return eligible
}

// deliver attempts one channel delivery, bounded by the delivery timeout,
// and records the outcome on status. Mutations happen under the manager
// lock since retry sweeps read the same records.
func (m *Manager) deliver(ctx context.Context, ch *models.AlertChannel, alert *models.AlertEvent, status *models.DeliveryStatus) {
	sender, ok := m.senders[ch.Type]
	if !ok {
		m.mu.Lock()
		status.Status = models.DeliveryFailed
		status.ErrorMessage = "no sender bound for channel type " + string(ch.Type)
		status.Timestamp = time.Now()
		m.mu.Unlock()
		metrics.Deliveries.WithLabelValues(ch.Name, string(models.DeliveryFailed)).Inc()
		return
	}

	dctx, cancel := context.WithTimeout(ctx, m.opts.DeliveryTimeout)
	defer cancel()

	err := sender.Deliver(dctx, ch, alert)

	m.mu.Lock()
	status.Timestamp = time.Now()
	if err != nil {
		status.Status = models.DeliveryFailed
		status.ErrorMessage = err.Error()
	} else {
		status.Status = models.DeliveryDelivered
		status.ErrorMessage = ""
	}
	m.mu.Unlock()

	if err != nil {
		log.Printf("Delivery failed: alert=%s channel=%s: %v", alert.AlertID, ch.Name, err)
		metrics.Deliveries.WithLabelValues(ch.Name, string(models.DeliveryFailed)).Inc()
		return
	}

	log.Printf("Delivered alert %s to channel %s", alert.AlertID, ch.Name)
	metrics.Deliveries.WithLabelValues(ch.Name, string(models.DeliveryDelivered)).Inc()
}

// appendHistory records the alert in the bounded history and indexes it for
// retry sweeps.
func (m *Manager) appendHistory(alert *models.AlertEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, alert)
	m.alerts[alert.AlertID] = alert
	if len(m.history) > m.opts.MaxHistory {
		evicted := m.history[:len(m.history)-m.opts.MaxHistory]
		for _, old := range evicted {
			delete(m.alerts, old.AlertID)
		}
		m.history = m.history[len(m.history)-m.opts.MaxHistory:]
	}
}

// RetryFailedDeliveries re-attempts every failed delivery once, incrementing
// its retry count. Deliveries that reach the retry cap without success
// transition to exhausted and are excluded from future sweeps. The updated
// statuses are returned.
func (m *Manager) RetryFailedDeliveries(ctx context.Context) []*models.DeliveryStatus {
	type retryItem struct {
		status *models.DeliveryStatus
		alert  *models.AlertEvent
		ch     *models.AlertChannel
	}

	m.mu.Lock()
	var items []retryItem
	for _, status := range m.statuses {
		if status.Status != models.DeliveryFailed {
			continue
		}
		status.RetryCount++
		alert := m.alerts[status.AlertID]
		ch := m.byName[status.Channel]
		if alert == nil || ch == nil {
			// Alert evicted from history or channel no longer configured;
			// nothing left to deliver.
			status.Status = models.DeliveryExhausted
			status.Timestamp = time.Now()
			continue
		}
		items = append(items, retryItem{status: status, alert: alert, ch: ch})
	}
	m.mu.Unlock()

	touched := make([]*models.DeliveryStatus, 0, len(items))
	for _, it := range items {
		m.deliver(ctx, it.ch, it.alert, it.status)

		m.mu.Lock()
		if it.status.Status == models.DeliveryFailed && it.status.RetryCount >= m.opts.MaxRetries {
			it.status.Status = models.DeliveryExhausted
			log.Printf("Delivery exhausted after %d retries: alert=%s channel=%s",
				it.status.RetryCount, it.status.AlertID, it.status.Channel)
			metrics.Deliveries.WithLabelValues(it.status.Channel, string(models.DeliveryExhausted)).Inc()
		}
		m.mu.Unlock()

		touched = append(touched, it.status)
	}

	return touched
}

// DeliveryStats aggregates stored delivery records.
type DeliveryStats struct {
	TotalAlerts int     `json:"total_alerts"`
	Delivered   int     `json:"delivered"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// GetDeliveryStats returns counts over all recorded delivery statuses.
// Exhausted deliveries count as failed; rate-limited skips were never
// recorded and therefore do not appear at all.
func (m *Manager) GetDeliveryStats() DeliveryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := DeliveryStats{TotalAlerts: len(m.statuses)}
	for _, s := range m.statuses {
		switch s.Status {
		case models.DeliveryDelivered:
			stats.Delivered++
		case models.DeliveryFailed, models.DeliveryExhausted:
			stats.Failed++
		}
	}

	if stats.TotalAlerts > 0 {
		stats.SuccessRate = float64(stats.Delivered) / float64(stats.TotalAlerts) * 100
	}

	return stats
}

// History returns copies of the retained alert history, oldest first.
func (m *Manager) History() []models.AlertEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.AlertEvent, len(m.history))
	for i, a := range m.history {
		out[i] = *a
	}
	return out
}

// CleanupOldAlerts drops alert history entries older than the retention
// window. Delivery status records follow their own lifecycle and are not
// touched.
func (m *Manager) CleanupOldAlerts(retentionDays uint) int {
	cutoff := time.Now().AddDate(0, 0, -int(retentionDays))

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.history[:0]
	removed := 0
	for _, a := range m.history {
		if a.Timestamp.Before(cutoff) {
			delete(m.alerts, a.AlertID)
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.history = kept

	if removed > 0 {
		log.Printf("Cleaned up %d alert(s) older than %d days", removed, retentionDays)
	}
	return removed
}
