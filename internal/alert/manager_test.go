package alert_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/alert"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/cooldown"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// recordingSender counts deliveries per channel and fails on demand.
type recordingSender struct {
	mu        sync.Mutex
	delivered map[string]int
	failNext  bool
	failAll   bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{delivered: make(map[string]int)}
}

func (s *recordingSender) Deliver(_ context.Context, ch *models.AlertChannel, _ *models.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAll || s.failNext {
		s.failNext = false
		return errors.New("sender unavailable")
	}
	s.delivered[ch.Name]++
	return nil
}

func (s *recordingSender) count(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered[channel]
}

func webhookChannel(name string, filter ...models.AlertSeverity) models.AlertChannel {
	return models.AlertChannel{
		Name:           name,
		Type:           models.ChannelWebhook,
		Endpoint:       "https://hooks.example.com/" + name,
		Enabled:        true,
		SeverityFilter: filter,
	}
}

func newTestManager(sender alert.Sender, channels []models.AlertChannel, opts alert.Options) *alert.Manager {
	senders := map[models.ChannelType]alert.Sender{models.ChannelWebhook: sender}
	return alert.NewManager(channels, senders, cooldown.NewMemoryStore(), opts)
}

func mediumAlert(rule string) *models.AlertEvent {
	a := models.NewAlertEvent("oracle", models.SeverityMedium, "oracle feed degraded")
	a.Metadata["rule"] = rule
	return a
}

func TestSendAlert_DeliversToAllEligibleChannels(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{
		webhookChannel("primary"),
		webhookChannel("secondary"),
	}, alert.Options{})

	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))

	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.Equal(t, models.DeliveryDelivered, st.Status)
	}
	assert.Equal(t, 1, sender.count("primary"))
	assert.Equal(t, 1, sender.count("secondary"))
}

func TestSendAlert_CooldownSuppressesDuplicateFingerprint(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{CooldownWindow: time.Hour})

	first := mgr.SendAlert(context.Background(), mediumAlert("r1"))
	second := mgr.SendAlert(context.Background(), mediumAlert("r1"))

	require.Len(t, first, 1)
	assert.Nil(t, second, "duplicate fingerprint inside cooldown must be suppressed")
	assert.Equal(t, 1, sender.count("primary"))
}

func TestSendAlert_DeliversAgainAfterCooldownExpires(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{CooldownWindow: 30 * time.Millisecond})

	mgr.SendAlert(context.Background(), mediumAlert("r1"))
	time.Sleep(50 * time.Millisecond)
	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))

	require.Len(t, statuses, 1)
	assert.Equal(t, 2, sender.count("primary"))
}

func TestSendAlert_DifferentFingerprintsNotSuppressed(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{CooldownWindow: time.Hour})

	mgr.SendAlert(context.Background(), mediumAlert("r1"))
	statuses := mgr.SendAlert(context.Background(), mediumAlert("r2"))

	require.Len(t, statuses, 1)
	assert.Equal(t, 2, sender.count("primary"))
}

func TestSendAlert_SeverityFilterSkipsChannel(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{
		webhookChannel("paging", models.SeverityHigh, models.SeverityCritical),
		webhookChannel("firehose"), // empty filter accepts everything
	}, alert.Options{})

	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))

	require.Len(t, statuses, 1)
	assert.Equal(t, "firehose", statuses[0].Channel)
	assert.Equal(t, 0, sender.count("paging"))
	assert.Equal(t, 1, sender.count("firehose"))
}

func TestSendAlert_DisabledChannelSkipped(t *testing.T) {
	disabled := webhookChannel("off")
	disabled.Enabled = false

	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{disabled}, alert.Options{})

	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))

	assert.Empty(t, statuses)
	assert.Equal(t, 0, sender.count("off"))
}

func TestSendAlert_RateLimitedChannelSkippedNotFailed(t *testing.T) {
	limited := webhookChannel("limited")
	limited.RateLimitPerHour = 1

	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{limited}, alert.Options{})

	first := mgr.SendAlert(context.Background(), mediumAlert("r1"))
	second := mgr.SendAlert(context.Background(), mediumAlert("r2"))

	require.Len(t, first, 1)
	assert.Empty(t, second, "rate-limited channel is skipped, not queued")

	// The skip is "not attempted": it must not appear in stats as a failure.
	stats := mgr.GetDeliveryStats()
	assert.Equal(t, 1, stats.TotalAlerts)
	assert.Equal(t, 0, stats.Failed)
}

func TestSendAlert_OneChannelFailureDoesNotAffectOthers(t *testing.T) {
	failing := newRecordingSender()
	failing.failAll = true
	healthy := newRecordingSender()

	senders := map[models.ChannelType]alert.Sender{
		models.ChannelWebhook: healthy,
		models.ChannelSlack:   failing,
	}
	channels := []models.AlertChannel{
		webhookChannel("webhook-ok"),
		{Name: "slack-down", Type: models.ChannelSlack, Endpoint: "#alerts", Enabled: true},
	}
	mgr := alert.NewManager(channels, senders, cooldown.NewMemoryStore(), alert.Options{})

	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))

	require.Len(t, statuses, 2)
	byChannel := map[string]models.DeliveryState{}
	for _, st := range statuses {
		byChannel[st.Channel] = st.Status
	}
	assert.Equal(t, models.DeliveryDelivered, byChannel["webhook-ok"])
	assert.Equal(t, models.DeliveryFailed, byChannel["slack-down"])
}

func TestRetryFailedDeliveries_IncrementsAndEventuallyExhausts(t *testing.T) {
	sender := newRecordingSender()
	sender.failAll = true
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{MaxRetries: 2})

	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))
	require.Len(t, statuses, 1)
	require.Equal(t, models.DeliveryFailed, statuses[0].Status)
	require.Equal(t, uint(0), statuses[0].RetryCount)

	first := mgr.RetryFailedDeliveries(context.Background())
	require.Len(t, first, 1)
	assert.Equal(t, uint(1), first[0].RetryCount)
	assert.Equal(t, models.DeliveryFailed, first[0].Status, "below the cap the status stays failed")

	second := mgr.RetryFailedDeliveries(context.Background())
	require.Len(t, second, 1)
	assert.Equal(t, uint(2), second[0].RetryCount)
	assert.Equal(t, models.DeliveryExhausted, second[0].Status)

	third := mgr.RetryFailedDeliveries(context.Background())
	assert.Empty(t, third, "exhausted deliveries leave the retry scan")
}

func TestRetryFailedDeliveries_SuccessfulRetryDelivers(t *testing.T) {
	sender := newRecordingSender()
	sender.failNext = true
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{MaxRetries: 3})

	statuses := mgr.SendAlert(context.Background(), mediumAlert("r1"))
	require.Equal(t, models.DeliveryFailed, statuses[0].Status)

	retried := mgr.RetryFailedDeliveries(context.Background())
	require.Len(t, retried, 1)
	assert.Equal(t, models.DeliveryDelivered, retried[0].Status)
	assert.Equal(t, uint(1), retried[0].RetryCount)
}

func TestGetDeliveryStats_SuccessRate(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")}, alert.Options{})

	mgr.SendAlert(context.Background(), mediumAlert("r1"))
	mgr.SendAlert(context.Background(), mediumAlert("r2"))
	sender.failAll = true
	mgr.SendAlert(context.Background(), mediumAlert("r3"))

	stats := mgr.GetDeliveryStats()

	assert.Equal(t, 3, stats.TotalAlerts)
	assert.Equal(t, 2, stats.Delivered)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 66.67, stats.SuccessRate, 0.01)
}

func TestGetDeliveryStats_EmptyManager(t *testing.T) {
	mgr := newTestManager(newRecordingSender(), nil, alert.Options{})

	stats := mgr.GetDeliveryStats()

	assert.Equal(t, 0, stats.TotalAlerts)
	assert.Equal(t, 0.0, stats.SuccessRate)
}

func TestCleanupOldAlerts_PrunesHistoryOnly(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")}, alert.Options{})

	old := mediumAlert("r1")
	old.Timestamp = time.Now().AddDate(0, 0, -60)
	mgr.SendAlert(context.Background(), old)
	mgr.SendAlert(context.Background(), mediumAlert("r2"))

	removed := mgr.CleanupOldAlerts(30)

	assert.Equal(t, 1, removed)
	assert.Len(t, mgr.History(), 1)

	// Delivery records keep their own retention.
	assert.Equal(t, 2, mgr.GetDeliveryStats().TotalAlerts)
}

func TestSendAlert_ConcurrentDuplicatesDeliverExactlyOnce(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{CooldownWindow: time.Hour})

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			mgr.SendAlert(context.Background(), mediumAlert("r1"))
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, sender.count("primary"), "exactly one duplicate may win the cooldown reservation")
	assert.Equal(t, 1, mgr.GetDeliveryStats().TotalAlerts)
	assert.Len(t, mgr.History(), 1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*models.AlertEvent
}

func (p *recordingPublisher) PublishAlert(a *models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	return nil
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

func TestSendAlert_MirrorsAcceptedAlertsToAuditPublisher(t *testing.T) {
	sender := newRecordingSender()
	mgr := newTestManager(sender, []models.AlertChannel{webhookChannel("primary")},
		alert.Options{CooldownWindow: time.Hour})
	pub := &recordingPublisher{}
	mgr.SetAuditPublisher(pub)

	mgr.SendAlert(context.Background(), mediumAlert("r1"))
	mgr.SendAlert(context.Background(), mediumAlert("r1"))
	mgr.SendAlert(context.Background(), mediumAlert("r2"))

	assert.Equal(t, 2, pub.published(), "suppressed duplicates must not reach the audit subject")
}
