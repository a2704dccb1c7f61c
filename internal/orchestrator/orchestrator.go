package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/alert"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/config"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/cooldown"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/eventbus"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/probe"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/rules"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/scheduler"
)

// Orchestrator manages the monitor service lifecycle and coordinates
// probing, rule evaluation, alert delivery, and event bus wiring.
//
// Lifecycle:
//  1. Start() - Initializes store, event bus, probes, engine, manager, scheduler
//  2. Run() - Drives the scheduler and maintenance sweeps until the context ends
//  3. Stop() - Gracefully closes all connections and resources
//
// The orchestrator implements graceful degradation:
//   - NATS failure: alerts still delivered to webhook channels, but relay
//     channels (email/slack/sms) fall back to log-only delivery and no
//     domain events arrive from the bus
//   - Redis failure: cooldown and rate-limit state falls back to in-memory
//     (suppression is then per-instance, not fleet-wide)
type Orchestrator struct {
	config *config.Config

	store    cooldown.Store
	memStore *cooldown.MemoryStore

	runner  *probe.Runner
	engine  *rules.Engine
	window  *rules.EventWindow
	manager *alert.Manager
	sched   *scheduler.Scheduler

	publisher  *eventbus.Publisher
	subscriber *eventbus.Subscriber

	pgProbe *probe.PostgresProbe
	static  map[string]*probe.StaticProbe
}

// NewOrchestrator creates a new Orchestrator instance with the provided
// configuration. The orchestrator is not started until Start() is called.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		config: cfg,
		static: make(map[string]*probe.StaticProbe),
	}
}

// Start initializes all components and connections. Returns an error only
// when a required component fails; optional collaborators degrade with a
// logged warning.
func (o *Orchestrator) Start() error {
	log.Printf("Starting Monitor Orchestrator...")

	o.initializeStore()
	o.connectNATS() // Optional - warnings logged on failure

	if err := o.initializeProbes(); err != nil {
		return fmt.Errorf("failed to initialize probes: %w", err)
	}

	o.initializeEngine()
	o.initializeManager()
	o.initializeScheduler()

	if err := o.startSubscriber(); err != nil {
		log.Printf("Warning: failed to start event subscriber: %v", err)
		log.Printf("Domain events will not arrive from the bus")
	}

	log.Printf("Monitor Orchestrator started successfully")
	return nil
}

// initializeStore selects the cooldown/rate-limit store: Redis when
// configured and reachable, in-memory otherwise.
func (o *Orchestrator) initializeStore() {
	if o.config.RedisAddr != "" {
		store, err := cooldown.NewRedisStore(o.config.RedisAddr, o.config.RedisPass, o.config.RedisDB)
		if err == nil {
			o.store = store
			return
		}
		log.Printf("Warning: failed to connect to Redis: %v", err)
		log.Printf("Falling back to in-memory cooldown store (suppression is per-instance)")
	}

	o.memStore = cooldown.NewMemoryStore()
	o.store = o.memStore
}

// connectNATS establishes the event bus connections. Both are optional -
// failure logs a warning but does not prevent startup.
func (o *Orchestrator) connectNATS() {
	if o.config.NatsURL == "" {
		log.Printf("NATS URL not configured, skipping connection")
		return
	}

	log.Printf("Connecting to NATS at: %s", o.config.NatsURL)

	publisher, err := eventbus.NewPublisher(o.config.NatsURL)
	if err != nil {
		log.Printf("Warning: failed to connect NATS publisher: %v", err)
		log.Printf("Alerts will not be published to the bus; relay channels degrade to log-only")
		return
	}
	o.publisher = publisher
}

// initializeProbes registers one probe per monitored component.
func (o *Orchestrator) initializeProbes() error {
	o.runner = probe.NewRunner(o.config.ProbeTimeout)

	// Components whose state is pushed by their own services.
	for _, name := range []string{"oracle", "staking", "treasury", "auth"} {
		sp := probe.NewStaticProbe(name)
		o.static[name] = sp
		o.runner.Register(sp)
	}

	if o.config.FrontendURL != "" {
		o.runner.Register(probe.NewHTTPProbe("frontend", o.config.FrontendURL))
	}
	if o.config.BackendURL != "" {
		o.runner.Register(probe.NewHTTPProbe("backend", o.config.BackendURL))
	}

	if o.config.PostgresURL != "" {
		pg, err := probe.NewPostgresProbe("datastore", o.config.PostgresURL)
		if err != nil {
			log.Printf("Warning: failed to connect datastore probe: %v", err)
		} else {
			o.pgProbe = pg
			o.runner.Register(pg)
		}
	}

	o.runner.Register(probe.NewSystemProbe("host"))

	log.Printf("Registered %d probes: %v", len(o.runner.Components()), o.runner.Components())
	return nil
}

// initializeEngine registers the domain health checks with configured
// thresholds plus the anomaly rule set.
func (o *Orchestrator) initializeEngine() {
	o.engine = rules.NewEngine()

	oracleCheck := rules.NewOracleLatencyCheck()
	oracleCheck.SetThreshold(o.config.Thresholds.OracleMaxResponseMs)
	o.engine.RegisterCheck(oracleCheck)

	o.engine.RegisterCheck(rules.NewStakingSlashingCheck())

	treasuryCheck := rules.NewTreasuryBalanceCheck()
	treasuryCheck.SetThreshold(o.config.Thresholds.TreasuryMinBalanceUSD)
	o.engine.RegisterCheck(treasuryCheck)

	authCheck := rules.NewAuthFailureCheck()
	authCheck.SetThreshold(o.config.Thresholds.AuthMaxFailuresPerHour)
	o.engine.RegisterCheck(authCheck)

	backendCheck := rules.NewBackendLatencyCheck("backend")
	backendCheck.SetThreshold(o.config.Thresholds.BackendMaxResponseMs)
	o.engine.RegisterCheck(backendCheck)

	frontendCheck := rules.NewUptimeCheck("frontend")
	frontendCheck.SetThreshold(o.config.Thresholds.FrontendMinUptimePercent)
	o.engine.RegisterCheck(frontendCheck)

	for _, rule := range o.config.Rules {
		o.engine.RegisterRule(rule)
	}

	log.Printf("Rule engine initialized with %d checks and %d rules",
		len(o.engine.RegisteredChecks()), len(o.config.Rules))
}

// initializeManager binds a sender per channel type and creates the alert
// manager. Relay channel types go through the NATS publisher; without one
// they degrade to log-only delivery.
func (o *Orchestrator) initializeManager() {
	senders := make(map[models.ChannelType]alert.Sender)
	senders[models.ChannelWebhook] = alert.NewWebhookSender(o.config.DeliveryTimeout)

	var relay alert.Sender
	if o.publisher != nil {
		relay = o.publisher
	} else {
		relay = alert.SenderFunc(func(_ context.Context, ch *models.AlertChannel, a *models.AlertEvent) error {
			log.Printf("ALERT (%s via %s): [%s] %s", ch.Name, ch.Type, a.Severity, a.Message)
			return nil
		})
	}
	senders[models.ChannelEmail] = relay
	senders[models.ChannelSlack] = relay
	senders[models.ChannelSMS] = relay

	o.manager = alert.NewManager(o.config.Channels, senders, o.store, alert.Options{
		CooldownWindow:  o.config.CooldownWindow,
		MaxRetries:      o.config.MaxRetries,
		DeliveryTimeout: o.config.DeliveryTimeout,
	})

	if o.publisher != nil {
		o.manager.SetAuditPublisher(o.publisher)
	}
}

func (o *Orchestrator) initializeScheduler() {
	o.window = rules.NewEventWindow(0)
	o.sched = scheduler.New(o.runner, o.engine, o.manager, o.window,
		o.config.HealthCheckInterval, o.config.PerformanceCheckInterval)
	o.sched.SetEnabled(o.config.MonitoringEnabled)
	if o.publisher != nil {
		o.sched.SetBlockPublisher(o.publisher)
	}
	if len(o.config.Profiles) > 0 {
		o.sched.SetProfileSource(scheduler.StaticProfiles(o.config.Profiles))
	}
}

// startSubscriber wires domain events and manual alert triggers from the
// bus into the scheduler and alert manager.
func (o *Orchestrator) startSubscriber() error {
	if o.config.NatsURL == "" || o.publisher == nil {
		return nil
	}

	subscriber, err := eventbus.NewSubscriber(o.config.NatsURL, o.sched, o, o)
	if err != nil {
		return err
	}
	if err := subscriber.Start(); err != nil {
		subscriber.Close()
		return err
	}

	o.subscriber = subscriber
	return nil
}

// InjectAlert delivers a literal alert event, bypassing rule evaluation.
// Used by operator-triggered pages arriving over the bus.
func (o *Orchestrator) InjectAlert(a *models.AlertEvent) {
	o.manager.SendAlert(context.Background(), a)
}

// UpdateComponent replaces the pushed snapshot for a static component
// (oracle, staking, treasury, auth). Snapshots arrive on the component
// health subject from the services themselves.
func (o *Orchestrator) UpdateComponent(h *models.ComponentHealth) error {
	sp, ok := o.static[h.Component]
	if !ok {
		return fmt.Errorf("no static probe for component %q", h.Component)
	}
	sp.Update(h)
	return nil
}

// Scheduler exposes the scheduler for callers that drive cycles manually.
func (o *Orchestrator) Scheduler() *scheduler.Scheduler {
	return o.sched
}

// Manager exposes the alert manager for manual triggers and stats readers.
func (o *Orchestrator) Manager() *alert.Manager {
	return o.manager
}

// Run drives the scheduler and periodic maintenance sweeps until the
// context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Printf("Monitor running - health every %s, performance every %s",
		o.config.HealthCheckInterval, o.config.PerformanceCheckInterval)

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	retryTick := time.NewTicker(time.Minute)
	defer retryTick.Stop()

	cleanupTick := time.NewTicker(time.Hour)
	defer cleanupTick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutdown signal received")
			return ctx.Err()

		case now := <-tick.C:
			report := o.sched.Run(ctx, now)
			if report.HealthAlerts > 0 || report.PerformanceAlerts > 0 {
				log.Printf("Cycle report: health=%d performance=%d sent=%d",
					report.HealthAlerts, report.PerformanceAlerts, report.AlertsSent)
			}

		case <-retryTick.C:
			if retried := o.manager.RetryFailedDeliveries(ctx); len(retried) > 0 {
				log.Printf("Retried %d failed deliveries", len(retried))
			}

		case <-cleanupTick.C:
			o.manager.CleanupOldAlerts(o.config.RetentionDays)
			if o.memStore != nil {
				o.memStore.Cleanup(time.Now().Add(-24 * time.Hour))
			}
		}
	}
}

// Stop gracefully closes all connections and releases resources.
func (o *Orchestrator) Stop() error {
	log.Printf("Stopping Orchestrator...")

	if o.subscriber != nil {
		o.subscriber.Close()
	}

	if o.publisher != nil {
		o.publisher.Close()
	}

	if o.pgProbe != nil {
		o.pgProbe.Close()
	}

	if o.store != nil {
		if err := o.store.Close(); err != nil {
			log.Printf("Error closing cooldown store: %v", err)
		}
	}

	log.Printf("Orchestrator stopped successfully")
	return nil
}
