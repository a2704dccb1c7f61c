// Package scheduler orchestrates the periodic monitoring cycles: probing
// component health, evaluating rules and risk, and routing the resulting
// alerts to the alert manager.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/alert"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/metrics"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/probe"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/risk"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/rules"
)

// BlockPublisher receives auto-block decisions for subjects. Publishing is
// best effort; a failed publish never aborts the cycle.
type BlockPublisher interface {
	PublishBlock(subject, reason string) error
}

// ProfileSource supplies the slow-moving account attributes the risk scorer
// needs and the event stream cannot carry.
type ProfileSource interface {
	Profile(subject string) (kycTier, accountAgeDays uint, ok bool)
}

// StaticProfiles is a ProfileSource backed by a fixed table loaded from
// configuration at startup.
type StaticProfiles map[string]models.AccountProfile

func (p StaticProfiles) Profile(subject string) (uint, uint, bool) {
	prof, ok := p[subject]
	if !ok {
		return 0, 0, false
	}
	return prof.KYCTier, prof.AccountAgeDays, true
}

// CycleReport summarizes one scheduler invocation.
type CycleReport struct {
	HealthAlerts      uint `json:"health_alerts"`
	PerformanceAlerts uint `json:"performance_alerts"`
	AlertsSent        uint `json:"alerts_sent"`
}

// Scheduler runs two independently paced cycles: a health cycle probing
// every component, and a performance cycle evaluating queued domain events
// against anomaly rules and risk scores. Cycles are gated on elapsed time,
// not slept on, so Run can be invoked as often as the caller likes.
type Scheduler struct {
	runner  *probe.Runner
	engine  *rules.Engine
	manager *alert.Manager
	window  *rules.EventWindow

	blocks   BlockPublisher
	profiles ProfileSource

	healthInterval time.Duration
	perfInterval   time.Duration

	mu         sync.Mutex
	enabled    bool
	lastHealth time.Time
	lastPerf   time.Time
	pending    []*models.DomainEvent
}

// New creates a Scheduler. blocks and profiles may be nil.
func New(runner *probe.Runner, engine *rules.Engine, manager *alert.Manager, window *rules.EventWindow,
	healthInterval, perfInterval time.Duration) *Scheduler {
	if healthInterval <= 0 {
		healthInterval = 30 * time.Second
	}
	if perfInterval <= 0 {
		perfInterval = 60 * time.Second
	}
	return &Scheduler{
		runner:         runner,
		engine:         engine,
		manager:        manager,
		window:         window,
		healthInterval: healthInterval,
		perfInterval:   perfInterval,
		enabled:        true,
	}
}

// SetBlockPublisher wires the sink for auto-block decisions.
func (s *Scheduler) SetBlockPublisher(p BlockPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = p
}

// SetProfileSource wires the account attribute source for risk scoring.
func (s *Scheduler) SetProfileSource(p ProfileSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = p
}

// SetEnabled switches monitoring on or off. When disabled, Run is a no-op.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	log.Printf("Monitoring enabled: %v", enabled)
}

// Enabled reports whether monitoring is active.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// RecordEvent queues a domain event for the next performance cycle and
// adds it to the rule evaluation window.
func (s *Scheduler) RecordEvent(ev *models.DomainEvent) {
	s.window.Add(ev)

	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
}

// Run executes whichever cycles are due at the given time and returns a
// report of the work done. A cycle whose interval has not elapsed since its
// last run is skipped entirely; when monitoring is disabled nothing runs.
func (s *Scheduler) Run(ctx context.Context, now time.Time) CycleReport {
	var report CycleReport

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return report
	}
	runHealth := now.Sub(s.lastHealth) >= s.healthInterval
	runPerf := now.Sub(s.lastPerf) >= s.perfInterval
	if runHealth {
		s.lastHealth = now
	}
	if runPerf {
		s.lastPerf = now
	}
	s.mu.Unlock()

	if runHealth {
		s.runHealthCycle(ctx, &report)
	}
	if runPerf {
		s.runPerformanceCycle(ctx, now, &report)
	}

	return report
}

// runHealthCycle probes every component and routes threshold violations to
// the alert manager. Probe failures surface as critical snapshots; nothing
// aborts the cycle.
func (s *Scheduler) runHealthCycle(ctx context.Context, report *CycleReport) {
	metrics.CyclesRun.WithLabelValues("health").Inc()

	snapshots := s.runner.CheckAll(ctx)
	for _, snap := range snapshots {
		alerts := s.engine.EvaluateHealth(snap)
		report.HealthAlerts += uint(len(alerts))
		for _, a := range alerts {
			if statuses := s.manager.SendAlert(ctx, a); len(statuses) > 0 {
				report.AlertsSent++
			}
		}
	}
}

// runPerformanceCycle drains queued domain events, evaluates anomaly rules
// and risk scores, and publishes block decisions.
func (s *Scheduler) runPerformanceCycle(ctx context.Context, now time.Time, report *CycleReport) {
	metrics.CyclesRun.WithLabelValues("performance").Inc()

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range pending {
		alerts, ruleBlock := s.engine.EvaluateEvent(ev, s.window, now)
		report.PerformanceAlerts += uint(len(alerts))
		for _, a := range alerts {
			if statuses := s.manager.SendAlert(ctx, a); len(statuses) > 0 {
				report.AlertsSent++
			}
		}

		score := risk.Score(s.factorsFor(ev.Subject, now), now)
		metrics.RiskScore.WithLabelValues(ev.Subject).Set(float64(score))

		if ruleBlock || risk.ShouldAutoBlock(ev.Type, score) {
			s.publishBlock(ev, score)
		}
	}

	// Events older than the longest useful window are dead weight.
	s.window.Prune(now.Add(-24 * time.Hour))
}

// factorsFor derives a subject's risk factors from the trailing event
// window plus its account profile when a source is wired.
func (s *Scheduler) factorsFor(subject string, now time.Time) models.RiskFactors {
	dayAgo := now.Add(-24 * time.Hour)

	factors := models.RiskFactors{
		FailedLogins:         s.countEvents(subject, dayAgo, now, models.EventLoginFailure),
		SuspiciousActivities: s.countEvents(subject, dayAgo, now, models.EventSecurityViolation, models.EventTwoFactorFailure),
		ComplianceAlerts:     s.countEvents(subject, dayAgo, now, models.EventComplianceFlag),
	}

	for _, ev := range s.window.Since(dayAgo) {
		if ev.Subject != subject {
			continue
		}
		if ev.Type == models.EventSecurityViolation || ev.Type == models.EventTwoFactorFailure {
			if ev.Timestamp.After(factors.LastSuspicious) {
				factors.LastSuspicious = ev.Timestamp
			}
		}
	}

	s.mu.Lock()
	profiles := s.profiles
	s.mu.Unlock()

	if profiles != nil {
		if kyc, age, ok := profiles.Profile(subject); ok {
			factors.KYCTier = kyc
			factors.AccountAgeDays = age
		}
	}

	return factors
}

func (s *Scheduler) countEvents(subject string, from, to time.Time, types ...models.EventType) uint {
	rule := models.AnomalyRule{EventTypes: types}
	return uint(s.window.CountMatching(&rule, subject, from, to))
}

func (s *Scheduler) publishBlock(ev *models.DomainEvent, score int) {
	s.mu.Lock()
	blocks := s.blocks
	s.mu.Unlock()

	if blocks == nil {
		log.Printf("Auto-block decision for subject %s (score %d) - no block publisher wired", ev.Subject, score)
		return
	}

	reason := string(ev.Type)
	if err := blocks.PublishBlock(ev.Subject, reason); err != nil {
		log.Printf("Warning: failed to publish block for subject %s: %v", ev.Subject, err)
		return
	}
	log.Printf("Published auto-block: subject=%s reason=%s score=%d", ev.Subject, reason, score)
}
