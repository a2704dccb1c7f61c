// Package probe samples the health of the platform's monitored components.
// Each component registers a Probe; the Runner executes them concurrently
// under a per-call timeout and guarantees a snapshot for every component
// every cycle, synthesizing a critical one when the probe itself fails.
package probe

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/metrics"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Probe checks the health of one component. Check must respect ctx
// cancellation; the runner enforces the timeout.
type Probe interface {
	Name() string
	Check(ctx context.Context) (*models.ComponentHealth, error)
}

// Runner executes registered probes and tracks per-component error counts
// and uptime across cycles.
type Runner struct {
	timeout time.Duration

	mu      sync.Mutex
	probes  []Probe
	errors  map[string]uint64
	checks  map[string]uint64
	healthy map[string]uint64
}

// NewRunner creates a Runner applying the given timeout to every probe
// call.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Runner{
		timeout: timeout,
		errors:  make(map[string]uint64),
		checks:  make(map[string]uint64),
		healthy: make(map[string]uint64),
	}
}

// Register adds a probe for a component.
func (r *Runner) Register(p Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = append(r.probes, p)
	log.Printf("Registered probe: %s", p.Name())
}

// Components returns the names of all registered probes.
func (r *Runner) Components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.probes))
	for i, p := range r.probes {
		names[i] = p.Name()
	}
	return names
}

// CheckAll probes every registered component concurrently and returns one
// snapshot per component. A probe that errors or times out yields a
// synthesized critical snapshot rather than dropping the cycle.
func (r *Runner) CheckAll(ctx context.Context) []*models.ComponentHealth {
	r.mu.Lock()
	probes := make([]Probe, len(r.probes))
	copy(probes, r.probes)
	r.mu.Unlock()

	results := make([]*models.ComponentHealth, len(probes))
	var wg sync.WaitGroup

	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = r.checkOne(ctx, p)
		}(i, p)
	}

	wg.Wait()
	return results
}

// checkOne runs a single probe under the runner timeout and folds the
// result into the per-component uptime and error accounting.
func (r *Runner) checkOne(ctx context.Context, p Probe) *models.ComponentHealth {
	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	health, err := p.Check(pctx)
	elapsed := time.Since(start)

	metrics.ProbeDuration.WithLabelValues(p.Name()).Observe(elapsed.Seconds())

	if err != nil {
		log.Printf("Probe failed: %s: %v", p.Name(), err)
		health = models.NewComponentHealth(p.Name())
		health.Status = models.StatusCritical
		health.ResponseTimeMs = uint64(elapsed.Milliseconds())
	}

	r.account(health, err == nil)
	metrics.ComponentStatus.WithLabelValues(health.Component).Set(statusValue(health.Status))
	return health
}

func (r *Runner) account(h *models.ComponentHealth, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Component
	r.checks[name]++
	if ok && h.Status != models.StatusCritical {
		r.healthy[name]++
	} else if !ok {
		r.errors[name]++
	}

	h.ErrorCount = r.errors[name]
	h.UptimePercent = float64(r.healthy[name]) / float64(r.checks[name]) * 100
}

func statusValue(s models.HealthStatus) float64 {
	switch s {
	case models.StatusHealthy:
		return 0
	case models.StatusWarning:
		return 1
	case models.StatusCritical:
		return 2
	default:
		return 3
	}
}
