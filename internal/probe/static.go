package probe

import (
	"context"
	"sync"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// StaticProbe serves externally supplied snapshots for components whose
// state arrives out of band (oracle feed stats, staking pool reports,
// treasury balances pushed by their own services). Update replaces the
// snapshot; Check returns a copy of the latest one.
type StaticProbe struct {
	name string

	mu     sync.Mutex
	latest *models.ComponentHealth
}

// NewStaticProbe creates a probe that reports unknown until the first
// Update.
func NewStaticProbe(name string) *StaticProbe {
	return &StaticProbe{name: name}
}

func (p *StaticProbe) Name() string {
	return p.name
}

// Update replaces the probe's snapshot. The component name is forced to
// the probe's own.
func (p *StaticProbe) Update(h *models.ComponentHealth) {
	cp := *h
	cp.Component = p.name

	p.mu.Lock()
	p.latest = &cp
	p.mu.Unlock()
}

func (p *StaticProbe) Check(_ context.Context) (*models.ComponentHealth, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.latest == nil {
		return models.NewComponentHealth(p.name), nil
	}

	cp := *p.latest
	return &cp, nil
}
