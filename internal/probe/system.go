package probe

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// SystemProbe reports host resource usage for the node the backend runs
// on. High CPU or memory pressure degrades the snapshot to warning or
// critical.
type SystemProbe struct {
	name           string
	warnCPUPercent float64
	critMemPercent float64
}

// NewSystemProbe creates a host resource probe for the named component.
func NewSystemProbe(name string) *SystemProbe {
	return &SystemProbe{
		name:           name,
		warnCPUPercent: 85.0,
		critMemPercent: 95.0,
	}
}

func (p *SystemProbe) Name() string {
	return p.name
}

func (p *SystemProbe) Check(ctx context.Context) (*models.ComponentHealth, error) {
	health := models.NewComponentHealth(p.name)
	health.Status = models.StatusHealthy

	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err == nil && len(cpuPercent) > 0 {
		health.Metrics["cpu_usage_percent"] = cpuPercent[0]
		if cpuPercent[0] > p.warnCPUPercent {
			health.Status = models.StatusWarning
		}
	}

	memStats, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		health.Metrics["memory_usage_percent"] = memStats.UsedPercent
		health.Metrics["memory_used_bytes"] = float64(memStats.Used)
		health.Metrics["memory_total_bytes"] = float64(memStats.Total)
		if memStats.UsedPercent > p.critMemPercent {
			health.Status = models.StatusCritical
		}
	}

	loadStats, err := load.AvgWithContext(ctx)
	if err == nil {
		health.Metrics["load_1m"] = loadStats.Load1
		health.Metrics["load_5m"] = loadStats.Load5
		health.Metrics["load_15m"] = loadStats.Load15
	}

	return health, nil
}
