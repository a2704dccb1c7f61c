package probe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/probe"
)

// scriptedProbe returns a fixed snapshot or error.
type scriptedProbe struct {
	name   string
	health *models.ComponentHealth
	err    error
	delay  time.Duration
}

func (p *scriptedProbe) Name() string { return p.name }

func (p *scriptedProbe) Check(ctx context.Context) (*models.ComponentHealth, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.health, nil
}

func healthySnapshot(name string) *models.ComponentHealth {
	h := models.NewComponentHealth(name)
	h.Status = models.StatusHealthy
	h.ResponseTimeMs = 10
	return h
}

func TestCheckAll_ReturnsSnapshotPerProbe(t *testing.T) {
	runner := probe.NewRunner(time.Second)
	runner.Register(&scriptedProbe{name: "oracle", health: healthySnapshot("oracle")})
	runner.Register(&scriptedProbe{name: "treasury", health: healthySnapshot("treasury")})

	results := runner.CheckAll(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, "oracle", results[0].Component)
	assert.Equal(t, "treasury", results[1].Component)
}

func TestCheckAll_SynthesizesCriticalOnProbeError(t *testing.T) {
	runner := probe.NewRunner(time.Second)
	runner.Register(&scriptedProbe{name: "staking", err: errors.New("rpc unreachable")})

	results := runner.CheckAll(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, "staking", results[0].Component)
	assert.Equal(t, models.StatusCritical, results[0].Status)
	assert.Equal(t, uint64(1), results[0].ErrorCount)
}

func TestCheckAll_SynthesizesCriticalOnTimeout(t *testing.T) {
	runner := probe.NewRunner(20 * time.Millisecond)
	runner.Register(&scriptedProbe{name: "backend", health: healthySnapshot("backend"), delay: time.Second})

	results := runner.CheckAll(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, models.StatusCritical, results[0].Status)
	assert.GreaterOrEqual(t, results[0].ResponseTimeMs, uint64(20))
}

func TestCheckAll_ErrorCountAccumulatesAcrossCycles(t *testing.T) {
	failing := &scriptedProbe{name: "auth", err: errors.New("down")}
	runner := probe.NewRunner(time.Second)
	runner.Register(failing)

	runner.CheckAll(context.Background())
	runner.CheckAll(context.Background())
	results := runner.CheckAll(context.Background())

	assert.Equal(t, uint64(3), results[0].ErrorCount)
	assert.Equal(t, 0.0, results[0].UptimePercent)
}

func TestCheckAll_UptimeReflectsHealthyShare(t *testing.T) {
	p := &scriptedProbe{name: "frontend", health: healthySnapshot("frontend")}
	runner := probe.NewRunner(time.Second)
	runner.Register(p)

	runner.CheckAll(context.Background())
	p.err = errors.New("down")
	p.health = nil
	runner.CheckAll(context.Background())
	p.err = nil
	p.health = healthySnapshot("frontend")
	results := runner.CheckAll(context.Background())

	assert.InDelta(t, 66.67, results[0].UptimePercent, 0.01)
}

func TestStaticProbe_ReportsUnknownUntilUpdated(t *testing.T) {
	sp := probe.NewStaticProbe("oracle")

	h, err := sp.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, h.Status)

	update := models.NewComponentHealth("oracle")
	update.Status = models.StatusHealthy
	update.Metrics["active_feeds"] = 3
	sp.Update(update)

	h, err = sp.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusHealthy, h.Status)
	assert.Equal(t, 3.0, h.Metrics["active_feeds"])
}
