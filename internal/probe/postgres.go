package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// PostgresProbe checks the backing datastore: connectivity via ping plus
// the active connection count from pg_stat_activity.
type PostgresProbe struct {
	name string
	pool *pgxpool.Pool
}

// NewPostgresProbe connects a pool for the named component.
func NewPostgresProbe(name, connectionString string) (*PostgresProbe, error) {
	pool, err := pgxpool.New(context.Background(), connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &PostgresProbe{name: name, pool: pool}, nil
}

func (p *PostgresProbe) Name() string {
	return p.name
}

func (p *PostgresProbe) Check(ctx context.Context) (*models.ComponentHealth, error) {
	start := time.Now()
	if err := p.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	health := models.NewComponentHealth(p.name)
	health.ResponseTimeMs = uint64(time.Since(start).Milliseconds())
	health.Status = models.StatusHealthy

	var active int32
	query := "SELECT count(*) FROM pg_stat_activity WHERE state = 'active'"
	if err := p.pool.QueryRow(ctx, query).Scan(&active); err == nil {
		health.Metrics["active_connections"] = float64(active)
	}

	stat := p.pool.Stat()
	health.Metrics["pool_total_conns"] = float64(stat.TotalConns())
	health.Metrics["pool_idle_conns"] = float64(stat.IdleConns())

	return health, nil
}

// Close releases the connection pool.
func (p *PostgresProbe) Close() {
	p.pool.Close()
}
