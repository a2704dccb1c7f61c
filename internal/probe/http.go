package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// HTTPProbe checks a component exposing an HTTP health endpoint, such as
// the frontend or an API backend. Latency is measured around the full
// request.
type HTTPProbe struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewHTTPProbe creates a probe for the named component at the given
// endpoint.
func NewHTTPProbe(name, endpoint string) *HTTPProbe {
	return &HTTPProbe{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (p *HTTPProbe) Name() string {
	return p.name
}

func (p *HTTPProbe) Check(ctx context.Context) (*models.ComponentHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	health := models.NewComponentHealth(p.name)
	health.ResponseTimeMs = uint64(elapsed.Milliseconds())
	health.Metrics["http_status"] = float64(resp.StatusCode)

	switch {
	case resp.StatusCode >= 500:
		health.Status = models.StatusCritical
	case resp.StatusCode >= 400:
		health.Status = models.StatusWarning
	default:
		health.Status = models.StatusHealthy
	}

	return health, nil
}
