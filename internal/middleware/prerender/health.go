package prerender

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/FlashpointBV/prerender/internal/config"
	"github.com/FlashpointBV/prerender/internal/logging"
)

// Prober periodically checks render-service health. Probe failures back off
// exponentially up to a cap; a success resets the interval.
type Prober struct {
	url     string
	client  *http.Client
	bo      *backoff.ExponentialBackOff
	healthy atomic.Bool
}

// NewProber creates a Prober from the health check config.
func NewProber(cfg config.PrerenderConfig, transport http.RoundTripper) *Prober {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.HealthCheck.Interval
	bo.MaxInterval = cfg.HealthCheck.MaxInterval
	bo.MaxElapsedTime = 0

	p := &Prober{
		url: strings.TrimSuffix(cfg.URL, "/") + cfg.HealthCheck.Path,
		client: &http.Client{
			Timeout:   cfg.HealthCheck.Timeout,
			Transport: transport,
		},
		bo: bo,
	}
	// Assume healthy until a probe says otherwise.
	p.healthy.Store(true)
	return p
}

// Healthy reports the last known render-service state.
func (p *Prober) Healthy() bool {
	return p.healthy.Load()
}

// Run probes until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	p.bo.Reset()
	for {
		wait := p.bo.InitialInterval
		if err := p.probe(ctx); err != nil {
			if p.healthy.CompareAndSwap(true, false) {
				logging.Warn("render service unhealthy",
					zap.String("url", p.url),
					zap.Error(err))
			}
			wait = p.bo.NextBackOff()
		} else {
			if p.healthy.CompareAndSwap(false, true) {
				logging.Info("render service healthy",
					zap.String("url", p.url))
			}
			p.bo.Reset()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *Prober) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}
