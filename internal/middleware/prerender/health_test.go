package prerender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FlashpointBV/prerender/internal/config"
)

func proberConfig(renderURL string) config.PrerenderConfig {
	return config.PrerenderConfig{
		Enabled: true,
		URL:     renderURL,
		HealthCheck: config.HealthCheckConfig{
			Enabled:     true,
			Path:        "/",
			Interval:    10 * time.Millisecond,
			MaxInterval: 50 * time.Millisecond,
			Timeout:     time.Second,
		},
	}
}

func TestProberTracksHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := NewProber(proberConfig(srv.URL), nil)
	if !p.Healthy() {
		t.Fatal("prober should start healthy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor := func(want bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if p.Healthy() == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("Healthy() never became %v", want)
	}

	healthy.Store(false)
	waitFor(false)

	healthy.Store(true)
	waitFor(true)
}

func TestProberUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewProber(proberConfig(srv.URL), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !p.Healthy() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("prober should mark an unreachable service unhealthy")
}
