// Package prerender intercepts crawler requests and serves pre-rendered HTML
// fetched from a render service. Requests from regular browsers, and any
// request the allow/deny lists exclude, pass through to the next handler
// untouched.
package prerender

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FlashpointBV/prerender/internal/config"
	"github.com/FlashpointBV/prerender/internal/errors"
	"github.com/FlashpointBV/prerender/internal/logging"
	"github.com/FlashpointBV/prerender/internal/middleware"
)

// Prerenderer decides per request whether to intercept, fetches the rendered
// page, and translates the render-service response for the client. Classifier
// and fetcher are replaced atomically on Reload.
type Prerenderer struct {
	debug     bool
	metrics   *Metrics
	transport http.RoundTripper

	mu         sync.RWMutex
	classifier *Classifier
	fetcher    *Fetcher
	soft       bool
}

// New creates a Prerenderer. The config must pass validation.
func New(cfg config.PrerenderConfig, debug bool, transport http.RoundTripper, reg prometheus.Registerer) (*Prerenderer, error) {
	if err := config.ValidatePrerender(cfg); err != nil {
		return nil, err
	}
	return &Prerenderer{
		debug:      debug,
		metrics:    NewMetrics(reg),
		transport:  transport,
		classifier: NewClassifier(cfg),
		fetcher:    NewFetcher(cfg, debug, transport),
		soft:       cfg.SoftHTTPCodes,
	}, nil
}

// Reload swaps in a new configuration. In-flight requests finish with the
// components they started with; metrics carry over.
func (p *Prerenderer) Reload(cfg config.PrerenderConfig) error {
	if err := config.ValidatePrerender(cfg); err != nil {
		return err
	}
	p.mu.Lock()
	p.classifier = NewClassifier(cfg)
	p.fetcher = NewFetcher(cfg, p.debug, p.transport)
	p.soft = cfg.SoftHTTPCodes
	p.mu.Unlock()
	return nil
}

func (p *Prerenderer) components() (*Classifier, *Fetcher, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.classifier, p.fetcher, p.soft
}

// Middleware returns the interception middleware.
func (p *Prerenderer) Middleware() middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			classifier, fetcher, soft := p.components()

			if !classifier.ShouldPrerender(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			resp, err := fetcher.Fetch(r.Context(), r)
			p.metrics.RecordFetch(time.Since(start))

			if err != nil {
				p.handleError(w, r, err)
				return
			}
			if resp == nil {
				p.metrics.RecordOutcome(Passthrough)
				next.ServeHTTP(w, r)
				return
			}

			out := Translate(resp, soft)
			switch out.Kind {
			case Redirect:
				p.metrics.RecordOutcome(Redirect)
				w.Header().Set("Location", out.Location)
				w.WriteHeader(out.Status)
			case Respond:
				p.metrics.RecordOutcome(Respond)
				if err := WriteRespond(w, out.Response); err != nil {
					logging.Debug("prerender response write failed",
						zap.String("request_id", middleware.GetRequestID(r)),
						zap.Error(err))
				}
			}
		})
	}
}

func (p *Prerenderer) handleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r)

	if stderrors.Is(err, ErrUpstreamNotFound) {
		p.metrics.RecordOutcome(Terminate)
		errors.ErrNotFound.WithRequestID(requestID).WriteJSON(w)
		return
	}

	// Debug mode only: surface the upstream failure instead of falling
	// through to the application.
	p.metrics.RecordOutcome(Propagate)
	logging.Warn("prerender fetch failed",
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
		zap.Error(err))

	if stderrors.Is(err, context.DeadlineExceeded) {
		errors.ErrGatewayTimeout.WithRequestID(requestID).WriteJSON(w)
		return
	}
	errors.ErrBadGateway.WithDetails(err.Error()).WithRequestID(requestID).WriteJSON(w)
}

// Stats returns prerender statistics for the admin endpoint.
func (p *Prerenderer) Stats() map[string]interface{} {
	snap := p.metrics.Snapshot()
	return map[string]interface{}{
		"checked":        snap.Checked,
		"served":         snap.Served,
		"redirects":      snap.Redirects,
		"terminations":   snap.Terminations,
		"fallthroughs":   snap.Fallthroughs,
		"errors":         snap.Errors,
		"latency_p50_ms": snap.LatencyP50.Milliseconds(),
		"latency_p95_ms": snap.LatencyP95.Milliseconds(),
		"latency_p99_ms": snap.LatencyP99.Milliseconds(),
	}
}
