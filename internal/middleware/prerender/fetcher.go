package prerender

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/FlashpointBV/prerender/internal/config"
)

// tokenHeader carries the render-service authentication token.
const tokenHeader = "X-Prerender-Token"

// ErrUpstreamNotFound signals that the render service answered 404 while soft
// HTTP codes are disabled. The request terminates with a 404 immediately; it
// never falls through to the application.
var ErrUpstreamNotFound = stderrors.New("render service returned 404")

// UpstreamError is a non-2xx render-service response outside the dedicated
// 404 short-circuit. It only surfaces in debug mode.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("render service returned status %d", e.StatusCode)
}

// Fetcher builds and issues render-service requests. The redirect-following
// policy is fixed at construction time: with soft HTTP codes disabled the
// client never follows 3xx, so the Location header stays observable for the
// translator.
type Fetcher struct {
	baseURL string
	token   string
	soft    bool
	debug   bool
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewFetcher creates a Fetcher from the prerender config.
func NewFetcher(cfg config.PrerenderConfig, debug bool, transport http.RoundTripper) *Fetcher {
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
	if !cfg.SoftHTTPCodes {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	f := &Fetcher{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		token:   cfg.Token,
		soft:    cfg.SoftHTTPCodes,
		debug:   debug,
		client:  client,
	}

	if cfg.CircuitBreaker.Enabled {
		threshold := cfg.CircuitBreaker.FailureThreshold
		f.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        "prerender",
			MaxRequests: cfg.CircuitBreaker.MaxRequests,
			Timeout:     cfg.CircuitBreaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}

	return f
}

// TargetURL builds the render-service URL for an incoming request:
// base + "/" + percent-encoded "scheme://host/path". A root path collapses
// to the bare host so the encoded URL never carries a doubled slash.
func (f *Fetcher) TargetURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	path := strings.TrimPrefix(r.URL.Path, "/")
	return f.baseURL + "/" + url.QueryEscape(scheme+"://"+r.Host+"/"+path)
}

// Fetch issues the render-service request for r. The return contract:
//
//   - (resp, nil): a response for the translator.
//   - (nil, ErrUpstreamNotFound): terminate the request with a 404.
//   - (nil, err): surface the failure to the client (debug mode only).
//   - (nil, nil): no response; fall through to the normal pipeline.
//
// A 404 short-circuit requires an actual 404 response from the render
// service; a transport failure never terminates the request.
func (f *Fetcher) Fetch(ctx context.Context, r *http.Request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.TargetURL(r), nil)
	if err != nil {
		if f.debug {
			return nil, err
		}
		return nil, nil
	}
	req.Header.Set("User-Agent", r.Header.Get("User-Agent"))
	if f.token != "" {
		req.Header.Set(tokenHeader, f.token)
	}

	resp, err := f.do(req)
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			// Breaker policy outcome, not an upstream fault: fall through
			// silently even in debug mode.
			return nil, nil
		}
		if f.debug {
			return nil, err
		}
		return nil, nil
	}

	if !f.soft && resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrUpstreamNotFound
	}
	if f.errorStatus(resp.StatusCode) {
		resp.Body.Close()
		if f.debug {
			return nil, &UpstreamError{StatusCode: resp.StatusCode}
		}
		return nil, nil
	}

	return resp, nil
}

// errorStatus classifies which statuses never reach the translator. Soft mode
// passes everything below 500 through verbatim; otherwise only 2xx and the
// 3xx redirect family do.
func (f *Fetcher) errorStatus(code int) bool {
	if f.soft {
		return code >= 500
	}
	return code >= 400
}

func (f *Fetcher) do(req *http.Request) (*http.Response, error) {
	if f.breaker == nil {
		return f.client.Do(req)
	}
	return f.breaker.Execute(func() (*http.Response, error) {
		return f.client.Do(req)
	})
}
