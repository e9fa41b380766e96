// Package proxy forwards requests that were not intercepted to the
// application origin.
package proxy

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/FlashpointBV/prerender/internal/config"
	"github.com/FlashpointBV/prerender/internal/errors"
	"github.com/FlashpointBV/prerender/internal/logging"
	"github.com/FlashpointBV/prerender/internal/middleware"
)

// hopHeaders are connection-scoped and stripped in both directions.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards requests to the application origin.
type Proxy struct {
	target       *url.URL
	client       *http.Client
	preserveHost bool
}

// New creates a Proxy for the configured backend.
func New(cfg config.BackendConfig, transport http.RoundTripper) (*Proxy, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}

	return &Proxy{
		target: target,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		preserveHost: cfg.PreserveHost,
	}, nil
}

// ServeHTTP forwards the request and copies the origin response verbatim.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := p.buildRequest(r)
	if err != nil {
		errors.ErrInternalServer.WithRequestID(middleware.GetRequestID(r)).WriteJSON(w)
		return
	}

	resp, err := p.client.Do(out)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	header := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		header.Del(h)
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Debug("backend response copy failed",
			zap.String("request_id", middleware.GetRequestID(r)),
			zap.Error(err))
	}
}

func (p *Proxy) buildRequest(r *http.Request) (*http.Request, error) {
	u := *p.target
	u.Path = singleJoin(p.target.Path, r.URL.Path)
	u.RawQuery = r.URL.RawQuery

	out, err := http.NewRequestWithContext(r.Context(), r.Method, u.String(), r.Body)
	if err != nil {
		return nil, err
	}
	out.ContentLength = r.ContentLength

	for k, vv := range r.Header {
		for _, v := range vv {
			out.Header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		prior := out.Header.Get("X-Forwarded-For")
		if prior != "" {
			host = prior + ", " + host
		}
		out.Header.Set("X-Forwarded-For", host)
	}
	if out.Header.Get("X-Forwarded-Proto") == "" {
		proto := "http"
		if r.TLS != nil {
			proto = "https"
		}
		out.Header.Set("X-Forwarded-Proto", proto)
	}
	if out.Header.Get("X-Forwarded-Host") == "" {
		out.Header.Set("X-Forwarded-Host", r.Host)
	}

	if p.preserveHost {
		out.Host = r.Host
	}

	return out, nil
}

func (p *Proxy) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r)
	logging.Error("backend request failed",
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
		zap.Error(err))

	if stderrors.Is(err, context.DeadlineExceeded) {
		errors.ErrGatewayTimeout.WithRequestID(requestID).WriteJSON(w)
		return
	}
	errors.ErrBadGateway.WithRequestID(requestID).WriteJSON(w)
}

func singleJoin(a, b string) string {
	switch {
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	}
	return a + b
}
