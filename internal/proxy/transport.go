package proxy

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/FlashpointBV/prerender/internal/config"
)

// TransportConfig configures the shared upstream HTTP transport.
type TransportConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	InsecureSkipVerify bool
	DisableKeepAlives  bool
}

// DefaultTransportConfig provides default transport settings.
var DefaultTransportConfig = TransportConfig{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	DialTimeout:         30 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// NewTransport creates an HTTP transport with the given configuration.
func NewTransport(cfg TransportConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		ForceAttemptHTTP2: true,
	}
}

// FromConfig applies non-zero overrides from the loaded config onto the
// defaults and builds a transport.
func FromConfig(o config.TransportConfig) *http.Transport {
	cfg := DefaultTransportConfig
	if o.MaxIdleConns > 0 {
		cfg.MaxIdleConns = o.MaxIdleConns
	}
	if o.MaxIdleConnsPerHost > 0 {
		cfg.MaxIdleConnsPerHost = o.MaxIdleConnsPerHost
	}
	if o.IdleConnTimeout > 0 {
		cfg.IdleConnTimeout = o.IdleConnTimeout
	}
	if o.DialTimeout > 0 {
		cfg.DialTimeout = o.DialTimeout
	}
	if o.TLSHandshakeTimeout > 0 {
		cfg.TLSHandshakeTimeout = o.TLSHandshakeTimeout
	}
	if o.ResponseHeaderTimeout > 0 {
		cfg.ResponseHeaderTimeout = o.ResponseHeaderTimeout
	}
	cfg.InsecureSkipVerify = o.InsecureSkipVerify
	cfg.DisableKeepAlives = o.DisableKeepAlives
	return NewTransport(cfg)
}
