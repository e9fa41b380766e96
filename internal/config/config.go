package config

import (
	"time"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Backend   BackendConfig   `yaml:"backend"`
	Prerender PrerenderConfig `yaml:"prerender"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
	Shutdown  ShutdownConfig  `yaml:"shutdown"`
	Debug     bool            `yaml:"debug"`
}

// ServerConfig defines the main HTTP listener
type ServerConfig struct {
	Address           string        `yaml:"address"` // e.g., ":8080"
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes"`
}

// AdminConfig defines the admin listener (health, stats, metrics)
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // e.g., ":9090"
}

// BackendConfig defines where non-prerendered requests are proxied to.
type BackendConfig struct {
	URL          string        `yaml:"url"` // application origin, e.g. "http://127.0.0.1:3000"
	PreserveHost bool          `yaml:"preserve_host"`
	Timeout      time.Duration `yaml:"timeout"`
}

// PrerenderConfig defines the prerender interception layer.
type PrerenderConfig struct {
	Enabled           bool                 `yaml:"enabled"`
	URL               string               `yaml:"url"`   // render service base URI
	Token             string               `yaml:"token"` // sent as X-Prerender-Token
	CrawlerUserAgents []string             `yaml:"crawler_user_agents"`
	Whitelist         []string             `yaml:"whitelist"`
	Blacklist         []string             `yaml:"blacklist"`
	SoftHTTPCodes     bool                 `yaml:"soft_http_codes"`
	Timeout           time.Duration        `yaml:"timeout"`
	CircuitBreaker    CircuitBreakerConfig `yaml:"circuit_breaker"`
	HealthCheck       HealthCheckConfig    `yaml:"health_check"`
}

// CircuitBreakerConfig defines the optional breaker around render-service fetches.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"` // consecutive failures before opening (default 5)
	Timeout          time.Duration `yaml:"timeout"`           // open-state duration (default 30s)
	MaxRequests      uint32        `yaml:"max_requests"`      // half-open probe budget (default 1)
}

// HealthCheckConfig defines periodic probing of the render service.
type HealthCheckConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Path        string        `yaml:"path"`         // probed path on the render service (default "/")
	Interval    time.Duration `yaml:"interval"`     // steady-state probe interval (default 30s)
	MaxInterval time.Duration `yaml:"max_interval"` // backoff ceiling while unhealthy (default 5m)
	Timeout     time.Duration `yaml:"timeout"`      // per-probe timeout (default 5s)
}

// TransportConfig configures the shared upstream HTTP transport
type TransportConfig struct {
	MaxIdleConns          int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout"`
	DialTimeout           time.Duration `yaml:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
	InsecureSkipVerify    bool          `yaml:"insecure_skip_verify"`
	DisableKeepAlives     bool          `yaml:"disable_keep_alives"`
}

// LoggingConfig defines logger settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty = stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	AccessLog  bool   `yaml:"access_log"`
}

// ShutdownConfig defines graceful shutdown settings.
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout"` // total shutdown timeout (default 30s)
}

// DefaultCrawlerUserAgents is the stock crawler signature list, used when
// crawler_user_agents is not configured. Matching is case-insensitive.
var DefaultCrawlerUserAgents = []string{
	"googlebot",
	"yahoo",
	"bingbot",
	"baiduspider",
	"facebookexternalhit",
	"twitterbot",
	"rogerbot",
	"linkedinbot",
	"embedly",
	"quora link preview",
	"showyoubot",
	"outbrain",
	"pinterest",
	"slackbot",
	"vkShare",
	"W3C_Validator",
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     ":8080",
			IdleTimeout: 60 * time.Second,
		},
		Admin: AdminConfig{
			Address: ":9090",
		},
		Backend: BackendConfig{
			Timeout: 30 * time.Second,
		},
		Prerender: PrerenderConfig{
			CrawlerUserAgents: DefaultCrawlerUserAgents,
			Timeout:           20 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
				MaxRequests:      1,
			},
			HealthCheck: HealthCheckConfig{
				Path:        "/",
				Interval:    30 * time.Second,
				MaxInterval: 5 * time.Minute,
				Timeout:     5 * time.Second,
			},
		},
		Transport: TransportConfig{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialTimeout:         30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			AccessLog: true,
		},
		Shutdown: ShutdownConfig{
			Timeout: 30 * time.Second,
		},
	}
}
