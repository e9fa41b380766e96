package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// Loader handles configuration loading and parsing
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses configuration from YAML bytes
func (l *Loader) Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := l.expandEnvVars(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal YAML into config
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match // Keep original if env var not set
	})
}

// validate checks configuration for errors. Validation failures here are
// fatal at startup; the middleware must not be installed with a broken config.
func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if err := validateHTTPURL("backend.url", cfg.Backend.URL); err != nil {
		return err
	}
	if cfg.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must be >= 0")
	}

	if cfg.Prerender.Enabled {
		if err := ValidatePrerender(cfg.Prerender); err != nil {
			return err
		}
	}

	if cfg.Admin.Enabled && cfg.Admin.Address == "" {
		return fmt.Errorf("admin.address is required when admin is enabled")
	}

	if cfg.Shutdown.Timeout < 0 {
		return fmt.Errorf("shutdown.timeout must be >= 0")
	}

	return nil
}

// ValidatePrerender checks the prerender section on its own, so reloads can
// reject a broken section without revalidating the whole file.
func ValidatePrerender(cfg PrerenderConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("prerender.url is required when prerender is enabled")
	}
	if err := validateHTTPURL("prerender.url", cfg.URL); err != nil {
		return err
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("prerender.timeout must be >= 0")
	}
	if cfg.CircuitBreaker.Enabled && cfg.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("prerender.circuit_breaker.failure_threshold must be > 0")
	}
	if cfg.HealthCheck.Enabled {
		if cfg.HealthCheck.Interval <= 0 {
			return fmt.Errorf("prerender.health_check.interval must be > 0")
		}
		if cfg.HealthCheck.MaxInterval < cfg.HealthCheck.Interval {
			return fmt.Errorf("prerender.health_check.max_interval must be >= interval")
		}
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must start with http:// or https://", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: host is required", field)
	}
	return nil
}
