// Package config loads and validates the facegate YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Roster backend selectors.
const (
	BackendGateway = "gateway"
	BackendSQLite  = "sqlite"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// RosterBackend selects where employee and device records come from:
	// "gateway" (default) fetches from the HR gateway, "sqlite" reads the
	// local roster database populated with roster-import.
	RosterBackend string `yaml:"roster_backend"`

	// GatewayURL is the base URL of the HR gateway (e.g.
	// "https://hr.example.com"). Required for the gateway backend.
	GatewayURL string `yaml:"gateway_url"`

	// GatewayAPIKey authenticates against the gateway's edge functions.
	// Required for the gateway backend.
	GatewayAPIKey string `yaml:"gateway_api_key"`

	// DBPath is the SQLite roster database location for the sqlite
	// backend. Defaults to ~/.local/share/facegate/roster.db.
	DBPath string `yaml:"db_path"`

	// PhotoBaseURL resolves bare photo filenames from the roster into
	// absolute URLs the terminals can fetch. Optional; when unset, bare
	// filenames make the photo step a configuration error.
	PhotoBaseURL string `yaml:"photo_base_url"`

	// RateLimitDelay is the fixed pause between consecutive device calls.
	// Minimum 100ms, maximum 30s. Defaults to 1s if unset.
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`

	// DeviceTimeout bounds each device protocol call. Maximum 60s.
	// Defaults to 15s if unset.
	DeviceTimeout time.Duration `yaml:"device_timeout"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "facegate".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment
	// variable. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/facegate/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "facegate", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required fields are present and well-formed,
// and applies defaults.
func (c *Config) validate() error {
	if c.RosterBackend == "" {
		c.RosterBackend = BackendGateway
	}
	switch c.RosterBackend {
	case BackendGateway:
		if c.GatewayURL == "" {
			return fmt.Errorf("gateway_url is required for the gateway backend")
		}
		u, err := url.ParseRequestURI(c.GatewayURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("gateway_url %q must be a valid http or https URL", c.GatewayURL)
		}
		if c.GatewayAPIKey == "" {
			return fmt.Errorf("gateway_api_key is required for the gateway backend")
		}
	case BackendSQLite:
		// DBPath falls back to the default location at startup.
	default:
		return fmt.Errorf("roster_backend %q must be %q or %q", c.RosterBackend, BackendGateway, BackendSQLite)
	}

	if c.PhotoBaseURL != "" {
		u, err := url.ParseRequestURI(c.PhotoBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("photo_base_url %q must be a valid http or https URL", c.PhotoBaseURL)
		}
	}

	if c.RateLimitDelay == 0 {
		c.RateLimitDelay = time.Second
	}
	if c.RateLimitDelay < 100*time.Millisecond {
		return fmt.Errorf("rate_limit_delay %v is too short (minimum 100ms)", c.RateLimitDelay)
	}
	if c.RateLimitDelay > 30*time.Second {
		return fmt.Errorf("rate_limit_delay %v is too long (maximum 30s)", c.RateLimitDelay)
	}

	if c.DeviceTimeout == 0 {
		c.DeviceTimeout = 15 * time.Second
	}
	if c.DeviceTimeout < time.Second {
		return fmt.Errorf("device_timeout %v is too short (minimum 1s)", c.DeviceTimeout)
	}
	if c.DeviceTimeout > 60*time.Second {
		return fmt.Errorf("device_timeout %v is too long (maximum 60s)", c.DeviceTimeout)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
