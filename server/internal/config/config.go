package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the ingest server configuration.
const (
	DefaultHTTPPort      = 8080
	DefaultStoreCapacity = 1000
	DefaultSourceTTL     = 5 * time.Minute
	DefaultRateWindow    = time.Minute
	DefaultWSInterval    = 5 * time.Second
	DefaultEvalInterval  = 15 * time.Second
)

// Config holds the server-side configuration parsed from the `server:`
// section of config.yaml. A `bridge:` key in the same file is ignored, so
// bridge and server can share one file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all ingest server settings.
type ServerConfig struct {
	// HTTPPort is the port the ingest, REST and WebSocket endpoints
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures client authentication for ingest and REST calls.
	Auth AuthConfig `yaml:"auth"`

	// Store controls the in-memory record retention.
	Store StoreConfig `yaml:"store"`

	// WSInterval is how often the WebSocket hub broadcasts the source
	// summary (individual records are pushed as they arrive).
	WSInterval time.Duration `yaml:"ws_interval"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StoreConfig controls in-memory record retention.
type StoreConfig struct {
	// Capacity is the number of recent records kept in the ring.
	Capacity int `yaml:"capacity"`

	// SourceTTL is how long a source stays listed after its last record.
	SourceTTL time.Duration `yaml:"source_ttl"`

	// RateWindow is the sliding window used for records-per-minute rates.
	RateWindow time.Duration `yaml:"rate_window"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	// EvalInterval is how often rules are evaluated against the store.
	// Evaluation is time-driven, not ingest-driven, so a silent source
	// still fires its silence alert.
	EvalInterval time.Duration `yaml:"eval_interval"`

	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the
	// deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over per-source traffic:
	// "silence_seconds > 60", "records_pm < 1", "records_total > 10000".
	// A source appears in the store only after its first record, so a
	// zero-count comparison never fires; use silence_seconds for absence.
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert
	// fires. Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the
	// webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path. An empty path yields
// the defaults. Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Store: StoreConfig{
				Capacity:   DefaultStoreCapacity,
				SourceTTL:  DefaultSourceTTL,
				RateWindow: DefaultRateWindow,
			},
			WSInterval: DefaultWSInterval,
			Alerts: AlertsConfig{
				EvalInterval: DefaultEvalInterval,
			},
		},
	}
}

// validate checks structural constraints.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", s.HTTPPort)
	}
	if s.Store.Capacity <= 0 {
		return fmt.Errorf("store.capacity must be positive")
	}
	if s.Store.SourceTTL <= 0 {
		return fmt.Errorf("store.source_ttl must be positive")
	}
	if s.Store.RateWindow <= 0 {
		return fmt.Errorf("store.rate_window must be positive")
	}
	if s.WSInterval <= 0 {
		return fmt.Errorf("ws_interval must be positive")
	}
	if s.Alerts.EvalInterval <= 0 {
		return fmt.Errorf("alerts.eval_interval must be positive")
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("unknown auth mode %q", s.Auth.Mode)
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "pagerduty", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
