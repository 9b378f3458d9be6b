package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when settings are absent from both the config file
// and the environment.
const (
	DefaultDevice         = "auto"
	DefaultBaudRate       = 9600
	DefaultEndpoint       = "http://localhost:8080/api/v1/ingest"
	DefaultDelimiter      = "\n"
	DefaultReconnectDelay = 5 * time.Second
	DefaultPostTimeout    = 5 * time.Second
	DefaultMaxPostRetries = 3
)

// Config is the top-level bridge configuration. Loaded once at startup,
// owned by main, read-only thereafter.
type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

// BridgeConfig holds all bridge settings.
type BridgeConfig struct {
	// Device is the serial port path, or "auto" to discover one.
	// Env: SERIAL_DEVICE.
	Device string `yaml:"device"`

	// BaudRate is the serial line speed. Env: SERIAL_BAUD.
	BaudRate int `yaml:"baud_rate"`

	// Endpoint is the ingest URL records are POSTed to. Env: INGEST_ENDPOINT.
	Endpoint string `yaml:"endpoint"`

	// Delimiter terminates one record on the wire. Supports the escapes
	// \n, \r and \t. Env: LINE_DELIMITER.
	Delimiter string `yaml:"delimiter"`

	// ReconnectDelay is the fixed wait between serial connection attempts.
	// Env: RECONNECT_DELAY.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// PostTimeout bounds each delivery attempt and is the backoff base unit.
	// Env: POST_TIMEOUT.
	PostTimeout time.Duration `yaml:"post_timeout"`

	// MaxPostRetries is the delivery budget after the first attempt.
	// Env: MAX_POST_RETRIES.
	MaxPostRetries int `yaml:"max_post_retries"`

	// Auth configures how the bridge authenticates to the ingest endpoint.
	Auth AuthConfig `yaml:"auth"`

	// MetricsAddr, when set, serves /metrics and /healthz on this address.
	// Env: METRICS_ADDR.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AuthConfig carries the optional ingest API key. The key value itself lives
// in the environment, never in the file.
type AuthConfig struct {
	// Header is the HTTP header the key is sent in. Defaults to "x-api-key".
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment, or "".
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

// Load builds the configuration: defaults, the YAML file at path (skipped
// when path is empty), then environment overrides. Any malformed setting is
// returned as an error — misconfiguration is fatal at startup and only at
// startup.
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

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Device:         DefaultDevice,
			BaudRate:       DefaultBaudRate,
			Endpoint:       DefaultEndpoint,
			Delimiter:      DefaultDelimiter,
			ReconnectDelay: DefaultReconnectDelay,
			PostTimeout:    DefaultPostTimeout,
			MaxPostRetries: DefaultMaxPostRetries,
		},
	}
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	b := &cfg.Bridge

	if v, ok := os.LookupEnv("SERIAL_DEVICE"); ok {
		b.Device = v
	}
	if v, ok := os.LookupEnv("SERIAL_BAUD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERIAL_BAUD: %w", err)
		}
		b.BaudRate = n
	}
	if v, ok := os.LookupEnv("INGEST_ENDPOINT"); ok {
		b.Endpoint = v
	}
	if v, ok := os.LookupEnv("LINE_DELIMITER"); ok {
		b.Delimiter = unescapeDelimiter(v)
	}
	if v, ok := os.LookupEnv("RECONNECT_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RECONNECT_DELAY: %w", err)
		}
		b.ReconnectDelay = d
	}
	if v, ok := os.LookupEnv("POST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POST_TIMEOUT: %w", err)
		}
		b.PostTimeout = d
	}
	if v, ok := os.LookupEnv("MAX_POST_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_POST_RETRIES: %w", err)
		}
		b.MaxPostRetries = n
	}
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		b.MetricsAddr = v
	}
	return nil
}

// unescapeDelimiter turns the literal sequences \n, \r and \t into their
// control characters, since shells make it awkward to export real ones.
func unescapeDelimiter(s string) string {
	r := strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	b := cfg.Bridge

	if b.Device == "" {
		return fmt.Errorf("device is required (path or %q)", DefaultDevice)
	}
	if b.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", b.BaudRate)
	}
	u, err := url.Parse(b.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint must be an http(s) URL, got %q", b.Endpoint)
	}
	if b.Delimiter == "" {
		return fmt.Errorf("delimiter must not be empty")
	}
	if b.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive")
	}
	if b.PostTimeout <= 0 {
		return fmt.Errorf("post_timeout must be positive")
	}
	if b.MaxPostRetries < 0 {
		return fmt.Errorf("max_post_retries must not be negative")
	}
	return nil
}
