// Package config centralises runtime configuration for the gateway.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment identifies the runtime environment.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

// Credentials captures API credentials used for authenticated requests.
type Credentials struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// BitbankSettings aggregates transport, credential, and adapter tuning for
// the bitbank integration.
type BitbankSettings struct {
	RESTBaseURL       string        `yaml:"rest_base_url"`
	PrivateBaseURL    string        `yaml:"private_base_url"`
	StreamURL         string        `yaml:"stream_url"`
	Credentials       Credentials   `yaml:"credentials"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	PollErrorInterval time.Duration `yaml:"poll_error_interval"`
	DepthLevels       int           `yaml:"depth_levels"`
	EventQueueSize    int           `yaml:"event_queue_size"`
	PrivateRatePerMin int           `yaml:"private_rate_per_min"`
	PrivateRateBurst  int           `yaml:"private_rate_burst"`
}

// TelemetrySettings configures the metrics exporter.
type TelemetrySettings struct {
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	ServiceName    string        `yaml:"service_name"`
	ExportInterval time.Duration `yaml:"export_interval"`
}

// Settings is the gateway configuration tree loaded from defaults,
// optionally a YAML file, and environment overrides.
type Settings struct {
	Environment Environment       `yaml:"environment"`
	Bitbank     BitbankSettings   `yaml:"bitbank"`
	Telemetry   TelemetrySettings `yaml:"telemetry"`
}

// Default returns the default gateway configuration.
func Default() Settings {
	return Settings{
		Environment: EnvProd,
		Bitbank: BitbankSettings{
			RESTBaseURL:       "https://public.bitbank.cc",
			PrivateBaseURL:    "https://api.bitbank.cc",
			StreamURL:         "wss://stream.bitbank.cc",
			HTTPTimeout:       10 * time.Second,
			PollInterval:      2 * time.Second,
			PollErrorInterval: 5 * time.Second,
			DepthLevels:       0,
			EventQueueSize:    256,
			PrivateRatePerMin: 10,
			PrivateRateBurst:  2,
		},
		Telemetry: TelemetrySettings{
			ServiceName:    "bitbank-gateway",
			ExportInterval: 15 * time.Second,
		},
	}
}

// Load reads a YAML configuration file over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (Settings, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads configuration from environment variables over cfg.
func FromEnv(cfg Settings) Settings {
	if v := strings.TrimSpace(os.Getenv("GATEWAY_ENV")); v != "" {
		cfg.Environment = Environment(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_REST_BASE_URL")); v != "" {
		cfg.Bitbank.RESTBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_PRIVATE_BASE_URL")); v != "" {
		cfg.Bitbank.PrivateBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_STREAM_URL")); v != "" {
		cfg.Bitbank.StreamURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_API_KEY")); v != "" {
		cfg.Bitbank.Credentials.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_API_SECRET")); v != "" {
		cfg.Bitbank.Credentials.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_HTTP_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Bitbank.HTTPTimeout = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_POLL_INTERVAL")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Bitbank.PollInterval = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("BITBANK_DEPTH_LEVELS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Bitbank.DepthLevels = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return cfg
}
