package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, EnvProd, cfg.Environment)
	assert.Equal(t, "https://public.bitbank.cc", cfg.Bitbank.RESTBaseURL)
	assert.Equal(t, 2*time.Second, cfg.Bitbank.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Bitbank.PollErrorInterval)
	assert.Equal(t, 10, cfg.Bitbank.PrivateRatePerMin)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	data := []byte(`
environment: dev
bitbank:
  rest_base_url: http://localhost:8080
  poll_interval: 100ms
  depth_levels: 25
telemetry:
  otlp_endpoint: http://collector:4318
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EnvDev, cfg.Environment)
	assert.Equal(t, "http://localhost:8080", cfg.Bitbank.RESTBaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Bitbank.PollInterval)
	assert.Equal(t, 25, cfg.Bitbank.DepthLevels)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.OTLPEndpoint)
	// Untouched keys keep their defaults.
	assert.Equal(t, "wss://stream.bitbank.cc", cfg.Bitbank.StreamURL)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bitbank: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_ENV", "Staging")
	t.Setenv("BITBANK_API_KEY", "key")
	t.Setenv("BITBANK_API_SECRET", "secret")
	t.Setenv("BITBANK_POLL_INTERVAL", "250ms")
	t.Setenv("BITBANK_DEPTH_LEVELS", "10")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")

	cfg := FromEnv(Default())
	assert.Equal(t, EnvStaging, cfg.Environment)
	assert.Equal(t, "key", cfg.Bitbank.Credentials.APIKey)
	assert.Equal(t, "secret", cfg.Bitbank.Credentials.APISecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Bitbank.PollInterval)
	assert.Equal(t, 10, cfg.Bitbank.DepthLevels)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.OTLPEndpoint)
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("BITBANK_POLL_INTERVAL", "soon")
	t.Setenv("BITBANK_DEPTH_LEVELS", "-3")

	cfg := FromEnv(Default())
	assert.Equal(t, 2*time.Second, cfg.Bitbank.PollInterval)
	assert.Equal(t, 0, cfg.Bitbank.DepthLevels)
}
