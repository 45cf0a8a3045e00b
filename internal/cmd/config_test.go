package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.APIBaseURL = "https://api.example.com"

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "api_base_url", want: "https://api.example.com"},
		{key: "auth_mode", want: "session"},
		{key: "storage_driver", want: "file"},
		{key: "locale", want: "es"},
		{key: "http_timeout", want: "30s"},
		{key: "log.level", want: "warn"},
		{key: "log.format", want: "text"},
		{key: "telemetry.enabled", want: "false"},
		{key: "telemetry.sample_rate", want: "1"},
		{key: "metrics.enabled", want: "false"},
		{key: "identity.verify_id_token", want: "false"},
		{key: "providers.default", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := getConfigValue(cfg, tt.key)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, setConfigValue(cfg, "api_base_url", "https://api.example.com/"))
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)

	require.NoError(t, setConfigValue(cfg, "http_timeout", "45s"))
	assert.Equal(t, 45*time.Second, cfg.HTTPTimeout)

	require.NoError(t, setConfigValue(cfg, "telemetry.sample_rate", "0.25"))
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRate, 1e-9)

	require.NoError(t, setConfigValue(cfg, "metrics.enabled", "true"))
	assert.True(t, cfg.Metrics.Enabled)

	for key, value := range map[string]string{
		"http_timeout":          "soon",
		"telemetry.enabled":     "maybe",
		"telemetry.sample_rate": "half",
		"nope":                  "x",
	} {
		err := setConfigValue(cfg, key, value)
		assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid), key)
	}
}

func TestConfigKeysRoundTrip(t *testing.T) {
	cfg := config.Default()
	for _, key := range configKeys {
		_, err := getConfigValue(cfg, key)
		assert.NoError(t, err, key)
	}
}

func TestConfigSetWritesOnlyTheFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FINPILOT_STATE_DIR", dir)
	t.Setenv("FINPILOT_LOCALE", "en")

	_, _, err := runCLI(t, "config", "set", "log.level", "debug")
	require.NoError(t, err)

	out, _, err := runCLI(t, "config", "get", "log.level")
	require.NoError(t, err)
	assert.Equal(t, "debug", strings.TrimSpace(out))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "level: debug")
	assert.Contains(t, string(data), "locale: es")
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FINPILOT_STATE_DIR", dir)

	out, _, err := runCLI(t, "config", "init", "--api-url", "https://api.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "config.yaml"))

	_, _, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))

	_, _, err = runCLI(t, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigPathHonorsFlag(t *testing.T) {
	t.Setenv("FINPILOT_STATE_DIR", t.TempDir())
	custom := filepath.Join(t.TempDir(), "custom.yaml")

	out, _, err := runCLI(t, "config", "path", "--config", custom)
	require.NoError(t, err)
	assert.Equal(t, custom, strings.TrimSpace(out))
}

func TestConfigViewJSON(t *testing.T) {
	t.Setenv("FINPILOT_STATE_DIR", t.TempDir())
	t.Setenv("FINPILOT_API_BASE_URL", "https://api.example.com")

	out, _, err := runCLI(t, "config", "view", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"api_base_url": "https://api.example.com"`)
}
