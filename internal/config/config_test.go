package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Path(dir))
	require.NoError(t, err)

	assert.Equal(t, AuthModeSession, cfg.AuthMode)
	assert.Equal(t, DriverFile, cfg.StorageDriver)
	assert.Equal(t, "es", cfg.Locale)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, dir, cfg.StateDir)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, `
api_base_url: https://api.example.com/
company_id: c1
auth_mode: identity
identity:
  domain: tenant.auth0.com
  client_id: abc
  audience: https://api.example.com
storage_driver: sqlite
http_timeout: 5s
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "c1", cfg.CompanyID)
	assert.Equal(t, AuthModeIdentity, cfg.AuthMode)
	assert.Equal(t, "tenant.auth0.com", cfg.Identity.Domain)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "api_base_url: https://file.example.com\ncompany_id: from-file\n")

	t.Setenv("FINPILOT_API_BASE_URL", "https://env.example.com")
	t.Setenv("FINPILOT_LOG_FORMAT", "json")
	t.Setenv("FINPILOT_IDENTITY_AUDIENCE", "aud")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.APIBaseURL)
	assert.Equal(t, "from-file", cfg.CompanyID)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "aud", cfg.Identity.Audience)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "api_base_url: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigRead))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.APIBaseURL = "https://api.example.com"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid session", func(*Config) {}, false},
		{"missing base url", func(c *Config) { c.APIBaseURL = "" }, true},
		{"relative base url", func(c *Config) { c.APIBaseURL = "/api" }, true},
		{"unknown auth mode", func(c *Config) { c.AuthMode = "magic" }, true},
		{"identity without tenant", func(c *Config) { c.AuthMode = AuthModeIdentity }, true},
		{"identity complete", func(c *Config) {
			c.AuthMode = AuthModeIdentity
			c.Identity = IdentityConfig{Domain: "d", ClientID: "c", Audience: "a"}
		}, false},
		{"unknown driver", func(c *Config) { c.StorageDriver = "redis" }, true},
		{"bad sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.APIBaseURL = "https://api.example.com"
	cfg.CompanyID = "c1"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "c1", loaded.CompanyID)
	assert.Equal(t, cfg.HTTPTimeout, loaded.HTTPTimeout)
}

func TestMetricsFile(t *testing.T) {
	cfg := Default()
	cfg.StateDir = "/tmp/fp"
	assert.Equal(t, filepath.Join("/tmp/fp", "metrics.prom"), cfg.MetricsFile())

	cfg.Metrics.Path = "/var/lib/node_exporter/finpilot.prom"
	assert.Equal(t, "/var/lib/node_exporter/finpilot.prom", cfg.MetricsFile())
}
