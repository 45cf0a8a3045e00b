// Package config loads finpilot settings from defaults, an optional YAML file
// and FINPILOT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FINPILOT_"

// AuthMode selects which component is the session authority.
type AuthMode string

const (
	// AuthModeSession keeps the bearer token in the local session store.
	AuthModeSession AuthMode = "session"
	// AuthModeIdentity obtains tokens from an external identity provider.
	AuthModeIdentity AuthMode = "identity"
)

// Storage drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config is the complete client configuration.
type Config struct {
	APIBaseURL    string          `yaml:"api_base_url" json:"api_base_url" env:"API_BASE_URL"`
	CompanyID     string          `yaml:"company_id,omitempty" json:"company_id,omitempty" env:"COMPANY_ID"`
	AuthMode      AuthMode        `yaml:"auth_mode" json:"auth_mode" env:"AUTH_MODE"`
	Identity      IdentityConfig  `yaml:"identity,omitempty" json:"identity,omitempty" envPrefix:"IDENTITY_"`
	StateDir      string          `yaml:"-" json:"state_dir" env:"STATE_DIR"`
	StorageDriver string          `yaml:"storage_driver" json:"storage_driver" env:"STORAGE_DRIVER"`
	Locale        string          `yaml:"locale" json:"locale" env:"LOCALE"`
	HTTPTimeout   time.Duration   `yaml:"http_timeout" json:"http_timeout" env:"HTTP_TIMEOUT"`
	Log           LogConfig       `yaml:"log" json:"log" envPrefix:"LOG_"`
	Telemetry     TelemetryConfig `yaml:"telemetry" json:"telemetry" envPrefix:"TELEMETRY_"`
	Metrics       MetricsConfig   `yaml:"metrics" json:"metrics" envPrefix:"METRICS_"`
}

// IdentityConfig describes the external identity-provider tenant.
type IdentityConfig struct {
	Domain        string `yaml:"domain,omitempty" json:"domain,omitempty" env:"DOMAIN"`
	ClientID      string `yaml:"client_id,omitempty" json:"client_id,omitempty" env:"CLIENT_ID"`
	Audience      string `yaml:"audience,omitempty" json:"audience,omitempty" env:"AUDIENCE"`
	VerifyIDToken bool   `yaml:"verify_id_token,omitempty" json:"verify_id_token,omitempty" env:"VERIFY_ID_TOKEN"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Endpoint   string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty" env:"ENDPOINT"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig controls the Prometheus textfile dump written after each run.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty" env:"PATH"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AuthMode:      AuthModeSession,
		StorageDriver: DriverFile,
		Locale:        "es",
		HTTPTimeout:   30 * time.Second,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			SampleRate: 1.0,
		},
	}
}

// DefaultStateDir returns ~/.finpilot, or FINPILOT_STATE_DIR when set.
func DefaultStateDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "STATE_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".finpilot"), nil
}

// Path returns the config file location inside stateDir.
func Path(stateDir string) string {
	return filepath.Join(stateDir, "config.yaml")
}

// Load builds the effective configuration. A missing file is not an error.
// An empty path means config.yaml in the default state directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		dir, err := DefaultStateDir()
		if err != nil {
			return nil, err
		}
		path = Path(dir)
	}
	cfg.StateDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, fmt.Sprintf("failed to parse %s", path), err)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrap(errors.ErrCodeConfigRead, fmt.Sprintf("failed to read %s", path), err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to parse environment", err)
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}

// Save writes the file-backed part of the configuration with mode 0600.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.NewConfigInvalidError("api_base_url is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewConfigInvalidError(fmt.Sprintf("api_base_url %q is not an absolute URL", c.APIBaseURL))
	}

	switch c.AuthMode {
	case AuthModeSession:
	case AuthModeIdentity:
		var missing []string
		if c.Identity.Domain == "" {
			missing = append(missing, "identity.domain")
		}
		if c.Identity.ClientID == "" {
			missing = append(missing, "identity.client_id")
		}
		if c.Identity.Audience == "" {
			missing = append(missing, "identity.audience")
		}
		if len(missing) > 0 {
			return errors.NewConfigInvalidError(fmt.Sprintf("auth_mode identity requires %s", strings.Join(missing, ", ")))
		}
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("unknown auth_mode %q (want session or identity)", c.AuthMode))
	}

	switch c.StorageDriver {
	case DriverFile, DriverSQLite:
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("unknown storage_driver %q (want file or sqlite)", c.StorageDriver))
	}

	if c.HTTPTimeout < 0 {
		return errors.NewConfigInvalidError("http_timeout must not be negative")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewConfigInvalidError("telemetry.sample_rate must be between 0 and 1")
	}

	return nil
}

// MetricsFile returns where the metrics textfile is written.
func (c *Config) MetricsFile() string {
	if c.Metrics.Path != "" {
		return c.Metrics.Path
	}
	return filepath.Join(c.StateDir, "metrics.prom")
}
