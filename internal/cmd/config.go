package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit finpilot configuration",
	Long: `Manage the configuration stored at ~/.finpilot/config.yaml (or
$FINPILOT_STATE_DIR/config.yaml).

FINPILOT_* environment variables override the file, and the --api-url and
--log-level flags override both.

Examples:
  # Point the client at an API
  finpilot config set api_base_url https://api.example.com

  # View the effective configuration
  finpilot config view

  # Edit the file in $EDITOR
  finpilot config edit

  # Show the file path
  finpilot config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Get one configuration value",
	Long:      `Print one value of the effective configuration using dot notation (e.g., log.level).`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: configKeys,
	RunE:      runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set one configuration value",
	Long:      `Set one value in the configuration file using dot notation (e.g., telemetry.enabled true).`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: configKeys,
	RunE:      runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configForce bool

// configKeys are the keys get and set understand.
var configKeys = []string{
	"api_base_url",
	"company_id",
	"auth_mode",
	"identity.domain",
	"identity.client_id",
	"identity.audience",
	"identity.verify_id_token",
	"storage_driver",
	"locale",
	"http_timeout",
	"log.level",
	"log.format",
	"telemetry.enabled",
	"telemetry.endpoint",
	"telemetry.sample_rate",
	"metrics.enabled",
	"metrics.path",
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

// configFilePath returns --config or the default location.
func configFilePath(cc *CommandContext) (string, error) {
	if cc.ConfigPath != "" {
		return cc.ConfigPath, nil
	}
	dir, err := config.DefaultStateDir()
	if err != nil {
		return "", err
	}
	return config.Path(dir), nil
}

// readConfigFile reads only the file, without environment overrides, so
// that saving it back does not persist them.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigRead, fmt.Sprintf("failed to read %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigRead, fmt.Sprintf("failed to parse %s", path), err)
	}
	return cfg, nil
}

func runConfigView(cmd *cobra.Command, _ []string) error {
	cc, cfg, err := commandConfig(cmd)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}
	path, err := configFilePath(cc)
	if err != nil {
		return err
	}

	if !cc.Quiet && cc.Format == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n", path)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	return output(cmd.OutOrStdout(), cc, ux.View{
		Value: cfg,
		Render: func(bool) string {
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err.Error()
			}
			return strings.TrimRight(string(data), "\n")
		},
	})
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := configFilePath(cc)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s already exists", path)).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.Default()
	cfg.APIBaseURL = cc.APIURL
	if err := cfg.Save(path); err != nil {
		return ux.FormatError(err, "saving configuration")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	if cfg.APIBaseURL == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Next: finpilot config set api_base_url <url>")
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := configFilePath(cc)
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}

	// Ensure config exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Default().Save(path); err != nil {
			return ux.FormatError(err, "creating configuration")
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.CommandContext(cmd.Context(), editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	// Validate the edited config
	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Configuration may contain errors: %v\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Please check and fix the configuration file.\n")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	_, cfg, err := commandConfig(cmd)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := configFilePath(cc)
	if err != nil {
		return err
	}

	cfg, err := readConfigFile(path)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return ux.FormatError(err, "saving configuration")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	// Related keys may still be missing, so an invalid result is saved anyway.
	if err := cfg.Validate(); err != nil && !cc.Quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := configFilePath(cc)
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func unknownKeyError(key string) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown configuration key: %s", key)).
		WithSuggestion("Known keys: " + strings.Join(configKeys, ", "))
}

// getConfigValue reads a value using dot notation.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "api_base_url":
		return cfg.APIBaseURL, nil
	case "company_id":
		return cfg.CompanyID, nil
	case "auth_mode":
		return string(cfg.AuthMode), nil
	case "identity.domain":
		return cfg.Identity.Domain, nil
	case "identity.client_id":
		return cfg.Identity.ClientID, nil
	case "identity.audience":
		return cfg.Identity.Audience, nil
	case "identity.verify_id_token":
		return strconv.FormatBool(cfg.Identity.VerifyIDToken), nil
	case "storage_driver":
		return cfg.StorageDriver, nil
	case "locale":
		return cfg.Locale, nil
	case "http_timeout":
		return cfg.HTTPTimeout.String(), nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.format":
		return cfg.Log.Format, nil
	case "telemetry.enabled":
		return strconv.FormatBool(cfg.Telemetry.Enabled), nil
	case "telemetry.endpoint":
		return cfg.Telemetry.Endpoint, nil
	case "telemetry.sample_rate":
		return strconv.FormatFloat(cfg.Telemetry.SampleRate, 'f', -1, 64), nil
	case "metrics.enabled":
		return strconv.FormatBool(cfg.Metrics.Enabled), nil
	case "metrics.path":
		return cfg.Metrics.Path, nil
	default:
		return "", unknownKeyError(key)
	}
}

// setConfigValue writes a value using dot notation, parsing it for the
// key's type.
func setConfigValue(cfg *config.Config, key, value string) error {
	invalid := func(err error) error {
		return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value for %s", key), err)
	}

	switch key {
	case "api_base_url":
		cfg.APIBaseURL = strings.TrimRight(value, "/")
	case "company_id":
		cfg.CompanyID = value
	case "auth_mode":
		cfg.AuthMode = config.AuthMode(value)
	case "identity.domain":
		cfg.Identity.Domain = value
	case "identity.client_id":
		cfg.Identity.ClientID = value
	case "identity.audience":
		cfg.Identity.Audience = value
	case "identity.verify_id_token":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid(err)
		}
		cfg.Identity.VerifyIDToken = b
	case "storage_driver":
		cfg.StorageDriver = value
	case "locale":
		cfg.Locale = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return invalid(err)
		}
		cfg.HTTPTimeout = d
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "telemetry.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid(err)
		}
		cfg.Telemetry.Enabled = b
	case "telemetry.endpoint":
		cfg.Telemetry.Endpoint = value
	case "telemetry.sample_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid(err)
		}
		cfg.Telemetry.SampleRate = f
	case "metrics.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid(err)
		}
		cfg.Metrics.Enabled = b
	case "metrics.path":
		cfg.Metrics.Path = value
	default:
		return unknownKeyError(key)
	}
	return nil
}
