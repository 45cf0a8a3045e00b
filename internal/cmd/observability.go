package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/telemetry"
	"github.com/skaznowiecki/finpilot-sanos/internal/version"
)

// invocation is the observability state of the running command.
type invocation struct {
	name   string
	start  time.Time
	cc     *CommandContext
	cfg    *config.Config
	cfgErr error
	span   trace.Span

	telemetryCleanup func()
}

var current *invocation

// beginInvocation loads the configuration and sets up logging, metrics and
// optional telemetry before any command runs.
func beginInvocation(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	inv := &invocation{
		name:  cmd.CommandPath(),
		start: time.Now(),
		cc:    cc,
	}
	inv.cfg, inv.cfgErr = loadConfig(cc)
	if inv.cfgErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unable to load config: %v\n", inv.cfgErr)
		inv.cfg = config.Default()
	}

	setupLogging(inv.cfg, cc)
	metrics.InitDefault()
	inv.telemetryCleanup = setupTelemetry(cmd.Context(), inv.cfg)

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), inv.name)
	inv.span = span
	cmd.SetContext(ctx)

	current = inv
	return nil
}

// finishInvocation records the command outcome, writes the metrics
// textfile when enabled and flushes traces.
func finishInvocation(err error) {
	inv := current
	if inv == nil {
		return
	}
	current = nil

	if err != nil {
		telemetry.RecordError(inv.span, err)
	} else {
		telemetry.RecordSuccess(inv.span)
	}
	inv.span.End()

	metrics.GetDefault().ObserveCommand(inv.name, err == nil, time.Since(inv.start))
	if inv.cfg.Metrics.Enabled {
		writeMetrics(inv.cfg.MetricsFile())
	}

	inv.telemetryCleanup()
}

// loadConfig reads the configuration file and environment, then applies
// flag overrides.
func loadConfig(cc *CommandContext) (*config.Config, error) {
	cfg, err := config.Load(cc.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cc.APIURL != "" {
		cfg.APIBaseURL = cc.APIURL
	}
	if cc.LogLevel != "" {
		cfg.Log.Level = cc.LogLevel
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, cc *CommandContext) {
	level := log.ParseLevel(cfg.Log.Level)
	if cc.Quiet && level < log.LevelError {
		level = log.LevelError
	}

	logger := log.New(log.Config{
		Level:  level,
		Format: log.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})

	log.SetDefaultLogger(logger)
}

func setupTelemetry(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	info := version.GetInfo()
	telemCfg := telemetry.Config{
		ServiceName:    "finpilot",
		ServiceVersion: info.Version,
		Enabled:        true,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	}

	shutdown, err := telemetry.InitProvider(ctx, telemCfg)
	if err != nil {
		log.DefaultLogger().Warn("Failed to initialize telemetry", "error", err)
		return func() {}
	}

	log.DefaultLogger().Info("Telemetry enabled",
		"endpoint", telemCfg.Endpoint,
		"sample_rate", telemCfg.SampleRate,
	)

	return func() {
		if shutdown == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			log.DefaultLogger().Warn("Failed to flush telemetry", "error", err)
		}
	}
}

func writeMetrics(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		log.DefaultLogger().Warn("Failed to create metrics directory", "error", err)
		return
	}
	if err := metrics.WriteTextfile(path, metrics.Gatherer()); err != nil {
		log.DefaultLogger().Warn("Failed to write metrics", "path", path, "error", err)
	}
}
