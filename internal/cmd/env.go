package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/app"
	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
	"github.com/skaznowiecki/finpilot-sanos/internal/ux"
)

// extraAppOptions are appended to the options every command builds the
// application with.
var extraAppOptions []app.Option

// commandEnv is the application and output settings of one command run.
type commandEnv struct {
	cc          *CommandContext
	cfg         *config.Config
	app         *app.App
	logger      *log.Logger
	styles      tui.Styles
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

// newCommandEnv builds and initializes the application for cmd. Callers
// must Close the returned env.
func newCommandEnv(cmd *cobra.Command) (*commandEnv, error) {
	cc, cfg, err := commandConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := log.DefaultLogger()
	opts := append([]app.Option{
		app.WithLogger(logger),
		app.WithMetrics(metrics.GetDefault()),
	}, extraAppOptions...)

	a, err := app.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Initialize(cmd.Context()); err != nil {
		_ = a.Close()
		return nil, err
	}

	styles := tui.DefaultStyles()
	if cc.NoColor {
		styles = tui.PlainStyles()
	}

	return &commandEnv{
		cc:          cc,
		cfg:         cfg,
		app:         a,
		logger:      logger,
		styles:      styles,
		out:         cmd.OutOrStdout(),
		errOut:      cmd.ErrOrStderr(),
		interactive: !cc.NoPrompt && tui.ShouldPrompt(),
	}, nil
}

// commandConfig returns the flags and configuration of the running
// invocation, loading them when the command runs outside Execute.
func commandConfig(cmd *cobra.Command) (*CommandContext, *config.Config, error) {
	if inv := current; inv != nil {
		if inv.cfgErr != nil {
			return nil, nil, inv.cfgErr
		}
		return inv.cc, inv.cfg, nil
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(cc)
	if err != nil {
		return nil, nil, err
	}
	return cc, cfg, nil
}

// Close releases the application store.
func (e *commandEnv) Close() {
	if err := e.app.Close(); err != nil {
		e.logger.WithError(err).Warn("failed to close store")
	}
}

// print writes data in the selected output format.
func (e *commandEnv) print(data any) error {
	return output(e.out, e.cc, data)
}

// output writes data to w in the format cc selects.
func output(w io.Writer, cc *CommandContext, data any) error {
	f, err := ux.NewFormatter(cc.Format, &ux.FormatterOptions{Writer: w, NoColor: cc.NoColor})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// notice writes an informational line to stderr unless --quiet is set.
// Stdout stays reserved for command output.
func (e *commandEnv) notice(format string, args ...any) {
	if e.cc.Quiet {
		return
	}
	fmt.Fprintf(e.errOut, format+"\n", args...)
}
