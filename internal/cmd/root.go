package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finpilot",
	Short: "Back-office client for suppliers and employees",
	Long: `finpilot is the command-line client of the back-office platform.
It signs you in, completes your onboarding, and manages your party profile,
bank accounts, invoices and tags.

Every command navigates to a route first. When the route needs a session or
a finished onboarding, finpilot asks for them interactively, or fails with a
hint when no terminal is attached.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: beginInvocation,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx and flushes logs, metrics
// and traces of the invocation afterwards.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	finishInvocation(err)
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.finpilot/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides api_base_url)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress informational messages")
	rootCmd.PersistentFlags().Bool("no-prompt", false, "never prompt; fail when input is missing")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
}
