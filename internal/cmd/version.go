package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
	"github.com/skaznowiecki/finpilot-sanos/internal/ux"
	"github.com/skaznowiecki/finpilot-sanos/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

var versionVerbose bool

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "show detailed version information")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	info := version.GetInfo()

	return output(cmd.OutOrStdout(), cc, ux.View{
		Value: info,
		Render: func(noColor bool) string {
			if !versionVerbose {
				return "finpilot " + info.Version
			}
			styles := tui.DefaultStyles()
			if noColor {
				styles = tui.PlainStyles()
			}
			return styles.RenderFields("finpilot", []tui.Field{
				{Label: "Version", Value: info.Version},
				{Label: "Commit", Value: info.Commit},
				{Label: "Built", Value: info.Date},
				{Label: "Go", Value: info.GoVersion},
				{Label: "Platform", Value: info.Platform},
			})
		},
	})
}
