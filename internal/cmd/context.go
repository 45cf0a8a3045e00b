package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skaznowiecki/finpilot-sanos/internal/ux"
)

// CommandContext holds the persistent flags of one invocation. They are
// read back from cobra on every run so repeated executions in one process
// never share state.
type CommandContext struct {
	Format   string
	NoColor  bool
	Quiet    bool
	NoPrompt bool

	ConfigPath string
	APIURL     string
	LogLevel   string
}

// NewCommandContext reads the persistent flags of cmd and rejects an
// unknown --format.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	r := flagReader{flags: cmd.Flags()}
	cc := &CommandContext{
		Format:     r.str("format"),
		NoColor:    r.boolean("no-color"),
		Quiet:      r.boolean("quiet"),
		NoPrompt:   r.boolean("no-prompt"),
		ConfigPath: r.str("config"),
		APIURL:     r.str("api-url"),
		LogLevel:   r.str("log-level"),
	}
	if r.err != nil {
		return nil, r.err
	}
	if !slices.Contains(ux.Formats, cc.Format) {
		return nil, fmt.Errorf("unknown format %q (supported: text, json, yaml)", cc.Format)
	}
	return cc, nil
}

// flagReader keeps the first lookup error so the reads above stay flat.
type flagReader struct {
	flags *pflag.FlagSet
	err   error
}

func (r *flagReader) str(name string) string {
	v, err := r.flags.GetString(name)
	r.keep(err)
	return v
}

func (r *flagReader) boolean(name string) bool {
	v, err := r.flags.GetBool(name)
	r.keep(err)
	return v
}

func (r *flagReader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}
