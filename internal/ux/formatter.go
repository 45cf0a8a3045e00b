// Package ux renders command output as text, JSON or YAML and adds
// recovery suggestions to errors.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Formatter writes one command result.
type Formatter interface {
	Format(data any) error
}

// FormatterOptions configures NewFormatter. A nil Writer means stdout.
type FormatterOptions struct {
	Writer  io.Writer
	NoColor bool
	Compact bool // no indentation in JSON or YAML
}

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "yaml"}

// NewFormatter returns the formatter for format. The empty string selects
// text.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	o := FormatterOptions{Writer: os.Stdout}
	if opts != nil {
		o = *opts
		if o.Writer == nil {
			o.Writer = os.Stdout
		}
	}

	switch format {
	case "", "text":
		return textFormatter(o), nil
	case "json":
		return encoderFormatter{o, encodeJSON}, nil
	case "yaml":
		return encoderFormatter{o, encodeYAML}, nil
	}
	return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
}

// encoderFormatter writes the structured side of a Viewer, or data itself.
type encoderFormatter struct {
	opts   FormatterOptions
	encode func(w io.Writer, compact bool, v any) error
}

func (f encoderFormatter) Format(data any) error {
	if v, ok := data.(Viewer); ok {
		data = v.Data()
	}
	return f.encode(f.opts.Writer, f.opts.Compact, data)
}

func encodeJSON(w io.Writer, compact bool, v any) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, compact bool, v any) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if !compact {
		enc.SetIndent(2)
	}
	return enc.Encode(v)
}

type textFormatter FormatterOptions

// Format accepts a Viewer, a string or a fmt.Stringer.
func (f textFormatter) Format(data any) error {
	var s string
	switch v := data.(type) {
	case Viewer:
		s = v.Text(f.NoColor)
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		return fmt.Errorf("text output needs a view, a string or a fmt.Stringer, got %T", data)
	}
	_, err := fmt.Fprintln(f.Writer, s)
	return err
}

// Viewer pairs structured data with its text rendering.
type Viewer interface {
	Data() any
	Text(noColor bool) string
}

// View is a ready-made Viewer.
type View struct {
	Value  any
	Render func(noColor bool) string
}

func (v View) Data() any                { return v.Value }
func (v View) Text(noColor bool) string { return v.Render(noColor) }

// Table is tabular output. Structured formats get Source when it is set and
// otherwise the rows as header-keyed maps.
type Table struct {
	Headers []string
	Rows    [][]string
	Source  any
}

func (t Table) Data() any {
	if t.Source != nil {
		return t.Source
	}
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				m[h] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

func (t Table) Text(noColor bool) string {
	tbl := table.New().Headers(t.Headers...).Rows(t.Rows...)
	if noColor {
		return tbl.Border(lipgloss.ASCIIBorder()).String()
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return tbl.
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
