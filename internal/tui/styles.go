// Package tui holds the interactive terminal pieces of the CLI: prompts,
// the wait spinner and the shared lipgloss styles.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles contains lipgloss styles for terminal output
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Border  lipgloss.Style
	Code    lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Gray
			Width(14),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Code: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
	}
}

// PlainStyles renders without any decoration.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title: plain, Label: plain.Width(14), Value: plain, Status: plain, Error: plain,
		Success: plain, Warning: plain, Muted: plain, Border: plain, Code: plain,
	}
}

// Field is one labelled line of a status block.
type Field struct {
	Label string
	Value string
}

// RenderFields renders a titled block of label/value lines.
func (s Styles) RenderFields(title string, fields []Field) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(s.Title.Render(title))
		b.WriteString("\n")
	}
	for _, f := range fields {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render(f.Label), s.Value.Render(f.Value)))
		b.WriteString("\n")
	}
	return b.String()
}

// Check renders a yes/no indicator.
func (s Styles) Check(ok bool, yes, no string) string {
	if ok {
		return s.Success.Render("✓ " + yes)
	}
	return s.Warning.Render("✗ " + no)
}
