package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type doneMsg struct{ err error }

// waitModel shows a spinner until its task reports back.
type waitModel struct {
	title    string
	spinner  spinner.Model
	task     func() error
	cancel   context.CancelFunc
	done     bool
	canceled bool
	err      error
	styles   Styles
}

func newWaitModel(title string, task func() error, cancel context.CancelFunc) waitModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	styles := DefaultStyles()
	s.Style = styles.Status
	return waitModel{
		title:   title,
		spinner: s,
		task:    task,
		cancel:  cancel,
		styles:  styles,
	}
}

// Init starts the spinner and the task (required by Bubble Tea)
func (m waitModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return doneMsg{err: task()}
	})
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.canceled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the spinner line (required by Bubble Tea)
func (m waitModel) View() string {
	if m.done {
		if m.err != nil {
			return m.styles.Error.Render("✗ "+m.title) + "\n"
		}
		return m.styles.Success.Render("✓ "+m.title) + "\n"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.title)
}

// Wait runs fn while showing a spinner titled title. Without a terminal fn
// simply runs. Ctrl+C cancels the context passed to fn.
func Wait(ctx context.Context, title string, fn func(ctx context.Context) error) error {
	if !ShouldPrompt() {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newWaitModel(title, func() error { return fn(ctx) }, cancel)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if m, ok := final.(waitModel); ok && m.done {
		return m.err
	}
	if err != nil {
		return fmt.Errorf("spinner failed: %w", err)
	}
	return ctx.Err()
}
