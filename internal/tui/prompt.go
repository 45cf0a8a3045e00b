package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompt configures a single-line input.
type Prompt struct {
	Message     string
	Default     string
	Placeholder string
	Required    bool
	Secret      bool // hide typed characters
	Validate    func(string) error
}

// Option is a labelled choice of a select prompt.
type Option struct {
	Label string
	Value string
}

// Credentials are an email and password pair.
type Credentials struct {
	Email    string
	Password string
}

func run(title string, fields ...huh.Field) error {
	group := huh.NewGroup(fields...)
	if title != "" {
		group = group.Title(title)
	}
	if err := huh.NewForm(group).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (p Prompt) check(s string) error {
	if p.Required && strings.TrimSpace(s) == "" {
		return errors.New("value is required")
	}
	if p.Validate != nil {
		return p.Validate(s)
	}
	return nil
}

// PromptForString asks for one value.
func PromptForString(p Prompt) (string, error) {
	value := p.Default
	input := huh.NewInput().
		Title(p.Message).
		Placeholder(p.Placeholder).
		Value(&value).
		Validate(p.check)
	if p.Secret {
		input = input.EchoMode(huh.EchoModePassword)
	}

	if err := run("", input); err != nil {
		return "", err
	}
	return value, nil
}

func PromptForPassword(message string) (string, error) {
	return PromptForString(Prompt{Message: message, Required: true, Secret: true})
}

// PromptForCredentials asks for an email and password on one form. email
// pre-fills the first field.
func PromptForCredentials(title, email string) (Credentials, error) {
	creds := Credentials{Email: email}

	err := run(title,
		huh.NewInput().Title("Email").Value(&creds.Email).Validate(func(s string) error {
			if !strings.Contains(s, "@") {
				return errors.New("enter a valid email")
			}
			return nil
		}),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&creds.Password).
			Validate(Prompt{Required: true}.check),
	)
	if err != nil {
		return Credentials{}, err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	return creds, nil
}

func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue
	if err := run("", huh.NewConfirm().Title(message).Value(&confirmed)); err != nil {
		return false, err
	}
	return confirmed, nil
}

// PromptForSelect returns the Value of the chosen option. The first option
// is preselected.
func PromptForSelect(message string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options provided")
	}

	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	selected := options[0].Value
	if err := run("", huh.NewSelect[string]().Title(message).Options(opts...).Value(&selected)); err != nil {
		return "", err
	}
	return selected, nil
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// noPromptEnv disables prompts when any of them is set.
var noPromptEnv = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE", "FINPILOT_NO_PROMPT"}

// ShouldPrompt reports whether commands may ask for missing input.
func ShouldPrompt() bool {
	for _, name := range noPromptEnv {
		if os.Getenv(name) != "" {
			return false
		}
	}
	return IsInteractive()
}
