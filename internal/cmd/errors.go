package cmd

import (
	"fmt"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// MissingInputError is returned when a required value was neither passed
// as a flag nor could be prompted for.
func MissingInputError(flag string) error {
	return errors.New(errors.ErrCodeValidation, fmt.Sprintf("--%s is required", flag)).
		WithSuggestion(fmt.Sprintf("Pass --%s, or run the command in a terminal to be prompted", flag))
}

// InvalidValueError reports a flag value outside its accepted set.
func InvalidValueError(flag string, cause error) error {
	return errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("invalid --%s", flag), cause)
}

// LocalizedError prefixes err with the user-facing message a service
// recorded for it.
func LocalizedError(msg string, err error) error {
	if msg == "" || err == nil || strings.Contains(err.Error(), msg) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// RedirectError is returned when a guard sends a command to a route it
// cannot settle on its own.
func RedirectError(requested, destination string) error {
	return errors.New(errors.ErrCodeRouteNotFound,
		fmt.Sprintf("navigation to %s was redirected to %s", requested, destination))
}
