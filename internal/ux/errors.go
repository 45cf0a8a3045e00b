package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// ErrorWithSuggestion is an error printed with a recovery hint below it.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
}

func (e *ErrorWithSuggestion) Unwrap() error { return e.Err }

// NewErrorWithSuggestion returns nil for a nil err.
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{Err: err, Suggestion: suggestion}
}

var codeHints = map[errors.ErrorCode]string{
	errors.ErrCodeUnauthorized:     "Run 'finpilot auth login' to start a new session",
	errors.ErrCodeNotAuthenticated: "Run 'finpilot auth login' to start a new session",
	errors.ErrCodeNotOnboarded:     "Run 'finpilot onboarding' to complete your profile",
	errors.ErrCodeStoreRead:        "Check permissions of the state directory shown by 'finpilot config path'",
	errors.ErrCodeStoreWrite:       "Check permissions of the state directory shown by 'finpilot config path'",
	errors.ErrCodeStoreOpen:        "Check permissions of the state directory shown by 'finpilot config path'",
}

// messageHints match transport failures that carry no code. First match wins.
var messageHints = []struct {
	needles []string
	hint    string
}{
	{[]string{"connection refused", "no such host", "no route to host"},
		"Check api_base_url with 'finpilot config view' and your network connection"},
	{[]string{"context deadline exceeded", "Client.Timeout"},
		"The API did not answer in time; raise http_timeout or FINPILOT_HTTP_TIMEOUT"},
	{[]string{"certificate"},
		"The API certificate was rejected; verify api_base_url points to the right host"},
	{[]string{"permission denied"},
		"Check file permissions and ensure you have access to the required files/directories"},
}

// EnhanceError attaches a suggestion when err has a known cause. Coded
// errors that already carry suggestions are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && len(appErr.Suggestions) > 0 {
		return err
	}
	if hint, ok := codeHints[errors.CodeOf(err)]; ok {
		return NewErrorWithSuggestion(err, hint)
	}

	msg := err.Error()
	for _, h := range messageHints {
		for _, needle := range h.needles {
			if strings.Contains(msg, needle) {
				return NewErrorWithSuggestion(err, h.hint)
			}
		}
	}
	return err
}

// FormatError enhances err and prefixes it with what the command was doing.
func FormatError(err error, doing string) error {
	if err == nil {
		return nil
	}
	if doing == "" {
		return EnhanceError(err)
	}
	return fmt.Errorf("%s: %w", doing, EnhanceError(err))
}
