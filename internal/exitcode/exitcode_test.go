package exitcode

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"not authenticated", errors.NewNotAuthenticatedError("/invoices"), AuthError},
		{"wrapped unauthorized", fmt.Errorf("list invoices: %w", errors.New(errors.ErrCodeUnauthorized, "401")), AuthError},
		{"validation", errors.New(errors.ErrCodeValidation, "name required"), UsageError},
		{"config", errors.NewConfigInvalidError("api_base_url is required"), UsageError},
		{"api 422", errors.New(errors.ErrCodeAPIValidation, "email is invalid"), UsageError},
		{"api transport", errors.Wrap(errors.ErrCodeAPITransport, "request failed", stderrors.New("boom")), NetworkError},
		{"api response", errors.New(errors.ErrCodeAPIResponse, "500"), APIError},
		{"not onboarded", errors.NewNotOnboardedError(), OnboardingRequired},
		{"store failure", errors.NewStoreWriteError("auth-store", stderrors.New("disk full")), GeneralError},
		{"cancelled", fmt.Errorf("prompt: %w", context.Canceled), Interrupted},
		{"deadline", context.DeadlineExceeded, NetworkError},
		{"net error", &net.OpError{Op: "dial", Err: stderrors.New("refused")}, NetworkError},
		{"cobra unknown command", stderrors.New(`unknown command "foo" for "finpilot"`), UsageError},
		{"connection refused text", stderrors.New("dial tcp: connection refused"), NetworkError},
		{"generic", stderrors.New("something else"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	codes := []int{Success, GeneralError, UsageError, OnboardingRequired, APIError, AuthError, NetworkError, Interrupted}
	for _, code := range codes {
		if desc := GetExitCodeDescription(code); desc == "Unknown error" {
			t.Errorf("code %d has no description", code)
		}
	}
	if GetExitCodeDescription(99) != "Unknown error" {
		t.Error("expected unknown description for unmapped code")
	}
}
