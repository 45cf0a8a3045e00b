package exitcode

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// Process exit codes. Scripts can tell a missing login (5) apart from
// pending onboarding (3).
const (
	Success            = 0
	GeneralError       = 1
	UsageError         = 2 // bad flags or rejected input
	OnboardingRequired = 3
	APIError           = 4
	AuthError          = 5
	NetworkError       = 6
	Interrupted        = 130
)

func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with DetermineExitCode(err).
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded errors are mapped by category; anything else falls back to
// inspecting the error chain and finally its message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	if code := errors.CodeOf(err); code != "" {
		return fromCode(code)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) || stderrors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "unknown command") || strings.Contains(errMsg, "unknown flag") ||
		strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts ") {
		return UsageError
	}
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NetworkError
	}

	return GeneralError
}

func fromCode(code errors.ErrorCode) int {
	switch category := strings.SplitN(string(code), "-", 2)[0]; category {
	case "AUTH":
		return AuthError
	case "VALIDATION", "CONFIG":
		return UsageError
	case "ONBOARD":
		return OnboardingRequired
	case "API":
		if code == errors.ErrCodeAPITransport {
			return NetworkError
		}
		if code == errors.ErrCodeAPIValidation {
			return UsageError
		}
		return APIError
	default:
		return GeneralError
	}
}

var descriptions = map[int]string{
	Success:            "Success",
	GeneralError:       "General error",
	UsageError:         "Usage or validation error",
	OnboardingRequired: "Onboarding required",
	APIError:           "API error",
	AuthError:          "Authentication error",
	NetworkError:       "Network error",
	Interrupted:        "Interrupted",
}

// GetExitCodeDescription returns a human-readable description of an exit code.
func GetExitCodeDescription(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown error"
}
