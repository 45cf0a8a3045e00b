package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeNotAuthenticated   ErrorCode = "AUTH-001"
	ErrCodeInvalidCredentials ErrorCode = "AUTH-002"
	ErrCodeUnauthorized       ErrorCode = "AUTH-003"
	ErrCodeTokenUnavailable   ErrorCode = "AUTH-004"
	ErrCodeRefreshExpired     ErrorCode = "AUTH-005"
	ErrCodeLoginRequired      ErrorCode = "AUTH-006"

	// API errors (API-001 to API-099)
	ErrCodeAPIRequest    ErrorCode = "API-001"
	ErrCodeAPIResponse   ErrorCode = "API-002"
	ErrCodeAPITransport  ErrorCode = "API-003"
	ErrCodeAPIValidation ErrorCode = "API-004"
	ErrCodeUploadFailed  ErrorCode = "API-005"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidation  ErrorCode = "VALIDATION-001"
	ErrCodeInvalidFile ErrorCode = "VALIDATION-002"

	// Onboarding errors (ONBOARD-001 to ONBOARD-099)
	ErrCodeNotOnboarded       ErrorCode = "ONBOARD-001"
	ErrCodeCompanyIDMissing   ErrorCode = "ONBOARD-002"
	ErrCodeAlreadyOnboarded   ErrorCode = "ONBOARD-003"
	ErrCodeOnboardingUnseen   ErrorCode = "ONBOARD-004"
	ErrCodeOnboardingRejected ErrorCode = "ONBOARD-005"

	// Storage errors (STORE-001 to STORE-099)
	ErrCodeStoreRead    ErrorCode = "STORE-001"
	ErrCodeStoreWrite   ErrorCode = "STORE-002"
	ErrCodeStoreOpen    ErrorCode = "STORE-003"
	ErrCodeStoreCorrupt ErrorCode = "STORE-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigRead    ErrorCode = "CONFIG-002"

	// Navigation errors (NAV-001 to NAV-099)
	ErrCodeRouteNotFound ErrorCode = "NAV-001"
	ErrCodeSuperseded    ErrorCode = "NAV-002"
)

// AppError represents an enhanced error with code and recovery suggestions
type AppError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Common error constructors for frequently used errors

// NewNotAuthenticatedError is returned when a protected operation runs without a session
func NewNotAuthenticatedError(returnTo string) *AppError {
	err := New(ErrCodeNotAuthenticated, "not logged in")
	if returnTo != "" {
		err.Message = fmt.Sprintf("not logged in (requested %s)", returnTo)
	}
	return err.
		WithSuggestion("Run 'finpilot auth login' to start a session").
		WithSuggestion("Run 'finpilot auth status' to inspect the stored session")
}

// NewNotOnboardedError is returned when the account has not finished onboarding
func NewNotOnboardedError() *AppError {
	return New(ErrCodeNotOnboarded, "account onboarding is not complete").
		WithSuggestion("Run 'finpilot onboarding' to register your party profile")
}

// NewAlreadyOnboardedError is returned when onboarding is requested twice
func NewAlreadyOnboardedError() *AppError {
	return New(ErrCodeAlreadyOnboarded, "account is already onboarded").
		WithSuggestion("Run 'finpilot invoices list' to continue")
}

// NewCompanyIDMissingError is returned when onboarding runs without a configured company
func NewCompanyIDMissingError() *AppError {
	return New(ErrCodeCompanyIDMissing, "company ID not configured").
		WithSuggestion("Set FINPILOT_COMPANY_ID or company_id in config.yaml")
}

// NewStoreWriteError wraps a failure to persist client state
func NewStoreWriteError(key string, cause error) *AppError {
	return Wrap(ErrCodeStoreWrite, fmt.Sprintf("failed to persist %s", key), cause).
		WithSuggestion("Check permissions of the state directory (finpilot config path)")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *AppError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'finpilot config view' to inspect the effective configuration").
		WithSuggestion("Environment variables use the FINPILOT_ prefix")
}
