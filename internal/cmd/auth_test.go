package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// TestAuthSubcommands tests that all auth subcommands are registered
func TestAuthSubcommands(t *testing.T) {
	subcommands := map[string]bool{
		"login":          false,
		"register":       false,
		"logout":         false,
		"status":         false,
		"request-reset":  false,
		"reset-password": false,
	}

	for _, cmd := range authCmd.Commands() {
		if _, exists := subcommands[cmd.Name()]; exists {
			subcommands[cmd.Name()] = true
		}
	}

	for name, found := range subcommands {
		assert.True(t, found, "subcommand %q not found in auth command", name)
	}
}

func authStatusJSON(t *testing.T) AuthStatus {
	t.Helper()
	out, _, err := runCLI(t, "auth", "status", "--format", "json")
	require.NoError(t, err)

	var st AuthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	return st
}

func TestAuthLoginReportsPendingOnboarding(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)

	out, errOut, err := runCLI(t, "auth", "login", "--email", "ana@example.com", "--password", "secret", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "logged in")
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, errOut, "Logged in as ana@example.com")
	assert.Contains(t, errOut, "finpilot onboarding")
}

func TestAuthLoginRejectsWrongPassword(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)

	_, _, err := runCLI(t, "auth", "login", "--email", "ana@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Credenciales inválidas")

	assert.False(t, authStatusJSON(t).Authenticated)
}

func TestAuthLoginNeedsPasswordWithoutTerminal(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)

	_, _, err := runCLI(t, "auth", "login", "--email", "ana@example.com")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Contains(t, err.Error(), "--password")
	assert.False(t, api.called("POST", "/auth/login"))
}

func TestAuthStatusAndLogout(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)
	login(t)

	st := authStatusJSON(t)
	assert.Equal(t, "session", st.Mode)
	assert.True(t, st.Authenticated)
	assert.False(t, st.Onboarded)
	assert.Equal(t, "ana@example.com", st.Email)

	_, errOut, err := runCLI(t, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Logged out")

	st = authStatusJSON(t)
	assert.False(t, st.Authenticated)
	assert.Empty(t, st.Email)
}

func TestProtectedCommandWithoutSession(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)

	_, _, err := runCLI(t, "party", "show")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotAuthenticated))
	assert.False(t, api.called("GET", "/parties/me"))
}

func TestProtectedCommandBeforeOnboarding(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)
	login(t)

	_, _, err := runCLI(t, "tags", "list")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotOnboarded))
}

func TestOnboardingUnlocksProtectedCommands(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)
	login(t)

	out, _, err := runCLI(t, "onboarding", "--name", "Ana Pérez", "--tax-id", "20-12345678-9", "--format", "json")
	require.NoError(t, err)

	var st AuthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Onboarded)
	assert.Equal(t, "Acme SA", st.Company)
	assert.True(t, api.called("POST", "/users/onboard/party"))

	out, _, err = runCLI(t, "party", "show", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Pérez")
	assert.Contains(t, out, "Banco Nación")
}

func TestOnboardingTwiceIsRejected(t *testing.T) {
	api := newFakeAPI(t)
	api.onboarded = true
	setupCLI(t, api)
	login(t)

	_, _, err := runCLI(t, "onboarding", "--name", "Ana Pérez", "--tax-id", "20123456789")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAlreadyOnboarded))
	assert.False(t, api.called("POST", "/users/onboard/party"))
}

func TestOnboardingNeedsFlagsWithoutTerminal(t *testing.T) {
	api := newFakeAPI(t)
	setupCLI(t, api)
	login(t)

	_, _, err := runCLI(t, "onboarding", "--tax-id", "20123456789")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestRejectedSessionEndsWithLoginHint(t *testing.T) {
	api := newFakeAPI(t)
	api.onboarded = true
	setupCLI(t, api)
	login(t)

	api.mu.Lock()
	api.revoked = true
	api.mu.Unlock()

	_, _, err := runCLI(t, "party", "show")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotAuthenticated))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Error(t, appErr.Cause)

	assert.False(t, authStatusJSON(t).Authenticated)
}
