package apiclient

import (
	"context"

	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
)

// UnauthorizedPolicy decides what happens to the session when the API
// rejects credentials or a token cannot be obtained.
type UnauthorizedPolicy interface {
	OnUnauthorized(ctx context.Context, apiErr *APIError)
	OnTokenError(ctx context.Context, err error)
}

// LoginRedirector queues a navigation to the login route. An empty
// returnTo means the current location.
type LoginRedirector interface {
	RedirectToLogin(returnTo string)
}

// SessionClearer drops the local session.
type SessionClearer interface {
	Clear(ctx context.Context, reason string)
}

type nopPolicy struct{}

func (nopPolicy) OnUnauthorized(context.Context, *APIError) {}
func (nopPolicy) OnTokenError(context.Context, error)       {}

// SessionPolicy clears the local session on every 401 and queues exactly
// one login redirect per failing request.
type SessionPolicy struct {
	Session    SessionClearer
	Redirector LoginRedirector
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

// OnUnauthorized implements UnauthorizedPolicy.
func (p *SessionPolicy) OnUnauthorized(ctx context.Context, apiErr *APIError) {
	log.OrDefault(p.Logger).Warn("authentication error, redirecting to login",
		"status", apiErr.Status, "request_id", apiErr.RequestID)
	p.Session.Clear(ctx, "unauthorized response")
	p.Redirector.RedirectToLogin("")
	p.Metrics.ObserveUnauthorized("session", "cleared")
}

// OnTokenError implements UnauthorizedPolicy.
func (p *SessionPolicy) OnTokenError(_ context.Context, err error) {
	log.OrDefault(p.Logger).WithError(err).Warn("session token unavailable, redirecting to login")
	p.Redirector.RedirectToLogin("")
	p.Metrics.ObserveUnauthorized("session", "token_error")
}

// IdentityPolicy leaves ordinary 401s to the caller and redirects to the
// identity provider login only when the refresh token has expired.
type IdentityPolicy struct {
	Redirector LoginRedirector
	// RefreshExpired reports whether err signals refresh-token expiry.
	RefreshExpired func(err error) bool
	Logger         *log.Logger
	Metrics        *metrics.Metrics
}

// OnUnauthorized implements UnauthorizedPolicy.
func (p *IdentityPolicy) OnUnauthorized(_ context.Context, apiErr *APIError) {
	if p.RefreshExpired == nil || !p.RefreshExpired(apiErr) {
		p.Metrics.ObserveUnauthorized("identity", "surfaced")
		return
	}
	log.OrDefault(p.Logger).Warn("refresh token expired, redirecting to identity provider login",
		"request_id", apiErr.RequestID)
	p.Redirector.RedirectToLogin("")
	p.Metrics.ObserveUnauthorized("identity", "redirected")
}

// OnTokenError implements UnauthorizedPolicy. Any failure to obtain a token
// redirects before the error reaches the caller, so nothing retries in a loop.
func (p *IdentityPolicy) OnTokenError(_ context.Context, err error) {
	log.OrDefault(p.Logger).WithError(err).Warn("token refresh failed, redirecting to identity provider login")
	p.Redirector.RedirectToLogin("")
	p.Metrics.ObserveUnauthorized("identity", "token_error")
}
