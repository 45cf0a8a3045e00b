// Package identity makes an external OAuth2/OIDC tenant the session
// authority. Tokens are obtained with the device authorization grant,
// refreshed silently and persisted under identity-store.
package identity

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/storage"
)

// Scopes requested from the tenant.
var Scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}

// refreshExpiredMarkers are substrings of token endpoint errors that mean
// the refresh token can no longer be used.
var refreshExpiredMarkers = []string{
	"invalid_grant",
	"Unknown or invalid refresh token",
	"refresh token expired",
}

// Tokens is the persisted token set.
type Tokens struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// LoginChallenge is the pending half of a device login.
type LoginChallenge struct {
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	Expiry                  time.Time
	// ReturnTo is the route the caller asked for before being sent to login.
	ReturnTo string

	device *oauth2.DeviceAuthResponse
}

// Provider is the identity-provider session authority.
type Provider struct {
	cfg        config.IdentityConfig
	oauth      *oauth2.Config
	httpClient *http.Client
	storage    storage.Store
	logger     *log.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu       sync.RWMutex
	tokens   Tokens
	claims   Claims
	verifier *oidc.IDTokenVerifier

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithMetrics records token acquisition metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates a provider for the configured tenant.
func New(cfg config.IdentityConfig, st storage.Store, opts ...Option) *Provider {
	base := TenantURL(cfg.Domain)
	p := &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:       base + "/authorize",
				TokenURL:      base + "/oauth/token",
				DeviceAuthURL: base + "/oauth/device/code",
				AuthStyle:     oauth2.AuthStyleInParams,
			},
		},
		httpClient: http.DefaultClient,
		storage:    st,
		now:        time.Now,
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = log.OrDefault(p.logger).WithComponent("identity")
	return p
}

// TenantURL turns a bare tenant domain into its https base URL. Domains
// that already carry a scheme are used as is.
func TenantURL(domain string) string {
	domain = strings.TrimRight(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

func (p *Provider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) audienceParam() oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("audience", p.cfg.Audience)
}

// Initialize restores persisted tokens and settles the pending auth check.
// When ID token verification is enabled the issuer is discovered here.
func (p *Provider) Initialize(ctx context.Context) error {
	defer p.readyOnce.Do(func() { close(p.ready) })

	if p.cfg.VerifyIDToken {
		issuer, err := oidc.NewProvider(p.oauthContext(ctx), TenantURL(p.cfg.Domain)+"/")
		if err != nil {
			p.logger.WithError(err).Warn("OIDC discovery failed, ID tokens will not be verified")
		} else {
			p.mu.Lock()
			p.verifier = issuer.Verifier(&oidc.Config{ClientID: p.cfg.ClientID})
			p.mu.Unlock()
		}
	}

	data, err := p.storage.Get(ctx, storage.KeyIdentity)
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreRead, "failed to read persisted identity", err)
	}

	var restored Tokens
	if err := json.Unmarshal(data, &restored); err != nil {
		p.logger.WithError(err).Warn("discarding unreadable persisted identity")
		return errors.Wrap(errors.ErrCodeStoreCorrupt, "persisted identity is corrupt", err)
	}
	claims, err := p.decodeIDToken(ctx, restored.IDToken)
	if err != nil {
		p.logger.WithError(err).Warn("persisted ID token is unreadable")
	}

	p.mu.Lock()
	p.tokens = restored
	p.claims = claims
	p.mu.Unlock()
	return nil
}

// Ready is closed once Initialize has settled.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// IsAuthenticated reports whether a usable token set is held.
func (p *Provider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens.AccessToken != "" || p.tokens.RefreshToken != ""
}

// IsOnboarded reads the onboarded flag from the ID token claims.
func (p *Provider) IsOnboarded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.claims.Onboarded(p.cfg.Audience)
}

// Claims returns the current ID token claims.
func (p *Provider) Claims() Claims {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.claims
}

// Expiry returns the access token expiry.
func (p *Provider) Expiry() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokens.Expiry
}

// Token implements apiclient.TokenSource with the cached token when it is
// still valid.
func (p *Provider) Token(ctx context.Context) (string, error) {
	return p.AccessToken(ctx, false)
}

// AccessToken returns an access token. With fresh set the cache is
// bypassed and the refresh token is always exchanged.
func (p *Provider) AccessToken(ctx context.Context, fresh bool) (string, error) {
	p.mu.RLock()
	current := p.tokens
	p.mu.RUnlock()

	if current.AccessToken == "" && current.RefreshToken == "" {
		return "", errors.New(errors.ErrCodeLoginRequired, "login required")
	}
	if !fresh && current.AccessToken != "" && p.unexpired(current) {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		return "", errors.New(errors.ErrCodeLoginRequired, "access token expired and no refresh token is held")
	}

	next, err := p.refresh(ctx, current.RefreshToken)
	p.metrics.ObserveToken(err == nil)
	if err != nil {
		if IsRefreshExpired(err) {
			return "", errors.Wrap(errors.ErrCodeRefreshExpired, "refresh token expired", err)
		}
		return "", errors.Wrap(errors.ErrCodeTokenUnavailable, "silent token refresh failed", err)
	}
	return next.AccessToken, nil
}

// expiryDelta mirrors the early expiry oauth2 applies to tokens.
const expiryDelta = 10 * time.Second

func (p *Provider) unexpired(t Tokens) bool {
	return t.Expiry.IsZero() || p.now().Before(t.Expiry.Add(-expiryDelta))
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	src := p.oauth.TokenSource(p.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		p.logger.WithError(err).Warn("token refresh failed")
		return Tokens{}, err
	}
	next := fromOAuth2(tok)
	if next.IDToken == "" {
		p.mu.RLock()
		next.IDToken = p.tokens.IDToken
		p.mu.RUnlock()
	}
	if err := p.install(ctx, next); err != nil {
		return Tokens{}, err
	}
	return next, nil
}

// RefreshOnboarded bypasses the token cache and reports the onboarded
// claim of the freshly issued ID token.
func (p *Provider) RefreshOnboarded(ctx context.Context) (bool, error) {
	if _, err := p.AccessToken(ctx, true); err != nil {
		return false, err
	}
	return p.IsOnboarded(), nil
}

// BeginLogin starts a device authorization. The user completes it in a
// browser at the returned verification URI.
func (p *Provider) BeginLogin(ctx context.Context, returnTo string) (*LoginChallenge, error) {
	da, err := p.oauth.DeviceAuth(p.oauthContext(ctx), p.audienceParam())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoginRequired, "failed to start device login", err).
			WithSuggestion("Check identity.domain and identity.client_id in config.yaml")
	}
	return &LoginChallenge{
		UserCode:                da.UserCode,
		VerificationURI:         da.VerificationURI,
		VerificationURIComplete: da.VerificationURIComplete,
		Expiry:                  da.Expiry,
		ReturnTo:                returnTo,
		device:                  da,
	}, nil
}

// CompleteLogin waits until the user approves the device login, then
// persists the issued tokens. It returns the challenge's ReturnTo route.
func (p *Provider) CompleteLogin(ctx context.Context, ch *LoginChallenge) (string, error) {
	tok, err := p.oauth.DeviceAccessToken(p.oauthContext(ctx), ch.device, p.audienceParam())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidCredentials, "device login was not completed", err)
	}
	if err := p.install(ctx, fromOAuth2(tok)); err != nil {
		return "", err
	}
	p.logger.Info("identity login completed", "subject", p.Claims().Subject())
	return ch.ReturnTo, nil
}

// Logout drops the tokens locally. The tenant session is left alone.
func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	p.tokens = Tokens{}
	p.claims = nil
	p.mu.Unlock()

	if err := p.storage.Delete(ctx, storage.KeyIdentity); err != nil {
		return errors.NewStoreWriteError(storage.KeyIdentity, err)
	}
	return nil
}

func (p *Provider) install(ctx context.Context, next Tokens) error {
	claims, err := p.decodeIDToken(ctx, next.IDToken)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTokenUnavailable, "ID token rejected", err)
	}

	data, err := json.Marshal(next)
	if err != nil {
		return errors.NewStoreWriteError(storage.KeyIdentity, err)
	}

	p.mu.Lock()
	p.tokens = next
	p.claims = claims
	p.mu.Unlock()

	if err := p.storage.Put(ctx, storage.KeyIdentity, data); err != nil {
		return errors.NewStoreWriteError(storage.KeyIdentity, err)
	}
	return nil
}

func (p *Provider) decodeIDToken(ctx context.Context, raw string) (Claims, error) {
	if raw == "" {
		return nil, nil
	}
	p.mu.RLock()
	verifier := p.verifier
	p.mu.RUnlock()

	if verifier == nil {
		return parseUnverified(raw)
	}
	idToken, err := verifier.Verify(p.oauthContext(ctx), raw)
	if err != nil {
		return nil, err
	}
	claims := Claims{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func fromOAuth2(tok *oauth2.Token) Tokens {
	idToken, _ := tok.Extra("id_token").(string)
	return Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      idToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}

// IsRefreshExpired reports whether err means the refresh token is no
// longer accepted and only an interactive login can recover.
func IsRefreshExpired(err error) bool {
	if err == nil {
		return false
	}
	var re *oauth2.RetrieveError
	if stderrors.As(err, &re) && re.ErrorCode == "invalid_grant" {
		return true
	}
	if errors.HasCode(err, errors.ErrCodeRefreshExpired) {
		return true
	}
	msg := err.Error()
	for _, marker := range refreshExpiredMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
