// Package app wires configuration, storage, the session authority, the API
// client and the feature services into one application.
package app

import (
	"context"
	"net/http"
	"slices"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/authsvc"
	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/identity"
	"github.com/skaznowiecki/finpilot-sanos/internal/invoice"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/onboarding"
	"github.com/skaznowiecki/finpilot-sanos/internal/party"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/session"
	"github.com/skaznowiecki/finpilot-sanos/internal/storage"
	"github.com/skaznowiecki/finpilot-sanos/internal/tags"
	"github.com/skaznowiecki/finpilot-sanos/internal/version"
)

// Authority is the active session authority.
type Authority interface {
	router.Authority
	Initialize(ctx context.Context) error
	Token(ctx context.Context) (string, error)
}

// App is the composed application. Exactly one of Session and Identity is
// set, according to the configured auth mode.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Localizer *i18n.Localizer
	Storage   storage.Store
	Router    *router.Router
	Client    *apiclient.Client

	Session  *session.Store
	Identity *identity.Provider
	Auth     *authsvc.Service

	Onboarding  *onboarding.Flow
	Party       *party.Data
	Invoices    *invoice.API
	InvoiceList *invoice.List
	Upload      *invoice.Upload
	Comments    *invoice.Comments
	Tags        *tags.API
	TagCache    *tags.Cache

	authority Authority
}

type options struct {
	httpClient *http.Client
	store      storage.Store
	logger     *log.Logger
	metrics    *metrics.Metrics
	confirmer  onboarding.Confirmer
}

// Option customizes New.
type Option func(*options)

// WithHTTPClient sets the client used for the API and the identity provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithStorage replaces the store selected by the configuration.
func WithStorage(st storage.Store) Option {
	return func(o *options) { o.store = st }
}

// WithLogger sets the application logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfirmer replaces the onboarding confirmer of the auth mode.
func WithConfirmer(c onboarding.Confirmer) Option {
	return func(o *options) { o.confirmer = c }
}

// New builds the application for cfg. The authority is not initialized;
// call Initialize before navigating.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.OrDefault(o.logger)
	st := o.store
	if st == nil {
		var err error
		if st, err = storage.Open(cfg); err != nil {
			return nil, err
		}
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   o.metrics,
		Localizer: i18n.New(cfg.Locale),
		Storage:   st,
	}

	var policy apiclient.UnauthorizedPolicy
	switch cfg.AuthMode {
	case config.AuthModeIdentity:
		idOpts := []identity.Option{identity.WithLogger(logger), identity.WithMetrics(o.metrics)}
		if o.httpClient != nil {
			idOpts = append(idOpts, identity.WithHTTPClient(o.httpClient))
		}
		a.Identity = identity.New(cfg.Identity, st, idOpts...)
		a.authority = a.Identity
		a.Router = router.NewApp(a.authority, router.WithLogger(logger), router.WithMetrics(o.metrics))
		policy = &apiclient.IdentityPolicy{
			Redirector:     a.Router,
			RefreshExpired: identity.IsRefreshExpired,
			Logger:         logger,
			Metrics:        o.metrics,
		}
	default:
		a.Session = session.New(st, logger)
		a.authority = a.Session
		a.Router = router.NewApp(a.authority, router.WithLogger(logger), router.WithMetrics(o.metrics))
		policy = &apiclient.SessionPolicy{
			Session:    a.Session,
			Redirector: a.Router,
			Logger:     logger,
			Metrics:    o.metrics,
		}
	}

	clientOpts := []apiclient.Option{
		apiclient.WithTokenSource(a.authority),
		apiclient.WithLogger(logger),
		apiclient.WithMetrics(o.metrics),
		apiclient.WithUserAgent(version.GetInfo().UserAgent()),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	if cfg.HTTPTimeout > 0 {
		clientOpts = append(clientOpts, apiclient.WithTimeout(cfg.HTTPTimeout))
	}
	a.Client = apiclient.New(cfg.APIBaseURL, append(slices.Clone(clientOpts), apiclient.WithPolicy(policy))...)

	// A 401 from login or the profile fetch is a credential failure, not an
	// expired session, so the auth endpoints skip the session policy.
	a.Auth = authsvc.New(apiclient.New(cfg.APIBaseURL, clientOpts...))
	if a.Session != nil {
		a.Session.Attach(a.Auth)
	}

	confirmer := o.confirmer
	if confirmer == nil {
		if a.Identity != nil {
			confirmer = onboarding.NewClaimConfirmer(a.Identity, logger, o.metrics)
		} else {
			confirmer = &onboarding.SessionConfirmer{Session: a.Session, Logger: logger, Metrics: o.metrics}
		}
	}
	a.Onboarding = &onboarding.Flow{
		API:          onboarding.NewAPI(a.Client),
		CompanyID:    cfg.CompanyID,
		Confirmer:    confirmer,
		Reinitialize: a.authority.Initialize,
		Localizer:    a.Localizer,
		Logger:       logger,
		Metrics:      o.metrics,
	}

	a.Party = party.NewData(party.NewAPI(a.Client), a.Localizer, logger)

	a.Tags = tags.NewAPI(a.Client)
	a.TagCache = tags.NewCache(a.Tags, st,
		tags.WithLogger(logger),
		tags.WithMetrics(o.metrics),
		tags.WithLocalizer(a.Localizer),
	)

	a.Invoices = invoice.NewAPI(a.Client)
	a.InvoiceList = invoice.NewList(a.Invoices, a.Localizer, logger)
	a.Upload = invoice.NewUpload(a.Invoices, a.TagCache, a.Localizer, logger)
	a.Comments = invoice.NewComments(a.Invoices, logger)

	return a, nil
}

// Authority returns the active session authority.
func (a *App) Authority() Authority {
	return a.authority
}

// Initialize settles the authority, starts following session changes made
// by other processes until ctx ends, and loads the persisted tag cache.
// Corrupt persisted state and tag cache failures are logged, not returned.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.authority.Initialize(ctx); err != nil {
		if !errors.HasCode(err, errors.ErrCodeStoreCorrupt) {
			return err
		}
		a.Logger.WithError(err).Warn("starting with an empty session")
	}
	if a.Session != nil {
		if err := a.Session.Watch(ctx); err != nil {
			a.Logger.WithError(err).Warn("failed to watch persisted session")
		}
	}
	if err := a.TagCache.Load(ctx); err != nil {
		a.Logger.WithError(err).Warn("failed to load tag cache")
	}
	return nil
}

// Navigate evaluates the guards of path.
func (a *App) Navigate(ctx context.Context, path string) (router.Resolution, error) {
	return a.Router.Navigate(ctx, path)
}

// Logout ends the session of the active authority and drops cached tags.
func (a *App) Logout(ctx context.Context) error {
	var err error
	if a.Identity != nil {
		err = a.Identity.Logout(ctx)
	} else {
		err = a.Session.Logout(ctx)
	}
	a.TagCache.Clear(ctx)
	return err
}

// Close releases the store.
func (a *App) Close() error {
	return a.Storage.Close()
}
