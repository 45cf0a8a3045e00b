// Package session is the local session authority: it owns the bearer token
// and the user/company/party snapshot and persists them under auth-store.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/skaznowiecki/finpilot-sanos/internal/authsvc"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/storage"
)

// Session is the persisted projection of the authentication state.
type Session struct {
	User    *domain.User    `json:"user" yaml:"user"`
	Company *domain.Company `json:"company" yaml:"company"`
	Party   *domain.Party   `json:"party" yaml:"party"`
	Token   string          `json:"token" yaml:"-"`
}

// IsAuthenticated is true iff a token is present.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// IsOnboarded is true iff the user is associated with a company.
func (s Session) IsOnboarded() bool {
	return s.User.HasCompany()
}

// AuthAPI is the subset of the auth service the store drives.
type AuthAPI interface {
	Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.TokenResponse, error)
	Register(ctx context.Context, req authsvc.RegisterRequest) (*authsvc.TokenResponse, error)
	Me(ctx context.Context) (*authsvc.MeResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password string) error
}

// Store is the single writer of the session. Readers take a snapshot.
type Store struct {
	mu      sync.RWMutex
	state   Session
	api     AuthAPI
	storage storage.Store
	logger  *log.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an empty, not yet initialized store.
func New(st storage.Store, logger *log.Logger) *Store {
	return &Store{
		storage: st,
		logger:  log.OrDefault(logger).WithComponent("session"),
		ready:   make(chan struct{}),
	}
}

// Attach sets the auth service. The API client needs the store as its
// token source, so the two are wired after construction.
func (s *Store) Attach(api AuthAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api
}

// Initialize rehydrates the persisted session and settles the pending auth
// check. Ready is closed even when rehydration fails.
func (s *Store) Initialize(ctx context.Context) error {
	defer s.readyOnce.Do(func() { close(s.ready) })
	return s.Rehydrate(ctx)
}

// Ready is closed once Initialize has settled.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Rehydrate replaces the in-memory state with the persisted one.
func (s *Store) Rehydrate(ctx context.Context) error {
	data, err := s.storage.Get(ctx, storage.KeyAuth)
	if stderrors.Is(err, storage.ErrNotFound) {
		s.replace(Session{})
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreRead, "failed to read persisted session", err)
	}

	var restored Session
	if err := json.Unmarshal(data, &restored); err != nil {
		s.logger.WithError(err).Warn("discarding unreadable persisted session")
		s.replace(Session{})
		return errors.Wrap(errors.ErrCodeStoreCorrupt, "persisted session is corrupt", err)
	}
	s.replace(restored)
	return nil
}

func (s *Store) replace(next Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
}

// Watch rehydrates whenever another process rewrites the persisted
// session. Stores without change notification make this a no-op.
func (s *Store) Watch(ctx context.Context) error {
	w, ok := s.storage.(storage.Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, storage.KeyAuth, func() {
		if err := s.Rehydrate(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to rehydrate session after external change")
		}
	})
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

// IsOnboarded reports whether the user has a company.
func (s *Store) IsOnboarded() bool {
	return s.Snapshot().IsOnboarded()
}

// Token implements apiclient.TokenSource. No token is not an error.
func (s *Store) Token(context.Context) (string, error) {
	return s.Snapshot().Token, nil
}

// Login authenticates, stores the token, then fetches the profile. An auth
// failure leaves the session untouched. A profile failure leaves a degraded
// session (token set, profile empty) and Login still succeeds.
func (s *Store) Login(ctx context.Context, creds authsvc.LoginRequest) (Session, error) {
	resp, err := s.authAPI().Login(ctx, creds)
	if err != nil {
		return s.Snapshot(), err
	}
	return s.establish(ctx, resp.Token)
}

// Register creates the account and then behaves like Login.
func (s *Store) Register(ctx context.Context, req authsvc.RegisterRequest) (Session, error) {
	resp, err := s.authAPI().Register(ctx, req)
	if err != nil {
		return s.Snapshot(), err
	}
	return s.establish(ctx, resp.Token)
}

func (s *Store) establish(ctx context.Context, token string) (Session, error) {
	if err := s.mutate(ctx, func(st *Session) {
		*st = Session{Token: token}
	}); err != nil {
		return s.Snapshot(), err
	}
	_ = s.RefreshUser(ctx)
	return s.Snapshot(), nil
}

// Logout clears all four fields and persists. It makes no network call.
func (s *Store) Logout(ctx context.Context) error {
	return s.mutate(ctx, func(st *Session) { *st = Session{} })
}

// Clear is Logout for involuntary session loss, such as a 401 response.
// Persistence failures are logged, never returned.
func (s *Store) Clear(ctx context.Context, reason string) {
	s.logger.Warn("clearing session", "reason", reason)
	if err := s.Logout(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithError(err).Error("failed to persist cleared session")
	}
}

// RefreshUser re-fetches the profile. On failure it logs, keeps the prior
// state and returns the error for callers that care.
func (s *Store) RefreshUser(ctx context.Context) error {
	token := s.Snapshot().Token
	profile, err := s.authAPI().Me(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("failed to refresh user")
		return err
	}

	return s.mutate(ctx, func(st *Session) {
		// A logout or new login raced this fetch; the profile is stale.
		if st.Token != token {
			return
		}
		user := profile.User
		st.User = &user
		st.Company = profile.Company
		st.Party = profile.Party
	})
}

// RequestPasswordReset passes through to the auth service.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) error {
	return s.authAPI().RequestPasswordReset(ctx, email)
}

// ResetPassword passes through to the auth service.
func (s *Store) ResetPassword(ctx context.Context, code, password string) error {
	return s.authAPI().ResetPassword(ctx, code, password)
}

// mutate applies fn and persists the result before returning.
func (s *Store) mutate(ctx context.Context, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)

	data, err := json.Marshal(s.state)
	if err != nil {
		return errors.NewStoreWriteError(storage.KeyAuth, err)
	}
	if err := s.storage.Put(ctx, storage.KeyAuth, data); err != nil {
		return errors.NewStoreWriteError(storage.KeyAuth, err)
	}
	return nil
}

func (s *Store) authAPI() AuthAPI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}
