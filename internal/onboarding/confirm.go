package onboarding

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
)

// Outcome tells the caller where to go after a successful submission.
type Outcome int

const (
	// OutcomeHome means the onboarded status is visible; navigate Home.
	OutcomeHome Outcome = iota
	// OutcomeReload means the status could not be observed; re-initialize
	// the session authority, then navigate Home.
	OutcomeReload
)

func (o Outcome) String() string {
	if o == OutcomeReload {
		return "reload"
	}
	return "home"
}

// Confirmer waits for the onboarded status to become visible.
type Confirmer interface {
	Confirm(ctx context.Context) Outcome
}

// SessionRefresher is the session store side of SessionConfirmer.
type SessionRefresher interface {
	RefreshUser(ctx context.Context) error
	IsOnboarded() bool
}

// SessionConfirmer refreshes the local session and checks its company.
type SessionConfirmer struct {
	Session SessionRefresher
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Confirm implements Confirmer.
func (c *SessionConfirmer) Confirm(ctx context.Context) Outcome {
	if err := c.Session.RefreshUser(ctx); err != nil {
		log.OrDefault(c.Logger).WithError(err).Warn("profile refresh after onboarding failed")
		c.Metrics.ObserveConfirmAttempt("session", false)
		return OutcomeReload
	}
	onboarded := c.Session.IsOnboarded()
	c.Metrics.ObserveConfirmAttempt("session", onboarded)
	if !onboarded {
		return OutcomeReload
	}
	return OutcomeHome
}

// ClaimSource issues a fresh ID token and reports its onboarded claim.
type ClaimSource interface {
	RefreshOnboarded(ctx context.Context) (bool, error)
}

// Claim polling defaults.
const (
	DefaultPropagationDelay = 2 * time.Second
	DefaultClaimAttempts    = 3
	DefaultClaimInterval    = 1500 * time.Millisecond
)

var errClaimNotYetSet = stderrors.New("onboarded claim not yet present")

// ClaimConfirmer polls the identity provider until the onboarded claim
// appears in a freshly issued token.
type ClaimConfirmer struct {
	Source ClaimSource
	// Delay is waited once before the first attempt.
	Delay    time.Duration
	Attempts uint
	Interval time.Duration
	// Sleep waits for Delay; nil uses a timer.
	Sleep   func(ctx context.Context, d time.Duration) error
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// NewClaimConfirmer returns a confirmer with the default budget.
func NewClaimConfirmer(src ClaimSource, logger *log.Logger, m *metrics.Metrics) *ClaimConfirmer {
	return &ClaimConfirmer{
		Source:   src,
		Delay:    DefaultPropagationDelay,
		Attempts: DefaultClaimAttempts,
		Interval: DefaultClaimInterval,
		Logger:   logger,
		Metrics:  m,
	}
}

// Confirm implements Confirmer. An exhausted budget or a failed refresh
// yields OutcomeReload.
func (c *ClaimConfirmer) Confirm(ctx context.Context) Outcome {
	logger := log.OrDefault(c.Logger)

	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if err := sleep(ctx, c.Delay); err != nil {
		return OutcomeReload
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		onboarded, err := c.Source.RefreshOnboarded(ctx)
		c.Metrics.ObserveConfirmAttempt("claim", err == nil && onboarded)
		if err != nil {
			return struct{}{}, err
		}
		if !onboarded {
			return struct{}{}, errClaimNotYetSet
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.Interval)),
		backoff.WithMaxTries(c.Attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WithError(err).Debug("onboarded claim not confirmed", "attempt", attempt, "retry_in", next)
		}),
	)
	if err != nil {
		logger.WithError(err).Warn("onboarded claim never appeared, falling back to reload", "attempts", attempt)
		return OutcomeReload
	}
	return OutcomeHome
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
