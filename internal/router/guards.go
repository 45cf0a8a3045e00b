package router

import (
	"context"
)

// Authority is the read side of whichever component owns the session.
type Authority interface {
	// Ready is closed once the pending auth check has settled.
	Ready() <-chan struct{}
	IsAuthenticated() bool
	IsOnboarded() bool
}

// Evaluate runs guards left to right. The first non-Allow decision wins and
// later guards are not run.
func Evaluate(ctx context.Context, guards []Guard, to Target) (Decision, error) {
	for _, g := range guards {
		d, err := g.Check(ctx, to)
		if err != nil {
			return Decision{}, err
		}
		if !d.IsAllow() {
			return d, nil
		}
	}
	return Allow(), nil
}

// waitReady blocks until the authority has settled or ctx is done.
func waitReady(ctx context.Context, a Authority) error {
	select {
	case <-a.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthGuard waits for the auth check and redirects unauthenticated users to
// Login, remembering where they were going.
func AuthGuard(a Authority) Guard {
	return NewGuard("auth", func(ctx context.Context, to Target) (Decision, error) {
		if err := waitReady(ctx, a); err != nil {
			return Decision{}, err
		}
		if a.IsAuthenticated() {
			return Allow(), nil
		}
		return Redirect(Login, State{ReturnTo: to.FullPath()}), nil
	})
}

// GlobalGuard is the baseline check run before every navigation: public
// routes pass, everything else needs an authenticated session.
func GlobalGuard(a Authority) Guard {
	return NewGuard("global", func(ctx context.Context, to Target) (Decision, error) {
		if to.Route != nil && to.Route.Public {
			return Allow(), nil
		}
		if err := waitReady(ctx, a); err != nil {
			return Decision{}, err
		}
		if a.IsAuthenticated() {
			return Allow(), nil
		}
		return Redirect(Login, State{ReturnTo: to.FullPath()}), nil
	})
}

// OnboardingGuard sends users without a completed onboarding there first.
func OnboardingGuard(a Authority) Guard {
	return NewGuard("onboarding", func(ctx context.Context, _ Target) (Decision, error) {
		if err := waitReady(ctx, a); err != nil {
			return Decision{}, err
		}
		if a.IsOnboarded() {
			return Allow(), nil
		}
		return Redirect(Onboarding, State{}), nil
	})
}

// PreventIfOnboarded keeps onboarded users off the onboarding route.
func PreventIfOnboarded(a Authority) Guard {
	return NewGuard("prevent_if_onboarded", func(ctx context.Context, _ Target) (Decision, error) {
		if err := waitReady(ctx, a); err != nil {
			return Decision{}, err
		}
		if !a.IsOnboarded() {
			return Allow(), nil
		}
		return Redirect(Home, State{}), nil
	})
}
