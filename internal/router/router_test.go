package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
)

type fakeAuthority struct {
	mu            sync.Mutex
	ready         chan struct{}
	authenticated bool
	onboarded     bool
}

func newAuthority(authenticated, onboarded bool) *fakeAuthority {
	a := &fakeAuthority{ready: make(chan struct{}), authenticated: authenticated, onboarded: onboarded}
	close(a.ready)
	return a
}

func pendingAuthority() *fakeAuthority {
	return &fakeAuthority{ready: make(chan struct{})}
}

func (a *fakeAuthority) Ready() <-chan struct{} { return a.ready }

func (a *fakeAuthority) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

func (a *fakeAuthority) IsOnboarded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.onboarded
}

func (a *fakeAuthority) settle(authenticated, onboarded bool) {
	a.mu.Lock()
	a.authenticated = authenticated
	a.onboarded = onboarded
	a.mu.Unlock()
	close(a.ready)
}

func TestEvaluateShortCircuits(t *testing.T) {
	bRan := false
	a := NewGuard("a", func(context.Context, Target) (Decision, error) {
		return Redirect(Login, State{ReturnTo: "/x"}), nil
	})
	b := NewGuard("b", func(context.Context, Target) (Decision, error) {
		bRan = true
		return Redirect(Onboarding, State{}), nil
	})

	d, err := Evaluate(context.Background(), []Guard{a, b}, Target{})
	require.NoError(t, err)
	assert.False(t, bRan)
	assert.Equal(t, Redirect(Login, State{ReturnTo: "/x"}), d)
}

func TestEvaluateAllAllow(t *testing.T) {
	calls := 0
	g := NewGuard("count", func(context.Context, Target) (Decision, error) {
		calls++
		return Allow(), nil
	})

	d, err := Evaluate(context.Background(), []Guard{g, g, g}, Target{})
	require.NoError(t, err)
	assert.True(t, d.IsAllow())
	assert.Equal(t, 3, calls)
}

func TestResolve(t *testing.T) {
	r := NewApp(newAuthority(true, true), WithLogger(log.Discard()))

	tests := []struct {
		path   string
		name   Name
		params map[string]string
	}{
		{"/", Invoices, map[string]string{}},
		{"/invoices", Invoices, map[string]string{}},
		{"/invoices/", Invoices, map[string]string{}},
		{"/invoices/upload", InvoiceUpload, map[string]string{}},
		{"/invoices/42", InvoiceDetail, map[string]string{"id": "42"}},
		{"/onboarding", Onboarding, map[string]string{}},
		{"/login?next=1", Login, map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			to, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.name, to.Name())
			assert.Equal(t, tt.params, to.Params)
		})
	}

	_, err := r.Resolve("/nowhere")
	assert.True(t, errors.HasCode(err, errors.ErrCodeRouteNotFound))
}

func TestPathFor(t *testing.T) {
	r := NewApp(newAuthority(true, true))

	p, err := r.PathFor(InvoiceDetail, map[string]string{"id": "inv 1"})
	require.NoError(t, err)
	assert.Equal(t, "/invoices/inv%201", p)

	to, err := r.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, "inv 1", to.Param("id"))
}

func TestNavigateDecisions(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		onboarded     bool
		path          string
		want          Decision
	}{
		{"anonymous to protected", false, false, "/invoices/42", Redirect(Login, State{ReturnTo: "/invoices/42"})},
		{"anonymous to login", false, false, "/login", Allow()},
		{"anonymous to callback", false, false, "/callback", Allow()},
		{"not onboarded to invoices", true, false, "/invoices", Redirect(Onboarding, State{})},
		{"not onboarded to onboarding", true, false, "/onboarding", Allow()},
		{"onboarded to onboarding", true, true, "/onboarding", Redirect(Home, State{})},
		{"onboarded to settings", true, true, "/settings", Allow()},
		{"home alias keeps query", false, false, "/?page=2", Redirect(Login, State{ReturnTo: "/invoices?page=2"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewApp(newAuthority(tt.authenticated, tt.onboarded), WithLogger(log.Discard()))
			res, err := r.Navigate(context.Background(), tt.path)
			require.NoError(t, err)
			assert.False(t, res.Superseded)
			assert.Equal(t, tt.want, res.Decision)
		})
	}
}

func TestPublicRouteSkipsGuards(t *testing.T) {
	ran := false
	spy := NewGuard("spy", func(context.Context, Target) (Decision, error) {
		ran = true
		return Redirect(Home, State{}), nil
	})
	r := New()
	r.Use(spy)
	r.Add(&Route{Name: Login, Path: "/login", Public: true, Guards: []Guard{spy}})

	res, err := r.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.True(t, res.Decision.IsAllow())
	assert.False(t, ran)
}

func TestAuthGuardWaitsForPendingCheck(t *testing.T) {
	a := pendingAuthority()
	r := NewApp(a, WithLogger(log.Discard()))

	done := make(chan Resolution, 1)
	go func() {
		res, err := r.Navigate(context.Background(), "/invoices")
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("decided while the auth check was pending")
	case <-time.After(50 * time.Millisecond):
	}

	a.settle(true, true)
	select {
	case res := <-done:
		assert.True(t, res.Decision.IsAllow())
	case <-time.After(time.Second):
		t.Fatal("navigation never decided")
	}
}

func TestAuthGuardHonoursContext(t *testing.T) {
	r := NewApp(pendingAuthority(), WithLogger(log.Discard()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Navigate(ctx, "/invoices")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSupersededNavigationIsDiscarded(t *testing.T) {
	a := pendingAuthority()
	r := NewApp(a, WithLogger(log.Discard()))

	first := make(chan Resolution, 1)
	go func() {
		res, err := r.Navigate(context.Background(), "/invoices/1")
		assert.NoError(t, err)
		first <- res
	}()

	require.Eventually(t, func() bool { return r.generation.Load() == 1 }, time.Second, time.Millisecond)

	second, err := r.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.True(t, second.Decision.IsAllow())

	a.settle(false, false)
	res := <-first
	assert.True(t, res.Superseded)
	assert.Equal(t, Decision{}, res.Decision)
	assert.Equal(t, Login, r.Current().Name())
}

func TestQueuedLoginRedirect(t *testing.T) {
	r := NewApp(newAuthority(true, true), WithLogger(log.Discard()))

	res, err := r.Navigate(context.Background(), "/invoices/7")
	require.NoError(t, err)
	require.True(t, res.Decision.IsAllow())

	r.RedirectToLogin("")
	r.RedirectToLogin("")

	res, err = r.Navigate(context.Background(), "/settings")
	require.NoError(t, err)
	assert.Equal(t, Redirect(Login, State{ReturnTo: "/invoices/7"}), res.Decision)

	_, queued := r.Pending()
	assert.False(t, queued, "redirect is applied exactly once")

	res, err = r.Navigate(context.Background(), "/settings")
	require.NoError(t, err)
	assert.True(t, res.Decision.IsAllow())
}

func TestQueuedRedirectSatisfiedByLogin(t *testing.T) {
	r := NewApp(newAuthority(false, false), WithLogger(log.Discard()))
	r.RedirectToLogin("/tags")

	res, err := r.Navigate(context.Background(), "/login")
	require.NoError(t, err)
	assert.True(t, res.Decision.IsAllow())

	_, queued := r.Pending()
	assert.False(t, queued)
}

func TestGuardErrorPropagates(t *testing.T) {
	boom := errors.New(errors.ErrCodeAPITransport, "boom")
	r := New()
	r.Add(&Route{Name: Tags, Path: "/tags", Guards: []Guard{
		NewGuard("failing", func(context.Context, Target) (Decision, error) { return Decision{}, boom }),
	}})

	_, err := r.Navigate(context.Background(), "/tags")
	assert.ErrorIs(t, err, boom)
}

func TestAliasLoop(t *testing.T) {
	r := New()
	r.Add(
		&Route{Name: "A", Path: "/a", RedirectTo: "B"},
		&Route{Name: "B", Path: "/b", RedirectTo: "A"},
	)
	_, err := r.Resolve("/a")
	assert.True(t, errors.HasCode(err, errors.ErrCodeRouteNotFound))
}
