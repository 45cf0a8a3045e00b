package router

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
	"github.com/skaznowiecki/finpilot-sanos/internal/telemetry"
)

// maxAliasHops bounds RedirectTo chains.
const maxAliasHops = 8

// Resolution is the result of one navigation attempt.
type Resolution struct {
	// Target is the requested destination after alias resolution.
	Target     Target
	Decision   Decision
	Generation uint64
	// Superseded is set when a newer navigation started before this one
	// decided. Its decision must not be applied.
	Superseded bool
}

// Router resolves paths to routes and runs their guard chains.
type Router struct {
	routes []*Route
	global []Guard

	generation atomic.Uint64

	mu      sync.Mutex
	pending *Decision
	current Target

	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics records navigation and guard metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrDefault(r.logger).WithComponent("router")
	return r
}

// Add registers routes. Earlier routes win when several match.
func (r *Router) Add(routes ...*Route) {
	r.routes = append(r.routes, routes...)
}

// Use registers guards that run before every non-public route's own guards.
func (r *Router) Use(guards ...Guard) {
	r.global = append(r.global, guards...)
}

// Route returns the route registered under name.
func (r *Router) Route(name Name) (*Route, bool) {
	for _, rt := range r.routes {
		if rt.Name == name {
			return rt, true
		}
	}
	return nil, false
}

// PathFor builds the path of a named route.
func (r *Router) PathFor(name Name, params map[string]string) (string, error) {
	rt, ok := r.Route(name)
	if !ok {
		return "", errors.New(errors.ErrCodeRouteNotFound, fmt.Sprintf("unknown route %q", name))
	}
	return rt.build(params), nil
}

// DestinationOf returns where a redirect decision points: the named route
// for the redirect target.
func (r *Router) DestinationOf(d Decision) (string, error) {
	return r.PathFor(d.Target, nil)
}

// Resolve matches a path (with optional query) to a route, following
// RedirectTo aliases.
func (r *Router) Resolve(rawPath string) (Target, error) {
	u, err := url.Parse(rawPath)
	if err != nil {
		return Target{}, errors.Wrap(errors.ErrCodeRouteNotFound, fmt.Sprintf("invalid path %q", rawPath), err)
	}
	path := "/" + strings.Trim(u.Path, "/")

	for hop := 0; hop < maxAliasHops; hop++ {
		rt, params := r.match(path)
		if rt == nil {
			return Target{}, errors.New(errors.ErrCodeRouteNotFound, fmt.Sprintf("no route matches %q", path))
		}
		if rt.RedirectTo == "" {
			return Target{Route: rt, Path: path, Params: params, Query: u.Query()}, nil
		}
		alias, ok := r.Route(rt.RedirectTo)
		if !ok {
			return Target{}, errors.New(errors.ErrCodeRouteNotFound, fmt.Sprintf("route %q redirects to unknown route %q", rt.Name, rt.RedirectTo))
		}
		path = alias.build(params)
	}
	return Target{}, errors.New(errors.ErrCodeRouteNotFound, fmt.Sprintf("redirect loop resolving %q", rawPath))
}

func (r *Router) match(path string) (*Route, map[string]string) {
	for _, rt := range r.routes {
		if params, ok := rt.match(path); ok {
			return rt, params
		}
	}
	return nil, nil
}

// Current returns the last target a navigation was allowed into.
func (r *Router) Current() Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// RedirectToLogin queues a redirect to Login that the next navigation
// applies before running any guard. An empty returnTo means the current
// location. Only one redirect is queued at a time.
func (r *Router) RedirectToLogin(returnTo string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if returnTo == "" && r.current.Route != nil {
		returnTo = r.current.FullPath()
	}
	d := Redirect(Login, State{ReturnTo: returnTo})
	r.pending = &d
	r.logger.Debug("queued login redirect", "return_to", returnTo)
}

// Pending reports the queued redirect, if any.
func (r *Router) Pending() (Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Decision{}, false
	}
	return *r.pending, true
}

func (r *Router) takePending(to Target) (Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Decision{}, false
	}
	d := *r.pending
	r.pending = nil
	// Already heading to the redirect target; the redirect is satisfied.
	if to.Name() == d.Target {
		return Decision{}, false
	}
	return d, true
}

// Navigate resolves path and decides whether the navigation may proceed.
// A queued redirect is applied first. Public routes are allowed without
// running any guard. A navigation overtaken by a newer one resolves as
// Superseded.
func (r *Router) Navigate(ctx context.Context, path string) (Resolution, error) {
	gen := r.generation.Add(1)

	to, err := r.Resolve(path)
	if err != nil {
		return Resolution{Generation: gen}, err
	}

	ctx, span := telemetry.StartNavigationSpan(ctx, string(to.Name()), gen)
	defer span.End()

	res := Resolution{Target: to, Generation: gen}

	if d, ok := r.takePending(to); ok {
		res.Decision = d
		r.finish(&res, "queued")
		telemetry.RecordSuccess(span, attribute.String("decision", d.String()))
		return res, nil
	}

	if to.Route.Public {
		res.Decision = Allow()
		r.finish(&res, "public")
		telemetry.RecordSuccess(span, attribute.String("decision", "allow"))
		return res, nil
	}

	guards := make([]Guard, 0, len(r.global)+len(to.Route.Guards))
	guards = append(guards, r.global...)
	guards = append(guards, to.Route.Guards...)

	d, err := r.evaluate(ctx, guards, to)
	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.ObserveNavigation(string(to.Name()), "error")
		return res, err
	}

	if r.generation.Load() != gen {
		res.Superseded = true
		r.logger.Debug("discarding superseded navigation decision",
			"route", to.Name(), "generation", gen, "decision", d.String())
		r.metrics.ObserveNavigation(string(to.Name()), "superseded")
		telemetry.RecordError(span, errors.New(errors.ErrCodeSuperseded, "navigation superseded"))
		return res, nil
	}

	res.Decision = d
	r.finish(&res, d.Kind.String())
	telemetry.RecordSuccess(span, attribute.String("decision", d.String()))
	return res, nil
}

func (r *Router) evaluate(ctx context.Context, guards []Guard, to Target) (Decision, error) {
	for _, g := range guards {
		d, err := g.Check(ctx, to)
		if err != nil {
			return Decision{}, err
		}
		r.metrics.ObserveGuard(g.Name(), d.Kind.String())
		if !d.IsAllow() {
			r.logger.Debug("guard redirected", "guard", g.Name(), "route", to.Name(), "target", d.Target)
			return d, nil
		}
	}
	return Allow(), nil
}

func (r *Router) finish(res *Resolution, outcome string) {
	if res.Decision.IsAllow() {
		r.mu.Lock()
		r.current = res.Target
		r.mu.Unlock()
	}
	r.metrics.ObserveNavigation(string(res.Target.Name()), outcome)
}
