// Package router gates every command behind the guard chain of the route
// it navigates to.
package router

import (
	"context"
	"net/url"
	"strings"
)

// Name identifies a route.
type Name string

// Application routes.
const (
	Home          Name = "Home"
	Login         Name = "Login"
	Callback      Name = "Callback"
	Settings      Name = "Settings"
	Invoices      Name = "Invoices"
	InvoiceUpload Name = "InvoiceUpload"
	InvoiceDetail Name = "InvoiceDetail"
	Onboarding    Name = "Onboarding"
	Tags          Name = "Tags"
)

// Kind tags a Decision.
type Kind int

const (
	KindAllow Kind = iota
	KindRedirect
)

func (k Kind) String() string {
	if k == KindRedirect {
		return "redirect"
	}
	return "allow"
}

// State travels with a redirect.
type State struct {
	// ReturnTo is the full path the navigation originally asked for.
	ReturnTo string `json:"return_to,omitempty"`
}

// Decision is the outcome of a guard: Allow or Redirect(Target, State).
type Decision struct {
	Kind   Kind
	Target Name
	State  State
}

// Allow lets the navigation through.
func Allow() Decision {
	return Decision{Kind: KindAllow}
}

// Redirect sends the navigation to target instead.
func Redirect(target Name, state State) Decision {
	return Decision{Kind: KindRedirect, Target: target, State: state}
}

// IsAllow reports whether d lets the navigation through.
func (d Decision) IsAllow() bool {
	return d.Kind == KindAllow
}

func (d Decision) String() string {
	if d.Kind == KindRedirect {
		return "redirect:" + string(d.Target)
	}
	return "allow"
}

// Route is a named location with its guard chain.
type Route struct {
	Name Name
	Path string
	// Public routes bypass every guard, including the global ones.
	Public bool
	// RedirectTo makes the route an alias of another route.
	RedirectTo Name
	Guards     []Guard
}

// Target is a resolved navigation destination.
type Target struct {
	Route  *Route
	Path   string
	Params map[string]string
	Query  url.Values
}

// Name returns the resolved route name.
func (t Target) Name() Name {
	if t.Route == nil {
		return ""
	}
	return t.Route.Name
}

// Param returns a path parameter.
func (t Target) Param(key string) string {
	return t.Params[key]
}

// FullPath is the path plus its encoded query.
func (t Target) FullPath() string {
	if len(t.Query) == 0 {
		return t.Path
	}
	return t.Path + "?" + t.Query.Encode()
}

// Guard decides whether a navigation to a target may proceed.
type Guard interface {
	Name() string
	Check(ctx context.Context, to Target) (Decision, error)
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ctx context.Context, to Target) (Decision, error)

type namedGuard struct {
	name string
	fn   GuardFunc
}

func (g namedGuard) Name() string { return g.name }

func (g namedGuard) Check(ctx context.Context, to Target) (Decision, error) {
	return g.fn(ctx, to)
}

// NewGuard names fn.
func NewGuard(name string, fn GuardFunc) Guard {
	return namedGuard{name: name, fn: fn}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// match reports whether path matches the route pattern and extracts its
// :param segments.
func (r *Route) match(path string) (map[string]string, bool) {
	pattern := splitPath(r.Path)
	segments := splitPath(path)
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			value, err := url.PathUnescape(segments[i])
			if err != nil || value == "" {
				return nil, false
			}
			params[seg[1:]] = value
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// build fills the :param segments of the route pattern.
func (r *Route) build(params map[string]string) string {
	pattern := splitPath(r.Path)
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			pattern[i] = url.PathEscape(params[seg[1:]])
		}
	}
	return "/" + strings.Join(pattern, "/")
}
