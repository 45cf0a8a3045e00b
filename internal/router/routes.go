package router

// AppRoutes returns the application route table.
func AppRoutes(a Authority) []*Route {
	protected := func() []Guard {
		return []Guard{AuthGuard(a), OnboardingGuard(a)}
	}
	return []*Route{
		{Name: Home, Path: "/", RedirectTo: Invoices},
		{Name: Login, Path: "/login", Public: true},
		{Name: Callback, Path: "/callback", Public: true},
		{Name: Settings, Path: "/settings", Guards: protected()},
		{Name: Invoices, Path: "/invoices", Guards: protected()},
		{Name: InvoiceUpload, Path: "/invoices/upload", Guards: protected()},
		{Name: InvoiceDetail, Path: "/invoices/:id", Guards: protected()},
		{Name: Tags, Path: "/tags", Guards: protected()},
		{Name: Onboarding, Path: "/onboarding", Guards: []Guard{AuthGuard(a), PreventIfOnboarded(a)}},
	}
}

// NewApp builds a router with the application routes and the global guard.
func NewApp(a Authority, opts ...Option) *Router {
	r := New(opts...)
	r.Use(GlobalGuard(a))
	r.Add(AppRoutes(a)...)
	return r
}
