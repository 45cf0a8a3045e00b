package cmd

import (
	"context"
	"fmt"

	"github.com/skaznowiecki/finpilot-sanos/internal/authsvc"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
)

// maxRedirects bounds how many guard redirects one command settles.
const maxRedirects = 3

// navigate runs the guard chain of path. Redirects to Login and Onboarding
// are settled interactively when a terminal is attached; otherwise they
// become errors that tell the user which command to run.
func (e *commandEnv) navigate(ctx context.Context, path string) (router.Target, error) {
	requested := path
	for hop := 0; hop <= maxRedirects; hop++ {
		res, err := e.app.Navigate(ctx, path)
		if err != nil {
			return router.Target{}, err
		}
		if res.Superseded {
			return router.Target{}, errors.New(errors.ErrCodeSuperseded, fmt.Sprintf("navigation to %s was superseded", path))
		}

		d := res.Decision
		if d.IsAllow() {
			return res.Target, nil
		}

		switch d.Target {
		case router.Login:
			returnTo := d.State.ReturnTo
			if returnTo == "" {
				returnTo = path
			}
			if !e.interactive {
				return router.Target{}, errors.NewNotAuthenticatedError(returnTo)
			}
			next, err := e.login(ctx, "", "", returnTo)
			if err != nil {
				return router.Target{}, err
			}
			path = next
		case router.Onboarding:
			if !e.interactive {
				return router.Target{}, errors.NewNotOnboardedError()
			}
			e.notice("Your account is not onboarded yet.")
			if err := e.onboard(ctx, nil); err != nil {
				return router.Target{}, err
			}
		default:
			if res.Target.Name() == router.Onboarding {
				return router.Target{}, errors.NewAlreadyOnboardedError()
			}
			dest, _ := e.app.Router.DestinationOf(d)
			return router.Target{}, RedirectError(requested, dest)
		}
	}
	return router.Target{}, errors.New(errors.ErrCodeRouteNotFound,
		fmt.Sprintf("too many redirects navigating to %s", requested))
}

// guarded navigates to path and runs fn there. When fn fails because the
// API rejected the session, the queued login redirect is settled and fn
// runs once more.
func (e *commandEnv) guarded(ctx context.Context, path string, fn func(ctx context.Context, to router.Target) error) error {
	to, err := e.navigate(ctx, path)
	if err != nil {
		return err
	}

	err = fn(ctx, to)
	if err == nil {
		return nil
	}

	d, queued := e.app.Router.Pending()
	if !queued {
		return err
	}
	if !e.interactive {
		authErr := errors.NewNotAuthenticatedError(d.State.ReturnTo)
		authErr.Cause = err
		return authErr
	}

	e.logger.Debug("session rejected; settling login redirect", "return_to", d.State.ReturnTo)
	if to, err = e.navigate(ctx, path); err != nil {
		return err
	}
	return fn(ctx, to)
}

// routePath builds the path of a named route.
func (e *commandEnv) routePath(name router.Name, params map[string]string) string {
	path, err := e.app.Router.PathFor(name, params)
	if err != nil {
		// Route names are compile-time constants of the route table.
		panic(err)
	}
	return path
}

// login starts a session with the active authority and returns the path to
// resume at, which is returnTo unless the login flow says otherwise. In
// session mode the credentials are prompted for when missing; in identity
// mode a device login is started and awaited.
func (e *commandEnv) login(ctx context.Context, email, password, returnTo string) (string, error) {
	if e.app.Identity != nil {
		return e.deviceLogin(ctx, returnTo)
	}

	if password == "" {
		if !e.interactive {
			return "", MissingInputError("password")
		}
		creds, err := tui.PromptForCredentials("Sign in to finpilot", email)
		if err != nil {
			return "", err
		}
		email, password = creds.Email, creds.Password
	}
	if email == "" {
		return "", MissingInputError("email")
	}

	if _, err := e.app.Session.Login(ctx, authsvc.LoginRequest{Email: email, Password: password}); err != nil {
		return "", err
	}
	e.notice("%s", e.styles.Success.Render(fmt.Sprintf("Logged in as %s", email)))
	return returnTo, nil
}

// deviceLogin runs the device authorization flow of the identity provider
// and waits until the user approves it. The challenge carries returnTo
// through the wait.
func (e *commandEnv) deviceLogin(ctx context.Context, returnTo string) (string, error) {
	ch, err := e.app.Identity.BeginLogin(ctx, returnTo)
	if err != nil {
		return "", err
	}

	link := ch.VerificationURIComplete
	if link == "" {
		link = ch.VerificationURI
	}
	fmt.Fprintln(e.errOut, e.styles.RenderFields("Device login", []tui.Field{
		{Label: "Open", Value: link},
		{Label: "Code", Value: e.styles.Code.Render(ch.UserCode)},
		{Label: "Expires", Value: ch.Expiry.Local().Format("15:04:05")},
	}))

	var next string
	err = tui.Wait(ctx, "Waiting for the login to be approved", func(ctx context.Context) error {
		var err error
		next, err = e.app.Identity.CompleteLogin(ctx, ch)
		return err
	})
	if err != nil {
		return "", err
	}

	email := e.app.Identity.Claims().Email()
	e.notice("%s", e.styles.Success.Render(fmt.Sprintf("Logged in as %s", email)))
	if next == "" {
		next = returnTo
	}
	return next, nil
}
