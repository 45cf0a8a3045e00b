package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/authsvc"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out and manage your password",
	Long: `Manage the finpilot session.

In session mode (the default) finpilot signs in with email and password and
keeps the issued token in the state directory. In identity mode it runs a
device login against the configured identity provider instead.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Start a session",
	Long: `Start a session with the configured authority.

Session mode uses --email and --password, prompting for whatever is missing
when a terminal is attached. Identity mode prints a verification link and a
code, then waits until the login is approved in a browser.

After signing in, finpilot navigates to --return-to and reports whether the
account still needs onboarding.`,
	Example: `  finpilot auth login
  finpilot auth login --email ana@example.com --password "$FINPILOT_PASSWORD"
  finpilot auth login --return-to /invoices/upload`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and start a session",
	Args:  cobra.NoArgs,
	RunE:  runAuthRegister,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Long: `End the session and drop the cached tags. Logging out makes no network
call; it only clears the local state.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authRequestResetCmd = &cobra.Command{
	Use:   "request-reset",
	Short: "Email a password reset code",
	Args:  cobra.NoArgs,
	RunE:  runAuthRequestReset,
}

var authResetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with a reset code",
	Args:  cobra.NoArgs,
	RunE:  runAuthResetPassword,
}

var (
	authEmail    string
	authPassword string
	authReturnTo string
	authName     string
	authCode     string
	authRefresh  bool
)

func init() {
	authLoginCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "account password")
	authLoginCmd.Flags().StringVar(&authReturnTo, "return-to", "/", "route to navigate to after signing in")

	authRegisterCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	authRegisterCmd.Flags().StringVar(&authPassword, "password", "", "account password")
	authRegisterCmd.Flags().StringVar(&authName, "name", "", "display name")

	authStatusCmd.Flags().BoolVar(&authRefresh, "refresh", false, "re-fetch the profile from the server first")

	authRequestResetCmd.Flags().StringVar(&authEmail, "email", "", "account email")

	authResetPasswordCmd.Flags().StringVar(&authCode, "code", "", "reset code from the email")
	authResetPasswordCmd.Flags().StringVar(&authPassword, "password", "", "new password")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRequestResetCmd)
	authCmd.AddCommand(authResetPasswordCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if _, err := env.navigate(ctx, env.routePath(router.Login, nil)); err != nil {
		return err
	}
	landing, err := env.login(ctx, authEmail, authPassword, authReturnTo)
	if err != nil {
		return err
	}

	env.reportLanding(ctx, landing)
	return env.print(statusView(env.authStatus(), env.styles))
}

// reportLanding navigates to path after a login and tells the user what
// the guards decided, without settling any redirect.
func (e *commandEnv) reportLanding(ctx context.Context, path string) {
	res, err := e.app.Navigate(ctx, path)
	if err != nil {
		e.logger.WithError(err).Warn("post-login navigation failed", "path", path)
		return
	}
	switch {
	case res.Decision.IsAllow():
		e.logger.Debug("post-login navigation allowed", "path", res.Target.FullPath())
	case res.Decision.Target == router.Onboarding:
		e.notice("%s", e.styles.Warning.Render("Your account is not onboarded yet. Run 'finpilot onboarding' next."))
	default:
		dest, _ := e.app.Router.DestinationOf(res.Decision)
		e.notice("Redirected to %s", dest)
	}
}

func runAuthRegister(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.app.Session == nil {
		return identityModeError("register")
	}

	ctx := cmd.Context()
	if _, err := env.navigate(ctx, env.routePath(router.Login, nil)); err != nil {
		return err
	}

	email, password := authEmail, authPassword
	if email == "" || password == "" {
		if !env.interactive {
			if email == "" {
				return MissingInputError("email")
			}
			return MissingInputError("password")
		}
		creds, err := tui.PromptForCredentials("Create a finpilot account", email)
		if err != nil {
			return err
		}
		email, password = creds.Email, creds.Password
	}

	_, err = env.app.Session.Register(ctx, authsvc.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     strings.TrimSpace(authName),
		Type:     domain.UserTypeParty,
	})
	if err != nil {
		return err
	}
	env.notice("%s", env.styles.Success.Render(fmt.Sprintf("Registered %s", email)))

	env.reportLanding(ctx, env.routePath(router.Home, nil))
	return env.print(statusView(env.authStatus(), env.styles))
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.app.Logout(cmd.Context()); err != nil {
		return err
	}
	env.notice("Logged out")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if authRefresh && env.app.Authority().IsAuthenticated() {
		var err error
		if env.app.Session != nil {
			err = env.app.Session.RefreshUser(ctx)
		} else {
			_, err = env.app.Identity.RefreshOnboarded(ctx)
		}
		if err != nil {
			env.logger.WithError(err).Warn("profile refresh failed")
		}
	}

	return env.print(statusView(env.authStatus(), env.styles))
}

func runAuthRequestReset(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.app.Session == nil {
		return identityModeError("request-reset")
	}

	email := authEmail
	if email == "" {
		if !env.interactive {
			return MissingInputError("email")
		}
		if email, err = tui.PromptForString(tui.Prompt{Message: "Email", Required: true}); err != nil {
			return err
		}
	}

	if err := env.app.Session.RequestPasswordReset(cmd.Context(), email); err != nil {
		return err
	}
	env.notice("If %s has an account, a reset code is on its way.", email)
	return nil
}

func runAuthResetPassword(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.app.Session == nil {
		return identityModeError("reset-password")
	}
	if authCode == "" {
		return MissingInputError("code")
	}

	password := authPassword
	if password == "" {
		if !env.interactive {
			return MissingInputError("password")
		}
		if password, err = tui.PromptForPassword("New password"); err != nil {
			return err
		}
	}

	if err := env.app.Session.ResetPassword(cmd.Context(), authCode, password); err != nil {
		return err
	}
	env.notice("Password updated. Run 'finpilot auth login' to sign in.")
	return nil
}

// authStatus summarizes the active authority.
func (e *commandEnv) authStatus() AuthStatus {
	a := e.app.Authority()
	st := AuthStatus{
		Mode:          string(e.cfg.AuthMode),
		Authenticated: a.IsAuthenticated(),
		Onboarded:     a.IsOnboarded(),
	}

	if e.app.Identity != nil {
		st.Email = e.app.Identity.Claims().Email()
		if exp := e.app.Identity.Expiry(); !exp.IsZero() {
			st.ExpiresAt = &exp
		}
		return st
	}

	snap := e.app.Session.Snapshot()
	if snap.User != nil {
		st.Email = snap.User.Email
	}
	if snap.Company != nil {
		st.Company = snap.Company.Name
	}
	if snap.Party != nil {
		st.Party = snap.Party.Name
	}
	return st
}

func identityModeError(command string) error {
	return errors.New(errors.ErrCodeValidation, fmt.Sprintf("'auth %s' is not available in identity mode", command)).
		WithSuggestion("Manage your account with the identity provider, or set auth_mode: session")
}
