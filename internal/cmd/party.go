package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/party"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
)

var partyCmd = &cobra.Command{
	Use:   "party",
	Short: "Show and edit your party profile",
	Long: `Show and edit the party profile of the signed-in user. These commands
navigate to the settings route, so they need a session and a finished
onboarding.`,
}

var partyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the party profile and its bank accounts",
	Args:  cobra.NoArgs,
	RunE:  runPartyShow,
}

var partyUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Long: `Update profile fields. Only the flags you pass are sent; everything else
keeps its current value.`,
	Example: `  finpilot party update --address "Av. Corrientes 1234" --regimen monotributo`,
	Args:    cobra.NoArgs,
	RunE:    runPartyUpdate,
}

var partyChangePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change your password",
	Args:  cobra.NoArgs,
	RunE:  runPartyChangePassword,
}

var (
	partyName     string
	partyEmail    string
	partyAddress  string
	partyCategory string
	partyRegimen  string

	partyPassword string
	partyConfirm  string
)

func init() {
	partyUpdateCmd.Flags().StringVar(&partyName, "name", "", "name")
	partyUpdateCmd.Flags().StringVar(&partyEmail, "email", "", "contact email")
	partyUpdateCmd.Flags().StringVar(&partyAddress, "address", "", "address")
	partyUpdateCmd.Flags().StringVar(&partyCategory, "category", "", "category")
	partyUpdateCmd.Flags().StringVar(&partyRegimen, "regimen", "", "fiscal regime")

	partyChangePasswordCmd.Flags().StringVar(&partyPassword, "password", "", "new password")
	partyChangePasswordCmd.Flags().StringVar(&partyConfirm, "confirm", "", "new password again")

	partyCmd.AddCommand(partyShowCmd)
	partyCmd.AddCommand(partyUpdateCmd)
	partyCmd.AddCommand(partyChangePasswordCmd)
	rootCmd.AddCommand(partyCmd)
}

func runPartyShow(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		p, err := env.app.Party.FetchParty(ctx)
		if err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		return env.print(partyView(p, env.app.Party.Snapshot().BankAccounts, env.styles))
	})
}

func runPartyUpdate(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	req, err := partyUpdateRequest(cmd)
	if err != nil {
		return err
	}

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		p, err := env.app.Party.UpdateParty(ctx, req)
		if err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		env.notice("%s", env.styles.Success.Render("Profile updated"))
		return env.print(partyView(p, nil, env.styles))
	})
}

// partyUpdateRequest carries only the flags that were set.
func partyUpdateRequest(cmd *cobra.Command) (party.UpdateRequest, error) {
	var req party.UpdateRequest
	flags := cmd.Flags()
	if flags.Changed("name") {
		req.Name = &partyName
	}
	if flags.Changed("email") {
		req.Email = &partyEmail
	}
	if flags.Changed("address") {
		req.Address = &partyAddress
	}
	if flags.Changed("category") {
		req.Category = &partyCategory
	}
	if flags.Changed("regimen") {
		r, err := domain.ParseRegimen(partyRegimen)
		if err != nil {
			return req, InvalidValueError("regimen", err)
		}
		req.Regimen = &r
	}
	if req == (party.UpdateRequest{}) {
		return req, errors.New(errors.ErrCodeValidation, "nothing to update").
			WithSuggestion("Pass at least one of --name, --email, --address, --category or --regimen")
	}
	return req, nil
}

func runPartyChangePassword(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	password, confirm := partyPassword, partyConfirm
	if password == "" {
		if !env.interactive {
			return MissingInputError("password")
		}
		if password, err = tui.PromptForPassword("New password"); err != nil {
			return err
		}
		if confirm, err = tui.PromptForPassword("Confirm new password"); err != nil {
			return err
		}
	}

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		if err := env.app.Party.ChangePassword(ctx, password, confirm); err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		env.notice("%s", env.styles.Success.Render("Password changed"))
		return nil
	})
}
