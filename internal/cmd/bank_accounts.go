package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/party"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
)

var bankAccountsCmd = &cobra.Command{
	Use:     "bank-accounts",
	Aliases: []string{"bank"},
	Short:   "Manage the payout accounts of your party",
}

var bankAccountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bank accounts",
	Args:  cobra.NoArgs,
	RunE:  runBankAccountsList,
}

var bankAccountsCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Add a bank account",
	Example: `  finpilot bank-accounts create --bank "Banco Nación" --account 0110599520000001234567 --primary`,
	Args:    cobra.NoArgs,
	RunE:    runBankAccountsCreate,
}

var bankAccountsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a bank account",
	Args:  cobra.ExactArgs(1),
	RunE:  runBankAccountsUpdate,
}

var bankAccountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a bank account",
	Args:  cobra.ExactArgs(1),
	RunE:  runBankAccountsDelete,
}

var (
	bankName    string
	bankAccount string
	bankPrimary bool
	bankYes     bool
)

func init() {
	for _, c := range []*cobra.Command{bankAccountsCreateCmd, bankAccountsUpdateCmd} {
		c.Flags().StringVar(&bankName, "bank", "", "bank name")
		c.Flags().StringVar(&bankAccount, "account", "", "account number or CBU")
		c.Flags().BoolVar(&bankPrimary, "primary", false, "use as the primary account")
	}
	bankAccountsDeleteCmd.Flags().BoolVarP(&bankYes, "yes", "y", false, "do not ask for confirmation")

	bankAccountsCmd.AddCommand(bankAccountsListCmd)
	bankAccountsCmd.AddCommand(bankAccountsCreateCmd)
	bankAccountsCmd.AddCommand(bankAccountsUpdateCmd)
	bankAccountsCmd.AddCommand(bankAccountsDeleteCmd)
	rootCmd.AddCommand(bankAccountsCmd)
}

func runBankAccountsList(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		if _, err := env.app.Party.FetchParty(ctx); err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		return env.print(bankAccountsTable(env.app.Party.Snapshot().BankAccounts))
	})
}

// bankAccountRequest carries only the flags that were set.
func bankAccountRequest(cmd *cobra.Command) party.BankAccountRequest {
	var req party.BankAccountRequest
	if cmd.Flags().Changed("bank") {
		req.BankName = &bankName
	}
	if cmd.Flags().Changed("account") {
		req.AccountNumber = &bankAccount
	}
	if cmd.Flags().Changed("primary") {
		req.IsPrimary = &bankPrimary
	}
	return req
}

func runBankAccountsCreate(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	req := bankAccountRequest(cmd)
	if req.BankName == nil {
		return MissingInputError("bank")
	}
	if req.AccountNumber == nil {
		return MissingInputError("account")
	}

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		acc, err := env.app.Party.CreateBankAccount(ctx, req)
		if err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		env.notice("%s", env.styles.Success.Render("Bank account added"))
		return env.print(bankAccountsTable([]domain.BankAccount{*acc}))
	})
}

func runBankAccountsUpdate(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	req := bankAccountRequest(cmd)
	if req == (party.BankAccountRequest{}) {
		return errors.New(errors.ErrCodeValidation, "nothing to update").
			WithSuggestion("Pass at least one of --bank, --account or --primary")
	}

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		acc, err := env.app.Party.UpdateBankAccount(ctx, args[0], req)
		if err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		env.notice("%s", env.styles.Success.Render("Bank account updated"))
		return env.print(bankAccountsTable([]domain.BankAccount{*acc}))
	})
}

func runBankAccountsDelete(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	id := args[0]
	if !bankYes {
		if !env.interactive {
			return MissingInputError("yes")
		}
		ok, err := tui.PromptForConfirmation(fmt.Sprintf("Delete bank account %s?", id), false)
		if err != nil {
			return err
		}
		if !ok {
			env.notice("Cancelled")
			return nil
		}
	}

	return env.guarded(cmd.Context(), env.routePath(router.Settings, nil), func(ctx context.Context, _ router.Target) error {
		if err := env.app.Party.DeleteBankAccount(ctx, id); err != nil {
			return LocalizedError(env.app.Party.Snapshot().Err, err)
		}
		env.notice("%s", env.styles.Success.Render("Bank account deleted"))
		return nil
	})
}
