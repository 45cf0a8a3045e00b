package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/onboarding"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
)

var onboardingCmd = &cobra.Command{
	Use:   "onboarding",
	Short: "Register your party profile",
	Long: `Register the party profile of the signed-in user with the configured
company. The tax identifier is reduced to its digits and must have 11 digits
for CUIT and CUIL, or 8 for DNI.

After submitting, finpilot waits until the server reports the account as
onboarded. Missing values are prompted for when a terminal is attached.`,
	Example: `  finpilot onboarding
  finpilot onboarding --name "Acme SRL" --tax-id 20-12345678-9 --regimen monotributo`,
	Args: cobra.NoArgs,
	RunE: runOnboarding,
}

var (
	onboardingName      string
	onboardingTaxID     string
	onboardingTaxIDType string
	onboardingRegimen   string
)

func init() {
	onboardingCmd.Flags().StringVar(&onboardingName, "name", "", "legal or trade name")
	onboardingCmd.Flags().StringVar(&onboardingTaxID, "tax-id", "", "tax identifier; non-digits are dropped")
	onboardingCmd.Flags().StringVar(&onboardingTaxIDType, "tax-id-type", string(domain.TaxIDCUIT), "CUIT, CUIL or DNI")
	onboardingCmd.Flags().StringVar(&onboardingRegimen, "regimen", string(domain.RegimenResponsableInscripto), "fiscal regime")

	rootCmd.AddCommand(onboardingCmd)
}

func runOnboarding(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	form, err := onboardingFormFromFlags()
	if err != nil {
		return err
	}

	path := env.routePath(router.Onboarding, nil)
	return env.guarded(cmd.Context(), path, func(ctx context.Context, _ router.Target) error {
		if err := env.onboard(ctx, form); err != nil {
			return err
		}
		return env.print(statusView(env.authStatus(), env.styles))
	})
}

// onboardingFormFromFlags returns the flag values as a form, or nil when
// the required ones are missing and must be prompted for.
func onboardingFormFromFlags() (*onboarding.Form, error) {
	form := onboarding.NewForm()

	typ, err := domain.ParseTaxIDType(onboardingTaxIDType)
	if err != nil {
		return nil, InvalidValueError("tax-id-type", err)
	}
	regimen, err := domain.ParseRegimen(onboardingRegimen)
	if err != nil {
		return nil, InvalidValueError("regimen", err)
	}
	form.TaxIDType = typ
	form.Regimen = regimen

	if onboardingName == "" || onboardingTaxID == "" {
		return nil, nil
	}
	form.Name = onboardingName
	form.SetTaxID(onboardingTaxID)
	return &form, nil
}

// onboard submits form, prompting for it first when nil, and fails when
// the onboarded status is still not visible afterwards.
func (e *commandEnv) onboard(ctx context.Context, form *onboarding.Form) error {
	if form == nil {
		if !e.interactive {
			return MissingInputError("name")
		}
		prompted, err := promptOnboardingForm()
		if err != nil {
			return err
		}
		form = &prompted
	}

	var outcome onboarding.Outcome
	err := tui.Wait(ctx, "Registering your profile", func(ctx context.Context) error {
		var err error
		outcome, err = e.app.Onboarding.Submit(ctx, *form)
		return err
	})
	if err != nil {
		return err
	}
	e.logger.Debug("onboarding submitted", "outcome", outcome.String())

	if !e.app.Authority().IsOnboarded() {
		return errors.New(errors.ErrCodeOnboardingUnseen, "onboarding was submitted but is not visible yet").
			WithSuggestion("Wait a moment, then run 'finpilot auth status'")
	}
	e.notice("%s", e.styles.Success.Render(fmt.Sprintf("Onboarding complete for %s", form.Name)))
	return nil
}

func promptOnboardingForm() (onboarding.Form, error) {
	form := onboarding.NewForm()

	name, err := tui.PromptForString(tui.Prompt{Message: "Name", Required: true})
	if err != nil {
		return form, err
	}
	form.Name = name

	typeOptions := make([]tui.Option, 0, len(domain.OnboardingTaxIDTypes))
	for _, t := range domain.OnboardingTaxIDTypes {
		typeOptions = append(typeOptions, tui.Option{Label: t.String(), Value: t.String()})
	}
	typ, err := tui.PromptForSelect("Tax identifier type", typeOptions)
	if err != nil {
		return form, err
	}
	form.TaxIDType = domain.TaxIDType(typ)

	taxID, err := tui.PromptForString(tui.Prompt{
		Message:  "Tax identifier",
		Required: true,
		Validate: func(v string) error {
			want := form.TaxIDType.RequiredDigits()
			if got := len(domain.DigitsOnly(v)); want > 0 && got != want {
				return fmt.Errorf("%s needs %d digits, got %d", form.TaxIDType, want, got)
			}
			return nil
		},
	})
	if err != nil {
		return form, err
	}
	form.SetTaxID(taxID)

	regimenOptions := make([]tui.Option, 0, len(domain.Regimens))
	for _, r := range domain.Regimens {
		regimenOptions = append(regimenOptions, tui.Option{Label: r.Label, Value: string(r.Value)})
	}
	regimen, err := tui.PromptForSelect("Fiscal regime", regimenOptions)
	if err != nil {
		return form, err
	}
	form.Regimen = domain.Regimen(regimen)

	return form, nil
}
