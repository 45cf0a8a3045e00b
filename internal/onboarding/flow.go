// Package onboarding registers the party profile of a new user and waits
// until the server-side onboarded status is visible.
package onboarding

import (
	"context"
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/apiclient"
	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
	"github.com/skaznowiecki/finpilot-sanos/internal/log"
	"github.com/skaznowiecki/finpilot-sanos/internal/metrics"
)

// Onboarder submits the onboarding request.
type Onboarder interface {
	OnboardParty(ctx context.Context, req Request) (*Response, error)
}

// Flow validates, submits and confirms an onboarding.
type Flow struct {
	API       Onboarder
	CompanyID string
	Confirmer Confirmer
	// Reinitialize reloads the session authority on OutcomeReload.
	Reinitialize func(ctx context.Context) error
	Localizer    *i18n.Localizer
	Logger       *log.Logger
	Metrics      *metrics.Metrics
}

// Submit validates form, submits it and waits for confirmation. A form
// that fails validation makes no network call.
func (f *Flow) Submit(ctx context.Context, form Form) (Outcome, error) {
	logger := log.OrDefault(f.Logger).WithComponent("onboarding")

	if err := form.Validate(f.Localizer); err != nil {
		f.Metrics.ObserveOnboarding("invalid")
		return OutcomeHome, err
	}
	if strings.TrimSpace(f.CompanyID) == "" {
		f.Metrics.ObserveOnboarding("error")
		err := errors.NewCompanyIDMissingError()
		err.Message = f.Localizer.T(i18n.OnboardingCompanyMissing)
		return OutcomeHome, err
	}

	_, err := f.API.OnboardParty(ctx, Request{
		PartyType: domain.PartyTypeSupplier,
		TaxID:     form.TaxID,
		TaxIDType: form.TaxIDType,
		Name:      form.Name,
		Regimen:   form.Regimen,
		CompanyID: f.CompanyID,
	})
	if err != nil {
		logger.WithError(err).Error("onboarding submission failed")
		f.Metrics.ObserveOnboarding("error")
		msg := apiclient.ExtractErrorMessage(err, f.Localizer.T(i18n.OnboardingSubmitFailed))
		return OutcomeHome, errors.Wrap(errors.ErrCodeOnboardingRejected, msg, err)
	}

	outcome := f.Confirmer.Confirm(ctx)
	f.Metrics.ObserveOnboarding(outcome.String())
	if outcome == OutcomeReload && f.Reinitialize != nil {
		if err := f.Reinitialize(ctx); err != nil {
			logger.WithError(err).Warn("re-initializing session after onboarding failed")
		}
	}
	return outcome, nil
}
