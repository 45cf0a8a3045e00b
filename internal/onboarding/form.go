package onboarding

import (
	"strings"

	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/i18n"
)

// Form is the onboarding input.
type Form struct {
	Name      string
	TaxID     string
	TaxIDType domain.TaxIDType
	Regimen   domain.Regimen
}

// NewForm returns a form with the default identifier type and regime.
func NewForm() Form {
	return Form{
		TaxIDType: domain.TaxIDCUIT,
		Regimen:   domain.RegimenResponsableInscripto,
	}
}

// SetTaxID keeps only the digits of v.
func (f *Form) SetTaxID(v string) {
	f.TaxID = domain.DigitsOnly(v)
}

// CanSubmit reports whether the required fields are filled in.
func (f Form) CanSubmit() bool {
	return strings.TrimSpace(f.Name) != "" && strings.TrimSpace(f.TaxID) != ""
}

// Validate checks the form and returns the first problem as a localized
// VALIDATION error.
func (f Form) Validate(l *i18n.Localizer) error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New(errors.ErrCodeValidation, l.T(i18n.OnboardingNameRequired))
	}
	if strings.TrimSpace(f.TaxID) == "" {
		return errors.New(errors.ErrCodeValidation, l.T(i18n.OnboardingTaxIDRequired))
	}
	if want := f.TaxIDType.RequiredDigits(); want > 0 && len(f.TaxID) != want {
		return errors.New(errors.ErrCodeValidation, l.T(i18n.OnboardingTaxIDLength, f.TaxIDType.String(), want))
	}
	return nil
}
