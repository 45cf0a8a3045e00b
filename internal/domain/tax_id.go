package domain

import (
	"fmt"
	"strings"
)

// TaxIDType identifies the kind of Argentine tax identifier.
type TaxIDType string

const (
	TaxIDCUIT      TaxIDType = "CUIT"
	TaxIDCUIL      TaxIDType = "CUIL"
	TaxIDDNI       TaxIDType = "DNI"
	TaxIDPassport  TaxIDType = "PASSPORT"
	TaxIDForeignID TaxIDType = "FOREIGN_ID"
	TaxIDOther     TaxIDType = "OTHER"
)

// OnboardingTaxIDTypes are the identifier types accepted during onboarding.
var OnboardingTaxIDTypes = []TaxIDType{TaxIDCUIT, TaxIDCUIL, TaxIDDNI}

// ParseTaxIDType accepts any casing of a known type.
func ParseTaxIDType(s string) (TaxIDType, error) {
	t := TaxIDType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TaxIDCUIT, TaxIDCUIL, TaxIDDNI, TaxIDPassport, TaxIDForeignID, TaxIDOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown tax id type %q", s)
}

// RequiredDigits is the exact digit count a type demands, or 0 if unconstrained.
func (t TaxIDType) RequiredDigits() int {
	switch t {
	case TaxIDCUIT, TaxIDCUIL:
		return 11
	case TaxIDDNI:
		return 8
	default:
		return 0
	}
}

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// String returns the string representation
func (t TaxIDType) String() string {
	return string(t)
}
