package domain

import (
	"fmt"
	"strings"
)

// Regimen is the fiscal regime of a party.
type Regimen string

const (
	RegimenMonotributo          Regimen = "MONOTRIBUTO"
	RegimenResponsableInscripto Regimen = "RESPONSABLE_INSCRIPTO"
	RegimenExento               Regimen = "EXENTO"
	RegimenConsumidorFinal      Regimen = "CONSUMIDOR_FINAL"
	RegimenOtro                 Regimen = "OTRO"
)

// Regimens lists every regime with its display label.
var Regimens = []struct {
	Value Regimen
	Label string
}{
	{RegimenMonotributo, "Monotributo"},
	{RegimenResponsableInscripto, "Responsable Inscripto"},
	{RegimenExento, "Exento"},
	{RegimenConsumidorFinal, "Consumidor Final"},
	{RegimenOtro, "Otro"},
}

// ParseRegimen accepts any casing of a known regime.
func ParseRegimen(s string) (Regimen, error) {
	r := Regimen(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Regimens {
		if known.Value == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown regimen %q", s)
}
