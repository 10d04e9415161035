package water

import "math"

// Molar-mass conversion factors from Ca²⁺ and Mg²⁺ to CaCO₃ equivalent.
const (
	CalciumFactor   = 2.497
	MagnesiumFactor = 4.118
)

// CalculateHardness returns total hardness in mg/L as CaCO₃.
func CalculateHardness(ca, mg float64) (float64, error) {
	if err := checkConcentration("Ca", ca); err != nil {
		return 0, err
	}
	if err := checkConcentration("Mg", mg); err != nil {
		return 0, err
	}
	return CalciumFactor*ca + MagnesiumFactor*mg, nil
}

func checkConcentration(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite number")
	}
	if v < 0 {
		return invalid(field, "must not be negative, got %g", v)
	}
	return nil
}
