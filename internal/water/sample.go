package water

import (
	"context"
	"math"
	"time"
)

// Sample is a point-in-time water reading for an area.
type Sample struct {
	Area      string    `json:"area"`
	Timestamp time.Time `json:"timestamp"`
	TDS       float64   `json:"TDS"`
	PH        float64   `json:"pH"`
	Ca        float64   `json:"Ca"`
	Mg        float64   `json:"Mg"`
	Turbidity float64   `json:"turbidity"`
	Chlorine  float64   `json:"chlorine"`
	// Partial marks a reading missing pH, Ca, Mg, turbidity or chlorine.
	// Only its TDS is meaningful.
	Partial bool `json:"partial,omitempty"`
}

// Validate checks every numeric field against its physical range.
func (s Sample) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"TDS", s.TDS},
		{"Ca", s.Ca},
		{"Mg", s.Mg},
		{"turbidity", s.Turbidity},
		{"chlorine", s.Chlorine},
	} {
		if err := checkConcentration(f.name, f.v); err != nil {
			return err
		}
	}
	if math.IsNaN(s.PH) || s.PH < 0 || s.PH > 14 {
		return invalid("pH", "must be within 0-14, got %g", s.PH)
	}
	return nil
}

// Hardness returns the sample's total hardness as CaCO₃.
func (s Sample) Hardness() (float64, error) {
	return CalculateHardness(s.Ca, s.Mg)
}

// HistoryProvider returns the samples recorded for an area within the last
// hours. An empty slice means no live history exists.
type HistoryProvider interface {
	History(ctx context.Context, area string, hours int) ([]Sample, error)
}

// AreaLister lists the area names known to a data source.
type AreaLister interface {
	Areas(ctx context.Context) ([]string, error)
}
