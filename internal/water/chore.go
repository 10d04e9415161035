package water

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Range is a closed interval of a water parameter.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r Range) String() string {
	return formatNumber(r.Min) + " - " + formatNumber(r.Max)
}

// Contains reports whether v lies in the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Use groups chores that share an analysis rule set.
type Use string

const (
	UseDrinking  Use = "drinking"
	UseWashing   Use = "washing"
	UseGardening Use = "gardening"
)

// Chore is a household task and the water it ideally needs.
type Chore struct {
	Name          string  `json:"name" yaml:"name"`
	Use           Use     `json:"use" yaml:"use"`
	TDS           Range   `json:"tds" yaml:"tds"`
	Hardness      Range   `json:"hardness" yaml:"hardness"`
	PH            Range   `json:"ph" yaml:"ph"`
	IdealHardness float64 `json:"ideal_hardness_mg_l" yaml:"ideal_hardness"`
	Advice        string  `json:"advice" yaml:"advice"`
}

// DefaultChores is the chore table the service ships with.
func DefaultChores() []Chore {
	return []Chore{
		{
			Name: "Dishwashing (Machine)", Use: UseWashing,
			TDS: Range{50, 150}, Hardness: Range{0, 50}, PH: Range{6.5, 7.5}, IdealHardness: 30,
			Advice: "For automated dishwashing, very soft water (Hardness: < 50 mg/L) is crucial to prevent mineral scaling and ensure detergent effectiveness. Consider adding salt or a water softener to your dishwasher if your source water is hard.",
		},
		{
			Name: "Laundry (Dark Clothes)", Use: UseWashing,
			TDS: Range{100, 300}, Hardness: Range{60, 100}, PH: Range{6.8, 8.0}, IdealHardness: 80,
			Advice: "For dark clothes, water should be moderately soft to prevent detergent residue which can leave white streaks. If your water is too hard, use a softening agent or increase detergent amount slightly.",
		},
		{
			Name: "Making Tea/Coffee", Use: UseDrinking,
			TDS: Range{120, 200}, Hardness: Range{50, 100}, PH: Range{7.0, 7.2}, IdealHardness: 75,
			Advice: "Optimal flavor extraction requires a balanced mineral profile. Hardness should be moderate and pH near neutral to avoid sour or flat tastes. Use filtered water if your source has high TDS (> 300 mg/L).",
		},
		{
			Name: "Watering Plants", Use: UseGardening,
			TDS: Range{50, 300}, Hardness: Range{80, 150}, PH: Range{6.0, 7.5}, IdealHardness: 100,
			Advice: "Most household plants thrive with near-neutral pH water. Keep TDS low (< 300 mg/L) to prevent salt accumulation in the soil. If using tap water, let it sit for 24 hours to allow chlorine to dissipate.",
		},
		{
			Name: "Drinking/Cooking", Use: UseDrinking,
			TDS: Range{100, 300}, Hardness: Range{50, 100}, PH: Range{7.0, 7.5}, IdealHardness: 75,
			Advice: "For the best taste and health, aim for a final water concentration of Ca: 20-50 mg/L and Mg: 10-30 mg/L, maintaining a roughly 2:1 ratio.",
		},
		{
			Name: "Washing/Laundry", Use: UseWashing,
			TDS: Range{0, 300}, Hardness: Range{0, 60}, PH: Range{6.5, 8.5}, IdealHardness: 50,
			Advice: "Soft water is ideal for washing: it prevents scaling and requires less detergent.",
		},
		{
			Name: "Gardening", Use: UseGardening,
			TDS: Range{50, 500}, Hardness: Range{50, 150}, PH: Range{6.0, 7.5}, IdealHardness: 100,
			Advice: "Suitable for general landscaping. Monitor TDS to avoid salt buildup around sensitive plants.",
		},
	}
}

// ChoreTable resolves chore names case-insensitively. It is read-only after construction.
type ChoreTable struct {
	chores map[string]Chore
	names  []string
}

// NewChoreTable validates the chores and indexes them by name.
func NewChoreTable(chores []Chore) (*ChoreTable, error) {
	t := &ChoreTable{chores: make(map[string]Chore, len(chores))}
	for i, c := range chores {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("chores[%d].name", i), "must not be empty")
		}
		for field, r := range map[string]Range{"tds": c.TDS, "hardness": c.Hardness, "ph": c.PH} {
			if r.Min < 0 || r.Max < r.Min {
				return nil, invalid(fmt.Sprintf("chores[%d].%s", i, field), "range %s is invalid", r)
			}
		}
		if c.IdealHardness < 0 {
			return nil, invalid(fmt.Sprintf("chores[%d].ideal_hardness", i), "must not be negative")
		}
		key := strings.ToLower(name)
		if _, dup := t.chores[key]; dup {
			return nil, invalid(fmt.Sprintf("chores[%d].name", i), "duplicate chore %q", name)
		}
		c.Name = name
		t.chores[key] = c
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

// Lookup returns the chore with the given name.
func (t *ChoreTable) Lookup(name string) (Chore, error) {
	c, ok := t.chores[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Chore{}, invalid("chore", "unknown chore %q; choose from: %s", name, strings.Join(t.names, ", "))
	}
	return c, nil
}

// Names returns the chore names in sorted order.
func (t *ChoreTable) Names() []string {
	return append([]string(nil), t.names...)
}

// MaxCalcium is the advisory Ca ceiling if all of the target hardness came from calcium.
func (c Chore) MaxCalcium() float64 {
	return c.Hardness.Max / CalciumFactor
}

// MaxMagnesium is the advisory Mg ceiling if all of the target hardness came from magnesium.
func (c Chore) MaxMagnesium() float64 {
	return c.Hardness.Max / MagnesiumFactor
}

// Recommendation is the chore-specific water guidance for a volume of water.
type Recommendation struct {
	Chore                string              `json:"chore"`
	VolumeLiters         float64             `json:"volume_liters"`
	Area                 string              `json:"area,omitempty"`
	OptimalTDSRange      string              `json:"optimal_tds_range"`
	OptimalHardnessRange string              `json:"optimal_hardness_range"`
	OptimalPHRange       string              `json:"optimal_ph_range"`
	ConversionAdvice     string              `json:"conversion_advice"`
	IdealHardness        float64             `json:"ideal_hardness_mg_l"`
	CurrentHardness      *float64            `json:"current_hardness_mg_l"`
	HardnessSource       string              `json:"hardness_source,omitempty"`
	TargetHardness       float64             `json:"target_hardness_mg_l"`
	NeededReduction      *float64            `json:"needed_reduction_mg_l"`
	Estimates            []TreatmentEstimate `json:"conversion_time_estimates"`
}

// Recommend builds the guidance for a chore. When current is nil no estimates
// are produced. Water already below the target yields a zero reduction
// and no estimates.
func Recommend(c Chore, volume float64, current *float64, devices []Device) (Recommendation, error) {
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume <= 0 {
		return Recommendation{}, invalid("volume_liters", "must be a positive number, got %g", volume)
	}

	rec := Recommendation{
		Chore:                c.Name,
		VolumeLiters:         volume,
		OptimalTDSRange:      c.TDS.String() + " mg/L",
		OptimalHardnessRange: c.Hardness.String() + " mg/L",
		OptimalPHRange:       c.PH.String(),
		ConversionAdvice:     conversionAdvice(c),
		IdealHardness:        c.IdealHardness,
		TargetHardness:       c.IdealHardness,
		Estimates:            []TreatmentEstimate{},
	}
	if current == nil {
		return rec, nil
	}

	rec.CurrentHardness = current
	estimates, err := PlanTreatment(*current, c.IdealHardness, volume, devices)
	var noop *NoReductionNeededError
	switch {
	case errors.As(err, &noop):
		zero := 0.0
		rec.NeededReduction = &zero
		return rec, nil
	case err != nil:
		return Recommendation{}, err
	}
	reduction := round2(*current - c.IdealHardness)
	rec.NeededReduction = &reduction
	rec.Estimates = estimates
	return rec, nil
}

func conversionAdvice(c Chore) string {
	var b strings.Builder
	if c.Advice != "" {
		b.WriteString(c.Advice)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "For %s, the target maximum Hardness is %s mg/L: keep Calcium below %.1f mg/L and Magnesium below %.1f mg/L in the final water. The recommended ideal hardness is %s mg/L CaCO3.",
		c.Name, formatNumber(c.Hardness.Max), c.MaxCalcium(), c.MaxMagnesium(), formatNumber(c.IdealHardness))
	return b.String()
}

// Rating grades how suitable water is for a use.
type Rating string

const (
	RatingExcellent  Rating = "excellent"
	RatingAcceptable Rating = "acceptable"
	RatingPoor       Rating = "poor"
)

// Suitability is a focused analysis of a sample for one chore.
type Suitability struct {
	Chore          string   `json:"chore"`
	Rating         Rating   `json:"rating"`
	Analysis       []string `json:"analysis"`
	Recommendation string   `json:"recommendation"`
	OptimalTDS     string   `json:"optimal_tds_range,omitempty"`
	OptimalHard    string   `json:"optimal_hardness_range,omitempty"`
	OptimalPH      string   `json:"optimal_ph_range,omitempty"`
	CaTarget       string   `json:"ca_target,omitempty"`
	MgTarget       string   `json:"mg_target,omitempty"`
}

// Suitability analyses a sample against the chore's use.
func (c Chore) Suitability(s Sample, hardness float64) Suitability {
	out := Suitability{
		Chore:       c.Name,
		OptimalTDS:  c.TDS.String() + " mg/L",
		OptimalHard: c.Hardness.String() + " mg/L",
		OptimalPH:   c.PH.String(),
		CaTarget:    fmt.Sprintf("Max %.1f mg/L (as CaCO3 equiv.)", c.MaxCalcium()),
		MgTarget:    fmt.Sprintf("Max %.1f mg/L (as CaCO3 equiv.)", c.MaxMagnesium()),
	}

	switch c.Use {
	case UseDrinking:
		switch {
		case s.TDS <= 300:
			out.Rating, out.Recommendation = RatingExcellent, "Excellent for drinking. Low TDS suggests minimal processing is needed."
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): Ideal. Excellent taste and mineral balance.", s.TDS))
		case s.TDS <= 500:
			out.Rating, out.Recommendation = RatingAcceptable, "Good for drinking. Acceptable under WHO limits."
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): Good. Within WHO limits, but may have a noticeable taste.", s.TDS))
		default:
			out.Rating, out.Recommendation = RatingPoor, "Not recommended for drinking. Requires RO/advanced filtration to reduce dissolved solids."
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): Poor. High TDS, risk of bad taste or digestive issues.", s.TDS))
		}
		if s.PH >= phLow && s.PH <= phHigh {
			out.Analysis = append(out.Analysis, fmt.Sprintf("pH (%.1f): Optimal. Perfectly balanced.", s.PH))
		} else {
			out.Analysis = append(out.Analysis, fmt.Sprintf("pH (%.1f): Suboptimal. May cause digestive or metallic taste issues.", s.PH))
		}

	case UseWashing:
		switch {
		case hardness <= 75:
			out.Rating, out.Recommendation = RatingExcellent, "Excellent for washing. Soft water prevents scaling and requires less detergent."
			out.Analysis = append(out.Analysis, fmt.Sprintf("Hardness (%.0f mg/L): Soft. Ideal for all cleaning tasks.", hardness))
		case hardness <= 150:
			out.Rating, out.Recommendation = RatingAcceptable, "Acceptable for washing. May notice minor scale or need slightly more detergent."
			out.Analysis = append(out.Analysis, fmt.Sprintf("Hardness (%.0f mg/L): Moderately Hard. Acceptable, but scale may form.", hardness))
		default:
			out.Rating, out.Recommendation = RatingPoor, "Poor for washing. Highly recommend a Water Softener to protect appliances and clothes."
			out.Analysis = append(out.Analysis, fmt.Sprintf("Hardness (%.0f mg/L): Hard/Very Hard. Causes severe scale, soap curd, and damage to heating elements.", hardness))
		}
		if s.TDS > 800 && hardness <= 150 {
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): Very High. Can leave white residue on surfaces and clothes.", s.TDS))
		}

	case UseGardening:
		switch {
		case s.TDS <= 300:
			out.Rating, out.Recommendation = RatingExcellent, "Excellent for all plants, including sensitive varieties."
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): Ideal. Prevents nutrient lock-out.", s.TDS))
		case s.TDS <= 800:
			out.Rating, out.Recommendation = RatingAcceptable, "Good for general landscaping and hardy plants. Monitor for salt buildup."
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): Acceptable. Avoid prolonged use on sensitive plants.", s.TDS))
		default:
			out.Rating, out.Recommendation = RatingPoor, "Use with caution. High TDS can burn sensitive plants or prevent water uptake."
			out.Analysis = append(out.Analysis, fmt.Sprintf("TDS (%.0f mg/L): High. Only suitable for salt-tolerant plants.", s.TDS))
		}
		if s.Chlorine < 0.5 {
			out.Analysis = append(out.Analysis, fmt.Sprintf("Chlorine (%.2f mg/L): Low. Safe for plants.", s.Chlorine))
		} else {
			out.Analysis = append(out.Analysis, fmt.Sprintf("Chlorine (%.2f mg/L): High. Let water sit overnight or use a de-chlorinator.", s.Chlorine))
		}

	default:
		out.Rating, out.Recommendation = rangeCheck(c, s, hardness, &out.Analysis)
	}
	return out
}

// rangeCheck grades a sample against the chore's own optimal ranges.
func rangeCheck(c Chore, s Sample, hardness float64, analysis *[]string) (Rating, string) {
	misses := 0
	for _, p := range []struct {
		name string
		v    float64
		r    Range
	}{
		{"TDS", s.TDS, c.TDS},
		{"Hardness", hardness, c.Hardness},
		{"pH", s.PH, c.PH},
	} {
		if p.r.Contains(p.v) {
			*analysis = append(*analysis, fmt.Sprintf("%s (%s): within the optimal %s range.", p.name, formatNumber(math.Round(p.v*10)/10), p.r))
			continue
		}
		misses++
		*analysis = append(*analysis, fmt.Sprintf("%s (%s): outside the optimal %s range.", p.name, formatNumber(math.Round(p.v*10)/10), p.r))
	}
	switch misses {
	case 0:
		return RatingExcellent, fmt.Sprintf("Water suits %s as is.", c.Name)
	case 1:
		return RatingAcceptable, fmt.Sprintf("Water is usable for %s; one parameter is outside its optimal range.", c.Name)
	default:
		return RatingPoor, fmt.Sprintf("Water needs treatment before use for %s.", c.Name)
	}
}

// GeneralSuitability is the household overview used when no chore is targeted.
func GeneralSuitability(s Sample, hardness float64) Suitability {
	out := Suitability{Chore: "General Analysis", Rating: RatingExcellent}
	if s.TDS <= 500 {
		out.Analysis = append(out.Analysis, "Drinking/Cooking: Good (within WHO limit).")
	} else {
		out.Rating = RatingPoor
		out.Analysis = append(out.Analysis, "Drinking/Cooking: Not recommended (high TDS). Requires RO/filtration.")
	}
	if hardness <= 150 {
		out.Analysis = append(out.Analysis, "Washing/Laundry: Acceptable (moderately hard or softer).")
	} else {
		if out.Rating == RatingExcellent {
			out.Rating = RatingAcceptable
		}
		out.Analysis = append(out.Analysis, "Washing/Laundry: Poor (hard water causes scale build-up and requires extra detergent).")
	}
	switch out.Rating {
	case RatingExcellent:
		out.Recommendation = "Suitable for everyday household use."
	case RatingAcceptable:
		out.Recommendation = "Drinkable, but soften water used for washing."
	default:
		out.Recommendation = "Treat water before drinking or cooking."
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
