package water

import (
	"fmt"
	"sort"
	"strings"
)

// QualityClass is the hardness class of a water sample.
type QualityClass string

const (
	Soft           QualityClass = "Soft"
	ModeratelyHard QualityClass = "Moderately Hard"
	Hard           QualityClass = "Hard"
	VeryHard       QualityClass = "Very Hard"
)

// Hardness class boundaries in mg/L as CaCO₃. Each class is closed below and open above.
const (
	moderatelyHardFrom = 60.0
	hardFrom           = 120.0
	veryHardFrom       = 180.0
)

// ClassifyHardness maps a hardness value to exactly one QualityClass.
func ClassifyHardness(hardness float64) QualityClass {
	switch {
	case hardness < moderatelyHardFrom:
		return Soft
	case hardness < hardFrom:
		return ModeratelyHard
	case hardness < veryHardFrom:
		return Hard
	default:
		return VeryHard
	}
}

// ParseQualityClass accepts the class names case-insensitively. "Safe" is a synonym of Soft.
func ParseQualityClass(s string) (QualityClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "soft", "safe":
		return Soft, true
	case "moderately hard":
		return ModeratelyHard, true
	case "hard":
		return Hard, true
	case "very hard":
		return VeryHard, true
	}
	return "", false
}

// TDSBand is the regulatory band of a TDS reading.
type TDSBand string

const (
	TDSExcellent    TDSBand = "Excellent"
	TDSGood         TDSBand = "Good"
	TDSFair         TDSBand = "Fair"
	TDSPoor         TDSBand = "Poor"
	TDSUnacceptable TDSBand = "Unacceptable"
)

// ClassifyTDS maps a TDS reading in mg/L to its band.
func ClassifyTDS(tds float64) TDSBand {
	switch {
	case tds < 300:
		return TDSExcellent
	case tds < 600:
		return TDSGood
	case tds < 900:
		return TDSFair
	case tds < 1200:
		return TDSPoor
	default:
		return TDSUnacceptable
	}
}

// Severity orders alert conditions; higher wins.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityAdvisory
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityAdvisory:
		return "advisory"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "none"
	}
}

// MarshalText renders the severity by name in JSON.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	phLow              = 6.5
	phHigh             = 8.5
	turbidityLimitNTU  = 5.0
	chlorineResidualLo = 0.2
	chlorineCheckTDS   = 500.0
)

// conditions is the classification input the rule table is keyed by.
type conditions struct {
	sample      Sample
	hardness    float64
	class       QualityClass
	band        TDSBand
	phOut       bool
	turbid      bool
	lowChlorine bool
}

type rule struct {
	severity Severity
	applies  func(c conditions) bool
	alert    func(c conditions) string
	action   string
}

// rules is ordered by severity, then by precedence among equals.
var rules = []rule{
	{
		severity: SeverityCritical,
		applies:  func(c conditions) bool { return c.phOut },
		alert: func(c conditions) string {
			if c.sample.PH < phLow {
				return fmt.Sprintf("Low pH (%.1f). Water is acidic.", c.sample.PH)
			}
			return fmt.Sprintf("High pH (%.1f). Water is too alkaline.", c.sample.PH)
		},
		action: "pH is outside the 6.5-8.5 range. Recommend **pH correction** (neutralizing filter for acidic water, RO for alkaline water) before use.",
	},
	{
		severity: SeverityCritical,
		applies:  func(c conditions) bool { return c.band == TDSUnacceptable },
		alert: func(c conditions) string {
			return fmt.Sprintf("Unacceptable TDS (%.0f mg/L) detected.", c.sample.TDS)
		},
		action: "TDS is above 1200 mg/L. Water is unfit for drinking; a **Reverse Osmosis (RO)** system is required.",
	},
	{
		severity: SeverityCritical,
		applies:  func(c conditions) bool { return c.class == VeryHard },
		alert: func(c conditions) string {
			return fmt.Sprintf("Very hard water (%.0f mg/L as CaCO3) detected.", c.hardness)
		},
		action: "High hardness detected. Recommend a **Water Softener** or Reverse Osmosis (RO) system to prevent scaling.",
	},
	{
		severity: SeverityWarning,
		applies:  func(c conditions) bool { return c.turbid },
		alert: func(c conditions) string {
			return fmt.Sprintf("Critical Turbidity (%.1f NTU) detected.", c.sample.Turbidity)
		},
		action: "High turbidity indicates suspended solids. Recommend a **Sediment Filter**.",
	},
	{
		severity: SeverityWarning,
		applies:  func(c conditions) bool { return c.band == TDSPoor },
		alert: func(c conditions) string {
			return fmt.Sprintf("High TDS (%.0f mg/L) detected.", c.sample.TDS)
		},
		action: "High TDS level. Recommend **Reverse Osmosis (RO)** system.",
	},
	{
		severity: SeverityWarning,
		applies:  func(c conditions) bool { return c.class == Hard },
		alert: func(c conditions) string {
			return fmt.Sprintf("Hard water (%.0f mg/L as CaCO3) detected.", c.hardness)
		},
		action: "High hardness detected. Recommend a **Water Softener** or Reverse Osmosis (RO) system to prevent scaling.",
	},
	{
		severity: SeverityAdvisory,
		applies:  func(c conditions) bool { return c.band == TDSFair },
		alert: func(c conditions) string {
			return fmt.Sprintf("Elevated TDS (%.0f mg/L).", c.sample.TDS)
		},
		action: "TDS is above the recommended limit for drinking. Consider RO or activated-carbon filtration.",
	},
	{
		severity: SeverityAdvisory,
		applies:  func(c conditions) bool { return c.lowChlorine },
		alert: func(c conditions) string {
			return fmt.Sprintf("Low Chlorine residual (%.2f mg/L).", c.sample.Chlorine)
		},
		action: "Disinfection residual is low. Boil or disinfect water before drinking.",
	},
	{
		severity: SeverityAdvisory,
		applies:  func(c conditions) bool { return c.class == ModeratelyHard },
		alert: func(c conditions) string {
			return fmt.Sprintf("Moderately hard water (%.0f mg/L as CaCO3).", c.hardness)
		},
		action: "Minor scaling possible. Descale appliances periodically; a softener is optional.",
	},
}

const (
	allClearAlert  = "All contamination metrics are within acceptable limits."
	allClearAction = "Water quality is acceptable, but regular monitoring is advised. No immediate treatment needed."
)

// Classification is the result of classifying a sample.
type Classification struct {
	Status            QualityClass `json:"status"`
	TDSBand           TDSBand      `json:"tds_band"`
	Hardness          float64      `json:"calculated_hardness"`
	Severity          Severity     `json:"severity"`
	AlertMessage      string       `json:"alert_message"`
	RecommendedAction string       `json:"recommended_action"`
	Alerts            []string     `json:"alerts"`
}

// Classify computes hardness, quality class, TDS band and the alert and action
// of the most severe applicable condition.
func Classify(s Sample) (Classification, error) {
	if err := s.Validate(); err != nil {
		return Classification{}, err
	}
	hardness, err := s.Hardness()
	if err != nil {
		return Classification{}, err
	}

	c := conditions{
		sample:      s,
		hardness:    hardness,
		class:       ClassifyHardness(hardness),
		band:        ClassifyTDS(s.TDS),
		phOut:       s.PH < phLow || s.PH > phHigh,
		turbid:      s.Turbidity > turbidityLimitNTU,
		lowChlorine: s.Chlorine < chlorineResidualLo && s.TDS < chlorineCheckTDS,
	}

	var matched []rule
	for _, r := range rules {
		if r.applies(c) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].severity > matched[j].severity })

	result := Classification{
		Status:            c.class,
		TDSBand:           c.band,
		Hardness:          hardness,
		Severity:          SeverityNone,
		AlertMessage:      allClearAlert,
		RecommendedAction: allClearAction,
		Alerts:            []string{},
	}
	if len(matched) == 0 {
		return result, nil
	}

	for _, r := range matched {
		result.Alerts = append(result.Alerts, r.alert(c))
	}
	top := matched[0]
	result.Severity = top.severity
	result.RecommendedAction = top.action
	prefix := "ALERT: "
	if top.severity == SeverityAdvisory {
		prefix = "Advisory: "
	}
	result.AlertMessage = prefix + strings.Join(result.Alerts, " | ")
	return result, nil
}
