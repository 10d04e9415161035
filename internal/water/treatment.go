package water

import (
	"errors"
	"fmt"
	"math"
)

// Device is a treatment appliance.
type Device struct {
	Name              string  `json:"name" yaml:"name"`
	FlowLPerMin       float64 `json:"flow_L_per_min" yaml:"flow_L_per_min"`
	RemovalEfficiency float64 `json:"removal_efficiency" yaml:"removal_efficiency"`
}

// DefaultDevices is the household device catalog used when a request names none.
func DefaultDevices() []Device {
	return []Device{
		{Name: "Household RO (small)", FlowLPerMin: 0.05, RemovalEfficiency: 0.95},
		{Name: "Household RO (medium)", FlowLPerMin: 0.166, RemovalEfficiency: 0.98},
		{Name: "Portable Softener (point-of-use)", FlowLPerMin: 10.0, RemovalEfficiency: 0.99},
		{Name: "Whole-house Water Softener", FlowLPerMin: 30.0, RemovalEfficiency: 1.0},
	}
}

// Validate checks the device's rated characteristics.
func (d Device) Validate() error {
	if math.IsNaN(d.FlowLPerMin) || math.IsInf(d.FlowLPerMin, 0) || d.FlowLPerMin < 0 {
		return invalid("flow_L_per_min", "must be a non-negative number, got %g", d.FlowLPerMin)
	}
	if math.IsNaN(d.RemovalEfficiency) || d.RemovalEfficiency < 0 || d.RemovalEfficiency > 1 {
		return invalid("removal_efficiency", "must be within 0-1, got %g", d.RemovalEfficiency)
	}
	return nil
}

// MaxTreatmentMinutes bounds the single-pass time of one device.
const MaxTreatmentMinutes = 1e9

// TreatmentMinutes is the time to pass volume through a device rated at flow.
// flow must be positive. Times beyond MaxTreatmentMinutes are rejected.
func TreatmentMinutes(volume, flow float64) (float64, error) {
	minutes := volume / flow
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes > MaxTreatmentMinutes {
		return 0, invalid("volume_liters", "treatment time at %g L/min exceeds %g minutes", flow, float64(MaxTreatmentMinutes))
	}
	return minutes, nil
}

// TreatmentEstimate is the single-pass outcome of running a volume through one device.
type TreatmentEstimate struct {
	Device            string   `json:"device"`
	FlowLPerMin       float64  `json:"flow_L_per_min"`
	RemovalEfficiency float64  `json:"removal_efficiency"`
	CanReachTarget    bool     `json:"can_reach_target"`
	TimeMinutes       *float64 `json:"time_minutes"`
	TimeHM            string   `json:"time_h_m,omitempty"`
	FinalHardness     float64  `json:"expected_final_hardness_mg_l"`
	Notes             string   `json:"notes"`
}

// PlanTreatment evaluates each device independently and returns the estimates
// in the order supplied. Multi-pass treatment is not modelled.
func PlanTreatment(current, target, volume float64, devices []Device) ([]TreatmentEstimate, error) {
	if err := checkConcentration("current_hardness", current); err != nil {
		return nil, err
	}
	if err := checkConcentration("target_hardness", target); err != nil {
		return nil, err
	}
	if err := checkConcentration("volume_liters", volume); err != nil {
		return nil, err
	}
	for i, d := range devices {
		if err := d.Validate(); err != nil {
			var ie *InvalidInputError
			if errors.As(err, &ie) {
				ie.Field = fmt.Sprintf("devices[%d].%s", i, ie.Field)
			}
			return nil, err
		}
		if d.FlowLPerMin > 0 {
			if _, err := TreatmentMinutes(volume, d.FlowLPerMin); err != nil {
				return nil, err
			}
		}
	}
	if current < target {
		return nil, &NoReductionNeededError{Current: current, Target: target}
	}

	estimates := make([]TreatmentEstimate, 0, len(devices))
	for _, d := range devices {
		estimates = append(estimates, estimate(current, target, volume, d))
	}
	return estimates, nil
}

func estimate(current, target, volume float64, d Device) TreatmentEstimate {
	final := current * (1 - d.RemovalEfficiency)
	e := TreatmentEstimate{
		Device:            d.Name,
		FlowLPerMin:       d.FlowLPerMin,
		RemovalEfficiency: d.RemovalEfficiency,
		CanReachTarget:    final <= target,
		FinalHardness:     round2(final),
	}

	if d.FlowLPerMin == 0 {
		e.Notes = "Device has no rated flow; treatment time is unknown."
		return e
	}
	minutes := round2(volume / d.FlowLPerMin)
	e.TimeMinutes = &minutes
	e.TimeHM = FormatDuration(minutes)

	if e.CanReachTarget {
		e.Notes = fmt.Sprintf("One pass of %.1f L reaches %.1f mg/L, at or below the %.1f mg/L target.", volume, final, target)
	} else {
		e.Notes = fmt.Sprintf("One pass leaves %.1f mg/L, above the %.1f mg/L target; repeated passes or a stronger device are needed.", final, target)
	}
	return e
}

// FormatDuration renders minutes as "H h M m", or "<1 m" below one minute.
func FormatDuration(minutes float64) string {
	if minutes < 1 {
		return "<1 m"
	}
	total := int(math.Round(minutes))
	return fmt.Sprintf("%d h %d m", total/60, total%60)
}
