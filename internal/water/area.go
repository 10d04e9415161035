package water

import (
	"fmt"
	"sort"

	"water-quality-backend/internal/parse"
)

// AreaProfile is the baseline statistical range of an area's water source.
type AreaProfile struct {
	Name        string  `json:"name" yaml:"name"`
	TDSMin      float64 `json:"tds_min" yaml:"tds_min"`
	TDSMax      float64 `json:"tds_max" yaml:"tds_max"`
	HardnessMin float64 `json:"hardness_min" yaml:"hardness_min"`
	HardnessMax float64 `json:"hardness_max" yaml:"hardness_max"`
}

// BaselineHardness is the midpoint of the profile's hardness range.
func (p AreaProfile) BaselineHardness() float64 {
	return (p.HardnessMin + p.HardnessMax) / 2
}

// DefaultAreaProfiles are the Bengaluru ranges the service ships with.
func DefaultAreaProfiles() []AreaProfile {
	return []AreaProfile{
		{Name: "Whitefield", TDSMin: 192, TDSMax: 1002, HardnessMin: 96, HardnessMax: 492},
		{Name: "Electronics City", TDSMin: 68, TDSMax: 1236, HardnessMin: 8, HardnessMax: 580},
		{Name: "Sarjapur", TDSMin: 200, TDSMax: 1100, HardnessMin: 85, HardnessMax: 450},
		{Name: "Jayanagar", TDSMin: 150, TDSMax: 400, HardnessMin: 60, HardnessMax: 180},
		{Name: "HSR Layout", TDSMin: 142, TDSMax: 646, HardnessMin: 68, HardnessMax: 276},
		{Name: "MG Road", TDSMin: 120, TDSMax: 350, HardnessMin: 40, HardnessMax: 150},
	}
}

// Registry maps area names to their profiles. It is read-only after construction.
type Registry struct {
	profiles map[string]AreaProfile
	names    []string
}

// NewRegistry validates the profiles and indexes them by normalized name.
func NewRegistry(profiles []AreaProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]AreaProfile, len(profiles))}
	for i, p := range profiles {
		name := parse.AreaName(p.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("areas[%d].name", i), "must not be empty")
		}
		if p.TDSMin < 0 || p.TDSMax < p.TDSMin {
			return nil, invalid(fmt.Sprintf("areas[%d].tds", i), "range [%g, %g] is invalid", p.TDSMin, p.TDSMax)
		}
		if p.HardnessMin < 0 || p.HardnessMax < p.HardnessMin {
			return nil, invalid(fmt.Sprintf("areas[%d].hardness", i), "range [%g, %g] is invalid", p.HardnessMin, p.HardnessMax)
		}
		key := parse.AreaKey(name)
		if _, dup := r.profiles[key]; dup {
			return nil, invalid(fmt.Sprintf("areas[%d].name", i), "duplicate area %q", name)
		}
		p.Name = name
		r.profiles[key] = p
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the profile for an area name.
func (r *Registry) Lookup(area string) (AreaProfile, error) {
	p, ok := r.profiles[parse.AreaKey(area)]
	if !ok {
		return AreaProfile{}, &UnknownAreaError{Area: area}
	}
	return p, nil
}

// Names returns the registered area names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
