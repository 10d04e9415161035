package water

import "fmt"

// InvalidInputError reports a malformed or out-of-range numeric input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownAreaError is returned when an area is neither registered nor backed by history.
type UnknownAreaError struct {
	Area string
}

func (e *UnknownAreaError) Error() string {
	return fmt.Sprintf("unknown area %q", e.Area)
}

// NoReductionNeededError is returned by PlanTreatment when the water is already
// softer than the target.
type NoReductionNeededError struct {
	Current float64
	Target  float64
}

func (e *NoReductionNeededError) Error() string {
	return fmt.Sprintf("no reduction needed: current hardness %.2f mg/L is below target %.2f mg/L", e.Current, e.Target)
}

// UpstreamUnavailableError wraps a failure of the history or area-list collaborator.
type UpstreamUnavailableError struct {
	Op  string
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable during %s: %v", e.Op, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
