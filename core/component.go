package core

import (
	"errors"
	"time"
)

// ErrConfiguration marks invalid or missing component parameters. It is
// surfaced by component constructors before a run ever starts; physically
// meaningful parameters are never silently defaulted.
var ErrConfiguration = errors.New("invalid component configuration")

// PortKind tags the kind of value a port carries. Kinds are enforced when
// connecting ports, not per step: all values travel as float64 and flags
// use the 0/1 convention.
type PortKind int

const (
	// PortQuantity is a continuous physical quantity (power, temperature, ...).
	PortQuantity PortKind = iota
	// PortFlag is a boolean control signal carried as 0 or 1.
	PortFlag
	// PortAccumulator is a running total that grows across steps
	// (energy, cost).
	PortAccumulator
)

func (k PortKind) String() string {
	switch k {
	case PortQuantity:
		return "quantity"
	case PortFlag:
		return "flag"
	case PortAccumulator:
		return "accumulator"
	default:
		return "unknown"
	}
}

// PortSpec declares a single input or output port. The declaration is made
// once at assembly time and is immutable for the component's lifetime.
type PortSpec struct {
	Name string
	Kind PortKind
	Unit string

	// Default is the value an input port reads when no connector feeds it,
	// and the value an output port holds before step 0.
	Default float64
}

// PortRef identifies a port by component ID and port name.
type PortRef struct {
	Component string
	Port      string
}

func (r PortRef) String() string {
	return r.Component + "." + r.Port
}

// StepContext carries the per-step external context handed to components:
// the step index, the simulated timestamp, the step duration, and any
// externally supplied profile values for that step.
type StepContext struct {
	Index        int
	Time         time.Time
	StepDuration time.Duration

	profiles map[string]float64
}

// NewStepContext builds a step context for direct component invocation,
// e.g. from scenario tooling or tests. The driver builds its own contexts
// during a run.
func NewStepContext(index int, at time.Time, stepDuration time.Duration, profiles map[string]float64) StepContext {
	return StepContext{
		Index:        index,
		Time:         at,
		StepDuration: stepDuration,
		profiles:     profiles,
	}
}

// Profile returns the externally supplied value of a named profile for this
// step. The second return value reports whether the profile exists.
func (c StepContext) Profile(name string) (float64, bool) {
	v, ok := c.profiles[name]
	return v, ok
}

// Component is a unit of behaviour with declared input and output ports and
// private internal state that persists across steps.
//
// Step must be a pure function of the current input-port values, the
// committed internal state, and the step context: the scheduler re-invokes
// it during convergence iteration, so repeated calls with identical inputs
// must yield identical outputs. Internal state may only change in Commit,
// which the scheduler calls exactly once per step, after the step has
// settled (or, under a tolerant stall policy, with the last tentative
// values).
type Component interface {
	ID() string
	Name() string

	// Inputs and Outputs return the static port declarations. The returned
	// slices must be identical on every call.
	Inputs() []PortSpec
	Outputs() []PortSpec

	// Init resets internal state to its initial value. The driver calls it
	// once before step 0 of every run.
	Init() error

	// Step computes one tentative output value per declared output port.
	// inputs is ordered like Inputs(); outputs like Outputs().
	Step(ctx StepContext, inputs []float64, outputs []float64) error

	// Commit finalises internal state for the step using the settled input
	// and output values.
	Commit(ctx StepContext, inputs []float64, outputs []float64)
}

// ProfileUser is implemented by components that consume named external
// profiles. The driver validates that every named profile is present and
// covers the full horizon before the run starts.
type ProfileUser interface {
	Profiles() []string
}
