package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// StallPolicy decides what the driver does when a step exhausts the
// iteration cap without stabilising.
type StallPolicy int

const (
	// StallAbort ends the run with a NonConvergenceError.
	StallAbort StallPolicy = iota
	// StallContinue commits the last tentative values, flags the step
	// result as unconverged, and carries on.
	StallContinue
)

func (p StallPolicy) String() string {
	switch p {
	case StallAbort:
		return "abort"
	case StallContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// EngineConfig holds the numeric knobs of the convergence loop. The
// tolerance and iteration cap are engine configuration, never hard-coded
// per component.
type EngineConfig struct {
	// MaxIterations caps the number of evaluation rounds per step.
	MaxIterations int
	// AbsTolerance and RelTolerance define value stability:
	// |a-b| <= AbsTolerance + RelTolerance*max(|a|,|b|).
	AbsTolerance float64
	RelTolerance float64

	StallPolicy StallPolicy
}

// DefaultEngineConfig returns the default convergence settings. The cap is
// sized so that a two-component feedback pair whose error halves per round
// still reaches 1e-6 stability before stalling.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxIterations: 32,
		AbsTolerance:  1e-7,
		RelTolerance:  1e-6,
		StallPolicy:   StallAbort,
	}
}

// Validate checks the configuration for usable values.
func (c EngineConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be >= 1, got %d", ErrConfiguration, c.MaxIterations)
	}
	if c.AbsTolerance < 0 || c.RelTolerance < 0 {
		return fmt.Errorf("%w: tolerances must be non-negative", ErrConfiguration)
	}
	return nil
}

// stable reports whether two port values are equal within tolerance.
// NaN is never stable against anything, including itself.
func (c EngineConfig) stable(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= c.AbsTolerance+c.RelTolerance*math.Max(math.Abs(a), math.Abs(b))
}

// Parameters describe the simulated time horizon of a run.
type Parameters struct {
	Start        time.Time
	StepDuration time.Duration
	Horizon      int
}

// Validate checks the run parameters.
func (p Parameters) Validate() error {
	if p.Horizon < 1 {
		return fmt.Errorf("%w: horizon must be >= 1, got %d", ErrConfiguration, p.Horizon)
	}
	if p.StepDuration <= 0 {
		return fmt.Errorf("%w: step duration must be positive, got %v", ErrConfiguration, p.StepDuration)
	}
	return nil
}

// NonConvergenceError reports a step that failed to stabilise within the
// iteration cap, identifying the components that were still dirty.
type NonConvergenceError struct {
	Step   int
	Rounds int
	Dirty  []string
}

func (e *NonConvergenceError) Error() string {
	dirty := append([]string(nil), e.Dirty...)
	sort.Strings(dirty)
	return fmt.Sprintf("step %d did not converge after %d rounds; unsettled components: %s",
		e.Step, e.Rounds, strings.Join(dirty, ", "))
}

// ProfileLengthError reports an external profile that supplies fewer values
// than the run horizon. It is raised before any step executes.
type ProfileLengthError struct {
	Name string
	Have int
	Want int
}

func (e *ProfileLengthError) Error() string {
	return fmt.Sprintf("profile %q has %d values, horizon needs %d", e.Name, e.Have, e.Want)
}
