package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownSeries = errors.New("no such output port series")
	ErrStoreSealed   = errors.New("results store is sealed")
)

// StepResult is the immutable snapshot of all output-port values at the
// end of one step, together with convergence metadata. Unconverged steps
// (recorded under StallContinue) are flagged so numeric instability stays
// observable in the final results.
type StepResult struct {
	Index     int
	Time      time.Time
	Converged bool
	Rounds    int

	values []float64
}

// Value returns the recorded value of the output port at the given slot.
func (r StepResult) Value(slot int) float64 {
	return r.values[slot]
}

// ResultsStore accumulates the ordered sequence of step results for one
// run. It is append-only while the run executes and read-only afterwards.
type ResultsStore struct {
	runID  uuid.UUID
	ports  []PortRef
	slots  map[PortRef]int
	steps  []StepResult
	sealed bool
}

// NewResultsStore creates an empty store over the given slot-ordered
// output ports (as reported by Scheduler.Ports).
func NewResultsStore(ports []PortRef) (*ResultsStore, error) {
	runID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	slots := make(map[PortRef]int, len(ports))
	for i, ref := range ports {
		slots[ref] = i
	}
	return &ResultsStore{
		runID: runID,
		ports: append([]PortRef(nil), ports...),
		slots: slots,
	}, nil
}

// RunID identifies the run this store belongs to.
func (rs *ResultsStore) RunID() uuid.UUID {
	return rs.runID
}

// Ports returns the slot-ordered output ports covered by this store.
func (rs *ResultsStore) Ports() []PortRef {
	out := make([]PortRef, len(rs.ports))
	copy(out, rs.ports)
	return out
}

// Len returns the number of recorded steps.
func (rs *ResultsStore) Len() int {
	return len(rs.steps)
}

// Step returns the result recorded for the given step index.
func (rs *ResultsStore) Step(i int) StepResult {
	return rs.steps[i]
}

// Value returns the recorded value of one output port at one step.
func (rs *ResultsStore) Value(step int, ref PortRef) (float64, error) {
	if step < 0 || step >= len(rs.steps) {
		return 0, fmt.Errorf("step %d out of range [0,%d)", step, len(rs.steps))
	}
	slot, ok := rs.slots[ref]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSeries, ref)
	}
	return rs.steps[step].values[slot], nil
}

// Series extracts the full per-step time series of one output port,
// identified by component ID and port name.
func (rs *ResultsStore) Series(componentID, port string) ([]float64, error) {
	ref := PortRef{Component: componentID, Port: port}
	slot, ok := rs.slots[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, ref)
	}
	out := make([]float64, len(rs.steps))
	for i, step := range rs.steps {
		out[i] = step.values[slot]
	}
	return out, nil
}

// Append records one step result. It fails once the store is sealed.
func (rs *ResultsStore) Append(index int, at time.Time, outcome StepOutcome) error {
	if rs.sealed {
		return ErrStoreSealed
	}
	values := make([]float64, len(outcome.Values))
	copy(values, outcome.Values)
	rs.steps = append(rs.steps, StepResult{
		Index:     index,
		Time:      at,
		Converged: outcome.Converged,
		Rounds:    outcome.Rounds,
		values:    values,
	})
	return nil
}

// Seal marks the store read-only. The driver seals it when the run ends.
func (rs *ResultsStore) Seal() {
	rs.sealed = true
}

// Sealed reports whether the store is read-only.
func (rs *ResultsStore) Sealed() bool {
	return rs.sealed
}
