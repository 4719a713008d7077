package core

import (
	"fmt"
	"sort"
)

// StepState tracks the scheduler's per-step state machine.
type StepState int

const (
	// StepPending means the step has not started.
	StepPending StepState = iota
	// StepIterating means components are being evaluated and values are
	// still changing.
	StepIterating
	// StepConverged means all port values are stable within tolerance.
	StepConverged
	// StepStalled means the iteration cap was reached with components
	// still dirty.
	StepStalled
	// StepCommitted is terminal for the step: component state has been
	// finalised and the result recorded.
	StepCommitted
)

func (s StepState) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepIterating:
		return "iterating"
	case StepConverged:
		return "converged"
	case StepStalled:
		return "stalled"
	case StepCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// StepOutcome summarises one scheduler step.
type StepOutcome struct {
	State     StepState
	Rounds    int
	Converged bool

	// Values holds the final output-port values, aligned with Ports().
	Values []float64

	// Dirty names the components that were still unsettled, for stalled
	// steps.
	Dirty []string
}

// Scheduler resolves inter-component dependencies for one simulation step
// at a time: it repeatedly evaluates components in dependency-aware order,
// propagates values over connectors, and iterates until all port values
// stabilise or the iteration cap is reached. Cyclic couplings (controller
// reacting to storage, storage reacting to controller) are resolved by this
// bounded fixed-point iteration rather than by concurrency; evaluation is
// strictly single-threaded.
type Scheduler struct {
	graph *Graph
	cfg   EngineConfig

	order []Component
	pos   map[string]int

	// Output-port slot assignment. Every output port owns one slot in the
	// value vectors below.
	ports []PortRef
	slot  map[PortRef]int

	// Per ordered component: slot of each output; for each input either
	// the feeding slot or -1 (unconnected, reads the declared default).
	outSlots   [][]int
	inSlots    [][]int
	inDefaults [][]float64

	// downstream lists, per ordered component, the positions of components
	// fed by any of its outputs. A self-feedback connector keeps the
	// component in its own downstream set.
	downstream [][]int

	// prev holds the settled values of the previous committed step (or the
	// declared defaults before step 0). tentative is the per-step working
	// set; dirty the per-component settle markers. Both are ephemeral and
	// reseeded every step.
	prev      []float64
	tentative []float64
	dirty     []bool

	inBuf  [][]float64
	outBuf [][]float64

	state StepState
}

// NewScheduler prepares a scheduler for the given graph, freezing it. The
// evaluation order is seeded from the graph's topological hint.
func NewScheduler(g *Graph, cfg EngineConfig) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g.Freeze()

	s := &Scheduler{
		graph: g,
		cfg:   cfg,
		order: g.TopologicalHint(),
		pos:   make(map[string]int),
		slot:  make(map[PortRef]int),
		state: StepPending,
	}
	for i, c := range s.order {
		s.pos[c.ID()] = i
	}

	// Assign one slot per output port, in evaluation order.
	for _, c := range s.order {
		for _, spec := range c.Outputs() {
			ref := PortRef{Component: c.ID(), Port: spec.Name}
			s.slot[ref] = len(s.ports)
			s.ports = append(s.ports, ref)
		}
	}

	s.outSlots = make([][]int, len(s.order))
	s.inSlots = make([][]int, len(s.order))
	s.inDefaults = make([][]float64, len(s.order))
	s.downstream = make([][]int, len(s.order))
	s.inBuf = make([][]float64, len(s.order))
	s.outBuf = make([][]float64, len(s.order))

	downstreamSets := make([]map[int]struct{}, len(s.order))
	for i := range downstreamSets {
		downstreamSets[i] = make(map[int]struct{})
	}

	for i, c := range s.order {
		outs := c.Outputs()
		s.outSlots[i] = make([]int, len(outs))
		for j, spec := range outs {
			s.outSlots[i][j] = s.slot[PortRef{Component: c.ID(), Port: spec.Name}]
		}
		s.outBuf[i] = make([]float64, len(outs))

		ins := c.Inputs()
		s.inSlots[i] = make([]int, len(ins))
		s.inDefaults[i] = make([]float64, len(ins))
		s.inBuf[i] = make([]float64, len(ins))
		for j, spec := range ins {
			s.inDefaults[i][j] = spec.Default
			ref := PortRef{Component: c.ID(), Port: spec.Name}
			src, connected := g.SourceFor(ref)
			if !connected {
				s.inSlots[i][j] = -1
				continue
			}
			srcSlot, ok := s.slot[src]
			if !ok {
				return nil, fmt.Errorf("%w: connector source %s has no slot", ErrUnknownPort, src)
			}
			s.inSlots[i][j] = srcSlot
			downstreamSets[s.pos[src.Component]][i] = struct{}{}
		}
	}

	for i, set := range downstreamSets {
		for j := range set {
			s.downstream[i] = append(s.downstream[i], j)
		}
		// Deterministic propagation order.
		sort.Ints(s.downstream[i])
	}

	s.prev = make([]float64, len(s.ports))
	s.tentative = make([]float64, len(s.ports))
	s.dirty = make([]bool, len(s.order))
	s.seedDefaults()

	return s, nil
}

// Ports returns the output-port references in slot order. Step results and
// series extraction share this layout.
func (s *Scheduler) Ports() []PortRef {
	out := make([]PortRef, len(s.ports))
	copy(out, s.ports)
	return out
}

// State returns the scheduler's current per-step state.
func (s *Scheduler) State() StepState {
	return s.state
}

// Reset discards all carried port values, reseeding them with the declared
// defaults so a fresh run starts from step 0 conditions.
func (s *Scheduler) Reset() {
	s.seedDefaults()
	s.state = StepPending
}

// RunStep executes the convergence loop for one step. On convergence it
// commits every component and returns a committed outcome. On a stall it
// returns the stalled outcome together with a *NonConvergenceError and
// leaves the tentative values in place: the driver decides whether to abort
// or to CommitStalled with those values.
func (s *Scheduler) RunStep(ctx StepContext) (StepOutcome, error) {
	s.state = StepIterating

	// Seed the working set with the previous step's settled values and
	// mark every component dirty.
	copy(s.tentative, s.prev)
	for i := range s.dirty {
		s.dirty[i] = true
	}

	rounds := 0
	for rounds < s.cfg.MaxIterations {
		rounds++
		for i, c := range s.order {
			if !s.dirty[i] {
				continue
			}
			if err := s.evaluate(ctx, i, c); err != nil {
				return StepOutcome{State: StepIterating, Rounds: rounds}, err
			}
		}
		if !s.anyDirty() {
			s.state = StepConverged
			break
		}
	}

	if s.state != StepConverged {
		s.state = StepStalled
		outcome := StepOutcome{
			State:  StepStalled,
			Rounds: rounds,
			Values: s.snapshot(),
			Dirty:  s.dirtyNames(),
		}
		return outcome, &NonConvergenceError{
			Step:   ctx.Index,
			Rounds: rounds,
			Dirty:  outcome.Dirty,
		}
	}

	s.commit(ctx)
	return StepOutcome{
		State:     StepCommitted,
		Rounds:    rounds,
		Converged: true,
		Values:    s.snapshot(),
	}, nil
}

// CommitStalled finalises a stalled step with its last tentative values.
// Only valid directly after RunStep returned a stalled outcome; the caller
// owns the policy decision.
func (s *Scheduler) CommitStalled(ctx StepContext) (StepOutcome, error) {
	if s.state != StepStalled {
		return StepOutcome{}, fmt.Errorf("commit stalled: scheduler state is %s, want %s", s.state, StepStalled)
	}
	dirty := s.dirtyNames()
	s.commit(ctx)
	return StepOutcome{
		State:  StepCommitted,
		Rounds: s.cfg.MaxIterations,
		Values: s.snapshot(),
		Dirty:  dirty,
	}, nil
}

// evaluate runs one component's step function against the current working
// set. Outputs that move beyond tolerance are written back and every
// downstream component is re-marked dirty.
func (s *Scheduler) evaluate(ctx StepContext, i int, c Component) error {
	in := s.inBuf[i]
	for j, srcSlot := range s.inSlots[i] {
		if srcSlot >= 0 {
			in[j] = s.tentative[srcSlot]
		} else {
			in[j] = s.inDefaults[i][j]
		}
	}

	out := s.outBuf[i]
	for j, slot := range s.outSlots[i] {
		out[j] = s.tentative[slot]
	}
	if err := c.Step(ctx, in, out); err != nil {
		return fmt.Errorf("component %q step %d: %w", c.ID(), ctx.Index, err)
	}

	s.dirty[i] = false
	changed := false
	for j, slot := range s.outSlots[i] {
		if !s.cfg.stable(out[j], s.tentative[slot]) {
			s.tentative[slot] = out[j]
			changed = true
		}
	}
	if changed {
		for _, d := range s.downstream[i] {
			s.dirty[d] = true
		}
	}
	return nil
}

// commit invokes every component's Commit exactly once with the settled
// values, then promotes the working set to the new previous-step values.
func (s *Scheduler) commit(ctx StepContext) {
	for i, c := range s.order {
		in := s.inBuf[i]
		for j, srcSlot := range s.inSlots[i] {
			if srcSlot >= 0 {
				in[j] = s.tentative[srcSlot]
			} else {
				in[j] = s.inDefaults[i][j]
			}
		}
		out := s.outBuf[i]
		for j, slot := range s.outSlots[i] {
			out[j] = s.tentative[slot]
		}
		c.Commit(ctx, in, out)
	}
	copy(s.prev, s.tentative)
	s.state = StepCommitted
}

func (s *Scheduler) seedDefaults() {
	for i, c := range s.order {
		for j, spec := range c.Outputs() {
			s.prev[s.outSlots[i][j]] = spec.Default
		}
	}
}

func (s *Scheduler) anyDirty() bool {
	for _, d := range s.dirty {
		if d {
			return true
		}
	}
	return false
}

func (s *Scheduler) dirtyNames() []string {
	var out []string
	for i, d := range s.dirty {
		if d {
			out = append(out, s.order[i].ID())
		}
	}
	return out
}

func (s *Scheduler) snapshot() []float64 {
	out := make([]float64, len(s.tentative))
	copy(out, s.tentative)
	return out
}
