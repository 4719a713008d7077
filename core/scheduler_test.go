package core

import (
	"errors"
	"math"
	"testing"
)

// feedbackPair builds the classic converging loop: a = 10 - b, b = a/2,
// with fixed point a = 20/3, b = 10/3.
func feedbackPair(t *testing.T) (*Graph, *stubComponent, *stubComponent) {
	t.Helper()

	a := &stubComponent{
		id:      "a",
		inputs:  []PortSpec{{Name: "In", Kind: PortQuantity}},
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			outputs[0] = 10 - inputs[0]
			return nil
		},
	}
	b := &stubComponent{
		id:      "b",
		inputs:  []PortSpec{{Name: "In", Kind: PortQuantity}},
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			outputs[0] = inputs[0] / 2
			return nil
		},
	}

	g := NewGraph()
	for _, c := range []Component{a, b} {
		if err := g.AddComponent(c); err != nil {
			t.Fatalf("AddComponent: %v", err)
		}
	}
	if err := g.Connect(PortRef{"a", "Out"}, PortRef{"b", "In"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(PortRef{"b", "Out"}, PortRef{"a", "In"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return g, a, b
}

// divergentPair builds an amplifying loop that can never stabilise.
func divergentPair(t *testing.T) *Graph {
	t.Helper()

	amplifier := func(id string) *stubComponent {
		return &stubComponent{
			id:      id,
			inputs:  []PortSpec{{Name: "In", Kind: PortQuantity}},
			outputs: []PortSpec{{Name: "Out", Kind: PortQuantity, Default: 1}},
			stepFn: func(ctx StepContext, inputs, outputs []float64) error {
				outputs[0] = 2*inputs[0] + 1
				return nil
			},
		}
	}

	g := NewGraph()
	for _, c := range []Component{amplifier("x"), amplifier("y")} {
		if err := g.AddComponent(c); err != nil {
			t.Fatalf("AddComponent: %v", err)
		}
	}
	if err := g.Connect(PortRef{"x", "Out"}, PortRef{"y", "In"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(PortRef{"y", "Out"}, PortRef{"x", "In"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return g
}

func TestAcyclicChainConvergesInOneRound(t *testing.T) {
	g := NewGraph()
	src := constantSource("src", 5)
	mid := passthrough("mid")
	sink := passthrough("sink")
	for _, c := range []Component{sink, mid, src} {
		if err := g.AddComponent(c); err != nil {
			t.Fatalf("AddComponent: %v", err)
		}
	}
	if err := g.Connect(PortRef{"src", "Out"}, PortRef{"mid", "In"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(PortRef{"mid", "Out"}, PortRef{"sink", "In"}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	outcome, err := s.RunStep(testStepCtx(0))
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if !outcome.Converged || outcome.State != StepCommitted {
		t.Fatalf("outcome = %+v, want converged and committed", outcome)
	}
	// An acyclic graph evaluated in dependency order settles in one pass.
	if outcome.Rounds != 1 {
		t.Fatalf("Rounds = %d, want 1", outcome.Rounds)
	}
	if src.stepCount != 1 || mid.stepCount != 1 || sink.stepCount != 1 {
		t.Fatalf("step counts = %d/%d/%d, want 1/1/1",
			src.stepCount, mid.stepCount, sink.stepCount)
	}
}

func TestFeedbackLoopConvergesToFixedPoint(t *testing.T) {
	g, a, b := feedbackPair(t)

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	outcome, err := s.RunStep(testStepCtx(0))
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}

	if !outcome.Converged {
		t.Fatalf("outcome = %+v, want convergence", outcome)
	}
	if outcome.Rounds >= DefaultEngineConfig().MaxIterations {
		t.Fatalf("Rounds = %d, want fewer than the cap", outcome.Rounds)
	}

	ports := s.Ports()
	values := map[string]float64{}
	for i, ref := range ports {
		values[ref.String()] = outcome.Values[i]
	}
	if got := values["a.Out"]; math.Abs(got-20.0/3) > 1e-5 {
		t.Fatalf("a.Out = %v, want ~%v", got, 20.0/3)
	}
	if got := values["b.Out"]; math.Abs(got-10.0/3) > 1e-5 {
		t.Fatalf("b.Out = %v, want ~%v", got, 10.0/3)
	}

	// Convergence iteration re-invokes Step, but Commit runs exactly once.
	if a.stepCount < 2 || b.stepCount < 2 {
		t.Fatalf("step counts = %d/%d, want several iterations", a.stepCount, b.stepCount)
	}
	if a.commitCount != 1 || b.commitCount != 1 {
		t.Fatalf("commit counts = %d/%d, want 1/1", a.commitCount, b.commitCount)
	}
}

func TestDivergentLoopStalls(t *testing.T) {
	g := divergentPair(t)

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	outcome, err := s.RunStep(testStepCtx(0))
	if err == nil {
		t.Fatal("RunStep on a divergent loop succeeded, want NonConvergenceError")
	}

	var nce *NonConvergenceError
	if !errors.As(err, &nce) {
		t.Fatalf("RunStep error = %v, want *NonConvergenceError", err)
	}
	if nce.Rounds != DefaultEngineConfig().MaxIterations {
		t.Fatalf("Rounds = %d, want the cap %d", nce.Rounds, DefaultEngineConfig().MaxIterations)
	}
	if len(nce.Dirty) == 0 {
		t.Fatal("NonConvergenceError names no dirty components")
	}
	if outcome.State != StepStalled {
		t.Fatalf("State = %v, want stalled", outcome.State)
	}

	// A stalled step must not have committed anything.
	for _, c := range g.Components() {
		if stub := c.(*stubComponent); stub.commitCount != 0 {
			t.Fatalf("component %q committed %d times on stall, want 0", stub.id, stub.commitCount)
		}
	}
}

func TestCommitStalledFinalisesTentativeValues(t *testing.T) {
	g := divergentPair(t)

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if _, err := s.RunStep(testStepCtx(0)); err == nil {
		t.Fatal("RunStep succeeded, want stall")
	}

	outcome, err := s.CommitStalled(testStepCtx(0))
	if err != nil {
		t.Fatalf("CommitStalled: %v", err)
	}
	if outcome.State != StepCommitted || outcome.Converged {
		t.Fatalf("outcome = %+v, want committed and unconverged", outcome)
	}
	for _, c := range g.Components() {
		if stub := c.(*stubComponent); stub.commitCount != 1 {
			t.Fatalf("component %q committed %d times, want 1", stub.id, stub.commitCount)
		}
	}

	// CommitStalled is a one-shot transition.
	if _, err := s.CommitStalled(testStepCtx(0)); err == nil {
		t.Fatal("second CommitStalled succeeded, want state error")
	}
}

func TestCommitStalledRequiresStalledState(t *testing.T) {
	g := NewGraph()
	if err := g.AddComponent(constantSource("src", 1)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if _, err := s.CommitStalled(testStepCtx(0)); err == nil {
		t.Fatal("CommitStalled on a pending scheduler succeeded, want error")
	}
}

func TestUnconnectedInputReadsDeclaredDefault(t *testing.T) {
	echo := &stubComponent{
		id:      "echo",
		inputs:  []PortSpec{{Name: "In", Kind: PortQuantity, Default: 42}},
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			outputs[0] = inputs[0]
			return nil
		},
	}
	g := NewGraph()
	if err := g.AddComponent(echo); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	outcome, err := s.RunStep(testStepCtx(0))
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	if outcome.Values[0] != 42 {
		t.Fatalf("echoed value = %v, want the declared default 42", outcome.Values[0])
	}
}

func TestOutputsSeedFromPreviousStep(t *testing.T) {
	// The component adds one to its own previous output every step, which
	// only works if the scheduler seeds outputs with last step's values.
	counter := &stubComponent{
		id:      "counter",
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			outputs[0]++
			return nil
		},
	}
	g := NewGraph()
	if err := g.AddComponent(counter); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	for i := 0; i < 3; i++ {
		outcome, err := s.RunStep(testStepCtx(i))
		if err != nil {
			t.Fatalf("RunStep %d: %v", i, err)
		}
		if outcome.Values[0] != float64(i+1) {
			t.Fatalf("step %d value = %v, want %v", i, outcome.Values[0], i+1)
		}
	}

	s.Reset()
	if s.State() != StepPending {
		t.Fatalf("State after Reset = %v, want pending", s.State())
	}
}

func TestStepErrorAbortsIteration(t *testing.T) {
	boom := errors.New("sensor offline")
	failing := &stubComponent{
		id:      "bad",
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			return boom
		},
	}
	g := NewGraph()
	if err := g.AddComponent(failing); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	s, err := NewScheduler(g, DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if _, err := s.RunStep(testStepCtx(0)); !errors.Is(err, boom) {
		t.Fatalf("RunStep = %v, want wrapped component error", err)
	}
	if failing.commitCount != 0 {
		t.Fatalf("failing component committed %d times, want 0", failing.commitCount)
	}
}
