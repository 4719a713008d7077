package core

import "time"

// stubComponent is a scriptable component for scheduler and driver tests.
type stubComponent struct {
	id      string
	inputs  []PortSpec
	outputs []PortSpec

	stepFn   func(ctx StepContext, inputs, outputs []float64) error
	commitFn func(ctx StepContext, inputs, outputs []float64)
	initErr  error

	initCount   int
	stepCount   int
	commitCount int
}

func (s *stubComponent) ID() string   { return s.id }
func (s *stubComponent) Name() string { return "stub " + s.id }

func (s *stubComponent) Inputs() []PortSpec  { return s.inputs }
func (s *stubComponent) Outputs() []PortSpec { return s.outputs }

func (s *stubComponent) Init() error {
	s.initCount++
	return s.initErr
}

func (s *stubComponent) Step(ctx StepContext, inputs, outputs []float64) error {
	s.stepCount++
	if s.stepFn != nil {
		return s.stepFn(ctx, inputs, outputs)
	}
	return nil
}

func (s *stubComponent) Commit(ctx StepContext, inputs, outputs []float64) {
	s.commitCount++
	if s.commitFn != nil {
		s.commitFn(ctx, inputs, outputs)
	}
}

// constantSource emits a fixed value on one quantity output.
func constantSource(id string, value float64) *stubComponent {
	return &stubComponent{
		id:      id,
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			outputs[0] = value
			return nil
		},
	}
}

// passthrough copies its single input to its single output.
func passthrough(id string) *stubComponent {
	return &stubComponent{
		id:      id,
		inputs:  []PortSpec{{Name: "In", Kind: PortQuantity}},
		outputs: []PortSpec{{Name: "Out", Kind: PortQuantity}},
		stepFn: func(ctx StepContext, inputs, outputs []float64) error {
			outputs[0] = inputs[0]
			return nil
		},
	}
}

func testParams(horizon int) Parameters {
	return Parameters{
		Start:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		StepDuration: time.Hour,
		Horizon:      horizon,
	}
}

func testStepCtx(index int) StepContext {
	p := testParams(1)
	return StepContext{
		Index:        index,
		Time:         p.Start.Add(time.Duration(index) * p.StepDuration),
		StepDuration: p.StepDuration,
	}
}
