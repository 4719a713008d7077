package components

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Apoorvanp/Master-Simulations/core"
)

func TestHeatPumpOffProducesNothing(t *testing.T) {
	hp, err := NewHeatPump("hp", HeatPumpConfig{MaxThermalPowerKW: 9})
	if err != nil {
		t.Fatalf("NewHeatPump: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ambient_temperature": 7})
	outputs := make([]float64, 3)
	if err := hp.Step(ctx, []float64{0, 35}, outputs); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if outputs[0] != 0 || outputs[1] != 0 || outputs[2] != 0 {
		t.Fatalf("outputs while off = %v, want all zero", outputs)
	}
}

func TestHeatPumpCarnotCOP(t *testing.T) {
	hp, err := NewHeatPump("hp", HeatPumpConfig{MaxThermalPowerKW: 9})
	if err != nil {
		t.Fatalf("NewHeatPump: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ambient_temperature": 7})
	outputs := make([]float64, 3)
	if err := hp.Step(ctx, []float64{1, 35}, outputs); err != nil {
		t.Fatalf("Step: %v", err)
	}

	// Condenser at 40 °C, outdoor air at 7 °C.
	wantCOP := 0.40 * (40 + 273.15) / 33
	if math.Abs(outputs[2]-wantCOP) > 1e-9 {
		t.Fatalf("COP = %v, want %v", outputs[2], wantCOP)
	}
	if outputs[0] != 9 {
		t.Fatalf("ThermalPowerKW = %v, want 9", outputs[0])
	}
	if math.Abs(outputs[1]-9/wantCOP) > 1e-9 {
		t.Fatalf("ElectricPowerKW = %v, want %v", outputs[1], 9/wantCOP)
	}
}

func TestHeatPumpCOPClampsAtSmallLift(t *testing.T) {
	hp, err := NewHeatPump("hp", HeatPumpConfig{MaxThermalPowerKW: 9})
	if err != nil {
		t.Fatalf("NewHeatPump: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ambient_temperature": 39})
	outputs := make([]float64, 3)
	if err := hp.Step(ctx, []float64{1, 35}, outputs); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if outputs[2] != 7 {
		t.Fatalf("COP = %v, want clamp at 7", outputs[2])
	}
}

func TestHeatPumpMissingProfileIsAnError(t *testing.T) {
	hp, err := NewHeatPump("hp", HeatPumpConfig{MaxThermalPowerKW: 9})
	if err != nil {
		t.Fatalf("NewHeatPump: %v", err)
	}

	outputs := make([]float64, 3)
	if err := hp.Step(stepCtx(0, time.Hour, nil), []float64{1, 35}, outputs); err == nil {
		t.Fatal("Step without ambient_temperature profile succeeded, want error")
	}
}

func TestHeatPumpConfigValidation(t *testing.T) {
	if _, err := NewHeatPump("hp", HeatPumpConfig{}); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("NewHeatPump without thermal power = %v, want ErrConfiguration", err)
	}
}

func TestControllerHysteresis(t *testing.T) {
	c, err := NewHeatPumpController("ctl", HeatPumpControllerConfig{SetTemperatureC: 50, OffsetC: 5})
	if err != nil {
		t.Fatalf("NewHeatPumpController: %v", err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := stepCtx(0, time.Hour, nil)
	out := make([]float64, 1)

	// Cold water turns the pump on.
	if err := c.Step(ctx, []float64{40}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 1 {
		t.Fatalf("signal at 40 °C = %v, want 1", out[0])
	}
	c.Commit(ctx, []float64{40}, out)

	// Inside the band the committed mode holds.
	if err := c.Step(ctx, []float64{52}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 1 {
		t.Fatalf("signal at 52 °C after heating = %v, want 1 (hysteresis)", out[0])
	}

	// Above the band it switches off.
	if err := c.Step(ctx, []float64{56}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("signal at 56 °C = %v, want 0", out[0])
	}
	c.Commit(ctx, []float64{56}, out)

	// Back inside the band the off mode holds.
	if err := c.Step(ctx, []float64{52}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("signal at 52 °C after cooling = %v, want 0 (hysteresis)", out[0])
	}
}

func TestControllerStepIsPureWithinAStep(t *testing.T) {
	c, err := NewHeatPumpController("ctl", HeatPumpControllerConfig{SetTemperatureC: 50, OffsetC: 5})
	if err != nil {
		t.Fatalf("NewHeatPumpController: %v", err)
	}
	ctx := stepCtx(0, time.Hour, nil)
	out := make([]float64, 1)

	// An in-band reading must keep returning the committed mode no
	// matter how often the scheduler re-invokes Step.
	for i := 0; i < 3; i++ {
		if err := c.Step(ctx, []float64{50}, out); err != nil {
			t.Fatalf("Step #%d: %v", i, err)
		}
		if out[0] != 0 {
			t.Fatalf("in-band signal on invocation #%d = %v, want 0", i, out[0])
		}
	}
}
