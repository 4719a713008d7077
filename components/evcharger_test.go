package components

import (
	"math"
	"testing"
	"time"
)

func chargerConfig() EVChargerConfig {
	return EVChargerConfig{
		MaxChargeKW:        11,
		BatteryCapacityKWh: 60,
		TargetSOC:          0.8,
		InitialSOC:         0.5,
		Efficiency:         1,
	}
}

func TestEVChargerIdleWhenDisconnected(t *testing.T) {
	e, err := NewEVCharger("ev", chargerConfig())
	if err != nil {
		t.Fatalf("NewEVCharger: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ev_connected": 0})
	out := make([]float64, 2)
	if err := e.Step(ctx, []float64{11}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("PowerKW while disconnected = %v, want 0", out[0])
	}
	if out[1] != 0.5 {
		t.Fatalf("StateOfCharge = %v, want unchanged 0.5", out[1])
	}
}

func TestEVChargerFollowsSetpoint(t *testing.T) {
	e, err := NewEVCharger("ev", chargerConfig())
	if err != nil {
		t.Fatalf("NewEVCharger: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ev_connected": 1})
	out := make([]float64, 2)
	if err := e.Step(ctx, []float64{3}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 3 {
		t.Fatalf("PowerKW = %v, want 3", out[0])
	}
	if math.Abs(out[1]-0.55) > 1e-12 {
		t.Fatalf("StateOfCharge = %v, want 0.55", out[1])
	}
}

func TestEVChargerStopsAtTargetSOC(t *testing.T) {
	cfg := chargerConfig()
	cfg.InitialSOC = 0.8
	e, err := NewEVCharger("ev", cfg)
	if err != nil {
		t.Fatalf("NewEVCharger: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ev_connected": 1})
	out := make([]float64, 2)
	if err := e.Step(ctx, []float64{11}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("PowerKW at target SOC = %v, want 0", out[0])
	}
}

func TestEVChargerClampsToHeadroom(t *testing.T) {
	cfg := chargerConfig()
	cfg.InitialSOC = 0.75 // 3 kWh below the 0.8 target
	e, err := NewEVCharger("ev", cfg)
	if err != nil {
		t.Fatalf("NewEVCharger: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ev_connected": 1})
	out := make([]float64, 2)
	if err := e.Step(ctx, []float64{11}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if math.Abs(out[0]-3) > 1e-12 {
		t.Fatalf("PowerKW = %v, want 3 (headroom limit)", out[0])
	}
	if math.Abs(out[1]-0.8) > 1e-12 {
		t.Fatalf("StateOfCharge = %v, want 0.8", out[1])
	}
}

func TestEVChargerNegativeSetpointClampsToZero(t *testing.T) {
	e, err := NewEVCharger("ev", chargerConfig())
	if err != nil {
		t.Fatalf("NewEVCharger: %v", err)
	}

	ctx := stepCtx(0, time.Hour, map[string]float64{"ev_connected": 1})
	out := make([]float64, 2)
	if err := e.Step(ctx, []float64{-5}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("PowerKW for negative setpoint = %v, want 0 (no vehicle-to-home)", out[0])
	}
}
