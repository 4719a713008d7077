package components

import (
	"testing"
	"time"
)

func TestEnergyManagementSurplusChargesBatteryFirst(t *testing.T) {
	ems := NewEnergyManagement("ems")
	ctx := stepCtx(0, time.Hour, nil)
	out := make([]float64, 3)

	// 6 kW PV, 2 kW household, 1 kW heat pump leaves 3 kW; the battery
	// already absorbs 2 kW, so 1 kW goes to the EV.
	if err := ems.Step(ctx, []float64{6, 2, 1, 2, 0.5}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if out[0] != 3 {
		t.Fatalf("BatterySetpointKW = %v, want 3", out[0])
	}
	if out[1] != 1 {
		t.Fatalf("EVSetpointKW = %v, want 1", out[1])
	}
	if out[2] != 3 {
		t.Fatalf("SurplusKW = %v, want 3", out[2])
	}
}

func TestEnergyManagementDeficitDischargesBattery(t *testing.T) {
	ems := NewEnergyManagement("ems")
	ctx := stepCtx(0, time.Hour, nil)
	out := make([]float64, 3)

	if err := ems.Step(ctx, []float64{1, 3, 2, 0, 0.5}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if out[0] != -4 {
		t.Fatalf("BatterySetpointKW = %v, want -4", out[0])
	}
	if out[1] != 0 {
		t.Fatalf("EVSetpointKW = %v, want 0 during deficit", out[1])
	}
	if out[2] != -4 {
		t.Fatalf("SurplusKW = %v, want -4", out[2])
	}
}

func TestEnergyManagementEVSetpointNeverNegative(t *testing.T) {
	ems := NewEnergyManagement("ems")
	ctx := stepCtx(0, time.Hour, nil)
	out := make([]float64, 3)

	// The battery reports more absorbed power than the surplus; the EV
	// setpoint must clamp at zero rather than going negative.
	if err := ems.Step(ctx, []float64{5, 2, 0, 4, 0.5}, out); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if out[1] != 0 {
		t.Fatalf("EVSetpointKW = %v, want 0", out[1])
	}
}
