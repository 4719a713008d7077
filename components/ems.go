package components

import (
	"github.com/Apoorvanp/Master-Simulations/core"
)

// EnergyManagement is a surplus-driven rule controller: PV generation
// left after the household and heat pump demand charges the home battery
// first and the EV second; a deficit asks the battery to discharge. The
// battery and EV feed their achieved power back into the manager, so the
// dispatch settles over convergence iterations rather than in one pass.
//
// All inputs default to zero, so a scenario can wire any subset of them.
type EnergyManagement struct {
	id string

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewEnergyManagement builds the controller. It has no tunables.
func NewEnergyManagement(id string) *EnergyManagement {
	return &EnergyManagement{
		id: id,
		inputs: []core.PortSpec{
			{Name: PortPVPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortConsumptionKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortHeatPumpPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortBatteryPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortBatterySOC, Kind: core.PortQuantity, Unit: "1"},
		},
		outputs: []core.PortSpec{
			{Name: PortBatterySetpointKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortEVSetpointKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortSurplusKW, Kind: core.PortQuantity, Unit: "kW"},
		},
	}
}

func (m *EnergyManagement) ID() string   { return m.id }
func (m *EnergyManagement) Name() string { return "Energy Management System" }

func (m *EnergyManagement) Inputs() []core.PortSpec  { return m.inputs }
func (m *EnergyManagement) Outputs() []core.PortSpec { return m.outputs }

func (m *EnergyManagement) Init() error { return nil }

func (m *EnergyManagement) Step(ctx core.StepContext, inputs, outputs []float64) error {
	pv := inputs[0]
	consumption := inputs[1]
	heatPump := inputs[2]
	batteryPower := inputs[3]

	surplus := pv - consumption - heatPump
	if surplus >= 0 {
		outputs[0] = surplus
		outputs[1] = max(surplus-max(batteryPower, 0), 0)
	} else {
		outputs[0] = surplus
		outputs[1] = 0
	}
	outputs[2] = surplus
	return nil
}

func (m *EnergyManagement) Commit(core.StepContext, []float64, []float64) {}
