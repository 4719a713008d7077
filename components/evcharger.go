package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// EVChargerConfig parameterises a home EV charging point together with
// the vehicle battery it fills.
type EVChargerConfig struct {
	MaxChargeKW        float64 `mapstructure:"max_charge_kw"`
	BatteryCapacityKWh float64 `mapstructure:"battery_capacity_kwh"`
	// TargetSOC stops charging once reached. 0 means 1.
	TargetSOC float64 `mapstructure:"target_soc"`
	// InitialSOC is the vehicle state of charge at the start of a run.
	InitialSOC float64 `mapstructure:"initial_soc"`
	// Efficiency is the wall-to-cells charging efficiency. 0 means 0.95.
	Efficiency float64 `mapstructure:"efficiency"`
	// Profile names the plugged-in flag series (0/1 per step). 0 means
	// "ev_connected".
	Profile string `mapstructure:"profile"`
}

// Validate checks the configuration for internal consistency.
func (c EVChargerConfig) Validate() error {
	if c.MaxChargeKW <= 0 {
		return fmt.Errorf("%w: ev charger max_charge_kw must be positive, got %v", core.ErrConfiguration, c.MaxChargeKW)
	}
	if c.BatteryCapacityKWh <= 0 {
		return fmt.Errorf("%w: ev charger battery_capacity_kwh must be positive, got %v", core.ErrConfiguration, c.BatteryCapacityKWh)
	}
	if c.TargetSOC < 0 || c.TargetSOC > 1 {
		return fmt.Errorf("%w: ev charger target_soc must be in [0,1], got %v", core.ErrConfiguration, c.TargetSOC)
	}
	if c.InitialSOC < 0 || c.InitialSOC > 1 {
		return fmt.Errorf("%w: ev charger initial_soc must be in [0,1], got %v", core.ErrConfiguration, c.InitialSOC)
	}
	if c.Efficiency < 0 || c.Efficiency > 1 {
		return fmt.Errorf("%w: ev charger efficiency must be in [0,1], got %v", core.ErrConfiguration, c.Efficiency)
	}
	return nil
}

// EVCharger charges a vehicle battery while the connection profile says
// the car is plugged in. The setpoint input lets an energy manager steer
// the charging power; when the port is left unconnected the charger runs
// at its full rate.
type EVCharger struct {
	id  string
	cfg EVChargerConfig

	soc float64 // committed vehicle state of charge

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewEVCharger builds a charger from a validated configuration.
func NewEVCharger(id string, cfg EVChargerConfig) (*EVCharger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ev charger %q: %w", id, err)
	}
	if cfg.TargetSOC == 0 {
		cfg.TargetSOC = 1
	}
	if cfg.Efficiency == 0 {
		cfg.Efficiency = 0.95
	}
	if cfg.Profile == "" {
		cfg.Profile = "ev_connected"
	}
	return &EVCharger{
		id:  id,
		cfg: cfg,
		soc: cfg.InitialSOC,
		inputs: []core.PortSpec{
			{Name: PortSetpointKW, Kind: core.PortQuantity, Unit: "kW", Default: cfg.MaxChargeKW},
		},
		outputs: []core.PortSpec{
			{Name: PortPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortStateOfCharge, Kind: core.PortQuantity, Unit: "1", Default: cfg.InitialSOC},
		},
	}, nil
}

func (e *EVCharger) ID() string   { return e.id }
func (e *EVCharger) Name() string { return "EV Charging Point" }

func (e *EVCharger) Inputs() []core.PortSpec  { return e.inputs }
func (e *EVCharger) Outputs() []core.PortSpec { return e.outputs }

// Profiles implements core.ProfileUser.
func (e *EVCharger) Profiles() []string { return []string{e.cfg.Profile} }

func (e *EVCharger) Init() error {
	e.soc = e.cfg.InitialSOC
	return nil
}

func (e *EVCharger) Step(ctx core.StepContext, inputs, outputs []float64) error {
	dt := ctx.StepDuration.Hours()
	if dt <= 0 {
		return fmt.Errorf("ev charger %q: non-positive step duration %v", e.id, ctx.StepDuration)
	}
	connected, ok := ctx.Profile(e.cfg.Profile)
	if !ok {
		return fmt.Errorf("ev charger %q: profile %q missing at step %d", e.id, e.cfg.Profile, ctx.Index)
	}

	if connected < 0.5 || e.soc >= e.cfg.TargetSOC {
		outputs[0] = 0
		outputs[1] = e.soc
		return nil
	}

	power := clamp(inputs[0], 0, e.cfg.MaxChargeKW)
	headroom := (e.cfg.TargetSOC - e.soc) * e.cfg.BatteryCapacityKWh
	power = min(power, headroom/(e.cfg.Efficiency*dt))

	outputs[0] = power
	outputs[1] = clamp(e.soc+power*e.cfg.Efficiency*dt/e.cfg.BatteryCapacityKWh, 0, 1)
	return nil
}

func (e *EVCharger) Commit(ctx core.StepContext, inputs, outputs []float64) {
	e.soc = outputs[1]
}
