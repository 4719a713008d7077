package components

import (
	"fmt"
	"math"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// BatteryConfig parameterises a stationary battery.
type BatteryConfig struct {
	CapacityKWh    float64 `mapstructure:"capacity_kwh"`
	MaxChargeKW    float64 `mapstructure:"max_charge_kw"`
	MaxDischargeKW float64 `mapstructure:"max_discharge_kw"`
	// RoundTripEfficiency is split evenly between the charge and the
	// discharge path. 0 means 0.90.
	RoundTripEfficiency float64 `mapstructure:"round_trip_efficiency"`
	// InitialSOC is the state of charge at the start of a run, in [0,1].
	InitialSOC float64 `mapstructure:"initial_soc"`
}

// Validate checks the configuration for internal consistency.
func (c BatteryConfig) Validate() error {
	if c.CapacityKWh <= 0 {
		return fmt.Errorf("%w: battery capacity_kwh must be positive, got %v", core.ErrConfiguration, c.CapacityKWh)
	}
	if c.MaxChargeKW <= 0 || c.MaxDischargeKW <= 0 {
		return fmt.Errorf("%w: battery charge/discharge limits must be positive", core.ErrConfiguration)
	}
	if c.RoundTripEfficiency < 0 || c.RoundTripEfficiency > 1 {
		return fmt.Errorf("%w: battery round_trip_efficiency must be in [0,1], got %v", core.ErrConfiguration, c.RoundTripEfficiency)
	}
	if c.InitialSOC < 0 || c.InitialSOC > 1 {
		return fmt.Errorf("%w: battery initial_soc must be in [0,1], got %v", core.ErrConfiguration, c.InitialSOC)
	}
	return nil
}

// Battery follows a power setpoint (positive = charge, negative =
// discharge), clamped to its power limits and to the energy headroom left
// in the cells. The state of charge only moves in Commit; Step reports the
// achieved power and the SOC the step would end with.
type Battery struct {
	id  string
	cfg BatteryConfig
	// eta is the one-way efficiency, sqrt of the round-trip value.
	eta float64

	soc float64 // committed state of charge

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewBattery builds a battery from a validated configuration.
func NewBattery(id string, cfg BatteryConfig) (*Battery, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("battery %q: %w", id, err)
	}
	if cfg.RoundTripEfficiency == 0 {
		cfg.RoundTripEfficiency = 0.90
	}
	return &Battery{
		id:  id,
		cfg: cfg,
		eta: math.Sqrt(cfg.RoundTripEfficiency),
		soc: cfg.InitialSOC,
		inputs: []core.PortSpec{
			{Name: PortSetpointKW, Kind: core.PortQuantity, Unit: "kW"},
		},
		outputs: []core.PortSpec{
			{Name: PortPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortStateOfCharge, Kind: core.PortQuantity, Unit: "1", Default: cfg.InitialSOC},
		},
	}, nil
}

func (b *Battery) ID() string   { return b.id }
func (b *Battery) Name() string { return "Battery Storage" }

func (b *Battery) Inputs() []core.PortSpec  { return b.inputs }
func (b *Battery) Outputs() []core.PortSpec { return b.outputs }

func (b *Battery) Init() error {
	b.soc = b.cfg.InitialSOC
	return nil
}

func (b *Battery) Step(ctx core.StepContext, inputs, outputs []float64) error {
	dt := ctx.StepDuration.Hours()
	if dt <= 0 {
		return fmt.Errorf("battery %q: non-positive step duration %v", b.id, ctx.StepDuration)
	}

	setpoint := inputs[0]
	var power, newSOC float64
	if setpoint >= 0 {
		// Charging: terminal power limited by the rate cap and by the
		// headroom left after charge losses.
		power = min(setpoint, b.cfg.MaxChargeKW)
		headroom := (1 - b.soc) * b.cfg.CapacityKWh
		power = min(power, headroom/(b.eta*dt))
		newSOC = b.soc + power*dt*b.eta/b.cfg.CapacityKWh
	} else {
		// Discharging: the cells supply |power|/eta, bounded by the
		// stored energy.
		power = max(setpoint, -b.cfg.MaxDischargeKW)
		available := b.soc * b.cfg.CapacityKWh
		power = max(power, -available*b.eta/dt)
		newSOC = b.soc + power*dt/(b.eta*b.cfg.CapacityKWh)
	}

	outputs[0] = power
	outputs[1] = clamp(newSOC, 0, 1)
	return nil
}

func (b *Battery) Commit(ctx core.StepContext, inputs, outputs []float64) {
	b.soc = outputs[1]
}
