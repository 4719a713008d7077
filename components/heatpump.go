package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

const kelvinOffset = 273.15

// HeatPumpConfig parameterises an air-to-water heat pump.
type HeatPumpConfig struct {
	// MaxThermalPowerKW is the heating power delivered while running.
	MaxThermalPowerKW float64 `mapstructure:"max_thermal_power_kw"`
	// CarnotShare scales the ideal Carnot COP down to a realistic one.
	// 0 means 0.40.
	CarnotShare float64 `mapstructure:"carnot_share"`
	// CondenserOffsetC is the temperature lift above the storage water
	// needed on the condenser side. 0 means 5.
	CondenserOffsetC float64 `mapstructure:"condenser_offset_c"`
	// Profile names the outdoor temperature series in °C. 0 means
	// "ambient_temperature".
	Profile string `mapstructure:"profile"`
}

// Validate checks the configuration for internal consistency.
func (c HeatPumpConfig) Validate() error {
	if c.MaxThermalPowerKW <= 0 {
		return fmt.Errorf("%w: heat pump max_thermal_power_kw must be positive, got %v", core.ErrConfiguration, c.MaxThermalPowerKW)
	}
	if c.CarnotShare < 0 || c.CarnotShare > 1 {
		return fmt.Errorf("%w: heat pump carnot_share must be in [0,1], got %v", core.ErrConfiguration, c.CarnotShare)
	}
	return nil
}

// HeatPump delivers fixed thermal power while its on/off signal is set,
// with a COP derived from the Carnot limit between the outdoor air and the
// condenser temperature. The COP is clamped to [1, 7] so implausible
// temperature pairs cannot produce free energy.
type HeatPump struct {
	id  string
	cfg HeatPumpConfig

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewHeatPump builds a heat pump from a validated configuration.
func NewHeatPump(id string, cfg HeatPumpConfig) (*HeatPump, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("heat pump %q: %w", id, err)
	}
	if cfg.CarnotShare == 0 {
		cfg.CarnotShare = 0.40
	}
	if cfg.CondenserOffsetC == 0 {
		cfg.CondenserOffsetC = 5
	}
	if cfg.Profile == "" {
		cfg.Profile = "ambient_temperature"
	}
	return &HeatPump{
		id:  id,
		cfg: cfg,
		inputs: []core.PortSpec{
			{Name: PortOnOffSignal, Kind: core.PortFlag, Unit: "1"},
			{Name: PortWaterTemperatureC, Kind: core.PortQuantity, Unit: "°C", Default: 40},
		},
		outputs: []core.PortSpec{
			{Name: PortThermalPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortElectricPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortCOP, Kind: core.PortQuantity, Unit: "1"},
		},
	}, nil
}

func (h *HeatPump) ID() string   { return h.id }
func (h *HeatPump) Name() string { return "Air-to-Water Heat Pump" }

func (h *HeatPump) Inputs() []core.PortSpec  { return h.inputs }
func (h *HeatPump) Outputs() []core.PortSpec { return h.outputs }

// Profiles implements core.ProfileUser.
func (h *HeatPump) Profiles() []string { return []string{h.cfg.Profile} }

func (h *HeatPump) Init() error { return nil }

func (h *HeatPump) Step(ctx core.StepContext, inputs, outputs []float64) error {
	ambient, ok := ctx.Profile(h.cfg.Profile)
	if !ok {
		return fmt.Errorf("heat pump %q: profile %q missing at step %d", h.id, h.cfg.Profile, ctx.Index)
	}

	if inputs[0] < 0.5 {
		outputs[0], outputs[1], outputs[2] = 0, 0, 0
		return nil
	}

	condenser := inputs[1] + h.cfg.CondenserOffsetC
	lift := condenser - ambient
	cop := 7.0
	if lift > 0 {
		cop = clamp(h.cfg.CarnotShare*(condenser+kelvinOffset)/lift, 1, 7)
	}

	outputs[0] = h.cfg.MaxThermalPowerKW
	outputs[1] = h.cfg.MaxThermalPowerKW / cop
	outputs[2] = cop
	return nil
}

func (h *HeatPump) Commit(core.StepContext, []float64, []float64) {}
