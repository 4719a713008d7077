package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// HeatPumpControllerConfig parameterises a hysteresis thermostat.
type HeatPumpControllerConfig struct {
	// SetTemperatureC is the target storage water temperature.
	SetTemperatureC float64 `mapstructure:"set_temperature_c"`
	// OffsetC is the half-width of the hysteresis band. 0 means 2.
	OffsetC float64 `mapstructure:"offset_c"`
}

// Validate checks the configuration for internal consistency.
func (c HeatPumpControllerConfig) Validate() error {
	if c.SetTemperatureC <= 0 {
		return fmt.Errorf("%w: controller set_temperature_c must be positive, got %v", core.ErrConfiguration, c.SetTemperatureC)
	}
	if c.OffsetC < 0 {
		return fmt.Errorf("%w: controller offset_c must not be negative, got %v", core.ErrConfiguration, c.OffsetC)
	}
	return nil
}

// HeatPumpController switches a heat pump with a two-point hysteresis
// around the set temperature: on below set−offset, off above set+offset,
// and inside the band it holds the mode committed in the previous step.
// Holding previous-step state rather than previous-iteration state keeps
// Step pure under re-invocation.
type HeatPumpController struct {
	id  string
	cfg HeatPumpControllerConfig

	mode float64 // committed on/off state, 0 or 1

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewHeatPumpController builds a controller from a validated configuration.
func NewHeatPumpController(id string, cfg HeatPumpControllerConfig) (*HeatPumpController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("heat pump controller %q: %w", id, err)
	}
	if cfg.OffsetC == 0 {
		cfg.OffsetC = 2
	}
	return &HeatPumpController{
		id:  id,
		cfg: cfg,
		inputs: []core.PortSpec{
			{Name: PortWaterTemperatureC, Kind: core.PortQuantity, Unit: "°C", Default: cfg.SetTemperatureC},
		},
		outputs: []core.PortSpec{
			{Name: PortOnOffSignal, Kind: core.PortFlag, Unit: "1"},
		},
	}, nil
}

func (c *HeatPumpController) ID() string   { return c.id }
func (c *HeatPumpController) Name() string { return "Heat Pump Controller" }

func (c *HeatPumpController) Inputs() []core.PortSpec  { return c.inputs }
func (c *HeatPumpController) Outputs() []core.PortSpec { return c.outputs }

func (c *HeatPumpController) Init() error {
	c.mode = 0
	return nil
}

func (c *HeatPumpController) Step(ctx core.StepContext, inputs, outputs []float64) error {
	water := inputs[0]
	switch {
	case water < c.cfg.SetTemperatureC-c.cfg.OffsetC:
		outputs[0] = 1
	case water > c.cfg.SetTemperatureC+c.cfg.OffsetC:
		outputs[0] = 0
	default:
		outputs[0] = c.mode
	}
	return nil
}

func (c *HeatPumpController) Commit(ctx core.StepContext, inputs, outputs []float64) {
	c.mode = outputs[0]
}
