package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// Specific heat capacity of water in kJ/(kg·K).
const waterHeatCapacity = 4.186

// HotWaterStorageConfig parameterises a stratification-free hot water tank.
type HotWaterStorageConfig struct {
	VolumeLiters float64 `mapstructure:"volume_liters"`
	// InitialTemperatureC is the water temperature at the start of a run.
	InitialTemperatureC float64 `mapstructure:"initial_temperature_c"`
	// AmbientTemperatureC is the temperature of the room the tank loses
	// heat to. 0 means 20.
	AmbientTemperatureC float64 `mapstructure:"ambient_temperature_c"`
	// LossCoefficientWPerK is the standing-loss coefficient of the tank
	// envelope.
	LossCoefficientWPerK float64 `mapstructure:"loss_coefficient_w_per_k"`
}

// Validate checks the configuration for internal consistency.
func (c HotWaterStorageConfig) Validate() error {
	if c.VolumeLiters <= 0 {
		return fmt.Errorf("%w: storage volume_liters must be positive, got %v", core.ErrConfiguration, c.VolumeLiters)
	}
	if c.LossCoefficientWPerK < 0 {
		return fmt.Errorf("%w: storage loss_coefficient_w_per_k must not be negative, got %v", core.ErrConfiguration, c.LossCoefficientWPerK)
	}
	return nil
}

// HotWaterStorage is a single-node tank integrated with explicit Euler:
// the temperature it reports during a step is the one committed at the end
// of the previous step, and the energy balance of charging, demand, and
// standing losses is applied in Commit. Reporting start-of-step
// temperature keeps the thermal loop (controller, heat pump, tank) from
// feeding back within one step.
type HotWaterStorage struct {
	id  string
	cfg HotWaterStorageConfig

	temperature float64 // committed water temperature in °C

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewHotWaterStorage builds a tank from a validated configuration.
func NewHotWaterStorage(id string, cfg HotWaterStorageConfig) (*HotWaterStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("hot water storage %q: %w", id, err)
	}
	if cfg.AmbientTemperatureC == 0 {
		cfg.AmbientTemperatureC = 20
	}
	return &HotWaterStorage{
		id:          id,
		cfg:         cfg,
		temperature: cfg.InitialTemperatureC,
		inputs: []core.PortSpec{
			{Name: PortThermalPowerInKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortHeatDemandKW, Kind: core.PortQuantity, Unit: "kW"},
		},
		outputs: []core.PortSpec{
			{Name: PortWaterTemperatureC, Kind: core.PortQuantity, Unit: "°C", Default: cfg.InitialTemperatureC},
		},
	}, nil
}

func (s *HotWaterStorage) ID() string   { return s.id }
func (s *HotWaterStorage) Name() string { return "Hot Water Storage" }

func (s *HotWaterStorage) Inputs() []core.PortSpec  { return s.inputs }
func (s *HotWaterStorage) Outputs() []core.PortSpec { return s.outputs }

func (s *HotWaterStorage) Init() error {
	s.temperature = s.cfg.InitialTemperatureC
	return nil
}

func (s *HotWaterStorage) Step(ctx core.StepContext, inputs, outputs []float64) error {
	outputs[0] = s.temperature
	return nil
}

func (s *HotWaterStorage) Commit(ctx core.StepContext, inputs, outputs []float64) {
	lossKW := s.cfg.LossCoefficientWPerK * (s.temperature - s.cfg.AmbientTemperatureC) / 1000
	netKW := inputs[0] - inputs[1] - lossKW

	massKg := s.cfg.VolumeLiters // 1 l of water ~ 1 kg
	energyKJ := netKW * ctx.StepDuration.Seconds()
	s.temperature += energyKJ / (massKg * waterHeatCapacity)
}
