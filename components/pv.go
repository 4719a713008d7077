package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// PVConfig parameterises a photovoltaic system.
type PVConfig struct {
	// PeakPowerKW is the installed DC peak power of the array.
	PeakPowerKW float64 `mapstructure:"peak_power_kw"`
	// PerformanceRatio folds inverter losses, soiling, and temperature
	// derating into one factor. 0 means 0.85.
	PerformanceRatio float64 `mapstructure:"performance_ratio"`
	// Profile names the irradiance series in W/m². 0 means "irradiance".
	Profile string `mapstructure:"profile"`
}

// Validate checks the configuration for internal consistency.
func (c PVConfig) Validate() error {
	if c.PeakPowerKW <= 0 {
		return fmt.Errorf("%w: pv peak_power_kw must be positive, got %v", core.ErrConfiguration, c.PeakPowerKW)
	}
	if c.PerformanceRatio < 0 || c.PerformanceRatio > 1 {
		return fmt.Errorf("%w: pv performance_ratio must be in [0,1], got %v", core.ErrConfiguration, c.PerformanceRatio)
	}
	return nil
}

// PV converts an irradiance profile into AC power using the standard
// peak-power scaling: P = P_peak * G/1000 * PR, with G in W/m².
type PV struct {
	id  string
	cfg PVConfig

	outputs []core.PortSpec
}

// NewPV builds a photovoltaic system from a validated configuration.
func NewPV(id string, cfg PVConfig) (*PV, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pv %q: %w", id, err)
	}
	if cfg.PerformanceRatio == 0 {
		cfg.PerformanceRatio = 0.85
	}
	if cfg.Profile == "" {
		cfg.Profile = "irradiance"
	}
	return &PV{
		id:  id,
		cfg: cfg,
		outputs: []core.PortSpec{
			{Name: PortPowerKW, Kind: core.PortQuantity, Unit: "kW"},
		},
	}, nil
}

func (p *PV) ID() string   { return p.id }
func (p *PV) Name() string { return "Photovoltaic System" }

func (p *PV) Inputs() []core.PortSpec  { return nil }
func (p *PV) Outputs() []core.PortSpec { return p.outputs }

// Profiles implements core.ProfileUser.
func (p *PV) Profiles() []string { return []string{p.cfg.Profile} }

func (p *PV) Init() error { return nil }

func (p *PV) Step(ctx core.StepContext, inputs, outputs []float64) error {
	irradiance, ok := ctx.Profile(p.cfg.Profile)
	if !ok {
		return fmt.Errorf("pv %q: profile %q missing at step %d", p.id, p.cfg.Profile, ctx.Index)
	}
	outputs[0] = p.cfg.PeakPowerKW * max(irradiance, 0) / 1000 * p.cfg.PerformanceRatio
	return nil
}

func (p *PV) Commit(core.StepContext, []float64, []float64) {}
