package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// LoadConfig parameterises a profile-driven demand component.
type LoadConfig struct {
	// Profile names the external series (kW per step) this load follows.
	Profile string `mapstructure:"profile"`
	// ScaleFactor multiplies every profile value. 0 means 1.
	ScaleFactor float64 `mapstructure:"scale_factor"`
	// Unit labels the output port; defaults to "kW".
	Unit string `mapstructure:"unit"`
}

// Validate checks the configuration for internal consistency.
func (c LoadConfig) Validate() error {
	if c.Profile == "" {
		return fmt.Errorf("%w: load requires a profile name", core.ErrConfiguration)
	}
	if c.ScaleFactor < 0 {
		return fmt.Errorf("%w: load scale_factor must not be negative, got %v", core.ErrConfiguration, c.ScaleFactor)
	}
	return nil
}

// Load replays an external demand profile, optionally scaled. It models
// any exogenous consumer: household electricity demand, hot water draw,
// or space heating demand, depending on what it is wired to.
type Load struct {
	id  string
	cfg LoadConfig

	outputs []core.PortSpec
}

// NewLoad builds a load from a validated configuration.
func NewLoad(id string, cfg LoadConfig) (*Load, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load %q: %w", id, err)
	}
	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = 1
	}
	if cfg.Unit == "" {
		cfg.Unit = "kW"
	}
	return &Load{
		id:  id,
		cfg: cfg,
		outputs: []core.PortSpec{
			{Name: PortConsumptionKW, Kind: core.PortQuantity, Unit: cfg.Unit},
		},
	}, nil
}

func (l *Load) ID() string   { return l.id }
func (l *Load) Name() string { return "Profile Load" }

func (l *Load) Inputs() []core.PortSpec  { return nil }
func (l *Load) Outputs() []core.PortSpec { return l.outputs }

// Profiles implements core.ProfileUser.
func (l *Load) Profiles() []string { return []string{l.cfg.Profile} }

func (l *Load) Init() error { return nil }

func (l *Load) Step(ctx core.StepContext, inputs, outputs []float64) error {
	v, ok := ctx.Profile(l.cfg.Profile)
	if !ok {
		return fmt.Errorf("load %q: profile %q missing at step %d", l.id, l.cfg.Profile, ctx.Index)
	}
	outputs[0] = v * l.cfg.ScaleFactor
	return nil
}

func (l *Load) Commit(core.StepContext, []float64, []float64) {}
