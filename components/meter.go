package components

import (
	"fmt"

	"github.com/Apoorvanp/Master-Simulations/core"
)

// GridMeterConfig parameterises the billing meter at the grid connection.
type GridMeterConfig struct {
	// PriceProfile names the import price series in EUR/kWh. Empty
	// disables cost accounting for imports.
	PriceProfile string `mapstructure:"price_profile"`
	// FeedInProfile names the feed-in tariff series in EUR/kWh. Empty
	// disables export remuneration.
	FeedInProfile string `mapstructure:"feed_in_profile"`
}

// GridMeter balances all electric flows of the household and keeps
// running totals of imported and exported energy, plus the net energy
// cost when price profiles are configured. The totals advance in Commit
// only, so convergence iterations never double-count a step.
type GridMeter struct {
	id  string
	cfg GridMeterConfig

	imported float64 // committed total, kWh
	exported float64 // committed total, kWh
	cost     float64 // committed total, EUR

	inputs  []core.PortSpec
	outputs []core.PortSpec
}

// NewGridMeter builds a meter. The configuration has no invalid states.
func NewGridMeter(id string, cfg GridMeterConfig) *GridMeter {
	return &GridMeter{
		id:  id,
		cfg: cfg,
		inputs: []core.PortSpec{
			{Name: PortPVPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortConsumptionKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortHeatPumpPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortBatteryPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortEVPowerKW, Kind: core.PortQuantity, Unit: "kW"},
		},
		outputs: []core.PortSpec{
			{Name: PortGridPowerKW, Kind: core.PortQuantity, Unit: "kW"},
			{Name: PortImportedEnergyKWh, Kind: core.PortAccumulator, Unit: "kWh"},
			{Name: PortExportedEnergyKWh, Kind: core.PortAccumulator, Unit: "kWh"},
			{Name: PortEnergyCostEUR, Kind: core.PortAccumulator, Unit: "EUR"},
		},
	}
}

func (g *GridMeter) ID() string   { return g.id }
func (g *GridMeter) Name() string { return "Grid Meter" }

func (g *GridMeter) Inputs() []core.PortSpec  { return g.inputs }
func (g *GridMeter) Outputs() []core.PortSpec { return g.outputs }

// Profiles implements core.ProfileUser. Only configured price profiles
// are required.
func (g *GridMeter) Profiles() []string {
	var names []string
	if g.cfg.PriceProfile != "" {
		names = append(names, g.cfg.PriceProfile)
	}
	if g.cfg.FeedInProfile != "" {
		names = append(names, g.cfg.FeedInProfile)
	}
	return names
}

func (g *GridMeter) Init() error {
	g.imported, g.exported, g.cost = 0, 0, 0
	return nil
}

func (g *GridMeter) Step(ctx core.StepContext, inputs, outputs []float64) error {
	dt := ctx.StepDuration.Hours()
	if dt <= 0 {
		return fmt.Errorf("grid meter %q: non-positive step duration %v", g.id, ctx.StepDuration)
	}

	pv, consumption, heatPump, battery, ev := inputs[0], inputs[1], inputs[2], inputs[3], inputs[4]

	// Positive grid power is import. Battery power is positive while
	// charging, so it adds to the household demand here.
	grid := consumption + heatPump + battery + ev - pv
	importKWh := max(grid, 0) * dt
	exportKWh := max(-grid, 0) * dt

	stepCost := 0.0
	if g.cfg.PriceProfile != "" {
		price, ok := ctx.Profile(g.cfg.PriceProfile)
		if !ok {
			return fmt.Errorf("grid meter %q: profile %q missing at step %d", g.id, g.cfg.PriceProfile, ctx.Index)
		}
		stepCost += importKWh * price
	}
	if g.cfg.FeedInProfile != "" {
		tariff, ok := ctx.Profile(g.cfg.FeedInProfile)
		if !ok {
			return fmt.Errorf("grid meter %q: profile %q missing at step %d", g.id, g.cfg.FeedInProfile, ctx.Index)
		}
		stepCost -= exportKWh * tariff
	}

	outputs[0] = grid
	outputs[1] = g.imported + importKWh
	outputs[2] = g.exported + exportKWh
	outputs[3] = g.cost + stepCost
	return nil
}

func (g *GridMeter) Commit(ctx core.StepContext, inputs, outputs []float64) {
	g.imported = outputs[1]
	g.exported = outputs[2]
	g.cost = outputs[3]
}
