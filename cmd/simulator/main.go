package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apoorvanp/Master-Simulations/core"
	"github.com/Apoorvanp/Master-Simulations/internal/logging"
	"github.com/Apoorvanp/Master-Simulations/internal/observability"
	"github.com/Apoorvanp/Master-Simulations/scenario"
	"github.com/Apoorvanp/Master-Simulations/timectrl"
)

func main() {
	scenarioPath := flag.String("scenario", "", "scenario file (.json or .yaml); empty runs the built-in demo household")
	horizon := flag.Int("horizon", 0, "override the scenario horizon (number of steps)")
	csvPath := flag.String("csv", "", "write per-step results to this CSV file")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
	realtime := flag.Bool("realtime", false, "pace steps against the wall clock instead of running flat out")
	quiet := flag.Bool("quiet", false, "suppress the per-step output")

	flag.Parse()

	if err := run(*scenarioPath, *horizon, *csvPath, *metricsAddr, *realtime, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(scenarioPath string, horizon int, csvPath, metricsAddr string, realtime, quiet bool) error {
	ctx := context.Background()
	log := logging.NewFromEnv()
	ctx, log = logging.WithRunLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	var sc *scenario.Scenario
	if scenarioPath != "" {
		sc, err = scenario.Load(scenarioPath)
		if err != nil {
			return err
		}
	} else {
		sc, err = demoHousehold()
		if err != nil {
			return fmt.Errorf("assemble demo household: %w", err)
		}
	}
	if horizon > 0 {
		sc.Params.Horizon = horizon
	}

	var collector *observability.EngineCollector
	if metricsAddr != "" {
		collector, err = observability.NewEngineCollector(nil)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		collector.SetScenarioCounts(
			len(sc.Graph.Components()),
			len(sc.Graph.Connectors()),
			len(sc.Profiles),
		)
		go func() {
			if err := http.ListenAndServe(metricsAddr, collector.Handler()); err != nil {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
	}

	opts := []core.Option{
		core.WithLogger(log),
		core.WithProfiles(sc.Profiles),
	}
	if realtime {
		pacer := timectrl.NewTimeController(sc.Params.Start, sc.Params.StepDuration, timectrl.RealTime)
		opts = append(opts, core.WithPacer(pacer))
	}

	driver, err := core.NewDriver(sc.Graph, sc.Engine, sc.Params, opts...)
	if err != nil {
		return err
	}
	driver.AddStepListener(func(r core.StepResult) {
		collector.ObserveStep(r.Rounds, r.Converged)
		if !quiet {
			printStep(r)
		}
	})

	fmt.Printf("Running %q: %d steps of %s from %s\n",
		sc.Name, sc.Params.Horizon, sc.Params.StepDuration, sc.Params.Start.Format(time.RFC3339))

	runCtx, span := otel.Tracer("simulator").Start(ctx, "simulation.run",
		trace.WithAttributes(
			attribute.String("scenario", sc.Name),
			attribute.Int("horizon", sc.Params.Horizon),
		),
	)
	started := time.Now()
	results, runErr := driver.Run(runCtx)
	collector.ObserveRunDuration(time.Since(started))
	span.End()

	if results != nil {
		printSummary(results)
		if csvPath != "" {
			if err := writeCSV(csvPath, results); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			fmt.Printf("Results written to %s\n", csvPath)
		}
	}
	return runErr
}

// demoHousehold assembles the built-in scenario: a household load, a PV
// array, a battery behind an energy manager, a heat pump loop on a hot
// water tank, and a billing meter, over one simulated day in 15-minute
// steps.
func demoHousehold() (*scenario.Scenario, error) {
	doc := scenario.Document{
		Name:    "demo-household",
		Start:   "2026-06-01T00:00:00Z",
		Step:    "15m",
		Horizon: 96,
		Components: []scenario.ComponentSection{
			{ID: "household", Type: "load", Config: map[string]any{"profile": "electricity_demand"}},
			{ID: "heatdemand", Type: "load", Config: map[string]any{"profile": "heat_demand"}},
			{ID: "pv", Type: "pv", Config: map[string]any{"peak_power_kw": 8.0}},
			{ID: "battery", Type: "battery", Config: map[string]any{
				"capacity_kwh":     10.0,
				"max_charge_kw":    5.0,
				"max_discharge_kw": 5.0,
				"initial_soc":      0.5,
			}},
			{ID: "ev", Type: "ev_charger", Config: map[string]any{
				"max_charge_kw":        11.0,
				"battery_capacity_kwh": 60.0,
				"target_soc":           0.8,
				"initial_soc":          0.4,
			}},
			{ID: "ems", Type: "energy_management"},
			{ID: "thermostat", Type: "heat_pump_controller", Config: map[string]any{"set_temperature_c": 50.0}},
			{ID: "heatpump", Type: "heat_pump", Config: map[string]any{"max_thermal_power_kw": 9.0}},
			{ID: "tank", Type: "hot_water_storage", Config: map[string]any{
				"volume_liters":            500.0,
				"initial_temperature_c":    45.0,
				"loss_coefficient_w_per_k": 2.0,
			}},
			{ID: "grid", Type: "grid_meter", Config: map[string]any{
				"price_profile":   "electricity_price",
				"feed_in_profile": "feed_in_tariff",
			}},
		},
		Connections: []string{
			"pv.PowerKW -> ems.PVPowerKW",
			"household.ConsumptionKW -> ems.ConsumptionKW",
			"heatpump.ElectricPowerKW -> ems.HeatPumpPowerKW",
			"battery.PowerKW -> ems.BatteryPowerKW",
			"battery.StateOfCharge -> ems.BatterySOC",
			"ems.BatterySetpointKW -> battery.SetpointKW",
			"ems.EVSetpointKW -> ev.SetpointKW",
			"ev.PowerKW -> grid.EVPowerKW",
			"tank.WaterTemperatureC -> thermostat.WaterTemperatureC",
			"thermostat.OnOffSignal -> heatpump.OnOffSignal",
			"tank.WaterTemperatureC -> heatpump.WaterTemperatureC",
			"heatpump.ThermalPowerKW -> tank.ThermalPowerInKW",
			"heatdemand.ConsumptionKW -> tank.HeatDemandKW",
			"pv.PowerKW -> grid.PVPowerKW",
			"household.ConsumptionKW -> grid.ConsumptionKW",
			"heatpump.ElectricPowerKW -> grid.HeatPumpPowerKW",
			"battery.PowerKW -> grid.BatteryPowerKW",
		},
		Profiles: map[string]scenario.Profile{
			// One representative day at 15-minute resolution; constant
			// series repeat to cover the horizon.
			"electricity_demand":  {Values: demoDemand(), Repeat: true},
			"heat_demand":         {Values: demoHeatDemand(), Repeat: true},
			"irradiance":          {Values: demoIrradiance(), Repeat: true},
			"ambient_temperature": {Values: []float64{12}, Repeat: true},
			"electricity_price":   {Values: []float64{0.30}, Repeat: true},
			"feed_in_tariff":      {Values: []float64{0.08}, Repeat: true},
			"ev_connected":        {Values: demoEVConnected(), Repeat: true},
		},
	}
	return scenario.Build(doc)
}

// demoDemand is a stylised household day: a night base load, a morning
// peak, and an evening peak, at 15-minute resolution.
func demoDemand() []float64 {
	values := make([]float64, 96)
	for i := range values {
		hour := i / 4
		switch {
		case hour >= 6 && hour < 9:
			values[i] = 1.8
		case hour >= 17 && hour < 22:
			values[i] = 2.4
		case hour >= 22 || hour < 6:
			values[i] = 0.3
		default:
			values[i] = 0.8
		}
	}
	return values
}

func demoHeatDemand() []float64 {
	values := make([]float64, 96)
	for i := range values {
		hour := i / 4
		if hour >= 6 && hour < 23 {
			values[i] = 2.0
		} else {
			values[i] = 1.0
		}
	}
	return values
}

// demoEVConnected plugs the car in overnight and after the commute.
func demoEVConnected() []float64 {
	values := make([]float64, 96)
	for i := range values {
		hour := i / 4
		if hour < 7 || hour >= 18 {
			values[i] = 1
		}
	}
	return values
}

// demoIrradiance approximates a clear June day with a flat-topped ramp
// between sunrise and sunset, in W/m².
func demoIrradiance() []float64 {
	values := make([]float64, 96)
	for i := range values {
		hour := float64(i) / 4
		switch {
		case hour < 5 || hour >= 21:
			values[i] = 0
		case hour < 13:
			values[i] = (hour - 5) / 8 * 850
		default:
			values[i] = (21 - hour) / 8 * 850
		}
	}
	return values
}

func printStep(r core.StepResult) {
	marker := ""
	if !r.Converged {
		marker = "  [unconverged]"
	}
	fmt.Printf("[%s] step %3d settled in %2d rounds%s\n",
		r.Time.Format("2006-01-02 15:04"), r.Index, r.Rounds, marker)
}

func printSummary(results *core.ResultsStore) {
	fmt.Printf("Run %s finished: %d steps recorded\n", results.RunID(), results.Len())

	if imported, err := lastValue(results, "grid", "ImportedEnergyKWh"); err == nil {
		fmt.Printf("  grid import: %8.2f kWh\n", imported)
	}
	if exported, err := lastValue(results, "grid", "ExportedEnergyKWh"); err == nil {
		fmt.Printf("  grid export: %8.2f kWh\n", exported)
	}
	if cost, err := lastValue(results, "grid", "EnergyCostEUR"); err == nil {
		fmt.Printf("  energy cost: %8.2f EUR\n", cost)
	}
}

func lastValue(results *core.ResultsStore, component, port string) (float64, error) {
	if results.Len() == 0 {
		return 0, fmt.Errorf("no steps recorded")
	}
	return results.Value(results.Len()-1, core.PortRef{Component: component, Port: port})
}

// writeCSV dumps the full results table: one row per step, one column per
// output port, plus time and convergence metadata.
func writeCSV(path string, results *core.ResultsStore) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	ports := results.Ports()
	header := []string{"step", "time", "converged", "rounds"}
	for _, ref := range ports {
		header = append(header, ref.String())
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for i := 0; i < results.Len(); i++ {
		step := results.Step(i)
		row = row[:0]
		row = append(row,
			strconv.Itoa(step.Index),
			step.Time.Format(time.RFC3339),
			strconv.FormatBool(step.Converged),
			strconv.Itoa(step.Rounds),
		)
		for slot := range ports {
			row = append(row, strconv.FormatFloat(step.Value(slot), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
