package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineCollector bundles Prometheus metrics for the simulation engine and
// provides helpers to wire them into HTTP handlers.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal      *prometheus.CounterVec
	IterationRounds prometheus.Histogram
	RunDuration     prometheus.Histogram

	ScenarioComponents prometheus.Gauge
	ScenarioConnectors prometheus.Gauge
	ScenarioProfiles   prometheus.Gauge
}

// NewEngineCollector registers engine Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_steps_total",
		Help: "Total number of executed simulation steps, labeled by outcome (converged or stalled).",
	}, []string{"outcome"})
	steps, err := registerCounterVec(reg, steps, "simulation_steps_total")
	if err != nil {
		return nil, err
	}

	rounds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_step_iteration_rounds",
		Help:    "Number of convergence iteration rounds needed per simulation step.",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 24, 32},
	})
	rounds, err = registerHistogram(reg, rounds, "simulation_step_iteration_rounds")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_run_duration_seconds",
		Help:    "Wall-clock duration of full simulation runs.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	})
	duration, err = registerHistogram(reg, duration, "simulation_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	components, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_components",
		Help: "Current number of components in the scenario graph.",
	}), "scenario_components")
	if err != nil {
		return nil, err
	}
	connectors, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_connectors",
		Help: "Current number of connectors in the scenario graph.",
	}), "scenario_connectors")
	if err != nil {
		return nil, err
	}
	profiles, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_profiles",
		Help: "Current number of external input profiles supplied to the run.",
	}), "scenario_profiles")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:           gatherer,
		StepsTotal:         steps,
		IterationRounds:    rounds,
		RunDuration:        duration,
		ScenarioComponents: components,
		ScenarioConnectors: connectors,
		ScenarioProfiles:   profiles,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveStep records one executed step: its convergence outcome and the
// number of iteration rounds it took.
func (c *EngineCollector) ObserveStep(rounds int, converged bool) {
	if c == nil {
		return
	}
	outcome := "converged"
	if !converged {
		outcome = "stalled"
	}
	if c.StepsTotal != nil {
		c.StepsTotal.WithLabelValues(outcome).Inc()
	}
	if c.IterationRounds != nil {
		c.IterationRounds.Observe(float64(rounds))
	}
}

// ObserveRunDuration records the wall-clock duration of a completed run.
func (c *EngineCollector) ObserveRunDuration(d time.Duration) {
	if c == nil || c.RunDuration == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
}

// SetScenarioCounts updates the scenario size gauges so dashboards can
// track what is being simulated.
func (c *EngineCollector) SetScenarioCounts(components, connectors, profiles int) {
	if c == nil {
		return
	}
	if c.ScenarioComponents != nil {
		c.ScenarioComponents.Set(float64(components))
	}
	if c.ScenarioConnectors != nil {
		c.ScenarioConnectors.Set(float64(connectors))
	}
	if c.ScenarioProfiles != nil {
		c.ScenarioProfiles.Set(float64(profiles))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
