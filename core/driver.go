package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Apoorvanp/Master-Simulations/internal/logging"
)

// Pacer throttles the driver between steps. The accelerated/real-time
// pacing in timectrl implements it; a nil pacer runs the horizon as fast
// as it computes.
type Pacer interface {
	Advance(ctx context.Context) (time.Time, error)
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets a structured logger. The default drops all logs.
func WithLogger(log logging.Logger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithProfile registers a named external profile. The values must cover at
// least the run horizon, aligned by step index.
func WithProfile(name string, values []float64) Option {
	return func(d *Driver) {
		d.profiles[name] = values
	}
}

// WithProfiles registers several named profiles at once.
func WithProfiles(profiles map[string][]float64) Option {
	return func(d *Driver) {
		for name, values := range profiles {
			d.profiles[name] = values
		}
	}
}

// WithPacer throttles the run (e.g. real-time pacing for demonstration
// runs). The driver itself stays synchronous and step-ordered.
func WithPacer(p Pacer) Option {
	return func(d *Driver) {
		d.pacer = p
	}
}

// Driver iterates the step scheduler across the full time horizon, supplies
// per-step external context, and accumulates the step results. Steps are
// strictly ordered; cancellation is honoured only at step boundaries.
type Driver struct {
	graph    *Graph
	cfg      EngineConfig
	params   Parameters
	log      logging.Logger
	pacer    Pacer
	profiles map[string][]float64

	sched     *Scheduler
	results   *ResultsStore
	listeners []func(StepResult)
}

// NewDriver validates the configuration and prepares a driver over the
// given graph. The graph is frozen when Run is first invoked.
func NewDriver(g *Graph, cfg EngineConfig, params Parameters, opts ...Option) (*Driver, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		graph:    g,
		cfg:      cfg,
		params:   params,
		log:      logging.Noop(),
		profiles: make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// AddStepListener registers a callback invoked with every committed step
// result, in step order.
func (d *Driver) AddStepListener(fn func(StepResult)) {
	d.listeners = append(d.listeners, fn)
}

// Results returns the results store of the most recent run, or nil before
// the first run.
func (d *Driver) Results() *ResultsStore {
	return d.results
}

// Run executes the full horizon. Every step runs to Committed; a stalled
// step either aborts the run (StallAbort) or is committed with its last
// tentative values and flagged unconverged (StallContinue). A partially
// filled, sealed results store is returned alongside any error.
func (d *Driver) Run(ctx context.Context) (*ResultsStore, error) {
	if err := d.checkProfiles(); err != nil {
		return nil, err
	}

	for _, c := range d.graph.Components() {
		if err := c.Init(); err != nil {
			return nil, fmt.Errorf("component %q init: %w", c.ID(), err)
		}
	}

	if d.sched == nil {
		sched, err := NewScheduler(d.graph, d.cfg)
		if err != nil {
			return nil, err
		}
		d.sched = sched
	} else {
		d.sched.Reset()
	}

	results, err := NewResultsStore(d.sched.Ports())
	if err != nil {
		return nil, err
	}
	d.results = results

	d.log.Info(ctx, "run started",
		logging.String("run_id", results.RunID().String()),
		logging.Int("horizon", d.params.Horizon),
		logging.String("step", d.params.StepDuration.String()),
		logging.Int("components", len(d.graph.Components())),
	)

	stepProfiles := make(map[string]float64, len(d.profiles))
	stalled := 0

	for i := 0; i < d.params.Horizon; i++ {
		// Cancellation is only safe between steps, once the previous
		// step has committed.
		select {
		case <-ctx.Done():
			results.Seal()
			return results, ctx.Err()
		default:
		}

		if d.pacer != nil {
			if _, err := d.pacer.Advance(ctx); err != nil {
				results.Seal()
				return results, err
			}
		}

		for name, values := range d.profiles {
			stepProfiles[name] = values[i]
		}
		stepCtx := StepContext{
			Index:        i,
			Time:         d.params.Start.Add(time.Duration(i) * d.params.StepDuration),
			StepDuration: d.params.StepDuration,
			profiles:     stepProfiles,
		}

		outcome, err := d.sched.RunStep(stepCtx)
		if err != nil {
			var nce *NonConvergenceError
			if !errors.As(err, &nce) || d.cfg.StallPolicy != StallContinue {
				results.Seal()
				return results, err
			}

			// Tolerated stall: commit the tentative values and flag the
			// step so the instability stays visible in the results.
			d.log.Warn(ctx, "step stalled, committing tentative values",
				logging.Int("step", i),
				logging.Int("rounds", nce.Rounds),
				logging.Any("unsettled", nce.Dirty),
			)
			outcome, err = d.sched.CommitStalled(stepCtx)
			if err != nil {
				results.Seal()
				return results, err
			}
			outcome.Converged = false
			stalled++
		}

		if err := results.Append(i, stepCtx.Time, outcome); err != nil {
			return results, err
		}
		last := results.Step(results.Len() - 1)
		for _, fn := range d.listeners {
			fn(last)
		}
	}

	results.Seal()
	d.log.Info(ctx, "run complete",
		logging.String("run_id", results.RunID().String()),
		logging.Int("steps", results.Len()),
		logging.Int("stalled_steps", stalled),
	)
	return results, nil
}

// checkProfiles verifies, before any step executes, that every profile a
// component declares exists and that all supplied profiles cover the
// horizon. Missing profiles are a configuration error; short profiles
// raise ProfileLengthError.
func (d *Driver) checkProfiles() error {
	for _, c := range d.graph.Components() {
		user, ok := c.(ProfileUser)
		if !ok {
			continue
		}
		for _, name := range user.Profiles() {
			if _, exists := d.profiles[name]; !exists {
				return fmt.Errorf("%w: component %q needs profile %q", ErrConfiguration, c.ID(), name)
			}
		}
	}
	for name, values := range d.profiles {
		if len(values) < d.params.Horizon {
			return &ProfileLengthError{Name: name, Have: len(values), Want: d.params.Horizon}
		}
	}
	return nil
}
