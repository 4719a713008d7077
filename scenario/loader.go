// Package scenario loads household scenario files (JSON or YAML) and
// assembles them into a component graph, engine configuration, and
// profile set ready to hand to the simulation driver.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Apoorvanp/Master-Simulations/core"
)

var (
	// ErrUnsupportedFormat marks a scenario file extension the loader
	// does not understand.
	ErrUnsupportedFormat = errors.New("unsupported scenario format")
	// ErrBadConnection marks a connection entry that does not parse as
	// "component.Port -> component.Port".
	ErrBadConnection = errors.New("malformed connection")
)

// Document is the on-disk scenario schema. The same struct is decoded
// from JSON and from YAML.
type Document struct {
	Name string `json:"name" yaml:"name"`

	// Start is the simulated start time in RFC 3339 form.
	Start string `json:"start" yaml:"start"`
	// Step is the step duration in Go duration syntax, e.g. "15m".
	Step string `json:"step" yaml:"step"`
	// Horizon is the number of steps to simulate.
	Horizon int `json:"horizon" yaml:"horizon"`

	Engine      EngineSection      `json:"engine" yaml:"engine"`
	Components  []ComponentSection `json:"components" yaml:"components"`
	Connections []string           `json:"connections" yaml:"connections"`
	Profiles    map[string]Profile `json:"profiles" yaml:"profiles"`
}

// EngineSection overrides parts of the engine defaults. Zero fields keep
// the default value.
type EngineSection struct {
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`
	AbsTolerance  float64 `json:"abs_tolerance" yaml:"abs_tolerance"`
	RelTolerance  float64 `json:"rel_tolerance" yaml:"rel_tolerance"`
	// StallPolicy is "abort" or "continue"; empty keeps the default.
	StallPolicy string `json:"stall_policy" yaml:"stall_policy"`
}

// ComponentSection declares one component instance.
type ComponentSection struct {
	ID     string         `json:"id" yaml:"id"`
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config" yaml:"config"`
}

// Profile is one named external series. With Repeat set the values cycle
// until they cover the horizon; otherwise they must cover it as given.
type Profile struct {
	Values []float64 `json:"values" yaml:"values"`
	Repeat bool      `json:"repeat" yaml:"repeat"`
}

// Scenario is a fully assembled simulation setup.
type Scenario struct {
	Name     string
	Params   core.Parameters
	Engine   core.EngineConfig
	Graph    *core.Graph
	Profiles map[string][]float64
}

// Load reads and assembles a scenario file, choosing the decoder by file
// extension (.json, .yaml, .yml).
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var doc Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	return Build(doc)
}

// Build assembles a decoded document into a runnable scenario.
func Build(doc Document) (*Scenario, error) {
	params, err := buildParameters(doc)
	if err != nil {
		return nil, err
	}
	engine, err := buildEngineConfig(doc.Engine)
	if err != nil {
		return nil, err
	}

	graph := core.NewGraph()
	for _, section := range doc.Components {
		component, err := buildComponent(section)
		if err != nil {
			return nil, err
		}
		if err := graph.AddComponent(component); err != nil {
			return nil, err
		}
	}

	for _, raw := range doc.Connections {
		source, target, err := parseConnection(raw)
		if err != nil {
			return nil, err
		}
		if err := graph.Connect(source, target); err != nil {
			return nil, fmt.Errorf("connection %q: %w", raw, err)
		}
	}

	profiles := make(map[string][]float64, len(doc.Profiles))
	for name, p := range doc.Profiles {
		series, err := expandProfile(name, p, doc.Horizon)
		if err != nil {
			return nil, err
		}
		profiles[name] = series
	}

	return &Scenario{
		Name:     doc.Name,
		Params:   params,
		Engine:   engine,
		Graph:    graph,
		Profiles: profiles,
	}, nil
}

func buildParameters(doc Document) (core.Parameters, error) {
	var params core.Parameters

	start, err := time.Parse(time.RFC3339, doc.Start)
	if err != nil {
		return params, fmt.Errorf("%w: start time %q: %v", core.ErrConfiguration, doc.Start, err)
	}
	step, err := time.ParseDuration(doc.Step)
	if err != nil {
		return params, fmt.Errorf("%w: step duration %q: %v", core.ErrConfiguration, doc.Step, err)
	}

	params = core.Parameters{
		Start:        start,
		StepDuration: step,
		Horizon:      doc.Horizon,
	}
	return params, params.Validate()
}

func buildEngineConfig(section EngineSection) (core.EngineConfig, error) {
	cfg := core.DefaultEngineConfig()
	if section.MaxIterations != 0 {
		cfg.MaxIterations = section.MaxIterations
	}
	if section.AbsTolerance != 0 {
		cfg.AbsTolerance = section.AbsTolerance
	}
	if section.RelTolerance != 0 {
		cfg.RelTolerance = section.RelTolerance
	}
	switch strings.ToLower(section.StallPolicy) {
	case "":
	case "abort":
		cfg.StallPolicy = core.StallAbort
	case "continue":
		cfg.StallPolicy = core.StallContinue
	default:
		return cfg, fmt.Errorf("%w: stall_policy %q (want abort or continue)", core.ErrConfiguration, section.StallPolicy)
	}
	return cfg, cfg.Validate()
}

func parseConnection(raw string) (core.PortRef, core.PortRef, error) {
	left, right, ok := strings.Cut(raw, "->")
	if !ok {
		return core.PortRef{}, core.PortRef{}, fmt.Errorf("%w: %q (want \"source.Port -> target.Port\")", ErrBadConnection, raw)
	}
	source, err := parseEndpoint(strings.TrimSpace(left))
	if err != nil {
		return core.PortRef{}, core.PortRef{}, fmt.Errorf("%w: %q: %v", ErrBadConnection, raw, err)
	}
	target, err := parseEndpoint(strings.TrimSpace(right))
	if err != nil {
		return core.PortRef{}, core.PortRef{}, fmt.Errorf("%w: %q: %v", ErrBadConnection, raw, err)
	}
	return source, target, nil
}

func parseEndpoint(s string) (core.PortRef, error) {
	component, port, ok := strings.Cut(s, ".")
	if !ok || component == "" || port == "" {
		return core.PortRef{}, fmt.Errorf("endpoint %q is not component.Port", s)
	}
	return core.PortRef{Component: component, Port: port}, nil
}

func expandProfile(name string, p Profile, horizon int) ([]float64, error) {
	if len(p.Values) == 0 {
		return nil, fmt.Errorf("%w: profile %q has no values", core.ErrConfiguration, name)
	}
	if !p.Repeat || len(p.Values) >= horizon {
		return p.Values, nil
	}
	series := make([]float64, horizon)
	for i := range series {
		series[i] = p.Values[i%len(p.Values)]
	}
	return series, nil
}
