package core

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID          = errors.New("component id already present")
	ErrUnknownComponent     = errors.New("unknown component")
	ErrUnknownPort          = errors.New("unknown port")
	ErrTypeMismatch         = errors.New("port kind mismatch")
	ErrPortAlreadyConnected = errors.New("input port already connected")
	ErrGraphFrozen          = errors.New("graph is frozen")
)

// Connector is a typed link routing one component's output port to another
// component's input port.
type Connector struct {
	Source PortRef
	Target PortRef
}

// Graph owns the set of components and connectors of a scenario. Assembly
// code builds it before a run; the driver freezes it when the run begins.
// Cycles are expected (controller / storage feedback) and allowed.
type Graph struct {
	components map[string]Component
	order      []string
	connectors []Connector
	byTarget   map[PortRef]PortRef
	frozen     bool
}

// NewGraph creates an empty component graph.
func NewGraph() *Graph {
	return &Graph{
		components: make(map[string]Component),
		byTarget:   make(map[PortRef]PortRef),
	}
}

// AddComponent inserts a component. The component ID must be unique.
func (g *Graph) AddComponent(c Component) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot add component %q", ErrGraphFrozen, c.ID())
	}
	if c == nil || c.ID() == "" {
		return fmt.Errorf("%w: nil component or empty id", ErrUnknownComponent)
	}
	if _, exists := g.components[c.ID()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, c.ID())
	}
	g.components[c.ID()] = c
	g.order = append(g.order, c.ID())
	return nil
}

// Connect links an output port to an input port. Both endpoints must exist,
// the port kinds must match, and an input port accepts at most one
// connector.
func (g *Graph) Connect(src, dst PortRef) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot connect %s -> %s", ErrGraphFrozen, src, dst)
	}

	srcSpec, err := g.outputSpec(src)
	if err != nil {
		return err
	}
	dstSpec, err := g.inputSpec(dst)
	if err != nil {
		return err
	}

	if srcSpec.Kind != dstSpec.Kind {
		return fmt.Errorf("%w: %s is %s, %s is %s",
			ErrTypeMismatch, src, srcSpec.Kind, dst, dstSpec.Kind)
	}
	if prior, exists := g.byTarget[dst]; exists {
		return fmt.Errorf("%w: %s already fed by %s", ErrPortAlreadyConnected, dst, prior)
	}

	g.connectors = append(g.connectors, Connector{Source: src, Target: dst})
	g.byTarget[dst] = src
	return nil
}

// Component returns a component by ID, or nil if not present.
func (g *Graph) Component(id string) Component {
	return g.components[id]
}

// Components returns all components in insertion order.
func (g *Graph) Components() []Component {
	out := make([]Component, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.components[id])
	}
	return out
}

// Connectors returns a copy of the connector set.
func (g *Graph) Connectors() []Connector {
	out := make([]Connector, len(g.connectors))
	copy(out, g.connectors)
	return out
}

// SourceFor returns the output port feeding the given input port, if any.
func (g *Graph) SourceFor(dst PortRef) (PortRef, bool) {
	src, ok := g.byTarget[dst]
	return src, ok
}

// Freeze marks the graph immutable. Further AddComponent/Connect calls fail
// with ErrGraphFrozen.
func (g *Graph) Freeze() {
	g.frozen = true
}

// Frozen reports whether the graph has been frozen.
func (g *Graph) Frozen() bool {
	return g.frozen
}

// TopologicalHint returns a best-effort evaluation order: a topological
// ordering of the acyclic part of the connector-induced digraph (Kahn's
// algorithm, ties broken by insertion order), with components stuck on
// cycles appended afterwards in insertion order. The hint only seeds the
// scheduler's iteration order; it does not require acyclicity.
func (g *Graph) TopologicalHint() []Component {
	indegree := make(map[string]int, len(g.order))
	succ := make(map[string]map[string]struct{}, len(g.order))
	for _, id := range g.order {
		indegree[id] = 0
	}
	for _, conn := range g.connectors {
		from, to := conn.Source.Component, conn.Target.Component
		if from == to {
			continue
		}
		set, ok := succ[from]
		if !ok {
			set = make(map[string]struct{})
			succ[from] = set
		}
		if _, dup := set[to]; dup {
			continue
		}
		set[to] = struct{}{}
		indegree[to]++
	}

	out := make([]Component, 0, len(g.order))
	placed := make(map[string]struct{}, len(g.order))
	for {
		advanced := false
		for _, id := range g.order {
			if _, done := placed[id]; done {
				continue
			}
			if indegree[id] != 0 {
				continue
			}
			placed[id] = struct{}{}
			out = append(out, g.components[id])
			for to := range succ[id] {
				indegree[to]--
			}
			advanced = true
		}
		if !advanced {
			break
		}
	}

	// Whatever remains sits on a cycle; keep insertion order.
	for _, id := range g.order {
		if _, done := placed[id]; !done {
			out = append(out, g.components[id])
		}
	}
	return out
}

// outputSpec resolves an output port reference to its declaration.
func (g *Graph) outputSpec(ref PortRef) (PortSpec, error) {
	c, exists := g.components[ref.Component]
	if !exists {
		return PortSpec{}, fmt.Errorf("%w: %q", ErrUnknownComponent, ref.Component)
	}
	for _, spec := range c.Outputs() {
		if spec.Name == ref.Port {
			return spec, nil
		}
	}
	return PortSpec{}, fmt.Errorf("%w: %s has no output %q", ErrUnknownPort, ref.Component, ref.Port)
}

// inputSpec resolves an input port reference to its declaration.
func (g *Graph) inputSpec(ref PortRef) (PortSpec, error) {
	c, exists := g.components[ref.Component]
	if !exists {
		return PortSpec{}, fmt.Errorf("%w: %q", ErrUnknownComponent, ref.Component)
	}
	for _, spec := range c.Inputs() {
		if spec.Name == ref.Port {
			return spec, nil
		}
	}
	return PortSpec{}, fmt.Errorf("%w: %s has no input %q", ErrUnknownPort, ref.Component, ref.Port)
}
