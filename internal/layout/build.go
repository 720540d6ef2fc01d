// Package layout builds the node/edge working set for the graph view and runs
// the force-directed simulation over it.
package layout

import (
	"math"
	"math/rand/v2"

	"github.com/msalah0e/garden/internal/graph"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	BaseRadius          = 15.0
	RadiusPerConnection = 3.0
	MaxRadiusGrowth     = 20.0

	// SeedJitter is the half-width of the uniform jitter added to seeded positions.
	SeedJitter = 50.0
)

// Size is the viewport extent in screen pixels.
type Size struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Center returns the middle of the viewport.
func (s Size) Center() r2.Vec {
	return r2.Vec{X: s.Width / 2, Y: s.Height / 2}
}

// Node wraps one entity with simulated position and velocity.
type Node struct {
	ID          string
	Entity      *graph.Entity
	Pos         r2.Vec
	Vel         r2.Vec
	Radius      float64
	Connections int

	// Fixed is set while the node is under pointer control.
	Fixed bool

	pinned bool
}

// Edge references the live nodes it connects.
type Edge struct {
	Source *Node
	Target *Node
	Type   string
}

// SelfLoop reports whether both ends are the same node.
func (e *Edge) SelfLoop() bool { return e.Source == e.Target }

// Graph is the working set owned by the engine.
type Graph struct {
	Nodes []*Node
	Edges []*Edge

	byID map[string]*Node
}

// BuildStats are the counts exposed for display after a build.
type BuildStats struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Dropped int `json:"dropped"`
}

// Build converts entities and relationships into a seeded working set.
// Relationships with a missing endpoint are dropped and counted, never fatal.
func Build(entities []*graph.Entity, relationships []graph.Relationship, size Size, rng *rand.Rand) (*Graph, BuildStats) {
	g := &Graph{
		Nodes: make([]*Node, 0, len(entities)),
		Edges: make([]*Edge, 0, len(relationships)),
		byID:  make(map[string]*Node, len(entities)),
	}

	for _, e := range entities {
		if _, dup := g.byID[e.ID]; dup {
			continue
		}
		n := &Node{ID: e.ID, Entity: e}
		g.Nodes = append(g.Nodes, n)
		g.byID[e.ID] = n
	}

	dropped := 0
	for _, rel := range relationships {
		source, target := g.byID[rel.Source], g.byID[rel.Target]
		if source == nil || target == nil {
			dropped++
			continue
		}
		source.Connections++
		target.Connections++
		g.Edges = append(g.Edges, &Edge{Source: source, Target: target, Type: rel.Type})
	}

	for _, n := range g.Nodes {
		n.Radius = RadiusFor(n.Connections)
	}

	g.Reseed(size, rng)
	return g, BuildStats{Nodes: len(g.Nodes), Edges: len(g.Edges), Dropped: dropped}
}

// RadiusFor returns the visual radius for a node of the given degree.
func RadiusFor(connections int) float64 {
	return BaseRadius + math.Min(float64(connections)*RadiusPerConnection, MaxRadiusGrowth)
}

// Reseed spreads nodes evenly on a ring around the viewport centre with
// jitter and zeroes their velocities.
func (g *Graph) Reseed(size Size, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	center := size.Center()
	ring := math.Min(size.Width, size.Height) / 3
	count := float64(len(g.Nodes))

	for i, n := range g.Nodes {
		angle := float64(i) / count * 2 * math.Pi
		jitter := r2.Vec{
			X: (rng.Float64() - 0.5) * 2 * SeedJitter,
			Y: (rng.Float64() - 0.5) * 2 * SeedJitter,
		}
		offset := r2.Scale(ring, r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)})
		n.Pos = r2.Add(r2.Add(center, offset), jitter)
		n.Vel = r2.Vec{}
	}
}

// NodeByID returns the node for an entity id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	if g == nil {
		return nil
	}
	return g.byID[id]
}

// Empty reports whether there is nothing to lay out.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}
