package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Params are the tunable physics constants. Layout quality depends on their
// ratios more than on their absolute values.
type Params struct {
	Repulsion       float64 `toml:"repulsion"`
	Attraction      float64 `toml:"attraction"`
	RestLength      float64 `toml:"rest_length"`
	Damping         float64 `toml:"damping"`
	Gravity         float64 `toml:"gravity"`
	BoundaryPadding float64 `toml:"boundary_padding"`
	BoundaryNudge   float64 `toml:"boundary_nudge"`
	Epsilon         float64 `toml:"epsilon"`
	MinDistance     float64 `toml:"min_distance"`
	MaxTicks        int     `toml:"max_ticks"`
}

// DefaultParams returns the constants the graph view ships with.
func DefaultParams() Params {
	return Params{
		Repulsion:       5000,
		Attraction:      0.05,
		RestLength:      80,
		Damping:         0.85,
		Gravity:         0.001,
		BoundaryPadding: 50,
		BoundaryNudge:   1,
		Epsilon:         0.1,
		MinDistance:     1,
		MaxTicks:        0,
	}
}

// Step advances the layout by one tick and returns the aggregate movement
// Σ(|vx|+|vy|) of the nodes that moved.
//
// Fixed flags are snapshotted at the start of the tick; a fixed node still
// pushes and pulls the others but is never moved by forces.
func Step(g *Graph, size Size, p Params) float64 {
	if g.Empty() {
		return 0
	}
	nodes := g.Nodes
	for _, n := range nodes {
		n.pinned = n.Fixed
	}

	minDist := p.MinDistance
	if minDist <= 0 {
		minDist = 1
	}

	// Repulsion between every unordered pair. O(n²); fine for a few hundred nodes.
	for i := 0; i < len(nodes); i++ {
		a := nodes[i]
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			d := r2.Sub(b.Pos, a.Pos)
			dist := math.Max(r2.Norm(d), minDist)
			f := r2.Scale(p.Repulsion/(dist*dist)/dist, d)
			if !a.pinned {
				a.Vel = r2.Sub(a.Vel, f)
			}
			if !b.pinned {
				b.Vel = r2.Add(b.Vel, f)
			}
		}
	}

	// Springs towards the rest length.
	for _, e := range g.Edges {
		s, t := e.Source, e.Target
		d := r2.Sub(t.Pos, s.Pos)
		dist := math.Max(r2.Norm(d), minDist)
		f := r2.Scale((dist-p.RestLength)*p.Attraction/dist, d)
		if !s.pinned {
			s.Vel = r2.Add(s.Vel, f)
		}
		if !t.pinned {
			t.Vel = r2.Sub(t.Vel, f)
		}
	}

	center := size.Center()
	pad := p.BoundaryPadding
	movement := 0.0
	for _, n := range nodes {
		if n.pinned {
			n.Vel = r2.Vec{}
			continue
		}

		n.Vel = r2.Add(n.Vel, r2.Scale(p.Gravity, r2.Sub(center, n.Pos)))

		if n.Pos.X < pad {
			n.Vel.X += p.BoundaryNudge
		}
		if n.Pos.X > size.Width-pad {
			n.Vel.X -= p.BoundaryNudge
		}
		if n.Pos.Y < pad {
			n.Vel.Y += p.BoundaryNudge
		}
		if n.Pos.Y > size.Height-pad {
			n.Vel.Y -= p.BoundaryNudge
		}

		n.Vel = r2.Scale(p.Damping, n.Vel)
		n.Pos = r2.Add(n.Pos, n.Vel)
		movement += math.Abs(n.Vel.X) + math.Abs(n.Vel.Y)
	}
	return movement
}
