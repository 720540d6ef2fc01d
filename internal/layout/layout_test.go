package layout

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSize = Size{Width: 800, Height: 600}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(7, 42))
}

func entities(ids ...string) []*graph.Entity {
	out := make([]*graph.Entity, len(ids))
	for i, id := range ids {
		out[i] = &graph.Entity{ID: id, Name: id, Type: graph.TypeConcept}
	}
	return out
}

func rel(source, target, typ string) graph.Relationship {
	return graph.Relationship{Source: source, Target: target, Type: typ}
}

func TestBuildScenario(t *testing.T) {
	ents := []*graph.Entity{
		{ID: "a", Type: graph.TypeTechnology, Name: "React"},
		{ID: "b", Type: graph.TypeTechnology, Name: "TypeScript"},
	}
	g, stats := Build(ents, []graph.Relationship{rel("a", "b", "uses")}, testSize, seeded())

	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, BuildStats{Nodes: 2, Edges: 1, Dropped: 0}, stats)
	assert.Equal(t, 1, g.NodeByID("a").Connections)
	assert.Equal(t, 1, g.NodeByID("b").Connections)
	assert.Equal(t, 18.0, g.NodeByID("a").Radius)
	assert.Same(t, g.NodeByID("a"), g.Edges[0].Source)
	assert.Same(t, g.NodeByID("b"), g.Edges[0].Target)
	assert.Equal(t, "uses", g.Edges[0].Type)
}

func TestBuildDropsDanglingRelationships(t *testing.T) {
	rels := []graph.Relationship{
		rel("a", "z", "uses"),
		rel("z", "b", "uses"),
		rel("a", "b", "uses"),
	}
	g, stats := Build(entities("a", "b"), rels, testSize, seeded())

	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, 2, stats.Dropped)
	assert.Nil(t, g.NodeByID("z"))
	assert.Equal(t, 1, g.NodeByID("a").Connections, "dangling relationships do not count towards degree")
}

func TestBuildDegreeInvariant(t *testing.T) {
	ents := entities("a", "b", "c", "d")
	rels := []graph.Relationship{
		rel("a", "b", "uses"),
		rel("a", "b", "uses"),
		rel("b", "a", "supports"),
		rel("c", "c", "references"),
		rel("d", "missing", "uses"),
		rel("a", "c", "part of"),
	}
	g, _ := Build(ents, rels, testSize, seeded())

	present := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	for _, n := range g.Nodes {
		want := 0
		for _, r := range rels {
			if !present[r.Source] || !present[r.Target] {
				continue
			}
			if r.Source == n.ID {
				want++
			}
			if r.Target == n.ID {
				want++
			}
		}
		assert.Equal(t, want, n.Connections, "node %s", n.ID)
		assert.Equal(t, RadiusFor(want), n.Radius)
	}

	for _, e := range g.Edges {
		assert.Same(t, e.Source, g.NodeByID(e.Source.ID))
		assert.Same(t, e.Target, g.NodeByID(e.Target.ID))
	}
}

func TestRadiusIsCapped(t *testing.T) {
	assert.Equal(t, 15.0, RadiusFor(0))
	assert.Equal(t, 30.0, RadiusFor(5))
	assert.Equal(t, 35.0, RadiusFor(7))
	assert.Equal(t, 35.0, RadiusFor(100))
}

func TestReseedRing(t *testing.T) {
	g, _ := Build(entities("a", "b", "c", "d"), nil, testSize, seeded())
	center := testSize.Center()
	ring := 200.0

	for _, n := range g.Nodes {
		d := math.Hypot(n.Pos.X-center.X, n.Pos.Y-center.Y)
		assert.InDelta(t, ring, d, SeedJitter*math.Sqrt2+1e-9)
		assert.Zero(t, n.Vel.X)
		assert.Zero(t, n.Vel.Y)
	}

	again, _ := Build(entities("a", "b", "c", "d"), nil, testSize, seeded())
	for i := range g.Nodes {
		assert.Equal(t, g.Nodes[i].Pos, again.Nodes[i].Pos, "same seed gives same layout")
	}
}

func smallGraph(t *testing.T) *Graph {
	t.Helper()
	rels := []graph.Relationship{
		rel("a", "b", "uses"),
		rel("b", "c", "uses"),
		rel("c", "d", "uses"),
		rel("a", "e", "uses"),
	}
	g, stats := Build(entities("a", "b", "c", "d", "e"), rels, testSize, seeded())
	require.Equal(t, 4, stats.Edges)
	return g
}

func TestSimulationConverges(t *testing.T) {
	g := smallGraph(t)
	clock := NewManualClock()
	sim := NewSimulation(clock, DefaultParams(), func() Size { return testSize })
	sim.SetGraph(g)

	settled := -1
	sim.OnSettle(func(ticks int) { settled = ticks })

	sim.Start()
	require.True(t, sim.Running())

	fired := clock.RunUntilIdle(2000)
	assert.False(t, sim.Running(), "simulation should settle within 2000 ticks")
	assert.Less(t, fired, 2000)
	assert.Equal(t, fired, settled)
	assert.Zero(t, clock.Pending())

	for _, n := range g.Nodes {
		assert.False(t, math.IsNaN(n.Pos.X) || math.IsNaN(n.Pos.Y), "node %s has NaN position", n.ID)
	}
}

func TestFixedNodeDoesNotMove(t *testing.T) {
	g := smallGraph(t)
	pinned := g.NodeByID("b")
	pinned.Fixed = true
	before := pinned.Pos

	for i := 0; i < 200; i++ {
		Step(g, testSize, DefaultParams())
		require.Equal(t, before, pinned.Pos)
	}

	moved := false
	for _, n := range g.Nodes {
		if n != pinned && n.Vel != (pinned.Vel) {
			moved = true
		}
	}
	assert.True(t, moved, "other nodes still feel the pinned node")
}

func TestStepHandlesCoincidentNodesAndSelfLoops(t *testing.T) {
	g, _ := Build(entities("a", "b"), []graph.Relationship{rel("a", "a", "references")}, testSize, seeded())
	g.Nodes[1].Pos = g.Nodes[0].Pos

	Step(g, testSize, DefaultParams())
	for _, n := range g.Nodes {
		assert.False(t, math.IsNaN(n.Pos.X) || math.IsInf(n.Pos.X, 0))
		assert.False(t, math.IsNaN(n.Pos.Y) || math.IsInf(n.Pos.Y, 0))
	}
}

func TestStepPairForces(t *testing.T) {
	g, _ := Build(entities("a", "b"), []graph.Relationship{rel("a", "b", "uses")}, testSize, seeded())
	a, b := g.Nodes[0], g.Nodes[1]
	a.Pos.X, a.Pos.Y = 350, 300
	b.Pos.X, b.Pos.Y = 450, 300

	p := DefaultParams()
	p.Gravity = 0
	Step(g, testSize, p)

	dist := 100.0
	push := p.Repulsion / (dist * dist)
	pull := (dist - p.RestLength) * p.Attraction
	want := p.Damping * (pull - push)

	assert.InDelta(t, want, a.Vel.X, 1e-9)
	assert.InDelta(t, -want, b.Vel.X, 1e-9)
	assert.Zero(t, a.Vel.Y)
	assert.Zero(t, b.Vel.Y)
	assert.InDelta(t, 350+want, a.Pos.X, 1e-9)
	assert.InDelta(t, 450-want, b.Pos.X, 1e-9)
}

func TestStepBoundaryNudge(t *testing.T) {
	g, _ := Build(entities("a"), nil, testSize, seeded())
	n := g.Nodes[0]
	n.Pos.X, n.Pos.Y = 10, 590

	p := DefaultParams()
	p.Gravity = 0
	Step(g, testSize, p)

	assert.InDelta(t, p.Damping*p.BoundaryNudge, n.Vel.X, 1e-9)
	assert.InDelta(t, -p.Damping*p.BoundaryNudge, n.Vel.Y, 1e-9)
}

func TestStartIsNoopWhenEmptyOrRunning(t *testing.T) {
	clock := NewManualClock()
	sim := NewSimulation(clock, DefaultParams(), func() Size { return testSize })

	sim.Start()
	assert.False(t, sim.Running())
	assert.Zero(t, clock.Pending())

	empty, _ := Build(nil, nil, testSize, seeded())
	sim.SetGraph(empty)
	sim.Start()
	assert.False(t, sim.Running())

	sim.SetGraph(smallGraph(t))
	sim.Start()
	sim.Start()
	assert.Equal(t, 1, clock.Pending())
}

func TestStopCancelsPendingTick(t *testing.T) {
	clock := NewManualClock()
	sim := NewSimulation(clock, DefaultParams(), func() Size { return testSize })
	sim.SetGraph(smallGraph(t))

	sim.Start()
	clock.Advance()
	require.True(t, sim.Running())

	sim.Stop()
	assert.False(t, sim.Running())
	assert.Zero(t, clock.Pending())
	assert.Equal(t, 1, sim.Ticks())
}

func TestResetReseedsAndRestarts(t *testing.T) {
	clock := NewManualClock()
	sim := NewSimulation(clock, DefaultParams(), func() Size { return testSize })
	g := smallGraph(t)
	sim.SetGraph(g)

	sim.Start()
	clock.RunUntilIdle(5000)
	require.False(t, sim.Running())

	sim.Reset(rand.New(rand.NewPCG(1, 2)))
	assert.True(t, sim.Running())
	for _, n := range g.Nodes {
		assert.Zero(t, n.Vel.X)
		assert.Zero(t, n.Vel.Y)
	}
}

func TestMaxTicksCapsRun(t *testing.T) {
	clock := NewManualClock()
	p := DefaultParams()
	p.MaxTicks = 3
	sim := NewSimulation(clock, p, func() Size { return testSize })
	sim.SetGraph(smallGraph(t))

	sim.Start()
	assert.Equal(t, 3, clock.RunUntilIdle(0))
	assert.False(t, sim.Running())
}

func TestManualClockCancel(t *testing.T) {
	clock := NewManualClock()
	var fired []int
	h1 := clock.RequestTick(func() { fired = append(fired, 1) })
	clock.RequestTick(func() { fired = append(fired, 2) })
	clock.Cancel(h1)

	assert.Equal(t, 1, clock.RunUntilIdle(0))
	assert.Equal(t, []int{2}, fired)
	assert.False(t, clock.Advance())
}
