package render

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/layout"
	"github.com/msalah0e/garden/internal/selection"
	"github.com/msalah0e/garden/internal/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var size = layout.Size{Width: 400, Height: 300}

func pair(t *testing.T) *layout.Graph {
	t.Helper()
	ents := []*graph.Entity{
		{ID: "a", Type: graph.TypeTechnology, Name: "React"},
		{ID: "b", Type: graph.TypePerson, Name: "A rather long person name"},
		{ID: "c", Type: "alien", Name: "Loop <&>"},
	}
	rels := []graph.Relationship{
		{Source: "a", Target: "b", Type: "uses"},
		{Source: "c", Target: "c", Type: "references"},
	}
	g, _ := layout.Build(ents, rels, size, nil)
	g.NodeByID("a").Pos = r2.Vec{X: 100, Y: 100}
	g.NodeByID("b").Pos = r2.Vec{X: 200, Y: 100}
	g.NodeByID("c").Pos = r2.Vec{X: 300, Y: 200}
	return g
}

func nodeView(t *testing.T, s Scene, id string) NodeView {
	t.Helper()
	for _, n := range s.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not in scene", id)
	return NodeView{}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "React", Truncate("React"))
	assert.Equal(t, "exactly fifteen", Truncate("exactly fifteen"))
	assert.Equal(t, "A rather long p...", Truncate("A rather long person name"))
	assert.Equal(t, "ÄÄÄÄÄÄÄÄÄÄÄÄÄÄÄ...", Truncate(strings.Repeat("Ä", 20)))
}

func TestComposeGeometry(t *testing.T) {
	g := pair(t)
	opts := DefaultOptions()
	opts.ShowEdgeLabels = true
	s := Compose(g, &selection.State{}, viewport.New(0, 0), size, opts)

	require.Len(t, s.Nodes, 3)
	require.Len(t, s.Edges, 2)

	a := nodeView(t, s, "a")
	assert.Equal(t, "#3b82f6", a.Color)
	assert.Equal(t, 18.0, a.Radius)
	assert.Equal(t, 100+18+14.0, a.LabelY)
	assert.Equal(t, "A rather long p...", nodeView(t, s, "b").Label)
	assert.Equal(t, FallbackColor, nodeView(t, s, "c").Color)

	e := s.Edges[0]
	assert.InDelta(t, 100+20, e.X1, 1e-9, "shortened by source radius + 2")
	assert.InDelta(t, 200-20, e.X2, 1e-9)
	assert.InDelta(t, 100, e.Y1, 1e-9)
	assert.InDelta(t, 150, e.LabelX, 1e-9)
	assert.InDelta(t, 95, e.LabelY, 1e-9)
	assert.Equal(t, "uses", e.Label)

	loop := s.Edges[1]
	assert.True(t, loop.SelfLoop)
	assert.Equal(t, loop.X1, loop.X2)
	assert.Equal(t, loop.Y1, loop.Y2)
	assert.Less(t, loop.LabelY, 200.0)
	for _, f := range []float64{loop.X1, loop.Y1, loop.LabelX, loop.LabelY} {
		assert.False(t, math.IsNaN(f))
	}
}

func TestComposeLabelToggles(t *testing.T) {
	g := pair(t)
	s := Compose(g, nil, nil, size, Options{})
	for _, n := range s.Nodes {
		assert.Empty(t, n.Label)
	}
	for _, e := range s.Edges {
		assert.Empty(t, e.Label)
	}
	assert.Equal(t, 1.0, s.Zoom)
}

func TestComposeSelectionAndFilter(t *testing.T) {
	g := pair(t)
	sel := &selection.State{}
	require.True(t, sel.Select("a", g))

	s := Compose(g, sel, viewport.New(0, 0), size, DefaultOptions())
	assert.True(t, nodeView(t, s, "a").Selected)
	assert.True(t, nodeView(t, s, "b").Highlighted)
	assert.True(t, nodeView(t, s, "c").Dimmed)
	assert.True(t, s.Edges[0].Highlighted)
	assert.True(t, s.Edges[1].Dimmed)

	sel.ToggleType(graph.TypeTechnology)
	s = Compose(g, sel, viewport.New(0, 0), size, DefaultOptions())
	require.Len(t, s.Nodes, 1)
	assert.Empty(t, s.Edges, "edges need both endpoints visible")
}

func TestComposeEmpty(t *testing.T) {
	v := viewport.New(0, 0)
	v.SetZoom(2)
	s := Compose(nil, nil, v, size, DefaultOptions())
	assert.Empty(t, s.Nodes)
	assert.Empty(t, s.Edges)
	assert.Equal(t, 2.0, s.Zoom)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes":[]`)
}

func TestColorOverrides(t *testing.T) {
	o := Options{Colors: map[string]string{graph.TypePerson: "#000000"}}
	assert.Equal(t, "#000000", o.Color(graph.TypePerson))
	assert.Equal(t, "#22c55e", o.Color(graph.TypePlace))
	assert.Equal(t, FallbackColor, o.Color("unknown"))
}

func TestLegendFor(t *testing.T) {
	ents := []*graph.Entity{
		{Type: graph.TypePerson}, {Type: graph.TypePerson}, {Type: graph.TypeEvent},
	}
	legend := LegendFor(ents, graph.TypeEvent, DefaultOptions())
	require.Len(t, legend, len(graph.Types))
	assert.Equal(t, Legend{Type: graph.TypePerson, Color: "#f97316", Count: 2, Active: false}, legend[0])
	assert.Equal(t, Legend{Type: graph.TypeEvent, Color: "#ec4899", Count: 1, Active: true}, legend[len(legend)-1])
}

func TestWriteSVG(t *testing.T) {
	g := pair(t)
	v := viewport.New(0, 0)
	v.SetPan(10, 20)
	opts := DefaultOptions()
	opts.ShowEdgeLabels = true

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, Compose(g, nil, v, size, opts)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Contains(t, out, `translate(10.00, 20.00) scale(1.00)`)
	assert.Contains(t, out, `data-id="a"`)
	assert.Contains(t, out, `fill="#3b82f6"`)
	assert.Contains(t, out, "Loop &lt;&amp;&gt;")
	assert.Contains(t, out, ">uses</text>")
	assert.Equal(t, 1, strings.Count(out, "<line "))
}

func TestWritePNG(t *testing.T) {
	g := pair(t)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, Compose(g, nil, viewport.New(0, 0), size, DefaultOptions()), 1))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	r, gr, b, _ := img.At(100, 100).RGBA()
	assert.InDelta(t, 0x3b, r>>8, 1)
	assert.InDelta(t, 0x82, gr>>8, 1)
	assert.InDelta(t, 0xf6, b>>8, 1)

	r, gr, b, _ = img.At(5, 5).RGBA()
	assert.InDelta(t, 0x0a, r>>8, 1)
	assert.InDelta(t, 0x0e, gr>>8, 1)
	assert.InDelta(t, 0x17, b>>8, 1)
}

func TestWritePNGScaled(t *testing.T) {
	img, err := Rasterize(Compose(nil, nil, nil, size, DefaultOptions()), 2)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())

	_, err = Rasterize(Scene{}, 1)
	assert.Error(t, err)
}
