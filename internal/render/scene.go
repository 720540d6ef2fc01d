// Package render turns the live layout into a drawable, read-only Scene and
// exports scenes as SVG or PNG.
package render

import (
	"math"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/layout"
	"github.com/msalah0e/garden/internal/selection"
	"github.com/msalah0e/garden/internal/viewport"
)

const (
	// LabelLimit is the rune count after which labels are cut with an ellipsis.
	LabelLimit = 15

	edgeInset      = 2.0
	nodeLabelGap   = 14.0
	edgeLabelLift  = 5.0
	loopLabelLift  = 8.0
	FallbackColor  = "#888888"
	BackgroundDark = "#0a0e17"
)

// DefaultColors is the per-type palette used by the legend and the nodes.
var DefaultColors = map[string]string{
	graph.TypePerson:       "#f97316",
	graph.TypePlace:        "#22c55e",
	graph.TypeConcept:      "#a855f7",
	graph.TypeTechnology:   "#3b82f6",
	graph.TypeOrganization: "#06b6d4",
	graph.TypeProject:      "#eab308",
	graph.TypeEvent:        "#ec4899",
}

// Options control what the scene shows.
type Options struct {
	ShowLabels     bool              `toml:"labels"`
	ShowEdgeLabels bool              `toml:"edge_labels"`
	Colors         map[string]string `toml:"colors"`
	Background     string            `toml:"background"`
}

func DefaultOptions() Options {
	return Options{ShowLabels: true, Background: BackgroundDark}
}

// Color returns the fill for an entity type. Overrides in o.Colors win.
func (o Options) Color(entityType string) string {
	if c, ok := o.Colors[entityType]; ok && c != "" {
		return c
	}
	if c, ok := DefaultColors[entityType]; ok {
		return c
	}
	return FallbackColor
}

type NodeView struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	Color       string  `json:"color"`
	Label       string  `json:"label,omitempty"`
	LabelY      float64 `json:"label_y"`
	Highlighted bool    `json:"highlighted"`
	Dimmed      bool    `json:"dimmed"`
	Selected    bool    `json:"selected"`
	Fixed       bool    `json:"fixed,omitempty"`
}

type EdgeView struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Label       string  `json:"label,omitempty"`
	LabelX      float64 `json:"label_x"`
	LabelY      float64 `json:"label_y"`
	Highlighted bool    `json:"highlighted"`
	Dimmed      bool    `json:"dimmed"`
	SelfLoop    bool    `json:"self_loop,omitempty"`
}

// Scene is one frame. Coordinates are in graph space; the camera is carried
// separately so a consumer can apply it as a single transform.
type Scene struct {
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Zoom       float64    `json:"zoom"`
	PanX       float64    `json:"pan_x"`
	PanY       float64    `json:"pan_y"`
	Background string     `json:"background,omitempty"`
	Nodes      []NodeView `json:"nodes"`
	Edges      []EdgeView `json:"edges"`
}

// Truncate shortens s to LabelLimit runes plus an ellipsis.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= LabelLimit {
		return s
	}
	return string(r[:LabelLimit]) + "..."
}

// Compose builds the frame for the visible part of g. A nil graph or state
// gives an empty scene with the camera applied.
func Compose(g *layout.Graph, sel *selection.State, v *viewport.Viewport, size layout.Size, o Options) Scene {
	s := Scene{
		Width:      size.Width,
		Height:     size.Height,
		Zoom:       1,
		Background: o.Background,
		Nodes:      []NodeView{},
		Edges:      []EdgeView{},
	}
	if v != nil {
		s.Zoom, s.PanX, s.PanY = v.Zoom, v.PanX, v.PanY
	}
	if g.Empty() {
		return s
	}
	if sel == nil {
		sel = &selection.State{}
	}

	visible := sel.Visible(g.Nodes)
	for _, e := range selection.VisibleEdges(g.Edges, visible) {
		s.Edges = append(s.Edges, edgeView(e, sel, o))
	}
	for _, n := range visible {
		nv := NodeView{
			ID:          n.ID,
			Type:        n.Entity.Type,
			X:           n.Pos.X,
			Y:           n.Pos.Y,
			Radius:      n.Radius,
			Color:       o.Color(n.Entity.Type),
			LabelY:      n.Pos.Y + n.Radius + nodeLabelGap,
			Highlighted: sel.NodeHighlighted(n.ID),
			Dimmed:      sel.NodeDimmed(n.ID),
			Selected:    sel.Selected == n.ID,
			Fixed:       n.Fixed,
		}
		if o.ShowLabels {
			nv.Label = Truncate(n.Entity.Name)
		}
		s.Nodes = append(s.Nodes, nv)
	}
	return s
}

func edgeView(e *layout.Edge, sel *selection.State, o Options) EdgeView {
	src, dst := e.Source, e.Target
	ev := EdgeView{
		Source:      src.ID,
		Target:      dst.ID,
		Highlighted: sel.EdgeHighlighted(e),
		Dimmed:      sel.EdgeDimmed(e),
	}
	if o.ShowEdgeLabels {
		ev.Label = e.Type
	}

	if e.SelfLoop() {
		ev.SelfLoop = true
		ev.X1, ev.Y1 = src.Pos.X, src.Pos.Y
		ev.X2, ev.Y2 = src.Pos.X, src.Pos.Y
		ev.LabelX = src.Pos.X
		ev.LabelY = src.Pos.Y - src.Radius - loopLabelLift
		return ev
	}

	angle := math.Atan2(dst.Pos.Y-src.Pos.Y, dst.Pos.X-src.Pos.X)
	cos, sin := math.Cos(angle), math.Sin(angle)
	ev.X1 = src.Pos.X + cos*(src.Radius+edgeInset)
	ev.Y1 = src.Pos.Y + sin*(src.Radius+edgeInset)
	ev.X2 = dst.Pos.X - cos*(dst.Radius+edgeInset)
	ev.Y2 = dst.Pos.Y - sin*(dst.Radius+edgeInset)
	ev.LabelX = (ev.X1 + ev.X2) / 2
	ev.LabelY = (ev.Y1+ev.Y2)/2 - edgeLabelLift
	return ev
}

// Legend is one row of the type legend. Active is false when another type
// is filtered in.
type Legend struct {
	Type   string `json:"type"`
	Color  string `json:"color"`
	Count  int    `json:"count"`
	Active bool   `json:"active"`
}

// LegendFor counts entities per type in vocabulary order.
func LegendFor(entities []*graph.Entity, typeFilter string, o Options) []Legend {
	counts := make(map[string]int, len(graph.Types))
	for _, e := range entities {
		counts[e.Type]++
	}
	out := make([]Legend, 0, len(graph.Types))
	for _, t := range graph.Types {
		out = append(out, Legend{
			Type:   t,
			Color:  o.Color(t),
			Count:  counts[t],
			Active: typeFilter == "" || typeFilter == t,
		})
	}
	return out
}
