package viewport

import (
	"math"

	"github.com/msalah0e/garden/internal/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

// HitSlop widens each node's hit circle, in screen pixels.
const HitSlop = 4.0

// Mode is the active gesture.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Panning
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Panning:
		return "panning"
	default:
		return "idle"
	}
}

// Gestures turns device-neutral pointer events into node drags or pans.
// Only one gesture is active at a time.
type Gestures struct {
	view *Viewport
	mode Mode
	node *layout.Node
	last r2.Vec
}

func NewGestures(v *Viewport) *Gestures {
	return &Gestures{view: v}
}

// Mode returns the active gesture.
func (g *Gestures) Mode() Mode { return g.mode }

// Dragged returns the node under pointer control, or nil.
func (g *Gestures) Dragged() *layout.Node { return g.node }

// DragStart begins a node drag when n is non-nil, otherwise a pan. A start
// while another gesture is active ends that gesture first.
func (g *Gestures) DragStart(n *layout.Node, p r2.Vec) Mode {
	g.DragEnd()
	if n != nil {
		n.Fixed = true
		g.node = n
		g.mode = Dragging
	} else {
		g.mode = Panning
	}
	g.last = p
	return g.mode
}

// DragMove moves the dragged node to the pointer (clamped to the visible
// area) or pans by the pointer delta.
func (g *Gestures) DragMove(p r2.Vec, size layout.Size) {
	switch g.mode {
	case Dragging:
		clamped := r2.Vec{
			X: math.Max(0, math.Min(size.Width, p.X)),
			Y: math.Max(0, math.Min(size.Height, p.Y)),
		}
		g.node.Pos = g.view.ScreenToGraph(clamped)
		g.node.Vel = r2.Vec{}
	case Panning:
		g.view.PanBy(p.X-g.last.X, p.Y-g.last.Y)
	}
	g.last = p
}

// DragEnd releases the dragged node and ends the gesture.
func (g *Gestures) DragEnd() {
	if g.node != nil {
		g.node.Fixed = false
		g.node = nil
	}
	g.mode = Idle
}

// Forget drops a dragged node that no longer exists, e.g. after a rebuild.
func (g *Gestures) Forget() {
	g.node = nil
	if g.mode == Dragging {
		g.mode = Idle
	}
}

// HitTest returns the top-most node whose circle contains the screen point.
// Later nodes are drawn on top, so the search runs backwards.
func (v *Viewport) HitTest(nodes []*layout.Node, p r2.Vec) *layout.Node {
	gp := v.ScreenToGraph(p)
	slop := HitSlop / v.Zoom
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if r2.Norm(r2.Sub(gp, n.Pos)) <= n.Radius+slop {
			return n
		}
	}
	return nil
}
