// Package viewport holds the camera over graph space: pan and zoom state,
// the screen/graph coordinate transforms and the gesture layer that turns
// normalized pointer events into node drags or pans.
package viewport

import (
	"math"

	"github.com/msalah0e/garden/internal/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultMinZoom = 0.1
	DefaultMaxZoom = 5.0

	// FitMaxZoom caps the zoom FitToContent will pick for small graphs.
	FitMaxZoom = 2.0
	// StepFactor is the multiplier used by the zoom in/out buttons.
	StepFactor = 1.2

	wheelOut = 0.9
	wheelIn  = 1.1
)

// Viewport maps graph space to screen space: screen = graph*Zoom + Pan.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	PanX    float64 `json:"pan_x"`
	PanY    float64 `json:"pan_y"`
	MinZoom float64 `json:"-"`
	MaxZoom float64 `json:"-"`
}

// New returns an identity viewport with the given zoom bounds. Non-positive
// bounds fall back to the defaults.
func New(minZoom, maxZoom float64) *Viewport {
	if minZoom <= 0 {
		minZoom = DefaultMinZoom
	}
	if maxZoom <= 0 || maxZoom < minZoom {
		maxZoom = DefaultMaxZoom
	}
	return &Viewport{Zoom: 1, MinZoom: minZoom, MaxZoom: maxZoom}
}

func (v *Viewport) clamp(z float64) float64 {
	return math.Max(v.MinZoom, math.Min(v.MaxZoom, z))
}

// ScreenToGraph converts a screen point into graph space.
func (v *Viewport) ScreenToGraph(p r2.Vec) r2.Vec {
	return r2.Vec{X: (p.X - v.PanX) / v.Zoom, Y: (p.Y - v.PanY) / v.Zoom}
}

// GraphToScreen converts a graph point into screen space.
func (v *Viewport) GraphToScreen(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X*v.Zoom + v.PanX, Y: p.Y*v.Zoom + v.PanY}
}

// ZoomAt scales the zoom by factor, clamped, keeping the graph point under
// (sx, sy) on the same screen pixel.
func (v *Viewport) ZoomAt(sx, sy, factor float64) {
	if factor <= 0 {
		return
	}
	z := v.clamp(v.Zoom * factor)
	ratio := z / v.Zoom
	v.PanX = sx - (sx-v.PanX)*ratio
	v.PanY = sy - (sy-v.PanY)*ratio
	v.Zoom = z
}

// Wheel applies one wheel notch at the pointer. Positive deltaY zooms out.
func (v *Viewport) Wheel(sx, sy, deltaY float64) {
	switch {
	case deltaY > 0:
		v.ZoomAt(sx, sy, wheelOut)
	case deltaY < 0:
		v.ZoomAt(sx, sy, wheelIn)
	}
}

// ZoomIn zooms one step about the viewport centre.
func (v *Viewport) ZoomIn(size layout.Size) {
	c := size.Center()
	v.ZoomAt(c.X, c.Y, StepFactor)
}

// ZoomOut zooms one step out about the viewport centre.
func (v *Viewport) ZoomOut(size layout.Size) {
	c := size.Center()
	v.ZoomAt(c.X, c.Y, 1/StepFactor)
}

// SetZoom sets the zoom directly, clamped. Pan is left alone.
func (v *Viewport) SetZoom(z float64) {
	if z <= 0 || math.IsNaN(z) {
		return
	}
	v.Zoom = v.clamp(z)
}

func (v *Viewport) SetPan(x, y float64) {
	v.PanX, v.PanY = x, y
}

func (v *Viewport) PanBy(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// Reset returns to zoom 1 with no pan.
func (v *Viewport) Reset() {
	v.Zoom, v.PanX, v.PanY = 1, 0, 0
}

// Bounds is an axis-aligned box in graph space.
type Bounds struct {
	Min, Max r2.Vec
}

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// ContentBounds returns the box enclosing every node centre ± radius. ok is
// false for an empty set.
func ContentBounds(nodes []*layout.Node) (b Bounds, ok bool) {
	if len(nodes) == 0 {
		return Bounds{}, false
	}
	b.Min = r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	b.Max = r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, n := range nodes {
		b.Min.X = math.Min(b.Min.X, n.Pos.X-n.Radius)
		b.Min.Y = math.Min(b.Min.Y, n.Pos.Y-n.Radius)
		b.Max.X = math.Max(b.Max.X, n.Pos.X+n.Radius)
		b.Max.Y = math.Max(b.Max.Y, n.Pos.Y+n.Radius)
	}
	return b, true
}

// FitToContent zooms and pans so every node fits inside the viewport with
// padding on each side. It reports false and leaves the camera untouched
// when there is nothing to fit.
func (v *Viewport) FitToContent(nodes []*layout.Node, size layout.Size, padding float64) bool {
	b, ok := ContentBounds(nodes)
	if !ok || b.Width() <= 0 || b.Height() <= 0 {
		return false
	}
	availW := size.Width - 2*padding
	availH := size.Height - 2*padding
	if availW <= 0 || availH <= 0 {
		return false
	}

	z := math.Min(math.Min(availW/b.Width(), availH/b.Height()), FitMaxZoom)
	v.Zoom = v.clamp(z)
	v.PanX = (size.Width-b.Width()*v.Zoom)/2 - b.Min.X*v.Zoom
	v.PanY = (size.Height-b.Height()*v.Zoom)/2 - b.Min.Y*v.Zoom
	return true
}

// Focus pans so the node sits at the viewport centre at the current zoom.
func (v *Viewport) Focus(n *layout.Node, size layout.Size) {
	if n == nil {
		return
	}
	v.PanX = size.Width/2 - n.Pos.X*v.Zoom
	v.PanY = size.Height/2 - n.Pos.Y*v.Zoom
}
