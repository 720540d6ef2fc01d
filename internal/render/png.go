package render

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const circleSegments = 48

var (
	edgeColor      = color.NRGBA{R: 0x64, G: 0x74, B: 0x8b, A: 0xff}
	highlightColor = color.NRGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	nodeLabelColor = color.NRGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	edgeLabelColor = color.NRGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
)

// WritePNG rasterizes the scene at the given scale (1 = one pixel per
// screen pixel) and encodes it as PNG.
func WritePNG(w io.Writer, s Scene, scale float64) error {
	img, err := Rasterize(s, scale)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Rasterize draws the scene into a new RGBA image.
func Rasterize(s Scene, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	width := int(math.Ceil(s.Width * scale))
	height := int(math.Ceil(s.Height * scale))
	if width <= 0 || height <= 0 {
		return nil, errors.New("scene has no area")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := parseHex(s.Background, color.NRGBA{R: 0x0a, G: 0x0e, B: 0x17, A: 0xff})
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	p := &painter{img: img, scene: s, scale: scale}
	for _, e := range s.Edges {
		p.edge(e)
	}
	for _, n := range s.Nodes {
		p.node(n)
	}
	return img, nil
}

type painter struct {
	img   *image.RGBA
	scene Scene
	scale float64
}

// screen maps a graph point through the camera and output scale.
func (p *painter) screen(x, y float64) (float32, float32) {
	s := p.scene
	return float32((x*s.Zoom + s.PanX) * p.scale), float32((y*s.Zoom + s.PanY) * p.scale)
}

func (p *painter) fill(c color.Color, path func(r *vector.Rasterizer)) {
	b := p.img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.DrawOp = draw.Over
	path(r)
	r.Draw(p.img, b, image.NewUniform(c), image.Point{})
}

func (p *painter) edge(e EdgeView) {
	c := edgeColor
	width := 1.5
	if e.Highlighted {
		c, width = highlightColor, 2.5
	}
	if e.Dimmed {
		c = fade(c)
	}

	if e.SelfLoop {
		cx, cy := p.screen(e.X1, e.LabelY+4)
		p.ring(c, cx, cy-6*float32(p.zoom()), 6*float32(p.zoom()), float32(width*p.scale))
	} else {
		x1, y1 := p.screen(e.X1, e.Y1)
		x2, y2 := p.screen(e.X2, e.Y2)
		p.line(c, x1, y1, x2, y2, float32(width*p.scale))
		p.arrow(c, x1, y1, x2, y2)
	}

	if e.Label != "" {
		lx, ly := p.screen(e.LabelX, e.LabelY)
		p.text(edgeLabelColor, e.Label, lx, ly)
	}
}

func (p *painter) node(n NodeView) {
	c := parseHex(n.Color, parseHex(FallbackColor, color.NRGBA{A: 0xff}))
	if n.Dimmed {
		c = fade(c)
	}
	cx, cy := p.screen(n.X, n.Y)
	r := float32(n.Radius * p.zoom())
	p.disc(c, cx, cy, r)
	if n.Selected {
		p.ring(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, cx, cy, r, float32(3*p.scale))
	} else if n.Highlighted {
		p.ring(highlightColor, cx, cy, r+float32(2*p.scale), float32(1.5*p.scale))
	}
	if n.Label != "" {
		lx, ly := p.screen(n.X, n.LabelY)
		p.text(nodeLabelColor, n.Label, lx, ly)
	}
}

// zoom is the combined size multiplier for radii.
func (p *painter) zoom() float64 {
	return p.scene.Zoom * p.scale
}

func (p *painter) disc(c color.Color, cx, cy, r float32) {
	if r <= 0 {
		return
	}
	p.fill(c, func(ras *vector.Rasterizer) {
		circle(ras, cx, cy, r, false)
	})
}

// ring strokes a circle by filling the area between two opposite windings.
func (p *painter) ring(c color.Color, cx, cy, r, width float32) {
	inner := r - width/2
	if inner < 0 {
		inner = 0
	}
	p.fill(c, func(ras *vector.Rasterizer) {
		circle(ras, cx, cy, r+width/2, false)
		circle(ras, cx, cy, inner, true)
	})
}

func circle(ras *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		if reverse {
			a = -a
		}
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			ras.MoveTo(x, y)
		} else {
			ras.LineTo(x, y)
		}
	}
	ras.ClosePath()
}

func (p *painter) line(c color.Color, x1, y1, x2, y2, width float32) {
	dx, dy := x2-x1, y2-y1
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	p.fill(c, func(ras *vector.Rasterizer) {
		ras.MoveTo(x1+nx, y1+ny)
		ras.LineTo(x2+nx, y2+ny)
		ras.LineTo(x2-nx, y2-ny)
		ras.LineTo(x1-nx, y1-ny)
		ras.ClosePath()
	})
}

func (p *painter) arrow(c color.Color, x1, y1, x2, y2 float32) {
	angle := math.Atan2(float64(y2-y1), float64(x2-x1))
	size := 8 * p.scale
	p.fill(c, func(ras *vector.Rasterizer) {
		ras.MoveTo(x2, y2)
		ras.LineTo(x2-float32(size*math.Cos(angle-0.4)), y2-float32(size*math.Sin(angle-0.4)))
		ras.LineTo(x2-float32(size*math.Cos(angle+0.4)), y2-float32(size*math.Sin(angle+0.4)))
		ras.ClosePath()
	})
}

// text draws a label centred horizontally on x with its baseline at y.
func (p *painter) text(c color.Color, s string, x, y float32) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	d := font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(int(x)-width/2, int(y)),
	}
	d.DrawString(s)
}

func fade(c color.NRGBA) color.NRGBA {
	c.A = c.A / 5
	return c
}

// parseHex reads #rgb or #rrggbb colours, returning fallback on anything else.
func parseHex(s string, fallback color.NRGBA) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
