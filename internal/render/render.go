// Package render draws a region and its bubbles as a two-panel JPEG.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/sells-group/bubble-cli/internal/geometry"
)

// Canvas geometry in pixels.
const (
	Width   = 1600
	Height  = 860
	header  = 60
	margin  = 20
	quality = 85
)

var (
	regionColor    = color.NRGBA{R: 0x1f, G: 0x4e, B: 0xd8, A: 0xff}
	inclusionColor = color.NRGBA{R: 0x1a, G: 0x9a, B: 0x2c, A: 0xff}
	exclusionColor = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// Scene is everything drawn for one region. Geometry is in projected meters.
type Scene struct {
	Title     string
	Net       float64
	Region    *geom.MultiPolygon
	Inclusion []*geom.Polygon
	Exclusion []*geom.Polygon
}

// Caption is the coverage line printed under the title.
func (s Scene) Caption() string {
	return "Coverage: " + strconv.FormatFloat(s.Net, 'f', 0, 64) + "%"
}

// Draw renders the scene. The left panel outlines the region and every
// bubble; the right panel fills the bubbles translucently over the region
// outline.
func Draw(s Scene) (*image.RGBA, error) {
	if s.Region == nil || s.Region.NumPolygons() == 0 {
		return nil, eris.New("render: empty region")
	}
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	b := bounds(s)
	panelW := (Width - 3*margin) / 2
	panelH := Height - header - 2*margin
	left := image.Rect(margin, header+margin, margin+panelW, header+margin+panelH)
	right := image.Rect(2*margin+panelW, header+margin, 2*margin+2*panelW, header+margin+panelH)

	lt := fit(b, left)
	stroke(img, lt, geometry.Parts(s.Region), regionColor, 1.5)
	stroke(img, lt, s.Inclusion, inclusionColor, 0.75)
	stroke(img, lt, s.Exclusion, exclusionColor, 0.75)

	rt := fit(b, right)
	fill(img, rt, s.Inclusion, translucent(inclusionColor))
	fill(img, rt, s.Exclusion, translucent(exclusionColor))
	stroke(img, rt, geometry.Parts(s.Region), regionColor, 1.5)

	text(img, s.Title, Width/2, 24)
	text(img, s.Caption(), Width/2, 46)
	return img, nil
}

// Encode draws the scene and writes it as JPEG.
func Encode(w io.Writer, s Scene) error {
	img, err := Draw(s)
	if err != nil {
		return err
	}
	return eris.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: quality}), "render: encode jpeg")
}

// WriteFile renders the scene to path.
func WriteFile(path string, s Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "render: create image")
	}
	if err := Encode(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "render: close image")
}

func translucent(c color.NRGBA) color.NRGBA {
	c.A = 0x80
	return c
}

type box struct{ minX, minY, maxX, maxY float64 }

func bounds(s Scene) box {
	b := box{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	add := func(p *geom.Polygon) {
		for _, c := range p.LinearRing(0).Coords() {
			b.minX, b.maxX = math.Min(b.minX, c.X()), math.Max(b.maxX, c.X())
			b.minY, b.maxY = math.Min(b.minY, c.Y()), math.Max(b.maxY, c.Y())
		}
	}
	for i := 0; i < s.Region.NumPolygons(); i++ {
		add(s.Region.Polygon(i))
	}
	for _, p := range s.Inclusion {
		add(p)
	}
	for _, p := range s.Exclusion {
		add(p)
	}
	return b
}

// transform maps projected meters into a panel, north up, keeping aspect.
type transform struct {
	scale, ox, oy float64
	b             box
}

func fit(b box, panel image.Rectangle) transform {
	w, h := b.maxX-b.minX, b.maxY-b.minY
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	scale := math.Min(float64(panel.Dx())/w, float64(panel.Dy())/h)
	return transform{
		scale: scale,
		ox:    float64(panel.Min.X) + (float64(panel.Dx())-w*scale)/2,
		oy:    float64(panel.Min.Y) + (float64(panel.Dy())-h*scale)/2,
		b:     b,
	}
}

func (t transform) apply(c geom.Coord) (float32, float32) {
	x := t.ox + (c.X()-t.b.minX)*t.scale
	y := t.oy + (t.b.maxY-c.Y())*t.scale
	return float32(x), float32(y)
}

func rasterizer(c color.Color) (*vector.Rasterizer, image.Image) {
	z := vector.NewRasterizer(Width, Height)
	z.DrawOp = draw.Over
	return z, image.NewUniform(c)
}

func fill(img *image.RGBA, t transform, polys []*geom.Polygon, c color.Color) {
	z, src := rasterizer(c)
	for _, p := range polys {
		z.Reset(Width, Height)
		for i := 0; i < p.NumLinearRings(); i++ {
			coords := p.LinearRing(i).Coords()
			if len(coords) < 3 {
				continue
			}
			x, y := t.apply(coords[0])
			z.MoveTo(x, y)
			for _, co := range coords[1:] {
				x, y = t.apply(co)
				z.LineTo(x, y)
			}
			z.ClosePath()
		}
		z.Draw(img, img.Bounds(), src, image.Point{})
	}
}

func stroke(img *image.RGBA, t transform, polys []*geom.Polygon, c color.Color, width float32) {
	z, src := rasterizer(c)
	for _, p := range polys {
		for i := 0; i < p.NumLinearRings(); i++ {
			coords := p.LinearRing(i).Coords()
			for j := 1; j < len(coords); j++ {
				x0, y0 := t.apply(coords[j-1])
				x1, y1 := t.apply(coords[j])
				segment(z, x0, y0, x1, y1, width/2)
			}
		}
	}
	z.Draw(img, img.Bounds(), src, image.Point{})
}

// segment adds a quad of half-width hw around the line. All quads
// share the winding so overlaps saturate instead of cancelling.
func segment(z *vector.Rasterizer, x0, y0, x1, y1, hw float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}

func text(img *image.RGBA, s string, cx, baseline int) {
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}
	w := d.MeasureString(s)
	d.Dot = fixed.Point26_6{X: fixed.I(cx) - w/2, Y: fixed.I(baseline)}
	d.DrawString(s)
}
