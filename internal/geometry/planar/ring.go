package planar

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Coordinates are snapped to a micrometre grid before noding so that points
// derived from the same input compare exactly.
const (
	snapGrid    = 1e-6
	tolerance   = 1e-5
	minRingArea = 1e-6
)

type point struct{ x, y float64 }

func snap(v float64) float64 { return math.Round(v/snapGrid) * snapGrid }

func snapPoint(x, y float64) point { return point{snap(x), snap(y)} }

func (p point) sub(q point) point { return point{p.x - q.x, p.y - q.y} }

func (p point) dist(q point) float64 { return math.Hypot(p.x-q.x, p.y-q.y) }

func cross(a, b point) float64 { return a.x*b.y - a.y*b.x }

// orient is positive when c lies to the left of a->b.
func orient(a, b, c point) float64 { return cross(b.sub(a), c.sub(a)) }

// ring is an open sequence of vertices; the closing edge is implicit.
type ring []point

func (r ring) signedArea() float64 {
	var s float64
	for i := range r {
		j := (i + 1) % len(r)
		s += r[i].x*r[j].y - r[j].x*r[i].y
	}
	return s / 2
}

func (r ring) reversed() ring {
	out := make(ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// region is a set of rings with shells counter-clockwise and holes clockwise,
// so the interior always lies to the left of every edge.
type region []ring

// readRing converts a go-geom ring, snapping it and dropping repeated and
// closing vertices. Rings that collapse return nil.
func readRing(lr *geom.LinearRing, shell bool) ring {
	flat := lr.FlatCoords()
	stride := lr.Stride()
	r := make(ring, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		p := snapPoint(flat[i], flat[i+1])
		if len(r) > 0 && r[len(r)-1] == p {
			continue
		}
		r = append(r, p)
	}
	for len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	if len(r) < 3 {
		return nil
	}
	area := r.signedArea()
	if math.Abs(area) < minRingArea {
		return nil
	}
	if (area > 0) != shell {
		r = r.reversed()
	}
	return r
}

func readPolygon(p *geom.Polygon) region {
	var out region
	for i := 0; i < p.NumLinearRings(); i++ {
		r := readRing(p.LinearRing(i), i == 0)
		if r == nil {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func readMultiPolygon(mp *geom.MultiPolygon) region {
	if mp == nil {
		return nil
	}
	var out region
	for i := 0; i < mp.NumPolygons(); i++ {
		out = append(out, readPolygon(mp.Polygon(i))...)
	}
	return out
}

type location int

const (
	outside location = iota
	boundary
	inside
)

// locate classifies p against the region using the even-odd rule.
func (g region) locate(p point) location {
	in := false
	for _, r := range g {
		for i := range r {
			a, b := r[i], r[(i+1)%len(r)]
			if onSegment(a, b, p) {
				return boundary
			}
			if (a.y > p.y) != (b.y > p.y) {
				x := a.x + (p.y-a.y)*(b.x-a.x)/(b.y-a.y)
				if p.x < x {
					in = !in
				}
			}
		}
	}
	if in {
		return inside
	}
	return outside
}

func (r ring) contains(p point) bool {
	in := false
	for i := range r {
		a, b := r[i], r[(i+1)%len(r)]
		if (a.y > p.y) != (b.y > p.y) {
			x := a.x + (p.y-a.y)*(b.x-a.x)/(b.y-a.y)
			if p.x < x {
				in = !in
			}
		}
	}
	return in
}

// onSegment reports whether p lies within tolerance of segment a-b.
func onSegment(a, b, p point) bool {
	d := b.sub(a)
	l2 := d.x*d.x + d.y*d.y
	if l2 == 0 {
		return p.dist(a) <= tolerance
	}
	t := ((p.x-a.x)*d.x + (p.y-a.y)*d.y) / l2
	if t < 0 || t > 1 {
		return p.dist(a) <= tolerance || p.dist(b) <= tolerance
	}
	return math.Abs(cross(d, p.sub(a)))/math.Sqrt(l2) <= tolerance
}

func toMultiPolygon(polys []region) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, rings := range polys {
		flat := make([]float64, 0)
		ends := make([]int, 0, len(rings))
		for _, r := range rings {
			for _, p := range r {
				flat = append(flat, p.x, p.y)
			}
			flat = append(flat, r[0].x, r[0].y)
			ends = append(ends, len(flat))
		}
		// Push only fails on a layout mismatch, which cannot happen here.
		_ = mp.Push(geom.NewPolygonFlat(geom.XY, flat, ends))
	}
	return mp
}
