package geometry

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
)

// ConvexHull returns the counter-clockwise hull of coords without repeating the
// first point. Collinear points are dropped.
func ConvexHull(coords []geom.Coord) []geom.Coord {
	pts := make([]geom.Coord, len(coords))
	copy(pts, coords)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X() != pts[j].X() {
			return pts[i].X() < pts[j].X()
		}
		return pts[i].Y() < pts[j].Y()
	})
	pts = dedupe(pts)
	if len(pts) < 3 {
		return pts
	}

	hull := make([]geom.Coord, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func dedupe(sorted []geom.Coord) []geom.Coord {
	out := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p.X() == sorted[i-1].X() && p.Y() == sorted[i-1].Y() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func cross(o, a, b geom.Coord) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

// MinimumAreaRectangle returns the smallest-area rectangle enclosing coords,
// found by aligning a side with each hull edge in turn. The polygon ring is
// closed and counter-clockwise. Degenerate input returns ErrEmptyGeometry.
func MinimumAreaRectangle(coords []geom.Coord) (*geom.Polygon, error) {
	hull := ConvexHull(coords)
	if len(hull) < 3 {
		return nil, ErrEmptyGeometry
	}

	best := math.Inf(1)
	var corners [4][2]float64
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := b.X()-a.X(), b.Y()-a.Y()
		l := math.Hypot(ex, ey)
		if l == 0 {
			continue
		}
		ux, uy := ex/l, ey/l
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := p.X()-a.X(), p.Y()-a.Y()
			u := px*ux + py*uy
			v := px*vx + py*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < best {
			best = area
			at := func(u, v float64) [2]float64 {
				return [2]float64{a.X() + u*ux + v*vx, a.Y() + u*uy + v*vy}
			}
			corners = [4][2]float64{at(minU, minV), at(maxU, minV), at(maxU, maxV), at(minU, maxV)}
		}
	}

	flat := make([]float64, 0, 10)
	for _, c := range corners {
		flat = append(flat, c[0], c[1])
	}
	flat = append(flat, corners[0][0], corners[0][1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}), nil
}

// RectangleEdges returns the lengths of the first two sides of a rectangle
// polygon's exterior ring.
func RectangleEdges(rect *geom.Polygon) (float64, float64) {
	ring := rect.LinearRing(0)
	if ring.NumCoords() < 3 {
		return 0, 0
	}
	p0, p1, p2 := ring.Coord(0), ring.Coord(1), ring.Coord(2)
	return math.Hypot(p1.X()-p0.X(), p1.Y()-p0.Y()), math.Hypot(p2.X()-p1.X(), p2.Y()-p1.Y())
}
