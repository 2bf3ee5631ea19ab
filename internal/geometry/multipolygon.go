package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Empty reports whether mp is nil or has no non-empty polygon.
func Empty(mp *geom.MultiPolygon) bool {
	if mp == nil {
		return true
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		if !mp.Polygon(i).Empty() {
			return false
		}
	}
	return true
}

// Area returns the area of mp, zero for an empty geometry.
func Area(mp *geom.MultiPolygon) float64 {
	if Empty(mp) {
		return 0
	}
	return mp.Area()
}

// Parts returns the non-empty polygons of mp in order.
func Parts(mp *geom.MultiPolygon) []*geom.Polygon {
	if mp == nil {
		return nil
	}
	parts := make([]*geom.Polygon, 0, mp.NumPolygons())
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		if p.Empty() || p.NumLinearRings() == 0 {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

// NewMultiPolygon wraps polygons in a multipolygon.
func NewMultiPolygon(polys ...*geom.Polygon) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	for i, p := range polys {
		if p == nil || p.Empty() {
			continue
		}
		if err := mp.Push(p); err != nil {
			return nil, eris.Wrapf(err, "geometry: push polygon %d", i)
		}
	}
	return mp, nil
}

// Vertices returns every exterior-ring coordinate of mp. Holes cannot extend
// past their shell, so exteriors are enough for hulls and enclosing circles.
func Vertices(mp *geom.MultiPolygon) []geom.Coord {
	var out []geom.Coord
	for _, p := range Parts(mp) {
		ring := p.LinearRing(0)
		for i := 0; i < ring.NumCoords(); i++ {
			c := ring.Coord(i)
			out = append(out, geom.Coord{c.X(), c.Y()})
		}
	}
	return out
}

// ExteriorLength sums the exterior-ring perimeters of polys.
func ExteriorLength(polys []*geom.Polygon) float64 {
	var total float64
	for _, p := range polys {
		total += RingLength(p.LinearRing(0))
	}
	return total
}
