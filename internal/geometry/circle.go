package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// NewCircle returns a counter-clockwise polygon with 4*quadSegs vertices on the
// circle, the way a point buffer approximates a disc.
func NewCircle(center geom.Coord, radius float64, quadSegs int) *geom.Polygon {
	return circleRing(center.X(), center.Y(), radius, quadSegs)
}

// NewEnclosingCircle is like NewCircle but places the vertices outside the
// circle so the polygon contains the whole disc.
func NewEnclosingCircle(center geom.Coord, radius float64, quadSegs int) *geom.Polygon {
	n := segments(quadSegs)
	return circleRing(center.X(), center.Y(), radius/math.Cos(math.Pi/float64(n)), quadSegs)
}

func segments(quadSegs int) int {
	if quadSegs < 1 {
		quadSegs = DefaultQuadrantSegments
	}
	return 4 * quadSegs
}

func circleRing(cx, cy, radius float64, quadSegs int) *geom.Polygon {
	n := segments(quadSegs)
	flat := make([]float64, 0, 2*(n+1))
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		flat = append(flat, cx+radius*math.Cos(a), cy+radius*math.Sin(a))
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}
