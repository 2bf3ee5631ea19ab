package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

// RingLength returns the length of ring.
func RingLength(ring *geom.LinearRing) float64 {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	var total float64
	for i := stride; i < len(flat); i += stride {
		total += math.Hypot(flat[i]-flat[i-stride], flat[i+1]-flat[i-stride+1])
	}
	return total
}

// Interpolate returns the point at distance d along ring, measured from its
// first coordinate. d is clamped to [0, length].
func Interpolate(ring *geom.LinearRing, d float64) geom.Coord {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	if len(flat) < stride {
		return nil
	}
	if d <= 0 || len(flat) == stride {
		return geom.Coord{flat[0], flat[1]}
	}
	remaining := d
	for i := stride; i < len(flat); i += stride {
		x0, y0 := flat[i-stride], flat[i-stride+1]
		x1, y1 := flat[i], flat[i+1]
		seg := math.Hypot(x1-x0, y1-y0)
		if seg == 0 {
			continue
		}
		if remaining <= seg {
			t := remaining / seg
			return geom.Coord{x0 + t*(x1-x0), y0 + t*(y1-y0)}
		}
		remaining -= seg
	}
	last := len(flat) - stride
	return geom.Coord{flat[last], flat[last+1]}
}

// Walk calls fn for the points at 0, step, 2*step, ... strictly before the
// end of ring. Returning false from fn stops the walk.
func Walk(ring *geom.LinearRing, step float64, fn func(geom.Coord) bool) {
	if step <= 0 {
		return
	}
	length := RingLength(ring)
	for i := 0; ; i++ {
		d := float64(i) * step
		if d >= length {
			return
		}
		if !fn(Interpolate(ring, d)) {
			return
		}
	}
}
