package geometry

import (
	"math"
	"math/rand/v2"

	"github.com/twpayne/go-geom"
)

// Circle is a centre and radius in the plane.
type Circle struct {
	Center geom.Coord
	Radius float64
}

const encloseEpsilon = 1e-7

func (c Circle) covers(p geom.Coord) bool {
	return math.Hypot(p.X()-c.Center.X(), p.Y()-c.Center.Y()) <= c.Radius*(1+encloseEpsilon)+encloseEpsilon
}

// MinimumEnclosingCircle returns the smallest circle containing every
// coordinate of mp. The point order is shuffled with a fixed seed, so the
// result is deterministic for a given input.
func MinimumEnclosingCircle(mp *geom.MultiPolygon) (Circle, error) {
	pts := ConvexHull(Vertices(mp))
	switch len(pts) {
	case 0:
		return Circle{}, ErrEmptyGeometry
	case 1:
		return Circle{Center: geom.Coord{pts[0].X(), pts[0].Y()}}, nil
	}

	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })

	c := diameterCircle(pts[0], pts[1])
	for i := 2; i < len(pts); i++ {
		if c.covers(pts[i]) {
			continue
		}
		c = diameterCircle(pts[0], pts[i])
		for j := 1; j < i; j++ {
			if c.covers(pts[j]) {
				continue
			}
			c = diameterCircle(pts[i], pts[j])
			for k := 0; k < j; k++ {
				if !c.covers(pts[k]) {
					c = circumcircle(pts[i], pts[j], pts[k])
				}
			}
		}
	}
	return c, nil
}

func diameterCircle(a, b geom.Coord) Circle {
	cx, cy := (a.X()+b.X())/2, (a.Y()+b.Y())/2
	return Circle{Center: geom.Coord{cx, cy}, Radius: math.Hypot(a.X()-cx, a.Y()-cy)}
}

func circumcircle(a, b, c geom.Coord) Circle {
	bx, by := b.X()-a.X(), b.Y()-a.Y()
	cx, cy := c.X()-a.X(), c.Y()-a.Y()
	d := 2 * (bx*cy - by*cx)
	if d == 0 {
		// Collinear: the widest pair spans the circle.
		best := diameterCircle(a, b)
		for _, cand := range []Circle{diameterCircle(a, c), diameterCircle(b, c)} {
			if cand.Radius > best.Radius {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	return Circle{Center: geom.Coord{a.X() + ux, a.Y() + uy}, Radius: math.Hypot(ux, uy)}
}
