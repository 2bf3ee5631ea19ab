package planar

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Buffer grows or erodes g by |distance|. The band swept by a disc travelling
// along every ring is built from one rectangle per edge and one polygonal
// disc per vertex, then added to or removed from g.
func (k *Kernel) Buffer(g *geom.MultiPolygon, distance float64, quadSegs int) (*geom.MultiPolygon, error) {
	src := readMultiPolygon(g)
	if distance == 0 || len(src) == 0 {
		return toMultiPolygon(overlay(src, nil, opUnion)), nil
	}

	band := flatten(unionAll(sweep(src, math.Abs(distance), quadSegs)))
	op := opUnion
	if distance < 0 {
		op = opDifference
	}
	return toMultiPolygon(overlay(src, band, op)), nil
}

func sweep(src region, d float64, quadSegs int) []region {
	if quadSegs < 1 {
		quadSegs = 16
	}
	var pieces []region
	for _, r := range src {
		for i := range r {
			p, q := r[i], r[(i+1)%len(r)]
			l := p.dist(q)
			if l == 0 {
				continue
			}
			nx, ny := (q.y-p.y)/l*d, -(q.x-p.x)/l*d
			rect := ring{
				snapPoint(p.x+nx, p.y+ny),
				snapPoint(q.x+nx, q.y+ny),
				snapPoint(q.x-nx, q.y-ny),
				snapPoint(p.x-nx, p.y-ny),
			}
			if rect.signedArea() < 0 {
				rect = rect.reversed()
			}
			pieces = append(pieces, region{rect})
		}
		for _, p := range r {
			pieces = append(pieces, region{disc(p, d, quadSegs)})
		}
	}
	return pieces
}

func disc(c point, radius float64, quadSegs int) ring {
	n := 4 * quadSegs
	out := make(ring, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out = append(out, snapPoint(c.x+radius*math.Cos(a), c.y+radius*math.Sin(a)))
	}
	return out
}
