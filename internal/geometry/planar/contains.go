package planar

import "github.com/twpayne/go-geom"

// Contains reports whether no point of inner lies outside outer. Inner may
// touch the boundary of outer.
func (k *Kernel) Contains(outer *geom.MultiPolygon, inner *geom.Polygon) (bool, error) {
	out := readMultiPolygon(outer)
	in := readPolygon(inner)
	if len(out) == 0 || len(in) == 0 {
		return false, nil
	}

	for _, r := range in {
		for i := range r {
			a, b := r[i], r[(i+1)%len(r)]
			if out.locate(a) == outside || out.locate(edge{a, b}.mid()) == outside {
				return false, nil
			}
			for _, o := range out {
				for j := range o {
					if crosses(a, b, o[j], o[(j+1)%len(o)]) {
						return false, nil
					}
				}
			}
		}
	}

	// A hole of outer that sits wholly inside inner leaves every edge test
	// above satisfied.
	for _, o := range out {
		for _, p := range o {
			if in.locate(p) == inside {
				return false, nil
			}
		}
	}
	return true, nil
}

// crosses reports a proper crossing: the segments intersect at a single point
// interior to both.
func crosses(a, b, c, d point) bool {
	d1, d2 := orient(c, d, a), orient(c, d, b)
	d3, d4 := orient(a, b, c), orient(a, b, d)
	if d1*d2 >= 0 || d3*d4 >= 0 {
		return false
	}
	return !onSegment(c, d, a) && !onSegment(c, d, b) && !onSegment(a, b, c) && !onSegment(a, b, d)
}
