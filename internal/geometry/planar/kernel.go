// Package planar is a pure-Go polygon kernel. It trades speed for having no cgo
// dependency and backs the engine's unit tests.
package planar

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/bubble-cli/internal/geometry"
)

// Kernel implements geometry.Kernel with snapped floating-point overlay.
type Kernel struct{}

var _ geometry.Kernel = (*Kernel)(nil)

// New returns a planar kernel.
func New() *Kernel { return &Kernel{} }

// Factory builds planar kernels for the pipeline.
func Factory() geometry.Kernel { return New() }

// UnionAll dissolves polys pairwise so each overlay stays small.
func (k *Kernel) UnionAll(polys []*geom.Polygon) (*geom.MultiPolygon, error) {
	return toMultiPolygon(unionAll(regionsOf(polys))), nil
}

// Intersection returns a ∩ b.
func (k *Kernel) Intersection(a, b *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	return toMultiPolygon(overlay(readMultiPolygon(a), readMultiPolygon(b), opIntersection)), nil
}

// Difference returns a − b.
func (k *Kernel) Difference(a, b *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	return toMultiPolygon(overlay(readMultiPolygon(a), readMultiPolygon(b), opDifference)), nil
}

// MinimumRotatedRectangle returns the minimum-area rectangle around g.
func (k *Kernel) MinimumRotatedRectangle(g *geom.MultiPolygon) (*geom.Polygon, error) {
	rect, err := geometry.MinimumAreaRectangle(geometry.Vertices(g))
	if err != nil {
		return nil, eris.Wrap(err, "planar: minimum rotated rectangle")
	}
	return rect, nil
}

func regionsOf(polys []*geom.Polygon) []region {
	out := make([]region, 0, len(polys))
	for _, p := range polys {
		if p == nil || p.Empty() {
			continue
		}
		if g := readPolygon(p); len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func flatten(polys []region) region {
	var out region
	for _, p := range polys {
		out = append(out, p...)
	}
	return out
}

func unionAll(parts []region) []region {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return overlay(parts[0], nil, opUnion)
	}
	for len(parts) > 1 {
		next := make([]region, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 == len(parts) {
				next = append(next, parts[i])
				continue
			}
			next = append(next, flatten(overlay(parts[i], parts[i+1], opUnion)))
		}
		parts = next
	}
	return overlay(parts[0], nil, opUnion)
}
