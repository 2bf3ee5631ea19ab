// Package geometry defines the polygon capability the bubble engine consumes and
// the kernel-independent helpers (ring walking, circles, hulls) built on go-geom.
package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// DefaultQuadrantSegments is the number of segments used per quarter circle,
// giving 64-gon circles.
const DefaultQuadrantSegments = 16

// ErrEmptyGeometry is returned when an operation needs a non-empty input.
var ErrEmptyGeometry = eris.New("geometry: empty geometry")

// Kernel performs the boolean and metric operations on planar polygons.
// Results are always multipolygons; an empty result has zero polygons.
type Kernel interface {
	// Buffer grows (distance > 0) or erodes (distance < 0) g.
	Buffer(g *geom.MultiPolygon, distance float64, quadSegs int) (*geom.MultiPolygon, error)
	// UnionAll dissolves polys into one geometry. No input yields an empty result.
	UnionAll(polys []*geom.Polygon) (*geom.MultiPolygon, error)
	Intersection(a, b *geom.MultiPolygon) (*geom.MultiPolygon, error)
	Difference(a, b *geom.MultiPolygon) (*geom.MultiPolygon, error)
	// Contains reports whether inner lies entirely within outer.
	Contains(outer *geom.MultiPolygon, inner *geom.Polygon) (bool, error)
	// MinimumRotatedRectangle returns the minimum-area enclosing rectangle as a
	// closed ring of five coordinates.
	MinimumRotatedRectangle(g *geom.MultiPolygon) (*geom.Polygon, error)
}

// Repairer is implemented by kernels that can fix invalid input geometry.
type Repairer interface {
	MakeValid(g *geom.MultiPolygon) (*geom.MultiPolygon, error)
}

// Factory builds a kernel. Kernels are not required to be safe for concurrent
// use, so concurrent callers take one each.
type Factory func() Kernel
