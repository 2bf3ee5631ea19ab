// Package geoskernel implements geometry.Kernel on GEOS through go-geos.
package geoskernel

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"

	"github.com/sells-group/bubble-cli/internal/geometry"
)

// Kernel wraps one GEOS context. A context must not be shared between
// goroutines, so each worker builds its own kernel.
type Kernel struct {
	ctx *geos.Context
}

var (
	_ geometry.Kernel   = (*Kernel)(nil)
	_ geometry.Repairer = (*Kernel)(nil)
)

// New returns a kernel with a fresh GEOS context.
func New() *Kernel {
	return &Kernel{ctx: geos.NewContext()}
}

// Factory builds GEOS kernels for the pipeline.
func Factory() geometry.Kernel { return New() }

// Buffer grows or erodes g.
func (k *Kernel) Buffer(g *geom.MultiPolygon, distance float64, quadSegs int) (result *geom.MultiPolygon, err error) {
	defer recoverGEOS(&err, "buffer")
	gg, err := k.toGEOS(g)
	if err != nil {
		return nil, err
	}
	return fromGEOS(gg.Buffer(distance, quadSegs))
}

// UnionAll dissolves polys with a cascaded unary union.
func (k *Kernel) UnionAll(polys []*geom.Polygon) (result *geom.MultiPolygon, err error) {
	defer recoverGEOS(&err, "union")
	mp, err := geometry.NewMultiPolygon(polys...)
	if err != nil {
		return nil, err
	}
	if geometry.Empty(mp) {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	gg, err := k.toGEOS(mp)
	if err != nil {
		return nil, err
	}
	return fromGEOS(gg.UnaryUnion())
}

// Intersection returns a ∩ b.
func (k *Kernel) Intersection(a, b *geom.MultiPolygon) (result *geom.MultiPolygon, err error) {
	defer recoverGEOS(&err, "intersection")
	ga, gb, err := k.pair(a, b)
	if err != nil {
		return nil, err
	}
	return fromGEOS(ga.Intersection(gb))
}

// Difference returns a − b.
func (k *Kernel) Difference(a, b *geom.MultiPolygon) (result *geom.MultiPolygon, err error) {
	defer recoverGEOS(&err, "difference")
	ga, gb, err := k.pair(a, b)
	if err != nil {
		return nil, err
	}
	return fromGEOS(ga.Difference(gb))
}

// Contains reports whether inner lies within outer.
func (k *Kernel) Contains(outer *geom.MultiPolygon, inner *geom.Polygon) (ok bool, err error) {
	defer recoverGEOS(&err, "contains")
	go1, err := k.toGEOS(outer)
	if err != nil {
		return false, err
	}
	gi, err := k.toGEOS(inner)
	if err != nil {
		return false, err
	}
	return go1.Contains(gi), nil
}

// MinimumRotatedRectangle returns GEOS's minimum-area rectangle of g.
func (k *Kernel) MinimumRotatedRectangle(g *geom.MultiPolygon) (rect *geom.Polygon, err error) {
	defer recoverGEOS(&err, "minimum rotated rectangle")
	gg, err := k.toGEOS(g)
	if err != nil {
		return nil, err
	}
	mp, err := fromGEOS(gg.MinimumRotatedRectangle())
	if err != nil {
		return nil, err
	}
	parts := geometry.Parts(mp)
	if len(parts) == 0 {
		return nil, eris.Wrap(geometry.ErrEmptyGeometry, "geoskernel: minimum rotated rectangle")
	}
	return parts[0], nil
}

// MakeValid repairs self-intersections and ring orientation, keeping only the
// polygonal part of the repaired geometry.
func (k *Kernel) MakeValid(g *geom.MultiPolygon) (result *geom.MultiPolygon, err error) {
	defer recoverGEOS(&err, "make valid")
	gg, err := k.toGEOS(g)
	if err != nil {
		return nil, err
	}
	if gg.IsValid() {
		return g, nil
	}
	return fromGEOS(gg.MakeValid())
}

func (k *Kernel) pair(a, b *geom.MultiPolygon) (*geos.Geom, *geos.Geom, error) {
	ga, err := k.toGEOS(a)
	if err != nil {
		return nil, nil, err
	}
	gb, err := k.toGEOS(b)
	if err != nil {
		return nil, nil, err
	}
	return ga, gb, nil
}

func (k *Kernel) toGEOS(g geom.T) (*geos.Geom, error) {
	if mp, ok := g.(*geom.MultiPolygon); ok && mp == nil {
		g = geom.NewMultiPolygon(geom.XY)
	}
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geoskernel: encode WKB")
	}
	gg, err := k.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, eris.Wrap(err, "geoskernel: decode GEOS geometry")
	}
	return gg, nil
}

// fromGEOS converts a GEOS result to a multipolygon, dropping any points and
// lines that a collapsing operation leaves behind.
func fromGEOS(gg *geos.Geom) (*geom.MultiPolygon, error) {
	if gg == nil || gg.IsEmpty() {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	t, err := wkb.Unmarshal(gg.ToWKB())
	if err != nil {
		return nil, eris.Wrap(err, "geoskernel: decode WKB")
	}
	mp := geom.NewMultiPolygon(geom.XY)
	if err := collect(mp, t); err != nil {
		return nil, err
	}
	return mp, nil
}

func collect(mp *geom.MultiPolygon, t geom.T) error {
	switch g := t.(type) {
	case *geom.Polygon:
		if g.Empty() {
			return nil
		}
		return eris.Wrap(mp.Push(g), "geoskernel: push polygon")
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if err := collect(mp, g.Polygon(i)); err != nil {
				return err
			}
		}
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			if err := collect(mp, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// recoverGEOS turns the panics go-geos raises on GEOS errors into wrapped
// errors.
func recoverGEOS(err *error, action string) {
	if r := recover(); r != nil {
		*err = eris.Errorf("geoskernel: %s: %v", action, r)
	}
}

