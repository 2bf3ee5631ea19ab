// Package coverage measures how much of a region a bubble set covers.
package coverage

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/bubble-cli/internal/geometry"
	"github.com/sells-group/bubble-cli/internal/model"
)

// ErrEmptyRegion is returned for a region with no area.
var ErrEmptyRegion = eris.New("coverage: region has zero area")

// Compute returns the four coverage percentages of region. Areas come from
// the unions of each bubble set, so overlapping bubbles are never counted
// twice.
//
//	internal  = |I ∩ R|       / |R|
//	external  = |(I − R) − E| / |R|
//	exclusion = |E ∩ R|       / |R|
//	net       = |(I ∩ R) − E| / |R|
//
// Separate overlay passes leave float noise in the last digits, so internal
// and exclusion are capped at 100 and net at internal.
func Compute(k geometry.Kernel, region *geom.MultiPolygon, inclusion, exclusion []*geom.Polygon) (model.Coverage, error) {
	total := geometry.Area(region)
	if total <= 0 {
		return model.Coverage{}, ErrEmptyRegion
	}

	inc, err := k.UnionAll(inclusion)
	if err != nil {
		return model.Coverage{}, eris.Wrap(err, "coverage: union inclusion")
	}
	exc, err := k.UnionAll(exclusion)
	if err != nil {
		return model.Coverage{}, eris.Wrap(err, "coverage: union exclusion")
	}

	inside, err := k.Intersection(inc, region)
	if err != nil {
		return model.Coverage{}, eris.Wrap(err, "coverage: inclusion inside region")
	}
	outside, err := k.Difference(inc, region)
	if err != nil {
		return model.Coverage{}, eris.Wrap(err, "coverage: inclusion outside region")
	}
	excInside, err := k.Intersection(exc, region)
	if err != nil {
		return model.Coverage{}, eris.Wrap(err, "coverage: exclusion inside region")
	}

	external, net := outside, inside
	if !geometry.Empty(exc) {
		if external, err = k.Difference(outside, exc); err != nil {
			return model.Coverage{}, eris.Wrap(err, "coverage: external minus exclusion")
		}
		if net, err = k.Difference(inside, exc); err != nil {
			return model.Coverage{}, eris.Wrap(err, "coverage: net")
		}
	}

	pct := func(g *geom.MultiPolygon) float64 { return 100 * geometry.Area(g) / total }
	internal := math.Min(pct(inside), 100)
	return model.Coverage{
		InternalInclusion: internal,
		ExternalInclusion: pct(external),
		Exclusion:         math.Min(pct(excInside), 100),
		Net:               math.Min(pct(net), internal),
	}, nil
}
