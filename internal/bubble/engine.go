// Package bubble places inclusion and exclusion geofence circles over a region.
package bubble

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/geometry"
	"github.com/sells-group/bubble-cli/internal/model"
)

// Tier records one pass of the radius descent.
type Tier struct {
	Radius int     `json:"radius_m"`
	Parts  int     `json:"parts"`
	Step   float64 `json:"step_m"`
	Placed int     `json:"placed"`
}

// Placement is an ordered set of bubbles of one kind with their polygons.
type Placement struct {
	Bubbles []model.Bubble
	Shapes  []*geom.Polygon

	// Inclusion only.
	UpperBound int
	Tiers      []Tier
	Fallback   bool
}

func (p *Placement) add(c geom.Coord, radius float64, kind model.BubbleKind, shape *geom.Polygon) {
	p.Bubbles = append(p.Bubbles, model.NewBubble(c.X(), c.Y(), radius, kind))
	p.Shapes = append(p.Shapes, shape)
}

// Result is everything the engine produces for one region.
type Result struct {
	Inclusion       []model.Bubble
	Exclusion       []model.Bubble
	InclusionShapes []*geom.Polygon
	ExclusionShapes []*geom.Polygon
	UpperBound      int
	Tiers           []Tier
	Fallback        bool
}

// Engine runs the placement algorithms with one kernel. It is not safe for
// concurrent use when the kernel is not.
type Engine struct {
	kernel geometry.Kernel
	opts   Options
}

// NewEngine validates opts and returns an engine.
func NewEngine(k geometry.Kernel, opts Options) (*Engine, error) {
	if k == nil {
		return nil, eris.New("bubble: nil kernel")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{kernel: k, opts: opts}, nil
}

// Options returns the engine settings.
func (e *Engine) Options() Options { return e.opts }

// Generate runs inclusion placement and, when enabled, the exclusion ring.
func (e *Engine) Generate(ctx context.Context, region *geom.MultiPolygon) (*Result, error) {
	inc, err := e.Inclusion(ctx, region)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Inclusion:       inc.Bubbles,
		InclusionShapes: inc.Shapes,
		UpperBound:      inc.UpperBound,
		Tiers:           inc.Tiers,
		Fallback:        inc.Fallback,
	}
	if !e.opts.Exclusions {
		return res, nil
	}

	exc, err := e.Exclusion(region)
	if err != nil {
		return nil, err
	}
	res.Exclusion = exc.Bubbles
	res.ExclusionShapes = exc.Shapes
	return res, nil
}

// Inclusion fills the region with circles from the largest radius down,
// centring each tier's circles on the perimeter of the eroded region. Only
// circles the region fully contains are kept, and placement stops at the
// limit.
func (e *Engine) Inclusion(ctx context.Context, region *geom.MultiPolygon) (*Placement, error) {
	k := e.kernel
	limit := e.opts.Limit

	upper, err := UpperBound(k, region)
	if err != nil {
		return nil, err
	}
	out := &Placement{UpperBound: upper}

	padded := region
	if e.opts.Padding > 0 {
		padded, err = k.Buffer(region, e.opts.Padding, e.opts.QuadrantSegments)
		if err != nil {
			return nil, eris.Wrap(err, "bubble: pad region")
		}
	}

	for radius := upper; radius > 0 && len(out.Bubbles) < limit; radius = nextRadius(radius, len(out.Bubbles)) {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "bubble: inclusion")
		}

		tier, err := e.placeTier(padded, radius, out)
		if err != nil {
			return nil, err
		}
		out.Tiers = append(out.Tiers, tier)
		zap.L().Debug("bubble: tier done",
			zap.Int("radius", radius),
			zap.Int("parts", tier.Parts),
			zap.Int("placed", tier.Placed),
			zap.Int("total", len(out.Bubbles)),
		)
	}

	if len(out.Bubbles) > limit {
		out.Bubbles = out.Bubbles[:limit]
		out.Shapes = out.Shapes[:limit]
	}

	if len(out.Bubbles) == 0 && e.opts.Fallback {
		if err := e.fallback(region, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) placeTier(padded *geom.MultiPolygon, radius int, out *Placement) (Tier, error) {
	k := e.kernel
	limit := e.opts.Limit
	tier := Tier{Radius: radius}

	skeleton, err := k.Buffer(padded, -(float64(radius) + e.opts.SafetyMargin), e.opts.QuadrantSegments)
	if err != nil {
		return tier, eris.Wrapf(err, "bubble: erode at radius %d", radius)
	}
	parts := geometry.Parts(skeleton)
	tier.Parts = len(parts)
	if len(parts) == 0 {
		return tier, nil
	}

	tier.Step = tierStep(geometry.ExteriorLength(parts), radius, len(out.Bubbles), limit)
	r := float64(radius)
	for _, part := range parts {
		var containErr error
		geometry.Walk(part.LinearRing(0), tier.Step, func(c geom.Coord) bool {
			circle := geometry.NewCircle(c, r, e.opts.QuadrantSegments)
			ok, err := k.Contains(padded, circle)
			if err != nil {
				containErr = eris.Wrapf(err, "bubble: containment at radius %d", radius)
				return false
			}
			if ok {
				out.add(c, r, model.KindInclusion, circle)
				tier.Placed++
			}
			return len(out.Bubbles) < limit
		})
		if containErr != nil {
			return tier, containErr
		}
		if len(out.Bubbles) >= limit {
			break
		}
	}
	return tier, nil
}

// fallback places the minimum enclosing circle of the region as its only
// inclusion bubble.
func (e *Engine) fallback(region *geom.MultiPolygon, out *Placement) error {
	c, err := geometry.MinimumEnclosingCircle(region)
	if err != nil {
		return eris.Wrap(err, "bubble: fallback circle")
	}
	if c.Radius <= 0 || math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) {
		return eris.Errorf("bubble: fallback circle has radius %v", c.Radius)
	}
	out.add(c.Center, c.Radius, model.KindInclusion, geometry.NewEnclosingCircle(c.Center, c.Radius, e.opts.QuadrantSegments))
	out.Fallback = true
	zap.L().Debug("bubble: placed fallback circle", zap.Float64("radius", c.Radius))
	return nil
}

// Exclusion rings the region with circles centred on its outline grown by the
// exclusion radius, spaced a quarter radius apart. A positive ExclusionLimit
// widens the spacing so the ring stays within budget.
func (e *Engine) Exclusion(region *geom.MultiPolygon) (*Placement, error) {
	radius := e.opts.ExclusionRadius
	grown, err := e.kernel.Buffer(region, radius, e.opts.QuadrantSegments)
	if err != nil {
		return nil, eris.Wrap(err, "bubble: grow region for exclusions")
	}
	parts := geometry.Parts(grown)
	out := &Placement{}
	if len(parts) == 0 {
		return out, nil
	}

	step := radius / 4
	if budget := e.opts.ExclusionLimit; budget > 0 && ringCount(parts, step) > budget {
		step = geometry.ExteriorLength(parts) / float64(budget)
	}

	for _, part := range parts {
		geometry.Walk(part.LinearRing(0), step, func(c geom.Coord) bool {
			out.add(c, radius, model.KindExclusion, geometry.NewCircle(c, radius, e.opts.QuadrantSegments))
			return true
		})
	}

	if budget := e.opts.ExclusionLimit; budget > 0 && len(out.Bubbles) > budget {
		out.Bubbles = out.Bubbles[:budget]
		out.Shapes = out.Shapes[:budget]
	}
	return out, nil
}

// ringCount is the number of points Walk visits over parts at step.
func ringCount(parts []*geom.Polygon, step float64) int {
	n := 0
	for _, p := range parts {
		n += int(math.Ceil(geometry.RingLength(p.LinearRing(0)) / step))
	}
	return n
}
