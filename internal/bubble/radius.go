package bubble

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/bubble-cli/internal/geometry"
)

// UpperBound estimates the largest tier radius worth trying: half the width of
// the region's minimum rotated rectangle, floored to whole kilometres.
func UpperBound(k geometry.Kernel, region *geom.MultiPolygon) (int, error) {
	rect, err := k.MinimumRotatedRectangle(region)
	if err != nil {
		return 0, eris.Wrap(err, "bubble: upper bound")
	}
	a, b := geometry.RectangleEdges(rect)
	width := math.Min(a, b)
	return int(math.Floor(width/2000)) * 1000, nil
}

// nextRadius steps down a tier. Once anything is placed the descent drops by a
// third and rounds to whole kilometres, otherwise it walks down one kilometre.
func nextRadius(radius, placed int) int {
	if placed > 0 {
		return (radius / 1500) * 1000
	}
	return radius - 1000
}

// tierStep is the spacing between candidate centres on a skeleton. The last
// tier, and any tier that would overshoot the limit, spread the remaining
// budget evenly over the whole perimeter.
func tierStep(perimeter float64, radius, placed, limit int) float64 {
	if radius == 1000 || float64(placed)+perimeter/float64(radius) > float64(limit) {
		return perimeter / float64(limit-placed)
	}
	return float64(radius)
}
