package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x0, y0, side float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x0, y0, x0 + side, y0, x0 + side, y0 + side, x0, y0 + side, x0, y0,
	}, []int{10})
}

func TestRingLength(t *testing.T) {
	assert.InDelta(t, 16000, RingLength(square(0, 0, 4000).LinearRing(0)), 1e-9)
}

func TestInterpolate(t *testing.T) {
	ring := square(0, 0, 10).LinearRing(0)

	tests := []struct {
		d    float64
		x, y float64
	}{
		{0, 0, 0},
		{5, 5, 0},
		{10, 10, 0},
		{15, 10, 5},
		{35, 0, 5},
		{-3, 0, 0},
		{100, 0, 0},
	}
	for _, tt := range tests {
		c := Interpolate(ring, tt.d)
		assert.InDelta(t, tt.x, c.X(), 1e-9, "d=%v", tt.d)
		assert.InDelta(t, tt.y, c.Y(), 1e-9, "d=%v", tt.d)
	}
}

func TestWalk(t *testing.T) {
	ring := square(0, 0, 10).LinearRing(0)

	var got []geom.Coord
	Walk(ring, 10, func(c geom.Coord) bool {
		got = append(got, c)
		return true
	})
	require.Len(t, got, 4)
	assert.InDelta(t, 10, got[1].X(), 1e-9)
	assert.InDelta(t, 10, got[2].Y(), 1e-9)

	count := 0
	Walk(ring, 1, func(geom.Coord) bool {
		count++
		return count < 3
	})
	assert.Equal(t, 3, count)

	Walk(ring, 0, func(geom.Coord) bool {
		t.Fatal("zero step must not walk")
		return false
	})
}

func TestNewCircle(t *testing.T) {
	c := NewCircle(geom.Coord{100, 200}, 50, 16)
	ring := c.LinearRing(0)
	assert.Equal(t, 65, ring.NumCoords())
	for i := 0; i < ring.NumCoords(); i++ {
		p := ring.Coord(i)
		assert.InDelta(t, 50, math.Hypot(p.X()-100, p.Y()-200), 1e-9)
	}
	assert.Less(t, c.Area(), math.Pi*50*50)
	assert.Greater(t, c.Area(), 0.99*math.Pi*50*50)
}

func TestNewEnclosingCircle(t *testing.T) {
	c := NewEnclosingCircle(geom.Coord{0, 0}, 10, 4)
	assert.Greater(t, c.Area(), math.Pi*100)

	// Every edge midpoint lies on or outside the true circle.
	ring := c.LinearRing(0)
	for i := 1; i < ring.NumCoords(); i++ {
		a, b := ring.Coord(i-1), ring.Coord(i)
		mx, my := (a.X()+b.X())/2, (a.Y()+b.Y())/2
		assert.GreaterOrEqual(t, math.Hypot(mx, my), 10-1e-9)
	}
}

func TestConvexHull(t *testing.T) {
	pts := []geom.Coord{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 0}, {0, 0}}
	hull := ConvexHull(pts)
	require.Len(t, hull, 4)
	assert.Equal(t, geom.Coord{0, 0}, hull[0])

	var area float64
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		area += a.X()*b.Y() - b.X()*a.Y()
	}
	assert.InDelta(t, 8, area, 1e-9, "hull should be counter-clockwise")
}

func TestMinimumAreaRectangle(t *testing.T) {
	rect, err := MinimumAreaRectangle(Vertices(mustMulti(t, square(0, 0, 4000))))
	require.NoError(t, err)
	a, b := RectangleEdges(rect)
	assert.InDelta(t, 4000, a, 1e-6)
	assert.InDelta(t, 4000, b, 1e-6)
	assert.InDelta(t, 16e6, rect.Area(), 1e-3)

	// A diamond's minimum rectangle is the diamond itself.
	diamond := geom.NewPolygonFlat(geom.XY, []float64{0, -1, 1, 0, 0, 1, -1, 0, 0, -1}, []int{10})
	rect, err = MinimumAreaRectangle(Vertices(mustMulti(t, diamond)))
	require.NoError(t, err)
	assert.InDelta(t, 2, rect.Area(), 1e-9)

	_, err = MinimumAreaRectangle([]geom.Coord{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrEmptyGeometry)
}

func TestMinimumEnclosingCircle(t *testing.T) {
	c, err := MinimumEnclosingCircle(mustMulti(t, square(0, 0, 2)))
	require.NoError(t, err)
	assert.InDelta(t, 1, c.Center.X(), 1e-9)
	assert.InDelta(t, 1, c.Center.Y(), 1e-9)
	assert.InDelta(t, math.Sqrt2, c.Radius, 1e-9)

	tri := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 5, 1, 0, 0}, []int{8})
	c, err = MinimumEnclosingCircle(mustMulti(t, tri))
	require.NoError(t, err)
	assert.InDelta(t, 5, c.Center.X(), 1e-9)
	assert.InDelta(t, 0, c.Center.Y(), 1e-9)
	assert.InDelta(t, 5, c.Radius, 1e-9)

	again, err := MinimumEnclosingCircle(mustMulti(t, tri))
	require.NoError(t, err)
	assert.Equal(t, c, again)

	_, err = MinimumEnclosingCircle(geom.NewMultiPolygon(geom.XY))
	assert.ErrorIs(t, err, ErrEmptyGeometry)
}

func TestPartsAndEmpty(t *testing.T) {
	assert.True(t, Empty(nil))
	assert.True(t, Empty(geom.NewMultiPolygon(geom.XY)))

	mp := mustMulti(t, square(0, 0, 1), square(5, 5, 2))
	assert.False(t, Empty(mp))
	assert.Len(t, Parts(mp), 2)
	assert.InDelta(t, 5, Area(mp), 1e-9)
	assert.InDelta(t, 12, ExteriorLength(Parts(mp)), 1e-9)
	assert.Len(t, Vertices(mp), 10)
}

func mustMulti(t *testing.T, polys ...*geom.Polygon) *geom.MultiPolygon {
	t.Helper()
	mp, err := NewMultiPolygon(polys...)
	require.NoError(t, err)
	return mp
}
