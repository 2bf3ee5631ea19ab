package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKilometresFloor(t *testing.T) {
	tests := []struct {
		meters float64
		want   int
	}{
		{0, 1},
		{500, 1},
		{999.9, 1},
		{1000, 1},
		{1999, 1},
		{2000, 2},
		{12750, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KilometresFloor(tt.meters), "%v m", tt.meters)
	}
}

func TestNewBubble(t *testing.T) {
	b := NewBubble(450000, 355000, 3500, KindInclusion)
	assert.Equal(t, 450000.0, b.X)
	assert.Equal(t, 355000.0, b.Y)
	assert.Equal(t, 3500.0, b.RadiusMeters)
	assert.Equal(t, 3, b.RadiusKM)
	assert.Equal(t, KindInclusion, b.Kind)
}

func TestCountByKind(t *testing.T) {
	bubbles := []Bubble{
		NewBubble(0, 0, 1000, KindInclusion),
		NewBubble(0, 0, 1000, KindExclusion),
		NewBubble(0, 0, 2000, KindInclusion),
	}
	assert.Equal(t, 2, CountByKind(bubbles, KindInclusion))
	assert.Equal(t, 1, CountByKind(bubbles, KindExclusion))
	assert.Zero(t, CountByKind(nil, KindInclusion))
}

func TestRegionTypeValid(t *testing.T) {
	assert.True(t, RegionConstituencies.Valid())
	assert.True(t, RegionWards.Valid())
	assert.False(t, RegionType("counties").Valid())
	assert.False(t, RegionType("").Valid())
}

func TestCoverageValue(t *testing.T) {
	c := Coverage{InternalInclusion: 80, ExternalInclusion: 12, Exclusion: 4, Net: 78}
	want := map[Metric]float64{
		MetricInternalInclusion: 80,
		MetricExternalInclusion: 12,
		MetricExclusion:         4,
		MetricNet:               78,
	}
	for _, m := range Metrics {
		v, ok := c.Value(m)
		assert.True(t, ok, m)
		assert.Equal(t, want[m], v, m)
	}
	_, ok := c.Value("gross")
	assert.False(t, ok)
}

func TestRegionResultFailed(t *testing.T) {
	assert.False(t, (&RegionResult{Name: "Ashfield"}).Failed())
	assert.True(t, (&RegionResult{Name: "Broken", Error: "boundary: degenerate region"}).Failed())
}
