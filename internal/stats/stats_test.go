package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bubble-cli/internal/model"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   model.Summary
	}{
		{
			name:   "odd count",
			values: []float64{30, 10, 20},
			want:   model.Summary{Count: 3, Mean: 20, Median: 20, Min: 10, Max: 30, StdDev: math.Sqrt(200.0 / 3)},
		},
		{
			name:   "even count averages middle pair",
			values: []float64{4, 1, 3, 2},
			want:   model.Summary{Count: 4, Mean: 2.5, Median: 2.5, Min: 1, Max: 4, StdDev: math.Sqrt(1.25)},
		},
		{
			name:   "single value",
			values: []float64{42},
			want:   model.Summary{Count: 1, Mean: 42, Median: 42, Min: 42, Max: 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(model.MetricNet, tt.values)
			require.NoError(t, err)
			assert.Equal(t, model.MetricNet, got.Metric)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-9)
			assert.InDelta(t, tt.want.Median, got.Median, 1e-9)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.want.Max, got.Max, 1e-9)
			assert.InDelta(t, tt.want.StdDev, got.StdDev, 1e-9)
		})
	}
}

func TestSummarize_KnownValues(t *testing.T) {
	got, err := Summarize(model.MetricInternalInclusion, []float64{10, 20, 30})
	require.NoError(t, err)
	assert.InDelta(t, 8.165, got.StdDev, 1e-3)
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, err := Summarize(model.MetricNet, values)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(model.MetricNet, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSummarizeAll(t *testing.T) {
	coverages := []model.Coverage{
		{InternalInclusion: 90, ExternalInclusion: 5, Exclusion: 2, Net: 88},
		{InternalInclusion: 70, ExternalInclusion: 15, Exclusion: 4, Net: 66},
	}

	got, err := SummarizeAll(coverages)
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i, m := range model.Metrics {
		assert.Equal(t, m, got[i].Metric)
		assert.Equal(t, 2, got[i].Count)
	}
	assert.InDelta(t, 80, got[0].Mean, 1e-9)
	assert.InDelta(t, 10, got[1].Median, 1e-9)
	assert.InDelta(t, 1, got[2].StdDev, 1e-9)
	assert.InDelta(t, 66, got[3].Min, 1e-9)

	_, err = SummarizeAll(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRadiusHistogram(t *testing.T) {
	bubbles := []model.Bubble{
		model.NewBubble(0, 0, 4000, model.KindInclusion),
		model.NewBubble(0, 0, 2000, model.KindInclusion),
		model.NewBubble(0, 0, 2000, model.KindInclusion),
		model.NewBubble(0, 0, 600, model.KindInclusion),
	}
	hist := RadiusHistogram(bubbles)
	assert.Equal(t, map[int]int{1: 1, 2: 2, 4: 1}, hist)
	assert.Equal(t, []int{1, 2, 4}, SortedRadii(hist))
}
