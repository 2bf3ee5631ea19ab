// Package stats reduces per-region coverage into summary statistics.
package stats

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/bubble-cli/internal/model"
)

// ErrNoData is returned when there is nothing to summarise.
var ErrNoData = eris.New("stats: no data")

// Summarize computes mean, median, extremes and the population standard
// deviation of values.
func Summarize(metric model.Metric, values []float64) (model.Summary, error) {
	if len(values) == 0 {
		return model.Summary{}, eris.Wrapf(ErrNoData, "stats: summarize %s", metric)
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	return model.Summary{
		Metric: metric,
		Count:  len(values),
		Mean:   mean,
		Median: median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		StdDev: std,
	}, nil
}

// median averages the two middle values for even counts. stat.Quantile would
// pick one of them instead.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// SummarizeAll summarises every coverage metric in model.Metrics order.
func SummarizeAll(coverages []model.Coverage) ([]model.Summary, error) {
	if len(coverages) == 0 {
		return nil, ErrNoData
	}
	out := make([]model.Summary, 0, len(model.Metrics))
	for _, m := range model.Metrics {
		values := make([]float64, 0, len(coverages))
		for _, c := range coverages {
			v, _ := c.Value(m)
			values = append(values, v)
		}
		s, err := Summarize(m, values)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// RadiusHistogram counts bubbles per whole-kilometre radius.
func RadiusHistogram(bubbles []model.Bubble) map[int]int {
	out := make(map[int]int)
	for _, b := range bubbles {
		out[b.RadiusKM]++
	}
	return out
}

// SortedRadii returns the keys of a histogram in ascending order.
func SortedRadii(hist map[int]int) []int {
	keys := make([]int, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
