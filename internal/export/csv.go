package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
)

var (
	bubblesColumns    = []string{"bubble", "name", "type"}
	regionColumns     = []string{"bubble_type", "coordinates", "radius"}
	statisticsColumns = []string{"name", "internal_inclusion_coverage", "external_inclusion_coverage", "exclusion_coverage", "net_coverage"}
)

// WriteRegionCSV writes one region's bubbles, inclusion first.
func WriteRegionCSV(path string, inclusion, exclusion []Located) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create region csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(regionColumns); err != nil {
		return eris.Wrap(err, "export: write region header")
	}
	for _, set := range [][]Located{inclusion, exclusion} {
		for _, b := range set {
			row := []string{string(b.Kind), b.Descriptor(), strconv.Itoa(b.RadiusKM)}
			if err := w.Write(row); err != nil {
				return eris.Wrap(err, "export: write region row")
			}
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush region csv")
}

// BubbleWriter appends every region's bubbles to the combined bubbles.csv.
// It is safe for concurrent use.
type BubbleWriter struct {
	mu sync.Mutex
	f  io.WriteCloser
	w  *csv.Writer
}

// NewBubbleWriter creates path and writes the header.
func NewBubbleWriter(path string) (*BubbleWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: create bubbles csv")
	}
	bw := &BubbleWriter{f: f, w: csv.NewWriter(f)}
	if err := bw.w.Write(bubblesColumns); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "export: write bubbles header")
	}
	return bw, nil
}

// Write appends the bubbles of one region.
func (bw *BubbleWriter) Write(name string, bubbles ...[]Located) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	for _, set := range bubbles {
		for _, b := range set {
			if err := bw.w.Write([]string{b.Descriptor(), name, string(b.Kind)}); err != nil {
				return eris.Wrap(err, "export: write bubble row")
			}
		}
	}
	bw.w.Flush()
	return eris.Wrap(bw.w.Error(), "export: flush bubbles csv")
}

// Close flushes and closes the file.
func (bw *BubbleWriter) Close() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.w.Flush()
	if err := bw.w.Error(); err != nil {
		_ = bw.f.Close()
		return eris.Wrap(err, "export: flush bubbles csv")
	}
	return eris.Wrap(bw.f.Close(), "export: close bubbles csv")
}

// WriteStatistics writes one coverage row per successful region, a blank
// row, then five summary rows per metric.
func WriteStatistics(out io.Writer, results []model.RegionResult, summaries []model.Summary) error {
	w := csv.NewWriter(out)
	if err := w.Write(statisticsColumns); err != nil {
		return eris.Wrap(err, "export: write statistics header")
	}
	for _, r := range results {
		if r.Failed() {
			continue
		}
		c := r.Coverage
		row := []string{r.Name, formatFloat(c.InternalInclusion), formatFloat(c.ExternalInclusion), formatFloat(c.Exclusion), formatFloat(c.Net)}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write statistics row")
		}
	}

	if len(summaries) > 0 {
		if err := w.Write(make([]string, len(statisticsColumns))); err != nil {
			return eris.Wrap(err, "export: write separator")
		}
	}
	for _, s := range summaries {
		for _, kv := range summaryRows(s) {
			if err := w.Write([]string{kv.label, formatFloat(kv.value)}); err != nil {
				return eris.Wrap(err, "export: write summary row")
			}
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush statistics")
}

// WriteStatisticsFile is WriteStatistics to a new file.
func WriteStatisticsFile(path string, results []model.RegionResult, summaries []model.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create statistics csv")
	}
	if err := WriteStatistics(f, results, summaries); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close statistics csv")
}

type labelled struct {
	label string
	value float64
}

func summaryRows(s model.Summary) []labelled {
	m := string(s.Metric)
	return []labelled{
		{m + "_mean", s.Mean},
		{m + "_median", s.Median},
		{m + "_min", s.Min},
		{m + "_max", s.Max},
		{m + "_sigma", s.StdDev},
	}
}
