package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/stats"
)

// Workbook sheet names.
const (
	SheetStatistics = "statistics"
	SheetSummary    = "summary"
	SheetRadii      = "radii"
)

// BuildWorkbook lays out coverage per region, the metric summaries and a
// per-region count of bubbles at each kilometre radius.
func BuildWorkbook(results []model.RegionResult, summaries []model.Summary) (*xlsx.File, error) {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetStatistics)
	if err != nil {
		return nil, eris.Wrap(err, "export: add statistics sheet")
	}
	addStrings(sheet, statisticsColumns...)
	var ok []model.RegionResult
	for _, r := range results {
		if r.Failed() {
			continue
		}
		ok = append(ok, r)
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		for _, m := range model.Metrics {
			v, _ := r.Coverage.Value(m)
			row.AddCell().SetFloat(v)
		}
	}

	sheet, err = f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	addStrings(sheet, "metric", "count", "mean", "median", "min", "max", "sigma")
	for _, s := range summaries {
		row := sheet.AddRow()
		row.AddCell().SetString(string(s.Metric))
		row.AddCell().SetInt(s.Count)
		for _, v := range []float64{s.Mean, s.Median, s.Min, s.Max, s.StdDev} {
			row.AddCell().SetFloat(v)
		}
	}

	sheet, err = f.AddSheet(SheetRadii)
	if err != nil {
		return nil, eris.Wrap(err, "export: add radii sheet")
	}
	hists := make([]map[int]int, len(ok))
	total := map[int]int{}
	maxKM := 0
	for i, r := range ok {
		hists[i] = stats.RadiusHistogram(append(append([]model.Bubble{}, r.Inclusion...), r.Exclusion...))
		for km, n := range hists[i] {
			total[km] += n
			if km > maxKM {
				maxKM = km
			}
		}
	}
	header := []string{"name"}
	for km := 1; km <= maxKM; km++ {
		header = append(header, strconv.Itoa(km)+"km")
	}
	addStrings(sheet, header...)
	for i, r := range ok {
		addCounts(sheet, r.Name, hists[i], maxKM)
	}
	if len(ok) > 0 {
		addCounts(sheet, "total", total, maxKM)
	}
	return f, nil
}

// WriteWorkbook builds the workbook and saves it to path.
func WriteWorkbook(path string, results []model.RegionResult, summaries []model.Summary) error {
	f, err := BuildWorkbook(results, summaries)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Save(path), "export: save workbook")
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addCounts(sheet *xlsx.Sheet, name string, hist map[int]int, maxKM int) {
	row := sheet.AddRow()
	row.AddCell().SetString(name)
	for km := 1; km <= maxKM; km++ {
		row.AddCell().SetInt(hist[km])
	}
}
