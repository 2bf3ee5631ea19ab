// Package export writes bubble sets and coverage statistics to disk.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/bubble-cli/internal/model"
)

// Layout is the output tree for one region type:
//
//	<root>/<type>/bubbles.csv
//	<root>/<type>/statistics.csv
//	<root>/<type>/statistics.xlsx
//	<root>/<type>/bubbles.geojson
//	<root>/<type>/CSVs/<region>.csv
//	<root>/<type>/JPGs/<region>.jpg
type Layout struct {
	Dir string
}

// NewLayout creates the output directories for regionType below root.
func NewLayout(root string, regionType model.RegionType) (Layout, error) {
	l := Layout{Dir: filepath.Join(root, string(regionType))}
	for _, dir := range []string{l.CSVDir(), l.JPGDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, eris.Wrapf(err, "export: create %s", dir)
		}
	}
	return l, nil
}

// CSVDir holds one bubble file per region.
func (l Layout) CSVDir() string { return filepath.Join(l.Dir, "CSVs") }

// JPGDir holds one rendering per region.
func (l Layout) JPGDir() string { return filepath.Join(l.Dir, "JPGs") }

func (l Layout) BubblesCSV() string { return filepath.Join(l.Dir, "bubbles.csv") }

func (l Layout) StatisticsCSV() string { return filepath.Join(l.Dir, "statistics.csv") }

func (l Layout) StatisticsWorkbook() string { return filepath.Join(l.Dir, "statistics.xlsx") }

func (l Layout) GeoJSON() string { return filepath.Join(l.Dir, "bubbles.geojson") }

// RegionCSV is the per-region bubble file.
func (l Layout) RegionCSV(name string) string {
	return filepath.Join(l.CSVDir(), SanitizeFilename(name)+".csv")
}

// RegionJPG is the per-region rendering.
func (l Layout) RegionJPG(name string) string {
	return filepath.Join(l.JPGDir(), SanitizeFilename(name)+".jpg")
}

// SanitizeFilename makes a region name safe as a file name. Names are NFC
// normalised so that composed and decomposed accents map to the same file.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	return strings.NewReplacer("/", "&", `\`, "&").Replace(name)
}
