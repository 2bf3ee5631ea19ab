// Package boundary downloads and reads the constituency and ward boundary
// sets and prepares them for bubble placement.
package boundary

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bubble-cli/internal/model"
)

// Format is the on-disk encoding of a boundary source.
type Format string

const (
	FormatShapefile  Format = "shp"
	FormatGeoPackage Format = "gpkg"
)

// Source describes one downloadable boundary file.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Archive is true when URL points at a ZIP to extract under Dir.
	Archive bool `yaml:"archive"`
	// Dir is the source's directory below the data directory.
	Dir string `yaml:"dir"`
	// Path locates the boundary file inside Dir.
	Path   string `yaml:"path"`
	Format Format `yaml:"format"`
	// Layer names the GeoPackage feature table; empty picks the first.
	Layer string `yaml:"layer,omitempty"`
	// KeyFields are joined with a space to name each region.
	KeyFields []string `yaml:"key_fields"`
}

// Catalog is the list of sources that make up one region type.
type Catalog struct {
	RegionType model.RegionType `yaml:"region_type"`
	Sources    []Source         `yaml:"sources"`
}

// DefaultCatalog returns the 2023 Westminster constituency review shapefiles or
// the May 2024 UK wards GeoPackage.
func DefaultCatalog(t model.RegionType) (Catalog, error) {
	switch t {
	case model.RegionConstituencies:
		return Catalog{RegionType: t, Sources: []Source{
			{
				Name:      "england",
				URL:       "https://boundarycommissionforengland.independent.gov.uk/wp-content/uploads/2023/06/984162_2023_06_27_Final_recommendations_England_shp.zip",
				Archive:   true,
				Dir:       "england",
				Path:      "2023_06_27_Final_recommendations_England.shp",
				Format:    FormatShapefile,
				KeyFields: []string{"Constituen"},
			},
			{
				Name:      "scotland",
				URL:       "https://www.bcomm-scotland.independent.gov.uk/sites/default/files/2023_review_final/bcs_final_recs_2023_review.zip",
				Archive:   true,
				Dir:       "scotland",
				Path:      "All_Scotland_Final_Recommended_Constituencies_2023_Review.shp",
				Format:    FormatShapefile,
				KeyFields: []string{"NAME"},
			},
			{
				Name:      "wales",
				URL:       "https://bcomm-wales.gov.uk/sites/bcomm/files/review/Shapefiles.zip",
				Archive:   true,
				Dir:       "wales",
				Path:      "Final Recs Shapefiles/Final Recommendations_region.shp",
				Format:    FormatShapefile,
				KeyFields: []string{"Official_N"},
			},
		}}, nil
	case model.RegionWards:
		return Catalog{RegionType: t, Sources: []Source{
			{
				Name:      "wards",
				URL:       "https://open-geography-portalx-ons.hub.arcgis.com/api/download/v1/items/b58c65bdad994ed3a33741eea7bb09ab/geoPackage?layers=0",
				Dir:       "wards",
				Path:      "Wards_May_2024_Boundaries_UK_BSC_8498175397534686318.gpkg",
				Format:    FormatGeoPackage,
				KeyFields: []string{"WD24CD", "WD24NM"},
			},
		}}, nil
	default:
		return Catalog{}, eris.Errorf("boundary: unknown region type %q", t)
	}
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, eris.Wrapf(err, "boundary: read catalog %s", path)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, eris.Wrapf(err, "boundary: parse catalog %s", path)
	}
	if !c.RegionType.Valid() {
		return Catalog{}, eris.Errorf("boundary: catalog %s has unknown region type %q", path, c.RegionType)
	}
	for i, s := range c.Sources {
		if s.Path == "" || len(s.KeyFields) == 0 {
			return Catalog{}, eris.Errorf("boundary: catalog %s source %d needs path and key_fields", path, i)
		}
		if s.Format != FormatShapefile && s.Format != FormatGeoPackage {
			return Catalog{}, eris.Errorf("boundary: catalog %s source %q has unknown format %q", path, s.Name, s.Format)
		}
	}
	return c, nil
}
