package export

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// RegionBubbles pairs a region name with its located bubbles.
type RegionBubbles struct {
	Name      string
	Inclusion []Located
	Exclusion []Located
}

// FeatureCollection turns bubble centres into WGS84 point features carrying
// the region, kind, radius and descriptor.
func FeatureCollection(regions []RegionBubbles) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	for _, r := range regions {
		for _, set := range [][]Located{r.Inclusion, r.Exclusion} {
			for _, b := range set {
				fc.Features = append(fc.Features, &geojson.Feature{
					ID:       r.Name + "#" + strconv.Itoa(len(fc.Features)),
					Geometry: geom.NewPointFlat(geom.XY, []float64{b.Lon, b.Lat}),
					Properties: map[string]interface{}{
						"name":       r.Name,
						"type":       string(b.Kind),
						"radius_km":  b.RadiusKM,
						"radius_m":   b.RadiusMeters,
						"descriptor": b.Descriptor(),
					},
				})
			}
		}
	}
	return fc
}

// WriteGeoJSON writes the bubble feature collection to path.
func WriteGeoJSON(path string, regions []RegionBubbles) error {
	data, err := json.Marshal(FeatureCollection(regions))
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
