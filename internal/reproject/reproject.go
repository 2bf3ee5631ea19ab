// Package reproject converts projected bubble centres to latitude/longitude.
package reproject

import (
	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
)

// BritishNationalGrid is EPSG:27700 with the OSGB36 to WGS84 Helmert shift.
const BritishNationalGrid = "+proj=tmerc +lat_0=49 +lon_0=-2 +k=0.9996012717 +x_0=400000 +y_0=-100000 +ellps=airy +towgs84=446.448,-125.157,542.06,0.15,0.247,0.842,-20.489 +units=m +no_defs"

// WGS84 is geographic longitude/latitude in degrees.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// Projector maps planar coordinates to WGS84.
type Projector struct {
	transform proj.Transformer
}

// New builds a projector from a proj4 source definition.
func New(source string) (*Projector, error) {
	src, err := proj.Parse(source)
	if err != nil {
		return nil, eris.Wrapf(err, "reproject: parse source %q", source)
	}
	dst, err := proj.Parse(WGS84)
	if err != nil {
		return nil, eris.Wrap(err, "reproject: parse WGS84")
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, eris.Wrap(err, "reproject: build transform")
	}
	return &Projector{transform: t}, nil
}

// NewBritishNationalGrid returns a projector from EPSG:27700.
func NewBritishNationalGrid() (*Projector, error) {
	return New(BritishNationalGrid)
}

// ToLatLon converts an easting/northing pair.
func (p *Projector) ToLatLon(x, y float64) (lat, lon float64, err error) {
	lon, lat, err = p.transform(x, y)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "reproject: transform (%v, %v)", x, y)
	}
	return lat, lon, nil
}
