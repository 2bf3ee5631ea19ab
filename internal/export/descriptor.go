package export

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/reproject"
)

// Located is a bubble with its WGS84 centre.
type Located struct {
	model.Bubble
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Descriptor renders the ads-platform location string "(lat, lon) +Nkm".
func (l Located) Descriptor() string {
	return Descriptor(l.Lat, l.Lon, l.RadiusKM)
}

// Descriptor formats a centre and whole-kilometre radius.
func Descriptor(lat, lon float64, radiusKM int) string {
	return "(" + formatFloat(lat) + ", " + formatFloat(lon) + ") +" + strconv.Itoa(radiusKM) + "km"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Locate projects every bubble centre to WGS84.
func Locate(p *reproject.Projector, bubbles []model.Bubble) ([]Located, error) {
	out := make([]Located, 0, len(bubbles))
	for _, b := range bubbles {
		lat, lon, err := p.ToLatLon(b.X, b.Y)
		if err != nil {
			return nil, eris.Wrapf(err, "export: locate bubble at (%v, %v)", b.X, b.Y)
		}
		out = append(out, Located{Bubble: b, Lat: lat, Lon: lon})
	}
	return out, nil
}
