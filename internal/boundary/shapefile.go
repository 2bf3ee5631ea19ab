package boundary

import (
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/model"
)

// ReadShapefile reads every polygon record of a shapefile as a region named
// by keyFields. Records without polygon geometry are skipped.
func ReadShapefile(path string, keyFields []string) ([]model.Region, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := make([]int, len(keyFields))
	for i, name := range keyFields {
		idx[i] = fieldIndex(reader, name)
		if idx[i] < 0 {
			return nil, eris.Errorf("boundary: field %s not found in %s", name, path)
		}
	}

	var regions []model.Region
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		keys := make([]string, len(idx))
		for i, fi := range idx {
			keys[i] = strings.TrimSpace(strings.TrimRight(reader.Attribute(fi), "\x00"))
		}
		regions = append(regions, model.Region{Name: strings.Join(keys, " "), Geometry: mp})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return regions, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile polygon to a multipolygon.
// Shapefiles store outer rings clockwise and holes counter-clockwise; shells
// come out counter-clockwise with their holes attached.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var shells, holes [][]float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("boundary: skipping short ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		area := signedArea(flat)
		switch {
		case area < 0:
			shells = append(shells, reverse(flat))
		case area > 0:
			holes = append(holes, reverse(flat))
		}
	}

	// Writers that ignore the orientation rule leave no clockwise rings.
	if len(shells) == 0 {
		for _, h := range holes {
			shells = append(shells, reverse(h))
		}
		holes = nil
	}

	rings := make([][][]float64, len(shells))
	for i, s := range shells {
		rings[i] = [][]float64{s}
	}
	for _, h := range holes {
		best, bestArea := -1, math.Inf(1)
		for i, s := range shells {
			if !ringContains(s, h[0], h[1]) {
				continue
			}
			if a := signedArea(s); a < bestArea {
				best, bestArea = i, a
			}
		}
		if best < 0 {
			zap.L().Debug("boundary: dropping hole outside every shell")
			continue
		}
		rings[best] = append(rings[best], h)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, poly := range rings {
		var flat []float64
		var ends []int
		for _, r := range poly {
			flat = append(flat, r...)
			ends = append(ends, len(flat))
		}
		if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, ends)); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func signedArea(flat []float64) float64 {
	var s float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		s += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return s / 2
}

func reverse(flat []float64) []float64 {
	n := len(flat) / 2
	out := make([]float64, len(flat))
	for i := 0; i < n; i++ {
		out[2*i], out[2*i+1] = flat[2*(n-1-i)], flat[2*(n-1-i)+1]
	}
	return out
}

func ringContains(flat []float64, x, y float64) bool {
	in := false
	n := len(flat) / 2
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[2*i], flat[2*i+1]
		xj, yj := flat[2*j], flat[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	return in
}
