package boundary

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bubble-cli/internal/model"
)

// ReadGeoPackage reads the polygon features of a GeoPackage layer. An empty
// layer selects the first feature table listed in gpkg_contents.
func ReadGeoPackage(ctx context.Context, path, layer string, keyFields []string) ([]model.Region, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open geopackage %s", path)
	}
	defer db.Close() //nolint:errcheck

	if layer == "" {
		err := db.QueryRowContext(ctx,
			`SELECT table_name FROM gpkg_contents WHERE data_type = 'features' ORDER BY table_name LIMIT 1`,
		).Scan(&layer)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: find feature layer in %s", path)
		}
	}

	var geomColumn string
	err = db.QueryRowContext(ctx,
		`SELECT column_name FROM gpkg_geometry_columns WHERE table_name = ?`, layer,
	).Scan(&geomColumn)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: geometry column of layer %s", layer)
	}

	cols := make([]string, 0, len(keyFields)+1)
	for _, f := range keyFields {
		cols = append(cols, quoteIdent(f))
	}
	cols = append(cols, quoteIdent(geomColumn))
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(layer))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: query layer %s", layer)
	}
	defer rows.Close() //nolint:errcheck

	var regions []model.Region
	var skipped int
	for rows.Next() {
		keys := make([]sql.NullString, len(keyFields))
		var blob []byte
		dest := make([]any, 0, len(keys)+1)
		for i := range keys {
			dest = append(dest, &keys[i])
		}
		dest = append(dest, &blob)
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrapf(err, "boundary: scan layer %s", layer)
		}

		mp, err := decodeGeoPackageGeometry(blob)
		if err != nil || mp == nil {
			skipped++
			continue
		}

		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = strings.TrimSpace(k.String)
		}
		regions = append(regions, model.Region{Name: strings.Join(names, " "), Geometry: mp})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "boundary: iterate layer %s", layer)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped geopackage features",
			zap.String("layer", layer),
			zap.Int("skipped", skipped),
		)
	}
	return regions, nil
}

// Envelope sizes in bytes, indexed by the envelope indicator bits.
var envelopeSizes = [...]int{0, 32, 48, 48, 64}

// decodeGeoPackageGeometry strips the GeoPackage binary header and decodes
// the WKB body. Non-polygonal and empty geometries return nil.
func decodeGeoPackageGeometry(blob []byte) (*geom.MultiPolygon, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, eris.New("boundary: not a geopackage geometry")
	}
	flags := blob[3]
	if flags&0x10 != 0 {
		return nil, nil
	}
	indicator := int(flags>>1) & 0x07
	if indicator >= len(envelopeSizes) {
		return nil, eris.Errorf("boundary: invalid envelope indicator %d", indicator)
	}
	start := 8 + envelopeSizes[indicator]
	if len(blob) < start {
		return nil, eris.New("boundary: truncated geopackage header")
	}

	t, err := wkb.Unmarshal(blob[start:])
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode WKB")
	}
	switch g := t.(type) {
	case *geom.MultiPolygon:
		return g, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(g.Layout())
		if err := mp.Push(g); err != nil {
			return nil, eris.Wrap(err, "boundary: wrap polygon")
		}
		return mp, nil
	default:
		return nil, nil
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
