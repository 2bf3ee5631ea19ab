package boundary

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/model"
)

// Load fetches every source of the catalog and reads its regions, in catalog
// order.
func Load(ctx context.Context, client *http.Client, dataDir string, c Catalog) ([]model.Region, error) {
	var all []model.Region
	for _, src := range c.Sources {
		path, err := Fetch(ctx, client, dataDir, src)
		if err != nil {
			return nil, err
		}

		var regions []model.Region
		switch src.Format {
		case FormatShapefile:
			regions, err = ReadShapefile(path, src.KeyFields)
		case FormatGeoPackage:
			regions, err = ReadGeoPackage(ctx, path, src.Layer, src.KeyFields)
		default:
			err = eris.Errorf("boundary: unknown format %q for %s", src.Format, src.Name)
		}
		if err != nil {
			return nil, err
		}

		zap.L().Info("boundary source loaded",
			zap.String("source", src.Name),
			zap.Int("regions", len(regions)),
		)
		all = append(all, regions...)
	}
	return all, nil
}
