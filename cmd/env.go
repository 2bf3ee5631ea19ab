package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/boundary"
	"github.com/sells-group/bubble-cli/internal/geometry"
	"github.com/sells-group/bubble-cli/internal/geometry/geoskernel"
	"github.com/sells-group/bubble-cli/internal/geometry/planar"
	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/reproject"
	"github.com/sells-group/bubble-cli/internal/store"
)

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// kernelFactory maps a kernel name to its factory. GEOS is the default; the
// planar kernel needs no cgo but does not repair geometry and is slow on
// detailed outlines.
func kernelFactory(name string) (geometry.Factory, error) {
	switch name {
	case "", "geos":
		return geoskernel.Factory, nil
	case "planar":
		return planar.Factory, nil
	default:
		return nil, eris.Errorf("unknown kernel %q (planar, geos)", name)
	}
}

func initProjector() (*reproject.Projector, error) {
	if cfg.Regions.SourceCRS == "" {
		return reproject.NewBritishNationalGrid()
	}
	return reproject.New(cfg.Regions.SourceCRS)
}

// loadRegions reads the boundary catalog for regionType, downloading any
// missing source files, and narrows it to name when set.
func loadRegions(ctx context.Context, regionType model.RegionType, name string) ([]model.Region, error) {
	var (
		catalog boundary.Catalog
		err     error
	)
	if cfg.Regions.Catalog != "" {
		catalog, err = boundary.LoadCatalog(cfg.Regions.Catalog)
	} else {
		catalog, err = boundary.DefaultCatalog(regionType)
	}
	if err != nil {
		return nil, err
	}
	if catalog.RegionType != "" && catalog.RegionType != regionType {
		return nil, eris.Errorf("catalog is for %s, not %s", catalog.RegionType, regionType)
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	regions, err := boundary.Load(ctx, client, cfg.Regions.DataDir, catalog)
	if err != nil {
		return nil, eris.Wrap(err, "load boundaries")
	}
	regions, err = boundary.Filter(regions, name)
	if err != nil {
		return nil, err
	}
	zap.L().Info("regions loaded",
		zap.String("region_type", string(regionType)),
		zap.Int("count", len(regions)),
	)
	return regions, nil
}
