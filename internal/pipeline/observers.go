package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/export"
	"github.com/sells-group/bubble-cli/internal/render"
	"github.com/sells-group/bubble-cli/internal/reproject"
)

// ExportOptions selects the optional run-level files.
type ExportOptions struct {
	Workbook bool
	GeoJSON  bool
}

// ExportObserver writes the per-region CSV and appends to bubbles.csv as
// regions finish, then writes the statistics, workbook and GeoJSON once the
// run is done.
type ExportObserver struct {
	layout    export.Layout
	projector *reproject.Projector
	opts      ExportOptions
	bubbles   *export.BubbleWriter

	mu      sync.Mutex
	located map[int]export.RegionBubbles
}

var (
	_ Observer = (*ExportObserver)(nil)
	_ Finisher = (*ExportObserver)(nil)
)

// NewExportObserver opens bubbles.csv in layout.
func NewExportObserver(layout export.Layout, projector *reproject.Projector, opts ExportOptions) (*ExportObserver, error) {
	if projector == nil {
		return nil, eris.New("pipeline: export needs a projector")
	}
	bw, err := export.NewBubbleWriter(layout.BubblesCSV())
	if err != nil {
		return nil, err
	}
	return &ExportObserver{
		layout:    layout,
		projector: projector,
		opts:      opts,
		bubbles:   bw,
		located:   make(map[int]export.RegionBubbles),
	}, nil
}

// ObserveRegion writes the region's bubbles. Failed regions are skipped.
func (e *ExportObserver) ObserveRegion(_ context.Context, o *Outcome) error {
	if o.Result.Failed() {
		return nil
	}
	inc, err := export.Locate(e.projector, o.Result.Inclusion)
	if err != nil {
		return err
	}
	exc, err := export.Locate(e.projector, o.Result.Exclusion)
	if err != nil {
		return err
	}

	if err := export.WriteRegionCSV(e.layout.RegionCSV(o.Result.Name), inc, exc); err != nil {
		return err
	}
	if err := e.bubbles.Write(o.Result.Name, inc, exc); err != nil {
		return err
	}

	if e.opts.GeoJSON {
		e.mu.Lock()
		e.located[o.Index] = export.RegionBubbles{Name: o.Result.Name, Inclusion: inc, Exclusion: exc}
		e.mu.Unlock()
	}
	return nil
}

// Finish closes bubbles.csv and writes the run-level files.
func (e *ExportObserver) Finish(_ context.Context, report *Report) error {
	if err := e.bubbles.Close(); err != nil {
		return err
	}
	if err := export.WriteStatisticsFile(e.layout.StatisticsCSV(), report.Results, report.Summaries); err != nil {
		return err
	}
	if e.opts.Workbook {
		if err := export.WriteWorkbook(e.layout.StatisticsWorkbook(), report.Results, report.Summaries); err != nil {
			return err
		}
	}
	if e.opts.GeoJSON {
		if err := export.WriteGeoJSON(e.layout.GeoJSON(), e.regions()); err != nil {
			return err
		}
	}
	zap.L().Info("pipeline: export written", zap.String("dir", e.layout.Dir))
	return nil
}

// regions returns the located bubbles in input order.
func (e *ExportObserver) regions() []export.RegionBubbles {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := make([]int, 0, len(e.located))
	for i := range e.located {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]export.RegionBubbles, 0, len(idx))
	for _, i := range idx {
		out = append(out, e.located[i])
	}
	return out
}

// RenderObserver draws one JPEG per processed region.
type RenderObserver struct {
	layout export.Layout
}

var _ Observer = (*RenderObserver)(nil)

// NewRenderObserver renders into layout's JPG directory.
func NewRenderObserver(layout export.Layout) *RenderObserver {
	return &RenderObserver{layout: layout}
}

// ObserveRegion renders a processed region.
func (r *RenderObserver) ObserveRegion(_ context.Context, o *Outcome) error {
	if o.Result.Failed() || o.Placement == nil {
		return nil
	}
	return render.WriteFile(r.layout.RegionJPG(o.Result.Name), render.Scene{
		Title:     o.Result.Name,
		Net:       o.Result.Coverage.Net,
		Region:    o.Region.Geometry,
		Inclusion: o.Placement.InclusionShapes,
		Exclusion: o.Placement.ExclusionShapes,
	})
}
