// Package pipeline runs the bubble engine over a set of regions, scoring each
// one and handing the outcome to observers that write it out.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bubble-cli/internal/boundary"
	"github.com/sells-group/bubble-cli/internal/bubble"
	"github.com/sells-group/bubble-cli/internal/coverage"
	"github.com/sells-group/bubble-cli/internal/geometry"
	"github.com/sells-group/bubble-cli/internal/model"
	"github.com/sells-group/bubble-cli/internal/monitoring"
	"github.com/sells-group/bubble-cli/internal/stats"
	"github.com/sells-group/bubble-cli/internal/store"
)

// Config describes one generation run.
type Config struct {
	RegionType  model.RegionType
	Options     bubble.Options
	Kernels     geometry.Factory
	KernelName  string
	Region      string // name filter the regions were selected with, if any
	Concurrency int
}

// Outcome is what a worker produced for one region. Placement is nil when
// the region failed.
type Outcome struct {
	Index     int
	Region    model.Region
	Result    model.RegionResult
	Placement *bubble.Result
	Duration  time.Duration
}

// Observer receives every outcome from inside the worker that produced it,
// so implementations must be safe for concurrent use.
type Observer interface {
	ObserveRegion(ctx context.Context, o *Outcome) error
}

// Finisher is implemented by observers that write something once the whole
// run is known.
type Finisher interface {
	Finish(ctx context.Context, report *Report) error
}

// Report is the result of a run. Results are in input order.
type Report struct {
	RunID      string
	RegionType model.RegionType
	Results    []model.RegionResult
	Failed     int
	Summaries  []model.Summary
}

// Succeeded returns the results of regions that were processed.
func (r *Report) Succeeded() []model.RegionResult {
	out := make([]model.RegionResult, 0, len(r.Results)-r.Failed)
	for _, res := range r.Results {
		if !res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Option configures a Runner.
type Option func(*Runner)

// WithObservers adds observers, called in order for every region.
func WithObservers(obs ...Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, obs...) }
}

// WithStore records the run and every region result in st.
func WithStore(st store.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithMetrics records Prometheus metrics for every region.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// Runner processes regions concurrently, one kernel per task.
type Runner struct {
	cfg       Config
	observers []Observer
	store     store.Store
	metrics   *monitoring.Metrics
}

// NewRunner validates cfg and returns a runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Kernels == nil {
		return nil, eris.New("pipeline: no kernel factory")
	}
	if !cfg.RegionType.Valid() {
		return nil, eris.Errorf("pipeline: unknown region type %q", cfg.RegionType)
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: engine options")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	r := &Runner{cfg: cfg}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Params returns the run parameters recorded with the run.
func (r *Runner) Params() model.RunParams {
	o := r.cfg.Options
	return model.RunParams{
		BubbleLimit:     o.Limit,
		ExclusionRadius: o.ExclusionRadius,
		ExclusionLimit:  o.ExclusionLimit,
		Exclusions:      o.Exclusions,
		Padding:         o.Padding,
		Kernel:          r.cfg.KernelName,
		Region:          r.cfg.Region,
	}
}

// Run processes every region. A region that fails is recorded and the batch
// continues; only cancellation stops the run early.
func (r *Runner) Run(ctx context.Context, regions []model.Region) (*Report, error) {
	log := zap.L().With(zap.String("region_type", string(r.cfg.RegionType)))
	report := &Report{
		RegionType: r.cfg.RegionType,
		Results:    make([]model.RegionResult, len(regions)),
	}

	if r.store != nil {
		run, err := r.store.CreateRun(ctx, r.cfg.RegionType, r.Params())
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		report.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}
	log.Info("pipeline: starting run",
		zap.Int("regions", len(regions)),
		zap.Int("concurrency", r.cfg.Concurrency),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, region := range regions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o, err := r.process(gctx, i, region)
			if err != nil {
				return err
			}
			o.Result.RunID = report.RunID
			report.Results[i] = o.Result
			r.observe(gctx, log, o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.complete(log, report, model.RunStatusFailed)
		return nil, eris.Wrap(err, "pipeline: run")
	}
	if err := ctx.Err(); err != nil {
		r.complete(log, report, model.RunStatusFailed)
		return nil, eris.Wrap(err, "pipeline: run")
	}

	for _, res := range report.Results {
		if res.Failed() {
			report.Failed++
		}
	}
	coverages := make([]model.Coverage, 0, len(regions)-report.Failed)
	for _, res := range report.Succeeded() {
		coverages = append(coverages, res.Coverage)
	}
	summaries, err := stats.SummarizeAll(coverages)
	switch {
	case errors.Is(err, stats.ErrNoData):
		log.Warn("pipeline: no region succeeded; skipping summaries")
	case err != nil:
		return nil, eris.Wrap(err, "pipeline: summarize")
	default:
		report.Summaries = summaries
	}

	for _, obs := range r.observers {
		f, ok := obs.(Finisher)
		if !ok {
			continue
		}
		if err := f.Finish(ctx, report); err != nil {
			log.Error("pipeline: finish failed", zap.Error(err))
		}
	}
	r.complete(log, report, model.RunStatusComplete)

	log.Info("pipeline: run complete",
		zap.Int("regions", len(regions)),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// process runs one region. Errors from the region itself are recorded on the
// outcome; only cancellation is returned.
func (r *Runner) process(ctx context.Context, index int, region model.Region) (*Outcome, error) {
	ctx, span := otel.Tracer(monitoring.TracerName).Start(ctx, "pipeline.region",
		trace.WithAttributes(
			attribute.String("region", region.Name),
			attribute.String("region_type", string(r.cfg.RegionType)),
		),
	)
	defer span.End()

	start := time.Now()
	o := &Outcome{Index: index, Region: region, Result: model.RegionResult{Name: region.Name}}
	placement, err := r.generate(ctx, &o.Region, &o.Result)
	o.Duration = time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.Result = model.RegionResult{Name: region.Name, Error: err.Error()}
		span.RecordError(err)
		span.SetStatus(codes.Error, "region failed")
		zap.L().Error("pipeline: region failed",
			zap.String("region", region.Name),
			zap.Error(err),
		)
	} else {
		o.Placement = placement
		span.SetAttributes(
			attribute.Int("inclusion", len(o.Result.Inclusion)),
			attribute.Int("exclusion", len(o.Result.Exclusion)),
			attribute.Float64("net_coverage", o.Result.Coverage.Net),
		)
		zap.L().Debug("pipeline: region complete",
			zap.String("region", region.Name),
			zap.Int("inclusion", len(o.Result.Inclusion)),
			zap.Int("exclusion", len(o.Result.Exclusion)),
			zap.Float64("net_coverage", o.Result.Coverage.Net),
			zap.Bool("fallback", o.Result.Fallback),
			zap.Duration("elapsed", o.Duration),
		)
	}
	r.metrics.ObserveRegion(r.cfg.RegionType, &o.Result, o.Duration)
	return o, nil
}

func (r *Runner) generate(ctx context.Context, region *model.Region, res *model.RegionResult) (*bubble.Result, error) {
	k := r.cfg.Kernels()
	valid, err := boundary.Validate(k, *region)
	if err != nil {
		return nil, err
	}
	*region = valid

	engine, err := bubble.NewEngine(k, r.cfg.Options)
	if err != nil {
		return nil, err
	}
	placement, err := engine.Generate(ctx, valid.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: generate %q", valid.Name)
	}
	cov, err := coverage.Compute(k, valid.Geometry, placement.InclusionShapes, placement.ExclusionShapes)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: coverage %q", valid.Name)
	}

	res.Inclusion = placement.Inclusion
	res.Exclusion = placement.Exclusion
	res.Coverage = cov
	res.UpperBound = placement.UpperBound
	res.Fallback = placement.Fallback
	res.AreaSqM = geometry.Area(valid.Geometry)
	return placement, nil
}

func (r *Runner) observe(ctx context.Context, log *zap.Logger, o *Outcome) {
	if r.store != nil {
		if err := r.store.SaveRegionResult(ctx, o.Result.RunID, o.Result); err != nil {
			log.Error("pipeline: save region result", zap.String("region", o.Region.Name), zap.Error(err))
		}
	}
	for _, obs := range r.observers {
		if err := obs.ObserveRegion(ctx, o); err != nil {
			log.Error("pipeline: observer failed", zap.String("region", o.Region.Name), zap.Error(err))
		}
	}
}

// complete closes the run record. A detached context is used so a cancelled
// run is still marked failed.
func (r *Runner) complete(log *zap.Logger, report *Report, status model.RunStatus) {
	if r.store == nil || report.RunID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := r.store.CompleteRun(ctx, report.RunID, store.RunSummary{
		Status:    status,
		Summaries: report.Summaries,
		Regions:   len(report.Results),
		Failed:    report.Failed,
	})
	if err != nil {
		log.Error("pipeline: complete run", zap.Error(err))
	}
}
