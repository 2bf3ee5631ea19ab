package monitoring

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/model"
)

// Metrics holds the Prometheus collectors for bubble generation.
type Metrics struct {
	gatherer prometheus.Gatherer

	Regions     *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Bubbles     *prometheus.CounterVec
	NetCoverage *prometheus.HistogramVec

	// Store-wide health over the lookback window, refreshed by Checker.
	Health *prometheus.GaugeVec
	Alerts *prometheus.CounterVec
}

// NewMetrics registers the generator metrics against reg, or the default
// registry when reg is nil. Registering twice returns the existing
// collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	regions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbles_regions_total",
		Help: "Regions processed, labelled by region type and outcome.",
	}, []string{"region_type", "status"}), "bubbles_regions_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bubbles_region_duration_seconds",
		Help:    "Time spent generating and scoring one region.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"region_type"}), "bubbles_region_duration_seconds")
	if err != nil {
		return nil, err
	}

	bubbles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbles_generated_total",
		Help: "Bubbles placed, labelled by kind.",
	}, []string{"kind"}), "bubbles_generated_total")
	if err != nil {
		return nil, err
	}

	net, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bubbles_region_net_coverage_percent",
		Help:    "Net coverage per region.",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	}, []string{"region_type"}), "bubbles_region_net_coverage_percent")
	if err != nil {
		return nil, err
	}

	health, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bubbles_window",
		Help: "Run and region health over the monitoring lookback window.",
	}, []string{"stat"}), "bubbles_window")
	if err != nil {
		return nil, err
	}

	alerts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbles_alerts_total",
		Help: "Alerts triggered, labelled by type and whether they were delivered or held back.",
	}, []string{"type", "outcome"}), "bubbles_alerts_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:    gatherer,
		Regions:     regions,
		Duration:    duration,
		Bubbles:     bubbles,
		NetCoverage: net,
		Health:      health,
		Alerts:      alerts,
	}, nil
}

// ObserveRegion records one processed region. A nil Metrics is a no-op.
func (m *Metrics) ObserveRegion(regionType model.RegionType, r *model.RegionResult, took time.Duration) {
	if m == nil || r == nil {
		return
	}
	rt := string(regionType)
	m.Duration.WithLabelValues(rt).Observe(took.Seconds())
	if r.Failed() {
		m.Regions.WithLabelValues(rt, "failed").Inc()
		return
	}
	m.Regions.WithLabelValues(rt, "ok").Inc()
	m.Bubbles.WithLabelValues(string(model.KindInclusion)).Add(float64(len(r.Inclusion)))
	m.Bubbles.WithLabelValues(string(model.KindExclusion)).Add(float64(len(r.Exclusion)))
	m.NetCoverage.WithLabelValues(rt).Observe(r.Coverage.Net)
}

// ObserveSnapshot publishes snap as bubbles_window gauges. A nil Metrics is a
// no-op.
func (m *Metrics) ObserveSnapshot(snap *Snapshot) {
	if m == nil || snap == nil {
		return
	}
	for stat, v := range map[string]float64{
		"runs":              float64(snap.RunsTotal),
		"runs_complete":     float64(snap.RunsComplete),
		"runs_failed":       float64(snap.RunsFailed),
		"runs_running":      float64(snap.RunsRunning),
		"regions":           float64(snap.Regions),
		"regions_failed":    float64(snap.RegionsFailed),
		"region_fail_rate":  snap.RegionFailRate,
		"net_coverage_mean": snap.MeanNetCoverage,
		"net_coverage_min":  snap.MinNetCoverage,
	} {
		m.Health.WithLabelValues(stat).Set(v)
	}
}

func (m *Metrics) observeAlert(t AlertType, outcome string) {
	if m == nil {
		return
	}
	m.Alerts.WithLabelValues(string(t), outcome).Inc()
}

// Handler serves the registry the metrics were registered against.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, eris.Errorf("monitoring: %s already registered with another type", name)
		}
		return nil, eris.Wrapf(err, "monitoring: register %s", name)
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, eris.Errorf("monitoring: %s already registered with another type", name)
		}
		return nil, eris.Wrapf(err, "monitoring: register %s", name)
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, eris.Errorf("monitoring: %s already registered with another type", name)
		}
		return nil, eris.Wrapf(err, "monitoring: register %s", name)
	}
	return vec, nil
}
