package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/config"
)

const defaultCooldown = time.Hour

// Checker polls the run store for a health snapshot, publishes it to the
// window gauges, and posts the alerts it triggers. An alert type that keeps
// firing is re-posted only once its cooldown has passed; it is re-armed as
// soon as a check no longer triggers it.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	metrics   *Metrics
	lookback  int
	interval  time.Duration
	cooldown  time.Duration
	now       func() time.Time

	mu     sync.Mutex
	posted map[AlertType]time.Time
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithCheckerMetrics publishes every snapshot and alert to m.
func WithCheckerMetrics(m *Metrics) CheckerOption {
	return func(c *Checker) { c.metrics = m }
}

// WithCooldown sets how long a still-firing alert is held back after posting.
func WithCooldown(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// NewChecker creates a background checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig, opts ...CheckerOption) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	c := &Checker{
		collector: collector,
		alerter:   alerter,
		lookback:  cfg.LookbackWindowHours,
		interval:  interval,
		cooldown:  defaultCooldown,
		now:       time.Now,
		posted:    make(map[AlertType]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Snapshot  *Snapshot
	Triggered []Alert
	// Held are triggered alerts still inside their cooldown.
	Held int
	Sent int
}

// Run checks once immediately and then every interval until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting health checker",
		zap.Duration("interval", c.interval),
		zap.Duration("cooldown", c.cooldown),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Check(ctx); err != nil && ctx.Err() == nil {
			log.Error("monitoring: check failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check collects one snapshot, updates the gauges, and posts the alerts that
// are not cooling down.
func (c *Checker) Check(ctx context.Context) (*CheckResult, error) {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: check")
	}
	c.metrics.ObserveSnapshot(snap)

	res := &CheckResult{Snapshot: snap, Triggered: c.alerter.Evaluate(snap)}
	due := c.due(res.Triggered)
	res.Held = len(res.Triggered) - len(due)

	for _, a := range due {
		if c.alerter.SendAlerts(ctx, []Alert{a}) == 1 {
			res.Sent++
			c.markPosted(a.Type)
			c.metrics.observeAlert(a.Type, "sent")
			continue
		}
		c.metrics.observeAlert(a.Type, "unsent")
	}
	for _, a := range res.Triggered {
		if !contains(due, a.Type) {
			c.metrics.observeAlert(a.Type, "held")
		}
	}

	zap.L().Debug("monitoring: check complete",
		zap.Int("runs", snap.RunsTotal),
		zap.Float64("region_fail_rate", snap.RegionFailRate),
		zap.Int("alerts_triggered", len(res.Triggered)),
		zap.Int("alerts_held", res.Held),
		zap.Int("alerts_sent", res.Sent),
	)
	return res, nil
}

// due filters triggered down to the alerts outside their cooldown and re-arms
// every type that did not trigger.
func (c *Checker) due(triggered []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	for t := range c.posted {
		if !contains(triggered, t) {
			delete(c.posted, t)
		}
	}

	now := c.now()
	var out []Alert
	for _, a := range triggered {
		if last, ok := c.posted[a.Type]; ok && now.Sub(last) < c.cooldown {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c *Checker) markPosted(t AlertType) {
	c.mu.Lock()
	c.posted[t] = c.now()
	c.mu.Unlock()
}

func contains(alerts []Alert, t AlertType) bool {
	for _, a := range alerts {
		if a.Type == t {
			return true
		}
	}
	return false
}
