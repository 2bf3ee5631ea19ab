package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRegionFailureRate AlertType = "region_failure_rate"
	AlertRunFailure        AlertType = "run_failure"
	AlertLowCoverage       AlertType = "low_net_coverage"
)

// minRegionsForRate keeps a handful of failures in a tiny run from paging.
const minRegionsForRate = 5

// Alert is a single notification.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against thresholds and posts alerts to a
// webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter for cfg.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns the alerts snap triggers.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.Regions >= minRegionsForRate && snap.RegionFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRegionFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Region failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d regions in last %dh)",
				snap.RegionFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RegionsFailed, snap.Regions, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.RegionFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RegionsFailed,
				"regions":      snap.Regions,
			},
			Timestamp: now,
		})
	}

	if snap.RunsFailed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailure,
			Severity: "high",
			Message:  fmt.Sprintf("%d run(s) failed in last %dh", snap.RunsFailed, snap.LookbackHours),
			Details: map[string]any{
				"failed": snap.RunsFailed,
				"total":  snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MinNetCoverage > 0 && snap.MinNetRunID != "" && snap.MinNetCoverage < a.cfg.MinNetCoverage {
		alerts = append(alerts, Alert{
			Type:     AlertLowCoverage,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Run %s mean net coverage %.1f%% is below %.1f%%",
				snap.MinNetRunID, snap.MinNetCoverage, a.cfg.MinNetCoverage,
			),
			Details: map[string]any{
				"run_id":       snap.MinNetRunID,
				"net_coverage": snap.MinNetCoverage,
				"threshold":    a.cfg.MinNetCoverage,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts each alert to the webhook and returns how many were
// delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
