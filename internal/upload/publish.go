package upload

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bubble-cli/pkg/meta"
)

// Options shapes the campaign and ad sets.
type Options struct {
	Prefix      string
	DailyBudget int
	BidAmount   int
}

// Outcome is the result of publishing one group.
type Outcome struct {
	Name    string
	AdSetID string
	Err     error
}

// Report lists what Publish created.
type Report struct {
	CampaignID string
	Outcomes   []Outcome
}

// Created counts ad sets that were created.
func (r *Report) Created() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil && o.AdSetID != "" {
			n++
		}
	}
	return n
}

// Publish creates one paused awareness campaign and a paused ad set per
// group. A failed ad set is logged and skipped; only a failed campaign is an
// error.
func Publish(ctx context.Context, client meta.Client, groups []Group, opts Options) (*Report, error) {
	campaignName := opts.Prefix + "Geofence Campaign"
	campaignID, err := client.CreateCampaign(ctx, meta.CampaignParams{
		Name:                campaignName,
		Objective:           "OUTCOME_AWARENESS",
		Status:              "PAUSED",
		SpecialAdCategories: []string{"ISSUES_ELECTIONS_POLITICS"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "upload: create campaign")
	}
	log := zap.L().With(zap.String("campaign_id", campaignID))
	log.Info("upload: campaign created", zap.String("name", campaignName))

	report := &Report{CampaignID: campaignID}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if len(g.Include) == 0 {
			log.Warn("upload: skipping region with no locations", zap.String("region", g.Name))
			continue
		}

		targeting := meta.Targeting{GeoLocations: meta.GeoLocations{
			LocationTypes:   []string{"home", "recent"},
			CustomLocations: g.Include,
		}}
		if len(g.Exclude) > 0 {
			targeting.ExcludedGeoLocations = &meta.GeoLocations{CustomLocations: g.Exclude}
		}

		name := opts.Prefix + g.Name + " Geofence"
		id, err := client.CreateAdSet(ctx, meta.AdSetParams{
			Name:             name,
			CampaignID:       campaignID,
			DailyBudget:      opts.DailyBudget,
			BidAmount:        opts.BidAmount,
			BillingEvent:     "IMPRESSIONS",
			OptimizationGoal: "REACH",
			Status:           "PAUSED",
			Targeting:        targeting,
		})
		report.Outcomes = append(report.Outcomes, Outcome{Name: g.Name, AdSetID: id, Err: err})
		if err != nil {
			log.Error("upload: ad set failed",
				zap.String("region", g.Name),
				zap.Int("locations", len(g.Include)),
				zap.Error(err),
			)
			continue
		}
		log.Info("upload: ad set created",
			zap.String("region", g.Name),
			zap.String("ad_set_id", id),
			zap.Int("locations", len(g.Include)),
			zap.Int("excluded", len(g.Exclude)),
		)
	}
	return report, nil
}
