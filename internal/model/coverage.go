package model

// Metric names one of the four coverage percentages.
type Metric string

const (
	MetricInternalInclusion Metric = "internal_inclusion"
	MetricExternalInclusion Metric = "external_inclusion"
	MetricExclusion         Metric = "exclusion"
	MetricNet               Metric = "net"
)

// Metrics lists the coverage metrics in reporting order.
var Metrics = []Metric{
	MetricInternalInclusion,
	MetricExternalInclusion,
	MetricExclusion,
	MetricNet,
}

// Coverage holds area-based coverage percentages for one region. Every value
// is relative to the region's area.
type Coverage struct {
	InternalInclusion float64 `json:"internal_inclusion"`
	ExternalInclusion float64 `json:"external_inclusion"`
	Exclusion         float64 `json:"exclusion"`
	Net               float64 `json:"net"`
}

// Value returns the percentage for the named metric.
func (c Coverage) Value(m Metric) (float64, bool) {
	switch m {
	case MetricInternalInclusion:
		return c.InternalInclusion, true
	case MetricExternalInclusion:
		return c.ExternalInclusion, true
	case MetricExclusion:
		return c.Exclusion, true
	case MetricNet:
		return c.Net, true
	default:
		return 0, false
	}
}

// Summary aggregates one metric across many regions.
type Summary struct {
	Metric Metric  `json:"metric"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}
