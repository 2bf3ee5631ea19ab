package model

import "time"

// RunStatus represents the state of a generation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams records the engine settings a run was produced with.
type RunParams struct {
	BubbleLimit     int     `json:"bubble_limit"`
	ExclusionRadius float64 `json:"exclusion_radius_m"`
	ExclusionLimit  int     `json:"exclusion_limit"`
	Exclusions      bool    `json:"exclusions"`
	Padding         float64 `json:"padding_m"`
	Kernel          string  `json:"kernel"`
	Region          string  `json:"region,omitempty"`
}

// Run is one invocation of the generator over a region set.
type Run struct {
	ID          string     `json:"id"`
	RegionType  RegionType `json:"region_type"`
	Status      RunStatus  `json:"status"`
	Params      RunParams  `json:"params"`
	Summaries   []Summary  `json:"summaries,omitempty"`
	Regions     int        `json:"regions"`
	Failed      int        `json:"failed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
