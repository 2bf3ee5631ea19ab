package model

import "github.com/twpayne/go-geom"

// RegionType distinguishes the boundary sets the tool can process.
type RegionType string

const (
	RegionConstituencies RegionType = "constituencies"
	RegionWards          RegionType = "wards"
)

// Valid reports whether t is a known region type.
func (t RegionType) Valid() bool {
	return t == RegionConstituencies || t == RegionWards
}

// Region is a named polygonal area in a projected, meter-scale CRS.
type Region struct {
	Name     string
	Geometry *geom.MultiPolygon
}

// RegionResult is the persisted outcome of processing one region.
type RegionResult struct {
	RunID      string   `json:"run_id,omitempty"`
	Name       string   `json:"name"`
	Inclusion  []Bubble `json:"inclusion"`
	Exclusion  []Bubble `json:"exclusion"`
	Coverage   Coverage `json:"coverage"`
	UpperBound int      `json:"upper_bound_m"`
	Fallback   bool     `json:"fallback"`
	AreaSqM    float64  `json:"area_sq_m"`
	Error      string   `json:"error,omitempty"`
}

// Failed reports whether the region could not be processed.
func (r *RegionResult) Failed() bool {
	return r.Error != ""
}
