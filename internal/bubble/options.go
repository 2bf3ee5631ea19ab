package bubble

import "github.com/rotisserie/eris"

// Options tunes the engine. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// Limit caps the number of inclusion bubbles per region.
	Limit int `mapstructure:"limit" yaml:"limit"`
	// Exclusions turns on the perimeter ring of exclusion bubbles.
	Exclusions bool `mapstructure:"exclusions" yaml:"exclusions"`
	// ExclusionRadius is the radius, in meters, of every exclusion bubble.
	ExclusionRadius float64 `mapstructure:"exclusion_radius" yaml:"exclusion_radius"`
	// ExclusionLimit caps the exclusion ring; 0 leaves it uncapped.
	ExclusionLimit int `mapstructure:"exclusion_limit" yaml:"exclusion_limit"`
	// Padding grows the region before inclusion placement.
	Padding float64 `mapstructure:"padding" yaml:"padding"`
	// SafetyMargin is added to the erosion distance of every tier.
	SafetyMargin float64 `mapstructure:"safety_margin" yaml:"safety_margin"`
	// QuadrantSegments sets circle resolution (segments per quarter circle).
	QuadrantSegments int `mapstructure:"quadrant_segments" yaml:"quadrant_segments"`
	// Fallback emits the minimum enclosing circle when nothing fits.
	Fallback bool `mapstructure:"fallback" yaml:"fallback"`
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Limit:            200,
		ExclusionRadius:  1000,
		ExclusionLimit:   400,
		SafetyMargin:     30,
		QuadrantSegments: 16,
		Fallback:         true,
	}
}

// Validate checks the options for values the engine cannot work with.
func (o Options) Validate() error {
	switch {
	case o.Limit <= 0:
		return eris.Errorf("bubble: limit must be positive, got %d", o.Limit)
	case o.Exclusions && o.ExclusionRadius <= 0:
		return eris.Errorf("bubble: exclusion radius must be positive, got %v", o.ExclusionRadius)
	case o.ExclusionLimit < 0:
		return eris.Errorf("bubble: exclusion limit must not be negative, got %d", o.ExclusionLimit)
	case o.Padding < 0:
		return eris.Errorf("bubble: padding must not be negative, got %v", o.Padding)
	case o.SafetyMargin < 0:
		return eris.Errorf("bubble: safety margin must not be negative, got %v", o.SafetyMargin)
	case o.QuadrantSegments < 1:
		return eris.Errorf("bubble: quadrant segments must be at least 1, got %d", o.QuadrantSegments)
	}
	return nil
}
