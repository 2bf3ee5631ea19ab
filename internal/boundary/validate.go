package boundary

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/bubble-cli/internal/geometry"
	"github.com/sells-group/bubble-cli/internal/model"
)

var (
	// ErrDegenerateRegion marks a region with no usable area.
	ErrDegenerateRegion = eris.New("boundary: degenerate region")
	// ErrRegionNotFound is returned by Filter when no region has the name.
	ErrRegionNotFound = eris.New("boundary: region not found")
)

// Validate prepares a region for the engine. Kernels that can repair geometry
// do so first; anything left empty or without area is rejected.
func Validate(k geometry.Kernel, r model.Region) (model.Region, error) {
	g := r.Geometry
	if geometry.Empty(g) {
		return r, eris.Wrapf(ErrDegenerateRegion, "boundary: %q is empty", r.Name)
	}
	if rep, ok := k.(geometry.Repairer); ok {
		fixed, err := rep.MakeValid(g)
		if err != nil {
			return r, eris.Wrapf(err, "boundary: repair %q", r.Name)
		}
		g = fixed
	}
	if geometry.Empty(g) || geometry.Area(g) <= 0 {
		return r, eris.Wrapf(ErrDegenerateRegion, "boundary: %q has no area", r.Name)
	}
	return model.Region{Name: r.Name, Geometry: g}, nil
}

// Filter returns the regions named name. An empty name returns all regions.
func Filter(regions []model.Region, name string) ([]model.Region, error) {
	if name == "" {
		return regions, nil
	}
	var out []model.Region
	for _, r := range regions {
		if r.Name == name {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrRegionNotFound, "boundary: %q among %d regions", name, len(regions))
	}
	return out, nil
}

// Names lists region names in order, for error messages and listings.
func Names(regions []model.Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.Name
	}
	return out
}
