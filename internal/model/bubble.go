package model

import "math"

// BubbleKind tags a bubble as coverage or avoid-zone.
type BubbleKind string

const (
	KindInclusion BubbleKind = "inclusion"
	KindExclusion BubbleKind = "exclusion"
)

// Bubble is a geofencing circle in projected meters.
type Bubble struct {
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	RadiusMeters float64    `json:"radius_m"`
	RadiusKM     int        `json:"radius_km"`
	Kind         BubbleKind `json:"kind"`
}

// NewBubble builds a bubble, deriving the whole-kilometre radius the ads
// platform accepts. Radii under one kilometre are reported as 1 km.
func NewBubble(x, y, radiusMeters float64, kind BubbleKind) Bubble {
	return Bubble{
		X:            x,
		Y:            y,
		RadiusMeters: radiusMeters,
		RadiusKM:     KilometresFloor(radiusMeters),
		Kind:         kind,
	}
}

// KilometresFloor rounds a radius in meters down to whole kilometres, never
// returning less than one.
func KilometresFloor(meters float64) int {
	km := int(math.Floor(meters / 1000))
	if km < 1 {
		return 1
	}
	return km
}

// CountByKind returns the number of bubbles of the given kind.
func CountByKind(bubbles []Bubble, kind BubbleKind) int {
	n := 0
	for _, b := range bubbles {
		if b.Kind == kind {
			n++
		}
	}
	return n
}
