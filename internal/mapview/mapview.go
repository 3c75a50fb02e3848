// Package mapview renders one alert location as a street-level map region.
package mapview

import (
	"fmt"

	"unidelas/safety-agent/internal/model"
)

// DefaultSpan is the viewport half-extent in degrees, sized for
// street-level confirmation of an alert location.
const DefaultSpan = 0.005

// Region is a viewport centered on a single marker. It is a pure function
// of its inputs and carries no other state.
type Region struct {
	Center model.Coordinates `json:"center"`
	Span   float64           `json:"span"`
	Label  string            `json:"label"`
}

// NewRegion builds a region around the coordinate with the default span.
func NewRegion(center model.Coordinates, label string) (Region, error) {
	if !center.Valid() {
		return Region{}, fmt.Errorf("invalid map center (%f, %f)", center.Latitude, center.Longitude)
	}
	if label == "" {
		label = "Local do alerta"
	}
	return Region{Center: center, Span: DefaultSpan, Label: label}, nil
}

// Bounds returns the south-west and north-east corners of the viewport,
// clamped to WGS84 limits.
func (r Region) Bounds() (model.Coordinates, model.Coordinates) {
	sw := model.Coordinates{
		Latitude:  clamp(r.Center.Latitude-r.Span, -90, 90),
		Longitude: clamp(r.Center.Longitude-r.Span, -180, 180),
	}
	ne := model.Coordinates{
		Latitude:  clamp(r.Center.Latitude+r.Span, -90, 90),
		Longitude: clamp(r.Center.Longitude+r.Span, -180, 180),
	}
	return sw, ne
}

// URL returns an OpenStreetMap link with the marker pinned at the center.
func (r Region) URL() string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=17/%.6f/%.6f",
		r.Center.Latitude, r.Center.Longitude, r.Center.Latitude, r.Center.Longitude)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
