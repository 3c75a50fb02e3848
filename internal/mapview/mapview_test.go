package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidelas/safety-agent/internal/model"
)

func TestNewRegion(t *testing.T) {
	region, err := NewRegion(model.Coordinates{Latitude: -23.5505, Longitude: -46.6333}, "Alerta de Ana")
	require.NoError(t, err)

	assert.Equal(t, -23.5505, region.Center.Latitude)
	assert.Equal(t, DefaultSpan, region.Span)
	assert.Equal(t, "Alerta de Ana", region.Label)
}

func TestNewRegionDefaultsLabel(t *testing.T) {
	region, err := NewRegion(model.Coordinates{Latitude: 0, Longitude: 0}, "")
	require.NoError(t, err)
	assert.Equal(t, "Local do alerta", region.Label)
}

func TestNewRegionRejectsInvalidCenter(t *testing.T) {
	_, err := NewRegion(model.Coordinates{Latitude: 120, Longitude: 10}, "x")
	assert.Error(t, err)
}

func TestBounds(t *testing.T) {
	region, err := NewRegion(model.Coordinates{Latitude: -23.5, Longitude: -46.6}, "")
	require.NoError(t, err)

	sw, ne := region.Bounds()
	assert.InDelta(t, -23.505, sw.Latitude, 1e-9)
	assert.InDelta(t, -46.605, sw.Longitude, 1e-9)
	assert.InDelta(t, -23.495, ne.Latitude, 1e-9)
	assert.InDelta(t, -46.595, ne.Longitude, 1e-9)
}

func TestBoundsClampedAtPole(t *testing.T) {
	region, err := NewRegion(model.Coordinates{Latitude: 89.999, Longitude: 0}, "")
	require.NoError(t, err)

	_, ne := region.Bounds()
	assert.Equal(t, 90.0, ne.Latitude)
}

func TestURL(t *testing.T) {
	region, err := NewRegion(model.Coordinates{Latitude: -23.5505, Longitude: -46.6333}, "")
	require.NoError(t, err)

	assert.Contains(t, region.URL(), "mlat=-23.550500")
	assert.Contains(t, region.URL(), "mlon=-46.633300")
}
