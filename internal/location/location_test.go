package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidelas/safety-agent/internal/dispatcher"
	"unidelas/safety-agent/internal/model"
)

func TestStaticGranted(t *testing.T) {
	provider := Static{
		Coords:  model.Coordinates{Latitude: -23.5, Longitude: -46.6},
		Granted: true,
	}

	coords, err := provider.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -23.5, coords.Latitude)
}

func TestStaticDenied(t *testing.T) {
	provider := Static{Coords: model.Coordinates{Latitude: -23.5, Longitude: -46.6}}

	_, err := provider.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, dispatcher.ErrPermissionDenied)
}

func TestStaticInvalidCoordinatesBehaveAsDenied(t *testing.T) {
	provider := Static{
		Coords:  model.Coordinates{Latitude: 300, Longitude: 0},
		Granted: true,
	}

	_, err := provider.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, dispatcher.ErrPermissionDenied)
}

func TestStaticHonorsCancelledContext(t *testing.T) {
	provider := Static{
		Coords:  model.Coordinates{Latitude: -23.5, Longitude: -46.6},
		Granted: true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.CurrentPosition(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuncAdapter(t *testing.T) {
	provider := Func(func(ctx context.Context) (model.Coordinates, error) {
		return model.Coordinates{Latitude: 1, Longitude: 2}, nil
	})

	coords, err := provider.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, coords.Longitude)
}
