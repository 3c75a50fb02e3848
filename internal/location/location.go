// Package location provides position sources for the alert dispatcher.
package location

import (
	"context"

	"unidelas/safety-agent/internal/dispatcher"
	"unidelas/safety-agent/internal/model"
)

// Static serves a fixed position supplied at startup, for deployments where
// the agent runs on hardware without its own GPS fix (the home or campus
// being monitored). When no position was granted it behaves like a refused
// platform permission.
type Static struct {
	Coords  model.Coordinates
	Granted bool
}

// CurrentPosition returns the configured position once per call.
func (s Static) CurrentPosition(ctx context.Context) (model.Coordinates, error) {
	select {
	case <-ctx.Done():
		return model.Coordinates{}, ctx.Err()
	default:
	}

	if !s.Granted || !s.Coords.Valid() {
		return model.Coordinates{}, dispatcher.ErrPermissionDenied
	}
	return s.Coords, nil
}

// Func adapts a sampling function to the dispatcher's provider interface.
type Func func(ctx context.Context) (model.Coordinates, error)

func (f Func) CurrentPosition(ctx context.Context) (model.Coordinates, error) {
	return f(ctx)
}
