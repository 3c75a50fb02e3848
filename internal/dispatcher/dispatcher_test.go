package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidelas/safety-agent/internal/eventlog"
	"unidelas/safety-agent/internal/model"
)

type stubLocation struct {
	coords model.Coordinates
	err    error
	calls  int
}

func (s *stubLocation) CurrentPosition(ctx context.Context) (model.Coordinates, error) {
	s.calls++
	return s.coords, s.err
}

type stubBackend struct {
	links []model.WhatsAppLink
	err   error
	calls int
	got   model.Coordinates
}

func (s *stubBackend) CreateAlert(ctx context.Context, coords model.Coordinates) ([]model.WhatsAppLink, error) {
	s.calls++
	s.got = coords
	if s.err != nil {
		return nil, s.err
	}
	return s.links, nil
}

func newTestDispatcher(loc *stubLocation, backend *stubBackend, events *eventlog.Log) *Dispatcher {
	return New(Config{
		Location: loc,
		Backend:  backend,
		Events:   events,
	})
}

func TestActivateOnlyFromIdle(t *testing.T) {
	d := newTestDispatcher(&stubLocation{}, &stubBackend{}, eventlog.New())

	assert.True(t, d.Activate())
	assert.Equal(t, StateAwaitingConfirmation, d.State())

	// A stray second tap must not restart the workflow.
	assert.False(t, d.Activate())
	assert.Equal(t, StateAwaitingConfirmation, d.State())
}

func TestConfirmWithoutActivationFails(t *testing.T) {
	d := newTestDispatcher(&stubLocation{}, &stubBackend{}, eventlog.New())

	_, err := d.Confirm(context.Background(), "maria@unidelas.app")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, d.State())
}

func TestCancelAbandonsConfirmation(t *testing.T) {
	loc := &stubLocation{}
	backend := &stubBackend{}
	d := newTestDispatcher(loc, backend, eventlog.New())

	require.True(t, d.Activate())
	assert.True(t, d.Cancel())
	assert.Equal(t, StateIdle, d.State())
	assert.Zero(t, loc.calls)
	assert.Zero(t, backend.calls)
}

func TestSuccessfulActivation(t *testing.T) {
	loc := &stubLocation{coords: model.Coordinates{Latitude: -23.5, Longitude: -46.6}}
	backend := &stubBackend{links: []model.WhatsAppLink{{Name: "Maria", Link: "https://wa.me/5511999999999"}}}
	events := eventlog.New()
	d := newTestDispatcher(loc, backend, events)

	require.True(t, d.Activate())
	links, err := d.Confirm(context.Background(), "ana@unidelas.app")
	require.NoError(t, err)

	assert.Equal(t, StateActive, d.State())
	require.Len(t, links, 1)
	assert.Equal(t, "Maria", links[0].Name)
	assert.Equal(t, model.Coordinates{Latitude: -23.5, Longitude: -46.6}, backend.got)

	coords, ok := d.Position()
	require.True(t, ok)
	assert.Equal(t, -23.5, coords.Latitude)

	// The self-triggered alert lands in the session log.
	recorded := events.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, "ana@unidelas.app", recorded[0].SenderName)
	assert.NotEmpty(t, recorded[0].ID)
}

func TestPermissionDeniedSkipsSubmission(t *testing.T) {
	loc := &stubLocation{err: ErrPermissionDenied}
	backend := &stubBackend{}
	events := eventlog.New()
	d := newTestDispatcher(loc, backend, events)

	require.True(t, d.Activate())
	_, err := d.Confirm(context.Background(), "ana@unidelas.app")

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, StateIdle, d.State())
	assert.Zero(t, backend.calls, "no network call may happen without a location")
	assert.Empty(t, d.Links())
	assert.Zero(t, events.Len())

	_, ok := d.Position()
	assert.False(t, ok)
}

func TestBackendFailureReturnsToIdle(t *testing.T) {
	loc := &stubLocation{coords: model.Coordinates{Latitude: -23.5, Longitude: -46.6}}
	backend := &stubBackend{err: errors.New("backend returned status 500")}
	events := eventlog.New()
	d := newTestDispatcher(loc, backend, events)

	require.True(t, d.Activate())
	_, err := d.Confirm(context.Background(), "ana@unidelas.app")

	assert.Error(t, err)
	assert.Equal(t, StateIdle, d.State())
	assert.Empty(t, d.Links())
	assert.Zero(t, events.Len(), "failed submissions must not pollute the log")

	_, ok := d.Position()
	assert.False(t, ok, "location state is discarded on failure")

	// The user can retry after a failure.
	assert.True(t, d.Activate())
}

func TestInvalidProviderCoordinatesAbort(t *testing.T) {
	loc := &stubLocation{coords: model.Coordinates{Latitude: 200, Longitude: 0}}
	backend := &stubBackend{}
	d := newTestDispatcher(loc, backend, eventlog.New())

	require.True(t, d.Activate())
	_, err := d.Confirm(context.Background(), "ana@unidelas.app")

	assert.Error(t, err)
	assert.Equal(t, StateIdle, d.State())
	assert.Zero(t, backend.calls)
}

func TestDeactivateOnlyFromActive(t *testing.T) {
	loc := &stubLocation{coords: model.Coordinates{Latitude: -23.5, Longitude: -46.6}}
	backend := &stubBackend{links: []model.WhatsAppLink{{Name: "Maria", Link: "https://wa.me/1"}}}
	d := newTestDispatcher(loc, backend, eventlog.New())

	assert.False(t, d.Deactivate())

	require.True(t, d.Activate())
	_, err := d.Confirm(context.Background(), "ana@unidelas.app")
	require.NoError(t, err)
	require.Equal(t, StateActive, d.State())

	// Active blocks a new activation until the user marks herself safe.
	assert.False(t, d.Activate())

	assert.True(t, d.Deactivate())
	assert.Equal(t, StateIdle, d.State())
	assert.Empty(t, d.Links())

	_, ok := d.Position()
	assert.False(t, ok)
}
