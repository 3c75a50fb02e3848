// Package dispatcher drives the panic-button workflow: explicit user
// confirmation, a single location sample, the backend submission, and the
// resulting contact links. Side effects are strictly ordered and each
// activation runs the sequence at most once.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"unidelas/safety-agent/internal/eventlog"
	"unidelas/safety-agent/internal/model"
)

// State is the dispatcher's position in the activation workflow.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateAcquiringLocation    State = "acquiring_location"
	StateSubmitting           State = "submitting"
	StateActive               State = "active"
)

var (
	// ErrPermissionDenied indicates the platform refused location access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrInvalidTransition indicates an operation was invoked from a state
	// that does not allow it.
	ErrInvalidTransition = errors.New("invalid dispatcher transition")
)

// LocationProvider samples the device position once. Implementations return
// ErrPermissionDenied when access is refused; no continuous stream is used.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (model.Coordinates, error)
}

// AlertSubmitter is the backend operation the dispatcher depends on.
type AlertSubmitter interface {
	CreateAlert(ctx context.Context, coords model.Coordinates) ([]model.WhatsAppLink, error)
}

// Config collects the dispatcher's collaborators.
type Config struct {
	Location        LocationProvider
	Backend         AlertSubmitter
	Events          *eventlog.Log
	Logger          *slog.Logger
	LocationTimeout time.Duration
	SubmitTimeout   time.Duration
}

// Dispatcher owns the activation state machine. All transitions happen
// under the mutex, so a second activation attempt while one is in flight is
// rejected by the state guard rather than running concurrently.
type Dispatcher struct {
	location        LocationProvider
	backend         AlertSubmitter
	events          *eventlog.Log
	logger          *slog.Logger
	locationTimeout time.Duration
	submitTimeout   time.Duration

	mu     sync.Mutex
	state  State
	coords *model.Coordinates
	links  []model.WhatsAppLink
}

// New constructs an idle dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = 5 * time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		location:        cfg.Location,
		backend:         cfg.Backend,
		events:          cfg.Events,
		logger:          cfg.Logger,
		locationTimeout: cfg.LocationTimeout,
		submitTimeout:   cfg.SubmitTimeout,
		state:           StateIdle,
	}
}

// State returns the current workflow state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Activate begins an activation. Only valid from Idle; calling it from any
// other state is a no-op and returns false. No side effect occurs until the
// user confirms.
func (d *Dispatcher) Activate() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateIdle {
		return false
	}
	d.state = StateAwaitingConfirmation
	return true
}

// Cancel abandons a pending confirmation and returns to Idle.
func (d *Dispatcher) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateAwaitingConfirmation {
		return false
	}
	d.state = StateIdle
	return true
}

// Confirm runs the confirmed activation: permission and location sample,
// then the backend submission, in that order. Any failure returns the
// dispatcher to Idle with its location state discarded; there is no
// automatic retry. On success the dispatcher is Active, the returned links
// are retained, and an optimistic emergency event for the sender is
// appended to the session log.
func (d *Dispatcher) Confirm(ctx context.Context, senderName string) ([]model.WhatsAppLink, error) {
	d.mu.Lock()
	if d.state != StateAwaitingConfirmation {
		state := d.state
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, state)
	}
	d.state = StateAcquiringLocation
	d.mu.Unlock()

	locCtx, cancel := context.WithTimeout(ctx, d.locationTimeout)
	coords, err := d.location.CurrentPosition(locCtx)
	cancel()
	if err != nil {
		d.reset()
		if errors.Is(err, ErrPermissionDenied) {
			d.logger.Warn("alert aborted, location permission denied")
			return nil, err
		}
		return nil, fmt.Errorf("sample location: %w", err)
	}
	if !coords.Valid() {
		d.reset()
		return nil, fmt.Errorf("location provider returned invalid coordinates (%f, %f)", coords.Latitude, coords.Longitude)
	}

	d.mu.Lock()
	d.state = StateSubmitting
	d.coords = &coords
	d.mu.Unlock()

	subCtx, cancel := context.WithTimeout(ctx, d.submitTimeout)
	links, err := d.backend.CreateAlert(subCtx, coords)
	cancel()
	if err != nil {
		d.reset()
		d.logger.Error("alert submission failed", "error", err)
		return nil, fmt.Errorf("submit alert: %w", err)
	}

	d.mu.Lock()
	d.state = StateActive
	d.links = links
	d.mu.Unlock()

	d.logger.Info("emergency alert active", "contacts", len(links),
		"latitude", coords.Latitude, "longitude", coords.Longitude)

	event := model.EmergencyEvent{
		ID:         uuid.NewString(),
		SenderName: senderName,
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
	}
	if d.events != nil {
		if err := d.events.Append(event); err != nil {
			d.logger.Warn("self-triggered event not recorded", "error", err)
		}
	}

	return links, nil
}

// Deactivate marks the user safe and returns to Idle, clearing coordinate
// and link state. This is a local-only marker: the backend and trusted
// contacts are not informed.
func (d *Dispatcher) Deactivate() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateActive {
		return false
	}
	d.state = StateIdle
	d.coords = nil
	d.links = nil
	return true
}

// Links returns the contact links from the current activation.
func (d *Dispatcher) Links() []model.WhatsAppLink {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.WhatsAppLink, len(d.links))
	copy(out, d.links)
	return out
}

// Position returns the sampled coordinates of the current activation.
func (d *Dispatcher) Position() (model.Coordinates, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.coords == nil {
		return model.Coordinates{}, false
	}
	return *d.coords, true
}

func (d *Dispatcher) reset() {
	d.mu.Lock()
	d.state = StateIdle
	d.coords = nil
	d.links = nil
	d.mu.Unlock()
}
