// Package app wires together the safety-agent services and manages their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"unidelas/safety-agent/internal/config"
	"unidelas/safety-agent/internal/dispatcher"
	"unidelas/safety-agent/internal/eventlog"
	"unidelas/safety-agent/internal/gateway"
	"unidelas/safety-agent/internal/identity"
	"unidelas/safety-agent/internal/listener"
	"unidelas/safety-agent/internal/location"
	"unidelas/safety-agent/internal/mapview"
	"unidelas/safety-agent/internal/model"
)

// App owns the identity store, the backend gateway, the alert dispatcher,
// the push listener, and the local control API.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *identity.Store
	backend *gateway.Client
	events  *eventlog.Log
	alerts  *dispatcher.Dispatcher
	nav     *mapNavigator

	mu   sync.Mutex
	push *listener.Listener
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run starts all configured services and blocks until the context is
// cancelled or an error occurs.
func (a *App) Run(ctx context.Context) error {
	store, err := identity.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	a.store = store

	if err := a.store.InitSchema(ctx); err != nil {
		return err
	}

	defer func() {
		if cerr := a.store.Close(); cerr != nil {
			a.logger.Error("close identity store", "error", cerr)
		}
	}()

	backend, err := gateway.New(a.cfg.APIBaseURL, a.cfg.RequestTimeout, a.logger)
	if err != nil {
		return err
	}
	a.backend = backend

	a.events = eventlog.New()
	a.nav = &mapNavigator{logger: a.logger}

	a.alerts = dispatcher.New(dispatcher.Config{
		Location: location.Static{
			Coords:  a.cfg.Location,
			Granted: a.cfg.LocationGranted,
		},
		Backend:         a.backend,
		Events:          a.events,
		Logger:          a.logger,
		LocationTimeout: a.cfg.LocationTimeout,
		SubmitTimeout:   a.cfg.SubmitTimeout,
	})

	// Resume the push subscription when an identity survived a restart.
	startCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	current, err := a.store.Current(startCtx)
	cancel()
	switch {
	case err == nil:
		if lerr := a.startListener(ctx, current.ID); lerr != nil {
			a.logger.Warn("push subscription unavailable", "error", lerr)
		}
	case errors.Is(err, identity.ErrNotAuthenticated):
		a.logger.Info("no stored identity, push subscription deferred until login")
	default:
		return err
	}

	httpErrCh := make(chan error, 1)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler: a.routes(),
	}

	go func() {
		a.logger.Info("control api started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- fmt.Errorf("control api: %w", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.stopListener()
				return fmt.Errorf("control api shutdown: %w", err)
			}
			a.logger.Info("control api stopped")

			a.stopListener()
			return nil
		case err := <-httpErrCh:
			if err != nil {
				a.stopListener()
				return err
			}
		}
	}
}

// startListener establishes the process-wide push subscription once.
// Repeated calls while a listener is running are no-ops.
func (a *App) startListener(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.push != nil {
		return nil
	}

	broker := a.cfg.BrokerAddress
	if broker == "" {
		discovered, err := discoverBroker(ctx, a.logger, a.cfg.DiscoveryTimeout)
		if err != nil {
			return err
		}
		broker = discovered
	}

	push := listener.New(listener.Config{
		BrokerAddress: broker,
		UserID:        userID,
		Events:        a.events,
		Navigator:     a.nav,
		Logger:        a.logger,
	})
	if err := push.Start(); err != nil {
		return err
	}

	a.push = push
	return nil
}

func (a *App) stopListener() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.push == nil {
		return
	}
	a.push.Close()
	a.push = nil
}

// mapNavigator records the most recent alert-map request so the control API
// can serve it. It is the agent's stand-in for screen navigation.
type mapNavigator struct {
	logger *slog.Logger

	mu      sync.Mutex
	current *mapview.Region
}

func (n *mapNavigator) ShowAlert(event model.EmergencyEvent) {
	region, err := mapview.NewRegion(event.Position(), "Alerta de "+event.SenderName)
	if err != nil {
		n.logger.Warn("alert map rejected", "error", err)
		return
	}

	n.mu.Lock()
	n.current = &region
	n.mu.Unlock()

	n.logger.Info("navigating to alert map",
		"sender", event.SenderName, "url", region.URL())
}

func (n *mapNavigator) Current() (mapview.Region, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return mapview.Region{}, false
	}
	return *n.current, true
}
