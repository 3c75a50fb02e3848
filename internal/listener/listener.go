// Package listener owns the process-wide push subscription. Emergency
// notifications arrive over the platform's MQTT push channel on two topics:
// "received" while the app is in the background and "responded" when the
// user taps the notification.
package listener

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"unidelas/safety-agent/internal/eventlog"
	"unidelas/safety-agent/internal/model"
)

// ErrMalformedPayload indicates a push payload missing a coordinate or the
// sender name. Such payloads are dropped, never escalated.
var ErrMalformedPayload = errors.New("malformed push payload")

// Navigator receives the request to present an alert location on the map
// when the user responds to a notification.
type Navigator interface {
	ShowAlert(event model.EmergencyEvent)
}

// Config collects the listener's collaborators.
type Config struct {
	BrokerAddress string
	UserID        string
	Events        *eventlog.Log
	Navigator     Navigator
	Logger        *slog.Logger
	DedupTTL      time.Duration
}

// Listener subscribes once per process and publishes decoded emergency
// events into the shared session log.
type Listener struct {
	cfg     Config
	logger  *slog.Logger
	seen    *cache.Cache
	client  mqtt.Client
	started atomic.Bool
}

// New constructs a listener; Start establishes the subscription.
func New(cfg Config) *Listener {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 2 * time.Minute
	}

	return &Listener{
		cfg:    cfg,
		logger: cfg.Logger,
		seen:   cache.New(cfg.DedupTTL, 2*cfg.DedupTTL),
	}
}

func (l *Listener) topicReceived() string {
	return fmt.Sprintf("push/%s/received", l.cfg.UserID)
}

func (l *Listener) topicResponded() string {
	return fmt.Sprintf("push/%s/responded", l.cfg.UserID)
}

// Start connects to the push broker and subscribes to both notification
// topics. The subscription is established at most once per process;
// repeated calls are no-ops.
func (l *Listener) Start() error {
	if !l.started.CompareAndSwap(false, true) {
		return nil
	}

	clientID := fmt.Sprintf("unidelas-agent-%s-%d", l.cfg.UserID, time.Now().UnixNano())
	opts := mqtt.NewClientOptions().
		AddBroker(l.cfg.BrokerAddress).
		SetClientID(clientID).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			l.logger.Warn("push channel connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		l.started.Store(false)
		return fmt.Errorf("connect push broker: %w", token.Error())
	}
	l.client = client

	subscriptions := map[string]mqtt.MessageHandler{
		l.topicReceived():  l.safeHandle(l.handleReceived),
		l.topicResponded(): l.safeHandle(l.handleResponded),
	}

	for topic, handler := range subscriptions {
		if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			client.Disconnect(250)
			l.started.Store(false)
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}

	l.logger.Info("push subscription established",
		"broker", l.cfg.BrokerAddress, "user", l.cfg.UserID)
	return nil
}

// Close tears down the subscription. Safe to call on a listener that never
// started.
func (l *Listener) Close() {
	if l.client == nil {
		return
	}
	l.client.Disconnect(250)
	l.logger.Info("push subscription closed")
}

// safeHandle keeps a panicking handler from deregistering the subscription.
func (l *Listener) safeHandle(fn func(payload []byte)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("push handler panic", "topic", msg.Topic(), "panic", r)
			}
		}()
		fn(msg.Payload())
	}
}

// handleReceived publishes the event to the session log. No navigation
// happens here; the app may be in the background.
func (l *Listener) handleReceived(payload []byte) {
	event, stable, err := decodeEvent(payload)
	if err != nil {
		l.logger.Warn("push payload dropped", "error", err)
		return
	}
	l.publish(event, stable)
}

// handleResponded publishes the event so it also lands in the history, then
// requests navigation to the map with the event's coordinates.
func (l *Listener) handleResponded(payload []byte) {
	event, stable, err := decodeEvent(payload)
	if err != nil {
		l.logger.Warn("push payload dropped", "error", err)
		return
	}

	l.publish(event, stable)

	if l.cfg.Navigator != nil {
		l.cfg.Navigator.ShowAlert(event)
	}
}

// publish appends the event unless the same backend alert id was already
// recorded within the de-duplication window. Events without a backend id
// cannot be de-duplicated; those duplicates are an accepted limitation.
func (l *Listener) publish(event model.EmergencyEvent, stableID bool) {
	if stableID {
		if err := l.seen.Add(event.ID, struct{}{}, cache.DefaultExpiration); err != nil {
			l.logger.Debug("duplicate alert suppressed", "id", event.ID)
			return
		}
	}

	if err := l.cfg.Events.Append(event); err != nil {
		l.logger.Warn("emergency event rejected", "error", err)
		return
	}

	l.logger.Info("emergency event recorded",
		"id", event.ID, "sender", event.SenderName,
		"latitude", event.Latitude, "longitude", event.Longitude)
}

// flexFloat accepts JSON numbers as well as numeric strings; push payload
// fields arrive as opaque values.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("parse coordinate %q: %w", text, err)
	}
	*f = flexFloat(v)
	return nil
}

type pushPayload struct {
	ID        string     `json:"id"`
	Name      string     `json:"nome"`
	Latitude  *flexFloat `json:"latitude"`
	Longitude *flexFloat `json:"longitude"`
}

// decodeEvent validates the payload and builds the emergency event. The
// second return reports whether the backend supplied a stable alert id; a
// generated id cannot serve de-duplication.
func decodeEvent(payload []byte) (model.EmergencyEvent, bool, error) {
	var raw pushPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return model.EmergencyEvent{}, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if strings.TrimSpace(raw.Name) == "" {
		return model.EmergencyEvent{}, false, fmt.Errorf("%w: missing sender name", ErrMalformedPayload)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return model.EmergencyEvent{}, false, fmt.Errorf("%w: missing coordinates", ErrMalformedPayload)
	}

	event := model.EmergencyEvent{
		ID:         strings.TrimSpace(raw.ID),
		SenderName: strings.TrimSpace(raw.Name),
		Latitude:   float64(*raw.Latitude),
		Longitude:  float64(*raw.Longitude),
	}

	stable := event.ID != ""
	if !stable {
		event.ID = uuid.NewString()
	}

	if !event.Complete() {
		return model.EmergencyEvent{}, false, fmt.Errorf("%w: coordinates out of range", ErrMalformedPayload)
	}

	return event, stable, nil
}
