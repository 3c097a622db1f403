// Package dispatch routes realtime publications to the platform bridge and
// keeps the client-side unread state the badge reflects.
package dispatch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
)

// recentLimit bounds the in-memory delivery history the UIs render.
const recentLimit = 50

// Notification is one delivered realtime event. Raw keeps the publication
// payload untouched for the detail views.
type Notification struct {
	ID       string
	Title    string
	Body     string
	Event    string
	Token    string
	Raw      json.RawMessage
	Received time.Time
}

type Hooks struct {
	OnUnread       func(count int)
	OnNotification func(n Notification)
}

type Dispatcher struct {
	bridge notify.Bridge
	hooks  Hooks
	logger *logging.Logger

	mu     sync.Mutex
	unread int
	recent []Notification
}

func New(bridge notify.Bridge, hooks Hooks, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		panic("dispatch.New: logger must not be nil")
	}
	if bridge == nil {
		panic("dispatch.New: bridge must not be nil")
	}
	return &Dispatcher{bridge: bridge, hooks: hooks, logger: logger}
}

type publicationEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type notificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Token string `json:"token"`
}

// HandlePublication consumes one realtime publication. Only notification
// events reach the bridge; bridge failures are logged and swallowed so
// delivery trouble never feeds back into the connection.
func (d *Dispatcher) HandlePublication(channel string, raw json.RawMessage) {
	var envelope publicationEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		d.logger.Debug("discarding malformed publication",
			logging.Field("channel", channel),
			logging.Field("error", err),
		)
		return
	}
	if envelope.Event != "notification" {
		d.logger.Debug("ignoring publication",
			logging.Field("channel", channel),
			logging.Field("event", envelope.Event),
		)
		return
	}

	var payload notificationPayload
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			d.logger.Debug("notification payload not fully decoded",
				logging.Field("channel", channel),
				logging.Field("error", err),
			)
		}
	}

	n := Notification{
		ID:       ulid.Make().String(),
		Title:    payload.Title,
		Body:     payload.Body,
		Event:    envelope.Event,
		Token:    payload.Token,
		Raw:      append(json.RawMessage(nil), raw...),
		Received: time.Now(),
	}

	d.mu.Lock()
	d.unread++
	count := d.unread
	d.recent = append([]Notification{n}, d.recent...)
	if len(d.recent) > recentLimit {
		d.recent = d.recent[:recentLimit]
	}
	d.mu.Unlock()

	d.logger.Info("notification received",
		logging.Field("title", n.Title),
		logging.Field("unread", count),
	)

	// The badge update runs regardless of the toast's fate.
	if err := d.bridge.Notify(n.Title, n.Body); err != nil {
		d.logger.Warn("bridge notify failed", logging.Field("error", err))
	}
	d.pushBadge(count)

	if d.hooks.OnNotification != nil {
		d.hooks.OnNotification(n)
	}
	if d.hooks.OnUnread != nil {
		d.hooks.OnUnread(count)
	}
}

// Deliver raises a notification that is already accounted for on the
// backend, so the unread counter is left alone. The feed poller uses this;
// its unread truth arrives via SetUnread in the same sweep.
func (d *Dispatcher) Deliver(n Notification) {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.Received.IsZero() {
		n.Received = time.Now()
	}

	d.mu.Lock()
	d.recent = append([]Notification{n}, d.recent...)
	if len(d.recent) > recentLimit {
		d.recent = d.recent[:recentLimit]
	}
	d.mu.Unlock()

	if err := d.bridge.Notify(n.Title, n.Body); err != nil {
		d.logger.Warn("bridge notify failed", logging.Field("error", err))
	}
	if d.hooks.OnNotification != nil {
		d.hooks.OnNotification(n)
	}
}

// Seed replaces the delivery history, newest first, without touching the
// badge or raising toasts. Used once at startup to show existing feed items.
func (d *Dispatcher) Seed(ns []Notification) {
	trimmed := append([]Notification(nil), ns...)
	if len(trimmed) > recentLimit {
		trimmed = trimmed[:recentLimit]
	}
	for i := range trimmed {
		if trimmed[i].ID == "" {
			trimmed[i].ID = ulid.Make().String()
		}
	}

	d.mu.Lock()
	d.recent = trimmed
	d.mu.Unlock()
}

func (d *Dispatcher) Unread() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unread
}

// SetUnread re-anchors the counter to the backend's authoritative value.
func (d *Dispatcher) SetUnread(count int) {
	if count < 0 {
		count = 0
	}
	d.mu.Lock()
	changed := d.unread != count
	d.unread = count
	d.mu.Unlock()

	if changed {
		d.logger.Debug("unread count re-anchored", logging.Field("unread", count))
	}
	d.pushBadge(count)
	if d.hooks.OnUnread != nil {
		d.hooks.OnUnread(count)
	}
}

func (d *Dispatcher) Reset() {
	d.SetUnread(0)
}

// Recent returns the delivery history, newest first.
func (d *Dispatcher) Recent() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notification(nil), d.recent...)
}

func (d *Dispatcher) pushBadge(count int) {
	if err := d.bridge.SetBadge(count); err != nil {
		d.logger.Warn("bridge badge update failed", logging.Field("error", err))
	}
}
