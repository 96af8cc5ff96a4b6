// Package notify announces schedule changes as freedesktop desktop
// notifications over the D-Bus session bus.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	notifyInterface = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
)

const (
	// dedupeWindow is how long a notification key suppresses repeats.
	dedupeWindow = time.Minute

	scheduleIcon = "x-office-calendar"

	// Expire timeouts in milliseconds as defined by the Notify method.
	timeoutServerDefault int32 = -1
	timeoutNever         int32 = 0
)

// Notifier posts schedule notifications to the desktop.
type Notifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string

	mu       sync.Mutex
	notified map[string]time.Time // key -> last sent
}

// New connects to the session bus.
func New(appName string) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	return &Notifier{
		conn:     conn,
		obj:      conn.Object(notifyInterface, notifyPath),
		appName:  appName,
		notified: make(map[string]time.Time),
	}, nil
}

// Close closes the D-Bus connection.
func (n *Notifier) Close() error {
	return n.conn.Close()
}

// Notification is one schedule announcement.
type Notification struct {
	Summary string
	Body    string
	Urgency Urgency

	// Key de-duplicates notifications sent within dedupeWindow.
	Key string
}

// Urgency is the urgency hint of a notification.
type Urgency byte

const (
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// expireTimeout keeps critical notifications on screen until dismissed.
func (u Urgency) expireTimeout() int32 {
	if u == UrgencyCritical {
		return timeoutNever
	}
	return timeoutServerDefault
}

// Send posts the notification and returns the id assigned by the server.
// A notification whose key was sent within dedupeWindow is dropped and
// reported with id 0.
func (n *Notifier) Send(notif Notification) (uint32, error) {
	if notif.Key != "" && !n.track(notif.Key, time.Now()) {
		slog.Debug("suppressed duplicate notification", "summary", notif.Summary)
		return 0, nil
	}

	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(byte(notif.Urgency)),
		"category": dbus.MakeVariant("x-fahrplan.schedule-changed"),
	}

	call := n.obj.Call(notifyInterface+".Notify", 0,
		n.appName,
		uint32(0), // replaces_id
		scheduleIcon,
		notif.Summary,
		notif.Body,
		[]string{}, // actions
		hints,
		notif.Urgency.expireTimeout(),
	)
	if call.Err != nil {
		return 0, fmt.Errorf("send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("get notification id: %w", err)
	}

	slog.Debug("sent notification", "id", id, "summary", notif.Summary)
	return id, nil
}

// track records key as notified at now and reports whether it was not
// already notified within dedupeWindow. Entries older than the window are dropped.
func (n *Notifier) track(key string, now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for k, t := range n.notified {
		if now.Sub(t) >= dedupeWindow {
			delete(n.notified, k)
		}
	}
	if _, ok := n.notified[key]; ok {
		return false
	}
	n.notified[key] = now
	return true
}
