// Package notify sends desktop notifications about arbitration actions.
package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface = "org.freedesktop.Notifications"
)

// Notifier sends a transient desktop notification.
type Notifier interface {
	Notify(summary, body string) error
}

// dbusNotifier sends notifications via the org.freedesktop.Notifications
// service.
type dbusNotifier struct {
	obj     dbus.BusObject
	timeout int32
}

// New creates a Notifier on the given session bus connection.
func New(conn *dbus.Conn) Notifier {
	return &dbusNotifier{
		obj:     conn.Object(notifyDest, notifyPath),
		timeout: 3000,
	}
}

// Notify sends a notification.
func (n *dbusNotifier) Notify(summary, body string) error {
	hints := map[string]dbus.Variant{
		"transient":     dbus.MakeVariant(true),
		"desktop-entry": dbus.MakeVariant("onair"),
	}

	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := n.obj.Call(
		notifyIface+".Notify",
		0,
		"onair",
		uint32(0),
		"audio-volume-muted",
		summary,
		body,
		[]string{},
		hints,
		n.timeout,
	)
	return call.Err
}

// Stub returns a no-op Notifier, used when notifications are disabled.
func Stub() Notifier {
	return &stubNotifier{}
}

type stubNotifier struct{}

func (s *stubNotifier) Notify(_, _ string) error {
	return nil
}
