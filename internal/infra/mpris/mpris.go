// Package mpris watches and controls MPRIS media players on the D-Bus
// session bus.
package mpris

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/onair/internal/app/arbiter"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerIface      = "org.mpris.MediaPlayer2.Player"
	dbusIface        = "org.freedesktop.DBus"
	propsIface       = "org.freedesktop.DBus.Properties"
	nameOwnerChanged = dbusIface + ".NameOwnerChanged"
	propsChanged     = propsIface + ".PropertiesChanged"
)

// Handler receives endpoint lifecycle and status notifications.
type Handler interface {
	HandleStatus(id string, status arbiter.Status)
	HandleDisappeared(id string)
}

// Options holds monitor configuration.
type Options struct {
	IgnoredPrefixes []string      // Well-known name prefixes to skip entirely
	PropertyTimeout time.Duration // Upper bound on a PlaybackStatus fetch
}

// Monitor subscribes to player lifecycle and status signals on the session
// bus and forwards them to a Handler. It also implements the arbiter's
// Commander interface: Pause and Play call the corresponding MPRIS player
// methods on the named destination.
//
// Endpoints are identified by their well-known MPRIS bus name, which the
// MPRIS spec guarantees is distinct per running instance. PropertiesChanged
// signals arrive from the owner's unique connection name, so the monitor
// keeps an owner-to-name mapping, seeded during enumeration and maintained
// from NameOwnerChanged.
type Monitor struct {
	conn *dbus.Conn
	opts Options

	mu         sync.Mutex
	owners     map[string]string // unique name -> well-known MPRIS name
	subscribed bool

	signals chan *dbus.Signal
}

// New creates a monitor on the given session bus connection.
func New(conn *dbus.Conn, opts Options) *Monitor {
	if opts.PropertyTimeout <= 0 {
		opts.PropertyTimeout = 2 * time.Second
	}
	return &Monitor{
		conn:    conn,
		opts:    opts,
		owners:  make(map[string]string),
		signals: make(chan *dbus.Signal, 32),
	}
}

// Snapshot enumerates currently existing players and their statuses.
// Used once, for startup reconciliation; it also seeds the owner mapping.
func (m *Monitor) Snapshot(ctx context.Context) ([]arbiter.EndpointState, error) {
	var names []string
	if err := m.conn.BusObject().CallWithContext(ctx, dbusIface+".ListNames", 0).Store(&names); err != nil {
		return nil, errors.Wrap(err, "failed to list bus names")
	}

	var states []arbiter.EndpointState
	for _, name := range names {
		if !m.isPlayerName(name) {
			continue
		}

		var owner string
		if err := m.conn.BusObject().CallWithContext(ctx, dbusIface+".GetNameOwner", 0, name).Store(&owner); err == nil {
			m.mu.Lock()
			m.owners[owner] = name
			m.mu.Unlock()
		}

		status, err := m.fetchStatus(ctx, name)
		if err != nil {
			zlog.Warn().Msgf("mpris: failed to fetch status: name=%s err=%v", name, err)
			continue
		}
		states = append(states, arbiter.EndpointState{ID: name, Status: status})
	}
	return states, nil
}

// Subscribe installs the bus match rules and starts queuing signals on the
// monitor's channel. Calling it before Snapshot closes the window where a
// status change between enumeration and the Run loop would be lost: such
// signals queue up and Run drains them. Idempotent; Run subscribes itself
// when this was not called.
func (m *Monitor) Subscribe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribed {
		return nil
	}

	if err := m.conn.AddMatchSignal(
		dbus.WithMatchSender(dbusIface),
		dbus.WithMatchInterface(dbusIface),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return errors.Wrap(err, "failed to match NameOwnerChanged")
	}
	if err := m.conn.AddMatchSignal(
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(mprisPath),
	); err != nil {
		return errors.Wrap(err, "failed to match PropertiesChanged")
	}

	m.conn.Signal(m.signals)
	m.subscribed = true
	return nil
}

// Run subscribes to bus signals and dispatches them to the handler until the
// context is cancelled.
func (m *Monitor) Run(ctx context.Context, handler Handler) error {
	if err := m.Subscribe(); err != nil {
		return err
	}
	defer m.conn.RemoveSignal(m.signals)

	zlog.Info().Msg("mpris: monitoring session bus")

	return m.drain(ctx, handler)
}

// drain processes queued and incoming signals until the context is
// cancelled.
func (m *Monitor) drain(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-m.signals:
			if !ok {
				return errors.New("signal channel closed")
			}
			m.dispatch(ctx, handler, sig)
		}
	}
}

// Pause calls org.mpris.MediaPlayer2.Player.Pause on the named player.
func (m *Monitor) Pause(ctx context.Context, id string) error {
	return m.conn.Object(id, mprisPath).CallWithContext(ctx, playerIface+".Pause", 0).Err
}

// Play calls org.mpris.MediaPlayer2.Player.Play on the named player.
func (m *Monitor) Play(ctx context.Context, id string) error {
	return m.conn.Object(id, mprisPath).CallWithContext(ctx, playerIface+".Play", 0).Err
}

func (m *Monitor) dispatch(ctx context.Context, handler Handler, sig *dbus.Signal) {
	switch sig.Name {
	case nameOwnerChanged:
		m.onNameOwnerChanged(ctx, handler, sig)
	case propsChanged:
		m.onPropertiesChanged(handler, sig)
	}
}

// onNameOwnerChanged tracks MPRIS names appearing and disappearing.
// Body: name, old owner, new owner. An empty new owner means the name left
// the bus.
func (m *Monitor) onNameOwnerChanged(ctx context.Context, handler Handler, sig *dbus.Signal) {
	if len(sig.Body) != 3 {
		return
	}
	name, ok1 := sig.Body[0].(string)
	oldOwner, ok2 := sig.Body[1].(string)
	newOwner, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 || !m.isPlayerName(name) {
		return
	}

	if newOwner == "" {
		m.mu.Lock()
		delete(m.owners, oldOwner)
		m.mu.Unlock()
		zlog.Debug().Msgf("mpris: player left: name=%s", name)
		handler.HandleDisappeared(name)
		return
	}

	m.mu.Lock()
	delete(m.owners, oldOwner)
	m.owners[newOwner] = name
	m.mu.Unlock()
	zlog.Debug().Msgf("mpris: player appeared: name=%s owner=%s", name, newOwner)

	fetchCtx, cancel := context.WithTimeout(ctx, m.opts.PropertyTimeout)
	defer cancel()
	status, err := m.fetchStatus(fetchCtx, name)
	if err != nil {
		// Some players register the name before the Player interface is up.
		zlog.Debug().Msgf("mpris: status not yet readable: name=%s err=%v", name, err)
		return
	}
	handler.HandleStatus(name, status)
}

// onPropertiesChanged resolves the sending unique name back to the player's
// well-known name and forwards PlaybackStatus changes.
// Body: interface, changed properties, invalidated properties.
func (m *Monitor) onPropertiesChanged(handler Handler, sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != playerIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	variant, ok := changed["PlaybackStatus"]
	if !ok {
		return
	}
	raw, ok := variant.Value().(string)
	if !ok {
		return
	}

	m.mu.Lock()
	name, ok := m.owners[sig.Sender]
	m.mu.Unlock()
	if !ok {
		// Signal from a connection we never mapped; nothing to attribute it to.
		return
	}

	handler.HandleStatus(name, arbiter.ParseStatus(raw))
}

// fetchStatus reads the player's current PlaybackStatus property.
func (m *Monitor) fetchStatus(ctx context.Context, name string) (arbiter.Status, error) {
	var variant dbus.Variant
	err := m.conn.Object(name, mprisPath).
		CallWithContext(ctx, propsIface+".Get", 0, playerIface, "PlaybackStatus").
		Store(&variant)
	if err != nil {
		return arbiter.StatusUnknown, errors.Wrap(err, "failed to get PlaybackStatus")
	}
	raw, ok := variant.Value().(string)
	if !ok {
		return arbiter.StatusUnknown, errors.Newf("unexpected PlaybackStatus type: %T", variant.Value())
	}
	return arbiter.ParseStatus(raw), nil
}

// isPlayerName reports whether the well-known name is an MPRIS player the
// monitor should track.
func (m *Monitor) isPlayerName(name string) bool {
	if !strings.HasPrefix(name, mprisPrefix) {
		return false
	}
	for _, p := range m.opts.IgnoredPrefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}
