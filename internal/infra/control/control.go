// Package control exposes the runtime toggle and resume-delay knob over the
// session bus, for onairctl and desktop shells.
package control

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	zlog "github.com/rs/zerolog/log"
)

const (
	// BusName is the well-known name the daemon claims on the session bus.
	BusName = "com.github.osa030.onair"
	// ObjectPath is where the control interface is exported.
	ObjectPath = dbus.ObjectPath("/com/github/osa030/onair")
	// Interface is the control interface name.
	Interface = "com.github.osa030.onair.Control1"
)

// Engine is the part of the arbitration engine the control surface drives.
type Engine interface {
	SetEnabled(bool)
	Enabled() bool
	SetResumeDelay(time.Duration)
	ResumeDelay() time.Duration
	Stats() (tracked, stacked int)
}

// service implements the exported D-Bus methods.
type service struct {
	engine Engine
}

func (s *service) Enable() *dbus.Error {
	s.engine.SetEnabled(true)
	return nil
}

func (s *service) Disable() *dbus.Error {
	s.engine.SetEnabled(false)
	return nil
}

func (s *service) Enabled() (bool, *dbus.Error) {
	return s.engine.Enabled(), nil
}

func (s *service) SetResumeDelayMs(ms uint32) *dbus.Error {
	s.engine.SetResumeDelay(time.Duration(ms) * time.Millisecond)
	return nil
}

func (s *service) ResumeDelayMs() (uint32, *dbus.Error) {
	return uint32(s.engine.ResumeDelay() / time.Millisecond), nil
}

func (s *service) Stats() (uint32, uint32, *dbus.Error) {
	tracked, stacked := s.engine.Stats()
	return uint32(tracked), uint32(stacked), nil
}

var introNode = &introspect.Node{
	Name: string(ObjectPath),
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		{
			Name: Interface,
			Methods: []introspect.Method{
				{Name: "Enable"},
				{Name: "Disable"},
				{Name: "Enabled", Args: []introspect.Arg{
					{Name: "enabled", Type: "b", Direction: "out"},
				}},
				{Name: "SetResumeDelayMs", Args: []introspect.Arg{
					{Name: "ms", Type: "u", Direction: "in"},
				}},
				{Name: "ResumeDelayMs", Args: []introspect.Arg{
					{Name: "ms", Type: "u", Direction: "out"},
				}},
				{Name: "Stats", Args: []introspect.Arg{
					{Name: "tracked", Type: "u", Direction: "out"},
					{Name: "stacked", Type: "u", Direction: "out"},
				}},
			},
		},
	},
}

// Export publishes the control interface on the connection and claims the
// daemon's well-known name. Fails if another onaird instance already owns it.
func Export(conn *dbus.Conn, engine Engine) error {
	s := &service{engine: engine}

	if err := conn.Export(s, ObjectPath, Interface); err != nil {
		return errors.Wrap(err, "failed to export control interface")
	}
	if err := conn.Export(introspect.NewIntrospectable(introNode), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return errors.Wrap(err, "failed to export introspection data")
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return errors.Wrap(err, "failed to request bus name")
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.Newf("bus name %s already taken (another onaird running?)", BusName)
	}

	zlog.Info().Msgf("control: exported %s at %s", Interface, ObjectPath)
	return nil
}
