package mpris

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/osa030/onair/internal/app/arbiter"
)

// recordingHandler captures dispatched notifications.
type recordingHandler struct {
	mu        sync.Mutex
	statuses  []string
	gone      []string
	lastState arbiter.Status
}

func (h *recordingHandler) HandleStatus(id string, status arbiter.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, id)
	h.lastState = status
}

func (h *recordingHandler) HandleDisappeared(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gone = append(h.gone, id)
}

func (h *recordingHandler) statusCalls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.statuses...)
}

func (h *recordingHandler) goneCalls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.gone...)
}

func (h *recordingHandler) last() arbiter.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastState
}

func TestMonitor_IsPlayerName(t *testing.T) {
	tests := []struct {
		name    string
		busName string
		ignored []string
		want    bool
	}{
		{name: "mpris player", busName: "org.mpris.MediaPlayer2.vlc", want: true},
		{name: "mpris player instance", busName: "org.mpris.MediaPlayer2.firefox.instance123", want: true},
		{name: "unrelated name", busName: "org.freedesktop.Notifications", want: false},
		{name: "bare prefix owner", busName: "org.mpris.MediaPlayer2", want: false},
		{
			name:    "ignored prefix",
			busName: "org.mpris.MediaPlayer2.playerctld",
			ignored: []string{"org.mpris.MediaPlayer2.playerctld"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil, Options{IgnoredPrefixes: tt.ignored})
			assert.Equal(t, tt.want, m.isPlayerName(tt.busName))
		})
	}
}

func TestMonitor_DrainDeliversQueuedSignals(t *testing.T) {
	m := New(nil, Options{})
	h := &recordingHandler{}

	const player = "org.mpris.MediaPlayer2.vlc"
	m.owners[":1.5"] = player

	// A signal queued before the monitor loop starts (e.g. during the
	// startup snapshot) must still reach the handler.
	m.signals <- &dbus.Signal{
		Sender: ":1.5",
		Path:   mprisPath,
		Name:   propsChanged,
		Body: []interface{}{
			playerIface,
			map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Paused")},
			[]string{},
		},
	}

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		_ = m.drain(ctx, h)
	}()

	assert.Eventually(t, func() bool { return len(h.statusCalls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{player}, h.statusCalls())
	assert.Equal(t, arbiter.StatusPaused, h.last())
}

func TestMonitor_PropertiesChangedDispatch(t *testing.T) {
	m := New(nil, Options{})
	h := &recordingHandler{}

	const player = "org.mpris.MediaPlayer2.vlc"
	m.owners[":1.5"] = player

	sig := &dbus.Signal{
		Sender: ":1.5",
		Path:   mprisPath,
		Name:   propsChanged,
		Body: []interface{}{
			playerIface,
			map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Playing")},
			[]string{},
		},
	}
	m.dispatch(context.Background(), h, sig)

	assert.Equal(t, []string{player}, h.statusCalls())
	assert.Equal(t, arbiter.StatusPlaying, h.last())
}

func TestMonitor_PropertiesChangedIgnored(t *testing.T) {
	m := New(nil, Options{})
	h := &recordingHandler{}
	m.owners[":1.5"] = "org.mpris.MediaPlayer2.vlc"

	// Unmapped sender
	m.dispatch(context.Background(), h, &dbus.Signal{
		Sender: ":1.99",
		Name:   propsChanged,
		Body: []interface{}{
			playerIface,
			map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Playing")},
			[]string{},
		},
	})

	// Non-player interface
	m.dispatch(context.Background(), h, &dbus.Signal{
		Sender: ":1.5",
		Name:   propsChanged,
		Body: []interface{}{
			"org.mpris.MediaPlayer2",
			map[string]dbus.Variant{"Fullscreen": dbus.MakeVariant(true)},
			[]string{},
		},
	})

	// Change without PlaybackStatus
	m.dispatch(context.Background(), h, &dbus.Signal{
		Sender: ":1.5",
		Name:   propsChanged,
		Body: []interface{}{
			playerIface,
			map[string]dbus.Variant{"Volume": dbus.MakeVariant(0.5)},
			[]string{},
		},
	})

	assert.Empty(t, h.statusCalls())
}

func TestMonitor_NameOwnerChangedDisappear(t *testing.T) {
	m := New(nil, Options{})
	h := &recordingHandler{}

	const player = "org.mpris.MediaPlayer2.spotify"
	m.owners[":1.7"] = player

	m.dispatch(context.Background(), h, &dbus.Signal{
		Sender: "org.freedesktop.DBus",
		Name:   nameOwnerChanged,
		Body:   []interface{}{player, ":1.7", ""},
	})

	assert.Equal(t, []string{player}, h.goneCalls())
	assert.Empty(t, m.owners)
}

func TestMonitor_NameOwnerChangedUnrelated(t *testing.T) {
	m := New(nil, Options{})
	h := &recordingHandler{}

	m.dispatch(context.Background(), h, &dbus.Signal{
		Sender: "org.freedesktop.DBus",
		Name:   nameOwnerChanged,
		Body:   []interface{}{"org.freedesktop.Notifications", ":1.8", ""},
	})

	assert.Empty(t, h.goneCalls())
	assert.Empty(t, h.statusCalls())
}
