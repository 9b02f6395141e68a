package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Status
	}{
		{name: "playing", raw: "Playing", want: StatusPlaying},
		{name: "paused", raw: "Paused", want: StatusPaused},
		{name: "stopped", raw: "Stopped", want: StatusStopped},
		{name: "empty", raw: "", want: StatusUnknown},
		{name: "lowercase rejected", raw: "playing", want: StatusUnknown},
		{name: "garbage rejected", raw: "Buffering", want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.raw))
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "playing", StatusPlaying.String())
	assert.Equal(t, "paused", StatusPaused.String())
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "unknown", Status(99).String())
}
