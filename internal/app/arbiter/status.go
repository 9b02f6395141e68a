// Package arbiter enforces the single-active-player rule across media endpoints.
package arbiter

// Status represents an endpoint's playback status.
type Status int

const (
	StatusUnknown Status = iota // Unrecognized wire value (ignored)
	StatusPlaying               // Endpoint is playing
	StatusPaused                // Endpoint is paused
	StatusStopped               // Endpoint is stopped
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ParseStatus maps a raw PlaybackStatus wire string onto the closed status set.
// Any other value maps to StatusUnknown, which the engine ignores.
func ParseStatus(raw string) Status {
	switch raw {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	case "Stopped":
		return StatusStopped
	default:
		return StatusUnknown
	}
}
