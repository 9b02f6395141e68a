package arbiter

// EventType represents an arbitration event type.
type EventType int

const (
	EventEndpointAdded   EventType = iota // Endpoint observed for the first time
	EventEndpointRemoved                  // Endpoint disappeared or became uncontrollable
	EventStatusChanged                    // Endpoint reported a new status
	EventAutoPaused                       // Engine paused an endpoint to favor another
	EventResumed                          // Engine resumed a previously auto-paused endpoint
	EventResumeFailed                     // Play command failed, endpoint discarded
	EventStackExhausted                   // Resume wanted but no candidate left
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventEndpointAdded:
		return "endpoint_added"
	case EventEndpointRemoved:
		return "endpoint_removed"
	case EventStatusChanged:
		return "status_changed"
	case EventAutoPaused:
		return "auto_paused"
	case EventResumed:
		return "resumed"
	case EventResumeFailed:
		return "resume_failed"
	case EventStackExhausted:
		return "stack_exhausted"
	default:
		return "unknown"
	}
}

// Event represents an arbitration event.
type Event struct {
	Type     EventType
	Endpoint string // Endpoint id (empty for EventStackExhausted)
	Status   Status // Endpoint status after the event
}
