package arbiter

// Registry is the authoritative mapping of endpoint id to last-known status,
// plus the set of endpoints whose most recent pause was issued by the engine.
// It has no side effects beyond its own storage and never issues commands.
// Callers are responsible for serialization; the engine holds its lock across
// every Registry mutation.
type Registry struct {
	status     map[string]Status
	autoPaused map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		status:     make(map[string]Status),
		autoPaused: make(map[string]struct{}),
	}
}

// Upsert records or overwrites the status for the given endpoint.
// Empty ids are ignored.
func (r *Registry) Upsert(id string, status Status) {
	if id == "" {
		return
	}
	r.status[id] = status
}

// Remove deletes the status and auto-paused flag for the given endpoint.
// Idempotent.
func (r *Registry) Remove(id string) {
	delete(r.status, id)
	delete(r.autoPaused, id)
}

// Contains reports whether the endpoint is tracked.
func (r *Registry) Contains(id string) bool {
	_, ok := r.status[id]
	return ok
}

// Status returns the last-known status for the endpoint.
func (r *Registry) Status(id string) (Status, bool) {
	s, ok := r.status[id]
	return s, ok
}

// AnyPlaying reports whether some tracked endpoint is currently playing.
func (r *Registry) AnyPlaying() bool {
	for _, s := range r.status {
		if s == StatusPlaying {
			return true
		}
	}
	return false
}

// Playing returns the ids of all endpoints currently believed playing.
func (r *Registry) Playing() []string {
	var ids []string
	for id, s := range r.status {
		if s == StatusPlaying {
			ids = append(ids, id)
		}
	}
	return ids
}

// MarkAutoPaused flags the endpoint as paused by the engine itself.
func (r *Registry) MarkAutoPaused(id string) {
	r.autoPaused[id] = struct{}{}
}

// ClearAutoPaused removes the auto-paused flag. Idempotent.
func (r *Registry) ClearAutoPaused(id string) {
	delete(r.autoPaused, id)
}

// IsAutoPaused reports whether the endpoint's most recent pause was issued by
// the engine and not yet confirmed by a notification.
func (r *Registry) IsAutoPaused(id string) bool {
	_, ok := r.autoPaused[id]
	return ok
}

// ClearAllAutoPaused drops every auto-paused flag.
func (r *Registry) ClearAllAutoPaused() {
	r.autoPaused = make(map[string]struct{})
}

// Len returns the number of tracked endpoints.
func (r *Registry) Len() int {
	return len(r.status)
}
