package arbiter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Commander issues playback commands to endpoints. Calls block until the
// remote outcome is known; a returned error is the command-failure outcome
// and is never retried.
type Commander interface {
	Pause(ctx context.Context, id string) error
	Play(ctx context.Context, id string) error
}

// EndpointState is one endpoint's identity and current status, as reported
// by startup enumeration.
type EndpointState struct {
	ID     string
	Status Status
}

// Config holds engine configuration.
type Config struct {
	ResumeDelay    time.Duration // Debounce before a resume check after a user stop
	CommandTimeout time.Duration // Upper bound on a single pause/play call
	Enabled        bool          // Whether arbitration actions start enabled
}

// Engine is the event-driven state machine enforcing "single active player"
// and LIFO smart resume. It owns one Registry and one resume stack for its
// lifetime. Exactly one mutator runs at a time: every notification handler
// and command completion takes the engine lock, so state transitions never
// interleave.
type Engine struct {
	mu sync.Mutex

	registry *Registry
	stack    resumeStack

	commander Commander
	config    Config

	enabled     bool
	resumeDelay time.Duration

	// Resume chain: at most one play attempt outstanding at a time.
	resuming bool

	// Pending deferred resume checks, keyed by endpoint id.
	delayCancels map[string]func()

	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates an engine issuing commands through the given commander.
func NewEngine(commander Commander, config Config) *Engine {
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		registry:     NewRegistry(),
		commander:    commander,
		config:       config,
		enabled:      config.Enabled,
		resumeDelay:  config.ResumeDelay,
		delayCancels: make(map[string]func()),
		eventCh:      make(chan Event, 16),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Reconcile seeds the engine from the current set of endpoints, applied once
// before live notifications. Among endpoints already playing the first one
// observed is kept; every other playing endpoint is paused in its favor.
// Endpoints already paused or stopped are recorded but are not resume
// candidates: they were not paused by this engine.
func (e *Engine) Reconcile(states []EndpointState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, st := range states {
		if st.ID == "" || st.Status == StatusUnknown {
			continue
		}
		e.registry.Upsert(st.ID, st.Status)
		e.sendEventLocked(Event{Type: EventEndpointAdded, Endpoint: st.ID, Status: st.Status})
	}

	zlog.Info().Msgf("arbiter: reconciled %d endpoint(s)", e.registry.Len())

	if !e.enabled {
		return
	}

	kept := ""
	for _, st := range states {
		if st.Status != StatusPlaying || !e.registry.Contains(st.ID) {
			continue
		}
		if kept == "" || st.ID == kept {
			kept = st.ID
			continue
		}
		zlog.Info().Msgf("arbiter: startup pause: endpoint=%s kept=%s", st.ID, kept)
		e.pauseLocked(st.ID)
	}
}

// HandleStatus applies one status notification. Unknown statuses and empty
// ids produce no transition.
func (e *Engine) HandleStatus(id string, status Status) {
	if id == "" || status == StatusUnknown {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	known := e.registry.Contains(id)
	e.registry.Upsert(id, status)
	if !known {
		e.sendEventLocked(Event{Type: EventEndpointAdded, Endpoint: id, Status: status})
	}
	e.sendEventLocked(Event{Type: EventStatusChanged, Endpoint: id, Status: status})

	switch status {
	case StatusPlaying:
		e.onPlayingLocked(id)
	case StatusPaused, StatusStopped:
		e.onStoppedLocked(id)
	}
}

// HandleDisappeared removes a vanished endpoint and, when nothing is left
// playing, resumes the previous player. Disappearance is terminal: there is
// no auto-paused echo to wait for.
func (e *Engine) HandleDisappeared(id string) {
	if id == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Contains(id) && !e.stack.contains(id) {
		return
	}

	e.registry.Remove(id)
	e.stack.remove(id)
	e.sendEventLocked(Event{Type: EventEndpointRemoved, Endpoint: id})
	zlog.Debug().Msgf("arbiter: endpoint disappeared: endpoint=%s", id)

	if !e.enabled || e.registry.AnyPlaying() {
		return
	}
	e.resumeNextLocked()
}

// onPlayingLocked handles a transition to playing. A newly playing endpoint
// always takes precedence: every other playing endpoint gets paused.
// Must be called with lock held.
func (e *Engine) onPlayingLocked(id string) {
	// A genuine play, not our own echo.
	e.registry.ClearAutoPaused(id)
	// A playing endpoint must not also be a resume candidate.
	e.stack.remove(id)

	if !e.enabled {
		return
	}

	for _, other := range e.registry.Playing() {
		if other == id {
			continue
		}
		zlog.Info().Msgf("arbiter: pausing for new player: endpoint=%s winner=%s", other, id)
		e.pauseLocked(other)
	}
}

// onStoppedLocked handles a transition to paused or stopped.
// Must be called with lock held.
func (e *Engine) onStoppedLocked(id string) {
	if e.registry.IsAutoPaused(id) {
		// Expected echo of our own pause command. The stack push already
		// happened at issue time; this is not a resume trigger.
		e.registry.ClearAutoPaused(id)
		zlog.Debug().Msgf("arbiter: auto-pause confirmed: endpoint=%s", id)
		return
	}

	// User-initiated or natural stop: the endpoint is no longer a resume
	// candidate from this point forward.
	e.stack.remove(id)

	if !e.enabled || e.registry.AnyPlaying() {
		return
	}

	if e.resumeDelay <= 0 {
		e.resumeNextLocked()
		return
	}
	e.scheduleResumeCheckLocked(id)
}

// pauseLocked applies the pause procedure to an endpoint currently believed
// playing. The stack push and the auto-paused mark happen at issue time so a
// near-simultaneous disappearance still finds the entry removable; status is
// only finalized in the completion handler.
// Must be called with lock held.
func (e *Engine) pauseLocked(id string) {
	e.registry.MarkAutoPaused(id)
	e.stack.push(id)

	cmd := uuid.NewString()[:8]
	zlog.Debug().Msgf("arbiter: issuing pause: cmd=%s endpoint=%s", cmd, id)

	go func() {
		ctx, cancel := context.WithTimeout(e.ctx, e.config.CommandTimeout)
		defer cancel()
		err := e.commander.Pause(ctx, id)
		e.onPauseResult(cmd, id, err)
	}()
}

// onPauseResult finalizes a pause command's outcome.
func (e *Engine) onPauseResult(cmd, id string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Contains(id) {
		// Removed while the command was in flight; nothing left to finalize.
		zlog.Debug().Msgf("arbiter: pause outcome for gone endpoint: cmd=%s endpoint=%s", cmd, id)
		return
	}

	if err != nil {
		// Endpoint assumed defunct or uncontrollable for this cycle; no retry.
		// It never paused, so it must not stay a resume candidate.
		zlog.Warn().Msgf("arbiter: pause failed: cmd=%s endpoint=%s err=%v", cmd, id, err)
		e.registry.ClearAutoPaused(id)
		e.stack.remove(id)
		return
	}

	e.registry.Upsert(id, StatusPaused)
	e.sendEventLocked(Event{Type: EventAutoPaused, Endpoint: id, Status: StatusPaused})
}

// resumeNextLocked pops the stack until one endpoint is successfully handed a
// play command or the stack is exhausted. Stale ids with no live registry
// record are discarded silently. At most one play attempt is outstanding at a
// time; the chain advances from the completion handler.
// Must be called with lock held.
func (e *Engine) resumeNextLocked() {
	if e.resuming || e.registry.AnyPlaying() {
		return
	}

	for {
		id, ok := e.stack.pop()
		if !ok {
			// Nothing left to resume. Idle with nothing playing is the
			// correct terminal state, not an error.
			e.sendEventLocked(Event{Type: EventStackExhausted})
			zlog.Debug().Msg("arbiter: resume stack exhausted")
			return
		}
		if !e.registry.Contains(id) {
			zlog.Debug().Msgf("arbiter: discarding stale stack entry: endpoint=%s", id)
			continue
		}

		e.resuming = true
		cmd := uuid.NewString()[:8]
		zlog.Info().Msgf("arbiter: issuing play: cmd=%s endpoint=%s", cmd, id)

		go func() {
			ctx, cancel := context.WithTimeout(e.ctx, e.config.CommandTimeout)
			defer cancel()
			err := e.commander.Play(ctx, id)
			e.onPlayResult(cmd, id, err)
		}()
		return
	}
}

// onPlayResult finalizes a play command's outcome and, on failure, advances
// the resume chain.
func (e *Engine) onPlayResult(cmd, id string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resuming = false

	if err != nil {
		// Presumed gone; discard and try the next candidate.
		zlog.Warn().Msgf("arbiter: play failed: cmd=%s endpoint=%s err=%v", cmd, id, err)
		e.registry.Remove(id)
		e.sendEventLocked(Event{Type: EventResumeFailed, Endpoint: id})
		if !e.registry.AnyPlaying() {
			e.resumeNextLocked()
		}
		return
	}

	if !e.registry.Contains(id) {
		// Disappeared between the call and its outcome.
		return
	}

	e.registry.Upsert(id, StatusPlaying)
	e.registry.ClearAutoPaused(id)
	e.sendEventLocked(Event{Type: EventResumed, Endpoint: id, Status: StatusPlaying})
}

// scheduleResumeCheckLocked defers the "nothing playing, resume" check by the
// configured delay to absorb rapid pause/play flapping (trick-play seeks).
// The fired action re-validates freshness rather than relying on timer
// cancellation: if the endpoint plays again before the timer fires, the check
// is a no-op.
// Must be called with lock held.
func (e *Engine) scheduleResumeCheckLocked(id string) {
	if cancel, ok := e.delayCancels[id]; ok {
		cancel()
	}

	e.delayCancels[id] = e.startTimer(e.resumeDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		delete(e.delayCancels, id)

		if !e.enabled {
			return
		}
		if st, ok := e.registry.Status(id); ok && st == StatusPlaying {
			// Flapped back to playing during the delay.
			return
		}
		if e.registry.AnyPlaying() {
			return
		}
		e.resumeNextLocked()
	})
}

// startTimer runs callback after the duration unless cancelled first.
// Returns a cancel function.
func (e *Engine) startTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(e.ctx)

	go func() {
		t := time.NewTimer(duration)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			callback()
		}
	}()

	return cancel
}

// SetEnabled toggles whether the engine initiates arbitration actions.
// Disabling clears the resume stack and pending auto-paused flags: the engine
// keeps recording statuses for bookkeeping but stops pausing and resuming.
// Commands already in flight complete to their declared outcome handling.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.enabled == enabled {
		return
	}
	e.enabled = enabled
	zlog.Info().Msgf("arbiter: enabled=%v", enabled)

	if !enabled {
		e.stack = resumeStack{}
		e.registry.ClearAllAutoPaused()
	}
}

// Enabled reports whether arbitration actions are enabled.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetResumeDelay updates the resume debounce. Negative values clamp to zero.
func (e *Engine) SetResumeDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d < 0 {
		d = 0
	}
	e.resumeDelay = d
}

// ResumeDelay returns the configured resume debounce.
func (e *Engine) ResumeDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeDelay
}

// Stats returns the number of tracked endpoints and stacked resume candidates.
func (e *Engine) Stats() (tracked, stacked int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len(), e.stack.len()
}

// EndpointStatus returns the last-known status for an endpoint.
func (e *Engine) EndpointStatus(id string) (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Status(id)
}

// ResumeCandidates returns the resume stack contents, most recent first.
func (e *Engine) ResumeCandidates() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack.snapshot()
}

// Close releases engine resources. In-flight commands are cancelled through
// their contexts.
func (e *Engine) Close() {
	e.cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.eventCh)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (e *Engine) sendEventLocked(ev Event) {
	if e.closed {
		return
	}
	select {
	case e.eventCh <- ev:
		// Successfully sent
	case <-e.ctx.Done():
		// Engine closed, don't send
	default:
		// Channel full, drop event
	}
}
