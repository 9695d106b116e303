package hotkey

import (
	"fmt"
	"log/slog"
	"sync"
)

// Enabler re-arms an interception hook the OS has disabled.
type Enabler interface {
	Enable() error
}

// Router filters raw key events down to chord Events. It holds no state
// besides the chord mapping and the outgoing channel.
type Router struct {
	bindings Bindings
	hook     Enabler
	log      *slog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Event
	errs   chan error
}

// NewRouter creates a Router dispatching into a channel of queueSize
// events. hook is re-enabled whenever a RawDisabled event arrives.
func NewRouter(b Bindings, hook Enabler, queueSize int, logger *slog.Logger) *Router {
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		bindings: b,
		hook:     hook,
		log:      logger,
		ch:       make(chan Event, queueSize),
		errs:     make(chan error, 1),
	}
}

// Events returns the channel that receives chord events.
// The channel is closed by Close.
func (r *Router) Events() <-chan Event {
	return r.ch
}

// Errors reports failures to re-enable the hook. Such a failure leaves the
// daemon deaf to hotkeys and is treated like a setup failure.
func (r *Router) Errors() <-chan error {
	return r.errs
}

// Handle classifies one raw event. It never blocks: qualifying events are
// queued for the recording goroutine and consumed, everything else passes.
func (r *Router) Handle(raw RawEvent) Verdict {
	if raw.Kind == RawDisabled {
		r.reenable()
		return Pass
	}

	if raw.Mask&r.bindings.Modifier == 0 {
		return Pass
	}

	var chord Chord
	switch raw.Key {
	case r.bindings.PushToTalk:
		chord = ChordPushToTalk
	case r.bindings.Toggle:
		chord = ChordToggle
	default:
		return Pass
	}

	// Only the first press of a held key counts. Releases always count.
	if raw.Edge == Press && raw.Repeat {
		return Consume
	}

	r.dispatch(Event{Chord: chord, Edge: raw.Edge})
	return Consume
}

func (r *Router) dispatch(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- ev:
	default: // don't block the hook if the state machine is behind
		r.log.Warn("[hotkey] event queue full, dropping", "event", ev.String())
	}
}

func (r *Router) reenable() {
	if r.hook == nil {
		return
	}
	if err := r.hook.Enable(); err != nil {
		select {
		case r.errs <- fmt.Errorf("hotkey: re-enable hook: %w", err):
		default:
		}
		return
	}
	r.log.Info("[hotkey] hook was disabled by the OS, re-enabled")
}

// Close closes the Events channel. Handle is a no-op afterwards.
// It is safe to call multiple times.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}
