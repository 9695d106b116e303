package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	hook "github.com/robotn/gohook"
)

// ErrHookUnavailable is returned when the global key hook cannot be
// installed, usually because Accessibility permission is missing.
var ErrHookUnavailable = errors.New("hotkey: global key hook unavailable")

// KeyCode resolves a lowercase key name ("r", "t", "f5", ...) to the key
// code reported in RawEvent.Key.
func KeyCode(name string) (uint16, error) {
	code, ok := hook.Keycode[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("hotkey: unknown key %q", name)
	}
	return code, nil
}

// ResolveBindings builds Bindings from key and modifier names.
func ResolveBindings(modifier, pushToTalk, toggle string) (Bindings, error) {
	mask, err := ModifierMask(modifier)
	if err != nil {
		return Bindings{}, err
	}
	ptt, err := KeyCode(pushToTalk)
	if err != nil {
		return Bindings{}, err
	}
	tgl, err := KeyCode(toggle)
	if err != nil {
		return Bindings{}, err
	}
	return Bindings{Modifier: mask, PushToTalk: ptt, Toggle: tgl}, nil
}

// GoHook delivers gohook's global key events as RawEvents.
//
// gohook observes events but cannot swallow them, so a Consume verdict is
// recorded only for diagnostics; platforms that can suppress chords use a
// registered hotkey instead. The hook reports no auto-repeat flag, so
// GoHook derives one: a press of a key already held is a repeat.
type GoHook struct {
	installTimeout time.Duration
	// restartGrace is how long Run waits for the OS tap to come back on
	// its own after a HookDisabled before reinstalling the hook.
	restartGrace time.Duration
	log          *slog.Logger

	start func() chan hook.Event
	end   func()

	mu      sync.Mutex
	events  chan hook.Event
	restart atomic.Bool
	held    map[uint16]bool
}

// NewGoHook creates an uninstalled hook.
func NewGoHook(logger *slog.Logger) *GoHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoHook{
		installTimeout: 2 * time.Second,
		restartGrace:   500 * time.Millisecond,
		log:            logger,
		start:          hook.Start,
		end:            hook.End,
		held:           make(map[uint16]bool),
	}
}

// Install starts the OS hook and waits for it to report itself enabled.
// gohook only logs a failed start (missing Accessibility permission, no
// display) and leaves the channel open and silent, so no HookEnabled
// within installTimeout means the hook is unavailable.
func (g *GoHook) Install() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.events != nil {
		return nil
	}

	evCh := g.start()
	timer := time.NewTimer(g.installTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-evCh:
			if !ok {
				return ErrHookUnavailable
			}
			if ev.Kind == hook.HookEnabled {
				g.events = evCh
				return nil
			}
		case <-timer.C:
			g.end()
			return fmt.Errorf("%w: no confirmation within %s", ErrHookUnavailable, g.installTimeout)
		}
	}
}

// Enable asks the event loop to restart the OS hook. It returns once the
// request is recorded; the restart happens on the Run goroutine.
func (g *GoHook) Enable() error {
	g.restart.Store(true)
	return nil
}

// Run pumps hook events into handle until ctx is done. Install must have
// succeeded first.
//
// On macOS libuiohook re-arms a timed-out tap itself and reports
// HookEnabled again. A restart requested through Enable therefore waits
// restartGrace for that HookEnabled and only reinstalls when it does not
// arrive, so the two restarts never race on gohook's shared channel.
func (g *GoHook) Run(ctx context.Context, handle func(RawEvent) Verdict) error {
	g.mu.Lock()
	evCh := g.events
	g.mu.Unlock()
	if evCh == nil {
		return ErrHookUnavailable
	}
	defer g.uninstall()

	var grace <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-grace:
			grace = nil
			if g.restart.Swap(false) {
				var err error
				if evCh, err = g.reinstall(); err != nil {
					return err
				}
			}
		case ev, ok := <-evCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				// The event stream died underneath us; treat it as the
				// OS disabling the hook.
				handle(RawEvent{Kind: RawDisabled})
				if !g.restart.Swap(false) {
					return ErrHookUnavailable
				}
				grace = nil
				var err error
				if evCh, err = g.reinstall(); err != nil {
					return err
				}
				continue
			}

			if ev.Kind == hook.HookEnabled && grace != nil {
				grace = nil
				g.restart.Store(false)
				g.log.Info("[hotkey] hook restarted by the OS")
				continue
			}
			if raw, ok := g.translate(ev); ok {
				if v := handle(raw); v == Consume {
					g.log.Debug("[hotkey] chord event", "key", raw.Key, "edge", raw.Edge.String())
				}
			}
			if grace == nil && g.restart.Load() {
				grace = time.After(g.restartGrace)
			}
		}
	}
}

// translate converts a gohook event. KeyHold carries the physical press
// (repeated while held); KeyDown is the derived "typed" event and is
// skipped so each press is seen once.
func (g *GoHook) translate(ev hook.Event) (RawEvent, bool) {
	switch ev.Kind {
	case hook.HookDisabled:
		return RawEvent{Kind: RawDisabled}, true
	case hook.KeyHold:
		repeat := g.held[ev.Keycode]
		g.held[ev.Keycode] = true
		return RawEvent{Kind: RawKey, Key: ev.Keycode, Mask: ev.Mask, Edge: Press, Repeat: repeat}, true
	case hook.KeyUp:
		delete(g.held, ev.Keycode)
		return RawEvent{Kind: RawKey, Key: ev.Keycode, Mask: ev.Mask, Edge: Release}, true
	default:
		return RawEvent{}, false
	}
}

func (g *GoHook) reinstall() (chan hook.Event, error) {
	g.mu.Lock()
	if g.events != nil {
		g.end()
		g.events = nil
	}
	g.mu.Unlock()
	clear(g.held)

	if err := g.Install(); err != nil {
		return nil, fmt.Errorf("hotkey: reinstall: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.events, nil
}

func (g *GoHook) uninstall() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.events != nil {
		g.end()
		g.events = nil
	}
}
