//go:build darwin

package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	xhotkey "golang.design/x/hotkey"
)

var darwinKeys = map[string]xhotkey.Key{
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD,
	"e": xhotkey.KeyE, "f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH,
	"i": xhotkey.KeyI, "j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO, "p": xhotkey.KeyP,
	"q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3,
	"4": xhotkey.Key4, "5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7,
	"8": xhotkey.Key8, "9": xhotkey.Key9,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3, "f4": xhotkey.KeyF4,
	"f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6, "f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8,
	"f9": xhotkey.KeyF9, "f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
	"space": xhotkey.KeySpace,
}

func darwinModifier(name string) (xhotkey.Modifier, error) {
	switch strings.ToLower(name) {
	case "alt", "option":
		return xhotkey.ModOption, nil
	case "ctrl", "control":
		return xhotkey.ModCtrl, nil
	case "shift":
		return xhotkey.ModShift, nil
	case "cmd", "command", "meta":
		return xhotkey.ModCmd, nil
	default:
		return 0, fmt.Errorf("hotkey: unknown modifier %q", name)
	}
}

// RegisteredHook registers both chords as system hotkeys. Unlike GoHook,
// the OS swallows registered chords, so a Consume verdict holds: the
// chord keystroke never reaches the focused application. The main
// goroutine must be running golang.design/x/hotkey/mainthread.
type RegisteredHook struct {
	bindings Bindings
	log      *slog.Logger

	ptt    *xhotkey.Hotkey
	toggle *xhotkey.Hotkey
}

// NewRegisteredHook resolves the chord names for registration. b must
// come from ResolveBindings with the same names.
func NewRegisteredHook(b Bindings, modifier, pushToTalk, toggle string, logger *slog.Logger) (*RegisteredHook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mod, err := darwinModifier(modifier)
	if err != nil {
		return nil, err
	}
	pttKey, ok := darwinKeys[strings.ToLower(pushToTalk)]
	if !ok {
		return nil, fmt.Errorf("hotkey: key %q cannot be registered", pushToTalk)
	}
	tglKey, ok := darwinKeys[strings.ToLower(toggle)]
	if !ok {
		return nil, fmt.Errorf("hotkey: key %q cannot be registered", toggle)
	}
	mods := []xhotkey.Modifier{mod}
	return &RegisteredHook{
		bindings: b,
		log:      logger,
		ptt:      xhotkey.New(mods, pttKey),
		toggle:   xhotkey.New(mods, tglKey),
	}, nil
}

// Install registers both chords.
func (h *RegisteredHook) Install() error {
	if err := h.ptt.Register(); err != nil {
		return fmt.Errorf("%w: push-to-talk: %v", ErrHookUnavailable, err)
	}
	if err := h.toggle.Register(); err != nil {
		_ = h.ptt.Unregister()
		return fmt.Errorf("%w: toggle: %v", ErrHookUnavailable, err)
	}
	return nil
}

// Enable is a no-op: registered hotkeys are never disabled by the OS.
func (h *RegisteredHook) Enable() error { return nil }

// Run delivers chord presses and releases to handle until ctx is done,
// then unregisters both chords.
func (h *RegisteredHook) Run(ctx context.Context, handle func(RawEvent) Verdict) error {
	defer func() {
		_ = h.ptt.Unregister()
		_ = h.toggle.Unregister()
	}()

	ptt := chordSignals{key: h.bindings.PushToTalk, edges: forward(ctx, h.ptt)}
	tgl := chordSignals{key: h.bindings.Toggle, edges: forward(ctx, h.toggle)}
	h.log.Debug("[hotkey] chords registered with the OS")
	pumpChords(ctx, h.bindings.Modifier, ptt, tgl, handle)
	return nil
}

// forward relays one hotkey's keydown and keyup notifications as edges.
// A single goroutine and an unbuffered channel keep a quick tap's press
// ahead of its release.
func forward(ctx context.Context, hk *xhotkey.Hotkey) <-chan Edge {
	out := make(chan Edge)
	go func() {
		for {
			var edge Edge
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				edge = Press
			case <-hk.Keyup():
				edge = Release
			}
			select {
			case out <- edge:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
