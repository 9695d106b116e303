// Package hotkey turns low-level key notifications into push-to-talk and
// toggle events.
//
// A Router decides synchronously whether a raw key event belongs to one of
// the two configured chords and hands the resulting Event to a bounded
// channel, so the goroutine delivering OS events never waits on recording
// or transcription work.
package hotkey

import (
	"fmt"
	"strings"
)

// Chord identifies one of the two hotkey gestures.
type Chord int

const (
	// ChordPushToTalk records while the key is held.
	ChordPushToTalk Chord = iota
	// ChordToggle starts on one press and stops on the next.
	ChordToggle
)

func (c Chord) String() string {
	switch c {
	case ChordPushToTalk:
		return "push-to-talk"
	case ChordToggle:
		return "toggle"
	default:
		return fmt.Sprintf("Chord(%d)", int(c))
	}
}

// Edge is the direction of a key transition.
type Edge int

const (
	Press Edge = iota
	Release
)

func (e Edge) String() string {
	if e == Release {
		return "release"
	}
	return "press"
}

// Event is emitted on the channel returned by Router.Events.
type Event struct {
	Chord Chord
	Edge  Edge
}

func (e Event) String() string {
	return e.Chord.String() + "/" + e.Edge.String()
}

// Modifier bits as reported in RawEvent.Mask. Left and right variants are
// distinct bits.
const (
	MaskShiftL uint16 = 1 << iota
	MaskCtrlL
	MaskMetaL
	MaskAltL
	MaskShiftR
	MaskCtrlR
	MaskMetaR
	MaskAltR

	MaskShift = MaskShiftL | MaskShiftR
	MaskCtrl  = MaskCtrlL | MaskCtrlR
	MaskMeta  = MaskMetaL | MaskMetaR
	MaskAlt   = MaskAltL | MaskAltR
)

// ModifierMask returns the mask bits for a modifier name (alt, ctrl,
// shift, cmd).
func ModifierMask(name string) (uint16, error) {
	switch strings.ToLower(name) {
	case "alt", "option":
		return MaskAlt, nil
	case "ctrl", "control":
		return MaskCtrl, nil
	case "shift":
		return MaskShift, nil
	case "cmd", "command", "meta":
		return MaskMeta, nil
	default:
		return 0, fmt.Errorf("hotkey: unknown modifier %q", name)
	}
}

// Bindings maps key codes to chords. Modifier is a mask; any of its bits
// being set satisfies the modifier requirement.
type Bindings struct {
	Modifier   uint16
	PushToTalk uint16
	Toggle     uint16
}

// RawKind distinguishes key notifications from hook state changes.
type RawKind int

const (
	RawKey RawKind = iota
	// RawDisabled reports that the OS stopped delivering events to the hook
	// (timeout or revoked permission).
	RawDisabled
)

// RawEvent is one low-level notification from the interception hook.
type RawEvent struct {
	Kind   RawKind
	Key    uint16
	Mask   uint16
	Edge   Edge
	Repeat bool
}

// Verdict tells the hook what to do with the underlying OS event.
type Verdict int

const (
	// Pass lets the event propagate to other applications unchanged.
	Pass Verdict = iota
	// Consume swallows the event.
	Consume
)

func (v Verdict) String() string {
	if v == Consume {
		return "consume"
	}
	return "pass"
}
