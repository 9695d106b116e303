// Package inject delivers transcribed text to the focused application
// using robotgo keystroke simulation, or the clipboard plus a robotgo
// paste shortcut.
package inject

import (
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
)

// Methods accepted by NewInjector.
const (
	MethodType  = "type"
	MethodPaste = "paste"
)

// restoreDelay gives the target application time to read the clipboard
// before the previous contents are put back.
const restoreDelay = 150 * time.Millisecond

// keyboard is the slice of robotgo and the system clipboard used here.
type keyboard interface {
	Type(text string)
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
	KeyTap(key string, modifier string) error
}

type robotKeyboard struct{}

func (robotKeyboard) Type(text string)                  { robotgo.Type(text) }
func (robotKeyboard) ReadClipboard() (string, error)    { return clipboard.ReadAll() }
func (robotKeyboard) WriteClipboard(text string) error  { return clipboard.WriteAll(text) }
func (robotKeyboard) KeyTap(key, modifier string) error { return robotgo.KeyTap(key, modifier) }

// Injector types or pastes text into the active application.
type Injector struct {
	method   string
	kb       keyboard
	pasteMod string
	restore  time.Duration
}

// NewInjector creates an Injector. method is "type" (keystroke
// simulation) or "paste" (clipboard + paste shortcut).
func NewInjector(method string) (*Injector, error) {
	switch method {
	case MethodType, MethodPaste:
	default:
		return nil, fmt.Errorf("inject: unknown method %q (supported: type, paste)", method)
	}
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	return &Injector{method: method, kb: robotKeyboard{}, pasteMod: mod, restore: restoreDelay}, nil
}

// Method returns the configured injection method.
func (inj *Injector) Method() string { return inj.method }

// Inject sends text to the active application using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case MethodPaste:
		return inj.paste(text)
	default:
		inj.kb.Type(text)
		return nil
	}
}

// paste puts text on the clipboard, sends the paste shortcut and then
// restores the previous clipboard contents (best effort).
func (inj *Injector) paste(text string) error {
	prev, _ := inj.kb.ReadClipboard()

	if err := inj.kb.WriteClipboard(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}
	if err := inj.kb.KeyTap("v", inj.pasteMod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", inj.pasteMod, err)
	}

	time.Sleep(inj.restore)
	_ = inj.kb.WriteClipboard(prev)
	return nil
}
