//go:build darwin

package main

import (
	"log/slog"
	"runtime"

	"golang.design/x/hotkey/mainthread"

	"github.com/chaz8081/speakd/internal/config"
	"github.com/chaz8081/speakd/internal/daemon"
	"github.com/chaz8081/speakd/internal/hotkey"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	mainthread.Init(run)
}

// newHook registers the chords as system hotkeys so the OS swallows them.
func newHook(cfg config.HotkeyConfig, b hotkey.Bindings, logger *slog.Logger) (daemon.Hook, error) {
	h, err := hotkey.NewRegisteredHook(b, cfg.Modifier, cfg.PushToTalk, cfg.Toggle, logger)
	if err != nil {
		return nil, err
	}
	return h, nil
}
