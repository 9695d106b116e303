//go:build !darwin

package main

import (
	"log/slog"

	"github.com/chaz8081/speakd/internal/config"
	"github.com/chaz8081/speakd/internal/daemon"
	"github.com/chaz8081/speakd/internal/hotkey"
)

func main() {
	run()
}

// newHook observes keys through gohook. Chord keystrokes still reach the
// focused application on these platforms.
func newHook(_ config.HotkeyConfig, _ hotkey.Bindings, logger *slog.Logger) (daemon.Hook, error) {
	return hotkey.NewGoHook(logger), nil
}
