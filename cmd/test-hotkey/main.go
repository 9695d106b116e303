// Command test-hotkey is a manual test for the global hotkey router.
// Run it, then press the configured chords to see routed events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--modifier alt] [--ptt r] [--toggle t]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/speakd/internal/hotkey"
	"github.com/chaz8081/speakd/internal/logging"
)

func main() {
	modifier := flag.String("modifier", "alt", "required modifier: alt, ctrl, shift or cmd")
	ptt := flag.String("ptt", "r", "push-to-talk key")
	toggle := flag.String("toggle", "t", "toggle key")
	flag.Parse()

	logger := logging.Setup(slog.LevelDebug)

	bindings, err := hotkey.ResolveBindings(*modifier, *ptt, *toggle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	h := hotkey.NewGoHook(logger)
	if err := h.Install(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (grant Accessibility permission to your terminal)\n", err)
		os.Exit(1)
	}
	router := hotkey.NewRouter(bindings, h, 16, logger)

	fmt.Printf("Listening for %s+%s (push-to-talk) and %s+%s (toggle)...\n", *modifier, *ptt, *modifier, *toggle)
	fmt.Println("Press Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for ev := range router.Events() {
			switch ev.Edge {
			case hotkey.Press:
				fmt.Printf(">>> %s\n", ev)
			case hotkey.Release:
				fmt.Printf("<<< %s\n", ev)
			}
		}
		fmt.Println("Event channel closed.")
	}()

	go func() {
		if err := <-router.Errors(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			stop()
		}
	}()

	// Blocks until interrupted
	if err := h.Run(ctx, router.Handle); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	router.Close()
	fmt.Println("\nDone.")
}
