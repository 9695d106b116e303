// Command speakd is a push-to-talk dictation daemon: hold (or toggle) a
// global hotkey, speak, and the transcript is typed into the focused
// application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/speakd/internal/audio"
	"github.com/chaz8081/speakd/internal/config"
	"github.com/chaz8081/speakd/internal/cue"
	"github.com/chaz8081/speakd/internal/daemon"
	"github.com/chaz8081/speakd/internal/hotkey"
	"github.com/chaz8081/speakd/internal/inject"
	"github.com/chaz8081/speakd/internal/logging"
	"github.com/chaz8081/speakd/internal/transcribe"
)

// run is the daemon body. Each platform's main calls it, on macOS from
// the hotkey main thread loop.
func run() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/speakd/config.yaml)")
	initConfig := flag.Bool("init", false, "write a default config file and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logging.Setup(slog.LevelInfo)

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatal("writing default config", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		} else {
			fmt.Printf("Wrote default config to %s\n", path)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("loading config", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	level := config.ParseLogLevel(cfg.LogLevel)
	if *debug {
		level = slog.LevelDebug
	}
	logger := logging.Setup(level)

	printBanner(cfg)

	bindings, err := hotkey.ResolveBindings(cfg.Hotkey.Modifier, cfg.Hotkey.PushToTalk, cfg.Hotkey.Toggle)
	if err != nil {
		fatal("resolving hotkeys", err)
	}

	keyHook, err := newHook(cfg.Hotkey, bindings, logger)
	if err != nil {
		fatal("creating key hook", err)
	}

	model, err := transcribe.New(&cfg.Transcribe)
	if err != nil {
		fatal("creating transcriber", err)
	}

	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		fatal("initializing audio recorder (grant microphone access in System Settings > Privacy & Security > Microphone)", err)
	}
	defer func() { _ = recorder.Close() }()

	injector, err := inject.NewInjector(cfg.Inject.Method)
	if err != nil {
		fatal("creating text injector", err)
	}

	var cues daemon.CuePlayer = cue.Silent{}
	if cfg.Cues.Enabled && cfg.Cues.Volume > 0 {
		player, err := cue.NewPlayer(cfg.Cues.Volume, logger)
		if err != nil {
			slog.Warn("audio cues disabled", "error", err)
		} else {
			defer player.Close()
			cues = player
		}
	}

	d := daemon.New(daemon.Deps{
		Hook:     keyHook,
		Device:   recorder,
		Model:    model,
		Injector: injector,
		Cues:     cues,
	}, daemon.Options{
		Bindings:    bindings,
		HotkeyQueue: cfg.Hotkey.QueueSize,
		SampleRate:  cfg.Audio.SampleRate,
		MinDuration: cfg.Audio.MinDuration,
		Language:    cfg.Transcribe.Language,
		Workers:     cfg.Transcribe.Workers,
		QueueSize:   cfg.Transcribe.QueueSize,
		Warmup:      cfg.Transcribe.Warmup,
		InjectDelay: cfg.Inject.Delay,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		// Deferred cleanup is skipped by os.Exit; release the device first.
		_ = recorder.Close()
		fatal("speakd stopped (check Accessibility permission for the key hook and the model settings)", err)
	}
	slog.Info("Goodbye!")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Info("config loaded", "path", defaultPath)
		return cfg, nil
	}

	slog.Info("no config file found, using defaults (speakd -init writes one)")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	model := cfg.Transcribe.ModelPath
	if cfg.Transcribe.Backend == "openai" {
		model = cfg.Transcribe.OpenAI.Model
	}
	fmt.Println("=== speakd ===")
	fmt.Printf("  Push-to-talk: %s+%s (hold)\n", cfg.Hotkey.Modifier, cfg.Hotkey.PushToTalk)
	fmt.Printf("  Toggle:       %s+%s (press to start, press to stop)\n", cfg.Hotkey.Modifier, cfg.Hotkey.Toggle)
	fmt.Printf("  Audio:        %dHz, %dch, min %s\n", cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.MinDuration)
	fmt.Printf("  Backend:      %s (%s, %s)\n", cfg.Transcribe.Backend, model, cfg.Transcribe.Language)
	fmt.Printf("  Inject:       %s\n", cfg.Inject.Method)
	fmt.Printf("  Log:          %s\n", cfg.LogLevel)
	fmt.Println("==============")
}
