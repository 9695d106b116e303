// Package daemon wires the hotkey router, recording state machine and
// transcription pipeline together and owns their lifetime.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chaz8081/speakd/internal/audio"
	"github.com/chaz8081/speakd/internal/cue"
	"github.com/chaz8081/speakd/internal/hotkey"
	"github.com/chaz8081/speakd/internal/inject"
	"github.com/chaz8081/speakd/internal/recording"
	"github.com/chaz8081/speakd/internal/transcribe"
)

// Hook is the OS key interception mechanism.
type Hook interface {
	// Install starts interception. Failure is fatal.
	Install() error
	// Enable re-arms a hook the OS has disabled.
	Enable() error
	// Run delivers raw events to handle until ctx is done.
	Run(ctx context.Context, handle func(hotkey.RawEvent) hotkey.Verdict) error
}

// CuePlayer plays acoustic feedback without blocking.
type CuePlayer interface {
	Play(kind cue.Kind)
}

// Compile-time checks that the production collaborators fit.
var (
	_ Hook                    = (*hotkey.GoHook)(nil)
	_ recording.Device        = (*audio.Recorder)(nil)
	_ transcribe.TextInjector = (*inject.Injector)(nil)
	_ CuePlayer               = (*cue.Player)(nil)
)

// Deps are the external collaborators.
type Deps struct {
	Hook     Hook
	Device   recording.Device
	Model    transcribe.Model
	Injector transcribe.TextInjector
	Cues     CuePlayer
}

// Options configure the daemon.
type Options struct {
	Bindings    hotkey.Bindings
	HotkeyQueue int

	SampleRate  uint32
	MinDuration time.Duration

	Language  string
	Workers   int
	QueueSize int
	Warmup    bool

	InjectDelay time.Duration

	Logger *slog.Logger
}

// Daemon holds everything that lives for the process lifetime. It is
// built once by New and torn down when Run returns.
type Daemon struct {
	deps Deps
	opts Options
	log  *slog.Logger

	gate     *transcribe.Gate
	buffer   *audio.Buffer
	router   *hotkey.Router
	machine  *recording.Machine
	pipeline *transcribe.Pipeline
}

// New builds the daemon's components. Nothing starts until Run.
func New(deps Deps, opts Options) *Daemon {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if deps.Cues == nil {
		deps.Cues = cue.Silent{}
	}
	log := opts.Logger

	gate := transcribe.NewGate()
	buffer := audio.NewBuffer(opts.SampleRate)
	pipeline := transcribe.NewPipeline(deps.Model, gate, deps.Injector, transcribe.PipelineOptions{
		Workers:   opts.Workers,
		QueueSize: opts.QueueSize,
		Language:  opts.Language,
		Delay:     opts.InjectDelay,
		Cues:      deps.Cues,
		Logger:    log,
	})
	machine := recording.New(buffer, deps.Device, pipeline, recording.Options{
		MinDuration: opts.MinDuration,
		Cues:        deps.Cues,
		Logger:      log,
	})
	router := hotkey.NewRouter(opts.Bindings, deps.Hook, opts.HotkeyQueue, log)

	return &Daemon{
		deps:     deps,
		opts:     opts,
		log:      log,
		gate:     gate,
		buffer:   buffer,
		router:   router,
		machine:  machine,
		pipeline: pipeline,
	}
}

// Gate reports model readiness.
func (d *Daemon) Gate() *transcribe.Gate { return d.gate }

// State returns the recording state.
func (d *Daemon) State() recording.State { return d.machine.State() }

// Run installs the hook, loads the model in the background and processes
// hotkeys until ctx is cancelled. It returns nil on cancellation and an
// error for any setup failure: hook not installable, model not loadable,
// or a disabled hook that cannot be re-enabled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.deps.Hook.Install(); err != nil {
		return fmt.Errorf("daemon: installing key hook: %w", err)
	}
	defer func() {
		if err := d.deps.Model.Close(); err != nil {
			d.log.Warn("[daemon] closing model", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer d.router.Close()
		if err := d.deps.Hook.Run(ctx, d.router.Handle); err != nil {
			return fmt.Errorf("daemon: key hook: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return d.machine.Run(ctx, d.router.Events())
	})

	g.Go(func() error {
		return d.pipeline.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-d.router.Errors():
			return fmt.Errorf("daemon: %w", err)
		}
	})

	g.Go(func() error {
		d.log.Info("[daemon] waiting for model")
		if err := transcribe.LoadModel(ctx, d.deps.Model, d.gate, d.opts.Warmup, d.log); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("daemon: %w", err)
		}
		d.log.Info("[daemon] ready")
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	d.log.Info("[daemon] stopped")
	return err
}
