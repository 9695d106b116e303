package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chaz8081/speakd/internal/audio"
	"github.com/chaz8081/speakd/internal/cue"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("transcribe: queue full")
	// ErrPipelineClosed is returned by Submit after Run has returned.
	ErrPipelineClosed = errors.New("transcribe: pipeline closed")
)

// TextInjector delivers text to the focused application.
type TextInjector interface {
	Inject(text string) error
}

// CuePlayer plays acoustic feedback without blocking.
type CuePlayer interface {
	Play(kind cue.Kind)
}

// PipelineOptions tune a Pipeline.
type PipelineOptions struct {
	// Workers is the number of concurrent transcriptions. 1 serializes
	// model calls.
	Workers int
	// QueueSize bounds clips waiting for a worker.
	QueueSize int
	Language  string
	// Delay lets focus settle before injecting.
	Delay  time.Duration
	Cues   CuePlayer
	Logger *slog.Logger
}

// Pipeline transcribes submitted clips on a fixed pool of workers and
// injects the resulting text. Workers wait on the gate before their first
// model call.
type Pipeline struct {
	model  Model
	gate   *Gate
	inject TextInjector
	opts   PipelineOptions
	log    *slog.Logger

	jobs chan audio.Clip

	mu     sync.RWMutex
	closed bool
}

// NewPipeline creates a pipeline. Clips may be submitted before Run is
// called; they wait in the queue.
func NewPipeline(model Model, gate *Gate, inject TextInjector, opts PipelineOptions) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Cues == nil {
		opts.Cues = cue.Silent{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		model:  model,
		gate:   gate,
		inject: inject,
		opts:   opts,
		log:    opts.Logger,
		jobs:   make(chan audio.Clip, opts.QueueSize),
	}
}

// Submit enqueues clip and returns immediately.
func (p *Pipeline) Submit(clip audio.Clip) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}
	select {
	case p.jobs <- clip:
		if !p.gate.Ready() {
			p.log.Info("[pipeline] model still loading, clip queued", "session", clip.ID)
		}
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes clips until ctx is cancelled. Clips still queued or
// waiting on the gate at that point are abandoned.
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	<-ctx.Done()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	wg.Wait()
	if n := len(p.jobs); n > 0 {
		p.log.Info("[pipeline] abandoned queued clips", "count", n)
	}
	return nil
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case clip := <-p.jobs:
			p.process(ctx, clip)
		}
	}
}

func (p *Pipeline) process(ctx context.Context, clip audio.Clip) {
	if err := p.gate.Wait(ctx); err != nil {
		return
	}

	start := time.Now()
	text, err := p.model.Transcribe(ctx, clip, p.opts.Language)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("[pipeline] transcription failed", "session", clip.ID, "error", err)
		}
		return
	}
	text = strings.TrimSpace(text)
	elapsed := time.Since(start).Round(time.Millisecond)
	if text == "" {
		p.log.Info("[pipeline] empty transcript, nothing to type", "session", clip.ID, "elapsed", elapsed)
		return
	}
	p.log.Info("[pipeline] transcribed", "session", clip.ID, "elapsed", elapsed, "text", text)

	p.opts.Cues.Play(cue.Done)
	if p.opts.Delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.opts.Delay):
		}
	}
	if err := p.inject.Inject(text); err != nil {
		p.log.Error("[pipeline] inject failed", "session", clip.ID, "error", err)
	}
}
