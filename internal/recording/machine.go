// Package recording owns the recording state: it turns push-to-talk and
// toggle hotkey events into capture sessions and hands finished clips to
// the transcription pipeline.
package recording

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/speakd/internal/audio"
	"github.com/chaz8081/speakd/internal/cue"
	"github.com/chaz8081/speakd/internal/hotkey"
)

// State is the recording state. The zero value is Idle.
type State int

const (
	Idle State = iota
	RecordingPushToTalk
	RecordingToggle
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RecordingPushToTalk:
		return "recording(push-to-talk)"
	case RecordingToggle:
		return "recording(toggle)"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Device starts and stops frame delivery from the microphone.
type Device interface {
	Start(onFrames audio.FrameFunc) error
	Stop() error
}

// CuePlayer plays acoustic feedback without blocking.
type CuePlayer interface {
	Play(kind cue.Kind)
}

// Submitter accepts finished clips. Submit must not block.
type Submitter interface {
	Submit(clip audio.Clip) error
}

// Options tune a Machine.
type Options struct {
	// MinDuration discards clips shorter than this (accidental taps).
	MinDuration time.Duration
	Cues        CuePlayer
	Logger      *slog.Logger
}

// Machine is the recording state machine. Handle is safe for concurrent
// use, but events are expected to arrive from a single Run loop.
type Machine struct {
	buf    *audio.Buffer
	device Device
	sink   Submitter
	cues   CuePlayer
	minDur time.Duration
	log    *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates an idle Machine.
func New(buf *audio.Buffer, device Device, sink Submitter, opts Options) *Machine {
	if opts.Cues == nil {
		opts.Cues = cue.Silent{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Machine{
		buf:    buf,
		device: device,
		sink:   sink,
		cues:   opts.Cues,
		minDur: opts.MinDuration,
		log:    opts.Logger,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle applies one hotkey event. A push-to-talk session ignores toggle
// events and a toggle session ignores push-to-talk events.
func (m *Machine) Handle(ev hotkey.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Idle:
		if ev.Edge != hotkey.Press {
			return
		}
		switch ev.Chord {
		case hotkey.ChordPushToTalk:
			m.begin(RecordingPushToTalk)
		case hotkey.ChordToggle:
			m.begin(RecordingToggle)
		}

	case RecordingPushToTalk:
		if ev.Chord == hotkey.ChordPushToTalk && ev.Edge == hotkey.Release {
			m.end()
		}

	case RecordingToggle:
		if ev.Chord == hotkey.ChordToggle && ev.Edge == hotkey.Press {
			m.end()
		}
	}
}

// Run applies events until ctx is cancelled or events is closed. A
// session still live at that point is aborted.
func (m *Machine) Run(ctx context.Context, events <-chan hotkey.Event) error {
	defer m.Abort()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.log.Debug("[rec] event", "event", ev, "state", m.State())
			m.Handle(ev)
		}
	}
}

// Abort stops a live session and discards its clip.
func (m *Machine) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return
	}
	clip := m.buf.Finalize()
	m.state = Idle
	if err := m.device.Stop(); err != nil {
		m.log.Warn("[rec] stopping capture", "error", err)
	}
	m.log.Info("[rec] session aborted", "session", clip.ID, "duration", clip.Duration())
}

// begin must be called with m.mu held.
func (m *Machine) begin(next State) {
	id := m.buf.Begin()
	if err := m.device.Start(m.buf.Append); err != nil {
		m.buf.Finalize()
		m.log.Error("[rec] starting capture", "error", err)
		return
	}
	m.state = next
	m.cues.Play(cue.Start)
	m.log.Info("[rec] recording", "mode", next, "session", id)
}

// end must be called with m.mu held. The buffer stops accepting frames
// before the device is told to stop.
func (m *Machine) end() {
	clip := m.buf.Finalize()
	m.state = Idle
	if err := m.device.Stop(); err != nil {
		m.log.Warn("[rec] stopping capture", "error", err)
	}
	m.cues.Play(cue.Stop)

	dur := clip.Duration()
	switch {
	case clip.Empty():
		m.log.Info("[rec] no audio captured", "session", clip.ID)
		return
	case dur < m.minDur:
		m.log.Info("[rec] recording too short, discarded",
			"session", clip.ID, "duration", dur, "min", m.minDur)
		return
	}

	m.log.Info("[rec] recorded", "session", clip.ID, "duration", dur)
	if err := m.sink.Submit(clip); err != nil {
		m.log.Warn("[rec] clip dropped", "session", clip.ID, "error", err)
	}
}
