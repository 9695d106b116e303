// Package audio captures microphone frames and accumulates them into clips.
package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clip is the frozen audio of one recording session: mono float32 samples
// at SampleRate. A Clip is never mutated after Buffer.Finalize returns it.
type Clip struct {
	ID         string
	Samples    []float32
	SampleRate uint32
}

// Empty reports whether no frames were captured.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Buffer accumulates frames for at most one live session. A single mutex
// covers both the recording flag and the chunk list, so a frame delivered
// concurrently with Finalize is either in the clip or dropped, never torn.
type Buffer struct {
	sampleRate uint32

	mu        sync.Mutex
	recording bool
	id        string
	chunks    [][]float32
	n         int
}

// NewBuffer creates an idle buffer for audio at sampleRate.
func NewBuffer(sampleRate uint32) *Buffer {
	return &Buffer{sampleRate: sampleRate}
}

// Begin clears any stale frames and starts accepting Append calls. It
// returns the new session's ID.
func (b *Buffer) Begin() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.n = 0
	b.id = uuid.NewString()
	b.recording = true
	return b.id
}

// Append copies frames into the live session. It is a no-op when no
// session is live. Safe to call from the audio device goroutine.
func (b *Buffer) Append(frames []float32) {
	if len(frames) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording {
		return
	}
	chunk := make([]float32, len(frames))
	copy(chunk, frames)
	b.chunks = append(b.chunks, chunk)
	b.n += len(chunk)
}

// Finalize ends the live session and returns its frames as one contiguous
// clip. Internal storage is released. Calling Finalize with no live
// session returns an empty clip.
func (b *Buffer) Finalize() Clip {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recording = false
	clip := Clip{ID: b.id, SampleRate: b.sampleRate}
	if b.n > 0 {
		clip.Samples = make([]float32, 0, b.n)
		for _, c := range b.chunks {
			clip.Samples = append(clip.Samples, c...)
		}
	}
	b.chunks = nil
	b.n = 0
	b.id = ""
	return clip
}

// Recording reports whether a session is live.
func (b *Buffer) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recording
}

// Len returns the number of samples captured so far in the live session.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}
