package cue

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// Player plays cues on the default output device. Play never blocks:
// playback is started on a separate goroutine and a newer cue replaces
// one still sounding.
type Player struct {
	ctx   *malgo.AllocatedContext
	tones map[Kind][]byte
	log   *slog.Logger

	mu     sync.Mutex
	device *malgo.Device

	// read by the device callback
	playing atomic.Pointer[[]byte]
	pos     atomic.Uint32
}

// NewPlayer pre-renders all cues at volume and opens a playback context.
func NewPlayer(volume float64, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("cue: initializing context: %w", err)
	}

	p := &Player{
		ctx:   ctx,
		tones: make(map[Kind][]byte, 3),
		log:   logger,
	}
	for _, k := range []Kind{Start, Stop, Done} {
		p.tones[k] = float32Bytes(Tone(k, volume))
	}
	return p, nil
}

// Play starts kind and returns immediately.
func (p *Player) Play(kind Kind) {
	samples, ok := p.tones[kind]
	if !ok || len(samples) == 0 {
		return
	}
	go p.play(samples)
}

func (p *Player) play(samples []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		if err := p.initDevice(); err != nil {
			p.log.Debug("[cue] playback device unavailable", "error", err)
			return
		}
	}

	_ = p.device.Stop()
	p.pos.Store(0)
	p.playing.Store(&samples)

	if err := p.device.Start(); err != nil {
		// The device can go stale across sleep/wake; rebuild once.
		p.device.Uninit()
		p.device = nil
		if err := p.initDevice(); err != nil {
			p.playing.Store(nil)
			return
		}
		if err := p.device.Start(); err != nil {
			p.playing.Store(nil)
			p.log.Debug("[cue] starting playback failed", "error", err)
		}
	}
}

func (p *Player) initDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = SampleRate

	device, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: p.onData})
	if err != nil {
		return fmt.Errorf("cue: initializing playback device: %w", err)
	}
	p.device = device
	return nil
}

// onData copies the current cue into the output period and pads with
// silence.
func (p *Player) onData(pOutput, _ []byte, frameCount uint32) {
	want := frameCount * 4
	samples := p.playing.Load()
	var n uint32
	if samples != nil {
		pos := p.pos.Load()
		total := uint32(len(*samples))
		if pos < total {
			n = min(want, total-pos)
			copy(pOutput[:n], (*samples)[pos:pos+n])
			p.pos.Store(pos + n)
		} else {
			p.playing.Store(nil)
		}
	}
	clear(pOutput[n:want])
}

// Close releases the playback device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}

func float32Bytes(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
