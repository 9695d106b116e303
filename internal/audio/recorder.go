package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrAlreadyCapturing is returned by Start while a device is running.
var ErrAlreadyCapturing = errors.New("audio: already capturing")

// FrameFunc receives mono float32 frames from the capture goroutine.
type FrameFunc func(frames []float32)

// Recorder opens the default microphone on Start and closes it on Stop.
// Multi-channel input is averaged down to mono before delivery.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	sampleRate uint32
	channels   uint32

	mu     sync.Mutex
	device *malgo.Device
}

// NewRecorder creates a new audio recorder. Call Close() when done.
func NewRecorder(sampleRate, channels uint32) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}

	return &Recorder{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// Start begins capturing from the default microphone, calling onFrames for
// every delivered period until Stop.
func (r *Recorder) Start(onFrames FrameFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		return ErrAlreadyCapturing
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = r.sampleRate

	channels := r.channels
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pSample []byte, frameCount uint32) {
			onFrames(downmix(bytesToFloat32(pSample, frameCount*channels), channels))
		},
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return fmt.Errorf("audio: initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("audio: starting capture device: %w", err)
	}

	r.device = device
	return nil
}

// Stop halts delivery. No onFrames call is in flight once Stop returns.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return nil
	}
	err := r.device.Stop()
	r.device.Uninit()
	r.device = nil
	if err != nil {
		return fmt.Errorf("audio: stopping capture device: %w", err)
	}
	return nil
}

// IsCapturing returns whether the device is running.
func (r *Recorder) IsCapturing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device != nil
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	_ = r.Stop()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}

	return nil
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// downmix averages interleaved channels into mono.
func downmix(samples []float32, channels uint32) []float32 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / int(channels)
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < int(channels); c++ {
			sum += samples[i*int(channels)+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
