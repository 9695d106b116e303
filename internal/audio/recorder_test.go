package audio

import (
	"testing"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(16000, 1)
	if err != nil {
		t.Skipf("no audio backend available: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return r
}

func TestNewRecorderAndClose(t *testing.T) {
	r := newTestRecorder(t)

	if r.sampleRate != 16000 {
		t.Errorf("sampleRate = %d, want 16000", r.sampleRate)
	}
	if r.channels != 1 {
		t.Errorf("channels = %d, want 1", r.channels)
	}
}

func TestRecorderNotCapturingByDefault(t *testing.T) {
	r := newTestRecorder(t)

	if r.IsCapturing() {
		t.Error("IsCapturing() should be false after creation")
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := newTestRecorder(t)

	if err := r.Stop(); err != nil {
		t.Errorf("Stop() without Start() error = %v", err)
	}
}

func TestBytesToFloat32(t *testing.T) {
	// 1.0 = 0x3F800000
	data := []byte{0x00, 0x00, 0x80, 0x3F}
	samples := bytesToFloat32(data, 1)

	if len(samples) != 1 {
		t.Fatalf("bytesToFloat32() returned %d samples, want 1", len(samples))
	}
	if samples[0] != 1.0 {
		t.Errorf("bytesToFloat32() = %f, want 1.0", samples[0])
	}
}

func TestBytesToFloat32Multiple(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // 0.0
		0x00, 0x00, 0x80, 0xBF, // -1.0
	}
	samples := bytesToFloat32(data, 2)

	if len(samples) != 2 {
		t.Fatalf("bytesToFloat32() returned %d samples, want 2", len(samples))
	}
	if samples[0] != 0.0 {
		t.Errorf("samples[0] = %f, want 0.0", samples[0])
	}
	if samples[1] != -1.0 {
		t.Errorf("samples[1] = %f, want -1.0", samples[1])
	}
}

func TestBytesToFloat32Truncated(t *testing.T) {
	// Claims two samples but only carries one and a half.
	data := []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00}
	if got := bytesToFloat32(data, 2); len(got) != 1 {
		t.Errorf("bytesToFloat32() returned %d samples, want 1", len(got))
	}
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := downmix(stereo, 2)

	want := []float32{0.5, 0.5, 0}
	if len(mono) != len(want) {
		t.Fatalf("downmix() returned %d samples, want %d", len(mono), len(want))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("mono[%d] = %f, want %f", i, mono[i], want[i])
		}
	}

	if got := downmix(stereo, 1); len(got) != len(stereo) {
		t.Error("downmix() with one channel should return input unchanged")
	}
}
