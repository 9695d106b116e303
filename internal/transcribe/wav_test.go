package transcribe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chaz8081/speakd/internal/config"
	"github.com/go-audio/wav"
)

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	samples := []float32{0, 0.5, -0.5, 1, -1, 2, -2}
	if err := writeWAVFile(path, samples, 16000); err != nil {
		t.Fatalf("writeWAVFile() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode WAV: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("format = %d Hz / %d ch / %d bit, want 16000/1/16", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	want := []int{0, 16383, -16383, 32767, -32767, 32767, -32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(want))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, buf.Data[i], want[i])
		}
	}
}

func TestNewBackendSelection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TranscribeConfig
		want    string
		wantErr bool
	}{
		{"default", config.TranscribeConfig{}, "whisper-cli", false},
		{"whisper-cli", config.TranscribeConfig{Backend: "whisper-cli"}, "whisper-cli", false},
		{"openai", config.TranscribeConfig{Backend: "openai", OpenAI: config.OpenAIConfig{APIKey: "sk"}}, "openai", false},
		{"openai without key", config.TranscribeConfig{Backend: "openai"}, "", true},
		{"unknown", config.TranscribeConfig{Backend: "parakeet"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && m.Name() != tt.want {
				t.Errorf("New().Name() = %q, want %q", m.Name(), tt.want)
			}
		})
	}
}

func TestNewWiresAutoDownload(t *testing.T) {
	m, err := New(&config.TranscribeConfig{Backend: "whisper-cli", AutoDownload: true})
	if err != nil {
		t.Fatal(err)
	}
	if m.(*WhisperCLI).cfg.Download == nil {
		t.Error("auto_download should set a downloader")
	}
}
