package transcribe

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
)

// WriteWAV encodes mono float32 samples as 16-bit PCM WAV. Samples
// outside [-1, 1] are clipped.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate uint32) error {
	enc := wav.NewEncoder(w, int(sampleRate), wavBitDepth, 1, wavPCMFormat)

	data := make([]int, len(samples))
	for i, s := range samples {
		s = max(-1, min(1, s))
		data[i] = int(s * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: int(sampleRate)},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("transcribe: encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("transcribe: finishing wav: %w", err)
	}
	return nil
}

// writeWAVFile writes samples to path as WAV.
func writeWAVFile(path string, samples []float32, sampleRate uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("transcribe: creating %s: %w", path, err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
