package transcribe

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	flacBlockSize     = 4096
	flacBitsPerSample = 16
)

// EncodeFLAC encodes mono float32 samples as 16-bit FLAC for uploads.
// Samples outside [-1, 1] are clipped.
func EncodeFLAC(w io.Writer, samples []float32, sampleRate uint32) error {
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    sampleRate,
		NChannels:     1,
		BitsPerSample: flacBitsPerSample,
		NSamples:      uint64(len(samples)),
	}
	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return fmt.Errorf("transcribe: creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for off := 0; off < len(samples); off += flacBlockSize {
		block := samples[off:min(off+flacBlockSize, len(samples))]
		pcm := make([]int32, len(block))
		for i, s := range block {
			s = max(-1, min(1, s))
			pcm[i] = int32(s * 32767)
		}

		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(len(block)),
				SampleRate:    sampleRate,
				Channels:      frame.ChannelsMono,
				BitsPerSample: flacBitsPerSample,
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   pcm,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			return fmt.Errorf("transcribe: writing flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("transcribe: finishing flac: %w", err)
	}
	return nil
}
