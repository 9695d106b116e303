// Package cue plays the short feedback tones around a recording: a high
// tone when capture starts, a low tone when it stops and a double tone
// when transcribed text is about to be typed.
package cue

import (
	"fmt"
	"math"
)

// Kind selects a cue.
type Kind int

const (
	Start Kind = iota
	Stop
	Done
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SampleRate of generated tones.
const SampleRate = 44100

const (
	startFreq = 880
	stopFreq  = 440
	doneFreq  = 660

	toneDuration = 0.1
	doneGap      = 0.05
	fadeDuration = 0.01
)

// Tone returns mono float32 samples for kind at the given volume (0..1).
func Tone(kind Kind, volume float64) []float32 {
	switch kind {
	case Start:
		return sine(startFreq, toneDuration, volume)
	case Stop:
		return sine(stopFreq, toneDuration, volume)
	case Done:
		beep := sine(doneFreq, toneDuration, volume)
		gap := make([]float32, int(SampleRate*doneGap))
		out := make([]float32, 0, 2*len(beep)+len(gap))
		out = append(out, beep...)
		out = append(out, gap...)
		return append(out, beep...)
	default:
		return nil
	}
}

// sine generates a tone with a linear fade at both ends to avoid clicks.
func sine(freq, duration, volume float64) []float32 {
	n := int(SampleRate * duration)
	fade := int(SampleRate * fadeDuration)
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / SampleRate
		v := math.Sin(2*math.Pi*freq*t) * volume
		switch {
		case i < fade:
			v *= float64(i) / float64(fade)
		case i >= n-fade:
			v *= float64(n-1-i) / float64(fade)
		}
		out[i] = float32(v)
	}
	return out
}

// Silent is a cue player that plays nothing.
type Silent struct{}

// Play does nothing.
func (Silent) Play(Kind) {}
