// Package pcm defines the shared data model for the capture pipeline:
// interleaved 16-bit PCM frames, the audio format they carry, and the
// semantic error kinds raised across the WAV, DSP, device, capture, and
// noise-reduction packages.
package pcm

import "fmt"

// SampleRate is one of the sample rates the capture pipeline accepts.
type SampleRate int

// Supported sample rates, per the capture contract.
const (
	Rate8000  SampleRate = 8000
	Rate16000 SampleRate = 16000
	Rate22050 SampleRate = 22050
	Rate32000 SampleRate = 32000
	Rate44100 SampleRate = 44100
	Rate48000 SampleRate = 48000
)

// Valid reports whether r is one of the supported capture sample rates.
func (r SampleRate) Valid() bool {
	switch r {
	case Rate8000, Rate16000, Rate22050, Rate32000, Rate44100, Rate48000:
		return true
	default:
		return false
	}
}

// Format describes an immutable 16-bit PCM stream shape. BitDepth is
// always 16; it's carried explicitly so downstream code (wav.Header) never
// has to hardcode the constant in more than one place.
type Format struct {
	SampleRate SampleRate
	Channels   int
	BitDepth   int
}

// BytesPerSample is fixed at 2 for this pipeline (16-bit PCM).
const BytesPerSample = 2

// BlockAlign is the byte size of one interleaved frame (all channels).
func (f Format) BlockAlign() int {
	return f.Channels * BytesPerSample
}

// ByteRate is the number of PCM bytes produced per second of audio.
func (f Format) ByteRate() int {
	return int(f.SampleRate) * f.BlockAlign()
}

// Validate reports whether the format is one this pipeline supports.
func (f Format) Validate() error {
	if !f.SampleRate.Valid() {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: channels %d", ErrUnsupportedFormat, f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, f.BitDepth)
	}
	return nil
}

// GainLevel is the discrete input gain boost applied before filtering.
type GainLevel int

const (
	GainOff GainLevel = iota
	Gain6dB
	Gain12dB
)

// Multiplier returns the linear gain multiplier for the level, per §4.5:
// OFF -> 1, +6dB -> 2, +12dB -> 4.
func (g GainLevel) Multiplier() int {
	switch g {
	case Gain6dB:
		return 2
	case Gain12dB:
		return 4
	default:
		return 1
	}
}

// HPFMode selects the high-pass filter cutoff, or disables it.
type HPFMode int

const (
	HPFOff HPFMode = 0
	HPF80  HPFMode = 80
	HPF120 HPFMode = 120
)

// LPFMode selects the low-pass filter cutoff, or disables it.
type LPFMode int

const (
	LPFOff   LPFMode = 0
	LPF9500  LPFMode = 9500
	LPF15000 LPFMode = 15000
)

// ClampSample rounds x to the nearest integer and saturates it to the
// range a 16-bit signed PCM sample can hold.
func ClampSample(x float64) int16 {
	r := x
	if r >= 0 {
		r += 0.5
	} else {
		r -= 0.5
	}
	switch {
	case r > 32767:
		return 32767
	case r < -32768:
		return -32768
	default:
		return int16(r)
	}
}

// FrameCount returns how many complete interleaved frames fit in a buffer
// of the given byte length at this format's block alignment.
func (f Format) FrameCount(byteLen int) int {
	ba := f.BlockAlign()
	if ba == 0 {
		return 0
	}
	return byteLen / ba
}

// TrimToWholeFrames truncates b to the largest multiple of the
// per-sample byte width (2 bytes), i.e. to whole 16-bit samples (not
// whole multi-channel frames), matching §4.5 step 1: a buffer read
// from the device may end mid-sample and must be trimmed before any
// processing sees it.
func TrimToWholeFrames(b []byte) []byte {
	n := len(b) - (len(b) % BytesPerSample)
	return b[:n]
}

// TrimSamplesToWholeFrames truncates samples (already-decoded int16
// values) to the largest multiple of channels, for sources (like a
// portaudio stream) that hand back whole samples rather than raw bytes
// but can still short-read mid-frame.
func TrimSamplesToWholeFrames(samples []int16, channels int) []int16 {
	if channels <= 0 {
		return samples[:0]
	}
	n := len(samples) - (len(samples) % channels)
	return samples[:n]
}
