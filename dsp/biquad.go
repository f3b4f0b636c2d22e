// Package dsp implements the per-sample effect chain applied by the
// capture worker and the standalone monitor loop: gain, biquad HPF/LPF,
// and the chunk-rate noise gate (§4.2, §4.3, §4.5 step 2-3).
package dsp

import (
	"math"

	"github.com/fieldrec/fieldrec/pcm"
)

// FilterQ is the fixed Q factor used for all HPF/LPF coefficient design,
// per §3 BiquadCoeffs.
const FilterQ = 0.7071

// BiquadCoeffs is a normalized (a0 == 1) set of direct-form-I
// coefficients, per §3.
type BiquadCoeffs struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// BiquadState holds the per-filter history a Biquad mutates on every
// sample. Zero value is the correct reset state at session start.
type BiquadState struct {
	X1, X2 float64
	Y1, Y2 float64
}

// Reset clears the filter history, per §3 "reset at session start".
func (s *BiquadState) Reset() {
	*s = BiquadState{}
}

// HighPassCoeffs designs a second-order Butterworth high-pass, per §4.2.
func HighPassCoeffs(cutoffHz float64, sampleRate pcm.SampleRate) BiquadCoeffs {
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)
	alpha := sinW0 / (2 * FilterQ)

	a0 := 1 + alpha
	return BiquadCoeffs{
		B0: ((1 + cosW0) / 2) / a0,
		B1: (-(1 + cosW0)) / a0,
		B2: ((1 + cosW0) / 2) / a0,
		A1: (-2 * cosW0) / a0,
		A2: (1 - alpha) / a0,
	}
}

// LowPassCoeffs designs a second-order Butterworth low-pass, per §4.2.
func LowPassCoeffs(cutoffHz float64, sampleRate pcm.SampleRate) BiquadCoeffs {
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)
	alpha := sinW0 / (2 * FilterQ)

	a0 := 1 + alpha
	return BiquadCoeffs{
		B0: ((1 - cosW0) / 2) / a0,
		B1: (1 - cosW0) / a0,
		B2: ((1 - cosW0) / 2) / a0,
		A1: (-2 * cosW0) / a0,
		A2: (1 - alpha) / a0,
	}
}

// Apply runs the direct-form-I difference equation on a single sample,
// mutating state and returning the filtered double-precision output.
// Rounding/clamping to int16 is the caller's job (§4.2: "converted to
// 16-bit integer via rounded clamp").
func Apply(c BiquadCoeffs, s *BiquadState, x float64) float64 {
	y := c.B0*x + c.B1*s.X1 + c.B2*s.X2 - c.A1*s.Y1 - c.A2*s.Y2
	s.X2, s.X1 = s.X1, x
	s.Y2, s.Y1 = s.Y1, y
	return y
}

// ApplyChunk filters an interleaved int16 buffer in place as a single
// sequence, sharing one state across all channels, per §4.2's explicit
// "matches source behavior" note.
func ApplyChunk(c BiquadCoeffs, s *BiquadState, samples []int16) {
	for i, x := range samples {
		y := Apply(c, s, float64(x))
		samples[i] = pcm.ClampSample(y)
	}
}
