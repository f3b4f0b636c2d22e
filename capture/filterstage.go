package capture

import (
	"github.com/fieldrec/fieldrec/dsp"
	"github.com/fieldrec/fieldrec/pcm"
)

// filterStage wraps a single biquad so its coefficients are only
// recomputed when the effect config's mode actually changes (modes map
// directly onto cutoff-frequency enum values in pcm, e.g. pcm.HPF80 ==
// 80), and so a mode change resets filter history instead of carrying
// over state designed for a different cutoff.
type filterStage struct {
	isHighPass bool
	lastMode   int32
	coeffs     dsp.BiquadCoeffs
	state      dsp.BiquadState
}

func newFilterStage(isHighPass bool) *filterStage {
	return &filterStage{isHighPass: isHighPass}
}

// process is a no-op when mode is the "off" value (0, shared by
// pcm.HPFOff and pcm.LPFOff).
func (f *filterStage) process(mode int32, rate pcm.SampleRate, samples []int16) {
	if mode == 0 {
		return
	}
	if mode != f.lastMode {
		cutoff := float64(mode)
		if f.isHighPass {
			f.coeffs = dsp.HighPassCoeffs(cutoff, rate)
		} else {
			f.coeffs = dsp.LowPassCoeffs(cutoff, rate)
		}
		f.state.Reset()
		f.lastMode = mode
	}
	dsp.ApplyChunk(f.coeffs, &f.state, samples)
}
