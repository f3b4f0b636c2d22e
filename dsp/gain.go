package dsp

import "github.com/fieldrec/fieldrec/pcm"

// ApplyGain multiplies every sample in chunk by level's multiplier,
// saturating to int16, per §4.5 step 2-3.
func ApplyGain(level pcm.GainLevel, samples []int16) {
	g := level.Multiplier()
	if g == 1 {
		return
	}
	for i, x := range samples {
		samples[i] = pcm.ClampSample(float64(x) * float64(g))
	}
}
