package dsp

import (
	"math"

	"github.com/fieldrec/fieldrec/pcm"
)

// GateStatus is the noise gate's state machine position, per §3/§4.3.
type GateStatus int

const (
	GateClosed GateStatus = iota
	GateAttack
	GateOpen
	GateHold
	GateRelease
)

// GateConfig holds the gate's design parameters, per §3 GateConfig.
type GateConfig struct {
	ThresholdRMS float64
	AttackMS     float64
	ReleaseMS    float64
	HoldMS       float64
	SampleRate   pcm.SampleRate
}

// HysteresisRMS is 0.5*threshold, per §3.
func (c GateConfig) HysteresisRMS() float64 {
	return 0.5 * c.ThresholdRMS
}

func (c GateConfig) attackStep() float64 {
	return 1000 / (float64(c.SampleRate) * c.AttackMS)
}

func (c GateConfig) releaseStep() float64 {
	return 1000 / (float64(c.SampleRate) * c.ReleaseMS)
}

func (c GateConfig) holdSamples() float64 {
	return float64(c.SampleRate) * c.HoldMS / 1000
}

// GateState is the gate's mutable runtime state, per §3 GateState. Zero
// value is CLOSED/envelope=0/counter=0, the documented initial state.
type GateState struct {
	Status      GateStatus
	Envelope    float64
	HoldCounter float64
}

// Disable snaps the gate open, per §4.3: "Disabling the gate snaps
// envelope to 1 and state to OPEN."
func (s *GateState) Disable() {
	s.Status = GateOpen
	s.Envelope = 1
	s.HoldCounter = 0
}

// rms computes sqrt(sum(sample^2)/N) over a chunk of int16 samples.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range samples {
		fx := float64(x)
		sumSq += fx * fx
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// ProcessChunk runs one chunk-rate step of the §4.3 state machine and
// applies the resulting envelope to samples in place when it is below 1.
func ProcessChunk(c GateConfig, s *GateState, samples []int16) {
	n := float64(len(samples))
	level := rms(samples)

	switch s.Status {
	case GateClosed:
		if level > c.ThresholdRMS {
			s.Status = GateAttack
		}
	case GateAttack:
		s.Envelope += c.attackStep() * n
		if s.Envelope >= 1 {
			s.Envelope = 1
			s.Status = GateOpen
		}
	case GateOpen:
		if level < c.HysteresisRMS() {
			s.Status = GateHold
			s.HoldCounter = c.holdSamples()
		}
	case GateHold:
		s.HoldCounter -= n
		if s.HoldCounter <= 0 {
			s.Status = GateRelease
		} else if level > c.ThresholdRMS {
			s.Status = GateOpen
		}
	case GateRelease:
		s.Envelope -= c.releaseStep() * n
		if s.Envelope <= 0 {
			s.Envelope = 0
			s.Status = GateClosed
		} else if level > c.ThresholdRMS {
			s.Status = GateAttack
		}
	}

	if s.Envelope < 1 {
		for i, x := range samples {
			samples[i] = pcm.ClampSample(float64(x) * s.Envelope)
		}
	}
}
