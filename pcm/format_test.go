package pcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFormatBlockAlign(t *testing.T) {
	f := Format{SampleRate: Rate44100, Channels: 2, BitDepth: 16}
	assert.Equal(t, 4, f.BlockAlign())
	assert.Equal(t, 176400, f.ByteRate())
}

func TestFormatValidate(t *testing.T) {
	assert.NoError(t, Format{SampleRate: Rate48000, Channels: 1, BitDepth: 16}.Validate())
	assert.ErrorIs(t, Format{SampleRate: 12345, Channels: 1, BitDepth: 16}.Validate(), ErrUnsupportedFormat)
	assert.ErrorIs(t, Format{SampleRate: Rate48000, Channels: 3, BitDepth: 16}.Validate(), ErrUnsupportedFormat)
	assert.ErrorIs(t, Format{SampleRate: Rate48000, Channels: 1, BitDepth: 8}.Validate(), ErrUnsupportedFormat)
}

func TestGainMultiplier(t *testing.T) {
	assert.Equal(t, 1, GainOff.Multiplier())
	assert.Equal(t, 2, Gain6dB.Multiplier())
	assert.Equal(t, 4, Gain12dB.Multiplier())
}

// TestClampSampleSaturation is the §8 "Gain saturation" property: for all
// inputs x and levels g, the emitted sample equals
// clamp(round(x*g), -32768, 32767); identity holds for level OFF.
func TestClampSampleSaturation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Int32Range(-32768, 32767).Draw(t, "x")
		level := rapid.SampledFrom([]GainLevel{GainOff, Gain6dB, Gain12dB}).Draw(t, "level")

		g := level.Multiplier()
		got := ClampSample(float64(x) * float64(g))

		want := int64(x) * int64(g)
		switch {
		case want > 32767:
			assert.EqualValues(t, 32767, got)
		case want < -32768:
			assert.EqualValues(t, -32768, got)
		default:
			assert.EqualValues(t, want, got)
		}

		if level == GainOff {
			assert.EqualValues(t, x, got)
		}
	})
}

func TestTrimToWholeFrames(t *testing.T) {
	assert.Len(t, TrimToWholeFrames(make([]byte, 7)), 6)
	assert.Len(t, TrimToWholeFrames(make([]byte, 8)), 8)
}

func TestFrameCount(t *testing.T) {
	f := Format{SampleRate: Rate44100, Channels: 2, BitDepth: 16}
	assert.Equal(t, 10, f.FrameCount(40))
	assert.Equal(t, 0, (Format{}).FrameCount(40))
}
