package reduce

import (
	"encoding/binary"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/fieldrec/fieldrec/fft"
	"github.com/fieldrec/fieldrec/pcm"
	"github.com/fieldrec/fieldrec/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, samples []int16, format pcm.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	w, err := wav.Create(path, format)
	require.NoError(t, err)

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	require.NoError(t, w.Write(buf))
	require.NoError(t, w.Close())
	return path
}

// TestIdempotenceOnSilence is the §8 "Noise-reduction idempotence on
// silence" property: applied to an all-zero WAV with a profile at least
// FFT_SIZE long, the output equals the input exactly.
func TestIdempotenceOnSilence(t *testing.T) {
	format := pcm.Format{SampleRate: pcm.Rate44100, Channels: 1, BitDepth: 16}
	samples := make([]int16, 44100*2) // 2s of silence
	path := writeTestWAV(t, samples, format)

	cfg := Config{ReductionDB: 12, Sensitivity: 12, FreqSmoothingBands: 2, ProfileSeconds: 1}
	require.NoError(t, Process(path, cfg, nil))

	r, err := wav.Open(path)
	require.NoError(t, err)
	defer r.Close()
	out, err := r.ReadAllSamples()
	require.NoError(t, err)

	for _, s := range out {
		assert.Zero(t, s)
	}
}

func TestProcessRejectsShortProfile(t *testing.T) {
	format := pcm.Format{SampleRate: pcm.Rate44100, Channels: 1, BitDepth: 16}
	samples := make([]int16, 100)
	path := writeTestWAV(t, samples, format)

	cfg := Config{ReductionDB: 12, Sensitivity: 12, ProfileSeconds: 0.5}
	err := Process(path, cfg, nil)
	assert.ErrorIs(t, err, pcm.ErrInsufficientProfile)
}

// TestReducesWhiteNoisePlusTone is the literal §8 scenario 4: 3s of
// white noise (sigma=500) plus a 1kHz sine (amplitude 8000), with 0.5s
// of pure noise prepended as the profile window. Expect the 1kHz bin
// magnitude to decrease by at most 10%, and an out-of-band bin's
// magnitude to decrease by at least 12dB.
func TestReducesWhiteNoisePlusTone(t *testing.T) {
	const sampleRate = 44100
	format := pcm.Format{SampleRate: sampleRate, Channels: 1, BitDepth: 16}

	rng := rand.New(rand.NewSource(1))
	profileSamples := sampleRate / 2 // 0.5s of pure noise
	toneSamples := 3 * sampleRate

	total := profileSamples + toneSamples
	samples := make([]int16, total)
	for i := 0; i < profileSamples; i++ {
		samples[i] = pcm.ClampSample(rng.NormFloat64() * 500)
	}
	for i := 0; i < toneSamples; i++ {
		noise := rng.NormFloat64() * 500
		tone := 8000 * math.Sin(2*math.Pi*1000*float64(i)/sampleRate)
		samples[profileSamples+i] = pcm.ClampSample(noise + tone)
	}

	path := writeTestWAV(t, samples, format)

	cfg := Config{ReductionDB: 12, Sensitivity: 6, FreqSmoothingBands: 0, ProfileSeconds: 0.5}
	require.NoError(t, Process(path, cfg, nil))

	r, err := wav.Open(path)
	require.NoError(t, err)
	defer r.Close()
	out, err := r.ReadAllSamples()
	require.NoError(t, err)

	binHz := float64(sampleRate) / FFTSize
	toneBin := int(1000/binHz + 0.5)
	oobBin := int(10000/binHz + 0.5) // far from the 1kHz tone and its Hann sidelobes

	window := samples[profileSamples+sampleRate : profileSamples+sampleRate+FFTSize]
	outWindow := out[profileSamples+sampleRate : profileSamples+sampleRate+FFTSize]

	toneBefore := magnitudeAtBin(window, toneBin)
	toneAfter := magnitudeAtBin(outWindow, toneBin)
	assert.GreaterOrEqual(t, toneAfter, toneBefore*0.9,
		"in-band tone bin should decrease by no more than 10%%")

	oobBefore := magnitudeAtBin(window, oobBin)
	oobAfter := magnitudeAtBin(outWindow, oobBin)
	require.Greater(t, oobBefore, 1e-6, "out-of-band bin needs nonzero noise energy to measure a dB drop")
	dropDB := 20 * math.Log10(oobBefore/math.Max(oobAfter, 1e-9))
	assert.GreaterOrEqual(t, dropDB, 12.0,
		"out-of-band noise bin should drop by at least 12dB")
}

func magnitudeAtBin(samples []int16, bin int) float64 {
	real := make([]float64, FFTSize)
	imag := make([]float64, FFTSize)
	window := fft.HannWindow(FFTSize)
	for i, s := range samples {
		real[i] = float64(s) / 32768 * window[i]
	}
	fft.Forward(real, imag)
	return math.Hypot(real[bin], imag[bin])
}
