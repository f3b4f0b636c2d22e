package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldrec/fieldrec/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testFormat() pcm.Format {
	return pcm.Format{SampleRate: pcm.Rate44100, Channels: 1, BitDepth: 16}
}

// TestRoundTripHeader is §8 scenario 1: start at 44.1kHz mono, write 4
// chunks of 2048 samples of value +100, stop.
func TestRoundTripHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	format := testFormat()

	w, err := Create(path, format)
	require.NoError(t, err)

	chunk := make([]byte, 2048*2)
	for i := 0; i < 2048; i++ {
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(100))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, w.Write(chunk))
	}
	require.NoError(t, w.TailTrim())
	require.NoError(t, w.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)

	// 200ms at 44.1kHz mono is 17640 bytes, more than the 16384 written,
	// so §4.1's "skipped if the resulting data length would be <= 0" rule
	// leaves the data untrimmed here.
	writtenBytes := 4 * 2048 * 2
	trimBytes := TrimFrameCount(format.SampleRate) * format.BlockAlign()
	wantDataSize := writtenBytes
	if trimBytes < writtenBytes {
		wantDataSize = writtenBytes - trimBytes
	}
	assert.EqualValues(t, wantDataSize+HeaderSize, fi.Size())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	h, err := DecodeHeader(raw)
	require.NoError(t, err)

	assert.EqualValues(t, wantDataSize, h.DataSize)
	assert.EqualValues(t, 1, h.AudioFormat)
	assert.EqualValues(t, 16, h.BitsPerSample)
	assert.EqualValues(t, format.BlockAlign(), h.BlockAlign)
	assert.EqualValues(t, format.ByteRate(), h.ByteRate)

	// First post-header sample equals 100 (little-endian 0x64, 0x00).
	assert.Equal(t, byte(0x64), raw[HeaderSize])
	assert.Equal(t, byte(0x00), raw[HeaderSize+1])
}

// TestHeaderInvariants is the §8 "Header correctness" property, checked
// across arbitrary formats and whole-frame data sizes (a capture only
// ever writes whole frames, per §8 "Frame alignment").
func TestHeaderInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.SampledFrom([]pcm.SampleRate{
			pcm.Rate8000, pcm.Rate16000, pcm.Rate22050,
			pcm.Rate32000, pcm.Rate44100, pcm.Rate48000,
		}).Draw(t, "rate")
		channels := rapid.SampledFrom([]int{1, 2}).Draw(t, "channels")
		format := pcm.Format{SampleRate: rate, Channels: channels, BitDepth: 16}

		frames := rapid.Uint32Range(0, 1<<18).Draw(t, "frames")
		dataSize := frames * uint32(format.BlockAlign())
		h := NewHeader(format)
		h.SetDataSize(dataSize)

		fileSize := uint64(HeaderSize) + uint64(dataSize)
		assert.EqualValues(t, fileSize-HeaderSize, h.DataSize)
		assert.EqualValues(t, fileSize-8, uint64(h.RiffSize))
		assert.EqualValues(t, h.DataSize+36, h.RiffSize)
		assert.EqualValues(t, format.ByteRate(), h.ByteRate)
		assert.EqualValues(t, format.BlockAlign(), h.BlockAlign)
		assert.EqualValues(t, 1, h.AudioFormat)
		assert.EqualValues(t, 16, h.BitsPerSample)
		assert.Zero(t, h.DataSize%uint32(format.BlockAlign()))
	})
}

func TestDecodeHeaderRejectsShortFile(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 10))
	assert.ErrorIs(t, err, pcm.ErrMalformedHeader)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := NewHeader(testFormat()).Bytes()
	buf[0] = 'X'
	_, err := DecodeHeader(buf)
	assert.ErrorIs(t, err, pcm.ErrMalformedHeader)
}

func TestDecodeHeaderRejectsNon16Bit(t *testing.T) {
	h := NewHeader(testFormat())
	h.BitsPerSample = 8
	_, err := DecodeHeader(h.Bytes())
	assert.ErrorIs(t, err, pcm.ErrUnsupportedFormat)
}

func TestProbeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.wav")
	format := testFormat()
	w, err := Create(path, format)
	require.NoError(t, err)
	require.NoError(t, w.Write(make([]byte, 100)))
	require.NoError(t, w.Close())

	got, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, format, got)
}

func TestReaderReadAllSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.wav")
	format := testFormat()
	w, err := Create(path, format)
	require.NoError(t, err)

	chunk := make([]byte, 6)
	binary.LittleEndian.PutUint16(chunk[0:], uint16(int16(-5)))
	binary.LittleEndian.PutUint16(chunk[2:], uint16(int16(100)))
	binary.LittleEndian.PutUint16(chunk[4:], uint16(int16(30000)))
	require.NoError(t, w.Write(chunk))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	samples, err := r.ReadAllSamples()
	require.NoError(t, err)
	assert.Equal(t, []int16{-5, 100, 30000}, samples)
}
