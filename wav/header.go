// Package wav implements the canonical 44-byte PCM RIFF/WAVE header used
// throughout the capture pipeline: a placeholder-then-rewrite Writer for
// streaming capture, and a Reader/Probe pair for validating and loading
// finished files ahead of noise reduction.
//
// The header layout mirrors msiner-sdrplay-go/helpers/wav's NewHeader/
// Update split, simplified to the fixed 16-bit-PCM, no-fact-chunk subset
// this system actually produces (§3 WavFile, §4.1).
package wav

import (
	"encoding/binary"
	"fmt"

	"github.com/fieldrec/fieldrec/pcm"
)

// HeaderSize is the fixed size, in bytes, of the canonical header this
// package reads and writes. There is no "fact" chunk and no extension
// field: just RIFF/WAVE, a 16-byte "fmt ", and a "data" chunk header.
const HeaderSize = 44

// Header is the in-memory representation of a canonical 44-byte PCM WAV
// header. Field offsets match §3/§4.1 exactly.
type Header struct {
	RiffID       [4]byte // "RIFF"
	RiffSize     uint32  // file_size - 8
	WaveID       [4]byte // "WAVE"
	FmtID        [4]byte // "fmt "
	FmtSize      uint32  // 16 for PCM
	AudioFormat  uint16  // 1 = integer PCM
	NumChannels  uint16
	SampleRate   uint32
	ByteRate     uint32
	BlockAlign   uint16
	BitsPerSample uint16
	DataID       [4]byte // "data"
	DataSize     uint32
}

// NewHeader builds a placeholder header (data_size = 0) for the given
// format, ready to be written at file-open time and rewritten once the
// final frame count is known.
func NewHeader(f pcm.Format) Header {
	h := Header{
		RiffID:        [4]byte{'R', 'I', 'F', 'F'},
		WaveID:        [4]byte{'W', 'A', 'V', 'E'},
		FmtID:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.ByteRate()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitDepth),
		DataID:        [4]byte{'d', 'a', 't', 'a'},
	}
	h.SetDataSize(0)
	return h
}

// SetDataSize updates DataSize and the derived RiffSize, following §4.1:
// on close, the header is rewritten with the final data_size and
// file_size-8; byte_rate and block_align don't change after NewHeader
// since the format is immutable for the session.
func (h *Header) SetDataSize(dataSize uint32) {
	h.DataSize = dataSize
	h.RiffSize = dataSize + (HeaderSize - 8)
}

// Format reconstructs the pcm.Format this header describes.
func (h Header) Format() pcm.Format {
	return pcm.Format{
		SampleRate: pcm.SampleRate(h.SampleRate),
		Channels:   int(h.NumChannels),
		BitDepth:   int(h.BitsPerSample),
	}
}

// Encode writes the 44-byte little-endian header representation to buf,
// which must be at least HeaderSize bytes.
func (h Header) Encode(buf []byte) {
	copy(buf[0:4], h.RiffID[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.RiffSize)
	copy(buf[8:12], h.WaveID[:])
	copy(buf[12:16], h.FmtID[:])
	binary.LittleEndian.PutUint32(buf[16:20], h.FmtSize)
	binary.LittleEndian.PutUint16(buf[20:22], h.AudioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], h.NumChannels)
	binary.LittleEndian.PutUint32(buf[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], h.ByteRate)
	binary.LittleEndian.PutUint16(buf[32:34], h.BlockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], h.BitsPerSample)
	copy(buf[36:40], h.DataID[:])
	binary.LittleEndian.PutUint32(buf[40:44], h.DataSize)
}

// Bytes returns the encoded 44-byte header.
func (h Header) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	h.Encode(buf)
	return buf
}

// DecodeHeader parses a 44-byte canonical header, validating magic and
// rejecting anything other than 16-bit PCM, per §4.1.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes, want at least %d", pcm.ErrMalformedHeader, len(buf), HeaderSize)
	}
	var h Header
	copy(h.RiffID[:], buf[0:4])
	h.RiffSize = binary.LittleEndian.Uint32(buf[4:8])
	copy(h.WaveID[:], buf[8:12])
	if string(h.RiffID[:]) != "RIFF" || string(h.WaveID[:]) != "WAVE" {
		return Header{}, fmt.Errorf("%w: bad RIFF/WAVE magic", pcm.ErrMalformedHeader)
	}
	copy(h.FmtID[:], buf[12:16])
	h.FmtSize = binary.LittleEndian.Uint32(buf[16:20])
	h.AudioFormat = binary.LittleEndian.Uint16(buf[20:22])
	h.NumChannels = binary.LittleEndian.Uint16(buf[22:24])
	h.SampleRate = binary.LittleEndian.Uint32(buf[24:28])
	h.ByteRate = binary.LittleEndian.Uint32(buf[28:32])
	h.BlockAlign = binary.LittleEndian.Uint16(buf[32:34])
	h.BitsPerSample = binary.LittleEndian.Uint16(buf[34:36])
	copy(h.DataID[:], buf[36:40])
	h.DataSize = binary.LittleEndian.Uint32(buf[40:44])

	if h.AudioFormat != 1 {
		return Header{}, fmt.Errorf("%w: audio_format %d", pcm.ErrUnsupportedFormat, h.AudioFormat)
	}
	if h.BitsPerSample != 16 {
		return Header{}, fmt.Errorf("%w: bits_per_sample %d", pcm.ErrUnsupportedFormat, h.BitsPerSample)
	}
	return h, nil
}
