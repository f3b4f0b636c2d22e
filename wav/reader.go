package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fieldrec/fieldrec/pcm"
)

// Probe validates a WAV file's header and returns the format it
// describes, without reading any sample data. Grounded on the
// ValidateWAVHeader helper pattern seen across the other_examples
// recorder implementations: a cheap check a host app can run before
// deciding whether to hand the file to reduce.Process.
func Probe(path string) (pcm.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Format{}, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return pcm.Format{}, fmt.Errorf("%w: %v", pcm.ErrMalformedHeader, err)
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		return pcm.Format{}, err
	}
	return h.Format(), nil
}

// Reader streams PCM samples back out of a finished WAV file, used by the
// noise reducer's ingest step (§4.9.1).
type Reader struct {
	f      *os.File
	Header Header
}

// Open validates the header and positions the reader at the start of the
// PCM data.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", pcm.ErrMalformedHeader, err)
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{f: f, Header: h}, nil
}

// Format returns the format described by the header.
func (r *Reader) Format() pcm.Format {
	return r.Header.Format()
}

// ReadAllSamples reads every remaining interleaved 16-bit sample in the
// file.
func (r *Reader) ReadAllSamples() ([]int16, error) {
	raw := make([]byte, r.Header.DataSize)
	if _, err := io.ReadFull(r.f, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", pcm.ErrMalformedHeader, err)
	}
	raw = pcm.TrimToWholeFrames(raw)
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}
