package wav

import (
	"fmt"
	"os"

	"github.com/fieldrec/fieldrec/pcm"
)

// Writer streams PCM frames to a file, writing a placeholder header at
// Create and rewriting it with the final size at Close, per §4.1. Writing
// is append-only: Write never seeks, so it's safe to call from the
// capture worker goroutine on every chunk.
type Writer struct {
	f         *os.File
	format    pcm.Format
	dataBytes uint64
}

// Create opens path for writing, truncating any existing content, and
// writes the placeholder 44-byte header. path must already exist as a
// writable file per the capture contract's convention that the caller
// pre-creates it; Create itself is tolerant of a missing file and will
// create one, since that constraint is a host-API precondition, not a
// WAV-codec one.
func Create(path string, format pcm.Format) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pcm.ErrInvalidOutputFile, err)
	}
	h := NewHeader(format)
	if _, err := f.Write(h.Bytes()); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", pcm.ErrInvalidOutputFile, err)
	}
	return &Writer{f: f, format: format}, nil
}

// Write appends a chunk of interleaved PCM bytes. The chunk must contain
// whole frames; callers trim their samples with
// pcm.TrimSamplesToWholeFrames before encoding them to bytes.
func (w *Writer) Write(chunk []byte) error {
	n, err := w.f.Write(chunk)
	w.dataBytes += uint64(n)
	if err != nil {
		return fmt.Errorf("%w: %v", pcm.ErrRecordingError, err)
	}
	return nil
}

// DataBytes reports the number of PCM bytes written so far.
func (w *Writer) DataBytes() uint64 {
	return w.dataBytes
}

// TailTrim truncates the last 200ms of written PCM data to remove the
// stop transient, per §4.1. It must be called after the last Write and
// before Close. If the resulting data length would be <= 0, it's a no-op.
func (w *Writer) TailTrim() error {
	trimBytes := uint64(TrimFrameCount(w.format.SampleRate)) * uint64(w.format.BlockAlign())
	if trimBytes == 0 || trimBytes >= w.dataBytes {
		return nil
	}
	newDataBytes := w.dataBytes - trimBytes
	if err := w.f.Truncate(int64(HeaderSize) + int64(newDataBytes)); err != nil {
		return fmt.Errorf("%w: tail trim: %v", pcm.ErrRecordingError, err)
	}
	w.dataBytes = newDataBytes
	return nil
}

// TrimFrameCount returns floor(0.2*sample_rate), the number of frames the
// 200ms tail trim removes, per §4.1.
func TrimFrameCount(rate pcm.SampleRate) int {
	return int(0.2 * float64(rate))
}

// Close rewrites the header with the final data size and closes the file.
func (w *Writer) Close() error {
	h := NewHeader(w.format)
	h.SetDataSize(uint32(w.dataBytes))
	if _, err := w.f.WriteAt(h.Bytes(), 0); err != nil {
		w.f.Close()
		return fmt.Errorf("%w: header finalize: %v", pcm.ErrRecordingError, err)
	}
	return w.f.Close()
}
