package pcm

import "errors"

// Error kinds raised across the capture, WAV, and noise-reduction
// packages. These are sentinel values rather than a custom error type:
// callers match with errors.Is, and call sites wrap with fmt.Errorf
// ("...: %w") to add context, following the plain-error idiom used
// throughout this codebase.
var (
	// ErrInvalidOutputFile is raised when capture Start cannot open the
	// output sink.
	ErrInvalidOutputFile = errors.New("fieldrec: invalid output file")

	// ErrRecorderInit is raised when the input device cannot be opened at
	// the requested format.
	ErrRecorderInit = errors.New("fieldrec: recorder init failed")

	// ErrRecordingError is raised when a write fails mid-session.
	ErrRecordingError = errors.New("fieldrec: recording error")

	// ErrUnsupportedFormat is raised when a WAV file is not 16-bit PCM, or
	// when a requested capture format is outside the supported set.
	ErrUnsupportedFormat = errors.New("fieldrec: unsupported format")

	// ErrMalformedHeader is raised when a WAV file's RIFF/WAVE header is
	// truncated or has bad magic.
	ErrMalformedHeader = errors.New("fieldrec: malformed wav header")

	// ErrInsufficientProfile is raised when the noise profile window is
	// smaller than the FFT size.
	ErrInsufficientProfile = errors.New("fieldrec: insufficient profile")

	// ErrInvalidLength is raised when FFT input length is not a power of two.
	ErrInvalidLength = errors.New("fieldrec: invalid fft length")
)
