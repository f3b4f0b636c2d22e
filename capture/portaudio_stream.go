package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/fieldrec/fieldrec/pcm"
)

// portaudioSource is the real FrameSource, a thin blocking-Read wrapper
// around portaudio.Stream, grounded on the OpenDefaultStream/stream.Read
// blocking-loop style used throughout the other_examples recorders
// (Danondso-palaver, voxflow) rather than portaudio's callback style —
// the spec's "capture worker loop" (§4.5) reads one step at a time, which
// maps onto blocking Read much more directly than a callback.
type portaudioSource struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenInputStream opens deviceID (or the default input device if empty)
// at format, with a read buffer of bufferFrames frames as given by the
// caller; the buffer is not sized from the device's minimum read size.
func OpenInputStream(deviceID string, format pcm.Format, bufferFrames int) (FrameSource, error) {
	dev, err := resolveInputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	buf := make([]int16, bufferFrames*format.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: format.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: bufferFrames,
	}
	stream, err := portaudio.OpenStream(params, &buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return &portaudioSource{stream: stream, buf: buf}, nil
}

func (s *portaudioSource) Read(out []int16) (int, error) {
	if err := s.stream.Read(); err != nil {
		return 0, err
	}
	n := copy(out, s.buf)
	return n, nil
}

func (s *portaudioSource) Close() error {
	s.stream.Stop()
	return s.stream.Close()
}

// portaudioSink is the real FrameSink behind Monitor, per §4.6.
type portaudioSink struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenOutputStream opens deviceID (or the default output device if
// empty) at format, with a write buffer of bufferFrames frames as given
// by the caller; the buffer is not sized from the device's minimum.
func OpenOutputStream(deviceID string, format pcm.Format, bufferFrames int) (FrameSink, error) {
	dev, err := resolveOutputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	buf := make([]int16, bufferFrames*format.Channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: format.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: bufferFrames,
	}
	stream, err := portaudio.OpenStream(params, &buf)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	return &portaudioSink{stream: stream, buf: buf}, nil
}

// Write copies as many samples as fit in the device buffer and drops
// the rest; when samples is shorter than the buffer, the remainder is
// filled with zeros. The stream write blocks for up to one buffer period.
func (s *portaudioSink) Write(samples []int16) (int, error) {
	n := copy(s.buf, samples)
	if n < len(s.buf) {
		for i := n; i < len(s.buf); i++ {
			s.buf[i] = 0
		}
	}
	if err := s.stream.Write(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *portaudioSink) Close() error {
	s.stream.Stop()
	return s.stream.Close()
}

func resolveInputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", deviceID)
}

func resolveOutputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("output device %q not found", deviceID)
}
