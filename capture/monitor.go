package capture

import "sync"

// Monitor is the monitor sink from §4.6: it owns an output device at
// the capture format and feeds it post-effect audio with bounded,
// non-blocking writes. Feed adds no samples of its own: if nothing calls
// it, output simply underflows. The portaudio-backed sink writes whole
// device buffers, so it pads a chunk shorter than its buffer with zeros.
type Monitor struct {
	mu     sync.Mutex
	sink   FrameSink
	paused bool
	volume float64
}

// NewMonitor wraps sink at full volume, unpaused.
func NewMonitor(sink FrameSink) *Monitor {
	return &Monitor{sink: sink, volume: 1}
}

// SetVolume clamps v to [0,1], per §4.6.
func (m *Monitor) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	m.mu.Lock()
	m.volume = v
	m.mu.Unlock()
}

// Pause and Resume toggle feeding without tearing down the output
// device, per §4.6.
func (m *Monitor) Pause()  { m.mu.Lock(); m.paused = true; m.mu.Unlock() }
func (m *Monitor) Resume() { m.mu.Lock(); m.paused = false; m.mu.Unlock() }

// Feed writes chunk to the output device, scaled by volume. It never
// blocks the caller beyond whatever FrameSink.Write itself does (for the
// portaudio-backed sink, at most one buffer period); if the device
// buffer is smaller than chunk, the excess is silently dropped by the
// underlying FrameSink, per §4.6's back-pressure-without-stalling
// contract.
func (m *Monitor) Feed(chunk []int16) error {
	m.mu.Lock()
	paused, volume := m.paused, m.volume
	m.mu.Unlock()

	if paused {
		return nil
	}
	if volume != 1 {
		scaled := make([]int16, len(chunk))
		for i, s := range chunk {
			scaled[i] = int16(float64(s) * volume)
		}
		chunk = scaled
	}
	_, err := m.sink.Write(chunk)
	return err
}

// Close releases the output device.
func (m *Monitor) Close() error {
	return m.sink.Close()
}
