package capture

import (
	"sync"

	"github.com/fieldrec/fieldrec/device"
	"github.com/fieldrec/fieldrec/dsp"
	"github.com/fieldrec/fieldrec/pcm"
)

// standaloneOwner is the device.Lease owner name the standalone loop
// registers under, distinct from the capture engine's, per §4.7's
// hand-off protocol.
const standaloneOwner = "standalone-monitor"

// Standalone is the monitor loop from §4.7: it acquires its own input
// device, runs the identical effect chain §4.5 applies (minus the WAV
// writer), and feeds the shared Monitor sink. It exists only so
// monitoring keeps working while no capture session holds the input
// device.
type Standalone struct {
	mu       sync.Mutex
	running  bool
	lease    *device.Lease
	monitor  *Monitor
	effects  *EffectConfig
	rate     pcm.SampleRate
	channels int
	gateCfg  dsp.GateConfig
	gateSt   dsp.GateState
	hpf, lpf *filterStage
	openFn   func() (FrameSource, error)
	source   FrameSource
	done     chan struct{}
	loopDone chan struct{}
}

// NewStandalone wires a Standalone loop. openFn opens the input device
// it will read from once Start is called (injectable so tests can avoid
// touching real hardware).
func NewStandalone(lease *device.Lease, monitor *Monitor, effects *EffectConfig, format pcm.Format, gateCfg dsp.GateConfig, openFn func() (FrameSource, error)) *Standalone {
	return &Standalone{
		lease:    lease,
		monitor:  monitor,
		effects:  effects,
		rate:     format.SampleRate,
		channels: format.Channels,
		gateCfg:  gateCfg,
		hpf:      newFilterStage(true),
		lpf:      newFilterStage(false),
		openFn:   openFn,
	}
}

// Start acquires the input device and begins the read/effect/feed loop.
// Idempotent: calling Start while already running is a no-op success.
func (s *Standalone) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := s.lease.Acquire(standaloneOwner); err != nil {
		return err
	}
	source, err := s.openFn()
	if err != nil {
		s.lease.Release(standaloneOwner)
		return err
	}

	s.source = source
	s.gateSt = dsp.GateState{}
	s.done = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.running = true

	go s.loop(source, s.done, s.loopDone)
	return nil
}

// Stop releases the input device and stops feeding the monitor.
// Idempotent: calling Stop while not running is a no-op success. Per
// §4.7, capture's resume() must call this before re-acquiring the
// device, and capture's start() must call this before acquiring it.
func (s *Standalone) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done, loopDone, source := s.done, s.loopDone, s.source
	s.running = false
	s.mu.Unlock()

	close(done)
	source.Close() // unblocks a pending device Read
	<-loopDone
	s.lease.Release(standaloneOwner)
	return nil
}

func (s *Standalone) loop(source FrameSource, done, loopDone chan struct{}) {
	defer close(loopDone)
	buf := make([]int16, 2048)

	for {
		select {
		case <-done:
			return
		default:
		}

		// A Read error ends the loop whether it came from Stop()'s Close()
		// unblocking a pending read or from a genuine device failure: the
		// standalone loop has no error callback to report through (unlike
		// the capture engine), so there's nothing more useful to do than
		// stop feeding the monitor.
		n, err := source.Read(buf)
		if err != nil {
			return
		}
		chunk := pcm.TrimSamplesToWholeFrames(buf[:n], s.channels)
		if len(chunk) == 0 {
			continue
		}

		dsp.ApplyGain(s.effects.GainLevel(), chunk)
		s.hpf.process(int32(s.effects.HPFMode()), s.rate, chunk)
		s.lpf.process(int32(s.effects.LPFMode()), s.rate, chunk)
		if s.effects.GateEnabled() {
			dsp.ProcessChunk(s.gateCfg, &s.gateSt, chunk)
		}

		s.monitor.Feed(chunk)
	}
}
