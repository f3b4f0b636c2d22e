// Package capture implements the capture engine (§4.5), the monitor
// sink (§4.6), and the standalone monitor loop (§4.7) — the real-time
// heart of the system. The worker loops in this package talk to actual
// audio hardware through the FrameSource/FrameSink interfaces defined
// here rather than directly to portaudio, the same seam the
// msiner-sdrplay-go session package draws between its Run loop and the
// underlying device API, so the loops themselves can be driven by a
// fake in tests.
package capture

import (
	"sync/atomic"

	"github.com/fieldrec/fieldrec/pcm"
)

// Status is the CaptureSession lifecycle position, per §3/§4.5.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Stopping
	Finalizing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopping:
		return "Stopping"
	case Finalizing:
		return "Finalizing"
	default:
		return "Unknown"
	}
}

// Recorder is the capability set a capture implementation exposes to its
// host: start/pause/resume/stop, state inspection through Status (which
// covers is-recording and is-paused), and the live effect setters reached
// through Effects. Engine is the WAV implementation.
type Recorder interface {
	Start(cfg EngineConfig) error
	Pause() error
	Resume() error
	Stop() error
	Status() Status
	Effects() *EffectConfig
}

var _ Recorder = (*Engine)(nil)

// FrameSource is the capture worker's read side: a device or a fake
// that blocks until up to len(buf) interleaved int16 samples are
// available, returning the number of samples actually filled.
type FrameSource interface {
	Read(buf []int16) (int, error)
	Close() error
}

// FrameSink is the monitor's write side: a device or a fake that
// accepts interleaved int16 samples, writing as much as fits without
// blocking the caller.
type FrameSink interface {
	Write(samples []int16) (int, error)
	Close() error
}

// EffectConfig holds the real-time effect chain's configuration flags.
// Per §5 "Shared resources", these are write-once-then-sticky: the UI
// thread writes, the capture/standalone worker reads, and a change
// takes effect at the next chunk boundary — implemented with
// word-size atomics rather than a mutex so the worker never blocks on a
// UI-thread write.
type EffectConfig struct {
	gain              atomic.Int32
	hpf               atomic.Int32
	lpf               atomic.Int32
	gateEnabled       atomic.Bool
	monitoringEnabled atomic.Bool
	noiseReductionOn  atomic.Bool
}

// NewEffectConfig returns a config with everything off, gain at unity.
func NewEffectConfig() *EffectConfig {
	c := &EffectConfig{}
	c.gain.Store(int32(pcm.GainOff))
	c.hpf.Store(int32(pcm.HPFOff))
	c.lpf.Store(int32(pcm.LPFOff))
	return c
}

func (c *EffectConfig) GainLevel() pcm.GainLevel     { return pcm.GainLevel(c.gain.Load()) }
func (c *EffectConfig) SetGainLevel(g pcm.GainLevel) { c.gain.Store(int32(g)) }

func (c *EffectConfig) HPFMode() pcm.HPFMode     { return pcm.HPFMode(c.hpf.Load()) }
func (c *EffectConfig) SetHPFMode(m pcm.HPFMode) { c.hpf.Store(int32(m)) }

func (c *EffectConfig) LPFMode() pcm.LPFMode     { return pcm.LPFMode(c.lpf.Load()) }
func (c *EffectConfig) SetLPFMode(m pcm.LPFMode) { c.lpf.Store(int32(m)) }

func (c *EffectConfig) GateEnabled() bool     { return c.gateEnabled.Load() }
func (c *EffectConfig) SetGateEnabled(v bool) { c.gateEnabled.Store(v) }

func (c *EffectConfig) MonitoringEnabled() bool     { return c.monitoringEnabled.Load() }
func (c *EffectConfig) SetMonitoringEnabled(v bool) { c.monitoringEnabled.Store(v) }

func (c *EffectConfig) NoiseReductionEnabled() bool     { return c.noiseReductionOn.Load() }
func (c *EffectConfig) SetNoiseReductionEnabled(v bool) { c.noiseReductionOn.Store(v) }

// Dispatcher is the injectable callback surface from §6: the core never
// touches UI state directly, it posts events through Post (the host's
// "run on my UI thread" primitive) and these typed hooks. Any nil hook
// is simply skipped.
type Dispatcher struct {
	Post           func(func())
	OnStartRecord  func(path string)
	OnPauseRecord  func()
	OnResumeRecord func()
	OnStopRecord   func(finalPath string)
	OnProgress     func(durationMs int64, amplitude float64)
	OnError        func(err error)
}

func (d Dispatcher) post(fn func()) {
	if fn == nil {
		return
	}
	if d.Post != nil {
		d.Post(fn)
		return
	}
	fn()
}

func (d Dispatcher) startRecord(path string) {
	d.post(func() {
		if d.OnStartRecord != nil {
			d.OnStartRecord(path)
		}
	})
}

func (d Dispatcher) pauseRecord() {
	d.post(func() {
		if d.OnPauseRecord != nil {
			d.OnPauseRecord()
		}
	})
}

func (d Dispatcher) resumeRecord() {
	d.post(func() {
		if d.OnResumeRecord != nil {
			d.OnResumeRecord()
		}
	})
}

func (d Dispatcher) stopRecord(path string) {
	d.post(func() {
		if d.OnStopRecord != nil {
			d.OnStopRecord(path)
		}
	})
}

func (d Dispatcher) progress(durationMs int64, amplitude float64) {
	d.post(func() {
		if d.OnProgress != nil {
			d.OnProgress(durationMs, amplitude)
		}
	})
}

func (d Dispatcher) errorf(err error) {
	d.post(func() {
		if d.OnError != nil {
			d.OnError(err)
		}
	})
}
