package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldrec/fieldrec/device"
	"github.com/fieldrec/fieldrec/dsp"
	"github.com/fieldrec/fieldrec/pcm"
	"github.com/fieldrec/fieldrec/reduce"
	"github.com/fieldrec/fieldrec/wav"
)

// VisualizationInterval is RECORDING_VISUALIZATION_INTERVAL from §4.5:
// the engine posts on_progress roughly this often.
const VisualizationInterval = 75 * time.Millisecond

// stopJoinTimeout bounds how long stop() waits for the worker goroutine
// before finalizing anyway, per §4.5 "joins with bounded timeout (5s)".
const stopJoinTimeout = 5 * time.Second

// EngineConfig is everything Start needs to bring up a capture session,
// per §3 CaptureSession and §6's start() contract.
type EngineConfig struct {
	Format        pcm.Format
	InputDeviceID string
	OutputPath    string
	BufferFrames  int

	Lease      *device.Lease
	Dispatcher Dispatcher
	Monitor    *Monitor
	Standalone *Standalone
	GateConfig dsp.GateConfig

	// ReduceConfig, when non-nil and Effects().NoiseReductionEnabled() is
	// true at stop time, is run synchronously during stop()'s Finalizing
	// phase, per §4.5/§4.9.
	ReduceConfig *reduce.Config

	// OpenSource overrides the default portaudio-backed input stream,
	// used by tests to drive the worker loop with a fake.
	OpenSource func(deviceID string, format pcm.Format, bufferFrames int) (FrameSource, error)
}

// Engine is the capture engine from §4.5: owns one input device, one
// effect chain, one WAV file, and optionally a reference to the
// monitor sink.
type Engine struct {
	mu     sync.Mutex
	status Status
	cfg    EngineConfig

	source FrameSource
	writer *wav.Writer

	effects *EffectConfig
	gateSt  dsp.GateState
	hpf     *filterStage
	lpf     *filterStage

	durationFrames atomic.Int64
	lastAmplitude  atomic.Uint64 // float64 bits

	done     chan struct{}
	loopDone chan struct{}
}

// NewEngine constructs an idle engine with effects all off.
func NewEngine() *Engine {
	return &Engine{
		status:  Idle,
		effects: NewEffectConfig(),
		hpf:     newFilterStage(true),
		lpf:     newFilterStage(false),
	}
}

// Effects exposes the live, atomically-guarded effect configuration so
// a host can call its setters from any state, per §6.
func (e *Engine) Effects() *EffectConfig { return e.effects }

// Status reports the current lifecycle position.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Level returns the RMS (0..1 normalized against int16 full scale) of
// the most recently processed chunk, independent of on_progress — the
// corpus-grounded live-meter supplement documented in SPEC_FULL.md.
func (e *Engine) Level() float64 {
	return math.Float64frombits(e.lastAmplitude.Load())
}

// DurationMs reports the accumulated recorded duration. Per the
// duration-tracking design decision, this value only ever advances
// inside the worker loop's per-chunk accumulation — pause()/resume()
// merely stop or resume that accumulation, they never adjust it
// directly.
func (e *Engine) DurationMs() int64 {
	frames := e.durationFrames.Load()
	rate := int64(e.cfg.Format.SampleRate)
	if rate == 0 {
		return 0
	}
	return frames * 1000 / rate
}

// Start opens the output file and input device and transitions
// Idle -> Running, per §4.5.
func (e *Engine) Start(cfg EngineConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != Idle {
		return fmt.Errorf("%w: start called in state %s", pcm.ErrRecorderInit, e.status)
	}
	if err := cfg.Format.Validate(); err != nil {
		return err
	}
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = int(cfg.Format.SampleRate) / 10 // ~100ms default
	}

	// §4.7 hand-off: capture start must release the standalone loop's
	// hold on the input device first.
	if cfg.Standalone != nil {
		if err := cfg.Standalone.Stop(); err != nil {
			return err
		}
	}

	writer, err := wav.Create(cfg.OutputPath, cfg.Format)
	if err != nil {
		return err
	}

	if err := cfg.Lease.Acquire("capture"); err != nil {
		writer.Close()
		return err
	}

	openSource := cfg.OpenSource
	if openSource == nil {
		openSource = OpenInputStream
	}
	source, err := openSource(cfg.InputDeviceID, cfg.Format, cfg.BufferFrames)
	if err != nil {
		writer.Close()
		cfg.Lease.Release("capture")
		return fmt.Errorf("%w: %v", pcm.ErrRecorderInit, err)
	}

	e.cfg = cfg
	e.writer = writer
	e.source = source
	e.gateSt = dsp.GateState{}
	e.hpf = newFilterStage(true)
	e.lpf = newFilterStage(false)
	e.durationFrames.Store(0)
	e.done = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.status = Running

	go e.runWorker(source, e.done, e.loopDone)

	cfg.Dispatcher.startRecord(cfg.OutputPath)
	return nil
}

// Pause stops device reads but keeps the WAV file and effect state
// alive, transitioning Running -> Paused, per §4.5. Idempotent when
// already Paused or Idle.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.status != Running {
		e.mu.Unlock()
		return nil
	}
	done, loopDone, source := e.done, e.loopDone, e.source
	e.status = Paused
	cfg := e.cfg
	e.mu.Unlock()

	// Join the worker goroutine without holding e.mu: source.Read may be
	// mid-block on a slow device, and a lock held across that wait would
	// stall any concurrent Status()/Start()/Resume() call for no reason,
	// same as Stop() below is careful to avoid.
	close(done)
	source.Close() // unblocks a pending device Read
	<-loopDone

	// Clear e.source now that it's closed, so a Stop() called directly
	// from Paused (no intervening Resume) doesn't close it a second time.
	e.mu.Lock()
	e.source = nil
	e.mu.Unlock()

	cfg.Lease.Release("capture")

	// §4.7: capture pause should start standalone mode so the user keeps
	// hearing audio.
	if cfg.Standalone != nil {
		cfg.Standalone.Start()
	}
	cfg.Dispatcher.pauseRecord()
	return nil
}

// Resume re-acquires the device and transitions Paused -> Running.
// Idempotent when already Running.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.status != Paused {
		e.mu.Unlock()
		return nil
	}
	cfg := e.cfg
	e.mu.Unlock()

	// §4.7: resume must stop standalone before re-acquiring the device.
	if cfg.Standalone != nil {
		if err := cfg.Standalone.Stop(); err != nil {
			return err
		}
	}

	if err := cfg.Lease.Acquire("capture"); err != nil {
		return err
	}
	openSource := cfg.OpenSource
	if openSource == nil {
		openSource = OpenInputStream
	}
	source, err := openSource(cfg.InputDeviceID, cfg.Format, cfg.BufferFrames)
	if err != nil {
		cfg.Lease.Release("capture")
		return fmt.Errorf("%w: %v", pcm.ErrRecorderInit, err)
	}

	e.mu.Lock()
	e.source = source
	e.done = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.status = Running
	e.mu.Unlock()

	go e.runWorker(source, e.done, e.loopDone)

	cfg.Dispatcher.resumeRecord()
	return nil
}

// Stop transitions Running/Paused -> Stopping -> Finalizing -> Idle,
// finalizing the WAV file and optionally running noise reduction, per
// §4.5. Idempotent when already Idle.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.status == Idle {
		e.mu.Unlock()
		return nil
	}
	wasRunning := e.status == Running
	e.status = Stopping
	done, loopDone, source, writer := e.done, e.loopDone, e.source, e.writer
	cfg := e.cfg
	e.mu.Unlock()

	if wasRunning {
		close(done)
		source.Close()
		select {
		case <-loopDone:
		case <-time.After(stopJoinTimeout):
		}
	} else if source != nil {
		source.Close()
	}
	cfg.Lease.Release("capture")

	var stopErr error
	if err := writer.TailTrim(); err != nil {
		stopErr = err
	}
	if err := writer.Close(); err != nil && stopErr == nil {
		stopErr = err
	}

	e.mu.Lock()
	e.status = Finalizing
	e.mu.Unlock()

	if stopErr == nil && cfg.ReduceConfig != nil && e.effects.NoiseReductionEnabled() {
		if err := reduce.Process(cfg.OutputPath, *cfg.ReduceConfig, nil); err != nil {
			cfg.Dispatcher.errorf(err)
		}
	}

	e.mu.Lock()
	e.status = Idle
	e.mu.Unlock()

	if stopErr != nil {
		cfg.Dispatcher.errorf(stopErr)
	}
	cfg.Dispatcher.stopRecord(cfg.OutputPath)
	return stopErr
}

// runWorker is the per-chunk capture worker loop from §4.5.
func (e *Engine) runWorker(source FrameSource, done, loopDone chan struct{}) {
	defer close(loopDone)

	format := e.cfg.Format
	buf := make([]int16, e.cfg.BufferFrames*format.Channels)
	var framesSinceProgress int64

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := source.Read(buf)
		if err != nil {
			select {
			case <-done:
				// Read was unblocked by our own Close() during an
				// intentional shutdown, not a device failure.
				return
			default:
			}
			e.cfg.Dispatcher.errorf(fmt.Errorf("%w: %v", pcm.ErrRecordingError, err))
			go e.Stop()
			return
		}
		chunk := pcm.TrimSamplesToWholeFrames(buf[:n], format.Channels)
		if len(chunk) == 0 {
			continue
		}

		dsp.ApplyGain(e.effects.GainLevel(), chunk)
		e.hpf.process(int32(e.effects.HPFMode()), format.SampleRate, chunk)
		e.lpf.process(int32(e.effects.LPFMode()), format.SampleRate, chunk)

		e.lastAmplitude.Store(math.Float64bits(chunkRMS(chunk) / 32768))

		if e.effects.GateEnabled() {
			dsp.ProcessChunk(e.cfg.GateConfig, &e.gateSt, chunk)
		}

		if e.effects.MonitoringEnabled() && e.cfg.Monitor != nil {
			cpy := append([]int16(nil), chunk...)
			e.cfg.Monitor.Feed(cpy)
		}

		if err := e.writer.Write(int16sToBytes(chunk)); err != nil {
			e.cfg.Dispatcher.errorf(err)
			go e.Stop()
			return
		}

		frameCount := len(chunk) / format.Channels
		e.durationFrames.Add(int64(frameCount))
		framesSinceProgress += int64(frameCount)

		if intervalFrames := int64(VisualizationInterval.Seconds() * float64(format.SampleRate)); framesSinceProgress >= intervalFrames {
			framesSinceProgress = 0
			e.cfg.Dispatcher.progress(e.DurationMs(), e.Level())
		}
	}
}

func chunkRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		fs := float64(s)
		sumSq += fs * fs
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

func int16sToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
