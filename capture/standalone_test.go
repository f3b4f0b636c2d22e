package capture

import (
	"testing"
	"time"

	"github.com/fieldrec/fieldrec/device"
	"github.com/fieldrec/fieldrec/dsp"
	"github.com/fieldrec/fieldrec/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStandalone(t *testing.T, chunks [][]int16) (*Standalone, *fakeSource, *fakeSink, *device.Lease) {
	t.Helper()
	lease := &device.Lease{}
	sink := newFakeSink()
	monitor := NewMonitor(sink)
	effects := NewEffectConfig()

	var source *fakeSource
	openFn := func() (FrameSource, error) {
		source = newFakeSource(chunks)
		return source, nil
	}

	s := NewStandalone(lease, monitor, effects, testEngineFormat(), dsp.GateConfig{
		ThresholdRMS: 400, AttackMS: 5, ReleaseMS: 500, HoldMS: 300, SampleRate: pcm.Rate44100,
	}, openFn)
	require.NoError(t, s.Start())
	// source is assigned inside openFn, called synchronously by Start.
	return s, source, sink, lease
}

func TestStandaloneFeedsMonitor(t *testing.T) {
	s, _, sink, lease := testStandalone(t, [][]int16{{100, 200, 300}})

	assert.Equal(t, standaloneOwner, lease.Owner())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(sink.snapshot()) == 0 {
		time.Sleep(time.Millisecond)
	}
	assert.NotEmpty(t, sink.snapshot())

	require.NoError(t, s.Stop())
	assert.Equal(t, "", lease.Owner())
}

func TestStandaloneStartIsIdempotent(t *testing.T) {
	s, _, _, _ := testStandalone(t, [][]int16{{1, 2, 3}})
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestStandaloneStopIsIdempotent(t *testing.T) {
	s, _, _, _ := testStandalone(t, [][]int16{{1, 2, 3}})
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestStandaloneReleasesLeaseForCaptureHandoff(t *testing.T) {
	lease := &device.Lease{}
	sink := newFakeSink()
	monitor := NewMonitor(sink)
	effects := NewEffectConfig()
	openFn := func() (FrameSource, error) {
		return newFakeSource([][]int16{{1, 2}}), nil
	}
	standalone := NewStandalone(lease, monitor, effects, testEngineFormat(), dsp.GateConfig{SampleRate: pcm.Rate44100, AttackMS: 5, ReleaseMS: 500, HoldMS: 300, ThresholdRMS: 400}, openFn)
	require.NoError(t, standalone.Start())
	assert.Equal(t, standaloneOwner, lease.Owner())

	// Capture's hand-off protocol (§4.7): starting capture must stop
	// standalone first so the lease is free for capture to acquire.
	require.NoError(t, standalone.Stop())
	assert.NoError(t, lease.Acquire("capture"))
}
