package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExternalInput(t *testing.T) {
	assert.True(t, Info{Kind: KindUSB}.IsExternalInput())
	assert.True(t, Info{Kind: KindWiredHeadset}.IsExternalInput())
	assert.False(t, Info{Kind: KindBuiltInMic}.IsExternalInput())
	assert.False(t, Info{Kind: KindBluetoothA2DP}.IsExternalInput())
}

func TestPreferredOutputPriorityOrder(t *testing.T) {
	devices := []Info{
		{ID: "speaker", Kind: KindBuiltInSpeaker, MaxOutputs: 2},
		{ID: "wired", Kind: KindWiredHeadset, MaxOutputs: 2},
		{ID: "sco", Kind: KindBluetoothSCO, MaxOutputs: 2},
		{ID: "a2dp", Kind: KindBluetoothA2DP, MaxOutputs: 2},
	}
	got, ok := PreferredOutput(devices, "")
	assert.True(t, ok)
	assert.Equal(t, "a2dp", got.ID)
}

func TestPreferredOutputExcludesCurrentInput(t *testing.T) {
	devices := []Info{
		{ID: "mic-as-output", Kind: KindBluetoothA2DP, MaxOutputs: 2},
		{ID: "speaker", Kind: KindBuiltInSpeaker, MaxOutputs: 2},
	}
	got, ok := PreferredOutput(devices, "mic-as-output")
	assert.True(t, ok)
	assert.Equal(t, "speaker", got.ID)
}

func TestPreferredOutputNoneQualify(t *testing.T) {
	devices := []Info{{ID: "mic", Kind: KindBuiltInMic, MaxOutputs: 0}}
	_, ok := PreferredOutput(devices, "")
	assert.False(t, ok)
}

func TestFeedbackRisk(t *testing.T) {
	builtinOnly := []Info{
		{ID: "mic", Kind: KindBuiltInMic, MaxOutputs: 0},
		{ID: "speaker", Kind: KindBuiltInSpeaker, MaxOutputs: 2},
	}
	assert.True(t, FeedbackRisk(builtinOnly, "mic"))

	withHeadset := []Info{
		{ID: "mic", Kind: KindBuiltInMic, MaxOutputs: 0},
		{ID: "headset", Kind: KindWiredHeadset, MaxOutputs: 2},
	}
	assert.False(t, FeedbackRisk(withHeadset, "mic"))

	externalInput := []Info{
		{ID: "usb-mic", Kind: KindUSB, MaxOutputs: 0},
		{ID: "speaker", Kind: KindBuiltInSpeaker, MaxOutputs: 2},
	}
	assert.False(t, FeedbackRisk(externalInput, "usb-mic"))
}

func TestRegistryGetByID(t *testing.T) {
	r := &Registry{
		observers: make(map[int]Observer),
		known: map[string]Info{
			"mic": {ID: "mic", Kind: KindBuiltInMic, DisplayName: "Built-in Mic"},
		},
	}

	got, ok := r.GetByID("mic")
	assert.True(t, ok)
	assert.Equal(t, "Built-in Mic", got.DisplayName)

	_, ok = r.GetByID("nonexistent")
	assert.False(t, ok)
}

func TestLeaseExclusivity(t *testing.T) {
	var l Lease
	assert.NoError(t, l.Acquire("capture"))
	assert.ErrorIs(t, l.Acquire("monitor"), ErrDeviceBusy)
	assert.NoError(t, l.Acquire("capture")) // idempotent re-entry
	l.Release("capture")
	assert.Equal(t, "", l.Owner())
	assert.NoError(t, l.Acquire("monitor"))
}

func TestLeaseReleaseByNonOwnerIsNoop(t *testing.T) {
	var l Lease
	require := assert.New(t)
	require.NoError(l.Acquire("capture"))
	l.Release("monitor")
	require.Equal("capture", l.Owner())
}
