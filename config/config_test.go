package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldrec/fieldrec/pcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, pcm.GainOff, cfg.GainLevelValue())
	assert.Contains(t, cfg.ReductionPresets, "medium")
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldrec.yaml")
	content := `
gain_level: 6db
gate_enabled: true
gate:
  threshold_rms: 300
  attack_ms: 10
  release_ms: 400
  hold_ms: 250
reduction_presets:
  custom:
    reduction_db: 18
    sensitivity: 10
    freq_smoothing_bands: 2
    profile_seconds: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, pcm.Gain6dB, cfg.GainLevelValue())
	assert.True(t, cfg.GateEnabled)
	assert.Equal(t, 300.0, cfg.Gate.ThresholdRMS)

	preset, ok := cfg.ReductionConfig("custom")
	require.True(t, ok)
	assert.Equal(t, 18.0, preset.ReductionDB)

	_, ok = cfg.ReductionConfig("nonexistent")
	assert.False(t, ok)
}

func TestGateConfigUsesSampleRate(t *testing.T) {
	cfg := defaultConfig()
	gc := cfg.GateConfig(pcm.Rate48000)
	assert.Equal(t, pcm.Rate48000, gc.SampleRate)
	assert.Equal(t, cfg.Gate.ThresholdRMS, gc.ThresholdRMS)
}
