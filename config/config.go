// Package config loads on-disk defaults for the effect chain and noise
// reducer, mirroring the teacher's deviceid.go: an optional YAML file is
// unmarshalled over hardcoded fallback values, rather than failing if
// the file is missing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldrec/fieldrec/dsp"
	"github.com/fieldrec/fieldrec/pcm"
	"github.com/fieldrec/fieldrec/reduce"
)

// Defaults holds the gain/filter/gate/reduction presets a host app would
// otherwise hardcode, per SPEC_FULL.md's AMBIENT STACK configuration
// section.
type Defaults struct {
	GainLevel   string `yaml:"gain_level"`
	HPFMode     int    `yaml:"hpf_mode"`
	LPFMode     int    `yaml:"lpf_mode"`
	GateEnabled bool   `yaml:"gate_enabled"`

	Gate GateDefaults `yaml:"gate"`

	ReductionPresets map[string]ReductionPreset `yaml:"reduction_presets"`
}

// GateDefaults mirrors dsp.GateConfig's tunable fields (sample rate is
// supplied by the session, not the config file).
type GateDefaults struct {
	ThresholdRMS float64 `yaml:"threshold_rms"`
	AttackMS     float64 `yaml:"attack_ms"`
	ReleaseMS    float64 `yaml:"release_ms"`
	HoldMS       float64 `yaml:"hold_ms"`
}

// ReductionPreset names a reduce.Config tuple, per SPEC_FULL.md's
// "light/medium/aggressive" preset idea.
type ReductionPreset struct {
	ReductionDB        float64 `yaml:"reduction_db"`
	Sensitivity        float64 `yaml:"sensitivity"`
	FreqSmoothingBands int     `yaml:"freq_smoothing_bands"`
	ProfileSeconds     float64 `yaml:"profile_seconds"`
}

// defaultConfig is used whenever no file is present or a field is
// absent from it.
func defaultConfig() Defaults {
	return Defaults{
		GainLevel:   "off",
		HPFMode:     int(pcm.HPFOff),
		LPFMode:     int(pcm.LPFOff),
		GateEnabled: false,
		Gate: GateDefaults{
			ThresholdRMS: 400,
			AttackMS:     5,
			ReleaseMS:    500,
			HoldMS:       300,
		},
		ReductionPresets: map[string]ReductionPreset{
			"light":      {ReductionDB: 6, Sensitivity: 18, FreqSmoothingBands: 1, ProfileSeconds: 1},
			"medium":     {ReductionDB: 12, Sensitivity: 12, FreqSmoothingBands: 2, ProfileSeconds: 1},
			"aggressive": {ReductionDB: 20, Sensitivity: 6, FreqSmoothingBands: 3, ProfileSeconds: 1.5},
		},
	}
}

// Load reads path, if it exists, and overlays it onto defaultConfig().
// A missing file is not an error: it returns the hardcoded defaults, per
// the teacher's "optional config, hardcoded fallback" idiom.
func Load(path string) (Defaults, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Defaults{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// GainLevelValue parses the defaults' gain_level string into a
// pcm.GainLevel, defaulting to GainOff on an unrecognized value.
func (d Defaults) GainLevelValue() pcm.GainLevel {
	switch d.GainLevel {
	case "6db", "+6db":
		return pcm.Gain6dB
	case "12db", "+12db":
		return pcm.Gain12dB
	default:
		return pcm.GainOff
	}
}

// GateConfig builds a dsp.GateConfig from the defaults at the given
// sample rate.
func (d Defaults) GateConfig(rate pcm.SampleRate) dsp.GateConfig {
	return dsp.GateConfig{
		ThresholdRMS: d.Gate.ThresholdRMS,
		AttackMS:     d.Gate.AttackMS,
		ReleaseMS:    d.Gate.ReleaseMS,
		HoldMS:       d.Gate.HoldMS,
		SampleRate:   rate,
	}
}

// ReductionConfig looks up a named preset and converts it to a
// reduce.Config. Returns false if the preset name is unknown.
func (d Defaults) ReductionConfig(preset string) (reduce.Config, bool) {
	p, ok := d.ReductionPresets[preset]
	if !ok {
		return reduce.Config{}, false
	}
	return reduce.Config{
		ReductionDB:        p.ReductionDB,
		Sensitivity:        p.Sensitivity,
		FreqSmoothingBands: p.FreqSmoothingBands,
		ProfileSeconds:     p.ProfileSeconds,
	}, true
}
