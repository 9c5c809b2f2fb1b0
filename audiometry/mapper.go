// Package audiometry implements the hearing threshold test procedure and
// the mapping from measured thresholds to signal-path parameters.
//
// This file implements the profile mapper: pure functions that convert a
// hearing profile or a named preset into equalizer band and dynamics
// parameter sets, plus the calibration curve from dB HL to linear tone
// amplitude.
package audiometry

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/hearclear/audio"
)

// correctionBandwidth is the octave bandwidth used for every
// threshold-derived correction band.
const correctionBandwidth = 0.5

// HearingLevelToAmplitude converts a presentation level in dB HL to the
// linear tone amplitude that realizes it.
//
// The convention fixes MaxLevelDB (90 dB HL) at full scale, so
// amplitude = 10^((level-90)/20) after clamping the level into
// [MinLevelDB, MaxLevelDB]. The curve is monotonic and clamping makes
// it total: out-of-range inputs map exactly as their clamped value
// does. The absolute calibration against acoustic output is the
// playback hardware's concern.
//
// Parameters:
//   - levelDB: Presentation level in dB HL
//
// Returns:
//   - float64: Linear amplitude in [10^-4.5, 1.0]
func HearingLevelToAmplitude(levelDB float64) float64 {
	clamped := audio.Clamp(levelDB, MinLevelDB, MaxLevelDB)
	return audio.DBToLinear(clamped - MaxLevelDB)
}

// BandsForProfile converts a hearing profile into per-band equalizer
// parameters, positionally: band i corrects TestFrequencies[i].
//
// A recorded threshold becomes a boost of clamp(threshold, 0,
// MaxBandGainDB) dB; an absent frequency stays flat. The NotHeard
// sentinel clamps to the maximum boost like any large threshold. When
// the chain has fewer bands than test frequencies the mapping
// truncates; when it has more, the extra bands are not touched.
//
// Parameters:
//   - profile: Measured thresholds by frequency
//   - bandCount: Number of bands the target chain has
//
// Returns:
//   - []audio.Band: One band per mapped test frequency, in order
func BandsForProfile(profile HearingProfile, bandCount int) []audio.Band {
	count := bandCount
	if count > len(TestFrequencies) {
		count = len(TestFrequencies)
	}
	if count < 0 {
		count = 0
	}

	bands := make([]audio.Band, count)
	for i := range bands {
		freqHz := TestFrequencies[i]
		gainDB := 0.0
		if threshold, ok := profile.Threshold(freqHz); ok {
			gainDB = audio.Clamp(threshold, 0, MaxBandGainDB)
		}
		bands[i] = audio.Band{
			FrequencyHz: float64(freqHz),
			GainDB:      gainDB,
			Bandwidth:   correctionBandwidth,
			Type:        audio.FilterParametric,
			Bypass:      false,
		}
	}
	return bands
}

// ProfileDynamics returns the dynamics parameters paired with a
// measured correction profile: gentle compression so the boosted bands
// cannot drive loud passages into discomfort.
func ProfileDynamics() audio.DynamicsParams {
	return audio.DynamicsParams{
		ThresholdDB:          -25,
		HeadroomDB:           5,
		AttackSec:            0.005,
		ReleaseSec:           0.1,
		CompressionRatio:     1.5,
		MasterGainDB:         0,
		ExpansionRatio:       1,
		ExpansionThresholdDB: -120,
	}
}

// flatBand returns a 0 dB parametric band pinned to the test frequency
// for its index, used as the neutral element of the preset tables.
func flatBand(i int, bypass bool, bandwidth float64) audio.Band {
	freqHz := 16000.0
	if i < len(TestFrequencies) {
		freqHz = float64(TestFrequencies[i])
	}
	return audio.Band{
		FrequencyHz: freqHz,
		GainDB:      0,
		Bandwidth:   bandwidth,
		Type:        audio.FilterParametric,
		Bypass:      bypass,
	}
}

// PresetBands returns the deterministic band table for a named preset,
// sized for a chain with bandCount bands.
//
// Standard bypasses everything. WideSpectrum keeps every band active
// but flat at bandwidth 1.0. VoiceIsolation turns band 0 into a 150 Hz
// high-pass and band 1 into a 6000 Hz low-pass, bypassing the rest; on
// a chain too small for a stage that stage is simply omitted.
func PresetBands(preset Preset, bandCount int) []audio.Band {
	if bandCount < 0 {
		bandCount = 0
	}
	bands := make([]audio.Band, bandCount)

	switch preset {
	case PresetWideSpectrum:
		for i := range bands {
			bands[i] = flatBand(i, false, 1.0)
		}
	case PresetVoiceIsolation:
		for i := range bands {
			bands[i] = flatBand(i, true, correctionBandwidth)
		}
		if bandCount >= 1 {
			bands[0] = audio.Band{
				FrequencyHz: 150,
				Bandwidth:   correctionBandwidth,
				Type:        audio.FilterHighPass,
			}
		}
		if bandCount >= 2 {
			bands[1] = audio.Band{
				FrequencyHz: 6000,
				Bandwidth:   correctionBandwidth,
				Type:        audio.FilterLowPass,
			}
		}
	default:
		for i := range bands {
			bands[i] = flatBand(i, true, correctionBandwidth)
		}
	}
	return bands
}

// PresetDynamics returns the dynamics parameters for a named preset.
// Standard and WideSpectrum are neutral; VoiceIsolation adds firm
// compression with a small make-up gain.
func PresetDynamics(preset Preset) audio.DynamicsParams {
	params := audio.NeutralDynamics()
	if preset == PresetVoiceIsolation {
		params.ThresholdDB = -20
		params.CompressionRatio = 3
		params.MasterGainDB = 2
	}
	return params
}

// ChainControl is the slice of the effect chain the mapper drives.
// *audio.EffectChain satisfies it.
type ChainControl interface {
	GetBandCount() int
	SetBand(index int, band audio.Band) error
	SetDynamics(params audio.DynamicsParams)
}

// ApplyProfile pushes the band and dynamics parameters derived from a
// hearing profile onto an effect chain.
//
// Parameters:
//   - chain: Target chain
//   - profile: Measured thresholds by frequency
//
// Returns:
//   - error: Propagated band-index error, which cannot occur for bands
//     produced by BandsForProfile
func ApplyProfile(chain ChainControl, profile HearingProfile) error {
	bands := BandsForProfile(profile, chain.GetBandCount())
	for i, band := range bands {
		if err := chain.SetBand(i, band); err != nil {
			return fmt.Errorf("apply profile band %d: %w", i, err)
		}
	}
	chain.SetDynamics(ProfileDynamics())

	logrus.WithFields(logrus.Fields{
		"function":     "ApplyProfile",
		"bands_mapped": len(bands),
		"thresholds":   len(profile),
	}).Info("Hearing profile applied to effect chain")

	return nil
}

// ApplyPreset pushes a named preset onto an effect chain. Applying the
// same preset twice yields identical chain state.
//
// Parameters:
//   - chain: Target chain
//   - preset: Named correction preset
//
// Returns:
//   - error: Propagated band-index error, which cannot occur for bands
//     produced by PresetBands
func ApplyPreset(chain ChainControl, preset Preset) error {
	bands := PresetBands(preset, chain.GetBandCount())
	for i, band := range bands {
		if err := chain.SetBand(i, band); err != nil {
			return fmt.Errorf("apply preset band %d: %w", i, err)
		}
	}
	chain.SetDynamics(PresetDynamics(preset))

	logrus.WithFields(logrus.Fields{
		"function": "ApplyPreset",
		"preset":   preset.String(),
		"bands":    len(bands),
	}).Info("Preset applied to effect chain")

	return nil
}

// ParsePreset resolves a preset from its string name, accepting the
// snake_case forms produced by String as well as common variants.
//
// Parameters:
//   - name: Preset name, case-insensitive
//
// Returns:
//   - Preset: Matched preset
//   - error: ErrUnknownPreset if the name matches nothing
func ParsePreset(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return PresetStandard, nil
	case "wide_spectrum", "widespectrum", "wide-spectrum":
		return PresetWideSpectrum, nil
	case "voice_isolation", "voiceisolation", "voice-isolation":
		return PresetVoiceIsolation, nil
	default:
		return PresetStandard, fmt.Errorf("parse preset %q: %w", name, ErrUnknownPreset)
	}
}
