// Package audiometry implements the hearing threshold test procedure and
// the mapping from measured thresholds to signal-path parameters.
//
// This file defines the hearing profile produced by a completed test and
// the summary statistics derived from it.
package audiometry

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// HearingProfile maps a test frequency in Hz to the measured threshold
// in dB HL. Absent keys mean no data; the mapper treats them as a flat
// response. A threshold of NotHeard records that the listener did not
// respond at the maximum level.
type HearingProfile map[int]float64

// ptaFrequencies are the frequencies averaged for the pure-tone
// average, the standard four-frequency summary used for fitting.
var ptaFrequencies = []int{500, 1000, 2000, 4000}

// Threshold returns the recorded threshold for a frequency.
//
// Parameters:
//   - freqHz: Test frequency in Hz
//
// Returns:
//   - float64: Threshold in dB HL, or NotHeard
//   - bool: Whether the frequency has a recorded result
func (p HearingProfile) Threshold(freqHz int) (float64, bool) {
	threshold, ok := p[freqHz]
	return threshold, ok
}

// Heard reports whether the frequency has a usable numeric threshold,
// i.e. a recorded result other than the NotHeard sentinel.
func (p HearingProfile) Heard(freqHz int) bool {
	threshold, ok := p[freqHz]
	return ok && threshold != NotHeard
}

// IsComplete reports whether every test frequency has a recorded
// result. A profile emitted by a finished test run is always complete;
// a partial snapshot taken mid-run is not.
func (p HearingProfile) IsComplete() bool {
	for _, freqHz := range TestFrequencies {
		if _, ok := p[freqHz]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the profile.
func (p HearingProfile) Clone() HearingProfile {
	clone := make(HearingProfile, len(p))
	for freqHz, threshold := range p {
		clone[freqHz] = threshold
	}
	return clone
}

// PureToneAverage returns the mean threshold across the standard
// mid-range frequencies (500, 1000, 2000, 4000 Hz).
//
// Frequencies without a result and frequencies recorded as NotHeard are
// excluded from the mean rather than skewing it.
//
// Returns:
//   - float64: Mean threshold in dB HL
//   - error: ErrNoAudibleThresholds if no usable threshold exists
func (p HearingProfile) PureToneAverage() (float64, error) {
	values := make([]float64, 0, len(ptaFrequencies))
	for _, freqHz := range ptaFrequencies {
		if p.Heard(freqHz) {
			values = append(values, p[freqHz])
		}
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("pure tone average: %w", ErrNoAudibleThresholds)
	}
	return stat.Mean(values, nil), nil
}

// LossDegree classifies the severity of a measured hearing loss.
type LossDegree uint32

const (
	// LossNormal covers averages up to 20 dB HL.
	LossNormal LossDegree = iota

	// LossMild covers averages above 20 up to 40 dB HL.
	LossMild

	// LossModerate covers averages above 40 up to 70 dB HL.
	LossModerate

	// LossSevere covers averages above 70 up to 90 dB HL.
	LossSevere

	// LossProfound covers averages above 90 dB HL.
	LossProfound
)

// String returns a human-readable representation of the loss degree.
func (d LossDegree) String() string {
	switch d {
	case LossNormal:
		return "normal"
	case LossMild:
		return "mild"
	case LossModerate:
		return "moderate"
	case LossSevere:
		return "severe"
	case LossProfound:
		return "profound"
	default:
		return "unknown"
	}
}

// ClassifyLoss maps a pure-tone average to the conventional severity
// bands used in audiometric reporting.
func ClassifyLoss(averageDB float64) LossDegree {
	switch {
	case averageDB <= 20:
		return LossNormal
	case averageDB <= 40:
		return LossMild
	case averageDB <= 70:
		return LossModerate
	case averageDB <= 90:
		return LossSevere
	default:
		return LossProfound
	}
}
