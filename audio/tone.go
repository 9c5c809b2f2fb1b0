// Package audio provides the real-time signal path for HearClear.
//
// This file implements the calibration tone generator: a continuous-phase
// sine source whose frequency and amplitude are set from the control plane
// while samples are produced on the render plane.
package audio

import (
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DefaultSampleRate is the sample rate used when a component is created
// with a non-positive rate.
const DefaultSampleRate = 48000.0

const twoPi = 2.0 * math.Pi

// ToneGenerator produces a continuous sine tone with click-free parameter
// updates.
//
// Design decisions:
//   - Frequency and amplitude share a single 64-bit atomic word, stored
//     as two float32 bit patterns, so a render block never observes a
//     torn pair
//   - Phase is owned by the render plane alone; parameter writes never
//     touch it, and an audible tone continues smoothly through frequency
//     and amplitude changes
//   - Reset is a flagged request consumed at the next block boundary
type ToneGenerator struct {
	// params packs the frequency (high 32 bits) and amplitude (low 32 bits).
	params atomic.Uint64

	// resetRequested is consumed once at the start of the next render block.
	resetRequested atomic.Bool

	// phase is render-owned. Radians in [0, 2*pi).
	phase float64

	sampleRate float64
}

// packToneParams combines a frequency and amplitude into one atomic word.
func packToneParams(freqHz, amplitude float32) uint64 {
	return uint64(math.Float32bits(freqHz))<<32 | uint64(math.Float32bits(amplitude))
}

// unpackToneParams splits an atomic word back into frequency and amplitude.
func unpackToneParams(word uint64) (freqHz, amplitude float32) {
	return math.Float32frombits(uint32(word >> 32)), math.Float32frombits(uint32(word))
}

// NewToneGenerator creates a tone generator for the given sample rate.
//
// A non-positive sample rate falls back to DefaultSampleRate. The
// generator starts silent at 0 Hz with zero phase.
//
// Parameters:
//   - sampleRate: Output sample rate in Hz
//
// Returns:
//   - *ToneGenerator: New tone generator instance
func NewToneGenerator(sampleRate float64) *ToneGenerator {
	if sampleRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewToneGenerator",
			"sample_rate": sampleRate,
			"fallback":    DefaultSampleRate,
		}).Warn("Non-positive sample rate, using default")
		sampleRate = DefaultSampleRate
	}

	t := &ToneGenerator{sampleRate: sampleRate}
	t.params.Store(packToneParams(0, 0))

	logrus.WithFields(logrus.Fields{
		"function":    "NewToneGenerator",
		"sample_rate": sampleRate,
	}).Info("Tone generator created")

	return t
}

// SetFrequency updates the tone frequency.
//
// The new frequency takes effect from the next rendered sample without a
// phase reset. Values are clamped to [0, sampleRate/2].
//
// Parameters:
//   - freqHz: Tone frequency in Hz
func (t *ToneGenerator) SetFrequency(freqHz float64) {
	clamped := float32(Clamp(freqHz, 0, t.sampleRate/2))

	for {
		old := t.params.Load()
		_, amplitude := unpackToneParams(old)
		if t.params.CompareAndSwap(old, packToneParams(clamped, amplitude)) {
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":     "ToneGenerator.SetFrequency",
		"frequency_hz": clamped,
	}).Debug("Tone frequency updated")
}

// SetAmplitude updates the linear tone amplitude.
//
// The new amplitude takes effect from the next rendered sample. Values
// are clamped to [0, 1]. Amplitude 0 silences the tone while the phase
// keeps advancing.
//
// Parameters:
//   - amplitude: Linear amplitude (0.0 = silence, 1.0 = full scale)
func (t *ToneGenerator) SetAmplitude(amplitude float64) {
	clamped := float32(Clamp(amplitude, 0, 1))

	for {
		old := t.params.Load()
		freqHz, _ := unpackToneParams(old)
		if t.params.CompareAndSwap(old, packToneParams(freqHz, clamped)) {
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":  "ToneGenerator.SetAmplitude",
		"amplitude": clamped,
	}).Debug("Tone amplitude updated")
}

// Reset requests a phase reset.
//
// The render plane zeroes the phase at the start of the next block,
// before its first sample. A deliberate reset at the start of each new
// presentation gives every tone an identical, click-free onset.
func (t *ToneGenerator) Reset() {
	t.resetRequested.Store(true)

	logrus.WithFields(logrus.Fields{
		"function": "ToneGenerator.Reset",
	}).Debug("Tone phase reset requested")
}

// GetFrequency returns the current tone frequency in Hz.
func (t *ToneGenerator) GetFrequency() float64 {
	freqHz, _ := unpackToneParams(t.params.Load())
	return float64(freqHz)
}

// GetAmplitude returns the current linear tone amplitude.
func (t *ToneGenerator) GetAmplitude() float64 {
	_, amplitude := unpackToneParams(t.params.Load())
	return float64(amplitude)
}

// GetSampleRate returns the sample rate the generator renders at.
func (t *ToneGenerator) GetSampleRate() float64 {
	return t.sampleRate
}

// Render fills out with the next block of tone samples.
//
// Safe to call from the audio callback: it performs no allocation,
// locking, or logging. Parameters are read once per block, the phase is
// sampled before each advance, and the wrap keeps it in [0, 2*pi).
func (t *ToneGenerator) Render(out []float32) {
	if t.resetRequested.CompareAndSwap(true, false) {
		t.phase = 0
	}

	freqHz, amplitude := unpackToneParams(t.params.Load())
	inc := twoPi * float64(freqHz) / t.sampleRate
	amp := float64(amplitude)

	for i := range out {
		out[i] = float32(amp * math.Sin(t.phase))
		t.phase += inc
		if t.phase >= twoPi {
			t.phase -= twoPi
		}
	}
}
