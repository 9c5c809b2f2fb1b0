// Package analysis provides offline measurement helpers for rendered
// audio: signal level, spectral content, and effect chain frequency
// response. Nothing here runs on the render path; these functions are
// for verification tooling and diagnostics.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/opd-ai/hearclear/audio"
)

// Measurement error conditions.
var (
	// ErrEmptyInput indicates a measurement was requested on no samples.
	ErrEmptyInput = errors.New("input must not be empty")

	// ErrNilChain indicates a response probe on a nil chain.
	ErrNilChain = errors.New("effect chain is nil")

	// ErrProbeFrequency indicates a probe frequency at or beyond the
	// Nyquist limit, or not positive.
	ErrProbeFrequency = errors.New("probe frequency outside measurable range")
)

const (
	// responseProbeSeconds is how much steady-state signal a response
	// measurement averages over.
	responseProbeSeconds = 0.25

	// responseWarmupSeconds is discarded up front so filter transients
	// do not contaminate the measurement.
	responseWarmupSeconds = 0.05

	// responseProbeAmplitude keeps the probe well below any dynamics
	// threshold so the measurement reflects the equalizer alone.
	responseProbeAmplitude = 0.1

	// minSpectrumSamples is the shortest input a spectral measurement
	// accepts. Below this there are no usable bins above DC.
	minSpectrumSamples = 4
)

// RMS returns the root-mean-square level of samples. An empty slice
// measures zero.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// PowerSpectrum returns the single-sided power spectrum of samples.
// A Hann window is applied before the transform, so tones that do not
// land exactly on a bin still concentrate their energy near it.
//
// Parameters:
//   - samples: Mono audio, at least 4 samples
//
// Returns:
//   - []float64: Power per bin, len(samples)/2 entries starting at DC
//   - error: ErrEmptyInput if samples is too short
func PowerSpectrum(samples []float32) ([]float64, error) {
	if len(samples) < minSpectrumSamples {
		return nil, fmt.Errorf("power spectrum of %d samples: %w", len(samples), ErrEmptyInput)
	}

	buf := make([]float64, len(samples))
	for i, sample := range samples {
		buf[i] = float64(sample)
	}
	window.Hann(buf)

	spectrum := fft.FFTReal(buf)
	power := make([]float64, len(spectrum)/2)
	for i := range power {
		magnitude := cmplx.Abs(spectrum[i])
		power[i] = magnitude * magnitude
	}
	return power, nil
}

// DominantFrequency returns the frequency carrying the most energy,
// ignoring the DC bin. Resolution is sampleRate/len(samples) Hz, so
// longer inputs localize the peak more precisely.
//
// Parameters:
//   - samples: Mono audio, at least 4 samples
//   - sampleRate: Rate the samples were captured at, in Hz
//
// Returns:
//   - float64: Peak bin frequency in Hz
//   - error: ErrEmptyInput or ErrProbeFrequency for a bad rate
func DominantFrequency(samples []float32, sampleRate float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("dominant frequency at rate %f: %w", sampleRate, ErrProbeFrequency)
	}

	power, err := PowerSpectrum(samples)
	if err != nil {
		return 0, err
	}

	peak := floats.MaxIdx(power[1:]) + 1
	return float64(peak) * sampleRate / float64(len(samples)), nil
}

// ChainResponseDB measures the gain an effect chain applies at a
// single frequency. It drives the chain with a low-level sine, skips
// the filter settling time, and compares steady-state output level to
// input level.
//
// The probe runs real audio through the chain, so its filter state is
// disturbed. Probe an idle chain, not one mid-stream.
//
// Parameters:
//   - chain: Chain to measure
//   - freqHz: Probe frequency, must lie below Nyquist
//
// Returns:
//   - float64: Gain at freqHz in dB, negative for attenuation
//   - error: ErrNilChain or ErrProbeFrequency
func ChainResponseDB(chain *audio.EffectChain, freqHz float64) (float64, error) {
	if chain == nil {
		return 0, ErrNilChain
	}
	rate := chain.GetSampleRate()
	if freqHz <= 0 || freqHz >= rate/2 {
		return 0, fmt.Errorf("probe at %f Hz with rate %f: %w", freqHz, rate, ErrProbeFrequency)
	}

	warmup := int(rate * responseWarmupSeconds)
	measure := int(rate * responseProbeSeconds)

	probe := make([]float32, warmup+measure)
	step := 2 * math.Pi * freqHz / rate
	for i := range probe {
		probe[i] = float32(responseProbeAmplitude * math.Sin(step*float64(i)))
	}
	inputLevel := RMS(probe[warmup:])

	chain.Process(probe)
	outputLevel := RMS(probe[warmup:])

	return audio.LinearToDB(outputLevel) - audio.LinearToDB(inputLevel), nil
}

// ResponseCurve measures ChainResponseDB at each of the given
// frequencies. Frequencies outside the measurable range are skipped
// rather than failing the whole sweep.
//
// Returns:
//   - map[int]float64: Gain in dB keyed by probe frequency
//   - error: ErrNilChain
func ResponseCurve(chain *audio.EffectChain, frequencies []int) (map[int]float64, error) {
	if chain == nil {
		return nil, ErrNilChain
	}

	curve := make(map[int]float64, len(frequencies))
	for _, freqHz := range frequencies {
		gain, err := ChainResponseDB(chain, float64(freqHz))
		if err != nil {
			continue
		}
		curve[freqHz] = gain
	}
	return curve, nil
}
