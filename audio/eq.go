// Package audio provides the real-time signal path for HearClear.
//
// This file implements the biquad filter sections behind the equalizer
// stage: peaking, high-pass, and low-pass responses derived from the
// Audio EQ Cookbook formulas, with bandwidth expressed in octaves.
package audio

import "math"

// FilterType identifies the response shape of an equalizer band.
type FilterType uint32

const (
	// FilterParametric is a peaking filter that boosts or cuts around
	// the band frequency.
	FilterParametric FilterType = iota
	// FilterHighPass attenuates content below the band frequency.
	FilterHighPass
	// FilterLowPass attenuates content above the band frequency.
	FilterLowPass
)

// String returns a human-readable name for the filter type.
func (ft FilterType) String() string {
	switch ft {
	case FilterParametric:
		return "parametric"
	case FilterHighPass:
		return "highpass"
	case FilterLowPass:
		return "lowpass"
	default:
		return "unknown"
	}
}

// Band describes the parameters of one equalizer band.
//
// Bandwidth is measured in octaves, the convention of parametric
// hearing-aid equalizers. A bypassed band passes samples through
// untouched while keeping its parameters.
type Band struct {
	FrequencyHz float64
	GainDB      float64
	Bandwidth   float64
	Type        FilterType
	Bypass      bool
}

// DefaultBandFrequencies lists the octave-band center frequencies that
// chain bands are pinned to at construction, lowest first.
var DefaultBandFrequencies = []float64{125, 250, 500, 1000, 2000, 4000, 8000}

// clampBand restricts band parameters to ranges the filter math stays
// stable in. The upper frequency bound tracks the sample rate.
func clampBand(band Band, sampleRate float64) Band {
	band.FrequencyHz = Clamp(band.FrequencyHz, 10, 0.45*sampleRate)
	band.GainDB = Clamp(band.GainDB, -40, 40)
	band.Bandwidth = Clamp(band.Bandwidth, 0.05, 5)
	if band.Type > FilterLowPass {
		band.Type = FilterParametric
	}
	return band
}

// biquadCoeffs holds normalized second-order transfer coefficients.
type biquadCoeffs struct {
	b0, b1, b2, a1, a2 float64
}

// biquad is one filter section in transposed direct form II.
// The z1/z2 state is owned by the render plane.
type biquad struct {
	biquadCoeffs
	z1, z2 float64
}

// processSample advances the filter by one sample.
func (f *biquad) processSample(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// reset zeroes the filter state.
func (f *biquad) reset() {
	f.z1 = 0
	f.z2 = 0
}

// qFromBandwidth converts an octave bandwidth to the equivalent filter Q.
func qFromBandwidth(octaves float64) float64 {
	return 1.0 / (2.0 * math.Sinh(math.Ln2/2.0*octaves))
}

// coefficientsFor derives biquad coefficients for a band at the given
// sample rate. The band must already be clamped; the clamped frequency
// range keeps w0 inside (0, pi) where the formulas are defined.
func coefficientsFor(band Band, sampleRate float64) biquadCoeffs {
	w0 := twoPi * band.FrequencyHz / sampleRate
	sinW0 := math.Sin(w0)
	cosW0 := math.Cos(w0)

	switch band.Type {
	case FilterHighPass:
		alpha := sinW0 / (2.0 * qFromBandwidth(band.Bandwidth))
		a0 := 1.0 + alpha
		return biquadCoeffs{
			b0: (1.0 + cosW0) / 2.0 / a0,
			b1: -(1.0 + cosW0) / a0,
			b2: (1.0 + cosW0) / 2.0 / a0,
			a1: -2.0 * cosW0 / a0,
			a2: (1.0 - alpha) / a0,
		}
	case FilterLowPass:
		alpha := sinW0 / (2.0 * qFromBandwidth(band.Bandwidth))
		a0 := 1.0 + alpha
		return biquadCoeffs{
			b0: (1.0 - cosW0) / 2.0 / a0,
			b1: (1.0 - cosW0) / a0,
			b2: (1.0 - cosW0) / 2.0 / a0,
			a1: -2.0 * cosW0 / a0,
			a2: (1.0 - alpha) / a0,
		}
	default:
		// Peaking filter. A gain of exactly 0 dB yields the identity
		// transfer function, so flat bands are numerically transparent.
		amp := math.Pow(10.0, band.GainDB/40.0)
		alpha := sinW0 * math.Sinh(math.Ln2/2.0*band.Bandwidth*w0/sinW0)
		a0 := 1.0 + alpha/amp
		return biquadCoeffs{
			b0: (1.0 + alpha*amp) / a0,
			b1: -2.0 * cosW0 / a0,
			b2: (1.0 - alpha*amp) / a0,
			a1: -2.0 * cosW0 / a0,
			a2: (1.0 - alpha/amp) / a0,
		}
	}
}
