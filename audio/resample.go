// Package audio provides the real-time signal path for HearClear.
//
// This file implements sample rate conversion for stream input. Decoded
// frames may arrive at 8, 12, 16, 24, or 48 kHz while the signal path
// runs at one fixed rate, so input adapters convert before buffering.
package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resampler converts mono float32 audio between sample rates.
//
// Uses linear interpolation, which is adequate for speech-band input
// without external dependencies. The fractional position and the last
// sample carry across calls so consecutive chunks of a stream stay
// continuous.
type Resampler struct {
	inputRate  float64
	outputRate float64
	lastSample float32
	position   float64
}

// NewResampler creates a resampler converting inputRate to outputRate.
//
// Parameters:
//   - inputRate: Input sample rate in Hz
//   - outputRate: Output sample rate in Hz
//
// Returns:
//   - *Resampler: New resampler instance
//   - error: Validation error if either rate is non-positive
func NewResampler(inputRate, outputRate float64) (*Resampler, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewResampler",
		"input_rate":  inputRate,
		"output_rate": outputRate,
	}).Info("Creating resampler")

	if inputRate <= 0 || outputRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewResampler",
			"input_rate":  inputRate,
			"output_rate": outputRate,
			"error":       "sample rates must be positive",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: input=%f output=%f", ErrUnsupportedRate, inputRate, outputRate)
	}

	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
	}, nil
}

// Resample converts input samples to the output rate.
//
// Same-rate configurations return a copy without interpolation. The
// output length for a chunk follows the rate ratio rounded to nearest.
//
// Parameters:
//   - input: Mono input samples
//
// Returns:
//   - []float32: Resampled output samples
//   - error: Validation error for empty input
func (r *Resampler) Resample(input []float32) ([]float32, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input samples")
	}

	if r.inputRate == r.outputRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out, nil
	}

	ratio := r.inputRate / r.outputRate
	outputFrames := int(float64(len(input))/ratio + 0.5)
	output := make([]float32, 0, outputFrames)

	for frame := 0; frame < outputFrames; frame++ {
		idx := int(r.position)
		frac := r.position - float64(idx)
		output = append(output, r.interpolate(input, idx, frac))
		r.position += ratio
	}

	r.position -= float64(len(input))
	if r.position < -1 {
		r.position = 0
	}
	r.lastSample = input[len(input)-1]

	logrus.WithFields(logrus.Fields{
		"function":      "Resampler.Resample",
		"input_frames":  len(input),
		"output_frames": len(output),
		"ratio":         ratio,
	}).Debug("Resampling completed")

	return output, nil
}

// interpolate returns the linearly interpolated sample at idx+frac,
// reaching into the previous chunk's final sample at the lower boundary
// and holding the final sample at the upper boundary.
func (r *Resampler) interpolate(input []float32, idx int, frac float64) float32 {
	if idx < 0 {
		return r.lastSample
	}
	if idx >= len(input)-1 {
		return input[len(input)-1]
	}
	s0 := float64(input[idx])
	s1 := float64(input[idx+1])
	return float32(s0*(1.0-frac) + s1*frac)
}

// GetInputRate returns the configured input sample rate.
func (r *Resampler) GetInputRate() float64 {
	return r.inputRate
}

// GetOutputRate returns the configured output sample rate.
func (r *Resampler) GetOutputRate() float64 {
	return r.outputRate
}

// Reset clears the carried position and boundary sample. Useful at a
// stream discontinuity.
func (r *Resampler) Reset() {
	logrus.WithFields(logrus.Fields{
		"function":     "Resampler.Reset",
		"old_position": r.position,
	}).Debug("Resetting resampler state")

	r.position = 0
	r.lastSample = 0
}
