// Package audio provides the real-time signal path for HearClear.
//
// This file implements decibel and linear amplitude conversions shared by
// the tone generator, the equalizer, and the dynamics processor.
package audio

import "math"

// MinDB is the decibel floor reported for silent or near-silent signals.
// Linear values at or below zero convert to this floor instead of
// negative infinity so the result stays usable in gain arithmetic.
const MinDB = -150.0

// DBToLinear converts a decibel value to a linear amplitude multiplier.
// 0 dB converts to 1.0, +6 dB to roughly 2.0, -20 dB to 0.1.
func DBToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// LinearToDB converts a linear amplitude to decibels, flooring at MinDB.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	db := 20.0 * math.Log10(linear)
	if db < MinDB {
		return MinDB
	}
	return db
}

// Clamp restricts value to the inclusive range [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
