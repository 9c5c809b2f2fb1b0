// Package audio provides the real-time signal path for HearClear.
//
// This file implements the dynamics stage of the effect chain: a peak
// envelope follower driving soft-knee downward compression, downward
// expansion below a second threshold, and a make-up gain.
package audio

import "math"

// DynamicsParams configures the dynamics stage of the effect chain.
//
// The stage combines downward compression above ThresholdDB, downward
// expansion below ExpansionThresholdDB, and a make-up gain applied at the
// output. HeadroomDB sets the width of the soft knee around the
// compression threshold. Ratios of 1 disable the respective curve.
type DynamicsParams struct {
	ThresholdDB          float64 // Compression threshold in dBFS
	HeadroomDB           float64 // Soft knee width in dB
	AttackSec            float64 // Envelope attack time in seconds
	ReleaseSec           float64 // Envelope release time in seconds
	CompressionRatio     float64 // Compression ratio, 1 = no compression
	MasterGainDB         float64 // Output make-up gain in dB
	ExpansionRatio       float64 // Downward expansion ratio, 1 = none
	ExpansionThresholdDB float64 // Expansion threshold in dBFS
}

// NeutralDynamics returns dynamics parameters that leave the signal
// untouched: unity ratios, no make-up gain, and an expansion threshold
// below any audible level.
func NeutralDynamics() DynamicsParams {
	return DynamicsParams{
		ThresholdDB:          0,
		HeadroomDB:           5,
		AttackSec:            0.001,
		ReleaseSec:           0.05,
		CompressionRatio:     1,
		MasterGainDB:         0,
		ExpansionRatio:       1,
		ExpansionThresholdDB: -120,
	}
}

// clampDynamics restricts dynamics parameters to stable ranges.
func clampDynamics(p DynamicsParams) DynamicsParams {
	p.ThresholdDB = Clamp(p.ThresholdDB, -100, 20)
	p.HeadroomDB = Clamp(p.HeadroomDB, 0.1, 40)
	p.AttackSec = Clamp(p.AttackSec, 0.0001, 1)
	p.ReleaseSec = Clamp(p.ReleaseSec, 0.001, 3)
	p.CompressionRatio = Clamp(p.CompressionRatio, 1, 50)
	p.MasterGainDB = Clamp(p.MasterGainDB, -40, 40)
	p.ExpansionRatio = Clamp(p.ExpansionRatio, 1, 50)
	p.ExpansionThresholdDB = Clamp(p.ExpansionThresholdDB, -140, 0)
	return p
}

// envelopeCoeff returns the one-pole smoothing coefficient that covers
// half the remaining distance after timeSec seconds.
func envelopeCoeff(timeSec, sampleRate float64) float64 {
	if timeSec <= 0 || sampleRate <= 0 {
		return 1.0
	}
	return 1.0 - math.Exp(-math.Ln2/(timeSec*sampleRate))
}

// dynamicsState is the render-plane realization of DynamicsParams:
// cached envelope coefficients and curve slopes plus the running
// envelope level.
type dynamicsState struct {
	thresholdDB    float64
	kneeDB         float64
	slope          float64 // 1 - 1/CompressionRatio
	expSlope       float64 // ExpansionRatio - 1
	expThresholdDB float64
	attackCoeff    float64
	releaseCoeff   float64
	masterLin      float64
	envelope       float64
	active         bool
}

// configure caches the derived values for params at the given rate.
// The envelope level carries over so reconfiguring does not pump the
// output.
func (d *dynamicsState) configure(p DynamicsParams, sampleRate float64) {
	d.thresholdDB = p.ThresholdDB
	d.kneeDB = p.HeadroomDB
	d.slope = 1.0 - 1.0/p.CompressionRatio
	d.expSlope = p.ExpansionRatio - 1.0
	d.expThresholdDB = p.ExpansionThresholdDB
	d.attackCoeff = envelopeCoeff(p.AttackSec, sampleRate)
	d.releaseCoeff = envelopeCoeff(p.ReleaseSec, sampleRate)
	d.masterLin = DBToLinear(p.MasterGainDB)
	d.active = d.slope > 0 || d.expSlope > 0 || p.MasterGainDB != 0
}

// trackEnvelope advances the peak follower by one sample magnitude and
// returns the smoothed level.
func (d *dynamicsState) trackEnvelope(mag float64) float64 {
	if mag > d.envelope {
		d.envelope += (mag - d.envelope) * d.attackCoeff
	} else {
		d.envelope += (mag - d.envelope) * d.releaseCoeff
	}
	return d.envelope
}

// gainForLevel computes the curve gain in dB at the given envelope level.
//
// Above the compression threshold the gain falls with the compression
// slope; inside the knee the transition is quadratic. Below the expansion
// threshold the gain falls with the expansion slope. Total attenuation is
// floored at -60 dB so near-silence cannot drive the gain toward zero
// permanently. Master gain is applied outside this curve.
func (d *dynamicsState) gainForLevel(levelDB float64) float64 {
	var gainDB float64

	if d.slope > 0 {
		over := levelDB - d.thresholdDB
		switch {
		case over >= d.kneeDB/2:
			gainDB -= d.slope * over
		case over > -d.kneeDB/2:
			t := over + d.kneeDB/2
			gainDB -= d.slope * t * t / (2 * d.kneeDB)
		}
	}

	if d.expSlope > 0 && levelDB < d.expThresholdDB {
		gainDB += d.expSlope * (levelDB - d.expThresholdDB)
	}

	if gainDB < -60 {
		gainDB = -60
	}
	return gainDB
}

// processBlock applies the dynamics curve to buf in place.
//
// With neutral parameters the samples pass through bit-for-bit while the
// envelope keeps tracking, so engaging compression later starts from the
// true signal level.
func (d *dynamicsState) processBlock(buf []float32) {
	if !d.active {
		for i := range buf {
			d.trackEnvelope(math.Abs(float64(buf[i])))
		}
		return
	}

	for i := range buf {
		x := float64(buf[i])
		level := d.trackEnvelope(math.Abs(x))
		gainDB := d.gainForLevel(LinearToDB(level))
		buf[i] = float32(x * DBToLinear(gainDB) * d.masterLin)
	}
}
