// Package audio provides the real-time signal path for HearClear.
//
// This file implements the hearing correction chain: a dynamics stage
// followed by a fixed bank of equalizer bands. Control-plane writes
// publish immutable parameter snapshots; the render plane picks them up
// at block boundaries.
package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// EffectChain applies hearing correction to a sample stream.
//
// The processing order within a block is fixed: dynamics first, then the
// equalizer bands in ascending index order. The band count is set at
// construction and never changes afterwards.
//
// Design decisions:
//   - Each band and the dynamics stage publish parameters through an
//     atomic pointer; Process loads every snapshot once per block
//   - Filter coefficients are recomputed only when Process observes a
//     changed snapshot, keeping the steady-state cost to the biquad math
//   - Numeric parameters are clamped at write time, so Process never
//     validates and never fails
type EffectChain struct {
	sampleRate float64
	bandCount  int

	bands        []atomic.Pointer[Band]
	dynamics     atomic.Pointer[DynamicsParams]
	resetRequest atomic.Bool

	// Render-plane state. Touched only by Process.
	filters     []biquad
	activeBands []*Band
	dyn         dynamicsState
	activeDyn   *DynamicsParams
}

// defaultBand returns the construction-time parameters for band index i:
// a flat parametric band pinned to the standard octave frequency when one
// exists for the index.
func defaultBand(i int) Band {
	freq := 16000.0
	if i < len(DefaultBandFrequencies) {
		freq = DefaultBandFrequencies[i]
	}
	return Band{
		FrequencyHz: freq,
		GainDB:      0,
		Bandwidth:   0.5,
		Type:        FilterParametric,
		Bypass:      false,
	}
}

// NewEffectChain creates a correction chain with a fixed number of
// equalizer bands.
//
// Bands start flat on the standard octave frequencies and the dynamics
// stage starts neutral, so a freshly built chain is transparent.
//
// Parameters:
//   - sampleRate: Processing sample rate in Hz
//   - bandCount: Number of equalizer bands, fixed for the chain lifetime
//
// Returns:
//   - *EffectChain: New chain instance
//   - error: Validation error if the rate or band count is unusable
func NewEffectChain(sampleRate float64, bandCount int) (*EffectChain, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewEffectChain",
		"sample_rate": sampleRate,
		"band_count":  bandCount,
	}).Info("Creating effect chain")

	if sampleRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewEffectChain",
			"sample_rate": sampleRate,
			"error":       "sample rate must be positive",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: %f", ErrUnsupportedRate, sampleRate)
	}
	if bandCount < 1 {
		logrus.WithFields(logrus.Fields{
			"function":   "NewEffectChain",
			"band_count": bandCount,
			"error":      "band count must be at least 1",
		}).Error("Band count validation failed")
		return nil, fmt.Errorf("band count must be at least 1: %d", bandCount)
	}

	c := &EffectChain{
		sampleRate:  sampleRate,
		bandCount:   bandCount,
		bands:       make([]atomic.Pointer[Band], bandCount),
		filters:     make([]biquad, bandCount),
		activeBands: make([]*Band, bandCount),
	}

	for i := range c.bands {
		band := clampBand(defaultBand(i), sampleRate)
		c.bands[i].Store(&band)
	}
	neutral := clampDynamics(NeutralDynamics())
	c.dynamics.Store(&neutral)

	logrus.WithFields(logrus.Fields{
		"function":    "NewEffectChain",
		"sample_rate": sampleRate,
		"band_count":  bandCount,
	}).Info("Effect chain created successfully")

	return c, nil
}

// SetBand replaces the parameters of one equalizer band.
//
// The write publishes atomically; the render plane applies it at the
// next block boundary. Numeric fields are clamped to stable ranges.
//
// Parameters:
//   - index: Band index in [0, GetBandCount())
//   - band: New band parameters
//
// Returns:
//   - error: ErrBandOutOfRange if index is outside the fixed band range
func (c *EffectChain) SetBand(index int, band Band) error {
	if index < 0 || index >= c.bandCount {
		logrus.WithFields(logrus.Fields{
			"function":   "EffectChain.SetBand",
			"band_index": index,
			"band_count": c.bandCount,
		}).Error("Band index validation failed")
		return fmt.Errorf("set band %d of %d: %w", index, c.bandCount, ErrBandOutOfRange)
	}

	clamped := clampBand(band, c.sampleRate)
	c.bands[index].Store(&clamped)

	logrus.WithFields(logrus.Fields{
		"function":     "EffectChain.SetBand",
		"band_index":   index,
		"frequency_hz": clamped.FrequencyHz,
		"gain_db":      clamped.GainDB,
		"bandwidth":    clamped.Bandwidth,
		"filter_type":  clamped.Type.String(),
		"bypass":       clamped.Bypass,
	}).Info("Equalizer band updated")

	return nil
}

// GetBand returns the current parameters of one equalizer band.
//
// Parameters:
//   - index: Band index in [0, GetBandCount())
//
// Returns:
//   - Band: Current band parameters
//   - error: ErrBandOutOfRange if index is outside the fixed band range
func (c *EffectChain) GetBand(index int) (Band, error) {
	if index < 0 || index >= c.bandCount {
		logrus.WithFields(logrus.Fields{
			"function":   "EffectChain.GetBand",
			"band_index": index,
			"band_count": c.bandCount,
		}).Error("Band index validation failed")
		return Band{}, fmt.Errorf("get band %d of %d: %w", index, c.bandCount, ErrBandOutOfRange)
	}
	return *c.bands[index].Load(), nil
}

// BypassAll sets the bypass flag on every equalizer band at once,
// leaving the other band parameters untouched. With every band bypassed
// the chain reduces to its dynamics stage.
//
// Parameters:
//   - bypass: New bypass flag for every band
func (c *EffectChain) BypassAll(bypass bool) {
	for i := range c.bands {
		band := *c.bands[i].Load()
		band.Bypass = bypass
		c.bands[i].Store(&band)
	}

	logrus.WithFields(logrus.Fields{
		"function": "EffectChain.BypassAll",
		"bypass":   bypass,
		"bands":    c.bandCount,
	}).Info("Bypass flag set on all bands")
}

// SetDynamics replaces the dynamics stage parameters.
//
// The write publishes atomically; the render plane applies it at the
// next block boundary. Numeric fields are clamped to stable ranges.
func (c *EffectChain) SetDynamics(params DynamicsParams) {
	clamped := clampDynamics(params)
	c.dynamics.Store(&clamped)

	logrus.WithFields(logrus.Fields{
		"function":          "EffectChain.SetDynamics",
		"threshold_db":      clamped.ThresholdDB,
		"compression_ratio": clamped.CompressionRatio,
		"master_gain_db":    clamped.MasterGainDB,
		"expansion_ratio":   clamped.ExpansionRatio,
	}).Info("Dynamics parameters updated")
}

// GetDynamics returns the current dynamics stage parameters.
func (c *EffectChain) GetDynamics() DynamicsParams {
	return *c.dynamics.Load()
}

// GetBandCount returns the fixed number of equalizer bands.
func (c *EffectChain) GetBandCount() int {
	return c.bandCount
}

// GetSampleRate returns the processing sample rate in Hz.
func (c *EffectChain) GetSampleRate() float64 {
	return c.sampleRate
}

// Reset requests a clear of all filter and envelope state. The clear
// happens at the next block boundary, so the request is safe to make
// while audio is running. Parameters are unaffected.
func (c *EffectChain) Reset() {
	c.resetRequest.Store(true)
}

// refreshSnapshots picks up parameter snapshots published since the last
// block and reconfigures the render-plane state that depends on them.
// Filter state is cleared only when a band changes shape or bypass, so
// plain gain adjustments stay continuous.
func (c *EffectChain) refreshSnapshots() {
	if c.resetRequest.CompareAndSwap(true, false) {
		for i := range c.filters {
			c.filters[i].reset()
		}
		c.dyn.envelope = 0
	}

	if p := c.dynamics.Load(); p != c.activeDyn {
		c.dyn.configure(*p, c.sampleRate)
		c.activeDyn = p
	}

	for i := range c.bands {
		b := c.bands[i].Load()
		if b == c.activeBands[i] {
			continue
		}
		prev := c.activeBands[i]
		c.filters[i].biquadCoeffs = coefficientsFor(*b, c.sampleRate)
		if prev == nil || prev.Type != b.Type || prev.Bypass != b.Bypass {
			c.filters[i].reset()
		}
		c.activeBands[i] = b
	}
}

// Process applies the chain to buf in place.
//
// Safe to call from the audio callback: it performs no allocation,
// locking, logging, or error handling. Parameter changes made since the
// previous block take effect before the first sample.
func (c *EffectChain) Process(buf []float32) {
	c.refreshSnapshots()

	c.dyn.processBlock(buf)

	for i := range c.filters {
		if c.activeBands[i].Bypass {
			continue
		}
		f := &c.filters[i]
		for j := range buf {
			buf[j] = float32(f.processSample(float64(buf[j])))
		}
	}
}
