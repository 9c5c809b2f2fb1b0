// Package audio provides the real-time signal path for HearClear.
//
// This file implements the renderer, the single render-plane entry
// point. A playback sink calls Render once per output block; everything
// downstream of that call stays allocation-free and lock-free.
package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// renderChunkSamples bounds the scratch buffer for one processing
// chunk. Larger output blocks are processed in chunks of this size.
const renderChunkSamples = 512

// Renderer produces the final output signal: stream input shaped by the
// effect chain, mixed with the test tone, clamped to [-1, 1].
//
// The tone is mixed after the chain so threshold test presentations
// reach the output at their calibrated level regardless of the active
// profile.
//
// Render is called from exactly one goroutine. Control-plane methods
// (SetInput) may be called concurrently with Render.
type Renderer struct {
	chain    *EffectChain
	tone     *ToneGenerator
	input    atomic.Pointer[InputSource]
	inputBuf []float32
}

// NewRenderer creates a renderer over the given components.
//
// Parameters:
//   - chain: Effect chain applied to stream input
//   - tone: Tone generator mixed into the output
//   - input: Initial input source, typically SilenceSource
//
// Returns:
//   - *Renderer: New renderer ready for the render loop
//   - error: Validation error if any component is nil
func NewRenderer(chain *EffectChain, tone *ToneGenerator, input InputSource) (*Renderer, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewRenderer",
	}).Info("Creating renderer")

	if chain == nil || tone == nil || input == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewRenderer",
			"error":    "nil component",
		}).Error("Renderer validation failed")
		return nil, fmt.Errorf("renderer requires chain, tone, and input")
	}

	r := &Renderer{
		chain:    chain,
		tone:     tone,
		inputBuf: make([]float32, renderChunkSamples),
	}
	r.input.Store(&input)
	return r, nil
}

// SetInput replaces the input source for subsequent blocks. The old
// source is not closed; the caller owns both lifetimes.
//
// Parameters:
//   - input: Replacement source
//
// Returns:
//   - error: Validation error if input is nil
func (r *Renderer) SetInput(input InputSource) error {
	if input == nil {
		return fmt.Errorf("input source cannot be nil")
	}
	r.input.Store(&input)
	logrus.WithFields(logrus.Fields{
		"function": "Renderer.SetInput",
	}).Info("Input source replaced")
	return nil
}

// Render fills out with one block of output audio. Must be called from
// a single goroutine; never allocates, locks, or fails.
func (r *Renderer) Render(out []float32) {
	for start := 0; start < len(out); start += renderChunkSamples {
		end := start + renderChunkSamples
		if end > len(out) {
			end = len(out)
		}
		r.renderChunk(out[start:end])
	}
}

// renderChunk processes one chunk: pull input, run it through the
// chain, overlay the tone, clamp.
func (r *Renderer) renderChunk(out []float32) {
	in := r.inputBuf[:len(out)]
	src := *r.input.Load()
	n := src.ReadSamples(in)
	for i := n; i < len(in); i++ {
		in[i] = 0
	}
	r.chain.Process(in)

	r.tone.Render(out)
	for i := range out {
		mixed := out[i] + in[i]
		if mixed > 1.0 {
			mixed = 1.0
		} else if mixed < -1.0 {
			mixed = -1.0
		}
		out[i] = mixed
	}
}
