// Package audio provides the real-time signal path for HearClear.
//
// This package implements the components the hearing correction pipeline is
// assembled from: a continuous-phase tone generator, a fixed-band equalizer
// with a dynamics stage, sample rate conversion, stream input adapters, and
// the renderer that ties them together for an output device.
//
// # Architecture Overview
//
// The signal path follows this flow:
//
//	Input:  Opus Stream → Decode → Downmix → Resample → Ring Buffer
//	Render: Input Samples → Dynamics → Equalizer Bands → + Tone → Clamp → Sink
//
// The calibration tone is mixed in after the correction chain. Threshold
// test presentations are calibrated absolute levels and must reach the
// output unfiltered.
//
// # Core Components
//
// ## ToneGenerator
//
// A sine source with click-free parameter updates for threshold
// presentation and output calibration:
//
//	tone := audio.NewToneGenerator(48000)
//	tone.SetFrequency(1000)
//	tone.SetAmplitude(0.5)
//	tone.Render(block)
//
// ## EffectChain
//
// The hearing correction chain: a dynamics processor followed by a fixed
// bank of equalizer bands:
//
//	chain, err := audio.NewEffectChain(48000, 7)
//	err = chain.SetBand(3, audio.Band{
//	    FrequencyHz: 1000,
//	    GainDB:      12,
//	    Bandwidth:   0.5,
//	    Type:        audio.FilterParametric,
//	})
//	chain.SetDynamics(audio.DynamicsParams{ThresholdDB: -20, CompressionRatio: 3})
//	chain.Process(block)
//
// ## Renderer
//
// The block renderer pulled by a playback sink:
//
//	renderer, err := audio.NewRenderer(chain, tone, audio.SilenceSource{})
//	renderer.Render(block)
//
// ## Input Sources
//
// Pull-model sample sources feeding the chain:
//
//   - SilenceSource: silent input for tone-only operation
//   - OpusStreamSource: decoded Opus packet stream with downmix and resampling
//
// # Control and Render Planes
//
// Every component separates a control plane (API calls from any goroutine)
// from a render plane (the audio callback):
//
//   - Control-side setters clamp, publish atomically, and log
//   - Render-side Process and Render calls never allocate, lock, log, or fail
//   - Parameter snapshots are picked up once per block, so a block never
//     observes a half-written parameter set
//
// # Dependencies
//
// The package uses minimal external dependencies:
//
//   - github.com/pion/opus: Pure Go Opus decoder (no CGO)
//   - github.com/sirupsen/logrus: Structured logging
//
// # Performance Considerations
//
//   - Biquad filters cost five multiplies per band per sample
//   - Filter coefficients are recomputed only when parameters change
//   - Linear interpolation resampling: O(n), suitable for real-time
//   - Pre-allocated buffers keep the render plane allocation-free
package audio
