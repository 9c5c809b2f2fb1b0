// Package playback delivers rendered audio to an output device.
//
// # Architecture Overview
//
// The package is built around a pull model. A Sink owns the pacing: it
// asks a SampleSource for the next block of samples whenever the
// device needs more audio. Sources never push.
//
//	SampleSource (audio.Renderer) <-- pull -- Sink --> device
//
// Two sinks are provided:
//
//   - OtoSink drives the platform audio device through
//     github.com/ebitengine/oto. The device callback pulls through an
//     io.Reader adapter that encodes mono float32 little-endian.
//   - NullSink has no device. Tests and headless environments call
//     Pump to advance rendering deterministically.
//
// # Concurrency
//
// The device pulls from its own thread, so a SampleSource must
// tolerate Render being called concurrently with control updates.
// audio.Renderer is built for exactly that. Sink control methods
// (Start, Stop, Close) serialize on an internal mutex and are safe
// from any goroutine.
//
// # Device Readiness
//
// Opening the platform device is asynchronous. NewOtoSink returns
// immediately; Ready flips to true once the device accepts audio.
// Callers that need sound before proceeding should poll Ready or use
// a NullSink where hardware may be absent.
package playback
