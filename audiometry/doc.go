// Package audiometry implements hearing threshold measurement and the
// mapping from measured thresholds to signal-path parameters.
//
// # Architecture Overview
//
// The package owns the clinical half of HearClear: finding out what the
// listener can hear, and turning that into equalizer and dynamics
// settings for the audio package. The flow is linear:
//
//	TestEngine ──> TonePath (tone presentations)
//	     │
//	     │ responses (heard / not heard)
//	     ▼
//	HearingProfile ──> ApplyProfile ──> audio.EffectChain
//
// Presets short-circuit the left side: ApplyPreset maps a named
// correction directly onto the chain without a measurement.
//
// # Threshold Test Procedure
//
// TestEngine implements a single-pass ascending-limits search over the
// fixed frequency set (125 Hz to 8 kHz in octaves). Each frequency
// starts at 30 dB HL. A "not heard" response raises the level 5 dB and
// replays; the first "heard" response commits the level as the
// threshold. A frequency that stays unheard at 90 dB HL is committed as
// the NotHeard sentinel (999.0). The level never decreases within a
// frequency and there is no confirmation pass or catch trial; the
// procedure trades clinical rigor for a short, predictable run.
//
// Basic usage:
//
//	engine, err := audiometry.NewTestEngine(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine.SetCompletionCallback(func(sessionID string, profile audiometry.HearingProfile) {
//	    audiometry.ApplyProfile(chain, profile)
//	})
//
//	sessionID, err := engine.Start()
//	// for each presentation: engine.RecordResponse(heard)
//
// # Profile Mapping
//
// BandsForProfile binds thresholds to equalizer bands positionally:
// band i corrects TestFrequencies[i]. The correction gain is the
// threshold clamped into [0, 30] dB, so the NotHeard sentinel receives
// the maximum boost rather than an unbounded one. Chains with fewer
// bands than test frequencies are mapped as far as they reach.
//
// HearingLevelToAmplitude fixes the tone calibration convention:
// 90 dB HL is full scale, every 20 dB HL below that divides the linear
// amplitude by 10. Absolute acoustic calibration belongs to the
// playback hardware.
//
// # Concurrency
//
// TestEngine and ProfileStore serialize access with an internal mutex
// and are safe for concurrent use. The completion callback runs outside
// the engine lock. Mapper functions are pure and reentrant; the chain
// they drive performs its own atomic parameter publication.
//
// # Dependencies
//
//   - github.com/google/uuid: test session identifiers
//   - gonum.org/v1/gonum/stat: pure-tone average computation
//   - github.com/sirupsen/logrus: structured logging
package audiometry
