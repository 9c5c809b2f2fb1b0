// Package audiometry implements the hearing threshold test procedure and
// the mapping from measured thresholds to signal-path parameters.
//
// This file defines the shared types of the package: the test phase state
// machine values, the named correction presets, and the status snapshot
// the engine reports to callers.
package audiometry

// TestFrequencies lists the audiometric test frequencies in Hz, in the
// order they are tested. The order is load-bearing: equalizer band index
// i corresponds to TestFrequencies[i].
var TestFrequencies = []int{125, 250, 500, 1000, 2000, 4000, 8000}

const (
	// StartLevelDB is the presentation level each frequency starts at.
	StartLevelDB = 30.0

	// LevelStepDB is the increment applied after a "not heard" response.
	LevelStepDB = 5.0

	// MinLevelDB and MaxLevelDB bound the presentation level in dB HL.
	MinLevelDB = 0.0
	MaxLevelDB = 90.0

	// NotHeard marks a frequency where the listener did not respond at
	// the maximum presentation level.
	NotHeard = 999.0

	// MaxBandGainDB caps the correction gain derived from a threshold.
	MaxBandGainDB = 30.0
)

// TestPhase represents the current phase of a threshold test session.
type TestPhase uint32

const (
	// PhaseIdle indicates no test is running.
	PhaseIdle TestPhase = iota

	// PhasePlayingTone indicates a tone presentation is underway.
	PhasePlayingTone

	// PhaseAwaitingResponse indicates the tone has finished and the
	// engine is waiting for the listener's response.
	PhaseAwaitingResponse

	// PhaseComplete indicates every frequency has a recorded result.
	PhaseComplete
)

// String returns a human-readable representation of the test phase.
func (p TestPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlayingTone:
		return "playing_tone"
	case PhaseAwaitingResponse:
		return "awaiting_response"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Active reports whether the phase belongs to a running test.
func (p TestPhase) Active() bool {
	return p == PhasePlayingTone || p == PhaseAwaitingResponse
}

// Preset identifies a named correction profile that can be applied
// without running a threshold test.
type Preset uint32

const (
	// PresetStandard bypasses every band and neutralizes dynamics.
	PresetStandard Preset = iota

	// PresetWideSpectrum keeps every band active but flat, a baseline
	// for manual tuning.
	PresetWideSpectrum

	// PresetVoiceIsolation brackets the speech band with a high-pass
	// and a low-pass filter plus mild compression.
	PresetVoiceIsolation
)

// String returns a human-readable representation of the preset.
func (p Preset) String() string {
	switch p {
	case PresetStandard:
		return "standard"
	case PresetWideSpectrum:
		return "wide_spectrum"
	case PresetVoiceIsolation:
		return "voice_isolation"
	default:
		return "unknown"
	}
}

// TestStatus is a point-in-time snapshot of the test engine, safe to
// hand to UI code.
type TestStatus struct {
	// Phase is the current state machine phase.
	Phase TestPhase

	// FrequencyHz is the frequency under test, 0 outside a run.
	FrequencyHz int

	// LevelDB is the current presentation level in dB HL.
	LevelDB float64

	// FrequencyIndex is the position in TestFrequencies, 0-based.
	FrequencyIndex int

	// FrequencyCount is the total number of test frequencies.
	FrequencyCount int

	// SessionID identifies the test run the snapshot belongs to.
	SessionID string
}
