// Package audiometry implements the hearing threshold test procedure and
// the mapping from measured thresholds to signal-path parameters.
//
// This file defines the sentinel errors reported by the package. All are
// recoverable conditions surfaced to the caller, never process-fatal.
package audiometry

import "errors"

// Test engine state errors.
var (
	// ErrInvalidState reports an operation called outside the phase it
	// is valid in, e.g. recording a response with no test running.
	ErrInvalidState = errors.New("operation not valid in current test phase")

	// ErrEngineUnavailable reports that the tone path or audio graph is
	// not ready. A failed start leaves the engine idle; the caller may
	// retry after fixing the sink.
	ErrEngineUnavailable = errors.New("audio engine unavailable")
)

// Profile handling errors.
var (
	// ErrUnknownPreset reports a preset name that does not match any
	// defined correction preset.
	ErrUnknownPreset = errors.New("unknown preset name")

	// ErrEmptyProfileName reports a save or load with a blank name.
	ErrEmptyProfileName = errors.New("profile name cannot be empty")

	// ErrNoSuchProfile reports a load of a name never saved.
	ErrNoSuchProfile = errors.New("no stored profile with that name")

	// ErrNoAudibleThresholds reports an average over a profile whose
	// relevant frequencies were all unheard or untested.
	ErrNoAudibleThresholds = errors.New("profile has no audible thresholds to average")
)
