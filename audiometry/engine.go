// Package audiometry implements the hearing threshold test procedure and
// the mapping from measured thresholds to signal-path parameters.
//
// This file implements the test engine: a state machine that walks the
// fixed frequency set with the ascending-limits method, drives the tone
// path, and emits a HearingProfile when every frequency has a result.
package audiometry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TonePath is the narrow interface the test engine drives tones
// through. The audio facade adapts the tone generator and playback sink
// behind it; tests substitute a recording stub.
type TonePath interface {
	// Available reports whether the downstream audio graph can play a
	// tone right now.
	Available() bool

	// Present plays or re-levels a continuous tone. Called for every
	// presentation, including same-frequency level increases.
	Present(freqHz float64, amplitude float64)

	// Stop silences the tone.
	Stop()
}

// TestEngine sequences a hearing threshold test over the fixed
// frequency set using the ascending-limits method.
//
// Each frequency starts at StartLevelDB. A "not heard" response raises
// the level by LevelStepDB and replays; a "heard" response commits the
// current level as the threshold and moves on. When a raise would
// exceed MaxLevelDB the frequency is committed as NotHeard instead. The
// level never decreases within a frequency and a single "heard" ends
// that frequency's search; there is no confirmation pass.
//
// All methods are safe for concurrent use. The completion callback runs
// outside the engine lock, so it may call back into the engine.
type TestEngine struct {
	mu   sync.RWMutex
	path TonePath

	phase     TestPhase
	freqIndex int
	levelDB   float64
	results   HearingProfile
	sessionID string

	onComplete func(sessionID string, profile HearingProfile)
}

// NewTestEngine creates an idle test engine over the given tone path.
//
// Parameters:
//   - path: Tone presentation path, must not be nil
//
// Returns:
//   - *TestEngine: New engine in PhaseIdle
//   - error: Validation error if path is nil
func NewTestEngine(path TonePath) (*TestEngine, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewTestEngine",
	}).Info("Creating threshold test engine")

	if path == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewTestEngine",
			"error":    "nil tone path",
		}).Error("Engine validation failed")
		return nil, fmt.Errorf("test engine requires a tone path")
	}

	return &TestEngine{
		path:    path,
		phase:   PhaseIdle,
		levelDB: StartLevelDB,
	}, nil
}

// SetCompletionCallback registers the function invoked when a test run
// finishes. The callback receives the session ID and an independent
// copy of the completed profile, and runs outside the engine lock.
func (e *TestEngine) SetCompletionCallback(cb func(sessionID string, profile HearingProfile)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = cb
}

// Start begins a new test run.
//
// Valid from PhaseIdle or PhaseComplete; a previous run's results are
// discarded. The first tone plays immediately at the lowest frequency
// and StartLevelDB. If the tone path reports the audio graph
// unavailable, the engine stays idle and the caller may retry.
//
// Returns:
//   - string: Session ID of the new run
//   - error: ErrInvalidState if a test is already running,
//     ErrEngineUnavailable if the audio graph is not ready
func (e *TestEngine) Start() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase.Active() {
		logrus.WithFields(logrus.Fields{
			"function": "TestEngine.Start",
			"phase":    e.phase.String(),
		}).Error("Test already running")
		return "", fmt.Errorf("start test in phase %s: %w", e.phase, ErrInvalidState)
	}

	if !e.path.Available() {
		logrus.WithFields(logrus.Fields{
			"function": "TestEngine.Start",
		}).Error("Tone path unavailable")
		return "", fmt.Errorf("start test: %w", ErrEngineUnavailable)
	}

	e.sessionID = uuid.New().String()
	e.results = make(HearingProfile, len(TestFrequencies))
	e.freqIndex = 0
	e.levelDB = StartLevelDB
	e.presentCurrent()

	logrus.WithFields(logrus.Fields{
		"function":    "TestEngine.Start",
		"session_id":  e.sessionID,
		"frequencies": len(TestFrequencies),
		"start_level": StartLevelDB,
	}).Info("Threshold test started")

	return e.sessionID, nil
}

// presentCurrent plays the tone for the current frequency and level and
// moves the phase to PhasePlayingTone. Caller holds the lock.
func (e *TestEngine) presentCurrent() {
	freqHz := TestFrequencies[e.freqIndex]
	amplitude := HearingLevelToAmplitude(e.levelDB)
	e.path.Present(float64(freqHz), amplitude)
	e.phase = PhasePlayingTone

	logrus.WithFields(logrus.Fields{
		"function":     "TestEngine.presentCurrent",
		"frequency_hz": freqHz,
		"level_db":     e.levelDB,
		"amplitude":    amplitude,
	}).Debug("Tone presented")
}

// RecordResponse feeds one listener response into the state machine.
//
// Valid while a test is running, in PhasePlayingTone or
// PhaseAwaitingResponse. A true response commits the current level as
// the frequency's threshold; a false response raises the level and
// replays, or commits NotHeard when the maximum level is exhausted.
// Committing the last frequency completes the run and fires the
// completion callback.
//
// Parameters:
//   - heard: Whether the listener perceived the tone
//
// Returns:
//   - error: ErrInvalidState if no test is running
func (e *TestEngine) RecordResponse(heard bool) error {
	fire, err := e.applyResponse(heard)
	if fire != nil {
		fire()
	}
	return err
}

// applyResponse performs the locked portion of RecordResponse and
// returns the completion notification to run after unlocking, if the
// response finished the run.
func (e *TestEngine) applyResponse(heard bool) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.phase.Active() {
		logrus.WithFields(logrus.Fields{
			"function": "TestEngine.RecordResponse",
			"phase":    e.phase.String(),
			"heard":    heard,
		}).Error("Response outside running test")
		return nil, fmt.Errorf("record response in phase %s: %w", e.phase, ErrInvalidState)
	}

	freqHz := TestFrequencies[e.freqIndex]

	if heard {
		e.results[freqHz] = e.levelDB
		logrus.WithFields(logrus.Fields{
			"function":     "TestEngine.RecordResponse",
			"session_id":   e.sessionID,
			"frequency_hz": freqHz,
			"threshold_db": e.levelDB,
		}).Info("Threshold recorded")
		e.path.Stop()
		return e.advance(), nil
	}

	e.levelDB += LevelStepDB
	if e.levelDB > MaxLevelDB {
		e.results[freqHz] = NotHeard
		logrus.WithFields(logrus.Fields{
			"function":     "TestEngine.RecordResponse",
			"session_id":   e.sessionID,
			"frequency_hz": freqHz,
			"max_level_db": MaxLevelDB,
		}).Info("Frequency not heard at maximum level")
		e.path.Stop()
		return e.advance(), nil
	}

	e.presentCurrent()
	return nil, nil
}

// advance moves to the next frequency at the start level, or completes
// the run when none remain. Caller holds the lock; the returned closure,
// if any, is the completion notification to invoke after unlocking.
func (e *TestEngine) advance() func() {
	e.freqIndex++
	if e.freqIndex < len(TestFrequencies) {
		e.levelDB = StartLevelDB
		e.presentCurrent()
		return nil
	}

	e.phase = PhaseComplete

	logrus.WithFields(logrus.Fields{
		"function":   "TestEngine.advance",
		"session_id": e.sessionID,
		"results":    len(e.results),
	}).Info("Threshold test complete")

	if e.onComplete == nil {
		return nil
	}
	cb := e.onComplete
	sessionID := e.sessionID
	profile := e.results.Clone()
	return func() { cb(sessionID, profile) }
}

// ToneFinished marks the current presentation as finished playing and
// silences the tone. The engine waits in PhaseAwaitingResponse until
// the listener responds. Calling it again while already awaiting is a
// harmless no-op, so presentation timers need not coordinate with
// response handling.
//
// Returns:
//   - error: ErrInvalidState if no test is running
func (e *TestEngine) ToneFinished() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase {
	case PhasePlayingTone:
		e.path.Stop()
		e.phase = PhaseAwaitingResponse
		logrus.WithFields(logrus.Fields{
			"function":     "TestEngine.ToneFinished",
			"session_id":   e.sessionID,
			"frequency_hz": TestFrequencies[e.freqIndex],
		}).Debug("Presentation finished, awaiting response")
		return nil
	case PhaseAwaitingResponse:
		return nil
	default:
		return fmt.Errorf("tone finished in phase %s: %w", e.phase, ErrInvalidState)
	}
}

// Cancel aborts the running test, silences the tone, and discards the
// partial results. A subsequent Start begins fresh with no residue.
//
// Returns:
//   - error: ErrInvalidState if no test is running
func (e *TestEngine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.phase.Active() {
		logrus.WithFields(logrus.Fields{
			"function": "TestEngine.Cancel",
			"phase":    e.phase.String(),
		}).Error("Cancel outside running test")
		return fmt.Errorf("cancel test in phase %s: %w", e.phase, ErrInvalidState)
	}

	e.path.Stop()
	e.phase = PhaseIdle
	e.results = nil
	e.sessionID = ""
	e.freqIndex = 0
	e.levelDB = StartLevelDB

	logrus.WithFields(logrus.Fields{
		"function": "TestEngine.Cancel",
	}).Info("Threshold test cancelled")

	return nil
}

// Status returns a snapshot of the engine state for display.
func (e *TestEngine) Status() TestStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := TestStatus{
		Phase:          e.phase,
		LevelDB:        e.levelDB,
		FrequencyIndex: e.freqIndex,
		FrequencyCount: len(TestFrequencies),
		SessionID:      e.sessionID,
	}
	if e.phase.Active() {
		status.FrequencyHz = TestFrequencies[e.freqIndex]
	}
	return status
}

// Results returns a copy of the thresholds recorded so far: partial
// while a test is running, complete after it finishes, empty when idle.
func (e *TestEngine) Results() HearingProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.results == nil {
		return HearingProfile{}
	}
	return e.results.Clone()
}
