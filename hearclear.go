// Package hearclear implements a self-fitting hearing assistance
// system.
//
// HearClear measures a listener's hearing thresholds with a pure-tone
// test, converts the results into per-band equalizer corrections, and
// applies them to live audio on its way to the output device.
//
// Example:
//
//	options := hearclear.NewOptions()
//
//	hc, err := hearclear.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hc.Close()
//
//	hc.OnTestComplete(func(sessionID string, profile audiometry.HearingProfile) {
//	    fmt.Printf("Test %s finished with %d thresholds\n", sessionID, len(profile))
//	})
//
//	// Run a threshold test: present each tone, then record whether
//	// the listener heard it.
//	if _, err := hc.StartTest(); err != nil {
//	    log.Fatal(err)
//	}
//	for hc.TestStatus().Phase.Active() {
//	    time.Sleep(time.Second)
//	    hc.StopTestTone()
//	    heard := askListener()
//	    hc.RecordResponse(heard)
//	}
//
//	// Route a decoded Opus stream through the fitted correction chain.
//	stream, err := hc.AttachStream()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for packet := range packets {
//	    stream.PushPacket(packet)
//	}
package hearclear

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/hearclear/analysis"
	"github.com/opd-ai/hearclear/audio"
	"github.com/opd-ai/hearclear/audiometry"
	"github.com/opd-ai/hearclear/playback"
)

// Facade error conditions.
var (
	// ErrNoTestResults indicates a save was requested with nothing measured.
	ErrNoTestResults = errors.New("no test results to save")

	// ErrNoStream indicates a detach with no stream attached.
	ErrNoStream = errors.New("no stream attached")

	// ErrStreamAttached indicates an attach while a stream is already attached.
	ErrStreamAttached = errors.New("a stream is already attached")

	// ErrClosed indicates an operation on a closed instance.
	ErrClosed = errors.New("instance is closed")
)

// DefaultProfileName is the store entry a completed threshold test is
// saved under automatically.
const DefaultProfileName = "latest"

// SinkFactory builds the playback sink an instance delivers audio
// through. The factory receives the output rate and the source the
// sink must pull from.
type SinkFactory func(sampleRate int, source playback.SampleSource) (playback.Sink, error)

// Options contains configuration options for creating a HearClear
// instance.
type Options struct {
	// SampleRate is the output rate in Hz for rendering and playback.
	SampleRate int

	// BandCount is the number of equalizer bands in the correction
	// chain. Seven bands cover the audiometric octaves 125 Hz to 8 kHz.
	BandCount int

	// SinkFactory overrides how the output sink is created. Nil selects
	// the platform audio device.
	SinkFactory SinkFactory
}

// NewOptions creates a new Options instance with default settings.
func NewOptions() *Options {
	return &Options{
		SampleRate: 48000,
		BandCount:  7,
	}
}

// HearClear is a self-fitting hearing assistance instance: one render
// path from an optional input stream through the correction chain to
// an output sink, plus the threshold test machinery that tunes the
// chain.
type HearClear struct {
	options *Options

	tone     *audio.ToneGenerator
	chain    *audio.EffectChain
	renderer *audio.Renderer
	engine   *audiometry.TestEngine
	store    *audiometry.ProfileStore
	sink     playback.Sink

	// mu serializes control operations that check engine state before
	// touching the tone generator or the render input, and guards the
	// stream and closed fields.
	mu     sync.Mutex
	stream *audio.OpusStreamSource
	closed bool

	// cbMu guards only the user completion callback so it can fire
	// without holding mu.
	cbMu       sync.Mutex
	completeCb func(sessionID string, profile audiometry.HearingProfile)
}

// tonePath adapts the tone generator and sink to the interface the
// test engine drives. The engine serializes all calls, so the adapter
// keeps plain state.
type tonePath struct {
	tone       *audio.ToneGenerator
	sink       playback.Sink
	lastFreqHz float64
}

func (p *tonePath) Available() bool {
	return p.sink.Ready()
}

// Present starts a calibrated tone. The phase restarts only when the
// frequency changes, so raising the level mid-frequency keeps the
// waveform continuous.
func (p *tonePath) Present(freqHz, amplitude float64) {
	if freqHz != p.lastFreqHz {
		p.tone.Reset()
		p.lastFreqHz = freqHz
	}
	p.tone.SetFrequency(freqHz)
	p.tone.SetAmplitude(amplitude)
}

func (p *tonePath) Stop() {
	p.tone.SetAmplitude(0)
}

// New creates a new HearClear instance with the given options.
// If options is nil, default options are used.
//
// The instance starts delivering audio immediately: silence until a
// stream is attached or a tone plays. Call Close to release the sink.
//
// Returns:
//   - *HearClear: Running instance
//   - error: Construction error from any component
func New(options *Options) (*HearClear, error) {
	if options == nil {
		options = NewOptions()
	}
	factory := options.SinkFactory
	if factory == nil {
		factory = func(sampleRate int, source playback.SampleSource) (playback.Sink, error) {
			return playback.NewOtoSink(sampleRate, source)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"sample_rate": options.SampleRate,
		"band_count":  options.BandCount,
	}).Info("Creating HearClear instance")

	chain, err := audio.NewEffectChain(float64(options.SampleRate), options.BandCount)
	if err != nil {
		return nil, fmt.Errorf("create effect chain: %w", err)
	}
	tone := audio.NewToneGenerator(float64(options.SampleRate))

	renderer, err := audio.NewRenderer(chain, tone, audio.SilenceSource{})
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	sink, err := factory(options.SampleRate, renderer)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}

	engine, err := audiometry.NewTestEngine(&tonePath{tone: tone, sink: sink})
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("create test engine: %w", err)
	}

	h := &HearClear{
		options:  options,
		tone:     tone,
		chain:    chain,
		renderer: renderer,
		engine:   engine,
		store:    audiometry.NewProfileStore(),
		sink:     sink,
	}
	engine.SetCompletionCallback(h.handleTestComplete)

	if err := sink.Start(); err != nil {
		sink.Close()
		return nil, fmt.Errorf("start sink: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "New",
	}).Info("HearClear instance created successfully")

	return h, nil
}

// handleTestComplete applies and stores the profile a finished
// threshold test produced, then notifies the registered callback.
func (h *HearClear) handleTestComplete(sessionID string, profile audiometry.HearingProfile) {
	if err := audiometry.ApplyProfile(h.chain, profile); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "HearClear.handleTestComplete",
			"session_id": sessionID,
			"error":      err,
		}).Error("Applying completed profile failed")
	}
	if err := h.store.Save(DefaultProfileName, profile, sessionID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "HearClear.handleTestComplete",
			"session_id": sessionID,
			"error":      err,
		}).Error("Storing completed profile failed")
	}

	h.cbMu.Lock()
	cb := h.completeCb
	h.cbMu.Unlock()
	if cb != nil {
		cb(sessionID, profile)
	}
}

// OnTestComplete registers a callback invoked after a threshold test
// finishes and its profile has been applied to the chain. Passing nil
// removes the callback.
func (h *HearClear) OnTestComplete(cb func(sessionID string, profile audiometry.HearingProfile)) {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	h.completeCb = cb
}

// StartTest begins a threshold test session. The first tone starts
// sounding before the call returns.
//
// Returns:
//   - string: Session ID of the new test
//   - error: ErrClosed, audiometry.ErrInvalidState if a test is
//     running, or audiometry.ErrEngineUnavailable if the sink is not
//     ready
func (h *HearClear) StartTest() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", fmt.Errorf("start test: %w", ErrClosed)
	}
	return h.engine.Start()
}

// RecordResponse reports whether the listener heard the current tone.
// On completion the measured profile is applied to the chain and saved
// under DefaultProfileName before this returns.
//
// Returns:
//   - error: audiometry.ErrInvalidState if no test is running
func (h *HearClear) RecordResponse(heard bool) error {
	return h.engine.RecordResponse(heard)
}

// CancelTest abandons the running test and discards partial results.
//
// Returns:
//   - error: audiometry.ErrInvalidState if no test is running
func (h *HearClear) CancelTest() error {
	return h.engine.Cancel()
}

// TestStatus returns a snapshot of the current test state.
func (h *HearClear) TestStatus() audiometry.TestStatus {
	return h.engine.Status()
}

// TestResults returns the thresholds measured so far. During a test
// the map holds the frequencies already committed; after completion it
// holds all of them.
func (h *HearClear) TestResults() audiometry.HearingProfile {
	return h.engine.Results()
}

// PlayTestTone sounds a calibrated tone outside a test session, for
// output checks and demonstrations. The tone keeps sounding until
// StopTestTone.
//
// Parameters:
//   - freqHz: Tone frequency in Hz
//   - levelDB: Level in dB HL, clamped to the audiometric range
//
// Returns:
//   - error: ErrClosed, or audiometry.ErrInvalidState while a test is
//     running
func (h *HearClear) PlayTestTone(freqHz int, levelDB float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("play tone: %w", ErrClosed)
	}
	if h.engine.Status().Phase.Active() {
		return fmt.Errorf("play tone during test: %w", audiometry.ErrInvalidState)
	}

	h.tone.Reset()
	h.tone.SetFrequency(float64(freqHz))
	h.tone.SetAmplitude(audiometry.HearingLevelToAmplitude(levelDB))

	logrus.WithFields(logrus.Fields{
		"function":     "HearClear.PlayTestTone",
		"frequency_hz": freqHz,
		"level_db":     levelDB,
	}).Info("Manual tone started")
	return nil
}

// StopTestTone ends the current tone presentation. During a test this
// tells the engine the tone finished sounding, moving it to await the
// listener's response. Outside a test it silences a manual tone.
func (h *HearClear) StopTestTone() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("stop tone: %w", ErrClosed)
	}
	if h.engine.Status().Phase.Active() {
		return h.engine.ToneFinished()
	}
	h.tone.SetAmplitude(0)
	return nil
}

// ApplyProfile configures the correction chain from measured
// thresholds.
func (h *HearClear) ApplyProfile(profile audiometry.HearingProfile) error {
	return audiometry.ApplyProfile(h.chain, profile)
}

// ApplyPreset configures the correction chain from a named preset.
func (h *HearClear) ApplyPreset(preset audiometry.Preset) error {
	return audiometry.ApplyPreset(h.chain, preset)
}

// SetMasterGain adjusts the output gain applied after correction,
// without touching the rest of the dynamics configuration.
func (h *HearClear) SetMasterGain(gainDB float64) {
	params := h.chain.GetDynamics()
	params.MasterGainDB = gainDB
	h.chain.SetDynamics(params)
}

// AttachStream creates an Opus stream input and routes it into the
// render path. The caller feeds it with PushPacket on the returned
// source.
//
// Returns:
//   - *audio.OpusStreamSource: Source to push packets into
//   - error: ErrClosed or ErrStreamAttached
func (h *HearClear) AttachStream() (*audio.OpusStreamSource, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("attach stream: %w", ErrClosed)
	}
	if h.stream != nil {
		return nil, fmt.Errorf("attach stream: %w", ErrStreamAttached)
	}

	source, err := audio.NewOpusStreamSource(float64(h.options.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("attach stream: %w", err)
	}
	if err := h.renderer.SetInput(source); err != nil {
		source.Close()
		return nil, fmt.Errorf("attach stream: %w", err)
	}
	h.stream = source

	logrus.WithFields(logrus.Fields{
		"function": "HearClear.AttachStream",
	}).Info("Stream attached")
	return source, nil
}

// DetachStream removes the attached stream and returns the render path
// to silence. Filter state is cleared so the next stream does not ring
// with the old one's tail.
//
// Returns:
//   - error: ErrClosed or ErrNoStream
func (h *HearClear) DetachStream() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("detach stream: %w", ErrClosed)
	}
	return h.detachStreamLocked()
}

func (h *HearClear) detachStreamLocked() error {
	if h.stream == nil {
		return fmt.Errorf("detach stream: %w", ErrNoStream)
	}
	if err := h.renderer.SetInput(audio.SilenceSource{}); err != nil {
		return fmt.Errorf("detach stream: %w", err)
	}
	h.stream.Close()
	h.stream = nil
	h.chain.Reset()

	logrus.WithFields(logrus.Fields{
		"function": "HearClear.DetachStream",
	}).Info("Stream detached")
	return nil
}

// SaveProfile stores the measured test results under a name.
//
// Returns:
//   - error: ErrNoTestResults if nothing has been measured, or a
//     store error
func (h *HearClear) SaveProfile(name string) error {
	profile := h.engine.Results()
	if len(profile) == 0 {
		return fmt.Errorf("save profile %q: %w", name, ErrNoTestResults)
	}
	return h.store.Save(name, profile, h.engine.Status().SessionID)
}

// LoadProfile loads a stored profile and applies it to the correction
// chain.
//
// Returns:
//   - error: audiometry.ErrNoSuchProfile or an apply error
func (h *HearClear) LoadProfile(name string) error {
	stored, err := h.store.Load(name)
	if err != nil {
		return err
	}
	return audiometry.ApplyProfile(h.chain, stored.Profile)
}

// DeleteProfile removes a stored profile.
func (h *HearClear) DeleteProfile(name string) error {
	return h.store.Delete(name)
}

// ProfileNames returns the stored profile names in sorted order.
func (h *HearClear) ProfileNames() []string {
	return h.store.Names()
}

// ResponseCurve measures the correction currently applied at each
// audiometric frequency. The measurement runs on a copy of the chain
// configuration, leaving the live render path untouched.
//
// Returns:
//   - map[int]float64: Gain in dB keyed by frequency
//   - error: Measurement error
func (h *HearClear) ResponseCurve() (map[int]float64, error) {
	mirror, err := audio.NewEffectChain(float64(h.options.SampleRate), h.chain.GetBandCount())
	if err != nil {
		return nil, fmt.Errorf("response curve: %w", err)
	}
	for i := 0; i < h.chain.GetBandCount(); i++ {
		band, err := h.chain.GetBand(i)
		if err != nil {
			return nil, fmt.Errorf("response curve: %w", err)
		}
		if err := mirror.SetBand(i, band); err != nil {
			return nil, fmt.Errorf("response curve: %w", err)
		}
	}
	mirror.SetDynamics(h.chain.GetDynamics())

	return analysis.ResponseCurve(mirror, audiometry.TestFrequencies)
}

// Close stops audio delivery and releases the sink. A running test is
// cancelled. Closing twice is a no-op.
func (h *HearClear) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	if h.engine.Status().Phase.Active() {
		h.engine.Cancel()
	}
	if h.stream != nil {
		h.detachStreamLocked()
	}
	h.tone.SetAmplitude(0)

	if err := h.sink.Close(); err != nil {
		return fmt.Errorf("close sink: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "HearClear.Close",
	}).Info("HearClear instance closed")
	return nil
}
