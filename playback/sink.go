package playback

import (
	"errors"
	"fmt"
	"sync"
)

// Sink error conditions.
var (
	// ErrNilSource indicates a sink was constructed without a sample source.
	ErrNilSource = errors.New("sample source is nil")

	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")

	// ErrSinkClosed indicates an operation on a closed sink.
	ErrSinkClosed = errors.New("sink is closed")

	// ErrDeviceInit indicates the platform audio device could not be opened.
	ErrDeviceInit = errors.New("audio device initialization failed")
)

// SampleSource produces mono float32 audio on demand. The sink calls
// Render from its own pacing context, so implementations must be safe
// to call concurrently with control-plane updates.
type SampleSource interface {
	// Render fills out with the next len(out) samples.
	Render(out []float32)
}

// Sink pulls audio from a SampleSource and delivers it somewhere. The
// device-backed implementation is OtoSink; NullSink serves tests and
// headless operation.
type Sink interface {
	// Start begins pulling samples from the source.
	Start() error

	// Stop pauses delivery. The source is not drained while stopped.
	Stop() error

	// Ready reports whether the sink can deliver audio.
	Ready() bool

	// Close releases the sink. A closed sink never becomes ready again.
	Close() error
}

// NullSink is a Sink with no device behind it. Callers advance time
// explicitly with Pump, which makes rendering deterministic under test
// and usable on machines with no audio hardware.
type NullSink struct {
	mu      sync.Mutex
	source  SampleSource
	started bool
	closed  bool
}

// NewNullSink creates a sink that renders from source only when pumped.
//
// Parameters:
//   - source: Producer of samples, must be non-nil
//
// Returns:
//   - *NullSink: Ready sink
//   - error: ErrNilSource if source is nil
func NewNullSink(source SampleSource) (*NullSink, error) {
	if source == nil {
		return nil, fmt.Errorf("create null sink: %w", ErrNilSource)
	}
	return &NullSink{source: source}, nil
}

// Start marks the sink as delivering audio.
func (s *NullSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("start sink: %w", ErrSinkClosed)
	}
	s.started = true
	return nil
}

// Stop pauses delivery. Pump returns silence while stopped.
func (s *NullSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stop sink: %w", ErrSinkClosed)
	}
	s.started = false
	return nil
}

// Ready reports true until the sink is closed.
func (s *NullSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close permanently shuts the sink down. Closing twice is a no-op.
func (s *NullSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Pump renders the next block of audio. A started sink pulls from the
// source; a stopped sink yields silence, matching a paused device.
//
// Parameters:
//   - frames: Number of samples to produce
//
// Returns:
//   - []float32: Rendered samples, len == frames
//   - error: ErrSinkClosed if the sink was closed
func (s *NullSink) Pump(frames int) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("pump sink: %w", ErrSinkClosed)
	}

	out := make([]float32, frames)
	if s.started {
		s.source.Render(out)
	}
	return out, nil
}
