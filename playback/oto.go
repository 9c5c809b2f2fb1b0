package playback

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

const (
	// deviceBufferDuration is how much audio the device buffers ahead.
	// Shorter buffers cut latency but underrun on slow machines.
	deviceBufferDuration = 50 * time.Millisecond

	// initialReaderFrames sizes the pull buffer to cover the largest
	// read the device makes in one callback.
	initialReaderFrames = 4096

	bytesPerSample = 4
)

// sourceReader adapts a SampleSource to the io.Reader the oto player
// pulls from, encoding samples as little-endian float32.
type sourceReader struct {
	source SampleSource
	buf    []float32
}

func (r *sourceReader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerSample
	if frames == 0 {
		return 0, nil
	}

	if len(r.buf) < frames {
		r.buf = make([]float32, frames)
	}
	samples := r.buf[:frames]
	r.source.Render(samples)

	for i, sample := range samples {
		bits := math.Float32bits(sample)
		p[i*bytesPerSample] = byte(bits)
		p[i*bytesPerSample+1] = byte(bits >> 8)
		p[i*bytesPerSample+2] = byte(bits >> 16)
		p[i*bytesPerSample+3] = byte(bits >> 24)
	}
	return frames * bytesPerSample, nil
}

// OtoSink delivers audio to the platform output device through oto.
// The device pulls samples on its own schedule; Start and Stop gate
// whether that pulling happens.
type OtoSink struct {
	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	reader  *sourceReader
	ready   atomic.Bool
	started bool
	closed  bool
}

// NewOtoSink opens the platform audio device for mono float32 output.
// The device initializes asynchronously; Ready reports when it can
// produce sound.
//
// Parameters:
//   - sampleRate: Output rate in Hz, must be positive
//   - source: Producer of samples, must be non-nil
//
// Returns:
//   - *OtoSink: Sink bound to the device
//   - error: ErrNilSource, ErrInvalidSampleRate, or ErrDeviceInit
func NewOtoSink(sampleRate int, source SampleSource) (*OtoSink, error) {
	if source == nil {
		return nil, fmt.Errorf("create oto sink: %w", ErrNilSource)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("create oto sink: rate %d: %w", sampleRate, ErrInvalidSampleRate)
	}

	ctx, readyCh, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   deviceBufferDuration,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "NewOtoSink",
			"sample_rate": sampleRate,
			"error":       err,
		}).Error("Audio device open failed")
		return nil, fmt.Errorf("%w: %v", ErrDeviceInit, err)
	}

	s := &OtoSink{
		ctx: ctx,
		reader: &sourceReader{
			source: source,
			buf:    make([]float32, initialReaderFrames),
		},
	}

	go func() {
		<-readyCh
		s.ready.Store(true)
		logrus.WithFields(logrus.Fields{
			"function":    "NewOtoSink",
			"sample_rate": sampleRate,
		}).Info("Audio device ready")
	}()

	return s, nil
}

// Start begins playback, creating the device player on first use.
func (s *OtoSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("start sink: %w", ErrSinkClosed)
	}
	if s.player == nil {
		s.player = s.ctx.NewPlayer(s.reader)
	}
	if !s.started {
		s.player.Play()
		s.started = true
		logrus.WithFields(logrus.Fields{
			"function": "OtoSink.Start",
		}).Debug("Playback started")
	}
	return nil
}

// Stop pauses playback. The player is kept so Start resumes without
// reopening the device.
func (s *OtoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("stop sink: %w", ErrSinkClosed)
	}
	if s.started && s.player != nil {
		s.player.Pause()
		s.started = false
		logrus.WithFields(logrus.Fields{
			"function": "OtoSink.Stop",
		}).Debug("Playback paused")
	}
	return nil
}

// Ready reports whether the device finished initializing and the sink
// has not been closed.
func (s *OtoSink) Ready() bool {
	return s.ready.Load()
}

// Close stops playback and releases the device player. Closing twice
// is a no-op.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.ready.Store(false)
	s.started = false

	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return fmt.Errorf("close player: %w", err)
		}
		s.player = nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "OtoSink.Close",
	}).Info("Audio device closed")
	return nil
}
