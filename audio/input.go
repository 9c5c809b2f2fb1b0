// Package audio provides the real-time signal path for HearClear.
//
// This file implements input sources for the signal path. An InputSource
// feeds the effect chain; the renderer pulls from it on the audio thread,
// so implementations must not block or allocate in ReadSamples.
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// opusFrameDuration is the frame length pion/opus produces, as a
// divisor of the sample rate (50 frames per second = 20 ms).
const opusFrameDivisor = 50

// maxDecodeSamples bounds one decoded frame: 960 frames per channel at
// 48 kHz, interleaved stereo worst case.
const maxDecodeSamples = 1920

// InputSource supplies mono samples to the signal path.
//
// ReadSamples is called from the render goroutine and must be wait-free:
// return fewer samples rather than block when none are available. Close
// is called from the control plane and stops further delivery.
type InputSource interface {
	// ReadSamples fills out with available samples and returns the
	// count written. The caller treats positions past the count as
	// silent.
	ReadSamples(out []float32) int

	// Close releases the source. ReadSamples on a closed source
	// returns 0.
	Close() error
}

// SilenceSource is an InputSource that always delivers silence. It is
// the default input when no stream is attached, keeping the render loop
// uniform.
type SilenceSource struct{}

// ReadSamples zeroes out and reports it full.
func (SilenceSource) ReadSamples(out []float32) int {
	for i := range out {
		out[i] = 0
	}
	return len(out)
}

// Close implements InputSource. It has no resources to release.
func (SilenceSource) Close() error {
	return nil
}

// sampleRing is a single-producer single-consumer ring buffer of
// float32 samples. The producer is the control-plane decode path and
// the consumer is the render goroutine, so both sides use plain
// load/store on their own index and an atomic load on the other's.
type sampleRing struct {
	buf  []float32
	mask uint64
	head atomic.Uint64
	tail atomic.Uint64
}

// newSampleRing creates a ring holding at least capacity samples,
// rounded up to a power of two for cheap index wrapping.
func newSampleRing(capacity int) *sampleRing {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &sampleRing{
		buf:  make([]float32, size),
		mask: size - 1,
	}
}

// write copies samples into the ring and returns the count stored.
// Samples beyond the free space are not written.
func (r *sampleRing) write(samples []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()
	free := uint64(len(r.buf)) - (head - tail)
	n := uint64(len(samples))
	if n > free {
		n = free
	}
	for i := uint64(0); i < n; i++ {
		r.buf[(head+i)&r.mask] = samples[i]
	}
	r.head.Store(head + n)
	return int(n)
}

// read drains up to len(out) samples from the ring and returns the
// count copied.
func (r *sampleRing) read(out []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()
	avail := head - tail
	n := uint64(len(out))
	if n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		out[i] = r.buf[(tail+i)&r.mask]
	}
	r.tail.Store(tail + n)
	return int(n)
}

// OpusStreamSource decodes pushed Opus packets into a sample ring the
// render loop drains. Packets arrive on the control plane via
// PushPacket; decoded audio crosses to the render plane through the
// lock-free ring.
//
// Decoded frames are downmixed to mono and resampled to the configured
// output rate when the stream rate differs. Samples that arrive while
// the ring is full are dropped and counted rather than blocking the
// caller.
type OpusStreamSource struct {
	mu         sync.Mutex
	decoder    *opus.Decoder
	decodeBuf  []byte
	mixBuf     []float32
	ring       *sampleRing
	resampler  *Resampler
	streamRate float64
	outputRate float64
	closed     atomic.Bool
	dropped    atomic.Uint64
}

// NewOpusStreamSource creates a stream source delivering samples at
// outputRate.
//
// Parameters:
//   - outputRate: Sample rate of the signal path in Hz
//
// Returns:
//   - *OpusStreamSource: New source with an empty buffer
//   - error: Validation error if outputRate is non-positive
func NewOpusStreamSource(outputRate float64) (*OpusStreamSource, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewOpusStreamSource",
		"output_rate": outputRate,
	}).Info("Creating Opus stream source")

	if outputRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewOpusStreamSource",
			"output_rate": outputRate,
			"error":       "output rate must be positive",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: %f", ErrUnsupportedRate, outputRate)
	}

	decoder := opus.NewDecoder()

	// Half a second of buffered audio absorbs decode jitter without
	// adding noticeable stream latency.
	return &OpusStreamSource{
		decoder:    &decoder,
		decodeBuf:  make([]byte, maxDecodeSamples*2),
		mixBuf:     make([]float32, maxDecodeSamples),
		ring:       newSampleRing(int(outputRate / 2)),
		outputRate: outputRate,
	}, nil
}

// PushPacket decodes one Opus packet and buffers the audio for the
// render loop. Safe to call from any goroutine; packets are decoded
// serially.
//
// Parameters:
//   - packet: Encoded Opus packet
//
// Returns:
//   - error: ErrSourceClosed after Close, ErrEmptyPacket for empty
//     input, or a decode error
func (s *OpusStreamSource) PushPacket(packet []byte) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	if len(packet) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "OpusStreamSource.PushPacket",
			"error":    "empty packet",
		}).Error("Packet validation failed")
		return ErrEmptyPacket
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bandwidth, isStereo, err := s.decoder.Decode(packet, s.decodeBuf)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "OpusStreamSource.PushPacket",
			"packet_size": len(packet),
			"error":       err.Error(),
		}).Error("Opus decode failed")
		return fmt.Errorf("decode opus packet: %w", err)
	}

	sampleRate := bandwidth.SampleRate()
	frames := sampleRate / opusFrameDivisor
	mono := s.pcmToMono(frames, isStereo)

	if float64(sampleRate) != s.outputRate {
		mono, err = s.resampleTo(mono, float64(sampleRate))
		if err != nil {
			return err
		}
	}

	written := s.ring.write(mono)
	if written < len(mono) {
		s.dropped.Add(uint64(len(mono) - written))
		logrus.WithFields(logrus.Fields{
			"function":      "OpusStreamSource.PushPacket",
			"dropped":       len(mono) - written,
			"total_dropped": s.dropped.Load(),
		}).Debug("Input ring full, dropping samples")
	}

	logrus.WithFields(logrus.Fields{
		"function":    "OpusStreamSource.PushPacket",
		"packet_size": len(packet),
		"sample_rate": sampleRate,
		"is_stereo":   isStereo,
		"frames":      frames,
	}).Debug("Decoded Opus packet")

	return nil
}

// pcmToMono converts the decoder's S16LE output to mono float32 in
// [-1, 1], averaging channel pairs for stereo frames.
func (s *OpusStreamSource) pcmToMono(frames int, isStereo bool) []float32 {
	if frames > maxDecodeSamples {
		frames = maxDecodeSamples
	}
	mono := s.mixBuf[:frames]
	if isStereo {
		if frames > maxDecodeSamples/2 {
			frames = maxDecodeSamples / 2
			mono = s.mixBuf[:frames]
		}
		for i := 0; i < frames; i++ {
			left := int16(uint16(s.decodeBuf[i*4]) | uint16(s.decodeBuf[i*4+1])<<8)
			right := int16(uint16(s.decodeBuf[i*4+2]) | uint16(s.decodeBuf[i*4+3])<<8)
			mono[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
		}
		return mono
	}
	for i := 0; i < frames; i++ {
		sample := int16(uint16(s.decodeBuf[i*2]) | uint16(s.decodeBuf[i*2+1])<<8)
		mono[i] = float32(sample) / 32768.0
	}
	return mono
}

// resampleTo converts mono samples at streamRate to the output rate,
// rebuilding the resampler when the stream rate changes mid-stream.
func (s *OpusStreamSource) resampleTo(mono []float32, streamRate float64) ([]float32, error) {
	if s.resampler == nil || s.streamRate != streamRate {
		resampler, err := NewResampler(streamRate, s.outputRate)
		if err != nil {
			return nil, err
		}
		s.resampler = resampler
		s.streamRate = streamRate
	}
	return s.resampler.Resample(mono)
}

// ReadSamples drains buffered audio into out. Called from the render
// goroutine; wait-free.
func (s *OpusStreamSource) ReadSamples(out []float32) int {
	if s.closed.Load() {
		return 0
	}
	return s.ring.read(out)
}

// DroppedSamples returns the count of decoded samples discarded
// because the buffer was full.
func (s *OpusStreamSource) DroppedSamples() uint64 {
	return s.dropped.Load()
}

// Close stops the source. Subsequent PushPacket calls return
// ErrSourceClosed and ReadSamples returns 0.
func (s *OpusStreamSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"function":        "OpusStreamSource.Close",
		"dropped_samples": s.dropped.Load(),
	}).Info("Closing Opus stream source")
	return nil
}
