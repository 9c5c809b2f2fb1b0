package audio

import "errors"

// Sentinel errors for audio package operations.
// These errors enable reliable error classification using errors.Is().

// Effect chain errors.
var (
	// ErrBandOutOfRange indicates an equalizer band index outside the
	// fixed range set at construction.
	ErrBandOutOfRange = errors.New("equalizer band index out of range")

	// ErrUnsupportedRate indicates a sample rate the signal path cannot run at.
	ErrUnsupportedRate = errors.New("unsupported sample rate")
)

// Input source errors.
var (
	// ErrSourceClosed indicates the input source has been closed.
	ErrSourceClosed = errors.New("input source is closed")

	// ErrEmptyPacket indicates a zero-length packet was pushed for decoding.
	ErrEmptyPacket = errors.New("empty audio packet")
)
