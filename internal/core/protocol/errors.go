package protocol

import "errors"

var (
	// Stream errors

	ErrStreamExhausted    = errors.New("stream exhausted")
	ErrStreamTypeMismatch = errors.New("stream value type mismatch")

	// Frame errors

	ErrInvalidFrame     = errors.New("invalid frame")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
