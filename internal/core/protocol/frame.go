package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"

	"github.com/zeusync/openworld/pkg/generic"
)

const (
	frameHeaderSize = 13
	// MaxFrameSize bounds the decoded payload of a single frame.
	MaxFrameSize = 16 << 20

	flagCompressed byte = 1 << 0

	// payloads smaller than this are never worth compressing
	compressThreshold = 128
)

var compressBuffers = generic.NewBufferPool(64 << 10)

// FrameCodec wraps snapshot payloads for the wire.
//
// Layout: flags (1) | payload length (4) | xxhash64 of payload (8) | body.
// The checksum always covers the uncompressed payload.
type FrameCodec struct {
	Compress bool
}

func (c FrameCodec) Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	body := payload
	var flags byte
	if c.Compress && len(payload) >= compressThreshold {
		scratch := compressBuffers.Get()
		defer compressBuffers.Put(scratch)

		bound := lz4.CompressBlockBound(len(payload))
		if cap(*scratch) < bound {
			*scratch = make([]byte, 0, bound)
		}
		compressed := (*scratch)[:bound]
		n, err := lz4.CompressBlock(payload, compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// zero means incompressible
		if n > 0 && n < len(payload) {
			body = compressed[:n]
			flags |= flagCompressed
		}
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(body))
	frame[0] = flags
	binary.LittleEndian.PutUint32(frame[1:5], uint32(len(payload)))
	binary.LittleEndian.PutUint64(frame[5:13], xxhash.Sum64(payload))
	return append(frame, body...), nil
}

func (c FrameCodec) Decode(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrInvalidFrame, len(frame))
	}
	flags := frame[0]
	size := int(binary.LittleEndian.Uint32(frame[1:5]))
	sum := binary.LittleEndian.Uint64(frame[5:13])
	body := frame[frameHeaderSize:]

	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := body
	if flags&flagCompressed != 0 {
		payload = make([]byte, size)
		n, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrInvalidFrame, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: got %d bytes, header says %d", ErrInvalidFrame, n, size)
		}
	} else if len(body) != size {
		return nil, fmt.Errorf("%w: got %d bytes, header says %d", ErrInvalidFrame, len(body), size)
	}

	if xxhash.Sum64(payload) != sum {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}
