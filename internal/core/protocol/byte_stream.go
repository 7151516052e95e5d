package protocol

import (
	"encoding/binary"
	"math"

	"github.com/zeusync/openworld/internal/core/systems/physics"
)

var _ Stream = (*ByteStream)(nil)

// ByteStream is the wire form of Stream: little endian, fixed width,
// floats as their IEEE-754 bits so a round trip is bit exact.
//
//	bool        1 byte
//	int         8 bytes
//	float       8 bytes
//	vector      3 floats
//	quaternion  4 floats (w, x, y, z)
type ByteStream struct {
	mode   Mode
	buf    []byte
	offset int
}

// NewByteWriter returns a write mode stream. buf is reused as scratch
// space and may be nil.
func NewByteWriter(buf []byte) *ByteStream {
	return &ByteStream{mode: ModeWrite, buf: buf[:0]}
}

// NewByteReader returns a read mode stream over data.
func NewByteReader(data []byte) *ByteStream {
	return &ByteStream{mode: ModeRead, buf: data}
}

func (s *ByteStream) Mode() Mode { return s.mode }

// Bytes returns the encoded data of a writer.
func (s *ByteStream) Bytes() []byte { return s.buf }

// Remaining is the number of unread bytes of a reader.
func (s *ByteStream) Remaining() int { return len(s.buf) - s.offset }

func (s *ByteStream) SerializeBool(value bool) (bool, error) {
	if s.mode == ModeWrite {
		var b byte
		if value {
			b = 1
		}
		s.buf = append(s.buf, b)
		return value, nil
	}
	if s.Remaining() < 1 {
		return false, ErrStreamExhausted
	}
	b := s.buf[s.offset]
	s.offset++
	return b != 0, nil
}

func (s *ByteStream) SerializeInt(value int64) (int64, error) {
	raw, err := s.word(uint64(value))
	return int64(raw), err
}

func (s *ByteStream) SerializeFloat(value float64) (float64, error) {
	raw, err := s.word(math.Float64bits(value))
	return math.Float64frombits(raw), err
}

func (s *ByteStream) SerializeVector(value physics.Vector) (physics.Vector, error) {
	if s.mode == ModeRead && s.Remaining() < 24 {
		return physics.Vector{}, ErrStreamExhausted
	}
	var out physics.Vector
	out.X, _ = s.SerializeFloat(value.X)
	out.Y, _ = s.SerializeFloat(value.Y)
	out.Z, _ = s.SerializeFloat(value.Z)
	return out, nil
}

func (s *ByteStream) SerializeQuaternion(value physics.Quaternion) (physics.Quaternion, error) {
	if s.mode == ModeRead && s.Remaining() < 32 {
		return physics.Quaternion{}, ErrStreamExhausted
	}
	var out physics.Quaternion
	out.W, _ = s.SerializeFloat(value.W)
	out.X, _ = s.SerializeFloat(value.X)
	out.Y, _ = s.SerializeFloat(value.Y)
	out.Z, _ = s.SerializeFloat(value.Z)
	return out, nil
}

func (s *ByteStream) word(value uint64) (uint64, error) {
	if s.mode == ModeWrite {
		s.buf = binary.LittleEndian.AppendUint64(s.buf, value)
		return value, nil
	}
	if s.Remaining() < 8 {
		return 0, ErrStreamExhausted
	}
	raw := binary.LittleEndian.Uint64(s.buf[s.offset:])
	s.offset += 8
	return raw, nil
}
