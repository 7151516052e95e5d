package protocol

import (
	"fmt"

	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Mode is fixed when a stream is created. Switching mode mid-use is not
// supported.
type Mode uint8

const (
	ModeWrite Mode = iota
	ModeRead
)

func (m Mode) String() string {
	if m == ModeRead {
		return "read"
	}
	return "write"
}

// Stream is the single abstraction serialization code is written against.
// In write mode every call records its argument and returns it unchanged;
// in read mode every call ignores its argument and returns the next
// recorded value in FIFO order. The same call sequence therefore encodes
// and decodes.
type Stream interface {
	Mode() Mode
	SerializeBool(value bool) (bool, error)
	SerializeInt(value int64) (int64, error)
	SerializeFloat(value float64) (float64, error)
	SerializeVector(value physics.Vector) (physics.Vector, error)
	SerializeQuaternion(value physics.Quaternion) (physics.Quaternion, error)
}

var _ Stream = (*QueueStream)(nil)

// QueueStream keeps values in memory. A writer can be turned into a reader
// with Reader, which shares the recorded values.
type QueueStream struct {
	mode   Mode
	values []any
	next   int
}

func NewWriteQueue() *QueueStream {
	return &QueueStream{mode: ModeWrite}
}

// Reader returns a read mode stream over everything written so far.
func (s *QueueStream) Reader() *QueueStream {
	return &QueueStream{mode: ModeRead, values: s.values}
}

func (s *QueueStream) Mode() Mode { return s.mode }

// Len is the number of values not consumed yet.
func (s *QueueStream) Len() int { return len(s.values) - s.next }

func (s *QueueStream) SerializeBool(value bool) (bool, error) {
	return serializeQueued(s, value)
}

func (s *QueueStream) SerializeInt(value int64) (int64, error) {
	return serializeQueued(s, value)
}

func (s *QueueStream) SerializeFloat(value float64) (float64, error) {
	return serializeQueued(s, value)
}

func (s *QueueStream) SerializeVector(value physics.Vector) (physics.Vector, error) {
	return serializeQueued(s, value)
}

func (s *QueueStream) SerializeQuaternion(value physics.Quaternion) (physics.Quaternion, error) {
	return serializeQueued(s, value)
}

func serializeQueued[T any](s *QueueStream, value T) (T, error) {
	if s.mode == ModeWrite {
		s.values = append(s.values, value)
		return value, nil
	}
	var zero T
	if s.next >= len(s.values) {
		return zero, ErrStreamExhausted
	}
	raw := s.values[s.next]
	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, next value is %T", ErrStreamTypeMismatch, zero, raw)
	}
	s.next++
	return typed, nil
}
