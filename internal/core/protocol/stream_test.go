package protocol

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// writeSample drives the same call sequence for both directions.
func writeSample(t *testing.T, s Stream) (bool, int64, float64, physics.Vector, physics.Quaternion) {
	t.Helper()
	b, err := s.SerializeBool(true)
	require.NoError(t, err)
	i, err := s.SerializeInt(-42)
	require.NoError(t, err)
	f, err := s.SerializeFloat(0.1)
	require.NoError(t, err)
	v, err := s.SerializeVector(physics.Vec(1, -2, 3.5))
	require.NoError(t, err)
	q, err := s.SerializeQuaternion(physics.Quaternion{W: 0.5, X: 0.5, Y: -0.5, Z: 0.5})
	require.NoError(t, err)
	return b, i, f, v, q
}

func TestQueueStream_RoundTrip(t *testing.T) {
	w := NewWriteQueue()
	assert.Equal(t, ModeWrite, w.Mode())
	writeSample(t, w)

	r := w.Reader()
	assert.Equal(t, ModeRead, r.Mode())
	assert.Equal(t, 5, r.Len())

	b, err := r.SerializeBool(false)
	require.NoError(t, err)
	assert.True(t, b)

	i, err := r.SerializeInt(0)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), i)

	f, err := r.SerializeFloat(0)
	require.NoError(t, err)
	assert.Equal(t, 0.1, f)

	v, err := r.SerializeVector(physics.Vector{})
	require.NoError(t, err)
	assert.Equal(t, physics.Vec(1, -2, 3.5), v)

	q, err := r.SerializeQuaternion(physics.Quaternion{})
	require.NoError(t, err)
	assert.Equal(t, physics.Quaternion{W: 0.5, X: 0.5, Y: -0.5, Z: 0.5}, q)

	_, err = r.SerializeBool(false)
	assert.ErrorIs(t, err, ErrStreamExhausted)
}

func TestQueueStream_TypeMismatch(t *testing.T) {
	w := NewWriteQueue()
	_, _ = w.SerializeFloat(1)

	r := w.Reader()
	_, err := r.SerializeInt(0)
	assert.ErrorIs(t, err, ErrStreamTypeMismatch)
	// the value is not consumed
	assert.Equal(t, 1, r.Len())
}

func TestByteStream_BitExact(t *testing.T) {
	w := NewByteWriter(nil)
	writeSample(t, w)
	_, err := w.SerializeFloat(math.Inf(-1))
	require.NoError(t, err)
	_, err = w.SerializeFloat(math.SmallestNonzeroFloat64)
	require.NoError(t, err)
	assert.Len(t, w.Bytes(), 1+8+8+24+32+8+8)

	r := NewByteReader(w.Bytes())
	b, i, f, v, q := writeSample(t, r)
	assert.True(t, b)
	assert.Equal(t, int64(-42), i)
	assert.Equal(t, math.Float64bits(0.1), math.Float64bits(f))
	assert.Equal(t, physics.Vec(1, -2, 3.5), v)
	assert.Equal(t, physics.Quaternion{W: 0.5, X: 0.5, Y: -0.5, Z: 0.5}, q)

	inf, err := r.SerializeFloat(0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(inf, -1))
	tiny, err := r.SerializeFloat(0)
	require.NoError(t, err)
	assert.Equal(t, math.SmallestNonzeroFloat64, tiny)
	assert.Zero(t, r.Remaining())
}

func TestByteStream_ShortBuffer(t *testing.T) {
	r := NewByteReader([]byte{1, 2, 3})
	_, err := r.SerializeInt(0)
	assert.ErrorIs(t, err, ErrStreamExhausted)

	_, err = r.SerializeVector(physics.Vector{})
	assert.ErrorIs(t, err, ErrStreamExhausted)

	_, err = NewByteReader(nil).SerializeBool(false)
	assert.ErrorIs(t, err, ErrStreamExhausted)
}

func TestFrameCodec(t *testing.T) {
	payload := bytes.Repeat([]byte("cube "), 200)

	for _, compress := range []bool{false, true} {
		codec := FrameCodec{Compress: compress}
		frame, err := codec.Encode(payload)
		require.NoError(t, err)
		if compress {
			assert.Less(t, len(frame), len(payload))
		} else {
			assert.Len(t, frame, frameHeaderSize+len(payload))
		}

		out, err := codec.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	}
}

func TestFrameCodec_Corruption(t *testing.T) {
	codec := FrameCodec{}
	frame, err := codec.Encode([]byte("hello world"))
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xff
	_, err = codec.Decode(frame)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = codec.Decode(frame[:5])
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = codec.Decode(frame[:len(frame)-2])
	assert.ErrorIs(t, err, ErrInvalidFrame)
}
