package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

func TestSnapshotDigests(t *testing.T) {
	builder := testBuilder()
	cube, err := builder.Build(3, "cube")
	require.NoError(t, err)
	ball, err := builder.Build(8, "ball")
	require.NoError(t, err)

	digests := make(map[components.ObjectID]uint64)
	encode := func(sequence uint64, pendingBall bool) Snapshot {
		var objects []replicated
		for _, obj := range []*components.Object{cube, ball} {
			r, _, err := prepare(builder.Schema(), obj, pendingBall && obj == ball, nil)
			require.NoError(t, err)
			objects = append(objects, r)
		}
		stream := protocol.NewByteWriter(nil)
		require.NoError(t, encodeSnapshot(stream, sequence, physics.Vec(4, 5, 0), objects, digests))
		snap, err := DecodeSnapshot(builder, stream.Bytes())
		require.NoError(t, err)
		return snap
	}

	snap := encode(1, false)
	assert.Equal(t, uint64(1), snap.Sequence)
	assert.Equal(t, physics.Vec(4, 5, 0), snap.Origin)
	require.Len(t, snap.Objects, 2)
	assert.Equal(t, "ball", snap.Objects[1].Type)
	assert.True(t, snap.Objects[0].Changed)
	assert.True(t, snap.Objects[1].Changed)

	c, _ := cube.Component("physics")
	require.NoError(t, c.Set("position", physics.Vec(0, 0, 2)))

	snap = encode(2, true)
	assert.True(t, snap.Objects[0].Changed)
	assert.False(t, snap.Objects[1].Changed)
	assert.True(t, snap.Objects[1].Pending)
	rc, _ := snap.Objects[0].Object.Component("physics")
	assert.Equal(t, physics.Vec(0, 0, 2), rc.Vector("position"))

	// a dropped digest forces a resend
	delete(digests, 8)
	snap = encode(3, false)
	assert.False(t, snap.Objects[0].Changed)
	assert.True(t, snap.Objects[1].Changed)
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	builder := testBuilder()
	_, err := DecodeSnapshot(builder, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	stream := protocol.NewByteWriter(nil)
	_, _ = stream.SerializeInt(1)
	_, _ = stream.SerializeVector(physics.Vector{})
	_, _ = stream.SerializeInt(1)
	_, _ = stream.SerializeInt(1)
	_, _ = stream.SerializeInt(99)
	_, err = DecodeSnapshot(builder, stream.Bytes())
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}
