package server

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Snapshot is the decoded form of one replication frame.
//
// Wire layout, through a protocol.ByteStream:
//
//	int     sequence
//	vector  reference point origin
//	int     object count
//	per object:
//	  int   id
//	  int   type index (position in the schema's sorted type list)
//	  bool  pending hibernation
//	  bool  changed since the last frame sent to this client
//	  ...   every component's Serialize output, only when changed
type Snapshot struct {
	Sequence uint64
	Origin   physics.Vector
	Objects  []SnapshotObject
}

type SnapshotObject struct {
	ID      components.ObjectID
	Type    string
	Pending bool
	Changed bool
	// Object holds the replicated state; nil when Changed is false.
	Object *components.Object
}

// replicated is an active object prepared once per tick for every client.
type replicated struct {
	obj       *components.Object
	typeIndex int
	pending   bool
	digest    uint64
}

// prepare hashes the replicated state of obj. buf is scratch space and is
// returned for reuse.
func prepare(schema *components.Schema, obj *components.Object, pending bool, buf []byte) (replicated, []byte, error) {
	typeIndex, ok := schema.TypeIndex(obj.Type())
	if !ok {
		return replicated{}, buf, fmt.Errorf("%w: %s", components.ErrUnknownObjectType, obj.Type())
	}
	scratch := protocol.NewByteWriter(buf)
	if err := obj.Serialize(scratch); err != nil {
		return replicated{}, buf, err
	}
	return replicated{
		obj:       obj,
		typeIndex: typeIndex,
		pending:   pending,
		digest:    xxhash.Sum64(scratch.Bytes()),
	}, scratch.Bytes(), nil
}

// encodeSnapshot writes the frame payload for one client and records the
// digests it sent.
func encodeSnapshot(stream protocol.Stream, sequence uint64, origin physics.Vector, objects []replicated, digests map[components.ObjectID]uint64) error {
	if _, err := stream.SerializeInt(int64(sequence)); err != nil {
		return err
	}
	if _, err := stream.SerializeVector(origin); err != nil {
		return err
	}
	if _, err := stream.SerializeInt(int64(len(objects))); err != nil {
		return err
	}

	for _, r := range objects {
		id := r.obj.ID()
		last, seen := digests[id]
		changed := !seen || last != r.digest

		if _, err := stream.SerializeInt(int64(id)); err != nil {
			return err
		}
		if _, err := stream.SerializeInt(int64(r.typeIndex)); err != nil {
			return err
		}
		if _, err := stream.SerializeBool(r.pending); err != nil {
			return err
		}
		if _, err := stream.SerializeBool(changed); err != nil {
			return err
		}
		if changed {
			if err := r.obj.Serialize(stream); err != nil {
				return err
			}
			digests[id] = r.digest
		}
	}
	return nil
}

// DecodeSnapshot reads a frame payload. Changed objects are rebuilt from
// the schema and filled from the stream.
func DecodeSnapshot(builder *components.Builder, payload []byte) (Snapshot, error) {
	stream := protocol.NewByteReader(payload)
	var snap Snapshot

	sequence, err := stream.SerializeInt(0)
	if err != nil {
		return snap, fmt.Errorf("%w: header: %v", ErrInvalidSnapshot, err)
	}
	snap.Sequence = uint64(sequence)
	if snap.Origin, err = stream.SerializeVector(physics.Vector{}); err != nil {
		return snap, fmt.Errorf("%w: header: %v", ErrInvalidSnapshot, err)
	}
	count, err := stream.SerializeInt(0)
	if err != nil || count < 0 {
		return snap, fmt.Errorf("%w: object count", ErrInvalidSnapshot)
	}

	for i := int64(0); i < count; i++ {
		var entry SnapshotObject

		id, err := stream.SerializeInt(0)
		if err != nil {
			return snap, fmt.Errorf("%w: object %d: %v", ErrInvalidSnapshot, i, err)
		}
		entry.ID = components.ObjectID(id)

		typeIndex, err := stream.SerializeInt(0)
		if err != nil {
			return snap, fmt.Errorf("%w: object %d: %v", ErrInvalidSnapshot, i, err)
		}
		var ok bool
		if entry.Type, ok = builder.Schema().TypeName(int(typeIndex)); !ok {
			return snap, fmt.Errorf("%w: object %d: type index %d", ErrInvalidSnapshot, entry.ID, typeIndex)
		}

		if entry.Pending, err = stream.SerializeBool(false); err != nil {
			return snap, fmt.Errorf("%w: object %d: %v", ErrInvalidSnapshot, entry.ID, err)
		}
		if entry.Changed, err = stream.SerializeBool(false); err != nil {
			return snap, fmt.Errorf("%w: object %d: %v", ErrInvalidSnapshot, entry.ID, err)
		}

		if entry.Changed {
			if entry.Object, err = builder.Build(entry.ID, entry.Type); err != nil {
				return snap, err
			}
			if err = entry.Object.Serialize(stream); err != nil {
				return snap, fmt.Errorf("%w: object %d: %v", ErrInvalidSnapshot, entry.ID, err)
			}
		}
		snap.Objects = append(snap.Objects, entry)
	}
	return snap, nil
}
