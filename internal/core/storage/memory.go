package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/zeusync/openworld/internal/core/components"
)

var _ Store = (*Memory)(nil)

type memoryRecord struct {
	typ  string
	data []byte
}

// Memory keeps CBOR encoded object records in a map.
type Memory struct {
	builder *components.Builder

	mx      sync.RWMutex
	records map[components.ObjectID]memoryRecord
}

func NewMemory(builder *components.Builder) *Memory {
	return &Memory{
		builder: builder,
		records: make(map[components.ObjectID]memoryRecord),
	}
}

func (m *Memory) Retrieve(ctx context.Context, id components.ObjectID) (*components.Object, error) {
	return m.RetrieveByType(ctx, id, "")
}

// RetrieveByType is Retrieve with a type check. An empty typ matches any
// stored type.
func (m *Memory) RetrieveByType(ctx context.Context, id components.ObjectID, typ string) (*components.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mx.RLock()
	rec, ok := m.records[id]
	m.mx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if typ != "" && rec.typ != typ {
		return nil, fmt.Errorf("%w: %d is %s, not %s", ErrTypeMismatch, id, rec.typ, typ)
	}

	var record components.ObjectRecord
	if err := cbor.Unmarshal(rec.data, &record); err != nil {
		return nil, fmt.Errorf("decode object %d: %w", id, err)
	}
	return m.builder.DecodeObject(record)
}

func (m *Memory) Store(ctx context.Context, id components.ObjectID, obj *components.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := m.builder.EncodeObject(obj)
	stored := uint64(id)
	record.ID = &stored

	data, err := cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode object %d: %w", id, err)
	}

	m.mx.Lock()
	m.records[id] = memoryRecord{typ: obj.Type(), data: data}
	m.mx.Unlock()
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mx.RLock()
	entries := make([]Entry, 0, len(m.records))
	for id, rec := range m.records {
		entries = append(entries, Entry{ID: id, Type: rec.typ})
	}
	m.mx.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return len(m.records)
}
