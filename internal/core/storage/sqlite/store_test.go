package sqlite

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/properties"
	"github.com/zeusync/openworld/internal/core/storage"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

func testBuilder() *components.Builder {
	body := components.MustNewKind("body", []*properties.Definition{
		properties.MustNew("position", properties.Vector3, physics.Vector{}),
		properties.MustNew("orientation", properties.Quaternion, physics.Identity),
		properties.MustNew("heading", properties.UnitVector3, physics.Vec(0, 1, 0)),
		properties.MustNew("enabled", properties.Boolean, true),
		properties.MustNew("mass", properties.Float, 1.0, properties.AsConstant()),
	})
	health := components.MustNewKind("health", []*properties.Definition{
		properties.MustNew("health", properties.Integer, 100, properties.WithRange(0, 100)),
	})
	return components.NewBuilder(components.MustNewSchema(
		[]*components.Kind{body, health},
		map[string][]string{"cube": {"body", "health"}, "ghost": {"body"}},
	))
}

func openTestStore(t *testing.T, builder *components.Builder) *Store {
	t.Helper()
	store, err := Open(t.Context(), filepath.Join(t.TempDir(), "world.db"), builder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(t.Context(), " ", testBuilder())
	require.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := t.Context()
	builder := testBuilder()
	store := openTestStore(t, builder)

	obj, err := builder.Build(12, "cube")
	require.NoError(t, err)
	body, _ := obj.Component("body")
	require.NoError(t, body.Set("position", physics.Vec(0.1, -1e-9, math.Pi)))
	require.NoError(t, body.Set("orientation", physics.Quaternion{W: 0.3, X: 0.1, Y: 0.2, Z: 0.9}))
	require.NoError(t, body.Set("heading", physics.Vec(1, 1, 0)))
	require.NoError(t, body.Set("enabled", false))
	health, _ := obj.Component("health")
	require.NoError(t, health.Set("health", 37))

	require.NoError(t, store.Store(ctx, 12, obj))

	got, err := store.RetrieveByType(ctx, 12, "cube")
	require.NoError(t, err)
	for i, c := range obj.Components() {
		for slot := range c.Kind().Definitions() {
			assert.Equal(t, c.At(slot), got.Components()[i].At(slot), "%s slot %d", c.Kind().Name(), slot)
		}
	}

	// overwrite
	require.NoError(t, health.Set("health", 1))
	require.NoError(t, store.Store(ctx, 12, obj))
	got, err = store.Retrieve(ctx, 12)
	require.NoError(t, err)
	gh, _ := got.Component("health")
	assert.Equal(t, int64(1), gh.Int("health"))
}

func TestStore_Errors(t *testing.T) {
	ctx := t.Context()
	builder := testBuilder()
	store := openTestStore(t, builder)

	_, err := store.Retrieve(ctx, 404)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	obj, err := builder.Build(1, "ghost")
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, 1, obj))

	_, err = store.RetrieveByType(ctx, 1, "cube")
	assert.ErrorIs(t, err, storage.ErrTypeMismatch)
}

func TestStore_ListAndReopen(t *testing.T) {
	ctx := t.Context()
	builder := testBuilder()
	path := filepath.Join(t.TempDir(), "world.db")

	store, err := Open(ctx, path, builder)
	require.NoError(t, err)
	for _, id := range []components.ObjectID{30, 10, 20} {
		obj, err := builder.Build(id, "cube")
		require.NoError(t, err)
		require.NoError(t, store.Store(ctx, id, obj))
	}
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, builder)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.Entry{{ID: 10, Type: "cube"}, {ID: 20, Type: "cube"}, {ID: 30, Type: "cube"}}, entries)
}

func TestOpenRejectsConflictingNames(t *testing.T) {
	tests := []struct {
		name  string
		kinds []*components.Kind
	}{
		{"property named id", []*components.Kind{
			components.MustNewKind("tag", []*properties.Definition{
				properties.MustNew("id", properties.Integer, 0),
			}),
		}},
		{"vector axis next to scalar", []*components.Kind{
			components.MustNewKind("body", []*properties.Definition{
				properties.MustNew("p", properties.Vector3, physics.Vector{}),
				properties.MustNew("p_x", properties.Float, 0.0),
			}),
		}},
		{"case-only difference", []*components.Kind{
			components.MustNewKind("body", []*properties.Definition{
				properties.MustNew("Speed", properties.Float, 0.0),
				properties.MustNew("speed", properties.Float, 0.0),
			}),
		}},
		{"kind named objects", []*components.Kind{
			components.MustNewKind("objects", nil),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := components.NewBuilder(components.MustNewSchema(
				tt.kinds, map[string][]string{"thing": {tt.kinds[0].Name()}}))
			_, err := Open(t.Context(), filepath.Join(t.TempDir(), "world.db"), builder)
			assert.ErrorIs(t, err, ErrSchemaConflict)
		})
	}
}
