package components

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/openworld/internal/core/properties"
	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/core/systems"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

func testSchema(t testing.TB) *Schema {
	t.Helper()

	body := MustNewKind("body", []*properties.Definition{
		properties.MustNew("position", properties.Vector3, physics.Vector{}),
		properties.MustNew("orientation", properties.Quaternion, physics.Identity),
		properties.MustNew("heading", properties.UnitVector3, physics.Vec(1, 0, 0)),
		properties.MustNew("enabled", properties.Boolean, true),
		properties.MustNew("scale", properties.Float, 1.0, properties.AsConstant()),
	})
	health := MustNewKind("health", []*properties.Definition{
		properties.MustNew("health", properties.Integer, 100, properties.WithRange(0, 100), properties.WithResolution(1)),
		properties.MustNew("armor", properties.Float, 0.0, properties.WithRange(0.0, 1.0), properties.WithResolution(0.25)),
	}, WithVersion("2"))
	tag := MustNewKind("tag", []*properties.Definition{
		properties.MustNew("team", properties.Integer, 0),
	})

	schema, err := NewSchema([]*Kind{body, health, tag}, map[string][]string{
		"cube":   {"body", "health"},
		"marker": {"tag"},
	})
	require.NoError(t, err)
	return schema
}

func TestNewSchema(t *testing.T) {
	schema := testSchema(t)
	assert.Equal(t, []string{"cube", "marker"}, schema.Types())

	i, ok := schema.TypeIndex("marker")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	name, ok := schema.TypeName(0)
	assert.True(t, ok)
	assert.Equal(t, "cube", name)
	_, ok = schema.TypeIndex("sphere")
	assert.False(t, ok)

	k := MustNewKind("a", nil)
	_, err := NewSchema([]*Kind{k, k}, nil)
	assert.ErrorIs(t, err, ErrDuplicateKind)

	_, err = NewSchema([]*Kind{k}, map[string][]string{"t": {"a", "b"}})
	assert.ErrorIs(t, err, ErrUnknownComponentKind)

	_, err = NewKind("dup", []*properties.Definition{
		properties.MustNew("x", properties.Float, 0.0),
		properties.MustNew("x", properties.Float, 0.0),
	})
	assert.ErrorIs(t, err, properties.ErrInvalidDefinition)
}

func TestBuild(t *testing.T) {
	b := NewBuilder(testSchema(t))

	obj, err := b.Build(7, "cube")
	require.NoError(t, err)
	assert.Equal(t, ObjectID(7), obj.ID())
	assert.Equal(t, "cube", obj.Type())
	require.Len(t, obj.Components(), 2)
	assert.Equal(t, "body", obj.Components()[0].Kind().Name())
	assert.Equal(t, "health", obj.Components()[1].Kind().Name())

	health, ok := obj.Component("health")
	require.True(t, ok)
	assert.Equal(t, int64(100), health.Int("health"))

	_, err = b.Build(8, "sphere")
	assert.ErrorIs(t, err, ErrUnknownObjectType)
}

func TestComponentSetValidates(t *testing.T) {
	b := NewBuilder(testSchema(t))
	obj, err := b.Build(1, "cube")
	require.NoError(t, err)
	health, _ := obj.Component("health")

	require.NoError(t, health.Set("health", 150))
	assert.Equal(t, int64(100), health.Int("health"))

	require.NoError(t, health.Set("armor", 0.6))
	assert.Equal(t, 0.5, health.Float("armor"))

	body, _ := obj.Component("body")
	require.NoError(t, body.Set("heading", physics.Vec(0, 3, 0)))
	assert.Equal(t, physics.Vec(0, 1, 0), body.Vector("heading"))

	assert.ErrorIs(t, health.Set("mana", 1), ErrUnknownProperty)
	_, err = health.Get("mana")
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.ErrorIs(t, health.Set("health", "lots"), ErrInvalidPropertyValue)

	health.Reset()
	assert.Equal(t, int64(100), health.Int("health"))
	assert.Equal(t, 0.0, health.Float("armor"))
}

func populate(t *testing.T, obj *Object) {
	t.Helper()
	body, _ := obj.Component("body")
	require.NoError(t, body.Set("position", physics.Vec(0.1, -2.5, 1e-7)))
	require.NoError(t, body.Set("orientation", physics.Quaternion{W: 1, X: 1}))
	require.NoError(t, body.Set("enabled", false))
	health, _ := obj.Component("health")
	require.NoError(t, health.Set("health", 42))
	require.NoError(t, health.Set("armor", 0.75))
}

func TestSerializeRoundTrip(t *testing.T) {
	b := NewBuilder(testSchema(t))
	src, err := b.Build(1, "cube")
	require.NoError(t, err)
	populate(t, src)

	queue := protocol.NewWriteQueue()
	bin := protocol.NewByteWriter(nil)
	streams := []struct {
		name   string
		writer protocol.Stream
		reader func() protocol.Stream
	}{
		{"queue", queue, func() protocol.Stream { return queue.Reader() }},
		{"bytes", bin, func() protocol.Stream { return protocol.NewByteReader(bin.Bytes()) }},
	}

	for _, s := range streams {
		t.Run(s.name, func(t *testing.T) {
			require.NoError(t, src.Serialize(s.writer))

			dst, err := b.Build(1, "cube")
			require.NoError(t, err)
			require.NoError(t, dst.Serialize(s.reader()))

			for i, c := range src.Components() {
				for slot := range c.Kind().Definitions() {
					assert.Equal(t, c.At(slot), dst.Components()[i].At(slot))
				}
			}
		})
	}
}

func TestSerializeSkipsConstants(t *testing.T) {
	b := NewBuilder(testSchema(t))
	obj, err := b.Build(1, "cube")
	require.NoError(t, err)

	q := protocol.NewWriteQueue()
	body, _ := obj.Component("body")
	require.NoError(t, body.Serialize(q))
	// position, orientation, heading, enabled; scale is constant
	assert.Equal(t, 4, q.Reader().Len())
}

func TestDocumentRoundTrip(t *testing.T) {
	b := NewBuilder(testSchema(t))
	first, err := b.Build(9, "cube")
	require.NoError(t, err)
	populate(t, first)
	second, err := b.Build(3, "marker")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, b.Encode([]*Object{first, second})))

	doc, err := LoadDocument(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Objects, 2)
	assert.Equal(t, uint64(3), *doc.Objects[0].ID)
	assert.Equal(t, "2", doc.Objects[1].Components[1].Version)

	objects, err := b.Decode(doc)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	decoded := objects[1]
	assert.Equal(t, ObjectID(9), decoded.ID())
	for i, c := range first.Components() {
		for slot := range c.Kind().Definitions() {
			assert.Equal(t, c.At(slot), decoded.Components()[i].At(slot))
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	b := NewBuilder(testSchema(t))

	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{"missing id", "objects: [{type: cube}]", ErrMissingID},
		{"duplicate id", "objects: [{id: 1, type: marker}, {id: 1, type: marker}]", ErrDuplicateObjectID},
		{"empty type", "objects: [{id: 1, type: ''}]", ErrMalformedRecord},
		{"unknown type", "objects: [{id: 1, type: sphere}]", ErrUnknownObjectType},
		{"empty kind", "objects: [{id: 1, type: cube, components: [{kind: ''}]}]", ErrMalformedRecord},
		{"unknown kind", "objects: [{id: 1, type: cube, components: [{kind: wings}]}]", ErrUnknownComponentKind},
		{"kind outside type", "objects: [{id: 1, type: cube, components: [{kind: tag}]}]", ErrUnknownComponentKind},
		{"empty property name", "objects: [{id: 1, type: marker, components: [{kind: tag, properties: [{value: '1'}]}]}]", ErrMalformedRecord},
		{"unknown property", "objects: [{id: 1, type: marker, components: [{kind: tag, properties: [{name: colour, value: '1'}]}]}]", ErrUnknownProperty},
		{"missing value", "objects: [{id: 1, type: marker, components: [{kind: tag, properties: [{name: team}]}]}]", ErrMissingProperty},
		{"bad value", "objects: [{id: 1, type: marker, components: [{kind: tag, properties: [{name: team, value: red}]}]}]", ErrInvalidPropertyValue},
		{"bad vector", "objects: [{id: 1, type: cube, components: [{kind: body, properties: [{name: position, value: '(1,2)'}]}]}]", ErrInvalidPropertyValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := LoadDocument(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			objects, err := b.Decode(doc)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, objects)
		})
	}
}

func TestDecodeBooleanIsLenient(t *testing.T) {
	b := NewBuilder(testSchema(t))
	doc, err := LoadDocument(strings.NewReader(
		"objects: [{id: 1, type: cube, components: [{kind: body, properties: [{name: enabled, value: 'yes'}]}]}]"))
	require.NoError(t, err)

	objects, err := b.Decode(doc)
	require.NoError(t, err)
	body, _ := objects[0].Component("body")
	assert.False(t, body.Bool("enabled"))
}

func TestApplyIsAllOrNothing(t *testing.T) {
	b := NewBuilder(testSchema(t))
	obj, err := b.Build(1, "cube")
	require.NoError(t, err)

	ten, bad := "10", "oops"
	err = b.Apply(obj, ObjectRecord{Components: []ComponentRecord{{
		Kind: "health",
		Properties: []PropertyRecord{
			{Name: "health", Value: &ten},
			{Name: "armor", Value: &bad},
		},
	}}})
	assert.ErrorIs(t, err, ErrInvalidPropertyValue)

	health, _ := obj.Component("health")
	assert.Equal(t, int64(100), health.Int("health"))
}

type recordingBehavior struct {
	calls *[]string
}

func (r recordingBehavior) Activate(_ *systems.Context, _ *Object, c *Component) error {
	*r.calls = append(*r.calls, "activate "+c.Kind().Name())
	return nil
}

func (r recordingBehavior) Deactivate(_ *systems.Context, _ *Object, c *Component) error {
	*r.calls = append(*r.calls, "deactivate "+c.Kind().Name())
	return nil
}

func (r recordingBehavior) Update(_ *systems.Context, _ *Object, c *Component) error {
	*r.calls = append(*r.calls, "update "+c.Kind().Name())
	return nil
}

func TestObjectHooks(t *testing.T) {
	var calls []string
	behavior := recordingBehavior{calls: &calls}
	a := MustNewKind("a", nil, WithBehavior(behavior))
	b := MustNewKind("b", nil, WithBehavior(behavior))
	plain := MustNewKind("plain", nil)
	builder := NewBuilder(MustNewSchema([]*Kind{a, b, plain}, map[string][]string{"t": {"a", "plain", "b"}}))

	obj, err := builder.Build(1, "t")
	require.NoError(t, err)

	ctx := systems.NewContext(t.Context(), nil, nil)
	require.NoError(t, obj.Activate(ctx))
	require.NoError(t, obj.Update(ctx))
	require.NoError(t, obj.Deactivate(ctx))

	assert.Equal(t, []string{
		"activate a", "activate b",
		"update a", "update b",
		"deactivate b", "deactivate a",
	}, calls)
}

type failingBehavior struct {
	recordingBehavior
}

func (f failingBehavior) Activate(*systems.Context, *Object, *Component) error {
	return errors.New("no room")
}

func TestObjectActivateRollsBack(t *testing.T) {
	var calls []string
	behavior := recordingBehavior{calls: &calls}
	a := MustNewKind("a", nil, WithBehavior(behavior))
	b := MustNewKind("b", nil, WithBehavior(behavior))
	broken := MustNewKind("broken", nil, WithBehavior(failingBehavior{behavior}))
	builder := NewBuilder(MustNewSchema([]*Kind{a, b, broken}, map[string][]string{"t": {"a", "b", "broken"}}))

	obj, err := builder.Build(1, "t")
	require.NoError(t, err)

	err = obj.Activate(systems.NewContext(t.Context(), nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activate broken")
	assert.Equal(t, []string{
		"activate a", "activate b",
		"deactivate b", "deactivate a",
	}, calls)
}
