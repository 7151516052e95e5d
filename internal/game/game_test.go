package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/hibernation"
	"github.com/zeusync/openworld/internal/core/storage"
	"github.com/zeusync/openworld/internal/core/systems"
	"github.com/zeusync/openworld/internal/core/systems/physics"
	"github.com/zeusync/openworld/internal/core/world"
)

func cube(t *testing.T, builder *components.Builder, id components.ObjectID, position physics.Vector) *components.Object {
	t.Helper()
	obj, err := builder.Build(id, TypeCube)
	require.NoError(t, err)
	c, _ := obj.Component(KindPhysics)
	require.NoError(t, c.Set(PropertyPosition, position))
	return obj
}

func TestSchema(t *testing.T) {
	schema := Schema()

	names := make([]string, 0, 8)
	for _, k := range schema.Kinds() {
		names = append(names, k.Name())
	}
	assert.Equal(t, []string{"bullet", "explosion", "grenade", "health", "human", "physics", "pickup", "prop"}, names)

	kinds, ok := schema.Type(TypeCube)
	require.True(t, ok)
	assert.Equal(t, []string{KindPhysics, KindProp, KindHealth}, kinds)

	obj, err := NewBuilder().Build(1, TypeCube)
	require.NoError(t, err)
	health, _ := obj.Component(KindHealth)
	require.NoError(t, health.Set("current", 42.4))
	assert.Equal(t, 42.0, health.Float("current"))
	require.NoError(t, health.Set("current", 150.0))
	assert.Equal(t, 100.0, health.Float("current"))
}

func TestPhysicsLifecycle(t *testing.T) {
	sim := physics.NewKinematic(physics.DefaultKinematicConfig())
	ctx := systems.NewContext(t.Context(), sim, nil)
	obj := cube(t, NewBuilder(), 1, physics.Vec(0, 0, 5))

	require.NoError(t, obj.Activate(ctx))
	assert.Equal(t, 1, sim.BodyCount())

	ctx.Advance(0.1)
	sim.Step(ctx.DeltaTime)
	require.NoError(t, obj.Update(ctx))

	c, _ := obj.Component(KindPhysics)
	assert.Less(t, c.Vector(PropertyPosition).Z, 5.0)
	assert.Less(t, c.Vector(PropertyLinearVelocity).Z, 0.0)
	assert.True(t, c.Bool(PropertyEnabled))

	require.NoError(t, obj.Deactivate(ctx))
	assert.Zero(t, sim.BodyCount())
	assert.Nil(t, c.State())
}

func TestRestTimerDisablesBody(t *testing.T) {
	sim := physics.NewKinematic(physics.DefaultKinematicConfig())
	ctx := systems.NewContext(t.Context(), sim, nil)
	// resting on the ground plane
	obj := cube(t, NewBuilder(), 1, physics.Vec(0, 0, 0.5))
	require.NoError(t, obj.Activate(ctx))

	tick := func() {
		ctx.Advance(0.1)
		sim.Step(ctx.DeltaTime)
		require.NoError(t, obj.Update(ctx))
	}

	c, _ := obj.Component(KindPhysics)
	tick()
	assert.True(t, c.Bool(PropertyEnabled))

	tick()
	tick()
	assert.False(t, c.Bool(PropertyEnabled))

	body := c.State().(*Body)
	state, ok := sim.Body(body.ID)
	require.True(t, ok)
	assert.False(t, state.Enabled)
}

func TestActivateDisabledStartsAtRest(t *testing.T) {
	sim := physics.NewKinematic(physics.DefaultKinematicConfig())
	ctx := systems.NewContext(t.Context(), sim, nil)
	obj := cube(t, NewBuilder(), 1, physics.Vec(0, 0, 0.5))
	c, _ := obj.Component(KindPhysics)
	require.NoError(t, c.Set(PropertyEnabled, false))

	require.NoError(t, obj.Activate(ctx))
	assert.Equal(t, RestTime, c.State().(*Body).TimeAtRest)
}

func TestActivateErrors(t *testing.T) {
	builder := NewBuilder()

	err := cube(t, builder, 1, physics.Vector{}).Activate(systems.NewContext(t.Context(), nil, nil))
	assert.ErrorIs(t, err, ErrNoSimulation)

	sim := physics.NewKinematic(physics.KinematicConfig{MaxBodies: 1})
	ctx := systems.NewContext(t.Context(), sim, nil)
	require.NoError(t, cube(t, builder, 1, physics.Vector{}).Activate(ctx))
	err = cube(t, builder, 2, physics.Vector{}).Activate(ctx)
	assert.ErrorIs(t, err, physics.ErrTooManyBodies)
}

func TestScatter(t *testing.T) {
	builder := NewBuilder()
	objects, err := Scatter(builder, 16, 10, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Len(t, objects, 16)

	for i, obj := range objects {
		assert.Equal(t, components.ObjectID(i+1), obj.ID())
		c, _ := obj.Component(KindPhysics)
		p := c.Vector(PropertyPosition)
		assert.True(t, p.X >= -10 && p.X <= 10, "x %v", p.X)
		assert.True(t, p.Y >= -10 && p.Y <= 10, "y %v", p.Y)
		assert.True(t, p.Z >= 2 && p.Z <= 10, "z %v", p.Z)
		assert.True(t, c.Float(PropertyScale) >= 0.1 && c.Float(PropertyScale) <= 1)
	}

	again, err := Scatter(builder, 16, 10, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	first, _ := objects[3].Component(KindPhysics)
	second, _ := again[3].Component(KindPhysics)
	assert.Equal(t, first.Vector(PropertyPosition), second.Vector(PropertyPosition))
}

func TestWorldRoundTrip(t *testing.T) {
	builder := NewBuilder()
	store := storage.NewMemory(builder)
	sim := physics.NewKinematic(physics.DefaultKinematicConfig())
	w, err := world.New(world.DefaultConfig(), builder, store, sim)
	require.NoError(t, err)

	ctx := t.Context()
	objects, err := Scatter(builder, 8, 3, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	require.NoError(t, w.Bootstrap(ctx, objects))

	point, err := w.Relevancy().AcquireReferencePoint(physics.Vector{})
	require.NoError(t, err)
	require.NoError(t, w.Tick(ctx, 0.1))
	assert.Equal(t, 8, w.Hibernation().RuntimeCount())
	assert.Equal(t, 8, sim.BodyCount())

	// let the cubes fall for a while, then walk away
	for range 20 {
		require.NoError(t, w.Tick(ctx, 0.1))
	}
	live, _ := w.Hibernation().Object(1)
	c, _ := live.Component(KindPhysics)
	landed := c.Vector(PropertyPosition)

	require.NoError(t, w.Relevancy().SetReferencePoint(point, true, physics.Vec(1000, 0, 0)))
	for range 15 {
		require.NoError(t, w.Tick(ctx, 0.1))
	}
	assert.Zero(t, w.Hibernation().RuntimeCount())
	assert.Zero(t, sim.BodyCount())
	assert.Equal(t, hibernation.Hibernated, w.Hibernation().State(1))

	require.NoError(t, w.Relevancy().SetReferencePoint(point, true, physics.Vector{}))
	require.NoError(t, w.Tick(ctx, 0.1))
	assert.Equal(t, 8, sim.BodyCount())

	restored, ok := w.Hibernation().Object(1)
	require.True(t, ok)
	rc, _ := restored.Component(KindPhysics)
	assert.InDelta(t, landed.X, rc.Vector(PropertyPosition).X, 1e-6)
	assert.InDelta(t, landed.Y, rc.Vector(PropertyPosition).Y, 1e-6)
}
