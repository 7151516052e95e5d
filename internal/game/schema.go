// Package game declares the concrete kinds and object types of the cube
// sandbox.
package game

import (
	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/properties"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

const (
	KindPhysics   = "physics"
	KindProp      = "prop"
	KindHuman     = "human"
	KindPickup    = "pickup"
	KindBullet    = "bullet"
	KindGrenade   = "grenade"
	KindExplosion = "explosion"
	KindHealth    = "health"

	TypeCube = "cube"
)

const (
	PropertyPosition        = "position"
	PropertyOrientation     = "orientation"
	PropertyLinearVelocity  = "linear_velocity"
	PropertyAngularVelocity = "angular_velocity"
	PropertyEnabled         = "enabled"
	PropertyScale           = "scale"
	PropertyDensity         = "density"
)

func physicsKind() *components.Kind {
	return components.MustNewKind(KindPhysics, []*properties.Definition{
		properties.MustNew(PropertyPosition, properties.Vector3, physics.Vector{}),
		properties.MustNew(PropertyOrientation, properties.Quaternion, physics.Identity),
		properties.MustNew(PropertyLinearVelocity, properties.Vector3, physics.Vector{}),
		properties.MustNew(PropertyAngularVelocity, properties.Vector3, physics.Vector{}),
		properties.MustNew(PropertyEnabled, properties.Boolean, true),
		properties.MustNew(PropertyScale, properties.Float, 1.0, properties.AsConstant()),
		properties.MustNew(PropertyDensity, properties.Float, 1.0, properties.AsConstant()),
	}, components.WithBehavior(PhysicsBehavior{}))
}

// Kinds returns fresh instances of every game kind.
func Kinds() []*components.Kind {
	return []*components.Kind{
		physicsKind(),
		components.MustNewKind(KindProp, nil),
		components.MustNewKind(KindHuman, nil),
		components.MustNewKind(KindPickup, nil),
		components.MustNewKind(KindBullet, []*properties.Definition{
			properties.MustNew("origin", properties.Vector3, physics.Vector{}, properties.AsConstant()),
			properties.MustNew("direction", properties.UnitVector3, physics.Vec(0, 0, 1), properties.AsConstant()),
			properties.MustNew("time", properties.Float, 0.0),
		}),
		components.MustNewKind(KindGrenade, []*properties.Definition{
			properties.MustNew("time", properties.Float, 0.0),
			properties.MustNew("explode_time", properties.Float, 1.0, properties.AsConstant()),
			properties.MustNew("initial_velocity", properties.Vector3, physics.Vector{}, properties.AsConstant()),
		}),
		components.MustNewKind(KindExplosion, []*properties.Definition{
			properties.MustNew("time", properties.Float, 0.0),
			properties.MustNew("start_time", properties.Float, 0.0, properties.AsConstant()),
			properties.MustNew("finish_time", properties.Float, 1.0, properties.AsConstant()),
			properties.MustNew("initial_radius", properties.Float, 0.0, properties.AsConstant()),
			properties.MustNew("maximum_radius", properties.Float, 10.0, properties.AsConstant()),
		}),
		components.MustNewKind(KindHealth, []*properties.Definition{
			properties.MustNew("current", properties.Float, 100.0,
				properties.WithRange(0.0, 100.0), properties.WithResolution(1.0)),
			properties.MustNew("maximum", properties.Float, 100.0, properties.AsConstant()),
		}),
	}
}

func Schema() *components.Schema {
	return components.MustNewSchema(Kinds(), map[string][]string{
		TypeCube: {KindPhysics, KindProp, KindHealth},
	})
}

func NewBuilder() *components.Builder {
	return components.NewBuilder(Schema())
}
