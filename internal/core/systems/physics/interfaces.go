package physics

import "errors"

var (
	ErrTooManyBodies = errors.New("simulation body capacity exhausted")
	ErrUnknownBody   = errors.New("unknown simulation body")
)

// BodyID identifies a body owned by a Simulation.
type BodyID int

// BodyState is the per-body state exchanged with a Simulation.
type BodyState struct {
	Position        Vector
	Orientation     Quaternion
	LinearVelocity  Vector
	AngularVelocity Vector
	Enabled         bool
	Scale           float64
	Density         float64
}

// Simulation is the physical integration collaborator. Objects add a body
// when they are activated and remove it when they hibernate; the world
// steps the simulation once per tick.
type Simulation interface {
	AddBody(state BodyState) (BodyID, error)
	RemoveBody(id BodyID) error
	Body(id BodyID) (BodyState, bool)
	SetBody(id BodyID, state BodyState) error
	Step(deltaTime float64)
	BodyCount() int
}
