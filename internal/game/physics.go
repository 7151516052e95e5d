package game

import (
	"errors"
	"fmt"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/core/systems"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// A body whose linear and angular speed stay below the thresholds for
// RestTime seconds is disabled in the simulation.
const (
	RestTime             = 0.2
	LinearRestThreshold  = 0.05
	AngularRestThreshold = 0.05
)

var ErrNoSimulation = errors.New("tick context has no simulation")

// Body is the runtime state the physics behavior keeps on its component.
type Body struct {
	ID         physics.BodyID
	TimeAtRest float64
}

// PhysicsBehavior mirrors a physics component into the simulation while
// its object is active.
type PhysicsBehavior struct{}

var _ components.Behavior = PhysicsBehavior{}

func (PhysicsBehavior) Activate(ctx *systems.Context, obj *components.Object, c *components.Component) error {
	if ctx.Simulation == nil {
		return ErrNoSimulation
	}

	state := physics.BodyState{
		Position:        c.Vector(PropertyPosition),
		Orientation:     c.Quaternion(PropertyOrientation),
		LinearVelocity:  c.Vector(PropertyLinearVelocity),
		AngularVelocity: c.Vector(PropertyAngularVelocity),
		Enabled:         c.Bool(PropertyEnabled),
		Scale:           c.Float(PropertyScale),
		Density:         c.Float(PropertyDensity),
	}
	id, err := ctx.Simulation.AddBody(state)
	if err != nil {
		return fmt.Errorf("add body for object %d: %w", obj.ID(), err)
	}

	body := &Body{ID: id}
	if !state.Enabled {
		body.TimeAtRest = RestTime
	}
	c.SetState(body)

	ctx.Logger.Debug("Body added", log.ObjectID(uint64(obj.ID())), log.Int("body", int(id)))
	return nil
}

func (PhysicsBehavior) Deactivate(ctx *systems.Context, obj *components.Object, c *components.Component) error {
	body, ok := c.State().(*Body)
	if !ok {
		return nil
	}
	if ctx.Simulation == nil {
		return ErrNoSimulation
	}
	if err := ctx.Simulation.RemoveBody(body.ID); err != nil {
		return fmt.Errorf("remove body for object %d: %w", obj.ID(), err)
	}
	c.SetState(nil)

	ctx.Logger.Debug("Body removed", log.ObjectID(uint64(obj.ID())), log.Int("body", int(body.ID)))
	return nil
}

// Update copies the stepped body back into the component and runs the
// rest timer.
func (PhysicsBehavior) Update(ctx *systems.Context, obj *components.Object, c *components.Component) error {
	body, ok := c.State().(*Body)
	if !ok || ctx.Simulation == nil {
		return nil
	}
	state, ok := ctx.Simulation.Body(body.ID)
	if !ok {
		return fmt.Errorf("object %d: %w", obj.ID(), physics.ErrUnknownBody)
	}

	if state.LinearVelocity.Length() < LinearRestThreshold && state.AngularVelocity.Length() < AngularRestThreshold {
		body.TimeAtRest += ctx.DeltaTime
	} else {
		body.TimeAtRest = 0
	}
	if enabled := body.TimeAtRest < RestTime; enabled != state.Enabled {
		state.Enabled = enabled
		if err := ctx.Simulation.SetBody(body.ID, state); err != nil {
			return fmt.Errorf("object %d: %w", obj.ID(), err)
		}
	}

	for name, value := range map[string]any{
		PropertyPosition:        state.Position,
		PropertyOrientation:     state.Orientation,
		PropertyLinearVelocity:  state.LinearVelocity,
		PropertyAngularVelocity: state.AngularVelocity,
		PropertyEnabled:         state.Enabled,
	} {
		if err := c.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
