package components

import (
	"errors"
	"fmt"

	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/core/systems"
)

// ObjectID is assigned by the caller and unique across the world.
type ObjectID uint64

// Object is an aggregate of components whose kinds match its type
// declaration exactly, in order.
type Object struct {
	id         ObjectID
	typ        string
	components []*Component
	byKind     map[string]*Component
}

func (o *Object) ID() ObjectID { return o.id }

func (o *Object) Type() string { return o.typ }

func (o *Object) Components() []*Component { return o.components }

// Component returns the component of the named kind.
func (o *Object) Component(kind string) (*Component, bool) {
	c, ok := o.byKind[kind]
	return c, ok
}

// Activate runs the activation hook of every component with a behavior.
// If one fails, the components activated before it are deactivated in
// reverse order, so a failed activation leaves nothing behind.
func (o *Object) Activate(ctx *systems.Context) error {
	for i, c := range o.components {
		b := c.kind.behavior
		if b == nil {
			continue
		}
		if err := b.Activate(ctx, o, c); err != nil {
			err = fmt.Errorf("activate %s: %w", c.kind.name, err)
			if rollbackErr := o.deactivate(ctx, i); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
			return err
		}
	}
	return nil
}

// Deactivate runs deactivation hooks in reverse component order.
func (o *Object) Deactivate(ctx *systems.Context) error {
	return o.deactivate(ctx, len(o.components))
}

// deactivate walks the components before index end, last first.
func (o *Object) deactivate(ctx *systems.Context, end int) error {
	for i := end - 1; i >= 0; i-- {
		c := o.components[i]
		if b := c.kind.behavior; b != nil {
			if err := b.Deactivate(ctx, o, c); err != nil {
				return fmt.Errorf("deactivate %s: %w", c.kind.name, err)
			}
		}
	}
	return nil
}

func (o *Object) Update(ctx *systems.Context) error {
	for _, c := range o.components {
		if b := c.kind.behavior; b != nil {
			if err := b.Update(ctx, o, c); err != nil {
				return fmt.Errorf("update %s: %w", c.kind.name, err)
			}
		}
	}
	return nil
}

// Serialize runs every component through stream in type order.
func (o *Object) Serialize(stream protocol.Stream) error {
	for _, c := range o.components {
		if err := c.Serialize(stream); err != nil {
			return err
		}
	}
	return nil
}

func (o *Object) String() string {
	return fmt.Sprintf("Object(%d, %s)", o.id, o.typ)
}
