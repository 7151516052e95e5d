package components

import (
	"fmt"

	"github.com/zeusync/openworld/internal/core/properties"
	"github.com/zeusync/openworld/internal/core/protocol"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Component holds one validated value per definition of its kind, in
// declaration order.
type Component struct {
	kind   *Kind
	values []any
	// runtime handle owned by the kind's behavior, never serialized
	state any
}

func NewComponent(kind *Kind) *Component {
	c := &Component{kind: kind, values: make([]any, len(kind.defs))}
	c.Reset()
	return c
}

func (c *Component) Kind() *Kind { return c.kind }

// Reset restores every property to its validated default.
func (c *Component) Reset() {
	for i, def := range c.kind.defs {
		c.values[i] = def.Default()
	}
}

func (c *Component) Get(name string) (any, error) {
	i, ok := c.kind.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, c.kind.name, name)
	}
	return c.values[i], nil
}

// Set validates value and stores the result.
func (c *Component) Set(name string, value any) error {
	i, ok := c.kind.index[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, c.kind.name, name)
	}
	return c.SetAt(i, value)
}

// At returns the value at slot i.
func (c *Component) At(i int) any { return c.values[i] }

func (c *Component) SetAt(i int, value any) error {
	validated, err := c.kind.defs[i].Coerce(value)
	if err != nil {
		return err
	}
	c.values[i] = validated
	return nil
}

func (c *Component) Bool(name string) bool {
	v, _ := c.lookup(name).(bool)
	return v
}

func (c *Component) Int(name string) int64 {
	v, _ := c.lookup(name).(int64)
	return v
}

func (c *Component) Float(name string) float64 {
	v, _ := c.lookup(name).(float64)
	return v
}

func (c *Component) Vector(name string) physics.Vector {
	v, _ := c.lookup(name).(physics.Vector)
	return v
}

func (c *Component) Quaternion(name string) physics.Quaternion {
	v, _ := c.lookup(name).(physics.Quaternion)
	return v
}

func (c *Component) lookup(name string) any {
	if i, ok := c.kind.index[name]; ok {
		return c.values[i]
	}
	return nil
}

func (c *Component) State() any { return c.state }

func (c *Component) SetState(state any) { c.state = state }

// Serialize runs every non-constant property through stream in declaration
// order. In read mode the values taken from the stream are validated and
// stored.
func (c *Component) Serialize(stream protocol.Stream) error {
	for i, def := range c.kind.defs {
		if def.Constant() {
			continue
		}

		var (
			value any
			err   error
		)
		switch def.Type() {
		case properties.Boolean:
			value, err = stream.SerializeBool(c.values[i].(bool))
		case properties.Integer:
			value, err = stream.SerializeInt(c.values[i].(int64))
		case properties.Float:
			value, err = stream.SerializeFloat(c.values[i].(float64))
		case properties.Vector3, properties.UnitVector3:
			value, err = stream.SerializeVector(c.values[i].(physics.Vector))
		case properties.Quaternion:
			value, err = stream.SerializeQuaternion(c.values[i].(physics.Quaternion))
		}
		if err != nil {
			return fmt.Errorf("serialize %s.%s: %w", c.kind.name, def.Name(), err)
		}

		if stream.Mode() == protocol.ModeRead {
			c.values[i] = def.Validate(value)
		}
	}
	return nil
}

func (c *Component) String() string {
	return fmt.Sprintf("Component(%s)", c.kind.name)
}
