package components

import (
	"fmt"

	"github.com/zeusync/openworld/internal/core/properties"
	"github.com/zeusync/openworld/internal/core/systems"
)

// DefaultVersion is emitted for kinds that do not set one.
const DefaultVersion = "1"

// Behavior hooks a kind into the object lifecycle. Activate runs when an
// object enters the runtime set, Deactivate right before it is archived and
// Update once per tick while it is active.
type Behavior interface {
	Activate(ctx *systems.Context, obj *Object, c *Component) error
	Deactivate(ctx *systems.Context, obj *Object, c *Component) error
	Update(ctx *systems.Context, obj *Object, c *Component) error
}

// Kind is the immutable definition of one capability: an ordered list of
// property definitions and a static name to slot table.
type Kind struct {
	name     string
	version  string
	defs     []*properties.Definition
	index    map[string]int
	behavior Behavior
}

type KindOption func(*Kind)

func WithVersion(version string) KindOption {
	return func(k *Kind) { k.version = version }
}

func WithBehavior(behavior Behavior) KindOption {
	return func(k *Kind) { k.behavior = behavior }
}

func NewKind(name string, defs []*properties.Definition, opts ...KindOption) (*Kind, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty kind name", properties.ErrInvalidDefinition)
	}

	k := &Kind{
		name:    name,
		version: DefaultVersion,
		defs:    defs,
		index:   make(map[string]int, len(defs)),
	}
	for i, def := range defs {
		if def == nil {
			return nil, fmt.Errorf("%w: %s: nil definition at %d", properties.ErrInvalidDefinition, name, i)
		}
		if _, exists := k.index[def.Name()]; exists {
			return nil, fmt.Errorf("%w: %s: property %q declared twice", properties.ErrInvalidDefinition, name, def.Name())
		}
		k.index[def.Name()] = i
	}

	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func MustNewKind(name string, defs []*properties.Definition, opts ...KindOption) *Kind {
	k, err := NewKind(name, defs, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

func (k *Kind) Name() string { return k.name }

func (k *Kind) Version() string { return k.version }

func (k *Kind) Behavior() Behavior { return k.behavior }

func (k *Kind) Definitions() []*properties.Definition { return k.defs }

// Index returns the slot of the named property.
func (k *Kind) Index(name string) (int, bool) {
	i, ok := k.index[name]
	return i, ok
}

func (k *Kind) Definition(name string) (*properties.Definition, bool) {
	i, ok := k.index[name]
	if !ok {
		return nil, false
	}
	return k.defs[i], true
}
