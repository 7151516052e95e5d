package properties

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Validator maps any canonical value of a definition's type to the value
// actually stored. Validators never fail: out of range input is clamped,
// quantized or normalized.
type Validator func(value any) any

// Definition is a typed, constrained property descriptor. The validation
// strategy is picked once in New from the type and the constraints that
// are present, never per call.
type Definition struct {
	name       string
	typ        Type
	def        any
	minimum    any
	maximum    any
	resolution any
	constant   bool

	validate Validator
}

type definitionOptions struct {
	minimum    any
	maximum    any
	resolution any
	constant   bool
}

// Option configures a Definition.
type Option func(*definitionOptions)

// WithRange bounds the property. Both ends are required.
func WithRange(minimum, maximum any) Option {
	return func(o *definitionOptions) {
		o.minimum = minimum
		o.maximum = maximum
	}
}

// WithResolution quantizes the property to minimum + k*resolution.
// It requires WithRange.
func WithResolution(resolution any) Option {
	return func(o *definitionOptions) { o.resolution = resolution }
}

// AsConstant marks the property constant: it is persisted but never sent
// through a wire stream.
func AsConstant() Option {
	return func(o *definitionOptions) { o.constant = true }
}

// New builds a definition. The default is run through the validator, so a
// declared out of range default is silently clamped.
func New(name string, typ Type, def any, opts ...Option) (*Definition, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: property name is required", ErrInvalidDefinition)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %s: invalid type %s", ErrInvalidDefinition, name, typ)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s: default value not specified", ErrInvalidDefinition, name)
	}

	var o definitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	d := &Definition{name: name, typ: typ, constant: o.constant}

	if (o.minimum == nil) != (o.maximum == nil) {
		return nil, fmt.Errorf("%w: %s: must supply both minimum and maximum or neither", ErrInvalidDefinition, name)
	}
	if o.resolution != nil && o.minimum == nil {
		return nil, fmt.Errorf("%w: %s: resolution requires minimum and maximum", ErrInvalidDefinition, name)
	}

	var err error
	if o.minimum != nil && typ != UnitVector3 && typ != Quaternion && typ != Boolean {
		if d.minimum, err = coerce(typ, o.minimum); err != nil {
			return nil, fmt.Errorf("%w: %s: minimum: %v", ErrInvalidDefinition, name, err)
		}
		if d.maximum, err = coerce(typ, o.maximum); err != nil {
			return nil, fmt.Errorf("%w: %s: maximum: %v", ErrInvalidDefinition, name, err)
		}
		if !ordered(d.minimum, d.maximum) {
			return nil, fmt.Errorf("%w: %s: minimum exceeds maximum", ErrInvalidDefinition, name)
		}
	}
	if o.resolution != nil && d.minimum != nil {
		if d.resolution, err = coerce(typ, o.resolution); err != nil {
			return nil, fmt.Errorf("%w: %s: resolution: %v", ErrInvalidDefinition, name, err)
		}
		if !positive(d.resolution) {
			return nil, fmt.Errorf("%w: %s: resolution must be positive", ErrInvalidDefinition, name)
		}
	}

	d.validate = d.selectValidator()

	value, err := coerce(typ, def)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: default: %v", ErrInvalidDefinition, name, err)
	}
	d.def = d.validate(value)

	return d, nil
}

// MustNew is New for package level schema declarations.
func MustNew(name string, typ Type, def any, opts ...Option) *Definition {
	d, err := New(name, typ, def, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Definition) Name() string { return d.name }

func (d *Definition) Type() Type { return d.typ }

// Default returns the validated default value.
func (d *Definition) Default() any { return d.def }

func (d *Definition) Constant() bool { return d.constant }

// Range returns the bounds, if any. Unit vectors and quaternions ignore them.
func (d *Definition) Range() (minimum, maximum any, ok bool) {
	return d.minimum, d.maximum, d.minimum != nil
}

func (d *Definition) Resolution() (any, bool) {
	return d.resolution, d.resolution != nil
}

// Validate applies the definition's strategy to a canonical value.
func (d *Definition) Validate(value any) any { return d.validate(value) }

// Coerce converts raw to the canonical Go type of the definition and
// validates it. Only a value of an incompatible Go type is an error.
func (d *Definition) Coerce(raw any) (any, error) {
	value, err := coerce(d.typ, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPropertyValue, d.name, err)
	}
	return d.validate(value), nil
}

func (d *Definition) String() string {
	return fmt.Sprintf("%s -> %s", d.name, Format(d.typ, d.def))
}

func (d *Definition) selectValidator() Validator {
	switch d.typ {
	case Integer:
		switch {
		case d.resolution != nil:
			minimum, maximum, resolution := float64(d.minimum.(int64)), float64(d.maximum.(int64)), float64(d.resolution.(int64))
			return func(value any) any {
				return int64(math.Round(physics.QuantizeClamp(float64(value.(int64)), minimum, maximum, resolution)))
			}
		case d.minimum != nil:
			minimum, maximum := d.minimum.(int64), d.maximum.(int64)
			return func(value any) any { return min(max(value.(int64), minimum), maximum) }
		}
	case Float:
		switch {
		case d.resolution != nil:
			minimum, maximum, resolution := d.minimum.(float64), d.maximum.(float64), d.resolution.(float64)
			return func(value any) any { return physics.QuantizeClamp(value.(float64), minimum, maximum, resolution) }
		case d.minimum != nil:
			minimum, maximum := d.minimum.(float64), d.maximum.(float64)
			return func(value any) any { return physics.Clamp(value.(float64), minimum, maximum) }
		}
	case Vector3:
		switch {
		case d.resolution != nil:
			minimum, maximum, resolution := d.minimum.(physics.Vector), d.maximum.(physics.Vector), d.resolution.(physics.Vector)
			return func(value any) any { return value.(physics.Vector).QuantizeClamp(minimum, maximum, resolution) }
		case d.minimum != nil:
			minimum, maximum := d.minimum.(physics.Vector), d.maximum.(physics.Vector)
			return func(value any) any { return value.(physics.Vector).Clamp(minimum, maximum) }
		}
	case UnitVector3:
		return func(value any) any { return value.(physics.Vector).Normalize() }
	case Quaternion:
		return func(value any) any { return value.(physics.Quaternion).Normalize() }
	}
	return identity
}

func identity(value any) any { return value }

func ordered(minimum, maximum any) bool {
	switch lo := minimum.(type) {
	case int64:
		return lo <= maximum.(int64)
	case float64:
		return lo <= maximum.(float64)
	case physics.Vector:
		hi := maximum.(physics.Vector)
		return lo.X <= hi.X && lo.Y <= hi.Y && lo.Z <= hi.Z
	}
	return true
}

func positive(resolution any) bool {
	switch r := resolution.(type) {
	case int64:
		return r > 0
	case float64:
		return r > 0
	case physics.Vector:
		return r.X > 0 && r.Y > 0 && r.Z > 0
	}
	return false
}

// coerce converts raw to the canonical representation of typ: bool,
// int64, float64, physics.Vector or physics.Quaternion.
func coerce(typ Type, raw any) (any, error) {
	switch typ {
	case Boolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case Integer:
		if i, ok := toInt64(raw); ok {
			return i, nil
		}
		if f, ok := toFloat64(raw); ok && !math.IsNaN(f) {
			return saturate(f), nil
		}
	case Float:
		if f, ok := toFloat64(raw); ok {
			return f, nil
		}
	case Vector3, UnitVector3:
		switch v := raw.(type) {
		case physics.Vector:
			return v, nil
		case *physics.Vector:
			if v != nil {
				return *v, nil
			}
		}
	case Quaternion:
		switch q := raw.(type) {
		case physics.Quaternion:
			return q, nil
		case *physics.Quaternion:
			if q != nil {
				return *q, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", raw, typ)
}

func toInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(min(uint64(v), math.MaxInt64)), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(min(v, math.MaxInt64)), true
	}
	return 0, false
}

// saturate truncates f toward zero, pinning values outside the int64
// range to its bounds instead of wrapping.
func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f < math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func toFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if i, ok := toInt64(raw); ok {
		return float64(i), true
	}
	return 0, false
}
