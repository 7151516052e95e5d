package properties

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeusync/openworld/internal/core/systems/physics"
)

// Parse decodes the textual form of a value of type typ. The result is
// not validated; Component.Set does that.
//
// Booleans follow the document format literally: "true" is true and any
// other text is false, never an error.
func Parse(typ Type, text string) (any, error) {
	switch typ {
	case Boolean:
		return text == "true", nil
	case Integer:
		trimmed := strings.TrimSpace(text)
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidPropertyValue, text)
		}
		return coerce(Integer, f)
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrInvalidPropertyValue, text)
		}
		return f, nil
	case Vector3, UnitVector3:
		parts, err := parseTuple(text, 3)
		if err != nil {
			return nil, err
		}
		return physics.Vector{X: parts[0], Y: parts[1], Z: parts[2]}, nil
	case Quaternion:
		parts, err := parseTuple(text, 4)
		if err != nil {
			return nil, err
		}
		return physics.Quaternion{W: parts[0], X: parts[1], Y: parts[2], Z: parts[3]}, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidPropertyValue, typ)
}

// Parse decodes text according to the definition's type.
func (d *Definition) Parse(text string) (any, error) {
	value, err := Parse(d.typ, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	return value, nil
}

// Format is the inverse of Parse. Floats use the shortest form that parses
// back to the identical bits.
func Format(typ Type, value any) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case physics.Vector:
		return "(" + formatFloat(v.X) + "," + formatFloat(v.Y) + "," + formatFloat(v.Z) + ")"
	case physics.Quaternion:
		return "(" + formatFloat(v.W) + "," + formatFloat(v.X) + "," + formatFloat(v.Y) + "," + formatFloat(v.Z) + ")"
	}
	return fmt.Sprintf("%v", value)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseTuple(text string, size int) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 || trimmed[0] != '(' || trimmed[len(trimmed)-1] != ')' {
		return nil, fmt.Errorf("%w: %q is not a parenthesized tuple", ErrInvalidPropertyValue, text)
	}
	fields := strings.Split(trimmed[1:len(trimmed)-1], ",")
	if len(fields) != size {
		return nil, fmt.Errorf("%w: %q needs %d components, got %d", ErrInvalidPropertyValue, text, size, len(fields))
	}
	out := make([]float64, size)
	for i, field := range fields {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q component %d is not a number", ErrInvalidPropertyValue, text, i)
		}
		out[i] = f
	}
	return out, nil
}
