package properties

import "fmt"

// Type is the data type of a property.
type Type uint8

const (
	Boolean Type = iota
	Integer
	Float
	Vector3
	UnitVector3
	Quaternion
	typeCount
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Vector3:
		return "vector"
	case UnitVector3:
		return "unit_vector"
	case Quaternion:
		return "quaternion"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool { return t < typeCount }

// Numeric reports whether t is Integer or Float.
func (t Type) Numeric() bool { return t == Integer || t == Float }

// Columns is the number of scalar slots a value of this type occupies in
// flat storage layouts.
func (t Type) Columns() int {
	switch t {
	case Vector3, UnitVector3:
		return 3
	case Quaternion:
		return 4
	default:
		return 1
	}
}
