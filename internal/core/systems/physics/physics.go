package physics

import "math"

// quantizeEpsilon keeps values that sit exactly on a grid point from
// flooring into the cell below because of float jitter.
const (
	quantizeEpsilon = 0.000001
	// normalizing is skipped this close to unit length so that repeated
	// validation keeps the exact same bits
	unitTolerance = 1e-12
)

// Vector is a 3D vector. Relevancy only looks at X and Y.
type Vector struct {
	X, Y, Z float64
}

// Quaternion is an orientation stored as (w, x, y, z).
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the no-rotation quaternion.
var Identity = Quaternion{W: 1}

func Vec(x, y, z float64) Vector { return Vector{X: x, Y: y, Z: z} }

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vector) Scale(s float64) Vector { return Vector{v.X * s, v.Y * s, v.Z * s} }

func (v Vector) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Length2D ignores the vertical axis.
func (v Vector) Length2D() float64 { return math.Hypot(v.X, v.Y) }

// Normalize returns v scaled to unit length. A zero vector, or one already
// within unitTolerance of unit length, is returned as is.
func (v Vector) Normalize() Vector {
	length := v.Length()
	if length == 0 || math.Abs(length-1) <= unitTolerance {
		return v
	}
	inverse := 1.0 / length
	return Vector{v.X * inverse, v.Y * inverse, v.Z * inverse}
}

// Clamp clamps every axis independently.
func (v Vector) Clamp(minimum, maximum Vector) Vector {
	return Vector{
		Clamp(v.X, minimum.X, maximum.X),
		Clamp(v.Y, minimum.Y, maximum.Y),
		Clamp(v.Z, minimum.Z, maximum.Z),
	}
}

// QuantizeClamp applies the scalar QuantizeClamp to every axis with that
// axis' own resolution.
func (v Vector) QuantizeClamp(minimum, maximum, resolution Vector) Vector {
	return Vector{
		QuantizeClamp(v.X, minimum.X, maximum.X, resolution.X),
		QuantizeClamp(v.Y, minimum.Y, maximum.Y, resolution.Y),
		QuantizeClamp(v.Z, minimum.Z, maximum.Z, resolution.Z),
	}
}

func (q Quaternion) Length() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns q scaled to unit length. Zero and unit quaternions are
// returned as is.
func (q Quaternion) Normalize() Quaternion {
	length := q.Length()
	if length == 0 || math.Abs(length-1) <= unitTolerance {
		return q
	}
	inverse := 1.0 / length
	return Quaternion{q.W * inverse, q.X * inverse, q.Y * inverse, q.Z * inverse}
}

// Clamp limits value to [minimum, maximum].
func Clamp(value, minimum, maximum float64) float64 {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}

// QuantizeClamp clamps value to [minimum, maximum] and snaps it down to
// the grid minimum + k*resolution.
func QuantizeClamp(value, minimum, maximum, resolution float64) float64 {
	value = Clamp(value, minimum, maximum)
	index := math.Floor((value-minimum)/resolution + quantizeEpsilon)
	return minimum + resolution*index
}

// Distance2D computes the planar distance between two points.
func Distance2D(a, b Vector) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }
