// Package vec provides the 2D vector value type used throughout the
// simulation. All operations return new values; operands are never mutated.
package vec

import "math"

// Epsilon bounds approximate equality between vector components.
const Epsilon = 1e-9

// Vec2 is a 2D vector with x and y components.
type Vec2 struct {
	X, Y float64
}

// FromAngle creates a vector of the given magnitude along an angle in radians.
func FromAngle(angle, magnitude float64) Vec2 {
	return Vec2{X: magnitude * math.Cos(angle), Y: magnitude * math.Sin(angle)}
}

// Add returns the sum of two vectors.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the difference between two vectors.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies the vector by a scalar.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Div divides the vector by a scalar. Division by zero yields the zero
// vector rather than an error; it is an expected per-tick edge case.
func (v Vec2) Div(s float64) Vec2 {
	if s == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / s, Y: v.Y / s}
}

// Neg returns the vector pointing the opposite way.
func (v Vec2) Neg() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the scalar cross product (z component of the 3D cross).
func (v Vec2) Cross(o Vec2) float64 {
	return v.X*o.Y - v.Y*o.X
}

// Len returns the magnitude of the vector.
func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LenSq returns the squared magnitude (cheaper for comparisons).
func (v Vec2) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Angle returns the direction of the vector in radians.
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Normalize returns a unit vector in the same direction. The zero vector
// normalizes to itself.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Rotate rotates the vector by an angle in radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Vec2{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Perp returns the vector rotated 90 degrees counterclockwise.
func (v Vec2) Perp() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// Lerp linearly interpolates toward o. t=0 returns v, t=1 returns o.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Clamp rescales the vector if its magnitude exceeds max.
func (v Vec2) Clamp(max float64) Vec2 {
	if max <= 0 {
		return Vec2{}
	}
	lsq := v.LenSq()
	if lsq <= max*max {
		return v
	}
	return v.Scale(max / math.Sqrt(lsq))
}

// Dist returns the distance between two points.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Len()
}

// DistSq returns the squared distance between two points.
func (v Vec2) DistSq(o Vec2) float64 {
	return v.Sub(o).LenSq()
}

// ApproxEqual reports whether both components match within Epsilon.
// Exact floating comparison is never used for vector equality.
func (v Vec2) ApproxEqual(o Vec2) bool {
	return math.Abs(v.X-o.X) <= Epsilon && math.Abs(v.Y-o.Y) <= Epsilon
}
