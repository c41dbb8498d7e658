// Package physics provides the force generators and the numerical
// integrator that advance entity kinetic state each tick.
//
// Force generators are pure functions over kinetic state: no shared mutable
// state, safe to evaluate concurrently for independent pairs. Per-tick
// numeric edge cases (coincident entities, out-of-range distances) degrade
// to the zero vector rather than erroring; they occur constantly in a
// running simulation.
package physics

import (
	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/vec"
)

// RepulsionParams configures the inverse-square pairwise repulsion.
type RepulsionParams struct {
	K           float64 // force constant
	MinDistance float64 // singularity guard: closer pairs produce no force
	MaxDistance float64 // range cutoff: farther pairs produce no force
	Softening   float64 // added (squared) to r^2 to bound the magnitude near contact
}

// Repulsion returns the force pushing a away from b. Magnitude follows an
// inverse-square law with softening:
//
//	|F| = k * m_a * m_b / (r^2 + softening^2)
//
// Pairs closer than MinDistance or farther than MaxDistance contribute
// nothing.
func Repulsion(p RepulsionParams, a, b *components.Kinetic) vec.Vec2 {
	d := a.Pos.Sub(b.Pos)
	r := d.Len()
	if r < p.MinDistance || r > p.MaxDistance {
		return vec.Vec2{}
	}
	mag := p.K * a.Mass * b.Mass / (r*r + p.Softening*p.Softening)
	return d.Normalize().Scale(mag)
}

// SpringParams configures the damped Hooke's-law attraction applied along
// connections.
type SpringParams struct {
	K          float64 // spring constant
	RestLength float64 // natural length of the connection
	Damping    float64 // coefficient on relative velocity along the spring axis
}

// Spring returns the force pulling a toward b when the connection between
// them is stretched past its rest length (and pushing when compressed).
// The damping term projects relative velocity onto the spring axis, which
// bleeds off oscillation energy. Degenerate (near-coincident) pairs
// produce no force.
func Spring(p SpringParams, a, b *components.Kinetic) vec.Vec2 {
	d := b.Pos.Sub(a.Pos)
	length := d.Len()
	if length < 0.001 {
		return vec.Vec2{}
	}
	dir := d.Normalize()
	springMag := p.K * (length - p.RestLength)
	dampMag := dir.Dot(b.Vel.Sub(a.Vel)) * p.Damping
	return dir.Scale(springMag + dampMag)
}

// GravityParams configures the linear pull toward a focal point. The center
// is updatable at runtime (e.g. when the canvas is resized).
type GravityParams struct {
	G      float64
	Center vec.Vec2
}

// Gravity returns the linear center-pull force for one entity:
//
//	F = (center - pos) * g * m
func Gravity(p GravityParams, k *components.Kinetic) vec.Vec2 {
	return p.Center.Sub(k.Pos).Scale(p.G * k.Mass)
}
