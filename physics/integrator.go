package physics

import (
	"fmt"

	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/vec"
)

// Scheme selects the numerical integration method. It is fixed at
// integrator construction, not per call.
type Scheme uint8

const (
	// Euler is plain forward Euler: position advances with the old velocity.
	Euler Scheme = iota
	// SemiImplicit updates velocity first and advances position with the
	// updated velocity. Better energy stability than forward Euler; the
	// default.
	SemiImplicit
	// Verlet is a simplified velocity-Verlet step.
	Verlet
)

// ParseScheme maps a config string to a Scheme. Unknown names are a
// construction-time error, not a silent fallback.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "euler":
		return Euler, nil
	case "semi-implicit", "":
		return SemiImplicit, nil
	case "verlet":
		return Verlet, nil
	}
	return 0, fmt.Errorf("unknown integration scheme %q", s)
}

// Integrator advances kinetic state by one time step and applies the
// post-step stability passes: damping, speed clamping and rest detection.
type Integrator struct {
	scheme   Scheme
	maxSpeed float64 // speeds above this are rescaled down
	minSpeed float64 // speeds below this snap to exactly zero
	bounce   float64 // velocity retained after a wall bounce in Constrain
}

// NewIntegrator creates an integrator with the given scheme and limits.
func NewIntegrator(scheme Scheme, maxSpeed, minSpeed, bounce float64) *Integrator {
	return &Integrator{scheme: scheme, maxSpeed: maxSpeed, minSpeed: minSpeed, bounce: bounce}
}

// Step advances k by dt. Entities with mass <= 0 do not move; their
// acceleration is reset so stale forces cannot accumulate.
func (in *Integrator) Step(k *components.Kinetic, dt float64) {
	if k.Mass <= 0 {
		k.Acc = vec.Vec2{}
		return
	}

	switch in.scheme {
	case Euler:
		k.Pos = k.Pos.Add(k.Vel.Scale(dt))
		k.Vel = k.Vel.Add(k.Acc.Scale(dt))
	case Verlet:
		// Simplified velocity-Verlet: half-step velocity, full position,
		// half-step velocity again with the same acceleration.
		half := k.Vel.Add(k.Acc.Scale(dt * 0.5))
		k.Pos = k.Pos.Add(half.Scale(dt))
		k.Vel = half.Add(k.Acc.Scale(dt * 0.5))
	default: // SemiImplicit
		k.Vel = k.Vel.Add(k.Acc.Scale(dt))
		k.Pos = k.Pos.Add(k.Vel.Scale(dt))
	}

	// Exponential decay, not additive friction.
	k.Vel = k.Vel.Scale(k.Damping)

	if in.maxSpeed > 0 {
		k.Vel = k.Vel.Clamp(in.maxSpeed)
	}

	// Rest detection: sub-threshold speeds snap to zero so entities settle
	// instead of jittering forever.
	if k.Vel.LenSq() < in.minSpeed*in.minSpeed {
		k.Vel = vec.Vec2{}
	}

	k.Acc = vec.Vec2{}
}

// ApplyForce accumulates F/m into acceleration. No-op for mass <= 0.
func (in *Integrator) ApplyForce(k *components.Kinetic, f vec.Vec2) {
	if k.Mass <= 0 {
		return
	}
	k.Acc = k.Acc.Add(f.Div(k.Mass))
}

// ApplyImpulse applies an instantaneous velocity change J/m. No-op for
// mass <= 0.
func (in *Integrator) ApplyImpulse(k *components.Kinetic, j vec.Vec2) {
	if k.Mass <= 0 {
		return
	}
	k.Vel = k.Vel.Add(j.Div(k.Mass))
}

// Constrain keeps k inside the axis-aligned rectangle [minX,maxX]x[minY,maxY],
// accounting for the entity radius. On crossing, position is clamped to the
// wall and the perpendicular velocity component is inverted and attenuated
// by the bounce factor.
func (in *Integrator) Constrain(k *components.Kinetic, minX, minY, maxX, maxY float64) {
	if k.Pos.X-k.Radius < minX {
		k.Pos.X = minX + k.Radius
		k.Vel.X = -k.Vel.X * in.bounce
	} else if k.Pos.X+k.Radius > maxX {
		k.Pos.X = maxX - k.Radius
		k.Vel.X = -k.Vel.X * in.bounce
	}
	if k.Pos.Y-k.Radius < minY {
		k.Pos.Y = minY + k.Radius
		k.Vel.Y = -k.Vel.Y * in.bounce
	} else if k.Pos.Y+k.Radius > maxY {
		k.Pos.Y = maxY - k.Radius
		k.Vel.Y = -k.Vel.Y * in.bounce
	}
}

// KineticEnergy returns 0.5 * m * |v|^2.
func KineticEnergy(k *components.Kinetic) float64 {
	return 0.5 * k.Mass * k.Vel.LenSq()
}
