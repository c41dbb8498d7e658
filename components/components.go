// Package components defines the ECS components stored per entity.
package components

import "github.com/pthm-cable/tangle/vec"

// Category tags an entity's role in the graph being visualized.
type Category uint8

const (
	CategoryPrimary Category = iota
	CategorySecondary
	CategoryTertiary
)

// String returns the category name for logging and rendering.
func (c Category) String() string {
	switch c {
	case CategoryPrimary:
		return "primary"
	case CategorySecondary:
		return "secondary"
	case CategoryTertiary:
		return "tertiary"
	}
	return "unknown"
}

// ParseCategory maps a category name to its tag. Unknown names fall back
// to tertiary; entity feeds may omit the field entirely.
func ParseCategory(s string) Category {
	switch s {
	case "primary":
		return CategoryPrimary
	case "secondary":
		return CategorySecondary
	}
	return CategoryTertiary
}

// Kinetic holds the full kinetic state of one entity. It is mutated only by
// the integrator and by direct reposition commands.
type Kinetic struct {
	Pos vec.Vec2
	Vel vec.Vec2
	Acc vec.Vec2 // reset to zero at the start of every tick

	Mass    float64 // <= 0 disables all force and impulse application
	Damping float64 // multiplicative velocity decay per tick, in [0,1]
	Radius  float64 // for boundary collision and hit-testing
}

// Meta holds an entity's identity and display attributes.
type Meta struct {
	ID        string
	Color     uint32 // packed RGBA display tag, opaque to the core
	Category  Category
	Connected bool // maintained by the engine from the connection set
}
