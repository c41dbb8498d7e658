// Package cortex implements the per-entity behavior engine: a finite state
// machine that perceives local crowding, tracks an anxiety scalar and a
// short position memory, and emits one steering force per tick.
//
// Steering output is an intentional self-propulsion term; the engine adds it
// directly to acceleration without dividing by mass.
package cortex

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/config"
	"github.com/pthm-cable/tangle/vec"
)

// State is the behavior an entity is currently executing. There is no
// terminal state; the machine runs for the life of the entity.
type State uint8

const (
	IdleDrift State = iota
	HuntingTarget
	EvadingCrowd
	OrbitalLock
	ErrantWander
)

// String returns the state name for logging and telemetry.
func (s State) String() string {
	switch s {
	case IdleDrift:
		return "idle_drift"
	case HuntingTarget:
		return "hunting_target"
	case EvadingCrowd:
		return "evading_crowd"
	case OrbitalLock:
		return "orbital_lock"
	case ErrantWander:
		return "errant_wander"
	}
	return "unknown"
}

// NumStates is the size of the closed state set.
const NumStates = 5

// Neighbor is the read-only view of another entity that perception works on.
type Neighbor struct {
	ID  string
	Pos vec.Vec2
}

// Packet is the mutable behavior state for one entity, created lazily the
// first time the entity is processed and dropped when the entity leaves the
// simulation.
type Packet struct {
	State        State
	TargetID     string  // pursuit/orbit target, empty when unset
	NearestID    string  // closest neighbor seen on the last Process call
	Anxiety      float64 // in [0,1]
	LastDecision int64   // tick of the last transition evaluation
	WanderAngle  float64
	Memory       []vec.Vec2 // recent positions, oldest first
}

// Cortex owns the behavior packets for all entities, keyed by entity ID.
// The same pattern the engine uses for its other per-ID side tables.
type Cortex struct {
	cfg      config.CortexConfig
	maxSpeed float64
	rng      *rand.Rand
	packets  map[string]*Packet
}

// New creates a behavior engine. maxSpeed is the integrator's speed ceiling,
// used as the desired speed for separation steering.
func New(cfg config.CortexConfig, maxSpeed float64, rng *rand.Rand) *Cortex {
	return &Cortex{
		cfg:      cfg,
		maxSpeed: maxSpeed,
		rng:      rng,
		packets:  make(map[string]*Packet),
	}
}

// Packet returns the behavior packet for id, creating it on first sight.
func (c *Cortex) Packet(id string) *Packet {
	p, ok := c.packets[id]
	if !ok {
		p = &Packet{State: IdleDrift, WanderAngle: c.rng.Float64() * 2 * math.Pi}
		c.packets[id] = p
	}
	return p
}

// Forget drops the packet for a removed entity.
func (c *Cortex) Forget(id string) {
	delete(c.packets, id)
}

// SetTarget switches the entity into pursuit of targetID immediately,
// bypassing the decision throttle.
func (c *Cortex) SetTarget(id, targetID string) {
	p := c.Packet(id)
	p.State = HuntingTarget
	p.TargetID = targetID
}

// SetOrbit switches the entity into orbit around targetID immediately.
func (c *Cortex) SetOrbit(id, targetID string) {
	p := c.Packet(id)
	p.State = OrbitalLock
	p.TargetID = targetID
}

// ClearTarget drops any target and forces the entity back to idle.
func (c *Cortex) ClearTarget(id string) {
	p := c.Packet(id)
	p.State = IdleDrift
	p.TargetID = ""
}

// StateOf returns the current state for id, or IdleDrift if the entity has
// never been processed.
func (c *Cortex) StateOf(id string) State {
	if p, ok := c.packets[id]; ok {
		return p.State
	}
	return IdleDrift
}

// StateCounts tallies packets per state for telemetry.
func (c *Cortex) StateCounts() [NumStates]int {
	var counts [NumStates]int
	for _, p := range c.packets {
		counts[p.State]++
	}
	return counts
}

// Process runs one perception/decision/steering cycle for the entity and
// returns its steering force. neighbors must not contain the entity itself.
func (c *Cortex) Process(id string, self *components.Kinetic, neighbors []Neighbor, tick int64) vec.Vec2 {
	p := c.Packet(id)

	density := c.crowdDensity(self.Pos, neighbors)

	p.NearestID = ""
	if n := nearest(self.Pos, neighbors); n != nil {
		p.NearestID = n.ID
	}

	p.Anxiety = p.Anxiety*c.cfg.AnxietyDecay + density*c.cfg.AnxietyGain
	if p.Anxiety > 1 {
		p.Anxiety = 1
	}

	p.Memory = append(p.Memory, self.Pos)
	if len(p.Memory) > c.cfg.MemorySize {
		p.Memory = p.Memory[1:]
	}

	if tick-p.LastDecision >= int64(c.cfg.DecisionInterval) {
		p.LastDecision = tick
		c.decide(p, density, neighbors)
	}

	return c.steer(p, self, neighbors, tick)
}

// crowdDensity accumulates inverse-falloff-squared contributions from
// neighbors inside the sensor radius, normalized to roughly [0,1].
func (c *Cortex) crowdDensity(pos vec.Vec2, neighbors []Neighbor) float64 {
	r := c.cfg.SensorRadius
	if r <= 0 {
		return 0
	}
	var density float64
	for i := range neighbors {
		d := pos.Dist(neighbors[i].Pos)
		if d >= r {
			continue
		}
		falloff := 1 - d/r
		density += falloff * falloff
	}
	// A handful of close neighbors saturates the sensor.
	density /= 5
	if density > 1 {
		density = 1
	}
	return density
}

// nearest returns the closest neighbor, or nil when alone.
func nearest(pos vec.Vec2, neighbors []Neighbor) *Neighbor {
	var best *Neighbor
	bestSq := math.MaxFloat64
	for i := range neighbors {
		dsq := pos.DistSq(neighbors[i].Pos)
		if dsq < bestSq {
			bestSq = dsq
			best = &neighbors[i]
		}
	}
	return best
}

// resolve finds a neighbor by ID, or nil when it is gone.
func resolve(id string, neighbors []Neighbor) *Neighbor {
	if id == "" {
		return nil
	}
	for i := range neighbors {
		if neighbors[i].ID == id {
			return &neighbors[i]
		}
	}
	return nil
}

// decide evaluates state transitions. Called only on decision ticks.
func (c *Cortex) decide(p *Packet, density float64, neighbors []Neighbor) {
	switch p.State {
	case IdleDrift:
		if density > c.cfg.CrowdThreshold {
			p.State = EvadingCrowd
		} else if c.rng.Float64() < c.cfg.WanderChance {
			p.State = ErrantWander
			p.WanderAngle = c.rng.Float64() * 2 * math.Pi
		}
	case EvadingCrowd:
		if density < c.cfg.CalmThreshold {
			p.State = IdleDrift
			p.Anxiety = 0
		}
	case ErrantWander:
		if c.rng.Float64() < c.cfg.ReturnChance {
			p.State = IdleDrift
		}
	case HuntingTarget:
		if p.TargetID == "" {
			p.State = IdleDrift
		}
	case OrbitalLock:
		if resolve(p.TargetID, neighbors) == nil {
			p.State = IdleDrift
			p.TargetID = ""
		}
	}
}

// steer executes the behavior for the current state.
func (c *Cortex) steer(p *Packet, self *components.Kinetic, neighbors []Neighbor, tick int64) vec.Vec2 {
	switch p.State {
	case EvadingCrowd:
		return c.separation(self, neighbors)
	case ErrantWander:
		p.WanderAngle += (c.rng.Float64()*2 - 1) * c.cfg.WanderJitter
		return vec.FromAngle(p.WanderAngle, c.cfg.WanderStrength)
	case HuntingTarget:
		target := resolve(p.TargetID, neighbors)
		if target == nil {
			return vec.Vec2{}
		}
		return target.Pos.Sub(self.Pos).Normalize().Scale(c.cfg.PursuitStrength)
	case OrbitalLock:
		target := resolve(p.TargetID, neighbors)
		if target == nil {
			return vec.Vec2{}
		}
		// The angular slot advances with tick and is phase-offset by mass so
		// co-orbiting entities stay desynchronized.
		angle := float64(tick)*0.05 + self.Mass*10
		point := target.Pos.Add(vec.FromAngle(angle, c.cfg.OrbitRadius))
		return point.Sub(self.Pos).Normalize().Scale(c.cfg.OrbitStrength)
	default: // IdleDrift
		// Stable per-entity variation without per-entity randomness: the
		// oscillation phase is derived from tick and mass.
		phase := float64(tick)*0.03 + self.Mass*7
		return vec.Vec2{
			X: math.Cos(phase),
			Y: math.Sin(phase * 1.3),
		}.Scale(c.cfg.DriftStrength)
	}
}

// separation steers away from every neighbor inside the separation radius,
// weighting closer neighbors more. Zero when nothing is in range.
func (c *Cortex) separation(self *components.Kinetic, neighbors []Neighbor) vec.Vec2 {
	var sum vec.Vec2
	count := 0
	for i := range neighbors {
		d := self.Pos.Dist(neighbors[i].Pos)
		if d <= 0 || d >= c.cfg.SeparationRadius {
			continue
		}
		away := self.Pos.Sub(neighbors[i].Pos).Normalize().Div(d)
		sum = sum.Add(away)
		count++
	}
	if count == 0 {
		return vec.Vec2{}
	}
	desired := sum.Div(float64(count)).Normalize().Scale(c.maxSpeed)
	return desired.Sub(self.Vel).Scale(c.cfg.SeparationWeight)
}
