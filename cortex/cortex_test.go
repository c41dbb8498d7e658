package cortex

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/config"
	"github.com/pthm-cable/tangle/vec"
)

func testConfig() config.CortexConfig {
	return config.CortexConfig{
		SensorRadius:     120,
		SeparationRadius: 60,
		SeparationWeight: 1.5,
		CrowdThreshold:   0.55,
		CalmThreshold:    0.25,
		AnxietyDecay:     0.95,
		AnxietyGain:      0.08,
		DecisionInterval: 15,
		WanderChance:     0.02,
		ReturnChance:     0.05,
		WanderJitter:     0.3,
		DriftStrength:    0.05,
		WanderStrength:   0.4,
		PursuitStrength:  0.6,
		OrbitStrength:    0.5,
		OrbitRadius:      80,
		MemorySize:       10,
	}
}

func newTestCortex(cfg config.CortexConfig) *Cortex {
	return New(cfg, 12.0, rand.New(rand.NewSource(1)))
}

func selfAt(x, y float64) *components.Kinetic {
	return &components.Kinetic{Pos: vec.Vec2{X: x, Y: y}, Mass: 1, Damping: 1, Radius: 5}
}

func TestLazyPacketCreation(t *testing.T) {
	c := newTestCortex(testConfig())

	if got := c.StateOf("a"); got != IdleDrift {
		t.Errorf("unseen entity state = %v, want IdleDrift", got)
	}

	p := c.Packet("a")
	if p.State != IdleDrift {
		t.Errorf("fresh packet state = %v, want IdleDrift", p.State)
	}
	if c.Packet("a") != p {
		t.Error("Packet did not return the same instance on second call")
	}

	c.Forget("a")
	if c.Packet("a") == p {
		t.Error("Forget did not drop the packet")
	}
}

func TestNoNeighborsStaysIdle(t *testing.T) {
	cfg := testConfig()
	cfg.WanderChance = 0 // isolate the crowd path
	c := newTestCortex(cfg)
	self := selfAt(0, 0)

	for tick := int64(0); tick < 300; tick++ {
		c.Process("a", self, nil, tick)
	}

	if got := c.StateOf("a"); got != IdleDrift {
		t.Errorf("entity with no neighbors left IdleDrift: %v", got)
	}
	if p := c.Packet("a"); p.Anxiety != 0 {
		t.Errorf("anxiety = %v with no neighbors, want 0", p.Anxiety)
	}
}

func TestCrowdTriggersEvasion(t *testing.T) {
	cfg := testConfig()
	cfg.WanderChance = 0
	c := newTestCortex(cfg)
	self := selfAt(0, 0)

	// A dense cluster right on top of the entity.
	var crowd []Neighbor
	for i := 0; i < 8; i++ {
		crowd = append(crowd, Neighbor{ID: string(rune('b' + i)), Pos: vec.Vec2{X: 2, Y: float64(i)}})
	}

	for tick := int64(0); tick <= int64(cfg.DecisionInterval); tick++ {
		c.Process("a", self, crowd, tick)
	}

	if got := c.StateOf("a"); got != EvadingCrowd {
		t.Fatalf("state = %v after crowding, want EvadingCrowd", got)
	}

	// Crowd disperses; entity calms down and anxiety resets.
	for tick := int64(cfg.DecisionInterval + 1); tick <= int64(3*cfg.DecisionInterval); tick++ {
		c.Process("a", self, nil, tick)
	}
	if got := c.StateOf("a"); got != IdleDrift {
		t.Errorf("state = %v after calm, want IdleDrift", got)
	}
	if p := c.Packet("a"); p.Anxiety != 0 {
		t.Errorf("anxiety = %v after calming, want reset to 0", p.Anxiety)
	}
}

func TestEvasionSteersAway(t *testing.T) {
	c := newTestCortex(testConfig())
	self := selfAt(0, 0)
	c.Packet("a").State = EvadingCrowd

	// single neighbor to the right: steering should push left
	steer := c.steer(c.Packet("a"), self, []Neighbor{{ID: "b", Pos: vec.Vec2{X: 10, Y: 0}}}, 0)
	if steer.X >= 0 {
		t.Errorf("separation steering = %v, want -x component", steer)
	}

	// nothing in range: zero steering
	far := []Neighbor{{ID: "b", Pos: vec.Vec2{X: 500, Y: 0}}}
	if got := c.steer(c.Packet("a"), self, far, 0); got != (vec.Vec2{}) {
		t.Errorf("separation with no neighbors in range = %v, want zero", got)
	}
}

func TestSetTargetImmediate(t *testing.T) {
	cfg := testConfig()
	c := newTestCortex(cfg)
	self := selfAt(0, 0)

	// Mid-throttle override: no decision tick needed.
	c.Process("a", self, nil, 3)
	c.SetTarget("a", "b")
	if got := c.StateOf("a"); got != HuntingTarget {
		t.Fatalf("state after SetTarget = %v, want HuntingTarget", got)
	}

	neighbors := []Neighbor{{ID: "b", Pos: vec.Vec2{X: 100, Y: 0}}}
	steer := c.Process("a", self, neighbors, 4)
	if steer.X <= 0 {
		t.Errorf("pursuit steering = %v, want toward target (+x)", steer)
	}

	c.ClearTarget("a")
	if got := c.StateOf("a"); got != IdleDrift {
		t.Errorf("state after ClearTarget = %v, want IdleDrift", got)
	}
	if c.Packet("a").TargetID != "" {
		t.Error("ClearTarget left the target reference set")
	}
}

func TestPursuitWithoutTargetIsZero(t *testing.T) {
	c := newTestCortex(testConfig())
	self := selfAt(0, 0)
	p := c.Packet("a")
	p.State = HuntingTarget
	p.TargetID = "gone"

	if got := c.steer(p, self, nil, 0); got != (vec.Vec2{}) {
		t.Errorf("pursuit of unresolvable target = %v, want zero", got)
	}
}

func TestOrbitDropsMissingTarget(t *testing.T) {
	cfg := testConfig()
	c := newTestCortex(cfg)
	self := selfAt(0, 0)

	c.SetOrbit("a", "b")
	neighbors := []Neighbor{{ID: "b", Pos: vec.Vec2{X: 50, Y: 50}}}
	steer := c.Process("a", self, neighbors, int64(cfg.DecisionInterval))
	if c.StateOf("a") != OrbitalLock {
		t.Fatalf("orbit dropped while target resolvable")
	}
	if steer == (vec.Vec2{}) {
		t.Error("orbit steering is zero with a resolvable target")
	}

	// Target disappears: next decision tick falls back to idle.
	c.Process("a", self, nil, int64(2*cfg.DecisionInterval))
	if got := c.StateOf("a"); got != IdleDrift {
		t.Errorf("state = %v after target vanished, want IdleDrift", got)
	}
	if c.Packet("a").TargetID != "" {
		t.Error("orbit fallback left the target reference set")
	}
}

func TestAnxietyClamped(t *testing.T) {
	cfg := testConfig()
	cfg.AnxietyGain = 5 // force saturation
	c := newTestCortex(cfg)
	self := selfAt(0, 0)
	crowd := []Neighbor{{ID: "b", Pos: vec.Vec2{X: 1, Y: 0}}, {ID: "c", Pos: vec.Vec2{X: 0, Y: 1}}}

	for tick := int64(0); tick < 50; tick++ {
		c.Process("a", self, crowd, tick)
	}

	if p := c.Packet("a"); p.Anxiety > 1 {
		t.Errorf("anxiety = %v, want clamped to 1", p.Anxiety)
	}
}

func TestMemoryBounded(t *testing.T) {
	cfg := testConfig()
	c := newTestCortex(cfg)
	self := selfAt(0, 0)

	for tick := int64(0); tick < 40; tick++ {
		self.Pos.X = float64(tick)
		c.Process("a", self, nil, tick)
	}

	p := c.Packet("a")
	if len(p.Memory) != cfg.MemorySize {
		t.Fatalf("memory length = %d, want %d", len(p.Memory), cfg.MemorySize)
	}
	// oldest evicted first: memory holds the most recent positions
	if p.Memory[len(p.Memory)-1].X != 39 {
		t.Errorf("newest memory sample = %v, want x=39", p.Memory[len(p.Memory)-1])
	}
	if p.Memory[0].X != float64(40-cfg.MemorySize) {
		t.Errorf("oldest memory sample = %v, want x=%d", p.Memory[0], 40-cfg.MemorySize)
	}
}

func TestNearestNeighborTracked(t *testing.T) {
	c := newTestCortex(testConfig())
	self := selfAt(0, 0)
	neighbors := []Neighbor{
		{ID: "far", Pos: vec.Vec2{X: 100, Y: 0}},
		{ID: "near", Pos: vec.Vec2{X: 5, Y: 0}},
	}

	c.Process("a", self, neighbors, 0)
	if got := c.Packet("a").NearestID; got != "near" {
		t.Errorf("NearestID = %q, want \"near\"", got)
	}

	c.Process("a", self, nil, 1)
	if got := c.Packet("a").NearestID; got != "" {
		t.Errorf("NearestID = %q with no neighbors, want empty", got)
	}
}

func TestWanderIsSmooth(t *testing.T) {
	cfg := testConfig()
	c := newTestCortex(cfg)
	self := selfAt(0, 0)
	p := c.Packet("a")
	p.State = ErrantWander
	p.WanderAngle = 0

	prev := c.steer(p, self, nil, 0)
	for i := 1; i < 20; i++ {
		cur := c.steer(p, self, nil, int64(i))
		// constant magnitude
		if d := cur.Len() - cfg.WanderStrength; d > 1e-9 || d < -1e-9 {
			t.Fatalf("wander magnitude = %v, want %v", cur.Len(), cfg.WanderStrength)
		}
		// direction changes by at most the jitter bound per tick
		delta := cur.Angle() - prev.Angle()
		for delta > 3.15 {
			delta -= 2 * 3.141592653589793
		}
		for delta < -3.15 {
			delta += 2 * 3.141592653589793
		}
		if delta > cfg.WanderJitter+1e-9 || delta < -cfg.WanderJitter-1e-9 {
			t.Fatalf("wander direction jumped by %v, jitter bound %v", delta, cfg.WanderJitter)
		}
		prev = cur
	}
}

func TestStateCounts(t *testing.T) {
	c := newTestCortex(testConfig())
	c.Packet("a")
	c.SetTarget("b", "a")
	c.SetOrbit("c", "a")

	counts := c.StateCounts()
	if counts[IdleDrift] != 1 || counts[HuntingTarget] != 1 || counts[OrbitalLock] != 1 {
		t.Errorf("StateCounts = %v", counts)
	}
}
