package sim

import (
	"math"
	"testing"

	"github.com/pthm-cable/tangle/config"
	"github.com/pthm-cable/tangle/cortex"
	"github.com/pthm-cable/tangle/vec"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading default config: %v", err)
	}
	return cfg
}

// quietCortex zeroes all steering so tests can observe forces in isolation.
func quietCortex(cfg *config.Config) {
	cfg.Cortex.DriftStrength = 0
	cfg.Cortex.WanderStrength = 0
	cfg.Cortex.PursuitStrength = 0
	cfg.Cortex.OrbitStrength = 0
	cfg.Cortex.SeparationWeight = 0
	cfg.Cortex.WanderChance = 0
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, Options{Seed: 7})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func feedTwo(t *testing.T, e *Engine) {
	t.Helper()
	err := e.SetEntities([]Descriptor{
		{ID: "a", Seed: 0.1, Mass: 1},
		{ID: "b", Seed: 0.6, Mass: 1},
	})
	if err != nil {
		t.Fatalf("SetEntities: %v", err)
	}
}

func mustReposition(t *testing.T, e *Engine, id string, p vec.Vec2) {
	t.Helper()
	if err := e.Reposition(id, p); err != nil {
		t.Fatalf("Reposition(%q): %v", id, err)
	}
}

func TestRepulsionPairMovesApart(t *testing.T) {
	cfg := testConfig(t)
	quietCortex(cfg)
	cfg.Gravity.G = 0
	e := newTestEngine(t, cfg)
	feedTwo(t, e)

	center := e.GravityCenter()
	mustReposition(t, e, "a", center.Add(vec.Vec2{X: -100}))
	mustReposition(t, e, "b", center.Add(vec.Vec2{X: 100}))

	before, _ := e.Distance("a", "b")
	e.Update()
	after, _ := e.Distance("a", "b")

	if after <= before {
		t.Errorf("pair did not move apart: %v -> %v", before, after)
	}

	views := e.Snapshot()
	va, vb := views[0].Vel, views[1].Vel
	if va.X >= 0 || vb.X <= 0 {
		t.Errorf("velocities not directed apart: %v, %v", va, vb)
	}
	if math.Abs(va.X+vb.X) > 1e-9 || math.Abs(va.Y) > 1e-9 || math.Abs(vb.Y) > 1e-9 {
		t.Errorf("equal masses should move equally and oppositely: %v, %v", va, vb)
	}
}

func TestConnectedPairSettlesAtRestLength(t *testing.T) {
	cfg := testConfig(t)
	quietCortex(cfg)
	cfg.Gravity.G = 0
	cfg.Repulsion.K = 0
	e := newTestEngine(t, cfg)
	feedTwo(t, e)

	center := e.GravityCenter()
	mustReposition(t, e, "a", center.Add(vec.Vec2{X: -150}))
	mustReposition(t, e, "b", center.Add(vec.Vec2{X: 150}))
	if err := e.Connect("a", "b"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	for i := 0; i < 1200; i++ {
		e.Update()
	}

	dist, _ := e.Distance("a", "b")
	if math.Abs(dist-cfg.Spring.RestLength) > 5 {
		t.Errorf("settled distance = %v, want ~%v", dist, cfg.Spring.RestLength)
	}
}

func TestGravitySettlesNearCenter(t *testing.T) {
	cfg := testConfig(t)
	quietCortex(cfg)
	e := newTestEngine(t, cfg)
	if err := e.SetEntities([]Descriptor{{ID: "a", Seed: 0.3, Mass: 2}}); err != nil {
		t.Fatalf("SetEntities: %v", err)
	}

	center := e.GravityCenter()
	mustReposition(t, e, "a", center.Add(vec.Vec2{X: 300}))

	for i := 0; i < 3000; i++ {
		e.Update()
	}

	pos := e.Snapshot()[0].Pos
	if d := pos.Dist(center); d > 50 {
		t.Errorf("entity ended %v from center, want near it", d)
	}
}

func TestScrubRestoresRecordedPose(t *testing.T) {
	cfg := testConfig(t)
	e := newTestEngine(t, cfg)
	feedTwo(t, e)

	e.Update()
	oldest := e.Snapshot()

	for i := 0; i < 9; i++ {
		e.Update()
	}
	newest := e.Snapshot()

	meta := e.TimelineMeta()
	if meta.RecordedFrames != 10 {
		t.Fatalf("RecordedFrames = %d, want 10", meta.RecordedFrames)
	}

	if offset := e.Scrub(0); offset != 0 {
		t.Errorf("Scrub(0) offset = %d, want 0 (newest)", offset)
	}
	for i, v := range e.Snapshot() {
		if !v.Pos.ApproxEqual(newest[i].Pos) {
			t.Errorf("entity %d pos = %v after Scrub(0), want %v", i, v.Pos, newest[i].Pos)
		}
	}

	if offset := e.Scrub(1); offset != 9 {
		t.Errorf("Scrub(1) offset = %d, want 9 (oldest)", offset)
	}
	for i, v := range e.Snapshot() {
		if !v.Pos.ApproxEqual(oldest[i].Pos) {
			t.Errorf("entity %d pos = %v after Scrub(1), want %v", i, v.Pos, oldest[i].Pos)
		}
		if !v.Vel.ApproxEqual(oldest[i].Vel) {
			t.Errorf("entity %d vel = %v after Scrub(1), want %v", i, v.Vel, oldest[i].Vel)
		}
	}
}

func TestScrubEmptyHistory(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)
	if offset := e.Scrub(0.5); offset != -1 {
		t.Errorf("Scrub on empty history = %d, want -1", offset)
	}
}

func TestSetEntitiesRetainsKinetics(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	posBefore := e.Snapshot()[0].Pos

	err := e.SetEntities([]Descriptor{
		{ID: "a", Seed: 0.1, Mass: 3, Color: 0xFF0000FF},
		{ID: "b", Seed: 0.6, Mass: 1},
		{ID: "c", Seed: 0.9, Mass: 1},
	})
	if err != nil {
		t.Fatalf("second feed: %v", err)
	}

	if e.EntityCount() != 3 {
		t.Fatalf("EntityCount = %d, want 3", e.EntityCount())
	}
	a := e.Snapshot()[0]
	if !a.Pos.ApproxEqual(posBefore) {
		t.Errorf("retained entity moved on feed update: %v -> %v", posBefore, a.Pos)
	}
	if a.Color != 0xFF0000FF {
		t.Errorf("color not refreshed: %#x", a.Color)
	}
}

func TestSetEntitiesDropsAbsent(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	if err := e.SetEntities([]Descriptor{{ID: "a", Seed: 0.1, Mass: 1}}); err != nil {
		t.Fatalf("SetEntities: %v", err)
	}
	if e.EntityCount() != 1 {
		t.Fatalf("EntityCount = %d, want 1", e.EntityCount())
	}
	if _, err := e.Distance("a", "b"); err == nil {
		t.Error("dropped entity still resolvable")
	}
}

func TestSetEntitiesRejectsMalformedFeed(t *testing.T) {
	tests := []struct {
		name string
		feed []Descriptor
	}{
		{"empty identity", []Descriptor{{ID: "", Mass: 1}}},
		{"zero mass", []Descriptor{{ID: "a", Mass: 0}}},
		{"negative mass", []Descriptor{{ID: "a", Mass: -1}}},
		{"duplicate identity", []Descriptor{{ID: "a", Mass: 1}, {ID: "a", Mass: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, testConfig(t))
			if err := e.SetEntities(tt.feed); err == nil {
				t.Error("malformed feed accepted")
			}
			if e.EntityCount() != 0 {
				t.Errorf("partial feed applied: %d entities", e.EntityCount())
			}
		})
	}
}

func TestSpawnIsSeedDeterministic(t *testing.T) {
	feed := []Descriptor{
		{ID: "a", Seed: 0.25, Mass: 1},
		{ID: "b", Seed: 0.75, Mass: 1},
	}

	e1 := newTestEngine(t, testConfig(t))
	e2 := newTestEngine(t, testConfig(t))
	if err := e1.SetEntities(feed); err != nil {
		t.Fatal(err)
	}
	if err := e2.SetEntities(feed); err != nil {
		t.Fatal(err)
	}

	s1, s2 := e1.Snapshot(), e2.Snapshot()
	for i := range s1 {
		if !s1[i].Pos.ApproxEqual(s2[i].Pos) {
			t.Errorf("entity %q spawned at %v vs %v", s1[i].ID, s1[i].Pos, s2[i].Pos)
		}
	}
}

func TestConnectIdempotentAndSymmetric(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	if err := e.Connect("a", "b"); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect("b", "a"); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect("a", "b"); err != nil {
		t.Fatal(err)
	}
	if n := len(e.Connections()); n != 1 {
		t.Fatalf("connection count = %d, want 1", n)
	}

	for _, v := range e.Snapshot() {
		if !v.Connected {
			t.Errorf("entity %q not flagged connected", v.ID)
		}
	}

	if err := e.Disconnect("b", "a"); err != nil {
		t.Fatal(err)
	}
	if n := len(e.Connections()); n != 0 {
		t.Fatalf("connection count after disconnect = %d, want 0", n)
	}
	for _, v := range e.Snapshot() {
		if v.Connected {
			t.Errorf("entity %q still flagged connected", v.ID)
		}
	}
}

func TestConnectRejectsMalformedPairs(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	if err := e.Connect("a", "a"); err == nil {
		t.Error("self-connection accepted")
	}
	if err := e.Connect("", "b"); err == nil {
		t.Error("empty endpoint accepted")
	}
}

func TestConnectionWithMissingEndpointIsInert(t *testing.T) {
	cfg := testConfig(t)
	quietCortex(cfg)
	cfg.Gravity.G = 0
	cfg.Repulsion.K = 0
	e := newTestEngine(t, cfg)
	feedTwo(t, e)

	if err := e.Connect("a", "ghost"); err != nil {
		t.Fatalf("Connect to absent entity: %v", err)
	}

	center := e.GravityCenter()
	mustReposition(t, e, "a", center)
	e.Update()

	if v := e.Snapshot()[0].Vel; v.LenSq() != 0 {
		t.Errorf("dangling connection moved entity: vel = %v", v)
	}
}

func TestHitTest(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	mustReposition(t, e, "a", vec.Vec2{X: 100, Y: 100})
	mustReposition(t, e, "b", vec.Vec2{X: 104, Y: 100}) // overlapping a

	if id, ok := e.HitTest(vec.Vec2{X: 100, Y: 101}); !ok || id != "a" {
		t.Errorf("HitTest near a = (%q, %v), want a", id, ok)
	}
	if id, ok := e.HitTest(vec.Vec2{X: 105, Y: 100}); !ok || id != "b" {
		t.Errorf("HitTest near b = (%q, %v), want b", id, ok)
	}
	if _, ok := e.HitTest(vec.Vec2{X: 500, Y: 500}); ok {
		t.Error("HitTest in empty space reported a hit")
	}
}

func TestRepositionZeroesVelocity(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	for i := 0; i < 5; i++ {
		e.Update()
	}
	mustReposition(t, e, "a", vec.Vec2{X: 10, Y: 20})

	a := e.Snapshot()[0]
	if !a.Pos.ApproxEqual(vec.Vec2{X: 10, Y: 20}) {
		t.Errorf("pos = %v, want (10, 20)", a.Pos)
	}
	if a.Vel.LenSq() != 0 {
		t.Errorf("velocity not zeroed: %v", a.Vel)
	}

	if err := e.Reposition("ghost", vec.Vec2{}); err == nil {
		t.Error("reposition of unknown entity accepted")
	}
}

func TestBehaviorCommands(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	if err := e.SetTarget("a", "b"); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if s := e.StateOf("a"); s != cortex.HuntingTarget {
		t.Errorf("state after SetTarget = %v, want hunting", s)
	}

	if err := e.SetOrbit("b", "a"); err != nil {
		t.Fatalf("SetOrbit: %v", err)
	}
	if s := e.StateOf("b"); s != cortex.OrbitalLock {
		t.Errorf("state after SetOrbit = %v, want orbital lock", s)
	}

	if err := e.ClearTarget("a"); err != nil {
		t.Fatalf("ClearTarget: %v", err)
	}
	if s := e.StateOf("a"); s != cortex.IdleDrift {
		t.Errorf("state after ClearTarget = %v, want idle", s)
	}

	if err := e.SetTarget("a", "ghost"); err == nil {
		t.Error("target on unknown entity accepted")
	}
	if err := e.SetTarget("ghost", "a"); err == nil {
		t.Error("command for unknown entity accepted")
	}
}

func TestPauseStopsAdvancing(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	e.Update()
	tick := e.TickCount()
	pos := e.Snapshot()[0].Pos

	e.Pause()
	e.Update()
	e.Update()

	if e.TickCount() != tick {
		t.Errorf("tick advanced while paused: %d -> %d", tick, e.TickCount())
	}
	if !e.Snapshot()[0].Pos.ApproxEqual(pos) {
		t.Error("entity moved while paused")
	}

	e.Resume()
	e.Update()
	if e.TickCount() != tick+1 {
		t.Error("tick did not advance after resume")
	}
}

func TestRecordingToggle(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	e.PauseRecording()
	for i := 0; i < 5; i++ {
		e.Update()
	}
	if n := e.TimelineMeta().RecordedFrames; n != 0 {
		t.Errorf("recorded %d frames while recording paused", n)
	}

	e.ResumeRecording()
	e.Update()
	if n := e.TimelineMeta().RecordedFrames; n != 1 {
		t.Errorf("RecordedFrames = %d after resume, want 1", n)
	}
}

func TestTrailFollowsEntity(t *testing.T) {
	e := newTestEngine(t, testConfig(t))
	feedTwo(t, e)

	for i := 0; i < 4; i++ {
		e.Update()
	}

	trail := e.Trail("a", 10)
	if len(trail) != 4 {
		t.Fatalf("trail length = %d, want 4", len(trail))
	}
	if !trail[0].ApproxEqual(e.Snapshot()[0].Pos) {
		t.Errorf("trail head %v != current pos %v", trail[0], e.Snapshot()[0].Pos)
	}
	if e.Trail("ghost", 10) != nil {
		t.Error("trail for unknown entity not nil")
	}
}
