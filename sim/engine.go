// Package sim implements the simulation engine: it owns the entity table,
// the connection set, the behavior engine, and the frame history, and runs
// the per-tick force pipeline that advances them.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/config"
	"github.com/pthm-cable/tangle/cortex"
	"github.com/pthm-cable/tangle/physics"
	"github.com/pthm-cable/tangle/telemetry"
	"github.com/pthm-cable/tangle/timeline"
	"github.com/pthm-cable/tangle/vec"
)

// Descriptor is one entry of the entity feed supplied by an external
// synthesizer. Seed drives the spawn angle so an entity always appears at
// the same bearing from the canvas center.
type Descriptor struct {
	ID       string
	Seed     float64
	Mass     float64
	Color    uint32
	Category components.Category
}

// Connection is a canonicalized unordered pair of entity identities
// (A < B lexicographically).
type Connection struct {
	A, B string
}

// connectionKey canonicalizes an identity pair. Malformed pairs are
// rejected here, at the API boundary, so they can never corrupt the set.
func connectionKey(a, b string) (Connection, error) {
	if a == "" || b == "" {
		return Connection{}, fmt.Errorf("sim: connection endpoint must not be empty (%q, %q)", a, b)
	}
	if a == b {
		return Connection{}, fmt.Errorf("sim: cannot connect %q to itself", a)
	}
	if b < a {
		a, b = b, a
	}
	return Connection{A: a, B: b}, nil
}

// EntityView is the read-only render snapshot of one entity.
type EntityView struct {
	ID        string
	Pos       vec.Vec2
	Vel       vec.Vec2
	Radius    float64
	Color     uint32
	Category  components.Category
	Connected bool
}

// Options configures engine construction.
type Options struct {
	Seed           int64
	LogStats       bool
	StatsWindowSec float64 // 0 = use config
	OutputDir      string
}

// Engine owns all mutable simulation state. All mutator and tick calls must
// come from a single goroutine; the engine does no locking of its own.
type Engine struct {
	cfg *config.Config
	rng *rand.Rand

	world   *ecs.World
	mapper  *ecs.Map2[components.Kinetic, components.Meta]
	filter  *ecs.Filter2[components.Kinetic, components.Meta]
	kinMap  *ecs.Map1[components.Kinetic]
	metaMap *ecs.Map1[components.Meta]

	// ids resolves identities to ECS entities; order fixes each identity's
	// slot in history frames and render snapshots (feed order).
	ids   map[string]ecs.Entity
	order []string

	connections map[Connection]struct{}

	brain      *cortex.Cortex
	integrator *physics.Integrator
	history    *timeline.History

	repulsion physics.RepulsionParams
	spring    physics.SpringParams
	gravity   physics.GravityParams

	tick   int64
	paused bool

	worldW, worldH float64

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
	logStats  bool

	// scratch buffers reused every tick
	kins      []*components.Kinetic
	metas     []*components.Meta
	neighbors []cortex.Neighbor
	samples   []timeline.Sample
}

// NewEngine creates an engine from the given configuration.
func NewEngine(cfg *config.Config, opts Options) (*Engine, error) {
	scheme, err := physics.ParseScheme(cfg.Physics.Scheme)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = 42
	}
	rng := rand.New(rand.NewSource(seed))

	worldW := float64(cfg.World.Width)
	worldH := float64(cfg.World.Height)

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		return nil, err
	}

	world := ecs.NewWorld()

	history, err := timeline.NewHistory(cfg.Timeline.MaxFrames, 0)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		rng:         rng,
		world:       world,
		mapper:      ecs.NewMap2[components.Kinetic, components.Meta](world),
		filter:      ecs.NewFilter2[components.Kinetic, components.Meta](world),
		kinMap:      ecs.NewMap1[components.Kinetic](world),
		metaMap:     ecs.NewMap1[components.Meta](world),
		ids:         make(map[string]ecs.Entity),
		connections: make(map[Connection]struct{}),
		brain:       cortex.New(cfg.Cortex, cfg.Physics.MaxSpeed, rng),
		integrator: physics.NewIntegrator(scheme,
			cfg.Physics.MaxSpeed, cfg.Physics.MinSpeed, cfg.Physics.Bounce),
		history: history,
		repulsion: physics.RepulsionParams{
			K:           cfg.Repulsion.K,
			MinDistance: cfg.Repulsion.MinDistance,
			MaxDistance: cfg.Repulsion.MaxDistance,
			Softening:   cfg.Repulsion.Softening,
		},
		spring: physics.SpringParams{
			K:          cfg.Spring.K,
			RestLength: cfg.Spring.RestLength,
			Damping:    cfg.Spring.Damping,
		},
		gravity: physics.GravityParams{
			G:      cfg.Gravity.G,
			Center: vec.Vec2{X: worldW / 2, Y: worldH / 2},
		},
		worldW:    worldW,
		worldH:    worldH,
		collector: telemetry.NewCollector(statsWindow, cfg.Physics.DT),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		output:    output,
		logStats:  opts.LogStats,
	}

	return e, nil
}

// SetEntities reconciles the engine's entity table against a fresh feed:
// retained identities keep their kinetic state and only refresh mass and
// color, new identities spawn at a seed-derived position, and identities
// absent from the feed are dropped. The whole feed is validated before any
// of it is applied.
func (e *Engine) SetEntities(feed []Descriptor) error {
	seen := make(map[string]struct{}, len(feed))
	for i := range feed {
		d := &feed[i]
		if d.ID == "" {
			return fmt.Errorf("sim: entity %d has an empty identity", i)
		}
		if d.Mass <= 0 {
			return fmt.Errorf("sim: entity %q has non-positive mass %v", d.ID, d.Mass)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("sim: duplicate entity identity %q in feed", d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	// Drop entities that disappeared from the feed.
	for id, entity := range e.ids {
		if _, ok := seen[id]; ok {
			continue
		}
		e.mapper.Remove(entity)
		e.brain.Forget(id)
		delete(e.ids, id)
		e.collector.RecordDrop()
		slog.Debug("entity dropped", "id", id)
	}

	// Update retained entities, spawn new ones. Feed order becomes the
	// frame slot order.
	e.order = e.order[:0]
	for i := range feed {
		d := &feed[i]
		e.order = append(e.order, d.ID)

		if entity, ok := e.ids[d.ID]; ok {
			kin := e.kinMap.Get(entity)
			meta := e.metaMap.Get(entity)
			kin.Mass = d.Mass
			meta.Color = d.Color
			continue
		}

		e.ids[d.ID] = e.spawn(d)
		e.collector.RecordSpawn()
	}

	e.refreshConnectedFlags()

	// Frame geometry changed: the history buffer is sized per entity
	// count, so the timeline restarts here.
	history, err := timeline.NewHistory(e.cfg.Timeline.MaxFrames, len(e.order))
	if err != nil {
		return err
	}
	if !e.history.Meta().Recording {
		history.Pause()
	}
	e.history = history
	e.samples = make([]timeline.Sample, len(e.order))

	slog.Info("entity feed applied", "entities", len(e.order))
	return nil
}

// spawn creates an entity at a seed-derived bearing from the canvas center,
// at a random radius.
func (e *Engine) spawn(d *Descriptor) ecs.Entity {
	angle := d.Seed * 2 * math.Pi
	dist := e.rng.Float64() * e.cfg.Spawn.Radius
	center := vec.Vec2{X: e.worldW / 2, Y: e.worldH / 2}

	kin := components.Kinetic{
		Pos:     center.Add(vec.FromAngle(angle, dist)),
		Mass:    d.Mass,
		Damping: e.cfg.Physics.Damping,
		Radius:  e.cfg.Spawn.BodyRadius,
	}
	meta := components.Meta{
		ID:       d.ID,
		Color:    d.Color,
		Category: d.Category,
	}
	return e.mapper.NewEntity(&kin, &meta)
}

// Connect adds a connection between two identities. Idempotent and
// symmetric: Connect(a, b) is Connect(b, a).
func (e *Engine) Connect(a, b string) error {
	key, err := connectionKey(a, b)
	if err != nil {
		return err
	}
	if _, ok := e.connections[key]; ok {
		return nil
	}
	e.connections[key] = struct{}{}
	e.refreshConnectedFlags()
	e.collector.RecordConnect()
	slog.Debug("connected", "a", key.A, "b", key.B)
	return nil
}

// Disconnect removes a connection. Removing an absent connection is a no-op.
func (e *Engine) Disconnect(a, b string) error {
	key, err := connectionKey(a, b)
	if err != nil {
		return err
	}
	if _, ok := e.connections[key]; !ok {
		return nil
	}
	delete(e.connections, key)
	e.refreshConnectedFlags()
	e.collector.RecordDisconnect()
	return nil
}

// Connections returns the current connection list for line drawing.
func (e *Engine) Connections() []Connection {
	out := make([]Connection, 0, len(e.connections))
	for key := range e.connections {
		out = append(out, key)
	}
	return out
}

// refreshConnectedFlags recomputes each entity's membership in the
// connection set.
func (e *Engine) refreshConnectedFlags() {
	connected := make(map[string]struct{}, len(e.connections)*2)
	for key := range e.connections {
		connected[key.A] = struct{}{}
		connected[key.B] = struct{}{}
	}
	for id, entity := range e.ids {
		_, ok := connected[id]
		e.metaMap.Get(entity).Connected = ok
	}
}

// Snapshot returns the render feed: one view per entity in slot order.
func (e *Engine) Snapshot() []EntityView {
	out := make([]EntityView, 0, len(e.order))
	for _, id := range e.order {
		entity := e.ids[id]
		kin := e.kinMap.Get(entity)
		meta := e.metaMap.Get(entity)
		out = append(out, EntityView{
			ID:        meta.ID,
			Pos:       kin.Pos,
			Vel:       kin.Vel,
			Radius:    kin.Radius,
			Color:     meta.Color,
			Category:  meta.Category,
			Connected: meta.Connected,
		})
	}
	return out
}

// EntityCount returns the number of live entities.
func (e *Engine) EntityCount() int { return len(e.order) }

// Tick returns the current tick counter.
func (e *Engine) TickCount() int64 { return e.tick }

// Pause stops the engine from advancing; Update becomes a no-op.
func (e *Engine) Pause() { e.paused = true }

// Resume lets Update advance the simulation again.
func (e *Engine) Resume() { e.paused = false }

// Paused reports whether the tick loop is suspended.
func (e *Engine) Paused() bool { return e.paused }

// MarkFrame records a rendered frame for FPS tracking. Graphics mode only.
func (e *Engine) MarkFrame() { e.perf.RecordFrame() }

// GravityCenter returns the current focal point of center gravity.
func (e *Engine) GravityCenter() vec.Vec2 { return e.gravity.Center }

// SetGravityCenter moves the gravity focal point, e.g. after a canvas
// resize.
func (e *Engine) SetGravityCenter(c vec.Vec2) { e.gravity.Center = c }

// Close flushes any experiment output.
func (e *Engine) Close() error { return e.output.Close() }
