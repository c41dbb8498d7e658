package sim

import (
	"log/slog"

	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/cortex"
	"github.com/pthm-cable/tangle/physics"
	"github.com/pthm-cable/tangle/telemetry"
	"github.com/pthm-cable/tangle/vec"
)

// Update advances the simulation by one tick through the fixed pipeline:
// behavior steering, pairwise repulsion, connection springs, gravity plus
// integration, history recording. A no-op while paused.
func (e *Engine) Update() {
	if e.paused {
		return
	}

	e.perf.StartTick()
	e.gather()

	e.perf.StartPhase(telemetry.PhaseBehavior)
	e.behaviorPhase()

	e.perf.StartPhase(telemetry.PhaseRepulsion)
	e.repulsionPhase()

	e.perf.StartPhase(telemetry.PhaseAttraction)
	e.attractionPhase()

	e.perf.StartPhase(telemetry.PhaseIntegrate)
	e.integratePhase()

	e.perf.StartPhase(telemetry.PhaseRecord)
	e.recordPhase()

	e.perf.EndTick()
	e.tick++

	if e.collector.ShouldFlush(e.tick) {
		e.flushStats()
	}
}

// gather rebuilds the per-tick component pointer slices in slot order.
// The pointers stay valid for the whole tick because no phase changes the
// entity set.
func (e *Engine) gather() {
	e.kins = e.kins[:0]
	e.metas = e.metas[:0]
	for _, id := range e.order {
		entity := e.ids[id]
		e.kins = append(e.kins, e.kinMap.Get(entity))
		e.metas = append(e.metas, e.metaMap.Get(entity))
	}
}

// behaviorPhase zeroes accumulators, then lets each entity perceive the
// start-of-tick snapshot and adds its steering directly to acceleration.
// Steering is an intent, not a force; mass does not attenuate it.
func (e *Engine) behaviorPhase() {
	for _, kin := range e.kins {
		kin.Acc = vec.Vec2{}
	}

	for i, kin := range e.kins {
		e.neighbors = e.neighbors[:0]
		for j, other := range e.kins {
			if j == i {
				continue
			}
			e.neighbors = append(e.neighbors, cortex.Neighbor{
				ID:  e.metas[j].ID,
				Pos: other.Pos,
			})
		}

		steering := e.brain.Process(e.metas[i].ID, kin, e.neighbors, e.tick)
		kin.Acc = kin.Acc.Add(steering)
	}
}

// repulsionPhase applies the pairwise short-range repulsion, brute force
// over all pairs. Each pair is visited once and both bodies get equal and
// opposite forces.
func (e *Engine) repulsionPhase() {
	for i := 0; i < len(e.kins); i++ {
		for j := i + 1; j < len(e.kins); j++ {
			f := physics.Repulsion(e.repulsion, e.kins[i], e.kins[j])
			e.integrator.ApplyForce(e.kins[i], f)
			e.integrator.ApplyForce(e.kins[j], f.Neg())
		}
	}
}

// attractionPhase applies damped springs along connections. Connections
// whose endpoints are not both present are skipped, not removed; they come
// back to life if the entity returns in a later feed.
func (e *Engine) attractionPhase() {
	for key := range e.connections {
		ea, okA := e.ids[key.A]
		eb, okB := e.ids[key.B]
		if !okA || !okB {
			continue
		}
		a := e.kinMap.Get(ea)
		b := e.kinMap.Get(eb)
		f := physics.Spring(e.spring, a, b)
		e.integrator.ApplyForce(a, f)
		e.integrator.ApplyForce(b, f.Neg())
	}
}

// integratePhase adds center gravity, steps each body, and clamps it back
// inside the canvas. The fully accumulated acceleration is stashed into the
// frame sample here because Step resets it.
func (e *Engine) integratePhase() {
	dt := e.cfg.Physics.DT
	for i, kin := range e.kins {
		e.integrator.ApplyForce(kin, physics.Gravity(e.gravity, kin))
		e.samples[i].AX = kin.Acc.X
		e.samples[i].AY = kin.Acc.Y
		e.integrator.Step(kin, dt)
		e.clampToCanvas(kin)
	}
}

// clampToCanvas pins a body's center inside the canvas. A hard positional
// clamp, no velocity reflection: the damping pass bleeds off the energy of
// a wall hit within a few ticks.
func (e *Engine) clampToCanvas(k *components.Kinetic) {
	if k.Pos.X < 0 {
		k.Pos.X = 0
	} else if k.Pos.X > e.worldW {
		k.Pos.X = e.worldW
	}
	if k.Pos.Y < 0 {
		k.Pos.Y = 0
	} else if k.Pos.Y > e.worldH {
		k.Pos.Y = e.worldH
	}
}

// recordPhase captures the post-integration state into the frame history.
func (e *Engine) recordPhase() {
	for i, kin := range e.kins {
		e.samples[i].X = kin.Pos.X
		e.samples[i].Y = kin.Pos.Y
		e.samples[i].VX = kin.Vel.X
		e.samples[i].VY = kin.Vel.Y
	}
	e.history.RecordFrame(e.samples)
}

// flushStats snapshots population and kinetics at the window boundary and
// emits the window to the log and the output CSVs.
func (e *Engine) flushStats() {
	var stats telemetry.WindowStats
	stats.EntityCount = len(e.order)
	stats.ConnectionCount = len(e.connections)

	counts := e.brain.StateCounts()
	stats.Idle = counts[cortex.IdleDrift]
	stats.Hunting = counts[cortex.HuntingTarget]
	stats.Evading = counts[cortex.EvadingCrowd]
	stats.Orbiting = counts[cortex.OrbitalLock]
	stats.Wandering = counts[cortex.ErrantWander]

	speeds := make([]float64, 0, len(e.order))
	query := e.filter.Query()
	for query.Next() {
		kin, _ := query.Get()
		speeds = append(speeds, kin.Vel.Len())
		stats.TotalEnergy += physics.KineticEnergy(kin)
		if kin.Vel.LenSq() == 0 {
			stats.AtRest++
		}
	}
	stats.SpeedMean, stats.SpeedStd, stats.SpeedP10, stats.SpeedP50, stats.SpeedP90 =
		telemetry.ComputeSpeedStats(speeds)

	e.collector.Flush(e.tick, &stats)

	if e.logStats {
		slog.Info("window stats", "stats", stats)
		slog.Info("perf stats", "perf", e.perf.Stats())
	}
	if err := e.output.WriteTelemetry(stats); err != nil {
		slog.Error("telemetry write failed", "error", err)
	}
	if err := e.output.WritePerf(e.perf.Stats(), stats.WindowEndTick); err != nil {
		slog.Error("perf write failed", "error", err)
	}
}
