package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/tangle/cortex"
	"github.com/pthm-cable/tangle/timeline"
	"github.com/pthm-cable/tangle/vec"
)

// HitTest returns the identity of the entity under the given point, if any.
// When bodies overlap the one whose center is closest wins.
func (e *Engine) HitTest(p vec.Vec2) (string, bool) {
	bestID := ""
	bestDistSq := 0.0
	for _, id := range e.order {
		kin := e.kinMap.Get(e.ids[id])
		dSq := kin.Pos.DistSq(p)
		if dSq > kin.Radius*kin.Radius {
			continue
		}
		if bestID == "" || dSq < bestDistSq {
			bestID = id
			bestDistSq = dSq
		}
	}
	return bestID, bestID != ""
}

// Reposition teleports an entity and zeroes its velocity so it does not
// carry pre-drag momentum out of the drop point.
func (e *Engine) Reposition(id string, p vec.Vec2) error {
	entity, ok := e.ids[id]
	if !ok {
		return fmt.Errorf("sim: unknown entity %q", id)
	}
	kin := e.kinMap.Get(entity)
	kin.Pos = p
	kin.Vel = vec.Vec2{}
	e.collector.RecordReposition()
	return nil
}

// Distance returns the center distance between two entities.
func (e *Engine) Distance(a, b string) (float64, error) {
	ea, ok := e.ids[a]
	if !ok {
		return 0, fmt.Errorf("sim: unknown entity %q", a)
	}
	eb, ok := e.ids[b]
	if !ok {
		return 0, fmt.Errorf("sim: unknown entity %q", b)
	}
	return e.kinMap.Get(ea).Pos.Dist(e.kinMap.Get(eb).Pos), nil
}

// SetTarget orders an entity to pursue another. Takes effect immediately,
// without waiting for the next decision window.
func (e *Engine) SetTarget(id, targetID string) error {
	if _, ok := e.ids[id]; !ok {
		return fmt.Errorf("sim: unknown entity %q", id)
	}
	if _, ok := e.ids[targetID]; !ok {
		return fmt.Errorf("sim: unknown target %q", targetID)
	}
	e.brain.SetTarget(id, targetID)
	return nil
}

// SetOrbit orders an entity to circle another.
func (e *Engine) SetOrbit(id, targetID string) error {
	if _, ok := e.ids[id]; !ok {
		return fmt.Errorf("sim: unknown entity %q", id)
	}
	if _, ok := e.ids[targetID]; !ok {
		return fmt.Errorf("sim: unknown target %q", targetID)
	}
	e.brain.SetOrbit(id, targetID)
	return nil
}

// ClearTarget drops an entity's pursuit or orbit order.
func (e *Engine) ClearTarget(id string) error {
	if _, ok := e.ids[id]; !ok {
		return fmt.Errorf("sim: unknown entity %q", id)
	}
	e.brain.ClearTarget(id)
	return nil
}

// StateOf returns an entity's current behavior state, for HUD display.
func (e *Engine) StateOf(id string) cortex.State {
	return e.brain.StateOf(id)
}

// Scrub rewinds the live state to a recorded frame. pct 0 is the newest
// frame, 1 the oldest retained one. Positions and velocities are restored;
// behavior state and accumulated forces stay live, so resuming from the
// restored pose diverges from the original run. Returns the frame offset
// actually applied, -1 if the history is empty.
func (e *Engine) Scrub(pct float64) int {
	framesBack := e.history.Scrub(pct)
	offset := e.history.ReplayFrame(framesBack, e.samples)
	if offset < 0 {
		return -1
	}
	for i, id := range e.order {
		kin := e.kinMap.Get(e.ids[id])
		kin.Pos = vec.Vec2{X: e.samples[i].X, Y: e.samples[i].Y}
		kin.Vel = vec.Vec2{X: e.samples[i].VX, Y: e.samples[i].VY}
	}
	e.collector.RecordScrub()
	slog.Debug("scrubbed", "frames_back", offset)
	return offset
}

// Trail returns an entity's recent recorded positions, most recent first.
func (e *Engine) Trail(id string, n int) []vec.Vec2 {
	for i, oid := range e.order {
		if oid == id {
			return e.history.Trail(i, n)
		}
	}
	return nil
}

// TimelineMeta exposes the history buffer's bookkeeping for HUD display.
func (e *Engine) TimelineMeta() timeline.Meta {
	return e.history.Meta()
}

// PauseRecording stops frame capture without stopping the simulation.
func (e *Engine) PauseRecording() { e.history.Pause() }

// ResumeRecording restarts frame capture.
func (e *Engine) ResumeRecording() { e.history.Resume() }

// ToggleRecording flips frame capture and reports the new state.
func (e *Engine) ToggleRecording() bool { return e.history.ToggleRecording() }
