package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tangle/sim"
)

const timelineHeight = 48

// TimelineBar renders the bottom scrub bar. Dragging the slider pauses the
// engine and rewinds the live state; slider position 0 is the newest frame,
// 1 the oldest retained one.
type TimelineBar struct {
	renderer *Renderer
	y        float32
	scrubPct float32
}

// NewTimelineBar creates the bar anchored to the bottom of the screen.
func NewTimelineBar(r *Renderer, screenH float32) *TimelineBar {
	return &TimelineBar{renderer: r, y: screenH - timelineHeight}
}

// Resize re-anchors the bar after a window resize.
func (t *TimelineBar) Resize(screenH float32) {
	t.y = screenH - timelineHeight
}

// MouseOver reports whether the cursor is over the bar, so world input can
// ignore clicks meant for the widgets.
func (t *TimelineBar) MouseOver() bool {
	return rl.GetMousePosition().Y >= t.y
}

// Update applies slider movement to the engine. Called before the engine
// tick so a scrubbed pose is not immediately advanced over.
func (t *TimelineBar) Update(engine *sim.Engine) {
	if !engine.Paused() {
		// While running, the playhead sits at the newest frame.
		t.scrubPct = 0
	}
}

// Draw renders the widgets and issues engine commands for interactions.
func (t *TimelineBar) Draw(engine *sim.Engine) {
	screenW := float32(rl.GetScreenWidth())
	t.renderer.DrawPanel(0, int32(t.y), int32(screenW), timelineHeight)

	y := t.y + 14

	label := "Pause"
	if engine.Paused() {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: 10, Y: y, Width: 70, Height: 22}, label) {
		if engine.Paused() {
			engine.Resume()
		} else {
			engine.Pause()
		}
	}

	recLabel := "Rec on"
	if !engine.TimelineMeta().Recording {
		recLabel = "Rec off"
	}
	if gui.Button(rl.Rectangle{X: 90, Y: y, Width: 70, Height: 22}, recLabel) {
		engine.ToggleRecording()
	}

	newPct := gui.SliderBar(
		rl.Rectangle{X: 220, Y: y, Width: screenW - 280, Height: 22},
		"now", "past",
		t.scrubPct, 0, 1,
	)
	if newPct != t.scrubPct {
		t.scrubPct = newPct
		engine.Pause()
		engine.Scrub(float64(newPct))
	}
}
