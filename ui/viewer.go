package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tangle/camera"
	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/sim"
	"github.com/pthm-cable/tangle/vec"
)

// Viewer owns the interactive front end: camera, selection, drag state and
// the HUD panels. It drives the engine through its public mutators only.
type Viewer struct {
	engine   *sim.Engine
	cam      *camera.Camera
	renderer *Renderer
	hud      *HUD
	timeline *TimelineBar

	selected   string
	dragging   string
	showTrails bool
	trailLen   int
}

// NewViewer creates a viewer for the given engine.
func NewViewer(engine *sim.Engine, screenW, screenH, worldW, worldH float32) *Viewer {
	r := NewRenderer()
	return &Viewer{
		engine:     engine,
		cam:        camera.New(screenW, screenH, worldW, worldH),
		renderer:   r,
		hud:        NewHUD(r),
		timeline:   NewTimelineBar(r, screenH),
		showTrails: true,
		trailLen:   40,
	}
}

// Update processes one frame of input and advances the engine.
func (v *Viewer) Update() {
	v.handleResize()
	v.handleKeys()
	v.handleCamera()
	v.handleMouse()
	v.timeline.Update(v.engine)

	v.engine.Update()
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	v.cam.Resize(w, h)
	v.timeline.Resize(h)
}

func (v *Viewer) handleKeys() {
	if rl.IsKeyPressed(rl.KeySpace) {
		if v.engine.Paused() {
			v.engine.Resume()
		} else {
			v.engine.Pause()
		}
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.engine.ToggleRecording()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.showTrails = !v.showTrails
	}

	// Behavior commands act on the selected entity and the hovered one.
	if v.selected == "" {
		return
	}
	hovered, hoveredOK := v.hitTestMouse()

	if rl.IsKeyPressed(rl.KeyT) && hoveredOK && hovered != v.selected {
		v.engine.SetTarget(v.selected, hovered)
	}
	if rl.IsKeyPressed(rl.KeyO) && hoveredOK && hovered != v.selected {
		v.engine.SetOrbit(v.selected, hovered)
	}
	if rl.IsKeyPressed(rl.KeyC) {
		v.engine.ClearTarget(v.selected)
	}
}

func (v *Viewer) handleCamera() {
	panSpeed := float32(8.0) / v.cam.Zoom
	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(1.0 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}
}

func (v *Viewer) handleMouse() {
	if v.timeline.MouseOver() {
		return
	}

	// Left button: select and drag.
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		if id, ok := v.hitTestMouse(); ok {
			v.selected = id
			v.dragging = id
		} else {
			v.selected = ""
		}
	}
	if v.dragging != "" {
		if rl.IsMouseButtonDown(rl.MouseLeftButton) {
			v.engine.Reposition(v.dragging, v.mouseWorld())
		} else {
			v.dragging = ""
		}
	}

	// Right button on another entity toggles the connection to it.
	if rl.IsMouseButtonPressed(rl.MouseRightButton) && v.selected != "" {
		if id, ok := v.hitTestMouse(); ok && id != v.selected {
			if v.isConnected(v.selected, id) {
				v.engine.Disconnect(v.selected, id)
			} else {
				v.engine.Connect(v.selected, id)
			}
		}
	}
}

func (v *Viewer) isConnected(a, b string) bool {
	if b < a {
		a, b = b, a
	}
	for _, conn := range v.engine.Connections() {
		if conn.A == a && conn.B == b {
			return true
		}
	}
	return false
}

func (v *Viewer) mouseWorld() vec.Vec2 {
	m := rl.GetMousePosition()
	wx, wy := v.cam.ScreenToWorld(m.X, m.Y)
	return vec.Vec2{X: float64(wx), Y: float64(wy)}
}

func (v *Viewer) hitTestMouse() (string, bool) {
	return v.engine.HitTest(v.mouseWorld())
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 14, B: 18, A: 255})

	views := v.engine.Snapshot()

	v.drawConnections(views)
	if v.showTrails {
		v.drawTrails(views)
	}
	for i := range views {
		v.drawEntity(&views[i])
	}

	v.hud.Draw(v.engine, v.selected)
	v.timeline.Draw(v.engine)

	rl.EndDrawing()
	v.engine.MarkFrame()
}

func (v *Viewer) drawConnections(views []sim.EntityView) {
	pos := make(map[string]vec.Vec2, len(views))
	for i := range views {
		pos[views[i].ID] = views[i].Pos
	}
	for _, conn := range v.engine.Connections() {
		pa, okA := pos[conn.A]
		pb, okB := pos[conn.B]
		if !okA || !okB {
			continue
		}
		ax, ay := v.cam.WorldToScreen(float32(pa.X), float32(pa.Y))
		bx, by := v.cam.WorldToScreen(float32(pb.X), float32(pb.Y))
		rl.DrawLineEx(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by},
			1.5, v.renderer.Theme.LineColor)
	}
}

func (v *Viewer) drawTrails(views []sim.EntityView) {
	for i := range views {
		trail := v.engine.Trail(views[i].ID, v.trailLen)
		for j := 1; j < len(trail); j++ {
			ax, ay := v.cam.WorldToScreen(float32(trail[j-1].X), float32(trail[j-1].Y))
			bx, by := v.cam.WorldToScreen(float32(trail[j].X), float32(trail[j].Y))
			rl.DrawLineV(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by},
				v.renderer.Theme.TrailColor)
		}
	}
}

func (v *Viewer) drawEntity(view *sim.EntityView) {
	wx, wy := float32(view.Pos.X), float32(view.Pos.Y)
	radius := float32(view.Radius)
	if !v.cam.IsVisible(wx, wy, radius) {
		return
	}

	sx, sy := v.cam.WorldToScreen(wx, wy)
	r := radius * v.cam.Zoom
	body := colorFromRGBA(view.Color)

	switch view.Category {
	case components.CategoryPrimary:
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, r, body)
	case components.CategorySecondary:
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, r, body)
		rl.DrawCircleLines(int32(sx), int32(sy), r+2, body)
	case components.CategoryTertiary:
		rl.DrawCircleLines(int32(sx), int32(sy), r, body)
	}

	if view.ID == v.selected {
		rl.DrawCircleLines(int32(sx), int32(sy), r+4, v.renderer.Theme.SelectionRing)
	}
}

// colorFromRGBA unpacks the feed's 0xRRGGBBAA color into a raylib color.
func colorFromRGBA(c uint32) rl.Color {
	return rl.Color{
		R: uint8(c >> 24),
		G: uint8(c >> 16),
		B: uint8(c >> 8),
		A: uint8(c),
	}
}
