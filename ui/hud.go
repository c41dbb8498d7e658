package ui

import (
	"fmt"

	"github.com/pthm-cable/tangle/sim"
)

// HUD renders the top-left status panel.
type HUD struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewHUD creates the status panel.
func NewHUD(r *Renderer) *HUD {
	return &HUD{renderer: r, x: 10, y: 10, width: 230}
}

// Draw renders the panel. selected may be empty.
func (h *HUD) Draw(engine *sim.Engine, selected string) {
	r := h.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	lines := int32(6)
	if selected != "" {
		lines += 5
	}
	r.DrawPanel(h.x, h.y, h.width, lines*lineHeight+padding*2)

	x := h.x + padding
	y := h.y + padding

	y = r.DrawSectionHeader(x, y, "Tangle")

	status := "running"
	if engine.Paused() {
		status = "paused"
	}
	y = r.DrawLabelValue(x, y, "Status", status)
	y = r.DrawLabelValue(x, y, "Tick", fmt.Sprintf("%d", engine.TickCount()))
	y = r.DrawLabelValue(x, y, "Entities", fmt.Sprintf("%d", engine.EntityCount()))
	y = r.DrawLabelValue(x, y, "Connections", fmt.Sprintf("%d", len(engine.Connections())))

	meta := engine.TimelineMeta()
	rec := fmt.Sprintf("%d/%d", meta.RecordedFrames, meta.MaxFrames)
	if !meta.Recording {
		rec += " (off)"
	}
	y = r.DrawLabelValue(x, y, "Frames", rec)

	if selected == "" {
		return
	}

	y = r.DrawSectionHeader(x, y+4, "Selected")
	y = r.DrawLabelValue(x, y, "ID", selected)
	y = r.DrawLabelValue(x, y, "State", engine.StateOf(selected).String())

	for _, view := range engine.Snapshot() {
		if view.ID != selected {
			continue
		}
		y = r.DrawLabelValue(x, y, "Position",
			fmt.Sprintf("%.0f, %.0f", view.Pos.X, view.Pos.Y))
		r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%.2f", view.Vel.Len()))
		break
	}
}
