// Package timeline records per-tick kinetic frames into a fixed-capacity
// circular buffer and replays them for scrubbing.
//
// The backing store is a single flat float slice addressed by
// (frame*entityCount + entity)*Stride + field; recording never allocates
// and silently overwrites the oldest frame once the buffer is full.
package timeline

import (
	"fmt"

	"github.com/pthm-cable/tangle/vec"
)

// Stride is the number of floats recorded per entity per frame:
// x, y, vx, vy, ax, ay.
const Stride = 6

// Sample is one entity's kinetic record within a frame.
type Sample struct {
	X, Y   float64
	VX, VY float64
	AX, AY float64
}

// Meta describes the buffer for timeline UIs and diagnostics.
type Meta struct {
	MaxFrames      int
	EntityCount    int
	BytesAllocated int
	RecordedFrames int
	HeadIndex      int
	Recording      bool
}

// History is the fixed-capacity circular frame log.
type History struct {
	data        []float64
	maxFrames   int
	entityCount int

	head      int // next write slot
	recorded  int // min(frames written, maxFrames)
	recording bool
}

// NewHistory allocates a buffer for maxFrames frames of entityCount
// entities. Capacity is fixed for the life of the buffer.
func NewHistory(maxFrames, entityCount int) (*History, error) {
	if maxFrames < 1 {
		return nil, fmt.Errorf("timeline: maxFrames must be at least 1, got %d", maxFrames)
	}
	if entityCount < 0 {
		return nil, fmt.Errorf("timeline: entityCount must be non-negative, got %d", entityCount)
	}
	return &History{
		data:        make([]float64, maxFrames*entityCount*Stride),
		maxFrames:   maxFrames,
		entityCount: entityCount,
		recording:   true,
	}, nil
}

// RecordFrame writes one frame at the head slot and advances it. Frames
// beyond capacity overwrite the oldest data; that is expected ring
// behavior, not an error. Recording while paused is a no-op.
// samples beyond the buffer's entity count are ignored; missing entities
// record as zeros.
func (h *History) RecordFrame(samples []Sample) {
	if !h.recording || h.entityCount == 0 {
		return
	}

	base := h.head * h.entityCount * Stride
	for i := 0; i < h.entityCount; i++ {
		off := base + i*Stride
		var s Sample
		if i < len(samples) {
			s = samples[i]
		}
		h.data[off+0] = s.X
		h.data[off+1] = s.Y
		h.data[off+2] = s.VX
		h.data[off+3] = s.VY
		h.data[off+4] = s.AX
		h.data[off+5] = s.AY
	}

	h.head = (h.head + 1) % h.maxFrames
	if h.recorded < h.maxFrames {
		h.recorded++
	}
}

// ReplayFrame fills out with the frame framesBack ticks in the past.
// framesBack is clamped to [0, recorded-1]; 0 is the most recent frame.
// Acceleration fields are filled for inspection, but replay-restorable
// state is position and velocity only - acceleration is recomputed every
// tick. Returns the clamped offset, or -1 if nothing has been recorded.
func (h *History) ReplayFrame(framesBack int, out []Sample) int {
	if h.recorded == 0 || h.entityCount == 0 {
		return -1
	}
	if framesBack < 0 {
		framesBack = 0
	}
	if framesBack > h.recorded-1 {
		framesBack = h.recorded - 1
	}

	slot := ((h.head-1-framesBack)%h.maxFrames + h.maxFrames) % h.maxFrames
	base := slot * h.entityCount * Stride
	n := h.entityCount
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		off := base + i*Stride
		out[i] = Sample{
			X:  h.data[off+0],
			Y:  h.data[off+1],
			VX: h.data[off+2],
			VY: h.data[off+3],
			AX: h.data[off+4],
			AY: h.data[off+5],
		}
	}
	return framesBack
}

// Scrub maps a [0,1] timeline fraction to a backward frame offset:
// 0.0 is the most recent frame, 1.0 the oldest available.
func (h *History) Scrub(pct float64) int {
	if h.recorded == 0 {
		return 0
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	return int(pct*float64(h.recorded-1) + 0.5)
}

// Trail returns up to n historical positions for one entity, most recent
// first, for path visualization.
func (h *History) Trail(entityIndex, n int) []vec.Vec2 {
	if entityIndex < 0 || entityIndex >= h.entityCount || n < 1 {
		return nil
	}
	if n > h.recorded {
		n = h.recorded
	}
	trail := make([]vec.Vec2, 0, n)
	for i := 0; i < n; i++ {
		slot := ((h.head-1-i)%h.maxFrames + h.maxFrames) % h.maxFrames
		off := (slot*h.entityCount + entityIndex) * Stride
		trail = append(trail, vec.Vec2{X: h.data[off], Y: h.data[off+1]})
	}
	return trail
}

// Pause stops recording; frames offered while paused are dropped.
func (h *History) Pause() { h.recording = false }

// Resume restarts recording at the current head.
func (h *History) Resume() { h.recording = true }

// ToggleRecording flips the recording flag and returns the new value.
func (h *History) ToggleRecording() bool {
	h.recording = !h.recording
	return h.recording
}

// Clear zeroes the buffer and resets both cursors.
func (h *History) Clear() {
	for i := range h.data {
		h.data[i] = 0
	}
	h.head = 0
	h.recorded = 0
}

// RecordedFrames returns how many frames are currently replayable.
func (h *History) RecordedFrames() int { return h.recorded }

// EntityCount returns the per-frame entity capacity fixed at construction.
func (h *History) EntityCount() int { return h.entityCount }

// Meta returns buffer metadata for timeline UIs.
func (h *History) Meta() Meta {
	return Meta{
		MaxFrames:      h.maxFrames,
		EntityCount:    h.entityCount,
		BytesAllocated: len(h.data) * 8,
		RecordedFrames: h.recorded,
		HeadIndex:      h.head,
		Recording:      h.recording,
	}
}
