// Package telemetry aggregates simulation statistics over time windows and
// tracks per-phase tick timing.
package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	windowStartTick int64

	// Event counters for the current window
	spawns      int
	drops       int
	connects    int
	disconnects int
	scrubs      int
	repositions int
}

// NewCollector creates a stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
// dt: simulated seconds per tick.
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordSpawn records an entity entering the simulation.
func (c *Collector) RecordSpawn() { c.spawns++ }

// RecordDrop records an entity leaving the simulation.
func (c *Collector) RecordDrop() { c.drops++ }

// RecordConnect records a new connection.
func (c *Collector) RecordConnect() { c.connects++ }

// RecordDisconnect records a removed connection.
func (c *Collector) RecordDisconnect() { c.disconnects++ }

// RecordScrub records a timeline scrub command.
func (c *Collector) RecordScrub() { c.scrubs++ }

// RecordReposition records a direct entity reposition.
func (c *Collector) RecordReposition() { c.repositions++ }

// ShouldFlush returns true once the current window has elapsed.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush folds the window's event counters into stats, resets them, and
// starts the next window. Population and kinetic fields of stats are the
// caller's snapshot at window end; Flush fills the rest.
func (c *Collector) Flush(currentTick int64, stats *WindowStats) {
	stats.WindowStartTick = c.windowStartTick
	stats.WindowEndTick = currentTick
	stats.SimTimeSec = float64(currentTick) * c.dt
	stats.Spawns = c.spawns
	stats.Drops = c.drops
	stats.Connects = c.connects
	stats.Disconnects = c.disconnects
	stats.Scrubs = c.scrubs
	stats.Repositions = c.repositions

	c.spawns = 0
	c.drops = 0
	c.connects = 0
	c.disconnects = 0
	c.scrubs = 0
	c.repositions = 0
	c.windowStartTick = currentTick
}
