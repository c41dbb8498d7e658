package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated simulation statistics for one time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	EntityCount     int `csv:"entities"`
	ConnectionCount int `csv:"connections"`

	// Behavior state distribution at window end
	Idle      int `csv:"idle"`
	Hunting   int `csv:"hunting"`
	Evading   int `csv:"evading"`
	Orbiting  int `csv:"orbiting"`
	Wandering int `csv:"wandering"`

	// Events during the window
	Spawns      int `csv:"spawns"`
	Drops       int `csv:"drops"`
	Connects    int `csv:"connects"`
	Disconnects int `csv:"disconnects"`
	Scrubs      int `csv:"scrubs"`
	Repositions int `csv:"repositions"`

	// Kinetics sampled at window end
	SpeedMean   float64 `csv:"speed_mean"`
	SpeedStd    float64 `csv:"speed_std"`
	SpeedP10    float64 `csv:"speed_p10"`
	SpeedP50    float64 `csv:"speed_p50"`
	SpeedP90    float64 `csv:"speed_p90"`
	TotalEnergy float64 `csv:"total_energy"`
	AtRest      int     `csv:"at_rest"` // entities with exactly zero velocity
}

// ComputeSpeedStats calculates mean, stddev and percentiles of a speed
// sample. values is not modified.
func ComputeSpeedStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	if n > 1 {
		std = stat.StdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("entities", s.EntityCount),
		slog.Int("connections", s.ConnectionCount),
		slog.Int("idle", s.Idle),
		slog.Int("hunting", s.Hunting),
		slog.Int("evading", s.Evading),
		slog.Int("orbiting", s.Orbiting),
		slog.Int("wandering", s.Wandering),
		slog.Int("spawns", s.Spawns),
		slog.Int("drops", s.Drops),
		slog.Int("connects", s.Connects),
		slog.Int("disconnects", s.Disconnects),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("total_energy", s.TotalEnergy),
		slog.Int("at_rest", s.AtRest),
	)
}
