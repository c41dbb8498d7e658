// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Repulsion RepulsionConfig `yaml:"repulsion"`
	Spring    SpringConfig    `yaml:"spring"`
	Gravity   GravityConfig   `yaml:"gravity"`
	Cortex    CortexConfig    `yaml:"cortex"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds simulation canvas dimensions.
// Zero values default to the screen size.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PhysicsConfig holds integrator parameters.
type PhysicsConfig struct {
	DT       float64 `yaml:"dt"`        // nominal time step per tick
	Scheme   string  `yaml:"scheme"`    // euler, semi-implicit, verlet
	MaxSpeed float64 `yaml:"max_speed"` // velocity magnitude ceiling
	MinSpeed float64 `yaml:"min_speed"` // rest threshold; slower snaps to zero
	Bounce   float64 `yaml:"bounce"`    // velocity retained on wall bounce
	Damping  float64 `yaml:"damping"`   // default per-entity velocity decay
}

// RepulsionConfig holds pairwise repulsion parameters.
type RepulsionConfig struct {
	K           float64 `yaml:"k"`
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
	Softening   float64 `yaml:"softening"`
}

// SpringConfig holds connection spring parameters.
type SpringConfig struct {
	K          float64 `yaml:"k"`
	RestLength float64 `yaml:"rest_length"`
	Damping    float64 `yaml:"damping"`
}

// GravityConfig holds center-pull parameters.
type GravityConfig struct {
	G float64 `yaml:"g"`
}

// CortexConfig holds behavior engine parameters.
type CortexConfig struct {
	SensorRadius     float64 `yaml:"sensor_radius"`     // crowd density perception range
	SeparationRadius float64 `yaml:"separation_radius"` // evade behavior range
	SeparationWeight float64 `yaml:"separation_weight"`
	CrowdThreshold   float64 `yaml:"crowd_threshold"` // density above this triggers evasion
	CalmThreshold    float64 `yaml:"calm_threshold"`  // density below this ends evasion
	AnxietyDecay     float64 `yaml:"anxiety_decay"`
	AnxietyGain      float64 `yaml:"anxiety_gain"`
	DecisionInterval int     `yaml:"decision_interval"` // ticks between transition evaluations
	WanderChance     float64 `yaml:"wander_chance"`     // idle -> wander probability per decision
	ReturnChance     float64 `yaml:"return_chance"`     // wander -> idle probability per decision
	WanderJitter     float64 `yaml:"wander_jitter"`     // per-tick wander angle perturbation
	DriftStrength    float64 `yaml:"drift_strength"`
	WanderStrength   float64 `yaml:"wander_strength"`
	PursuitStrength  float64 `yaml:"pursuit_strength"`
	OrbitStrength    float64 `yaml:"orbit_strength"`
	OrbitRadius      float64 `yaml:"orbit_radius"`
	MemorySize       int     `yaml:"memory_size"` // position history samples kept
}

// TimelineConfig holds history buffer parameters.
type TimelineConfig struct {
	MaxFrames int `yaml:"max_frames"`
}

// SpawnConfig holds entity spawn placement parameters.
type SpawnConfig struct {
	Radius     float64 `yaml:"radius"` // max distance from canvas center
	Mass       float64 `yaml:"mass"`   // default mass when the feed omits it
	BodyRadius float64 `yaml:"body_radius"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated
// before it is returned; a bad value fails here, not in the tick loop.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills values derived from other settings.
func (c *Config) applyDefaults() {
	if c.World.Width == 0 {
		c.World.Width = c.Screen.Width
	}
	if c.World.Height == 0 {
		c.World.Height = c.Screen.Height
	}
}

// Validate rejects out-of-range values with a descriptive error.
func (c *Config) Validate() error {
	if c.Physics.DT <= 0 {
		return fmt.Errorf("config: physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.Physics.Damping < 0 || c.Physics.Damping > 1 {
		return fmt.Errorf("config: physics.damping must be in [0,1], got %v", c.Physics.Damping)
	}
	if c.Physics.Bounce < 0 || c.Physics.Bounce > 1 {
		return fmt.Errorf("config: physics.bounce must be in [0,1], got %v", c.Physics.Bounce)
	}
	if c.Physics.MaxSpeed <= 0 {
		return fmt.Errorf("config: physics.max_speed must be positive, got %v", c.Physics.MaxSpeed)
	}
	if c.Repulsion.MinDistance < 0 || c.Repulsion.MaxDistance < c.Repulsion.MinDistance {
		return fmt.Errorf("config: repulsion distance range [%v, %v] is invalid",
			c.Repulsion.MinDistance, c.Repulsion.MaxDistance)
	}
	if c.Spring.RestLength < 0 {
		return fmt.Errorf("config: spring.rest_length must be non-negative, got %v", c.Spring.RestLength)
	}
	if c.Cortex.DecisionInterval < 1 {
		return fmt.Errorf("config: cortex.decision_interval must be at least 1, got %d", c.Cortex.DecisionInterval)
	}
	if c.Cortex.MemorySize < 1 {
		return fmt.Errorf("config: cortex.memory_size must be at least 1, got %d", c.Cortex.MemorySize)
	}
	if c.Timeline.MaxFrames < 1 {
		return fmt.Errorf("config: timeline.max_frames must be at least 1, got %d", c.Timeline.MaxFrames)
	}
	if c.Spawn.Mass <= 0 {
		return fmt.Errorf("config: spawn.mass must be positive, got %v", c.Spawn.Mass)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
