package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tangle/components"
	"github.com/pthm-cable/tangle/config"
	"github.com/pthm-cable/tangle/sim"
	"github.com/pthm-cable/tangle/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	entities := flag.Int("entities", 24, "Number of entities in the demo feed")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	engine, err := sim.NewEngine(cfg, sim.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
	})
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.SetEntities(demoFeed(*entities, rngSeed)); err != nil {
		slog.Error("failed to apply entity feed", "error", err)
		os.Exit(1)
	}

	if *headless {
		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"entities", *entities,
			"max_ticks", *maxTicks,
		)

		for {
			engine.Update()

			if *maxTicks > 0 && int(engine.TickCount()) >= *maxTicks {
				slog.Info("max ticks reached", "tick", engine.TickCount())
				return
			}
		}
	}

	// Graphical mode
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Tangle")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	viewer := ui.NewViewer(engine,
		float32(cfg.Screen.Width), float32(cfg.Screen.Height),
		float32(cfg.World.Width), float32(cfg.World.Height))

	for !rl.WindowShouldClose() {
		viewer.Update()
		viewer.Draw()

		if *maxTicks > 0 && int(engine.TickCount()) >= *maxTicks {
			break
		}
	}
}

// palette holds one spawn color per category, 0xRRGGBBAA.
var palette = [...]uint32{
	components.CategoryPrimary:   0x5AA9E6FF,
	components.CategorySecondary: 0x7FC8A9FF,
	components.CategoryTertiary:  0xE6A85AFF,
}

// demoFeed synthesizes a stand-in entity feed. In a full deployment the
// feed comes from an external source over the same SetEntities call.
func demoFeed(n int, seed int64) []sim.Descriptor {
	rng := rand.New(rand.NewSource(seed))
	feed := make([]sim.Descriptor, 0, n)
	for i := 0; i < n; i++ {
		category := components.Category(rng.Intn(3))
		feed = append(feed, sim.Descriptor{
			ID:       fmt.Sprintf("node-%02d", i),
			Seed:     rng.Float64(),
			Mass:     0.6 + rng.Float64()*1.8,
			Color:    palette[category],
			Category: category,
		})
	}
	return feed
}
