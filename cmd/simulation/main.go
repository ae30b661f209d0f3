package main

import (
	"flag"
	"os"
	"time"

	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/simulation"
)

// run steps a fresh engine ticks times as fast as possible, logging the
// tick rate once per second.
func run(cfg *simulation.Config, ticks int, logger golog.Logger) error {
	engine, err := simulation.NewEngine(cfg, simulation.WithLogger(logger))
	if err != nil {
		return err
	}

	start := time.Now()
	lastLog, lastTicks := start, 0
	// Simulated frame clock, so rebuild throttling behaves as at cfg.FPS.
	now := start
	for i := 1; i <= ticks; i++ {
		now = now.Add(cfg.TickInterval())
		engine.Step(now)
		if since := time.Since(lastLog); since >= time.Second {
			logger.Infof("[%s] %.0f ticks/sec", cfg.Index, float64(i-lastTicks)/since.Seconds())
			lastLog, lastTicks = time.Now(), i
		}
	}
	elapsed := time.Since(start)
	logger.Infof("[%s/%s] %d boids, %d ticks in %v (%v per tick), %d rebuilds, %d regions",
		cfg.Index, engine.Consistency(), len(engine.Boids()), ticks, elapsed,
		elapsed/time.Duration(ticks), engine.Rebuilds(), len(engine.Index().Regions()))
	return nil
}

func main() {
	configFile := flag.String("config", "", "path to a .json or .toml configuration file")
	index := flag.String("index", "", "spatial index override: grid or quadtree")
	ticks := flag.Int("ticks", 1000, "number of ticks to simulate")
	compare := flag.Bool("compare", false, "run the same population on both indexes")
	flag.Parse()

	logger := golog.New(golog.InfoLevel, os.Stdout)

	cfg, err := simulation.LoadOrDefault(*configFile)
	if err != nil {
		logger.Fatalf("loading configuration: %v", err)
	}
	if *ticks <= 0 {
		logger.Fatalf("ticks must be positive, got %d", *ticks)
	}
	if *index != "" {
		cfg.UseIndex(simulation.IndexKind(*index))
	}

	kinds := []simulation.IndexKind{cfg.Index}
	if *compare {
		kinds = []simulation.IndexKind{simulation.IndexGrid, simulation.IndexQuadtree}
		if cfg.Seed == 0 {
			cfg.Seed = uint64(time.Now().UnixNano())
		}
	}
	for _, kind := range kinds {
		c := *cfg
		c.UseIndex(kind)
		if err := run(&c, *ticks, logger); err != nil {
			logger.Fatalf("%s: %v", kind, err)
		}
	}
}
