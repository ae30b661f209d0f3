package main

import (
	"context"
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/render"
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/simulation"
)

func main() {
	configFile := flag.String("config", "", "path to a .json or .toml configuration file")
	index := flag.String("index", "", "spatial index override: grid or quadtree")
	regions := flag.Bool("regions", false, "show the index regions at start")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	level := golog.InfoLevel
	if *debug {
		level = golog.DebugLevel
	}
	logger := golog.New(level, os.Stdout)

	cfg, err := simulation.LoadOrDefault(*configFile)
	if err != nil {
		logger.Fatalf("loading configuration: %v", err)
	}
	if *index != "" {
		cfg.UseIndex(simulation.IndexKind(*index))
	}

	engine, err := simulation.NewEngine(cfg, simulation.WithLogger(logger))
	if err != nil {
		logger.Fatalf("creating engine: %v", err)
	}

	ctx := context.Background()
	loop, err := simulation.StartLoop(ctx, engine, logger)
	if err != nil {
		logger.Fatalf("starting world: %v", err)
	}
	defer loop.Stop(ctx)

	ebiten.SetWindowSize(int(cfg.WorldWidth), int(cfg.WorldHeight))
	ebiten.SetWindowTitle("Boids (" + string(cfg.Index) + ")")
	ebiten.SetTPS(cfg.FPS)

	if err := ebiten.RunGame(render.NewGame(ctx, loop, cfg, *regions)); err != nil {
		logger.Errorf("game stopped: %v", err)
	}
}
