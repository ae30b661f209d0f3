package simulation

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tochemey/goakt/v3/log"
	"golang.org/x/sync/errgroup"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/spatial"
)

// Engine advances a fixed boid population one tick at a time, keeping the
// spatial index consistent with the boids' positions.
// An Engine is not safe for concurrent use; the WorldActor owns it.
type Engine struct {
	cfg      Config
	settings behavior.Settings
	policy   Consistency

	boids []*behavior.Boid
	index spatial.Index[*behavior.Boid]
	tree  *spatial.Quadtree[*behavior.Boid] // set when index is a quadtree

	logger      log.Logger
	clock       func() time.Time
	lastRebuild time.Time
	rebuilds    int
	ticks       uint64

	// per worker neighbor buffers, reused across ticks
	scratch []scratch
}

type scratch struct {
	candidates []*behavior.Boid
	neighbors  []*behavior.Boid
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger, log.DiscardLogger by default.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the time source used by Tick.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithBoids replaces the random population with the given boids.
// Config.NumBoids is ignored.
func WithBoids(boids []*behavior.Boid) Option {
	return func(e *Engine) { e.boids = boids }
}

// NewEngine validates cfg, spawns the population and indexes it.
func NewEngine(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      *cfg,
		settings: cfg.Settings(),
		policy:   cfg.EffectiveConsistency(),
		logger:   log.DiscardLogger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.boids == nil {
		e.boids = spawn(cfg)
	}

	switch cfg.Index {
	case IndexGrid:
		grid, err := spatial.NewGrid[*behavior.Boid](cfg.WorldWidth, cfg.CellSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		e.index = grid
	case IndexQuadtree:
		tree, err := spatial.NewQuadtree[*behavior.Boid](cfg.World(), cfg.NodeCapacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		e.index, e.tree = tree, tree
	}
	if err := e.index.Rebuild(e.boids); err != nil {
		return nil, fmt.Errorf("indexing initial population: %w", err)
	}
	e.lastRebuild = e.clock()

	workers := 1
	if e.policy == Snapshot {
		workers = cfg.Workers
	}
	e.scratch = make([]scratch, workers)

	e.logger.Infof("flock engine ready: %d boids, %s index, %s consistency, %d worker(s)",
		len(e.boids), cfg.Index, e.policy, workers)
	return e, nil
}

func spawn(cfg *Config) []*behavior.Boid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	world := cfg.World()
	boids := make([]*behavior.Boid, cfg.NumBoids)
	for i := range boids {
		boids[i] = behavior.NewRandom(i, rng, world, cfg.SightRadius, PaletteSize)
	}
	return boids
}

// Tick advances the simulation by one frame using the engine clock.
func (e *Engine) Tick() {
	e.Step(e.clock())
}

// Step advances the simulation by one frame. now is only used to throttle
// quadtree rebuilds.
func (e *Engine) Step(now time.Time) {
	e.ticks++
	e.maybeRebuild(now)

	switch e.policy {
	case MutateInPlace:
		sc := &e.scratch[0]
		for _, b := range e.boids {
			e.steer(b, sc)
			b.Integrate(e.settings.MaxSpeed)
			e.reindex(b)
		}
	case Snapshot:
		e.steerAll()
		for _, b := range e.boids {
			b.Integrate(e.settings.MaxSpeed)
		}
		for _, b := range e.boids {
			e.reindex(b)
		}
	}
}

// maybeRebuild refreshes a stale quadtree once the rebuild interval elapsed.
func (e *Engine) maybeRebuild(now time.Time) {
	if e.tree == nil || !e.tree.Stale() {
		return
	}
	if now.Sub(e.lastRebuild) < e.cfg.RebuildInterval() {
		return
	}
	if err := e.tree.Rebuild(e.boids); err != nil {
		e.violation(err)
		return
	}
	e.lastRebuild = now
	e.rebuilds++
	e.logger.Debugf("quadtree rebuilt: depth %d, %d boids", e.tree.Depth(), e.tree.Len())
}

// steerAll accumulates the forces of every boid against the frozen index.
// Boids are only read here, so the work is split across workers.
func (e *Engine) steerAll() {
	workers := len(e.scratch)
	if workers <= 1 || len(e.boids) < workers {
		for _, b := range e.boids {
			e.steer(b, &e.scratch[0])
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (len(e.boids) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= len(e.boids) {
			break
		}
		hi := min(lo+chunk, len(e.boids))
		sc := &e.scratch[w]
		part := e.boids[lo:hi]
		g.Go(func() error {
			for _, b := range part {
				e.steer(b, sc)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// steer adds the flocking and containment forces to b's acceleration.
// It writes nothing but b.Acc.
func (e *Engine) steer(b *behavior.Boid, sc *scratch) {
	sc.candidates = e.index.Query(b.SightRegion(), sc.candidates[:0])
	sc.neighbors = behavior.SelectNeighbors(b, sc.candidates, e.settings.MaxFlockSize, sc.neighbors[:0])
	b.ApplyForce(behavior.Steer(b, sc.neighbors, e.settings))
	b.ApplyForce(behavior.Containment(b.Pos, e.settings.World, e.settings.EdgeMargin, e.settings.TurnFactor))
}

func (e *Engine) reindex(b *behavior.Boid) {
	if err := e.index.Update(b); err != nil {
		e.violation(fmt.Errorf("boid %d: %w", b.ID, err))
	}
}

// violation fails fast in strict mode and logs otherwise.
func (e *Engine) violation(err error) {
	if e.cfg.StrictIndex {
		panic(err)
	}
	e.logger.Errorf("spatial index: %v", err)
}

// Boids returns the live population. Callers must not mutate it.
func (e *Engine) Boids() []*behavior.Boid { return e.boids }

// Index returns the active spatial index.
func (e *Engine) Index() spatial.Index[*behavior.Boid] { return e.index }

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Consistency returns the policy in effect.
func (e *Engine) Consistency() Consistency { return e.policy }

// Ticks returns the number of steps taken.
func (e *Engine) Ticks() uint64 { return e.ticks }

// Rebuilds returns the number of throttled quadtree rebuilds so far.
func (e *Engine) Rebuilds() int { return e.rebuilds }
