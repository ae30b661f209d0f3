package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// WorldActor owns the Engine and advances it on every tick message. It is
// the only goroutine touching the boids; the UI sees detached snapshots.
type WorldActor struct {
	engine     *Engine
	snapshotCh chan<- *WorldSnapshot

	// --- Benchmark Stats ---
	tickCount   int
	stepTime    time.Duration
	lastLogTime time.Time
}

var _ actor.Actor = (*WorldActor)(nil)

// NewWorldActor creates the world logic unit
func NewWorldActor(engine *Engine, snapshotCh chan<- *WorldSnapshot) *WorldActor {
	return &WorldActor{
		engine:      engine,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (w *WorldActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World is ready with %d boids", len(w.engine.Boids()))
	return nil
}

func (w *WorldActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("%s started", ctx.Self().Name())
		w.lastLogTime = time.Now()
		w.pushSnapshot()

	// The frame clock, sent by the render loop once per frame
	case *timestamppb.Timestamp:
		start := time.Now()
		w.engine.Step(msg.AsTime())
		w.stepTime += time.Since(start)
		w.tickCount++

		w.logBenchmarks(ctx)
		w.pushSnapshot()

	default:
		ctx.Unhandled()
	}
}

func (w *WorldActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(w.lastLogTime) < time.Second {
		return
	}
	var avg time.Duration
	if w.tickCount > 0 {
		avg = w.stepTime / time.Duration(w.tickCount)
	}
	ctx.Logger().Infof("TICK RATE: %d/sec | avg step %v | Boids: %d | Index: %s (%d regions)",
		w.tickCount, avg, len(w.engine.Boids()), w.engine.Config().Index, len(w.engine.Index().Regions()))
	w.tickCount = 0
	w.stepTime = 0
	w.lastLogTime = time.Now()
}

func (w *WorldActor) pushSnapshot() {
	if w.snapshotCh == nil {
		return
	}
	select {
	case w.snapshotCh <- w.engine.Snapshot():
	default:
		// UI busy, skip frame
	}
}

func (w *WorldActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Info("World is shutdown...")
	return nil
}

// Loop runs a WorldActor inside its own actor system.
type Loop struct {
	System    actor.ActorSystem
	PID       *actor.PID
	Snapshots <-chan *WorldSnapshot
}

// StartLoop starts an actor system hosting engine. Snapshots are buffered;
// when the consumer lags, frames are dropped rather than blocking the world.
func StartLoop(ctx context.Context, engine *Engine, logger log.Logger) (*Loop, error) {
	system, err := actor.NewActorSystem("FlockWorld", actor.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting actor system: %w", err)
	}

	snapshots := make(chan *WorldSnapshot, 10)
	pid, err := system.Spawn(ctx, "World", NewWorldActor(engine, snapshots))
	if err != nil {
		_ = system.Stop(ctx)
		return nil, fmt.Errorf("spawning world: %w", err)
	}
	return &Loop{System: system, PID: pid, Snapshots: snapshots}, nil
}

// Tick asks the world to advance one frame stamped now.
func (l *Loop) Tick(ctx context.Context, now time.Time) error {
	return actor.Tell(ctx, l.PID, timestamppb.New(now))
}

// Stop shuts the actor system down.
func (l *Loop) Stop(ctx context.Context) error {
	return l.System.Stop(ctx)
}
