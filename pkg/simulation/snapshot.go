package simulation

import (
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

// BoidState is the read-only view of a boid handed to renderers.
type BoidState struct {
	ID          int
	Pos         geometry.Vector2D
	Vel         geometry.Vector2D
	Orientation float64
	Color       int
}

// StateOf copies the renderable fields of b.
func StateOf(b *behavior.Boid) BoidState {
	return BoidState{
		ID:          b.ID,
		Pos:         b.Pos,
		Vel:         b.Vel,
		Orientation: b.Orientation,
		Color:       b.Color,
	}
}

// WorldSnapshot is a detached copy of the world after a tick. It shares no
// memory with the engine, so it can cross goroutines.
type WorldSnapshot struct {
	Tick    uint64
	Width   float64
	Height  float64
	Index   IndexKind
	Boids   []BoidState
	Regions []geometry.Rect // occupied grid cells or quadtree node bounds
}

// Snapshot copies the current state of the world.
func (e *Engine) Snapshot() *WorldSnapshot {
	s := &WorldSnapshot{
		Tick:    e.ticks,
		Width:   e.cfg.WorldWidth,
		Height:  e.cfg.WorldHeight,
		Index:   e.cfg.Index,
		Boids:   make([]BoidState, len(e.boids)),
		Regions: e.index.Regions(),
	}
	for i, b := range e.boids {
		s.Boids[i] = StateOf(b)
	}
	return s
}
