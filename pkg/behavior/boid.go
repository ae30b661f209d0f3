package behavior

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/spatial"
)

// Boid represents a single entity in the flock.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// The name "boid" corresponds to a shortened version of "bird-oid object".
// https://en.wikipedia.org/wiki/Boids
//
// Position, velocity and orientation are exported so renderers can read them;
// the spatial membership handle is only touched by the index holding the boid.
type Boid struct {
	ID    int
	Color int // palette index, chosen at spawn

	Pos geometry.Vector2D
	Vel geometry.Vector2D
	Acc geometry.Vector2D

	// Orientation is the heading in radians, derived from Vel after each move.
	// Purely cosmetic: nothing in the physics reads it.
	Orientation float64
	SightRadius float64

	membership spatial.Handle
}

// New creates a boid at pos moving with vel.
func New(id int, pos, vel geometry.Vector2D, sightRadius float64) *Boid {
	b := &Boid{ID: id, Pos: pos, Vel: vel, SightRadius: sightRadius}
	b.updateOrientation()
	return b
}

// NewRandom creates a boid with a random position inside world and an
// integer velocity in [-3, 3] on each axis.
func NewRandom(id int, rng *rand.Rand, world geometry.Rect, sightRadius float64, colors int) *Boid {
	pos := geometry.Vector2D{
		X: world.MinX() + rng.Float64()*world.Size.X,
		Y: world.MinY() + rng.Float64()*world.Size.Y,
	}
	vel := geometry.Vector2D{
		X: float64(rng.IntN(7) - 3),
		Y: float64(rng.IntN(7) - 3),
	}
	b := New(id, pos, vel, sightRadius)
	if colors > 0 {
		b.Color = rng.IntN(colors)
	}
	return b
}

// Position implements spatial.Entry.
func (b *Boid) Position() geometry.Vector2D { return b.Pos }

// Membership implements spatial.Entry.
func (b *Boid) Membership() *spatial.Handle { return &b.membership }

// ApplyForce accumulates f into the acceleration of the current tick.
func (b *Boid) ApplyForce(f geometry.Vector2D) {
	b.Acc = b.Acc.Add(f)
}

// Integrate advances the boid by one tick: velocity absorbs the accumulated
// acceleration, is capped at maxSpeed, then moves the position. Acceleration
// is reset and the orientation follows the new velocity.
func (b *Boid) Integrate(maxSpeed float64) {
	b.Vel = b.Vel.Add(b.Acc).Limit(maxSpeed)
	b.Pos = b.Pos.Add(b.Vel)
	b.Acc = geometry.Vector2D{}
	b.updateOrientation()
}

// updateOrientation keeps the previous heading while the boid is at rest.
func (b *Boid) updateOrientation() {
	if !b.Vel.IsZero() {
		b.Orientation = b.Vel.Angle()
	}
}

// SightRegion is the square searched for neighbors, half-extent SightRadius.
func (b *Boid) SightRegion() geometry.Rect {
	return geometry.CenteredRect(b.Pos, b.SightRadius)
}
