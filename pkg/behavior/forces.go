package behavior

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

// AlignmentEpsilon is added to the length of the average neighbor velocity
// before dividing, so a flock at rest yields a vanishing heading, not NaN.
const AlignmentEpsilon = 0.1

// Settings controls the flocking rules.
type Settings struct {
	AlignmentWeight  float64 // Heading matching strength
	CohesionWeight   float64 // Pull toward the neighbors' center
	SeparationWeight float64 // Push away from the nearest neighbor
	SeparationRadius float64 // Inner radius where the push turns into a pull

	EdgeMargin float64 // Distance from a world edge where turning starts
	TurnFactor float64 // Edge turning strength

	MaxSpeed     float64
	MaxFlockSize int // Neighbors considered per tick, first encountered first

	World geometry.Rect
}

// SelectNeighbors keeps the candidates within b's sight radius, excluding b
// itself, up to maxFlock entries in candidate order. The grid returns a
// superset of the sight square, this is where it gets trimmed to the circle.
func SelectNeighbors(b *Boid, candidates []*Boid, maxFlock int, dst []*Boid) []*Boid {
	r2 := b.SightRadius * b.SightRadius
	for _, other := range candidates {
		if len(dst) >= maxFlock {
			break
		}
		if other == b {
			continue
		}
		if b.Pos.DistanceSquaredTo(other.Pos) <= r2 {
			dst = append(dst, other)
		}
	}
	return dst
}

// Steer sums alignment, cohesion and separation for b. It returns the zero
// vector when there are no neighbors.
func Steer(b *Boid, neighbors []*Boid, s Settings) geometry.Vector2D {
	if len(neighbors) == 0 {
		return geometry.Vector2D{}
	}
	nearest, distSq := Nearest(b, neighbors)
	return Alignment(neighbors).Mul(s.AlignmentWeight).
		Add(Cohesion(b, neighbors).Mul(s.CohesionWeight)).
		Add(Separation(b, nearest, math.Sqrt(distSq), s))
}

// Alignment is the average neighbor velocity, softly normalized.
func Alignment(neighbors []*Boid) geometry.Vector2D {
	var sum geometry.Vector2D
	for _, n := range neighbors {
		sum = sum.Add(n.Vel)
	}
	return sum.Div(float64(len(neighbors))).NormalizeSoft(AlignmentEpsilon)
}

// Cohesion is the unit vector from b (anticipating its own motion) toward
// the average neighbor position.
func Cohesion(b *Boid, neighbors []*Boid) geometry.Vector2D {
	var sum geometry.Vector2D
	for _, n := range neighbors {
		sum = sum.Add(n.Pos)
	}
	center := sum.Div(float64(len(neighbors)))
	return center.Sub(b.Pos).Sub(b.Vel).Normalize()
}

// Nearest returns the closest neighbor and its squared distance. Ties keep
// the first one encountered.
func Nearest(b *Boid, neighbors []*Boid) (*Boid, float64) {
	var best *Boid
	bestSq := math.Inf(1)
	for _, n := range neighbors {
		if d := b.Pos.DistanceSquaredTo(n.Pos); d < bestSq {
			best, bestSq = n, d
		}
	}
	return best, bestSq
}

// Separation pushes b away from nearest, scaled by how far inside the
// separation radius it sits. Past the radius the sign flips and the
// nearest neighbor pulls b in.
func Separation(b, nearest *Boid, dist float64, s Settings) geometry.Vector2D {
	if nearest == nil {
		return geometry.Vector2D{}
	}
	strength := (s.SeparationRadius - dist) * s.SeparationWeight
	return b.Pos.Sub(nearest.Pos).Sub(b.Vel).Normalize().Mul(strength)
}

// Containment returns the constant turning force for a position within
// margin of an edge of world, pointing back inside on each offending axis.
func Containment(pos geometry.Vector2D, world geometry.Rect, margin, turn float64) geometry.Vector2D {
	var f geometry.Vector2D
	if pos.X > world.MaxX()-margin {
		f.X -= turn
	}
	if pos.X < world.MinX()+margin {
		f.X += turn
	}
	if pos.Y > world.MaxY()-margin {
		f.Y -= turn
	}
	if pos.Y < world.MinY()+margin {
		f.Y += turn
	}
	return f
}
