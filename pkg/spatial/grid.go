package spatial

import (
	"fmt"
	"math"
	"slices"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

// Grid is a uniform spatial hash: square cells of side cellSize, each cell id
// mapping to the ordered bucket of entries whose position falls inside it.
//
//	id = floor(x/cellSize) + floor(y/cellSize) * width
//
// Positions outside the world still hash deterministically, they simply
// share ids with in-world cells; Query tells them apart by their committed
// position. Empty buckets are deleted, never kept.
type Grid[T Entry] struct {
	cellSize float64
	width    int
	buckets  map[int][]T
	count    int
}

// NewGrid creates an empty grid spanning worldWidth with square cells of cellSize.
func NewGrid[T Entry](worldWidth, cellSize float64) (*Grid[T], error) {
	if worldWidth <= 0 || cellSize <= 0 {
		return nil, fmt.Errorf("%w: grid world width %v, cell size %v", ErrInvalidParams, worldWidth, cellSize)
	}
	return &Grid[T]{
		cellSize: cellSize,
		width:    int(math.Ceil(worldWidth / cellSize)),
		buckets:  make(map[int][]T),
	}, nil
}

// Width returns the number of cells spanning the world width.
func (g *Grid[T]) Width() int { return g.width }

// CellSize returns the side length of a cell.
func (g *Grid[T]) CellSize() float64 { return g.cellSize }

func (g *Grid[T]) coords(p geometry.Vector2D) (int, int) {
	return int(math.Floor(p.X / g.cellSize)), int(math.Floor(p.Y / g.cellSize))
}

// Hash returns the cell id of a position.
func (g *Grid[T]) Hash(p geometry.Vector2D) int {
	cx, cy := g.coords(p)
	return cx + cy*g.width
}

// Insert adds item to the bucket matching its current position.
func (g *Grid[T]) Insert(item T) error {
	h := item.Membership()
	if h.indexed {
		return fmt.Errorf("%w: insert of an entry already in cell %d", ErrInconsistent, h.cell)
	}
	pos := item.Position()
	id := g.Hash(pos)
	g.buckets[id] = append(g.buckets[id], item)
	h.indexed, h.cell, h.at = true, id, pos
	g.count++
	return nil
}

// Remove drops item from the bucket recorded in its handle.
func (g *Grid[T]) Remove(item T) error {
	h := item.Membership()
	if !h.indexed {
		return fmt.Errorf("%w: remove of an entry not in the grid", ErrInconsistent)
	}
	bucket := g.buckets[h.cell]
	i := slices.Index(bucket, item)
	if i < 0 {
		return fmt.Errorf("%w: entry missing from its cell %d", ErrInconsistent, h.cell)
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(g.buckets, h.cell)
	} else {
		g.buckets[h.cell] = bucket
	}
	h.reset()
	g.count--
	return nil
}

// Update moves item to a new bucket when its position now hashes to another cell.
func (g *Grid[T]) Update(item T) error {
	h := item.Membership()
	pos := item.Position()
	if h.indexed && g.Hash(pos) == h.cell {
		h.at = pos
		return nil
	}
	if h.indexed {
		if err := g.Remove(item); err != nil {
			return err
		}
	}
	return g.Insert(item)
}

// Query unions the entries of every cell overlapped by region. Callers
// needing exact containment must filter the result themselves.
//
// A bucket also holds entries whose cell coordinates wrapped onto the same
// id, so each visited cell keeps only the entries committed to it.
func (g *Grid[T]) Query(region geometry.Rect, dst []T) []T {
	if region.Size.X < 0 || region.Size.Y < 0 || len(g.buckets) == 0 {
		return dst
	}
	minX, minY := g.coords(region.Origin)
	maxX, maxY := g.coords(geometry.Vector2D{X: region.MaxX(), Y: region.MaxY()})

	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			bucket, ok := g.buckets[cx+cy*g.width]
			if !ok {
				continue
			}
			for _, item := range bucket {
				if x, y := g.coords(item.Membership().at); x == cx && y == cy {
					dst = append(dst, item)
				}
			}
		}
	}
	return dst
}

// Rebuild clears every bucket and reinserts items.
func (g *Grid[T]) Rebuild(items []T) error {
	clear(g.buckets)
	g.count = 0
	for _, it := range items {
		it.Membership().reset()
		if err := g.Insert(it); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of held entries.
func (g *Grid[T]) Len() int { return g.count }

// Bucket returns the entries stored under cell id.
func (g *Grid[T]) Bucket(id int) []T { return g.buckets[id] }

// CellCount returns the number of non-empty buckets.
func (g *Grid[T]) CellCount() int { return len(g.buckets) }

// Regions returns the rectangle of each occupied cell, ordered by cell id.
func (g *Grid[T]) Regions() []geometry.Rect {
	ids := make([]int, 0, len(g.buckets))
	for id := range g.buckets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]geometry.Rect, 0, len(ids))
	for _, id := range ids {
		cx := ((id % g.width) + g.width) % g.width
		cy := (id - cx) / g.width
		out = append(out, geometry.NewRect(float64(cx)*g.cellSize, float64(cy)*g.cellSize, g.cellSize, g.cellSize))
	}
	return out
}
