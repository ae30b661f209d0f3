// Package spatial provides the neighbor-discovery indexes used by the flock:
// a uniform grid hash map and a point quadtree. Both satisfy Index so the
// engine can pick one at configuration time.
//
// Queries never mutate an index, so concurrent queries are safe as long as no
// Insert, Remove, Update or Rebuild runs at the same time.
package spatial

import (
	"errors"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

var (
	// ErrOutOfBounds is returned when inserting a position outside the indexed region.
	ErrOutOfBounds = errors.New("spatial: position outside indexed region")
	// ErrInconsistent signals a broken membership invariant: a double insert,
	// or the removal of an entry the index does not hold.
	ErrInconsistent = errors.New("spatial: index consistency violation")
	// ErrInvalidParams is returned by constructors given non-positive sizes.
	ErrInvalidParams = errors.New("spatial: invalid index parameters")
)

// Entry is anything an Index can hold. The entry carries its own Handle so
// membership travels with it and no side map is needed.
type Entry interface {
	comparable
	Position() geometry.Vector2D
	Membership() *Handle
}

// Handle records where an index last committed an entry.
// Only the owning index writes it.
type Handle struct {
	indexed bool
	stray   bool
	cell    int
	at      geometry.Vector2D
}

// Indexed reports whether the entry is currently held by an index.
func (h *Handle) Indexed() bool { return h.indexed }

// Cell returns the grid cell id of the last commit. Meaningless for quadtrees.
func (h *Handle) Cell() int { return h.cell }

// Committed returns the position the index used when it stored the entry.
func (h *Handle) Committed() geometry.Vector2D { return h.at }

func (h *Handle) reset() {
	*h = Handle{}
}

// Index is the capability shared by Grid and Quadtree.
type Index[T Entry] interface {
	// Insert adds item under its current position.
	Insert(item T) error
	// Remove drops a previously inserted item.
	Remove(item T) error
	// Update reconciles membership after item moved. The grid relocates the
	// item when its cell changed; the quadtree only marks itself stale.
	Update(item T) error
	// Query appends to dst every held item whose stored position may lie in
	// region. The grid over-approximates at cell granularity, the quadtree is exact.
	Query(region geometry.Rect, dst []T) []T
	// Rebuild discards all membership and reinserts items from scratch.
	Rebuild(items []T) error
	// Len returns the number of held items.
	Len() int
	// Regions lists the occupied cells or node bounds, for debug overlays.
	Regions() []geometry.Rect
}
