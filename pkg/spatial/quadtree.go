package spatial

import (
	"fmt"
	"slices"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

// DefaultMaxDepth bounds subdivision so coincident points cannot recurse forever.
// Nodes at this depth accept entries beyond their capacity.
const DefaultMaxDepth = 16

// Quadtree is a point quadtree over a fixed root region.
//
// Each node stores up to capacity entries directly. Once full it subdivides
// into NW, NE, SW and SE children, keeping the entries it already holds, and
// later entries descend into the child containing them. Nodes never merge back.
//
// The tree is a snapshot: entries are matched against the position they had
// when inserted, and Update only marks the tree stale. Rebuild brings it up
// to date.
type Quadtree[T Entry] struct {
	bounds   geometry.Rect
	capacity int
	maxDepth int
	root     *quadNode[T]
	strays   []T
	count    int
	stale    bool
}

type quadNode[T Entry] struct {
	bounds   geometry.Rect
	depth    int
	items    []T
	children *[4]quadNode[T]
}

// NewQuadtree creates an empty quadtree covering bounds.
func NewQuadtree[T Entry](bounds geometry.Rect, capacity int) (*Quadtree[T], error) {
	if bounds.Size.X <= 0 || bounds.Size.Y <= 0 || capacity <= 0 {
		return nil, fmt.Errorf("%w: quadtree bounds %v, capacity %d", ErrInvalidParams, bounds, capacity)
	}
	return &Quadtree[T]{
		bounds:   bounds,
		capacity: capacity,
		maxDepth: DefaultMaxDepth,
		root:     &quadNode[T]{bounds: bounds},
	}, nil
}

// Bounds returns the root region.
func (q *Quadtree[T]) Bounds() geometry.Rect { return q.bounds }

// Stale reports whether an entry moved since the last Rebuild.
func (q *Quadtree[T]) Stale() bool { return q.stale }

// Insert stores item at its current position. Positions outside the root
// region are rejected with ErrOutOfBounds.
func (q *Quadtree[T]) Insert(item T) error {
	h := item.Membership()
	if h.indexed {
		return fmt.Errorf("%w: insert of an entry already in the quadtree", ErrInconsistent)
	}
	pos := item.Position()
	if !q.bounds.Contains(pos) {
		return fmt.Errorf("%w: %s not in %s", ErrOutOfBounds, pos, q.bounds)
	}
	q.root.insert(item, pos, q.capacity, q.maxDepth)
	h.indexed, h.stray, h.at = true, false, pos
	q.count++
	return nil
}

func (n *quadNode[T]) insert(item T, pos geometry.Vector2D, capacity, maxDepth int) {
	for {
		if n.children == nil && (len(n.items) < capacity || n.depth >= maxDepth) {
			n.items = append(n.items, item)
			return
		}
		if n.children == nil {
			n.subdivide()
		}
		n = &n.children[n.quadrant(pos)]
	}
}

func (n *quadNode[T]) subdivide() {
	quads := n.bounds.Quadrants()
	n.children = &[4]quadNode[T]{}
	for i := range quads {
		n.children[i] = quadNode[T]{bounds: quads[i], depth: n.depth + 1}
	}
}

// quadrant picks the child index from the node midpoint. Comparing with the
// midpoint instead of testing each child's Contains keeps the choice total
// when float rounding leaves a sliver between sibling bounds.
func (n *quadNode[T]) quadrant(p geometry.Vector2D) int {
	mid := n.bounds.Center()
	i := 0
	if p.X >= mid.X {
		i++
	}
	if p.Y >= mid.Y {
		i += 2
	}
	return i
}

// Remove drops item, following the path of the position it was stored under.
func (q *Quadtree[T]) Remove(item T) error {
	h := item.Membership()
	if !h.indexed {
		return fmt.Errorf("%w: remove of an entry not in the quadtree", ErrInconsistent)
	}
	if h.stray {
		i := slices.Index(q.strays, item)
		if i < 0 {
			return fmt.Errorf("%w: stray entry missing", ErrInconsistent)
		}
		q.strays = slices.Delete(q.strays, i, i+1)
	} else if !q.root.remove(item, h.at) {
		return fmt.Errorf("%w: entry missing along the path of %s", ErrInconsistent, h.at)
	}
	h.reset()
	q.count--
	return nil
}

func (n *quadNode[T]) remove(item T, at geometry.Vector2D) bool {
	for n != nil {
		if i := slices.Index(n.items, item); i >= 0 {
			n.items = slices.Delete(n.items, i, i+1)
			return true
		}
		if n.children == nil {
			return false
		}
		n = &n.children[n.quadrant(at)]
	}
	return false
}

// Update marks the tree stale. Membership catches up on the next Rebuild.
func (q *Quadtree[T]) Update(item T) error {
	if !item.Membership().indexed {
		return fmt.Errorf("%w: update of an entry not in the quadtree", ErrInconsistent)
	}
	q.stale = true
	return nil
}

// Rebuild drops every node and reinserts items from their current positions.
// Items lying outside the root region are kept in a stray list that every
// query scans, so the index stays complete while a boid is past the edge.
func (q *Quadtree[T]) Rebuild(items []T) error {
	q.root = &quadNode[T]{bounds: q.bounds}
	q.strays = q.strays[:0]
	q.count = 0
	for _, it := range items {
		h := it.Membership()
		h.reset()
		pos := it.Position()
		if !q.bounds.Contains(pos) {
			q.strays = append(q.strays, it)
			h.indexed, h.stray, h.at = true, true, pos
			q.count++
			continue
		}
		q.root.insert(it, pos, q.capacity, q.maxDepth)
		h.indexed, h.at = true, pos
		q.count++
	}
	q.stale = false
	return nil
}

// Query appends every entry whose stored position lies in region, pruning
// subtrees whose bounds do not intersect it.
func (q *Quadtree[T]) Query(region geometry.Rect, dst []T) []T {
	dst = q.root.query(region, dst)
	for _, it := range q.strays {
		if region.Contains(it.Membership().at) {
			dst = append(dst, it)
		}
	}
	return dst
}

func (n *quadNode[T]) query(region geometry.Rect, dst []T) []T {
	if !n.bounds.Intersects(region) {
		return dst
	}
	for _, it := range n.items {
		if region.Contains(it.Membership().at) {
			dst = append(dst, it)
		}
	}
	if n.children != nil {
		for i := range n.children {
			dst = n.children[i].query(region, dst)
		}
	}
	return dst
}

// Len returns the number of held entries, strays included.
func (q *Quadtree[T]) Len() int { return q.count }

// Depth returns the depth of the deepest node, the root being 0.
func (q *Quadtree[T]) Depth() int {
	deepest := 0
	q.root.walk(func(n *quadNode[T]) {
		deepest = max(deepest, n.depth)
	})
	return deepest
}

// Regions returns the bounds of every node, parents before children.
func (q *Quadtree[T]) Regions() []geometry.Rect {
	var out []geometry.Rect
	q.root.walk(func(n *quadNode[T]) {
		out = append(out, n.bounds)
	})
	return out
}

func (n *quadNode[T]) walk(fn func(*quadNode[T])) {
	fn(n)
	if n.children == nil {
		return
	}
	for i := range n.children {
		n.children[i].walk(fn)
	}
}
