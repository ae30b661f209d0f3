package spatial

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

// point is the minimal Entry used by the index tests.
type point struct {
	id  int
	pos geometry.Vector2D
	h   Handle
}

func (p *point) Position() geometry.Vector2D { return p.pos }
func (p *point) Membership() *Handle        { return &p.h }
func (p *point) String() string             { return fmt.Sprintf("p%d%s", p.id, p.pos) }

var (
	_ Index[*point] = (*Grid[*point])(nil)
	_ Index[*point] = (*Quadtree[*point])(nil)
)

func randomPoints(rng *rand.Rand, n int, w, h float64) []*point {
	pts := make([]*point, n)
	for i := range pts {
		pts[i] = &point{id: i, pos: geometry.Vector2D{X: rng.Float64() * w, Y: rng.Float64() * h}}
	}
	return pts
}

// distinct fails the test on duplicates and returns the set of ids.
func distinct(t *testing.T, got []*point) map[int]bool {
	t.Helper()
	seen := make(map[int]bool, len(got))
	for _, p := range got {
		if seen[p.id] {
			t.Fatalf("duplicate entry %v in query result", p)
		}
		seen[p.id] = true
	}
	return seen
}

func TestNewGrid_InvalidParams(t *testing.T) {
	tests := []struct {
		name          string
		width, cellSz float64
	}{
		{"zero width", 0, 10},
		{"negative cell", 100, -1},
		{"zero cell", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGrid[*point](tt.width, tt.cellSz); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("NewGrid(%v, %v) error = %v; want ErrInvalidParams", tt.width, tt.cellSz, err)
			}
		})
	}
}

func TestGrid_Hash(t *testing.T) {
	g, err := NewGrid[*point](1000, 60)
	if err != nil {
		t.Fatal(err)
	}
	if g.Width() != 17 {
		t.Fatalf("Width = %d; want ceil(1000/60) = 17", g.Width())
	}
	tests := []struct {
		p    geometry.Vector2D
		want int
	}{
		{geometry.Vector2D{X: 0, Y: 0}, 0},
		{geometry.Vector2D{X: 59.9, Y: 59.9}, 0},
		{geometry.Vector2D{X: 60, Y: 0}, 1},
		{geometry.Vector2D{X: 0, Y: 60}, 17},
		{geometry.Vector2D{X: 130, Y: 130}, 2 + 2*17},
		{geometry.Vector2D{X: -1, Y: 0}, -1},
	}
	for _, tt := range tests {
		if got := g.Hash(tt.p); got != tt.want {
			t.Errorf("Hash(%v) = %d; want %d", tt.p, got, tt.want)
		}
	}
}

func TestGrid_InsertRemove(t *testing.T) {
	g, _ := NewGrid[*point](1000, 100)
	a := &point{id: 1, pos: geometry.Vector2D{X: 150, Y: 50}}

	if err := g.Insert(a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := g.Bucket(1); len(got) != 1 || got[0] != a {
		t.Fatalf("Bucket(1) = %v; want [a]", got)
	}
	if a.h.Cell() != 1 || !a.h.Indexed() {
		t.Errorf("handle = %+v; want indexed in cell 1", a.h)
	}
	if err := g.Insert(a); !errors.Is(err, ErrInconsistent) {
		t.Errorf("double Insert error = %v; want ErrInconsistent", err)
	}

	if err := g.Remove(a); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if g.CellCount() != 0 || g.Len() != 0 {
		t.Errorf("after Remove CellCount=%d Len=%d; want empty buckets pruned", g.CellCount(), g.Len())
	}
	if err := g.Remove(a); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Remove of absent entry error = %v; want ErrInconsistent", err)
	}
}

func TestGrid_Update(t *testing.T) {
	g, _ := NewGrid[*point](1000, 100)
	a := &point{id: 1, pos: geometry.Vector2D{X: 10, Y: 10}}
	b := &point{id: 2, pos: geometry.Vector2D{X: 20, Y: 20}}
	_ = g.Insert(a)
	_ = g.Insert(b)

	// Same cell: nothing moves.
	a.pos = geometry.Vector2D{X: 90, Y: 90}
	if err := g.Update(a); err != nil {
		t.Fatal(err)
	}
	if got := g.Bucket(0); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Bucket(0) = %v; want [a b] in insertion order", got)
	}

	// Crossing into the next row.
	a.pos = geometry.Vector2D{X: 90, Y: 110}
	if err := g.Update(a); err != nil {
		t.Fatal(err)
	}
	if got := g.Bucket(10); len(got) != 1 || got[0] != a {
		t.Errorf("Bucket(10) = %v; want [a]", got)
	}
	if got := g.Bucket(0); len(got) != 1 || got[0] != b {
		t.Errorf("Bucket(0) = %v; want [b]", got)
	}
	if a.h.Cell() != 10 {
		t.Errorf("a cell = %d; want 10", a.h.Cell())
	}
}

func TestGrid_RoundTrip(t *testing.T) {
	world := geometry.NewRect(0, 0, 1000, 1000)
	for _, n := range []int{0, 1, 17, 250, 1000} {
		for _, cell := range []float64{1, 7.5, 60, 2000} {
			t.Run(fmt.Sprintf("n=%d/cell=%v", n, cell), func(t *testing.T) {
				rng := rand.New(rand.NewPCG(uint64(n), 7))
				g, err := NewGrid[*point](world.Size.X, cell)
				if err != nil {
					t.Fatal(err)
				}
				for _, p := range randomPoints(rng, n, world.Size.X, world.Size.Y) {
					if err := g.Insert(p); err != nil {
						t.Fatal(err)
					}
				}
				got := distinct(t, g.Query(world, nil))
				if len(got) != n || g.Len() != n {
					t.Errorf("full query returned %d, Len %d; want %d", len(got), g.Len(), n)
				}
			})
		}
	}
}

func TestGrid_QueryWiderThanWorld(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	g, _ := NewGrid[*point](500, 50)
	pts := randomPoints(rng, 200, 500, 500)
	for _, p := range pts {
		_ = g.Insert(p)
	}
	got := distinct(t, g.Query(geometry.NewRect(-1000, -1000, 3000, 3000), nil))
	if len(got) != len(pts) {
		t.Errorf("wide query returned %d; want %d", len(got), len(pts))
	}
}

func TestGrid_QuerySoundness(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 42))
	g, _ := NewGrid[*point](1000, 60)
	pts := randomPoints(rng, 400, 1000, 1000)
	for _, p := range pts {
		_ = g.Insert(p)
	}
	for i := 0; i < 200; i++ {
		region := geometry.CenteredRect(
			geometry.Vector2D{X: rng.Float64() * 1000, Y: rng.Float64() * 1000},
			1+rng.Float64()*150)
		got := distinct(t, g.Query(region, nil))
		for _, p := range pts {
			if region.Contains(p.pos) && !got[p.id] {
				t.Fatalf("query %v missed %v", region, p)
			}
		}
	}
}

func TestGrid_QueryOutsideWorld(t *testing.T) {
	g, _ := NewGrid[*point](1000, 60)
	_ = g.Insert(&point{pos: geometry.Vector2D{X: 10, Y: 10}})
	if got := g.Query(geometry.NewRect(5000, 5000, 100, 100), nil); len(got) != 0 {
		t.Errorf("query outside world = %v; want empty", got)
	}
}

func TestGrid_QueryBesideWorldEdges(t *testing.T) {
	tests := []struct {
		name   string
		at     geometry.Vector2D
		region geometry.Rect
		want   int
	}{
		{"right of the world, row above the point", geometry.Vector2D{X: 10, Y: 70}, geometry.NewRect(1030, 10, 20, 20), 0},
		{"left of the world, row below the point", geometry.Vector2D{X: 970, Y: 10}, geometry.NewRect(-30, 70, 20, 20), 0},
		{"point past the left edge", geometry.Vector2D{X: -5, Y: 70}, geometry.NewRect(-10, 65, 20, 10), 1},
		{"point past the right edge", geometry.Vector2D{X: 1030, Y: 10}, geometry.NewRect(1025, 5, 10, 10), 1},
		{"in-world cell sharing an id with an outside point", geometry.Vector2D{X: -5, Y: 70}, geometry.NewRect(970, 10, 20, 20), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := NewGrid[*point](1000, 60)
			p := &point{pos: tt.at}
			if err := g.Insert(p); err != nil {
				t.Fatal(err)
			}
			if got := g.Query(tt.region, nil); len(got) != tt.want {
				t.Errorf("Query(%v) = %v; want %d entries", tt.region, got, tt.want)
			}
		})
	}
}

func TestGrid_QueryAfterMovingPastEdge(t *testing.T) {
	g, _ := NewGrid[*point](1000, 60)
	p := &point{pos: geometry.Vector2D{X: 10, Y: 70}}
	_ = g.Insert(p)
	// (1030, 10) hashes to the same id as (10, 70).
	p.pos = geometry.Vector2D{X: 1030, Y: 10}
	if err := g.Update(p); err != nil {
		t.Fatal(err)
	}
	if got := g.Query(geometry.NewRect(0, 60, 30, 30), nil); len(got) != 0 {
		t.Errorf("old cell query = %v; want empty", got)
	}
	if got := g.Query(geometry.NewRect(1020, 0, 30, 30), nil); len(got) != 1 {
		t.Errorf("new cell query = %v; want the moved point", got)
	}
}

func TestGrid_Exclusivity(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 9))
	g, _ := NewGrid[*point](1000, 60)
	pts := randomPoints(rng, 300, 1000, 1000)
	for _, p := range pts {
		_ = g.Insert(p)
	}
	for step := 0; step < 50; step++ {
		for _, p := range pts {
			p.pos = p.pos.Add(geometry.Vector2D{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10})
			if err := g.Update(p); err != nil {
				t.Fatal(err)
			}
		}
	}
	count := make(map[*point]int)
	for id, bucket := range g.buckets {
		if len(bucket) == 0 {
			t.Errorf("empty bucket %d left behind", id)
		}
		for _, p := range bucket {
			count[p]++
			if g.Hash(p.pos) != id {
				t.Errorf("%v stored in cell %d; hashes to %d", p, id, g.Hash(p.pos))
			}
		}
	}
	for _, p := range pts {
		if count[p] != 1 {
			t.Errorf("%v appears in %d buckets; want 1", p, count[p])
		}
	}
}

func TestGrid_Regions(t *testing.T) {
	g, _ := NewGrid[*point](300, 100)
	_ = g.Insert(&point{id: 1, pos: geometry.Vector2D{X: 250, Y: 150}})
	regions := g.Regions()
	if len(regions) != 1 {
		t.Fatalf("Regions = %v; want one cell", regions)
	}
	want := geometry.NewRect(200, 100, 100, 100)
	if !regions[0].Origin.Eq(want.Origin) || !regions[0].Size.Eq(want.Size) {
		t.Errorf("Regions[0] = %v; want %v", regions[0], want)
	}
}

func BenchmarkGrid_Query(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	g, _ := NewGrid[*point](1800, 60)
	for _, p := range randomPoints(rng, 1000, 1800, 1000) {
		_ = g.Insert(p)
	}
	region := geometry.CenteredRect(geometry.Vector2D{X: 900, Y: 500}, 100)
	var buf []*point

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = g.Query(region, buf[:0])
	}
}
