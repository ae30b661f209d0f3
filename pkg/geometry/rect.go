package geometry

import "fmt"

// Rect is an axis-aligned rectangle anchored at its top-left Origin.
// Containment is half-open on the far edges, so two rectangles sharing an
// edge never both contain a point lying on it.
type Rect struct {
	Origin Vector2D `json:"origin"`
	Size   Vector2D `json:"size"`
}

// NewRect builds a Rect from its top-left corner and dimensions.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Origin: Vector2D{X: x, Y: y}, Size: Vector2D{X: w, Y: h}}
}

// CenteredRect returns the square of half-extent half centered on c.
func CenteredRect(c Vector2D, half float64) Rect {
	return Rect{
		Origin: Vector2D{X: c.X - half, Y: c.Y - half},
		Size:   Vector2D{X: 2 * half, Y: 2 * half},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%s +%s]", r.Origin, r.Size)
}

// MinX, MinY, MaxX and MaxY give the rectangle edges.
func (r Rect) MinX() float64 { return r.Origin.X }
func (r Rect) MinY() float64 { return r.Origin.Y }
func (r Rect) MaxX() float64 { return r.Origin.X + r.Size.X }
func (r Rect) MaxY() float64 { return r.Origin.Y + r.Size.Y }

// Center returns the middle point of the rectangle.
func (r Rect) Center() Vector2D {
	return r.Origin.Add(r.Size.Mul(0.5))
}

// Contains reports whether p lies inside r (min edges inclusive, max edges exclusive).
func (r Rect) Contains(p Vector2D) bool {
	return p.X >= r.MinX() && p.X < r.MaxX() &&
		p.Y >= r.MinY() && p.Y < r.MaxY()
}

// Intersects reports whether the two rectangles overlap with a non-empty area.
func (r Rect) Intersects(o Rect) bool {
	return !(o.MaxX() <= r.MinX() || o.MinX() >= r.MaxX() ||
		o.MaxY() <= r.MinY() || o.MinY() >= r.MaxY())
}

// Expand grows the rectangle by m on every side.
func (r Rect) Expand(m float64) Rect {
	return Rect{
		Origin: Vector2D{X: r.Origin.X - m, Y: r.Origin.Y - m},
		Size:   Vector2D{X: r.Size.X + 2*m, Y: r.Size.Y + 2*m},
	}
}

// Quadrants splits r into its NW, NE, SW and SE quarters, in that order.
// Screen coordinates: Y grows downward, so "north" is the smaller Y half.
func (r Rect) Quadrants() [4]Rect {
	hw, hh := r.Size.X/2, r.Size.Y/2
	x, y := r.Origin.X, r.Origin.Y
	return [4]Rect{
		NewRect(x, y, hw, hh),
		NewRect(x+hw, y, hw, hh),
		NewRect(x, y+hh, hw, hh),
		NewRect(x+hw, y+hh, hw, hh),
	}
}
