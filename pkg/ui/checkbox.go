package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Checkbox is a labelled toggle. The key, when set, toggles it too.
type Checkbox struct {
	Label string
	Value bool
	Key   ebiten.Key
	X, Y  float64
	Size  float64

	hasKey bool
}

// NewCheckbox creates a new checkbox instance
func NewCheckbox(x, y float64, label string, value bool) *Checkbox {
	return &Checkbox{
		Label: label,
		Value: value,
		X:     x,
		Y:     y,
		Size:  16,
	}
}

// WithKey binds a keyboard shortcut to the checkbox.
func (c *Checkbox) WithKey(k ebiten.Key) *Checkbox {
	c.Key, c.hasKey = k, true
	return c
}

// Update toggles the value on a click inside the box or on the shortcut key.
func (c *Checkbox) Update() {
	if c.hasKey && inpututil.IsKeyJustPressed(c.Key) {
		c.Value = !c.Value
		return
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && hit(c.X, c.Y, c.Size, c.Size) {
		c.Value = !c.Value
	}
}

// Draw renders the box and its label
func (c *Checkbox) Draw(screen *ebiten.Image) {
	vector.StrokeRect(screen,
		float32(c.X), float32(c.Y),
		float32(c.Size), float32(c.Size),
		2,
		color.RGBA{R: 200, G: 200, B: 200, A: 255},
		true)

	if c.Value {
		vector.FillRect(screen,
			float32(c.X+3), float32(c.Y+3),
			float32(c.Size-6), float32(c.Size-6),
			color.RGBA{R: 100, G: 200, B: 100, A: 255},
			true)
	}
	ebitenutil.DebugPrintAt(screen, c.Label, int(c.X+c.Size+6), int(c.Y))
}

// hit reports whether the cursor lies in the given box.
func hit(x, y, w, h float64) bool {
	mx, my := ebiten.CursorPosition()
	return float64(mx) >= x && float64(mx) <= x+w &&
		float64(my) >= y && float64(my) <= y+h
}
