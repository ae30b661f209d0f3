package simulation

import "image/color"

// PaletteSize is the number of colors a boid can be spawned with.
const PaletteSize = 7

// Palette maps BoidState.Color to a display color.
var Palette = [PaletteSize]color.RGBA{
	{R: 255, G: 204, B: 102, A: 255},
	{R: 122, G: 255, B: 102, A: 255},
	{R: 102, G: 255, B: 230, A: 255},
	{R: 102, G: 133, B: 255, A: 255},
	{R: 194, G: 102, B: 255, A: 255},
	{R: 255, G: 102, B: 201, A: 255},
	{R: 255, G: 102, B: 102, A: 255},
}
