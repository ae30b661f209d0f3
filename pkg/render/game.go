// Package render draws WorldSnapshots with ebiten and drives the world
// loop from the ebiten update cadence.
package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/ui"
)

var (
	background  = color.RGBA{R: 10, G: 10, B: 30, A: 255}
	regionColor = color.RGBA{R: 80, G: 80, B: 120, A: 255}
	whiteImage  = ebiten.NewImage(3, 3)
)

// Boid triangle shape, in pixels.
const (
	noseLength = 8.0
	wingLength = 6.0
	wingAngle  = 2.5
	// DrawTriangles takes uint16 indices
	maxBatchVertices = math.MaxUint16 - 3
)

func init() {
	whiteImage.Fill(color.White)
}

type Game struct {
	ctx       context.Context
	loop      *simulation.Loop
	lastState *simulation.WorldSnapshot
	width     int
	height    int
	paused    bool

	// UI Controls
	widgetRegions *ui.Checkbox
	widgetPause   *ui.Button

	vertices []ebiten.Vertex
	indices  []uint16

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64 // Rolling average in ms
}

// NewGame wires an ebiten game to a running world loop.
func NewGame(ctx context.Context, loop *simulation.Loop, cfg *simulation.Config, showRegions bool) *Game {
	g := &Game{
		ctx:       ctx,
		loop:      loop,
		lastState: &simulation.WorldSnapshot{}, // Avoid nil pointer
		width:     int(cfg.WorldWidth),
		height:    int(cfg.WorldHeight),
	}
	g.widgetRegions = ui.NewCheckbox(10, 10, fmt.Sprintf("Show %s regions [R]", cfg.Index), showRegions).WithKey(ebiten.KeyR)
	g.widgetPause = ui.NewButton(10, 34, 90, 22, "Pause [P]", g.togglePause)
	return g
}

func (g *Game) togglePause() {
	g.paused = !g.paused
	if g.paused {
		g.widgetPause.Label = "Resume [P]"
	} else {
		g.widgetPause.Label = "Pause [P]"
	}
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.togglePause()
	}
	g.widgetRegions.Update()
	g.widgetPause.Update()

	// Keep the most recent snapshot, non-blocking
	for drained := false; !drained; {
		select {
		case snap := <-g.loop.Snapshots:
			g.lastState = snap
		default:
			drained = true
		}
	}

	if g.paused {
		return nil
	}
	if err := g.loop.Tick(g.ctx, time.Now()); err != nil {
		return fmt.Errorf("sending tick: %w", err)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(background)

	if g.widgetRegions.Value {
		for _, r := range g.lastState.Regions {
			vector.StrokeRect(screen,
				float32(r.Origin.X), float32(r.Origin.Y),
				float32(r.Size.X), float32(r.Size.Y),
				1, regionColor, false)
		}
	}

	g.drawBoids(screen)

	g.widgetRegions.Draw(screen)
	g.widgetPause.Draw(screen)

	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\nTick: %d\nBoids: %d\n\nUpdate: %.2fms\nDraw:   %.2fms",
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		g.lastState.Tick,
		len(g.lastState.Boids),
		g.updateAvg,
		g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, g.width-150, 10)
}

// drawBoids batches every boid triangle into as few draw calls as possible.
func (g *Game) drawBoids(screen *ebiten.Image) {
	g.vertices, g.indices = g.vertices[:0], g.indices[:0]
	for _, b := range g.lastState.Boids {
		if len(g.vertices) >= maxBatchVertices {
			g.flush(screen)
		}
		c := simulation.Palette[b.Color%len(simulation.Palette)]
		r, gr, bl := float32(c.R)/255, float32(c.G)/255, float32(c.B)/255

		base := uint16(len(g.vertices))
		for _, p := range [3][2]float64{
			{b.Orientation, noseLength},
			{b.Orientation + wingAngle, wingLength},
			{b.Orientation - wingAngle, wingLength},
		} {
			g.vertices = append(g.vertices, ebiten.Vertex{
				DstX:   float32(b.Pos.X + math.Cos(p[0])*p[1]),
				DstY:   float32(b.Pos.Y + math.Sin(p[0])*p[1]),
				SrcX:   1,
				SrcY:   1,
				ColorR: r, ColorG: gr, ColorB: bl, ColorA: 1,
			})
		}
		g.indices = append(g.indices, base, base+1, base+2)
	}
	g.flush(screen)
}

func (g *Game) flush(screen *ebiten.Image) {
	if len(g.indices) == 0 {
		return
	}
	screen.DrawTriangles(g.vertices, g.indices, whiteImage, &ebiten.DrawTrianglesOptions{})
	g.vertices, g.indices = g.vertices[:0], g.indices[:0]
}

func (g *Game) Layout(w, h int) (int, int) { return g.width, g.height }
