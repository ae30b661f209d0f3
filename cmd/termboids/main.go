package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	golog "github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/simulation"
)

// Heading glyphs, clockwise from east with y growing downward.
var arrows = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

type Game struct {
	screen tcell.Screen
	engine *simulation.Engine
	styles [simulation.PaletteSize]tcell.Style
	width  int
	height int
	paused bool
}

func NewGame(engine *simulation.Engine) (*Game, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	g := &Game{screen: screen, engine: engine}
	for i, c := range simulation.Palette {
		g.styles[i] = tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	}
	g.width, g.height = screen.Size()
	return g, nil
}

func glyph(orientation float64) rune {
	octant := int(math.Round(orientation/(math.Pi/4))) % 8
	if octant < 0 {
		octant += 8
	}
	return arrows[octant]
}

func (g *Game) draw() {
	g.screen.Clear()
	cfg := g.engine.Config()
	rows := g.height - 1 // last row is the status line
	for _, b := range g.engine.Boids() {
		x := int(b.Pos.X / cfg.WorldWidth * float64(g.width))
		y := int(b.Pos.Y / cfg.WorldHeight * float64(rows))
		if x < 0 || x >= g.width || y < 0 || y >= rows {
			continue
		}
		g.screen.SetContent(x, y, glyph(b.Orientation), nil, g.styles[b.Color%len(g.styles)])
	}

	status := fmt.Sprintf(" tick %d | %d boids | %s index | p pause | esc quit ",
		g.engine.Ticks(), len(g.engine.Boids()), cfg.Index)
	if g.paused {
		status += "| PAUSED "
	}
	for i, r := range status {
		if i >= g.width {
			break
		}
		g.screen.SetContent(i, g.height-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
	g.screen.Show()
}

// handleInput returns false when the game should stop.
func (g *Game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
			return false
		}
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'p' {
			g.paused = !g.paused
		}
	case *tcell.EventResize:
		g.width, g.height = g.screen.Size()
		g.screen.Sync()
	}
	return true
}

func (g *Game) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return
			}
		case <-ticker.C:
			if !g.paused {
				g.engine.Tick()
			}
			g.draw()
		}
	}
}

func main() {
	configFile := flag.String("config", "", "path to a .json or .toml configuration file")
	index := flag.String("index", "", "spatial index override: grid or quadtree")
	logFile := flag.String("log", "", "write logs to this file (the terminal is taken by the display)")
	flag.Parse()

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logger := golog.New(golog.InfoLevel, out)

	cfg, err := simulation.LoadOrDefault(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *index != "" {
		cfg.UseIndex(simulation.IndexKind(*index))
	}
	engine, err := simulation.NewEngine(cfg, simulation.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	g, err := NewGame(engine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	g.run(cfg.TickInterval())
	g.screen.Fini()
}
