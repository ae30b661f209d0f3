package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lao-tseu-is-alive/go-flock-index/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-index/pkg/geometry"
)

// ErrInvalidConfig is returned when a configuration cannot start a simulation.
var ErrInvalidConfig = errors.New("invalid configuration")

// IndexKind selects the spatial index implementation.
type IndexKind string

const (
	IndexGrid     IndexKind = "grid"
	IndexQuadtree IndexKind = "quadtree"
)

// Consistency selects when index membership catches up with boid motion.
type Consistency string

const (
	// MutateInPlace relocates each boid in the index right after it moves.
	// Boids processed later in the tick see a mix of moved and unmoved
	// neighbors, so results depend on iteration order.
	MutateInPlace Consistency = "mutate-in-place"
	// Snapshot computes every boid's forces against a frozen index, then
	// applies motion and membership in a second phase.
	Snapshot Consistency = "snapshot"
)

//go:embed config.schema.json
var configSchema string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("config.schema.json", configSchema)
})

type Config struct {
	// World Dimensions
	WorldWidth  float64 `json:"worldWidth"`
	WorldHeight float64 `json:"worldHeight"`

	// Population
	NumBoids int    `json:"numBoids"`
	Seed     uint64 `json:"seed"` // 0 picks a random seed

	// Spatial index
	Index             IndexKind   `json:"index"`
	Consistency       Consistency `json:"consistency"` // empty: grid mutates in place, quadtree snapshots
	CellSize          float64     `json:"cellSize"`
	NodeCapacity      int         `json:"nodeCapacity"`
	RebuildIntervalMs int         `json:"rebuildIntervalMs"` // quadtree rebuild throttle
	Workers           int         `json:"workers"`           // force computation goroutines, snapshot only
	StrictIndex       bool        `json:"strictIndex"`       // panic on index consistency violations

	// Physics / Behavior
	SightRadius      float64 `json:"sightRadius"`
	MaxSpeed         float64 `json:"maxSpeed"`
	EdgeMargin       float64 `json:"edgeMargin"`
	TurnFactor       float64 `json:"turnFactor"`
	AlignmentWeight  float64 `json:"alignmentWeight"`
	CohesionWeight   float64 `json:"cohesionWeight"`
	SeparationWeight float64 `json:"separationWeight"`
	SeparationRadius float64 `json:"separationRadius"`
	MaxFlockSize     int     `json:"maxFlockSize"`

	FPS int `json:"fps"`
}

func DefaultConfig() *Config {
	return &Config{
		WorldWidth:        1800,
		WorldHeight:       1000,
		NumBoids:          250,
		Index:             IndexGrid,
		CellSize:          60,
		NodeCapacity:      4,
		RebuildIntervalMs: 5,
		Workers:           1,
		SightRadius:       100,
		MaxSpeed:          5,
		EdgeMargin:        100,
		TurnFactor:        0.25,
		AlignmentWeight:   1,
		CohesionWeight:    0.05,
		SeparationWeight:  0.02,
		SeparationRadius:  40,
		MaxFlockSize:      10,
		FPS:               60,
	}
}

// LoadConfig loads a JSON or TOML file over the defaults, validates the
// document against the embedded schema, then checks the resulting values.
func LoadConfig(configFile string) (*Config, error) {
	// 1. Parse into a generic document
	var doc interface{}
	switch ext := strings.ToLower(filepath.Ext(configFile)); ext {
	case ".json":
		b, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if doc, err = decodeJSON(b); err != nil {
			return nil, fmt.Errorf("failed to decode config json: %w", err)
		}
	case ".toml":
		var raw map[string]interface{}
		if _, err := toml.DecodeFile(configFile, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode config toml: %w", err)
		}
		// Round-trip through JSON so the schema sees the same value types as for .json files
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize config toml: %w", err)
		}
		if doc, err = decodeJSON(b); err != nil {
			return nil, fmt.Errorf("failed to normalize config toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, ext)
	}

	// 2. Validate against the schema
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// 3. Overlay on the defaults
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault returns the defaults when configFile is empty, else LoadConfig.
func LoadOrDefault(configFile string) (*Config, error) {
	if configFile == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(configFile)
}

func decodeJSON(b []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate reports the first setting that makes the simulation impossible to start.
func (c *Config) Validate() error {
	switch {
	case c.WorldWidth <= 0 || c.WorldHeight <= 0:
		return fmt.Errorf("%w: world dimensions must be positive, got %vx%v", ErrInvalidConfig, c.WorldWidth, c.WorldHeight)
	case c.NumBoids < 0:
		return fmt.Errorf("%w: numBoids must not be negative, got %d", ErrInvalidConfig, c.NumBoids)
	case c.SightRadius <= 0:
		return fmt.Errorf("%w: sightRadius must be positive, got %v", ErrInvalidConfig, c.SightRadius)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("%w: maxSpeed must be positive, got %v", ErrInvalidConfig, c.MaxSpeed)
	case c.MaxFlockSize <= 0:
		return fmt.Errorf("%w: maxFlockSize must be positive, got %d", ErrInvalidConfig, c.MaxFlockSize)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.RebuildIntervalMs < 0:
		return fmt.Errorf("%w: rebuildIntervalMs must not be negative, got %d", ErrInvalidConfig, c.RebuildIntervalMs)
	}

	switch c.Index {
	case IndexGrid:
		if c.CellSize <= 0 {
			return fmt.Errorf("%w: cellSize must be positive, got %v", ErrInvalidConfig, c.CellSize)
		}
	case IndexQuadtree:
		if c.NodeCapacity <= 0 {
			return fmt.Errorf("%w: nodeCapacity must be positive, got %d", ErrInvalidConfig, c.NodeCapacity)
		}
	default:
		return fmt.Errorf("%w: unknown index %q", ErrInvalidConfig, c.Index)
	}

	switch c.Consistency {
	case "", MutateInPlace, Snapshot:
	default:
		return fmt.Errorf("%w: unknown consistency %q", ErrInvalidConfig, c.Consistency)
	}
	policy := c.EffectiveConsistency()
	if c.Index == IndexQuadtree && policy == MutateInPlace {
		return fmt.Errorf("%w: the quadtree is rebuilt from snapshots and cannot mutate in place", ErrInvalidConfig)
	}
	if c.Workers > 1 && policy != Snapshot {
		return fmt.Errorf("%w: %d workers need the snapshot consistency", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// UseIndex switches to kind and resets the consistency to that index's
// default, or to Snapshot when several workers are configured.
func (c *Config) UseIndex(kind IndexKind) {
	if c.Index == kind {
		return
	}
	c.Index, c.Consistency = kind, ""
	if c.Workers > 1 {
		c.Consistency = Snapshot
	}
}

// EffectiveConsistency resolves an empty Consistency to the index default.
func (c Config) EffectiveConsistency() Consistency {
	if c.Consistency != "" {
		return c.Consistency
	}
	if c.Index == IndexQuadtree {
		return Snapshot
	}
	return MutateInPlace
}

// World returns the simulated region.
func (c Config) World() geometry.Rect {
	return geometry.NewRect(0, 0, c.WorldWidth, c.WorldHeight)
}

// RebuildInterval is the minimum delay between two quadtree rebuilds.
func (c Config) RebuildInterval() time.Duration {
	return time.Duration(c.RebuildIntervalMs) * time.Millisecond
}

// TickInterval is the wall-clock duration of one frame.
func (c Config) TickInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FPS)
}

// Settings extracts the flocking rules handed to the behavior package.
func (c Config) Settings() behavior.Settings {
	return behavior.Settings{
		AlignmentWeight:  c.AlignmentWeight,
		CohesionWeight:   c.CohesionWeight,
		SeparationWeight: c.SeparationWeight,
		SeparationRadius: c.SeparationRadius,
		EdgeMargin:       c.EdgeMargin,
		TurnFactor:       c.TurnFactor,
		MaxSpeed:         c.MaxSpeed,
		MaxFlockSize:     c.MaxFlockSize,
		World:            c.World(),
	}
}
