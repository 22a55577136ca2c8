// Package config holds the settings of the glvox application, read from a
// TOML file over built in defaults.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/chewxy/math32"
	"github.com/fogleman/fauxgl"
	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"golang.org/x/image/colornames"
)

var (
	ErrWindowSize    = errors.New("config: window size must be positive")
	ErrDeltaCapacity = errors.New("config: delta capacity must be positive")
	ErrSamples       = errors.New("config: samples per pixel must be positive")
	ErrBounces       = errors.New("config: max bounce must not be negative")
	ErrFOV           = errors.New("config: vertical fov must be in (0, 180) degrees")
	ErrColor         = errors.New("config: unknown colour")
	ErrLight         = errors.New("config: light direction must be non zero")
	ErrExposure      = errors.New("config: exposure must be positive")
)

// Seeds accepted by Octree.Seed besides a path to a .ply file.
const (
	SeedEmpty = "empty"
	SeedDemo  = "demo"
	SeedScene = "scene"
)

type Config struct {
	Window  Window  `toml:"window"`
	Octree  Octree  `toml:"octree"`
	Camera  Camera  `toml:"camera"`
	Render  Render  `toml:"render"`
	Shaders Shaders `toml:"shaders"`
}

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Octree struct {
	MinPoint         [3]float32 `toml:"min_point"`
	Scale            float32    `toml:"scale"`
	MaxDepth         int        `toml:"max_depth"`
	CellCapacity     int        `toml:"cell_capacity"`
	MaxTraversalIter int        `toml:"max_traversal_iter"`
	// DeltaCapacity is the largest edit batch staged per frame.
	DeltaCapacity int `toml:"delta_capacity"`
	// Seed selects the initial tree: "empty", "demo", "scene" or a .ply file.
	Seed string `toml:"seed"`
}

type Camera struct {
	Origin [3]float32 `toml:"origin"`
	// Yaw and Pitch are in degrees.
	Yaw             float32 `toml:"yaw"`
	Pitch           float32 `toml:"pitch"`
	VerticalFOV     float32 `toml:"vertical_fov"`
	FocalLength     float32 `toml:"focal_length"`
	SamplesPerPixel int     `toml:"samples_per_pixel"`
	MaxBounce       int     `toml:"max_bounce"`
	// MoveSpeed is in world units per second.
	MoveSpeed float32 `toml:"move_speed"`
	// LookSensitivity is in degrees per cursor pixel.
	LookSensitivity float32 `toml:"look_sensitivity"`
}

type Render struct {
	// Background is a hex colour or an SVG colour name.
	Background string     `toml:"background"`
	Light      [3]float32 `toml:"light"`
	Exposure   float32    `toml:"exposure"`
}

type Shaders struct {
	// Dir overrides the embedded shader sources when not empty.
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	p := glvox.DemoParams()
	return Config{
		Window: Window{Title: "glvox", Width: 1280, Height: 720},
		Octree: Octree{
			MinPoint:         [3]float32{p.MinPoint.X, p.MinPoint.Y, p.MinPoint.Z},
			Scale:            p.Scale,
			MaxDepth:         p.MaxDepth,
			CellCapacity:     p.CellCapacity,
			MaxTraversalIter: p.MaxTraversalIter,
			DeltaCapacity:    1024,
			Seed:             SeedDemo,
		},
		Camera: Camera{
			Origin:          [3]float32{0, 2, 9},
			Pitch:           -12,
			VerticalFOV:     60,
			FocalLength:     1,
			SamplesPerPixel: 1,
			MaxBounce:       2,
			MoveSpeed:       4,
			LookSensitivity: 0.2,
		},
		Render: Render{
			Background: "skyblue",
			Light:      [3]float32{-1, -2, -1},
			Exposure:   1,
		},
	}
}

// Load reads the file at path over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML settings from r over the defaults and validates them.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: %s", strict.String())
		}
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Window.Width < 1 || c.Window.Height < 1 {
		return ErrWindowSize
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Octree.DeltaCapacity < 1 {
		return ErrDeltaCapacity
	}
	if c.Camera.SamplesPerPixel < 1 {
		return ErrSamples
	}
	if c.Camera.MaxBounce < 0 {
		return ErrBounces
	}
	if !(c.Camera.VerticalFOV > 0 && c.Camera.VerticalFOV < 180) {
		return ErrFOV
	}
	if _, err := c.Render.BackgroundColor(); err != nil {
		return err
	}
	if l := c.Render.LightDir(); l == (ms3.Vec{}) {
		return ErrLight
	}
	if !(c.Render.Exposure > 0) {
		return ErrExposure
	}
	return nil
}

// Params returns the octree parameters.
func (c Config) Params() glvox.Params {
	o := c.Octree
	return glvox.Params{
		MinPoint:         vec(o.MinPoint),
		Scale:            o.Scale,
		MaxDepth:         o.MaxDepth,
		CellCapacity:     o.CellCapacity,
		MaxTraversalIter: o.MaxTraversalIter,
	}
}

// OriginVec returns the camera origin.
func (c Camera) OriginVec() ms3.Vec { return vec(c.Origin) }

// Radians returns yaw, pitch and the vertical field of view in radians.
func (c Camera) Radians() (yaw, pitch, fov float32) {
	const k = math32.Pi / 180
	return c.Yaw * k, c.Pitch * k, c.VerticalFOV * k
}

// LightDir returns the light direction.
func (r Render) LightDir() ms3.Vec { return vec(r.Light) }

// BackgroundColor parses the background as a hex colour ("#87ceeb") or a
// colour name ("skyblue") and returns its linear components in [0,1].
func (r Render) BackgroundColor() (ms3.Vec, error) {
	s := strings.TrimSpace(r.Background)
	if strings.HasPrefix(s, "#") {
		if n := len(s) - 1; n != 3 && n != 6 && n != 8 {
			return ms3.Vec{}, fmt.Errorf("%w %q", ErrColor, r.Background)
		}
		c := fauxgl.HexColor(s)
		return ms3.Vec{X: float32(c.R), Y: float32(c.G), Z: float32(c.B)}, nil
	}
	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return ms3.Vec{}, fmt.Errorf("%w %q", ErrColor, r.Background)
	}
	return rgb(c), nil
}

func rgb(c color.RGBA) ms3.Vec {
	return ms3.Vec{X: float32(c.R) / 255, Y: float32(c.G) / 255, Z: float32(c.B) / 255}
}

func vec(a [3]float32) ms3.Vec { return ms3.Vec{X: a[0], Y: a[1], Z: a[2]} }
