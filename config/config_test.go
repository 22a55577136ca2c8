package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, glvox.DemoParams(), cfg.Params())
	bg, err := cfg.Render.BackgroundColor()
	require.NoError(t, err)
	assert.InDelta(t, 135.0/255, bg.X, 1e-6)
}

func TestDecodeOverDefaults(t *testing.T) {
	src := `
[window]
width = 640

[octree]
max_depth = 6
seed = "empty"

[camera]
origin = [1.0, 2.0, 3.0]
samples_per_pixel = 4

[render]
background = "#102030"
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset keys keep defaults")
	assert.Equal(t, 6, cfg.Params().MaxDepth)
	assert.Equal(t, SeedEmpty, cfg.Octree.Seed)
	assert.Equal(t, ms3.Vec{X: 1, Y: 2, Z: 3}, cfg.Camera.OriginVec())
	assert.Equal(t, 4, cfg.Camera.SamplesPerPixel)
	bg, err := cfg.Render.BackgroundColor()
	require.NoError(t, err)
	assert.InDelta(t, 0x20/255.0, bg.Y, 1e-6)
}

func TestDecodeStrict(t *testing.T) {
	_, err := Decode(strings.NewReader("[octree]\nmax_deph = 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_deph")
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		edit func(*Config)
		want error
	}{
		{"window", func(c *Config) { c.Window.Height = 0 }, ErrWindowSize},
		{"depth", func(c *Config) { c.Octree.MaxDepth = 40 }, glvox.ErrBadDepth},
		{"scale", func(c *Config) { c.Octree.Scale = 0 }, glvox.ErrBadScale},
		{"deltas", func(c *Config) { c.Octree.DeltaCapacity = 0 }, ErrDeltaCapacity},
		{"samples", func(c *Config) { c.Camera.SamplesPerPixel = 0 }, ErrSamples},
		{"bounce", func(c *Config) { c.Camera.MaxBounce = -1 }, ErrBounces},
		{"fov", func(c *Config) { c.Camera.VerticalFOV = 180 }, ErrFOV},
		{"colour name", func(c *Config) { c.Render.Background = "notacolour" }, ErrColor},
		{"colour hex", func(c *Config) { c.Render.Background = "#12345" }, ErrColor},
		{"light", func(c *Config) { c.Render.Light = [3]float32{} }, ErrLight},
		{"exposure", func(c *Config) { c.Render.Exposure = 0 }, ErrExposure},
	} {
		cfg := Default()
		tc.edit(&cfg)
		if err := cfg.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Encode(&buf))
	path := filepath.Join(t.TempDir(), "glvox.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRadians(t *testing.T) {
	c := Camera{Yaw: 180, Pitch: -90, VerticalFOV: 90}
	yaw, pitch, fov := c.Radians()
	assert.InDelta(t, 3.14159265, yaw, 1e-5)
	assert.InDelta(t, -1.5707963, pitch, 1e-5)
	assert.InDelta(t, 0.78539816*2, fov, 1e-5)
}
