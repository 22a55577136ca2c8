package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/soypat/glvox"
	"github.com/soypat/glvox/config"
	"github.com/soypat/glvox/glrender"
	"github.com/soypat/glvox/internal/ply"
	"github.com/soypat/glvox/log"
	"github.com/urfave/cli"
)

var logger = log.New("glvox")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}
	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// loadConfig reads the settings file, if any, and applies global overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if seed := ctx.GlobalString("seed"); seed != "" {
		cfg.Octree.Seed = seed
	}
	return cfg, cfg.Validate()
}

// scene is the initial content of the tree.
type scene struct {
	params  glvox.Params
	seed    glvox.Snapshot
	palette glrender.Palette
}

func loadScene(cfg config.Config) (scene, error) {
	sc := scene{params: cfg.Params(), palette: glrender.DefaultPalette()}
	switch seed := cfg.Octree.Seed; {
	case seed == config.SeedEmpty:
	case seed == config.SeedDemo:
		sc.seed = glvox.DemoSnapshot()
	case seed == config.SeedScene:
		snap, err := glvox.DemoScene()
		if err != nil {
			return sc, err
		}
		sc.seed = snap
	case strings.HasSuffix(strings.ToLower(seed), ".ply"):
		return loadCloud(sc, seed, cfg)
	default:
		if _, err := os.Stat(seed); err != nil {
			return sc, fmt.Errorf("unknown seed %q", seed)
		}
		return sc, errors.New("seed files must have the .ply extension")
	}
	return sc, nil
}

// loadCloud replaces the octree placement with one fitted to the cloud so
// each point fills one leaf voxel, then places the tree in the configured
// root cube.
func loadCloud(sc scene, path string, cfg config.Config) (scene, error) {
	cloud, err := ply.Load(path)
	if err != nil {
		return sc, err
	}
	p := cloud.FitParams(cfg.Octree.CellCapacity, cfg.Octree.MaxTraversalIter)
	if err := p.Validate(); err != nil {
		return sc, fmt.Errorf("%s does not fit an octree: %w", path, err)
	}
	base := uint32(len(sc.palette))
	for _, c := range cloud.Colors {
		sc.palette = append(sc.palette, glrender.NewMaterial(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]), glvox.Lambertian, 0))
	}
	b, err := glvox.NewBuilder(p)
	if err != nil {
		return sc, err
	}
	applied := b.Apply(cloud.Deltas(p, base)...)
	if dropped := b.Results(glvox.EditDropped); dropped > 0 {
		logger.Warningf("%s: %d of %d voxels dropped, cell capacity %d reached", path, dropped, len(cloud.Voxels), p.CellCapacity)
	}
	logger.Infof("%s: %d voxels in %d cells, depth %d", path, applied, b.ActiveCells(), p.MaxDepth)
	// Rescale the fitted tree into the configured root cube.
	root := cfg.Params()
	p.MinPoint, p.Scale = root.MinPoint, root.Scale
	sc.params = p
	sc.seed = b.Snapshot()
	return sc, nil
}

func cameraBuilder(cfg config.Config, width, height int) *glrender.CameraBuilder {
	yaw, pitch, fov := cfg.Camera.Radians()
	return glrender.NewCameraBuilder(width).
		WithImageSize(width, height).
		WithFocalLength(cfg.Camera.FocalLength).
		WithVerticalFOV(fov).
		WithOrigin(cfg.Camera.OriginVec()).
		WithOrientation(yaw, pitch).
		WithSamples(cfg.Camera.SamplesPerPixel, cfg.Camera.MaxBounce)
}

func pipelineConfig(cfg config.Config, sc scene, width, height int) (glrender.PipelineConfig, error) {
	bg, err := cfg.Render.BackgroundColor()
	if err != nil {
		return glrender.PipelineConfig{}, err
	}
	return glrender.PipelineConfig{
		Params:        sc.params,
		Seed:          sc.seed,
		DeltaCapacity: cfg.Octree.DeltaCapacity,
		Width:         width,
		Height:        height,
		Palette:       sc.palette,
		Light:         cfg.Render.LightDir(),
		Background:    bg,
	}, nil
}

// PrintConfig writes the effective settings to stdout.
func PrintConfig(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return cfg.Encode(os.Stdout)
}
