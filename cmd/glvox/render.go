package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glrender"
	"github.com/urfave/cli"
	"golang.org/x/image/tiff"
)

// RenderFrame renders a still frame on the CPU device.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if spp := ctx.Int("spp"); spp > 0 {
		cfg.Camera.SamplesPerPixel = spp
	}
	if exp := ctx.Float64("exposure"); exp > 0 {
		cfg.Render.Exposure = float32(exp)
	}
	width, height := ctx.Int("width"), ctx.Int("height")
	if width < 1 || height < 1 {
		return fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	sc, err := loadScene(cfg)
	if err != nil {
		return err
	}
	pc, err := pipelineConfig(cfg, sc, width, height)
	if err != nil {
		return err
	}
	pl, err := glrender.NewPipeline(compute.NewCPU(), nil, pc)
	if err != nil {
		return err
	}
	defer pl.Release()

	cam := cameraBuilder(cfg, width, height).Build()
	start := time.Now()
	if err := pl.Frame(cam, nil); err != nil {
		return err
	}
	pix, err := pl.Raytracer().ReadImage()
	if err != nil {
		return err
	}
	logger.Noticef("rendered %dx%d frame with %d spp in %d ms", width, height, cam.SamplesPerPixel, time.Since(start).Milliseconds())

	out := ctx.String("out")
	img := glrender.ToImage(pix, width, height, cfg.Render.Exposure)
	if err := writeImage(out, img); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", out)
	return nil
}

func writeImage(path string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return glrender.SavePNG(path, img)
	case ".tif", ".tiff":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("unsupported image format %q", filepath.Ext(path))
}
