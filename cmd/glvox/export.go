package main

import (
	"errors"

	"github.com/soypat/glvox"
	"github.com/soypat/glvox/mesh"
	"github.com/urfave/cli"
)

// Export writes the leaf voxels of the seed tree as a binary STL mesh.
func Export(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	sc, err := loadScene(cfg)
	if err != nil {
		return err
	}
	model := mesh.Voxels(glvox.Nodes(sc.seed.AppendWords(nil)), sc.params)
	if len(model) == 0 {
		return errors.New("seed tree has no leaf voxels to export")
	}
	out := ctx.String("out")
	if err := mesh.CreateSTL(out, model); err != nil {
		return err
	}
	logger.Noticef("wrote %d triangles to %s", len(model), out)
	return nil
}
