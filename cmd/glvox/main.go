package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "glvox"
	app.Usage = "edit and raytrace sparse voxel octrees on the GPU"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML settings file applied over the defaults",
		},
		cli.StringFlag{
			Name:  "seed",
			Usage: `initial tree: "empty", "demo", "scene" or a .ply file`,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "open a window and fly around the tree",
			Description: `
Open an OpenGL 4.6 window rendering the octree with compute shaders.

WASD move, space/ctrl rise and sink, shift doubles the speed. Hold the right
mouse button to look around. The left mouse button sets a voxel in front of
the camera and X clears it. Escape quits.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "shaders",
					Usage: "directory overriding the embedded shaders",
				},
				cli.BoolFlag{
					Name:  "hot-reload",
					Usage: "recompile shaders from the override directory when they change",
				},
			},
			Action: Run,
		},
		{
			Name:  "render",
			Usage: "render a single frame without a window",
			Description: `
Raytrace the tree on the CPU with the same algorithms as the compute shaders
and write the frame as PNG or TIFF, selected by the output extension.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 640,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 360,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Usage: "samples per pixel, overrides the settings file",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Usage: "exposure for tone mapping, overrides the settings file",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			},
			Action: RenderFrame,
		},
		{
			Name:  "bench",
			Usage: "time edit and render frames on the CPU device",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "frames",
					Value: 60,
					Usage: "number of frames",
				},
				cli.IntFlag{
					Name:  "edits",
					Value: 256,
					Usage: "random edits applied per frame",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 160,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 90,
					Usage: "frame height",
				},
				cli.Int64Flag{
					Name:  "rand-seed",
					Value: 1,
					Usage: "seed of the edit generator",
				},
				cli.StringFlag{
					Name:  "hist",
					Usage: "write a frame time histogram to this PNG file",
				},
			},
			Action: Bench,
		},
		{
			Name:  "info",
			Usage: "describe the seed tree and, with --gpu, the driver limits",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "gpu",
					Usage: "create a GL context and list compute limits",
				},
			},
			Action: Info,
		},
		{
			Name:  "export",
			Usage: "write the seed tree surface as a binary STL mesh",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "voxels.stl",
					Usage: "STL filename",
				},
			},
			Action: Export,
		},
		{
			Name:   "config",
			Usage:  "print the effective settings as TOML",
			Action: PrintConfig,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
