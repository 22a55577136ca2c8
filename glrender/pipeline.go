package glrender

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glbuild"
)

// PipelineConfig sets up a [Pipeline].
type PipelineConfig struct {
	Params        glvox.Params
	Seed          glvox.Snapshot
	DeltaCapacity int
	Width, Height int
	Palette       Palette
	Light         ms3.Vec
	Background    ms3.Vec
}

// Pipeline coordinates a frame: staged edits are applied by the update pass,
// made visible by its barrier and then rendered by the raytrace pass. All
// methods must be called from the goroutine owning the device.
type Pipeline struct {
	dev     compute.Device
	res     *glbuild.Resources
	oct     *glvox.Octree
	update  *Updater
	rt      *Raytracer
	palette compute.Buffer
	light   ms3.Vec
	bg      ms3.Vec
	width   int
	height  int
	frames  int
}

// NewPipeline allocates the octree, compiles both programs and uploads the
// palette. Any error is a startup failure.
func NewPipeline(dev compute.Device, res *glbuild.Resources, cfg PipelineConfig) (_ *Pipeline, err error) {
	p := &Pipeline{dev: dev, res: res, width: cfg.Width, height: cfg.Height}
	defer func() {
		if err != nil {
			p.Release()
		}
	}()
	p.oct, err = glvox.New(dev, cfg.Params, cfg.Seed)
	if err != nil {
		return nil, err
	}
	updateProg, err := NewUpdateProgram(dev, res)
	if err != nil {
		return nil, &glvox.InitError{Resource: "update program", Err: err}
	}
	p.update, err = NewUpdater(p.oct, updateProg, cfg.DeltaCapacity)
	if err != nil {
		updateProg.Release()
		return nil, err
	}
	rtProg, err := NewRaytraceProgram(dev, res)
	if err != nil {
		return nil, &glvox.InitError{Resource: "raytrace program", Err: err}
	}
	p.rt, err = NewRaytracer(dev, rtProg, cfg.Width, cfg.Height)
	if err != nil {
		rtProg.Release()
		return nil, err
	}
	if err = p.SetLighting(cfg.Light, cfg.Background); err != nil {
		return nil, &glvox.InitError{Resource: "raytrace program", Err: err}
	}
	p.palette, err = cfg.Palette.Upload(dev)
	if err != nil {
		return nil, &glvox.InitError{Resource: "palette buffer", Err: err}
	}
	return p, nil
}

// Octree returns the octree rendered by the pipeline.
func (p *Pipeline) Octree() *glvox.Octree { return p.oct }

// Updater returns the update dispatcher.
func (p *Pipeline) Updater() *Updater { return p.update }

// Raytracer returns the raytrace dispatcher.
func (p *Pipeline) Raytracer() *Raytracer { return p.rt }

// Size returns the output image size.
func (p *Pipeline) Size() (width, height int) { return p.width, p.height }

// Frames returns the number of frames rendered.
func (p *Pipeline) Frames() int { return p.frames }

// SetLighting sets the directional light and the background colour.
func (p *Pipeline) SetLighting(light, background ms3.Vec) error {
	if err := p.rt.SetLighting(light, background); err != nil {
		return err
	}
	p.light, p.bg = light, background
	return nil
}

// Resize reallocates the output image.
func (p *Pipeline) Resize(width, height int) error {
	if width == p.width && height == p.height {
		return nil
	}
	if err := p.rt.Resize(width, height); err != nil {
		return err
	}
	p.width, p.height = width, height
	return nil
}

// Frame applies the edit batch and renders the tree as seen by cam. The
// camera image size is clamped to the output image.
func (p *Pipeline) Frame(cam Camera, deltas []glvox.Delta) error {
	if err := p.update.StageAndApply(deltas, len(deltas)); err != nil {
		return fmt.Errorf("update pass: %w", err)
	}
	cam.ImageWidth = min(cam.ImageWidth, p.width)
	cam.ImageHeight = min(cam.ImageHeight, p.height)
	if err := p.rt.SetCamera(cam); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if err := p.rt.Dispatch(cam.ImageWidth, cam.ImageHeight, 1); err != nil {
		return fmt.Errorf("raytrace pass: %w", err)
	}
	p.frames++
	return nil
}

// Reload recompiles the program built from the named shader. The previous
// program keeps running if compilation fails.
func (p *Pipeline) Reload(name string) error {
	switch name {
	case glbuild.UpdateShader:
		prog, err := NewUpdateProgram(p.dev, p.res)
		if err != nil {
			return err
		}
		p.update.prog.Release()
		p.update.prog = prog
	case glbuild.RaytraceShader:
		prog, err := NewRaytraceProgram(p.dev, p.res)
		if err != nil {
			return err
		}
		if prog.LocalSize()[0] < 1 {
			prog.Release()
			return compute.ErrNoComputeStage
		}
		p.rt.prog.Release()
		p.rt.prog = prog
		p.rt.local = prog.LocalSize()
		if err := p.SetLighting(p.light, p.bg); err != nil {
			return err
		}
	default:
		return nil
	}
	logger.Noticef("reloaded %s", name)
	return nil
}

// Release frees every device resource of the pipeline.
func (p *Pipeline) Release() {
	if p.palette != nil {
		p.palette.Release()
		p.palette = nil
	}
	if p.rt != nil {
		p.rt.prog.Release()
		p.rt.Release()
		p.rt = nil
	}
	if p.update != nil {
		p.update.prog.Release()
		p.update.Release()
		p.update = nil
	}
	if p.oct != nil {
		p.oct.Release()
		p.oct = nil
	}
}
