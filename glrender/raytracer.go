package glrender

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
)

// Raytracer dispatches the raytrace program over an output image.
type Raytracer struct {
	dev   compute.Device
	prog  compute.Program
	local [3]int
	img   compute.Image
	pix   []float32
}

// NewRaytracer allocates a width x height output image. The local work group
// size is read once from the program.
func NewRaytracer(dev compute.Device, prog compute.Program, width, height int) (*Raytracer, error) {
	local := prog.LocalSize()
	if local[0] < 1 || local[1] < 1 || local[2] < 1 {
		return nil, &glvox.InitError{Resource: "raytrace program", Err: compute.ErrNoComputeStage}
	}
	rt := &Raytracer{dev: dev, prog: prog, local: local}
	if err := rt.Resize(width, height); err != nil {
		return nil, &glvox.InitError{Resource: "output image", Err: err}
	}
	return rt, nil
}

// Resize reallocates the output image.
func (rt *Raytracer) Resize(width, height int) error {
	img, err := rt.dev.NewImage(glvox.ImageUnitOutput, width, height)
	if err != nil {
		return err
	}
	if rt.img != nil {
		rt.img.Release()
	}
	rt.img = img
	return nil
}

// Image returns the output image.
func (rt *Raytracer) Image() compute.Image { return rt.img }

// Texture returns the GL texture of the output image for compositing, or
// zero on devices without textures.
func (rt *Raytracer) Texture() uint32 { return compute.Texture(rt.img) }

// SetCamera pushes the camera uniforms.
func (rt *Raytracer) SetCamera(cam Camera) error {
	return cam.SetUniforms(rt.prog)
}

// SetLighting sets the directional light and the miss colour.
func (rt *Raytracer) SetLighting(lightDir, background ms3.Vec) error {
	if err := rt.prog.SetVec3("light_dir", lightDir); err != nil {
		return err
	}
	return rt.prog.SetVec3("background", background)
}

// Dispatch runs one invocation per output texel in groups of the program
// local size, then issues the barrier making the image visible to sampling.
func (rt *Raytracer) Dispatch(width, height, depth int) error {
	w, h := rt.img.Size()
	if width > w || height > h {
		return fmt.Errorf("glrender: dispatch %dx%d exceeds output image %dx%d", width, height, w, h)
	}
	groups := compute.GroupCount([3]int{width, height, depth}, rt.local)
	if err := rt.dev.Dispatch(rt.prog, groups); err != nil {
		return err
	}
	rt.dev.Barrier(RaytraceBarrier)
	return nil
}

// ReadImage reads back the output image as rgba floats, rows bottom up.
func (rt *Raytracer) ReadImage() ([]float32, error) {
	w, h := rt.img.Size()
	if cap(rt.pix) < 4*w*h {
		rt.pix = make([]float32, 4*w*h)
	}
	rt.pix = rt.pix[:4*w*h]
	if err := rt.dev.ReadImage(rt.img, rt.pix); err != nil {
		return nil, err
	}
	return rt.pix, nil
}

// Release frees the output image.
func (rt *Raytracer) Release() {
	if rt.img != nil {
		rt.img.Release()
		rt.img = nil
	}
}
