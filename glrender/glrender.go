// Package glrender runs the octree pipeline on a compute device: the update
// pass applying staged edits to the node buffer and the raytrace pass
// rendering the tree into an image, with the barriers ordering them.
package glrender

import (
	"fmt"

	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glbuild"
	"github.com/soypat/glvox/log"
)

var logger = log.New("glrender")

const (
	// UpdateBarrier makes node buffer and counter writes of the update pass
	// visible to later shader reads and buffer read backs.
	UpdateBarrier = compute.BarrierShaderStorage | compute.BarrierAtomicCounter | compute.BarrierBufferUpdate
	// RaytraceBarrier makes output image writes visible to sampling and
	// texture read backs.
	RaytraceBarrier = compute.BarrierShaderImageAccess | compute.BarrierTextureFetch | compute.BarrierTextureUpdate
)

var (
	updateAccess = compute.Access{
		Reads:  compute.ResStorage | compute.ResCounter,
		Writes: compute.ResStorage | compute.ResCounter,
	}
	raytraceAccess = compute.Access{
		Reads:  compute.ResStorage,
		Writes: compute.ResImage,
	}
)

// CPU work group sizes match the local sizes declared by the GLSL programs.
var (
	updateLocalSize   = [3]int{64, 1, 1}
	raytraceLocalSize = [3]int{8, 8, 1}
)

// NewUpdateProgram builds the update program for dev. GPU devices compile
// the update shader found by res; CPU devices use the equivalent Go kernel.
func NewUpdateProgram(dev compute.Device, res *glbuild.Resources) (compute.Program, error) {
	switch d := dev.(type) {
	case *compute.GPU:
		src, err := res.Program(glbuild.UpdateShader)
		if err != nil {
			return nil, err
		}
		prog, err := d.CompileProgram("update", src, updateAccess)
		if err != nil {
			return nil, err
		}
		return prog, nil
	case *compute.CPU:
		return compute.NewCPUProgram("update", updateLocalSize, updateAccess, map[string]compute.UniformKind{
			"delta_count": compute.UniformInt,
		}, updateKernel), nil
	}
	return nil, fmt.Errorf("glrender: unsupported device %T", dev)
}

// NewRaytraceProgram builds the raytrace program for dev.
func NewRaytraceProgram(dev compute.Device, res *glbuild.Resources) (compute.Program, error) {
	switch d := dev.(type) {
	case *compute.GPU:
		src, err := res.Program(glbuild.RaytraceShader)
		if err != nil {
			return nil, err
		}
		prog, err := d.CompileProgram("raytrace", src, raytraceAccess)
		if err != nil {
			return nil, err
		}
		return prog, nil
	case *compute.CPU:
		uniforms := map[string]compute.UniformKind{
			"light_dir":  compute.UniformVec3,
			"background": compute.UniformVec3,
		}
		for _, name := range cameraVec3Uniforms {
			uniforms[name] = compute.UniformVec3
		}
		for _, name := range cameraIntUniforms {
			uniforms[name] = compute.UniformInt
		}
		return compute.NewCPUProgram("raytrace", raytraceLocalSize, raytraceAccess, uniforms, raytraceKernel), nil
	}
	return nil, fmt.Errorf("glrender: unsupported device %T", dev)
}

func updateKernel(inv *compute.Invocation) {
	id := inv.GlobalID[0]
	if int64(id) >= int64(inv.Int("delta_count")) {
		return
	}
	words := inv.Storage(glvox.BindingDeltas)
	d := glvox.DecodeDelta(words[id*glvox.DeltaWords:])
	p, _ := glvox.DecodeBlock(inv.UniformBlock(glvox.BindingParams))
	glvox.ApplyDelta(inv.Storage(glvox.BindingNodes), inv.Counter(glvox.BindingCounter), p, d)
}

func raytraceKernel(inv *compute.Invocation) {
	x, y := int(inv.GlobalID[0]), int(inv.GlobalID[1])
	cam := Camera{
		Origin:          inv.Vec3("camera.origin"),
		LowerLeftCorner: inv.Vec3("camera.lower_left_corner"),
		Horizontal:      inv.Vec3("camera.horizontal"),
		Vertical:        inv.Vec3("camera.vertical"),
		ImageWidth:      int(inv.Int("camera.image_width")),
		ImageHeight:     int(inv.Int("camera.image_height")),
		SamplesPerPixel: int(inv.Int("camera.samples_per_pixel")),
		MaxBounce:       int(inv.Int("camera.max_bounce")),
	}
	if x >= cam.ImageWidth || y >= cam.ImageHeight {
		return
	}
	p, _ := glvox.DecodeBlock(inv.UniformBlock(glvox.BindingParams))
	scene := Scene{
		Nodes:      glvox.Nodes(inv.Storage(glvox.BindingNodes)),
		Params:     p,
		Palette:    inv.Storage(glvox.BindingPalette),
		Light:      inv.Vec3("light_dir"),
		Background: inv.Vec3("background"),
	}
	c := scene.TracePixel(cam, x, y)
	inv.ImageStore(glvox.ImageUnitOutput, x, y, [4]float32{c.X, c.Y, c.Z, 1})
}
