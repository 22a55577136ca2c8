//go:build gl

package glrender

import (
	"log"
	"os"
	"runtime"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	runtime.LockOSThread()
}

func TestMain(m *testing.M) {
	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		log.Fatal(err)
	}
	code := m.Run()
	terminate()
	os.Exit(code)
}

func parityConfig() PipelineConfig {
	return PipelineConfig{
		Params:        glvox.DemoParams(),
		Seed:          glvox.DemoSnapshot(),
		DeltaCapacity: 64,
		Width:         32,
		Height:        18,
		Palette:       DefaultPalette(),
		Light:         ms3.Vec{X: -1, Y: -2, Z: -1},
		Background:    ms3.Vec{X: 0.5, Y: 0.7, Z: 0.9},
	}
}

func TestGPUParity(t *testing.T) {
	gpu := compute.NewGPU()
	defer gpu.Release()
	res := glbuild.NewResources("")
	glp, err := NewPipeline(gpu, res, parityConfig())
	require.NoError(t, err)
	defer glp.Release()
	cpup, err := NewPipeline(compute.NewCPU(), nil, parityConfig())
	require.NoError(t, err)
	defer cpup.Release()

	p := glvox.DemoParams()
	var deltas []glvox.Delta
	for i := 0; i < 16; i++ {
		world := ms3.Vec{X: -3.9 + float32(i)*0.5, Y: 1.1, Z: 0.3}
		deltas = append(deltas, glvox.Delta{Position: p.Normalize(world), Value: uint32(i % 8)})
	}
	cam := NewCameraBuilder(32).WithOrigin(ms3.Vec{Y: 2, Z: 9}).WithOrientation(0, -0.2).Build()
	require.NoError(t, glp.Frame(cam, deltas))
	require.NoError(t, cpup.Frame(cam, deltas))

	gpuCells, err := glp.Octree().ActiveCells()
	require.NoError(t, err)
	cpuCells, err := cpup.Octree().ActiveCells()
	require.NoError(t, err)
	assert.Equal(t, cpuCells, gpuCells)

	gpuNodes, err := glp.Octree().ReadNodes()
	require.NoError(t, err)
	cpuNodes, err := cpup.Octree().ReadNodes()
	require.NoError(t, err)
	for _, d := range deltas {
		want, _, wok := cpuNodes.Lookup(p.MaxDepth, d.Position)
		got, _, gok := gpuNodes.Lookup(p.MaxDepth, d.Position)
		assert.Equal(t, wok, gok, "delta at %v", d.Position)
		assert.Equal(t, want.Index, got.Index, "delta at %v", d.Position)
	}

	gpuPix, err := glp.Raytracer().ReadImage()
	require.NoError(t, err)
	cpuPix, err := cpup.Raytracer().ReadImage()
	require.NoError(t, err)
	mismatched := 0
	for i := range cpuPix {
		if d := gpuPix[i] - cpuPix[i]; d > 1e-3 || d < -1e-3 {
			mismatched++
		}
	}
	// Voxel edges may round differently on the GPU.
	assert.Less(t, mismatched, len(cpuPix)/50)
}

func TestGPUUniformErrors(t *testing.T) {
	gpu := compute.NewGPU()
	prog, err := NewUpdateProgram(gpu, glbuild.NewResources(""))
	require.NoError(t, err)
	defer prog.Release()
	assert.Equal(t, updateLocalSize, prog.LocalSize())
	assert.ErrorIs(t, prog.SetInt("not_a_uniform", 1), compute.ErrUniformNotFound)
}
