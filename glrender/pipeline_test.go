package glrender

import (
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioParams() glvox.Params {
	return glvox.Params{
		Scale:            8,
		MaxDepth:         3,
		CellCapacity:     100,
		MaxTraversalIter: 30,
	}
}

func newCPUPipeline(t *testing.T, p glvox.Params, deltaCap int) (*compute.CPU, *Pipeline) {
	t.Helper()
	dev := compute.NewCPU()
	pl, err := NewPipeline(dev, nil, PipelineConfig{
		Params:        p,
		DeltaCapacity: deltaCap,
		Width:         8,
		Height:        6,
		Light:         ms3.Vec{X: -1, Y: -1, Z: -1},
		Background:    ms3.Vec{X: 0.1, Y: 0.2, Z: 0.3},
	})
	require.NoError(t, err)
	t.Cleanup(pl.Release)
	return dev, pl
}

func testCamera() Camera {
	return NewCameraBuilder(8).WithImageSize(8, 6).WithOrigin(ms3.Vec{X: 4, Y: 4, Z: 20}).Build()
}

func ops(cmds []compute.Command) []string {
	var s []string
	for _, c := range cmds {
		s = append(s, c.Op)
	}
	return s
}

func TestPipelineScenario(t *testing.T) {
	p := scenarioParams()
	dev, pl := newCPUPipeline(t, p, 16)
	dev.ResetCommands()
	err := pl.Frame(testCamera(), []glvox.Delta{{Position: p.Normalize(ms3.Vec{X: 1, Y: 1, Z: 1}), Value: 5}})
	require.NoError(t, err)

	cmds := dev.Commands()
	require.Equal(t, []string{"write", "dispatch", "barrier", "dispatch", "barrier"}, ops(cmds))
	assert.Equal(t, "update", cmds[1].Program)
	assert.Equal(t, UpdateBarrier, cmds[2].Barrier)
	assert.Equal(t, "raytrace", cmds[3].Program)
	assert.Equal(t, RaytraceBarrier, cmds[4].Barrier)
	assert.Zero(t, dev.Pending())

	oct := pl.Octree()
	active, err := oct.ActiveCells()
	require.NoError(t, err)
	assert.Equal(t, 3, active)
	nodes, err := oct.ReadNodes()
	require.NoError(t, err)
	leaf, _, ok := nodes.Lookup(p.MaxDepth, p.Normalize(ms3.Vec{X: 1, Y: 1, Z: 1}))
	require.True(t, ok)
	assert.EqualValues(t, 5, leaf.Index)
	_, _, ok = nodes.Lookup(p.MaxDepth, p.Normalize(ms3.Vec{X: 7, Y: 7, Z: 7}))
	assert.False(t, ok)
	assert.Equal(t, 1, pl.Frames())
}

func TestPipelineCapacityDrop(t *testing.T) {
	p := scenarioParams()
	p.CellCapacity = 2
	_, pl := newCPUPipeline(t, p, 4)
	pos := p.Normalize(ms3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, pl.Frame(testCamera(), []glvox.Delta{{Position: pos, Value: 5}}))

	active, err := pl.Updater().CheckCapacity()
	require.NoError(t, err)
	assert.Equal(t, 2, active)
	nodes, err := pl.Octree().ReadNodes()
	require.NoError(t, err)
	_, _, ok := nodes.Lookup(p.MaxDepth, pos)
	assert.False(t, ok, "dropped edit must not be visible")
	assert.Equal(t, glvox.Slot{Index: 1, Tag: glvox.TagParent}, nodes.Slot(0, 0))
	for oct := uint8(0); oct < glvox.CellSlots; oct++ {
		assert.Equal(t, glvox.TagEmpty, nodes.Slot(1, oct).Tag, "slot %d of cell 1", oct)
	}
}

func TestUpdaterBatches(t *testing.T) {
	p := scenarioParams()
	dev, pl := newCPUPipeline(t, p, 80)
	u := pl.Updater()
	assert.Equal(t, 80, u.Capacity())

	dev.ResetCommands()
	require.NoError(t, u.StageAndApply(nil, 0))
	assert.Empty(t, dev.Commands(), "empty batch issues no command")

	big := make([]glvox.Delta, 81)
	err := u.StageAndApply(big, len(big))
	assert.ErrorIs(t, err, glvox.ErrDeltaCapacity)
	assert.ErrorIs(t, u.StageAndApply(big[:2], 3), ErrBadCount)
	assert.ErrorIs(t, u.StageAndApply(big, -1), ErrBadCount)
	assert.Empty(t, dev.Commands(), "rejected batches issue no command")

	batch := make([]glvox.Delta, 65)
	for i := range batch {
		batch[i] = glvox.Delta{Position: ms3.Vec{X: float32(i) / 65, Y: 0.5, Z: 0.5}, Value: 1}
	}
	require.NoError(t, u.UpdateVBO(batch, len(batch)))
	cmds := dev.Commands()
	require.Equal(t, []string{"write", "dispatch", "barrier"}, ops(cmds))
	assert.Equal(t, 65*glvox.DeltaWords, cmds[0].Words)
	assert.EqualValues(t, glvox.BindingDeltas, cmds[0].Binding)
	assert.Equal(t, [3]uint32{2, 1, 1}, cmds[1].Groups)
	dispatches, staged := u.Staged()
	assert.Equal(t, 1, dispatches)
	assert.Equal(t, 65, staged)
}

func TestMissingUpdateBarrier(t *testing.T) {
	p := scenarioParams()
	dev, pl := newCPUPipeline(t, p, 4)
	u := pl.Updater()
	require.NoError(t, u.prog.SetInt("delta_count", 0))
	require.NoError(t, dev.Dispatch(u.prog, [3]uint32{1, 1, 1}))
	err := pl.Raytracer().Dispatch(8, 6, 1)
	assert.ErrorIs(t, err, compute.ErrHazard)
	dev.Barrier(UpdateBarrier)
	assert.NoError(t, pl.Raytracer().Dispatch(8, 6, 1))
}

func TestRaytraceMissIsBackground(t *testing.T) {
	_, pl := newCPUPipeline(t, scenarioParams(), 4)
	require.NoError(t, pl.Frame(testCamera(), nil))
	pix, err := pl.Raytracer().ReadImage()
	require.NoError(t, err)
	require.Len(t, pix, 4*8*6)
	for i := 0; i < len(pix); i += 4 {
		assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3, 1}, pix[i:i+4], 1e-6, "texel %d", i/4)
	}
}

func TestRaytraceSeededScene(t *testing.T) {
	dev := compute.NewCPU()
	pl, err := NewPipeline(dev, nil, PipelineConfig{
		Params:        glvox.DemoParams(),
		Seed:          glvox.DemoSnapshot(),
		DeltaCapacity: 4,
		Width:         16,
		Height:        9,
		Palette:       DefaultPalette(),
		Light:         ms3.Vec{X: -1, Y: -2, Z: -1},
	})
	require.NoError(t, err)
	defer pl.Release()
	// Looking down at the checker from an empty octant of the upper layer.
	cam := NewCameraBuilder(16).WithViewportHeight(0.2).
		WithOrigin(ms3.Vec{X: 3, Y: 3, Z: 3}).WithOrientation(0, -1.5).Build()
	require.Equal(t, 9, cam.ImageHeight)
	require.NoError(t, pl.Frame(cam, nil))
	pix, err := pl.Raytracer().ReadImage()
	require.NoError(t, err)
	for i := 0; i < len(pix); i += 4 {
		assert.Greater(t, pix[i]+pix[i+1]+pix[i+2], float32(0), "texel %d", i/4)
		assert.Equal(t, float32(1), pix[i+3])
	}
}

func TestPipelineReload(t *testing.T) {
	_, pl := newCPUPipeline(t, scenarioParams(), 4)
	require.NoError(t, pl.Reload(glbuild.RaytraceShader))
	require.NoError(t, pl.Reload(glbuild.UpdateShader))
	require.NoError(t, pl.Reload("blit.frag"))
	require.NoError(t, pl.Frame(testCamera(), nil))
	pix, err := pl.Raytracer().ReadImage()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3, 1}, pix[:4], 1e-6, "lighting survives reload")
}

func TestPipelineResize(t *testing.T) {
	_, pl := newCPUPipeline(t, scenarioParams(), 4)
	require.NoError(t, pl.Resize(4, 3))
	w, h := pl.Size()
	assert.Equal(t, [2]int{4, 3}, [2]int{w, h})
	// The camera is clamped to the output image.
	require.NoError(t, pl.Frame(testCamera(), nil))
	pix, err := pl.Raytracer().ReadImage()
	require.NoError(t, err)
	assert.Len(t, pix, 4*4*3)
}
