package glvox

import (
	"testing"

	"github.com/deadsy/sdfx/sdf"
	"github.com/soypat/glgl/math/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoxelizeSphere(t *testing.T) {
	p := Params{MinPoint: ms3.Vec{X: -2, Y: -2, Z: -2}, Scale: 4, MaxDepth: 4, CellCapacity: 4096, MaxTraversalIter: 64}
	ball, err := sdf.Sphere3D(1)
	require.NoError(t, err)

	solid, err := NewBuilder(p)
	require.NoError(t, err)
	nSolid := Voxelize(solid, ball, 2, false)
	shell, err := NewBuilder(p)
	require.NoError(t, err)
	nShell := Voxelize(shell, ball, 2, true)

	assert.Positive(t, nShell)
	assert.Less(t, nShell, nSolid)
	assert.Equal(t, nSolid, solid.Results(EditApplied))

	// Voxel size is 0.25: the voxel centered at (0.125,0.125,0.125) is inside.
	leaf, _, ok := solid.Nodes().Lookup(p.MaxDepth, p.Normalize(ms3.Vec{X: 0.1, Y: 0.1, Z: 0.1}))
	require.True(t, ok)
	assert.EqualValues(t, 2, leaf.Index)
	_, _, ok = solid.Nodes().Lookup(p.MaxDepth, p.Normalize(ms3.Vec{X: 1.9, Y: 1.9, Z: 1.9}))
	assert.False(t, ok)
	assertTreeValid(t, solid.Nodes(), solid.ActiveCells())
}

func TestVoxelizeOutsideRoot(t *testing.T) {
	p := Params{Scale: 1, MaxDepth: 3, CellCapacity: 64, MaxTraversalIter: 16}
	ball, err := sdf.Sphere3D(0.5)
	require.NoError(t, err)
	ball = sdf.Transform3D(ball, sdf.Translate3d(sdf.V3{X: 10}))
	b, err := NewBuilder(p)
	require.NoError(t, err)
	assert.Zero(t, Voxelize(b, ball, 1, false))
	assert.Equal(t, 1, b.ActiveCells())
}

func TestDemoScene(t *testing.T) {
	seed, err := DemoScene()
	require.NoError(t, err)
	require.NoError(t, seed.Validate())
	assert.Greater(t, seed.ActiveCells(), 1)
	assert.LessOrEqual(t, seed.ActiveCells(), DemoParams().CellCapacity)
}
