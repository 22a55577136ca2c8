package ply

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const magicVoxel = "ply\r\n" +
	"format ascii 1.0\r\n" +
	"comment : MagicaVoxel @ Ephtracy\r\n" +
	"element vertex 4\r\n" +
	"property float x\r\n" +
	"property float y\r\n" +
	"property float z\r\n" +
	"property uchar red\r\n" +
	"property uchar green\r\n" +
	"property uchar blue\r\n" +
	"end_header\r\n" +
	"2 3 4 255 0 0\r\n" +
	"3 3 4 0 255 0\r\n" +
	"2 4 4 255 0 0\r\n" +
	"9 3 5 0 0 255\r\n"

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(magicVoxel))
	require.NoError(t, err)
	require.Len(t, c.Voxels, 4)
	assert.Equal(t, [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}, c.Colors)
	assert.Equal(t, Voxel{Pos: [3]int32{2, 4, 4}, Color: 0}, c.Voxels[2])
	assert.Equal(t, [3]int32{2, 3, 4}, c.Min)
	assert.Equal(t, [3]int32{9, 4, 5}, c.Max)
}

func TestReadNoColor(t *testing.T) {
	src := "ply\nformat ascii 1.0\nelement vertex 2\nproperty int x\nproperty int y\nproperty int z\nend_header\n0 0 0\n\n1 1 1\n"
	c, err := Read(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, c.Voxels, 2)
	assert.Equal(t, [][3]uint8{{255, 255, 255}}, c.Colors)
}

func TestReadErrors(t *testing.T) {
	const head = "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n"
	for _, tc := range []struct {
		name string
		src  string
		want error
	}{
		{"empty", "", ErrNotPLY},
		{"magic", "obj\n", ErrNotPLY},
		{"binary", "ply\nformat binary_little_endian 1.0\nend_header\n", ErrFormat},
		{"face", "ply\nformat ascii 1.0\nelement face 3\nend_header\n", ErrNoVertices},
		{"no element", "ply\nformat ascii 1.0\nend_header\n", ErrNoVertices},
		{"truncated header", "ply\nformat ascii 1.0\n", nil},
		{"short", head + "1 2 3\n", ErrVertexCount},
		{"columns", head + "1 2 3\n1 2\n", ErrVertexCount},
		{"trailing", head + "1 2 3\n4 5 6\n7 8 9\n", ErrVertexCount},
	} {
		_, err := Read(strings.NewReader(tc.src))
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	_, err := Read(strings.NewReader(head + "1 2 3\n1 x 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 9")
}

func TestFitAndApply(t *testing.T) {
	c, err := Read(strings.NewReader(magicVoxel))
	require.NoError(t, err)
	p := c.FitParams(256, 64)
	assert.Equal(t, 3, p.MaxDepth, "extent 8 needs depth 3")
	assert.Equal(t, float32(8), p.Scale)
	assert.Equal(t, float32(1), p.BlockDistance())
	assert.Equal(t, ms3.Vec{X: 2, Y: 3, Z: 4}, p.MinPoint)

	deltas := c.Deltas(p, 10)
	require.Len(t, deltas, 4)
	b, err := glvox.NewBuilder(p)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Apply(deltas...))
	for _, v := range c.Voxels {
		world := ms3.Vec{X: float32(v.Pos[0]) + 0.5, Y: float32(v.Pos[1]) + 0.5, Z: float32(v.Pos[2]) + 0.5}
		leaf, _, ok := b.Nodes().Lookup(p.MaxDepth, p.Normalize(world))
		require.True(t, ok, "voxel %v", v.Pos)
		assert.Equal(t, 10+v.Color, leaf.Index)
	}

	// A shallower tree drops what does not fit.
	small := p
	small.MaxDepth = 2
	assert.Len(t, c.Deltas(small, 0), 3)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ply")
	require.NoError(t, os.WriteFile(path, []byte(magicVoxel), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Voxels, 4)
	_, err = Load(filepath.Join(t.TempDir(), "missing.ply"))
	assert.Error(t, err)
}
