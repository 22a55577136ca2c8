package d3

import (
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/stretchr/testify/assert"
)

var unit = Cube{Size: 1}

func TestCubeContains(t *testing.T) {
	assert.True(t, unit.Contains(ms3.Vec{}))
	assert.True(t, unit.Contains(ms3.Vec{X: 1, Y: 1, Z: 1}))
	assert.True(t, unit.Contains(ms3.Vec{X: 0.5, Y: 0, Z: 1}))
	assert.False(t, unit.Contains(ms3.Vec{X: 1.0001, Y: 0.5, Z: 0.5}))
	assert.False(t, unit.Contains(ms3.Vec{X: 0.5, Y: -0.0001, Z: 0.5}))
}

func TestCubeOctant(t *testing.T) {
	for _, tc := range []struct {
		p   ms3.Vec
		oct uint8
	}{
		{ms3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 0},
		{ms3.Vec{X: 0.9, Y: 0.1, Z: 0.1}, 1},
		{ms3.Vec{X: 0.2, Y: 0.7, Z: 0.2}, 2},
		{ms3.Vec{X: 0.1, Y: 0.1, Z: 0.6}, 4},
		// Ties select the upper half.
		{ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 7},
		{ms3.Vec{X: 0.5, Y: 0.2, Z: 0.2}, 1},
	} {
		assert.Equal(t, tc.oct, unit.Octant(tc.p), "%v", tc.p)
	}
}

func TestCubeChild(t *testing.T) {
	c := unit.Child(5)
	assert.Equal(t, Cube{Min: ms3.Vec{X: 0.5, Z: 0.5}, Size: 0.5}, c)
	assert.Equal(t, ms3.Vec{X: 0.75, Y: 0.25, Z: 0.75}, c.Center())
	assert.Equal(t, ms3.Vec{X: 1, Y: 0.5, Z: 1}, c.Max())
	gc := c.Child(2)
	assert.Equal(t, Cube{Min: ms3.Vec{X: 0.5, Y: 0.25, Z: 0.5}, Size: 0.25}, gc)
}

func TestCubeIntersect(t *testing.T) {
	// Entering through the -X face.
	tmin, tmax, axis, hit := unit.Intersect(NewRay(ms3.Vec{X: -1, Y: 0.5, Z: 0.5}, ms3.Vec{X: 1}))
	assert.True(t, hit)
	assert.Equal(t, float32(1), tmin)
	assert.Equal(t, float32(2), tmax)
	assert.Equal(t, 0, axis)

	// Origin inside clamps the entry to zero.
	tmin, tmax, axis, hit = unit.Intersect(NewRay(ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, ms3.Vec{Y: 1}))
	assert.True(t, hit)
	assert.Equal(t, float32(0), tmin)
	assert.Equal(t, float32(0.5), tmax)
	assert.Equal(t, -1, axis)

	// Parallel to Y and above the cube.
	_, _, _, hit = unit.Intersect(NewRay(ms3.Vec{X: -1, Y: 2, Z: 0.5}, ms3.Vec{X: 1}))
	assert.False(t, hit)

	// Parallel ray grazing the Y=0 plane still hits.
	tmin, _, axis, hit = unit.Intersect(NewRay(ms3.Vec{X: -1, Y: 0, Z: 0.5}, ms3.Vec{X: 1}))
	assert.True(t, hit)
	assert.Equal(t, float32(1), tmin)
	assert.Equal(t, 0, axis)

	// Pointing away.
	_, _, _, hit = unit.Intersect(NewRay(ms3.Vec{X: -1, Y: 0.5, Z: 0.5}, ms3.Vec{X: -1}))
	assert.False(t, hit)
}

func TestCubeExit(t *testing.T) {
	origin := ms3.Vec{X: 0.25, Y: 0.5, Z: 0.5}
	texit, axis := unit.Exit(NewRay(origin, ms3.Vec{X: 1}))
	assert.Equal(t, float32(0.75), texit)
	assert.Equal(t, 0, axis)
	texit, axis = unit.Exit(NewRay(origin, ms3.Vec{X: -1, Y: -1}))
	assert.Equal(t, float32(0.25), texit)
	assert.Equal(t, 0, axis)

	r := NewRay(origin, ms3.Vec{Z: 2})
	texit, axis = unit.Exit(r)
	assert.Equal(t, float32(0.25), texit)
	assert.Equal(t, 2, axis)
	assert.Equal(t, ms3.Vec{X: 0.25, Y: 0.5, Z: 1}, r.At(0.25))

	_, axis = unit.Exit(NewRay(origin, ms3.Vec{}))
	assert.Equal(t, -1, axis)
}
