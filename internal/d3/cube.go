package d3

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
)

// Octant bits. A point selects the upper half of an axis when its
// coordinate is greater or equal to the cube center along that axis.
const (
	xBit uint8 = 1 << iota
	yBit
	zBit
)

// Cube is an axis aligned cube described by its minimum corner and edge length.
type Cube struct {
	Min  ms3.Vec
	Size float32
}

// Max returns the corner opposite to Min.
func (c Cube) Max() ms3.Vec {
	return ms3.Add(c.Min, Splat(c.Size))
}

// Center returns the center of the cube.
func (c Cube) Center() ms3.Vec {
	return ms3.Add(c.Min, Splat(c.Size/2))
}

// Contains checks if the cube contains the point (considering bounds as inside).
func (c Cube) Contains(p ms3.Vec) bool {
	max := c.Max()
	return c.Min.X <= p.X && c.Min.Y <= p.Y && c.Min.Z <= p.Z &&
		p.X <= max.X && p.Y <= max.Y && p.Z <= max.Z
}

// Octant returns the index in 0..7 of the child cube that contains p.
func (c Cube) Octant(p ms3.Vec) uint8 {
	return OctantOf(p, c.Center())
}

// OctantOf returns the octant of p relative to center.
func OctantOf(p, center ms3.Vec) uint8 {
	var oct uint8
	if p.X >= center.X {
		oct |= xBit
	}
	if p.Y >= center.Y {
		oct |= yBit
	}
	if p.Z >= center.Z {
		oct |= zBit
	}
	return oct
}

// Child returns the child cube at octant oct.
func (c Cube) Child(oct uint8) Cube {
	half := c.Size / 2
	min := c.Min
	if oct&xBit != 0 {
		min.X += half
	}
	if oct&yBit != 0 {
		min.Y += half
	}
	if oct&zBit != 0 {
		min.Z += half
	}
	return Cube{Min: min, Size: half}
}

// Ray is a half line with a precomputed reciprocal direction for slab tests.
type Ray struct {
	Origin ms3.Vec
	Dir    ms3.Vec
	InvDir ms3.Vec
}

// NewRay returns a ray. Zero direction components yield infinite reciprocals
// which the slab test handles.
func NewRay(origin, dir ms3.Vec) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		InvDir: ms3.Vec{X: 1 / dir.X, Y: 1 / dir.Y, Z: 1 / dir.Z},
	}
}

// At returns the point along the ray at parameter t.
func (r Ray) At(t float32) ms3.Vec {
	return ms3.Add(r.Origin, ms3.Scale(t, r.Dir))
}

// Intersect performs a slab test of the ray against the cube. tmin is the
// entry parameter (clamped to 0 when the origin is inside), tmax the exit
// parameter and axis the axis (0,1,2) of the entry face.
func (c Cube) Intersect(r Ray) (tmin, tmax float32, axis int, hit bool) {
	max := c.Max()
	tmin, tmax = 0, math32.Inf(1)
	axis = -1
	for i := 0; i < 3; i++ {
		o, inv := Elem(r.Origin, i), Elem(r.InvDir, i)
		lo, hi := Elem(c.Min, i), Elem(max, i)
		t0 := (lo - o) * inv
		t1 := (hi - o) * inv
		if math32.IsNaN(t0) || math32.IsNaN(t1) {
			// Origin lies on a slab plane of a parallel axis.
			if o < lo || o > hi {
				return 0, 0, -1, false
			}
			continue
		}
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
			axis = i
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmax < tmin {
			return 0, 0, -1, false
		}
	}
	return tmin, tmax, axis, true
}

// Exit returns the ray parameter at which the ray leaves the cube, assuming
// the ray origin parameter t0 lies inside it, and the axis of the exit face.
// axis is -1 when the direction is zero.
func (c Cube) Exit(r Ray) (texit float32, axis int) {
	max := c.Max()
	texit, axis = math32.Inf(1), -1
	for i := 0; i < 3; i++ {
		o, inv, d := Elem(r.Origin, i), Elem(r.InvDir, i), Elem(r.Dir, i)
		var t float32
		switch {
		case d > 0:
			t = (Elem(max, i) - o) * inv
		case d < 0:
			t = (Elem(c.Min, i) - o) * inv
		default:
			continue
		}
		if t < texit {
			texit, axis = t, i
		}
	}
	return texit, axis
}

// Splat returns a vector with every component set to s.
func Splat(s float32) ms3.Vec { return ms3.Vec{X: s, Y: s, Z: s} }

// Elem returns the component of v along axis i (0 for X, 1 for Y, 2 for Z).
func Elem(v ms3.Vec, i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}
