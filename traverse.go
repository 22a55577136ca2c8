package glvox

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox/internal/d3"
)

// Lookup descends the tree read-only from the root along the octants
// containing pos (tree local coordinates) and returns the first LEAF slot
// found with its level. found is false when the descent reaches an EMPTY slot,
// pos lies outside the unit cube or maxDepth levels are exhausted.
func (n Nodes) Lookup(maxDepth int, pos ms3.Vec) (leaf Slot, level int, found bool) {
	cube := d3.Cube{Size: 1}
	if !cube.Contains(pos) || n.Cells() == 0 {
		return Slot{}, 0, false
	}
	cell := uint32(RootCell)
	for level = 0; level < maxDepth; level++ {
		oct := cube.Octant(pos)
		s := n.Slot(cell, oct)
		switch s.Tag {
		case TagLeaf:
			return s, level, true
		case TagParent:
			if int(s.Index) >= n.Cells() {
				return Slot{}, level, false
			}
			cell = s.Index
			cube = cube.Child(oct)
		default:
			return Slot{}, level, false
		}
	}
	return Slot{}, maxDepth, false
}

// OctantPath appends to dst the octants selected when descending depth levels
// from the unit cube towards pos.
func OctantPath(dst []uint8, pos ms3.Vec, depth int) []uint8 {
	cube := d3.Cube{Size: 1}
	for i := 0; i < depth; i++ {
		oct := cube.Octant(pos)
		dst = append(dst, oct)
		cube = cube.Child(oct)
	}
	return dst
}

// CubeFromPath rederives the bounds of the cube reached from the unit cube by
// following path.
func CubeFromPath(path []uint8) (min ms3.Vec, size float32) {
	cube := d3.Cube{Size: 1}
	for _, oct := range path {
		cube = cube.Child(oct)
	}
	return cube.Min, cube.Size
}

// Hit is a ray intersection with a leaf voxel, in tree local coordinates.
type Hit struct {
	// T is the ray parameter at the leaf entry.
	T      float32
	Point  ms3.Vec
	Normal ms3.Vec
	// Value is the leaf payload.
	Value uint32
	// Steps is the number of restart descents taken.
	Steps int
}

// Raycast traverses the tree from the ray origin and returns the nearest leaf
// hit. Each step descends from the root to the cube containing the current
// ray position: a LEAF ends the traversal and an empty cube moves the position
// across its exit face into the neighbouring cube. The ray misses when it
// leaves the unit cube or takes more than maxIter steps. origin and dir are in
// tree local coordinates.
func (n Nodes) Raycast(maxDepth, maxIter int, origin, dir ms3.Vec) (hit Hit, ok bool) {
	root := d3.Cube{Size: 1}
	tEntry, _, axis, inter := root.Intersect(d3.NewRay(origin, dir))
	if !inter || n.Cells() == 0 {
		return Hit{}, false
	}
	// Walk from the root entry point so ray parameters stay within the unit
	// cube diagonal however far away the origin is.
	p := ms3.MinElem(ms3.MaxElem(d3.NewRay(origin, dir).At(tEntry), ms3.Vec{}), d3.Splat(1))
	ray := d3.NewRay(p, dir)
	var t float32
	for step := 1; step <= maxIter; step++ {
		cube := root
		cell := uint32(RootCell)
		var s Slot
		for level := 0; level < maxDepth; level++ {
			oct := cube.Octant(p)
			cube = cube.Child(oct)
			s = n.Slot(cell, oct)
			if s.Tag != TagParent || int(s.Index) >= n.Cells() {
				break
			}
			cell = s.Index
		}
		if s.Tag == TagLeaf {
			hit = Hit{
				T:      tEntry + t,
				Point:  ray.At(t),
				Normal: faceNormal(axis, dir),
				Value:  s.Index,
				Steps:  step,
			}
			return hit, true
		}
		var tExit float32
		tExit, axis = cube.Exit(ray)
		if axis < 0 {
			return Hit{Steps: step}, false
		}
		t = math32.Max(tExit, t)
		if p, ok = crossFace(cube, ray.At(t), axis, d3.Elem(dir, axis) > 0); !ok {
			return Hit{Steps: step}, false
		}
	}
	return Hit{Steps: maxIter}, false
}

// crossFace returns the point in the cube adjacent to cube across its face on
// axis, given x where the ray meets that face. The other coordinates of x are
// held inside cube so rounding never moves the traversal backwards. ok is
// false when the adjacent cube lies outside the unit cube.
func crossFace(cube d3.Cube, x ms3.Vec, axis int, positive bool) (p ms3.Vec, ok bool) {
	lo, hi := cube.Min, cube.Max()
	var c [3]float32
	for i := range c {
		l, h := d3.Elem(lo, i), d3.Elem(hi, i)
		switch {
		case i != axis:
			c[i] = math32.Min(math32.Max(d3.Elem(x, i), l), math32.Nextafter(h, 0))
		case positive:
			if h >= 1 {
				return p, false
			}
			c[i] = h
		default:
			if l <= 0 {
				return p, false
			}
			c[i] = math32.Nextafter(l, 0)
		}
	}
	return ms3.Vec{X: c[0], Y: c[1], Z: c[2]}, true
}

// faceNormal returns the outward normal of the face crossed along axis by a
// ray with direction dir. Rays starting inside the voxel face back along dir.
func faceNormal(axis int, dir ms3.Vec) ms3.Vec {
	var nrm ms3.Vec
	switch axis {
	case 0:
		nrm.X = -math32.Copysign(1, dir.X)
	case 1:
		nrm.Y = -math32.Copysign(1, dir.Y)
	case 2:
		nrm.Z = -math32.Copysign(1, dir.Z)
	default:
		l := ms3.Norm(dir)
		if l == 0 {
			return ms3.Vec{Z: 1}
		}
		nrm = ms3.Scale(-1/l, dir)
	}
	return nrm
}
