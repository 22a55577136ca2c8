// Package mesh converts the leaf voxels of an octree into triangle meshes
// and reads and writes them as binary STL.
package mesh

import (
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a triangle in world space with counter clockwise winding when
// viewed from outside the solid.
type Triangle struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle.
func (t Triangle) Normal() r3.Vec {
	e1 := r3.Sub(t.V[1], t.V[0])
	e2 := r3.Sub(t.V[2], t.V[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Degenerate reports whether two vertices of the triangle coincide within tol.
func (t Triangle) Degenerate(tol float64) bool {
	return equalWithin(t.V[0], t.V[1], tol) ||
		equalWithin(t.V[1], t.V[2], tol) ||
		equalWithin(t.V[2], t.V[0], tol)
}

func equalWithin(a, b r3.Vec, tol float64) bool {
	d := r3.Sub(a, b)
	return abs(d.X) <= tol && abs(d.Y) <= tol && abs(d.Z) <= tol
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// faces lists the corners of each cube face in winding order, unit cube
// coordinates. Face i points along -axis for even i and +axis for odd i
// where axis is i/2.
var faces = [6][4][3]float32{
	{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
	{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
}

// Voxel is a leaf cube in tree local coordinates.
type Voxel struct {
	Min   ms3.Vec
	Size  float32
	Level int
	Value uint32
}

// Leaves appends to dst every leaf voxel reachable from the root.
func Leaves(dst []Voxel, nodes glvox.Nodes, maxDepth int) []Voxel {
	if nodes.Cells() == 0 {
		return dst
	}
	var walk func(cell uint32, min ms3.Vec, size float32, level int)
	walk = func(cell uint32, min ms3.Vec, size float32, level int) {
		if level >= maxDepth {
			return
		}
		for oct := uint8(0); oct < glvox.CellSlots; oct++ {
			s := nodes.Slot(cell, oct)
			cmin, csize := glvox.ChildCube(min, size, oct)
			switch s.Tag {
			case glvox.TagLeaf:
				dst = append(dst, Voxel{Min: cmin, Size: csize, Level: level, Value: s.Index})
			case glvox.TagParent:
				if int(s.Index) < nodes.Cells() {
					walk(s.Index, cmin, csize, level+1)
				}
			}
		}
	}
	walk(glvox.RootCell, ms3.Vec{}, 1, 0)
	return dst
}

// Voxels returns the boundary surface of the leaf voxels of the tree in world
// space. A face is dropped when the voxel across it is a leaf at least as
// large, so solid regions only contribute their hull.
func Voxels(nodes glvox.Nodes, p glvox.Params) []Triangle {
	leaves := Leaves(nil, nodes, p.MaxDepth)
	var tris []Triangle
	for _, v := range leaves {
		center := ms3.Add(v.Min, ms3.Vec{X: v.Size / 2, Y: v.Size / 2, Z: v.Size / 2})
		for i, face := range faces {
			var n ms3.Vec
			sign := float32(-1)
			if i%2 == 1 {
				sign = 1
			}
			switch i / 2 {
			case 0:
				n.X = sign
			case 1:
				n.Y = sign
			case 2:
				n.Z = sign
			}
			across := ms3.Add(center, ms3.Scale(v.Size, n))
			if _, level, found := nodes.Lookup(p.MaxDepth, across); found && level <= v.Level {
				continue
			}
			var q [4]r3.Vec
			for k, c := range face {
				local := ms3.Add(v.Min, ms3.Scale(v.Size, ms3.Vec{X: c[0], Y: c[1], Z: c[2]}))
				w := p.Denormalize(local)
				q[k] = r3.Vec{X: float64(w.X), Y: float64(w.Y), Z: float64(w.Z)}
			}
			tris = append(tris,
				Triangle{V: [3]r3.Vec{q[0], q[1], q[2]}},
				Triangle{V: [3]r3.Vec{q[0], q[2], q[3]}},
			)
		}
	}
	return tris
}
