package glvox

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
)

const (
	// MaxDepthLimit is the deepest tree representable: the unit cube is
	// resolved down to 2^-23, the spacing of float32 values just below 1.
	MaxDepthLimit = 23
	// MaxCellCapacity bounds the node buffer so word offsets fit a GLSL int.
	MaxCellCapacity = 1 << 25
	// ParamWords is the size of the std140 parameter block in words.
	ParamWords = 12
)

// Params are the spatial parameters of an octree.
type Params struct {
	// MinPoint is the world space origin of the root cube.
	MinPoint ms3.Vec
	// Scale is the edge length of the root cube.
	Scale float32
	// MaxDepth is the number of levels below the root cube. Leaf voxels
	// have an edge length of Scale/2^MaxDepth.
	MaxDepth int
	// CellCapacity is the number of cells the node buffer can hold.
	CellCapacity int
	// MaxTraversalIter bounds the steps taken by a ray during traversal.
	MaxTraversalIter int
}

// Validate checks the parameters are representable.
func (p Params) Validate() error {
	if !(p.Scale > 0) || math32.IsInf(p.Scale, 1) {
		return ErrBadScale
	}
	if p.MaxDepth < 1 || p.MaxDepth > MaxDepthLimit {
		return ErrBadDepth
	}
	if p.CellCapacity < 1 || p.CellCapacity > MaxCellCapacity {
		return ErrBadCapacity
	}
	if p.MaxTraversalIter < 1 {
		return ErrBadTraversalIter
	}
	return nil
}

// BlockDistance returns the edge length of a leaf voxel.
func (p Params) BlockDistance() float32 {
	return p.Scale / float32(uint32(1)<<p.MaxDepth)
}

// Normalize maps a world space point to tree local coordinates where the
// root cube spans [0,1] on every axis.
func (p Params) Normalize(world ms3.Vec) ms3.Vec {
	return ms3.Scale(1/p.Scale, ms3.Sub(world, p.MinPoint))
}

// Denormalize is the inverse of Normalize.
func (p Params) Denormalize(local ms3.Vec) ms3.Vec {
	return ms3.Add(p.MinPoint, ms3.Scale(p.Scale, local))
}

// AppendBlock appends the std140 encoding of the parameter block to dst.
// initialCells is the number of cells occupied by the seed.
//
//	layout(std140) uniform OctreeParams {
//		vec3  min_point; float scale;
//		float inv_scale; int max_depth; int max_traversal_iter; int cell_capacity;
//		float block_distance; int initial_cells; int _pad0; int _pad1;
//	};
func (p Params) AppendBlock(dst []uint32, initialCells int) []uint32 {
	f := math.Float32bits
	return append(dst,
		f(p.MinPoint.X), f(p.MinPoint.Y), f(p.MinPoint.Z), f(p.Scale),
		f(1/p.Scale), uint32(p.MaxDepth), uint32(p.MaxTraversalIter), uint32(p.CellCapacity),
		f(p.BlockDistance()), uint32(initialCells), 0, 0,
	)
}

// DecodeBlock decodes a parameter block written by AppendBlock.
func DecodeBlock(words []uint32) (p Params, initialCells int) {
	_ = words[ParamWords-1]
	f := math.Float32frombits
	p = Params{
		MinPoint:         ms3.Vec{X: f(words[0]), Y: f(words[1]), Z: f(words[2])},
		Scale:            f(words[3]),
		MaxDepth:         int(words[5]),
		MaxTraversalIter: int(words[6]),
		CellCapacity:     int(words[7]),
	}
	return p, int(words[9])
}
