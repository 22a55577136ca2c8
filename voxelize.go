package glvox

import (
	"math"
	"runtime"

	"github.com/deadsy/sdfx/sdf"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox/internal/d3"
	"golang.org/x/sync/errgroup"
)

// Voxelize sets every leaf voxel of the builder tree whose center lies inside
// s to material. When shell is true only voxels within one voxel diagonal of
// the surface are set, which keeps hollow interiors out of the tree.
// It returns the number of voxels set.
func Voxelize(b *Builder, s sdf.SDF3, material uint32, shell bool) int {
	p := b.Params()
	step := float64(p.BlockDistance())
	res := 1 << p.MaxDepth
	lo, hi := voxelRange(s.BoundingBox(), p, step, res)
	if lo[0] >= hi[0] || lo[1] >= hi[1] || lo[2] >= hi[2] {
		return 0
	}
	thickness := -step * math.Sqrt(3)
	origin := p.MinPoint
	slabs := make([][]ms3.Vec, hi[2]-lo[2])
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := lo[2]; k < hi[2]; k++ {
		g.Go(func() error {
			var pts []ms3.Vec
			z := float64(origin.Z) + (float64(k)+0.5)*step
			for j := lo[1]; j < hi[1]; j++ {
				y := float64(origin.Y) + (float64(j)+0.5)*step
				for i := lo[0]; i < hi[0]; i++ {
					x := float64(origin.X) + (float64(i)+0.5)*step
					d := s.Evaluate(sdf.V3{X: x, Y: y, Z: z})
					if d > 0 || (shell && d < thickness) {
						continue
					}
					pts = append(pts, ms3.Vec{X: float32(x), Y: float32(y), Z: float32(z)})
				}
			}
			slabs[k-lo[2]] = pts
			return nil
		})
	}
	g.Wait()
	n := 0
	for _, pts := range slabs {
		for _, pt := range pts {
			if b.Set(pt, material) == EditApplied {
				n++
			}
		}
	}
	return n
}

// voxelRange returns the half open range of voxel indices whose centers lie
// in bb, clipped to the root cube.
func voxelRange(bb sdf.Box3, p Params, step float64, res int) (lo, hi [3]int) {
	bmin := [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	bmax := [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	for i := range lo {
		o := float64(d3.Elem(p.MinPoint, i))
		lo[i] = max(0, int(math.Floor((bmin[i]-o)/step)))
		hi[i] = min(res, int(math.Ceil((bmax[i]-o)/step)))
	}
	return lo, hi
}

// DemoScene voxelizes a sphere resting on a slab floor using the demo
// parameters. Materials 1 and 4 are used for the floor and the sphere.
func DemoScene() (Snapshot, error) {
	p := DemoParams()
	b, err := NewBuilder(p)
	if err != nil {
		return Snapshot{}, err
	}
	floor, err := sdf.Box3D(sdf.V3{X: 7, Y: 0.5, Z: 7}, 0)
	if err != nil {
		return Snapshot{}, err
	}
	floor = sdf.Transform3D(floor, sdf.Translate3d(sdf.V3{Y: -3}))
	ball, err := sdf.Sphere3D(2)
	if err != nil {
		return Snapshot{}, err
	}
	ball = sdf.Transform3D(ball, sdf.Translate3d(sdf.V3{Y: -0.75}))
	Voxelize(b, floor, 1, false)
	Voxelize(b, ball, 4, true)
	logger.Debugf("demo scene uses %d cells", b.ActiveCells())
	return b.Snapshot(), nil
}
