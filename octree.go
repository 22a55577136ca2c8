package glvox

import (
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/internal/d3"
	"github.com/soypat/glvox/log"
)

// Fixed resource bindings shared by the update and raytrace programs.
const (
	BindingNodes   = 0
	BindingParams  = 1
	BindingCounter = 2
	BindingDeltas  = 3
	BindingPalette = 4
	// ImageUnitOutput is the image unit of the raytrace output image.
	ImageUnitOutput = 0
)

var logger = log.New("octree")

// Octree owns the device buffers holding a sparse voxel octree: the node
// buffer, the parameter block and the active cell counter. The octree is not
// safe for concurrent use; all calls must come from the goroutine owning the
// device.
type Octree struct {
	dev     compute.Device
	params  Params
	seed    Snapshot
	nodes   compute.Buffer
	block   compute.Buffer
	counter compute.Buffer
}

// New allocates the buffers of an octree seeded with seed and pushes its
// parameters. A zero Snapshot seeds a single empty root cell.
func New(dev compute.Device, params Params, seed Snapshot) (*Octree, error) {
	if err := params.Validate(); err != nil {
		return nil, &InitError{Resource: "parameters", Err: err}
	}
	if err := seed.Validate(); err != nil {
		return nil, &InitError{Resource: "seed", Err: err}
	}
	if seed.ActiveCells() > params.CellCapacity {
		return nil, &InitError{Resource: "node buffer", Err: ErrSeedTooLarge}
	}
	o := &Octree{dev: dev, params: params, seed: seed}
	words := seed.AppendWords(make([]uint32, 0, seed.ActiveCells()*CellWords))
	var err error
	o.nodes, err = dev.NewBuffer(compute.StorageBuffer, BindingNodes, params.CellCapacity*CellWords, words)
	if err != nil {
		return nil, &InitError{Resource: "node buffer", Err: err}
	}
	o.block, err = dev.NewBuffer(compute.UniformBuffer, BindingParams, ParamWords, params.AppendBlock(nil, seed.ActiveCells()))
	if err != nil {
		o.Release()
		return nil, &InitError{Resource: "parameter block", Err: err}
	}
	o.counter, err = dev.NewBuffer(compute.AtomicCounterBuffer, BindingCounter, 1, []uint32{uint32(seed.ActiveCells())})
	if err != nil {
		o.Release()
		return nil, &InitError{Resource: "active cell counter", Err: err}
	}
	logger.Infof("allocated octree: %d/%d cells seeded, depth %d, voxel size %g",
		seed.ActiveCells(), params.CellCapacity, params.MaxDepth, params.BlockDistance())
	return o, nil
}

// Params returns the spatial parameters of the tree.
func (o *Octree) Params() Params { return o.params }

// Device returns the device holding the tree buffers.
func (o *Octree) Device() compute.Device { return o.dev }

// PointInside reports whether the world space point lies in the closed root cube.
func (o *Octree) PointInside(p ms3.Vec) bool {
	return d3.Cube{Min: o.params.MinPoint, Size: o.params.Scale}.Contains(p)
}

// BlockDistance returns the edge length of a leaf voxel in world units.
func (o *Octree) BlockDistance() float32 { return o.params.BlockDistance() }

// Scale returns the edge length of the root cube.
func (o *Octree) Scale() float32 { return o.params.Scale }

// MinPoint returns the world space origin of the root cube.
func (o *Octree) MinPoint() ms3.Vec { return o.params.MinPoint }

// Normalize maps a world space point to the tree local coordinates expected
// by delta records.
func (o *Octree) Normalize(world ms3.Vec) ms3.Vec { return o.params.Normalize(world) }

// SetPlacement moves or rescales the root cube and pushes the new parameters.
// The tree contents are unchanged.
func (o *Octree) SetPlacement(minPoint ms3.Vec, scale float32) error {
	p := o.params
	p.MinPoint, p.Scale = minPoint, scale
	if err := p.Validate(); err != nil {
		return err
	}
	o.params = p
	return o.SyncParameters()
}

// SetMaxTraversalIter changes the traversal step budget.
func (o *Octree) SetMaxTraversalIter(n int) error {
	p := o.params
	p.MaxTraversalIter = n
	if err := p.Validate(); err != nil {
		return err
	}
	o.params = p
	return o.SyncParameters()
}

// SyncParameters writes the parameter block read by both programs: min point,
// scale and its inverse, depth, traversal cap and cell counts.
func (o *Octree) SyncParameters() error {
	// Shader reads of the previous block may still be in flight.
	o.dev.Barrier(compute.BarrierUniform | compute.BarrierBufferUpdate)
	return o.dev.WriteBuffer(o.block, 0, o.params.AppendBlock(make([]uint32, 0, ParamWords), o.seed.ActiveCells()))
}

// ActiveCells reads back the active cell counter. Updates must be made
// visible with a barrier first.
func (o *Octree) ActiveCells() (int, error) {
	var n [1]uint32
	if err := o.dev.ReadBuffer(o.counter, 0, n[:]); err != nil {
		return 0, err
	}
	return int(n[0]), nil
}

// ReadNodes reads back the allocated cells of the node buffer.
func (o *Octree) ReadNodes() (Nodes, error) {
	active, err := o.ActiveCells()
	if err != nil {
		return nil, err
	}
	nodes := make(Nodes, min(active, o.params.CellCapacity)*CellWords)
	if err := o.dev.ReadBuffer(o.nodes, 0, nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Reset restores the seed contents and the active cell counter. It is a stop
// the world operation meant for tests and scene reloads.
func (o *Octree) Reset() error {
	o.dev.Barrier(compute.BarrierAll)
	words := make([]uint32, o.params.CellCapacity*CellWords)
	o.seed.AppendWords(words[:0])
	if err := o.dev.WriteBuffer(o.nodes, 0, words); err != nil {
		return err
	}
	if err := o.dev.WriteBuffer(o.counter, 0, []uint32{uint32(o.seed.ActiveCells())}); err != nil {
		return err
	}
	logger.Debugf("octree reset to %d seeded cells", o.seed.ActiveCells())
	return nil
}

// Release frees the device buffers.
func (o *Octree) Release() {
	for _, b := range []compute.Buffer{o.nodes, o.block, o.counter} {
		if b != nil {
			b.Release()
		}
	}
	o.nodes, o.block, o.counter = nil, nil, nil
}
