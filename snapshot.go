package glvox

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
)

// Snapshot is the seed contents of a node buffer: cells 0..len(Cells)-1 in
// buffer order. An empty snapshot seeds a single empty root cell.
type Snapshot struct {
	Cells []Cell
}

// ActiveCells returns the value of the active cell counter after seeding.
func (s Snapshot) ActiveCells() int {
	return max(len(s.Cells), 1)
}

// AppendWords appends the node buffer words of the seed to dst.
func (s Snapshot) AppendWords(dst []uint32) []uint32 {
	if len(s.Cells) == 0 {
		return AppendCellWords(dst, Cell{})
	}
	for _, c := range s.Cells {
		dst = AppendCellWords(dst, c)
	}
	return dst
}

// Validate checks every PARENT slot references a seeded cell other than the
// root and that no transient tags are present.
func (s Snapshot) Validate() error {
	for i, c := range s.Cells {
		for oct, slot := range c {
			switch slot.Tag {
			case TagEmpty, TagLeaf:
			case TagParent:
				if slot.Index == RootCell || int(slot.Index) >= len(s.Cells) {
					return fmt.Errorf("%w: cell %d slot %d points to cell %d", ErrMalformedSeed, i, oct, slot.Index)
				}
			default:
				return fmt.Errorf("%w: cell %d slot %d has tag %s", ErrMalformedSeed, i, oct, slot.Tag)
			}
		}
	}
	return nil
}

// Builder edits a host side tree with the same algorithm the update program
// runs, one delta at a time. It is used to build seed snapshots and as a
// reference for the GPU results.
type Builder struct {
	params  Params
	nodes   Nodes
	counter uint32
	results [EditCorrupt + 1]int
}

// NewBuilder returns a builder holding an empty tree.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{params: p}
	b.Reset()
	return b, nil
}

// Reset discards all edits.
func (b *Builder) Reset() {
	b.nodes = make(Nodes, CellWords*min(b.params.CellCapacity, 64))
	b.counter = 1
	b.results = [len(b.results)]int{}
}

// Params returns the parameters of the tree being built.
func (b *Builder) Params() Params { return b.params }

// Apply applies deltas in order and returns the number applied.
func (b *Builder) Apply(deltas ...Delta) (applied int) {
	for _, d := range deltas {
		b.grow()
		res := ApplyDelta(b.nodes, &b.counter, b.params, d)
		b.results[res]++
		if res == EditApplied {
			applied++
		}
	}
	return applied
}

// Set writes value at the voxel containing the world space point.
func (b *Builder) Set(world ms3.Vec, value uint32) EditResult {
	b.grow()
	res := ApplyDelta(b.nodes, &b.counter, b.params, Delta{Position: b.params.Normalize(world), Edit: EditSet, Value: value})
	b.results[res]++
	return res
}

// Results returns how many deltas ended with result r.
func (b *Builder) Results(r EditResult) int {
	if int(r) >= len(b.results) {
		return 0
	}
	return b.results[r]
}

// ActiveCells returns the number of allocated cells.
func (b *Builder) ActiveCells() int { return int(b.counter) }

// Nodes returns the allocated cells. The slice aliases the builder memory.
func (b *Builder) Nodes() Nodes { return b.nodes[:CellWords*b.ActiveCells()] }

// Snapshot copies the allocated cells into a seed.
func (b *Builder) Snapshot() Snapshot {
	n := b.Nodes()
	cells := make([]Cell, n.Cells())
	for i := range cells {
		cells[i] = n.Cell(uint32(i))
	}
	return Snapshot{Cells: cells}
}

// grow makes room for the cells a single delta may allocate.
func (b *Builder) grow() {
	need := min(int(b.counter)+b.params.MaxDepth, b.params.CellCapacity)
	if need*CellWords <= len(b.nodes) {
		return
	}
	size := max(2*len(b.nodes), need*CellWords)
	size = min(size, b.params.CellCapacity*CellWords)
	grown := make(Nodes, size)
	copy(grown, b.nodes)
	b.nodes = grown
}

// DemoParams are the spatial parameters the demo snapshot was built for.
func DemoParams() Params {
	return Params{
		MinPoint:         ms3.Vec{X: -4, Y: -4, Z: -4},
		Scale:            8,
		MaxDepth:         4,
		CellCapacity:     1 << 16,
		MaxTraversalIter: 64,
	}
}

// DemoSnapshot returns the hard coded bootstrap tree: a coarse floor leaf
// covering the bottom half of the root cube, a checker of small voxels on
// top of it and a metal pillar in the center.
func DemoSnapshot() Snapshot {
	const (
		floor  = 1
		light  = 2
		dark   = 3
		pillar = 4
	)
	// Cell 0 is the root. The four lower octants are coarse leaves. The
	// upper octants around the center subdivide to hold the decoration.
	root := Cell{
		{Index: floor, Tag: TagLeaf}, {Index: floor, Tag: TagLeaf},
		{Index: 1, Tag: TagParent}, {Index: 2, Tag: TagParent},
		{Index: floor, Tag: TagLeaf}, {Index: floor, Tag: TagLeaf},
		{Index: 3, Tag: TagParent}, {Index: 4, Tag: TagParent},
	}
	cells := []Cell{root}
	// Each upper quadrant cell holds a checker in its bottom layer and, at
	// the octant touching the root center, a pillar voxel.
	for q := uint8(0); q < 4; q++ {
		parentOct := []uint8{2, 3, 6, 7}[q]
		var c Cell
		for oct := uint8(0); oct < CellSlots; oct++ {
			if oct&2 != 0 {
				continue // upper layer
			}
			v := uint32(light)
			if (oct^parentOct)&1 != 0 {
				v = dark
			}
			c[oct] = Slot{Index: v, Tag: TagLeaf}
		}
		// The octant of this quadrant nearest the root center in x and z.
		centerOct := uint8(2) | (^parentOct & 1) | (^parentOct & 4)
		c[centerOct] = Slot{Index: pillar, Tag: TagLeaf}
		cells = append(cells, c)
	}
	return Snapshot{Cells: cells}
}
