package glvox

import (
	"runtime"
	"sync/atomic"

	"github.com/soypat/glvox/internal/d3"
)

// EditResult is the outcome of applying a single delta.
type EditResult uint8

const (
	// EditApplied means the final level slot was rewritten.
	EditApplied EditResult = iota
	// EditNoop is a clear of a point already empty.
	EditNoop
	// EditDropped means the counter reached the cell capacity before the
	// edit could subdivide down to the final level. The tree is unchanged
	// below the deepest level reached.
	EditDropped
	// EditContended means a slot stayed busy past the spin limit.
	EditContended
	// EditOutside means the delta position is outside the unit cube.
	EditOutside
	// EditCorrupt means a PARENT slot referenced a cell outside the buffer.
	EditCorrupt
)

func (r EditResult) String() string {
	switch r {
	case EditApplied:
		return "applied"
	case EditNoop:
		return "noop"
	case EditDropped:
		return "dropped"
	case EditContended:
		return "contended"
	case EditOutside:
		return "outside"
	case EditCorrupt:
		return "corrupt"
	}
	return "unknown"
}

// SpinLimit is the number of times an update re-reads a busy slot before
// giving up on the edit.
func (p Params) SpinLimit() int { return 64 * p.MaxTraversalIter }

// ApplyDelta runs the update algorithm of one invocation of the update
// program: it descends from the root cell along the octants containing
// d.Position, subdividing as needed, and rewrites the slot at the final level.
//
// nodes and counter may be shared by concurrent callers; every access to
// slot words and the counter is atomic, mirroring the GLSL program. A slot
// being subdivided holds TagBusy until its new cell is fully written.
func ApplyDelta(nodes []uint32, counter *uint32, p Params, d Delta) EditResult {
	pos := d.Position
	cube := d3.Cube{Size: 1}
	if !cube.Contains(pos) {
		return EditOutside
	}
	if len(nodes) < CellWords {
		return EditCorrupt
	}
	cell := uint32(RootCell)
	last := p.MaxDepth - 1
	for level := 0; level < last; level++ {
		oct := cube.Octant(pos)
		off := SlotOffset(cell, oct)
		next, res, ok := descend(nodes, counter, p, off, d.Edit)
		if !ok {
			return res
		}
		cell = next
		cube = cube.Child(oct)
	}
	oct := cube.Octant(pos)
	return writeFinal(nodes, SlotOffset(cell, oct), p, d)
}

// descend resolves the slot at word offset off to a child cell, allocating
// and publishing a new cell when the slot is EMPTY or a coarse LEAF.
func descend(nodes []uint32, counter *uint32, p Params, off int, edit EditType) (child uint32, res EditResult, ok bool) {
	idx, tagw := &nodes[off], &nodes[off+1]
	spins := 0
	for {
		tag := Tag(atomic.LoadUint32(tagw))
		switch tag {
		case TagParent:
			child = atomic.LoadUint32(idx)
			if int(child+1)*CellWords > len(nodes) {
				return 0, EditCorrupt, false
			}
			return child, EditApplied, true

		case TagBusy:
			spins++
			if spins > p.SpinLimit() {
				return 0, EditContended, false
			}
			runtime.Gosched()

		case TagEmpty, TagLeaf:
			if tag == TagEmpty && edit == EditClear {
				return 0, EditNoop, false
			}
			if !atomic.CompareAndSwapUint32(tagw, uint32(tag), uint32(TagBusy)) {
				continue // Lost the race, re-read.
			}
			child, ok = claimCell(counter, min(p.CellCapacity, len(nodes)/CellWords))
			if !ok {
				atomic.StoreUint32(tagw, uint32(tag))
				return 0, EditDropped, false
			}
			// The new cell inherits the slot contents: empty for an EMPTY
			// slot, eight copies of the leaf for a coarse LEAF.
			old := atomic.LoadUint32(idx)
			if tag == TagEmpty {
				old = 0
			}
			for s := uint8(0); s < CellSlots; s++ {
				coff := SlotOffset(child, s)
				atomic.StoreUint32(&nodes[coff], old)
				atomic.StoreUint32(&nodes[coff+1], uint32(tag))
			}
			atomic.StoreUint32(idx, child)
			atomic.SwapUint32(tagw, uint32(TagParent))
			return child, EditApplied, true

		default:
			return 0, EditCorrupt, false
		}
	}
}

func writeFinal(nodes []uint32, off int, p Params, d Delta) EditResult {
	idx, tagw := &nodes[off], &nodes[off+1]
	value, newTag := d.Value, TagLeaf
	if d.Edit == EditClear {
		value, newTag = 0, TagEmpty
	}
	spins := 0
	for {
		tag := Tag(atomic.LoadUint32(tagw))
		if tag == TagBusy {
			spins++
			if spins > p.SpinLimit() {
				return EditContended
			}
			runtime.Gosched()
			continue
		}
		if tag == TagEmpty && d.Edit == EditClear {
			return EditNoop
		}
		if !atomic.CompareAndSwapUint32(tagw, uint32(tag), uint32(TagBusy)) {
			continue
		}
		atomic.StoreUint32(idx, value)
		atomic.SwapUint32(tagw, uint32(newTag))
		return EditApplied
	}
}

// claimCell hands out the next free cell index. The counter never passes
// capacity: a claim that would exceed it fails without incrementing.
// Callers bound capacity by the cells the buffer actually holds.
func claimCell(counter *uint32, capacity int) (uint32, bool) {
	for {
		n := atomic.LoadUint32(counter)
		if n >= uint32(capacity) {
			return 0, false
		}
		if atomic.CompareAndSwapUint32(counter, n, n+1) {
			return n, true
		}
	}
}
