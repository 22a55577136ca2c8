package glvox

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox/internal/d3"
)

// Tag identifies the kind of data held by a cell slot.
type Tag uint32

// Slot tags. The values are shared with the GLSL programs through the
// generated shader header and must never change independently.
const (
	TagEmpty Tag = iota
	TagParent
	TagLeaf
	// TagBusy is held by a slot only while an update invocation is
	// subdividing or rewriting it. It is never visible after the update barrier.
	TagBusy
)

func (t Tag) String() string {
	switch t {
	case TagEmpty:
		return "EMPTY"
	case TagParent:
		return "PARENT"
	case TagLeaf:
		return "LEAF"
	case TagBusy:
		return "BUSY"
	}
	return fmt.Sprintf("Tag(%d)", uint32(t))
}

const (
	// SlotWords is the number of 32 bit words of a slot: child index and tag.
	SlotWords = 2
	// CellSlots is the fixed arity of the tree.
	CellSlots = 8
	// CellWords is the number of 32 bit words of a cell.
	CellWords = CellSlots * SlotWords
	// CellBytes is the size in bytes of a cell in the node buffer.
	CellBytes = 4 * CellWords
	// RootCell is the index of the root cell.
	RootCell = 0
)

// Slot is one child reference of a cell. Index is a cell index for PARENT
// slots and a payload (material index) for LEAF slots.
type Slot struct {
	Index uint32
	Tag   Tag
}

// Cell is the unit of allocation of the tree: one slot per octant.
type Cell [CellSlots]Slot

// SlotOffset returns the word offset of the child index of slot oct of cell.
// The tag is stored in the following word.
func SlotOffset(cell uint32, oct uint8) int {
	return int(cell)*CellWords + int(oct)*SlotWords
}

// PackSlot returns the two words stored in the node buffer for s.
func PackSlot(s Slot) (index, tag uint32) {
	return s.Index, uint32(s.Tag)
}

// UnpackSlot decodes the two words of a slot.
func UnpackSlot(index, tag uint32) Slot {
	return Slot{Index: index, Tag: Tag(tag)}
}

// AppendCellWords appends the node buffer encoding of c to dst.
func AppendCellWords(dst []uint32, c Cell) []uint32 {
	for _, s := range c {
		idx, tag := PackSlot(s)
		dst = append(dst, idx, tag)
	}
	return dst
}

// Nodes is a host side view of a node buffer.
type Nodes []uint32

// Cells returns the number of whole cells in the buffer.
func (n Nodes) Cells() int { return len(n) / CellWords }

// Slot reads slot oct of cell.
func (n Nodes) Slot(cell uint32, oct uint8) Slot {
	off := SlotOffset(cell, oct)
	return UnpackSlot(n[off], n[off+1])
}

// SetSlot writes slot oct of cell.
func (n Nodes) SetSlot(cell uint32, oct uint8, s Slot) {
	off := SlotOffset(cell, oct)
	n[off], n[off+1] = PackSlot(s)
}

// Cell reads all slots of cell.
func (n Nodes) Cell(cell uint32) (c Cell) {
	for oct := range c {
		c[oct] = n.Slot(cell, uint8(oct))
	}
	return c
}

// OctantOf returns the octant (0..7) of point p relative to a cube center.
// Bit 0 is set when p.X >= center.X, bit 1 for Y and bit 2 for Z.
func OctantOf(p, center ms3.Vec) uint8 {
	return d3.OctantOf(p, center)
}

// ChildCube returns the bounds of the child of the cube (min, size) at octant oct.
func ChildCube(min ms3.Vec, size float32, oct uint8) (childMin ms3.Vec, childSize float32) {
	c := d3.Cube{Min: min, Size: size}.Child(oct)
	return c.Min, c.Size
}
