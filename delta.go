package glvox

import (
	"math"

	"github.com/soypat/glgl/math/ms3"
)

// EditType selects the structural operation performed by a delta record.
type EditType int32

const (
	// EditSet writes a LEAF carrying the delta value at the deepest level,
	// subdividing empty cells along the way.
	EditSet EditType = iota
	// EditClear empties the deepest level slot containing the point. It never
	// allocates cells.
	EditClear
)

func (e EditType) String() string {
	switch e {
	case EditSet:
		return "set"
	case EditClear:
		return "clear"
	}
	return "unknown"
}

// DeltaWords is the std430 size in words of one delta record:
//
//	struct Delta { vec3 position; int edit_type; int value; int _pad[3]; };
const DeltaWords = 8

// Delta is one point edit. Position is in tree local coordinates, see
// [Octree.Normalize].
type Delta struct {
	Position ms3.Vec
	Edit     EditType
	Value    uint32
}

// AppendDeltaWords appends the std430 encoding of deltas to dst.
func AppendDeltaWords(dst []uint32, deltas []Delta) []uint32 {
	f := math.Float32bits
	for _, d := range deltas {
		dst = append(dst,
			f(d.Position.X), f(d.Position.Y), f(d.Position.Z), uint32(d.Edit),
			d.Value, 0, 0, 0,
		)
	}
	return dst
}

// DecodeDelta decodes the record at the start of words.
func DecodeDelta(words []uint32) Delta {
	_ = words[DeltaWords-1]
	f := math.Float32frombits
	return Delta{
		Position: ms3.Vec{X: f(words[0]), Y: f(words[1]), Z: f(words[2])},
		Edit:     EditType(int32(words[3])),
		Value:    words[4],
	}
}
