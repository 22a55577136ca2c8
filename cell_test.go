package glvox

import (
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLayout(t *testing.T) {
	nodes := make(Nodes, 3*CellWords)
	nodes.SetSlot(2, 7, Slot{Index: 5, Tag: TagLeaf})
	assert.EqualValues(t, 5, nodes[16*2+2*7])
	assert.EqualValues(t, TagLeaf, nodes[16*2+2*7+1])
	assert.Equal(t, Slot{Index: 5, Tag: TagLeaf}, nodes.Slot(2, 7))
	assert.Equal(t, 3, nodes.Cells())

	c := Cell{{Index: 1, Tag: TagParent}}
	words := AppendCellWords(nil, c)
	require.Len(t, words, CellWords)
	assert.Equal(t, []uint32{1, uint32(TagParent)}, words[:2])
	assert.Equal(t, "PARENT", TagParent.String())
	assert.Equal(t, "Tag(9)", Tag(9).String())
}

func TestOctantOrdering(t *testing.T) {
	center := ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	for _, tc := range []struct {
		p    ms3.Vec
		want uint8
	}{
		{ms3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 0},
		{ms3.Vec{X: 0.9, Y: 0.1, Z: 0.1}, 1},
		{ms3.Vec{X: 0.1, Y: 0.9, Z: 0.1}, 2},
		{ms3.Vec{X: 0.1, Y: 0.1, Z: 0.9}, 4},
		{ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 7}, // Ties select the upper half.
	} {
		got := OctantOf(tc.p, center)
		assert.Equal(t, tc.want, got, "point %v", tc.p)
		min, size := ChildCube(ms3.Vec{}, 1, got)
		assert.Equal(t, float32(0.5), size)
		assert.LessOrEqual(t, min.X, tc.p.X)
		assert.LessOrEqual(t, tc.p.X, min.X+size)
	}
}

func TestParamBlock(t *testing.T) {
	p := Params{
		MinPoint:         ms3.Vec{X: -1, Y: 2, Z: 3},
		Scale:            8,
		MaxDepth:         3,
		CellCapacity:     100,
		MaxTraversalIter: 30,
	}
	require.NoError(t, p.Validate())
	assert.Equal(t, float32(1), p.BlockDistance())
	block := p.AppendBlock(nil, 4)
	require.Len(t, block, ParamWords)
	got, initial := DecodeBlock(block)
	assert.Equal(t, p, got)
	assert.Equal(t, 4, initial)

	local := p.Normalize(ms3.Vec{X: 3, Y: 6, Z: 11})
	assert.Equal(t, ms3.Vec{X: 0.5, Y: 0.5, Z: 1}, local)
	assert.Equal(t, ms3.Vec{X: 3, Y: 6, Z: 11}, p.Denormalize(local))
}

func TestParamValidation(t *testing.T) {
	base := Params{Scale: 1, MaxDepth: 3, CellCapacity: 10, MaxTraversalIter: 8}
	for _, tc := range []struct {
		mod  func(*Params)
		want error
	}{
		{func(p *Params) { p.Scale = 0 }, ErrBadScale},
		{func(p *Params) { p.Scale = -2 }, ErrBadScale},
		{func(p *Params) { p.MaxDepth = 0 }, ErrBadDepth},
		{func(p *Params) { p.MaxDepth = MaxDepthLimit + 1 }, ErrBadDepth},
		{func(p *Params) { p.CellCapacity = 0 }, ErrBadCapacity},
		{func(p *Params) { p.CellCapacity = MaxCellCapacity + 1 }, ErrBadCapacity},
		{func(p *Params) { p.MaxTraversalIter = 0 }, ErrBadTraversalIter},
		{func(p *Params) { p.MaxDepth = MaxDepthLimit }, nil},
	} {
		p := base
		tc.mod(&p)
		assert.ErrorIs(t, p.Validate(), tc.want)
	}
}

func TestDeltaEncoding(t *testing.T) {
	deltas := []Delta{
		{Position: ms3.Vec{X: 0.25, Y: 0.5, Z: 0.75}, Edit: EditSet, Value: 7},
		{Position: ms3.Vec{X: 1, Y: 0, Z: 0}, Edit: EditClear},
	}
	words := AppendDeltaWords(nil, deltas)
	require.Len(t, words, 2*DeltaWords)
	assert.EqualValues(t, EditClear, words[DeltaWords+3])
	for i, d := range deltas {
		assert.Equal(t, d, DecodeDelta(words[i*DeltaWords:]))
	}
}

func TestMaterialEncoding(t *testing.T) {
	palette := []Material{
		{Albedo: [3]float32{0.1, 0.2, 0.3}},
		{Albedo: [3]float32{1, 1, 1}, Kind: Metal, Fuzz: 0.25},
	}
	words := AppendMaterialWords(nil, palette)
	require.Len(t, words, 2*MaterialWords)
	for i, m := range palette {
		assert.Equal(t, m, DecodeMaterial(words[i*MaterialWords:]))
	}
	assert.Equal(t, "metal", Metal.String())
}
