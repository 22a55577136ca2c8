// Package glbuild assembles the GLSL programs of the octree pipeline. The
// constants and buffer layouts shared by the update and raytrace programs
// are generated from their Go definitions so both sides cannot diverge.
package glbuild

import (
	"bytes"
	"strconv"

	"github.com/soypat/glvox"
)

// GLSLVersion is the version directive of every generated stage.
const GLSLVersion = "#version 460\n"

// Ambient is the fraction of the albedo visible on unlit faces.
const Ambient = 0.2

// AppendHeader appends the shared compute header: tag, edit and material
// constants, resource bindings with their layouts and the cell addressing
// helpers.
func AppendHeader(b []byte) []byte {
	b = append(b, "// Generated by glbuild. Do not edit.\n"...)
	b = AppendUintDefine(b, "TAG_EMPTY", uint32(glvox.TagEmpty))
	b = AppendUintDefine(b, "TAG_PARENT", uint32(glvox.TagParent))
	b = AppendUintDefine(b, "TAG_LEAF", uint32(glvox.TagLeaf))
	b = AppendUintDefine(b, "TAG_BUSY", uint32(glvox.TagBusy))
	b = AppendUintDefine(b, "CELL_WORDS", glvox.CellWords)
	b = AppendUintDefine(b, "SLOT_WORDS", glvox.SlotWords)
	b = AppendUintDefine(b, "CELL_SLOTS", glvox.CellSlots)
	b = AppendIntDefine(b, "EDIT_SET", int(glvox.EditSet))
	b = AppendIntDefine(b, "EDIT_CLEAR", int(glvox.EditClear))
	b = AppendIntDefine(b, "MATERIAL_LAMBERTIAN", int(glvox.Lambertian))
	b = AppendIntDefine(b, "MATERIAL_METAL", int(glvox.Metal))
	b = AppendFloatDefine(b, "AMBIENT", Ambient)
	for _, bit := range [...]XYZBits{xBit, yBit, zBit} {
		b = append(b, "#define OCT_"...)
		b = bit.AppendMapped(b, [3]byte{'X', 'Y', 'Z'})
		b = append(b, ' ')
		b = strconv.AppendUint(b, uint64(bit), 10)
		b = append(b, "u\n"...)
	}
	b = append(b, '\n')

	b = appendLayout(b, "std430", glvox.BindingNodes)
	b = append(b, "coherent volatile buffer NodeBuffer { uint nodes[]; };\n"...)
	b = appendLayout(b, "std140", glvox.BindingParams)
	b = append(b, `uniform OctreeParams {
	vec3 min_point;
	float scale;
	float inv_scale;
	int max_depth;
	int max_traversal_iter;
	int cell_capacity;
	float block_distance;
	int initial_cells;
	int _pad0;
	int _pad1;
} octree;
`...)
	b = append(b, "layout(binding = "...)
	b = strconv.AppendInt(b, glvox.BindingCounter, 10)
	b = append(b, ", offset = 0) uniform atomic_uint active_cells;\n"...)
	b = append(b, "struct Delta { vec3 position; int edit_type; uint value; uint _pad[3]; };\n"...)
	b = appendLayout(b, "std430", glvox.BindingDeltas)
	b = append(b, "readonly buffer DeltaBuffer { Delta deltas[]; };\n"...)
	b = append(b, "struct Material { vec4 albedo; vec4 props; };\n"...)
	b = appendLayout(b, "std430", glvox.BindingPalette)
	b = append(b, "readonly buffer PaletteBuffer { Material materials[]; };\n"...)
	b = appendLayout(b, "rgba32f", glvox.ImageUnitOutput)
	b = append(b, "uniform image2D output_image;\n\n"...)

	b = append(b, "uint octant_of(vec3 p, vec3 center) {\n\tuint oct = 0u;\n"...)
	for _, bit := range [...]XYZBits{xBit, yBit, zBit} {
		b = append(b, "\tif (p."...)
		b = bit.AppendMapped(b, [3]byte{'x', 'y', 'z'})
		b = append(b, " >= center."...)
		b = bit.AppendMapped(b, [3]byte{'x', 'y', 'z'})
		b = append(b, ") oct |= OCT_"...)
		b = bit.AppendMapped(b, [3]byte{'X', 'Y', 'Z'})
		b = append(b, ";\n"...)
	}
	b = append(b, `	return oct;
}

void child_cube(inout vec3 cmin, inout float size, uint oct) {
	size *= 0.5;
	cmin += size * vec3((oct & OCT_X) != 0u, (oct & OCT_Y) != 0u, (oct & OCT_Z) != 0u);
}

uint slot_offset(uint cell, uint oct) {
	return cell * CELL_WORDS + oct * SLOT_WORDS;
}
`...)
	return b
}

func appendLayout(b []byte, qualifier string, binding int) []byte {
	b = append(b, "layout("...)
	b = append(b, qualifier...)
	b = append(b, ", binding = "...)
	b = strconv.AppendInt(b, int64(binding), 10)
	b = append(b, ") "...)
	return b
}

func AppendUintDefine(b []byte, name string, v uint32) []byte {
	b = append(b, "#define "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = strconv.AppendUint(b, uint64(v), 10)
	b = append(b, "u\n"...)
	return b
}

func AppendIntDefine(b []byte, name string, v int) []byte {
	b = append(b, "#define "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(v), 10)
	b = append(b, '\n')
	return b
}

func AppendFloatDefine(b []byte, name string, v float32) []byte {
	b = append(b, "#define "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = AppendFloat(b, v, '-', '.')
	b = append(b, '\n')
	return b
}

// AppendFloat appends a GLSL float literal. A decimal point is always
// present so the literal is never parsed as an integer.
func AppendFloat(b []byte, v float32, neg, decimal byte) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', 6, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Trim zeroes, keeping one after the decimal point.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > start+idx+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// XYZBits is an octant index viewed as a set of axes.
type XYZBits uint8

const (
	xBit XYZBits = 1 << iota
	yBit
	zBit
)

func (xyz XYZBits) X() bool { return xyz&xBit != 0 }
func (xyz XYZBits) Y() bool { return xyz&yBit != 0 }
func (xyz XYZBits) Z() bool { return xyz&zBit != 0 }

// AppendMapped appends the Map entry of every axis set in xyz.
func (xyz XYZBits) AppendMapped(b []byte, Map [3]byte) []byte {
	if xyz.X() {
		b = append(b, Map[0])
	}
	if xyz.Y() {
		b = append(b, Map[1])
	}
	if xyz.Z() {
		b = append(b, Map[2])
	}
	return b
}
