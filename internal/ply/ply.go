// Package ply reads voxel point clouds from ASCII PLY files such as the ones
// exported by MagicVoxel: one vertex per voxel with integer positions and an
// optional 8 bit colour.
package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/log"
)

var logger = log.New("ply")

var (
	ErrNotPLY      = errors.New("ply: missing magic number")
	ErrFormat      = errors.New("ply: only ascii 1.0 is supported")
	ErrNoVertices  = errors.New("ply: no vertex element")
	ErrVertexCount = errors.New("ply: vertex count does not match data")
)

// Voxel is a point of the cloud.
type Voxel struct {
	Pos [3]int32
	// Color indexes Cloud.Colors.
	Color uint32
}

// Cloud is the content of a PLY file.
type Cloud struct {
	Voxels []Voxel
	// Colors holds the distinct colours in order of first appearance.
	Colors   [][3]uint8
	Min, Max [3]int32
}

type property struct {
	name  string
	float bool
}

// Load reads the PLY file at path.
func Load(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Infof("loaded %d voxels with %d colours from %s", len(c.Voxels), len(c.Colors), path)
	return c, nil
}

// Read parses an ASCII PLY stream.
func Read(r io.Reader) (*Cloud, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	next := func() ([]string, bool) {
		for scanner.Scan() {
			lineNum++
			if tokens := strings.Fields(scanner.Text()); len(tokens) > 0 {
				return tokens, true
			}
		}
		return nil, false
	}
	emitError := func(err error, format string, args ...interface{}) error {
		return fmt.Errorf("line %d: %w: %s", lineNum, err, fmt.Sprintf(format, args...))
	}

	tokens, ok := next()
	if !ok || tokens[0] != "ply" {
		return nil, ErrNotPLY
	}
	var (
		props      []property
		vertices   = -1
		inVertices bool
	)
header:
	for {
		tokens, ok = next()
		if !ok {
			return nil, emitError(io.ErrUnexpectedEOF, "reading header")
		}
		switch tokens[0] {
		case "format":
			if len(tokens) != 3 || tokens[1] != "ascii" || tokens[2] != "1.0" {
				return nil, emitError(ErrFormat, "got %q", strings.Join(tokens[1:], " "))
			}
		case "comment", "obj_info":
		case "element":
			if len(tokens) != 3 {
				return nil, emitError(ErrNoVertices, "expected element name and count")
			}
			inVertices = tokens[1] == "vertex"
			if !inVertices {
				return nil, emitError(ErrNoVertices, "unsupported element %q", tokens[1])
			}
			n, err := strconv.Atoi(tokens[2])
			if err != nil || n < 0 {
				return nil, emitError(ErrVertexCount, "bad count %q", tokens[2])
			}
			vertices = n
		case "property":
			if !inVertices || len(tokens) != 3 {
				return nil, emitError(ErrNoVertices, "property outside vertex element")
			}
			p := property{name: tokens[2]}
			switch tokens[1] {
			case "float", "float32", "double", "float64":
				p.float = true
			case "uchar", "uint8", "char", "int8", "short", "ushort", "int", "uint", "int32", "uint32":
			default:
				return nil, emitError(ErrFormat, "unsupported property type %q", tokens[1])
			}
			props = append(props, p)
		case "end_header":
			break header
		default:
			return nil, emitError(ErrFormat, "unexpected header keyword %q", tokens[0])
		}
	}
	if vertices < 0 {
		return nil, ErrNoVertices
	}

	c := &Cloud{Voxels: make([]Voxel, 0, vertices)}
	colors := make(map[[3]uint8]uint32)
	for len(c.Voxels) < vertices {
		tokens, ok = next()
		if !ok {
			return nil, fmt.Errorf("%w: got %d of %d vertices", ErrVertexCount, len(c.Voxels), vertices)
		}
		if len(tokens) != len(props) {
			return nil, emitError(ErrVertexCount, "expected %d values, got %d", len(props), len(tokens))
		}
		var v Voxel
		rgb := [3]uint8{255, 255, 255}
		for i, p := range props {
			f, err := strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return nil, emitError(err, "property %s", p.name)
			}
			switch p.name {
			case "x":
				v.Pos[0] = int32(math.Floor(f))
			case "y":
				v.Pos[1] = int32(math.Floor(f))
			case "z":
				v.Pos[2] = int32(math.Floor(f))
			case "red", "r":
				rgb[0] = channel(f)
			case "green", "g":
				rgb[1] = channel(f)
			case "blue", "b":
				rgb[2] = channel(f)
			}
		}
		idx, seen := colors[rgb]
		if !seen {
			idx = uint32(len(c.Colors))
			colors[rgb] = idx
			c.Colors = append(c.Colors, rgb)
		}
		v.Color = idx
		c.add(v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if tokens, ok = next(); ok {
		return nil, emitError(ErrVertexCount, "trailing data after %d vertices", vertices)
	}
	return c, nil
}

func channel(f float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(f))))
}

func (c *Cloud) add(v Voxel) {
	if len(c.Voxels) == 0 {
		c.Min, c.Max = v.Pos, v.Pos
	}
	for i := range v.Pos {
		c.Min[i] = min(c.Min[i], v.Pos[i])
		c.Max[i] = max(c.Max[i], v.Pos[i])
	}
	c.Voxels = append(c.Voxels, v)
}

// FitParams returns octree parameters with one leaf voxel per cloud unit and
// a root cube anchored at the cloud minimum, just deep enough to hold it.
func (c *Cloud) FitParams(cellCapacity, maxTraversalIter int) glvox.Params {
	extent := int32(1)
	for i := range c.Min {
		extent = max(extent, c.Max[i]-c.Min[i]+1)
	}
	depth := 1
	for int64(1)<<depth < int64(extent) {
		depth++
	}
	return glvox.Params{
		MinPoint:         ms3.Vec{X: float32(c.Min[0]), Y: float32(c.Min[1]), Z: float32(c.Min[2])},
		Scale:            float32(int64(1) << depth),
		MaxDepth:         depth,
		CellCapacity:     cellCapacity,
		MaxTraversalIter: maxTraversalIter,
	}
}

// Deltas returns one set edit per voxel for a tree with parameters p. The
// cloud minimum lands on the root cube corner and each cloud unit fills one
// leaf voxel. Leaf values are the colour index plus base, so colours can
// follow the materials already in a palette. Voxels outside the root cube
// are skipped.
func (c *Cloud) Deltas(p glvox.Params, base uint32) []glvox.Delta {
	leaf := 1 / float32(uint32(1)<<p.MaxDepth)
	deltas := make([]glvox.Delta, 0, len(c.Voxels))
	for _, v := range c.Voxels {
		local := ms3.Vec{
			X: (float32(v.Pos[0]-c.Min[0]) + 0.5) * leaf,
			Y: (float32(v.Pos[1]-c.Min[1]) + 0.5) * leaf,
			Z: (float32(v.Pos[2]-c.Min[2]) + 0.5) * leaf,
		}
		if local.X > 1 || local.Y > 1 || local.Z > 1 {
			continue
		}
		deltas = append(deltas, glvox.Delta{Position: local, Edit: glvox.EditSet, Value: base + v.Color})
	}
	return deltas
}
