package mesh

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

const stlTriangleSize = 50

var (
	ErrEmptyMesh   = errors.New("mesh: no triangles")
	ErrSTLHeader   = errors.New("mesh: bad STL header")
	ErrSTLTriangle = errors.New("mesh: bad STL triangle")
)

// stlHeader is the 84 byte binary STL preamble.
type stlHeader struct {
	_     [80]uint8
	Count uint32
}

// CreateSTL writes the triangles to a new binary STL file at path.
func CreateSTL(path string, model []Triangle) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSTL(fp, model); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// WriteSTL writes model triangles to w in binary STL format.
func WriteSTL(w io.Writer, model []Triangle) error {
	if len(model) == 0 {
		return ErrEmptyMesh
	}
	bw := bufio.NewWriter(w)
	header := stlHeader{Count: uint32(len(model))}
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [stlTriangleSize]byte
	for _, t := range model {
		stlFromTriangle(t).put(b[:])
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSTL reads a binary STL model. Triangles with non finite components are
// rejected.
func ReadSTL(r io.Reader) ([]Triangle, error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSTLHeader, err)
	}
	if header.Count == 0 {
		return nil, fmt.Errorf("%w: zero triangles", ErrSTLHeader)
	}
	var (
		b [stlTriangleSize]byte
		d stlTriangle
	)
	model := make([]Triangle, 0, header.Count)
	for i := 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, header.Count, err)
		}
		d.get(b[:])
		if d.bad() {
			return nil, fmt.Errorf("%w %d: inf/NaN component", ErrSTLTriangle, i)
		}
		model = append(model, d.triangle())
	}
	return model, nil
}

// stlTriangle is the on disk layout of a triangle, followed by an unused
// attribute byte count.
type stlTriangle struct {
	Normal [3]float32
	V      [3][3]float32
}

func stlFromTriangle(t Triangle) (d stlTriangle) {
	d.Normal = f32(t.Normal())
	for i, v := range t.V {
		d.V[i] = f32(v)
	}
	return d
}

func f32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func (d stlTriangle) put(b []byte) {
	_ = b[stlTriangleSize-1]
	put3F32(b, d.Normal)
	for i, v := range d.V {
		put3F32(b[12*(i+1):], v)
	}
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (d *stlTriangle) get(b []byte) {
	_ = b[stlTriangleSize-1]
	get3F32(b, &d.Normal)
	for i := range d.V {
		get3F32(b[12*(i+1):], &d.V[i])
	}
}

func (d stlTriangle) bad() bool {
	return bad3F32(d.Normal) || bad3F32(d.V[0]) || bad3F32(d.V[1]) || bad3F32(d.V[2])
}

func (d stlTriangle) triangle() (t Triangle) {
	for i, v := range d.V {
		t.V[i] = r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}
	return t
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11]
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11]
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}
