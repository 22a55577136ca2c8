// Package compute abstracts the compute pipeline the octree runs on: buffers
// bound to fixed binding points, storage images, compute programs and memory
// barriers. Two devices implement it: [GPU], backed by OpenGL 4.6 compute
// shaders, and [CPU], which runs Go kernels over host memory with the same
// ordering rules and is used for headless rendering and testing.
package compute

import (
	"github.com/soypat/glgl/math/ms3"
)

// BufferKind selects the binding target of a buffer.
type BufferKind uint8

const (
	StorageBuffer BufferKind = iota
	UniformBuffer
	AtomicCounterBuffer
)

func (k BufferKind) String() string {
	switch k {
	case StorageBuffer:
		return "storage"
	case UniformBuffer:
		return "uniform"
	case AtomicCounterBuffer:
		return "atomic-counter"
	}
	return "unknown"
}

// BarrierBits selects which shader writes a memory barrier makes visible.
// They mirror the glMemoryBarrier bits.
type BarrierBits uint32

const (
	BarrierShaderStorage BarrierBits = 1 << iota
	BarrierAtomicCounter
	BarrierBufferUpdate
	BarrierShaderImageAccess
	BarrierTextureFetch
	BarrierTextureUpdate
	BarrierUniform

	BarrierAll = BarrierShaderStorage | BarrierAtomicCounter | BarrierBufferUpdate |
		BarrierShaderImageAccess | BarrierTextureFetch | BarrierTextureUpdate | BarrierUniform
)

// Resource classifies what a program touches for barrier bookkeeping.
type Resource uint8

const (
	ResStorage Resource = 1 << iota
	ResCounter
	ResImage
)

// Access describes the resources a program reads and writes.
type Access struct {
	Reads  Resource
	Writes Resource
}

// Buffer is a device buffer bound to a fixed binding point of its kind.
type Buffer interface {
	Kind() BufferKind
	Binding() uint32
	// Words returns the size of the buffer in 32 bit words.
	Words() int
	Release()
}

// Image is a 2D rgba32f storage image bound to an image unit.
type Image interface {
	Unit() uint32
	Size() (width, height int)
	Release()
}

// Program is a linked program whose uniforms can be set by name.
type Program interface {
	Name() string
	Bind()
	Unbind()
	// LocalSize returns the declared local work group size. Zero valued for
	// programs without a compute stage.
	LocalSize() [3]int
	Access() Access
	SetInt(name string, v int32) error
	SetFloat(name string, v float32) error
	SetVec3(name string, v ms3.Vec) error
	Release()
}

// Device issues commands to a compute backend. Commands execute in program
// order from a single goroutine; visibility of shader writes across
// dispatches is established only by Barrier.
type Device interface {
	// NewBuffer allocates a buffer of words 32 bit words bound to binding.
	// init, if not nil, is copied to the start of the buffer and the rest is zeroed.
	NewBuffer(kind BufferKind, binding uint32, words int, init []uint32) (Buffer, error)
	WriteBuffer(b Buffer, offset int, data []uint32) error
	ReadBuffer(b Buffer, offset int, dst []uint32) error
	NewImage(unit uint32, width, height int) (Image, error)
	// ReadImage reads width*height*4 rgba floats into dst.
	ReadImage(img Image, dst []float32) error
	Dispatch(p Program, groups [3]uint32) error
	Barrier(bits BarrierBits)
}

// GroupCount returns the number of work groups along each axis needed so that
// at least dims invocations run with the given local size. Every axis
// dispatches at least one group.
func GroupCount(dims [3]int, local [3]int) [3]uint32 {
	var groups [3]uint32
	for i := range groups {
		l := max(local[i], 1)
		n := (dims[i] + l - 1) / l
		groups[i] = uint32(max(n, 1))
	}
	return groups
}
