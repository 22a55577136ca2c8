package compute

import (
	"fmt"
	"runtime"

	"github.com/soypat/glgl/math/ms3"
	"golang.org/x/sync/errgroup"
)

// Command is an entry of the CPU device command log.
type Command struct {
	// Op is one of "dispatch", "barrier", "write", "read".
	Op      string
	Program string
	Groups  [3]uint32
	Barrier BarrierBits
	Binding uint32
	Words   int
}

// CPU is a Device that runs [Kernel] programs over host memory. Work groups
// of a dispatch run concurrently on up to Workers goroutines, so kernels that
// share memory across invocations must use sync/atomic exactly where a GLSL
// program would use atomic operations.
//
// The CPU device also tracks shader writes that have not been made visible by
// a barrier. Reading them back or dispatching a program that reads them
// fails with ErrHazard, which on a real GPU would be a silent stale read.
type CPU struct {
	// Workers bounds the number of work groups executed concurrently.
	// Zero means runtime.GOMAXPROCS.
	Workers int

	buffers map[bufKey]*cpuBuffer
	images  map[uint32]*cpuImage
	dirty   BarrierBits
	log     []Command
}

type bufKey struct {
	kind    BufferKind
	binding uint32
}

var _ Device = (*CPU)(nil)

// NewCPU returns a ready to use CPU device.
func NewCPU() *CPU {
	return &CPU{
		buffers: make(map[bufKey]*cpuBuffer),
		images:  make(map[uint32]*cpuImage),
	}
}

// Commands returns the commands issued since the last call to ResetCommands.
func (d *CPU) Commands() []Command { return d.log }

// ResetCommands clears the command log.
func (d *CPU) ResetCommands() { d.log = d.log[:0] }

// Pending returns barrier bits whose shader writes are not yet visible.
func (d *CPU) Pending() BarrierBits { return d.dirty }

// CheckVisible returns ErrHazard if writes covered by bits are pending.
func (d *CPU) CheckVisible(bits BarrierBits) error {
	if d.dirty&bits != 0 {
		return fmt.Errorf("%w (pending %#x)", ErrHazard, uint32(d.dirty&bits))
	}
	return nil
}

func (d *CPU) NewBuffer(kind BufferKind, binding uint32, words int, init []uint32) (Buffer, error) {
	if words <= 0 || len(init) > words {
		return nil, fmt.Errorf("%w: allocating %d words with %d initial", ErrOutOfBounds, words, len(init))
	}
	b := &cpuBuffer{dev: d, kind: kind, binding: binding, data: make([]uint32, words)}
	copy(b.data, init)
	d.buffers[bufKey{kind, binding}] = b
	return b, nil
}

func (d *CPU) WriteBuffer(buf Buffer, offset int, data []uint32) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("%w: writing %d words at %d of %d", ErrOutOfBounds, len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	d.log = append(d.log, Command{Op: "write", Binding: b.binding, Words: len(data)})
	return nil
}

func (d *CPU) ReadBuffer(buf Buffer, offset int, dst []uint32) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > len(b.data) {
		return fmt.Errorf("%w: reading %d words at %d of %d", ErrOutOfBounds, len(dst), offset, len(b.data))
	}
	if err := d.CheckVisible(BarrierBufferUpdate); err != nil {
		return err
	}
	copy(dst, b.data[offset:])
	d.log = append(d.log, Command{Op: "read", Binding: b.binding, Words: len(dst)})
	return nil
}

func (d *CPU) NewImage(unit uint32, width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrOutOfBounds, width, height)
	}
	img := &cpuImage{dev: d, unit: unit, w: width, h: height, pix: make([]float32, 4*width*height)}
	d.images[unit] = img
	return img, nil
}

func (d *CPU) ReadImage(image Image, dst []float32) error {
	img, ok := image.(*cpuImage)
	if !ok || img.dev != d {
		return ErrForeignResource
	}
	if len(dst) < len(img.pix) {
		return fmt.Errorf("%w: image needs %d floats, got %d", ErrOutOfBounds, len(img.pix), len(dst))
	}
	if err := d.CheckVisible(BarrierTextureUpdate); err != nil {
		return err
	}
	copy(dst, img.pix)
	return nil
}

func (d *CPU) Barrier(bits BarrierBits) {
	d.dirty &^= bits
	d.log = append(d.log, Command{Op: "barrier", Barrier: bits})
}

func (d *CPU) Dispatch(p Program, groups [3]uint32) error {
	prog, ok := p.(*CPUProgram)
	if !ok {
		return ErrForeignResource
	}
	access := prog.Access()
	if err := d.CheckVisible(readBarriers(access.Reads)); err != nil {
		return fmt.Errorf("dispatching %s: %w", prog.name, err)
	}
	d.log = append(d.log, Command{Op: "dispatch", Program: prog.name, Groups: groups})
	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for z := uint32(0); z < groups[2]; z++ {
		for y := uint32(0); y < groups[1]; y++ {
			for x := uint32(0); x < groups[0]; x++ {
				wg := [3]uint32{x, y, z}
				eg.Go(func() error {
					return d.runGroup(prog, wg, groups)
				})
			}
		}
	}
	err := eg.Wait()
	// Writes land even when the dispatch failed midway.
	d.dirty |= writeBarriers(access.Writes)
	return err
}

func (d *CPU) runGroup(prog *CPUProgram, wg, groups [3]uint32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compute: kernel %s panicked in work group %v: %v", prog.name, wg, r)
		}
	}()
	local := prog.local
	inv := Invocation{WorkGroupID: wg, NumWorkGroups: groups, dev: d, prog: prog}
	for lz := 0; lz < local[2]; lz++ {
		for ly := 0; ly < local[1]; ly++ {
			for lx := 0; lx < local[0]; lx++ {
				inv.LocalID = [3]uint32{uint32(lx), uint32(ly), uint32(lz)}
				for i := range inv.GlobalID {
					inv.GlobalID[i] = wg[i]*uint32(local[i]) + inv.LocalID[i]
				}
				prog.kernel(&inv)
			}
		}
	}
	return nil
}

func (d *CPU) buffer(buf Buffer) (*cpuBuffer, error) {
	b, ok := buf.(*cpuBuffer)
	if !ok || b.dev != d {
		return nil, ErrForeignResource
	}
	return b, nil
}

func readBarriers(r Resource) (bits BarrierBits) {
	if r&ResStorage != 0 {
		bits |= BarrierShaderStorage
	}
	if r&ResCounter != 0 {
		bits |= BarrierAtomicCounter
	}
	if r&ResImage != 0 {
		bits |= BarrierShaderImageAccess
	}
	return bits
}

func writeBarriers(r Resource) (bits BarrierBits) {
	if r&ResStorage != 0 {
		bits |= BarrierShaderStorage | BarrierBufferUpdate
	}
	if r&ResCounter != 0 {
		bits |= BarrierAtomicCounter | BarrierBufferUpdate
	}
	if r&ResImage != 0 {
		bits |= BarrierShaderImageAccess | BarrierTextureFetch | BarrierTextureUpdate
	}
	return bits
}

type cpuBuffer struct {
	dev     *CPU
	kind    BufferKind
	binding uint32
	data    []uint32
}

func (b *cpuBuffer) Kind() BufferKind { return b.kind }
func (b *cpuBuffer) Binding() uint32  { return b.binding }
func (b *cpuBuffer) Words() int       { return len(b.data) }
func (b *cpuBuffer) Release() {
	key := bufKey{b.kind, b.binding}
	if b.dev.buffers[key] == b {
		delete(b.dev.buffers, key)
	}
}

type cpuImage struct {
	dev  *CPU
	unit uint32
	w, h int
	pix  []float32
}

func (img *cpuImage) Unit() uint32              { return img.unit }
func (img *cpuImage) Size() (width, height int) { return img.w, img.h }
func (img *cpuImage) Release() {
	if img.dev.images[img.unit] == img {
		delete(img.dev.images, img.unit)
	}
}

// UniformKind is the declared type of a CPU program uniform.
type UniformKind uint8

const (
	UniformInt UniformKind = iota
	UniformFloat
	UniformVec3
)

type uniformValue struct {
	kind UniformKind
	i    int32
	f    float32
	v    ms3.Vec
}

// Kernel is the body of a CPU compute program, run once per invocation.
type Kernel func(inv *Invocation)

// CPUProgram is a compute program for the CPU device.
type CPUProgram struct {
	name     string
	local    [3]int
	access   Access
	kernel   Kernel
	uniforms map[string]*uniformValue
}

var _ Program = (*CPUProgram)(nil)

// NewCPUProgram creates a program running kernel with the given local work
// group size. Only uniforms declared in the uniforms map can be set.
func NewCPUProgram(name string, local [3]int, access Access, uniforms map[string]UniformKind, kernel Kernel) *CPUProgram {
	for i := range local {
		local[i] = max(local[i], 1)
	}
	p := &CPUProgram{
		name:     name,
		local:    local,
		access:   access,
		kernel:   kernel,
		uniforms: make(map[string]*uniformValue, len(uniforms)),
	}
	for name, kind := range uniforms {
		p.uniforms[name] = &uniformValue{kind: kind}
	}
	return p
}

func (p *CPUProgram) Name() string      { return p.name }
func (p *CPUProgram) Bind()             {}
func (p *CPUProgram) Unbind()           {}
func (p *CPUProgram) Release()          {}
func (p *CPUProgram) LocalSize() [3]int { return p.local }
func (p *CPUProgram) Access() Access    { return p.access }

func (p *CPUProgram) SetInt(name string, v int32) error {
	u, err := p.uniform(name, UniformInt)
	if err == nil {
		u.i = v
	}
	return err
}

func (p *CPUProgram) SetFloat(name string, v float32) error {
	u, err := p.uniform(name, UniformFloat)
	if err == nil {
		u.f = v
	}
	return err
}

func (p *CPUProgram) SetVec3(name string, v ms3.Vec) error {
	u, err := p.uniform(name, UniformVec3)
	if err == nil {
		u.v = v
	}
	return err
}

func (p *CPUProgram) uniform(name string, kind UniformKind) (*uniformValue, error) {
	u, ok := p.uniforms[name]
	if !ok {
		return nil, &UniformError{Program: p.name, Name: name, Err: ErrUniformNotFound}
	}
	if u.kind != kind {
		// Mirrors GL_INVALID_OPERATION for a setter of the wrong type.
		return nil, &UniformError{Program: p.name, Name: name, Err: &DriverError{Op: "glProgramUniform", Code: 0x0502}}
	}
	return u, nil
}

// Invocation is the execution context of one kernel invocation.
type Invocation struct {
	GlobalID      [3]uint32
	LocalID       [3]uint32
	WorkGroupID   [3]uint32
	NumWorkGroups [3]uint32

	dev  *CPU
	prog *CPUProgram
}

// Storage returns the contents of the storage buffer at binding, or nil.
func (inv *Invocation) Storage(binding uint32) []uint32 {
	return inv.bufferData(StorageBuffer, binding)
}

// UniformBlock returns the contents of the uniform buffer at binding, or nil.
func (inv *Invocation) UniformBlock(binding uint32) []uint32 {
	return inv.bufferData(UniformBuffer, binding)
}

// Counter returns the first word of the atomic counter buffer at binding.
// It must only be accessed through sync/atomic.
func (inv *Invocation) Counter(binding uint32) *uint32 {
	data := inv.bufferData(AtomicCounterBuffer, binding)
	if len(data) == 0 {
		return nil
	}
	return &data[0]
}

func (inv *Invocation) bufferData(kind BufferKind, binding uint32) []uint32 {
	b := inv.dev.buffers[bufKey{kind, binding}]
	if b == nil {
		return nil
	}
	return b.data
}

func (inv *Invocation) Int(name string) int32     { return inv.prog.uniforms[name].i }
func (inv *Invocation) Float(name string) float32 { return inv.prog.uniforms[name].f }
func (inv *Invocation) Vec3(name string) ms3.Vec  { return inv.prog.uniforms[name].v }

// ImageSize returns the size of the image bound to unit.
func (inv *Invocation) ImageSize(unit uint32) (width, height int) {
	img := inv.dev.images[unit]
	if img == nil {
		return 0, 0
	}
	return img.w, img.h
}

// ImageStore writes an rgba texel. Out of range coordinates are ignored as
// imageStore does.
func (inv *Invocation) ImageStore(unit uint32, x, y int, rgba [4]float32) {
	img := inv.dev.images[unit]
	if img == nil || x < 0 || y < 0 || x >= img.w || y >= img.h {
		return
	}
	off := 4 * (y*img.w + x)
	copy(img.pix[off:off+4], rgba[:])
}
