package compute

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glvox/log"
)

var logger = log.New("compute")

// GPU is a Device backed by the current OpenGL 4.6 context. All methods must
// be called from the goroutine (locked OS thread) owning the context.
type GPU struct {
	buffers  []*glBuffer
	images   []*glImage
	programs []*GLProgram
}

var _ Device = (*GPU)(nil)

// NewGPU returns a device issuing commands to the current GL context.
// gl.Init must have been called.
func NewGPU() *GPU {
	return &GPU{}
}

// DriverInfo describes the GL implementation backing the GPU device.
type DriverInfo struct {
	Vendor, Renderer, Version string
	MaxWorkGroupCount         [3]int
	MaxWorkGroupSize          [3]int
	MaxInvocations            int
	MaxStorageBlockSize       int
	MaxAtomicCounterBindings  int
}

// Info queries the driver limits relevant to the octree pipeline.
func (d *GPU) Info() DriverInfo {
	var info DriverInfo
	info.Vendor = gl.GoStr(gl.GetString(gl.VENDOR))
	info.Renderer = gl.GoStr(gl.GetString(gl.RENDERER))
	info.Version = gl.GoStr(gl.GetString(gl.VERSION))
	for i := uint32(0); i < 3; i++ {
		var count, size int32
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, i, &count)
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_SIZE, i, &size)
		info.MaxWorkGroupCount[i] = int(count)
		info.MaxWorkGroupSize[i] = int(size)
	}
	var v int32
	gl.GetIntegerv(gl.MAX_COMPUTE_WORK_GROUP_INVOCATIONS, &v)
	info.MaxInvocations = int(v)
	gl.GetIntegerv(gl.MAX_SHADER_STORAGE_BLOCK_SIZE, &v)
	info.MaxStorageBlockSize = int(v)
	gl.GetIntegerv(gl.MAX_ATOMIC_COUNTER_BUFFER_BINDINGS, &v)
	info.MaxAtomicCounterBindings = int(v)
	return info
}

func (d *GPU) NewBuffer(kind BufferKind, binding uint32, words int, init []uint32) (Buffer, error) {
	if words <= 0 || len(init) > words {
		return nil, fmt.Errorf("%w: allocating %d words with %d initial", ErrOutOfBounds, words, len(init))
	}
	target := glTarget(kind)
	data := make([]uint32, words)
	copy(data, init)
	b := &glBuffer{dev: d, kind: kind, binding: binding, words: words, target: target}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(target, b.id)
	gl.BufferData(target, 4*words, gl.Ptr(data), gl.DYNAMIC_COPY)
	gl.BindBufferBase(target, binding, b.id)
	gl.BindBuffer(target, 0)
	if err := checkGLError("allocating " + kind.String() + " buffer"); err != nil {
		gl.DeleteBuffers(1, &b.id)
		return nil, err
	}
	d.buffers = append(d.buffers, b)
	logger.Debugf("allocated %s buffer %d at binding %d (%d words)", kind, b.id, binding, words)
	return b, nil
}

func (d *GPU) WriteBuffer(buf Buffer, offset int, data []uint32) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > b.words {
		return fmt.Errorf("%w: writing %d words at %d of %d", ErrOutOfBounds, len(data), offset, b.words)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(b.target, b.id)
	gl.BufferSubData(b.target, 4*offset, 4*len(data), gl.Ptr(data))
	gl.BindBuffer(b.target, 0)
	return nil
}

func (d *GPU) ReadBuffer(buf Buffer, offset int, dst []uint32) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > b.words {
		return fmt.Errorf("%w: reading %d words at %d of %d", ErrOutOfBounds, len(dst), offset, b.words)
	}
	if len(dst) == 0 {
		return nil
	}
	gl.BindBuffer(b.target, b.id)
	gl.GetBufferSubData(b.target, 4*offset, 4*len(dst), gl.Ptr(dst))
	gl.BindBuffer(b.target, 0)
	return checkGLError("reading buffer")
}

func (d *GPU) NewImage(unit uint32, width, height int) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", ErrOutOfBounds, width, height)
	}
	img := &glImage{dev: d, unit: unit, w: width, h: height}
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.GenTextures(1, &img.tex)
	gl.BindTexture(gl.TEXTURE_2D, img.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	if err := checkGLError("configuring output texture"); err != nil {
		gl.DeleteTextures(1, &img.tex)
		return nil, err
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	if err := checkGLError("allocating output texture"); err != nil {
		gl.DeleteTextures(1, &img.tex)
		return nil, err
	}
	gl.BindImageTexture(unit, img.tex, 0, false, 0, gl.READ_WRITE, gl.RGBA32F)
	if err := checkGLError("binding output image"); err != nil {
		gl.DeleteTextures(1, &img.tex)
		return nil, err
	}
	d.images = append(d.images, img)
	return img, nil
}

func (d *GPU) ReadImage(image Image, dst []float32) error {
	img, ok := image.(*glImage)
	if !ok || img.dev != d {
		return ErrForeignResource
	}
	if len(dst) < 4*img.w*img.h {
		return fmt.Errorf("%w: image needs %d floats, got %d", ErrOutOfBounds, 4*img.w*img.h, len(dst))
	}
	gl.BindTexture(gl.TEXTURE_2D, img.tex)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.FLOAT, gl.Ptr(dst))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return checkGLError("reading output image")
}

func (d *GPU) Dispatch(p Program, groups [3]uint32) error {
	prog, ok := p.(*GLProgram)
	if !ok {
		return ErrForeignResource
	}
	if !prog.compute {
		return ErrNoComputeStage
	}
	prog.Bind()
	gl.DispatchCompute(groups[0], groups[1], groups[2])
	prog.Unbind()
	return nil
}

func (d *GPU) Barrier(bits BarrierBits) {
	var glbits uint32
	for _, m := range barrierMap {
		if bits&m.bit != 0 {
			glbits |= m.gl
		}
	}
	gl.MemoryBarrier(glbits)
}

// Programs returns the number of live programs compiled by the device.
func (d *GPU) Programs() int { return len(d.programs) }

// Release deletes every buffer, image and program created by the device.
func (d *GPU) Release() {
	for _, b := range d.buffers {
		b.Release()
	}
	for _, img := range d.images {
		img.Release()
	}
	for _, p := range append([]*GLProgram(nil), d.programs...) {
		p.Release()
	}
	d.buffers, d.images, d.programs = nil, nil, nil
}

var barrierMap = [...]struct {
	bit BarrierBits
	gl  uint32
}{
	{BarrierShaderStorage, gl.SHADER_STORAGE_BARRIER_BIT},
	{BarrierAtomicCounter, gl.ATOMIC_COUNTER_BARRIER_BIT},
	{BarrierBufferUpdate, gl.BUFFER_UPDATE_BARRIER_BIT},
	{BarrierShaderImageAccess, gl.SHADER_IMAGE_ACCESS_BARRIER_BIT},
	{BarrierTextureFetch, gl.TEXTURE_FETCH_BARRIER_BIT},
	{BarrierTextureUpdate, gl.TEXTURE_UPDATE_BARRIER_BIT},
	{BarrierUniform, gl.UNIFORM_BARRIER_BIT},
}

func (d *GPU) buffer(buf Buffer) (*glBuffer, error) {
	b, ok := buf.(*glBuffer)
	if !ok || b.dev != d || b.id == 0 {
		return nil, ErrForeignResource
	}
	return b, nil
}

func glTarget(kind BufferKind) uint32 {
	switch kind {
	case UniformBuffer:
		return gl.UNIFORM_BUFFER
	case AtomicCounterBuffer:
		return gl.ATOMIC_COUNTER_BUFFER
	}
	return gl.SHADER_STORAGE_BUFFER
}

// checkGLError drains the GL error queue and returns the first error found.
func checkGLError(op string) error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	for gl.GetError() != gl.NO_ERROR {
	}
	return &DriverError{Op: op, Code: code}
}

type glBuffer struct {
	dev     *GPU
	id      uint32
	kind    BufferKind
	target  uint32
	binding uint32
	words   int
}

func (b *glBuffer) Kind() BufferKind { return b.kind }
func (b *glBuffer) Binding() uint32  { return b.binding }
func (b *glBuffer) Words() int       { return b.words }
func (b *glBuffer) Release() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

type glImage struct {
	dev  *GPU
	tex  uint32
	unit uint32
	w, h int
}

func (img *glImage) Unit() uint32              { return img.unit }
func (img *glImage) Size() (width, height int) { return img.w, img.h }
func (img *glImage) Release() {
	if img.tex != 0 {
		gl.DeleteTextures(1, &img.tex)
		img.tex = 0
	}
}

// Texture returns the GL texture name of img for display compositing.
// It returns 0 for images not created by a GPU device.
func Texture(img Image) uint32 {
	if glimg, ok := img.(*glImage); ok {
		return glimg.tex
	}
	return 0
}

// GLProgram is a linked GL program.
type GLProgram struct {
	dev       *GPU
	name      string
	prog      glgl.Program
	id        uint32
	compute   bool
	local     [3]int
	access    Access
	locations map[string]int32
}

var _ Program = (*GLProgram)(nil)

// CompileProgram compiles and links combined glgl source (stages separated by
// "#shader <stage>" lines). access declares what compute stages read and write.
func (d *GPU) CompileProgram(name, source string, access Access) (*GLProgram, error) {
	ss, err := glgl.ParseCombined(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	prog, err := glgl.CompileProgram(ss)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	p := &GLProgram{
		dev:       d,
		name:      name,
		prog:      prog,
		compute:   len(ss.Compute) > 0,
		access:    access,
		locations: make(map[string]int32),
	}
	if err := p.introspect(); err != nil {
		p.Release()
		return nil, fmt.Errorf("introspecting %s: %w", name, err)
	}
	d.programs = append(d.programs, p)
	logger.Debugf("compiled program %s (id %d, local size %v)", name, p.id, p.local)
	return p, nil
}

// introspect reads the program name and the compute local size. Programs
// declaring shader access must have a compute stage.
func (p *GLProgram) introspect() error {
	p.prog.Bind()
	var id int32
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &id)
	p.id = uint32(id)
	if p.compute {
		var size [3]int32
		gl.GetProgramiv(p.id, gl.COMPUTE_WORK_GROUP_SIZE, &size[0])
		for i := range size {
			p.local[i] = int(size[i])
		}
	}
	p.Unbind()
	if err := checkGLError("glGetProgramiv"); err != nil {
		return err
	}
	if !p.compute && p.access != (Access{}) {
		return ErrNoComputeStage
	}
	return nil
}

func (p *GLProgram) Name() string      { return p.name }
func (p *GLProgram) Bind()             { p.prog.Bind() }
func (p *GLProgram) Unbind()           { gl.UseProgram(0) }
func (p *GLProgram) LocalSize() [3]int { return p.local }
func (p *GLProgram) Access() Access    { return p.access }
func (p *GLProgram) ID() uint32        { return p.id }

func (p *GLProgram) Release() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
	if p.dev == nil {
		return
	}
	for i, q := range p.dev.programs {
		if q == p {
			p.dev.programs = append(p.dev.programs[:i], p.dev.programs[i+1:]...)
			break
		}
	}
}

func (p *GLProgram) SetInt(name string, v int32) error {
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	gl.ProgramUniform1i(p.id, loc, v)
	return p.uniformError(name)
}

func (p *GLProgram) SetFloat(name string, v float32) error {
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	gl.ProgramUniform1f(p.id, loc, v)
	return p.uniformError(name)
}

func (p *GLProgram) SetVec3(name string, v ms3.Vec) error {
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	gl.ProgramUniform3f(p.id, loc, v.X, v.Y, v.Z)
	return p.uniformError(name)
}

func (p *GLProgram) location(name string) (int32, error) {
	if loc, ok := p.locations[name]; ok {
		return loc, nil
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	if err := checkGLError("glGetUniformLocation"); err != nil {
		return -1, &UniformError{Program: p.name, Name: name, Err: err}
	}
	if loc < 0 {
		return -1, &UniformError{Program: p.name, Name: name, Err: ErrUniformNotFound}
	}
	p.locations[name] = loc
	return loc, nil
}

func (p *GLProgram) uniformError(name string) error {
	if err := checkGLError("glProgramUniform"); err != nil {
		return &UniformError{Program: p.name, Name: name, Err: err}
	}
	return nil
}
