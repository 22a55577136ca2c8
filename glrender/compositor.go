package glrender

import (
	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/glbuild"
)

// Compositor draws the output image to the current framebuffer with a
// fullscreen triangle. It requires a GL context.
type Compositor struct {
	prog     *compute.GLProgram
	vao      uint32
	Exposure float32
}

// NewCompositor compiles the blit program.
func NewCompositor(dev *compute.GPU, res *glbuild.Resources) (*Compositor, error) {
	src, err := res.Program(glbuild.BlitVertex, glbuild.BlitFragment)
	if err != nil {
		return nil, err
	}
	prog, err := dev.CompileProgram("blit", src, compute.Access{})
	if err != nil {
		return nil, err
	}
	c := &Compositor{prog: prog, Exposure: 1}
	gl.GenVertexArrays(1, &c.vao)
	if err := prog.SetInt("frame", 0); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

// Draw samples texture tex over the whole viewport.
func (c *Compositor) Draw(tex uint32, width, height int) error {
	if err := c.prog.SetFloat("exposure", c.Exposure); err != nil {
		return err
	}
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	c.prog.Bind()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.BindVertexArray(c.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	c.prog.Unbind()
	return nil
}

// Release deletes the program and vertex array.
func (c *Compositor) Release() {
	gl.DeleteVertexArrays(1, &c.vao)
	c.prog.Release()
}
