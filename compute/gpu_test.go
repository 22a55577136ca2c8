//go:build gl

package compute

import (
	"log"
	"os"
	"runtime"
	"testing"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	runtime.LockOSThread()
}

func TestMain(m *testing.M) {
	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		log.Fatal(err)
	}
	code := m.Run()
	terminate()
	os.Exit(code)
}

const quadSource = `#shader vertex
#version 460
void main() {
	gl_Position = vec4(0.0, 0.0, 0.0, 1.0);
}
#shader fragment
#version 460
out vec4 color;
void main() {
	color = vec4(1.0);
}
`

func TestCompileProgramReleasedOnError(t *testing.T) {
	gpu := NewGPU()
	defer gpu.Release()
	// Declaring shader access on a program without a compute stage fails
	// after linking.
	_, err := gpu.CompileProgram("quad", quadSource, Access{Writes: ResImage})
	assert.ErrorIs(t, err, ErrNoComputeStage)
	assert.Zero(t, gpu.Programs())
	var current int32
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &current)
	assert.Zero(t, current)

	p, err := gpu.CompileProgram("quad", quadSource, Access{})
	require.NoError(t, err)
	assert.Equal(t, 1, gpu.Programs())
	id := p.ID()
	assert.True(t, gl.IsProgram(id))

	gpu.Release()
	assert.Zero(t, gpu.Programs())
	assert.False(t, gl.IsProgram(id))
	assert.Zero(t, p.ID())
}
