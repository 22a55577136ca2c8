package glrender

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToImage(t *testing.T) {
	// Bottom row white, top row half grey.
	pix := []float32{
		1, 1, 1, 1,
		0.5, 0.5, 0.5, 1,
	}
	img := ToImage(pix, 1, 2, 1)
	assert.Equal(t, color.NRGBA{R: 186, G: 186, B: 186, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(0, 1))

	img = ToImage([]float32{0.25, 2, -1, 1}, 1, 1, 2)
	assert.Equal(t, color.NRGBA{R: 186, G: 255, B: 0, A: 255}, img.NRGBAAt(0, 0))
}

func TestPresent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	assert.Same(t, src, Present(src, 8, 6).(*image.NRGBA))
	dst := Present(src, 4, 3)
	assert.Equal(t, image.Rect(0, 0, 4, 3), dst.Bounds())
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, SavePNG(path, ToImage(make([]float32, 4*4*4), 4, 4, 1)))
	assert.FileExists(t, path)
}

func TestPaletteUpload(t *testing.T) {
	dev := compute.NewCPU()
	buf, err := DefaultPalette().Upload(dev)
	require.NoError(t, err)
	assert.Equal(t, 8*glvox.MaterialWords, buf.Words())
	assert.EqualValues(t, glvox.BindingPalette, buf.Binding())

	words := make([]uint32, buf.Words())
	require.NoError(t, dev.ReadBuffer(buf, 0, words))
	gold := glvox.DecodeMaterial(words[4*glvox.MaterialWords:])
	assert.Equal(t, glvox.Metal, gold.Kind)
	assert.InDelta(t, 0.05, gold.Fuzz, 1e-6)

	buf, err = Palette(nil).Upload(dev)
	require.NoError(t, err)
	assert.Equal(t, glvox.MaterialWords, buf.Words())
}

func TestNewMaterial(t *testing.T) {
	m := NewMaterial("#ff8000", glvox.Lambertian, 0)
	assert.InDelta(t, 1, m.Albedo[0], 1e-6)
	assert.InDelta(t, 128.0/255, m.Albedo[1], 1e-6)
	assert.Zero(t, m.Albedo[2])
}
