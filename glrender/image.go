package glrender

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
)

// ToImage converts rgba floats with rows stored bottom up, as read back
// from the output image, into an 8 bit image with rows top down. Colours are
// scaled by exposure and gamma corrected like the blit shader does.
func ToImage(pix []float32, width, height int, exposure float32) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := pix[4*width*(height-1-y):]
		for x := 0; x < width; x++ {
			px := row[4*x:]
			img.SetNRGBA(x, y, color.NRGBA{
				R: encodeChannel(px[0] * exposure),
				G: encodeChannel(px[1] * exposure),
				B: encodeChannel(px[2] * exposure),
				A: 255,
			})
		}
	}
	return img
}

func encodeChannel(v float32) uint8 {
	v = math32.Max(0, math32.Min(1, v))
	return uint8(math32.Pow(v, 1/2.2)*255 + 0.5)
}

// Present scales a rendered frame to the presentation size, the software
// counterpart of the fullscreen blit.
func Present(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	return fauxgl.SavePNG(path, img)
}
