package glrender

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox/compute"
)

var (
	cameraVec3Uniforms = [...]string{"camera.origin", "camera.lower_left_corner", "camera.horizontal", "camera.vertical"}
	cameraIntUniforms  = [...]string{"camera.image_width", "camera.image_height", "camera.samples_per_pixel", "camera.max_bounce"}
)

// Camera holds the ray generation parameters of the raytrace program. A
// pixel (x, y) with y growing upwards casts rays from Origin towards
// LowerLeftCorner + u*Horizontal + v*Vertical with u, v in [0,1].
type Camera struct {
	Origin          ms3.Vec
	LowerLeftCorner ms3.Vec
	Horizontal      ms3.Vec
	Vertical        ms3.Vec
	ImageWidth      int
	ImageHeight     int
	SamplesPerPixel int
	MaxBounce       int
}

// SetUniforms pushes the camera to the raytrace program.
func (c Camera) SetUniforms(p compute.Program) error {
	vecs := [len(cameraVec3Uniforms)]ms3.Vec{c.Origin, c.LowerLeftCorner, c.Horizontal, c.Vertical}
	for i, name := range cameraVec3Uniforms {
		if err := p.SetVec3(name, vecs[i]); err != nil {
			return err
		}
	}
	ints := [len(cameraIntUniforms)]int{c.ImageWidth, c.ImageHeight, c.SamplesPerPixel, c.MaxBounce}
	for i, name := range cameraIntUniforms {
		if err := p.SetInt(name, int32(ints[i])); err != nil {
			return err
		}
	}
	return nil
}

// Ray returns the normalized direction of the ray through the image plane
// point (u, v).
func (c Camera) Ray(u, v float32) ms3.Vec {
	target := ms3.Add(c.LowerLeftCorner, ms3.Add(ms3.Scale(u, c.Horizontal), ms3.Scale(v, c.Vertical)))
	return ms3.Unit(ms3.Sub(target, c.Origin))
}

// CameraBuilder builds cameras with a pinhole projection looking down -Z
// when yaw and pitch are zero. Zero valued fields take defaults when built.
type CameraBuilder struct {
	ImageWidth      int
	ImageHeight     int
	AspectRatio     float32
	ViewportHeight  float32
	FocalLength     float32
	Origin          ms3.Vec
	Yaw, Pitch      float32
	SamplesPerPixel int
	MaxBounce       int
}

// NewCameraBuilder returns a builder for images imageWidth pixels wide.
func NewCameraBuilder(imageWidth int) *CameraBuilder {
	return &CameraBuilder{ImageWidth: imageWidth}
}

func (b *CameraBuilder) WithAspectRatio(r float32) *CameraBuilder {
	b.AspectRatio = r
	return b
}

func (b *CameraBuilder) WithViewportHeight(h float32) *CameraBuilder {
	b.ViewportHeight = h
	return b
}

// WithVerticalFOV sets the viewport height for a vertical field of view in
// radians at the current focal length.
func (b *CameraBuilder) WithVerticalFOV(fov float32) *CameraBuilder {
	s, c := math32.Sincos(fov / 2)
	b.ViewportHeight = 2 * b.focal() * s / c
	return b
}

func (b *CameraBuilder) WithFocalLength(f float32) *CameraBuilder {
	b.FocalLength = f
	return b
}

func (b *CameraBuilder) WithOrigin(o ms3.Vec) *CameraBuilder {
	b.Origin = o
	return b
}

// WithOrientation sets the yaw around +Y and the pitch above the horizon,
// both in radians.
func (b *CameraBuilder) WithOrientation(yaw, pitch float32) *CameraBuilder {
	b.Yaw, b.Pitch = yaw, pitch
	return b
}

func (b *CameraBuilder) WithSamples(samplesPerPixel, maxBounce int) *CameraBuilder {
	b.SamplesPerPixel, b.MaxBounce = samplesPerPixel, maxBounce
	return b
}

// WithImageSize fixes both image dimensions and derives the aspect ratio.
func (b *CameraBuilder) WithImageSize(width, height int) *CameraBuilder {
	b.ImageWidth, b.ImageHeight = width, height
	b.AspectRatio = float32(width) / float32(max(height, 1))
	return b
}

func (b *CameraBuilder) focal() float32 {
	if b.FocalLength > 0 {
		return b.FocalLength
	}
	return 1
}

// Forward returns the unit view direction.
func (b *CameraBuilder) Forward() ms3.Vec {
	sy, cy := math32.Sincos(b.Yaw)
	sp, cp := math32.Sincos(b.Pitch)
	return ms3.Vec{X: cp * sy, Y: sp, Z: -cp * cy}
}

// Right returns the unit vector pointing to the right of the view.
func (b *CameraBuilder) Right() ms3.Vec {
	sy, cy := math32.Sincos(b.Yaw)
	return ms3.Vec{X: cy, Z: sy}
}

// Build returns the camera.
func (b *CameraBuilder) Build() Camera {
	aspect := b.AspectRatio
	if aspect <= 0 {
		aspect = 16.0 / 9.0
	}
	vh := b.ViewportHeight
	if vh <= 0 {
		vh = 2
	}
	vw := aspect * vh
	width := max(b.ImageWidth, 1)
	height := b.ImageHeight
	if height <= 0 {
		height = max(int(float32(width)/aspect), 1)
	}
	forward := b.Forward()
	right := b.Right()
	up := ms3.Cross(right, forward)
	horizontal := ms3.Scale(vw, right)
	vertical := ms3.Scale(vh, up)
	lower := ms3.Sub(ms3.Add(b.Origin, ms3.Scale(b.focal(), forward)), ms3.Add(ms3.Scale(0.5, horizontal), ms3.Scale(0.5, vertical)))
	return Camera{
		Origin:          b.Origin,
		LowerLeftCorner: lower,
		Horizontal:      horizontal,
		Vertical:        vertical,
		ImageWidth:      width,
		ImageHeight:     height,
		SamplesPerPixel: max(b.SamplesPerPixel, 1),
		MaxBounce:       max(b.MaxBounce, 0),
	}
}

// Fly moves the builder origin in view space: forward along the view
// direction, right along the horizontal axis and up along +Y.
func (b *CameraBuilder) Fly(forward, right, up float32) {
	move := ms3.Add(ms3.Scale(forward, b.Forward()), ms3.Scale(right, b.Right()))
	move.Y += up
	b.Origin = ms3.Add(b.Origin, move)
}

// Look rotates the view, clamping the pitch short of the poles.
func (b *CameraBuilder) Look(dyaw, dpitch float32) {
	const limit = math32.Pi/2 - 0.01
	b.Yaw += dyaw
	b.Pitch = math32.Max(-limit, math32.Min(limit, b.Pitch+dpitch))
}
