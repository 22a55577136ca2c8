package glrender

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/glbuild"
)

// Scene is the host side view of the resources read by the raytrace
// program.
type Scene struct {
	Nodes  glvox.Nodes
	Params glvox.Params
	// Palette holds the encoded materials, see glvox.AppendMaterialWords.
	Palette    []uint32
	Light      ms3.Vec
	Background ms3.Vec
}

// TracePixel returns the linear colour of pixel (x, y), averaging the
// camera samples over a stratified grid.
func (s *Scene) TracePixel(cam Camera, x, y int) ms3.Vec {
	n := max(cam.SamplesPerPixel, 1)
	grid := int(math32.Ceil(math32.Sqrt(float32(n))))
	origin := s.Params.Normalize(cam.Origin)
	var sum ms3.Vec
	for k := 0; k < n; k++ {
		ox := (float32(k%grid) + 0.5) / float32(grid)
		oy := (float32(k/grid) + 0.5) / float32(grid)
		u := (float32(x) + ox) / float32(cam.ImageWidth)
		v := (float32(y) + oy) / float32(cam.ImageHeight)
		seed := pcg(uint32(x) + pcg(uint32(y)+pcg(uint32(k)*8)))
		sum = ms3.Add(sum, s.Shade(origin, cam.Ray(u, v), cam.MaxBounce, seed))
	}
	return ms3.Scale(1/float32(n), sum)
}

// Shade follows a ray given in tree local coordinates through up to
// maxBounce metal reflections and returns its colour.
func (s *Scene) Shade(origin, dir ms3.Vec, maxBounce int, seed uint32) ms3.Vec {
	attenuation := ms3.Vec{X: 1, Y: 1, Z: 1}
	count := len(s.Palette) / glvox.MaterialWords
	// Half a leaf edge moves a reflected ray off the face it hit.
	offset := 1 / float32(uint32(1)<<(s.Params.MaxDepth+1))
	for bounce := 0; bounce <= maxBounce; bounce++ {
		hit, ok := s.Nodes.Raycast(s.Params.MaxDepth, s.Params.MaxTraversalIter, origin, dir)
		if !ok {
			return ms3.MulElem(attenuation, s.Background)
		}
		m := glvox.Material{Albedo: [3]float32{1, 1, 1}}
		if count > 0 {
			i := int(hit.Value % uint32(count))
			m = glvox.DecodeMaterial(s.Palette[i*glvox.MaterialWords:])
		}
		albedo := ms3.Vec{X: m.Albedo[0], Y: m.Albedo[1], Z: m.Albedo[2]}
		if m.Kind == glvox.Metal && bounce < maxBounce {
			attenuation = ms3.MulElem(attenuation, albedo)
			dir = ms3.Add(reflect(dir, hit.Normal), ms3.Scale(m.Fuzz, hashVec(seed+uint32(bounce))))
			origin = ms3.Add(hit.Point, ms3.Scale(offset, hit.Normal))
			continue
		}
		diffuse := math32.Max(dot(hit.Normal, ms3.Scale(-1, ms3.Unit(s.Light))), 0)
		k := glbuild.Ambient + (1-glbuild.Ambient)*diffuse
		return ms3.Scale(k, ms3.MulElem(attenuation, albedo))
	}
	return ms3.MulElem(attenuation, s.Background)
}

func dot(a, b ms3.Vec) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func reflect(d, n ms3.Vec) ms3.Vec {
	return ms3.Sub(d, ms3.Scale(2*dot(d, n), n))
}

func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func hashVec(seed uint32) ms3.Vec {
	a := pcg(seed)
	b := pcg(a)
	c := pcg(b)
	const inv = 2.0 / 4294967295.0
	return ms3.Vec{X: float32(a)*inv - 1, Y: float32(b)*inv - 1, Z: float32(c)*inv - 1}
}
