package glrender

import (
	"github.com/fogleman/fauxgl"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
)

// Palette is the material table indexed by leaf payloads.
type Palette []glvox.Material

// NewMaterial returns a material with the albedo given as a hex colour.
func NewMaterial(hex string, kind glvox.MaterialKind, fuzz float32) glvox.Material {
	c := fauxgl.HexColor(hex)
	return glvox.Material{
		Albedo: [3]float32{float32(c.R), float32(c.G), float32(c.B)},
		Kind:   kind,
		Fuzz:   fuzz,
	}
}

// DefaultPalette matches the payloads used by the demo scenes.
func DefaultPalette() Palette {
	return Palette{
		NewMaterial("#ff00ff", glvox.Lambertian, 0),
		NewMaterial("#8d8d8d", glvox.Lambertian, 0),
		NewMaterial("#e9dcc9", glvox.Lambertian, 0),
		NewMaterial("#4a4e69", glvox.Lambertian, 0),
		NewMaterial("#d4af37", glvox.Metal, 0.05),
		NewMaterial("#2a9d8f", glvox.Lambertian, 0),
		NewMaterial("#e76f51", glvox.Lambertian, 0),
		NewMaterial("#c0c0c0", glvox.Metal, 0.3),
	}
}

// Upload allocates the palette storage buffer on dev. An empty palette
// uploads a single white diffuse material.
func (p Palette) Upload(dev compute.Device) (compute.Buffer, error) {
	if len(p) == 0 {
		p = Palette{{Albedo: [3]float32{1, 1, 1}}}
	}
	words := glvox.AppendMaterialWords(nil, p)
	return dev.NewBuffer(compute.StorageBuffer, glvox.BindingPalette, len(words), words)
}
