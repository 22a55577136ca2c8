package glvox

import "math"

// MaterialKind selects how a leaf surface scatters light.
type MaterialKind uint32

const (
	// Lambertian surfaces are shaded diffusely by the directional light.
	Lambertian MaterialKind = iota
	// Metal surfaces reflect the incoming ray, perturbed by Fuzz.
	Metal
)

func (k MaterialKind) String() string {
	switch k {
	case Lambertian:
		return "lambertian"
	case Metal:
		return "metal"
	}
	return "unknown"
}

// MaterialWords is the std430 size in words of a palette entry:
//
//	struct Material { vec4 albedo; vec4 props; }; // props.x kind, props.y fuzz
const MaterialWords = 8

// Material is a palette entry. A leaf payload selects the entry at index
// payload modulo the palette length.
type Material struct {
	Albedo [3]float32
	Kind   MaterialKind
	Fuzz   float32
}

// AppendMaterialWords appends the std430 encoding of palette to dst.
func AppendMaterialWords(dst []uint32, palette []Material) []uint32 {
	f := math.Float32bits
	for _, m := range palette {
		dst = append(dst,
			f(m.Albedo[0]), f(m.Albedo[1]), f(m.Albedo[2]), f(1),
			f(float32(m.Kind)), f(m.Fuzz), 0, 0,
		)
	}
	return dst
}

// DecodeMaterial decodes the palette entry at the start of words.
func DecodeMaterial(words []uint32) Material {
	_ = words[MaterialWords-1]
	f := math.Float32frombits
	return Material{
		Albedo: [3]float32{f(words[0]), f(words[1]), f(words[2])},
		Kind:   MaterialKind(f(words[4])),
		Fuzz:   f(words[5]),
	}
}
