package glrender

import (
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redScene(t *testing.T, kind glvox.MaterialKind) Scene {
	t.Helper()
	p := scenarioParams()
	b, err := glvox.NewBuilder(p)
	require.NoError(t, err)
	require.Equal(t, glvox.EditApplied, b.Set(ms3.Vec{X: 1, Y: 1, Z: 1}, 5))
	pal := make(Palette, 6)
	for i := range pal {
		pal[i] = NewMaterial("#ffffff", glvox.Lambertian, 0)
	}
	pal[5] = NewMaterial("#ff0000", kind, 0)
	return Scene{
		Nodes:      b.Nodes(),
		Params:     p,
		Palette:    glvox.AppendMaterialWords(nil, pal),
		Background: ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5},
	}
}

func TestShadeLambert(t *testing.T) {
	s := redScene(t, glvox.Lambertian)
	origin := s.Params.Normalize(ms3.Vec{X: 1.5, Y: 1.5, Z: -8})
	dir := ms3.Vec{Z: 1}

	s.Light = ms3.Vec{Z: 1}
	assertVec(t, ms3.Vec{X: 1}, s.Shade(origin, dir, 0, 1), "lit face")
	s.Light = ms3.Vec{Z: -1}
	assertVec(t, ms3.Vec{X: 0.2}, s.Shade(origin, dir, 0, 1), "ambient only")

	miss := s.Params.Normalize(ms3.Vec{X: 7.5, Y: 7.5, Z: -8})
	assertVec(t, s.Background, s.Shade(miss, dir, 0, 1), "miss")
}

func TestShadeMetal(t *testing.T) {
	s := redScene(t, glvox.Metal)
	s.Light = ms3.Vec{Z: 1}
	origin := s.Params.Normalize(ms3.Vec{X: 1.5, Y: 1.5, Z: -8})
	dir := ms3.Vec{Z: 1}
	// The reflection leaves the tree and picks up the tinted background.
	assertVec(t, ms3.Vec{X: 0.5}, s.Shade(origin, dir, 1, 1), "reflection")
	// Without bounces left metal shades like a diffuse surface.
	assertVec(t, ms3.Vec{X: 1}, s.Shade(origin, dir, 0, 1), "no bounce")
}

func TestShadeEmptyPalette(t *testing.T) {
	s := redScene(t, glvox.Lambertian)
	s.Palette = nil
	s.Light = ms3.Vec{Z: 1}
	origin := s.Params.Normalize(ms3.Vec{X: 1.5, Y: 1.5, Z: -8})
	assertVec(t, ms3.Vec{X: 1, Y: 1, Z: 1}, s.Shade(origin, ms3.Vec{Z: 1}, 0, 1), "white fallback")
}

func TestHashVecRange(t *testing.T) {
	for seed := uint32(0); seed < 1000; seed++ {
		v := hashVec(seed)
		for _, c := range []float32{v.X, v.Y, v.Z} {
			if c < -1 || c > 1 {
				t.Fatalf("seed %d: component %g out of [-1,1]", seed, c)
			}
		}
	}
	assert.NotEqual(t, hashVec(1), hashVec(2))
}
