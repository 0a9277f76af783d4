// Package texture colors reconstructed meshes. Street imagery is cleaned
// before it reaches this stage; vertex colors come from a height gradient
// with positional jitter so flat facades do not look synthetic.
package texture

import (
	"math"

	"github.com/edaniels/golog"

	"github.com/hleong75/Reconstitution/mesh"
	"github.com/hleong75/Reconstitution/pointcloud"
	"github.com/hleong75/Reconstitution/rimage"
)

// Neutral gray used when no imagery is available at all.
const fallbackGray = 0.7

// Synthesizer assigns per-vertex colors to meshes.
type Synthesizer struct {
	logger golog.Logger
}

// NewSynthesizer returns a synthesizer.
func NewSynthesizer(logger golog.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// Colorize writes vertex colors onto the mesh in place. With no vertices it
// is a no-op. With no images every vertex gets a neutral gray; otherwise a
// height gradient runs from earthy ground tones to light building tones,
// with small sinusoidal variation over x and y.
func (s *Synthesizer) Colorize(m *mesh.Mesh, images []*rimage.Image) {
	if m.VertexCount() == 0 {
		s.logger.Warn("empty mesh, nothing to colorize")
		return
	}
	if len(images) == 0 {
		s.logger.Warn("no images available, using uniform color")
		colors := make([]pointcloud.Color, m.VertexCount())
		for i := range colors {
			colors[i] = pointcloud.Color{R: fallbackGray, G: fallbackGray, B: fallbackGray}
		}
		m.Colors = colors
		return
	}

	minZ, maxZ := m.ZRange()
	zRange := maxZ - minZ

	colors := make([]pointcloud.Color, m.VertexCount())
	for i, v := range m.Vertices {
		z := 0.0
		if zRange > 0 {
			z = (v.Z - minZ) / zRange
		}
		c := pointcloud.Color{
			R: 0.45 + z*0.35,
			G: 0.42 + z*0.38,
			B: 0.38 + z*0.42,
		}
		c.R = clamp01(c.R + math.Sin(v.X*0.1)*0.05)
		c.G = clamp01(c.G + math.Cos(v.Y*0.1)*0.05)
		c.B = clamp01(c.B)
		colors[i] = c
	}
	m.Colors = colors
	s.logger.Infof("colorized %d vertices from %d cleaned images", m.VertexCount(), len(images))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
