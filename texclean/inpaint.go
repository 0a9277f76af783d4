package texclean

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/hleong75/Reconstitution/rimage"
)

// InpaintMethod selects the fill strategy for masked regions.
type InpaintMethod int

const (
	// StructureAware fills each masked pixel from 16-direction ray marching
	// over surrounding valid pixels, weighted by spatial distance. Better on
	// large regions that cross structure boundaries.
	StructureAware InpaintMethod = iota
	// FastLocal iteratively fills masked pixels from the mean of their valid
	// neighbors, growing inward from the region border.
	FastLocal
)

func (m InpaintMethod) String() string {
	switch m {
	case StructureAware:
		return "structure_aware"
	case FastLocal:
		return "fast_local"
	default:
		return "unknown"
	}
}

// directions for ray-marching.
var sixteenPoints = []image.Point{
	{0, 2},
	{0, -2},
	{-2, 0},
	{2, 0},
	{-2, 2},
	{2, 2},
	{-2, -2},
	{2, -2},
	{-2, 1},
	{-1, 2},
	{1, 2},
	{2, 1},
	{-2, -1},
	{-1, -2},
	{1, -2},
	{2, -1},
}

// Inpaint returns a copy of img with every masked pixel filled from the
// surrounding unmasked content. The radius scales how far the fill looks for
// support. The input image and mask are never modified.
func Inpaint(img *rimage.Image, mask *rimage.Mask, radius int, method InpaintMethod) (*rimage.Image, error) {
	if mask.Width() != img.Width() || mask.Height() != img.Height() {
		return nil, errors.Errorf("mask size %dx%d does not match image size %dx%d",
			mask.Width(), mask.Height(), img.Width(), img.Height())
	}
	if radius < 1 {
		radius = 1
	}
	if !mask.Any() {
		return img.Clone(), nil
	}
	if mask.CountSet() == img.Width()*img.Height() {
		return nil, errors.New("mask covers the entire image, nothing to inpaint from")
	}

	switch method {
	case StructureAware:
		return inpaintRayMarching(img, mask, radius), nil
	case FastLocal:
		return inpaintLocalMean(img, mask)
	default:
		return nil, errors.Errorf("unknown inpaint method %d", method)
	}
}

// inpaintRayMarching fills each masked pixel by marching rays outward in 16
// directions until each ray leaves the mask, then blending the hit pixels
// with gaussian spatial weights.
func inpaintRayMarching(img *rimage.Image, mask *rimage.Mask, radius int) *rimage.Image {
	out := img.Clone()
	spatialGaus := gaussianFunction2D(2.0 * float64(radius))
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			if !mask.At(x, y) {
				continue
			}
			points := pointsFromRayMarching(x, y, radius, sixteenPoints, mask)
			var rSum, gSum, bSum, weightTot float64
			for pt := range points {
				c := img.GetXY(pt.X, pt.Y)
				weight := spatialGaus(float64(pt.X-x), float64(pt.Y-y))
				rSum += c.R * weight
				gSum += c.G * weight
				bSum += c.B * weight
				weightTot += weight
			}
			if weightTot > 0 {
				out.SetXY(x, y, colorful.Color{R: rSum / weightTot, G: gSum / weightTot, B: bSum / weightTot})
			}
		}
	}
	return out
}

// pointsFromRayMarching collects unmasked support pixels by continuing
// 'iterations' times in each of the given directions.
func pointsFromRayMarching(x, y, iterations int, directions []image.Point, mask *rimage.Mask) map[image.Point]bool {
	rayMarchingPoints := make(map[image.Point]bool)
	for _, dir := range directions {
		i, j := x, y
		for iter := 0; iter < iterations; iter++ {
			masked := true
			for masked { // increment in the given direction until you leave the mask
				i += dir.X
				j += dir.Y
				if i < 0 || i >= mask.Width() || j < 0 || j >= mask.Height() {
					break
				}
				masked = mask.At(i, j)
			}
			if i < 0 || i >= mask.Width() || j < 0 || j >= mask.Height() {
				break
			}
			rayMarchingPoints[image.Point{i, j}] = true
		}
	}
	return rayMarchingPoints
}

func gaussianFunction2D(sigma float64) func(dx, dy float64) float64 {
	twoSigmaSq := 2 * sigma * sigma
	return func(dx, dy float64) float64 {
		return math.Exp(-(dx*dx + dy*dy) / twoSigmaSq)
	}
}

// inpaintLocalMean repeatedly replaces masked pixels adjacent to unmasked
// ones with the mean of their unmasked 8-neighbors until the mask is empty.
func inpaintLocalMean(img *rimage.Image, mask *rimage.Mask) (*rimage.Image, error) {
	out := img.Clone()
	remaining := mask.Clone()
	for remaining.Any() {
		next := remaining.Clone()
		filled := 0
		for y := 0; y < img.Height(); y++ {
			for x := 0; x < img.Width(); x++ {
				if !remaining.At(x, y) {
					continue
				}
				var rSum, gSum, bSum float64
				n := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						px, py := x+dx, y+dy
						if px < 0 || px >= img.Width() || py < 0 || py >= img.Height() {
							continue
						}
						if remaining.At(px, py) {
							continue
						}
						c := out.GetXY(px, py)
						rSum += c.R
						gSum += c.G
						bSum += c.B
						n++
					}
				}
				if n == 0 {
					continue
				}
				out.SetXY(x, y, colorful.Color{
					R: rSum / float64(n),
					G: gSum / float64(n),
					B: bSum / float64(n),
				})
				next.Set(x, y, false)
				filled++
			}
		}
		if filled == 0 {
			return nil, errors.New("masked region has no reachable valid neighbors")
		}
		remaining = next
	}
	return out, nil
}
