package texclean

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hleong75/Reconstitution/rimage"
)

// TraditionalConfig holds the thresholds of the heuristic detector stack.
// All intensity thresholds are in the image's [0, 1] scale.
type TraditionalConfig struct {
	// GroundBand is the fraction of the image height, from the top, that the
	// reflective detector ignores. Cars and glass sit below it.
	GroundBand float64 `json:"ground_band"`
	// VerticalBand is the fraction of the image height, from the top, that
	// the vertical-object detector ignores.
	VerticalBand float64 `json:"vertical_band"`
	// Brightness is the minimum value-channel level for a reflective pixel.
	Brightness float64 `json:"brightness"`
	// LowSaturation is the maximum saturation for a reflective pixel.
	LowSaturation float64 `json:"low_saturation"`
	// EdgeVariance is the minimum absolute Laplacian response for a
	// reflective pixel.
	EdgeVariance float64 `json:"edge_variance"`
	// VerticalEdge is the minimum horizontal Sobel response for a vertical
	// structure pixel.
	VerticalEdge float64 `json:"vertical_edge"`
	// VerticalEdgeRatio is how much stronger the horizontal gradient must be
	// than the vertical one.
	VerticalEdgeRatio float64 `json:"vertical_edge_ratio"`
	// BlurPercentile is the local sharpness percentile below which a pixel
	// counts as motion-blurred.
	BlurPercentile float64 `json:"blur_percentile"`
	// BlurWindow is the side length of the local sharpness averaging window.
	BlurWindow int `json:"blur_window"`
}

// CheckValid fills zero fields with defaults.
func (c *TraditionalConfig) CheckValid() error {
	if c.GroundBand == 0 {
		c.GroundBand = 0.4
	}
	if c.VerticalBand == 0 {
		c.VerticalBand = 0.5
	}
	if c.Brightness == 0 {
		c.Brightness = 0.78
	}
	if c.LowSaturation == 0 {
		c.LowSaturation = 0.20
	}
	if c.EdgeVariance == 0 {
		c.EdgeVariance = 0.118
	}
	if c.VerticalEdge == 0 {
		c.VerticalEdge = 0.196
	}
	if c.VerticalEdgeRatio == 0 {
		c.VerticalEdgeRatio = 1.5
	}
	if c.BlurPercentile == 0 {
		c.BlurPercentile = 25
	}
	if c.BlurWindow == 0 {
		c.BlurWindow = 15
	}
	return nil
}

// ReflectiveMask marks bright, desaturated pixels with strong Laplacian
// response in the lower part of the image. These are mostly car bodies,
// windshields, and glass.
func ReflectiveMask(img *rimage.Image, conf TraditionalConfig) (*rimage.Mask, error) {
	_, s, v := img.HSVPlanes()
	lap := rimage.GetLaplacian()
	edges, err := rimage.ConvolveGrayFloat64(img.Luminance(), &lap)
	if err != nil {
		return nil, err
	}

	mask := rimage.NewMask(img.Width(), img.Height())
	skyRows := int(float64(img.Height()) * conf.GroundBand)
	for y := skyRows; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			brightLowSat := v.At(y, x) > conf.Brightness && s.At(y, x) < conf.LowSaturation
			highVariance := math.Abs(edges.At(y, x)) > conf.EdgeVariance
			if brightLowSat && highVariance {
				mask.Set(x, y, true)
			}
		}
	}
	return mask, nil
}

// VerticalMask marks pixels whose horizontal gradient dominates the vertical
// one in the lower part of the image, which picks out people and poles at
// street level. The result is closed with a tall thin kernel so broken edge
// runs join up.
func VerticalMask(img *rimage.Image, conf TraditionalConfig) (*rimage.Mask, error) {
	gray := img.Luminance()
	sobelX := rimage.GetSobelX()
	sobelY := rimage.GetSobelY()
	gx, err := rimage.ConvolveGrayFloat64(gray, &sobelX)
	if err != nil {
		return nil, err
	}
	gy, err := rimage.ConvolveGrayFloat64(gray, &sobelY)
	if err != nil {
		return nil, err
	}

	mask := rimage.NewMask(img.Width(), img.Height())
	skyRows := int(float64(img.Height()) * conf.VerticalBand)
	for y := skyRows; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			strength := math.Abs(gx.At(y, x))
			if strength > conf.VerticalEdge && strength > math.Abs(gy.At(y, x))*conf.VerticalEdgeRatio {
				mask.Set(x, y, true)
			}
		}
	}
	return mask.Close(3, 10), nil
}

// MotionBlurMask marks regions whose local sharpness falls below the given
// percentile of the whole image's sharpness. Moving objects smear and lose
// Laplacian energy.
func MotionBlurMask(img *rimage.Image, conf TraditionalConfig) (*rimage.Mask, error) {
	lap := rimage.GetLaplacian()
	edges, err := rimage.ConvolveGrayFloat64(img.Luminance(), &lap)
	if err != nil {
		return nil, err
	}
	h, w := edges.Dims()
	sq := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			e := edges.At(y, x)
			sq.Set(y, x, e*e)
		}
	}
	box := rimage.GetBoxMean(conf.BlurWindow)
	localVar, err := rimage.ConvolveGrayFloat64(sq, &box)
	if err != nil {
		return nil, err
	}

	threshold := percentile(localVar.RawMatrix().Data, conf.BlurPercentile)
	mask := rimage.NewMask(img.Width(), img.Height())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if localVar.At(y, x) < threshold {
				mask.Set(x, y, true)
			}
		}
	}
	return mask, nil
}

// percentile uses linear interpolation between order statistics.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
