package rimage

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kernel is a 2D convolution kernel.
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
}

// At returns the kernel value at (x, y).
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Size returns the kernel dimensions.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() Kernel {
	return Kernel{[][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	},
		3,
		3,
	}
}

// GetSobelY returns the Kernel corresponding to the Sobel kernel in the y direction.
func GetSobelY() Kernel {
	return Kernel{[][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	},
		3,
		3,
	}
}

// GetLaplacian returns the 4-connected Laplacian kernel.
func GetLaplacian() Kernel {
	return Kernel{[][]float64{
		{0, 1, 0},
		{1, -4, 1},
		{0, 1, 0},
	},
		3,
		3,
	}
}

// GetBoxMean returns an n x n averaging kernel.
func GetBoxMean(n int) Kernel {
	content := make([][]float64, n)
	v := 1 / float64(n*n)
	for y := range content {
		content[y] = make([]float64, n)
		for x := range content[y] {
			content[y][x] = v
		}
	}
	return Kernel{content, n, n}
}

// ConvolveGrayFloat64 implements a gray float64 image convolution with the
// Kernel filter, zero-padded at the borders. There is no clamping.
func ConvolveGrayFloat64(m *mat.Dense, filter *Kernel) (*mat.Dense, error) {
	kernelSize := filter.Size()
	if kernelSize.X%2 == 0 || kernelSize.Y%2 == 0 {
		return nil, errors.Errorf("kernel dimensions must be odd, got %dx%d", kernelSize.X, kernelSize.Y)
	}
	h, w := m.Dims()
	result := mat.NewDense(h, w, nil)
	offX, offY := kernelSize.X/2, kernelSize.Y/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := float64(0)
			for ky := 0; ky < kernelSize.Y; ky++ {
				for kx := 0; kx < kernelSize.X; kx++ {
					py, px := y+ky-offY, x+kx-offX
					if py < 0 || py >= h || px < 0 || px >= w {
						continue
					}
					sum += m.At(py, px) * filter.At(kx, ky)
				}
			}
			result.Set(y, x, sum)
		}
	}
	return result, nil
}
