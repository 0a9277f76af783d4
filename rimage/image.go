// Package rimage holds the image types and basic operators used by the
// texture cleaning stages: a float color image, grayscale and HSV plane
// extraction, small-kernel convolution, and binary morphology.
package rimage

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Meta carries the acquisition context of a street-level image. It is
// attached at load time and never modified by any processing stage.
type Meta struct {
	Path    string
	Lat     float64
	Lon     float64
	Heading float64
	HasGeo  bool
}

// Image is a dense RGB image with channels in [0, 1], stored row-major.
type Image struct {
	data   []colorful.Color
	width  int
	height int

	Meta Meta
}

// New returns a black image of the given dimensions.
func New(width, height int) *Image {
	return &Image{
		data:   make([]colorful.Color, width*height),
		width:  width,
		height: height,
	}
}

// Width returns the horizontal dimension in pixels.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical dimension in pixels.
func (i *Image) Height() int {
	return i.height
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// GetXY returns the pixel at (x, y).
func (i *Image) GetXY(x, y int) colorful.Color {
	return i.data[i.kxy(x, y)]
}

// SetXY sets the pixel at (x, y).
func (i *Image) SetXY(x, y int, c colorful.Color) {
	i.data[i.kxy(x, y)] = c
}

// Clone returns a deep copy, metadata included.
func (i *Image) Clone() *Image {
	out := New(i.width, i.height)
	copy(out.data, i.data)
	out.Meta = i.Meta
	return out
}

// NewFromStdImage converts any image.Image into the float representation.
func NewFromStdImage(img image.Image) *Image {
	b := img.Bounds()
	out := New(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				// fully transparent pixel, alpha cannot be divided out
				c = colorful.Color{}
			}
			out.SetXY(x, y, c)
		}
	}
	return out
}

// ToStdImage converts back to an 8-bit RGBA image for encoding.
func (i *Image) ToStdImage() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, i.width, i.height))
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			c := i.GetXY(x, y).Clamped()
			r, g, b := c.RGB255()
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}
