package rimage

import "gonum.org/v1/gonum/mat"

// Luminance returns the perceptual grayscale plane of the image as a dense
// matrix in [0, 1], using Rec. 601 weights.
func (i *Image) Luminance() *mat.Dense {
	out := mat.NewDense(i.height, i.width, nil)
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			c := i.GetXY(x, y)
			out.Set(y, x, 0.299*c.R+0.587*c.G+0.114*c.B)
		}
	}
	return out
}

// HSVPlanes splits the image into hue, saturation, and value planes. Hue is
// in [0, 360), saturation and value in [0, 1].
func (i *Image) HSVPlanes() (h, s, v *mat.Dense) {
	h = mat.NewDense(i.height, i.width, nil)
	s = mat.NewDense(i.height, i.width, nil)
	v = mat.NewDense(i.height, i.width, nil)
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			hh, ss, vv := i.GetXY(x, y).Hsv()
			h.Set(y, x, hh)
			s.Set(y, x, ss)
			v.Set(y, x, vv)
		}
	}
	return h, s, v
}
