package rimage

// Mask is a binary pixel mask with the same row-major layout as Image.
type Mask struct {
	bits   []bool
	width  int
	height int
}

// NewMask returns an all-false mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		bits:   make([]bool, width*height),
		width:  width,
		height: height,
	}
}

// Width returns the horizontal dimension in pixels.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the vertical dimension in pixels.
func (m *Mask) Height() int {
	return m.height
}

// At returns the bit at (x, y).
func (m *Mask) At(x, y int) bool {
	return m.bits[(y*m.width)+x]
}

// Set sets the bit at (x, y).
func (m *Mask) Set(x, y int, v bool) {
	m.bits[(y*m.width)+x] = v
}

// Any reports whether any bit is set.
func (m *Mask) Any() bool {
	for _, b := range m.bits {
		if b {
			return true
		}
	}
	return false
}

// CountSet returns the number of set bits.
func (m *Mask) CountSet() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.width, m.height)
	copy(out.bits, m.bits)
	return out
}

// Union sets every bit of m that is set in other. Dimensions must match.
func (m *Mask) Union(other *Mask) {
	for i, b := range other.bits {
		if b {
			m.bits[i] = true
		}
	}
}

// Dilate returns the dilation of the mask by a kw x kh rectangular
// structuring element. Pixels outside the image count as unset.
func (m *Mask) Dilate(kw, kh int) *Mask {
	return m.morph(kw, kh, true)
}

// Erode returns the erosion of the mask by a kw x kh rectangular structuring
// element. Pixels outside the image count as set, so regions touching the
// border do not shrink from the border side.
func (m *Mask) Erode(kw, kh int) *Mask {
	return m.morph(kw, kh, false)
}

// Close dilates then erodes, filling small holes inside set regions.
func (m *Mask) Close(kw, kh int) *Mask {
	return m.Dilate(kw, kh).Erode(kw, kh)
}

// Open erodes then dilates, removing isolated set specks.
func (m *Mask) Open(kw, kh int) *Mask {
	return m.Erode(kw, kh).Dilate(kw, kh)
}

func (m *Mask) morph(kw, kh int, dilate bool) *Mask {
	out := NewMask(m.width, m.height)
	offX, offY := kw/2, kh/2
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			v := !dilate
			for ky := 0; ky < kh && v != dilate; ky++ {
				for kx := 0; kx < kw; kx++ {
					px, py := x+kx-offX, y+ky-offY
					inside := px >= 0 && px < m.width && py >= 0 && py < m.height
					// outside pixels are unset for dilation, set for erosion
					bit := !inside && !dilate || inside && m.At(px, py)
					if dilate && bit {
						v = true
						break
					}
					if !dilate && !bit {
						v = false
						break
					}
				}
			}
			out.Set(x, y, v)
		}
	}
	return out
}
