package rimage

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestConvolveSobelVerticalEdge(t *testing.T) {
	// left half dark, right half bright
	m := mat.NewDense(4, 4, nil)
	for y := 0; y < 4; y++ {
		m.Set(y, 2, 1)
		m.Set(y, 3, 1)
	}

	sobelX := GetSobelX()
	gx, err := ConvolveGrayFloat64(m, &sobelX)
	test.That(t, err, test.ShouldBeNil)
	// strong response on the edge column, none in flat regions
	test.That(t, gx.At(1, 1), test.ShouldBeGreaterThan, 0)
	test.That(t, gx.At(1, 2), test.ShouldBeGreaterThan, 0)

	sobelY := GetSobelY()
	gy, err := ConvolveGrayFloat64(m, &sobelY)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gy.At(1, 1), test.ShouldEqual, 0.0)
	test.That(t, gy.At(1, 2), test.ShouldEqual, 0.0)
}

func TestConvolveLaplacianFlat(t *testing.T) {
	m := mat.NewDense(5, 5, nil)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			m.Set(y, x, 0.5)
		}
	}

	lap := GetLaplacian()
	out, err := ConvolveGrayFloat64(m, &lap)
	test.That(t, err, test.ShouldBeNil)
	// interior of a constant image has zero laplacian
	test.That(t, out.At(2, 2), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestConvolveBoxMean(t *testing.T) {
	m := mat.NewDense(3, 3, nil)
	m.Set(1, 1, 9)

	box := GetBoxMean(3)
	out, err := ConvolveGrayFloat64(m, &box)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.At(1, 1), test.ShouldAlmostEqual, 1, .001)
}

func TestConvolveRejectsEvenKernel(t *testing.T) {
	m := mat.NewDense(2, 2, nil)
	k := Kernel{[][]float64{{1, 1}, {1, 1}}, 2, 2}
	_, err := ConvolveGrayFloat64(m, &k)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMaskMorphology(t *testing.T) {
	m := NewMask(7, 7)
	m.Set(3, 3, true)

	dilated := m.Dilate(3, 3)
	test.That(t, dilated.CountSet(), test.ShouldEqual, 9)
	test.That(t, dilated.At(2, 2), test.ShouldBeTrue)
	test.That(t, dilated.At(5, 5), test.ShouldBeFalse)

	// erosion undoes the dilation of a single point back to nothing
	eroded := m.Erode(3, 3)
	test.That(t, eroded.Any(), test.ShouldBeFalse)

	// opening removes an isolated speck
	opened := m.Open(3, 3)
	test.That(t, opened.Any(), test.ShouldBeFalse)
}

func TestMaskCloseFillsHole(t *testing.T) {
	m := NewMask(9, 9)
	for y := 2; y <= 6; y++ {
		for x := 2; x <= 6; x++ {
			m.Set(x, y, true)
		}
	}
	m.Set(4, 4, false) // hole

	closed := m.Close(3, 3)
	test.That(t, closed.At(4, 4), test.ShouldBeTrue)
}

func TestMaskUnionAndClone(t *testing.T) {
	a := NewMask(4, 4)
	a.Set(0, 0, true)
	b := NewMask(4, 4)
	b.Set(3, 3, true)

	c := a.Clone()
	c.Union(b)
	test.That(t, c.CountSet(), test.ShouldEqual, 2)
	test.That(t, a.CountSet(), test.ShouldEqual, 1)
}
