package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestAddAndMetaData(t *testing.T) {
	pc := New()
	test.That(t, pc.Size(), test.ShouldEqual, 0)
	test.That(t, pc.HasColor(), test.ShouldBeFalse)

	pc.Add(r3.Vector{X: 1, Y: 2, Z: 3})
	pc.Add(r3.Vector{X: -4, Y: 0, Z: 10})
	test.That(t, pc.Size(), test.ShouldEqual, 2)

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -4)
	test.That(t, meta.MaxX, test.ShouldEqual, 1)
	test.That(t, meta.MinZ, test.ShouldEqual, 3)
	test.That(t, meta.MaxZ, test.ShouldEqual, 10)
}

func TestMixedColorDropsChannel(t *testing.T) {
	pc := New()
	pc.AddColored(r3.Vector{X: 1}, Color{R: 1})
	test.That(t, pc.HasColor(), test.ShouldBeTrue)

	pc.Add(r3.Vector{X: 2})
	test.That(t, pc.HasColor(), test.ShouldBeFalse)
	test.That(t, pc.Size(), test.ShouldEqual, 2)
}

func TestSetLabelsLengthChecked(t *testing.T) {
	pc := New()
	pc.Add(r3.Vector{})
	pc.Add(r3.Vector{X: 1})

	err := pc.SetLabels([]Label{LabelGround})
	test.That(t, err, test.ShouldNotBeNil)

	err = pc.SetLabels([]Label{LabelGround, LabelBuilding})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.HasLabels(), test.ShouldBeTrue)
	l, ok := pc.Label(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, l, test.ShouldEqual, LabelBuilding)
}

func TestMerge(t *testing.T) {
	a := New()
	a.AddColored(r3.Vector{X: 1}, Color{R: 0.5})
	b := New()
	b.AddColored(r3.Vector{X: 2}, Color{G: 0.5})

	merged := New()
	merged.Merge(a)
	merged.Merge(b)
	test.That(t, merged.Size(), test.ShouldEqual, 2)
	test.That(t, merged.HasColor(), test.ShouldBeTrue)

	uncolored := New()
	uncolored.Add(r3.Vector{X: 3})
	merged.Merge(uncolored)
	test.That(t, merged.Size(), test.ShouldEqual, 3)
	test.That(t, merged.HasColor(), test.ShouldBeFalse)
}

func TestCloneIndependence(t *testing.T) {
	pc := New()
	pc.Add(r3.Vector{X: 1})
	clone := pc.Clone()
	clone.Add(r3.Vector{X: 2})

	test.That(t, pc.Size(), test.ShouldEqual, 1)
	test.That(t, clone.Size(), test.ShouldEqual, 2)
}

func TestCentroid(t *testing.T) {
	pc := New()
	pc.Add(r3.Vector{X: 0, Y: 0, Z: 0})
	pc.Add(r3.Vector{X: 2, Y: 4, Z: 6})

	c := pc.Centroid()
	test.That(t, c.X, test.ShouldAlmostEqual, 1)
	test.That(t, c.Y, test.ShouldAlmostEqual, 2)
	test.That(t, c.Z, test.ShouldAlmostEqual, 3)
}

func TestIterateEarlyStop(t *testing.T) {
	pc := New()
	for i := 0; i < 5; i++ {
		pc.Add(r3.Vector{X: float64(i)})
	}
	count := 0
	pc.Iterate(func(i int, p r3.Vector) bool {
		count++
		return count < 3
	})
	test.That(t, count, test.ShouldEqual, 3)
}
