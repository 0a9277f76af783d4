package texclean

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/hleong75/Reconstitution/rimage"
)

// fakeSegModel marks a fixed rectangle as one class.
type fakeSegModel struct {
	class  int
	x0, y0 int
	x1, y1 int
	err    error
}

func (m *fakeSegModel) Classify(img *rimage.Image) ([][]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]int, img.Height())
	for y := range out {
		out[y] = make([]int, img.Width())
		for x := range out[y] {
			if x >= m.x0 && x < m.x1 && y >= m.y0 && y < m.y1 {
				out[y][x] = m.class
			}
		}
	}
	return out, nil
}

func (m *fakeSegModel) Classes() []string {
	return RecognizedClasses
}

func carModelCovering(x0, y0, x1, y1 int) *fakeSegModel {
	carID := 0
	for i, name := range RecognizedClasses {
		if name == "car" {
			carID = i
			break
		}
	}
	return &fakeSegModel{class: carID, x0: x0, y0: y0, x1: x1, y1: y1}
}

func TestCleanImageSemanticRemovesCar(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := carModelCovering(10, 10, 18, 18)
	cleaner, err := NewCleaner(model, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	img := uniformImage(32, 32, colorful.Color{R: 0.5, G: 0.5, B: 0.5})
	for y := 10; y < 18; y++ {
		for x := 10; x < 18; x++ {
			img.SetXY(x, y, colorful.Color{R: 1})
		}
	}

	cleaned, err := cleaner.CleanImage(img)
	test.That(t, err, test.ShouldBeNil)
	c := cleaned.GetXY(14, 14)
	test.That(t, c.R, test.ShouldAlmostEqual, 0.5, .05)
	test.That(t, c.G, test.ShouldAlmostEqual, 0.5, .05)
}

func TestCleanImageNoTransientsIsIdentity(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := &fakeSegModel{} // everything background
	cleaner, err := NewCleaner(model, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	img := uniformImage(16, 16, colorful.Color{R: 0.2, G: 0.4, B: 0.6})
	img.Meta = rimage.Meta{Path: "x.jpg", Lat: 1, Lon: 2, HasGeo: true}
	cleaned, err := cleaner.CleanImage(img)
	test.That(t, err, test.ShouldBeNil)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			test.That(t, cleaned.GetXY(x, y), test.ShouldResemble, img.GetXY(x, y))
		}
	}
	test.That(t, cleaned.Meta, test.ShouldResemble, img.Meta)
}

func TestCleanImageModelFailureKeepsOriginal(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := &fakeSegModel{err: errors.New("inference failed")}
	cleaner, err := NewCleaner(model, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	img := uniformImage(8, 8, colorful.Color{R: 0.3, G: 0.6, B: 0.9})
	img.Meta = rimage.Meta{Path: "y.jpg"}
	cleaned, err := cleaner.CleanImage(img)
	test.That(t, err, test.ShouldBeNil)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			test.That(t, cleaned.GetXY(x, y), test.ShouldResemble, img.GetXY(x, y))
		}
	}
	test.That(t, cleaned.Meta, test.ShouldResemble, img.Meta)
}

func TestCleanerNilModelUsesTraditional(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cleaner, err := NewCleaner(nil, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	// an all-dark image has uniform sharpness; the blur detector flags the
	// lowest-variance quartile but the result must still clean deterministically
	img := uniformImage(16, 16, colorful.Color{R: 0.3, G: 0.3, B: 0.3})
	first, err := cleaner.CleanImage(img)
	test.That(t, err, test.ShouldBeNil)
	second, err := cleaner.CleanImage(img)
	test.That(t, err, test.ShouldBeNil)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			test.That(t, first.GetXY(x, y), test.ShouldResemble, second.GetXY(x, y))
		}
	}
}

func TestCleanBatchPreservesOrderAndSkips(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := carModelCovering(2, 2, 6, 6)
	cleaner, err := NewCleaner(model, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	imgs := []*rimage.Image{
		uniformImage(16, 16, colorful.Color{R: 0.1}),
		uniformImage(16, 16, colorful.Color{R: 0.2}),
		uniformImage(16, 16, colorful.Color{R: 0.3}),
	}
	imgs[0].Meta.Path = "a.jpg"
	imgs[1].Meta.Path = "b.jpg"
	imgs[2].Meta.Path = "c.jpg"

	cleaned := cleaner.CleanBatch(imgs)
	test.That(t, len(cleaned), test.ShouldEqual, 3)
	test.That(t, cleaned[0].Meta.Path, test.ShouldEqual, "a.jpg")
	test.That(t, cleaned[2].Meta.Path, test.ShouldEqual, "c.jpg")
}

func TestCleanBatchPassesThroughOnFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := &fakeSegModel{err: errors.New("inference failed")}
	cleaner, err := NewCleaner(model, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	img := uniformImage(8, 8, colorful.Color{R: 0.7})
	img.Meta.Path = "d.jpg"
	cleaned := cleaner.CleanBatch([]*rimage.Image{img})
	test.That(t, len(cleaned), test.ShouldEqual, 1)
	test.That(t, cleaned[0].Meta.Path, test.ShouldEqual, "d.jpg")
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			test.That(t, cleaned[0].GetXY(x, y), test.ShouldResemble, img.GetXY(x, y))
		}
	}
}

func TestStatistics(t *testing.T) {
	logger := golog.NewTestLogger(t)
	model := carModelCovering(0, 0, 8, 16)
	cleaner, err := NewCleaner(model, Config{UseSemantic: true}, logger)
	test.That(t, err, test.ShouldBeNil)

	withCar := uniformImage(16, 16, colorful.Color{})
	stats := cleaner.Statistics([]*rimage.Image{withCar})
	test.That(t, stats.TotalImages, test.ShouldEqual, 1)
	test.That(t, stats.ImagesWithTransients, test.ShouldEqual, 1)
	test.That(t, stats.AvgTransientPercent, test.ShouldBeGreaterThan, 40.0)
}

func TestStatisticsEmpty(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cleaner, err := NewCleaner(nil, Config{}, logger)
	test.That(t, err, test.ShouldBeNil)

	stats := cleaner.Statistics(nil)
	test.That(t, stats.TotalImages, test.ShouldEqual, 0)
	test.That(t, stats.AvgTransientPercent, test.ShouldEqual, 0.0)
}

func TestVocabularyConsistency(t *testing.T) {
	// every transient class must exist in the recognized vocabulary
	found := map[string]bool{}
	for _, name := range RecognizedClasses {
		found[name] = true
	}
	for name := range TransientClasses {
		test.That(t, found[name], test.ShouldBeTrue)
	}
	test.That(t, len(TransientClasses), test.ShouldEqual, 26)
}
