package texclean

import (
	"go.uber.org/multierr"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/hleong75/Reconstitution/rimage"
)

// SegModel is the semantic segmentation capability. Classify returns one
// class id per pixel, row-major, using the vocabulary reported by Classes.
type SegModel interface {
	Classify(img *rimage.Image) ([][]int, error)
	Classes() []string
}

// Config configures a Cleaner.
type Config struct {
	// UseSemantic selects the segmentation path when a model is available.
	UseSemantic bool `json:"use_semantic"`
	// InpaintRadius scales how far inpainting reaches for support pixels.
	InpaintRadius int `json:"inpaint_radius"`
	// Thresholds tunes the heuristic detectors used on the traditional path.
	Thresholds TraditionalConfig `json:"thresholds"`
}

// CheckValid fills zero fields with defaults.
func (c *Config) CheckValid() error {
	if c.InpaintRadius == 0 {
		c.InpaintRadius = 5
	}
	if c.InpaintRadius < 0 {
		return errors.Errorf("inpaint_radius cannot be negative, got %d", c.InpaintRadius)
	}
	return multierr.Combine(c.Thresholds.CheckValid())
}

// Cleaner removes transient objects from texture imagery. The detection path
// is chosen once at construction: semantic when configured and a model is
// present, heuristic otherwise.
type Cleaner struct {
	conf     Config
	model    SegModel
	semantic bool
	logger   golog.Logger
}

// NewCleaner returns a cleaner. A nil model forces the heuristic path
// regardless of configuration.
func NewCleaner(model SegModel, conf Config, logger golog.Logger) (*Cleaner, error) {
	if err := conf.CheckValid(); err != nil {
		return nil, err
	}
	c := &Cleaner{
		conf:     conf,
		model:    model,
		semantic: conf.UseSemantic && model != nil,
		logger:   logger,
	}
	if c.semantic {
		logger.Info("texture cleaning with semantic segmentation")
	} else {
		logger.Info("texture cleaning with heuristic detectors")
	}
	return c, nil
}

// CleanImage returns a cleaned copy of the image. When nothing transient is
// detected the copy is pixel-identical to the input. Detection and inpainting
// failures degrade rather than fail: a model failure keeps the original
// image, the semantic path retries with the local inpainter, and as a last
// resort the original image is returned unchanged.
func (c *Cleaner) CleanImage(img *rimage.Image) (*rimage.Image, error) {
	mask, err := c.detect(img)
	if err != nil {
		c.logger.Warnw("transient detection failed, keeping original image", "error", err)
		return img.Clone(), nil
	}
	if !mask.Any() {
		return img.Clone(), nil
	}

	if c.semantic {
		cleaned, err := Inpaint(img, mask, c.conf.InpaintRadius, StructureAware)
		if err == nil {
			return cleaned, nil
		}
		c.logger.Warnw("structure-aware inpainting failed, retrying with local fill", "error", err)
		cleaned, err = Inpaint(img, mask, c.conf.InpaintRadius, FastLocal)
		if err == nil {
			return cleaned, nil
		}
		c.logger.Warnw("inpainting failed, keeping original image", "error", err)
		return img.Clone(), nil
	}

	cleaned, err := Inpaint(img, mask, 3, FastLocal)
	if err != nil {
		c.logger.Warnw("inpainting failed, keeping original image", "error", err)
		return img.Clone(), nil
	}
	return cleaned, nil
}

func (c *Cleaner) detect(img *rimage.Image) (*rimage.Mask, error) {
	if c.semantic {
		return c.detectSemantic(img)
	}
	return c.detectTraditional(img)
}

// detectSemantic builds the transient mask from per-pixel class ids, then
// closes, opens, and slightly dilates it so object silhouettes are fully
// covered.
func (c *Cleaner) detectSemantic(img *rimage.Image) (*rimage.Mask, error) {
	classIDs, err := c.model.Classify(img)
	if err != nil {
		return nil, errors.Wrap(err, "segmentation model failed")
	}
	if len(classIDs) != img.Height() {
		return nil, errors.Errorf("model returned %d rows for a %d-row image", len(classIDs), img.Height())
	}

	vocab := c.model.Classes()
	transient := make([]bool, len(vocab))
	for i, name := range vocab {
		transient[i] = TransientClasses[name]
	}

	mask := rimage.NewMask(img.Width(), img.Height())
	for y, row := range classIDs {
		if len(row) != img.Width() {
			return nil, errors.Errorf("model returned %d columns for a %d-column image", len(row), img.Width())
		}
		for x, id := range row {
			if id >= 0 && id < len(transient) && transient[id] {
				mask.Set(x, y, true)
			}
		}
	}
	return mask.Close(7, 7).Open(7, 7).Dilate(5, 5), nil
}

// detectTraditional unions the reflective, vertical-structure, and motion
// blur detectors and cleans the result with morphology.
func (c *Cleaner) detectTraditional(img *rimage.Image) (*rimage.Mask, error) {
	reflective, err := ReflectiveMask(img, c.conf.Thresholds)
	if err != nil {
		return nil, err
	}
	vertical, err := VerticalMask(img, c.conf.Thresholds)
	if err != nil {
		return nil, err
	}
	blur, err := MotionBlurMask(img, c.conf.Thresholds)
	if err != nil {
		return nil, err
	}

	mask := reflective
	mask.Union(vertical)
	mask.Union(blur)
	return mask.Close(5, 5).Open(5, 5), nil
}

// CleanBatch cleans every image, preserving order. Images that fail to clean
// are passed through unchanged with a warning.
func (c *Cleaner) CleanBatch(imgs []*rimage.Image) []*rimage.Image {
	c.logger.Infof("cleaning %d images", len(imgs))
	cleaned := make([]*rimage.Image, len(imgs))
	for i, img := range imgs {
		out, err := c.CleanImage(img)
		if err != nil {
			c.logger.Warnw("cleaning failed, keeping original image", "index", i, "error", err)
			cleaned[i] = img
			continue
		}
		cleaned[i] = out
	}
	return cleaned
}

// Stats summarizes transient object detection across a set of images.
type Stats struct {
	TotalImages          int
	ImagesWithTransients int
	AvgTransientPercent  float64
}

// Statistics runs detection only, without inpainting, and reports how much
// of the imagery is transient content.
func (c *Cleaner) Statistics(imgs []*rimage.Image) Stats {
	stats := Stats{TotalImages: len(imgs)}
	totalPixels := 0
	transientPixels := 0
	for i, img := range imgs {
		mask, err := c.detect(img)
		if err != nil {
			c.logger.Warnw("detection failed while gathering statistics", "index", i, "error", err)
			continue
		}
		set := mask.CountSet()
		if set > 0 {
			stats.ImagesWithTransients++
		}
		transientPixels += set
		totalPixels += img.Width() * img.Height()
	}
	if totalPixels > 0 {
		stats.AvgTransientPercent = float64(transientPixels) / float64(totalPixels) * 100
	}
	return stats
}
