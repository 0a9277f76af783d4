// Package classify assigns semantic class labels to point clouds, using a
// segmentation model capability when one is available and a deterministic
// height-banding heuristic when it is not.
package classify

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/utils"

	"github.com/hleong75/Reconstitution/pointcloud"
)

// Model is the point segmentation capability. Positions are normalized to
// the unit ball before the call; the returned slice must hold one label per
// input position.
type Model interface {
	Segment(positions []r3.Vector) ([]pointcloud.Label, error)
}

// Outcome reports how a classification was produced. Falling back to the
// height-banding heuristic is a first-class result, not an error: model
// failures are caught, logged, and never surfaced to the caller.
type Outcome struct {
	Labels   []pointcloud.Label
	Fallback bool
	Reason   string
}

// Per-class display colors, written onto the cloud after classification for
// visual debugging. This is not a texture.
var classColors = map[pointcloud.Label]pointcloud.Color{
	pointcloud.LabelGround:            {R: 0.6, G: 0.4, B: 0.2},
	pointcloud.LabelBuilding:          {R: 0.8, G: 0.2, B: 0.2},
	pointcloud.LabelVegetationOrOther: {R: 0.2, G: 0.8, B: 0.2},
	pointcloud.LabelUnclassified:      {R: 0.5, G: 0.5, B: 0.5},
}

// ClassColor returns the display color for a class label.
func ClassColor(l pointcloud.Label) pointcloud.Color {
	if c, ok := classColors[l]; ok {
		return c
	}
	return classColors[pointcloud.LabelUnclassified]
}

// Height-band fractions for the fallback heuristic: the lowest 20% of the
// z-range is ground, the next 60% building, the top 20% vegetation/other.
const (
	groundBandTop   = 0.2
	buildingBandTop = 0.8
)

// Classifier labels whole clouds in one pass. It holds its model capability
// explicitly; there is no package-level state.
type Classifier struct {
	model  Model
	logger golog.Logger
}

// NewClassifier returns a classifier. A nil model means every call takes the
// height-banding fallback.
func NewClassifier(model Model, logger golog.Logger) *Classifier {
	return &Classifier{model: model, logger: logger}
}

// Classify labels every point of the cloud in place and overwrites its color
// channel with per-class display colors. An empty cloud yields an empty
// label set with no error.
func (c *Classifier) Classify(cloud *pointcloud.PointCloud) Outcome {
	if cloud.Size() == 0 {
		c.logger.Warnf("empty point cloud, skipping classification")
		outcome := Outcome{Labels: []pointcloud.Label{}}
		utils.UncheckedError(cloud.SetLabels(outcome.Labels))
		return outcome
	}

	outcome := c.classify(cloud)
	if outcome.Fallback {
		c.logger.Warnf("classification model unavailable (%s), using height banding for %d points",
			outcome.Reason, cloud.Size())
	} else {
		c.logger.Infof("classified %d points with segmentation model", cloud.Size())
	}

	// classify produces one label per point, so the length checks cannot fail
	utils.UncheckedError(cloud.SetLabels(outcome.Labels))
	colors := make([]pointcloud.Color, len(outcome.Labels))
	for i, l := range outcome.Labels {
		colors[i] = ClassColor(l)
	}
	utils.UncheckedError(cloud.SetColors(colors))
	return outcome
}

func (c *Classifier) classify(cloud *pointcloud.PointCloud) Outcome {
	if c.model == nil {
		return Outcome{
			Labels:   heightBands(cloud),
			Fallback: true,
			Reason:   "no segmentation model",
		}
	}

	labels, err := c.model.Segment(normalizeToUnitBall(cloud.Positions()))
	if err != nil {
		return Outcome{
			Labels:   heightBands(cloud),
			Fallback: true,
			Reason:   err.Error(),
		}
	}
	if len(labels) != cloud.Size() {
		return Outcome{
			Labels:   heightBands(cloud),
			Fallback: true,
			Reason:   "model returned wrong label count",
		}
	}
	return Outcome{Labels: labels}
}

// normalizeToUnitBall subtracts the centroid and scales by the maximum
// radial distance so the cloud fits a unit ball. A zero maximum distance
// skips the scale to avoid division by zero.
func normalizeToUnitBall(positions []r3.Vector) []r3.Vector {
	var centroid r3.Vector
	for _, p := range positions {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(positions)))

	out := make([]r3.Vector, len(positions))
	maxDist := 0.0
	for i, p := range positions {
		out[i] = p.Sub(centroid)
		if d := out[i].Norm(); d > maxDist {
			maxDist = d
		}
	}
	if maxDist > 0 {
		for i := range out {
			out[i] = out[i].Mul(1 / maxDist)
		}
	}
	return out
}

// heightBands is the deterministic fallback: classes assigned purely from
// each point's position within the cloud's z-range.
func heightBands(cloud *pointcloud.PointCloud) []pointcloud.Label {
	meta := cloud.MetaData()
	zRange := meta.MaxZ - meta.MinZ

	labels := make([]pointcloud.Label, cloud.Size())
	cloud.Iterate(func(i int, p r3.Vector) bool {
		band := 0.0
		if zRange > 0 {
			band = (p.Z - meta.MinZ) / zRange
		}
		switch {
		case band < groundBandTop:
			labels[i] = pointcloud.LabelGround
		case band < buildingBandTop:
			labels[i] = pointcloud.LabelBuilding
		default:
			labels[i] = pointcloud.LabelVegetationOrOther
		}
		return true
	})
	return labels
}
