package classify

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/hleong75/Reconstitution/pointcloud"
)

// Extract returns a new cloud holding only the points of the given class, in
// the order they appear in the input. The input is never mutated. A cloud
// with no labels yields an empty result.
func Extract(cloud *pointcloud.PointCloud, label pointcloud.Label, logger golog.Logger) *pointcloud.PointCloud {
	if !cloud.HasLabels() {
		logger.Warnf("point cloud has no class labels, extracting nothing for %s", label)
		return pointcloud.New()
	}

	count := 0
	for _, l := range cloud.Labels() {
		if l == label {
			count++
		}
	}

	out := pointcloud.NewWithPrealloc(count)
	labels := cloud.Labels()
	hasColor := cloud.HasColor()
	cloud.Iterate(func(i int, p r3.Vector) bool {
		if labels[i] != label {
			return true
		}
		if hasColor {
			clr, _ := cloud.Color(i)
			out.AddColored(p, clr)
		} else {
			out.Add(p)
		}
		return true
	})
	logger.Debugf("extracted %d of %d points for class %s", out.Size(), cloud.Size(), label)
	return out
}
