// Package pointcloud defines an ordered point cloud with optional parallel
// color and class label channels, along with readers for the binary formats
// the reconstruction pipeline ingests.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Color is an RGB triple with channels in [0, 1].
type Color struct {
	R, G, B float64
}

// Label is the semantic class attached to a point after classification.
type Label int

// The class vocabulary of the pipeline. Index values match the order the
// segmentation model emits, so model output can be used directly.
const (
	LabelGround Label = iota
	LabelBuilding
	LabelVegetationOrOther
	LabelUnclassified
)

// NumLabels is the size of the class vocabulary.
const NumLabels = 4

func (l Label) String() string {
	switch l {
	case LabelGround:
		return "ground"
	case LabelBuilding:
		return "building"
	case LabelVegetationOrOther:
		return "vegetation_or_other"
	default:
		return "unclassified"
	}
}

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor  bool
	HasLabels bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// NewMetaData returns a new point cloud metadata struct.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}
	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
}

// PointCloud is an ordered collection of 3D positions with optional parallel
// color and class label channels. The invariant is that the color and label
// slices are either nil or exactly as long as the position slice.
type PointCloud struct {
	positions []r3.Vector
	colors    []Color
	labels    []Label
	meta      MetaData
}

// New returns an empty point cloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty point cloud with preallocated capacity.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		positions: make([]r3.Vector, 0, size),
		meta:      NewMetaData(),
	}
}

// Size returns the number of points in the cloud.
func (pc *PointCloud) Size() int {
	return len(pc.positions)
}

// MetaData returns the bounds and channel metadata of the cloud.
func (pc *PointCloud) MetaData() MetaData {
	meta := pc.meta
	meta.HasColor = pc.colors != nil
	meta.HasLabels = pc.labels != nil
	return meta
}

// HasColor reports whether the cloud carries a color channel.
func (pc *PointCloud) HasColor() bool {
	return pc.colors != nil
}

// HasLabels reports whether the cloud has been classified.
func (pc *PointCloud) HasLabels() bool {
	return pc.labels != nil
}

// Add appends a position-only point to the cloud. Adding an uncolored point
// to a colored cloud drops the color channel entirely, since a partial
// channel would break the parallel-slice invariant.
func (pc *PointCloud) Add(p r3.Vector) {
	if pc.colors != nil {
		pc.colors = nil
	}
	pc.positions = append(pc.positions, p)
	pc.meta.Merge(p)
}

// AddColored appends a point with a color. The color channel is only kept
// while every point in the cloud has one.
func (pc *PointCloud) AddColored(p r3.Vector, c Color) {
	if pc.colors == nil {
		if len(pc.positions) > 0 {
			// cloud already has uncolored points; stay colorless
			pc.positions = append(pc.positions, p)
			pc.meta.Merge(p)
			return
		}
		pc.colors = make([]Color, 0, cap(pc.positions))
	}
	pc.positions = append(pc.positions, p)
	pc.colors = append(pc.colors, c)
	pc.meta.Merge(p)
}

// At returns the position of the i-th point.
func (pc *PointCloud) At(i int) r3.Vector {
	return pc.positions[i]
}

// Color returns the color of the i-th point and whether a color channel
// exists.
func (pc *PointCloud) Color(i int) (Color, bool) {
	if pc.colors == nil {
		return Color{}, false
	}
	return pc.colors[i], true
}

// Label returns the class label of the i-th point and whether the cloud has
// been classified.
func (pc *PointCloud) Label(i int) (Label, bool) {
	if pc.labels == nil {
		return LabelUnclassified, false
	}
	return pc.labels[i], true
}

// Positions returns the underlying position slice. Callers must treat it as
// read-only.
func (pc *PointCloud) Positions() []r3.Vector {
	return pc.positions
}

// Colors returns the underlying color slice, nil if the cloud is uncolored.
// Callers must treat it as read-only.
func (pc *PointCloud) Colors() []Color {
	return pc.colors
}

// Labels returns the underlying label slice, nil if unclassified. Callers
// must treat it as read-only.
func (pc *PointCloud) Labels() []Label {
	return pc.labels
}

// SetLabels attaches a class label to every point.
func (pc *PointCloud) SetLabels(labels []Label) error {
	if len(labels) != len(pc.positions) {
		return errors.Errorf("label count %d does not match point count %d", len(labels), len(pc.positions))
	}
	pc.labels = labels
	return nil
}

// SetColors replaces the color channel wholesale.
func (pc *PointCloud) SetColors(colors []Color) error {
	if len(colors) != len(pc.positions) {
		return errors.Errorf("color count %d does not match point count %d", len(colors), len(pc.positions))
	}
	pc.colors = colors
	return nil
}

// Iterate calls fn for every point in order, stopping early if fn returns
// false.
func (pc *PointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range pc.positions {
		if !fn(i, p) {
			return
		}
	}
}

// Centroid returns the mean position of the cloud, or the zero vector for an
// empty cloud.
func (pc *PointCloud) Centroid() r3.Vector {
	n := float64(len(pc.positions))
	if n == 0 {
		return r3.Vector{}
	}
	return r3.Vector{
		X: pc.meta.totalX / n,
		Y: pc.meta.totalY / n,
		Z: pc.meta.totalZ / n,
	}
}

// Clone returns a deep copy of the cloud.
func (pc *PointCloud) Clone() *PointCloud {
	out := &PointCloud{
		positions: append([]r3.Vector(nil), pc.positions...),
		meta:      pc.meta,
	}
	if pc.colors != nil {
		out.colors = append([]Color(nil), pc.colors...)
	}
	if pc.labels != nil {
		out.labels = append([]Label(nil), pc.labels...)
	}
	return out
}

// Merge appends all points of other onto pc, preserving order. The merged
// cloud keeps a color channel only if both parts carry one; a label channel
// is never merged since classification happens on the merged cloud.
func (pc *PointCloud) Merge(other *PointCloud) {
	if other.Size() == 0 {
		return
	}
	keepColor := pc.colors != nil || pc.Size() == 0
	keepColor = keepColor && other.colors != nil
	for i, p := range other.positions {
		if keepColor {
			pc.AddColored(p, other.colors[i])
		} else {
			pc.Add(p)
		}
	}
	pc.labels = nil
}
