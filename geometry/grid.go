package geometry

import (
	"math"
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/hleong75/Reconstitution/pointcloud"
)

// GridEngine implements the cloud-conditioning half of the geometry engine
// with a voxel hash grid: downsampling, statistical outlier removal, normal
// estimation, and nearest-neighbor statistics.
type GridEngine struct {
	logger golog.Logger
}

// NewGridEngine returns the built-in grid-backed engine.
func NewGridEngine(logger golog.Logger) *GridEngine {
	return &GridEngine{logger: logger}
}

// voxelCoords stores voxel coordinates in grid axes.
type voxelCoords struct {
	i, j, k int64
}

func getVoxelCoordinates(p, ptMin r3.Vector, voxelSize float64) voxelCoords {
	return voxelCoords{
		i: int64(math.Floor((p.X - ptMin.X) / voxelSize)),
		j: int64(math.Floor((p.Y - ptMin.Y) / voxelSize)),
		k: int64(math.Floor((p.Z - ptMin.Z) / voxelSize)),
	}
}

// Downsample reduces the cloud with a voxel grid, keeping per-voxel position
// centroids and averaged colors. Labels do not survive downsampling;
// classification runs afterwards in the pipeline.
func (e *GridEngine) Downsample(cloud *pointcloud.PointCloud, voxelSize float64) (*pointcloud.PointCloud, error) {
	if voxelSize <= 0 {
		return nil, errors.Errorf("voxel size must be positive, got %f", voxelSize)
	}
	if cloud.Size() == 0 {
		return pointcloud.New(), nil
	}

	meta := cloud.MetaData()
	ptMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}

	type voxel struct {
		sum   r3.Vector
		color pointcloud.Color
		count float64
	}
	voxels := map[voxelCoords]*voxel{}
	order := []voxelCoords{}
	cloud.Iterate(func(i int, p r3.Vector) bool {
		key := getVoxelCoordinates(p, ptMin, voxelSize)
		v, ok := voxels[key]
		if !ok {
			v = &voxel{}
			voxels[key] = v
			order = append(order, key)
		}
		v.sum = v.sum.Add(p)
		if c, ok := cloud.Color(i); ok {
			v.color.R += c.R
			v.color.G += c.G
			v.color.B += c.B
		}
		v.count++
		return true
	})

	out := pointcloud.NewWithPrealloc(len(order))
	for _, key := range order {
		v := voxels[key]
		center := v.sum.Mul(1 / v.count)
		if cloud.HasColor() {
			out.AddColored(center, pointcloud.Color{
				R: v.color.R / v.count,
				G: v.color.G / v.count,
				B: v.color.B / v.count,
			})
		} else {
			out.Add(center)
		}
	}
	e.logger.Infof("downsampled %d points to %d with voxel size %f", cloud.Size(), out.Size(), voxelSize)
	return out, nil
}

// RemoveOutliers filters points whose mean k-nearest-neighbor distance is an
// outlier relative to the cloud's distribution.
func (e *GridEngine) RemoveOutliers(
	cloud *pointcloud.PointCloud, neighbors int, stdRatio float64,
) (*pointcloud.PointCloud, []int, error) {
	if neighbors < 1 {
		return nil, nil, errors.Errorf("neighbor count must be positive, got %d", neighbors)
	}
	n := cloud.Size()
	if n <= neighbors+1 {
		// not enough points to form a distribution, keep everything
		return cloud.Clone(), nil, nil
	}

	grid := newPointGrid(cloud.Positions())
	meanDists := make([]float64, n)
	for i := 0; i < n; i++ {
		dists := grid.kNearestDistances(i, neighbors)
		meanDists[i] = stat.Mean(dists, nil)
	}

	mean, std := stat.MeanStdDev(meanDists, nil)
	threshold := mean + stdRatio*std

	out := pointcloud.NewWithPrealloc(n)
	var removed []int
	cloud.Iterate(func(i int, p r3.Vector) bool {
		if meanDists[i] > threshold {
			removed = append(removed, i)
			return true
		}
		if c, ok := cloud.Color(i); ok {
			out.AddColored(p, c)
		} else {
			out.Add(p)
		}
		return true
	})
	e.logger.Infof("outlier removal dropped %d of %d points", len(removed), n)
	return out, removed, nil
}

// EstimateNormals fits a plane to each point's neighborhood and returns the
// smallest-eigenvector normal, flipped to point upward so ground and roof
// normals are consistently oriented.
func (e *GridEngine) EstimateNormals(
	cloud *pointcloud.PointCloud, radius float64, maxNeighbors int,
) ([]r3.Vector, error) {
	if radius <= 0 {
		return nil, errors.Errorf("normal estimation radius must be positive, got %f", radius)
	}
	n := cloud.Size()
	normals := make([]r3.Vector, n)
	if n == 0 {
		return normals, nil
	}

	grid := newPointGrid(cloud.Positions())
	up := r3.Vector{Z: 1}
	for i := 0; i < n; i++ {
		nbrs := grid.neighborsWithin(i, radius, maxNeighbors)
		if len(nbrs) < 3 {
			normals[i] = up
			continue
		}
		normal, ok := planeNormal(cloud.Positions(), nbrs)
		if !ok {
			normals[i] = up
			continue
		}
		if normal.Z < 0 {
			normal = normal.Mul(-1)
		}
		normals[i] = normal
	}
	return normals, nil
}

// AverageNearestNeighborDistance returns the mean distance from each point
// to its single nearest neighbor, the observed-scale parameter source for
// ball pivoting and alpha shapes.
func (e *GridEngine) AverageNearestNeighborDistance(cloud *pointcloud.PointCloud) float64 {
	n := cloud.Size()
	if n < 2 {
		return 0
	}
	grid := newPointGrid(cloud.Positions())
	total := 0.0
	for i := 0; i < n; i++ {
		dists := grid.kNearestDistances(i, 1)
		total += dists[0]
	}
	return total / float64(n)
}

// pointGrid is a voxel hash over point indices for bounded neighbor
// queries. The cell size is derived from the cloud's bounding box so cells
// hold a handful of points on average.
type pointGrid struct {
	pts      []r3.Vector
	cellSize float64
	ptMin    r3.Vector
	cells    map[voxelCoords][]int
}

func newPointGrid(pts []r3.Vector) *pointGrid {
	ptMin := pts[0]
	ptMax := pts[0]
	for _, p := range pts[1:] {
		ptMin = r3.Vector{X: math.Min(ptMin.X, p.X), Y: math.Min(ptMin.Y, p.Y), Z: math.Min(ptMin.Z, p.Z)}
		ptMax = r3.Vector{X: math.Max(ptMax.X, p.X), Y: math.Max(ptMax.Y, p.Y), Z: math.Max(ptMax.Z, p.Z)}
	}
	span := ptMax.Sub(ptMin)
	// flat clouds collapse one or more spans to zero; substitute the largest
	// span so the cell size stays usable
	maxSpan := math.Max(span.X, math.Max(span.Y, span.Z))
	sx, sy, sz := span.X, span.Y, span.Z
	if sx < maxSpan*1e-6 {
		sx = maxSpan
	}
	if sy < maxSpan*1e-6 {
		sy = maxSpan
	}
	if sz < maxSpan*1e-6 {
		sz = maxSpan
	}
	cellSize := math.Cbrt(sx * sy * sz / float64(len(pts)))
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = 1
	}

	g := &pointGrid{
		pts:      pts,
		cellSize: cellSize,
		ptMin:    ptMin,
		cells:    make(map[voxelCoords][]int, len(pts)),
	}
	for i, p := range pts {
		key := getVoxelCoordinates(p, ptMin, cellSize)
		g.cells[key] = append(g.cells[key], i)
	}
	return g
}

// candidatesInShells collects point indices from all cells within the given
// ring count around the query point's cell, excluding the point itself.
func (g *pointGrid) candidatesInShells(i, rings int) []int {
	center := getVoxelCoordinates(g.pts[i], g.ptMin, g.cellSize)
	var out []int
	for di := -int64(rings); di <= int64(rings); di++ {
		for dj := -int64(rings); dj <= int64(rings); dj++ {
			for dk := -int64(rings); dk <= int64(rings); dk++ {
				key := voxelCoords{center.i + di, center.j + dj, center.k + dk}
				for _, j := range g.cells[key] {
					if j != i {
						out = append(out, j)
					}
				}
			}
		}
	}
	return out
}

// kNearestDistances returns the sorted distances to the k nearest neighbors
// of point i, expanding the search outward until enough candidates exist.
func (g *pointGrid) kNearestDistances(i, k int) []float64 {
	rings := 1
	var cands []int
	for {
		cands = g.candidatesInShells(i, rings)
		if len(cands) >= k || rings >= 8 {
			break
		}
		rings++
	}
	if len(cands) < k {
		// degenerate, fall back to a full scan
		cands = cands[:0]
		for j := range g.pts {
			if j != i {
				cands = append(cands, j)
			}
		}
	}
	dists := make([]float64, 0, len(cands))
	for _, j := range cands {
		dists = append(dists, g.pts[i].Sub(g.pts[j]).Norm())
	}
	sort.Float64s(dists)
	if len(dists) > k {
		dists = dists[:k]
	}
	return dists
}

// neighborsWithin returns up to maxNeighbors point indices within radius of
// point i, nearest first.
func (g *pointGrid) neighborsWithin(i int, radius float64, maxNeighbors int) []int {
	rings := int(math.Ceil(radius/g.cellSize)) + 1
	if rings > 8 {
		rings = 8
	}
	cands := g.candidatesInShells(i, rings)
	type distIdx struct {
		d   float64
		idx int
	}
	within := make([]distIdx, 0, len(cands))
	for _, j := range cands {
		d := g.pts[i].Sub(g.pts[j]).Norm()
		if d <= radius {
			within = append(within, distIdx{d, j})
		}
	}
	sort.Slice(within, func(a, b int) bool { return within[a].d < within[b].d })
	if maxNeighbors > 0 && len(within) > maxNeighbors {
		within = within[:maxNeighbors]
	}
	out := make([]int, len(within))
	for j, di := range within {
		out[j] = di.idx
	}
	return out
}
