// Package geometry defines the point-cloud geometry engine contract consumed
// by the pipeline and provides a voxel-grid built-in for the operations that
// do not require an external reconstruction capability.
package geometry

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/hleong75/Reconstitution/mesh"
	"github.com/hleong75/Reconstitution/pointcloud"
)

// ErrUnsupported is returned by an engine for capabilities it does not
// provide. Surface reconstruction and simplification are external
// capabilities; the built-in engine only covers cloud-level operations.
var ErrUnsupported = errors.New("operation not supported by this geometry engine")

// Engine is the full geometry-engine contract: cloud conditioning plus the
// reconstruction surface the mesh package drives.
type Engine interface {
	mesh.Engine

	// Downsample reduces the cloud with a voxel grid of the given size,
	// replacing each occupied voxel by the centroid of its points.
	Downsample(cloud *pointcloud.PointCloud, voxelSize float64) (*pointcloud.PointCloud, error)

	// RemoveOutliers drops points whose mean distance to their k nearest
	// neighbors exceeds the population mean by stdRatio standard
	// deviations. It returns the filtered cloud and the removed indices.
	RemoveOutliers(cloud *pointcloud.PointCloud, neighbors int, stdRatio float64) (*pointcloud.PointCloud, []int, error)
}

// assert the built-in satisfies the contract.
var _ Engine = (*GridEngine)(nil)

// unsupported tags ErrUnsupported with the capability name.
func unsupported(op string) error {
	return errors.Wrap(ErrUnsupported, op)
}

// ReconstructPoisson is an external capability; the built-in engine does not
// provide it.
func (e *GridEngine) ReconstructPoisson(
	cloud *pointcloud.PointCloud, normals []r3.Vector, params mesh.PoissonParams,
) (*mesh.Mesh, []float64, error) {
	return nil, nil, unsupported("poisson reconstruction")
}

// ReconstructBallPivoting is an external capability; the built-in engine
// does not provide it.
func (e *GridEngine) ReconstructBallPivoting(
	cloud *pointcloud.PointCloud, normals []r3.Vector, radii []float64,
) (*mesh.Mesh, error) {
	return nil, unsupported("ball pivoting reconstruction")
}

// ReconstructAlphaShape is an external capability; the built-in engine does
// not provide it.
func (e *GridEngine) ReconstructAlphaShape(cloud *pointcloud.PointCloud, alpha float64) (*mesh.Mesh, error) {
	return nil, unsupported("alpha shape reconstruction")
}

// Simplify is an external capability; the built-in engine does not provide
// it.
func (e *GridEngine) Simplify(m *mesh.Mesh, targetTriangles int) (*mesh.Mesh, error) {
	return nil, unsupported("mesh simplification")
}
