package mesh

import (
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/hleong75/Reconstitution/pointcloud"
)

// Reconstruction method names, matching the configuration vocabulary of the
// pipeline.
const (
	MethodPoisson      = "poisson"
	MethodBallPivoting = "ball_pivoting"
	MethodAlphaShape   = "alpha_shape"
)

// lowDensityQuantile is the fraction of lowest-density Poisson vertices
// trimmed to remove low-confidence fringe geometry.
const lowDensityQuantile = 0.01

// PoissonParams parameterize Poisson-style implicit reconstruction.
type PoissonParams struct {
	Depth int
	Scale float64
}

// Engine is the surface of the point-cloud geometry engine the reconstructor
// drives. Reconstruction and simplification are external capabilities; the
// reconstructor's job is parameterizing them and post-processing uniformly.
type Engine interface {
	EstimateNormals(cloud *pointcloud.PointCloud, radius float64, maxNeighbors int) ([]r3.Vector, error)
	AverageNearestNeighborDistance(cloud *pointcloud.PointCloud) float64
	ReconstructPoisson(cloud *pointcloud.PointCloud, normals []r3.Vector, params PoissonParams) (*Mesh, []float64, error)
	ReconstructBallPivoting(cloud *pointcloud.PointCloud, normals []r3.Vector, radii []float64) (*Mesh, error)
	ReconstructAlphaShape(cloud *pointcloud.PointCloud, alpha float64) (*Mesh, error)
	Simplify(m *Mesh, targetTriangles int) (*Mesh, error)
}

// Config selects and parameterizes the reconstruction strategy.
type Config struct {
	Method              string  `json:"method"`
	PoissonDepth        int     `json:"poisson_depth"`
	PoissonScale        float64 `json:"poisson_scale"`
	SimplificationRatio float64 `json:"simplification_ratio"`
	NormalRadius        float64 `json:"normal_radius"`
	NormalMaxNeighbors  int     `json:"normal_max_neighbors"`
}

// CheckValid validates the config and fills defaults for zero values.
func (conf *Config) CheckValid() error {
	if conf.Method == "" {
		conf.Method = MethodPoisson
	}
	if conf.PoissonDepth == 0 {
		conf.PoissonDepth = 9
	}
	if conf.PoissonDepth < 1 {
		return errors.Errorf("poisson_depth must be positive, got %d", conf.PoissonDepth)
	}
	if conf.PoissonScale == 0 {
		conf.PoissonScale = 1.1
	}
	if conf.SimplificationRatio == 0 {
		conf.SimplificationRatio = 0.5
	}
	if conf.SimplificationRatio < 0 || conf.SimplificationRatio > 1 {
		return errors.Errorf("simplification_ratio must be in [0,1], got %f", conf.SimplificationRatio)
	}
	if conf.NormalRadius == 0 {
		conf.NormalRadius = 0.1
	}
	if conf.NormalMaxNeighbors == 0 {
		conf.NormalMaxNeighbors = 30
	}
	return nil
}

// Reconstructor builds a triangulated surface from the ground and building
// sub-clouds via one of three engine-backed strategies.
type Reconstructor struct {
	engine Engine
	conf   Config
	logger golog.Logger
}

// NewReconstructor returns a reconstructor driving the given engine.
func NewReconstructor(engine Engine, conf Config, logger golog.Logger) (*Reconstructor, error) {
	if engine == nil {
		return nil, errors.New("reconstructor needs a geometry engine")
	}
	if err := conf.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "reconstructor config error")
	}
	return &Reconstructor{engine: engine, conf: conf, logger: logger}, nil
}

// Reconstruct combines the ground and building clouds, estimates normals,
// runs the configured strategy, simplifies to the configured triangle ratio,
// and cleans the result. An empty combined cloud short-circuits to an empty
// mesh without invoking the engine.
func (r *Reconstructor) Reconstruct(ground, buildings *pointcloud.PointCloud) (*Mesh, error) {
	combined := pointcloud.New()
	combined.Merge(ground)
	combined.Merge(buildings)

	if combined.Size() == 0 {
		r.logger.Warnf("empty point cloud, returning empty mesh")
		return New(), nil
	}

	r.logger.Infof("estimating normals for %d points", combined.Size())
	normals, err := r.engine.EstimateNormals(combined, r.conf.NormalRadius, r.conf.NormalMaxNeighbors)
	if err != nil {
		return nil, errors.Wrap(err, "normal estimation failed")
	}

	var m *Mesh
	switch r.conf.Method {
	case MethodPoisson:
		m, err = r.poisson(combined, normals)
	case MethodBallPivoting:
		m, err = r.ballPivoting(combined, normals)
	case MethodAlphaShape:
		m, err = r.alphaShape(combined)
	default:
		r.logger.Warnf("unknown reconstruction method %q, using poisson", r.conf.Method)
		m, err = r.poisson(combined, normals)
	}
	if err != nil {
		return nil, err
	}

	m, err = r.simplify(m)
	if err != nil {
		return nil, err
	}
	m = Cleanup(m)

	r.logger.Infof("reconstructed mesh with %d vertices and %d triangles", m.VertexCount(), m.TriangleCount())
	return m, nil
}

// poisson runs implicit reconstruction and trims the lowest-density 1% of
// vertices.
func (r *Reconstructor) poisson(cloud *pointcloud.PointCloud, normals []r3.Vector) (*Mesh, error) {
	r.logger.Infof("running poisson reconstruction, depth %d", r.conf.PoissonDepth)
	m, densities, err := r.engine.ReconstructPoisson(cloud, normals, PoissonParams{
		Depth: r.conf.PoissonDepth,
		Scale: r.conf.PoissonScale,
	})
	if err != nil {
		return nil, errors.Wrap(err, "poisson reconstruction failed")
	}
	if len(densities) != m.VertexCount() {
		return nil, errors.Errorf("engine returned %d densities for %d vertices", len(densities), m.VertexCount())
	}
	if m.VertexCount() == 0 {
		return m, nil
	}

	sorted := append([]float64(nil), densities...)
	sort.Float64s(sorted)
	cutoff := stat.Quantile(lowDensityQuantile, stat.LinInterp, sorted, nil)
	remove := make([]bool, len(densities))
	for i, d := range densities {
		remove[i] = d < cutoff
	}
	return RemoveVerticesByMask(m, remove)
}

// ballPivoting derives its radii from the cloud's observed scale rather than
// a fixed constant so the algorithm adapts to point density.
func (r *Reconstructor) ballPivoting(cloud *pointcloud.PointCloud, normals []r3.Vector) (*Mesh, error) {
	avg := r.engine.AverageNearestNeighborDistance(cloud)
	radii := []float64{avg, avg * 2, avg * 4}
	r.logger.Infof("running ball pivoting, radii %v", radii)
	m, err := r.engine.ReconstructBallPivoting(cloud, normals, radii)
	return m, errors.Wrap(err, "ball pivoting failed")
}

func (r *Reconstructor) alphaShape(cloud *pointcloud.PointCloud) (*Mesh, error) {
	alpha := r.engine.AverageNearestNeighborDistance(cloud) * 2
	r.logger.Infof("running alpha shape, alpha %f", alpha)
	m, err := r.engine.ReconstructAlphaShape(cloud, alpha)
	return m, errors.Wrap(err, "alpha shape failed")
}

func (r *Reconstructor) simplify(m *Mesh) (*Mesh, error) {
	if r.conf.SimplificationRatio >= 1 || m.TriangleCount() == 0 {
		return m, nil
	}
	target := int(float64(m.TriangleCount()) * r.conf.SimplificationRatio)
	r.logger.Infof("simplifying mesh to %d triangles", target)
	simplified, err := r.engine.Simplify(m, target)
	return simplified, errors.Wrap(err, "mesh simplification failed")
}
