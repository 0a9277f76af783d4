package pipeline

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/hleong75/Reconstitution/geometry"
	"github.com/hleong75/Reconstitution/mesh"
	"github.com/hleong75/Reconstitution/pointcloud"
)

// fullEngine backs the grid engine's reconstruction gaps with a canned mesh
// so the pipeline can run end to end.
type fullEngine struct {
	*geometry.GridEngine
}

func (e *fullEngine) ReconstructPoisson(
	cloud *pointcloud.PointCloud, normals []r3.Vector, params mesh.PoissonParams,
) (*mesh.Mesh, []float64, error) {
	m := &mesh.Mesh{
		Vertices: append([]r3.Vector(nil), cloud.Positions()...),
	}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		m.Triangles = append(m.Triangles, [3]int{i, i + 1, i + 2})
	}
	densities := make([]float64, len(m.Vertices))
	for i := range densities {
		densities[i] = 1
	}
	return m, densities, nil
}

func (e *fullEngine) Simplify(m *mesh.Mesh, targetTriangles int) (*mesh.Mesh, error) {
	return m, nil
}

func writeCloudFixture(t *testing.T, dir, name string, n int) {
	t.Helper()
	pc := pointcloud.New()
	for i := 0; i < n; i++ {
		pc.Add(r3.Vector{
			X: float64(i%10) * 0.5,
			Y: float64((i/10)%10) * 0.5,
			Z: float64(i%30) * 0.4,
		})
	}
	//nolint:gosec
	f, err := os.Create(filepath.Join(dir, name))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pointcloud.ToPCD(pc, f, pointcloud.PCDAscii), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}

func writeImageFixture(t *testing.T, dir, name string) {
	t.Helper()
	//nolint:gosec
	f, err := os.Create(filepath.Join(dir, name))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 16))), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}

func newTestPipeline(t *testing.T, conf Config) *Pipeline {
	t.Helper()
	logger := golog.NewTestLogger(t)
	engine := &fullEngine{geometry.NewGridEngine(logger)}
	p, err := New(conf, engine, nil, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestRunEndToEnd(t *testing.T) {
	lidarDir := t.TempDir()
	imageDir := t.TempDir()
	writeCloudFixture(t, lidarDir, "scan1.pcd", 120)
	writeCloudFixture(t, lidarDir, "scan2.pcd", 60)
	writeImageFixture(t, imageDir, "street1.png")
	writeImageFixture(t, imageDir, "street2.png")

	p := newTestPipeline(t, Config{
		LiDARDir: lidarDir,
		ImageDir: imageDir,
	})

	result, err := p.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Cloud.Size(), test.ShouldBeGreaterThan, 0)
	test.That(t, result.Mesh.VertexCount(), test.ShouldBeGreaterThan, 0)
	test.That(t, result.Mesh.HasColors(), test.ShouldBeTrue)
	test.That(t, len(result.CleanedImages), test.ShouldEqual, 2)
	// no model injected anywhere, so classification fell back
	test.That(t, result.Fallback, test.ShouldBeTrue)
}

func TestRunEmptyDirs(t *testing.T) {
	p := newTestPipeline(t, Config{
		LiDARDir: t.TempDir(),
		ImageDir: t.TempDir(),
	})

	result, err := p.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Cloud.Size(), test.ShouldEqual, 0)
	test.That(t, result.Mesh.VertexCount(), test.ShouldEqual, 0)
	test.That(t, len(result.CleanedImages), test.ShouldEqual, 0)
}

func TestRunSkipsBadInputs(t *testing.T) {
	lidarDir := t.TempDir()
	imageDir := t.TempDir()
	writeCloudFixture(t, lidarDir, "good.pcd", 90)
	test.That(t, os.WriteFile(filepath.Join(lidarDir, "bad.pcd"), []byte("junk"), 0o600), test.ShouldBeNil)
	writeImageFixture(t, imageDir, "good.png")
	test.That(t, os.WriteFile(filepath.Join(imageDir, "bad.png"), []byte("junk"), 0o600), test.ShouldBeNil)

	p := newTestPipeline(t, Config{
		LiDARDir: lidarDir,
		ImageDir: imageDir,
	})

	result, err := p.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Cloud.Size(), test.ShouldBeGreaterThan, 0)
	test.That(t, len(result.CleanedImages), test.ShouldEqual, 1)
}

func TestRunHonorsCancellation(t *testing.T) {
	p := newTestPipeline(t, Config{LiDARDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunDownsamples(t *testing.T) {
	lidarDir := t.TempDir()
	writeCloudFixture(t, lidarDir, "dense.pcd", 200)

	p := newTestPipeline(t, Config{
		LiDARDir:  lidarDir,
		VoxelSize: 5,
	})

	result, err := p.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Cloud.Size(), test.ShouldBeLessThan, 200)
	test.That(t, result.Cloud.Size(), test.ShouldBeGreaterThan, 0)
}

func TestConfigDefaults(t *testing.T) {
	conf := Config{}
	test.That(t, conf.CheckValid(), test.ShouldBeNil)
	test.That(t, conf.OutlierNeighbors, test.ShouldEqual, 20)
	test.That(t, conf.OutlierStdRatio, test.ShouldEqual, 2.0)
	test.That(t, conf.LiDARFormats, test.ShouldResemble, []string{"las", "laz", "ply", "pcd"})
	test.That(t, conf.Mesh.Method, test.ShouldEqual, mesh.MethodPoisson)
}
