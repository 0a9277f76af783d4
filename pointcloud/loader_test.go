package pointcloud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func writePCDFixture(t *testing.T, dir, name string, points []r3.Vector) string {
	t.Helper()
	pc := New()
	for _, p := range points {
		pc.Add(p)
	}
	fn := filepath.Join(dir, name)
	//nolint:gosec
	f, err := os.Create(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ToPCD(pc, f, PCDAscii), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
	return fn
}

func TestFindFilesDedup(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()
	writePCDFixture(t, dir, "a.pcd", []r3.Vector{{X: 1}})
	writePCDFixture(t, dir, "b.pcd", []r3.Vector{{X: 2}})

	files, err := FindFiles(dir, []string{"pcd", ".pcd"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(files), test.ShouldEqual, 2)
}

func TestLoadDirectoryMergesAll(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()
	writePCDFixture(t, dir, "a.pcd", []r3.Vector{{X: 1}, {X: 2}})
	writePCDFixture(t, dir, "b.pcd", []r3.Vector{{X: 3}})

	cloud, err := LoadDirectory(dir, []string{"pcd"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 3)
}

func TestLoadDirectorySkipsCorrupt(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()
	writePCDFixture(t, dir, "good.pcd", []r3.Vector{{X: 1}})
	err := os.WriteFile(filepath.Join(dir, "bad.pcd"), []byte("not a pcd file\n"), 0o600)
	test.That(t, err, test.ShouldBeNil)
	shortSize := "VERSION .7\n" +
		"FIELDS x y z\n" +
		"SIZE 2 2 2\n" +
		"TYPE F F F\n" +
		"COUNT 1 1 1\n" +
		"WIDTH 1\n" +
		"HEIGHT 1\n" +
		"VIEWPOINT 0 0 0 1 0 0 0\n" +
		"POINTS 1\n" +
		"DATA binary\n" +
		"\x00\x00\x00\x00\x00\x00"
	err = os.WriteFile(filepath.Join(dir, "short.pcd"), []byte(shortSize), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cloud, err := LoadDirectory(dir, []string{"pcd"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 1)
}

func TestLoadDirectoryEmpty(t *testing.T) {
	logger := golog.NewTestLogger(t)

	cloud, err := LoadDirectory(t.TempDir(), []string{"pcd", "las"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
}

func TestLoadDirectoryNothingParses(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "bad.ply"), []byte("garbage\n"), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cloud, err := LoadDirectory(dir, []string{"ply"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
}
