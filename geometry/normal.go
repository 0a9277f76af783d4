package geometry

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// planeNormal fits a plane to the neighborhood (the point's neighbors by
// index) via the covariance matrix and returns the eigenvector of the
// smallest eigenvalue. The second return is false when the eigensolver does
// not converge or the neighborhood is degenerate.
func planeNormal(pts []r3.Vector, neighborhood []int) (r3.Vector, bool) {
	var centroid r3.Vector
	for _, j := range neighborhood {
		centroid = centroid.Add(pts[j])
	}
	centroid = centroid.Mul(1 / float64(len(neighborhood)))

	var xx, xy, xz, yy, yz, zz float64
	for _, j := range neighborhood {
		d := pts[j].Sub(centroid)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}

	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return r3.Vector{}, false
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// eigenvalues are ascending, so column 0 is the plane normal
	normal := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)}
	if normal.Norm() == 0 {
		return r3.Vector{}, false
	}
	return normal.Normalize(), true
}
