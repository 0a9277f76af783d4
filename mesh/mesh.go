// Package mesh defines a triangle mesh and the surface reconstructor that
// builds one from classified point clouds.
package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/hleong75/Reconstitution/pointcloud"
)

// Mesh is a triangulated surface: vertex positions, triangle index triples
// into the vertex list, and an optional per-vertex color channel. After
// Cleanup every triangle has three distinct in-range indices and no two
// triangles share the same vertex-index set.
type Mesh struct {
	Vertices  []r3.Vector
	Triangles [][3]int
	Colors    []pointcloud.Color
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// HasColors reports whether the mesh carries vertex colors.
func (m *Mesh) HasColors() bool {
	return m.Colors != nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices:  append([]r3.Vector(nil), m.Vertices...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
	if m.Colors != nil {
		out.Colors = append([]pointcloud.Color(nil), m.Colors...)
	}
	return out
}

// ZRange returns the minimum and maximum vertex height. Both are zero for an
// empty mesh.
func (m *Mesh) ZRange() (float64, float64) {
	if len(m.Vertices) == 0 {
		return 0, 0
	}
	minZ, maxZ := m.Vertices[0].Z, m.Vertices[0].Z
	for _, v := range m.Vertices[1:] {
		if v.Z < minZ {
			minZ = v.Z
		}
		if v.Z > maxZ {
			maxZ = v.Z
		}
	}
	return minZ, maxZ
}

// RemoveVerticesByMask drops every vertex whose mask entry is true, remaps
// triangle indices, and discards triangles that referenced a removed vertex.
func RemoveVerticesByMask(m *Mesh, remove []bool) (*Mesh, error) {
	if len(remove) != len(m.Vertices) {
		return nil, errors.Errorf("mask length %d does not match vertex count %d", len(remove), len(m.Vertices))
	}
	remap := make([]int, len(m.Vertices))
	out := &Mesh{}
	for i, v := range m.Vertices {
		if remove[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
		if m.Colors != nil {
			out.Colors = append(out.Colors, m.Colors[i])
		}
	}
	for _, tri := range m.Triangles {
		a, b, c := remap[tri[0]], remap[tri[1]], remap[tri[2]]
		if a < 0 || b < 0 || c < 0 {
			continue
		}
		out.Triangles = append(out.Triangles, [3]int{a, b, c})
	}
	return out, nil
}
