package mesh

import (
	"github.com/golang/geo/r3"
)

// Cleanup removes degenerate triangles, duplicate triangles, duplicate
// vertices, and non-manifold edges, in that order. The order matters:
// simplification upstream can introduce degeneracies that must go first, and
// merging duplicate vertices can itself collapse triangles, so the triangle
// passes run again after the merge. Cleanup is idempotent.
func Cleanup(m *Mesh) *Mesh {
	out := removeDegenerateTriangles(m)
	out = removeDuplicateTriangles(out)
	out = mergeDuplicateVertices(out)
	out = removeDegenerateTriangles(out)
	out = removeDuplicateTriangles(out)
	out = removeNonManifoldEdges(out)
	return out
}

// removeDegenerateTriangles drops triangles with repeated or out-of-range
// indices.
func removeDegenerateTriangles(m *Mesh) *Mesh {
	out := &Mesh{Vertices: m.Vertices, Colors: m.Colors}
	n := len(m.Vertices)
	for _, tri := range m.Triangles {
		a, b, c := tri[0], tri[1], tri[2]
		if a == b || b == c || a == c {
			continue
		}
		if a < 0 || b < 0 || c < 0 || a >= n || b >= n || c >= n {
			continue
		}
		out.Triangles = append(out.Triangles, tri)
	}
	return out
}

func sortedTriangleKey(tri [3]int) [3]int {
	a, b, c := tri[0], tri[1], tri[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// removeDuplicateTriangles keeps the first of any triangles sharing a
// vertex-index set, regardless of winding.
func removeDuplicateTriangles(m *Mesh) *Mesh {
	out := &Mesh{Vertices: m.Vertices, Colors: m.Colors}
	seen := make(map[[3]int]bool, len(m.Triangles))
	for _, tri := range m.Triangles {
		key := sortedTriangleKey(tri)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Triangles = append(out.Triangles, tri)
	}
	return out
}

// mergeDuplicateVertices collapses vertices at identical positions onto the
// first occurrence and remaps triangle indices.
func mergeDuplicateVertices(m *Mesh) *Mesh {
	out := &Mesh{}
	first := make(map[r3.Vector]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	for i, v := range m.Vertices {
		if j, ok := first[v]; ok {
			remap[i] = j
			continue
		}
		idx := len(out.Vertices)
		first[v] = idx
		remap[i] = idx
		out.Vertices = append(out.Vertices, v)
		if m.Colors != nil {
			out.Colors = append(out.Colors, m.Colors[i])
		}
	}
	for _, tri := range m.Triangles {
		out.Triangles = append(out.Triangles, [3]int{remap[tri[0]], remap[tri[1]], remap[tri[2]]})
	}
	return out
}

type edge struct {
	a, b int
}

func newEdge(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// removeNonManifoldEdges drops triangles incident to any edge shared by more
// than two triangles, repeating until no such edge remains.
func removeNonManifoldEdges(m *Mesh) *Mesh {
	tris := m.Triangles
	for {
		counts := make(map[edge]int, len(tris)*3)
		for _, tri := range tris {
			counts[newEdge(tri[0], tri[1])]++
			counts[newEdge(tri[1], tri[2])]++
			counts[newEdge(tri[0], tri[2])]++
		}
		var kept [][3]int
		for _, tri := range tris {
			if counts[newEdge(tri[0], tri[1])] > 2 ||
				counts[newEdge(tri[1], tri[2])] > 2 ||
				counts[newEdge(tri[0], tri[2])] > 2 {
				continue
			}
			kept = append(kept, tri)
		}
		if len(kept) == len(tris) {
			break
		}
		tris = kept
	}
	return &Mesh{Vertices: m.Vertices, Triangles: tris, Colors: m.Colors}
}
