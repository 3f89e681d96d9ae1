package meshlet

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
)

// GraphVertex is a mesh vertex in the adjacency graph. ID equals its index
// in the input vertex array.
type GraphVertex struct {
	ID                 uint32
	NeighbourTriangles []uint32 // triangles using this vertex, ascending
	UsedInTriangle     bool
	UsedInMeshlet      bool
}

// GraphTriangle is a mesh triangle in the adjacency graph. ID equals its
// position in the input index array divided by 3.
type GraphTriangle struct {
	ID            uint32
	Indices       [3]uint32
	Neighbours    []uint32 // triangles sharing at least one vertex, ascending
	Centroid      mgl32.Vec3
	UsedInMeshlet bool
}

// HasVertex reports whether the triangle references vertex id.
func (t *GraphTriangle) HasVertex(id uint32) bool {
	return t.Indices[0] == id || t.Indices[1] == id || t.Indices[2] == id
}

// IsDegenerate reports whether two corners reference the same vertex.
func (t *GraphTriangle) IsDegenerate() bool {
	return t.Indices[0] == t.Indices[1] || t.Indices[0] == t.Indices[2] || t.Indices[1] == t.Indices[2]
}

// Graph holds the vertex and triangle arenas of one mesh. Relations are
// expressed as ids into the arenas.
type Graph struct {
	Vertices  []GraphVertex
	Triangles []GraphTriangle
	Positions []mgl32.Vec3
}

// BuildGraph builds the vertex/triangle adjacency for a mesh.
// Neighbour symmetry is verified before returning.
func BuildGraph(vertices []Vertex, indices []uint32) (*Graph, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a multiple of 3", ErrMalformedMesh, len(indices))
	}

	g := &Graph{
		Vertices:  make([]GraphVertex, len(vertices)),
		Triangles: make([]GraphTriangle, len(indices)/3),
		Positions: positions(vertices),
	}
	for i := range g.Vertices {
		g.Vertices[i].ID = uint32(i)
	}

	// Register every triangle with its vertices
	for i := range g.Triangles {
		t := &g.Triangles[i]
		t.ID = uint32(i)
		for j := 0; j < 3; j++ {
			idx := indices[i*3+j]
			if int(idx) >= len(vertices) {
				return nil, fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrMalformedMesh, i, idx, len(vertices))
			}
			t.Indices[j] = idx
		}

		var sum mgl32.Vec3
		for j, idx := range t.Indices {
			sum = sum.Add(g.Positions[idx])

			// A degenerate triangle must not be listed twice on one vertex.
			if j > 0 && (idx == t.Indices[0] || (j == 2 && idx == t.Indices[1])) {
				continue
			}
			v := &g.Vertices[idx]
			v.UsedInTriangle = true
			v.NeighbourTriangles = append(v.NeighbourTriangles, t.ID)
		}
		t.Centroid = sum.Mul(1.0 / 3.0)
	}

	// Triangle neighbours: union of the neighbour triangles of its vertices
	seen := make(map[uint32]struct{})
	for i := range g.Triangles {
		t := &g.Triangles[i]
		clear(seen)
		for _, idx := range t.Indices {
			for _, n := range g.Vertices[idx].NeighbourTriangles {
				if n == t.ID {
					continue
				}
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				t.Neighbours = append(t.Neighbours, n)
			}
		}
		sort.Slice(t.Neighbours, func(a, b int) bool { return t.Neighbours[a] < t.Neighbours[b] })
	}

	if err := g.VerifyAdjacency(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMesh, err)
	}
	return g, nil
}

// VerifyAdjacency checks that vertex/triangle and triangle/triangle relations
// are reciprocal. All violations are returned combined.
func (g *Graph) VerifyAdjacency() error {
	var errs error
	for i := range g.Vertices {
		v := &g.Vertices[i]
		for _, ti := range v.NeighbourTriangles {
			if int(ti) >= len(g.Triangles) || !g.Triangles[ti].HasVertex(v.ID) {
				errs = multierr.Append(errs, fmt.Errorf("vertex %d lists triangle %d which does not use it", v.ID, ti))
			}
		}
	}
	for i := range g.Triangles {
		t := &g.Triangles[i]
		for _, idx := range t.Indices {
			if !containsSorted(g.Vertices[idx].NeighbourTriangles, t.ID) {
				errs = multierr.Append(errs, fmt.Errorf("triangle %d missing from neighbours of vertex %d", t.ID, idx))
			}
		}
		for _, n := range t.Neighbours {
			if int(n) >= len(g.Triangles) {
				errs = multierr.Append(errs, fmt.Errorf("triangle %d lists unknown neighbour %d", t.ID, n))
				continue
			}
			if !containsSorted(g.Triangles[n].Neighbours, t.ID) {
				errs = multierr.Append(errs, fmt.Errorf("triangle %d is not reciprocated by neighbour %d", t.ID, n))
			}
		}
	}
	return errs
}

// ResetUsage clears every UsedInMeshlet flag so the graph can be clustered again.
func (g *Graph) ResetUsage() {
	for i := range g.Vertices {
		g.Vertices[i].UsedInMeshlet = false
	}
	for i := range g.Triangles {
		g.Triangles[i].UsedInMeshlet = false
	}
}

// containsSorted reports whether id is in the ascending slice s.
func containsSorted(s []uint32, id uint32) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}
