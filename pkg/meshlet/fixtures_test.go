package meshlet

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// makeVertices creates vertices at the given positions.
func makeVertices(pos ...[3]float32) []Vertex {
	out := make([]Vertex, len(pos))
	for i, p := range pos {
		out[i] = Vertex{Pos: mgl32.Vec3{p[0], p[1], p[2]}, Color: mgl32.Vec4{1, 1, 1, 1}}
	}
	return out
}

// createQuad creates two triangles sharing an edge.
func createQuad(limits Limits) *Mesh {
	return &Mesh{
		ID:       "quad",
		Vertices: makeVertices([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{1, 1, 0}, [3]float32{0, 1, 0}),
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		Limits:   limits,
	}
}

// createStrip creates a zigzag strip of n triangles over n+2 vertices.
// Triangle k uses vertices k, k+1, k+2.
func createStrip(n int, limits Limits) *Mesh {
	mesh := &Mesh{ID: "strip", Limits: limits}
	for i := 0; i < n+2; i++ {
		mesh.Vertices = append(mesh.Vertices, makeVertices([3]float32{float32(i / 2), float32(i % 2), 0})...)
	}
	for k := 0; k < n; k++ {
		mesh.Indices = append(mesh.Indices, uint32(k), uint32(k+1), uint32(k+2))
	}
	return mesh
}

// createGrid creates a w x h grid of quads, two triangles each.
func createGrid(w, h int, limits Limits) *Mesh {
	mesh := &Mesh{ID: "grid", Limits: limits}
	for y := 0; y <= h; y++ {
		for x := 0; x <= w; x++ {
			mesh.Vertices = append(mesh.Vertices, makeVertices([3]float32{float32(x), float32(y), float32((x * y) % 3)})...)
		}
	}
	idx := func(x, y int) uint32 { return uint32(y*(w+1) + x) }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mesh.Indices = append(mesh.Indices,
				idx(x, y), idx(x+1, y), idx(x+1, y+1),
				idx(x, y), idx(x+1, y+1), idx(x, y+1),
			)
		}
	}
	return mesh
}

// createIslands creates n separate triangles that share no vertex.
func createIslands(n int, limits Limits) *Mesh {
	mesh := &Mesh{ID: "islands", Limits: limits}
	for i := 0; i < n; i++ {
		x := float32(i * 10)
		mesh.Vertices = append(mesh.Vertices, makeVertices([3]float32{x, 0, 0}, [3]float32{x + 1, 0, 0}, [3]float32{x, 1, 0})...)
		base := uint32(i * 3)
		mesh.Indices = append(mesh.Indices, base, base+1, base+2)
	}
	return mesh
}

// generate builds the graph for mesh and clusters it with strategy.
func generate(t *testing.T, mesh *Mesh, strategy Strategy) *MeshletsForMesh {
	t.Helper()
	s, err := NewMeshletsForMesh(mesh)
	if err != nil {
		t.Fatalf("NewMeshletsForMesh failed: %v", err)
	}
	if err := s.Generate(strategy); err != nil {
		t.Fatalf("Generate(%s) failed: %v", strategy.Name(), err)
	}
	return s
}

// allStrategies lists every strategy with its interesting option sets.
func allStrategies() []Strategy {
	return []Strategy{
		Simple{},
		Simple{TrianglesPerMeshlet: 3},
		GreedyVertex{},
		GreedyVertex{Squeeze: true},
		GreedyVertex{Squeeze: true, NearestNeighbourOrdering: true},
		GreedyDistance{},
	}
}

// connectedStrategies lists the strategies that guarantee connected meshlets.
func connectedStrategies() []Strategy {
	return []Strategy{
		GreedyVertex{},
		GreedyVertex{Squeeze: true},
		GreedyVertex{NearestNeighbourOrdering: true},
		GreedyDistance{},
	}
}

func strategyLabel(s Strategy) string {
	switch st := s.(type) {
	case Simple:
		if st.TrianglesPerMeshlet > 0 {
			return "simple_n"
		}
		return "simple"
	case GreedyVertex:
		name := "greedy_vertex"
		if st.Squeeze {
			name += "_squeeze"
		}
		if st.NearestNeighbourOrdering {
			name += "_nearest"
		}
		return name
	default:
		return s.Name()
	}
}
