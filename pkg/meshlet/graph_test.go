package meshlet

import (
	"errors"
	"testing"
)

func TestBuildGraph_Quad(t *testing.T) {
	mesh := createQuad(DefaultLimits())
	g, err := BuildGraph(mesh.Vertices, mesh.Indices)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	if len(g.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(g.Vertices))
	}
	if len(g.Triangles) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(g.Triangles))
	}

	// Vertex 0 and 2 are shared by both triangles
	for _, id := range []int{0, 2} {
		if n := len(g.Vertices[id].NeighbourTriangles); n != 2 {
			t.Errorf("vertex %d: expected 2 neighbour triangles, got %d", id, n)
		}
	}
	for _, id := range []int{1, 3} {
		if n := len(g.Vertices[id].NeighbourTriangles); n != 1 {
			t.Errorf("vertex %d: expected 1 neighbour triangle, got %d", id, n)
		}
	}

	if len(g.Triangles[0].Neighbours) != 1 || g.Triangles[0].Neighbours[0] != 1 {
		t.Errorf("triangle 0: expected neighbours [1], got %v", g.Triangles[0].Neighbours)
	}
	if len(g.Triangles[1].Neighbours) != 1 || g.Triangles[1].Neighbours[0] != 0 {
		t.Errorf("triangle 1: expected neighbours [0], got %v", g.Triangles[1].Neighbours)
	}

	c := g.Triangles[0].Centroid
	if c[0] < 0.66 || c[0] > 0.67 || c[1] < 0.33 || c[1] > 0.34 {
		t.Errorf("triangle 0: unexpected centroid %v", c)
	}
}

func TestBuildGraph_Symmetry(t *testing.T) {
	mesh := createGrid(6, 5, DefaultLimits())
	g, err := BuildGraph(mesh.Vertices, mesh.Indices)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	for i := range g.Triangles {
		for _, n := range g.Triangles[i].Neighbours {
			if !containsSorted(g.Triangles[n].Neighbours, uint32(i)) {
				t.Errorf("triangle %d lists %d but not vice versa", i, n)
			}
		}
	}
	if err := g.VerifyAdjacency(); err != nil {
		t.Errorf("VerifyAdjacency: %v", err)
	}
}

func TestBuildGraph_SharedVertexNeighbours(t *testing.T) {
	// Fan of three triangles around vertex 0: every pair shares vertex 0.
	vertices := makeVertices(
		[3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0},
		[3]float32{-1, 0, 0}, [3]float32{0, -1, 0},
	)
	indices := []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}

	g, err := BuildGraph(vertices, indices)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	for i := range g.Triangles {
		if len(g.Triangles[i].Neighbours) != 2 {
			t.Errorf("triangle %d: expected 2 neighbours, got %v", i, g.Triangles[i].Neighbours)
		}
	}
}

func TestBuildGraph_Malformed(t *testing.T) {
	vertices := makeVertices([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})

	tests := []struct {
		name    string
		indices []uint32
	}{
		{"index count not multiple of 3", []uint32{0, 1, 2, 0}},
		{"index out of range", []uint32{0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGraph(vertices, tt.indices)
			if !errors.Is(err, ErrMalformedMesh) {
				t.Errorf("expected ErrMalformedMesh, got %v", err)
			}
		})
	}
}

func TestBuildGraph_UnusedVertex(t *testing.T) {
	vertices := makeVertices([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{5, 5, 5})
	g, err := BuildGraph(vertices, []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	if g.Vertices[3].UsedInTriangle {
		t.Error("expected vertex 3 to be unused by triangles")
	}
	if !g.Vertices[0].UsedInTriangle {
		t.Error("expected vertex 0 to be used by a triangle")
	}
}

func TestGraph_VerifyAdjacencyDetectsAsymmetry(t *testing.T) {
	mesh := createQuad(DefaultLimits())
	g, err := BuildGraph(mesh.Vertices, mesh.Indices)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}

	g.Triangles[1].Neighbours = nil
	err = g.VerifyAdjacency()
	if err == nil {
		t.Fatal("expected asymmetry to be reported")
	}
	if len(Violations(err)) != 1 {
		t.Errorf("expected 1 violation, got %d: %v", len(Violations(err)), err)
	}
}

func TestGraph_ResetUsage(t *testing.T) {
	mesh := createQuad(DefaultLimits())
	g, err := BuildGraph(mesh.Vertices, mesh.Indices)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	g.Vertices[0].UsedInMeshlet = true
	g.Triangles[1].UsedInMeshlet = true

	g.ResetUsage()

	if g.Vertices[0].UsedInMeshlet || g.Triangles[1].UsedInMeshlet {
		t.Error("expected usage flags to be cleared")
	}
	if !g.Vertices[0].UsedInTriangle {
		t.Error("ResetUsage must keep UsedInTriangle")
	}
}
