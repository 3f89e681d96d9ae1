package meshlet

import (
	"errors"
	"testing"
)

func TestVerifyCoverage_MissingTriangle(t *testing.T) {
	s := generate(t, createQuad(DefaultLimits()), Simple{})
	m := &s.Meshlets[0]
	m.Triangles = m.Triangles[:1]

	err := VerifyCoverage(s.Graph, s.Meshlets)
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}

	var cv *CoverageViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected a CoverageViolation, got %T", err)
	}
	if cv.Triangle != 1 {
		t.Errorf("expected triangle 1 to be reported, got %d", cv.Triangle)
	}
	// Vertex 3 is only referenced by the dropped triangle.
	if n := len(Violations(err)); n != 2 {
		t.Errorf("expected 2 violations, got %d: %v", n, err)
	}
}

func TestVerifyCoverage_DuplicateTriangle(t *testing.T) {
	s := generate(t, createQuad(DefaultLimits()), Simple{})
	s.Meshlets = append(s.Meshlets, s.Meshlets[0])

	err := VerifyCoverage(s.Graph, s.Meshlets)
	if err == nil {
		t.Fatal("expected duplicate triangles to be reported")
	}
	var reported int
	for _, v := range Violations(err) {
		var cv *CoverageViolation
		if errors.As(v, &cv) && cv.Triangle >= 0 {
			reported++
		}
	}
	if reported != 2 {
		t.Errorf("expected both triangles reported, got %d: %v", reported, err)
	}
}

func TestVerifyCoverage_WrongVertices(t *testing.T) {
	s := generate(t, createQuad(DefaultLimits()), Simple{})
	m := &s.Meshlets[0]
	m.Vertices[2], m.Vertices[3] = m.Vertices[3], m.Vertices[2]

	if err := VerifyCoverage(s.Graph, s.Meshlets); !errors.Is(err, ErrVerification) {
		t.Errorf("expected ErrVerification, got %v", err)
	}
}

func TestVerifyCoverage_IgnoresUnreferencedVertices(t *testing.T) {
	vertices := makeVertices([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{5, 5, 5})
	mesh := &Mesh{Vertices: vertices, Indices: []uint32{0, 1, 2}, Limits: DefaultLimits()}

	for _, strategy := range allStrategies() {
		t.Run(strategyLabel(strategy), func(t *testing.T) {
			s := generate(t, mesh, strategy)
			if err := s.Verify(); err != nil {
				t.Errorf("Verify: %v", err)
			}
		})
	}
}

func TestVerifyConnectivity_SimpleIslands(t *testing.T) {
	s := generate(t, createIslands(3, DefaultLimits()), Simple{})

	if err := VerifyCoverage(s.Graph, s.Meshlets); err != nil {
		t.Errorf("VerifyCoverage: %v", err)
	}

	err := VerifyConnectivity(s.Meshlets)
	var cv *ConnectivityViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected a ConnectivityViolation, got %v", err)
	}
	if cv.Meshlet != 0 || cv.Graph != "triangles" || cv.Reached != 1 || cv.Total != 3 {
		t.Errorf("unexpected violation %+v", cv)
	}
	if !errors.Is(s.Verify(), ErrVerification) {
		t.Error("expected Verify to fail")
	}
}

func TestVerifyConnectivity_EmptyMeshlet(t *testing.T) {
	err := VerifyConnectivity([]Meshlet{*NewMeshlet(DefaultLimits())})
	if !errors.Is(err, ErrVerification) {
		t.Errorf("expected ErrVerification for an empty meshlet, got %v", err)
	}
}

func TestStats(t *testing.T) {
	s := generate(t, createStrip(10, DefaultLimits()), Simple{TrianglesPerMeshlet: 3})
	st := s.Stats()

	if st.Meshlets != 4 || st.Triangles != 10 {
		t.Errorf("expected 4 meshlets and 10 triangles, got %d and %d", st.Meshlets, st.Triangles)
	}
	if st.SmallestMeshlet != 1 {
		t.Errorf("expected smallest meshlet of 1 triangle, got %d", st.SmallestMeshlet)
	}
	if st.AvgTriangles != 2.5 {
		t.Errorf("expected 2.5 triangles per meshlet, got %v", st.AvgTriangles)
	}
	if st.MaxSpread <= 0 {
		t.Errorf("expected positive spread, got %v", st.MaxSpread)
	}
}

func TestDebugVertexColors(t *testing.T) {
	mesh := createIslands(4, DefaultLimits())
	s := generate(t, mesh, GreedyDistance{})
	s.DebugVertexColors(mesh.Vertices)

	seen := make(map[[4]float32]bool)
	for i := range s.Meshlets {
		c := mesh.Vertices[s.Meshlets[i].Vertices[0]].Color
		if c[3] != 1 {
			t.Errorf("meshlet %d: expected opaque color, got %v", i, c)
		}
		seen[[4]float32(c)] = true
	}
	if len(seen) != len(s.Meshlets) {
		t.Errorf("expected %d distinct colors, got %d", len(s.Meshlets), len(seen))
	}
}

func TestBuffers_DebugVertexColors(t *testing.T) {
	mesh := createGrid(6, 6, Limits{VertexLimit: 10, PrimitiveLimit: 8})
	s := generate(t, mesh, GreedyDistance{})
	b, err := s.Encode(mesh.Bounds())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	fromMeshlets := append([]Vertex(nil), mesh.Vertices...)
	fromBuffers := append([]Vertex(nil), mesh.Vertices...)
	s.DebugVertexColors(fromMeshlets)
	b.DebugVertexColors(fromBuffers)

	for i := range fromMeshlets {
		if fromMeshlets[i].Color != fromBuffers[i].Color {
			t.Errorf("vertex %d: expected %v, got %v", i, fromMeshlets[i].Color, fromBuffers[i].Color)
		}
	}
}

func TestVerifyBuffers(t *testing.T) {
	mesh := createGrid(5, 4, Limits{VertexLimit: 10, PrimitiveLimit: 8})
	s := generate(t, mesh, GreedyDistance{})
	b, err := s.Encode(mesh.Bounds())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if err := VerifyBuffers(b, mesh.Indices); err != nil {
		t.Fatalf("VerifyBuffers: %v", err)
	}

	// One triangle fewer in the input: the encoded copy becomes an extra.
	if err := VerifyBuffers(b, mesh.Indices[3:]); !errors.Is(err, ErrVerification) {
		t.Errorf("expected ErrVerification for an extra triangle, got %v", err)
	}

	// Drop the last meshlet: its triangles go missing.
	short := &Buffers{Descriptors: b.Descriptors[:len(b.Descriptors)-1], Global: b.Global, Local: b.Local}
	if err := VerifyBuffers(short, mesh.Indices); !errors.Is(err, ErrVerification) {
		t.Errorf("expected ErrVerification for missing triangles, got %v", err)
	}

	// A descriptor pointing past the buffers is reported, not dereferenced.
	broken := &Buffers{
		Descriptors: []PackedMeshletDescriptor{PackDescriptor(0, 3, 1, RenderDefault, 1000)},
		Global:      b.Global,
		Local:       b.Local,
	}
	if err := VerifyBuffers(broken, mesh.Indices[:3]); !errors.Is(err, ErrVerification) {
		t.Errorf("expected ErrVerification for a bad descriptor, got %v", err)
	}
}
