package meshlet

import (
	"fmt"
)

// MeshletsForMesh owns the adjacency graph of one mesh and the meshlets
// generated from it. It carries all state of a clustering pass, so a mesh can
// be clustered repeatedly with different strategies.
type MeshletsForMesh struct {
	Graph    *Graph
	Limits   Limits
	Meshlets []Meshlet
}

// NewMeshletsForMesh validates the mesh limits and builds its adjacency graph.
func NewMeshletsForMesh(mesh *Mesh) (*MeshletsForMesh, error) {
	if err := mesh.Limits.Validate(); err != nil {
		return nil, err
	}
	g, err := BuildGraph(mesh.Vertices, mesh.Indices)
	if err != nil {
		return nil, err
	}
	return &MeshletsForMesh{
		Graph:  g,
		Limits: mesh.Limits,
	}, nil
}

// Generate clusters the whole mesh with strategy, replacing any meshlets
// from a previous pass.
func (s *MeshletsForMesh) Generate(strategy Strategy) error {
	if strategy == nil {
		strategy = GreedyDistance{}
	}
	s.Graph.ResetUsage()
	s.Meshlets = s.Meshlets[:0]
	if err := strategy.cluster(s); err != nil {
		return fmt.Errorf("%s: %w", strategy.Name(), err)
	}
	return nil
}

// Encode packs the bounds of every meshlet relative to meshBounds and
// flattens the result into output buffers.
func (s *MeshletsForMesh) Encode(meshBounds AABB) (*Buffers, error) {
	PackAllBounds(meshBounds, s.Meshlets, s.Graph.Positions)
	return Encode(s.Meshlets, s.Limits.VertexLimit)
}

// Verify runs coverage and connectivity checks over the current meshlets.
func (s *MeshletsForMesh) Verify() error {
	return combineErrors(VerifyCoverage(s.Graph, s.Meshlets), VerifyConnectivity(s.Meshlets))
}

// ApplyDebugColors flags every meshlet for debug-color rendering.
func (s *MeshletsForMesh) ApplyDebugColors() {
	for i := range s.Meshlets {
		s.Meshlets[i].DebugColors = true
	}
}

// DebugVertexColors paints the vertices of each meshlet with one palette color.
// Vertices shared between meshlets keep the color of the last one.
func (s *MeshletsForMesh) DebugVertexColors(vertices []Vertex) {
	for i := range s.Meshlets {
		c := DebugColor(i)
		for _, id := range s.Meshlets[i].Vertices {
			vertices[id].Color = c
		}
	}
}

func (s *MeshletsForMesh) newMeshlet() *Meshlet {
	return NewMeshlet(s.Limits)
}

func (s *MeshletsForMesh) emit(m *Meshlet) {
	s.Meshlets = append(s.Meshlets, *m)
}

// insert adds triangle t to m and marks it used.
func (s *MeshletsForMesh) insert(m *Meshlet, t *GraphTriangle) error {
	if err := m.Insert(t); err != nil {
		return err
	}
	t.UsedInMeshlet = true
	return nil
}

// insertOrClose inserts t into m, first closing m if t does not fit.
// It returns the meshlet that received t.
func (s *MeshletsForMesh) insertOrClose(m *Meshlet, t *GraphTriangle) (*Meshlet, error) {
	if !m.CanInsert(t) {
		if m.Empty() {
			return m, fmt.Errorf("%w: triangle %d does not fit an empty meshlet", ErrCapacityViolation, t.ID)
		}
		s.emit(m)
		m = s.newMeshlet()
	}
	return m, s.insert(m, t)
}
