package meshlet

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// LocalTriangle is a triangle expressed in meshlet-local vertex indices.
type LocalTriangle struct {
	Indices [3]uint8 // indices into Meshlet.Vertices
	Source  uint32   // GraphTriangle id
}

// Meshlet is a bounded cluster of triangles. Vertices holds the GraphVertex
// ids in first-use order; a LocalTriangle index i refers to Vertices[i].
type Meshlet struct {
	Vertices     []uint32
	Triangles    []LocalTriangle
	Centroid     mgl32.Vec3 // mean of the contained triangle centroids
	Bounds       AABB
	PackedBounds uint64
	DebugColors  bool

	limits      Limits
	centroidSum mgl32.Vec3
}

// NewMeshlet returns an empty meshlet bounded by limits.
func NewMeshlet(limits Limits) *Meshlet {
	return &Meshlet{
		Vertices:     make([]uint32, 0, limits.VertexLimit),
		Triangles:    make([]LocalTriangle, 0, limits.PrimitiveLimit),
		Bounds:       EmptyAABB(),
		PackedBounds: UnsetPackedBounds,
		limits:       limits,
	}
}

// Empty reports whether the meshlet holds no triangles.
func (m *Meshlet) Empty() bool {
	return len(m.Triangles) == 0
}

// Limits returns the capacity the meshlet was created with.
func (m *Meshlet) Limits() Limits {
	return m.limits
}

// localIndex returns the local index of a global vertex id.
func (m *Meshlet) localIndex(id uint32) (int, bool) {
	for i, v := range m.Vertices {
		if v == id {
			return i, true
		}
	}
	return -1, false
}

// HasVertex reports whether global vertex id is part of the meshlet.
func (m *Meshlet) HasVertex(id uint32) bool {
	_, ok := m.localIndex(id)
	return ok
}

// newVertexCount returns how many of t's vertices are not yet in the meshlet.
func (m *Meshlet) newVertexCount(t *GraphTriangle) int {
	n := 0
	for j, idx := range t.Indices {
		if j > 0 && idx == t.Indices[0] || j == 2 && idx == t.Indices[1] {
			continue
		}
		if !m.HasVertex(idx) {
			n++
		}
	}
	return n
}

// CanInsert reports whether t fits without exceeding either limit.
func (m *Meshlet) CanInsert(t *GraphTriangle) bool {
	if uint32(len(m.Triangles))+1 > m.limits.PrimitiveLimit {
		return false
	}
	return uint32(len(m.Vertices)+m.newVertexCount(t)) <= m.limits.VertexLimit
}

// Insert appends t, adding any of its vertices not yet present.
// Callers check CanInsert first; overflowing the limits is an error.
func (m *Meshlet) Insert(t *GraphTriangle) error {
	if t.IsDegenerate() {
		return fmt.Errorf("%w: triangle %d uses vertices %v", ErrDegenerateTriangle, t.ID, t.Indices)
	}
	if !m.CanInsert(t) {
		return fmt.Errorf("%w: triangle %d does not fit (%d vertices, %d triangles)",
			ErrCapacityViolation, t.ID, len(m.Vertices), len(m.Triangles))
	}

	lt := LocalTriangle{Source: t.ID}
	for j, idx := range t.Indices {
		local, ok := m.localIndex(idx)
		if !ok {
			m.Vertices = append(m.Vertices, idx)
			local = len(m.Vertices) - 1
		}
		lt.Indices[j] = uint8(local)
	}
	m.Triangles = append(m.Triangles, lt)

	m.centroidSum = m.centroidSum.Add(t.Centroid)
	m.Centroid = m.centroidSum.Mul(1 / float32(len(m.Triangles)))
	return nil
}

// ComputeBounds sets Bounds to the AABB of the member vertex positions.
func (m *Meshlet) ComputeBounds(positions []mgl32.Vec3) AABB {
	b := EmptyAABB()
	for _, id := range m.Vertices {
		b = b.Extend(positions[id])
	}
	m.Bounds = b
	return b
}
