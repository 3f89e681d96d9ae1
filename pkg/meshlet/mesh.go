// Package meshlet partitions indexed triangle meshes into bounded clusters
// (meshlets) for mesh-shading pipelines and encodes them into GPU buffers.
package meshlet

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Hardware bounds for meshlet limits. Local indices are stored in one byte.
const (
	MaxVertexLimit    = 256
	MaxPrimitiveLimit = 255
)

// Default limits, matching common mesh shader configurations.
const (
	DefaultVertexLimit    = 64
	DefaultPrimitiveLimit = 126
)

// Vertex is a single input vertex. Only Pos is used for clustering.
type Vertex struct {
	Pos    mgl32.Vec3
	Normal mgl32.Vec3
	UV0    mgl32.Vec2
	UV1    mgl32.Vec2
	Color  mgl32.Vec4
}

// Limits bounds the size of every generated meshlet.
type Limits struct {
	VertexLimit    uint32 // max distinct vertices per meshlet
	PrimitiveLimit uint32 // max triangles per meshlet
}

// DefaultLimits returns the default meshlet limits.
func DefaultLimits() Limits {
	return Limits{
		VertexLimit:    DefaultVertexLimit,
		PrimitiveLimit: DefaultPrimitiveLimit,
	}
}

// Validate checks the limits against the hardware bounds.
// A meshlet must hold at least one triangle.
func (l Limits) Validate() error {
	if l.VertexLimit < 3 || l.VertexLimit > MaxVertexLimit {
		return fmt.Errorf("%w: vertex limit %d not in [3, %d]", ErrInvalidLimits, l.VertexLimit, MaxVertexLimit)
	}
	if l.PrimitiveLimit < 1 || l.PrimitiveLimit > MaxPrimitiveLimit {
		return fmt.Errorf("%w: primitive limit %d not in [1, %d]", ErrInvalidLimits, l.PrimitiveLimit, MaxPrimitiveLimit)
	}
	return nil
}

// Mesh is the input to meshlet generation: a vertex array and a triangle
// list indexing into it.
type Mesh struct {
	ID       string
	Vertices []Vertex
	Indices  []uint32
	Limits   Limits
}

// TriangleCount returns the number of triangles described by Indices.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Positions returns the vertex positions in vertex order.
func (m *Mesh) Positions() []mgl32.Vec3 {
	return positions(m.Vertices)
}

// Bounds returns the AABB of all vertex positions.
func (m *Mesh) Bounds() AABB {
	b := EmptyAABB()
	for i := range m.Vertices {
		b = b.Extend(m.Vertices[i].Pos)
	}
	return b
}

func positions(vertices []Vertex) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(vertices))
	for i := range vertices {
		out[i] = vertices[i].Pos
	}
	return out
}
