package meshlet

import "fmt"

// Buffers are the three GPU-facing arrays produced for one mesh.
//
// For descriptor d, global vertex ids live at
// Global[d.IndexBufferOffset() : +d.NumVertices()] and the local triangle
// triples at Local[3*d.IndexBufferOffset() : +3*d.NumPrimitives()].
type Buffers struct {
	Descriptors []PackedMeshletDescriptor
	Global      []uint32 // meshlet-local vertex slot -> GraphVertex id
	Local       []uint8  // three local vertex indices per triangle
}

// Triangle resolves triangle j of meshlet i back to global vertex ids.
func (b *Buffers) Triangle(i, j int) [3]uint32 {
	d := b.Descriptors[i]
	off := int(d.IndexBufferOffset())
	var out [3]uint32
	for k := 0; k < 3; k++ {
		out[k] = b.Global[off+int(b.Local[(off+j)*3+k])]
	}
	return out
}

// DebugVertexColors paints vertices with the palette color of the meshlet
// that references them, matching MeshletsForMesh.DebugVertexColors for the
// meshlets the buffers were encoded from. Ids outside vertices are skipped.
func (b *Buffers) DebugVertexColors(vertices []Vertex) {
	for i, d := range b.Descriptors {
		c := DebugColor(i)
		off := d.IndexBufferOffset()
		for _, id := range b.Global[off : off+uint32(d.NumVertices())] {
			if int(id) < len(vertices) {
				vertices[id].Color = c
			}
		}
	}
}

// Encode flattens meshlets into output buffers. Each meshlet reserves
// max(vertices, triangles) slots so global and local regions share one offset.
func Encode(meshlets []Meshlet, vertexLimit uint32) (*Buffers, error) {
	total := 0
	for i := range meshlets {
		total += slotCount(&meshlets[i])
	}

	out := &Buffers{
		Descriptors: make([]PackedMeshletDescriptor, len(meshlets)),
		Global:      make([]uint32, total),
		Local:       make([]uint8, total*3),
	}

	var offset uint32
	for i := range meshlets {
		m := &meshlets[i]
		if m.Empty() || len(m.Vertices) == 0 {
			return nil, fmt.Errorf("%w: meshlet %d is empty", ErrCapacityViolation, i)
		}
		if len(m.Vertices) > MaxVertexLimit || uint32(len(m.Vertices)) > vertexLimit || len(m.Triangles) > MaxVertexLimit {
			return nil, fmt.Errorf("%w: meshlet %d has %d vertices and %d triangles (vertex limit %d)",
				ErrCapacityViolation, i, len(m.Vertices), len(m.Triangles), vertexLimit)
		}

		mode := RenderDefault
		if m.DebugColors {
			mode = RenderDebugColors
		}
		bounds := m.PackedBounds
		if bounds == UnsetPackedBounds {
			bounds = 0
		}
		out.Descriptors[i] = PackDescriptor(bounds, len(m.Vertices), len(m.Triangles), mode, offset)

		copy(out.Global[offset:], m.Vertices)
		for j, t := range m.Triangles {
			for k, local := range t.Indices {
				if uint32(local) >= vertexLimit || int(local) >= len(m.Vertices) {
					return nil, fmt.Errorf("%w: meshlet %d triangle %d local index %d (vertex limit %d)",
						ErrCapacityViolation, i, j, local, vertexLimit)
				}
				out.Local[(int(offset)+j)*3+k] = local
			}
		}
		offset += uint32(slotCount(m))
	}
	return out, nil
}

func slotCount(m *Meshlet) int {
	return max(len(m.Vertices), len(m.Triangles))
}
