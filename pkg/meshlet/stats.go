package meshlet

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Stats summarizes a meshlet partition.
type Stats struct {
	Meshlets        int
	Triangles       int
	Vertices        int     // sum of per-meshlet vertex counts (shared vertices counted per meshlet)
	AvgTriangles    float32 // triangles per meshlet
	AvgVertices     float32 // vertices per meshlet
	PrimitiveFill   float32 // AvgTriangles / PrimitiveLimit
	VertexFill      float32 // AvgVertices / VertexLimit
	MaxSpread       float32 // largest triangle-centroid distance from its meshlet centroid
	SmallestMeshlet int     // fewest triangles in one meshlet
}

// Stats computes partition statistics for the current meshlets.
func (s *MeshletsForMesh) Stats() Stats {
	st := Stats{Meshlets: len(s.Meshlets)}
	if st.Meshlets == 0 {
		return st
	}
	st.SmallestMeshlet = math.MaxInt
	for i := range s.Meshlets {
		m := &s.Meshlets[i]
		st.Triangles += len(m.Triangles)
		st.Vertices += len(m.Vertices)
		st.SmallestMeshlet = min(st.SmallestMeshlet, len(m.Triangles))
		for _, lt := range m.Triangles {
			d := s.Graph.Triangles[lt.Source].Centroid.Sub(m.Centroid).Len()
			st.MaxSpread = max(st.MaxSpread, d)
		}
	}
	st.AvgTriangles = float32(st.Triangles) / float32(st.Meshlets)
	st.AvgVertices = float32(st.Vertices) / float32(st.Meshlets)
	if s.Limits.PrimitiveLimit > 0 {
		st.PrimitiveFill = st.AvgTriangles / float32(s.Limits.PrimitiveLimit)
	}
	if s.Limits.VertexLimit > 0 {
		st.VertexFill = st.AvgVertices / float32(s.Limits.VertexLimit)
	}
	return st
}

// DebugColor returns a distinct opaque color for meshlet i. Hues advance by
// the golden ratio so neighbouring meshlets differ visibly.
func DebugColor(i int) mgl32.Vec4 {
	const goldenRatio = 0.618033988749895
	h := math.Mod(float64(i)*goldenRatio, 1.0) * 6
	sector := int(h)
	f := float32(h - float64(sector))
	const s, v float32 = 0.65, 0.95
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch sector {
	case 0:
		return mgl32.Vec4{v, t, p, 1}
	case 1:
		return mgl32.Vec4{q, v, p, 1}
	case 2:
		return mgl32.Vec4{p, v, t, 1}
	case 3:
		return mgl32.Vec4{p, q, v, 1}
	case 4:
		return mgl32.Vec4{t, p, v, 1}
	default:
		return mgl32.Vec4{v, p, q, 1}
	}
}
