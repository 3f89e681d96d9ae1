package meshlet

import (
	"fmt"

	"go.uber.org/multierr"
)

// CoverageViolation describes a triangle or vertex that is not covered
// exactly once by the meshlets. Meshlet is -1 when the problem is global.
type CoverageViolation struct {
	Meshlet  int
	Triangle int64 // GraphTriangle id, -1 if not applicable
	Vertex   int64 // GraphVertex id, -1 if not applicable
	Reason   string
}

func (v *CoverageViolation) Error() string {
	msg := "coverage:"
	if v.Meshlet >= 0 {
		msg += fmt.Sprintf(" meshlet %d", v.Meshlet)
	}
	if v.Triangle >= 0 {
		msg += fmt.Sprintf(" triangle %d", v.Triangle)
	}
	if v.Vertex >= 0 {
		msg += fmt.Sprintf(" vertex %d", v.Vertex)
	}
	return msg + ": " + v.Reason
}

// Unwrap lets errors.Is match ErrVerification.
func (v *CoverageViolation) Unwrap() error { return ErrVerification }

// ConnectivityViolation describes a meshlet whose triangle or vertex graph
// is not connected.
type ConnectivityViolation struct {
	Meshlet int
	Graph   string // "triangles" or "vertices"
	Reached int
	Total   int
}

func (v *ConnectivityViolation) Error() string {
	return fmt.Sprintf("connectivity: meshlet %d %s graph reached %d of %d", v.Meshlet, v.Graph, v.Reached, v.Total)
}

// Unwrap lets errors.Is match ErrVerification.
func (v *ConnectivityViolation) Unwrap() error { return ErrVerification }

// VerifyCoverage checks that every graph triangle is in exactly one meshlet,
// that each meshlet triangle resolves to the vertices of its source, and
// that every vertex referenced by an input triangle is referenced by a
// meshlet. It returns nil when all of this holds. The graph is not modified.
func VerifyCoverage(g *Graph, meshlets []Meshlet) error {
	var errs error
	triangleCount := make([]int, len(g.Triangles))
	vertexUsed := make([]bool, len(g.Vertices))
	found := make(map[[3]uint32]int)

	for mi := range meshlets {
		m := &meshlets[mi]
		for _, lt := range m.Triangles {
			if int(lt.Source) >= len(g.Triangles) {
				errs = multierr.Append(errs, &CoverageViolation{
					Meshlet: mi, Triangle: int64(lt.Source), Vertex: -1, Reason: "unknown source triangle",
				})
				continue
			}
			var ids [3]uint32
			valid := true
			for k, local := range lt.Indices {
				if int(local) >= len(m.Vertices) {
					errs = multierr.Append(errs, &CoverageViolation{
						Meshlet: mi, Triangle: int64(lt.Source), Vertex: -1,
						Reason: fmt.Sprintf("local index %d out of %d vertices", local, len(m.Vertices)),
					})
					valid = false
					break
				}
				ids[k] = m.Vertices[local]
			}
			if !valid {
				continue
			}
			triangleCount[lt.Source]++
			key := sortedTriple(ids)
			found[key]++
			if key != sortedTriple(g.Triangles[lt.Source].Indices) {
				errs = multierr.Append(errs, &CoverageViolation{
					Meshlet: mi, Triangle: int64(lt.Source), Vertex: -1,
					Reason: fmt.Sprintf("resolves to vertices %v, source has %v", ids, g.Triangles[lt.Source].Indices),
				})
			}
			for _, id := range ids {
				if int(id) < len(vertexUsed) {
					vertexUsed[id] = true
				}
			}
		}
	}

	for i, n := range triangleCount {
		if n == 1 {
			continue
		}
		reason := "not in any meshlet"
		if n > 1 {
			reason = fmt.Sprintf("in %d meshlets", n)
		}
		errs = multierr.Append(errs, &CoverageViolation{Meshlet: -1, Triangle: int64(i), Vertex: -1, Reason: reason})
	}

	expected := make(map[[3]uint32]int, len(g.Triangles))
	for i := range g.Triangles {
		expected[sortedTriple(g.Triangles[i].Indices)]++
	}
	for key, n := range found {
		if expected[key] < n {
			errs = multierr.Append(errs, &CoverageViolation{
				Meshlet: -1, Triangle: -1, Vertex: -1,
				Reason: fmt.Sprintf("vertex triple %v appears %d times, input has %d", key, n, expected[key]),
			})
		}
	}

	for i := range g.Vertices {
		if g.Vertices[i].UsedInTriangle && !vertexUsed[i] {
			errs = multierr.Append(errs, &CoverageViolation{Meshlet: -1, Triangle: -1, Vertex: int64(i), Reason: "not in any meshlet"})
		}
	}
	return errs
}

// VerifyConnectivity checks that, within every meshlet, the triangles
// (linked by shared vertices) and the vertices (linked by triangle edges)
// each form one connected component.
func VerifyConnectivity(meshlets []Meshlet) error {
	var errs error
	for mi := range meshlets {
		errs = multierr.Append(errs, verifyMeshletConnectivity(mi, &meshlets[mi]))
	}
	return errs
}

func verifyMeshletConnectivity(mi int, m *Meshlet) error {
	if m.Empty() {
		return &ConnectivityViolation{Meshlet: mi, Graph: "triangles"}
	}
	nv := len(m.Vertices)
	trisOfVertex := make([][]int, nv)
	edges := make([][]int, nv)
	for ti, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := int(t.Indices[k]), int(t.Indices[(k+1)%3])
			if a >= nv || b >= nv {
				return &CoverageViolation{
					Meshlet: mi, Triangle: int64(t.Source), Vertex: -1,
					Reason: fmt.Sprintf("local index out of %d vertices", nv),
				}
			}
			trisOfVertex[a] = append(trisOfVertex[a], ti)
			edges[a] = append(edges[a], b)
			edges[b] = append(edges[b], a)
		}
	}

	var errs error

	// Triangles sharing at least one local vertex
	visited := make([]bool, len(m.Triangles))
	queue := []int{0}
	visited[0] = true
	reached := 1
	for len(queue) > 0 {
		ti := queue[0]
		queue = queue[1:]
		for _, local := range m.Triangles[ti].Indices {
			for _, n := range trisOfVertex[local] {
				if !visited[n] {
					visited[n] = true
					reached++
					queue = append(queue, n)
				}
			}
		}
	}
	if reached != len(m.Triangles) {
		errs = multierr.Append(errs, &ConnectivityViolation{Meshlet: mi, Graph: "triangles", Reached: reached, Total: len(m.Triangles)})
	}

	// Vertices sharing a triangle edge
	seen := make([]bool, nv)
	queue = append(queue[:0], 0)
	seen[0] = true
	reached = 1
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, n := range edges[v] {
			if !seen[n] {
				seen[n] = true
				reached++
				queue = append(queue, n)
			}
		}
	}
	if reached != nv {
		errs = multierr.Append(errs, &ConnectivityViolation{Meshlet: mi, Graph: "vertices", Reached: reached, Total: nv})
	}
	return errs
}

// Violations splits a verification error into its individual violations.
func Violations(err error) []error {
	return multierr.Errors(err)
}

func combineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}

func sortedTriple(t [3]uint32) [3]uint32 {
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	if t[1] > t[2] {
		t[1], t[2] = t[2], t[1]
	}
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	return t
}

// VerifyBuffers checks encoded buffers against the triangle list they were
// built from: every input triangle must be encoded exactly once, and no
// descriptor may address data outside the index buffers.
func VerifyBuffers(b *Buffers, indices []uint32) error {
	var errs error
	remaining := make(map[[3]uint32]int, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		remaining[sortedTriple([3]uint32{indices[i], indices[i+1], indices[i+2]})]++
	}

	for mi, d := range b.Descriptors {
		off := int(d.IndexBufferOffset())
		if !d.Valid() || off+d.NumVertices() > len(b.Global) || (off+d.NumPrimitives())*3 > len(b.Local) {
			errs = multierr.Append(errs, &CoverageViolation{Meshlet: mi, Triangle: -1, Vertex: -1, Reason: "descriptor out of range"})
			continue
		}
		for j := 0; j < d.NumPrimitives(); j++ {
			bad := false
			for k := 0; k < 3; k++ {
				if int(b.Local[(off+j)*3+k]) >= d.NumVertices() {
					bad = true
				}
			}
			if bad {
				errs = multierr.Append(errs, &CoverageViolation{
					Meshlet: mi, Triangle: int64(j), Vertex: -1, Reason: "local index past meshlet vertices",
				})
				continue
			}
			key := sortedTriple(b.Triangle(mi, j))
			if remaining[key] == 0 {
				errs = multierr.Append(errs, &CoverageViolation{
					Meshlet: mi, Triangle: int64(j), Vertex: -1,
					Reason: fmt.Sprintf("vertices %v not in the input or encoded twice", key),
				})
				continue
			}
			remaining[key]--
		}
	}

	for key, n := range remaining {
		if n > 0 {
			errs = multierr.Append(errs, &CoverageViolation{
				Meshlet: -1, Triangle: -1, Vertex: -1,
				Reason: fmt.Sprintf("input triangle %v missing %d time(s)", key, n),
			})
		}
	}
	return errs
}
