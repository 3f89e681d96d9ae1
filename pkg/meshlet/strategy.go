package meshlet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Strategy is a clustering algorithm. The set of strategies is closed:
// Simple, GreedyVertex and GreedyDistance.
type Strategy interface {
	Name() string
	cluster(s *MeshletsForMesh) error
}

// Strategy names as used in configuration.
const (
	StrategySimple         = "simple"
	StrategyGreedyVertex   = "greedy_vertex"
	StrategyGreedyDistance = "greedy_distance"
)

// ParseStrategy maps a configuration name to a strategy with default options.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case StrategySimple:
		return Simple{}, nil
	case StrategyGreedyVertex, "greedy":
		return GreedyVertex{Squeeze: true}, nil
	case StrategyGreedyDistance, "", "distance":
		return GreedyDistance{}, nil
	default:
		return nil, fmt.Errorf("unknown meshlet strategy %q", name)
	}
}

// Simple walks triangles in input order and starts a new meshlet whenever
// the next one does not fit. No connectivity guarantee.
type Simple struct {
	TrianglesPerMeshlet int // 0 fills every meshlet to capacity
}

// Name returns the strategy name.
func (Simple) Name() string { return StrategySimple }

func (st Simple) cluster(s *MeshletsForMesh) error {
	m := s.newMeshlet()
	for i := range s.Graph.Triangles {
		t := &s.Graph.Triangles[i]
		full := st.TrianglesPerMeshlet > 0 && len(m.Triangles) >= st.TrianglesPerMeshlet
		if !m.Empty() && (full || !m.CanInsert(t)) {
			s.emit(m)
			m = s.newMeshlet()
		}
		if err := s.insert(m, t); err != nil {
			return err
		}
	}
	if !m.Empty() {
		s.emit(m)
	}
	return nil
}

// GreedyVertex grows meshlets breadth-first over vertices.
type GreedyVertex struct {
	// Squeeze fills a full meshlet with border triangles whose vertices
	// are all already in it before closing.
	Squeeze bool
	// NearestNeighbourOrdering visits a vertex's triangles by increasing
	// distance from the vertex to the triangle centroid.
	NearestNeighbourOrdering bool
}

// Name returns the strategy name.
func (GreedyVertex) Name() string { return StrategyGreedyVertex }

func (st GreedyVertex) cluster(s *MeshletsForMesh) error {
	g := s.Graph
	m := s.newMeshlet()
	var frontier vertexQueue

	for seed := range g.Vertices {
		if g.Vertices[seed].UsedInMeshlet {
			continue
		}
		// The frontier drained, so the new seed cannot touch the current meshlet.
		if !m.Empty() {
			s.emit(m)
			m = s.newMeshlet()
		}
		frontier.reset(uint32(seed))

		for !frontier.empty() {
			cur := frontier.pop()
			v := &g.Vertices[cur]
			if v.UsedInMeshlet {
				continue
			}

			done := true
			for _, ti := range st.triangleOrder(g, cur) {
				t := &g.Triangles[ti]
				if t.UsedInMeshlet {
					continue
				}
				if !m.CanInsert(t) {
					if m.Empty() {
						return fmt.Errorf("%w: triangle %d does not fit an empty meshlet", ErrCapacityViolation, t.ID)
					}
					if st.Squeeze {
						if err := s.squeeze(m); err != nil {
							return err
						}
					}
					s.emit(m)
					m = s.newMeshlet()
					// Retry the current vertex against the fresh meshlet. Pending
					// vertices belong to the closed one and are reseeded later.
					frontier.reset(cur)
					done = false
					break
				}
				if err := s.insert(m, t); err != nil {
					return err
				}
				for _, idx := range t.Indices {
					if !g.Vertices[idx].UsedInMeshlet {
						frontier.push(idx)
					}
				}
			}
			if done {
				v.UsedInMeshlet = true
			}
		}
	}

	if !m.Empty() {
		s.emit(m)
	}
	return nil
}

// triangleOrder returns the neighbour triangles of vertex id in visiting order.
func (st GreedyVertex) triangleOrder(g *Graph, id uint32) []uint32 {
	tris := g.Vertices[id].NeighbourTriangles
	if !st.NearestNeighbourOrdering || len(tris) < 2 {
		return tris
	}
	pos := g.Positions[id]
	sorted := append([]uint32(nil), tris...)
	dist := make(map[uint32]float32, len(sorted))
	for _, ti := range sorted {
		d := g.Triangles[ti].Centroid.Sub(pos)
		dist[ti] = d.Dot(d)
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return dist[sorted[a]] < dist[sorted[b]]
	})
	return sorted
}

// squeeze inserts unused triangles that only reference vertices already in m.
func (s *MeshletsForMesh) squeeze(m *Meshlet) error {
	g := s.Graph
	for i := 0; i < len(m.Vertices); i++ {
		for _, ti := range g.Vertices[m.Vertices[i]].NeighbourTriangles {
			t := &g.Triangles[ti]
			if t.UsedInMeshlet || m.newVertexCount(t) > 0 || !m.CanInsert(t) {
				continue
			}
			if err := s.insert(m, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// GreedyDistance grows each meshlet from the unfinished vertex closest to its
// first vertex, jumping to the globally nearest unused vertex when the
// meshlet has no open border left. This is the default strategy.
type GreedyDistance struct{}

// Name returns the strategy name.
func (GreedyDistance) Name() string { return StrategyGreedyDistance }

func (GreedyDistance) cluster(s *MeshletsForMesh) error {
	g := s.Graph
	if len(g.Vertices) == 0 {
		return nil
	}
	tree := NewKDTree(g.Positions)
	m := s.newMeshlet()
	cur := uint32(0)

	for {
		v := &g.Vertices[cur]
		for _, ti := range v.NeighbourTriangles {
			t := &g.Triangles[ti]
			if t.UsedInMeshlet {
				continue
			}
			var err error
			if m, err = s.insertOrClose(m, t); err != nil {
				return err
			}
		}
		v.UsedInMeshlet = true
		tree.MarkUsed(cur)

		anchor := g.Positions[cur]
		if !m.Empty() {
			anchor = g.Positions[m.Vertices[0]]
		}

		next, ok := s.nearestBorderVertex(m, anchor)
		if !ok {
			if next, ok = tree.NearestUnused(anchor); !ok {
				break
			}
			// Nothing in the meshlet touches the next vertex any more.
			if !m.Empty() {
				s.emit(m)
				m = s.newMeshlet()
			}
		}
		cur = next
	}

	if !m.Empty() {
		s.emit(m)
	}
	return nil
}

// nearestBorderVertex returns the unfinished meshlet vertex closest to anchor.
func (s *MeshletsForMesh) nearestBorderVertex(m *Meshlet, anchor mgl32.Vec3) (uint32, bool) {
	var (
		best   uint32
		bestSq float32
		found  bool
	)
	for _, id := range m.Vertices {
		if s.Graph.Vertices[id].UsedInMeshlet {
			continue
		}
		d := s.Graph.Positions[id].Sub(anchor)
		dsq := d.Dot(d)
		if !found || dsq < bestSq || (dsq == bestSq && id < best) {
			best, bestSq, found = id, dsq, true
		}
	}
	return best, found
}

// vertexQueue is a FIFO of vertex ids.
type vertexQueue struct {
	items []uint32
	head  int
}

func (q *vertexQueue) push(id uint32) {
	q.items = append(q.items, id)
}

func (q *vertexQueue) pop() uint32 {
	id := q.items[q.head]
	q.head++
	return id
}

func (q *vertexQueue) empty() bool {
	return q.head >= len(q.items)
}

// reset discards pending vertices and restarts the queue at id.
func (q *vertexQueue) reset(id uint32) {
	q.items = append(q.items[:0], id)
	q.head = 0
}
