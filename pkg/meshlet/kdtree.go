package meshlet

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// KDTree is a static 3D k-d tree over a point set that answers
// nearest-unused-point queries while points are consumed.
//
// The tree is stored implicitly: order holds point ids, and the node for the
// range [start, end) is the median element order[(start+end)/2], split on
// axis depth%3.
type KDTree struct {
	points []mgl32.Vec3
	order  []uint32 // point ids in tree layout
	slot   []int    // point id -> position in order
	used   []bool   // indexed by point id
	unused []int32  // per tree position: unused points in that node's subtree
	free   int
}

// NewKDTree builds a k-d tree over points. Point ids are slice indices.
func NewKDTree(points []mgl32.Vec3) *KDTree {
	n := len(points)
	t := &KDTree{
		points: points,
		order:  make([]uint32, n),
		slot:   make([]int, n),
		used:   make([]bool, n),
		unused: make([]int32, n),
		free:   n,
	}
	for i := range t.order {
		t.order[i] = uint32(i)
	}
	t.build(0, n, 0)
	for i, id := range t.order {
		t.slot[id] = i
	}
	return t
}

func (t *KDTree) build(start, end, depth int) {
	if start >= end {
		return
	}
	axis := depth % 3
	sub := t.order[start:end]
	sort.Slice(sub, func(a, b int) bool {
		pa, pb := t.points[sub[a]][axis], t.points[sub[b]][axis]
		if pa != pb {
			return pa < pb
		}
		return sub[a] < sub[b]
	})
	mid := (start + end) / 2
	t.unused[mid] = int32(end - start)
	t.build(start, mid, depth+1)
	t.build(mid+1, end, depth+1)
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int {
	return len(t.points)
}

// Remaining returns the number of points not yet marked used.
func (t *KDTree) Remaining() int {
	return t.free
}

// IsUsed reports whether point id has been marked used.
func (t *KDTree) IsUsed(id uint32) bool {
	return t.used[id]
}

// MarkUsed removes point id from future NearestUnused results.
// Marking a point twice is a no-op.
func (t *KDTree) MarkUsed(id uint32) {
	if int(id) >= len(t.points) || t.used[id] {
		return
	}
	t.used[id] = true
	t.free--

	target := t.slot[id]
	start, end := 0, len(t.order)
	for start < end {
		mid := (start + end) / 2
		t.unused[mid]--
		if target == mid {
			return
		}
		if target < mid {
			end = mid
		} else {
			start = mid + 1
		}
	}
}

// NearestUnused returns the unused point closest to query. Equal distances
// resolve to the lowest id. ok is false once every point is used.
func (t *KDTree) NearestUnused(query mgl32.Vec3) (id uint32, ok bool) {
	if t.free == 0 {
		return 0, false
	}
	s := nearestSearch{
		tree:   t,
		query:  query,
		bestID: math.MaxUint32,
		bestSq: float32(math.Inf(1)),
	}
	s.visit(0, len(t.order), 0)
	return s.bestID, s.bestID != math.MaxUint32
}

type nearestSearch struct {
	tree   *KDTree
	query  mgl32.Vec3
	bestID uint32
	bestSq float32
}

func (s *nearestSearch) visit(start, end, depth int) {
	if start >= end {
		return
	}
	mid := (start + end) / 2
	if s.tree.unused[mid] == 0 {
		return
	}

	id := s.tree.order[mid]
	p := s.tree.points[id]
	if !s.tree.used[id] {
		d := s.query.Sub(p)
		dsq := d.Dot(d)
		if dsq < s.bestSq || (dsq == s.bestSq && id < s.bestID) {
			s.bestSq = dsq
			s.bestID = id
		}
	}

	axis := depth % 3
	diff := s.query[axis] - p[axis]
	nearStart, nearEnd, farStart, farEnd := start, mid, mid+1, end
	if diff >= 0 {
		nearStart, nearEnd, farStart, farEnd = mid+1, end, start, mid
	}
	s.visit(nearStart, nearEnd, depth+1)
	// Points on the split plane may sit on either side, so equal distance
	// still has to be searched for the lower-id tie break.
	if diff*diff <= s.bestSq {
		s.visit(farStart, farEnd, depth+1)
	}
}
