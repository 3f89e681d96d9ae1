package meshlet

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UnsetPackedBounds marks a meshlet whose bounds have not been packed yet.
// It does not fit in 48 bits, so it never collides with a packed value.
const UnsetPackedBounds uint64 = math.MaxUint64

// packedBoundsMask selects the 48 bits used by a packed AABB.
const packedBoundsMask uint64 = 0xFFFFFFFFFFFF

// quantSteps is the number of quantization steps per axis (8 bits).
const quantSteps = 255

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any point extends.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether no point was added to the box.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend returns the box grown to contain p.
func (b AABB) Extend(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

// Size returns the box extent per axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Contains reports whether o lies inside b (inclusive).
func (b AABB) Contains(o AABB) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// PackBounds computes the meshlet AABB and quantizes it relative to the mesh
// AABB into 48 bits: one byte each for min x/y/z then max x/y/z, mins rounded
// down and maxes rounded up. Already packed meshlets are left untouched.
func PackBounds(mesh AABB, m *Meshlet, positions []mgl32.Vec3) uint64 {
	if m.PackedBounds != UnsetPackedBounds {
		return m.PackedBounds
	}
	b := m.ComputeBounds(positions)

	var packed uint64
	size := mesh.Size()
	for axis := 0; axis < 3; axis++ {
		lo, hi := uint64(0), uint64(quantSteps)
		if size[axis] > 0 && !b.IsEmpty() {
			scale := float64(quantSteps) / float64(size[axis])
			lo = clampQuant(math.Floor(float64(b.Min[axis]-mesh.Min[axis]) * scale))
			hi = clampQuant(math.Ceil(float64(b.Max[axis]-mesh.Min[axis]) * scale))
		}
		packed |= lo << (8 * axis)
		packed |= hi << (8 * (axis + 3))
	}
	m.PackedBounds = packed & packedBoundsMask
	return m.PackedBounds
}

// PackAllBounds packs every meshlet relative to the mesh bounds.
func PackAllBounds(mesh AABB, meshlets []Meshlet, positions []mgl32.Vec3) {
	for i := range meshlets {
		PackBounds(mesh, &meshlets[i], positions)
	}
}

// UnpackBounds expands a packed AABB back into mesh space. The result
// contains the original meshlet box.
func UnpackBounds(mesh AABB, packed uint64) AABB {
	var out AABB
	size := mesh.Size()
	for axis := 0; axis < 3; axis++ {
		lo := float32((packed >> (8 * axis)) & 0xFF)
		hi := float32((packed >> (8 * (axis + 3))) & 0xFF)
		out.Min[axis] = mesh.Min[axis] + lo/quantSteps*size[axis]
		out.Max[axis] = mesh.Min[axis] + hi/quantSteps*size[axis]
	}
	return out
}

func clampQuant(v float64) uint64 {
	if v < 0 {
		return 0
	}
	if v > quantSteps {
		return quantSteps
	}
	return uint64(v)
}
