package meshlet

import (
	"encoding/binary"
	"fmt"
)

// DescriptorSize is the encoded size of a PackedMeshletDescriptor in bytes.
const DescriptorSize = 16

// DescriptorSentinel fills the trailing 24 bits of every descriptor.
const DescriptorSentinel uint32 = 0xABCDEF

// RenderMode selects how the mesh shader draws a meshlet.
type RenderMode uint8

// Render modes.
const (
	RenderDefault     RenderMode = 0
	RenderDebugColors RenderMode = 1 // one color per meshlet
)

// String returns a human-readable render mode name.
func (r RenderMode) String() string {
	switch r {
	case RenderDefault:
		return "Default"
	case RenderDebugColors:
		return "DebugColors"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(r))
	}
}

// PackedMeshletDescriptor is the fixed-size GPU record for one meshlet.
//
// Layout, as two little-endian uint64 words:
//
//	low:  bounds [0:48) | numVertices [48:56) | numPrimitives [56:64)
//	high: renderMode [0:8) | indexBufferOffset [8:40) | sentinel [40:64)
//
// Counts of 256 are stored as 0; an emitted meshlet is never empty.
type PackedMeshletDescriptor [DescriptorSize]byte

// PackDescriptor builds a descriptor from its fields.
func PackDescriptor(bounds uint64, numVertices, numPrimitives int, mode RenderMode, indexBufferOffset uint32) PackedMeshletDescriptor {
	low := bounds & packedBoundsMask
	low |= uint64(uint8(numVertices)) << 48
	low |= uint64(uint8(numPrimitives)) << 56

	high := uint64(mode)
	high |= uint64(indexBufferOffset) << 8
	high |= uint64(DescriptorSentinel&0xFFFFFF) << 40

	var d PackedMeshletDescriptor
	binary.LittleEndian.PutUint64(d[0:8], low)
	binary.LittleEndian.PutUint64(d[8:16], high)
	return d
}

func (d PackedMeshletDescriptor) low() uint64  { return binary.LittleEndian.Uint64(d[0:8]) }
func (d PackedMeshletDescriptor) high() uint64 { return binary.LittleEndian.Uint64(d[8:16]) }

// Bounds returns the 48-bit packed AABB.
func (d PackedMeshletDescriptor) Bounds() uint64 {
	return d.low() & packedBoundsMask
}

// NumVertices returns the meshlet vertex count.
func (d PackedMeshletDescriptor) NumVertices() int {
	return unpackCount(d.low() >> 48)
}

// NumPrimitives returns the meshlet triangle count.
func (d PackedMeshletDescriptor) NumPrimitives() int {
	return unpackCount(d.low() >> 56)
}

// RenderMode returns the render mode flags.
func (d PackedMeshletDescriptor) RenderMode() RenderMode {
	return RenderMode(d.high() & 0xFF)
}

// IndexBufferOffset returns the meshlet start in the global index buffer.
// Its first local triangle starts at 3*IndexBufferOffset in the local buffer.
func (d PackedMeshletDescriptor) IndexBufferOffset() uint32 {
	return uint32(d.high() >> 8)
}

// Sentinel returns the trailing 24-bit marker.
func (d PackedMeshletDescriptor) Sentinel() uint32 {
	return uint32(d.high()>>40) & 0xFFFFFF
}

// Valid reports whether the sentinel is intact.
func (d PackedMeshletDescriptor) Valid() bool {
	return d.Sentinel() == DescriptorSentinel
}

func unpackCount(v uint64) int {
	c := int(v & 0xFF)
	if c == 0 {
		return 256
	}
	return c
}
