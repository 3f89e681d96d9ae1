package formats

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// SaveDebugGLB writes a GLB that visualizes encoded meshlets: one triangle
// primitive with every meshlet in its own color, and one line primitive
// with the wireframe of each meshlet's packed bounds. meshBounds must be
// the AABB the bounds were packed against.
func SaveDebugGLB(path string, mesh *meshlet.Mesh, b *meshlet.Buffers, meshBounds meshlet.AABB) error {
	var (
		positions [][3]float32
		colors    [][4]uint8
		indices   []uint32
		lines     [][3]float32
		lineCols  [][4]uint8
	)

	for i, d := range b.Descriptors {
		off := d.IndexBufferOffset()
		if int(off)+d.NumVertices() > len(b.Global) {
			return fmt.Errorf("%w: descriptor %d out of range", ErrCorruptMeshletFile, i)
		}
		color := toRGBA8(meshlet.DebugColor(i))

		// Vertices are duplicated per meshlet so shared ones keep both colors.
		base := uint32(len(positions))
		for _, id := range b.Global[off : off+uint32(d.NumVertices())] {
			if int(id) >= len(mesh.Vertices) {
				return fmt.Errorf("meshlet %d references vertex %d of %d", i, id, len(mesh.Vertices))
			}
			positions = append(positions, mesh.Vertices[id].Pos)
			colors = append(colors, color)
		}
		for j := 0; j < d.NumPrimitives(); j++ {
			for k := 0; k < 3; k++ {
				indices = append(indices, base+uint32(b.Local[(int(off)+j)*3+k]))
			}
		}

		for _, p := range bboxWireframe(meshlet.UnpackBounds(meshBounds, d.Bounds())) {
			lines = append(lines, p)
			lineCols = append(lineCols, color)
		}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "meshletgen debug export"

	tris := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: modeler.WritePosition(doc, positions),
			gltf.COLOR_0:  modeler.WriteColor(doc, colors),
		},
		Indices: gltf.Index(modeler.WriteIndices(doc, indices)),
	}
	boxes := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: modeler.WritePosition(doc, lines),
			gltf.COLOR_0:  modeler.WriteColor(doc, lineCols),
		},
		Mode: gltf.PrimitiveLines,
	}

	doc.Meshes = []*gltf.Mesh{{Name: mesh.ID, Primitives: []*gltf.Primitive{tris, boxes}}}
	doc.Nodes = []*gltf.Node{{Name: mesh.ID, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	if err := gltf.SaveBinary(doc, path); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	return nil
}

// bboxWireframe returns the 12 box edges as 24 line endpoints.
func bboxWireframe(b meshlet.AABB) [][3]float32 {
	lo, hi := b.Min, b.Max
	corner := func(x, y, z bool) [3]float32 {
		c := [3]float32{lo[0], lo[1], lo[2]}
		if x {
			c[0] = hi[0]
		}
		if y {
			c[1] = hi[1]
		}
		if z {
			c[2] = hi[2]
		}
		return c
	}

	out := make([][3]float32, 0, 24)
	for _, y := range []bool{false, true} {
		// Bottom then top face
		out = append(out,
			corner(false, y, false), corner(true, y, false),
			corner(true, y, false), corner(true, y, true),
			corner(true, y, true), corner(false, y, true),
			corner(false, y, true), corner(false, y, false),
		)
	}
	// Vertical edges
	for _, c := range [][2]bool{{false, false}, {true, false}, {true, true}, {false, true}} {
		out = append(out, corner(c[0], false, c[1]), corner(c[0], true, c[1]))
	}
	return out
}

func toRGBA8(c [4]float32) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		out[i] = uint8(min(max(v, 0), 1)*255 + 0.5)
	}
	return out
}
