package formats

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// LoadGLTFMeshes reads every indexed triangle primitive of a glTF or GLB
// file as one mesh. Mesh IDs have the form "<file>#<mesh>.<primitive>".
func LoadGLTFMeshes(path string, limits meshlet.Limits) ([]*meshlet.Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	base := filepath.Base(path)
	var meshes []*meshlet.Mesh
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles || prim.Indices == nil {
				continue
			}
			if _, ok := prim.Attributes[gltf.POSITION]; !ok {
				continue
			}

			mesh, err := readPrimitive(doc, prim)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh %q primitive %d", m.Name, pi)
			}
			mesh.ID = fmt.Sprintf("%s#%d.%d", base, mi, pi)
			mesh.Limits = limits
			meshes = append(meshes, mesh)
		}
	}

	if len(meshes) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMeshes, path)
	}
	return meshes, nil
}

func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*meshlet.Mesh, error) {
	positions, err := modeler.ReadPosition(doc, doc.Accessors[prim.Attributes[gltf.POSITION]], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read positions")
	}
	indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read indices")
	}

	vertices := make([]meshlet.Vertex, len(positions))
	for i, p := range positions {
		vertices[i] = meshlet.Vertex{Pos: mgl32.Vec3(p), Color: mgl32.Vec4{1, 1, 1, 1}}
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read normals")
		}
		for i := 0; i < len(normals) && i < len(vertices); i++ {
			vertices[i].Normal = mgl32.Vec3(normals[i])
		}
	}

	for layer, name := range []string{gltf.TEXCOORD_0, gltf.TEXCOORD_1} {
		idx, ok := prim.Attributes[name]
		if !ok {
			continue
		}
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", name)
		}
		for i := 0; i < len(uvs) && i < len(vertices); i++ {
			if layer == 0 {
				vertices[i].UV0 = mgl32.Vec2(uvs[i])
			} else {
				vertices[i].UV1 = mgl32.Vec2(uvs[i])
			}
		}
	}

	if idx, ok := prim.Attributes[gltf.COLOR_0]; ok {
		colors, err := modeler.ReadColor(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read colors")
		}
		for i := 0; i < len(colors) && i < len(vertices); i++ {
			c := colors[i]
			vertices[i].Color = mgl32.Vec4{
				float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255,
			}
		}
	}

	return &meshlet.Mesh{Vertices: vertices, Indices: indices}, nil
}
