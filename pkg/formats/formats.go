// Package formats reads and writes the files around meshlet generation:
// the binary meshlet cache and glTF mesh sources.
package formats

import "errors"

// Format errors.
var (
	ErrCorruptMeshletFile = errors.New("corrupt or truncated meshlet file")
	ErrNoMeshes           = errors.New("no triangle meshes found")
)
