package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// createTestBuffers clusters a small strip into two meshlets and encodes it.
func createTestBuffers(t *testing.T) *meshlet.Buffers {
	t.Helper()

	mesh := &meshlet.Mesh{ID: "strip", Limits: meshlet.Limits{VertexLimit: 5, PrimitiveLimit: 3}}
	for i := 0; i < 8; i++ {
		mesh.Vertices = append(mesh.Vertices, meshlet.Vertex{Pos: mgl32.Vec3{float32(i / 2), float32(i % 2), 0}})
	}
	for k := 0; k < 6; k++ {
		mesh.Indices = append(mesh.Indices, uint32(k), uint32(k+1), uint32(k+2))
	}

	s, err := meshlet.NewMeshletsForMesh(mesh)
	if err != nil {
		t.Fatalf("NewMeshletsForMesh failed: %v", err)
	}
	if err := s.Generate(meshlet.Simple{}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := s.Encode(mesh.Bounds())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(b.Descriptors) != 2 {
		t.Fatalf("expected 2 meshlets, got %d", len(b.Descriptors))
	}
	return b
}

func encodeTestFile(t *testing.T, b *meshlet.Buffers) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteMeshletFile(&buf, b); err != nil {
		t.Fatalf("WriteMeshletFile failed: %v", err)
	}
	return buf.Bytes()
}

func TestMeshletFile_RoundTrip(t *testing.T) {
	b := createTestBuffers(t)
	data := encodeTestFile(t, b)

	wantSize := meshletFileHeaderSize + len(b.Descriptors)*meshlet.DescriptorSize + len(b.Local) + 4*len(b.Global)
	if len(data) != wantSize {
		t.Errorf("expected %d bytes, got %d", wantSize, len(data))
	}
	if string(data[:16]) != MeshletFileMagic {
		t.Errorf("unexpected magic %q", data[:16])
	}

	got, err := ParseMeshletFile(data)
	if err != nil {
		t.Fatalf("ParseMeshletFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, b) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, b)
	}

	// Encoding the decoded buffers reproduces the same bytes.
	if again := encodeTestFile(t, got); !bytes.Equal(again, data) {
		t.Error("re-encoded file differs from the original")
	}
}

func TestMeshletFile_HeaderLayout(t *testing.T) {
	b := createTestBuffers(t)
	data := encodeTestFile(t, b)

	counts := []uint64{uint64(len(b.Descriptors)), uint64(len(b.Local)), uint64(len(b.Global))}
	for i, want := range counts {
		got := binary.LittleEndian.Uint64(data[16+8*i:])
		if got != want {
			t.Errorf("header count %d: expected %d, got %d", i, want, got)
		}
	}

	// Global indices are the trailing u32 array.
	tail := data[len(data)-4*len(b.Global):]
	for i, want := range b.Global {
		if got := binary.LittleEndian.Uint32(tail[4*i:]); got != want {
			t.Fatalf("global index %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestMeshletFile_Empty(t *testing.T) {
	data := encodeTestFile(t, &meshlet.Buffers{})
	if len(data) != meshletFileHeaderSize {
		t.Errorf("expected header only, got %d bytes", len(data))
	}
	b, err := ParseMeshletFile(data)
	if err != nil {
		t.Fatalf("ParseMeshletFile failed: %v", err)
	}
	if len(b.Descriptors) != 0 || len(b.Global) != 0 || len(b.Local) != 0 {
		t.Errorf("expected empty buffers, got %+v", b)
	}
}

func TestParseMeshletFile_Corrupt(t *testing.T) {
	valid := encodeTestFile(t, createTestBuffers(t))

	corrupt := func(mutate func(data []byte) []byte) []byte {
		return mutate(append([]byte(nil), valid...))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", valid[:20]},
		{"wrong magic", corrupt(func(d []byte) []byte { copy(d, "NOTAMESHLETFILE!"); return d })},
		{"truncated body", valid[:len(valid)-1]},
		{"trailing bytes", corrupt(func(d []byte) []byte { return append(d, 0) })},
		{"huge meshlet count", corrupt(func(d []byte) []byte {
			binary.LittleEndian.PutUint64(d[16:], 1<<62)
			return d
		})},
		{"huge global count", corrupt(func(d []byte) []byte {
			binary.LittleEndian.PutUint64(d[32:], ^uint64(0))
			return d
		})},
		{"broken sentinel", corrupt(func(d []byte) []byte {
			d[meshletFileHeaderSize+15] = 0
			return d
		})},
		{"offset out of range", corrupt(func(d []byte) []byte {
			// Second descriptor's index buffer offset, bytes 9..12 of its high word.
			binary.LittleEndian.PutUint32(d[meshletFileHeaderSize+meshlet.DescriptorSize+9:], 1000)
			return d
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseMeshletFile(tt.data)
			if !errors.Is(err, ErrCorruptMeshletFile) {
				t.Errorf("expected ErrCorruptMeshletFile, got %v", err)
			}
			if b != nil {
				t.Error("expected nil buffers on error")
			}
		})
	}
}

func TestSaveMeshletFile(t *testing.T) {
	b := createTestBuffers(t)
	path := filepath.Join(t.TempDir(), "cache", "strip.meshlet")

	if err := SaveMeshletFile(path, b); err != nil {
		t.Fatalf("SaveMeshletFile failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	got, err := ParseMeshletFileFromPath(path)
	if err != nil {
		t.Fatalf("ParseMeshletFileFromPath failed: %v", err)
	}
	if !reflect.DeepEqual(got, b) {
		t.Error("saved buffers differ after reload")
	}
}

func TestParseMeshletFileFromPath_Missing(t *testing.T) {
	_, err := ParseMeshletFileFromPath(filepath.Join(t.TempDir(), "missing.meshlet"))
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
