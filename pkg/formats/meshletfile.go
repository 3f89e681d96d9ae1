package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/meshletgen/pkg/meshlet"
)

// MeshletFileMagic identifies a meshlet cache file. The trailing NUL pads it
// to 16 bytes.
const MeshletFileMagic = "SPMESHLETFILEv1\x00"

// meshletFileHeader precedes the three buffers.
type meshletFileHeader struct {
	Magic            [16]byte
	NumMeshlets      uint64
	NumLocalIndices  uint64
	NumGlobalIndices uint64
}

// meshletFileHeaderSize is the encoded header size in bytes.
const meshletFileHeaderSize = 16 + 3*8

// WriteMeshletFile writes buffers as a meshlet file: header, descriptors,
// local indices (u8) then global indices (u32), all little-endian.
func WriteMeshletFile(w io.Writer, b *meshlet.Buffers) error {
	header := meshletFileHeader{
		NumMeshlets:      uint64(len(b.Descriptors)),
		NumLocalIndices:  uint64(len(b.Local)),
		NumGlobalIndices: uint64(len(b.Global)),
	}
	copy(header.Magic[:], MeshletFileMagic)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, b.Descriptors); err != nil {
		return fmt.Errorf("writing descriptors: %w", err)
	}
	if _, err := w.Write(b.Local); err != nil {
		return fmt.Errorf("writing local indices: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, b.Global); err != nil {
		return fmt.Errorf("writing global indices: %w", err)
	}
	return nil
}

// SaveMeshletFile writes buffers to path, creating parent directories.
// The file is written under a temporary name and renamed into place, so a
// crash never leaves a half-written cache behind.
func SaveMeshletFile(path string, b *meshlet.Buffers) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating meshlet file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteMeshletFile(w, b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing meshlet file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing meshlet file: %w", err)
	}
	return os.Rename(tmp, path)
}

// ParseMeshletFile parses a meshlet file from raw bytes. Every malformed
// input yields an error wrapping ErrCorruptMeshletFile.
func ParseMeshletFile(data []byte) (*meshlet.Buffers, error) {
	if len(data) < meshletFileHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptMeshletFile, len(data))
	}

	r := bytes.NewReader(data)
	var header meshletFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrCorruptMeshletFile)
	}
	if string(header.Magic[:]) != MeshletFileMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptMeshletFile, bytes.TrimRight(header.Magic[:], "\x00"))
	}

	// Check each count against what is left before multiplying, so that a
	// huge declared count can neither overflow nor trigger a huge allocation.
	remaining := uint64(r.Len())
	if header.NumMeshlets > remaining/meshlet.DescriptorSize {
		return nil, fmt.Errorf("%w: %d descriptors exceed file size", ErrCorruptMeshletFile, header.NumMeshlets)
	}
	remaining -= header.NumMeshlets * meshlet.DescriptorSize
	if header.NumLocalIndices > remaining {
		return nil, fmt.Errorf("%w: %d local indices exceed file size", ErrCorruptMeshletFile, header.NumLocalIndices)
	}
	remaining -= header.NumLocalIndices
	if header.NumGlobalIndices > remaining/4 {
		return nil, fmt.Errorf("%w: %d global indices exceed file size", ErrCorruptMeshletFile, header.NumGlobalIndices)
	}
	remaining -= header.NumGlobalIndices * 4
	if remaining != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptMeshletFile, remaining)
	}
	if header.NumLocalIndices != 3*header.NumGlobalIndices {
		return nil, fmt.Errorf("%w: %d local indices for %d global indices",
			ErrCorruptMeshletFile, header.NumLocalIndices, header.NumGlobalIndices)
	}

	b := &meshlet.Buffers{
		Descriptors: make([]meshlet.PackedMeshletDescriptor, header.NumMeshlets),
		Local:       make([]uint8, header.NumLocalIndices),
		Global:      make([]uint32, header.NumGlobalIndices),
	}
	if err := binary.Read(r, binary.LittleEndian, b.Descriptors); err != nil {
		return nil, fmt.Errorf("%w: reading descriptors", ErrCorruptMeshletFile)
	}
	if _, err := io.ReadFull(r, b.Local); err != nil {
		return nil, fmt.Errorf("%w: reading local indices", ErrCorruptMeshletFile)
	}
	if err := binary.Read(r, binary.LittleEndian, b.Global); err != nil {
		return nil, fmt.Errorf("%w: reading global indices", ErrCorruptMeshletFile)
	}

	if err := validateDescriptors(b); err != nil {
		return nil, err
	}
	return b, nil
}

// validateDescriptors checks that every descriptor is intact and addresses
// only data inside the index buffers.
func validateDescriptors(b *meshlet.Buffers) error {
	for i, d := range b.Descriptors {
		if !d.Valid() {
			return fmt.Errorf("%w: descriptor %d has sentinel %06x", ErrCorruptMeshletFile, i, d.Sentinel())
		}
		off := uint64(d.IndexBufferOffset())
		if off+uint64(d.NumVertices()) > uint64(len(b.Global)) {
			return fmt.Errorf("%w: descriptor %d vertices out of range", ErrCorruptMeshletFile, i)
		}
		if 3*(off+uint64(d.NumPrimitives())) > uint64(len(b.Local)) {
			return fmt.Errorf("%w: descriptor %d primitives out of range", ErrCorruptMeshletFile, i)
		}
	}
	return nil
}

// ParseMeshletFileFromPath parses a meshlet file from disk.
func ParseMeshletFileFromPath(path string) (*meshlet.Buffers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meshlet file: %w", err)
	}
	return ParseMeshletFile(data)
}
