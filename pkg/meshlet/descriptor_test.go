package meshlet

import "testing"

func TestPackDescriptor_Fields(t *testing.T) {
	tests := []struct {
		name      string
		bounds    uint64
		verts     int
		prims     int
		mode      RenderMode
		offset    uint32
		wantVerts int
		wantPrims int
	}{
		{"typical", 0x0102030405FF, 64, 126, RenderDefault, 1234, 64, 126},
		{"debug colors", 0, 3, 1, RenderDebugColors, 0, 3, 1},
		{"full meshlet", 0xFFFFFFFFFFFF, 256, 255, RenderDefault, 0xFFFFFFFF, 256, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PackDescriptor(tt.bounds, tt.verts, tt.prims, tt.mode, tt.offset)

			if d.Bounds() != tt.bounds {
				t.Errorf("Bounds = %x, want %x", d.Bounds(), tt.bounds)
			}
			if d.NumVertices() != tt.wantVerts {
				t.Errorf("NumVertices = %d, want %d", d.NumVertices(), tt.wantVerts)
			}
			if d.NumPrimitives() != tt.wantPrims {
				t.Errorf("NumPrimitives = %d, want %d", d.NumPrimitives(), tt.wantPrims)
			}
			if d.RenderMode() != tt.mode {
				t.Errorf("RenderMode = %s, want %s", d.RenderMode(), tt.mode)
			}
			if d.IndexBufferOffset() != tt.offset {
				t.Errorf("IndexBufferOffset = %d, want %d", d.IndexBufferOffset(), tt.offset)
			}
			if !d.Valid() {
				t.Errorf("expected sentinel %x, got %x", DescriptorSentinel, d.Sentinel())
			}
		})
	}
}

func TestPackDescriptor_Layout(t *testing.T) {
	d := PackDescriptor(0x060504030201, 4, 2, RenderDebugColors, 0x11223344)

	want := PackedMeshletDescriptor{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x04, 0x02,
		0x01, 0x44, 0x33, 0x22, 0x11, 0xEF, 0xCD, 0xAB,
	}
	if d != want {
		t.Errorf("unexpected layout:\n got % x\nwant % x", d[:], want[:])
	}
}

func TestPackDescriptor_BoundsMasked(t *testing.T) {
	d := PackDescriptor(UnsetPackedBounds, 3, 1, RenderDefault, 0)
	if d.Bounds() != packedBoundsMask {
		t.Errorf("expected bounds truncated to 48 bits, got %x", d.Bounds())
	}
	if d.NumVertices() != 3 || d.NumPrimitives() != 1 {
		t.Errorf("bounds overflowed into counts: %d vertices, %d primitives", d.NumVertices(), d.NumPrimitives())
	}
}

func TestRenderMode_String(t *testing.T) {
	if RenderDebugColors.String() != "DebugColors" {
		t.Errorf("unexpected name %q", RenderDebugColors.String())
	}
	if RenderMode(7).String() != "Unknown(7)" {
		t.Errorf("unexpected name %q", RenderMode(7).String())
	}
}
