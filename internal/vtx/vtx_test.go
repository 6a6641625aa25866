package vtx

import (
	"encoding/binary"
	"testing"
)

func putI32(b []byte, off int, v int32) { binary.LittleEndian.PutUint32(b[off:], uint32(v)) }
func putU16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }

func TestNewRejectsBadVersion(t *testing.T) {
	buf := make([]byte, HeaderSize)
	putI32(buf, offVersion, Version+1)
	if _, err := New(buf); !IsBadVersion(err) {
		t.Errorf("New() with bad version error = %v, want IsBadVersion", err)
	}
}

func TestNewRejectsTooShortBuffer(t *testing.T) {
	if _, err := New(make([]byte, 4)); err == nil {
		t.Error("New() with 4-byte buffer error = nil, want errTooShort")
	}
}

// buildFullVTX lays out a header with one body part -> one model -> one
// LOD -> one mesh -> one strip group carrying 2 vertices, 2 indices, and
// one triangle-strip-flagged strip, all offsets relative to their own
// entry per the entry+offsetField convention.
func buildFullVTX(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize)
	putI32(buf, offVersion, Version)
	putI32(buf, offChecksum, 1)
	putI32(buf, offNumBodyParts, 1)
	bpBase := len(buf)
	putI32(buf, offBodyPartIndex, int32(bpBase))

	bp := make([]byte, bodyPartEntrySize)
	putI32(bp, 0, 1)                      // numModels
	putI32(bp, 4, int32(bodyPartEntrySize)) // modelOff, relative to bp entry
	buf = append(buf, bp...)

	model := make([]byte, modelEntrySize)
	putI32(model, 0, 1) // numLODs
	putI32(model, 4, int32(modelEntrySize))
	buf = append(buf, model...)

	lod := make([]byte, lodEntrySize)
	putI32(lod, 0, 1) // numMeshes
	putI32(lod, 4, int32(lodEntrySize))
	buf = append(buf, lod...)

	mesh := make([]byte, meshEntrySize)
	putI32(mesh, 0, 1) // numStripGroups
	putI32(mesh, 4, int32(meshEntrySize))
	buf = append(buf, mesh...)

	sg := make([]byte, stripGroupEntrySize)
	putI32(sg, 0, 2)                                             // numVerts
	putI32(sg, 4, int32(stripGroupEntrySize))                     // vertOff
	putI32(sg, 8, 2)                                              // numIndices
	putI32(sg, 12, int32(stripGroupEntrySize+2*vertexEntrySize))  // indexOff
	putI32(sg, 16, 1)                                             // numStrips
	putI32(sg, 20, int32(stripGroupEntrySize+2*vertexEntrySize+2*indexEntrySize)) // stripOff
	buf = append(buf, sg...)

	verts := make([]byte, 2*vertexEntrySize)
	putU16(verts, 0*vertexEntrySize+4, 5)
	putU16(verts, 1*vertexEntrySize+4, 9)
	buf = append(buf, verts...)

	indices := make([]byte, 2*indexEntrySize)
	putU16(indices, 0, 0)
	putU16(indices, 2, 1)
	buf = append(buf, indices...)

	strip := make([]byte, stripEntrySize)
	putI32(strip, 0, 2) // numIndices
	putI32(strip, 4, 0) // indexOffset
	strip[16] = StripFlagTriStrip
	buf = append(buf, strip...)

	return buf
}

func TestBodyPartModelLODMeshStripGroupChain(t *testing.T) {
	buf := buildFullVTX(t)
	r, err := New(buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	bp, err := r.BodyPart(0)
	if err != nil || bp.NumModels != 1 {
		t.Fatalf("BodyPart(0) = %+v, %v, want NumModels=1", bp, err)
	}
	m, err := r.Model(bp, 0)
	if err != nil || m.NumLODs != 1 {
		t.Fatalf("Model(0) = %+v, %v, want NumLODs=1", m, err)
	}
	lod, err := r.RootLOD(m)
	if err != nil || lod.NumMeshes != 1 {
		t.Fatalf("RootLOD() = %+v, %v, want NumMeshes=1", lod, err)
	}
	mesh, err := r.Mesh(lod, 0)
	if err != nil || mesh.NumStripGroups != 1 {
		t.Fatalf("Mesh(0) = %+v, %v, want NumStripGroups=1", mesh, err)
	}
	sg, err := r.StripGroup(mesh, 0)
	if err != nil || sg.NumVerts != 2 || sg.NumIndices != 2 || sg.NumStrips != 1 {
		t.Fatalf("StripGroup(0) = %+v, %v, want NumVerts=2 NumIndices=2 NumStrips=1", sg, err)
	}

	v0, err := r.Vertex(sg, 0)
	if err != nil || v0 != 5 {
		t.Errorf("Vertex(0) = (%d, %v), want (5, nil)", v0, err)
	}
	v1, err := r.Vertex(sg, 1)
	if err != nil || v1 != 9 {
		t.Errorf("Vertex(1) = (%d, %v), want (9, nil)", v1, err)
	}

	i0, err := r.Index(sg, 0)
	if err != nil || i0 != 0 {
		t.Errorf("Index(0) = (%d, %v), want (0, nil)", i0, err)
	}
	i1, err := r.Index(sg, 1)
	if err != nil || i1 != 1 {
		t.Errorf("Index(1) = (%d, %v), want (1, nil)", i1, err)
	}

	strip, err := r.Strip(sg, 0)
	if err != nil || strip.NumIndices != 2 || strip.Flags != StripFlagTriStrip {
		t.Errorf("Strip(0) = %+v, %v, want NumIndices=2 Flags=StripFlagTriStrip", strip, err)
	}
}

func TestStripGroupOutOfRangeIsErrIndexRange(t *testing.T) {
	buf := buildFullVTX(t)
	r, err := New(buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	bp, _ := r.BodyPart(0)
	m, _ := r.Model(bp, 0)
	lod, _ := r.RootLOD(m)
	mesh, _ := r.Mesh(lod, 0)
	if _, err := r.StripGroup(mesh, 5); err == nil {
		t.Error("StripGroup(5) error = nil, want errIndexRange")
	}
}
