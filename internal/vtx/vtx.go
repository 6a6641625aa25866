// Package vtx is a structured, bounds-checked view over the VTX
// (OptimizedModel) buffer: the renderable-topology-only hierarchy of
// body-parts → models → LODs → meshes → strip-groups → (vertex refs,
// indices, strips). Only the root LOD is exposed.
package vtx

import (
	"errors"

	"github.com/srcmdl/srcdecode/internal/binreader"
)

const (
	Version    = 7
	HeaderSize = 36

	offVersion  = 0
	offChecksum = 20
	offNumBodyParts  = 24
	offBodyPartIndex = 28

	bodyPartEntrySize = 8
	modelEntrySize    = 8
	lodEntrySize      = 12
	meshEntrySize     = 12
	stripGroupEntrySize = 28
	vertexEntrySize   = 9
	indexEntrySize    = 2
	stripEntrySize    = 20

	// Strip flag bits.
	StripFlagTriList  = 0x01
	StripFlagTriStrip = 0x02
)

var (
	errTooShort   = errors.New("vtx: buffer shorter than header")
	errBadVersion = errors.New("vtx: bad version")
	errIndexRange = errors.New("vtx: index out of range")
)

func IsBadVersion(err error) bool { return errors.Is(err, errBadVersion) }

// Reader is a bounds-checked, non-allocating view over a VTX buffer.
type Reader struct {
	V binreader.View
}

func New(data []byte) (*Reader, error) {
	v := binreader.View{Data: data}
	if len(data) < HeaderSize {
		return nil, errTooShort
	}
	ver, err := v.I32(offVersion)
	if err != nil || ver != Version {
		return nil, errBadVersion
	}
	return &Reader{V: v}, nil
}

func (r *Reader) Checksum() (int32, error) { return r.V.I32(offChecksum) }

func (r *Reader) NumBodyParts() (int, error) {
	n, err := r.V.I32(offNumBodyParts)
	if err != nil || n < 0 {
		return 0, err
	}
	return int(n), nil
}

type BodyPart struct {
	NumModels int
	ModelBase int
}

func (r *Reader) BodyPart(i int) (BodyPart, error) {
	n, err := r.NumBodyParts()
	if err != nil {
		return BodyPart{}, err
	}
	if i < 0 || i >= n {
		return BodyPart{}, errIndexRange
	}
	base, err := r.V.I32(offBodyPartIndex)
	if err != nil {
		return BodyPart{}, err
	}
	entry := int(base) + i*bodyPartEntrySize
	numModels, err := r.V.I32(entry)
	if err != nil {
		return BodyPart{}, err
	}
	modelOff, err := r.V.I32(entry + 4)
	if err != nil {
		return BodyPart{}, err
	}
	return BodyPart{NumModels: int(numModels), ModelBase: entry + int(modelOff)}, nil
}

type Model struct {
	NumLODs int
	LODBase int
}

func (r *Reader) Model(bp BodyPart, i int) (Model, error) {
	if i < 0 || i >= bp.NumModels {
		return Model{}, errIndexRange
	}
	entry := bp.ModelBase + i*modelEntrySize
	numLODs, err := r.V.I32(entry)
	if err != nil {
		return Model{}, err
	}
	lodOff, err := r.V.I32(entry + 4)
	if err != nil {
		return Model{}, err
	}
	return Model{NumLODs: int(numLODs), LODBase: entry + int(lodOff)}, nil
}

type LOD struct {
	NumMeshes int
	MeshBase  int
}

// RootLOD returns LOD 0, the only LOD this decoder emits.
func (r *Reader) RootLOD(m Model) (LOD, error) {
	if m.NumLODs <= 0 {
		return LOD{}, errIndexRange
	}
	entry := m.LODBase
	numMeshes, err := r.V.I32(entry)
	if err != nil {
		return LOD{}, err
	}
	meshOff, err := r.V.I32(entry + 4)
	if err != nil {
		return LOD{}, err
	}
	return LOD{NumMeshes: int(numMeshes), MeshBase: entry + int(meshOff)}, nil
}

type Mesh struct {
	NumStripGroups int
	StripGroupBase int
}

func (r *Reader) Mesh(lod LOD, i int) (Mesh, error) {
	if i < 0 || i >= lod.NumMeshes {
		return Mesh{}, errIndexRange
	}
	entry := lod.MeshBase + i*meshEntrySize
	n, err := r.V.I32(entry)
	if err != nil {
		return Mesh{}, err
	}
	off, err := r.V.I32(entry + 4)
	if err != nil {
		return Mesh{}, err
	}
	return Mesh{NumStripGroups: int(n), StripGroupBase: entry + int(off)}, nil
}

type StripGroup struct {
	NumVerts    int
	VertBase    int
	NumIndices  int
	IndexBase   int
	NumStrips   int
	StripBase   int
}

func (r *Reader) StripGroup(m Mesh, i int) (StripGroup, error) {
	if i < 0 || i >= m.NumStripGroups {
		return StripGroup{}, errIndexRange
	}
	entry := m.StripGroupBase + i*stripGroupEntrySize
	numVerts, err := r.V.I32(entry)
	if err != nil {
		return StripGroup{}, err
	}
	vertOff, err := r.V.I32(entry + 4)
	if err != nil {
		return StripGroup{}, err
	}
	numIndices, err := r.V.I32(entry + 8)
	if err != nil {
		return StripGroup{}, err
	}
	indexOff, err := r.V.I32(entry + 12)
	if err != nil {
		return StripGroup{}, err
	}
	numStrips, err := r.V.I32(entry + 16)
	if err != nil {
		return StripGroup{}, err
	}
	stripOff, err := r.V.I32(entry + 20)
	if err != nil {
		return StripGroup{}, err
	}
	return StripGroup{
		NumVerts: int(numVerts), VertBase: entry + int(vertOff),
		NumIndices: int(numIndices), IndexBase: entry + int(indexOff),
		NumStrips: int(numStrips), StripBase: entry + int(stripOff),
	}, nil
}

// Vertex is one strip-group Vertex_t; only the original-mesh-vertex id
// matters to this decoder.
func (r *Reader) Vertex(sg StripGroup, i int) (origMeshVertID int, err error) {
	if i < 0 || i >= sg.NumVerts {
		return 0, errIndexRange
	}
	off := sg.VertBase + i*vertexEntrySize + 4 // skip boneWeightIndex[3] + numBones
	v, err := r.V.U16(off)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Index returns the strip-group-relative vertex index stored at indirection i.
func (r *Reader) Index(sg StripGroup, i int) (int, error) {
	if i < 0 || i >= sg.NumIndices {
		return 0, errIndexRange
	}
	v, err := r.V.U16(sg.IndexBase + i*indexEntrySize)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Strip is one triangle batch within a strip group.
type Strip struct {
	NumIndices  int
	IndexOffset int // offset, in indices, into the strip group's index array
	Flags       byte
}

func (r *Reader) Strip(sg StripGroup, i int) (Strip, error) {
	if i < 0 || i >= sg.NumStrips {
		return Strip{}, errIndexRange
	}
	entry := sg.StripBase + i*stripEntrySize
	numIndices, err := r.V.I32(entry)
	if err != nil {
		return Strip{}, err
	}
	indexOffset, err := r.V.I32(entry + 4)
	if err != nil {
		return Strip{}, err
	}
	flags, err := r.V.U8(entry + 16)
	if err != nil {
		return Strip{}, err
	}
	return Strip{NumIndices: int(numIndices), IndexOffset: int(indexOffset), Flags: flags}, nil
}
