// Package vvd is a structured, bounds-checked view over the VVD
// (vertexFileHeader_t) buffer: the raw vertex/tangent streams and the LOD
// fixup table that remaps them to a single requested root LOD.
package vvd

import (
	"errors"

	"github.com/srcmdl/srcdecode/internal/binreader"
)

const (
	MagicIDSV = 0x56534449 // "IDSV"
	Version   = 4

	HeaderSize = 64

	offID               = 0
	offVersion          = 4
	offChecksum         = 8
	offNumLODs          = 12
	offNumLODVertexes   = 16 // [8]int32
	offNumFixups        = 48
	offFixupTableStart  = 52
	offVertexDataStart  = 56
	offTangentDataStart = 60

	VertexSize  = 48
	TangentSize = 16
	fixupSize   = 12
)

var (
	errTooShort   = errors.New("vvd: buffer shorter than header")
	errBadMagic   = errors.New("vvd: bad magic")
	errBadVersion = errors.New("vvd: bad version")
	errIndexRange = errors.New("vvd: index out of range")
)

func IsBadMagic(err error) bool   { return errors.Is(err, errBadMagic) }
func IsBadVersion(err error) bool { return errors.Is(err, errBadVersion) }

// Reader is a bounds-checked, non-allocating view over a VVD buffer.
type Reader struct {
	V binreader.View
}

func New(data []byte) (*Reader, error) {
	v := binreader.View{Data: data}
	if len(data) < HeaderSize {
		return nil, errTooShort
	}
	magic, err := v.U32(offID)
	if err != nil || magic != MagicIDSV {
		return nil, errBadMagic
	}
	ver, err := v.I32(offVersion)
	if err != nil || ver != Version {
		return nil, errBadVersion
	}
	return &Reader{V: v}, nil
}

func (r *Reader) Checksum() (int32, error) { return r.V.I32(offChecksum) }

// NumLODVertexes returns numLODVertexes[lod]: the vertex count covering that
// LOD and every more-detailed LOD below it. Index 0 is the total raw vertex
// count.
func (r *Reader) NumLODVertexes(lod int) (int, error) {
	if lod < 0 || lod >= 8 {
		return 0, errIndexRange
	}
	n, err := r.V.I32(offNumLODVertexes + lod*4)
	if err != nil || n < 0 {
		return 0, err
	}
	return int(n), nil
}

func (r *Reader) numFixups() (int, error) {
	n, err := r.V.I32(offNumFixups)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errIndexRange
	}
	return int(n), nil
}

// Fixup is one vertexFileFixup_t entry.
type Fixup struct {
	LOD         int
	NumVertexes int
	VertexIndex int // index into the raw (unfixed) vertex stream
}

func (r *Reader) Fixup(i int) (Fixup, error) {
	n, err := r.numFixups()
	if err != nil {
		return Fixup{}, err
	}
	if i < 0 || i >= n {
		return Fixup{}, errIndexRange
	}
	base, err := r.V.I32(offFixupTableStart)
	if err != nil {
		return Fixup{}, err
	}
	entry := int(base) + i*fixupSize
	lod, err := r.V.I32(entry)
	if err != nil {
		return Fixup{}, err
	}
	nv, err := r.V.I32(entry + 4)
	if err != nil {
		return Fixup{}, err
	}
	vi, err := r.V.I32(entry + 8)
	if err != nil {
		return Fixup{}, err
	}
	return Fixup{LOD: int(lod), NumVertexes: int(nv), VertexIndex: int(vi)}, nil
}

// RootLODIndices returns, in order, the raw vertex-stream index for every
// vertex belonging to the requested root LOD. With no fixups, this is the
// identity sequence [0, numRawVertices). With fixups, it is the
// concatenation of every fixup range whose LOD >= rootLOD (§4.1, property 7
// in spec §8: fixupCount==0 and a single covering fixup at fixupLod==rootLod
// must produce identical output).
func (r *Reader) RootLODIndices(rootLOD, numRawVertices int) ([]int, error) {
	n, err := r.numFixups()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		out := make([]int, numRawVertices)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	var out []int
	for i := 0; i < n; i++ {
		fx, err := r.Fixup(i)
		if err != nil {
			return nil, err
		}
		if fx.LOD < rootLOD {
			continue
		}
		for k := 0; k < fx.NumVertexes; k++ {
			out = append(out, fx.VertexIndex+k)
		}
	}
	return out, nil
}

// Vertex is one decoded mstudiovertex_t.
type Vertex struct {
	Weights  [3]float32
	BoneIDs  [3]uint8
	NumBones int
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

func (r *Reader) Vertex(rawIndex int) (Vertex, error) {
	start, err := r.V.I32(offVertexDataStart)
	if err != nil {
		return Vertex{}, err
	}
	off := int(start) + rawIndex*VertexSize
	sv := r.V.Sub(off)
	var v Vertex
	for i := 0; i < 3; i++ {
		v.Weights[i], err = sv.F32(i * 4)
		if err != nil {
			return Vertex{}, err
		}
	}
	for i := 0; i < 3; i++ {
		b, err := sv.U8(12 + i)
		if err != nil {
			return Vertex{}, err
		}
		v.BoneIDs[i] = b
	}
	nb, err := sv.U8(15)
	if err != nil {
		return Vertex{}, err
	}
	v.NumBones = int(nb)
	pos, err := sv.Vec3(16)
	if err != nil {
		return Vertex{}, err
	}
	v.Position = pos
	norm, err := sv.Vec3(28)
	if err != nil {
		return Vertex{}, err
	}
	v.Normal = norm
	u, err := sv.F32(40)
	if err != nil {
		return Vertex{}, err
	}
	vv, err := sv.F32(44)
	if err != nil {
		return Vertex{}, err
	}
	v.UV = [2]float32{u, vv}
	return v, nil
}

// Tangent returns the 4-component tangent vector (xyz + handedness sign in
// w) parallel to the raw vertex stream.
func (r *Reader) Tangent(rawIndex int) ([4]float32, error) {
	var t [4]float32
	start, err := r.V.I32(offTangentDataStart)
	if err != nil {
		return t, err
	}
	if start == 0 {
		return t, nil // no tangent stream present
	}
	off := int(start) + rawIndex*TangentSize
	for i := 0; i < 4; i++ {
		t[i], err = r.V.F32(off + i*4)
		if err != nil {
			return t, err
		}
	}
	return t, nil
}
