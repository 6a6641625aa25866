// Package phy is a structured, bounds-checked view over the PHY buffer: the
// file header, the per-solid collision blobs (IVP compact-surface trees),
// and the trailing KeyValues ragdoll description.
package phy

import (
	"encoding/binary"
	"errors"

	"github.com/srcmdl/srcdecode/internal/binreader"
)

const (
	FileHeaderSize = 16
	MinSolidCount  = 1
	MaxSolidCount  = 128

	MagicVPHY = 0x59485056 // "VPHY"

	collideHeaderSize        = 8
	compactSurfaceHeaderSize = 20
	compactSurfaceBodyOffset = collideHeaderSize + compactSurfaceHeaderSize // 28

	ledgeTreeNodeSize  = 28
	compactLedgeSize   = 16
	compactTriangleSize = 16
	polyPointSize      = 16

	// Legacy (no VPHY prefix) raw compact-surface cookie offset and values.
	legacyCookieOffset = 44
)

var (
	errTooShort      = errors.New("phy: buffer shorter than file header")
	errBadHeaderSize = errors.New("phy: headerSize != 16")
	errBadSolidCount = errors.New("phy: solidCount out of [1,128]")
	errIndexRange    = errors.New("phy: index out of range")
	errBadModelType  = errors.New("phy: unsupported modelType")
	errBadCookie     = errors.New("phy: unrecognized legacy compact-surface cookie")
	errTruncatedBlob = errors.New("phy: truncated solid blob")
)

var legacyCookies = map[uint32]bool{
	0:          true,
	0x53505649: true, // ASCII "IVPS" read as a little-endian uint32
	0x49565053: true, // ASCII "SPVI" read as a little-endian uint32
}

// Header is the 16-byte PHY file header.
type Header struct {
	HeaderSize int
	Ident      int32
	SolidCount int
	Checksum   int32
}

// Reader is a bounds-checked, non-allocating view over a PHY buffer.
type Reader struct {
	V      binreader.View
	Header Header
	// solidOffsets[i] is the absolute offset of solid blob i's 4-byte
	// size prefix.
	solidOffsets []int
	// kvOffset is the absolute offset where the trailing KeyValues text
	// begins.
	kvOffset int
}

func New(data []byte) (*Reader, error) {
	v := binreader.View{Data: data}
	if len(data) < FileHeaderSize {
		return nil, errTooShort
	}
	hdrSize, err := v.I32(0)
	if err != nil || int(hdrSize) != FileHeaderSize {
		return nil, errBadHeaderSize
	}
	ident, err := v.I32(4)
	if err != nil {
		return nil, err
	}
	solidCount, err := v.I32(8)
	if err != nil || int(solidCount) < MinSolidCount || int(solidCount) > MaxSolidCount {
		return nil, errBadSolidCount
	}
	checksum, err := v.I32(12)
	if err != nil {
		return nil, err
	}

	r := &Reader{V: v, Header: Header{
		HeaderSize: int(hdrSize), Ident: ident, SolidCount: int(solidCount), Checksum: checksum,
	}}

	off := FileHeaderSize
	for i := 0; i < int(solidCount); i++ {
		size, err := v.I32(off)
		if err != nil {
			return nil, errTruncatedBlob
		}
		r.solidOffsets = append(r.solidOffsets, off)
		off += 4 + int(size)
		if off > len(data) {
			return nil, errTruncatedBlob
		}
	}
	r.kvOffset = off
	return r, nil
}

// NumSolids returns the declared solid count.
func (r *Reader) NumSolids() int { return len(r.solidOffsets) }

// SolidBlob returns the raw bytes of solid i's blob, excluding the 4-byte
// size prefix.
func (r *Reader) SolidBlob(i int) ([]byte, error) {
	if i < 0 || i >= len(r.solidOffsets) {
		return nil, errIndexRange
	}
	off := r.solidOffsets[i]
	size, err := r.V.I32(off)
	if err != nil {
		return nil, err
	}
	return r.V.Bytes(off+4, int(size))
}

// KeyValuesText returns the trailing ASCII KeyValues block.
func (r *Reader) KeyValuesText() []byte {
	if r.kvOffset >= len(r.V.Data) {
		return nil
	}
	return r.V.Data[r.kvOffset:]
}

// CompactSurface locates the compact-surface body within a solid blob,
// validating the collideheader_t / legacy cookie per §4.4, and returns a
// View whose offset 0 is the start of the compact surface.
func CompactSurface(blob []byte) (binreader.View, error) {
	v := binreader.View{Data: blob}
	magic, err := v.U32(0)
	if err == nil && magic == MagicVPHY {
		modelType, err := v.I16(6)
		if err != nil {
			return binreader.View{}, err
		}
		if modelType != 0 {
			return binreader.View{}, errBadModelType
		}
		if len(blob) < compactSurfaceBodyOffset+48 {
			return binreader.View{}, errTruncatedBlob
		}
		return v.Sub(compactSurfaceBodyOffset), nil
	}

	// Legacy: raw compact surface starting at blob offset 0.
	if len(blob) < legacyCookieOffset+4 {
		return binreader.View{}, errTruncatedBlob
	}
	cookie, err := v.U32(legacyCookieOffset)
	if err != nil {
		return binreader.View{}, err
	}
	if !legacyCookies[cookie] {
		return binreader.View{}, errBadCookie
	}
	return v, nil
}

// LedgeTreeRootOffset returns the absolute (within the compact-surface
// view) offset of the ledge-tree root node.
func LedgeTreeRootOffset(surface binreader.View) (int, error) {
	rel, err := surface.I32(32)
	if err != nil {
		return 0, err
	}
	return int(rel), nil
}

// LedgeTreeNode is one ledge-tree node (offset_right_node, offset_compact_ledge).
type LedgeTreeNode struct {
	OffsetRightNode    int32
	OffsetCompactLedge int32
}

func ReadLedgeTreeNode(surface binreader.View, nodeOffset int) (LedgeTreeNode, error) {
	right, err := surface.I32(nodeOffset)
	if err != nil {
		return LedgeTreeNode{}, err
	}
	ledge, err := surface.I32(nodeOffset + 4)
	if err != nil {
		return LedgeTreeNode{}, err
	}
	return LedgeTreeNode{OffsetRightNode: right, OffsetCompactLedge: ledge}, nil
}

// CompactLedge is one convex ledge: its point array location and triangle
// count.
type CompactLedge struct {
	PointOffset int32 // relative to the ledge's own base offset
	NumTriangles int
}

func ReadCompactLedge(surface binreader.View, ledgeOffset int) (CompactLedge, error) {
	pointOff, err := surface.I32(ledgeOffset)
	if err != nil {
		return CompactLedge{}, err
	}
	nTris, err := surface.I16(ledgeOffset + 12)
	if err != nil {
		return CompactLedge{}, err
	}
	return CompactLedge{PointOffset: pointOff, NumTriangles: int(nTris)}, nil
}

// TriangleEdgeStartIndex returns the start_point_index packed into the low
// 16 bits of compact triangle `triIdx`'s edge `edgeIdx` (0..2), for the
// ledge at ledgeOffset (triangles begin immediately after the 16-byte
// ledge header).
func TriangleEdgeStartIndex(surface binreader.View, ledgeOffset, triIdx, edgeIdx int) (int, error) {
	triOff := ledgeOffset + compactLedgeSize + triIdx*compactTriangleSize
	edgeOff := triOff + 4 + edgeIdx*4
	raw, err := surface.U32(edgeOff)
	if err != nil {
		return 0, err
	}
	return int(uint16(raw & 0xFFFF)), nil
}

// PolyPoint returns the IVP-space point at point index `idx` within the
// point array located at ledgeOffset + ledge.PointOffset.
func PolyPoint(surface binreader.View, ledgeOffset int, ledge CompactLedge, idx int) ([3]float32, error) {
	base := ledgeOffset + int(ledge.PointOffset) + idx*polyPointSize
	return surface.Vec3(base)
}

// LittleEndianUint16 is a small helper exposed for tests constructing
// synthetic edge values.
func LittleEndianUint16(lo, hi byte) uint16 {
	return binary.LittleEndian.Uint16([]byte{lo, hi})
}
