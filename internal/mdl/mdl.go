// Package mdl is a structured, bounds-checked view over the MDL
// (studiohdr_t) buffer: bone table, body-part table, texture table,
// CD-texture search paths, local animation/sequence descriptors,
// include-model table, and the animation-block table. It allocates only for
// decoded strings.
package mdl

import (
	"github.com/srcmdl/srcdecode/internal/binreader"
)

const (
	MagicIDST = 0x54534449 // "IDST"

	MinVersion = 44
	MaxVersion = 49

	HeaderSize = 408

	// Header field offsets. Only the subset of the real studiohdr_t this
	// decoder consumes is laid out here — flex/IK/attachment/hitbox/pose
	// tables have no consumer in this pipeline and are skipped over.
	offID                 = 0
	offVersion            = 4
	offChecksum            = 8
	offName                = 12 // [64]byte
	offNumBones            = 156
	offBoneIndex           = 160
	offNumBodyParts        = 232
	offBodyPartIndex       = 236
	offNumTextures         = 204
	offTextureIndex        = 208
	offNumCDTextures       = 212
	offCDTextureIndex      = 216
	offNumLocalAnim        = 180
	offLocalAnimIndex      = 184
	offNumLocalSeq         = 188
	offLocalSeqIndex       = 192
	offNumIncludeModels    = 336
	offIncludeModelIndex   = 340
	offSzAnimBlockNameIndex = 348
	offNumAnimBlocks       = 352
	offAnimBlockIndex      = 356
	offRootLOD             = 377

	boneEntrySize      = 72
	bodyPartEntrySize  = 16
	modelEntrySize     = 96
	meshEntrySize      = 16
	eyeballEntrySize   = 48
	textureEntrySize   = 64
	cdTextureEntrySize = 4
	includeModelSize   = 8
	animBlockEntrySize = 8
	animDescEntrySize  = 40
	seqDescEntrySize   = 24

	// mstudiobone_t field offsets, relative to the bone entry's own base.
	boneOffSzName   = 0
	boneOffParent   = 4
	boneOffPos      = 8
	boneOffQuat     = 20
	boneOffRotEuler = 36
	boneOffPosScale = 48
	boneOffRotScale = 60

	modelOffName        = 0
	modelOffNumMeshes   = 64
	modelOffMeshIndex   = 68
	modelOffVertexIndex = 76
	modelOffNumEyeballs = 80
	modelOffEyeballIndex = 84

	meshOffMaterial     = 0
	meshOffVertexOffset = 4

	eyeOffTexture   = 0
	eyeOffOrg       = 4
	eyeOffForward   = 16
	eyeOffUp        = 28
	eyeOffRadius    = 40
	eyeOffIrisScale = 44

	textureOffSzName = 0

	animOffSzName        = 0
	animOffFps           = 4
	animOffFlags         = 8
	animOffNumFrames     = 12
	animOffAnimBlock     = 16
	animOffAnimIndex     = 20
	animOffNumSections   = 24
	animOffSectionIndex  = 28
	animOffSectionFrames = 32

	seqOffSzLabel         = 0
	seqOffGroupSize0      = 4
	seqOffGroupSize1      = 8
	seqOffAnimIndexIndex  = 12

	// AnimFlagDelta marks a delta (additive) animation.
	AnimFlagDelta = 0x04
)

// Reader is a bounds-checked, non-allocating view over an MDL buffer.
type Reader struct {
	V binreader.View
}

// New validates the header magic and version and returns a Reader.
func New(data []byte) (*Reader, error) {
	v := binreader.View{Data: data}
	if len(data) < HeaderSize {
		return nil, errTooShort
	}
	magic, err := v.U32(offID)
	if err != nil || magic != MagicIDST {
		return nil, errBadMagic
	}
	ver, err := v.I32(offVersion)
	if err != nil || ver < MinVersion || ver > MaxVersion {
		return nil, errBadVersion
	}
	return &Reader{V: v}, nil
}

func (r *Reader) Checksum() (int32, error) { return r.V.I32(offChecksum) }
func (r *Reader) RootLOD() int {
	b, err := r.V.U8(offRootLOD)
	if err != nil {
		return 0
	}
	return int(b)
}

func (r *Reader) NumBones() (int, error) { return r.count(offNumBones) }
func (r *Reader) NumBodyParts() (int, error) { return r.count(offNumBodyParts) }
func (r *Reader) NumTextures() (int, error) { return r.count(offNumTextures) }
func (r *Reader) NumCDTextures() (int, error) { return r.count(offNumCDTextures) }
func (r *Reader) NumLocalAnim() (int, error) { return r.count(offNumLocalAnim) }
func (r *Reader) NumLocalSeq() (int, error) { return r.count(offNumLocalSeq) }
func (r *Reader) NumIncludeModels() (int, error) { return r.count(offNumIncludeModels) }
func (r *Reader) NumAnimBlocks() (int, error) { return r.count(offNumAnimBlocks) }

func (r *Reader) count(off int) (int, error) {
	n, err := r.V.I32(off)
	if err != nil || n < 0 {
		return 0, err
	}
	return int(n), nil
}

func (r *Reader) tableBase(countOff, indexOff int) (base, n int, err error) {
	n, err = r.count(countOff)
	if err != nil {
		return 0, 0, err
	}
	b, err := r.V.I32(indexOff)
	if err != nil {
		return 0, 0, err
	}
	return int(b), n, nil
}

// Bone is one decoded bone-table entry.
type Bone struct {
	Name     string
	Parent   int
	Pos      [3]float32
	Quat     [4]float32
	Euler    [3]float32
	PosScale [3]float32
	RotScale [3]float32
}

func (r *Reader) Bone(i int) (Bone, error) {
	base, n, err := r.tableBase(offNumBones, offBoneIndex)
	if err != nil {
		return Bone{}, err
	}
	if i < 0 || i >= n {
		return Bone{}, errIndexRange
	}
	entry := base + i*boneEntrySize
	sv := r.V.Sub(entry)
	nameRel, err := sv.I32(boneOffSzName)
	if err != nil {
		return Bone{}, err
	}
	name, err := sv.StrZUnbounded(int(nameRel))
	if err != nil {
		return Bone{}, err
	}
	parent, err := sv.I32(boneOffParent)
	if err != nil {
		return Bone{}, err
	}
	pos, err := sv.Vec3(boneOffPos)
	if err != nil {
		return Bone{}, err
	}
	var quat [4]float32
	for k := 0; k < 4; k++ {
		quat[k], err = sv.F32(boneOffQuat + k*4)
		if err != nil {
			return Bone{}, err
		}
	}
	euler, err := sv.Vec3(boneOffRotEuler)
	if err != nil {
		return Bone{}, err
	}
	posScale, err := sv.Vec3(boneOffPosScale)
	if err != nil {
		return Bone{}, err
	}
	rotScale, err := sv.Vec3(boneOffRotScale)
	if err != nil {
		return Bone{}, err
	}
	return Bone{
		Name: name, Parent: int(parent), Pos: pos, Quat: quat,
		Euler: euler, PosScale: posScale, RotScale: rotScale,
	}, nil
}

// BodyPart is one decoded body-part-table entry.
type BodyPart struct {
	Name      string
	NumModels int
	ModelBase int // absolute offset of this body part's model array
}

func (r *Reader) BodyPart(i int) (BodyPart, error) {
	base, n, err := r.tableBase(offNumBodyParts, offBodyPartIndex)
	if err != nil {
		return BodyPart{}, err
	}
	if i < 0 || i >= n {
		return BodyPart{}, errIndexRange
	}
	entry := base + i*bodyPartEntrySize
	sv := r.V.Sub(entry)
	nameRel, err := sv.I32(0)
	if err != nil {
		return BodyPart{}, err
	}
	name, err := sv.StrZUnbounded(int(nameRel))
	if err != nil {
		return BodyPart{}, err
	}
	numModels, err := sv.I32(4)
	if err != nil {
		return BodyPart{}, err
	}
	modelIndex, err := sv.I32(8)
	if err != nil {
		return BodyPart{}, err
	}
	return BodyPart{Name: name, NumModels: int(numModels), ModelBase: entry + int(modelIndex)}, nil
}

// Model is one decoded sub-model entry.
type Model struct {
	Name        string
	NumMeshes   int
	MeshBase    int
	VertexIndex int // byte offset into the VVD vertex stream
	NumEyeballs int
	EyeballBase int
}

func (r *Reader) SubModel(bp BodyPart, i int) (Model, error) {
	if i < 0 || i >= bp.NumModels {
		return Model{}, errIndexRange
	}
	entry := bp.ModelBase + i*modelEntrySize
	sv := r.V.Sub(entry)
	name, err := sv.StrZ(modelOffName, 64)
	if err != nil {
		return Model{}, err
	}
	numMeshes, err := sv.I32(modelOffNumMeshes)
	if err != nil {
		return Model{}, err
	}
	meshIndex, err := sv.I32(modelOffMeshIndex)
	if err != nil {
		return Model{}, err
	}
	vtxIndex, err := sv.I32(modelOffVertexIndex)
	if err != nil {
		return Model{}, err
	}
	numEyeballs, err := sv.I32(modelOffNumEyeballs)
	if err != nil {
		return Model{}, err
	}
	eyeballIndex, err := sv.I32(modelOffEyeballIndex)
	if err != nil {
		return Model{}, err
	}
	return Model{
		Name: name, NumMeshes: int(numMeshes), MeshBase: entry + int(meshIndex),
		VertexIndex: int(vtxIndex), NumEyeballs: int(numEyeballs),
		EyeballBase: entry + int(eyeballIndex),
	}, nil
}

// Mesh is one decoded MDL-side mesh entry: a material reference and the
// vertex-offset needed to translate a VTX strip-group's original-mesh
// vertex id into a VVD-relative index (the geometry itself comes from
// VTX/VVD).
type Mesh struct {
	Material     int
	VertexOffset int
}

func (r *Reader) SubMesh(m Model, i int) (Mesh, error) {
	if i < 0 || i >= m.NumMeshes {
		return Mesh{}, errIndexRange
	}
	entry := m.MeshBase + i*meshEntrySize
	sv := r.V.Sub(entry)
	mat, err := sv.I32(meshOffMaterial)
	if err != nil {
		return Mesh{}, err
	}
	vofs, err := sv.I32(meshOffVertexOffset)
	if err != nil {
		return Mesh{}, err
	}
	return Mesh{Material: int(mat), VertexOffset: int(vofs)}, nil
}

// Eyeball is one decoded eyeball record.
type Eyeball struct {
	Texture   int
	Org       [3]float32
	Forward   [3]float32
	Up        [3]float32
	Radius    float32
	IrisScale float32
}

func (r *Reader) Eyeball(m Model, i int) (Eyeball, error) {
	if i < 0 || i >= m.NumEyeballs {
		return Eyeball{}, errIndexRange
	}
	entry := m.EyeballBase + i*eyeballEntrySize
	sv := r.V.Sub(entry)
	tex, err := sv.I32(eyeOffTexture)
	if err != nil {
		return Eyeball{}, err
	}
	org, err := sv.Vec3(eyeOffOrg)
	if err != nil {
		return Eyeball{}, err
	}
	fwd, err := sv.Vec3(eyeOffForward)
	if err != nil {
		return Eyeball{}, err
	}
	up, err := sv.Vec3(eyeOffUp)
	if err != nil {
		return Eyeball{}, err
	}
	radius, err := sv.F32(eyeOffRadius)
	if err != nil {
		return Eyeball{}, err
	}
	irisScale, err := sv.F32(eyeOffIrisScale)
	if err != nil {
		return Eyeball{}, err
	}
	return Eyeball{Texture: int(tex), Org: org, Forward: fwd, Up: up, Radius: radius, IrisScale: irisScale}, nil
}

// TextureName returns the resolved (lowercased by caller) texture name for
// texture-table index i.
func (r *Reader) TextureName(i int) (string, error) {
	base, n, err := r.tableBase(offNumTextures, offTextureIndex)
	if err != nil {
		return "", err
	}
	if i < 0 || i >= n {
		return "", errIndexRange
	}
	entry := base + i*textureEntrySize
	sv := r.V.Sub(entry)
	nameRel, err := sv.I32(textureOffSzName)
	if err != nil {
		return "", err
	}
	return sv.StrZUnbounded(int(nameRel))
}

// CDTexturePaths returns all CD-texture search paths.
func (r *Reader) CDTexturePaths() ([]string, error) {
	base, n, err := r.tableBase(offNumCDTextures, offCDTextureIndex)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		off, err := r.V.I32(base + i*cdTextureEntrySize)
		if err != nil {
			return nil, err
		}
		s, err := r.V.StrZUnbounded(int(off))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// IncludeModel is one include-model table entry.
type IncludeModel struct {
	Name string
}

func (r *Reader) IncludeModel(i int) (IncludeModel, error) {
	base, n, err := r.tableBase(offNumIncludeModels, offIncludeModelIndex)
	if err != nil {
		return IncludeModel{}, err
	}
	if i < 0 || i >= n {
		return IncludeModel{}, errIndexRange
	}
	entry := base + i*includeModelSize
	sv := r.V.Sub(entry)
	nameRel, err := sv.I32(4)
	if err != nil {
		return IncludeModel{}, err
	}
	name, err := sv.StrZUnbounded(int(nameRel))
	if err != nil {
		return IncludeModel{}, err
	}
	return IncludeModel{Name: name}, nil
}

// AnimBlockOffset reads one animation-block table entry: the absolute offset
// within the ANI side-file buffer at which the given block's data begins.
func (r *Reader) AnimBlockOffset(block int) (int, error) {
	base, n, err := r.tableBase(offNumAnimBlocks, offAnimBlockIndex)
	if err != nil {
		return 0, err
	}
	if block < 0 || block >= n {
		return 0, errIndexRange
	}
	off, err := r.V.I32(base + block*animBlockEntrySize)
	if err != nil {
		return 0, err
	}
	return int(off), nil
}

// AnimDesc is one decoded local-animation descriptor.
type AnimDesc struct {
	Name          string
	Fps           float32
	Flags         int32
	NumFrames     int
	AnimBlock     int
	AnimIndex     int // relative to this entry's base when AnimBlock == 0
	EntryOffset   int // absolute offset of this descriptor, for block-0 resolution
	NumSections   int
	SectionBase   int // absolute offset of the section table
	SectionFrames int
}

func (r *Reader) AnimDesc(i int) (AnimDesc, error) {
	base, n, err := r.tableBase(offNumLocalAnim, offLocalAnimIndex)
	if err != nil {
		return AnimDesc{}, err
	}
	if i < 0 || i >= n {
		return AnimDesc{}, errIndexRange
	}
	entry := base + i*animDescEntrySize
	sv := r.V.Sub(entry)
	nameRel, err := sv.I32(animOffSzName)
	if err != nil {
		return AnimDesc{}, err
	}
	name, err := sv.StrZUnbounded(int(nameRel))
	if err != nil {
		return AnimDesc{}, err
	}
	fps, err := sv.F32(animOffFps)
	if err != nil {
		return AnimDesc{}, err
	}
	flags, err := sv.I32(animOffFlags)
	if err != nil {
		return AnimDesc{}, err
	}
	numFrames, err := sv.I32(animOffNumFrames)
	if err != nil {
		return AnimDesc{}, err
	}
	animBlock, err := sv.I32(animOffAnimBlock)
	if err != nil {
		return AnimDesc{}, err
	}
	animIndex, err := sv.I32(animOffAnimIndex)
	if err != nil {
		return AnimDesc{}, err
	}
	numSections, err := sv.I32(animOffNumSections)
	if err != nil {
		return AnimDesc{}, err
	}
	sectionIndex, err := sv.I32(animOffSectionIndex)
	if err != nil {
		return AnimDesc{}, err
	}
	sectionFrames, err := sv.I32(animOffSectionFrames)
	if err != nil {
		return AnimDesc{}, err
	}
	return AnimDesc{
		Name: name, Fps: fps, Flags: flags, NumFrames: int(numFrames),
		AnimBlock: int(animBlock), AnimIndex: int(animIndex), EntryOffset: entry,
		NumSections: int(numSections), SectionBase: entry + int(sectionIndex),
		SectionFrames: int(sectionFrames),
	}, nil
}

// AnimSection is one {block, index} pair from a segmented animation's
// section table.
type AnimSection struct {
	Block int
	Index int
}

func (r *Reader) AnimSection(ad AnimDesc, i int) (AnimSection, error) {
	if i < 0 || i >= ad.NumSections {
		return AnimSection{}, errIndexRange
	}
	off := ad.SectionBase + i*animBlockEntrySize
	block, err := r.V.I32(off)
	if err != nil {
		return AnimSection{}, err
	}
	idx, err := r.V.I32(off + 4)
	if err != nil {
		return AnimSection{}, err
	}
	return AnimSection{Block: int(block), Index: int(idx)}, nil
}

// SeqDesc is one decoded sequence descriptor.
type SeqDesc struct {
	Name       string
	GroupSize0 int
	GroupSize1 int
	AnimIndexBase int // absolute offset of the groupsize0×groupsize1 int16 index table
}

func (r *Reader) SeqDesc(i int) (SeqDesc, error) {
	base, n, err := r.tableBase(offNumLocalSeq, offLocalSeqIndex)
	if err != nil {
		return SeqDesc{}, err
	}
	if i < 0 || i >= n {
		return SeqDesc{}, errIndexRange
	}
	entry := base + i*seqDescEntrySize
	sv := r.V.Sub(entry)
	nameRel, err := sv.I32(seqOffSzLabel)
	if err != nil {
		return SeqDesc{}, err
	}
	name, err := sv.StrZUnbounded(int(nameRel))
	if err != nil {
		return SeqDesc{}, err
	}
	g0, err := sv.I32(seqOffGroupSize0)
	if err != nil {
		return SeqDesc{}, err
	}
	g1, err := sv.I32(seqOffGroupSize1)
	if err != nil {
		return SeqDesc{}, err
	}
	animIndexIndex, err := sv.I32(seqOffAnimIndexIndex)
	if err != nil {
		return SeqDesc{}, err
	}
	return SeqDesc{Name: name, GroupSize0: int(g0), GroupSize1: int(g1), AnimIndexBase: entry + int(animIndexIndex)}, nil
}

// FirstAnimIndex returns the local animation index at blend index (0, 0).
func (r *Reader) FirstAnimIndex(sd SeqDesc) (int, error) {
	if sd.GroupSize0 <= 0 || sd.GroupSize1 <= 0 {
		return 0, errIndexRange
	}
	idx, err := r.V.I16(sd.AnimIndexBase)
	if err != nil {
		return 0, err
	}
	return int(idx), nil
}
