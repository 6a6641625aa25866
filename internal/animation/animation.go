// Package animation decodes per-sequence animation tracks: locating each
// frame's bone-record chain (co-located in the MDL buffer or segmented
// across an ANI side-file), walking it, and composing raw/compressed
// rotation and position payloads into per-bone local transforms (§4.5). It
// has no teacher equivalent; the per-bone, per-frame small-integer-keyed
// iteration is grounded on internal/bmd/parser.go's action/key loop shape,
// and quaternion48/64 unpacking and ExtractAnimValue reuse the same
// bounds-checked binreader.View primitives every other reader in this
// decoder is built on.
package animation

import (
	"math"

	"github.com/srcmdl/srcdecode/internal/ani"
	"github.com/srcmdl/srcdecode/internal/binreader"
	"github.com/srcmdl/srcdecode/internal/mathutil"
	"github.com/srcmdl/srcdecode/internal/mdl"
)

const (
	flagRawPos  = 0x01
	flagRawRot  = 0x02
	flagAnimPos = 0x04
	flagAnimRot = 0x08
	flagRawRot2 = 0x20

	// flagLooping mirrors the real engine's STUDIO_LOOPING animdesc flag;
	// STUDIO_DELTA (spec.md's documented 0x04) is mdl.AnimFlagDelta.
	flagLooping = 0x01

	maxChainRecords = 4096
)

// BonePose is the subset of a local bone-table entry needed to compose
// flag payloads during decode.
type BonePose struct {
	Pos      mathutil.Vec3
	Rot      mathutil.Quat
	Euler    mathutil.Vec3
	PosScale mathutil.Vec3
	RotScale mathutil.Vec3
}

// PoseFromMDLBone converts a raw MDL bone-table entry into the pose shape
// this package composes flag payloads against; also used by callers
// (decoder.go) to build the main model's destination-indexed base pose.
func PoseFromMDLBone(b mdl.Bone) BonePose {
	return BonePose{
		Pos:      vec3From32(b.Pos),
		Rot:      quatFrom32(b.Quat),
		Euler:    vec3From32(b.Euler),
		PosScale: vec3From32(b.PosScale),
		RotScale: vec3From32(b.RotScale),
	}
}

func vec3From32(v [3]float32) mathutil.Vec3 {
	return mathutil.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func quatFrom32(q [4]float32) mathutil.Quat {
	return mathutil.Quat{float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])}
}

// Frame is one dense destination-bone-indexed transform array.
type Frame struct {
	Transforms []mathutil.Transform
}

// Animation is one decoded sequence's track.
type Animation struct {
	Name    string
	Fps     float32
	Looping bool
	Delta   bool
	Frames  []Frame
}

// Decode produces one Animation per sequence descriptor in src, per §4.5.
// remap maps src's local bone index to a destination bone index (or -1 to
// drop); pass an identity slice for the main model itself. mainBasePose is
// indexed by destination bone index and seeds every frame's untouched
// bones; aniReader may be nil if no .ani side-file accompanies src.
func Decode(src *mdl.Reader, aniReader *ani.Reader, remap []int, mainBasePose []BonePose) ([]Animation, error) {
	numSeq, err := src.NumLocalSeq()
	if err != nil {
		return nil, err
	}

	var out []Animation
	for si := 0; si < numSeq; si++ {
		seq, err := src.SeqDesc(si)
		if err != nil {
			continue
		}
		animIdx, err := src.FirstAnimIndex(seq)
		if err != nil {
			continue
		}
		ad, err := src.AnimDesc(animIdx)
		if err != nil || ad.NumFrames == 0 {
			continue
		}

		anim := Animation{
			Name:    seq.Name,
			Fps:     ad.Fps,
			Looping: ad.Flags&flagLooping != 0,
			Delta:   ad.Flags&mdl.AnimFlagDelta != 0,
		}
		for k := 0; k < ad.NumFrames; k++ {
			frame, ok := decodeFrame(src, aniReader, ad, k, anim.Delta, remap, mainBasePose)
			if !ok {
				continue
			}
			anim.Frames = append(anim.Frames, frame)
		}
		out = append(out, anim)
	}
	return out, nil
}

func decodeFrame(src *mdl.Reader, aniReader *ani.Reader, ad mdl.AnimDesc, k int, delta bool, remap []int, mainBasePose []BonePose) (Frame, bool) {
	chain, ok := resolveChain(src, aniReader, ad, k)
	if !ok {
		return Frame{}, false
	}

	transforms := make([]mathutil.Transform, len(mainBasePose))
	for b := range transforms {
		if delta {
			transforms[b] = mathutil.Identity()
		} else {
			transforms[b] = mathutil.Transform{Pos: mainBasePose[b].Pos, Rot: mainBasePose[b].Rot}
		}
	}

	current := 0
	for rec := 0; rec < maxChainRecords; rec++ {
		boneLocal, err1 := chain.U8(current)
		flags, err2 := chain.U8(current + 1)
		nextOff, err3 := chain.I16(current + 2)
		if err1 != nil || err2 != nil || err3 != nil {
			break
		}
		payloadStart := current + 4

		destIdx := -1
		if int(boneLocal) < len(remap) {
			destIdx = remap[boneLocal]
		}
		if destIdx >= 0 && destIdx < len(transforms) {
			if base, err := src.Bone(int(boneLocal)); err == nil {
				transforms[destIdx] = decodeBoneRecord(chain, payloadStart, flags, k, delta, PoseFromMDLBone(base))
			}
		}

		if nextOff == 0 {
			break
		}
		current += int(nextOff)
	}
	return Frame{Transforms: transforms}, true
}

// resolveChain locates the absolute bone-record chain for frame k, per
// §4.5 step 1.
func resolveChain(src *mdl.Reader, aniReader *ani.Reader, ad mdl.AnimDesc, k int) (binreader.View, bool) {
	block, index := ad.AnimBlock, ad.AnimIndex
	if ad.SectionFrames != 0 {
		var sectionIdx int
		if k == ad.NumFrames-1 {
			sectionIdx = ad.NumFrames/ad.SectionFrames + 1
		} else {
			sectionIdx = k / ad.SectionFrames
		}
		sec, err := src.AnimSection(ad, sectionIdx)
		if err != nil {
			return binreader.View{}, false
		}
		block, index = sec.Block, sec.Index
	}

	if block == 0 {
		return src.V.Sub(ad.EntryOffset + index), true
	}
	if aniReader == nil {
		return binreader.View{}, false
	}
	blockOff, err := src.AnimBlockOffset(block)
	if err != nil {
		return binreader.View{}, false
	}
	return aniReader.BlockView(blockOff + index), true
}

// decodeBoneRecord composes one bone record's rotation and position
// payload into a local transform, per §4.5 step 4.
func decodeBoneRecord(v binreader.View, payloadStart int, flags uint8, k int, delta bool, base BonePose) mathutil.Transform {
	rot, rotSize := decodeRotation(v, payloadStart, flags, k, delta, base)
	pos := decodePosition(v, payloadStart+rotSize, flags, k, delta, base)
	return mathutil.Transform{Pos: pos, Rot: rot}
}

func decodeRotation(v binreader.View, off int, flags uint8, k int, delta bool, base BonePose) (mathutil.Quat, int) {
	switch {
	case flags&flagRawRot2 != 0:
		raw, err := v.U64(off)
		if err != nil {
			return defaultRot(delta, base), 8
		}
		return quat64(raw), 8
	case flags&flagRawRot != 0:
		var raw [3]uint16
		ok := true
		for i := 0; i < 3; i++ {
			u, err := v.U16(off + i*2)
			if err != nil {
				ok = false
				break
			}
			raw[i] = u
		}
		if !ok {
			return defaultRot(delta, base), 6
		}
		return quat48(raw), 6
	case flags&flagAnimRot != 0:
		euler := decodeCompressedTrack(v, off, k, base.RotScale)
		if !delta {
			euler = euler.Add(base.Euler)
		}
		return mathutil.EulerToQuat(euler[0], euler[1], euler[2]), 6
	default:
		return defaultRot(delta, base), 0
	}
}

func defaultRot(delta bool, base BonePose) mathutil.Quat {
	if delta {
		return mathutil.Quat{0, 0, 0, 1}
	}
	return base.Rot
}

func decodePosition(v binreader.View, off int, flags uint8, k int, delta bool, base BonePose) mathutil.Vec3 {
	switch {
	case flags&flagRawPos != 0:
		var h [3]uint16
		ok := true
		for i := 0; i < 3; i++ {
			u, err := v.U16(off + i*2)
			if err != nil {
				ok = false
				break
			}
			h[i] = u
		}
		if !ok {
			return defaultPos(delta, base)
		}
		return mathutil.Vec3{
			float64(halfToFloat32(h[0])),
			float64(halfToFloat32(h[1])),
			float64(halfToFloat32(h[2])),
		}
	case flags&flagAnimPos != 0:
		p := decodeCompressedTrack(v, off, k, base.PosScale)
		if !delta {
			p = p.Add(base.Pos)
		}
		return p
	default:
		return defaultPos(delta, base)
	}
}

func defaultPos(delta bool, base BonePose) mathutil.Vec3 {
	if delta {
		return mathutil.Vec3{}
	}
	return base.Pos
}

// decodeCompressedTrack reads the three i16 sub-offsets at off and
// resolves each axis through ExtractAnimValue, scaled by the matching
// scale component. A zero sub-offset yields an axis value of 0.
func decodeCompressedTrack(v binreader.View, off, k int, scale mathutil.Vec3) mathutil.Vec3 {
	var out mathutil.Vec3
	for axis := 0; axis < 3; axis++ {
		sub, err := v.I16(off + axis*2)
		if err != nil || sub == 0 {
			continue
		}
		out[axis] = extractAnimValue(v, off+int(sub), k) * scale[axis]
	}
	return out
}

// extractAnimValue walks the (valid, total) run-length stream anchored at
// off, returning the k-th value (or the held last value within a run),
// per §4.5 step 5. Returns 0 on buffer overrun or a malformed stream.
func extractAnimValue(v binreader.View, off, k int) float64 {
	for iter := 0; iter < maxChainRecords; iter++ {
		valid, err1 := v.U8(off)
		total, err2 := v.U8(off + 1)
		if err1 != nil || err2 != nil {
			return 0
		}
		if k < int(total) {
			idx := k
			if idx >= int(valid) {
				idx = int(valid) - 1
			}
			if idx < 0 {
				return 0
			}
			raw, err := v.I16(off + 2 + idx*2)
			if err != nil {
				return 0
			}
			return float64(raw)
		}
		k -= int(total)
		off += 2 + int(valid)*2
	}
	return 0
}

func quat48(raw [3]uint16) mathutil.Quat {
	x := (float64(raw[0]) - 32768) / 32768
	y := (float64(raw[1]) - 32768) / 32768
	z := (float64(raw[2]&0x7FFF) - 16384) / 16384
	wSq := 1 - x*x - y*y - z*z
	if wSq < 0 {
		wSq = 0
	}
	w := math.Sqrt(wSq)
	if raw[2]&0x8000 != 0 {
		w = -w
	}
	return mathutil.Quat{x, y, z, w}
}

func quat64(raw uint64) mathutil.Quat {
	const fieldMax = 1048576.5
	xRaw := raw & 0x1FFFFF
	yRaw := (raw >> 21) & 0x1FFFFF
	zRaw := (raw >> 42) & 0x1FFFFF
	x := (float64(xRaw) - 1048576) / fieldMax
	y := (float64(yRaw) - 1048576) / fieldMax
	z := (float64(zRaw) - 1048576) / fieldMax
	wSq := 1 - x*x - y*y - z*z
	if wSq < 0 {
		wSq = 0
	}
	w := math.Sqrt(wSq)
	if raw&(1<<63) != 0 {
		w = -w
	}
	return mathutil.Quat{x, y, z, w}
}

// halfToFloat32 converts an IEEE-754 binary16 value to float32.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h) & 0x3FF

	var bits uint32
	switch exp {
	case 0:
		if frac == 0 {
			bits = sign << 31
		} else {
			exp2 := uint32(127 - 15 + 1)
			for frac&0x400 == 0 {
				frac <<= 1
				exp2--
			}
			frac &= 0x3FF
			bits = (sign << 31) | (exp2 << 23) | (frac << 13)
		}
	case 0x1F:
		bits = (sign << 31) | (0xFF << 23) | (frac << 13)
	default:
		bits = (sign << 31) | ((exp - 15 + 127) << 23) | (frac << 13)
	}
	return math.Float32frombits(bits)
}
