package animation

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/srcmdl/srcdecode/internal/binreader"
	"github.com/srcmdl/srcdecode/internal/mdl"
)

func putI32(b []byte, off int, v int32)   { binary.LittleEndian.PutUint32(b[off:], uint32(v)) }
func putU16(b []byte, off int, v uint16)  { binary.LittleEndian.PutUint16(b[off:], v) }
func putF32(b []byte, off int, v float32) { binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v)) }

// buildDeltaAnimMDL lays out one bone, one delta-flagged anim descriptor with
// a single-frame, co-located, raw-rotation bone-record chain, and one
// sequence descriptor referencing it — enough to drive Decode end to end
// instead of only its leaf helpers.
func buildDeltaAnimMDL() []byte {
	const (
		headerSize = mdl.HeaderSize
		offID              = 0
		offVersion         = 4
		offNumBones        = 156
		offBoneIndex       = 160
		offNumLocalAnim    = 180
		offLocalAnimIndex  = 184
		offNumLocalSeq     = 188
		offLocalSeqIndex   = 192

		boneEntrySize     = 72
		animDescEntrySize = 40
		seqDescEntrySize  = 24
	)

	boneOff := headerSize
	boneNameOff := boneOff + boneEntrySize
	animEntryOff := boneNameOff + len("root\x00")
	animNameOff := animEntryOff + animDescEntrySize
	chainOff := animNameOff + len("walk_delta\x00")
	seqEntryOff := chainOff + 10
	seqNameOff := seqEntryOff + seqDescEntrySize
	seqIdxOff := seqNameOff + len("walk_delta\x00")
	total := seqIdxOff + 2

	buf := make([]byte, total)
	copy(buf[offID:], "IDST")
	putI32(buf, offVersion, 49)
	putI32(buf, offNumBones, 1)
	putI32(buf, offBoneIndex, int32(boneOff))
	putI32(buf, offNumLocalAnim, 1)
	putI32(buf, offLocalAnimIndex, int32(animEntryOff))
	putI32(buf, offNumLocalSeq, 1)
	putI32(buf, offLocalSeqIndex, int32(seqEntryOff))

	putI32(buf, boneOff+0, int32(boneNameOff-boneOff))
	putI32(buf, boneOff+4, -1)
	putF32(buf, boneOff+32, 1) // quat.w
	putF32(buf, boneOff+48, 1)
	putF32(buf, boneOff+52, 1)
	putF32(buf, boneOff+56, 1)
	putF32(buf, boneOff+60, 1)
	putF32(buf, boneOff+64, 1)
	putF32(buf, boneOff+68, 1)
	copy(buf[boneNameOff:], "root\x00")

	putI32(buf, animEntryOff+0, int32(animNameOff-animEntryOff))
	putF32(buf, animEntryOff+4, 30)
	putI32(buf, animEntryOff+8, mdl.AnimFlagDelta)
	putI32(buf, animEntryOff+12, 1) // numFrames
	putI32(buf, animEntryOff+16, 0) // animBlock
	putI32(buf, animEntryOff+20, int32(chainOff-animEntryOff))
	copy(buf[animNameOff:], "walk_delta\x00")

	buf[chainOff+0] = 0    // boneLocal
	buf[chainOff+1] = 0x02 // flagRawRot
	putU16(buf, chainOff+4, 40000)
	putU16(buf, chainOff+6, 20000)
	putU16(buf, chainOff+8, 10000)

	putI32(buf, seqEntryOff+0, int32(seqNameOff-seqEntryOff))
	putI32(buf, seqEntryOff+4, 1)
	putI32(buf, seqEntryOff+8, 1)
	putI32(buf, seqEntryOff+12, int32(seqIdxOff-seqEntryOff))
	copy(buf[seqNameOff:], "walk_delta\x00")
	putU16(buf, seqIdxOff, 0)

	return buf
}

func TestDecodeDeltaAnimationZeroesUntouchedDefaultsAndDecodesRawRotation(t *testing.T) {
	buf := buildDeltaAnimMDL()
	r, err := mdl.New(buf)
	if err != nil {
		t.Fatalf("mdl.New() error = %v", err)
	}

	anims, err := Decode(r, nil, []int{0}, []BonePose{{}})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(anims) != 1 {
		t.Fatalf("len(anims) = %d, want 1", len(anims))
	}
	a := anims[0]
	if a.Name != "walk_delta" || !a.Delta {
		t.Fatalf("Decode() anim = %+v, want Name=walk_delta Delta=true", a)
	}
	if len(a.Frames) != 1 {
		t.Fatalf("len(Frames) = %d, want 1", len(a.Frames))
	}

	got := a.Frames[0].Transforms[0]
	wantRot := quat48([3]uint16{40000, 20000, 10000})
	if got.Rot != wantRot {
		t.Errorf("delta frame rotation = %v, want %v (decoded from the raw-rotation payload)", got.Rot, wantRot)
	}
	if got.Pos != (got.Pos.Scale(0)) {
		t.Errorf("delta frame position = %v, want the zero vector (no raw/anim position flag set)", got.Pos)
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-5
}

func TestHalfToFloat32Zero(t *testing.T) {
	if got := halfToFloat32(0); got != 0 {
		t.Errorf("halfToFloat32(0) = %v, want 0", got)
	}
}

func TestHalfToFloat32One(t *testing.T) {
	// 0x3C00 is 1.0 in IEEE-754 binary16.
	got := halfToFloat32(0x3C00)
	if !almostEqual(float64(got), 1.0) {
		t.Errorf("halfToFloat32(0x3C00) = %v, want 1.0", got)
	}
}

func TestHalfToFloat32NegativeTwo(t *testing.T) {
	// 0xC000 is -2.0 in IEEE-754 binary16.
	got := halfToFloat32(0xC000)
	if !almostEqual(float64(got), -2.0) {
		t.Errorf("halfToFloat32(0xC000) = %v, want -2.0", got)
	}
}

func TestQuat48IsUnit(t *testing.T) {
	q := quat48([3]uint16{40000, 20000, 10000})
	lenSq := q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]
	if !almostEqual(lenSq, 1.0) {
		t.Errorf("quat48(...) has squared length %v, want 1", lenSq)
	}
}

// quat64HalfXNegHalfY packs xRaw=0x180000, yRaw=0x080000, zRaw=0x100000
// (x≈+0.5, y≈-0.5, z=0), a valid encoding whose w is ≈0.7071.
const quat64HalfXNegHalfY = 0x4000010000180000

func TestQuat64IsUnit(t *testing.T) {
	q := quat64(quat64HalfXNegHalfY)
	lenSq := q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]
	if !almostEqual(lenSq, 1.0) {
		t.Errorf("quat64(...) has squared length %v, want 1", lenSq)
	}
}

func TestQuat64SignBitNegatesW(t *testing.T) {
	positive := quat64(quat64HalfXNegHalfY)
	negative := quat64(quat64HalfXNegHalfY | 1<<63)
	if positive[3] == 0 || positive[3] != -negative[3] {
		t.Errorf("quat64 sign bit: w=%v vs w=%v, want negation", positive[3], negative[3])
	}
}

// buildRLEStream encodes one (valid, total, values...) run followed by a
// terminating zero-valid/zero-total record, the shape extractAnimValue
// expects.
func buildRLEStream(valid, total uint8, values []int16) []byte {
	buf := []byte{valid, total}
	for _, v := range values {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf = append(buf, b[:]...)
	}
	buf = append(buf, 0, 0) // terminating empty run
	return buf
}

func TestExtractAnimValueWithinRun(t *testing.T) {
	data := buildRLEStream(3, 3, []int16{10, 20, 30})
	v := binreader.View{Data: data}
	if got := extractAnimValue(v, 0, 1); got != 20 {
		t.Errorf("extractAnimValue(k=1) = %v, want 20", got)
	}
}

func TestExtractAnimValueHoldsLastValidWithinRun(t *testing.T) {
	// 2 valid samples, but the run covers 4 frames: frames 2 and 3 hold the
	// last valid sample.
	data := buildRLEStream(2, 4, []int16{5, 15})
	v := binreader.View{Data: data}
	if got := extractAnimValue(v, 0, 3); got != 15 {
		t.Errorf("extractAnimValue(k=3, held) = %v, want 15 (last valid)", got)
	}
}

func TestExtractAnimValueAdvancesPastRun(t *testing.T) {
	first := buildRLEStream(1, 2, []int16{100})
	second := buildRLEStream(1, 2, []int16{200})
	data := append(first, second...)
	v := binreader.View{Data: data}
	if got := extractAnimValue(v, 0, 2); got != 200 {
		t.Errorf("extractAnimValue(k=2, second run) = %v, want 200", got)
	}
}

func TestExtractAnimValueOutOfRangeReturnsZero(t *testing.T) {
	v := binreader.View{Data: []byte{}}
	if got := extractAnimValue(v, 0, 0); got != 0 {
		t.Errorf("extractAnimValue on empty buffer = %v, want 0", got)
	}
}

func TestPoseFromMDLBoneConvertsFields(t *testing.T) {
	b := mdl.Bone{
		Pos:      [3]float32{1, 2, 3},
		Quat:     [4]float32{0, 0, 0, 1},
		Euler:    [3]float32{0.1, 0.2, 0.3},
		PosScale: [3]float32{1, 1, 1},
		RotScale: [3]float32{1, 1, 1},
	}
	pose := PoseFromMDLBone(b)
	if pose.Pos != (vec3From32(b.Pos)) {
		t.Errorf("PoseFromMDLBone Pos = %v, want %v", pose.Pos, vec3From32(b.Pos))
	}
	if pose.Rot != (quatFrom32(b.Quat)) {
		t.Errorf("PoseFromMDLBone Rot = %v, want %v", pose.Rot, quatFrom32(b.Quat))
	}
}

func TestDefaultPosDeltaIsZero(t *testing.T) {
	base := BonePose{Pos: vec3From32([3]float32{5, 6, 7})}
	if got := defaultPos(true, base); got != (base.Pos.Scale(0)) {
		t.Errorf("defaultPos(delta=true) = %v, want zero", got)
	}
	if got := defaultPos(false, base); got != base.Pos {
		t.Errorf("defaultPos(delta=false) = %v, want base pose %v", got, base.Pos)
	}
}

func TestDefaultRotDeltaIsIdentity(t *testing.T) {
	base := BonePose{Rot: quatFrom32([4]float32{0.1, 0.2, 0.3, 0.9})}
	if got := defaultRot(true, base); got != (mustIdentity()) {
		t.Errorf("defaultRot(delta=true) = %v, want identity", got)
	}
	if got := defaultRot(false, base); got != base.Rot {
		t.Errorf("defaultRot(delta=false) = %v, want base rot %v", got, base.Rot)
	}
}

func mustIdentity() [4]float64 { return [4]float64{0, 0, 0, 1} }

func TestHalfToFloat32Infinity(t *testing.T) {
	got := halfToFloat32(0x7C00) // +Inf in binary16
	if !math.IsInf(float64(got), 1) {
		t.Errorf("halfToFloat32(+Inf) = %v, want +Inf", got)
	}
}
