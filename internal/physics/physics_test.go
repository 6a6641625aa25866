package physics

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/srcmdl/srcdecode/internal/mathutil"
)

func putI32b(b []byte, off int, v int32) { binary.LittleEndian.PutUint32(b[off:], uint32(v)) }
func putI16b(b []byte, off int, v int16) { binary.LittleEndian.PutUint16(b[off:], uint16(v)) }
func putF32b(b []byte, off int, v float32) { binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v)) }

// buildLegacySolidBlob lays out one legacy (no VPHY prefix) compact-surface
// blob with a one-node ledge tree holding a single four-point ledge, per
// internal/phy's documented field offsets — the same layout
// internal/phy/phy_test.go's TestLedgeTreeWalkAndPointDecode exercises
// piecewise, assembled here end to end through a real solid blob.
func buildLegacySolidBlob() []byte {
	const (
		legacyCookieOffset  = 44
		ledgeTreeRootOffset = 32
		nodeOff             = 60
		ledgeOff            = 100
		pointOffsetRel      = 48 // relative to ledgeOff
		triArrayOff         = ledgeOff + 16 // compactLedgeSize
	)
	pointsOff := ledgeOff + pointOffsetRel
	total := pointsOff + 4*16

	buf := make([]byte, total)
	putI32b(buf, legacyCookieOffset, 0) // recognized legacy cookie
	putI32b(buf, ledgeTreeRootOffset, nodeOff)

	putI32b(buf, nodeOff+0, 0)                  // offsetRightNode: single leaf
	putI32b(buf, nodeOff+4, int32(ledgeOff-nodeOff)) // offsetCompactLedge

	putI32b(buf, ledgeOff+0, int32(pointOffsetRel)) // pointOffset
	putI16b(buf, ledgeOff+12, 2)                    // numTriangles

	// Two triangles whose edges touch exactly four distinct point indices.
	tri0 := triArrayOff
	tri1 := triArrayOff + 16
	binary.LittleEndian.PutUint32(buf[tri0+4:], 0)
	binary.LittleEndian.PutUint32(buf[tri0+8:], 1)
	binary.LittleEndian.PutUint32(buf[tri0+12:], 2)
	binary.LittleEndian.PutUint32(buf[tri1+4:], 0)
	binary.LittleEndian.PutUint32(buf[tri1+8:], 2)
	binary.LittleEndian.PutUint32(buf[tri1+12:], 3)

	points := [4][3]float32{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {0, 0, 10}}
	for i, p := range points {
		base := pointsOff + i*16
		putF32b(buf, base+0, p[0])
		putF32b(buf, base+4, p[1])
		putF32b(buf, base+8, p[2])
	}
	return buf
}

func buildPHYFile(kv string) []byte {
	solid := buildLegacySolidBlob()
	const fileHeaderSize = 16
	size := fileHeaderSize + 4 + len(solid) + 4 + len(solid) + len(kv)
	buf := make([]byte, size)
	putI32b(buf, 0, fileHeaderSize)
	putI32b(buf, 4, 0) // ident
	putI32b(buf, 8, 2) // solidCount
	putI32b(buf, 12, 1)

	off := fileHeaderSize
	putI32b(buf, off, int32(len(solid)))
	copy(buf[off+4:], solid)
	off += 4 + len(solid)
	putI32b(buf, off, int32(len(solid)))
	copy(buf[off+4:], solid)
	off += 4 + len(solid)
	copy(buf[off:], kv)
	return buf
}

func TestDecodeHingeJointEndToEndPicksFreeAxisLimits(t *testing.T) {
	kv := `solid { index "0" name "parent" parent "-1" mass "5" }` +
		`solid { index "1" name "child" parent "0" mass "5" }` +
		`ragdollconstraint { parent "0" child "1" ymin "-60" ymax "60" }`
	result, err := Decode(buildPHYFile(kv), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(result.Bodies) != 2 {
		t.Fatalf("len(Bodies) = %d, want 2", len(result.Bodies))
	}
	if len(result.Joints) != 1 {
		t.Fatalf("len(Joints) = %d, want 1", len(result.Joints))
	}
	j := result.Joints[0]
	if j.Kind != JointHinge {
		t.Fatalf("Joints[0].Kind = %v, want JointHinge", j.Kind)
	}
	if j.TwistMin != -60 || j.TwistMax != 60 {
		t.Errorf("Joints[0] twist limits = [%v,%v], want [-60,60] (the free Y axis, through the full Decode pipeline)", j.TwistMin, j.TwistMax)
	}
}

func cube(min, max float32) Hull {
	return Hull{Points: [][3]float32{
		{min, min, min}, {max, min, min}, {min, max, min}, {min, min, max},
		{max, max, min}, {max, min, max}, {min, max, max}, {max, max, max},
	}}
}

func TestValidHullsRejectsTooFewPoints(t *testing.T) {
	hulls := []Hull{{Points: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}}
	if got := validHulls(hulls); len(got) != 0 {
		t.Errorf("validHulls with 3 points = %v, want empty", got)
	}
}

func TestValidHullsRejectsFlatExtent(t *testing.T) {
	hulls := []Hull{cube(0, 0.005)}
	if got := validHulls(hulls); len(got) != 0 {
		t.Errorf("validHulls with sub-threshold extent = %v, want empty", got)
	}
}

func TestValidHullsKeepsRealVolume(t *testing.T) {
	hulls := []Hull{cube(0, 10)}
	got := validHulls(hulls)
	if len(got) != 1 {
		t.Fatalf("validHulls with real cube = %d hulls, want 1", len(got))
	}
}

func TestIvpToSourcePoint(t *testing.T) {
	got := ivpToSourcePoint([3]float32{1, 2, 3})
	k := float32(ivpToSource)
	want := [3]float32{1 * k, 3 * k, -2 * k}
	if got != want {
		t.Errorf("ivpToSourcePoint((1,2,3)) = %v, want %v", got, want)
	}
}

func TestAtoiOrFallback(t *testing.T) {
	if got := atoiOr("", 7); got != 7 {
		t.Errorf("atoiOr(empty) = %d, want fallback 7", got)
	}
	if got := atoiOr("not a number", 7); got != 7 {
		t.Errorf("atoiOr(garbage) = %d, want fallback 7", got)
	}
	if got := atoiOr(" 42 ", 7); got != 42 {
		t.Errorf("atoiOr(\" 42 \") = %d, want 42", got)
	}
}

func TestAtofOrFallback(t *testing.T) {
	if got := atofOr("", 1.5); got != 1.5 {
		t.Errorf("atofOr(empty) = %v, want fallback 1.5", got)
	}
	if got := atofOr("3.25", 1.5); got != 3.25 {
		t.Errorf("atofOr(\"3.25\") = %v, want 3.25", got)
	}
}

func makeBodies() []Body {
	return []Body{
		{BoneName: "parent"},
		{BoneName: "child"},
	}
}

func TestBuildJointAllAxesLockedIsFixed(t *testing.T) {
	c := constraintInfo{parent: 0, child: 1}
	j := buildJoint(0, 1, c, makeBodies(), nil)
	if j.Kind != JointFixed {
		t.Errorf("buildJoint with all-zero ranges = %v, want JointFixed", j.Kind)
	}
}

func TestBuildJointOneFreeAxisIsHinge(t *testing.T) {
	c := constraintInfo{parent: 0, child: 1, xmin: -45, xmax: 45}
	j := buildJoint(0, 1, c, makeBodies(), nil)
	if j.Kind != JointHinge {
		t.Errorf("buildJoint with one free axis = %v, want JointHinge", j.Kind)
	}
	if j.TwistMin != -45 || j.TwistMax != 45 {
		t.Errorf("hinge twist limits = [%v,%v], want [-45,45]", j.TwistMin, j.TwistMax)
	}
}

func TestBuildJointYFreeAxisIsHingeUsesYLimits(t *testing.T) {
	c := constraintInfo{parent: 0, child: 1, ymin: -60, ymax: 60}
	j := buildJoint(0, 1, c, makeBodies(), nil)
	if j.Kind != JointHinge {
		t.Errorf("buildJoint with Y free axis = %v, want JointHinge", j.Kind)
	}
	if j.TwistMin != -60 || j.TwistMax != 60 {
		t.Errorf("hinge twist limits = [%v,%v], want [-60,60] (Y axis, not the locked X axis)", j.TwistMin, j.TwistMax)
	}
}

func TestBuildJointZFreeAxisIsHingeUsesZLimits(t *testing.T) {
	c := constraintInfo{parent: 0, child: 1, zmin: -30, zmax: 30}
	j := buildJoint(0, 1, c, makeBodies(), nil)
	if j.Kind != JointHinge {
		t.Errorf("buildJoint with Z free axis = %v, want JointHinge", j.Kind)
	}
	if j.TwistMin != -30 || j.TwistMax != 30 {
		t.Errorf("hinge twist limits = [%v,%v], want [-30,30] (Z axis, not the locked X axis)", j.TwistMin, j.TwistMax)
	}
}

func TestBuildJointTwoFreeAxesIsBall(t *testing.T) {
	c := constraintInfo{parent: 0, child: 1, xmin: -20, xmax: 20, ymin: -30, ymax: 30}
	j := buildJoint(0, 1, c, makeBodies(), nil)
	if j.Kind != JointBall {
		t.Errorf("buildJoint with two free axes = %v, want JointBall", j.Kind)
	}
	if j.SwingLimit != 30 {
		t.Errorf("ball swing limit = %v, want 30", j.SwingLimit)
	}
}

func TestBuildJointUsesBoneWorldWhenResolvable(t *testing.T) {
	boneWorld := map[string]mathutil.Transform{
		"parent": {Pos: mathutil.Vec3{1, 0, 0}, Rot: mathutil.Quat{0, 0, 0, 1}},
		"child":  {Pos: mathutil.Vec3{1, 1, 0}, Rot: mathutil.Quat{0, 0, 0, 1}},
	}
	c := constraintInfo{parent: 0, child: 1}
	j := buildJoint(0, 1, c, makeBodies(), boneWorld)
	want := mathutil.Vec3{0, 1, 0}
	if j.Frame1.Pos != want {
		t.Errorf("joint frame1 pos = %v, want %v (child relative to parent)", j.Frame1.Pos, want)
	}
}
