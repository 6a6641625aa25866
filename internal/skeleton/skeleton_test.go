package skeleton

import (
	"testing"

	"github.com/srcmdl/srcdecode/internal/mathutil"
)

func TestBuildWorldTransformsRootIsLocal(t *testing.T) {
	bones := []Bone{
		{Parent: -1, Local: mathutil.Transform{Pos: mathutil.Vec3{1, 2, 3}, Rot: mathutil.Quat{0, 0, 0, 1}}},
	}
	worlds := BuildWorldTransforms(bones)
	if worlds[0].Pos != bones[0].Local.Pos {
		t.Errorf("root world pos = %v, want %v", worlds[0].Pos, bones[0].Local.Pos)
	}
}

func TestBuildWorldTransformsChainsThroughParent(t *testing.T) {
	bones := []Bone{
		{Parent: -1, Local: mathutil.Transform{Pos: mathutil.Vec3{1, 0, 0}, Rot: mathutil.Quat{0, 0, 0, 1}}},
		{Parent: 0, Local: mathutil.Transform{Pos: mathutil.Vec3{0, 1, 0}, Rot: mathutil.Quat{0, 0, 0, 1}}},
		{Parent: 1, Local: mathutil.Transform{Pos: mathutil.Vec3{0, 0, 1}, Rot: mathutil.Quat{0, 0, 0, 1}}},
	}
	worlds := BuildWorldTransforms(bones)
	want := mathutil.Vec3{1, 1, 1}
	got := worlds[2].Pos
	if got != want {
		t.Errorf("leaf world pos = %v, want %v", got, want)
	}
}

func TestBuildWorldTransformsEmpty(t *testing.T) {
	if got := BuildWorldTransforms(nil); len(got) != 0 {
		t.Errorf("BuildWorldTransforms(nil) = %v, want empty", got)
	}
}
