// Package srcdecode decodes the five binary artifacts of a Half-Life-2-era
// skeletal model (MDL/VVD/VTX/PHY plus optional ANI) into a single in-memory
// decoded Model — skeleton, skinned mesh geometry, per-sequence animation
// frames, and ragdoll physics solids and joints.
package srcdecode

import "github.com/srcmdl/srcdecode/internal/mathutil"

// Transform is a rigid position + rotation pair.
type Transform = mathutil.Transform

// Bone is one node of the decoded skeleton.
type Bone struct {
	Name           string
	Parent         int // -1 if root
	LocalPos       [3]float32
	LocalRot       [4]float32 // unit quaternion x,y,z,w
	LocalEuler     [3]float32
	PosScale       [3]float32
	RotScale       [3]float32
	WorldTransform Transform
}

// Vertex is one emitted, deduplicated mesh vertex.
type Vertex struct {
	Position   [3]float32
	Normal     [3]float32
	Tangent    [3]float32
	UV         [2]float32
	BoneIDs    [3]uint8
	BoneWeights [3]uint8 // fixed-point, sums to 255
	NumBones   int
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max [3]float32
}

// EyeMaterial carries the extra iris basis vectors an eyeball mesh's
// material substitution needs.
type EyeMaterial struct {
	IrisU [4]float32
	IrisV [4]float32
}

// Material is a resolved (or absent) material handle.
type Material struct {
	Name    string // resolved material path, e.g. "materials/models/player/eyeball.vmt"; the raw texture name when unresolved
	Handle  any    // opaque handle returned by the material loader collaborator
	Present bool
	Eye     *EyeMaterial
}

// Mesh is one (body part, sub-model, sub-mesh) with non-empty geometry.
type Mesh struct {
	Material     Material
	Vertices     []Vertex
	Indices      []uint32 // triangle list, CCW, three per triangle
	Bounds       Bounds
	BodyPartName string
	SubModelIdx  int
}

// SubModel mirrors one sub-model entry of a body part.
type SubModel struct {
	Name   string
	Meshes []Mesh
}

// BodyPart mirrors the input body-part hierarchy.
type BodyPart struct {
	Name      string
	SubModels []SubModel
}

// PhysicsHull is one convex ledge's point cloud, already converted to
// Source (inches) space.
type PhysicsHull struct {
	Points [][3]float32
}

// PhysicsBody is one valid ragdoll solid.
type PhysicsBody struct {
	Mass      float32
	Surface   string
	BoneName  string
	Hulls     []PhysicsHull
	SolidIdx  int // index into the PHY solid list this body came from
}

// JointKind classifies a ragdoll constraint.
type JointKind int

const (
	JointFixed JointKind = iota
	JointHinge
	JointBall
)

// Joint is one ragdoll constraint between two physics bodies.
type Joint struct {
	Kind        JointKind
	ParentBody  int
	ChildBody   int
	Frame1      Transform
	Frame2      Transform
	TwistMin    float32
	TwistMax    float32
	SwingLimit  float32
}

// AnimationFrame holds one dense per-bone transform array, indexed by
// destination (main-model) bone index.
type AnimationFrame struct {
	Transforms []Transform
}

// Animation is one decoded sequence's animation track.
type Animation struct {
	Name    string
	Fps     float32
	Looping bool
	Delta   bool
	Frames  []AnimationFrame
}

// Model is the complete decoded output of DecodeModel.
type Model struct {
	Bones      []Bone
	BodyParts  []BodyPart
	Bodies     []PhysicsBody
	Joints     []Joint
	Animations []Animation
}

// BoneIndexByName returns the index of the bone with the given name, or -1.
func (m *Model) BoneIndexByName(name string) int {
	for i, b := range m.Bones {
		if b.Name == name {
			return i
		}
	}
	return -1
}
