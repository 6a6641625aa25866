package srcdecode

// Builder is the sink interface the decoder drives while assembling a
// Model, mirroring the add_bone/add_mesh/add_body/add_*_joint/add_animation
// pseudo-API from the external-interfaces design. The fluent with_* chaining
// in that pseudo-API is flattened into plain struct parameters here — this
// corpus's builders (e.g. the teacher's config.Load/Resolve) pass fully-formed
// values rather than chain method calls, so DecodeModel's default builder
// follows that idiom instead of introducing fluent chaining fresh.
type Builder interface {
	AddBone(name, parentName string, world Transform) int
	AddSubModel(bodyPartName string, subModelIndex int, name string)
	AddMesh(mesh Mesh)
	AddBody(mass float32, surface, boneName string, hulls []PhysicsHull, solidIdx int) int
	AddFixedJoint(parentBody, childBody int, frame1, frame2 Transform)
	AddHingeJoint(parentBody, childBody int, frame1, frame2 Transform, twistMin, twistMax float32)
	AddBallJoint(parentBody, childBody int, frame1, frame2 Transform, swingLimit, twistMin, twistMax float32)
	AddAnimation(name string, fps float32, looping, delta bool, frames []AnimationFrame)
	Build() *Model
}

// modelBuilder is the default in-memory Builder: it simply accumulates
// every call into a Model.
type modelBuilder struct {
	model       Model
	boneIndex   map[string]int
}

func newModelBuilder() *modelBuilder {
	return &modelBuilder{boneIndex: map[string]int{}}
}

func (b *modelBuilder) AddBone(name, parentName string, world Transform) int {
	parent := -1
	if parentName != "" {
		if p, ok := b.boneIndex[parentName]; ok {
			parent = p
		}
	}
	idx := len(b.model.Bones)
	b.model.Bones = append(b.model.Bones, Bone{
		Name: name, Parent: parent, WorldTransform: world,
	})
	b.boneIndex[name] = idx
	return idx
}

func (b *modelBuilder) AddSubModel(bodyPartName string, subModelIndex int, name string) {
	bp := b.bodyPart(bodyPartName)
	for len(bp.SubModels) <= subModelIndex {
		bp.SubModels = append(bp.SubModels, SubModel{})
	}
	bp.SubModels[subModelIndex].Name = name
}

func (b *modelBuilder) AddMesh(mesh Mesh) {
	bp := b.bodyPart(mesh.BodyPartName)
	for len(bp.SubModels) <= mesh.SubModelIdx {
		bp.SubModels = append(bp.SubModels, SubModel{})
	}
	bp.SubModels[mesh.SubModelIdx].Meshes = append(bp.SubModels[mesh.SubModelIdx].Meshes, mesh)
}

// bodyPart returns the *BodyPart with the given name, creating it (in
// encounter order) on the first call that names it.
func (b *modelBuilder) bodyPart(name string) *BodyPart {
	for i := range b.model.BodyParts {
		if b.model.BodyParts[i].Name == name {
			return &b.model.BodyParts[i]
		}
	}
	b.model.BodyParts = append(b.model.BodyParts, BodyPart{Name: name})
	return &b.model.BodyParts[len(b.model.BodyParts)-1]
}

func (b *modelBuilder) AddBody(mass float32, surface, boneName string, hulls []PhysicsHull, solidIdx int) int {
	idx := len(b.model.Bodies)
	b.model.Bodies = append(b.model.Bodies, PhysicsBody{
		Mass: mass, Surface: surface, BoneName: boneName, Hulls: hulls, SolidIdx: solidIdx,
	})
	return idx
}

func (b *modelBuilder) AddFixedJoint(parentBody, childBody int, frame1, frame2 Transform) {
	b.model.Joints = append(b.model.Joints, Joint{
		Kind: JointFixed, ParentBody: parentBody, ChildBody: childBody, Frame1: frame1, Frame2: frame2,
	})
}

func (b *modelBuilder) AddHingeJoint(parentBody, childBody int, frame1, frame2 Transform, twistMin, twistMax float32) {
	b.model.Joints = append(b.model.Joints, Joint{
		Kind: JointHinge, ParentBody: parentBody, ChildBody: childBody, Frame1: frame1, Frame2: frame2,
		TwistMin: twistMin, TwistMax: twistMax,
	})
}

func (b *modelBuilder) AddBallJoint(parentBody, childBody int, frame1, frame2 Transform, swingLimit, twistMin, twistMax float32) {
	b.model.Joints = append(b.model.Joints, Joint{
		Kind: JointBall, ParentBody: parentBody, ChildBody: childBody, Frame1: frame1, Frame2: frame2,
		SwingLimit: swingLimit, TwistMin: twistMin, TwistMax: twistMax,
	})
}

func (b *modelBuilder) AddAnimation(name string, fps float32, looping, delta bool, frames []AnimationFrame) {
	b.model.Animations = append(b.model.Animations, Animation{
		Name: name, Fps: fps, Looping: looping, Delta: delta, Frames: frames,
	})
}

func (b *modelBuilder) Build() *Model { return &b.model }
