package mathutil

// Transform is a rigid position + rotation pair, the shape every bone world
// transform and joint frame in the decoded model is expressed in.
type Transform struct {
	Pos Vec3
	Rot Quat
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Pos: Vec3{}, Rot: Quat{0, 0, 0, 1}}
}

// Mat4 composes the transform into a 4×4 matrix for chaining.
func (t Transform) Mat4() Mat4 {
	return FromMat3Translation(QuatToMat3(t.Rot), t.Pos)
}

// FromMat4 decomposes a rigid 4×4 matrix back into a Transform.
func FromMat4(m Mat4) Transform {
	return Transform{Pos: m.Translation(), Rot: Mat3ToQuat(m.Rotation())}
}

// Compose returns a ∘ b: apply b first, then a.
func Compose(a, b Transform) Transform {
	return FromMat4(Mat4Mul(a.Mat4(), b.Mat4()))
}

// Inverse returns the inverse of a rigid transform.
func (t Transform) Inverse() Transform {
	return FromMat4(t.Mat4().Inverse())
}
