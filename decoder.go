package srcdecode

import (
	"strings"

	"github.com/srcmdl/srcdecode/internal/ani"
	"github.com/srcmdl/srcdecode/internal/animation"
	"github.com/srcmdl/srcdecode/internal/mathutil"
	"github.com/srcmdl/srcdecode/internal/material"
	"github.com/srcmdl/srcdecode/internal/mdl"
	"github.com/srcmdl/srcdecode/internal/meshbuild"
	"github.com/srcmdl/srcdecode/internal/physics"
	"github.com/srcmdl/srcdecode/internal/skeleton"
	"github.com/srcmdl/srcdecode/internal/vtx"
	"github.com/srcmdl/srcdecode/internal/vvd"
)

// DecodeModel converts the five binary artifacts of a Half-Life-2-era
// skeletal model into a single decoded Model. mdlData, vvdData, and vtxData
// are required; aniData and phyData may be nil. resolver is consulted for
// include-model siblings and material existence probes; materials, if
// non-nil, turns a resolved material path into an opaque handle.
//
// Grounded on the teacher's cmd/render/main.go load -> validate -> transform
// -> emit pipeline shape, expressed here as a single pure function per the
// external-interfaces design rather than a CLI orchestration.
func DecodeModel(mdlData, vvdData, vtxData, aniData, phyData []byte, path string, resolver AssetResolver, materials MaterialLoader) (*Model, *DecodeError) {
	mdlReader, err := mdl.New(mdlData)
	if err != nil {
		return nil, errf(NotAStudioModel, "%v", err)
	}
	vvdReader, err := vvd.New(vvdData)
	if err != nil {
		return nil, errf(MissingRequiredSibling, "vvd: %v", err)
	}
	vtxReader, err := vtx.New(vtxData)
	if err != nil {
		return nil, errf(MissingRequiredSibling, "vtx: %v", err)
	}

	mdlChecksum, err := mdlReader.Checksum()
	if err != nil {
		return nil, errf(Malformed, "mdl checksum: %v", err)
	}
	vvdChecksum, err := vvdReader.Checksum()
	if err != nil {
		return nil, errf(Malformed, "vvd checksum: %v", err)
	}
	vtxChecksum, err := vtxReader.Checksum()
	if err != nil {
		return nil, errf(Malformed, "vtx checksum: %v", err)
	}
	if mdlChecksum != vvdChecksum || mdlChecksum != vtxChecksum {
		return nil, errf(ChecksumMismatch, "mdl=%d vvd=%d vtx=%d", mdlChecksum, vvdChecksum, vtxChecksum)
	}

	b := newModelBuilder()

	numBones, err := mdlReader.NumBones()
	if err != nil {
		return nil, errf(Malformed, "bone count: %v", err)
	}
	mdlBones := make([]mdl.Bone, numBones)
	skelBones := make([]skeleton.Bone, numBones)
	for i := 0; i < numBones; i++ {
		mb, err := mdlReader.Bone(i)
		if err != nil {
			return nil, errf(Malformed, "bone %d: %v", i, err)
		}
		mdlBones[i] = mb
		skelBones[i] = skeleton.Bone{
			Parent: mb.Parent,
			Local:  mathutil.Transform{Pos: vec3From32(mb.Pos), Rot: quatFrom32(mb.Quat)},
		}
	}
	worlds := skeleton.BuildWorldTransforms(skelBones)
	boneWorldByName := make(map[string]mathutil.Transform, numBones)
	for i, mb := range mdlBones {
		parentName := ""
		if mb.Parent >= 0 && mb.Parent < numBones {
			parentName = mdlBones[mb.Parent].Name
		}
		b.AddBone(mb.Name, parentName, worlds[i])
		boneWorldByName[strings.ToLower(mb.Name)] = worlds[i]
	}
	for i := range b.model.Bones {
		b.model.Bones[i].LocalPos = mdlBones[i].Pos
		b.model.Bones[i].LocalRot = mdlBones[i].Quat
		b.model.Bones[i].LocalEuler = mdlBones[i].Euler
		b.model.Bones[i].PosScale = mdlBones[i].PosScale
		b.model.Bones[i].RotScale = mdlBones[i].RotScale
	}

	cdPaths, _ := mdlReader.CDTexturePaths()
	resolveMaterial := func(textureIndex int) meshbuild.Material {
		name, err := mdlReader.TextureName(textureIndex)
		if err != nil || name == "" {
			return meshbuild.Material{}
		}
		resolved, ok := material.Resolve(assetResolverAdapter{resolver}, name, cdPaths)
		if !ok {
			return meshbuild.Material{Name: name, Present: false}
		}
		mat := meshbuild.Material{Name: resolved, Present: true}
		if materials != nil {
			if handle, ok := materials.Load(resolved); ok {
				mat.Handle = handle
			}
		}
		return mat
	}

	bodyParts, err := meshbuild.Assemble(mdlReader, vvdReader, vtxReader, mdlReader.RootLOD(), resolveMaterial)
	if err != nil {
		return nil, errf(Malformed, "mesh assembly: %v", err)
	}
	for _, bp := range bodyParts {
		for smi, sm := range bp.SubModels {
			b.AddSubModel(bp.Name, smi, sm.Name)
			for _, mesh := range sm.Meshes {
				b.AddMesh(convertMesh(mesh, bp.Name))
			}
		}
	}

	if phyData != nil {
		if phys, err := physics.Decode(phyData, boneWorldByName); err == nil {
			for _, body := range phys.Bodies {
				b.AddBody(body.Mass, body.Surface, body.BoneName, convertHulls(body.Hulls), body.SolidIdx)
			}
			for _, j := range phys.Joints {
				switch j.Kind {
				case physics.JointFixed:
					b.AddFixedJoint(j.ParentBody, j.ChildBody, j.Frame1, j.Frame2)
				case physics.JointHinge:
					b.AddHingeJoint(j.ParentBody, j.ChildBody, j.Frame1, j.Frame2, j.TwistMin, j.TwistMax)
				case physics.JointBall:
					b.AddBallJoint(j.ParentBody, j.ChildBody, j.Frame1, j.Frame2, j.SwingLimit, j.TwistMin, j.TwistMax)
				}
			}
		}
	}

	mainBasePose := make([]animation.BonePose, numBones)
	identityRemap := make([]int, numBones)
	for i, mb := range mdlBones {
		mainBasePose[i] = animation.PoseFromMDLBone(mb)
		identityRemap[i] = i
	}

	var aniReader *ani.Reader
	if aniData != nil {
		aniReader = ani.New(aniData)
	}
	if anims, err := animation.Decode(mdlReader, aniReader, identityRemap, mainBasePose); err == nil {
		for _, a := range anims {
			b.AddAnimation(a.Name, a.Fps, a.Looping, a.Delta, convertFrames(a.Frames))
		}
	}

	decodeIncludeModels(mdlReader, resolver, b.model.Bones, mainBasePose, b)

	return b.Build(), nil
}

// decodeIncludeModels resolves each declared include-model path, remaps its
// bone indices to the main skeleton by case-insensitive name, and appends
// its animations. Any failure for a given include model skips it silently
// (§7: non-fatal and local).
func decodeIncludeModels(mdlReader *mdl.Reader, resolver AssetResolver, mainBones []Bone, mainBasePose []animation.BonePose, b *modelBuilder) {
	if resolver == nil {
		return
	}
	n, err := mdlReader.NumIncludeModels()
	if err != nil {
		return
	}
	mainIndexByName := make(map[string]int, len(mainBones))
	for i, bone := range mainBones {
		mainIndexByName[strings.ToLower(bone.Name)] = i
	}

	for i := 0; i < n; i++ {
		inc, err := mdlReader.IncludeModel(i)
		if err != nil || inc.Name == "" {
			continue
		}
		data, ok := resolver.Read(strings.ToLower(inc.Name))
		if !ok {
			continue
		}
		incReader, err := mdl.New(data)
		if err != nil {
			continue
		}
		incBoneCount, err := incReader.NumBones()
		if err != nil {
			continue
		}
		remap := make([]int, incBoneCount)
		for j := 0; j < incBoneCount; j++ {
			ib, err := incReader.Bone(j)
			if err != nil {
				remap[j] = -1
				continue
			}
			if dest, ok := mainIndexByName[strings.ToLower(ib.Name)]; ok {
				remap[j] = dest
			} else {
				remap[j] = -1
			}
		}

		var incAniReader *ani.Reader
		aniPath := incSiblingPath(inc.Name, ".ani")
		if aniData, ok := resolver.Read(aniPath); ok {
			incAniReader = ani.New(aniData)
		}

		anims, err := animation.Decode(incReader, incAniReader, remap, mainBasePose)
		if err != nil {
			continue
		}
		for _, a := range anims {
			b.AddAnimation(a.Name, a.Fps, a.Looping, a.Delta, convertFrames(a.Frames))
		}
	}
}

func incSiblingPath(modelPath, ext string) string {
	p := strings.ToLower(modelPath)
	if dot := strings.LastIndexByte(p, '.'); dot >= 0 {
		p = p[:dot]
	}
	return p + ext
}

func convertMesh(mesh meshbuild.Mesh, bodyPartName string) Mesh {
	vertices := make([]Vertex, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		vertices[i] = Vertex{
			Position: v.Position, Normal: v.Normal, Tangent: v.Tangent, UV: v.UV,
			BoneIDs: v.BoneIDs, BoneWeights: v.BoneWeights, NumBones: v.NumBones,
		}
	}
	mat := Material{Name: mesh.Material.Name, Handle: mesh.Material.Handle, Present: mesh.Material.Present}
	if mesh.Material.Eye != nil {
		mat.Eye = &EyeMaterial{IrisU: mesh.Material.Eye.IrisU, IrisV: mesh.Material.Eye.IrisV}
	}
	return Mesh{
		Material:     mat,
		Vertices:     vertices,
		Indices:      mesh.Indices,
		Bounds:       Bounds{Min: mesh.Bounds.Min, Max: mesh.Bounds.Max},
		BodyPartName: bodyPartName,
		SubModelIdx:  mesh.SubModelIdx,
	}
}

func convertHulls(hulls []physics.Hull) []PhysicsHull {
	out := make([]PhysicsHull, len(hulls))
	for i, h := range hulls {
		out[i] = PhysicsHull{Points: h.Points}
	}
	return out
}

func convertFrames(frames []animation.Frame) []AnimationFrame {
	out := make([]AnimationFrame, len(frames))
	for i, f := range frames {
		out[i] = AnimationFrame{Transforms: f.Transforms}
	}
	return out
}

func vec3From32(v [3]float32) mathutil.Vec3 {
	return mathutil.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func quatFrom32(q [4]float32) mathutil.Quat {
	return mathutil.Quat{float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])}
}

// assetResolverAdapter narrows the public AssetResolver to the Exists-only
// shape internal/material depends on, keeping that package free of an
// import on the root package.
type assetResolverAdapter struct {
	r AssetResolver
}

func (a assetResolverAdapter) Exists(path string) bool {
	if a.r == nil {
		return false
	}
	return a.r.Exists(path)
}
