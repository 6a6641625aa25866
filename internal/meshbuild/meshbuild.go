// Package meshbuild joins VTX topology with VVD vertex data to emit
// deduplicated triangle lists per (body part, model, mesh), tagging each
// with a resolved material (§4.3 of the model-decoder design).
package meshbuild

import (
	"math"

	"github.com/srcmdl/srcdecode/internal/mdl"
	"github.com/srcmdl/srcdecode/internal/vtx"
	"github.com/srcmdl/srcdecode/internal/vvd"
)

// Vertex is one emitted, deduplicated mesh vertex.
type Vertex struct {
	Position    [3]float32
	Normal      [3]float32
	Tangent     [3]float32
	UV          [2]float32
	BoneIDs     [3]uint8
	BoneWeights [3]uint8
	NumBones    int
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max [3]float32
}

// EyeMaterial carries the iris basis vectors for an eyeball substitution.
type EyeMaterial struct {
	IrisU [4]float32
	IrisV [4]float32
}

// Material is a resolved (or absent) material reference.
type Material struct {
	Name    string
	Handle  any
	Present bool
	Eye     *EyeMaterial
}

// Mesh is one emitted (body part, sub-model, sub-mesh).
type Mesh struct {
	Material     Material
	Vertices     []Vertex
	Indices      []uint32
	Bounds       Bounds
	SubModelIdx  int
}

// SubModel is one emitted sub-model: its resolved name and its meshes.
type SubModel struct {
	Name   string
	Meshes []Mesh
}

// BodyPart is one emitted body part.
type BodyPart struct {
	Name      string
	SubModels []SubModel
	// Bounds is a spatial index over every emitted mesh's bounds in this
	// body part, letting a downstream renderer/physics host run O(log n)
	// overlap queries instead of a linear bounds scan.
	Bounds *BoundsIndex
}

// MaterialResolver resolves a texture-table index to a material, per §4.6.
type MaterialResolver func(textureIndex int) Material

// Assemble walks every body part with non-zero mesh count and returns the
// emitted geometry, per §4.3.
func Assemble(m *mdl.Reader, v *vvd.Reader, t *vtx.Reader, rootLOD int, resolve MaterialResolver) ([]BodyPart, error) {
	numRawVerts, err := countRawVertices(v)
	if err != nil {
		return nil, err
	}
	lodIndices, err := v.RootLODIndices(rootLOD, numRawVerts)
	if err != nil {
		return nil, err
	}

	numBP, err := m.NumBodyParts()
	if err != nil {
		return nil, err
	}
	vtxNumBP, err := t.NumBodyParts()
	if err != nil {
		return nil, err
	}

	var out []BodyPart
	for bpi := 0; bpi < numBP && bpi < vtxNumBP; bpi++ {
		mdlBP, err := m.BodyPart(bpi)
		if err != nil {
			continue
		}
		vtxBP, err := t.BodyPart(bpi)
		if err != nil {
			continue
		}
		bp := BodyPart{Name: mdlBP.Name}
		numModels := mdlBP.NumModels
		if vtxBP.NumModels < numModels {
			numModels = vtxBP.NumModels
		}
		for smi := 0; smi < numModels; smi++ {
			subModel, err := m.SubModel(mdlBP, smi)
			if err != nil || subModel.NumMeshes == 0 {
				continue
			}
			vtxModel, err := t.Model(vtxBP, smi)
			if err != nil {
				continue
			}
			vtxLOD, err := t.RootLOD(vtxModel)
			if err != nil {
				continue
			}
			sm, err := assembleSubModel(m, v, t, subModel, vtxLOD, smi, lodIndices, resolve)
			if err != nil {
				continue
			}
			if len(sm.Meshes) > 0 {
				bp.SubModels = append(bp.SubModels, sm)
			}
		}
		if len(bp.SubModels) > 0 {
			bp.Bounds = buildBoundsIndex(bp.SubModels)
			out = append(out, bp)
		}
	}
	return out, nil
}

// buildBoundsIndex collects every mesh's bounds in a body part and inserts
// them into a fresh spatial index.
func buildBoundsIndex(subModels []SubModel) *BoundsIndex {
	var bounds []Bounds
	for _, sm := range subModels {
		for _, mesh := range sm.Meshes {
			bounds = append(bounds, mesh.Bounds)
		}
	}
	return NewBoundsIndex(bounds)
}

// countRawVertices returns the total raw vertex-stream length, used only to
// size the identity (no-fixup) index sequence in RootLODIndices; real
// indices are always bounds-checked against the buffer by vvd.Reader.Vertex.
func countRawVertices(v *vvd.Reader) (int, error) {
	return v.NumLODVertexes(0)
}

func assembleSubModel(m *mdl.Reader, v *vvd.Reader, t *vtx.Reader, subModel mdl.Model, vtxLOD vtx.LOD, smIdx int, lodIndices []int, resolve MaterialResolver) (SubModel, error) {
	sm := SubModel{Name: subModel.Name}
	submodelVertexOffset := subModel.VertexIndex / 48

	eyesByTexture := map[int][]mdl.Eyeball{}
	for ei := 0; ei < subModel.NumEyeballs; ei++ {
		eb, err := m.Eyeball(subModel, ei)
		if err != nil {
			continue
		}
		eyesByTexture[eb.Texture] = append(eyesByTexture[eb.Texture], eb)
	}

	numMeshes := subModel.NumMeshes
	if vtxLOD.NumMeshes < numMeshes {
		numMeshes = vtxLOD.NumMeshes
	}

	var allPositions [][3]float32
	for mi := 0; mi < numMeshes; mi++ {
		mdlMesh, err := m.SubMesh(subModel, mi)
		if err != nil {
			continue
		}
		vtxMesh, err := t.Mesh(vtxLOD, mi)
		if err != nil {
			continue
		}

		material := resolve(mdlMesh.Material)
		if eyes, ok := eyesByTexture[mdlMesh.Material]; ok && len(eyes) > 0 {
			material.Eye = computeEyeMaterial(eyes[0])
		}

		mesh, err := assembleMesh(v, t, vtxMesh, mdlMesh.VertexOffset+submodelVertexOffset, lodIndices, material, smIdx)
		if err != nil || len(mesh.Vertices) == 0 {
			continue
		}
		for _, vx := range mesh.Vertices {
			allPositions = append(allPositions, vx.Position)
		}
		sm.Meshes = append(sm.Meshes, mesh)
	}

	if len(allPositions) > 0 {
		b := computeBounds(allPositions)
		for i := range sm.Meshes {
			sm.Meshes[i].Bounds = b
		}
	}
	return sm, nil
}

func assembleMesh(v *vvd.Reader, t *vtx.Reader, vtxMesh vtx.Mesh, meshVertexBase int, lodIndices []int, material Material, smIdx int) (Mesh, error) {
	mesh := Mesh{Material: material, SubModelIdx: smIdx}
	dedup := map[int]uint32{}

	emit := func(globalVVDIndex int) (uint32, bool) {
		if idx, ok := dedup[globalVVDIndex]; ok {
			return idx, true
		}
		if globalVVDIndex < 0 || globalVVDIndex >= len(lodIndices) {
			return 0, false
		}
		raw := lodIndices[globalVVDIndex]
		vv, err := v.Vertex(raw)
		if err != nil {
			return 0, false
		}
		tan, _ := v.Tangent(raw)
		bw := normalizeWeights(vv.Weights, vv.NumBones)
		out := Vertex{
			Position: vv.Position,
			Normal:   vv.Normal,
			Tangent:  [3]float32{tan[0], tan[1], tan[2]},
			UV:       vv.UV,
			BoneIDs:  vv.BoneIDs,
			BoneWeights: bw,
			NumBones: vv.NumBones,
		}
		idx := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, out)
		dedup[globalVVDIndex] = idx
		return idx, true
	}

	for sgi := 0; sgi < vtxMesh.NumStripGroups; sgi++ {
		sg, err := t.StripGroup(vtxMesh, sgi)
		if err != nil {
			continue
		}
		for si := 0; si < sg.NumStrips; si++ {
			strip, err := t.Strip(sg, si)
			if err != nil {
				continue
			}
			triples := stripTriples(strip)
			for _, tri := range triples {
				gv := [3]int{-1, -1, -1}
				ok := true
				for k := 0; k < 3; k++ {
					relIdx, err := t.Index(sg, strip.IndexOffset+tri[k])
					if err != nil {
						ok = false
						break
					}
					origID, err := t.Vertex(sg, relIdx)
					if err != nil {
						ok = false
						break
					}
					gv[k] = origID + meshVertexBase
				}
				if !ok {
					continue
				}
				// Reverse winding: emit (0, 2, 1).
				i0, i2, i1 := gv[0], gv[2], gv[1]
				if i0 == i1 || i1 == i2 || i0 == i2 {
					continue
				}
				e0, ok0 := emit(i0)
				e1, ok1 := emit(i2)
				e2, ok2 := emit(i1)
				if !ok0 || !ok1 || !ok2 {
					continue
				}
				mesh.Indices = append(mesh.Indices, e0, e1, e2)
			}
		}
	}
	return mesh, nil
}

// stripTriples expands one strip into raw (un-reversed) triangle index
// triples, each a position within the strip's own [0, NumIndices) range,
// per §4.3 step 4.
func stripTriples(s vtx.Strip) [][3]int {
	if s.Flags&vtx.StripFlagTriList != 0 {
		var out [][3]int
		for i := 0; i+2 < s.NumIndices; i += 3 {
			out = append(out, [3]int{i, i + 1, i + 2})
		}
		return out
	}
	// Triangle strip: indexCount - 2 triangles, odd positions swap the
	// first two source indices.
	var out [][3]int
	for p := 0; p+2 < s.NumIndices; p++ {
		if p%2 == 1 {
			out = append(out, [3]int{p + 1, p, p + 2})
		} else {
			out = append(out, [3]int{p, p + 1, p + 2})
		}
	}
	return out
}

// normalizeWeights converts up-to-3 float blend weights to 8-bit
// fixed-point summing to exactly 255, per §4.3 step 6.
func normalizeWeights(w [3]float32, numBones int) [3]uint8 {
	if numBones <= 0 {
		return [3]uint8{255, 0, 0}
	}
	var raw [3]int
	sum := 0
	for i := 0; i < numBones && i < 3; i++ {
		raw[i] = int(math.Round(float64(w[i]) * 255))
		sum += raw[i]
	}
	residual := 255 - sum
	largest := 0
	for i := 1; i < numBones && i < 3; i++ {
		if raw[i] > raw[largest] {
			largest = i
		}
	}
	raw[largest] += residual
	var out [3]uint8
	for i := 0; i < 3; i++ {
		if raw[i] < 0 {
			raw[i] = 0
		}
		if raw[i] > 255 {
			raw[i] = 255
		}
		out[i] = uint8(raw[i])
	}
	return out
}

func computeBounds(positions [][3]float32) Bounds {
	min := positions[0]
	max := positions[0]
	for _, p := range positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return Bounds{Min: min, Max: max}
}

func computeEyeMaterial(eb mdl.Eyeball) *EyeMaterial {
	fwd := normalize(eb.Forward)
	up := normalize(eb.Up)
	right := normalize(cross(fwd, up))
	irisRadius := eb.Radius * eb.IrisScale
	if irisRadius == 0 {
		irisRadius = 1
	}
	scale := 0.5 / irisRadius
	return &EyeMaterial{
		IrisU: axisVector(right, eb.Org, scale),
		IrisV: axisVector(up, eb.Org, scale),
	}
}

func axisVector(axis, origin [3]float32, scale float32) [4]float32 {
	return [4]float32{
		axis[0] * scale,
		axis[1] * scale,
		axis[2] * scale,
		0.5 - dot(axis, origin)*scale,
	}
}

func normalize(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l < 1e-12 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
