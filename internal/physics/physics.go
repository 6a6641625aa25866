// Package physics decodes a .phy buffer's IVP compact-surface collision
// trees into convex hulls, merges them with the trailing KeyValues ragdoll
// description, and emits bodies and joints (§4.4). It has no teacher
// equivalent; the explicit-stack bounds-checked tree walk is grounded on
// the same "bounds-check every access, skip the bad record" idiom the rest
// of this decoder's readers use, and the body/joint value-struct shape
// (integer cross-references instead of pointers) follows
// _examples/gazed-vu/physics's separation of bodies and joints.
package physics

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/srcmdl/srcdecode/internal/binreader"
	"github.com/srcmdl/srcdecode/internal/keyvalues"
	"github.com/srcmdl/srcdecode/internal/mathutil"
	"github.com/srcmdl/srcdecode/internal/phy"
)

const ivpToSource = 39.3701

// twistThresholdDeg is the axis-range width at or below which an axis is
// considered locked rather than free, per §4.4 step 2.
const twistThresholdDeg = 5.0

// JointKind classifies a ragdoll constraint by its free degrees of freedom.
type JointKind int

const (
	JointFixed JointKind = iota
	JointHinge
	JointBall
)

// Hull is one convex ledge's distinct points, already converted to Source
// space.
type Hull struct {
	Points [][3]float32
}

// Body is one emitted ragdoll solid.
type Body struct {
	Mass     float32
	Surface  string
	BoneName string
	Hulls    []Hull
	SolidIdx int
}

// Joint is one emitted ragdoll constraint.
type Joint struct {
	Kind                  JointKind
	ParentBody, ChildBody int
	Frame1, Frame2        mathutil.Transform
	TwistMin, TwistMax    float32
	SwingLimit            float32
}

// Result is everything a .phy buffer decodes to.
type Result struct {
	Bodies []Body
	Joints []Joint
}

// Decode parses data as a .phy buffer. boneWorld maps lowercased bone name
// to world transform, used to express joint frames in the parent's local
// space when both solids name a resolvable bone (§4.4 step 1). A malformed
// buffer yields a zero Result and a non-nil error; per spec.md §7 physics
// failures are non-fatal at the decoder level, so callers treat that error
// as "no physics" rather than aborting.
func Decode(data []byte, boneWorld map[string]mathutil.Transform) (Result, error) {
	r, err := phy.New(data)
	if err != nil {
		return Result{}, err
	}

	hullsBySolid := make([][]Hull, r.NumSolids())
	for i := 0; i < r.NumSolids(); i++ {
		blob, err := r.SolidBlob(i)
		if err != nil {
			continue
		}
		hullsBySolid[i] = decodeSolidHulls(blob)
	}

	root := keyvalues.Parse(r.KeyValuesText())
	solids := parseSolids(root)
	constraints := parseConstraints(root)

	var result Result
	solidToBody := make(map[int]int, len(solids))
	for _, s := range solids {
		if s.index < 0 || s.index >= len(hullsBySolid) {
			continue
		}
		hulls := validHulls(hullsBySolid[s.index])
		if len(hulls) == 0 {
			continue
		}
		mass := s.mass
		if mass <= 0 {
			mass = 1.0
		}
		solidToBody[s.index] = len(result.Bodies)
		result.Bodies = append(result.Bodies, Body{
			Mass: mass, Surface: s.surfaceProp, BoneName: s.name, Hulls: hulls, SolidIdx: s.index,
		})
	}

	for _, c := range constraints {
		parentBody, ok1 := solidToBody[c.parent]
		childBody, ok2 := solidToBody[c.child]
		if !ok1 || !ok2 || parentBody == childBody {
			continue
		}
		result.Joints = append(result.Joints, buildJoint(parentBody, childBody, c, result.Bodies, boneWorld))
	}

	return result, nil
}

// decodeSolidHulls extracts every ledge in a solid blob's ledge tree as a
// (not-yet-filtered) hull, per §4.4's iterative bounds-checked tree walk.
func decodeSolidHulls(blob []byte) []Hull {
	surface, err := phy.CompactSurface(blob)
	if err != nil {
		return nil
	}
	rootOff, err := phy.LedgeTreeRootOffset(surface)
	if err != nil {
		return nil
	}

	var hulls []Hull
	stack := []int{rootOff}
	visited := 0
	const maxNodes = 1 << 16 // guards against a cyclic/malformed tree
	for len(stack) > 0 && visited < maxNodes {
		visited++
		off := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, err := phy.ReadLedgeTreeNode(surface, off)
		if err != nil {
			continue
		}
		if node.OffsetCompactLedge != 0 {
			if h, ok := decodeLedge(surface, off+int(node.OffsetCompactLedge)); ok {
				hulls = append(hulls, h)
			}
		}
		if node.OffsetRightNode != 0 {
			stack = append(stack, off+int(node.OffsetRightNode), off+28)
		}
	}
	return hulls
}

// decodeLedge reads one compact ledge's distinct point indices, dereferences
// them, and converts IVP space to Source space.
func decodeLedge(surface binreader.View, ledgeOff int) (Hull, bool) {
	ledge, err := phy.ReadCompactLedge(surface, ledgeOff)
	if err != nil {
		return Hull{}, false
	}

	seen := map[int]bool{}
	var order []int
	for t := 0; t < ledge.NumTriangles; t++ {
		for e := 0; e < 3; e++ {
			idx, err := phy.TriangleEdgeStartIndex(surface, ledgeOff, t, e)
			if err != nil {
				continue
			}
			if !seen[idx] {
				seen[idx] = true
				order = append(order, idx)
			}
		}
	}

	var hull Hull
	for _, idx := range order {
		p, err := phy.PolyPoint(surface, ledgeOff, ledge, idx)
		if err != nil {
			continue
		}
		hull.Points = append(hull.Points, ivpToSourcePoint(p))
	}
	return hull, true
}

func ivpToSourcePoint(p [3]float32) [3]float32 {
	return [3]float32{p[0] * ivpToSource, p[2] * ivpToSource, -p[1] * ivpToSource}
}

// validHulls keeps only hulls with >= 4 distinct points whose extent on
// every axis exceeds 0.01, per §4.4 "Emission".
func validHulls(hulls []Hull) []Hull {
	var out []Hull
	for _, h := range hulls {
		if len(h.Points) < 4 {
			continue
		}
		min, max := boundsOf(h.Points)
		ok := true
		for i := 0; i < 3; i++ {
			if max[i]-min[i] <= 0.01 {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, h)
		}
	}
	return out
}

func boundsOf(points [][3]float32) (min, max [3]float32) {
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

type solidInfo struct {
	index       int
	name        string
	parent      int
	mass        float32
	surfaceProp string
}

func parseSolids(root *keyvalues.Node) []solidInfo {
	var out []solidInfo
	for _, n := range root.FindAll("solid") {
		out = append(out, solidInfo{
			index:       atoiOr(n.ValueOf("index"), len(out)),
			name:        n.ValueOf("name"),
			parent:      atoiOr(n.ValueOf("parent"), -1),
			mass:        float32(atofOr(n.ValueOf("mass"), 0)),
			surfaceProp: n.ValueOf("surfaceprop"),
		})
	}
	return out
}

type constraintInfo struct {
	parent, child                      int
	xmin, xmax, ymin, ymax, zmin, zmax float32
}

func parseConstraints(root *keyvalues.Node) []constraintInfo {
	var out []constraintInfo
	for _, n := range root.FindAll("ragdollconstraint") {
		out = append(out, constraintInfo{
			parent: atoiOr(n.ValueOf("parent"), -1),
			child:  atoiOr(n.ValueOf("child"), -1),
			xmin:   float32(atofOr(n.ValueOf("xmin"), 0)),
			xmax:   float32(atofOr(n.ValueOf("xmax"), 0)),
			ymin:   float32(atofOr(n.ValueOf("ymin"), 0)),
			ymax:   float32(atofOr(n.ValueOf("ymax"), 0)),
			zmin:   float32(atofOr(n.ValueOf("zmin"), 0)),
			zmax:   float32(atofOr(n.ValueOf("zmax"), 0)),
		})
	}
	return out
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func atofOr(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

// buildJoint classifies one constraint and computes its frames, per §4.4
// steps 1-3.
func buildJoint(parentBody, childBody int, c constraintInfo, bodies []Body, boneWorld map[string]mathutil.Transform) Joint {
	frame1, frame2 := mathutil.Identity(), mathutil.Identity()
	parentWorld, ok1 := lookupBoneWorld(bodies[parentBody].BoneName, boneWorld)
	childWorld, ok2 := lookupBoneWorld(bodies[childBody].BoneName, boneWorld)
	if ok1 && ok2 {
		frame1 = mathutil.Compose(parentWorld.Inverse(), childWorld)
	}

	xWidth := c.xmax - c.xmin
	yWidth := c.ymax - c.ymin
	zWidth := c.zmax - c.zmin
	dof := 0
	if xWidth > twistThresholdDeg {
		dof |= 1
	}
	if yWidth > twistThresholdDeg {
		dof |= 2
	}
	if zWidth > twistThresholdDeg {
		dof |= 4
	}

	j := Joint{ParentBody: parentBody, ChildBody: childBody, Frame1: frame1, Frame2: frame2}
	switch bits.OnesCount(uint(dof)) {
	case 0:
		j.Kind = JointFixed
	case 1:
		j.Kind = JointHinge
		switch dof {
		case 2:
			j.TwistMin, j.TwistMax = c.ymin, c.ymax
		case 4:
			j.TwistMin, j.TwistMax = c.zmin, c.zmax
		default:
			j.TwistMin, j.TwistMax = c.xmin, c.xmax
		}
	default:
		j.Kind = JointBall
		j.SwingLimit = maxf(maxf(absf(c.ymin), absf(c.ymax)), maxf(absf(c.zmin), absf(c.zmax)))
		j.TwistMin, j.TwistMax = c.xmin, c.xmax
	}
	return j
}

func lookupBoneWorld(name string, boneWorld map[string]mathutil.Transform) (mathutil.Transform, bool) {
	if name == "" || boneWorld == nil {
		return mathutil.Transform{}, false
	}
	t, ok := boneWorld[strings.ToLower(name)]
	return t, ok
}

func absf(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
