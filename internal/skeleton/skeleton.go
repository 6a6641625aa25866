// Package skeleton builds bone world transforms from the bone table's local
// transforms, grounded on the teacher's BuildWorldMatrices (world[i] =
// world[parent] * local[i], single forward pass relying on the topological
// parent-precedes-child invariant).
package skeleton

import "github.com/srcmdl/srcdecode/internal/mathutil"

// Bone is the minimal input this package needs: a parent index (-1 for
// root) and a local transform.
type Bone struct {
	Parent int
	Local  mathutil.Transform
}

// BuildWorldTransforms computes W[b] = W[parent(b)] ∘ L[b], or W[b] = L[b]
// for a root bone. Bones are walked once in index order; the caller
// guarantees parents precede children (spec invariant), so each parent's
// world transform is already resolved by the time its children are visited.
func BuildWorldTransforms(bones []Bone) []mathutil.Transform {
	worlds := make([]mathutil.Transform, len(bones))
	for i, b := range bones {
		if b.Parent >= 0 && b.Parent < i {
			worlds[i] = mathutil.Compose(worlds[b.Parent], b.Local)
		} else {
			worlds[i] = b.Local
		}
	}
	return worlds
}
