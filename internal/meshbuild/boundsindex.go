package meshbuild

import "github.com/dhconnelly/rtreego"

// meshBounds adapts one mesh's AABB to rtreego.Spatial so a body part's
// meshes can be queried spatially by a downstream renderer/physics host
// (e.g. "which meshes overlap this frustum cell") in O(log n) instead of a
// linear bounds scan.
type meshBounds struct {
	meshIndex int
	rect      *rtreego.Rect
}

func (b *meshBounds) Bounds() *rtreego.Rect { return b.rect }

// BoundsIndex is a per-body-part spatial index over emitted mesh bounds.
type BoundsIndex struct {
	tree *rtreego.Rtree
}

const (
	rtreeMinChildren = 2
	rtreeMaxChildren = 8
	rtreeDimensions  = 3
)

// NewBoundsIndex builds an R-tree over every mesh bounds entry in
// `bounds`. Degenerate (zero-extent) bounds are padded by a tiny epsilon so
// rtreego.NewRect never rejects them.
func NewBoundsIndex(bounds []Bounds) *BoundsIndex {
	idx := &BoundsIndex{tree: rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren)}
	for i, b := range bounds {
		lengths := []float64{
			epsPad(float64(b.Max[0] - b.Min[0])),
			epsPad(float64(b.Max[1] - b.Min[1])),
			epsPad(float64(b.Max[2] - b.Min[2])),
		}
		point := rtreego.Point{float64(b.Min[0]), float64(b.Min[1]), float64(b.Min[2])}
		rect, err := rtreego.NewRect(point, lengths)
		if err != nil {
			continue
		}
		idx.tree.Insert(&meshBounds{meshIndex: i, rect: rect})
	}
	return idx
}

func epsPad(d float64) float64 {
	const eps = 1e-4
	if d < eps {
		return eps
	}
	return d
}

// Overlapping returns the indices (into the slice NewBoundsIndex was built
// from) of every mesh whose bounds intersect the query box.
func (idx *BoundsIndex) Overlapping(b Bounds) []int {
	lengths := []float64{
		epsPad(float64(b.Max[0] - b.Min[0])),
		epsPad(float64(b.Max[1] - b.Min[1])),
		epsPad(float64(b.Max[2] - b.Min[2])),
	}
	point := rtreego.Point{float64(b.Min[0]), float64(b.Min[1]), float64(b.Min[2])}
	rect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return nil
	}
	hits := idx.tree.SearchIntersect(rect)
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*meshBounds).meshIndex)
	}
	return out
}
