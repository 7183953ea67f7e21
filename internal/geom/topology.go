package geom

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// boundsPad keeps axis-aligned edges from producing zero-width rectangles,
// which rtreego never reports as intersecting.
const boundsPad = 1e-9

// edgeEntry wraps one ring edge for R-tree storage
type edgeEntry struct {
	index  int
	p1, p2 orb.Point
	bbox   rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *edgeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// edgeIndex answers "which edges could touch this one" for a single ring
type edgeIndex struct {
	tree  *rtreego.Rtree
	edges []*edgeEntry
}

// newEdgeIndex indexes every non-zero-length edge of a closed ring
func newEdgeIndex(ring orb.Ring) *edgeIndex {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node
	idx := &edgeIndex{tree: tree}

	for i := 0; i+1 < len(ring); i++ {
		p1, p2 := ring[i], ring[i+1]
		if p1.Equal(p2) {
			continue
		}
		bbox, err := edgeBounds(p1, p2)
		if err != nil {
			continue
		}
		entry := &edgeEntry{index: len(idx.edges), p1: p1, p2: p2, bbox: bbox}
		idx.edges = append(idx.edges, entry)
		tree.Insert(entry)
	}

	return idx
}

// candidates returns the edges whose bounding boxes overlap the given edge
func (idx *edgeIndex) candidates(e *edgeEntry) []*edgeEntry {
	results := idx.tree.SearchIntersect(e.bbox)
	edges := make([]*edgeEntry, 0, len(results))
	for _, item := range results {
		other := item.(*edgeEntry)
		if other.index > e.index {
			edges = append(edges, other)
		}
	}
	return edges
}

// SelfIntersects reports whether any two non-adjacent edges of a closed ring
// cross or touch, or whether two adjacent edges fold back onto each other.
func SelfIntersects(ring orb.Ring) bool {
	if len(ring) < 4 {
		return false
	}

	idx := newEdgeIndex(ring)
	last := len(idx.edges) - 1 // the closing edge

	for _, e := range idx.edges {
		for _, other := range idx.candidates(e) {
			if adjacent(e.index, other.index, last) {
				if foldsBack(idx.ordered(e.index, other.index, last)) {
					return true
				}
				continue
			}
			if segmentsIntersect(e.p1, e.p2, other.p1, other.p2) {
				return true
			}
		}
	}
	return false
}

// adjacent reports whether indexed edges i < j share a vertex, given the
// index of the closing edge
func adjacent(i, j, last int) bool {
	return j == i+1 || (i == 0 && j == last)
}

// ordered returns adjacent edges i < j as (incoming, outgoing) around their
// shared vertex
func (idx *edgeIndex) ordered(i, j, last int) (*edgeEntry, *edgeEntry) {
	if j == i+1 {
		return idx.edges[i], idx.edges[j]
	}
	return idx.edges[last], idx.edges[0]
}

// foldsBack reports whether edge b, leaving the vertex where a ends, runs
// back along a
func foldsBack(a, b *edgeEntry) bool {
	if direction(a.p1, a.p2, b.p2) != 0 {
		return false
	}
	dot := (a.p2.X()-a.p1.X())*(b.p2.X()-b.p1.X()) + (a.p2.Y()-a.p1.Y())*(b.p2.Y()-b.p1.Y())
	return dot < 0
}

// edgeBounds computes the padded axis-aligned bounding box of one edge
func edgeBounds(p1, p2 orb.Point) (rtreego.Rect, error) {
	minX, maxX := math.Min(p1.X(), p2.X()), math.Max(p1.X(), p2.X())
	minY, maxY := math.Min(p1.Y(), p2.Y()), math.Max(p1.Y(), p2.Y())

	return rtreego.NewRect(
		rtreego.Point{minX - boundsPad, minY - boundsPad},
		[]float64{maxX - minX + 2*boundsPad, maxY - minY + 2*boundsPad},
	)
}

// segmentsIntersect checks if segments p1p2 and p3p4 intersect, including
// collinear overlap and touching endpoints
func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := direction(p3, p4, p1)
	d2 := direction(p3, p4, p2)
	d3 := direction(p1, p2, p3)
	d4 := direction(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Check for collinear cases
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}

	return false
}

// direction calculates the cross product to determine orientation
func direction(p1, p2, p3 orb.Point) float64 {
	return (p3.X()-p1.X())*(p2.Y()-p1.Y()) - (p2.X()-p1.X())*(p3.Y()-p1.Y())
}

// onSegment checks if point q lies within the bounding box of segment pr
func onSegment(p, r, q orb.Point) bool {
	return q.X() <= math.Max(p.X(), r.X()) && q.X() >= math.Min(p.X(), r.X()) &&
		q.Y() <= math.Max(p.Y(), r.Y()) && q.Y() >= math.Min(p.Y(), r.Y())
}
