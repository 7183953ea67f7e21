package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// DefaultTolerance is the simplification tolerance in pixels ("moderate").
const DefaultTolerance = 5.0

const (
	closeThreshold = 1e-9
	// Each retry halves the tolerance; after this many the unreduced ring is used.
	maxRetries = 24
)

// CloseRing returns the points as a ring whose last point duplicates the first.
// The input is never modified.
func CloseRing(points []orb.Point) orb.Ring {
	n := len(points)
	if n == 0 {
		return orb.Ring{}
	}

	ring := make(orb.Ring, n, n+1)
	copy(ring, points)
	if !samePoint(ring[0], ring[n-1]) || n == 1 {
		ring = append(ring, ring[0])
	}
	return ring
}

// OpenRing drops the closing duplicate of a ring, if present.
func OpenRing(ring orb.Ring) []orb.Point {
	n := len(ring)
	if n > 1 && samePoint(ring[0], ring[n-1]) {
		return []orb.Point(ring[:n-1])
	}
	return []orb.Point(ring)
}

// Simplify reduces the vertex count of a polygon using Douglas-Peucker on its
// closed exterior ring. The result is always a closed ring.
//
// Topology is preserved: when the reduced ring self-intersects or loses its
// area although the input did neither, the reduction is retried with half the
// tolerance until a valid ring comes out. A degenerate input (no area) is
// reduced as-is and may collapse below 4 points; see Degenerate.
func Simplify(points []orb.Point, tolerance float64) orb.Ring {
	ring := CloseRing(points)
	if tolerance <= 0 || len(ring) < 4 {
		return ring
	}

	degenerate := math.Abs(planar.Area(ring)) == 0
	crossing := SelfIntersects(ring)

	epsilon := tolerance
	for i := 0; i < maxRetries; i++ {
		simplified := simplify.DouglasPeucker(epsilon).Ring(ring.Clone())
		if degenerate {
			return simplified
		}
		if !Degenerate(simplified) && (crossing || !SelfIntersects(simplified)) {
			return simplified
		}
		epsilon /= 2
	}

	return ring // failed to simplify adequately
}

// Degenerate reports whether a closed ring cannot describe a polygon: fewer
// than 4 points (3 distinct vertices plus closure) or zero area.
func Degenerate(ring orb.Ring) bool {
	if len(ring) < 4 {
		return true
	}
	return math.Abs(planar.Area(ring)) == 0
}

func samePoint(a, b orb.Point) bool {
	return math.Abs(a.X()-b.X()) < closeThreshold && math.Abs(a.Y()-b.Y()) < closeThreshold
}
