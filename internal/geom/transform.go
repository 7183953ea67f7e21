// Package geom holds the pure geometry used by the converters: pixel <-> normalized
// coordinate transforms and topology-preserving polygon simplification.
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrDimension is returned when an image width or height is not positive.
var ErrDimension = errors.New("image width and height must be positive")

// unitBound is the range every normalized coordinate must fall into.
var unitBound = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}

// CheckDimensions validates image dimensions before any transform uses them.
func CheckDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrDimension, width, height)
	}
	return nil
}

// Normalize maps pixel coordinates to the [0,1] range of a width x height image.
// Points outside the image map outside [0,1]; see Clamp.
func Normalize(points []orb.Point, width, height int) ([]orb.Point, error) {
	if err := CheckDimensions(width, height); err != nil {
		return nil, err
	}

	w, h := float64(width), float64(height)
	normalized := make([]orb.Point, len(points))
	for i, p := range points {
		normalized[i] = orb.Point{p.X() / w, p.Y() / h}
	}
	return normalized, nil
}

// Unnormalize maps [0,1] coordinates back to pixels. No rounding is applied.
func Unnormalize(points []orb.Point, width, height int) []orb.Point {
	w, h := float64(width), float64(height)
	pixels := make([]orb.Point, len(points))
	for i, p := range points {
		pixels[i] = orb.Point{p.X() * w, p.Y() * h}
	}
	return pixels
}

// InUnitRange reports whether every point lies inside [0,1]x[0,1].
func InUnitRange(points []orb.Point) bool {
	for _, p := range points {
		if !unitBound.Contains(p) {
			return false
		}
	}
	return true
}

// Clamp returns the points moved into [0,1]x[0,1].
func Clamp(points []orb.Point) []orb.Point {
	clamped := make([]orb.Point, len(points))
	for i, p := range points {
		clamped[i] = orb.Point{
			math.Min(math.Max(p.X(), unitBound.Min.X()), unitBound.Max.X()),
			math.Min(math.Max(p.Y(), unitBound.Min.Y()), unitBound.Max.Y()),
		}
	}
	return clamped
}
