package convert

import (
	"fmt"

	"segconv/internal/geom"
	"segconv/internal/labelme"
	"segconv/internal/labels"
	"segconv/internal/yoloseg"
)

// YOLOResult is the outcome of converting one labelme document.
type YOLOResult struct {
	Lines []yoloseg.Line
	// Issues lists shapes that were skipped, one error per shape.
	Issues []error
}

// ToYOLO converts every shape of doc to a normalized line, in document order.
//
// An unknown label fails the whole document under the Fail policy (the
// default for this direction). Shapes with fewer than 3 points are skipped
// and reported as ErrDegenerateGeometry. Points outside the image are clamped
// to its border and reported as ErrOutOfRange. Shapes are numbered from 1 in
// errors and issues.
func ToYOLO(doc *labelme.Document, dict *labels.Dictionary, opts Options) (*YOLOResult, error) {
	if err := geom.CheckDimensions(doc.ImageWidth, doc.ImageHeight); err != nil {
		return nil, err
	}
	policy := opts.UnknownLabel.or(Fail)

	result := &YOLOResult{Lines: make([]yoloseg.Line, 0, len(doc.Shapes))}
	for i, shape := range doc.Shapes {
		n := i + 1
		class, err := dict.Index(shape.Label)
		if err != nil {
			if policy == Fail {
				return nil, fmt.Errorf("shape %d: %w", n, err)
			}
			result.Issues = append(result.Issues, fmt.Errorf("shape %d skipped: %w", n, err))
			continue
		}

		polygon := shape.Polygon()
		if len(polygon) < yoloseg.MinPoints {
			result.Issues = append(result.Issues, fmt.Errorf("shape %d (%s) skipped: %w: %d points",
				n, shape.Label, ErrDegenerateGeometry, len(polygon)))
			continue
		}

		points, err := geom.Normalize(polygon, doc.ImageWidth, doc.ImageHeight)
		if err != nil {
			return nil, err
		}
		if !geom.InUnitRange(points) {
			points = geom.Clamp(points)
			result.Issues = append(result.Issues, fmt.Errorf("shape %d (%s) clamped to the image: %w",
				n, shape.Label, ErrOutOfRange))
		}
		result.Lines = append(result.Lines, yoloseg.Line{Class: class, Points: points})
	}

	return result, nil
}
