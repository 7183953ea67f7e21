package convert

import (
	"fmt"

	"github.com/paulmach/orb"

	"segconv/internal/geom"
	"segconv/internal/labelme"
	"segconv/internal/labels"
	"segconv/internal/yoloseg"
)

// LabelmeResult is the outcome of converting one label file.
type LabelmeResult struct {
	Document *labelme.Document
	// Issues lists lines that were skipped, one error per line.
	Issues []error
	// VerticesIn and VerticesOut count polygon vertices before and after simplification.
	VerticesIn, VerticesOut int
}

// ToLabelme builds the labelme document of one image from its normalized lines.
//
// Every line is unnormalized to pixels and simplified with opts.Tolerance.
// Lines whose polygon collapses are skipped and reported as
// ErrDegenerateGeometry. Under the Substitute policy (the default for this
// direction) an unknown class index is named labels.Unknown. Errors and
// issues name the source line number of the polygon.
func ToLabelme(lines []yoloseg.Line, dict *labels.Dictionary, width, height int, imagePath string, opts Options) (*LabelmeResult, error) {
	if err := geom.CheckDimensions(width, height); err != nil {
		return nil, err
	}
	policy := opts.UnknownLabel.or(Substitute)

	result := &LabelmeResult{Document: labelme.NewDocument(imagePath, width, height)}
	for i, line := range lines {
		n := line.Number
		if n == 0 {
			n = i + 1
		}
		name, ok := dict.Lookup(line.Class)
		if !ok {
			if policy == Fail {
				return nil, fmt.Errorf("line %d: %w index %d", n, ErrUnknownLabel, line.Class)
			}
			name = labels.Unknown
		}

		pixels := geom.Unnormalize(line.Points, width, height)
		ring := geom.Simplify(pixels, opts.Tolerance)
		if geom.Degenerate(ring) {
			result.Issues = append(result.Issues, fmt.Errorf("line %d (%s) skipped: %w: %d points after simplification",
				n, name, ErrDegenerateGeometry, len(ring)))
			continue
		}

		points := []orb.Point(ring)
		if opts.OpenRings {
			points = geom.OpenRing(ring)
		}

		result.VerticesIn += len(line.Points)
		result.VerticesOut += len(points)
		result.Document.Shapes = append(result.Document.Shapes, labelme.NewPolygon(name, points))
	}

	return result, nil
}
