package convert

import (
	"errors"

	"segconv/internal/geom"
	"segconv/internal/labelme"
	"segconv/internal/labels"
	"segconv/internal/yoloseg"
)

// Errors reported by the converters, matched with errors.Is.
var (
	ErrUnknownLabel       = labels.ErrUnknownLabel
	ErrDuplicateLabel     = labels.ErrDuplicateLabel
	ErrMalformedLine      = yoloseg.ErrMalformedLine
	ErrOutOfRange         = yoloseg.ErrOutOfRange
	ErrMalformedJSON      = labelme.ErrMalformedJSON
	ErrDimension          = geom.ErrDimension
	ErrDegenerateGeometry = errors.New("degenerate polygon")
)
