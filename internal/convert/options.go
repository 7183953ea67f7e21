package convert

import (
	"fmt"

	"segconv/internal/geom"
)

// UnknownLabelPolicy decides what happens to a shape whose label is not in
// the dictionary.
type UnknownLabelPolicy int

const (
	// PolicyDefault uses the direction's default: Fail towards YOLO,
	// Substitute towards labelme.
	PolicyDefault UnknownLabelPolicy = iota
	// Fail aborts the file with ErrUnknownLabel.
	Fail
	// Substitute names the shape labels.Unknown when producing labelme; when
	// producing YOLO there is no index to substitute, so the shape is skipped
	// and reported.
	Substitute
)

func (p UnknownLabelPolicy) String() string {
	switch p {
	case Fail:
		return "fail"
	case Substitute:
		return "substitute"
	}
	return "default"
}

// ParsePolicy parses "fail", "substitute" or "" (default).
func ParsePolicy(s string) (UnknownLabelPolicy, error) {
	switch s {
	case "", "default":
		return PolicyDefault, nil
	case "fail":
		return Fail, nil
	case "substitute":
		return Substitute, nil
	}
	return PolicyDefault, fmt.Errorf("unknown label policy %q (want fail or substitute)", s)
}

func (p UnknownLabelPolicy) or(def UnknownLabelPolicy) UnknownLabelPolicy {
	if p == PolicyDefault {
		return def
	}
	return p
}

// Options configures both converters. The zero value disables simplification.
type Options struct {
	// Tolerance is the simplification tolerance in pixels; <= 0 keeps every vertex.
	Tolerance float64
	// UnknownLabel selects the policy for labels missing from the dictionary.
	UnknownLabel UnknownLabelPolicy
	// OpenRings drops the closing duplicate point from generated polygons.
	OpenRings bool
}

// DefaultOptions simplifies with DefaultTolerance and keeps the per-direction
// unknown label policies.
func DefaultOptions() Options {
	return Options{Tolerance: geom.DefaultTolerance}
}
