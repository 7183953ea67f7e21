// Package filter removes shapes from labelme documents by label.
package filter

import "segconv/internal/labelme"

// Set is a set of labels.
type Set map[string]struct{}

// NewSet builds a Set, ignoring empty names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether label is in the set.
func (s Set) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Drop returns the shapes whose label is not in remove, in their original
// order. The input slice is not modified.
func Drop(shapes []labelme.Shape, remove Set) []labelme.Shape {
	kept := make([]labelme.Shape, 0, len(shapes))
	for _, s := range shapes {
		if !remove.Has(s.Label) {
			kept = append(kept, s)
		}
	}
	return kept
}

// Document returns a copy of doc without the shapes labelled with any of
// remove, and the number of shapes dropped.
func Document(doc *labelme.Document, remove Set) (*labelme.Document, int) {
	out := *doc
	out.Shapes = Drop(doc.Shapes, remove)
	return &out, len(doc.Shapes) - len(out.Shapes)
}
