package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is an annotation file and the image it describes.
type Pair struct {
	Annotation string
	Image      string
}

// List returns the regular files in dir whose extension (case-insensitive)
// is one of exts, sorted by name.
func List(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matchExt(entry.Name(), exts) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func matchExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// PairByStem matches every annotation to the image with the same stem.
// Annotations without an image are returned in unmatched. When several
// images share a stem the first in name order is used.
func PairByStem(annotations, images []string) (pairs []Pair, unmatched []string) {
	byStem := make(map[string]string, len(images))
	for _, img := range images {
		stem := Stem(img)
		if _, ok := byStem[stem]; !ok {
			byStem[stem] = img
		}
	}

	for _, ann := range annotations {
		img, ok := byStem[Stem(ann)]
		if !ok {
			unmatched = append(unmatched, ann)
			continue
		}
		pairs = append(pairs, Pair{Annotation: ann, Image: img})
	}
	return pairs, unmatched
}
