// Package labels maps annotation class names to dense integer indices and back.
package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Unknown is returned by Name for indices that were never registered.
const Unknown = "unknown"

var (
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrUnknownLabel   = errors.New("unknown label")
)

// Dictionary is an immutable bidirectional name <-> index mapping. Indices
// start at 0 and follow the position in the source list; an empty name keeps
// its index free. A Dictionary is safe for concurrent use.
type Dictionary struct {
	names   []string
	indices map[string]int
}

// New builds a Dictionary from an ordered list of names.
// A name that appears twice is an error.
func New(names []string) (*Dictionary, error) {
	d := &Dictionary{
		names:   make([]string, 0, len(names)),
		indices: make(map[string]int, len(names)),
	}
	for _, name := range names {
		if name == "" {
			d.names = append(d.names, name)
			continue
		}
		if prev, ok := d.indices[name]; ok {
			return nil, fmt.Errorf("%w %q at index %d (first seen at %d)", ErrDuplicateLabel, name, len(d.names), prev)
		}
		d.indices[name] = len(d.names)
		d.names = append(d.names, name)
	}
	return d, nil
}

// Read parses a label list: one name per line, surrounding whitespace
// trimmed. The index of a name is its line position, so a blank line inside
// the list takes an index that resolves to no label. Trailing blank lines
// are dropped.
func Read(r io.Reader) (*Dictionary, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	return New(names)
}

// Load reads a label list file.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Index returns the index of name, or ErrUnknownLabel.
func (d *Dictionary) Index(name string) (int, error) {
	i, ok := d.indices[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownLabel, name)
	}
	return i, nil
}

// Lookup returns the name registered at index and whether it exists.
func (d *Dictionary) Lookup(index int) (string, bool) {
	if index < 0 || index >= len(d.names) || d.names[index] == "" {
		return "", false
	}
	return d.names[index], true
}

// Name returns the name registered at index, or Unknown.
func (d *Dictionary) Name(index int) string {
	if name, ok := d.Lookup(index); ok {
		return name
	}
	return Unknown
}

// Len returns the number of indices, blank positions included.
func (d *Dictionary) Len() int { return len(d.names) }

// Names returns a copy of the labels in index order. Blank positions are "".
func (d *Dictionary) Names() []string {
	return append([]string(nil), d.names...)
}
