// Package yoloseg reads and writes YOLO segmentation label files: one polygon
// per line, a class index followed by x y pairs normalized to [0,1].
package yoloseg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"segconv/internal/geom"
)

// Precision is the number of decimal digits written per coordinate.
const Precision = 6

// MinPoints is the smallest polygon a line may describe.
const MinPoints = 3

var (
	// ErrMalformedLine is returned for lines with a bad token count or a
	// token that is not a number.
	ErrMalformedLine = errors.New("malformed annotation line")
	// ErrOutOfRange marks polygons with coordinates outside [0,1]. Such lines
	// are kept.
	ErrOutOfRange = errors.New("coordinates outside [0,1]")
)

// Line is one polygon of a label file.
type Line struct {
	Class  int
	Points []orb.Point
	// Number is the 1-based line number in the source file, 0 if the line
	// was not read from one.
	Number int
}

// String formats the line without a trailing newline.
func (l Line) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(l.Class))
	for _, p := range l.Points {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.X(), 'f', Precision, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Y(), 'f', Precision, 64))
	}
	return b.String()
}

// Parse parses one non-blank line.
func Parse(text string) (Line, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Line{}, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}

	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return Line{}, fmt.Errorf("%w: class index %q is not an integer", ErrMalformedLine, fields[0])
	}

	coords := fields[1:]
	if len(coords)%2 != 0 {
		return Line{}, fmt.Errorf("%w: odd coordinate count %d", ErrMalformedLine, len(coords))
	}
	if len(coords) < 2*MinPoints {
		return Line{}, fmt.Errorf("%w: %d points, need at least %d", ErrMalformedLine, len(coords)/2, MinPoints)
	}

	points := make([]orb.Point, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		x, err := parseCoord(coords[i])
		if err != nil {
			return Line{}, err
		}
		y, err := parseCoord(coords[i+1])
		if err != nil {
			return Line{}, err
		}
		points = append(points, orb.Point{x, y})
	}

	return Line{Class: class, Points: points}, nil
}

func parseCoord(token string) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedLine, token)
	}
	return v, nil
}

// Read parses every non-blank line of r. Lines that fail to parse are left
// out of the result and reported in issues, each wrapping ErrMalformedLine
// and naming its 1-based line number. Lines with coordinates outside [0,1]
// are kept and reported with ErrOutOfRange. err is set only for read failures.
func Read(r io.Reader) (lines []Line, issues []error, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		line, perr := Parse(text)
		if perr != nil {
			issues = append(issues, fmt.Errorf("line %d: %w", n, perr))
			continue
		}
		if !geom.InUnitRange(line.Points) {
			issues = append(issues, fmt.Errorf("line %d: %w", n, ErrOutOfRange))
		}
		line.Number = n
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return lines, issues, nil
}

// Write writes one line per polygon, each terminated by a newline.
func Write(w io.Writer, lines []Line) error {
	buf := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := fmt.Fprintln(buf, line.String()); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// Marshal returns the file contents for lines.
func Marshal(lines []Line) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, lines) // bytes.Buffer writes do not fail
	return buf.Bytes()
}
