// Package labelme reads and writes labelme shape-list annotation documents.
package labelme

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/paulmach/orb"

	"segconv/internal/geom"
)

// Version is the format tag written into every generated document.
const Version = "5.4.1"

const (
	ShapePolygon   = "polygon"
	ShapeRectangle = "rectangle"
)

// ErrMalformedJSON is returned for documents that do not parse or lack required keys.
var ErrMalformedJSON = errors.New("malformed annotation document")

// Shape is one labelled region in pixel coordinates.
type Shape struct {
	Label       string                 `json:"label"`
	Points      []orb.Point            `json:"points"`
	GroupID     *int                   `json:"group_id"`
	Description string                 `json:"description"`
	ShapeType   string                 `json:"shape_type"`
	Flags       map[string]interface{} `json:"flags"`
	Mask        *string                `json:"mask"`
}

// Document is the annotation of a single image. Field order is the key order
// labelme writes.
type Document struct {
	Version     string                 `json:"version"`
	Flags       map[string]interface{} `json:"flags"`
	Shapes      []Shape                `json:"shapes"`
	ImagePath   string                 `json:"imagePath"`
	ImageData   *string                `json:"imageData"`
	ImageHeight int                    `json:"imageHeight"`
	ImageWidth  int                    `json:"imageWidth"`
}

// NewPolygon returns a polygon shape with the defaults labelme uses for new shapes.
func NewPolygon(label string, points []orb.Point) Shape {
	return Shape{
		Label:     label,
		Points:    points,
		ShapeType: ShapePolygon,
		Flags:     map[string]interface{}{},
	}
}

// NewDocument returns an empty document for an image, without embedded image data.
func NewDocument(imagePath string, width, height int) *Document {
	return &Document{
		Version:     Version,
		Flags:       map[string]interface{}{},
		Shapes:      []Shape{},
		ImagePath:   imagePath,
		ImageHeight: height,
		ImageWidth:  width,
	}
}

// Polygon returns the shape outline as polygon vertices. Rectangles, stored
// as two opposite corners, are expanded to their four corners.
func (s Shape) Polygon() []orb.Point {
	if s.ShapeType == ShapeRectangle && len(s.Points) == 2 {
		a, b := s.Points[0], s.Points[1]
		return []orb.Point{a, {b.X(), a.Y()}, b, {a.X(), b.Y()}}
	}
	return s.Points
}

type rawShape struct {
	Label       *string                `json:"label"`
	Points      [][]float64            `json:"points"`
	GroupID     *int                   `json:"group_id"`
	Description string                 `json:"description"`
	ShapeType   string                 `json:"shape_type"`
	Flags       map[string]interface{} `json:"flags"`
	Mask        *string                `json:"mask"`
}

type rawDocument struct {
	Version     string                 `json:"version"`
	Flags       map[string]interface{} `json:"flags"`
	Shapes      *[]rawShape            `json:"shapes"`
	ImagePath   string                 `json:"imagePath"`
	ImageData   *string                `json:"imageData"`
	ImageHeight *float64               `json:"imageHeight"`
	ImageWidth  *float64               `json:"imageWidth"`
}

// Decode parses and validates a document. Parse failures, missing keys and
// malformed points wrap ErrMalformedJSON; a missing or non-positive image size
// wraps geom.ErrDimension.
func Decode(r io.Reader) (*Document, error) {
	var raw rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if raw.Shapes == nil {
		return nil, fmt.Errorf("%w: missing \"shapes\"", ErrMalformedJSON)
	}

	width, err := dimension(raw.ImageWidth, "imageWidth")
	if err != nil {
		return nil, err
	}
	height, err := dimension(raw.ImageHeight, "imageHeight")
	if err != nil {
		return nil, err
	}
	if err := geom.CheckDimensions(width, height); err != nil {
		return nil, err
	}

	doc := &Document{
		Version:     raw.Version,
		Flags:       raw.Flags,
		Shapes:      make([]Shape, len(*raw.Shapes)),
		ImagePath:   raw.ImagePath,
		ImageData:   raw.ImageData,
		ImageHeight: height,
		ImageWidth:  width,
	}
	for i, rs := range *raw.Shapes {
		shape, err := rs.shape()
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		doc.Shapes[i] = shape
	}
	return doc, nil
}

func (rs rawShape) shape() (Shape, error) {
	if rs.Label == nil {
		return Shape{}, fmt.Errorf("%w: missing \"label\"", ErrMalformedJSON)
	}
	if len(rs.Points) == 0 {
		return Shape{}, fmt.Errorf("%w: %q has no points", ErrMalformedJSON, *rs.Label)
	}

	points := make([]orb.Point, len(rs.Points))
	for i, p := range rs.Points {
		if len(p) != 2 {
			return Shape{}, fmt.Errorf("%w: point %d has %d coordinates", ErrMalformedJSON, i, len(p))
		}
		points[i] = orb.Point{p[0], p[1]}
	}

	return Shape{
		Label:       *rs.Label,
		Points:      points,
		GroupID:     rs.GroupID,
		Description: rs.Description,
		ShapeType:   rs.ShapeType,
		Flags:       rs.Flags,
		Mask:        rs.Mask,
	}, nil
}

func dimension(v *float64, key string) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing %q", geom.ErrDimension, key)
	}
	if *v != math.Trunc(*v) {
		return 0, fmt.Errorf("%w: %q is not an integer: %v", ErrMalformedJSON, key, *v)
	}
	return int(*v), nil
}

// Load reads and decodes a document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Encode writes the document as 4-space indented JSON. Nil maps are written
// as {} and nil shape lists as [].
func (d *Document) Encode(w io.Writer) error {
	out := *d
	if out.Flags == nil {
		out.Flags = map[string]interface{}{}
	}
	out.Shapes = make([]Shape, len(d.Shapes))
	for i, s := range d.Shapes {
		if s.Flags == nil {
			s.Flags = map[string]interface{}{}
		}
		if s.Points == nil {
			s.Points = []orb.Point{}
		}
		out.Shapes[i] = s
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return nil
}

// Marshal returns the encoded document.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
