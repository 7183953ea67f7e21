package convert

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"segconv/internal/geom"
	"segconv/internal/labelme"
	"segconv/internal/labels"
	"segconv/internal/yoloseg"
)

func dictionary(t *testing.T, names ...string) *labels.Dictionary {
	t.Helper()
	d, err := labels.New(names)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func document(width, height int, shapes ...labelme.Shape) *labelme.Document {
	doc := labelme.NewDocument("img.jpg", width, height)
	doc.Shapes = append(doc.Shapes, shapes...)
	return doc
}

func TestToYOLOScenarioA(t *testing.T) {
	dict := dictionary(t, "person", "car")
	doc := document(100, 100, labelme.NewPolygon("car", []orb.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))

	result, err := ToYOLO(doc, dict, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(result.Lines))
	}
	want := "1 0.000000 0.000000 0.100000 0.000000 0.100000 0.100000 0.000000 0.100000"
	if got := result.Lines[0].String(); got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestToYOLOEmptyDocument(t *testing.T) {
	result, err := ToYOLO(document(640, 480), dictionary(t, "a"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lines) != 0 || len(result.Issues) != 0 {
		t.Errorf("result = %+v, want nothing", result)
	}
}

func TestToYOLOUnknownLabel(t *testing.T) {
	dict := dictionary(t, "person")
	doc := document(100, 100,
		labelme.NewPolygon("person", []orb.Point{{0, 0}, {10, 0}, {10, 10}}),
		labelme.NewPolygon("tree", []orb.Point{{0, 0}, {10, 0}, {10, 10}}),
	)

	if _, err := ToYOLO(doc, dict, DefaultOptions()); !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("error = %v, want ErrUnknownLabel", err)
	}

	opts := DefaultOptions()
	opts.UnknownLabel = Substitute
	result, err := ToYOLO(doc, dict, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lines) != 1 || len(result.Issues) != 1 || !errors.Is(result.Issues[0], ErrUnknownLabel) {
		t.Errorf("result = %+v", result)
	}
}

func TestToYOLOKeepsOrder(t *testing.T) {
	dict := dictionary(t, "a", "b", "c")
	tri := []orb.Point{{0, 0}, {5, 0}, {5, 5}}
	doc := document(10, 10,
		labelme.NewPolygon("c", tri),
		labelme.NewPolygon("a", tri),
		labelme.NewPolygon("c", tri),
		labelme.NewPolygon("b", tri),
	)

	result, err := ToYOLO(doc, dict, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 0, 2, 1}
	for i, line := range result.Lines {
		if line.Class != want[i] {
			t.Errorf("line %d class = %d, want %d", i, line.Class, want[i])
		}
	}
}

func TestToYOLOShapeKinds(t *testing.T) {
	dict := dictionary(t, "box", "mark")
	doc := document(10, 20,
		labelme.Shape{Label: "box", ShapeType: labelme.ShapeRectangle, Points: []orb.Point{{1, 2}, {5, 10}}},
		labelme.Shape{Label: "mark", ShapeType: "point", Points: []orb.Point{{3, 3}}},
	)

	result, err := ToYOLO(doc, dict, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(result.Lines))
	}
	if got, want := result.Lines[0].String(), "0 0.100000 0.100000 0.500000 0.100000 0.500000 0.500000 0.100000 0.500000"; got != want {
		t.Errorf("rectangle line = %q, want %q", got, want)
	}
	if len(result.Issues) != 1 || !errors.Is(result.Issues[0], ErrDegenerateGeometry) {
		t.Errorf("issues = %v", result.Issues)
	}
}

func TestToYOLOClampsPointsOutsideImage(t *testing.T) {
	dict := dictionary(t, "car")
	doc := document(100, 100, labelme.NewPolygon("car", []orb.Point{{10, 10}, {100.4, 50}, {10, 90}}))

	result, err := ToYOLO(doc, dict, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(result.Lines))
	}
	if !geom.InUnitRange(result.Lines[0].Points) {
		t.Errorf("points = %v, want all inside [0,1]", result.Lines[0].Points)
	}
	if len(result.Issues) != 1 || !errors.Is(result.Issues[0], ErrOutOfRange) {
		t.Errorf("issues = %v, want one ErrOutOfRange", result.Issues)
	}
	if !strings.Contains(result.Issues[0].Error(), "shape 1") {
		t.Errorf("issue does not name the shape: %v", result.Issues[0])
	}
}

func TestToYOLOOutputReadsBack(t *testing.T) {
	dict := dictionary(t, "person", "car")
	doc := document(100, 100,
		labelme.NewPolygon("car", []orb.Point{{10, 10}, {100.4, 50}, {10, 90}}),
		labelme.NewPolygon("person", []orb.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}),
	)

	result, err := ToYOLO(doc, dict, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	lines, issues, err := yoloseg.Read(bytes.NewReader(yoloseg.Marshal(result.Lines)))
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("written output reported issues on read: %v", issues)
	}
	if len(lines) != 2 || lines[0].Class != 1 || lines[1].Class != 0 {
		t.Errorf("lines = %+v", lines)
	}
}

func TestToLabelmeIssuesNameSourceLines(t *testing.T) {
	input := "0 0.1 0.1 0.5 0.1 0.5 0.5\n\n0 0 0 0.5 0 1 0\n"
	lines, _, err := yoloseg.Read(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	result, err := ToLabelme(lines, dictionary(t, "cat"), 100, 100, "x.jpg", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Issues) != 1 || !strings.Contains(result.Issues[0].Error(), "line 3") {
		t.Errorf("issues = %v, want one naming line 3", result.Issues)
	}
}

func TestToYOLORejectsBadDimensions(t *testing.T) {
	doc := document(0, 100, labelme.NewPolygon("a", []orb.Point{{0, 0}, {1, 0}, {1, 1}}))
	if _, err := ToYOLO(doc, dictionary(t, "a"), DefaultOptions()); !errors.Is(err, ErrDimension) {
		t.Errorf("error = %v, want ErrDimension", err)
	}
}

func TestToLabelmeScenarioB(t *testing.T) {
	line, err := yoloseg.Parse("0 0.0 0.0 0.5 0.0 0.5 0.5")
	if err != nil {
		t.Fatal(err)
	}

	result, err := ToLabelme([]yoloseg.Line{line}, dictionary(t, "cat"), 200, 200, "cat.png", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	doc := result.Document
	if doc.Version != labelme.Version || doc.ImagePath != "cat.png" || doc.ImageWidth != 200 || doc.ImageHeight != 200 {
		t.Errorf("document header = %+v", doc)
	}
	if doc.ImageData != nil {
		t.Error("imageData should be null")
	}
	if len(doc.Shapes) != 1 {
		t.Fatalf("got %d shapes", len(doc.Shapes))
	}

	shape := doc.Shapes[0]
	if shape.Label != "cat" || shape.ShapeType != labelme.ShapePolygon || shape.GroupID != nil ||
		shape.Description != "" || len(shape.Flags) != 0 || shape.Mask != nil {
		t.Errorf("shape = %+v", shape)
	}

	want := []orb.Point{{0, 0}, {100, 0}, {100, 100}}
	open := geom.OpenRing(orb.Ring(shape.Points))
	if len(open) != len(want) {
		t.Fatalf("points = %v, want %v", shape.Points, want)
	}
	for i := range want {
		if !open[i].Equal(want[i]) {
			t.Errorf("point %d = %v, want %v", i, open[i], want[i])
		}
	}
	if !shape.Points[0].Equal(shape.Points[len(shape.Points)-1]) {
		t.Error("polygon ring is not closed")
	}
}

func TestToLabelmeOpenRings(t *testing.T) {
	line := yoloseg.Line{Class: 0, Points: []orb.Point{{0, 0}, {0.5, 0}, {0.5, 0.5}}}
	opts := DefaultOptions()
	opts.OpenRings = true

	result, err := ToLabelme([]yoloseg.Line{line}, dictionary(t, "cat"), 200, 200, "cat.png", opts)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(result.Document.Shapes[0].Points); n != 3 {
		t.Errorf("got %d points, want 3", n)
	}
}

func TestToLabelmeUnknownIndex(t *testing.T) {
	lines := []yoloseg.Line{{Class: 7, Points: []orb.Point{{0, 0}, {0.5, 0}, {0.5, 0.5}}}}
	dict := dictionary(t, "cat")

	result, err := ToLabelme(lines, dict, 100, 100, "x.jpg", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Document.Shapes[0].Label; got != labels.Unknown {
		t.Errorf("label = %q, want %q", got, labels.Unknown)
	}

	opts := DefaultOptions()
	opts.UnknownLabel = Fail
	if _, err := ToLabelme(lines, dict, 100, 100, "x.jpg", opts); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("error = %v, want ErrUnknownLabel", err)
	}
}

func TestToLabelmeDegenerate(t *testing.T) {
	lines := []yoloseg.Line{
		{Class: 0, Points: []orb.Point{{0, 0}, {0.5, 0}, {1, 0}}},
		{Class: 0, Points: []orb.Point{{0, 0}, {0.5, 0}, {0.5, 0.5}}},
	}

	result, err := ToLabelme(lines, dictionary(t, "cat"), 100, 100, "x.jpg", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Document.Shapes) != 1 {
		t.Errorf("got %d shapes, want 1", len(result.Document.Shapes))
	}
	if len(result.Issues) != 1 || !errors.Is(result.Issues[0], ErrDegenerateGeometry) {
		t.Errorf("issues = %v", result.Issues)
	}
}

func TestToLabelmeSimplifies(t *testing.T) {
	// A dense circle in a 1000x1000 image.
	var points []orb.Point
	for i := 0; i < 360; i++ {
		a := float64(i) * math.Pi / 180
		points = append(points, orb.Point{0.5 + 0.3*math.Cos(a), 0.5 + 0.3*math.Sin(a)})
	}
	lines := []yoloseg.Line{{Class: 0, Points: points}}

	result, err := ToLabelme(lines, dictionary(t, "ball"), 1000, 1000, "ball.jpg", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.VerticesIn != 360 || result.VerticesOut >= result.VerticesIn {
		t.Errorf("vertices %d -> %d, expected a reduction", result.VerticesIn, result.VerticesOut)
	}

	exact, err := ToLabelme(lines, dictionary(t, "ball"), 1000, 1000, "ball.jpg", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if exact.VerticesOut != 361 {
		t.Errorf("zero tolerance kept %d vertices, want 361", exact.VerticesOut)
	}
}

func TestToLabelmeRejectsBadDimensions(t *testing.T) {
	_, err := ToLabelme(nil, dictionary(t, "a"), 100, 0, "x.jpg", DefaultOptions())
	if !errors.Is(err, ErrDimension) {
		t.Errorf("error = %v, want ErrDimension", err)
	}
}

func TestRoundTripThroughBothFormats(t *testing.T) {
	dict := dictionary(t, "person", "car")
	square := []orb.Point{{20, 20}, {80, 20}, {80, 60}, {20, 60}}
	doc := document(200, 100, labelme.NewPolygon("car", square))

	yolo, err := ToYOLO(doc, dict, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	back, err := ToLabelme(yolo.Lines, dict, 200, 100, "img.jpg", Options{OpenRings: true})
	if err != nil {
		t.Fatal(err)
	}

	got := back.Document.Shapes[0]
	if got.Label != "car" {
		t.Errorf("label = %q", got.Label)
	}
	for i := range square {
		if math.Abs(got.Points[i].X()-square[i].X()) > 1e-4 || math.Abs(got.Points[i].Y()-square[i].Y()) > 1e-4 {
			t.Errorf("point %d = %v, want %v", i, got.Points[i], square[i])
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]UnknownLabelPolicy{"": PolicyDefault, "fail": Fail, "substitute": Substitute} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("ignore"); err == nil || !strings.Contains(err.Error(), "ignore") {
		t.Errorf("ParsePolicy(ignore) error = %v", err)
	}
}
