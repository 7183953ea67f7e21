// Package batch drives the converters over directories: one file (or
// annotation/image pair) is converted completely before the next, and a
// failure is logged against its file without stopping the run.
package batch

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"segconv/internal/convert"
	"segconv/internal/filter"
	"segconv/internal/fsutil"
	"segconv/internal/imagesize"
	"segconv/internal/labelme"
	"segconv/internal/labels"
	"segconv/internal/yoloseg"
)

// SizeFunc returns the pixel dimensions of an image file.
type SizeFunc func(path string) (width, height int, err error)

// Summary counts the outcome of a run.
type Summary struct {
	Converted int // files written
	Failed    int // files that could not be converted
	Skipped   int // inputs without a matching image
	Issues    int // shapes or lines skipped or clamped inside converted files
}

// Total is the number of input files seen.
func (s Summary) Total() int { return s.Converted + s.Failed + s.Skipped }

// Runner holds what is shared by every file of a run. None of it is
// modified while converting.
type Runner struct {
	Labels    *labels.Dictionary
	Options   convert.Options
	Drop      filter.Set
	ImageSize SizeFunc
}

// NewRunner returns a Runner that probes image sizes from file headers.
func NewRunner(dict *labels.Dictionary, opts convert.Options, drop filter.Set) *Runner {
	return &Runner{Labels: dict, Options: opts, Drop: drop, ImageSize: imagesize.Size}
}

// ToYOLO converts every *.json document in inDir to a *.txt label file in outDir.
func (r *Runner) ToYOLO(inDir, outDir string) (Summary, error) {
	var summary Summary
	files, err := prepare(inDir, outDir, ".json")
	if err != nil {
		return summary, err
	}

	start := time.Now()
	log.Printf("🔄 Converting %d labelme files to YOLO-seg...\n", len(files))
	for _, file := range files {
		out := fsutil.WithExt(outDir, file, ".txt")
		n, issues, err := r.FileToYOLO(file, out)
		summary.record(file, err, issues)
		if err == nil {
			log.Printf("   ✅ %s: %d polygons\n", filepath.Base(out), n)
		}
	}
	summary.log(time.Since(start))
	return summary, nil
}

// FileToYOLO converts one labelme document. On failure nothing is left at
// outPath, including any output of an earlier run.
func (r *Runner) FileToYOLO(jsonPath, outPath string) (polygons int, issues []error, err error) {
	doc, err := labelme.Load(jsonPath)
	if err != nil {
		return 0, nil, discard(outPath, err)
	}
	if len(r.Drop) > 0 {
		doc, _ = filter.Document(doc, r.Drop)
	}

	result, err := convert.ToYOLO(doc, r.Labels, r.Options)
	if err != nil {
		return 0, nil, discard(outPath, err)
	}

	if err := fsutil.ReplaceFile(outPath, yoloseg.Marshal(result.Lines)); err != nil {
		return 0, result.Issues, err
	}
	return len(result.Lines), result.Issues, nil
}

// ToLabelme converts every *.txt label file in inDir that has an image with
// the same stem in imageDir to a *.json document in outDir.
func (r *Runner) ToLabelme(inDir, imageDir, outDir string) (Summary, error) {
	var summary Summary
	files, err := prepare(inDir, outDir, ".txt")
	if err != nil {
		return summary, err
	}
	images, err := fsutil.List(imageDir, imagesize.Extensions...)
	if err != nil {
		return summary, err
	}

	pairs, unmatched := fsutil.PairByStem(files, images)
	for _, file := range unmatched {
		log.Printf("   ⚠️  %s: no image with the same name in %s, skipping\n", filepath.Base(file), imageDir)
		summary.Skipped++
	}

	start := time.Now()
	log.Printf("🔄 Converting %d YOLO-seg files to labelme...\n", len(pairs))
	for _, pair := range pairs {
		out := fsutil.WithExt(outDir, pair.Image, ".json")
		result, issues, err := r.FileToLabelme(pair.Annotation, pair.Image, out)
		summary.record(pair.Annotation, err, issues)
		if err == nil {
			log.Printf("   ✅ %s: %d polygons, %d -> %d vertices\n", filepath.Base(out),
				len(result.Document.Shapes), result.VerticesIn, result.VerticesOut)
		}
	}
	summary.log(time.Since(start))
	return summary, nil
}

// FileToLabelme converts one label file, taking the image size from imagePath.
// Malformed lines are skipped and returned in issues, as are lines with
// coordinates outside [0,1], which are kept.
func (r *Runner) FileToLabelme(txtPath, imagePath, outPath string) (*convert.LabelmeResult, []error, error) {
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return nil, nil, discard(outPath, fmt.Errorf("failed to read file: %w", err))
	}
	lines, issues, err := yoloseg.Read(bytes.NewReader(data))
	if err != nil {
		return nil, nil, discard(outPath, err)
	}

	width, height, err := r.ImageSize(imagePath)
	if err != nil {
		return nil, issues, discard(outPath, err)
	}

	result, err := convert.ToLabelme(lines, r.Labels, width, height, filepath.Base(imagePath), r.Options)
	if err != nil {
		return nil, issues, discard(outPath, err)
	}
	issues = append(issues, result.Issues...)

	encoded, err := result.Document.Marshal()
	if err != nil {
		return nil, issues, err
	}
	if err := fsutil.ReplaceFile(outPath, encoded); err != nil {
		return nil, issues, err
	}
	return result, issues, nil
}

// Filter rewrites every *.json document in inDir to outDir without the shapes
// labelled with any of drop.
func Filter(drop filter.Set, inDir, outDir string) (Summary, error) {
	var summary Summary
	files, err := prepare(inDir, outDir, ".json")
	if err != nil {
		return summary, err
	}

	start := time.Now()
	log.Printf("🧹 Removing %d labels from %d labelme files...\n", len(drop), len(files))
	for _, file := range files {
		out := filepath.Join(outDir, filepath.Base(file))
		dropped, err := filterFile(drop, file, out)
		summary.record(file, err, nil)
		if err == nil {
			log.Printf("   ✅ %s: removed %d shapes\n", filepath.Base(out), dropped)
		}
	}
	summary.log(time.Since(start))
	return summary, nil
}

func filterFile(drop filter.Set, path, outPath string) (int, error) {
	doc, err := labelme.Load(path)
	if err != nil {
		return 0, err
	}
	out, dropped := filter.Document(doc, drop)
	encoded, err := out.Marshal()
	if err != nil {
		return 0, err
	}
	return dropped, fsutil.ReplaceFile(outPath, encoded)
}

func prepare(inDir, outDir, ext string) ([]string, error) {
	files, err := fsutil.List(inDir, ext)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(outDir); err != nil {
		return nil, err
	}
	return files, nil
}

// discard removes a stale output for a file that failed and returns err.
func discard(outPath string, err error) error {
	if rmErr := fsutil.Remove(outPath); rmErr != nil {
		log.Printf("   ⚠️  %v\n", rmErr)
	}
	return err
}

func (s *Summary) record(file string, err error, issues []error) {
	name := filepath.Base(file)
	for _, issue := range issues {
		log.Printf("   ⚠️  %s: %v\n", name, issue)
	}
	s.Issues += len(issues)

	if err != nil {
		log.Printf("   ❌ %s: %v\n", name, err)
		s.Failed++
		return
	}
	s.Converted++
}

func (s Summary) log(elapsed time.Duration) {
	log.Printf("   Converted: %d, failed: %d, skipped: %d, shape issues: %d\n",
		s.Converted, s.Failed, s.Skipped, s.Issues)
	log.Printf("   ⏱️  Time: %.2f seconds\n", elapsed.Seconds())
}
