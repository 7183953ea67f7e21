// Command segconv converts polygon annotations between labelme JSON and
// YOLO segmentation label files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"segconv/internal/batch"
	"segconv/internal/config"
	"segconv/internal/filter"
	"segconv/internal/labels"
)

func main() {
	if loaded, err := config.LoadEnvFile(os.Getenv("SEGCONV_ENV_FILE")); err != nil {
		log.Printf("⚠️  %v\n", err)
	} else if loaded {
		log.Println("   Loaded environment variables from .env file")
	}

	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Printf("❌ %v\n", err)
		os.Exit(2)
	}

	log.Println("========================================")
	log.Printf("🚀 segconv (%s)\n", cfg.Mode)
	log.Println("========================================")

	summary, err := run(cfg)
	if err != nil {
		log.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	log.Println("========================================")

	if summary.Converted == 0 && summary.Failed > 0 {
		os.Exit(1)
	}
}

func run(cfg *config.Config) (batch.Summary, error) {
	drop := filter.NewSet(cfg.DropLabels...)
	if cfg.Mode == config.ModeFilter {
		return batch.Filter(drop, cfg.InputDir, cfg.OutputDir)
	}

	dict, err := labels.Load(cfg.Labels)
	if err != nil {
		return batch.Summary{}, err
	}
	log.Printf("   Labels: %d classes from %s\n", dict.Len(), cfg.Labels)
	log.Printf("   Classes: %s\n", classList(dict.Names()))

	opts := cfg.Options()
	runner := batch.NewRunner(dict, opts, drop)

	switch cfg.Mode {
	case config.ModeYOLO:
		log.Printf("   Input:  %s\n", cfg.InputDir)
		log.Printf("   Output: %s\n", cfg.OutputDir)
		return runner.ToYOLO(cfg.InputDir, cfg.OutputDir)
	default:
		log.Printf("   Input:  %s (images: %s)\n", cfg.InputDir, cfg.ImageDir)
		log.Printf("   Output: %s\n", cfg.OutputDir)
		log.Printf("   Tolerance: %.2f px, unknown labels: %s\n", opts.Tolerance, opts.UnknownLabel)
		return runner.ToLabelme(cfg.InputDir, cfg.ImageDir, cfg.OutputDir)
	}
}

// classList formats names as "index=name" pairs, leaving out blank positions.
func classList(names []string) string {
	parts := make([]string, 0, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d=%s", i, name))
	}
	return strings.Join(parts, " ")
}
